package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// LockInfo is written into a lock file by its holder
type LockInfo struct {
	PID       int       `json:"pid"`
	SessionID string    `json:"session_id"`
	Path      string    `json:"path"`
	LockedAt  time.Time `json:"locked_at"`
}

type fileLock struct {
	f    *os.File
	info LockInfo
}

// LockName returns the lock file name for an absolute document path
func LockName(path string) string {
	sum := blake3.Sum256([]byte(path))
	return hex.EncodeToString(sum[:16]) + ".lock"
}

// LockPath returns where the lock for a document path lives
func (s *Store) LockPath(path string) string {
	return filepath.Join(s.opts.LockDir, LockName(path))
}

// acquire takes the document's exclusive lock, polling until ctx is done
func (s *Store) acquire(ctx context.Context, path string) (*fileLock, error) {
	lockPath := s.LockPath(path)
	f, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	start := time.Now()
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		err := lockFile(f)
		if err == nil {
			break
		}
		if !errors.Is(err, errLocked) {
			f.Close()
			return nil, fmt.Errorf("lock %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			f.Close()
			s.opts.Observer.LockTimeout()
			holder := readLockInfo(lockPath)
			s.log.Warn().
				Str("doc", path).
				Int("holder_pid", holder.PID).
				Str("holder_session", holder.SessionID).
				Dur("waited", time.Since(start)).
				Msg("lock timeout")
			return nil, fmt.Errorf("%w: %s held by pid %d", ErrLockTimeout, path, holder.PID)
		case <-ticker.C:
		}
	}

	waited := time.Since(start)
	s.opts.Observer.LockWait(waited)

	l := &fileLock{
		f: f,
		info: LockInfo{
			PID:       os.Getpid(),
			SessionID: uuid.NewString(),
			Path:      path,
			LockedAt:  time.Now(),
		},
	}
	if err := l.writeInfo(); err != nil {
		l.release()
		return nil, err
	}
	s.log.Debug().Str("doc", path).Str("session", l.info.SessionID).Dur("waited", waited).Msg("lock acquired")
	return l, nil
}

func (l *fileLock) writeInfo() error {
	data, err := json.Marshal(l.info)
	if err != nil {
		return err
	}
	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := l.f.WriteAt(data, 0); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	return nil
}

// release unlocks and closes the lock file. The file itself is kept.
func (l *fileLock) release() {
	unlockFile(l.f)
	l.f.Close()
}

// readLockInfo reads the holder recorded in a lock file, if any
func readLockInfo(path string) LockInfo {
	var info LockInfo
	data, err := os.ReadFile(path)
	if err == nil {
		_ = json.Unmarshal(data, &info)
	}
	return info
}
