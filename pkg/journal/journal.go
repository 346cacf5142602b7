package journal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultMaxFileSize is the size at which a journal file is rotated (64MB)
	DefaultMaxFileSize = 64 << 20

	// DefaultMaxFiles is the number of journal files kept after rotation
	DefaultMaxFiles = 4
)

// Journal is an append-only log of file revisions spread over numbered
// files ("<Path>.000", "<Path>.001", ...). It is safe for concurrent use.
type Journal struct {
	// Path is the base path for journal files (e.g., "/data/annstore.journal")
	Path string

	// MaxFileSize and MaxFiles bound disk use; zero means the defaults
	MaxFileSize int64
	MaxFiles    int

	mu        sync.Mutex
	fd        *os.File
	lsn       uint64
	fileSize  int64
	fileIndex int
	closed    bool
}

// Open opens the newest journal file for appending, creating the first one
// if none exist
func (j *Journal) Open() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(j.Path), 0o755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	files, err := j.findFiles()
	if err != nil {
		return err
	}

	if len(files) > 0 {
		latest := files[len(files)-1]
		fd, err := os.OpenFile(latest, os.O_RDWR|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		stat, err := fd.Stat()
		if err != nil {
			fd.Close()
			return fmt.Errorf("stat journal: %w", err)
		}
		j.fd = fd
		j.fileSize = stat.Size()
		j.fileIndex = j.indexOf(latest)

		revs, err := readAll(files)
		if err != nil {
			fd.Close()
			return err
		}
		j.lsn = 0
		for _, r := range revs {
			if r.LSN > j.lsn {
				j.lsn = r.LSN
			}
		}
	} else {
		fd, err := os.OpenFile(j.filePath(0), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("create journal: %w", err)
		}
		j.fd = fd
		j.fileSize = 0
		j.fileIndex = 0
		j.lsn = 0
	}

	j.closed = false
	return nil
}

// Append records content for path and syncs it to disk before returning
func (j *Journal) Append(op Op, path string, content []byte) (*Revision, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.fd == nil {
		return nil, ErrClosed
	}

	rev := &Revision{
		LSN:       j.lsn + 1,
		Op:        op,
		Path:      path,
		Content:   content,
		Timestamp: time.Now(),
	}
	data, err := rev.Encode()
	if err != nil {
		return nil, err
	}

	if j.fileSize > 0 && j.fileSize+int64(len(data)) > j.maxFileSize() {
		if err := j.rotateNoLock(); err != nil {
			return nil, err
		}
	}

	n, err := j.fd.Write(data)
	j.fileSize += int64(n)
	if err != nil {
		return nil, fmt.Errorf("append revision: %w", err)
	}
	if err := j.fd.Sync(); err != nil {
		return nil, fmt.Errorf("sync journal: %w", err)
	}

	j.lsn = rev.LSN
	return rev, nil
}

// LastLSN returns the sequence number of the newest revision
func (j *Journal) LastLSN() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lsn
}

// Close closes the journal
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.fd == nil {
		j.closed = true
		return nil
	}
	err := j.fd.Close()
	j.closed = true
	return err
}

// History returns every revision recorded for path, oldest first
func (j *Journal) History(path string) ([]*Revision, error) {
	revs, err := j.all()
	if err != nil {
		return nil, err
	}
	var out []*Revision
	for _, r := range revs {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out, nil
}

// Revision returns the revision with the given sequence number
func (j *Journal) Revision(lsn uint64) (*Revision, error) {
	revs, err := j.all()
	if err != nil {
		return nil, err
	}
	for _, r := range revs {
		if r.LSN == lsn {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrNotFound, lsn)
}

func (j *Journal) all() ([]*Revision, error) {
	j.mu.Lock()
	files, err := j.findFiles()
	j.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return readAll(files)
}

func (j *Journal) maxFileSize() int64 {
	if j.MaxFileSize > 0 {
		return j.MaxFileSize
	}
	return DefaultMaxFileSize
}

func (j *Journal) maxFiles() int {
	if j.MaxFiles > 0 {
		return j.MaxFiles
	}
	return DefaultMaxFiles
}

// rotateNoLock starts the next journal file (caller must hold mu)
func (j *Journal) rotateNoLock() error {
	if err := j.fd.Sync(); err != nil {
		return err
	}
	if err := j.fd.Close(); err != nil {
		return err
	}

	j.fileIndex++
	fd, err := os.OpenFile(j.filePath(j.fileIndex), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("rotate journal: %w", err)
	}
	j.fd = fd
	j.fileSize = 0

	return j.pruneNoLock()
}

// pruneNoLock removes the oldest files beyond MaxFiles (caller must hold mu)
func (j *Journal) pruneNoLock() error {
	files, err := j.findFiles()
	if err != nil {
		return err
	}
	if len(files) > j.maxFiles() {
		for _, f := range files[:len(files)-j.maxFiles()] {
			os.Remove(f) // Ignore errors
		}
	}
	return nil
}

func (j *Journal) baseName() string {
	return filepath.Base(j.Path)
}

func (j *Journal) filePath(index int) string {
	return filepath.Join(filepath.Dir(j.Path), fmt.Sprintf("%s.%03d", j.baseName(), index))
}

// indexOf returns the file index of a journal file name, or -1
func (j *Journal) indexOf(name string) int {
	var index int
	if _, err := fmt.Sscanf(filepath.Base(name), j.baseName()+".%d", &index); err != nil {
		return -1
	}
	return index
}

// findFiles returns the journal files sorted by index
func (j *Journal) findFiles() ([]string, error) {
	dir := filepath.Dir(j.Path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && j.indexOf(e.Name()) >= 0 {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Slice(files, func(a, b int) bool {
		return j.indexOf(files[a]) < j.indexOf(files[b])
	})
	return files, nil
}

// readAll reads every intact revision from files in order
func readAll(files []string) ([]*Revision, error) {
	var revs []*Revision
	for _, f := range files {
		r, err := openReader(f)
		if err != nil {
			return nil, err
		}
		for {
			rev, err := r.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				r.Close()
				return nil, err
			}
			revs = append(revs, rev)
		}
		r.Close()
	}
	return revs, nil
}
