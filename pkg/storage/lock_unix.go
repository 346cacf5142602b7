//go:build unix

package storage

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// lockFile takes a non-blocking exclusive flock(2)
func lockFile(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return errLocked
	}
	return err
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

// writable asks the kernel whether this process may write path
func writable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}

// syncDir fsyncs a directory so a create or rename in it is durable
func syncDir(dir string) error {
	fd, err := unix.Open(dir, unix.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("open directory: %w", err)
	}
	defer unix.Close(fd)

	if err := unix.Fsync(fd); err != nil {
		return fmt.Errorf("fsync directory: %w", err)
	}
	return nil
}

// changeTime returns the inode change time of path
func changeTime(path string, fi os.FileInfo) time.Time {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return fi.ModTime()
	}
	return time.Unix(st.Ctim.Unix())
}
