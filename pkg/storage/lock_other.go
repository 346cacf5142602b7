//go:build !unix

package storage

import (
	"errors"
	"os"
	"time"
)

// Without flock(2) the lock is a sidecar created exclusively next to the
// lock file and removed on release.

func lockFile(f *os.File) error {
	held, err := os.OpenFile(f.Name()+".held", os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return errLocked
	}
	if err != nil {
		return err
	}
	return held.Close()
}

func unlockFile(f *os.File) error {
	return os.Remove(f.Name() + ".held")
}

func writable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.Mode().Perm()&0o200 != 0
}

func syncDir(string) error { return nil }

func changeTime(_ string, fi os.FileInfo) time.Time {
	return fi.ModTime()
}
