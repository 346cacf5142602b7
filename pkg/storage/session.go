package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/nainya/annstore/pkg/document"
	"github.com/nainya/annstore/pkg/journal"
)

// Session is one open -> edit -> close cycle over a document. It is owned
// by a single caller.
type Session struct {
	store *Store
	path  string
	doc   *document.Document

	original   string
	modTime    time.Time
	changeTime time.Time
	mode       os.FileMode
	closed     bool
}

// Path returns the absolute annotation file path
func (s *Session) Path() string { return s.path }

// Document returns the document being edited
func (s *Session) Document() *document.Document { return s.doc }

// ModTime returns the file modification time read at open
func (s *Session) ModTime() time.Time { return s.modTime }

// ChangeTime returns the file status change time read at open
func (s *Session) ChangeTime() time.Time { return s.changeTime }

// Dirty reports whether the document no longer serializes to the file
// content read at open
func (s *Session) Dirty() bool {
	return s.doc.String() != s.original
}

// Discard ends the session without writing
func (s *Session) Discard() {
	if !s.closed {
		s.closed = true
		s.store.opts.Observer.DocumentClosed(false)
	}
}

// Close writes the document back if it changed. The new content is written
// to a temporary file, parsed again, and only then renamed over the
// original while holding the document's lock. On any failure the original
// file is left untouched and the session stays open, so a lock timeout can
// be retried.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}

	out := s.doc.String()
	if out == s.original {
		s.closed = true
		s.store.opts.Observer.DocumentClosed(false)
		return nil
	}
	if s.doc.ReadOnly() {
		return &document.ReadOnlyError{Name: s.path}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.store.opts.LockTimeout)
		defer cancel()
	}

	lock, err := s.store.acquire(ctx, s.path)
	if err != nil {
		return err
	}
	defer lock.release()

	if err := s.store.replace(s.path, out, s.mode, s.doc); err != nil {
		return err
	}

	s.original = out
	s.closed = true
	s.store.opts.Observer.DocumentClosed(true)
	s.store.log.Info().Str("doc", s.path).Int("bytes", len(out)).Msg("document written")
	return nil
}

// renameFile is swapped out by tests to simulate a failed replace
var renameFile = os.Rename

// replace performs the temp-write, self-check and rename (caller holds the
// lock). The previous content is journaled only once the rename succeeded.
func (s *Store) replace(path, content string, mode os.FileMode, doc *document.Document) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // Gone after a successful rename

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temporary file: %w", err)
	}

	if err := s.selfCheck(path, tmpPath, content, doc); err != nil {
		s.opts.Observer.IntegrityFailure()
		s.log.Error().Err(err).Str("doc", path).Msg("self-check failed, original kept")
		return err
	}

	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod temporary file: %w", err)
	}

	var prev []byte
	if s.opts.Journal != nil {
		prev, err = os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("read previous version: %w", err)
		}
	}

	if err := renameFile(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	// The new version has landed; a journal failure only loses history
	if s.opts.Journal != nil {
		rev, err := s.opts.Journal.Append(journal.OpReplaced, path, prev)
		if err != nil {
			s.log.Error().Err(err).Str("doc", path).Msg("failed to journal previous version")
		} else {
			s.log.Debug().Str("doc", path).Uint64("lsn", rev.LSN).Msg("previous version journaled")
		}
	}
	return syncDir(dir)
}

// selfCheck parses the written file again. It fails when reading it back
// degrades lines that were fine in memory or does not reproduce the content.
func (s *Store) selfCheck(path, tmpPath, content string, doc *document.Document) error {
	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return &IntegrityError{Path: path, Err: err}
	}
	if string(data) != content {
		return &IntegrityError{Path: path, Err: fmt.Errorf("short write: %d of %d bytes", len(data), len(content))}
	}

	opts := s.documentOptions(path)
	opts.Text, opts.HasText = string(doc.Text()), doc.HasText()
	opts.Logger = zerolog.Nop()
	reparsed, err := document.ParseString(string(data), opts)
	if err != nil {
		return &IntegrityError{Path: path, Err: err}
	}

	if n, m := len(reparsed.FailedLines()), len(doc.FailedLines()); n > m {
		return &IntegrityError{
			Path:        path,
			FailedLines: reparsed.FailedLines(),
			Err:         fmt.Errorf("%d lines no longer parse", n-m),
		}
	}
	if reparsed.String() != content {
		return &IntegrityError{Path: path, Err: fmt.Errorf("serialization is not stable")}
	}
	return nil
}
