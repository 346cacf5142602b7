// Package storage opens annotation files into editing sessions and writes
// them back atomically under a cross-process advisory lock.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/nainya/annstore/pkg/document"
	"github.com/nainya/annstore/pkg/journal"
)

const (
	// AnnSuffix is the extension of a joined annotation file
	AnnSuffix = ".ann"

	// TextSuffix is the extension of the document text next to it
	TextSuffix = ".txt"

	// DefaultLockTimeout bounds lock acquisition when the caller's context
	// carries no deadline
	DefaultLockTimeout = 10 * time.Second

	defaultPollInterval = 50 * time.Millisecond
)

// Options configures a Store
type Options struct {
	// LockDir holds the lock files; defaults to <tmp>/annstore-locks
	LockDir string

	// LockTimeout applies when the context given to Close has no deadline
	LockTimeout  time.Duration
	PollInterval time.Duration

	Compat2013          bool
	CompatRelationTypes []string

	// Journal, when set, receives the previous content of every file
	// before it is replaced
	Journal *journal.Journal

	Observer Observer
	Logger   zerolog.Logger
}

// Store opens annotation files. It holds no per-document state and is safe
// for concurrent use; each Session is not.
type Store struct {
	opts Options
	log  zerolog.Logger
}

// New creates a store, creating the lock directory if needed
func New(opts Options) (*Store, error) {
	if opts.LockDir == "" {
		opts.LockDir = filepath.Join(os.TempDir(), "annstore-locks")
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if err := os.MkdirAll(opts.LockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	return &Store{
		opts: opts,
		log:  opts.Logger.With().Str("component", "storage").Logger(),
	}, nil
}

// Journal returns the revision journal, or nil
func (s *Store) Journal() *journal.Journal {
	return s.opts.Journal
}

// Resolve returns the absolute annotation file path for a document path.
// An existing file is used as given; otherwise the joined suffix is
// appended unless already present.
func Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if fi, err := os.Stat(abs); err == nil && fi.Mode().IsRegular() {
		return abs, nil
	}
	if strings.HasSuffix(abs, AnnSuffix) {
		return abs, nil
	}
	return abs + AnnSuffix, nil
}

// TextPath returns the path of the document text for an annotation file
func TextPath(annPath string) string {
	return strings.TrimSuffix(annPath, filepath.Ext(annPath)) + TextSuffix
}

// Open reads and parses a document, creating an empty annotation file when
// none exists. The document is read-only when the file is not writable.
func (s *Store) Open(path string) (*Session, error) {
	annPath, err := Resolve(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(annPath); errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(annPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create %s: %w", annPath, err)
		}
		if f != nil {
			f.Close()
			if err := syncDir(filepath.Dir(annPath)); err != nil {
				return nil, err
			}
			s.log.Info().Str("doc", annPath).Msg("created empty annotation file")
		}
	}

	data, err := os.ReadFile(annPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", annPath, err)
	}
	fi, err := os.Stat(annPath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", annPath, err)
	}

	opts := s.documentOptions(annPath)
	opts.ReadOnly = !writable(annPath)

	text, hasText, err := readText(TextPath(annPath))
	if err != nil {
		return nil, err
	}
	opts.Text, opts.HasText = text, hasText

	doc, err := document.ParseString(string(data), opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", annPath, err)
	}

	s.opts.Observer.DocumentOpened(doc.ReadOnly(), len(doc.FailedLines()))
	s.log.Debug().
		Str("doc", annPath).
		Int("lines", doc.Len()).
		Int("failed", len(doc.FailedLines())).
		Bool("read_only", doc.ReadOnly()).
		Msg("document opened")

	return &Session{
		store:      s,
		path:       annPath,
		doc:        doc,
		original:   string(data),
		modTime:    fi.ModTime(),
		changeTime: changeTime(annPath, fi),
		mode:       fi.Mode().Perm(),
	}, nil
}

func (s *Store) documentOptions(annPath string) document.Options {
	return document.Options{
		Name:                annPath,
		Compat2013:          s.opts.Compat2013,
		CompatRelationTypes: s.opts.CompatRelationTypes,
		Logger:              s.opts.Logger,
	}
}

// readText loads the document text if present
func readText(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", false, fmt.Errorf("%s: %w", path, document.ErrEncoding)
	}
	return string(data), true, nil
}
