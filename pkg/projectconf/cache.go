package projectconf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Cache holds the configuration of each collection directory. A directory
// without its own FileName uses the nearest one in a parent directory, or
// an empty configuration when there is none up to the root.
//
// An entry is reloaded when the modification time of its file changes.
// Watch additionally drops entries as soon as a configuration file is
// written, created or removed in any directory their lookup went through.
type Cache struct {
	root string
	log  zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	watcher *fsnotify.Watcher
	watched map[string]bool
}

type entry struct {
	conf    *Config
	path    string // "" when no file was found
	modTime time.Time
}

// NewCache creates a cache. root bounds the search for configuration files
// in parent directories; empty searches up to the filesystem root.
func NewCache(root string, logger zerolog.Logger) *Cache {
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	return &Cache{
		root:    root,
		log:     logger.With().Str("component", "projectconf").Logger(),
		entries: make(map[string]*entry),
		watched: make(map[string]bool),
	}
}

// Get returns the configuration for documents in dir
func (c *Cache) Get(dir string) (*Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("projectconf: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[dir]; ok && c.fresh(e) {
		return e.conf, nil
	}

	path, err := c.find(dir)
	if err != nil {
		return nil, err
	}
	e := &entry{conf: Empty()}
	if path != "" {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("projectconf: %w", err)
		}
		conf, err := Load(path)
		if err != nil {
			return nil, err
		}
		e = &entry{conf: conf, path: path, modTime: fi.ModTime()}
		c.log.Debug().Str("dir", dir).Str("path", path).Msg("loaded type configuration")
	} else {
		c.log.Warn().Str("dir", dir).Msg("no type configuration found, using empty one")
	}
	c.entries[dir] = e
	c.watchNoLock(dir, path)
	return e.conf, nil
}

// Invalidate drops the cached configuration of dir
func (c *Cache) Invalidate(dir string) {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	c.mu.Lock()
	delete(c.entries, dir)
	c.mu.Unlock()
}

// Len returns the number of cached directories
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) fresh(e *entry) bool {
	if e.path == "" {
		// A watcher notices new files; without one we have to look again
		return c.watcher != nil
	}
	fi, err := os.Stat(e.path)
	return err == nil && fi.ModTime().Equal(e.modTime)
}

// find returns the nearest configuration file for dir, or ""
func (c *Cache) find(dir string) (string, error) {
	for d := dir; ; {
		path := filepath.Join(d, FileName)
		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("projectconf: %w", err)
		}
		if d == c.root {
			return "", nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", nil
		}
		d = parent
	}
}

// Watch drops cache entries when configuration files change. It blocks
// until ctx is done.
func (c *Cache) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("projectconf: creating watcher: %w", err)
	}

	c.mu.Lock()
	c.watcher = w
	for dir, e := range c.entries {
		c.watchNoLock(dir, e.path)
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.watcher = nil
		c.watched = make(map[string]bool)
		c.mu.Unlock()
		w.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			c.handleEvent(ev)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.log.Warn().Err(err).Msg("configuration watcher error")
		}
	}
}

func (c *Cache) handleEvent(ev fsnotify.Event) {
	if filepath.Base(ev.Name) != FileName {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}

	// A new or removed file can change the lookup result of any
	// directory below it, so drop everything under its directory
	base := filepath.Dir(ev.Name)
	c.mu.Lock()
	defer c.mu.Unlock()
	for dir := range c.entries {
		if dir == base || isWithin(base, dir) {
			delete(c.entries, dir)
		}
	}
	c.log.Info().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("type configuration changed")
}

// watchNoLock watches every directory the lookup for dir passed through,
// from dir up to the one holding its configuration file (or the root when
// none was found), when a watcher is running. A file created anywhere on
// that chain then drops the entry.
func (c *Cache) watchNoLock(dir, path string) {
	if c.watcher == nil {
		return
	}
	stop := c.root
	if path != "" {
		stop = filepath.Dir(path)
	}
	for d := dir; ; {
		if !c.watched[d] {
			if err := c.watcher.Add(d); err != nil {
				c.log.Warn().Err(err).Str("dir", d).Msg("cannot watch directory")
			} else {
				c.watched[d] = true
			}
		}
		if d == stop {
			return
		}
		parent := filepath.Dir(d)
		if parent == d {
			return
		}
		d = parent
	}
}

func isWithin(parent, dir string) bool {
	rel, err := filepath.Rel(parent, dir)
	return err == nil && rel != "." && rel != ".." &&
		!strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
