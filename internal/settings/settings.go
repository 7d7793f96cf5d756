// Package settings persists user preferences (grouping options per view and
// pinned shortcuts) in a YAML file and reloads it when edited externally.
package settings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/starford/notebase/internal/events"
	"github.com/starford/notebase/internal/grouping"
)

// document is the on-disk layout.
type document struct {
	Groups map[string]grouping.Options `yaml:"groups,omitempty"`
	Pins   []string                    `yaml:"pins,omitempty"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithPublisher sets where SettingsReloaded is published after an external
// edit was picked up.
func WithPublisher(p events.Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

// Store is a YAML-backed preferences store. It is safe for concurrent use.
type Store struct {
	path      string
	logger    *slog.Logger
	publisher events.Publisher

	mu   sync.RWMutex
	doc  document
	last []byte // bytes most recently read or written
}

// Open loads the settings file at path. A missing file yields empty
// settings; the file is created on the first write.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the settings file path.
func (s *Store) Path() string { return s.path }

// GroupOptions returns the normalized grouping options of a view kind.
func (s *Store) GroupOptions(kind string) grouping.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Groups[kind].Normalize()
}

// SetGroupOptions stores the grouping options of a view kind.
func (s *Store) SetGroupOptions(_ context.Context, kind string, opts grouping.Options) error {
	opts = opts.Normalize()
	opts.Override = ""
	return s.mutate(func(d *document) bool {
		if d.Groups == nil {
			d.Groups = make(map[string]grouping.Options)
		}
		if d.Groups[kind] == opts {
			return false
		}
		d.Groups[kind] = opts
		return true
	})
}

// Pin adds id to the shortcuts.
func (s *Store) Pin(_ context.Context, id string) error {
	return s.mutate(func(d *document) bool {
		if slices.Contains(d.Pins, id) {
			return false
		}
		d.Pins = append(d.Pins, id)
		return true
	})
}

// Unpin removes id from the shortcuts. Unknown ids are ignored.
func (s *Store) Unpin(_ context.Context, id string) error {
	return s.mutate(func(d *document) bool {
		n := len(d.Pins)
		d.Pins = slices.DeleteFunc(d.Pins, func(p string) bool { return p == id })
		return len(d.Pins) != n
	})
}

// Pins returns the pinned ids in pin order.
func (s *Store) Pins() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.doc.Pins)
}

// Pinned reports whether id is pinned.
func (s *Store) Pinned(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.doc.Pins, id)
}

func (s *Store) mutate(fn func(*document) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := clone(s.doc)
	if !fn(&next) {
		return nil
	}
	data, err := yaml.Marshal(next)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := writeFile(s.path, data); err != nil {
		return fmt.Errorf("settings: write %s: %w", s.path, err)
	}
	s.doc = next
	s.last = data
	return nil
}

// reload rereads the file. It reports whether the content differed from
// what the store last saw.
func (s *Store) reload() (bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		data = nil
	} else if err != nil {
		return false, fmt.Errorf("settings: read %s: %w", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && bytes.Equal(data, s.last) {
		return false, nil
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("settings: parse %s: %w", s.path, err)
	}
	s.doc = doc
	s.last = data
	if s.last == nil {
		s.last = []byte{}
	}
	return true, nil
}

func clone(d document) document {
	out := document{Pins: slices.Clone(d.Pins)}
	if d.Groups != nil {
		out.Groups = make(map[string]grouping.Options, len(d.Groups))
		for k, v := range d.Groups {
			out.Groups[k] = v
		}
	}
	return out
}

// writeFile replaces path atomically through a temp file in the same
// directory.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
