// Package filestore persists cache entries as files in a directory.
//
// Each SetMulti writes a complete generation directory and then swaps the
// "current" symlink to it with a single rename. Readers resolve the link once
// and read every key from that generation, so they see either the whole old
// set or the whole new one, including from another process sharing the
// directory. A crash before the swap leaves the previous generation in place.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/couchcryptid/disaster-feed-service/internal/domain"
)

const (
	currentLink = "current"
	genPrefix   = "gen-"
	tmpSuffix   = ".tmp"

	// resolveAttempts bounds how often a read restarts when a concurrent
	// writer prunes the generation it resolved.
	resolveAttempts = 3
)

// Store reads and writes <dir>/current/<key>.json files.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// New creates the directory if needed and returns a Store rooted there.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("filestore: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// GetMulti returns the contents of every key's file from the current
// generation, or domain.ErrCacheMiss if any key is absent.
func (s *Store) GetMulti(_ context.Context, keys []string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for attempt := 1; ; attempt++ {
		gen, err := s.currentGeneration()
		if err != nil {
			return nil, err
		}
		if gen == "" {
			return nil, domain.ErrCacheMiss
		}

		out, err := s.readGeneration(gen, keys)
		if !errors.Is(err, domain.ErrCacheMiss) {
			return out, err
		}
		// A missing file is a real miss unless another process swapped and
		// pruned the generation underneath us.
		again, rerr := s.currentGeneration()
		if rerr != nil || again == gen || attempt == resolveAttempts {
			return nil, domain.ErrCacheMiss
		}
	}
}

// SetMulti writes a new generation holding entries plus any keys of the
// current generation they do not replace, then makes it current.
func (s *Store) SetMulti(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.currentGeneration()
	if err != nil {
		return err
	}

	genDir, err := os.MkdirTemp(s.dir, genPrefix+"*")
	if err != nil {
		return fmt.Errorf("create generation: %w", err)
	}
	gen := filepath.Base(genDir)
	swapped := false
	defer func() {
		if !swapped {
			os.RemoveAll(genDir) //nolint:errcheck // pruned on the next write
		}
	}()

	if err := s.carryOver(prev, genDir, entries); err != nil {
		return err
	}
	for k, v := range entries {
		if err := writeFile(genDir, k, v); err != nil {
			return err
		}
	}
	if err := s.swap(gen); err != nil {
		return err
	}
	swapped = true

	s.prune(gen, prev)
	return nil
}

// currentGeneration returns the generation the link points at, or "" when
// nothing has been written yet.
func (s *Store) currentGeneration() (string, error) {
	gen, err := os.Readlink(filepath.Join(s.dir, currentLink))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", currentLink, err)
	}
	return gen, nil
}

func (s *Store) readGeneration(gen string, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		b, err := os.ReadFile(filepath.Join(s.dir, gen, k+".json"))
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrCacheMiss
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", k, err)
		}
		out[k] = b
	}
	return out, nil
}

func (s *Store) carryOver(prev, genDir string, entries map[string][]byte) error {
	if prev == "" {
		return nil
	}
	files, err := os.ReadDir(filepath.Join(s.dir, prev))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("list generation %s: %w", prev, err)
	}
	for _, f := range files {
		key, ok := strings.CutSuffix(f.Name(), ".json")
		if !ok {
			continue
		}
		if _, replaced := entries[key]; replaced {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.dir, prev, f.Name()))
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		if err := writeFile(genDir, key, b); err != nil {
			return err
		}
	}
	return nil
}

// swap points the current link at gen. The new link is created under a
// temporary name and renamed over the old one.
func (s *Store) swap(gen string) error {
	tmpLink := filepath.Join(s.dir, currentLink+"."+gen+tmpSuffix)
	if err := os.Symlink(gen, tmpLink); err != nil {
		return fmt.Errorf("link %s: %w", gen, err)
	}
	if err := os.Rename(tmpLink, filepath.Join(s.dir, currentLink)); err != nil {
		os.Remove(tmpLink) //nolint:errcheck // best effort
		return fmt.Errorf("swap %s: %w", currentLink, err)
	}
	return nil
}

// prune removes generations other than gen and prev, and links left behind by
// an interrupted swap. prev is kept for readers in other processes that
// resolved the link just before the swap.
func (s *Store) prune(gen, prev string) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, f := range files {
		name := f.Name()
		switch {
		case strings.HasPrefix(name, genPrefix) && name != gen && name != prev:
			os.RemoveAll(filepath.Join(s.dir, name)) //nolint:errcheck // retried on the next write
		case strings.HasPrefix(name, currentLink+".") && strings.HasSuffix(name, tmpSuffix):
			os.Remove(filepath.Join(s.dir, name)) //nolint:errcheck // retried on the next write
		}
	}
}

func writeFile(dir, key string, data []byte) error {
	if err := os.WriteFile(filepath.Join(dir, key+".json"), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
