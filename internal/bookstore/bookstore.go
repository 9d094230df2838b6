// Package bookstore is the durable store for raw book text. Downloads
// are expensive, so fetched text is written to disk once and reread
// from there ever after.
package bookstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/inkwell/bookchat/internal/bookkey"
)

// Store keeps one text file per book under a data directory, keyed by
// the canonical title filename.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the on-disk location for a title's raw text.
func (s *Store) Path(title string) string {
	return filepath.Join(s.dir, bookkey.Filename(title))
}

// Has reports whether the title's raw text is already on disk.
func (s *Store) Has(title string) bool {
	_, err := os.Stat(s.Path(title))
	return err == nil
}

// Read returns the stored raw text for a title.
func (s *Store) Read(title string) (string, error) {
	data, err := os.ReadFile(s.Path(title))
	if err != nil {
		return "", fmt.Errorf("reading stored text for %q: %w", title, err)
	}
	return string(data), nil
}

// Write persists the raw text for a title, replacing any previous copy.
func (s *Store) Write(title, text string) error {
	if err := os.WriteFile(s.Path(title), []byte(text), 0o644); err != nil {
		return fmt.Errorf("storing text for %q: %w", title, err)
	}
	return nil
}
