// Package poststore addresses the directory of markdown sources, one <id>.md file per post.
package poststore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type (
	// Lister returns the names of the entries in dir.
	Lister func(dir string) ([]string, error)

	Store struct {
		list Lister
		dir  string
	}
)

const Ext = ".md"

var (
	ErrInvalidIdentifier = errors.New("invalid post id")
)

func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(entries))
	for i := range entries {
		names[i] = entries[i].Name()
	}

	return names, nil
}

func New(dir string) *Store {
	return NewWithLister(dir, ListDir)
}

func NewWithLister(dir string, list Lister) *Store {
	return &Store{dir: filepath.Clean(dir), list: list}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) SourcePath(id string) string {
	return filepath.Join(s.dir, id+Ext)
}

// IsValid reports whether <id>.md is an entry of the store directory at call time.
// A directory that cannot be listed holds no valid ids.
func (s *Store) IsValid(id string) bool {
	names, err := s.list(s.dir)
	if err != nil {
		return false
	}

	target := id + Ext

	for _, name := range names {
		if strings.TrimSpace(name) == target {
			return true
		}
	}

	return false
}

// Non-nil returned error wraps [ErrInvalidIdentifier].
func (s *Store) Validate(id string) error {
	if !s.IsValid(id) {
		return fmt.Errorf("%w: %q has no %s file in %q", ErrInvalidIdentifier, id, Ext, s.dir)
	}

	return nil
}

// IDs lists the ids of all posts in the store, sorted.
func (s *Store) IDs() ([]string, error) {
	names, err := s.list(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list post store %q: %w", s.dir, err)
	}

	ids := make([]string, 0, len(names))

	for _, name := range names {
		if id, ok := strings.CutSuffix(name, Ext); ok && id != "" {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	return ids, nil
}
