package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/kxue43/blogpub/manifest"
)

type (
	Validator interface {
		IsValid(id string) bool
	}

	Publisher interface {
		Publish(ctx context.Context, id, title string) error
	}

	Options struct {
		Path      string
		Template  string
		Marker    string
		PostsHref string
	}

	Synchronizer struct {
		validator Validator
		logger    logger
		opts      Options
	}

	logger interface {
		Debug(msg any, keyvals ...any)
		Info(msg any, keyvals ...any)
	}
)

var (
	ErrManifestEntryInvalid = errors.New("invalid manifest entry")
)

func NewSynchronizer(validator Validator, logger logger, opts Options) *Synchronizer {
	return &Synchronizer{validator: validator, logger: logger, opts: opts}
}

// InsertLink links the post from the index unless the exact link is already there.
// Non-nil returned error wraps [ErrMarkerNotFound] when the index has no marker line.
func (s *Synchronizer) InsertLink(id, title string) error {
	info, err := os.Stat(s.opts.Path)
	if err != nil {
		return fmt.Errorf("failed to locate index %q: %w", s.opts.Path, err)
	}

	contents, err := os.ReadFile(filepath.Clean(s.opts.Path))
	if err != nil {
		return fmt.Errorf("failed to read index %q: %w", s.opts.Path, err)
	}

	doc := Parse(contents, s.opts.Marker)

	link := Link(s.opts.PostsHref, id, title)

	if doc.Contains(link) {
		s.logger.Debug("index already links the post", "id", id)

		return nil
	}

	if err = doc.InsertAfterMarker("\t" + link); err != nil {
		return fmt.Errorf("%w: index %q is malformed", err, s.opts.Path)
	}

	if err = os.WriteFile(s.opts.Path, doc.Bytes(), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write index %q: %w", s.opts.Path, err)
	}

	s.logger.Info("linked post from index", "id", id, "title", title)

	return nil
}

// Reset replaces the index with a fresh copy of the template.
func (s *Synchronizer) Reset() (err error) {
	src, err := os.Open(filepath.Clean(s.opts.Template))
	if err != nil {
		return fmt.Errorf("failed to open index template: %w", err)
	}

	defer func() { _ = src.Close() }()

	if err = os.Remove(s.opts.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove index %q: %w", s.opts.Path, err)
	}

	dest, err := os.OpenFile(filepath.Clean(s.opts.Path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create index %q: %w", s.opts.Path, err)
	}

	defer func() {
		if cerr := dest.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close index %q: %w", s.opts.Path, cerr)
		}
	}()

	if _, err = io.Copy(dest, src); err != nil {
		return fmt.Errorf("failed to copy index template into %q: %w", s.opts.Path, err)
	}

	return nil
}

// Rebuild resets the index from its template, then renders and links every post, last manifest entry first.
// Each insertion lands right below the marker, so the page lists the posts in manifest order.
// Every entry is linked, including one whose title is empty.
// The first invalid entry aborts the run.
// Non-nil returned error wraps [ErrManifestEntryInvalid] for an invalid entry.
func (s *Synchronizer) Rebuild(ctx context.Context, posts []manifest.Post, pub Publisher) error {
	if err := s.Reset(); err != nil {
		return err
	}

	for _, post := range slices.Backward(posts) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rebuild interrupted before %q: %w", post.ID, err)
		}

		if !s.validator.IsValid(post.ID) {
			return fmt.Errorf("%w: %q is not a valid post id", ErrManifestEntryInvalid, post.ID)
		}

		if err := pub.Publish(ctx, post.ID, ""); err != nil {
			return fmt.Errorf("failed to publish %q: %w", post.ID, err)
		}

		if err := s.InsertLink(post.ID, post.Title); err != nil {
			return err
		}
	}

	s.logger.Info("rebuilt index", "posts", len(posts))

	return nil
}
