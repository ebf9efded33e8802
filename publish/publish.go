// Package publish turns one markdown post into its HTML page.
//
// The converter only reads from disk, so the wrapper text is written into the markdown source for the duration of the conversion.
// The original bytes are put back on every exit path before [Publisher.Publish] returns.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kxue43/blogpub/convert"
)

type (
	Linker interface {
		InsertLink(id, title string) error
	}

	Store interface {
		SourcePath(id string) string
	}

	Options struct {
		OutputDir      string
		HighlightStyle string
	}

	Publisher struct {
		store     Store
		converter convert.Converter
		linker    Linker
		logger    logger
		opts      Options
	}

	logger interface {
		Debug(msg any, keyvals ...any)
		Info(msg any, keyvals ...any)
		Warn(msg any, keyvals ...any)
	}
)

const (
	BackLink   = "<center align='center'><a href='../index.html'>Back</a></center>\n"
	StyleBlock = "```{=html}\n<style>\nbody { min-width: 50% !important; }\n</style>\n```\n"
)

var (
	ErrMissingSource = errors.New("missing markdown source")
	ErrRestore       = errors.New("failed to restore markdown source")
)

func New(store Store, converter convert.Converter, linker Linker, logger logger, opts Options) *Publisher {
	return &Publisher{store: store, converter: converter, linker: linker, logger: logger, opts: opts}
}

// Decorate prefixes the back link and then the style block to original.
func Decorate(original []byte) []byte {
	decorated := make([]byte, 0, len(BackLink)+len(StyleBlock)+len(original))
	decorated = append(decorated, BackLink...)
	decorated = append(decorated, StyleBlock...)

	return append(decorated, original...)
}

func (p *Publisher) OutputPath(id string) string {
	return filepath.Join(p.opts.OutputDir, id+".html")
}

// Publish renders the post and, when title is not empty, links it from the index.
// Converter failures are logged and otherwise ignored.
// Non-nil returned error wraps [ErrMissingSource], [ErrRestore] or the context error, or comes from the Linker.
func (p *Publisher) Publish(ctx context.Context, id, title string) error {
	source := p.store.SourcePath(id)

	err := withDecorated(source, func() {
		p.render(ctx, id, source)
	})
	if err != nil {
		return err
	}

	// A cancelled conversion leaves no page worth linking.
	if err = ctx.Err(); err != nil {
		return fmt.Errorf("publishing %q interrupted: %w", id, err)
	}

	if title == "" {
		p.logger.Debug("no title given, index left untouched", "id", id)

		return nil
	}

	return p.linker.InsertLink(id, title)
}

func (p *Publisher) render(ctx context.Context, id, source string) {
	if err := os.MkdirAll(p.opts.OutputDir, 0750); err != nil {
		p.logger.Warn("failed to create output directory", "dir", p.opts.OutputDir, "err", err)
	}

	req := convert.Request{
		Source:         source,
		Output:         p.OutputPath(id),
		Standalone:     true,
		HighlightStyle: p.opts.HighlightStyle,
	}

	if err := p.converter.Convert(ctx, req); err != nil {
		p.logger.Warn("conversion failed, continuing", "id", id, "err", err)

		return
	}

	p.logger.Info("rendered post", "id", id, "output", req.Output)
}

// withDecorated writes the decorated form of the file at path, runs fn, and restores the original bytes and permissions.
// Restoration happens even when fn panics.
func withDecorated(path string, fn func()) (err error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %q does not exist", ErrMissingSource, path)
	} else if err != nil {
		return fmt.Errorf("%w: failed to stat %q: %s", ErrMissingSource, path, err.Error())
	}

	original, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("%w: failed to read %q: %s", ErrMissingSource, path, err.Error())
	}

	perm := info.Mode().Perm()

	defer func() {
		if rerr := os.WriteFile(path, original, perm); rerr != nil {
			err = errors.Join(err, fmt.Errorf("%w: %q: %s", ErrRestore, path, rerr.Error()))
		}
	}()

	if err = os.WriteFile(path, Decorate(original), perm); err != nil {
		return fmt.Errorf("failed to decorate %q: %w", path, err)
	}

	fn()

	return nil
}
