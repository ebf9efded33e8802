// Package scaffold lays out a starter site that blogpub can publish into.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/kxue43/blogpub/site"
)

type (
	// Site holds the values substituted into the starter files.
	Site struct {
		Title          string
		Marker         string
		Converter      string
		HighlightStyle string
		Force          bool
	}

	WriteHook func(io.Writer) error
)

const (
	srcPrefix = "site"
	tmpltExt  = ".tmplt"
	indexSrc  = "index-template.html" + tmpltExt
)

var (
	//go:embed "all:site"
	siteFS embed.FS

	ErrExists = errors.New("file already exists")
)

func New(title string) Site {
	return Site{
		Title:          title,
		Marker:         site.DefaultMarker,
		Converter:      site.ConverterPandoc,
		HighlightStyle: "pygments",
	}
}

// WriteToFile creates dir/name and fills it through hook.
// Unless overwrite is set, an existing file is left alone and the returned error wraps [ErrExists].
func WriteToFile(dir, name string, overwrite bool, hook WriteHook) (err error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}

	fd, err := os.OpenFile(filepath.Clean(filepath.Join(dir, name)), flags, 0644) //nolint:gosec // site files are world readable
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrExists, name)
	} else if err != nil {
		return fmt.Errorf("failed to create %q file: %w", name, err)
	}

	err = hook(fd)
	if err != nil {
		_ = fd.Close()

		return fmt.Errorf("failed to write to %q: %w", name, err)
	}

	if err = fd.Close(); err != nil {
		return fmt.Errorf("failed to close %q after writing: %w", name, err)
	}

	return nil
}

// Write renders the starter site into root.
// The index is rendered from the same template as index-template.html so the two start out identical.
func (s Site) Write(root string) error {
	tmplt, srcFiles, err := s.prepare(root)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup

	semaphore := make(chan struct{}, 4)
	errs := make([]error, len(srcFiles)+1)

	render := func(i int, srcFile, destItem string) {
		defer wg.Done()

		semaphore <- struct{}{}
		defer func() { <-semaphore }()

		errs[i] = WriteToFile(root, destItem, s.Force, func(fd io.Writer) error {
			return tmplt.ExecuteTemplate(fd, path.Base(srcFile), s)
		})
	}

	for i, srcFile := range srcFiles {
		wg.Add(1)

		go render(i, srcFile, strings.TrimSuffix(strings.TrimPrefix(srcFile, srcPrefix+"/"), tmpltExt))
	}

	wg.Add(1)

	go render(len(srcFiles), indexSrc, "index.html")

	wg.Wait()

	if err = errors.Join(errs...); err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Join(root, "posts"), 0750); err != nil {
		return fmt.Errorf("failed to create the posts directory: %w", err)
	}

	return nil
}

func (s Site) prepare(root string) (*template.Template, []string, error) {
	var srcFiles []string

	err := fs.WalkDir(siteFS, srcPrefix, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			rel := strings.TrimPrefix(strings.TrimPrefix(p, srcPrefix), "/")

			if err = os.MkdirAll(filepath.Join(root, filepath.FromSlash(rel)), 0750); err != nil {
				return fmt.Errorf("failed to create directory %q in destination folder: %w", rel, err)
			}

			return nil
		}

		srcFiles = append(srcFiles, p)

		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk the starter site files: %w", err)
	}

	tmplt, err := template.New("entry").Delims("{%", "%}").ParseFS(siteFS, srcFiles...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse starter site files as templates: %w", err)
	}

	return tmplt, srcFiles, nil
}
