// Package manifest reads the ordered list of posts that makes up the index page.
//
// The canonical format is JSON:
//
//	{"posts": [{"id": "hello", "title": "Hello World"}]}
//
// YAML (.yaml, .yml) and TOML (.toml) files with the same shape are accepted as well.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"

	"github.com/kxue43/blogpub/jsonstream"
)

type (
	Post struct {
		ID    string `json:"id" yaml:"id" toml:"id"`
		Title string `json:"title" yaml:"title" toml:"title"`
	}

	Format byte
)

const (
	JSON Format = iota
	YAML
	TOML
)

var (
	ErrManifest = errors.New("invalid manifest")
)

func (f Format) String() string {
	switch f {
	case YAML:
		return "YAML"
	case TOML:
		return "TOML"
	default:
		return "JSON"
	}
}

func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	case ".toml":
		return TOML
	default:
		return JSON
	}
}

// Load reads the manifest at path, picking the format from the file extension.
// Non-nil returned error wraps [ErrManifest].
func Load(ctx context.Context, path string) ([]Post, error) {
	fd, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %q: %s", ErrManifest, path, err.Error())
	}

	defer func() { _ = fd.Close() }()

	posts, err := Decode(ctx, fd, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return posts, nil
}

// Decode reads the posts field of a manifest document.
// Non-nil returned error wraps [ErrManifest].
func Decode(ctx context.Context, r io.Reader, format Format) (posts []Post, err error) {
	switch format {
	case YAML:
		posts, err = decodeYAML(r)
	case TOML:
		posts, err = decodeTOML(r)
	default:
		posts, err = decodeJSON(ctx, r)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s manifest: %s", ErrManifest, format, err.Error())
	}

	if posts == nil {
		posts = []Post{}
	}

	return posts, nil
}

func decodeJSON(ctx context.Context, r io.Reader) (posts []Post, err error) {
	angler, err := jsonstream.NewAngler(r, ".posts")
	if err != nil {
		return nil, err
	}

	err = angler.Decode(ctx, &posts)

	return posts, err
}

func decodeYAML(r io.Reader) ([]Post, error) {
	var doc struct {
		Posts *[]Post `yaml:"posts"`
	}

	contents, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if err = yaml.Unmarshal(contents, &doc); err != nil {
		return nil, err
	}

	if doc.Posts == nil {
		return nil, errors.New(`missing "posts" field`)
	}

	return *doc.Posts, nil
}

func decodeTOML(r io.Reader) ([]Post, error) {
	var doc struct {
		Posts []Post `toml:"posts"`
	}

	md, err := toml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, err
	}

	if !md.IsDefined("posts") {
		return nil, errors.New(`missing "posts" field`)
	}

	return doc.Posts, nil
}
