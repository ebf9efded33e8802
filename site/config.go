// Package site resolves the on-disk layout of a blog site.
// Every setting has a default that matches the conventional layout, so the blogpub.toml file at the site root is optional.
package site

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type (
	DeployConfig struct {
		Bucket  string `toml:"bucket"`
		Prefix  string `toml:"prefix"`
		Region  string `toml:"region"`
		Profile string `toml:"profile"`
		RoleArn string `toml:"role_arn"`
	}

	Config struct {
		Root           string       `toml:"-"`
		MarkdownDir    string       `toml:"markdown_dir"`
		PostsDir       string       `toml:"posts_dir"`
		Index          string       `toml:"index"`
		IndexTemplate  string       `toml:"index_template"`
		Manifest       string       `toml:"manifest"`
		Marker         string       `toml:"marker"`
		HighlightStyle string       `toml:"highlight_style"`
		Converter      string       `toml:"converter"`
		PandocPath     string       `toml:"pandoc_path"`
		Deploy         DeployConfig `toml:"deploy"`
	}
)

const (
	FileName = "blogpub.toml"

	DefaultMarker = "LINKS TO POSTS WILL GET GENERATED BELOW THIS LINE"

	ConverterPandoc   = "pandoc"
	ConverterGoldmark = "goldmark"
)

var (
	ErrInvalidConfig = errors.New("invalid site configuration")
)

func Default(root string) Config {
	return Config{
		Root:           root,
		MarkdownDir:    "markdown",
		PostsDir:       "posts",
		Index:          "index.html",
		IndexTemplate:  "index-template.html",
		Manifest:       "posts-info.json",
		Marker:         DefaultMarker,
		HighlightStyle: "my.theme",
		Converter:      ConverterPandoc,
		PandocPath:     "pandoc",
		Deploy: DeployConfig{
			Region: "us-east-1",
		},
	}
}

// Load reads blogpub.toml from root on top of the defaults.
// A missing file is not an error.
// Non-nil returned error wraps [ErrInvalidConfig].
func Load(root string) (cfg Config, err error) {
	root, err = filepath.Abs(root)
	if err != nil {
		return cfg, fmt.Errorf("%w: failed to resolve site root: %s", ErrInvalidConfig, err.Error())
	}

	cfg = Default(root)

	path := filepath.Join(root, FileName)

	if _, err = os.Stat(path); os.IsNotExist(err) {
		return cfg, cfg.Validate()
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("%w: failed to parse %q: %s", ErrInvalidConfig, path, err.Error())
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i := range undecoded {
			keys[i] = undecoded[i].String()
		}

		return cfg, fmt.Errorf("%w: unknown keys in %q: %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
	}

	return cfg, cfg.Validate()
}

// Non-nil returned error wraps [ErrInvalidConfig].
func (c Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"markdown_dir", c.MarkdownDir},
		{"posts_dir", c.PostsDir},
		{"index", c.Index},
		{"index_template", c.IndexTemplate},
		{"manifest", c.Manifest},
		{"marker", c.Marker},
	}

	for _, item := range required {
		if strings.TrimSpace(item.value) == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidConfig, item.name)
		}
	}

	if strings.Contains(c.Marker, "\n") {
		return fmt.Errorf("%w: marker must fit on a single line", ErrInvalidConfig)
	}

	switch c.Converter {
	case ConverterPandoc:
		if c.PandocPath == "" {
			return fmt.Errorf("%w: pandoc_path cannot be empty when the pandoc converter is selected", ErrInvalidConfig)
		}
	case ConverterGoldmark:
	default:
		return fmt.Errorf("%w: converter must be %q or %q, got %q", ErrInvalidConfig, ConverterPandoc, ConverterGoldmark, c.Converter)
	}

	return nil
}

// Path resolves rel against the site root unless it is already absolute.
func (c Config) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}

	return filepath.Clean(filepath.Join(c.Root, rel))
}

func (c Config) MarkdownPath() string {
	return c.Path(c.MarkdownDir)
}

func (c Config) PostsPath() string {
	return c.Path(c.PostsDir)
}

func (c Config) IndexPath() string {
	return c.Path(c.Index)
}

func (c Config) IndexTemplatePath() string {
	return c.Path(c.IndexTemplate)
}

func (c Config) ManifestPath() string {
	return c.Path(c.Manifest)
}

// PostsHref is the directory part of the links written into the index, relative to the index page.
func (c Config) PostsHref() string {
	rel, err := filepath.Rel(filepath.Dir(c.IndexPath()), c.PostsPath())
	if err != nil {
		return filepath.ToSlash(c.PostsDir)
	}

	return filepath.ToSlash(rel)
}
