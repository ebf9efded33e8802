package manifest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	expected := []Post{
		{ID: "a", Title: "A"},
		{ID: "b", Title: "B"},
		{ID: "c", Title: "C"},
	}

	var tests = []struct {
		format   Format
		contents string
	}{
		{
			format: JSON,
			contents: `{
				"posts": [
					{"id": "a", "title": "A"},
					{"id": "b", "title": "B"},
					{"id": "c", "title": "C"}
				]
			}`,
		},
		{
			format: YAML,
			contents: `
posts:
  - id: a
    title: A
  - id: b
    title: B
  - id: c
    title: C
`,
		},
		{
			format: TOML,
			contents: `
[[posts]]
id = "a"
title = "A"

[[posts]]
id = "b"
title = "B"

[[posts]]
id = "c"
title = "C"
`,
		},
	}

	for _, test := range tests {
		t.Run(test.format.String(), func(t *testing.T) {
			posts, err := Decode(context.Background(), strings.NewReader(test.contents), test.format)
			require.NoError(t, err, "a well-formed manifest should decode")

			assert.Equal(t, expected, posts, "manifest order should be preserved")
		})
	}
}

func TestDecodeEmptyAndMissing(t *testing.T) {
	posts, err := Decode(context.Background(), strings.NewReader(`{"posts": []}`), JSON)
	require.NoError(t, err)
	assert.Empty(t, posts)

	for _, test := range []struct {
		format   Format
		contents string
	}{
		{format: JSON, contents: `{"entries": []}`},
		{format: YAML, contents: "entries: []\n"},
		{format: TOML, contents: "entries = []\n"},
		{format: JSON, contents: `{"posts": [`},
	} {
		_, err = Decode(context.Background(), strings.NewReader(test.contents), test.format)
		assert.ErrorIs(t, err, ErrManifest, "%s manifest %q should be rejected", test.format, test.contents)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "posts-info.yml")

	err := os.WriteFile(path, []byte("posts:\n  - id: hello\n    title: Hello World\n"), 0600)
	require.NoError(t, err, "should be able to write manifest file")

	posts, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []Post{{ID: "hello", Title: "Hello World"}}, posts)

	_, err = Load(context.Background(), filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrManifest)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, JSON, FormatOf("posts-info.json"))
	assert.Equal(t, YAML, FormatOf("posts.YAML"))
	assert.Equal(t, YAML, FormatOf("posts.yml"))
	assert.Equal(t, TOML, FormatOf("posts.toml"))
	assert.Equal(t, JSON, FormatOf("posts"))
}
