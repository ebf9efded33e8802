package index

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxue43/blogpub/convert"
	"github.com/kxue43/blogpub/manifest"
	"github.com/kxue43/blogpub/poststore"
	"github.com/kxue43/blogpub/publish"
)

type (
	// MockConverter stands in for pandoc by writing an empty page.
	MockConverter struct {
		converted []string
	}

	siteFixture struct {
		root      string
		store     *poststore.Store
		sync      *Synchronizer
		publisher *publish.Publisher
		converter *MockConverter
	}
)

const template = "<html>\n<body>\n\t<!-- " + marker + " -->\n</body>\n</html>\n"

func (c *MockConverter) Convert(_ context.Context, req convert.Request) error {
	c.converted = append(c.converted, filepath.Base(req.Source))

	return os.WriteFile(req.Output, []byte("<html></html>"), 0600)
}

func newSiteFixture(t *testing.T, posts map[string]string) *siteFixture {
	t.Helper()

	root := t.TempDir()

	err := os.Mkdir(filepath.Join(root, "markdown"), 0750)
	require.NoError(t, err, "should be able to create the post store")

	for id, contents := range posts {
		err = os.WriteFile(filepath.Join(root, "markdown", id+".md"), []byte(contents), 0600)
		require.NoError(t, err, "should be able to create markdown source %q", id)
	}

	for _, name := range []string{"index.html", "index-template.html"} {
		err = os.WriteFile(filepath.Join(root, name), []byte(template), 0600)
		require.NoError(t, err, "should be able to create %q", name)
	}

	logger := log.New(&bytes.Buffer{})

	f := siteFixture{root: root, converter: &MockConverter{}}

	f.store = poststore.New(filepath.Join(root, "markdown"))

	f.sync = NewSynchronizer(f.store, logger, Options{
		Path:      filepath.Join(root, "index.html"),
		Template:  filepath.Join(root, "index-template.html"),
		Marker:    marker,
		PostsHref: "posts",
	})

	f.publisher = publish.New(f.store, f.converter, f.sync, logger, publish.Options{OutputDir: filepath.Join(root, "posts")})

	return &f
}

func (f *siteFixture) index(t *testing.T) string {
	t.Helper()

	contents, err := os.ReadFile(filepath.Join(f.root, "index.html"))
	require.NoError(t, err, "should be able to read the index")

	return string(contents)
}

func TestInsertLink(t *testing.T) {
	f := newSiteFixture(t, nil)

	err := f.sync.InsertLink("hello", "Hello World")
	require.NoError(t, err)

	expected := "<html>\n<body>\n\t<!-- " + marker + " -->\n\t<a href='posts/hello.html'>Hello World</a>\n</body>\n</html>\n"

	assert.Equal(t, expected, f.index(t))

	err = f.sync.InsertLink("hello", "Hello World")
	require.NoError(t, err)

	assert.Equal(t, expected, f.index(t), "inserting the same link twice should be a no-op")
}

func TestInsertLinkMissingMarker(t *testing.T) {
	f := newSiteFixture(t, nil)

	err := os.WriteFile(filepath.Join(f.root, "index.html"), []byte("<html></html>\n"), 0600)
	require.NoError(t, err)

	err = f.sync.InsertLink("hello", "Hello World")
	assert.ErrorIs(t, err, ErrMarkerNotFound)

	assert.Equal(t, "<html></html>\n", f.index(t), "a malformed index should not be rewritten")
}

func TestPublishHelloScenario(t *testing.T) {
	f := newSiteFixture(t, map[string]string{"hello": "Hi there"})

	for range 2 {
		err := f.publisher.Publish(context.Background(), "hello", "Hello World")
		require.NoError(t, err, "publishing hello should succeed")

		_, err = os.Stat(filepath.Join(f.root, "posts", "hello.html"))
		require.NoError(t, err, "posts/hello.html should exist")

		contents, err := os.ReadFile(filepath.Join(f.root, "markdown", "hello.md"))
		require.NoError(t, err)

		assert.Equal(t, "Hi there", string(contents), "hello.md should be byte-identical after publishing")

		assert.Equal(t, 1, strings.Count(f.index(t), "<a href='posts/hello.html'>Hello World</a>"), "the index should link hello exactly once")
	}
}

func TestRebuildOrder(t *testing.T) {
	f := newSiteFixture(t, map[string]string{"a": "A body", "b": "B body", "c": "C body"})

	// Stale content that a rebuild must discard.
	err := f.sync.InsertLink("old", "Old")
	require.NoError(t, err)

	posts := []manifest.Post{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}, {ID: "c", Title: "C"}}

	err = f.sync.Rebuild(context.Background(), posts, f.publisher)
	require.NoError(t, err, "rebuilding from a valid manifest should succeed")

	assert.Equal(t, []string{"c.md", "b.md", "a.md"}, f.converter.converted, "posts should be processed in reverse manifest order")

	page := f.index(t)

	assert.NotContains(t, page, "Old", "the index should be reset from the template")

	a := strings.Index(page, ">A</a>")
	b := strings.Index(page, ">B</a>")
	c := strings.Index(page, ">C</a>")

	require.True(t, a > 0 && b > 0 && c > 0, "every post should be linked")
	assert.True(t, a < b && b < c, "links should appear in manifest order")

	templateBytes, err := os.ReadFile(filepath.Join(f.root, "index-template.html"))
	require.NoError(t, err)

	assert.Equal(t, template, string(templateBytes), "the template should never be modified")
}

func TestRebuildLinksEmptyTitles(t *testing.T) {
	f := newSiteFixture(t, map[string]string{"a": "A body", "b": "B body"})

	posts := []manifest.Post{{ID: "a", Title: "A"}, {ID: "b", Title: ""}}

	err := f.sync.Rebuild(context.Background(), posts, f.publisher)
	require.NoError(t, err)

	page := f.index(t)

	assert.Equal(t, 1, strings.Count(page, "<a href='posts/a.html'>A</a>"))
	assert.Equal(t, 1, strings.Count(page, "<a href='posts/b.html'></a>"), "a manifest entry with an empty title should still be linked")
	assert.Equal(t, []string{"b.md", "a.md"}, f.converter.converted)
}

func TestRebuildAbortsOnInvalidEntry(t *testing.T) {
	f := newSiteFixture(t, map[string]string{"a": "A body", "c": "C body"})

	posts := []manifest.Post{{ID: "a", Title: "A"}, {ID: "ghost", Title: "Ghost"}, {ID: "c", Title: "C"}}

	err := f.sync.Rebuild(context.Background(), posts, f.publisher)
	assert.ErrorIs(t, err, ErrManifestEntryInvalid)
	assert.ErrorContains(t, err, "ghost")

	assert.Equal(t, []string{"c.md"}, f.converter.converted, "processing should stop at the invalid entry")

	_, err = os.Stat(filepath.Join(f.root, "posts", "ghost.html"))
	assert.True(t, os.IsNotExist(err), "nothing should be produced for ghost")

	_, err = os.Stat(filepath.Join(f.root, "posts", "a.html"))
	assert.True(t, os.IsNotExist(err), "entries after ghost should not be processed")

	assert.NotContains(t, f.index(t), "Ghost")
}

func TestRebuildHonoursCancellation(t *testing.T) {
	f := newSiteFixture(t, map[string]string{"a": "A body"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.sync.Rebuild(ctx, []manifest.Post{{ID: "a", Title: "A"}}, f.publisher)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, f.converter.converted)
}
