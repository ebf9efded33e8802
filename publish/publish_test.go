package publish

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kxue43/blogpub/convert"
	"github.com/kxue43/blogpub/poststore"
)

type (
	MockConverter struct {
		err     error
		cancel  context.CancelFunc
		panics  bool
		seen    []byte
		request convert.Request
		calls   int
	}

	MockLinker struct {
		links [][2]string
	}
)

func (c *MockConverter) Convert(_ context.Context, req convert.Request) error {
	c.calls++
	c.request = req

	var err error

	c.seen, err = os.ReadFile(req.Source)
	if err != nil {
		return err
	}

	if c.panics {
		panic("converter blew up")
	}

	if c.cancel != nil {
		c.cancel()

		return errors.New("signal: killed")
	}

	if c.err != nil {
		return c.err
	}

	return os.WriteFile(req.Output, []byte("<html></html>"), 0600)
}

func (l *MockLinker) InsertLink(id, title string) error {
	l.links = append(l.links, [2]string{id, title})

	return nil
}

func setUp(t *testing.T, original string) (root string, store *poststore.Store) {
	t.Helper()

	root = t.TempDir()

	err := os.Mkdir(filepath.Join(root, "markdown"), 0750)
	require.NoError(t, err, "should be able to create the post store")

	err = os.WriteFile(filepath.Join(root, "markdown", "hello.md"), []byte(original), 0640)
	require.NoError(t, err, "should be able to create a markdown source")

	return root, poststore.New(filepath.Join(root, "markdown"))
}

func TestDecorate(t *testing.T) {
	assert.Equal(t, BackLink+StyleBlock+"Hi there", string(Decorate([]byte("Hi there"))))
	assert.Equal(t, BackLink+StyleBlock, string(Decorate(nil)))
}

func TestPublish(t *testing.T) {
	original := "Hi there"

	root, store := setUp(t, original)

	converter := &MockConverter{}
	linker := &MockLinker{}

	p := New(store, converter, linker, log.New(&bytes.Buffer{}), Options{OutputDir: filepath.Join(root, "posts"), HighlightStyle: "my.theme"})

	err := p.Publish(context.Background(), "hello", "Hello World")
	require.NoError(t, err, "publishing a valid post should succeed")

	assert.Equal(t, string(Decorate([]byte(original))), string(converter.seen), "the converter should see the decorated source")
	assert.Equal(t, filepath.Join(root, "posts", "hello.html"), converter.request.Output)
	assert.True(t, converter.request.Standalone, "pages should be self-contained")
	assert.Equal(t, "my.theme", converter.request.HighlightStyle)

	_, err = os.Stat(filepath.Join(root, "posts", "hello.html"))
	require.NoError(t, err, "the posts directory should be created on demand")

	contents, err := os.ReadFile(store.SourcePath("hello"))
	require.NoError(t, err)

	assert.Equal(t, original, string(contents), "the markdown source should be restored byte for byte")

	info, err := os.Stat(store.SourcePath("hello"))
	require.NoError(t, err)

	assert.Equal(t, os.FileMode(0640), info.Mode().Perm(), "file permissions should survive publishing")

	assert.Equal(t, [][2]string{{"hello", "Hello World"}}, linker.links)

	err = p.Publish(context.Background(), "hello", "Hello World")
	require.NoError(t, err, "publishing twice should succeed")

	contents, err = os.ReadFile(store.SourcePath("hello"))
	require.NoError(t, err)

	assert.Equal(t, original, string(contents), "the markdown source should be restored after every run")
	assert.Equal(t, string(Decorate([]byte(original))), string(converter.seen), "decoration should not accumulate across runs")
}

func TestPublishWithoutTitle(t *testing.T) {
	root, store := setUp(t, "Hi there")

	linker := &MockLinker{}

	p := New(store, &MockConverter{}, linker, log.New(&bytes.Buffer{}), Options{OutputDir: filepath.Join(root, "posts")})

	err := p.Publish(context.Background(), "hello", "")
	require.NoError(t, err)

	assert.Empty(t, linker.links, "a re-render without title should not touch the index")
}

func TestPublishRestoresOnConverterFailure(t *testing.T) {
	original := "# Title\n\nBody with trailing spaces   \n"

	t.Run("Converter returns an error", func(t *testing.T) {
		var buf bytes.Buffer

		root, store := setUp(t, original)

		converter := &MockConverter{err: errors.New("exit status 64")}
		linker := &MockLinker{}

		p := New(store, converter, linker, log.New(&buf), Options{OutputDir: filepath.Join(root, "posts")})

		err := p.Publish(context.Background(), "hello", "Hello")
		require.NoError(t, err, "converter failures are tolerated")

		contents, err := os.ReadFile(store.SourcePath("hello"))
		require.NoError(t, err)

		assert.Equal(t, original, string(contents), "the markdown source should be restored after a converter failure")
		assert.Contains(t, buf.String(), "conversion failed", "converter failures should be logged")
		assert.Len(t, linker.links, 1, "the link is still inserted after a tolerated converter failure")
	})

	t.Run("Converter panics", func(t *testing.T) {
		root, store := setUp(t, original)

		p := New(store, &MockConverter{panics: true}, &MockLinker{}, log.New(&bytes.Buffer{}), Options{OutputDir: filepath.Join(root, "posts")})

		assert.Panics(t, func() { _ = p.Publish(context.Background(), "hello", "Hello") })

		contents, err := os.ReadFile(store.SourcePath("hello"))
		require.NoError(t, err)

		assert.Equal(t, original, string(contents), "the markdown source should be restored while panicking")
	})
}

func TestPublishInterrupted(t *testing.T) {
	original := "Hi there"

	root, store := setUp(t, original)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	linker := &MockLinker{}

	p := New(store, &MockConverter{cancel: cancel}, linker, log.New(&bytes.Buffer{}), Options{OutputDir: filepath.Join(root, "posts")})

	err := p.Publish(ctx, "hello", "Hello")
	assert.ErrorIs(t, err, context.Canceled, "an interrupted conversion should be reported")

	assert.Empty(t, linker.links, "an interrupted conversion should not be linked")

	contents, err := os.ReadFile(store.SourcePath("hello"))
	require.NoError(t, err)

	assert.Equal(t, original, string(contents), "the markdown source should be restored after an interruption")
}

func TestPublishMissingSource(t *testing.T) {
	root, store := setUp(t, "Hi there")

	converter := &MockConverter{}
	linker := &MockLinker{}

	p := New(store, converter, linker, log.New(&bytes.Buffer{}), Options{OutputDir: filepath.Join(root, "posts")})

	err := p.Publish(context.Background(), "ghost", "Ghost")
	assert.ErrorIs(t, err, ErrMissingSource)

	assert.Zero(t, converter.calls, "nothing should be converted for a missing source")
	assert.Empty(t, linker.links, "nothing should be linked for a missing source")

	_, err = os.Stat(filepath.Join(root, "markdown", "ghost.md"))
	assert.True(t, os.IsNotExist(err), "a missing source should not be created")
}
