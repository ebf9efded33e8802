package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/browser"

	"github.com/kxue43/blogpub/convert"
	"github.com/kxue43/blogpub/deploy"
	"github.com/kxue43/blogpub/frontend"
	"github.com/kxue43/blogpub/index"
	"github.com/kxue43/blogpub/manifest"
	"github.com/kxue43/blogpub/poststore"
	"github.com/kxue43/blogpub/publish"
	"github.com/kxue43/blogpub/scaffold"
	"github.com/kxue43/blogpub/site"
	"github.com/kxue43/blogpub/tui"
	"github.com/kxue43/blogpub/watch"
)

type (
	environment struct {
		ctx    context.Context
		logger *log.Logger
		stdin  io.Reader
		stdout io.Writer
		root   string
		debug  bool
	}

	application struct {
		cfg       site.Config
		store     *poststore.Store
		sync      *index.Synchronizer
		publisher *publish.Publisher
	}

	InteractiveCmd struct{}

	PublishCmd struct {
		ID    string `arg:"" name:"id" help:"Post id, i.e. the markdown file name without .md."`
		Title string `name:"title" short:"t" help:"Link text on the index. Without it the post is only re-rendered."`
	}

	RebuildCmd struct {
		Manifest string `name:"manifest" short:"m" help:"Manifest to rebuild from instead of the configured one."`
	}

	InitCmd struct {
		Title          string `name:"title" default:"My Blog" help:"Title of the index page."`
		Converter      string `name:"converter" enum:"pandoc,goldmark" default:"pandoc" help:"Converter written to blogpub.toml."`
		HighlightStyle string `name:"highlight-style" default:"pygments" help:"Highlight style written to blogpub.toml."`
		Force          bool   `name:"force" help:"Overwrite existing files."`
	}

	ServeCmd struct {
		Addr  string `name:"addr" default:"localhost:8090" help:"Address of the local static files server."`
		Watch bool   `name:"watch" short:"w" help:"Re-render a post whenever its markdown source changes."`
	}

	PreviewCmd struct{}

	DeployCmd struct {
		DryRun bool `name:"dry-run" help:"List the object keys without uploading."`
	}

	TuiCmd struct{}
)

// open loads the site configuration and wires the publishing pipeline.
func (e *environment) open() (*application, error) {
	cfg, err := site.Load(e.root)
	if err != nil {
		return nil, err
	}

	if e.debug {
		spew.Fdump(os.Stderr, cfg)
	}

	var converter convert.Converter

	switch cfg.Converter {
	case site.ConverterGoldmark:
		converter = convert.NewGoldmark(e.logger)
	default:
		converter = convert.NewPandoc(cfg.PandocPath, cfg.Root, e.logger)
	}

	app := application{cfg: cfg, store: poststore.New(cfg.MarkdownPath())}

	app.sync = index.NewSynchronizer(app.store, e.logger, index.Options{
		Path:      cfg.IndexPath(),
		Template:  cfg.IndexTemplatePath(),
		Marker:    cfg.Marker,
		PostsHref: cfg.PostsHref(),
	})

	app.publisher = publish.New(app.store, converter, app.sync, e.logger, publish.Options{
		OutputDir:      cfg.PostsPath(),
		HighlightStyle: cfg.HighlightStyle,
	})

	e.logger.Debug("site loaded", "root", cfg.Root, "converter", cfg.Converter)

	return &app, nil
}

func (c *InteractiveCmd) Run(env *environment) error {
	app, err := env.open()
	if err != nil {
		return err
	}

	session := frontend.NewSession(frontend.NewPrompter(env.stdin, env.stdout), app.store, app.publisher)

	return session.Run(env.ctx)
}

func (c *PublishCmd) Run(env *environment) error {
	app, err := env.open()
	if err != nil {
		return err
	}

	if err = app.store.Validate(c.ID); err != nil {
		return err
	}

	return app.publisher.Publish(env.ctx, c.ID, c.Title)
}

func (c *RebuildCmd) Run(env *environment) error {
	app, err := env.open()
	if err != nil {
		return err
	}

	path := app.cfg.ManifestPath()
	if c.Manifest != "" {
		path = c.Manifest
	}

	posts, err := manifest.Load(env.ctx, path)
	if err != nil {
		return err
	}

	env.logger.Info("rebuilding index", "manifest", path, "posts", len(posts))

	return app.sync.Rebuild(env.ctx, posts, app.publisher)
}

func (c *InitCmd) Run(env *environment) error {
	s := scaffold.New(c.Title)
	s.Converter = c.Converter
	s.HighlightStyle = c.HighlightStyle
	s.Force = c.Force

	if err := s.Write(env.root); err != nil {
		return err
	}

	env.logger.Info("created starter site", "root", env.root)

	return nil
}

func (c *ServeCmd) Run(env *environment) error {
	app, err := env.open()
	if err != nil {
		return err
	}

	if c.Watch {
		w, err := watch.New(app.cfg.MarkdownPath(), app.publisher, env.logger, watch.DefaultDebounce)
		if err != nil {
			return err
		}

		go func() { _ = w.Run(env.ctx) }()
	}

	files := http.FileServer(http.Dir(app.cfg.Root))

	server := &http.Server{
		Addr: c.Addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

			files.ServeHTTP(w, r)
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-env.ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	env.logger.Info("serving site", "url", "http://"+c.Addr+"/"+app.cfg.Index)

	err = server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func (c *PreviewCmd) Run(env *environment) error {
	app, err := env.open()
	if err != nil {
		return err
	}

	if err = browser.OpenFile(app.cfg.IndexPath()); err != nil {
		return fmt.Errorf("failed to open the index in the default browser: %w", err)
	}

	return nil
}

func (c *DeployCmd) Run(env *environment) error {
	app, err := env.open()
	if err != nil {
		return err
	}

	rels, err := deploy.Files(app.cfg)
	if err != nil {
		return err
	}

	if c.DryRun {
		uploader := deploy.NewUploader(nil, app.cfg.Deploy.Bucket, app.cfg.Deploy.Prefix, env.logger)

		for _, rel := range rels {
			_, _ = fmt.Fprintf(env.stdout, "s3://%s/%s\n", app.cfg.Deploy.Bucket, uploader.Key(rel))
		}

		return nil
	}

	client, err := deploy.NewClient(env.ctx, app.cfg.Deploy)
	if err != nil {
		return err
	}

	return deploy.NewUploader(client, app.cfg.Deploy.Bucket, app.cfg.Deploy.Prefix, env.logger).Upload(env.ctx, app.cfg.Root, rels)
}

func (c *TuiCmd) Run(env *environment) error {
	app, err := env.open()
	if err != nil {
		return err
	}

	ids, err := app.store.IDs()
	if err != nil {
		return err
	}

	// Log lines would interleave with the picker.
	env.logger.SetOutput(io.Discard)

	_, err = tea.NewProgram(tui.NewPicker(env.ctx, ids, app.publisher), tea.WithContext(env.ctx)).Run()

	return err
}
