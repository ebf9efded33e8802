package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/kxue43/blogpub/version"
)

type (
	Globals struct {
		Root    string           `name:"root" short:"C" type:"existingdir" default:"." help:"Root directory of the site."`
		Debug   bool             `name:"debug" help:"Log debug messages and dump the resolved configuration."`
		Version kong.VersionFlag `name:"version" help:"Show version information and quit."`
	}

	CLI struct {
		Globals

		Interactive InteractiveCmd `cmd:"" default:"1" help:"Add, delete or refresh one post by answering prompts."`
		Publish     PublishCmd     `cmd:"" help:"Render one post and link it from the index."`
		Rebuild     RebuildCmd     `cmd:"" help:"Reset the index from its template and republish every post in the manifest."`
		Init        InitCmd        `cmd:"" help:"Lay out a starter site in the root directory."`
		Serve       ServeCmd       `cmd:"" help:"Serve the site root over HTTP."`
		Preview     PreviewCmd     `cmd:"" help:"Open the index page in the default browser."`
		Deploy      DeployCmd      `cmd:"" help:"Upload the index and rendered posts to S3."`
		Tui         TuiCmd         `cmd:"" name:"tui" help:"Pick a post to publish with the keyboard."`
	}
)

func newLogger(w io.Writer, debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}

	return log.NewWithOptions(w, log.Options{
		Prefix:          "blogpub",
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           level,
	})
}

func main() {
	var cli CLI

	kctx := kong.Parse(
		&cli,
		kong.Name("blogpub"),
		kong.Description("Publish markdown posts into a static blog."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version.FromBuildInfo()},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	env := &environment{
		ctx:    ctx,
		logger: newLogger(os.Stderr, cli.Debug),
		root:   cli.Root,
		debug:  cli.Debug,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}

	err := kctx.Run(env)

	stop()

	kctx.FatalIfErrorf(err)
}
