package convert

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

type (
	Goldmark struct {
		logger logger
	}

	page struct {
		Title string
		Body  template.HTML
	}
)

const fallbackStyle = "github"

var (
	//go:embed standalone.html.tmplt
	standaloneSource string

	standalone = template.Must(template.New("standalone").Parse(standaloneSource))

	// Pandoc raw attribute blocks, "```{=html}" fences, carry HTML that must reach the page untouched.
	rawHTMLFence = regexp.MustCompile("(?s)```\\{=html\\}\\n(.*?)```\\n?")

	firstHeading = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t#]*$`)
)

func NewGoldmark(logger logger) *Goldmark {
	return &Goldmark{logger: logger}
}

// ChromaStyle maps a highlight style to a registered chroma style.
// Pandoc theme files and unknown names fall back to "github".
func ChromaStyle(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))

	if _, ok := styles.Registry[name]; ok {
		return name
	}

	return fallbackStyle
}

func (g *Goldmark) markdown(style string) goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(highlighting.WithStyle(ChromaStyle(style))),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
}

// Non-nil returned error wraps [ErrConversion].
func (g *Goldmark) Convert(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s", ErrConversion, err.Error())
	}

	source, err := os.ReadFile(filepath.Clean(req.Source))
	if err != nil {
		return fmt.Errorf("%w: failed to read %q: %s", ErrConversion, req.Source, err.Error())
	}

	if style := ChromaStyle(req.HighlightStyle); style != strings.ToLower(req.HighlightStyle) {
		g.logger.Debug("using fallback highlight style", "requested", req.HighlightStyle, "style", style)
	}

	source = rawHTMLFence.ReplaceAll(source, []byte("${1}\n"))

	var body bytes.Buffer

	if err = g.markdown(req.HighlightStyle).Convert(source, &body); err != nil {
		return fmt.Errorf("%w: goldmark failed on %q: %s", ErrConversion, req.Source, err.Error())
	}

	contents := body.Bytes()

	if req.Standalone {
		var out bytes.Buffer

		err = standalone.Execute(&out, page{Title: title(source, req.Source), Body: template.HTML(body.String())})
		if err != nil {
			return fmt.Errorf("%w: failed to wrap %q into a standalone page: %s", ErrConversion, req.Source, err.Error())
		}

		contents = out.Bytes()
	}

	if err = os.WriteFile(req.Output, contents, 0644); err != nil {
		return fmt.Errorf("%w: failed to write %q: %s", ErrConversion, req.Output, err.Error())
	}

	return nil
}

func title(source []byte, path string) string {
	if m := firstHeading.FindSubmatch(source); m != nil {
		return string(m[1])
	}

	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
