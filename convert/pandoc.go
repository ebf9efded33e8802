package convert

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type Pandoc struct {
	logger logger
	path   string
	dir    string
}

// NewPandoc runs the pandoc executable at path with dir as its working directory.
// A relative highlight style such as "my.theme" is therefore looked up in dir.
func NewPandoc(path, dir string, logger logger) *Pandoc {
	return &Pandoc{path: path, dir: dir, logger: logger}
}

func (p *Pandoc) Args(req Request) []string {
	args := []string{"-o", req.Output}

	if req.Standalone {
		args = append(args, "-s")
	}

	if req.HighlightStyle != "" {
		args = append(args, "--highlight-style", req.HighlightStyle)
	}

	return append(args, req.Source)
}

// Convert discards pandoc's standard output.
// Diagnostics on standard error are logged as warnings when pandoc exits cleanly.
// Non-nil returned error wraps [ErrConversion].
func (p *Pandoc) Convert(ctx context.Context, req Request) error {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, p.path, p.Args(req)...)
	cmd.Dir = p.dir
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	p.logger.Debug("running pandoc", "args", strings.Join(cmd.Args, " "))

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: pandoc failed on %q: %s: %s", ErrConversion, req.Source, err.Error(), strings.TrimSpace(stderr.String()))
	}

	if diagnostics := strings.TrimSpace(stderr.String()); diagnostics != "" {
		p.logger.Warn("pandoc reported diagnostics", "source", req.Source, "stderr", diagnostics)
	}

	return nil
}
