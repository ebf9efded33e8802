// Package convert renders a markdown file into an HTML page.
//
// [Pandoc] shells out to the pandoc binary; [Goldmark] renders in-process and needs nothing installed.
package convert

import (
	"context"
	"errors"
)

type (
	Request struct {
		Source         string
		Output         string
		HighlightStyle string
		Standalone     bool
	}

	Converter interface {
		Convert(ctx context.Context, req Request) error
	}

	logger interface {
		Debug(msg any, keyvals ...any)
		Warn(msg any, keyvals ...any)
	}
)

var (
	ErrConversion = errors.New("conversion failure")
)
