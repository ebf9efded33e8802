// Package index keeps the hand-maintained index page in sync with the published posts.
//
// The page carries one marker line. Managed links live right below it, one per line, newest first.
package index

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

type Document struct {
	marker string
	lines  []string
}

var (
	ErrMarkerNotFound = errors.New("marker line not found in index")
)

// Link is the anchor element written for a post.
func Link(dir, id, title string) string {
	return fmt.Sprintf("<a href='%s'>%s</a>", path.Join(dir, id+".html"), title)
}

// Parse splits contents into lines, each keeping its line ending.
func Parse(contents []byte, marker string) *Document {
	lines := strings.SplitAfter(string(contents), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	return &Document{marker: marker, lines: lines}
}

func (d *Document) Contains(s string) bool {
	return strings.Contains(d.String(), s)
}

// MarkerLine is the index of the first line containing the marker, or -1.
func (d *Document) MarkerLine() int {
	for i, line := range d.lines {
		if strings.Contains(line, d.marker) {
			return i
		}
	}

	return -1
}

// InsertAfterMarker inserts line, which must not contain a line break, directly below the marker line.
// Non-nil returned error wraps [ErrMarkerNotFound].
func (d *Document) InsertAfterMarker(line string) error {
	i := d.MarkerLine()
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrMarkerNotFound, d.marker)
	}

	eol := d.lineEnding(i)

	if !strings.HasSuffix(d.lines[i], "\n") {
		d.lines[i] += eol
	}

	d.lines = append(d.lines[:i+1], append([]string{line + eol}, d.lines[i+1:]...)...)

	return nil
}

// lineEnding is the ending of line i, or of the first terminated line when line i has none.
func (d *Document) lineEnding(i int) string {
	for _, line := range append([]string{d.lines[i]}, d.lines...) {
		switch {
		case strings.HasSuffix(line, "\r\n"):
			return "\r\n"
		case strings.HasSuffix(line, "\n"):
			return "\n"
		}
	}

	return "\n"
}

func (d *Document) String() string {
	return strings.Join(d.lines, "")
}

func (d *Document) Bytes() []byte {
	return []byte(d.String())
}
