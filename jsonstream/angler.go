// Package jsonstream finds the value at a dotted key path inside a JSON document without decoding the whole document.
package jsonstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type Angler struct {
	dec  *json.Decoder
	keys []string
	// Number of keys already matched.
	depth int
}

var (
	ErrPath = errors.New("invalid JSON path")
)

func isObjectStart(t json.Token) bool {
	d, ok := t.(json.Delim)

	return ok && d == '{'
}

func isOpening(t json.Token) bool {
	d, ok := t.(json.Delim)

	return ok && (d == '{' || d == '[')
}

func isClosing(t json.Token) bool {
	d, ok := t.(json.Delim)

	return ok && (d == '}' || d == ']')
}

// Non-nil returned error wraps [ErrPath].
func NewAngler(stream io.Reader, path string) (*Angler, error) {
	if !strings.HasPrefix(path, ".") {
		return nil, fmt.Errorf(`%w: %q must start with the dot character "."`, ErrPath, path)
	}

	if strings.HasSuffix(path, ".") {
		return nil, fmt.Errorf(`%w: %q must not end with the dot character "."`, ErrPath, path)
	}

	return &Angler{dec: json.NewDecoder(stream), keys: strings.Split(path, ".")[1:]}, nil
}

// Land returns the scalar at the path.
func (a *Angler) Land(ctx context.Context) (value any, err error) {
	if err = a.descend(ctx); err != nil {
		return nil, err
	}

	t, err := a.dec.Token()
	if err != nil {
		return nil, err
	}

	if d, ok := t.(json.Delim); ok {
		return nil, fmt.Errorf("the value at path %q is the delimiter %v", a.at(), d)
	}

	return t, nil
}

// Decode unmarshals the value at the path, of any JSON type, into v.
func (a *Angler) Decode(ctx context.Context, v any) error {
	if err := a.descend(ctx); err != nil {
		return err
	}

	if err := a.dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode the value at path %q: %w", a.at(), err)
	}

	return nil
}

// at is the part of the path matched so far.
func (a *Angler) at() string {
	return "." + strings.Join(a.keys[:a.depth], ".")
}

func (a *Angler) descend(ctx context.Context) error {
	for _, key := range a.keys {
		if err := a.toTargetKey(ctx, key); err != nil {
			return err
		}

		a.depth++
	}

	return nil
}

// toTargetKey enters the object that comes next and stops right after its member named key.
// Values of other members are skipped whole.
func (a *Angler) toTargetKey(ctx context.Context, key string) error {
	t, err := a.dec.Token()
	if err != nil {
		return err
	}

	if !isObjectStart(t) {
		return fmt.Errorf("the value at path %q is not a JSON object", a.at())
	}

	for a.dec.More() {
		if ctx.Err() != nil {
			return fmt.Errorf("failed to find target key %q under %q in time: %w", key, a.at(), context.Cause(ctx))
		}

		if t, err = a.dec.Token(); err != nil {
			return err
		}

		if name, ok := t.(string); ok && name == key {
			return nil
		}

		if err = a.skipValue(); err != nil {
			return err
		}
	}

	return fmt.Errorf("failed to find target key %q under %q", key, a.at())
}

// skipValue consumes the next value, however deeply it nests.
func (a *Angler) skipValue() error {
	nesting := 0

	for {
		t, err := a.dec.Token()
		if err != nil {
			return err
		}

		switch {
		case isOpening(t):
			nesting++
		case isClosing(t):
			nesting--
		}

		if nesting == 0 {
			return nil
		}
	}
}
