// Package frontend drives publishing from plain-text prompts.
//
// Invalid commands and post ids are re-prompted forever; the way out is closing the input or cancelling the context.
package frontend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

type (
	Command string

	Posts interface {
		IsValid(id string) bool
		IDs() ([]string, error)
	}

	Publisher interface {
		Publish(ctx context.Context, id, title string) error
	}

	reading struct {
		line string
		err  error
	}

	// Prompter reads answers on a background goroutine so that a waiting prompt can be abandoned.
	Prompter struct {
		in    *bufio.Reader
		out   io.Writer
		lines chan reading
		once  sync.Once
	}

	Session struct {
		prompter  *Prompter
		posts     Posts
		publisher Publisher
	}
)

const (
	Add     Command = "add"
	Delete  Command = "delete"
	Refresh Command = "refresh"

	// All as the answer to the refresh prompt republishes every post, unless a post is named "all".
	All = "all"

	commandPrompt = "What would you like to do? Options: add, delete, refresh\n"
	titlePrompt   = "Title of the post:\n"
	invalidInput  = "Invalid input\n"
	invalidPostID = "Invalid post id\n"
)

var (
	ErrInputClosed = errors.New("input closed")

	idPrompts = map[Command]string{
		Add:     "Id of the post you would like to add:\n",
		Delete:  "Id of the post you would like to delete:\n",
		Refresh: "Id of the post you would like to refresh (input 'all' to refresh all posts):\n",
	}
)

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, lines: make(chan reading)}
}

// Ask writes prompt and returns the next input line without its line ending.
// Non-nil returned error wraps [ErrInputClosed] once the input is exhausted,
// or the cause of ctx when it is done before a line arrives.
func (p *Prompter) Ask(ctx context.Context, prompt string) (answer string, err error) {
	if _, err = io.WriteString(p.out, prompt); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	p.once.Do(func() { go p.read() })

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("prompt abandoned: %w", context.Cause(ctx))
	case r, ok := <-p.lines:
		switch {
		case !ok:
			return "", fmt.Errorf("%w: %s", ErrInputClosed, io.EOF.Error())
		case errors.Is(r.err, io.EOF) && r.line != "":
			return trimLineEnding(r.line), nil
		case errors.Is(r.err, io.EOF):
			return "", fmt.Errorf("%w: %s", ErrInputClosed, r.err.Error())
		case r.err != nil:
			return "", fmt.Errorf("failed to read user input: %w", r.err)
		}

		return trimLineEnding(r.line), nil
	}
}

func (p *Prompter) Say(msg string) {
	_, _ = io.WriteString(p.out, msg)
}

// read delivers lines until the first read error, then closes lines.
func (p *Prompter) read() {
	defer close(p.lines)

	for {
		line, err := p.in.ReadString('\n')

		p.lines <- reading{line: line, err: err}

		if err != nil {
			return
		}
	}
}

func trimLineEnding(line string) string {
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
}

func NewSession(prompter *Prompter, posts Posts, publisher Publisher) *Session {
	return &Session{prompter: prompter, posts: posts, publisher: publisher}
}

// Run handles exactly one command.
// "delete" and "refresh" only republish the post; the index is left untouched.
func (s *Session) Run(ctx context.Context) error {
	cmd, err := s.command(ctx)
	if err != nil {
		return err
	}

	id, err := s.postID(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd == Refresh && id == All && !s.posts.IsValid(id) {
		return s.refreshAll(ctx)
	}

	var title string

	if cmd == Add {
		if title, err = s.prompter.Ask(ctx, titlePrompt); err != nil {
			return err
		}
	}

	return s.publisher.Publish(ctx, id, title)
}

// command trims surrounding whitespace from the answer. Post ids and titles are taken as typed.
func (s *Session) command(ctx context.Context) (Command, error) {
	for {
		answer, err := s.prompter.Ask(ctx, commandPrompt)
		if err != nil {
			return "", err
		}

		cmd := Command(strings.TrimSpace(answer))
		if _, ok := idPrompts[cmd]; ok {
			return cmd, nil
		}

		s.prompter.Say(invalidInput)
	}
}

func (s *Session) postID(ctx context.Context, cmd Command) (string, error) {
	for {
		id, err := s.prompter.Ask(ctx, idPrompts[cmd])
		if err != nil {
			return "", err
		}

		if s.posts.IsValid(id) || (cmd == Refresh && id == All) {
			return id, nil
		}

		s.prompter.Say(invalidPostID)
	}
}

func (s *Session) refreshAll(ctx context.Context) error {
	ids, err := s.posts.IDs()
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err = s.publisher.Publish(ctx, id, ""); err != nil {
			return err
		}
	}

	return nil
}
