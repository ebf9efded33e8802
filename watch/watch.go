// Package watch re-renders posts whose markdown source changes on disk.
package watch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kxue43/blogpub/poststore"
	"github.com/kxue43/blogpub/publish"
)

type (
	Publisher interface {
		Publish(ctx context.Context, id, title string) error
	}

	logger interface {
		Debug(msg any, keyvals ...any)
		Info(msg any, keyvals ...any)
		Warn(msg any, keyvals ...any)
	}

	Watcher struct {
		fsw       *fsnotify.Watcher
		publisher Publisher
		logger    logger
		dir       string
		debounce  time.Duration
		// Source bytes at the last render, keyed by post id.
		rendered map[string][]byte
	}
)

// tick is one arming of a post's debounce timer.
type tick struct {
	id  string
	gen uint64
}

// debouncer keeps one timer per post id. Only the tick of the latest arming is due,
// so a timer that fired while being replaced cannot trigger a render.
type debouncer struct {
	timers map[string]*time.Timer
	gens   map[string]uint64
	delay  time.Duration
}

const DefaultDebounce = 300 * time.Millisecond

var (
	ErrWatch = errors.New("failed to watch markdown sources")
)

// New starts watching dir. Call [Watcher.Run] to act on changes.
// Non-nil returned error wraps [ErrWatch].
func New(dir string, publisher Publisher, logger logger, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWatch, err.Error())
	}

	if err = fsw.Add(dir); err != nil {
		_ = fsw.Close()

		return nil, fmt.Errorf("%w: %q: %s", ErrWatch, dir, err.Error())
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fsw:       fsw,
		publisher: publisher,
		logger:    logger,
		dir:       dir,
		debounce:  debounce,
		rendered:  map[string][]byte{},
	}, nil
}

// Run re-renders changed posts without touching the index until ctx is done.
// The watcher is closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	ready := make(chan tick)
	pending := newDebouncer(w.debounce)

	defer pending.stop()

	fire := func(t tick) {
		select {
		case ready <- t:
		case <-ctx.Done():
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}

			if id, ok := w.postID(event); ok {
				pending.touch(id, fire)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("watcher error", "err", err)
		case t := <-ready:
			if pending.due(t) {
				w.render(ctx, t.id)
			}
		}
	}
}

func (w *Watcher) postID(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return "", false
	}

	id, ok := strings.CutSuffix(filepath.Base(event.Name), poststore.Ext)

	return id, ok && id != ""
}

// render skips contents it produced itself, i.e. the last rendered source and its decorated form.
func (w *Watcher) render(ctx context.Context, id string) {
	contents, err := os.ReadFile(filepath.Join(w.dir, id+poststore.Ext))
	if err != nil {
		w.logger.Debug("source vanished", "id", id, "err", err)

		return
	}

	if last, ok := w.rendered[id]; ok && (bytes.Equal(contents, last) || bytes.Equal(contents, publish.Decorate(last))) {
		return
	}

	w.rendered[id] = contents

	if err = w.publisher.Publish(ctx, id, ""); err != nil {
		w.logger.Warn("failed to re-render", "id", id, "err", err)

		return
	}

	w.logger.Info("re-rendered", "id", id)
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{timers: map[string]*time.Timer{}, gens: map[string]uint64{}, delay: delay}
}

// touch (re)arms the timer for id. fire receives the tick once delay passes without another touch.
func (d *debouncer) touch(id string, fire func(tick)) {
	if timer, ok := d.timers[id]; ok {
		timer.Stop()
	}

	d.gens[id]++

	t := tick{id: id, gen: d.gens[id]}

	d.timers[id] = time.AfterFunc(d.delay, func() { fire(t) })
}

// due reports whether t belongs to the latest arming of its id and retires that arming.
func (d *debouncer) due(t tick) bool {
	if _, armed := d.timers[t.id]; !armed || d.gens[t.id] != t.gen {
		return false
	}

	delete(d.timers, t.id)

	return true
}

func (d *debouncer) stop() {
	for _, timer := range d.timers {
		timer.Stop()
	}
}
