// SPDX-License-Identifier: MIT

// Package watch triggers pipeline runs when raw inputs or dictionaries
// change on disk.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/panelkit/harmon/internal/log"
)

// Watcher observes a set of input files and invokes a trigger after a
// debounce window. Individual files are watched rather than the data
// directory, since pipeline runs write artifacts into the same directory
// and watching it would re-trigger on our own output.
type Watcher struct {
	paths    []string
	debounce time.Duration
	trigger  func(context.Context)
	fsw      *fsnotify.Watcher
	logger   zerolog.Logger
	done     chan struct{}
}

// New prepares a watcher over the given paths. The trigger runs at most
// once per debounce window no matter how many events arrive.
func New(paths []string, debounce time.Duration, trigger func(context.Context)) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("watch: no paths to watch")
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		paths:    paths,
		debounce: debounce,
		trigger:  trigger,
		logger:   log.WithComponent("watch"),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. The loop runs until ctx is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	for _, p := range w.paths {
		if err := fsw.Add(p); err != nil {
			_ = fsw.Close()
			return fmt.Errorf("watch: add %s: %w", p, err)
		}
	}
	w.fsw = fsw

	w.logger.Info().
		Str("event", "watch.started").
		Strs("paths", w.paths).
		Dur("debounce", w.debounce).
		Msg("watching input files")

	go w.loop(ctx)
	return nil
}

// Done is closed when the watch loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Str("event", "watch.stopped").Msg("watcher stopped")
			_ = w.fsw.Close()
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// Write and Create cover editors and atomic replacement.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug().
				Str("event", "watch.file_changed").
				Str("path", event.Name).
				Str("op", event.Op.String()).
				Msg("input changed")

			if event.Has(fsnotify.Rename) {
				// Replaced files drop out of the watch set; re-add the
				// new inode.
				if err := w.fsw.Add(event.Name); err != nil {
					w.logger.Warn().
						Err(err).
						Str("path", event.Name).
						Msg("could not re-watch replaced file")
				}
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				w.logger.Info().
					Str("event", "watch.trigger").
					Str("path", event.Name).
					Msg("inputs settled, triggering run")
				w.trigger(ctx)
			})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error().
				Err(err).
				Str("event", "watch.error").
				Msg("watcher error")
		}
	}
}
