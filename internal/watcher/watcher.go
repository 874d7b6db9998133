// Package watcher implements the file-watcher substrate the supervisor runs
// over the status and log trees: a debounced fsnotify watch over a
// directory of append-only files, demuxing notifications into typed
// per-path events on a bounded channel.
package watcher

import (
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventKind distinguishes the demuxed event types.
type EventKind int

const (
	// Created fires for a brand-new path, and for the first Modify seen on
	// a path the watcher had not previously observed (some platforms never
	// emit a real Create).
	Created EventKind = iota
	Modified
	Removed
	// Error carries a watch-level failure (an fsnotify error or an initial
	// directory scan failure). When a path is attached, the worker id is
	// still recoverable from the filename.
	Error
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one demuxed, debounced notification.
type Event struct {
	Kind EventKind
	Path string
	Err  error
}

// Config controls the watcher's debounce window, channel capacity, and
// startup behavior.
type Config struct {
	Dir              string
	Debounce         time.Duration
	ChannelBuffer    int
	EmitInitialState bool
	// Suffix restricts which filenames are observed (e.g. ".json"). Empty
	// means no filtering.
	Suffix string
}

// DefaultConfig returns the default watch settings for a directory.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		Debounce:         50 * time.Millisecond,
		ChannelBuffer:    256,
		EmitInitialState: true,
		Suffix:           ".json",
	}
}

// Watcher demuxes filesystem notifications for one directory into typed
// Events on a bounded channel. Zero policy lives here beyond debounce and
// known-files promotion; callers interpret Created/Modified/Removed.
type Watcher struct {
	cfg Config

	events chan Event
	done   chan struct{}

	mu         sync.Mutex
	knownFiles map[string]bool
	timers     map[string]*time.Timer
}

// New creates a Watcher for cfg.Dir. Call Run to start the fsnotify loop.
func New(cfg Config) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 50 * time.Millisecond
	}
	if cfg.ChannelBuffer <= 0 {
		cfg.ChannelBuffer = 256
	}
	return &Watcher{
		cfg:        cfg,
		events:     make(chan Event, cfg.ChannelBuffer),
		done:       make(chan struct{}),
		knownFiles: make(map[string]bool),
		timers:     make(map[string]*time.Timer),
	}
}

// Events returns the channel Events are published on. Closed when Run
// returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop signals Run to exit and cancels any pending debounce timers.
func (w *Watcher) Stop() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()
}

// Run starts the fsnotify loop. Intended to run in its own goroutine; it
// returns when Stop is called or the underlying watcher errors fatally.
func (w *Watcher) Run() error {
	defer close(w.events)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.Dir); err != nil {
		return err
	}

	if w.cfg.EmitInitialState {
		w.emitInitialState()
	}

	for {
		select {
		case <-w.done:
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.publish(Event{Kind: Error, Err: err})
		}
	}
}

func (w *Watcher) matches(path string) bool {
	if w.cfg.Suffix == "" {
		return true
	}
	return strings.HasSuffix(path, w.cfg.Suffix)
}

func (w *Watcher) emitInitialState() {
	entries, err := filepath.Glob(filepath.Join(w.cfg.Dir, "*"+w.cfg.Suffix))
	if err != nil {
		w.publish(Event{Kind: Error, Err: err})
		return
	}
	w.mu.Lock()
	for _, path := range entries {
		w.knownFiles[path] = true
	}
	w.mu.Unlock()

	for _, path := range entries {
		w.publish(Event{Kind: Created, Path: path})
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !w.matches(ev.Name) {
		return
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.mu.Lock()
		delete(w.knownFiles, ev.Name)
		if t := w.timers[ev.Name]; t != nil {
			t.Stop()
			delete(w.timers, ev.Name)
		}
		w.mu.Unlock()
		w.publish(Event{Kind: Removed, Path: ev.Name})

	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.debounce(ev.Name)
	}
}

// debounce schedules a single publish for path after the configured window,
// collapsing bursts of writes into one event. The event kind is decided at
// fire time from known_files, so the promotion rule (first Modify counts as
// Created) applies to whichever notification arrives first within a burst.
func (w *Watcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t := w.timers[path]; t != nil {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.fireDebounced(path)
	})
}

func (w *Watcher) fireDebounced(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	isKnown := w.knownFiles[path]
	w.knownFiles[path] = true
	w.mu.Unlock()

	kind := Modified
	if !isKnown {
		kind = Created
	}
	w.publish(Event{Kind: kind, Path: path})
}

// publish is a non-blocking send: on a full channel it logs a warning and
// drops the event rather than blocking the fsnotify goroutine.
func (w *Watcher) publish(ev Event) {
	select {
	case w.events <- ev:
	default:
		log.Printf("watcher: channel full, dropping %s event for %q", ev.Kind, ev.Path)
	}
}
