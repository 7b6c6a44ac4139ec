// Package watch turns bursts of file changes into single rebuild-and-handoff
// requests.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches directory trees and delivers debounced change batches to
// its handlers.
type Watcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	logger    *slog.Logger
	ignore    map[string]bool

	mutex    sync.RWMutex
	filters  []Filter
	handlers []Handler
}

// ChangeEvent is one changed path.
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
}

// EventType is the kind of change.
type EventType int

const (
	EventCreated EventType = iota
	EventModified
	EventDeleted
	EventRenamed
)

func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	case EventRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Filter reports whether a path is interesting. All filters must pass.
type Filter func(path string) bool

// Handler receives one debounced batch, sorted by path.
type Handler func(events []ChangeEvent) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithIgnoreDirs skips directories with these base names when walking.
func WithIgnoreDirs(names ...string) Option {
	return func(w *Watcher) {
		for _, n := range names {
			w.ignore[n] = true
		}
	}
}

// New creates a watcher that waits for delay of quiet before delivering.
func New(delay time.Duration, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:   fsw,
		debouncer: NewDebouncer(delay),
		logger:    slog.Default(),
		ignore: map[string]bool{
			".git":         true,
			"node_modules": true,
			"vendor":       true,
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// AddFilter adds a filter.
func (w *Watcher) AddFilter(f Filter) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.filters = append(w.filters, f)
}

// AddHandler adds a handler.
func (w *Watcher) AddHandler(h Handler) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.handlers = append(w.handlers, h)
}

// AddRecursive watches root and every directory below it except ignored
// ones. Directories created later are picked up as they appear.
func (w *Watcher) AddRecursive(root string) error {
	abs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return w.watcher.Add(abs)
	}

	return filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != abs && w.ignore[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// WatchList returns the watched paths.
func (w *Watcher) WatchList() []string {
	return w.watcher.WatchList()
}

// Start runs the watcher until ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	go w.debouncer.Run(ctx)
	go w.processBatches(ctx)
	go w.watchLoop(ctx)
}

// Stop releases the underlying watcher.
func (w *Watcher) Stop() error {
	w.debouncer.Stop()
	return w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	info, statErr := os.Stat(event.Name)
	if statErr == nil && info.IsDir() {
		if event.Has(fsnotify.Create) && !w.ignore[filepath.Base(event.Name)] {
			if err := w.AddRecursive(event.Name); err != nil {
				w.logger.Debug("watching new directory", "path", event.Name, "error", err)
			}
		}
		return
	}

	w.mutex.RLock()
	filters := w.filters
	w.mutex.RUnlock()
	for _, f := range filters {
		if !f(event.Name) {
			return
		}
	}

	ce := ChangeEvent{Path: event.Name, Type: eventType(event.Op)}
	if statErr == nil {
		ce.ModTime = info.ModTime()
	}
	w.debouncer.Add(ce)
}

func eventType(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreated
	case op.Has(fsnotify.Write):
		return EventModified
	case op.Has(fsnotify.Remove):
		return EventDeleted
	case op.Has(fsnotify.Rename):
		return EventRenamed
	default:
		return EventModified
	}
}

func (w *Watcher) processBatches(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-w.debouncer.Output():
			w.mutex.RLock()
			handlers := w.handlers
			w.mutex.RUnlock()

			for _, h := range handlers {
				if err := h(events); err != nil {
					w.logger.Warn("change handler failed", "error", err)
				}
			}
		}
	}
}

// Debouncer collects events and emits them once no new event has arrived
// for the delay. Repeated events for a path keep the latest.
type Debouncer struct {
	delay  time.Duration
	events chan ChangeEvent
	output chan []ChangeEvent

	mutex   sync.Mutex
	timer   *time.Timer
	pending map[string]ChangeEvent
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		events:  make(chan ChangeEvent, 100),
		output:  make(chan []ChangeEvent, 1),
		pending: make(map[string]ChangeEvent),
	}
}

// Add queues an event. It does not block; when the queue is full the event
// is recorded directly.
func (d *Debouncer) Add(ev ChangeEvent) {
	select {
	case d.events <- ev:
	default:
		d.record(ev)
	}
}

// Output delivers batches.
func (d *Debouncer) Output() <-chan []ChangeEvent {
	return d.output
}

// Run moves queued events into the pending batch until ctx is done.
func (d *Debouncer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.Stop()
			return
		case ev := <-d.events:
			d.record(ev)
		}
	}
}

// Stop cancels a pending flush.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) record(ev ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending[ev.Path] = ev
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	if len(d.pending) == 0 {
		d.mutex.Unlock()
		return
	}
	events := make([]ChangeEvent, 0, len(d.pending))
	for _, ev := range d.pending {
		events = append(events, ev)
	}
	clear(d.pending)
	d.mutex.Unlock()

	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })

	// A batch not yet consumed is merged with this one.
	for {
		select {
		case d.output <- events:
			return
		default:
		}
		select {
		case prev := <-d.output:
			events = mergeBatches(prev, events)
		default:
		}
	}
}

func mergeBatches(prev, next []ChangeEvent) []ChangeEvent {
	byPath := make(map[string]ChangeEvent, len(prev)+len(next))
	for _, ev := range prev {
		byPath[ev.Path] = ev
	}
	for _, ev := range next {
		byPath[ev.Path] = ev
	}
	out := make([]ChangeEvent, 0, len(byPath))
	for _, ev := range byPath {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
