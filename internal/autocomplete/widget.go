// Package autocomplete implements a debounced suggestion list for a text input
// backed by an asynchronous source.
package autocomplete

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dharmasatrya/skyfinder/internal/logger"
)

var ErrNoSuchSuggestion = errors.New("suggestion index out of range")

// Source returns suggestions for query. It must honour ctx cancellation.
type Source[T any] func(ctx context.Context, query string) ([]T, error)

type Config struct {
	Debounce       time.Duration
	BlurGrace      time.Duration
	MinQueryLength int
}

func DefaultConfig() Config {
	return Config{
		Debounce:       300 * time.Millisecond,
		BlurGrace:      200 * time.Millisecond,
		MinQueryLength: 2,
	}
}

// State is a point-in-time copy of the widget.
type State[T any] struct {
	Text        string `json:"text"`
	Suggestions []T    `json:"suggestions"`
	Visible     bool   `json:"visible"`
	Loading     bool   `json:"loading"`
}

type Widget[T any] struct {
	mu          sync.Mutex
	cfg         Config
	source      Source[T]
	label       func(T) string
	onSelect    func(T)
	name        string
	text        string
	suggestions []T
	visible     bool
	loading     bool

	// seq identifies the latest keystroke; anything tagged with an older value
	// is stale and gets dropped.
	seq       uint64
	debounce  *time.Timer
	blurTimer *time.Timer
	cancel    context.CancelFunc
	ctx       context.Context
	stop      context.CancelFunc
}

// New builds a widget. label renders a chosen item into the input text and
// onSelect, when non-nil, is told about every selection.
func New[T any](name string, source Source[T], label func(T) string, onSelect func(T), cfg Config) *Widget[T] {
	if cfg.MinQueryLength < 1 {
		cfg.MinQueryLength = 1
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Widget[T]{
		cfg:      cfg,
		source:   source,
		label:    label,
		onSelect: onSelect,
		name:     name,
		ctx:      ctx,
		stop:     stop,
	}
}

// Input records a keystroke. Any pending or in-flight query is abandoned; a new
// one is scheduled after the quiet period when text is long enough, otherwise
// the suggestions are cleared and hidden immediately.
func (w *Widget[T]) Input(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.text = text
	w.seq++
	w.abandonLocked()

	if utf8.RuneCountInString(text) < w.cfg.MinQueryLength {
		w.suggestions = nil
		w.visible = false
		return
	}

	seq := w.seq
	w.debounce = time.AfterFunc(w.cfg.Debounce, func() { w.fire(seq, text) })
}

func (w *Widget[T]) fire(seq uint64, query string) {
	w.mu.Lock()
	if seq != w.seq || w.ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(w.ctx)
	w.cancel = cancel
	w.loading = true
	w.mu.Unlock()

	results, err := w.source(ctx, query)
	cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	if seq != w.seq {
		logger.Debug("Dropping stale suggestions", "widget", w.name, "query", query)
		return
	}
	w.cancel = nil
	w.loading = false
	if err != nil {
		logger.Error(err, "Suggestion lookup failed", "widget", w.name, "query", query)
		w.suggestions = nil
		return
	}
	w.suggestions = results
	w.visible = true
}

// Select replaces the text with the item's label, hides the panel and notifies
// the owner.
func (w *Widget[T]) Select(item T) {
	w.mu.Lock()
	w.text = w.label(item)
	w.visible = false
	w.seq++
	w.abandonLocked()
	onSelect := w.onSelect
	w.mu.Unlock()

	if onSelect != nil {
		onSelect(item)
	}
}

// SelectIndex selects the i-th current suggestion.
func (w *Widget[T]) SelectIndex(i int) (T, error) {
	w.mu.Lock()
	if i < 0 || i >= len(w.suggestions) {
		w.mu.Unlock()
		var zero T
		return zero, ErrNoSuchSuggestion
	}
	item := w.suggestions[i]
	w.mu.Unlock()

	w.Select(item)
	return item, nil
}

func (w *Widget[T]) Focus() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.blurTimer != nil {
		w.blurTimer.Stop()
		w.blurTimer = nil
	}
	if len(w.suggestions) > 0 {
		w.visible = true
	}
}

// Blur hides the panel after the grace period so that a click on a suggestion
// still lands.
func (w *Widget[T]) Blur() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.blurTimer != nil {
		w.blurTimer.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.cfg.BlurGrace, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.blurTimer == t {
			w.visible = false
			w.blurTimer = nil
		}
	})
	w.blurTimer = t
}

// SetText syncs the input with an externally chosen value without querying.
func (w *Widget[T]) SetText(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.text = text
}

func (w *Widget[T]) Snapshot() State[T] {
	w.mu.Lock()
	defer w.mu.Unlock()

	suggestions := make([]T, len(w.suggestions))
	copy(suggestions, w.suggestions)
	return State[T]{
		Text:        w.text,
		Suggestions: suggestions,
		Visible:     w.visible && len(w.suggestions) > 0,
		Loading:     w.loading,
	}
}

// Close stops timers and cancels any in-flight query. The widget ignores all
// later results.
func (w *Widget[T]) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	w.abandonLocked()
	if w.blurTimer != nil {
		w.blurTimer.Stop()
		w.blurTimer = nil
	}
	w.stop()
}

func (w *Widget[T]) abandonLocked() {
	if w.debounce != nil {
		w.debounce.Stop()
		w.debounce = nil
	}
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.loading = false
}
