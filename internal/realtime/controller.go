// Package realtime provides live sentiment feedback for a single text field
// without flooding the analysis provider.
package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bakeyeon/sentiment-translator/internal/domain"
	"github.com/bakeyeon/sentiment-translator/internal/emoji"
)

// QuietPeriod is the debounce window: an analysis is dispatched only after
// this much time passes with no further edits.
const QuietPeriod = 500 * time.Millisecond

// Analyzer is the provider subset the controller needs.
type Analyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) (domain.SentimentReading, error)
}

// Controller debounces rapid edits to one text field and keeps at most one
// analysis request in flight. Only the last edit in a burst is ever analyzed,
// and the emitted reading always reflects the most recently requested text:
// a response that has been superseded by a newer request is discarded, never
// applied.
//
// Provider failures degrade silently to the neutral fallback reading; they
// are logged but never emitted as errors.
type Controller struct {
	analyzer Analyzer
	clock    clockwork.Clock
	quiet    time.Duration

	// onDispatch fires when a request is actually sent; emit delivers the
	// resulting annotated reading. Both may be invoked from internal
	// goroutines.
	onDispatch func()
	emit       func(domain.EmojiAnnotatedSentiment)

	mu        sync.Mutex
	timer     clockwork.Timer
	pending   string
	queued    *string
	inFlight  bool
	suspended bool
	seq       uint64 // id of the most recently dispatched request
}

// NewController creates a controller for one text field. onDispatch may be
// nil.
func NewController(analyzer Analyzer, clock clockwork.Clock, quiet time.Duration, onDispatch func(), emit func(domain.EmojiAnnotatedSentiment)) *Controller {
	return &Controller{
		analyzer:   analyzer,
		clock:      clock,
		quiet:      quiet,
		onDispatch: onDispatch,
		emit:       emit,
	}
}

// OnTextChanged restarts the quiet-period timer for the new text. Classic
// debounce, not throttle: a burst of calls within the window results in a
// single dispatch carrying the final value. No-op while suspended.
func (c *Controller) OnTextChanged(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.suspended {
		return
	}

	c.pending = text
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.clock.AfterFunc(c.quiet, c.fire)
}

// Suspend disables the controller entirely: pending timers are cancelled,
// nothing new is scheduled, and any in-flight response is discarded on
// arrival. Used while a full pipeline run supersedes the live feedback.
func (c *Controller) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.suspended = true
	c.queued = nil
	c.seq++ // invalidates any in-flight response
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Resume re-enables scheduling after a Suspend.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspended = false
}

func (c *Controller) fire() {
	c.mu.Lock()
	if c.suspended {
		c.mu.Unlock()
		return
	}
	if c.inFlight {
		// Keep the single in-flight guarantee; the newest text is
		// dispatched as soon as the current request returns.
		text := c.pending
		c.queued = &text
		c.mu.Unlock()
		return
	}
	text := c.pending
	c.mu.Unlock()

	c.dispatch(text)
}

func (c *Controller) dispatch(text string) {
	c.mu.Lock()
	if c.suspended {
		c.mu.Unlock()
		return
	}
	c.seq++
	id := c.seq
	c.inFlight = true
	c.mu.Unlock()

	// Synchronous, so the dispatch notification always precedes the
	// emitted result.
	if c.onDispatch != nil {
		c.onDispatch()
	}

	go func() {
		reading, err := c.analyzer.AnalyzeSentiment(context.Background(), text)
		if err != nil {
			slog.Warn("Live sentiment analysis failed, falling back to neutral", "error", err)
			reading = domain.NeutralReading()
		}
		c.complete(id, reading)
	}()
}

func (c *Controller) complete(id uint64, reading domain.SentimentReading) {
	c.mu.Lock()
	c.inFlight = false

	if c.queued != nil && !c.suspended {
		// A newer edit arrived while this request was in flight; its
		// response wins, ours is discarded.
		text := *c.queued
		c.queued = nil
		c.mu.Unlock()
		c.dispatch(text)
		return
	}

	stale := id != c.seq || c.suspended
	c.mu.Unlock()

	if stale {
		return
	}
	c.emit(domain.EmojiAnnotatedSentiment{
		Reading: reading,
		Glyph:   emoji.Match(reading.Valence),
	})
}
