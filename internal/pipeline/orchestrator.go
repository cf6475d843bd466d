// Package pipeline drives the sentiment-translation pipeline for one
// session: translate, analyze both sides, derive glyphs, and decide whether
// the tonal gap warrants an emoji suggestion.
package pipeline

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/bakeyeon/sentiment-translator/internal/domain"
	"github.com/bakeyeon/sentiment-translator/internal/emoji"
	"github.com/bakeyeon/sentiment-translator/internal/plot"
	"github.com/bakeyeon/sentiment-translator/internal/realtime"
)

// SuggestionDeltaThreshold is the valence-delta dead zone. A suggestion is
// requested only for a delta strictly greater than this, so negligible drift
// does not nag the user.
const SuggestionDeltaThreshold = 0.2

// FailureNotice is the only translation-failure text the sink ever sees.
// Raw provider errors stay in the logs.
const FailureNotice = "Translation failed. Please try again."

// Snapshot is the immutable view the rendering sink receives on every state
// transition. Comparison is derived from the two sentiment readings and
// present only when both are.
type Snapshot struct {
	State      domain.PipelineState   `json:"state"`
	Comparison *plot.ComparisonVector `json:"comparison,omitempty"`
}

// Sink receives pipeline snapshots. Implementations must not retain or
// mutate the snapshot's pointer fields.
type Sink interface {
	Publish(sessionID uuid.UUID, snap Snapshot)
}

// --- Command types ---

type orchestratorCmd interface{ orchestratorCmd() }

type cmdTextChanged struct {
	text string
}

func (cmdTextChanged) orchestratorCmd() {}

type cmdTranslate struct {
	sourceLang string
	targetLang string
}

func (cmdTranslate) orchestratorCmd() {}

type cmdAppendGlyph struct {
	glyph string
}

func (cmdAppendGlyph) orchestratorCmd() {}

type cmdSourceDispatched struct{}

func (cmdSourceDispatched) orchestratorCmd() {}

type cmdSourceReading struct {
	ann domain.EmojiAnnotatedSentiment
}

func (cmdSourceReading) orchestratorCmd() {}

type cmdTargetReading struct {
	ann domain.EmojiAnnotatedSentiment
}

func (cmdTargetReading) orchestratorCmd() {}

type cmdTranslated struct {
	gen    uint64
	result domain.TranslationResult
	err    error
}

func (cmdTranslated) orchestratorCmd() {}

type cmdSuggested struct {
	gen        uint64
	suggestion domain.EmojiSuggestion
	err        error
}

func (cmdSuggested) orchestratorCmd() {}

type cmdSnapshot struct {
	replyCh chan Snapshot
}

func (cmdSnapshot) orchestratorCmd() {}

type cmdStop struct {
	doneCh chan struct{}
}

func (cmdStop) orchestratorCmd() {}

// --- Orchestrator ---

// Orchestrator is a single-goroutine actor owning the one PipelineState of a
// session. All mutations happen inside the actor loop, so every published
// snapshot is a consistent whole.
//
// Invalidation is by generation, not cancellation: a source-text edit bumps
// the generation, and any in-flight result carrying an older generation is
// discarded on arrival. A translation that no longer corresponds to the
// displayed source text is never published.
type Orchestrator struct {
	id       uuid.UUID
	provider domain.AnalysisProvider
	sink     Sink

	cmdCh  chan orchestratorCmd
	ctx    context.Context
	cancel context.CancelFunc

	sourceFeed *realtime.Controller
	targetFeed *realtime.Controller

	st            domain.PipelineState
	gen           uint64
	targetPending bool // a glyph append awaits its re-analysis
}

// NewOrchestrator wires an orchestrator with its two realtime controllers
// (source field debounced, target field used for post-append re-analysis).
func NewOrchestrator(id uuid.UUID, provider domain.AnalysisProvider, sink Sink, clock clockwork.Clock) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		id:       id,
		provider: provider,
		sink:     sink,
		cmdCh:    make(chan orchestratorCmd, 64),
		ctx:      ctx,
		cancel:   cancel,
		st:       domain.PipelineState{Phase: domain.PhaseIdle},
	}

	o.sourceFeed = realtime.NewController(provider, clock, realtime.QuietPeriod,
		func() { o.post(cmdSourceDispatched{}) },
		func(ann domain.EmojiAnnotatedSentiment) { o.post(cmdSourceReading{ann: ann}) },
	)
	o.targetFeed = realtime.NewController(provider, clock, realtime.QuietPeriod,
		nil,
		func(ann domain.EmojiAnnotatedSentiment) { o.post(cmdTargetReading{ann: ann}) },
	)

	return o
}

// Start begins the actor loop and publishes the initial snapshot.
func (o *Orchestrator) Start() {
	go o.run()
	o.publishAsync()
}

func (o *Orchestrator) run() {
	for cmd := range o.cmdCh {
		switch c := cmd.(type) {
		case cmdTextChanged:
			o.handleTextChanged(c.text)
		case cmdTranslate:
			o.handleTranslate(c.sourceLang, c.targetLang)
		case cmdAppendGlyph:
			o.handleAppendGlyph(c.glyph)
		case cmdSourceDispatched:
			o.handleSourceDispatched()
		case cmdSourceReading:
			o.handleSourceReading(c.ann)
		case cmdTargetReading:
			o.handleTargetReading(c.ann)
		case cmdTranslated:
			o.handleTranslated(c)
		case cmdSuggested:
			o.handleSuggested(c)
		case cmdSnapshot:
			c.replyCh <- o.snapshot()
		case cmdStop:
			o.cancel()
			close(c.doneCh)
			return
		}
	}
}

// --- Public API ---

// OnTextChanged reports an edit of the source text.
func (o *Orchestrator) OnTextChanged(text string) {
	o.post(cmdTextChanged{text: text})
}

// Translate starts a full pipeline run. No-op for empty source text or while
// a run is already in flight.
func (o *Orchestrator) Translate(sourceLang, targetLang string) {
	o.post(cmdTranslate{sourceLang: sourceLang, targetLang: targetLang})
}

// AppendSuggestedGlyph appends one suggested glyph to the translation text
// and re-analyzes the target sentiment so the displayed reading stays
// consistent with the edited text.
func (o *Orchestrator) AppendSuggestedGlyph(glyph string) {
	o.post(cmdAppendGlyph{glyph: glyph})
}

// Snapshot returns the current pipeline snapshot.
func (o *Orchestrator) Snapshot() Snapshot {
	replyCh := make(chan Snapshot, 1)
	o.post(cmdSnapshot{replyCh: replyCh})
	select {
	case snap := <-replyCh:
		return snap
	case <-o.ctx.Done():
		return Snapshot{State: domain.PipelineState{Phase: domain.PhaseIdle}}
	}
}

// Stop shuts the actor down. Pending provider responses are dropped.
func (o *Orchestrator) Stop() {
	doneCh := make(chan struct{})
	select {
	case o.cmdCh <- cmdStop{doneCh: doneCh}:
		<-doneCh
	case <-o.ctx.Done():
	}
}

func (o *Orchestrator) post(cmd orchestratorCmd) {
	select {
	case o.cmdCh <- cmd:
	case <-o.ctx.Done():
	}
}

// --- Handlers (actor goroutine only) ---

func (o *Orchestrator) handleTextChanged(text string) {
	if text == o.st.SourceText {
		return
	}

	o.gen++
	o.targetPending = false
	o.st.SourceText = text

	if o.st.Phase != domain.PhaseIdle {
		// Edit-invalidation: every derived field falls in one atomic
		// update. If a run is in flight its result will arrive with a
		// stale generation and be dropped.
		o.clearDerived()
		o.st.Phase = domain.PhaseIdle
		o.sourceFeed.Resume()
	}
	o.sourceFeed.OnTextChanged(text)
	o.publish()
}

func (o *Orchestrator) handleTranslate(sourceLang, targetLang string) {
	if strings.TrimSpace(o.st.SourceText) == "" {
		return
	}
	if !o.st.Phase.CanStartRun() {
		return
	}

	o.st.SourceLanguage = sourceLang
	o.st.TargetLanguage = targetLang
	o.clearDerived()
	o.targetPending = false
	o.st.Phase = domain.PhaseTranslating
	o.sourceFeed.Suspend()
	o.publish()

	gen := o.gen
	text := o.st.SourceText
	targetName := domain.LanguageName(targetLang)
	if targetName == "" {
		targetName = targetLang
	}

	go func() {
		result, err := o.provider.TranslateAndAnalyze(o.ctx, text, sourceLang, targetName)
		o.post(cmdTranslated{gen: gen, result: result, err: err})
	}()
}

func (o *Orchestrator) handleTranslated(c cmdTranslated) {
	if c.gen != o.gen {
		// The source text changed mid-run; handleTextChanged already
		// reset the state, so the result simply disappears.
		return
	}
	if o.st.Phase != domain.PhaseTranslating {
		return
	}

	if c.err != nil {
		slog.Error("Translation pipeline failed", "session_id", o.id.String(), "error", c.err)
		o.st.Phase = domain.PhaseFailed
		o.st.FailureNotice = FailureNotice
		o.sourceFeed.Resume()
		o.publish()
		return
	}

	res := c.result
	translated := res.TranslatedText
	o.st.Translation = &translated
	o.st.SourceSentiment = annotate(res.SourceSentiment)
	o.st.TargetSentiment = annotate(res.TargetSentiment)
	o.st.NuanceNote = cloneString(res.NuanceNote)
	o.st.StyleHints = cloneStyleHints(res.StyleHints)
	o.st.Phase = domain.PhaseAnalyzingTranslation
	o.publish()

	delta := math.Abs(res.SourceSentiment.Valence - res.TargetSentiment.Valence)
	if delta <= SuggestionDeltaThreshold {
		o.st.Phase = domain.PhaseReady
		o.sourceFeed.Resume()
		o.publish()
		return
	}

	o.st.Phase = domain.PhaseSuggestingEmoji
	o.publish()

	gen := o.gen
	req := domain.EmojiGapRequest{
		SourceText:     o.st.SourceText,
		TranslatedText: res.TranslatedText,
		SourceValence:  res.SourceSentiment.Valence,
		TargetValence:  res.TargetSentiment.Valence,
	}
	go func() {
		suggestion, err := o.provider.SuggestEmojiGap(o.ctx, req)
		o.post(cmdSuggested{gen: gen, suggestion: suggestion, err: err})
	}()
}

func (o *Orchestrator) handleSuggested(c cmdSuggested) {
	if c.gen != o.gen {
		return
	}
	if o.st.Phase != domain.PhaseSuggestingEmoji {
		return
	}

	if c.err != nil {
		// Non-fatal: the translation itself is valid, only the
		// enrichment is omitted.
		slog.Warn("Emoji gap suggestion failed", "session_id", o.id.String(), "error", c.err)
	} else {
		suggestion := c.suggestion
		suggestion.Glyphs = append([]string(nil), suggestion.Glyphs...)
		o.st.Suggestion = &suggestion
	}

	o.st.Phase = domain.PhaseReady
	o.sourceFeed.Resume()
	o.publish()
}

func (o *Orchestrator) handleAppendGlyph(glyph string) {
	if glyph == "" || o.st.Phase != domain.PhaseReady || o.st.Translation == nil {
		return
	}

	edited := *o.st.Translation + glyph
	o.st.Translation = &edited
	o.st.TargetAnalyzing = true
	o.targetPending = true
	o.targetFeed.OnTextChanged(edited)
	o.publish()
}

func (o *Orchestrator) handleSourceDispatched() {
	if o.st.Phase != domain.PhaseIdle && o.st.Phase != domain.PhaseDebouncedAnalyzing {
		return
	}
	o.st.Phase = domain.PhaseDebouncedAnalyzing
	o.st.SourceAnalyzing = true
	o.publish()
}

func (o *Orchestrator) handleSourceReading(ann domain.EmojiAnnotatedSentiment) {
	if o.st.Phase != domain.PhaseIdle && o.st.Phase != domain.PhaseDebouncedAnalyzing {
		return
	}
	o.st.SourceSentiment = &ann
	o.st.SourceAnalyzing = false
	o.st.Phase = domain.PhaseIdle
	o.publish()
}

func (o *Orchestrator) handleTargetReading(ann domain.EmojiAnnotatedSentiment) {
	if !o.targetPending || o.st.Phase != domain.PhaseReady {
		return
	}
	o.targetPending = false
	o.st.TargetSentiment = &ann
	o.st.TargetAnalyzing = false
	o.publish()
}

// --- Snapshot plumbing ---

func (o *Orchestrator) clearDerived() {
	o.st.SourceSentiment = nil
	o.st.TargetSentiment = nil
	o.st.Translation = nil
	o.st.NuanceNote = nil
	o.st.StyleHints = nil
	o.st.Suggestion = nil
	o.st.SourceAnalyzing = false
	o.st.TargetAnalyzing = false
	o.st.FailureNotice = ""
}

func (o *Orchestrator) snapshot() Snapshot {
	snap := Snapshot{State: cloneState(o.st)}
	if o.st.SourceSentiment != nil && o.st.TargetSentiment != nil {
		v := plot.Comparison(o.st.SourceSentiment.Reading, o.st.TargetSentiment.Reading)
		snap.Comparison = &v
	}
	return snap
}

func (o *Orchestrator) publish() {
	o.sink.Publish(o.id, o.snapshot())
}

// publishAsync pushes the initial snapshot through the actor so it cannot
// race a command already in flight.
func (o *Orchestrator) publishAsync() {
	replyCh := make(chan Snapshot, 1)
	o.post(cmdSnapshot{replyCh: replyCh})
	select {
	case snap := <-replyCh:
		o.sink.Publish(o.id, snap)
	case <-o.ctx.Done():
	}
}

func annotate(r domain.SentimentReading) *domain.EmojiAnnotatedSentiment {
	return &domain.EmojiAnnotatedSentiment{Reading: r, Glyph: emoji.Match(r.Valence)}
}

func cloneState(st domain.PipelineState) domain.PipelineState {
	if st.SourceSentiment != nil {
		v := *st.SourceSentiment
		st.SourceSentiment = &v
	}
	if st.TargetSentiment != nil {
		v := *st.TargetSentiment
		st.TargetSentiment = &v
	}
	st.Translation = cloneString(st.Translation)
	st.NuanceNote = cloneString(st.NuanceNote)
	st.StyleHints = cloneStyleHints(st.StyleHints)
	if st.Suggestion != nil {
		v := *st.Suggestion
		v.Glyphs = append([]string(nil), v.Glyphs...)
		st.Suggestion = &v
	}
	return st
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneStyleHints(h *domain.StyleHints) *domain.StyleHints {
	if h == nil {
		return nil
	}
	v := *h
	return &v
}
