package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakeyeon/sentiment-translator/internal/domain"
	"github.com/bakeyeon/sentiment-translator/internal/realtime"
)

// --- Mocks ---

type translateCall struct {
	Text       string
	SourceLang string
	TargetName string
}

type mockProvider struct {
	mu sync.Mutex

	analyzeCalls   []string
	translateCalls []translateCall
	suggestCalls   []domain.EmojiGapRequest

	analyzeResult   domain.SentimentReading
	analyzeErr      error
	translateResult domain.TranslationResult
	translateErr    error
	suggestResult   domain.EmojiSuggestion
	suggestErr      error

	translateBlockCh chan struct{} // when set, TranslateAndAnalyze waits
}

func (m *mockProvider) AnalyzeSentiment(_ context.Context, text string) (domain.SentimentReading, error) {
	m.mu.Lock()
	m.analyzeCalls = append(m.analyzeCalls, text)
	reading, err := m.analyzeResult, m.analyzeErr
	m.mu.Unlock()
	return reading, err
}

func (m *mockProvider) TranslateAndAnalyze(_ context.Context, text, sourceLang, targetName string) (domain.TranslationResult, error) {
	m.mu.Lock()
	m.translateCalls = append(m.translateCalls, translateCall{Text: text, SourceLang: sourceLang, TargetName: targetName})
	blockCh := m.translateBlockCh
	result, err := m.translateResult, m.translateErr
	m.mu.Unlock()

	if blockCh != nil {
		<-blockCh
	}
	return result, err
}

func (m *mockProvider) SuggestEmojiGap(_ context.Context, req domain.EmojiGapRequest) (domain.EmojiSuggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suggestCalls = append(m.suggestCalls, req)
	return m.suggestResult, m.suggestErr
}

func (m *mockProvider) getTranslateCalls() []translateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]translateCall, len(m.translateCalls))
	copy(cp, m.translateCalls)
	return cp
}

func (m *mockProvider) getSuggestCalls() []domain.EmojiGapRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]domain.EmojiGapRequest, len(m.suggestCalls))
	copy(cp, m.suggestCalls)
	return cp
}

func (m *mockProvider) getAnalyzeCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.analyzeCalls))
	copy(cp, m.analyzeCalls)
	return cp
}

type recordingSink struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (s *recordingSink) Publish(_ uuid.UUID, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
}

func (s *recordingSink) all() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Snapshot, len(s.snapshots))
	copy(cp, s.snapshots)
	return cp
}

// waitFor polls until a published snapshot satisfies the predicate and
// returns the first match.
func (s *recordingSink) waitFor(t *testing.T, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	var match Snapshot
	require.Eventually(t, func() bool {
		for _, snap := range s.all() {
			if pred(snap) {
				match = snap
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)
	return match
}

func phaseIs(phase domain.Phase) func(Snapshot) bool {
	return func(snap Snapshot) bool { return snap.State.Phase == phase }
}

// --- Helpers ---

func okTranslation(sourceValence, targetValence float64) domain.TranslationResult {
	return domain.TranslationResult{
		TranslatedText:  "Dieses neue Café hat eine wunderbare Atmosphäre",
		SourceSentiment: domain.SentimentReading{Valence: sourceValence, Intimacy: 70, Formality: 30},
		TargetSentiment: domain.SentimentReading{Valence: targetValence, Intimacy: 50, Formality: 60},
	}
}

type testOrchestrator struct {
	orch     *Orchestrator
	clock    *clockwork.FakeClock
	provider *mockProvider
	sink     *recordingSink
}

func newTestOrchestrator(t *testing.T, provider *mockProvider) *testOrchestrator {
	t.Helper()
	fakeClock := clockwork.NewFakeClock()
	sink := &recordingSink{}
	orch := NewOrchestrator(uuid.New(), provider, sink, fakeClock)
	orch.Start()
	t.Cleanup(orch.Stop)
	return &testOrchestrator{orch: orch, clock: fakeClock, provider: provider, sink: sink}
}

// --- Tests ---

func TestOrchestrator_SmallDeltaReachesReadyWithoutSuggestion(t *testing.T) {
	provider := &mockProvider{translateResult: okTranslation(0.5, 0.4)}
	to := newTestOrchestrator(t, provider)

	to.orch.OnTextChanged("This new café has wonderful ambiance")
	to.orch.Translate("en", "de")

	ready := to.sink.waitFor(t, phaseIs(domain.PhaseReady))
	require.NotNil(t, ready.State.Translation)
	assert.Equal(t, "Dieses neue Café hat eine wunderbare Atmosphäre", *ready.State.Translation)
	require.NotNil(t, ready.State.SourceSentiment)
	require.NotNil(t, ready.State.TargetSentiment)
	assert.Nil(t, ready.State.Suggestion)
	assert.Empty(t, provider.getSuggestCalls())

	calls := provider.getTranslateCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "en", calls[0].SourceLang)
	assert.Equal(t, "German", calls[0].TargetName)
}

func TestOrchestrator_PhasesProgressInOrder(t *testing.T) {
	provider := &mockProvider{translateResult: okTranslation(0.5, 0.4)}
	to := newTestOrchestrator(t, provider)

	to.orch.OnTextChanged("hello")
	to.orch.Translate("en", "fr")
	to.sink.waitFor(t, phaseIs(domain.PhaseReady))

	var phases []domain.Phase
	for _, snap := range to.sink.all() {
		phases = append(phases, snap.State.Phase)
	}
	assert.Contains(t, phases, domain.PhaseTranslating)
	assert.Contains(t, phases, domain.PhaseAnalyzingTranslation)

	// Translating must come before AnalyzingTranslation.
	iTranslating, iAnalyzing := -1, -1
	for i, p := range phases {
		if p == domain.PhaseTranslating && iTranslating == -1 {
			iTranslating = i
		}
		if p == domain.PhaseAnalyzingTranslation && iAnalyzing == -1 {
			iAnalyzing = i
		}
	}
	require.NotEqual(t, -1, iTranslating)
	require.NotEqual(t, -1, iAnalyzing)
	assert.Less(t, iTranslating, iAnalyzing)
}

func TestOrchestrator_LargeDeltaRequestsSuggestion(t *testing.T) {
	provider := &mockProvider{
		translateResult: okTranslation(0.8, 0.3),
		suggestResult: domain.EmojiSuggestion{
			Explanation: "The translation reads flatter than the original.",
			Glyphs:      []string{"✨", "😊", "☕"},
		},
	}
	to := newTestOrchestrator(t, provider)

	to.orch.OnTextChanged("This new café has wonderful ambiance")
	to.orch.Translate("en", "de")

	ready := to.sink.waitFor(t, phaseIs(domain.PhaseReady))
	require.NotNil(t, ready.State.Suggestion)
	assert.Len(t, ready.State.Suggestion.Glyphs, domain.SuggestionGlyphCount)

	// Source valence 0.8 maps to the most positive-leaning nearby glyph.
	require.NotNil(t, ready.State.SourceSentiment)
	assert.Equal(t, "🤩", ready.State.SourceSentiment.Glyph)

	require.Len(t, provider.getSuggestCalls(), 1)
	req := provider.getSuggestCalls()[0]
	assert.Equal(t, 0.8, req.SourceValence)
	assert.Equal(t, 0.3, req.TargetValence)

	// Both readings present means the comparison vector is too.
	require.NotNil(t, ready.Comparison)
	assert.Equal(t, 30.0, ready.Comparison.From.X)
	assert.Equal(t, 70.0, ready.Comparison.From.Y)
}

func TestOrchestrator_DeltaExactlyAtThresholdSkipsSuggestion(t *testing.T) {
	provider := &mockProvider{translateResult: okTranslation(0.5, 0.3)}
	to := newTestOrchestrator(t, provider)

	to.orch.OnTextChanged("borderline")
	to.orch.Translate("en", "es")

	ready := to.sink.waitFor(t, phaseIs(domain.PhaseReady))
	assert.Nil(t, ready.State.Suggestion)
	assert.Empty(t, provider.getSuggestCalls())
}

func TestOrchestrator_TranslateFailureSurfacesGenericNotice(t *testing.T) {
	provider := &mockProvider{translateErr: errors.New("api key rejected: sk-...")}
	to := newTestOrchestrator(t, provider)

	to.orch.OnTextChanged("hello")
	to.orch.Translate("en", "ja")

	failed := to.sink.waitFor(t, phaseIs(domain.PhaseFailed))
	assert.Equal(t, FailureNotice, failed.State.FailureNotice)
	assert.NotContains(t, failed.State.FailureNotice, "sk-")
	assert.Nil(t, failed.State.Translation)
}

func TestOrchestrator_SuggestionFailureStillReachesReady(t *testing.T) {
	provider := &mockProvider{
		translateResult: okTranslation(0.9, 0.1),
		suggestErr:      errors.New("rate limited"),
	}
	to := newTestOrchestrator(t, provider)

	to.orch.OnTextChanged("hello")
	to.orch.Translate("en", "ko")

	ready := to.sink.waitFor(t, phaseIs(domain.PhaseReady))
	require.NotNil(t, ready.State.Translation)
	require.NotNil(t, ready.State.SourceSentiment)
	require.NotNil(t, ready.State.TargetSentiment)
	assert.Nil(t, ready.State.Suggestion)
}

func TestOrchestrator_EmptySourceTextIsNoOp(t *testing.T) {
	provider := &mockProvider{translateResult: okTranslation(0.5, 0.4)}
	to := newTestOrchestrator(t, provider)

	to.orch.OnTextChanged("   ")
	to.orch.Translate("en", "de")

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, provider.getTranslateCalls())
	for _, snap := range to.sink.all() {
		assert.NotEqual(t, domain.PhaseTranslating, snap.State.Phase)
	}
}

func TestOrchestrator_TranslateWhileRunningIsNoOp(t *testing.T) {
	blockCh := make(chan struct{})
	provider := &mockProvider{
		translateResult:  okTranslation(0.5, 0.4),
		translateBlockCh: blockCh,
	}
	to := newTestOrchestrator(t, provider)

	to.orch.OnTextChanged("hello")
	to.orch.Translate("en", "de")
	to.sink.waitFor(t, phaseIs(domain.PhaseTranslating))

	to.orch.Translate("en", "fr")
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, provider.getTranslateCalls(), 1)

	close(blockCh)
	to.sink.waitFor(t, phaseIs(domain.PhaseReady))
}

func TestOrchestrator_EditInvalidatesEveryDerivedField(t *testing.T) {
	provider := &mockProvider{
		translateResult: func() domain.TranslationResult {
			res := okTranslation(0.8, 0.3)
			note := "The particle 'doch' softens the statement."
			res.NuanceNote = &note
			res.StyleHints = &domain.StyleHints{Source: "spoken", Target: "written"}
			return res
		}(),
		suggestResult: domain.EmojiSuggestion{Explanation: "gap", Glyphs: []string{"✨", "😊", "☕"}},
	}
	to := newTestOrchestrator(t, provider)

	to.orch.OnTextChanged("hello")
	to.orch.Translate("de", "en")
	ready := to.sink.waitFor(t, phaseIs(domain.PhaseReady))
	require.NotNil(t, ready.State.NuanceNote)
	require.NotNil(t, ready.State.Suggestion)

	to.orch.OnTextChanged("hello again")

	invalidated := to.sink.waitFor(t, func(snap Snapshot) bool {
		return snap.State.SourceText == "hello again"
	})
	assert.Equal(t, domain.PhaseIdle, invalidated.State.Phase)
	assert.Nil(t, invalidated.State.Translation)
	assert.Nil(t, invalidated.State.SourceSentiment)
	assert.Nil(t, invalidated.State.TargetSentiment)
	assert.Nil(t, invalidated.State.Suggestion)
	assert.Nil(t, invalidated.State.NuanceNote)
	assert.Nil(t, invalidated.State.StyleHints)
	assert.Nil(t, invalidated.Comparison)
}

func TestOrchestrator_StaleRunResultNeverPublished(t *testing.T) {
	blockCh := make(chan struct{})
	provider := &mockProvider{
		translateResult:  okTranslation(0.5, 0.4),
		translateBlockCh: blockCh,
	}
	to := newTestOrchestrator(t, provider)

	to.orch.OnTextChanged("original")
	to.orch.Translate("en", "de")
	to.sink.waitFor(t, phaseIs(domain.PhaseTranslating))

	// Edit while the run is in flight, then let the run complete.
	to.orch.OnTextChanged("edited")
	to.sink.waitFor(t, func(snap Snapshot) bool { return snap.State.SourceText == "edited" })
	close(blockCh)

	time.Sleep(50 * time.Millisecond)
	for _, snap := range to.sink.all() {
		if snap.State.Translation != nil {
			t.Fatalf("stale translation was published: %+v", snap.State)
		}
	}
}

func TestOrchestrator_DebouncedRealtimeReadingFlowsToSnapshot(t *testing.T) {
	provider := &mockProvider{analyzeResult: domain.SentimentReading{Valence: 0.6, Intimacy: 80, Formality: 20}}
	to := newTestOrchestrator(t, provider)

	to.orch.OnTextChanged("hey there")
	to.sink.waitFor(t, func(snap Snapshot) bool { return snap.State.SourceText == "hey there" })

	to.clock.Advance(realtime.QuietPeriod)

	analyzing := to.sink.waitFor(t, phaseIs(domain.PhaseDebouncedAnalyzing))
	assert.True(t, analyzing.State.SourceAnalyzing)

	settled := to.sink.waitFor(t, func(snap Snapshot) bool {
		return snap.State.Phase == domain.PhaseIdle && snap.State.SourceSentiment != nil
	})
	assert.Equal(t, 0.6, settled.State.SourceSentiment.Reading.Valence)
	assert.Equal(t, "😁", settled.State.SourceSentiment.Glyph)
	assert.False(t, settled.State.SourceAnalyzing)

	assert.Equal(t, []string{"hey there"}, provider.getAnalyzeCalls())
}

func TestOrchestrator_AppendGlyphReanalyzesTargetSentiment(t *testing.T) {
	provider := &mockProvider{
		translateResult: okTranslation(0.8, 0.3),
		suggestResult:   domain.EmojiSuggestion{Explanation: "gap", Glyphs: []string{"✨", "😊", "☕"}},
		analyzeResult:   domain.SentimentReading{Valence: 0.6, Intimacy: 55, Formality: 45},
	}
	to := newTestOrchestrator(t, provider)

	to.orch.OnTextChanged("This new café has wonderful ambiance")
	to.orch.Translate("en", "de")
	ready := to.sink.waitFor(t, phaseIs(domain.PhaseReady))
	require.NotNil(t, ready.State.Translation)
	original := *ready.State.Translation

	to.orch.AppendSuggestedGlyph("✨")

	appended := to.sink.waitFor(t, func(snap Snapshot) bool { return snap.State.TargetAnalyzing })
	require.NotNil(t, appended.State.Translation)
	assert.Equal(t, original+"✨", *appended.State.Translation)

	to.clock.Advance(realtime.QuietPeriod)

	refreshed := to.sink.waitFor(t, func(snap Snapshot) bool {
		return !snap.State.TargetAnalyzing && snap.State.TargetSentiment != nil &&
			snap.State.TargetSentiment.Reading.Valence == 0.6
	})
	assert.Equal(t, "😁", refreshed.State.TargetSentiment.Glyph)
	assert.Contains(t, provider.getAnalyzeCalls(), original+"✨")
}

func TestOrchestrator_RetryAfterFailure(t *testing.T) {
	provider := &mockProvider{translateErr: errors.New("boom")}
	to := newTestOrchestrator(t, provider)

	to.orch.OnTextChanged("hello")
	to.orch.Translate("en", "de")
	to.sink.waitFor(t, phaseIs(domain.PhaseFailed))

	provider.mu.Lock()
	provider.translateErr = nil
	provider.translateResult = okTranslation(0.5, 0.4)
	provider.mu.Unlock()

	to.orch.Translate("en", "de")
	ready := to.sink.waitFor(t, phaseIs(domain.PhaseReady))
	require.NotNil(t, ready.State.Translation)
	assert.Empty(t, ready.State.FailureNotice)
}
