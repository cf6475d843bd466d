package domain

// Phase is the orchestrator's lifecycle position. Idle, Ready and Failed
// accept a new translate invocation; the rest reject it to prevent
// overlapping runs.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseDebouncedAnalyzing   Phase = "debounced_analyzing"
	PhaseTranslating          Phase = "translating"
	PhaseAnalyzingTranslation Phase = "analyzing_translation"
	PhaseSuggestingEmoji      Phase = "suggesting_emoji"
	PhaseReady                Phase = "ready"
	PhaseFailed               Phase = "failed"
)

// CanStartRun reports whether a new pipeline run may start from this phase.
func (p Phase) CanStartRun() bool {
	return p == PhaseIdle || p == PhaseDebouncedAnalyzing || p == PhaseReady || p == PhaseFailed
}

// PipelineState is the single source of truth one session exposes to the
// rendering sink. It is replaced wholesale on every transition; a reader
// never observes a torn state such as new translation text paired with stale
// sentiment. Optional fields are nil when absent.
type PipelineState struct {
	Phase          Phase  `json:"phase"`
	SourceText     string `json:"source_text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`

	SourceSentiment *EmojiAnnotatedSentiment `json:"source_sentiment,omitempty"`
	TargetSentiment *EmojiAnnotatedSentiment `json:"target_sentiment,omitempty"`
	Translation     *string                  `json:"translation,omitempty"`
	NuanceNote      *string                  `json:"nuance_note,omitempty"`
	StyleHints      *StyleHints              `json:"style_hints,omitempty"`
	Suggestion      *EmojiSuggestion         `json:"suggestion,omitempty"`

	// Per-field loading indicators for the sink.
	SourceAnalyzing bool `json:"source_analyzing"`
	TargetAnalyzing bool `json:"target_analyzing"`

	// FailureNotice is a generic, user-facing message. Raw provider errors
	// are logged, never surfaced here.
	FailureNotice string `json:"failure_notice,omitempty"`
}
