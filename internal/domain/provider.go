package domain

import "context"

// EmojiGapRequest carries everything the provider needs to explain a tonal
// gap and propose compensating glyphs.
type EmojiGapRequest struct {
	SourceText     string
	TranslatedText string
	SourceValence  float64
	TargetValence  float64
}

// AnalysisProvider is the external text-analysis collaborator. The core
// treats it as a black box that may fail or return malformed data.
//
// Implementations must short-circuit empty or whitespace-only text in
// AnalyzeSentiment to NeutralReading() without a network call, and must pass
// the source-language code through unchanged so particle-aware request
// shaping can apply.
type AnalysisProvider interface {
	AnalyzeSentiment(ctx context.Context, text string) (SentimentReading, error)
	TranslateAndAnalyze(ctx context.Context, text, sourceLangCode, targetLangName string) (TranslationResult, error)
	SuggestEmojiGap(ctx context.Context, req EmojiGapRequest) (EmojiSuggestion, error)
}
