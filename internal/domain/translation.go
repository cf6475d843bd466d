package domain

// StyleHints classifies the register of each side of a translation, e.g.
// spoken vs. written.
type StyleHints struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// TranslationResult is the atomic outcome of one combined
// translate-and-analyze provider call. It is created whole or not at all: if
// any required field is missing from the provider response, the entire result
// is treated as failed. NuanceNote and StyleHints are optional; nil means
// absent.
type TranslationResult struct {
	TranslatedText  string           `json:"translated_text"`
	SourceSentiment SentimentReading `json:"source_sentiment"`
	TargetSentiment SentimentReading `json:"target_sentiment"`
	NuanceNote      *string          `json:"nuance_note,omitempty"`
	StyleHints      *StyleHints      `json:"style_hints,omitempty"`
}

// SuggestionGlyphCount is the exact number of candidate glyphs a gap
// suggestion carries.
const SuggestionGlyphCount = 3

// EmojiSuggestion explains a tonal gap between source and translation and
// offers exactly three candidate glyphs to append to the translation.
// Suggestions are ephemeral: recomputed from scratch each pipeline run and
// discarded when the source text changes.
type EmojiSuggestion struct {
	Explanation string   `json:"explanation"`
	Glyphs      []string `json:"glyphs"`
}
