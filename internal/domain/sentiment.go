package domain

// SentimentReading is a three-axis tone measurement produced by the analysis
// provider. Valence is polarity in [-1, 1]; intimacy and formality are
// secondary axes in [0, 100]. Readings are immutable: an edit produces a new
// reading, never an in-place mutation.
type SentimentReading struct {
	Valence   float64 `json:"valence"`
	Intimacy  float64 `json:"intimacy"`
	Formality float64 `json:"formality"`
}

// NeutralReading is the defined fallback used when analysis fails or the
// input is empty.
func NeutralReading() SentimentReading {
	return SentimentReading{Valence: 0, Intimacy: 50, Formality: 50}
}

// EmojiAnnotatedSentiment pairs a reading with its derived glyph. The glyph
// is never independently settable; it must always equal the emoji matcher's
// result for the reading's valence.
type EmojiAnnotatedSentiment struct {
	Reading SentimentReading `json:"reading"`
	Glyph   string           `json:"glyph"`
}
