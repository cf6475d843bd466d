// Package emoji maps scalar valence scores onto representative glyphs by
// nearest-neighbor search over a fixed reference table.
package emoji

// Entry is one (score, glyph) pair in the reference table.
type Entry struct {
	Score float64
	Glyph string
}

// DefaultGlyph is returned when the reference table is empty.
const DefaultGlyph = "😐"

// referenceTable is curated once at process start and kept ascending by
// score. It spans strongly negative to strongly positive; glyph choice is
// driven by valence alone, intimacy and formality do not participate.
var referenceTable = []Entry{
	{-0.958, "😡"},
	{-0.833, "😠"},
	{-0.708, "😢"},
	{-0.583, "😞"},
	{-0.458, "😟"},
	{-0.333, "😕"},
	{-0.208, "🙁"},
	{-0.083, "😐"},
	{0.083, "🙂"},
	{0.208, "😊"},
	{0.333, "😌"},
	{0.458, "😄"},
	{0.583, "😁"},
	{0.708, "🥰"},
	{0.833, "🤩"},
	{0.958, "🥳"},
}

// Match returns the glyph whose table score is nearest to the given valence.
// Callers are expected to pass values in [-1, 1] but out-of-range input
// degrades gracefully since the search is over absolute distance. Ties
// resolve to the earlier entry in ascending-score order, so the more negative
// of two equidistant candidates wins. Pure and safe to call from any
// goroutine.
func Match(score float64) string {
	return nearest(referenceTable, score)
}

// Table returns a copy of the reference table, for callers that need to
// enumerate the candidate glyphs.
func Table() []Entry {
	out := make([]Entry, len(referenceTable))
	copy(out, referenceTable)
	return out
}

func nearest(table []Entry, score float64) string {
	if len(table) == 0 {
		return DefaultGlyph
	}

	best := table[0]
	bestDist := abs(best.Score - score)
	for _, e := range table[1:] {
		// Strict less-than keeps the first minimum, which is the
		// tie-break contract.
		if d := abs(e.Score - score); d < bestDist {
			best, bestDist = e, d
		}
	}
	return best.Glyph
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
