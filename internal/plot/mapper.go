// Package plot projects three-axis sentiment readings onto 2D coordinates
// and colors for visualization.
package plot

import "github.com/bakeyeon/sentiment-translator/internal/domain"

// Point is a 2D plot coordinate. X carries formality, Y carries intimacy;
// valence is conveyed separately via color and glyph, not position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ComparisonVector holds everything needed to render a gradient line between
// two readings. It is purely derived and recomputed for every pair, never
// cached.
type ComparisonVector struct {
	From    Point   `json:"from"`
	To      Point   `json:"to"`
	FromHue float64 `json:"from_hue"`
	ToHue   float64 `json:"to_hue"`
}

// PointFor maps a reading to plot coordinates. Non-lossy pass-through of the
// formality and intimacy axes.
func PointFor(r domain.SentimentReading) Point {
	return Point{X: r.Formality, Y: r.Intimacy}
}

// HueFor maps valence linearly onto a hue: -1 -> 0 (red), 0 -> 60 (yellow),
// 1 -> 120 (green). Out-of-range input clamps to [0, 120].
func HueFor(valence float64) float64 {
	hue := 120 * (valence*0.5 + 0.5)
	if hue < 0 {
		return 0
	}
	if hue > 120 {
		return 120
	}
	return hue
}

// Comparison returns the two plot points and hues for a source/target pair.
func Comparison(a, b domain.SentimentReading) ComparisonVector {
	return ComparisonVector{
		From:    PointFor(a),
		To:      PointFor(b),
		FromHue: HueFor(a.Valence),
		ToHue:   HueFor(b.Valence),
	}
}
