// Package bias defines the shared 5-level sentiment label and the
// score-to-label mapping used by both the COT analyzer and the combiner.
package bias

// Label is an ordered sentiment level derived from a numeric score.
type Label string

const (
	StronglyBullish Label = "Strongly Bullish"
	Bullish         Label = "Bullish"
	Neutral         Label = "Neutral"
	Bearish         Label = "Bearish"
	StronglyBearish Label = "Strongly Bearish"
)

// FromScore maps a score in [-100, 100] to its bias label. The five ranges
// partition the domain at 60/25/-25/-60 with the extremes checked first.
func FromScore(score float64) Label {
	switch {
	case score >= 60:
		return StronglyBullish
	case score >= 25:
		return Bullish
	case score <= -60:
		return StronglyBearish
	case score <= -25:
		return Bearish
	default:
		return Neutral
	}
}
