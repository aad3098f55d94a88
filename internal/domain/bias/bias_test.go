package bias

import "testing"

func TestFromScore_Partition(t *testing.T) {
	testCases := []struct {
		score    float64
		expected Label
	}{
		{100, StronglyBullish},
		{60, StronglyBullish},
		{59.999, Bullish},
		{25, Bullish},
		{24.999, Neutral},
		{0, Neutral},
		{-24.999, Neutral},
		{-25, Bearish},
		{-59.999, Bearish},
		{-60, StronglyBearish},
		{-100, StronglyBearish},
	}

	for _, tc := range testCases {
		if got := FromScore(tc.score); got != tc.expected {
			t.Errorf("FromScore(%v): expected %q, got %q", tc.score, tc.expected, got)
		}
	}
}

func TestFromScore_ExactlyOneLabel(t *testing.T) {
	// Sweep the domain: every score maps to exactly one label with no gaps.
	for score := -100.0; score <= 100.0; score += 0.5 {
		label := FromScore(score)
		switch label {
		case StronglyBullish, Bullish, Neutral, Bearish, StronglyBearish:
		default:
			t.Fatalf("FromScore(%v) returned unknown label %q", score, label)
		}
	}
}
