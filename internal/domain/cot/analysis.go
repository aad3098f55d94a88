// Package cot derives a bounded directional score from weekly Commitment of
// Traders positioning reports.
package cot

import (
	"errors"
	"math"

	"github.com/sawpanic/cotlens/internal/domain/bias"
)

// ErrInsufficientHistory is returned when fewer than two weekly records are
// supplied. Callers must guarantee at least current + previous week.
var ErrInsufficientHistory = errors.New("cot: need at least 2 weeks of history for analysis")

const (
	extremeUpper = 90
	extremeLower = 10
	crowdedUpper = 85
	crowdedLower = 15

	// Non-commercial accumulation above this fraction of the current net
	// position is treated as aggressive late-trend buying.
	aggressiveFraction = 0.15
)

// cotIndex places current within [min, max] on a 0-100 scale. A degenerate
// range (no historical variation) is defined as 50.
func cotIndex(current, historicalMin, historicalMax int64) float64 {
	if historicalMax == historicalMin {
		return 50
	}
	return float64(current-historicalMin) / float64(historicalMax-historicalMin) * 100
}

// isExtreme reports whether an index sits in the top or bottom decile of its
// historical range.
func isExtreme(index float64) bool {
	return index >= extremeUpper || index <= extremeLower
}

// isCrowded reports whether large specs are at crowded positioning levels.
func isCrowded(index float64) bool {
	return index >= crowdedUpper || index <= crowdedLower
}

func netRange(history []WeeklyRecord, net func(WeeklyRecord) int64) (min, max int64) {
	min, max = net(history[0]), net(history[0])
	for _, h := range history[1:] {
		n := net(h)
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	return min, max
}

func commercialNet(r WeeklyRecord) int64    { return r.CommercialLong - r.CommercialShort }
func nonCommercialNet(r WeeklyRecord) int64 { return r.NonCommercialLong - r.NonCommercialShort }
func smallTraderNet(r WeeklyRecord) int64   { return r.SmallTraderLong - r.SmallTraderShort }

// Analyze computes net positions, week-over-week deltas, historical COT
// indices and crowding flags from the supplied history window, then applies
// the weighted heuristic to produce a score in [-100, 100] and its bias
// label. Deltas use the last two records; the historical range spans the
// entire window. Notes are left empty for the annotator.
func Analyze(history []WeeklyRecord) (*Analysis, error) {
	if len(history) < 2 {
		return nil, ErrInsufficientHistory
	}

	current := history[len(history)-1]
	previous := history[len(history)-2]

	comNet := commercialNet(current)
	comNetChange := comNet - commercialNet(previous)

	specNet := nonCommercialNet(current)
	specNetChange := specNet - nonCommercialNet(previous)

	retailNet := smallTraderNet(current)

	comMin, comMax := netRange(history, commercialNet)
	specMin, specMax := netRange(history, nonCommercialNet)
	retailMin, retailMax := netRange(history, smallTraderNet)

	comIndex := cotIndex(comNet, comMin, comMax)
	specIndex := cotIndex(specNet, specMin, specMax)
	retailIndex := cotIndex(retailNet, retailMin, retailMax)

	comExtreme := isExtreme(comIndex)
	specExtreme := isExtreme(specIndex)
	specCrowded := isCrowded(specIndex)
	retailExtreme := isExtreme(retailIndex)

	score := 0.0

	// Commercials: follow the hedgers.
	if comNetChange > 0 {
		score += 20
	} else if comNetChange < 0 {
		score -= 20
	}
	if comExtreme {
		score += 10
	}
	if comExtreme && specCrowded {
		score += 15
	}

	// Non-commercials: moderate accumulation is constructive, aggressive
	// late-trend buying is penalized. Only the aggressive threshold gates
	// the branch.
	aggressiveThreshold := math.Abs(float64(specNet)) * aggressiveFraction
	if specNetChange > 0 {
		if math.Abs(float64(specNetChange)) <= aggressiveThreshold {
			score += 10
		} else {
			score -= 10
		}
	}

	// Extreme spec positioning is a contrarian warning in either direction.
	if specExtreme {
		score -= 20
	}

	// De-risking after being extremely long.
	if specIndex > crowdedUpper && specNetChange < 0 {
		score += 10
	}

	// Small traders: fade retail at extremes.
	if retailExtreme {
		if retailNet > 0 {
			score -= 10
		} else {
			score += 10
		}
	}

	score = clamp(score, -100, 100)

	return &Analysis{
		Score: score,
		Bias:  bias.FromScore(score),
		Notes: []string{},
		Metrics: Metrics{
			Commercial: CommercialMetrics{
				NetPosition: comNet,
				NetChange:   comNetChange,
				IsExtreme:   comExtreme,
				CotIndex:    comIndex,
			},
			NonCommercial: NonCommercialMetrics{
				NetPosition: specNet,
				NetChange:   specNetChange,
				IsExtreme:   specExtreme,
				IsCrowded:   specCrowded,
				CotIndex:    specIndex,
			},
			SmallTrader: SmallTraderMetrics{
				NetPosition: retailNet,
				IsExtreme:   retailExtreme,
				CotIndex:    retailIndex,
			},
			OpenInterest:       current.OpenInterest,
			OpenInterestChange: current.OpenInterest - previous.OpenInterest,
		},
	}, nil
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
