// Package combine blends the COT positioning score with the seasonality score
// into one final bias, with a full contribution breakdown for display.
package combine

import (
	"fmt"

	"github.com/sawpanic/cotlens/internal/domain/bias"
)

// Config holds the combination parameters. Weights are not required to sum
// to 1, though the defaults do. The boost values are product-tuned constants.
type Config struct {
	CotWeight                float64 `json:"cot_weight" yaml:"cot_weight"`
	SeasonalityWeight        float64 `json:"seasonality_weight" yaml:"seasonality_weight"`
	ConvictionBoostThreshold float64 `json:"conviction_boost_threshold" yaml:"conviction_boost_threshold"`
	ConvictionBoostAmount    float64 `json:"conviction_boost_amount" yaml:"conviction_boost_amount"`
}

// DefaultConfig returns the 70/30 weighting with a boost of 10 above 70.
func DefaultConfig() Config {
	return Config{
		CotWeight:                0.7,
		SeasonalityWeight:        0.3,
		ConvictionBoostThreshold: 70,
		ConvictionBoostAmount:    10,
	}
}

// OutOfRangeError reports an input score outside its defined domain. This is
// a caller bug and is never silently clamped.
type OutOfRangeError struct {
	Input    string
	Value    float64
	Min, Max float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s score must be in range [%g, %g], got %g", e.Input, e.Min, e.Max, e.Value)
}

// Breakdown exposes every intermediate quantity of the combination, exact and
// unrounded, for auditability.
type Breakdown struct {
	CotScore                float64    `json:"cot_score"`
	CotBias                 bias.Label `json:"cot_bias"`
	CotContribution         float64    `json:"cot_contribution"`
	SeasonalityScore        float64    `json:"seasonality_score"`
	SeasonalityBias         bias.Label `json:"seasonality_bias"`
	SeasonalityContribution float64    `json:"seasonality_contribution"`
	BaseScore               float64    `json:"base_score"`
	ConvictionBoostApplied  bool       `json:"conviction_boost_applied"`
	ConvictionBoostAmount   float64    `json:"conviction_boost_amount"`
}

// Result is the combiner output. Stateless, recomputed whenever either input
// score or the config changes.
type Result struct {
	FinalScore float64    `json:"final_score"`
	FinalBias  bias.Label `json:"final_bias"`
	Breakdown  Breakdown  `json:"breakdown"`
}

func sign(v float64) int {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

// ComputeFinalBias applies the configured weights to both scores, adds a
// signed conviction boost when the COT score is at or beyond the threshold
// and both signals agree in (non-zero) sign, and clamps to [-100, 100].
// Pure function with no side effects.
func ComputeFinalBias(cotScore, seasonalityScore float64, cotBias, seasonalityBias bias.Label, cfg Config) (*Result, error) {
	if cotScore < -100 || cotScore > 100 {
		return nil, &OutOfRangeError{Input: "cot", Value: cotScore, Min: -100, Max: 100}
	}
	if seasonalityScore < -50 || seasonalityScore > 50 {
		return nil, &OutOfRangeError{Input: "seasonality", Value: seasonalityScore, Min: -50, Max: 50}
	}

	cotContribution := cotScore * cfg.CotWeight
	seasonalityContribution := seasonalityScore * cfg.SeasonalityWeight
	baseScore := cotContribution + seasonalityContribution

	cotSign := sign(cotScore)
	boostApplied := abs(cotScore) >= cfg.ConvictionBoostThreshold &&
		cotSign == sign(seasonalityScore) &&
		cotSign != 0

	boostAmount := 0.0
	if boostApplied {
		boostAmount = float64(cotSign) * cfg.ConvictionBoostAmount
	}

	finalScore := clamp(baseScore+boostAmount, -100, 100)

	return &Result{
		FinalScore: finalScore,
		FinalBias:  bias.FromScore(finalScore),
		Breakdown: Breakdown{
			CotScore:                cotScore,
			CotBias:                 cotBias,
			CotContribution:         cotContribution,
			SeasonalityScore:        seasonalityScore,
			SeasonalityBias:         seasonalityBias,
			SeasonalityContribution: seasonalityContribution,
			BaseScore:               baseScore,
			ConvictionBoostApplied:  boostApplied,
			ConvictionBoostAmount:   boostAmount,
		},
	}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
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
