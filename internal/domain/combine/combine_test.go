package combine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cotlens/internal/domain/bias"
)

func TestComputeFinalBias_BoostApplied(t *testing.T) {
	result, err := ComputeFinalBias(80, 40, bias.StronglyBullish, bias.StronglyBullish, DefaultConfig())
	require.NoError(t, err)

	b := result.Breakdown
	assert.InDelta(t, 56.0, b.CotContribution, 1e-9)
	assert.InDelta(t, 12.0, b.SeasonalityContribution, 1e-9)
	assert.InDelta(t, 68.0, b.BaseScore, 1e-9)
	assert.True(t, b.ConvictionBoostApplied)
	assert.Equal(t, 10.0, b.ConvictionBoostAmount)

	assert.InDelta(t, 78.0, result.FinalScore, 1e-9)
	assert.Equal(t, bias.StronglyBullish, result.FinalBias)
}

func TestComputeFinalBias_ZeroSeasonalityNeverBoosts(t *testing.T) {
	result, err := ComputeFinalBias(-100, 0, bias.StronglyBearish, bias.Neutral, DefaultConfig())
	require.NoError(t, err)

	assert.False(t, result.Breakdown.ConvictionBoostApplied)
	assert.Equal(t, 0.0, result.Breakdown.ConvictionBoostAmount)
	assert.InDelta(t, -70.0, result.FinalScore, 1e-9)
	assert.Equal(t, bias.StronglyBearish, result.FinalBias)
}

func TestComputeFinalBias_SignDisagreementNeverBoosts(t *testing.T) {
	result, err := ComputeFinalBias(90, -30, bias.StronglyBullish, bias.Bearish, DefaultConfig())
	require.NoError(t, err)

	assert.False(t, result.Breakdown.ConvictionBoostApplied)
	assert.InDelta(t, 90*0.7-30*0.3, result.FinalScore, 1e-9)
}

func TestComputeFinalBias_BelowThresholdNeverBoosts(t *testing.T) {
	result, err := ComputeFinalBias(69.999, 40, bias.StronglyBullish, bias.StronglyBullish, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, result.Breakdown.ConvictionBoostApplied)

	// Exactly at the threshold boosts.
	result, err = ComputeFinalBias(70, 40, bias.StronglyBullish, bias.StronglyBullish, DefaultConfig())
	require.NoError(t, err)
	assert.True(t, result.Breakdown.ConvictionBoostApplied)
}

func TestComputeFinalBias_NegativeBoostDirection(t *testing.T) {
	result, err := ComputeFinalBias(-80, -40, bias.StronglyBearish, bias.StronglyBearish, DefaultConfig())
	require.NoError(t, err)

	assert.True(t, result.Breakdown.ConvictionBoostApplied)
	assert.Equal(t, -10.0, result.Breakdown.ConvictionBoostAmount)
	assert.InDelta(t, -78.0, result.FinalScore, 1e-9)
	assert.Equal(t, bias.StronglyBearish, result.FinalBias)
}

func TestComputeFinalBias_ClampAtBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CotWeight = 1.0
	cfg.SeasonalityWeight = 1.0

	result, err := ComputeFinalBias(100, 50, bias.StronglyBullish, bias.StronglyBullish, cfg)
	require.NoError(t, err)

	assert.InDelta(t, 160.0, result.Breakdown.BaseScore, 1e-9)
	assert.Equal(t, 100.0, result.FinalScore)
	assert.Equal(t, bias.StronglyBullish, result.FinalBias)
}

func TestComputeFinalBias_OutOfRangeInputs(t *testing.T) {
	_, err := ComputeFinalBias(101, 0, bias.Neutral, bias.Neutral, DefaultConfig())
	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, "cot", oor.Input)

	_, err = ComputeFinalBias(0, -50.001, bias.Neutral, bias.Neutral, DefaultConfig())
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, "seasonality", oor.Input)

	// Boundary values are valid.
	_, err = ComputeFinalBias(-100, 50, bias.StronglyBearish, bias.StronglyBullish, DefaultConfig())
	assert.NoError(t, err)
}

func TestComputeFinalBias_Deterministic(t *testing.T) {
	first, err := ComputeFinalBias(42.5, -12.25, bias.Bullish, bias.Neutral, DefaultConfig())
	require.NoError(t, err)
	second, err := ComputeFinalBias(42.5, -12.25, bias.Bullish, bias.Neutral, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeFinalBias_BreakdownCarriesInputLabels(t *testing.T) {
	result, err := ComputeFinalBias(30, 10, bias.Bullish, bias.Neutral, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, bias.Bullish, result.Breakdown.CotBias)
	assert.Equal(t, bias.Neutral, result.Breakdown.SeasonalityBias)
	assert.Equal(t, 30.0, result.Breakdown.CotScore)
	assert.Equal(t, 10.0, result.Breakdown.SeasonalityScore)
}
