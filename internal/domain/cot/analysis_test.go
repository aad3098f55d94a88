package cot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cotlens/internal/domain/bias"
)

func week(date string, comLong, comShort, specLong, specShort, retailLong, retailShort, oi int64) WeeklyRecord {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return WeeklyRecord{
		ReportDate:         d,
		CommercialLong:     comLong,
		CommercialShort:    comShort,
		NonCommercialLong:  specLong,
		NonCommercialShort: specShort,
		SmallTraderLong:    retailLong,
		SmallTraderShort:   retailShort,
		OpenInterest:       oi,
	}
}

func TestAnalyze_InsufficientHistory(t *testing.T) {
	_, err := Analyze(nil)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	_, err = Analyze([]WeeklyRecord{week("2025-01-07", 1, 0, 1, 0, 1, 0, 10)})
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

// Commercial net up 1000 contracts week-over-week with every category
// mid-range: only the +20 commercial bucket fires and 20 < 25 stays Neutral.
func TestAnalyze_CommercialAccumulationOnly(t *testing.T) {
	history := []WeeklyRecord{
		// Wide commercial range so the current week sits mid-range.
		week("2025-01-07", 5000, 10000, 20000, 20000, 3000, 5000, 98000), // com -5000
		week("2025-01-14", 15000, 10000, 20000, 20000, 5000, 3000, 97000), // com +5000
		week("2025-01-21", 9000, 10000, 20000, 20000, 4000, 4000, 96000),  // com -1000
		week("2025-01-28", 10000, 10000, 20000, 20000, 4000, 4000, 98000), // com 0
		week("2025-02-04", 11000, 10000, 20000, 20000, 4000, 4000, 100000), // com +1000
	}

	result, err := Analyze(history)
	require.NoError(t, err)

	assert.Equal(t, 20.0, result.Score)
	assert.Equal(t, bias.Neutral, result.Bias)
	assert.Empty(t, result.Notes)

	m := result.Metrics
	assert.Equal(t, int64(1000), m.Commercial.NetPosition)
	assert.Equal(t, int64(1000), m.Commercial.NetChange)
	assert.Equal(t, 60.0, m.Commercial.CotIndex)
	assert.False(t, m.Commercial.IsExtreme)

	// Non-commercial nets never vary: degenerate range pins the index at 50.
	assert.Equal(t, 50.0, m.NonCommercial.CotIndex)
	assert.Equal(t, int64(0), m.NonCommercial.NetChange)
	assert.False(t, m.NonCommercial.IsExtreme)
	assert.False(t, m.NonCommercial.IsCrowded)

	assert.Equal(t, 50.0, m.SmallTrader.CotIndex)
	assert.False(t, m.SmallTrader.IsExtreme)

	assert.Equal(t, int64(100000), m.OpenInterest)
	assert.Equal(t, int64(2000), m.OpenInterestChange)
}

// Commercials extreme (index 100) while specs are crowded (index 87) but not
// extreme: 20 + 10 + 15 = 45, Bullish.
func TestAnalyze_CommercialExtremeWithCrowdedSpecs(t *testing.T) {
	history := []WeeklyRecord{
		week("2025-01-07", 10000, 10000, 10000, 10000, 4000, 4000, 98000),  // com 0, spec 0
		week("2025-01-14", 4000, 10000, 20000, 10000, 5000, 3000, 97000),   // com -6000, spec +10000
		week("2025-01-21", 14000, 10000, 18700, 10000, 3000, 5000, 96000),  // com +4000, spec +8700
		week("2025-01-28", 18700, 10000, 18700, 10000, 4000, 4000, 99000),  // com +8700, spec +8700
	}

	result, err := Analyze(history)
	require.NoError(t, err)

	m := result.Metrics
	require.True(t, m.Commercial.IsExtreme, "commercial index %.1f should be extreme", m.Commercial.CotIndex)
	require.True(t, m.NonCommercial.IsCrowded, "spec index %.1f should be crowded", m.NonCommercial.CotIndex)
	require.False(t, m.NonCommercial.IsExtreme)
	require.Equal(t, int64(0), m.NonCommercial.NetChange)

	assert.Equal(t, 45.0, result.Score)
	assert.Equal(t, bias.Bullish, result.Bias)
}

// Aggressive spec buying (delta above 15% of the current net) is penalized.
func TestAnalyze_AggressiveSpecBuying(t *testing.T) {
	history := []WeeklyRecord{
		week("2025-01-07", 10000, 10000, 2000, 10000, 4000, 4000, 98000), // spec -8000
		week("2025-01-14", 10000, 10000, 30000, 10000, 4000, 4000, 97000), // spec +20000
		week("2025-01-21", 10000, 10000, 15000, 10000, 4000, 4000, 96000), // spec +5000
		week("2025-01-28", 10000, 10000, 20000, 10000, 4000, 4000, 99000), // spec +10000, delta +5000
	}

	result, err := Analyze(history)
	require.NoError(t, err)

	m := result.Metrics
	require.Equal(t, int64(5000), m.NonCommercial.NetChange)
	require.False(t, m.NonCommercial.IsExtreme)

	// delta 5000 > 0.15 * 10000: aggressive, -10.
	assert.Equal(t, -10.0, result.Score)
	assert.Equal(t, bias.Neutral, result.Bias)
}

// Moderate spec accumulation (delta within 15% of the current net) adds +10.
func TestAnalyze_ModerateSpecAccumulation(t *testing.T) {
	history := []WeeklyRecord{
		week("2025-01-07", 10000, 10000, 2000, 10000, 4000, 4000, 98000),  // spec -8000
		week("2025-01-14", 10000, 10000, 40000, 10000, 4000, 4000, 97000), // spec +30000
		week("2025-01-21", 10000, 10000, 29000, 10000, 4000, 4000, 96000), // spec +19000
		week("2025-01-28", 10000, 10000, 30000, 10000, 4000, 4000, 99000), // spec +20000, delta +1000
	}

	result, err := Analyze(history)
	require.NoError(t, err)

	m := result.Metrics
	require.Equal(t, int64(1000), m.NonCommercial.NetChange)
	require.False(t, m.NonCommercial.IsExtreme)
	require.False(t, m.NonCommercial.CotIndex > 85 && m.NonCommercial.NetChange < 0)

	assert.Equal(t, 10.0, result.Score)
}

// Specs extremely long and reducing: the -20 contrarian warning is softened
// by the +10 de-risking credit.
func TestAnalyze_SpecDeRiskingAfterExtreme(t *testing.T) {
	history := []WeeklyRecord{
		week("2025-01-07", 10000, 10000, 10000, 10000, 4000, 4000, 98000),  // spec 0
		week("2025-01-14", 10000, 10000, 60000, 10000, 4000, 4000, 97000),  // spec +50000
		week("2025-01-21", 10000, 10000, 59000, 10000, 4000, 4000, 99000),  // spec +49000, delta -1000
	}

	result, err := Analyze(history)
	require.NoError(t, err)

	m := result.Metrics
	require.True(t, m.NonCommercial.IsExtreme)
	require.Greater(t, m.NonCommercial.CotIndex, 85.0)
	require.Equal(t, int64(-1000), m.NonCommercial.NetChange)

	assert.Equal(t, -10.0, result.Score)
}

func TestAnalyze_SmallTraderExtremes(t *testing.T) {
	base := []WeeklyRecord{
		week("2025-01-07", 10000, 10000, 20000, 20000, 2000, 6000, 98000), // retail -4000
		week("2025-01-14", 10000, 10000, 20000, 20000, 6000, 2000, 97000), // retail +4000
	}

	// Extremely long retail (index 100, net > 0) is a bearish signal.
	long := append(append([]WeeklyRecord{}, base...),
		week("2025-01-21", 10000, 10000, 20000, 20000, 4000, 4000, 96000),
		week("2025-01-28", 10000, 10000, 20000, 20000, 8000, 2000, 99000), // retail +6000
	)
	result, err := Analyze(long)
	require.NoError(t, err)
	require.True(t, result.Metrics.SmallTrader.IsExtreme)
	assert.Equal(t, -10.0, result.Score)

	// Extremely short retail (index 0, net < 0) is bullish.
	short := append(append([]WeeklyRecord{}, base...),
		week("2025-01-21", 10000, 10000, 20000, 20000, 4000, 4000, 96000),
		week("2025-01-28", 10000, 10000, 20000, 20000, 2000, 8000, 99000), // retail -6000
	)
	result, err = Analyze(short)
	require.NoError(t, err)
	require.True(t, result.Metrics.SmallTrader.IsExtreme)
	assert.Equal(t, 10.0, result.Score)
}

func TestAnalyze_Deterministic(t *testing.T) {
	history := []WeeklyRecord{
		week("2025-01-07", 5000, 10000, 20000, 18000, 3000, 5000, 98000),
		week("2025-01-14", 15000, 10000, 22000, 18000, 5000, 3000, 97000),
		week("2025-01-21", 9000, 10000, 19000, 18000, 4000, 4000, 96000),
		week("2025-01-28", 11000, 10000, 21000, 18000, 4000, 4000, 100000),
	}

	first, err := Analyze(history)
	require.NoError(t, err)
	second, err := Analyze(history)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyze_ScoreWithinRange(t *testing.T) {
	// Every bearish bucket at once still lands inside [-100, 100].
	history := []WeeklyRecord{
		week("2025-01-07", 20000, 10000, 10000, 10000, 2000, 6000, 98000), // com +10000, spec 0, retail -4000
		week("2025-01-14", 5000, 10000, 1000, 10000, 4000, 4000, 97000),   // com -5000, spec -9000, retail 0
		week("2025-01-21", 19000, 10000, 60000, 10000, 3000, 5000, 96000), // com +9000, spec +50000
		week("2025-01-28", 15000, 10000, 70000, 10000, 8000, 2000, 99000), // com +5000 (falling), spec +60000 (extreme, aggressive), retail +6000 (extreme long)
	}

	result, err := Analyze(history)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Score, -100.0)
	assert.LessOrEqual(t, result.Score, 100.0)
	assert.Equal(t, bias.StronglyBearish, result.Bias)
}

func TestCotIndex_DegenerateRange(t *testing.T) {
	assert.Equal(t, 50.0, cotIndex(1234, 1234, 1234))
	assert.Equal(t, 0.0, cotIndex(-500, -500, 500))
	assert.Equal(t, 100.0, cotIndex(500, -500, 500))
	assert.Equal(t, 75.0, cotIndex(250, -500, 500))
}
