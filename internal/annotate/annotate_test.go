package annotate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cotlens/internal/domain/cot"
)

func TestParseNotes_JSONArray(t *testing.T) {
	notes := parseNotes(`["Commercials added longs", "Specs crowded"]`)
	assert.Equal(t, []string{"Commercials added longs", "Specs crowded"}, notes)
}

func TestParseNotes_FencedJSON(t *testing.T) {
	raw := "```json\n[\"one\", \"two\", \"three\", \"four\"]\n```"
	notes := parseNotes(raw)
	assert.Equal(t, []string{"one", "two", "three"}, notes)
}

func TestParseNotes_BulletFallback(t *testing.T) {
	raw := "- Commercials added longs\n• Specs crowded\n\n* Retail flat\nExtra line"
	notes := parseNotes(raw)
	assert.Equal(t, []string{"Commercials added longs", "Specs crowded", "Retail flat"}, notes)
}

func TestParseNotes_Empty(t *testing.T) {
	assert.Empty(t, parseNotes(""))
	assert.Empty(t, parseNotes("   \n  "))
}

func testRequest(comChange int64, comExtreme, specCrowded bool) Request {
	current := cot.WeeklyRecord{
		ReportDate:         time.Date(2025, 2, 4, 0, 0, 0, 0, time.UTC),
		CommercialLong:     11000,
		CommercialShort:    10000,
		NonCommercialLong:  20000,
		NonCommercialShort: 22000,
		SmallTraderLong:    4000,
		SmallTraderShort:   4000,
		OpenInterest:       100000,
	}
	previous := current
	previous.ReportDate = current.ReportDate.AddDate(0, 0, -7)
	previous.CommercialLong -= comChange

	return Request{
		AssetName: "Crude Oil",
		Current:   current,
		Previous:  previous,
		Analysis: &cot.Analysis{
			Metrics: cot.Metrics{
				Commercial: cot.CommercialMetrics{
					NetPosition: 1000,
					NetChange:   comChange,
					IsExtreme:   comExtreme,
					CotIndex:    92,
				},
				NonCommercial: cot.NonCommercialMetrics{
					NetPosition: -2000,
					IsCrowded:   specCrowded,
				},
			},
		},
	}
}

func TestFallbackGenerator_TemplateNotes(t *testing.T) {
	g := NewFallbackGenerator()

	notes, err := g.GenerateNotes(context.Background(), testRequest(1500, true, true))
	require.NoError(t, err)
	require.Len(t, notes, 3)

	assert.Equal(t, "Commercials increased net longs by 1500 contracts", notes[0])
	assert.Equal(t, "Commercial positioning at 92% of historical range (extreme level)", notes[1])
	assert.Equal(t, "Large speculators at crowded short levels", notes[2])
}

func TestFallbackGenerator_NothingNotable(t *testing.T) {
	g := NewFallbackGenerator()

	notes, err := g.GenerateNotes(context.Background(), testRequest(0, false, false))
	require.NoError(t, err)
	assert.Equal(t, []string{"COT data updated"}, notes)
}

func TestFallbackGenerator_Deterministic(t *testing.T) {
	g := NewFallbackGenerator()
	req := testRequest(-300, false, true)

	first, err := g.GenerateNotes(context.Background(), req)
	require.NoError(t, err)
	second, err := g.GenerateNotes(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "Commercials decreased net longs by 300 contracts", first[0])
}

func TestBuildPrompt_ContainsMetrics(t *testing.T) {
	prompt := buildPrompt(testRequest(1500, true, true))

	assert.Contains(t, prompt, "Crude Oil")
	assert.Contains(t, prompt, "Commercial net change: +1500")
	assert.Contains(t, prompt, "CROWDED")
	assert.Contains(t, prompt, "(EXTREME)")
	assert.Contains(t, prompt, "JSON array of strings")
}
