// Package seasonality scores assets against a static table of per-asset
// calendar windows.
package seasonality

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/cotlens/internal/domain/bias"
)

// Raw per-window scores live in roughly [-1.5, 1.5]; this rescales the sum to
// the [-50, 50] band the combiner expects. Fixed design constant, not derived.
const normalizationScale = 50.0 / 1.5

// Window is a calendar window with a fixed score. StartMonth > EndMonth means
// the window wraps around year-end (e.g. Nov-Feb).
type Window struct {
	StartMonth int     `json:"start_month" yaml:"start_month"`
	EndMonth   int     `json:"end_month" yaml:"end_month"`
	Score      float64 `json:"score" yaml:"score"`
	Note       string  `json:"note,omitempty" yaml:"note,omitempty"`
}

// Active reports whether the window covers the given month (1-12).
func (w Window) Active(month int) bool {
	if w.StartMonth <= w.EndMonth {
		return month >= w.StartMonth && month <= w.EndMonth
	}
	return month >= w.StartMonth || month <= w.EndMonth
}

// Result is the seasonality output for one asset and date. Purely a function
// of the static rules and the date.
type Result struct {
	AssetID         string   `json:"asset_id"`
	Date            time.Time `json:"date"`
	Score           float64  `json:"score"`
	NormalizedScore float64  `json:"normalized_score"`
	ActiveWindows   []Window `json:"active_windows"`
}

// Bias maps the raw window-score sum to a label. Thresholds are on the raw
// [-1.5, 1.5] scale, not the normalized one.
func (r Result) Bias() bias.Label {
	switch {
	case r.Score >= 0.5:
		return bias.StronglyBullish
	case r.Score >= 0.2:
		return bias.Bullish
	case r.Score <= -0.5:
		return bias.StronglyBearish
	case r.Score <= -0.2:
		return bias.Bearish
	default:
		return bias.Neutral
	}
}

// Model holds the per-asset seasonal window table.
type Model struct {
	rules map[string][]Window
}

// NewModel returns a model seeded with the built-in rule table.
func NewModel() *Model {
	return &Model{rules: defaultRules()}
}

// LoadModel reads a per-asset window table from a YAML file, replacing the
// built-in rules entirely.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seasonality rules %s: %w", path, err)
	}

	var rules map[string][]Window
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse seasonality rules %s: %w", path, err)
	}

	for assetID, windows := range rules {
		for _, w := range windows {
			if w.StartMonth < 1 || w.StartMonth > 12 || w.EndMonth < 1 || w.EndMonth > 12 {
				return nil, fmt.Errorf("seasonality rules %s: asset %s has month outside 1-12", path, assetID)
			}
		}
	}

	return &Model{rules: rules}, nil
}

// HasRules reports whether any windows are configured for the asset. Callers
// may treat assets without rules as having no seasonality at all.
func (m *Model) HasRules(assetID string) bool {
	return len(m.rules[assetID]) > 0
}

// Compute sums the scores of all windows active for the date's month. An
// unknown asset yields a zero result with no active windows.
func (m *Model) Compute(assetID string, date time.Time) Result {
	month := int(date.Month())

	active := []Window{}
	score := 0.0
	for _, w := range m.rules[assetID] {
		if w.Active(month) {
			active = append(active, w)
			score += w.Score
		}
	}

	return Result{
		AssetID:         assetID,
		Date:            date,
		Score:           score,
		NormalizedScore: clamp(score*normalizationScale, -50, 50),
		ActiveWindows:   active,
	}
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
