package cot

import (
	"time"

	"github.com/sawpanic/cotlens/internal/domain/bias"
)

// WeeklyRecord is one reporting week of futures positioning for one market.
// Records for a given asset must be supplied in ascending ReportDate order
// with no duplicate dates.
type WeeklyRecord struct {
	ReportDate time.Time `json:"report_date"`

	CommercialLong  int64 `json:"commercial_long"`
	CommercialShort int64 `json:"commercial_short"`

	// Non-commercial = managed money + other reportable, combined upstream.
	NonCommercialLong  int64 `json:"non_commercial_long"`
	NonCommercialShort int64 `json:"non_commercial_short"`

	SmallTraderLong  int64 `json:"small_trader_long"`
	SmallTraderShort int64 `json:"small_trader_short"`

	OpenInterest int64 `json:"open_interest"`
}

// CommercialMetrics describes hedger positioning for the current week.
type CommercialMetrics struct {
	NetPosition int64   `json:"net_position"`
	NetChange   int64   `json:"net_change"`
	IsExtreme   bool    `json:"is_extreme"`
	CotIndex    float64 `json:"cot_index"`
}

// NonCommercialMetrics describes large-spec positioning for the current week.
type NonCommercialMetrics struct {
	NetPosition int64   `json:"net_position"`
	NetChange   int64   `json:"net_change"`
	IsExtreme   bool    `json:"is_extreme"`
	IsCrowded   bool    `json:"is_crowded"`
	CotIndex    float64 `json:"cot_index"`
}

// SmallTraderMetrics describes retail positioning for the current week.
type SmallTraderMetrics struct {
	NetPosition int64   `json:"net_position"`
	IsExtreme   bool    `json:"is_extreme"`
	CotIndex    float64 `json:"cot_index"`
}

// Metrics mirrors every intermediate quantity of the analysis for
// observability and UI display.
type Metrics struct {
	Commercial         CommercialMetrics    `json:"commercial"`
	NonCommercial      NonCommercialMetrics `json:"non_commercial"`
	SmallTrader        SmallTraderMetrics   `json:"small_trader"`
	OpenInterest       int64                `json:"open_interest"`
	OpenInterestChange int64                `json:"open_interest_change"`
}

// Analysis is the derived positioning result for one market, recomputed from
// a weekly history window. Immutable once computed.
type Analysis struct {
	Score   float64    `json:"score"`
	Bias    bias.Label `json:"bias"`
	Notes   []string   `json:"notes"`
	Metrics Metrics    `json:"metrics"`
}
