package annotate

import (
	"context"
	"fmt"
)

// FallbackGenerator derives template notes directly from the metrics. It is
// deterministic and never fails, so annotation stays testable without a live
// text-generation dependency.
type FallbackGenerator struct{}

// NewFallbackGenerator returns the deterministic template generator.
func NewFallbackGenerator() *FallbackGenerator {
	return &FallbackGenerator{}
}

func (g *FallbackGenerator) GenerateNotes(_ context.Context, req Request) ([]string, error) {
	m := req.Analysis.Metrics
	notes := []string{}

	if m.Commercial.NetChange != 0 {
		direction := "increased"
		if m.Commercial.NetChange < 0 {
			direction = "decreased"
		}
		side := "longs"
		if m.Commercial.NetPosition < 0 {
			side = "shorts"
		}
		notes = append(notes, fmt.Sprintf("Commercials %s net %s by %d contracts",
			direction, side, absInt64(m.Commercial.NetChange)))
	}

	if m.Commercial.IsExtreme {
		notes = append(notes, fmt.Sprintf("Commercial positioning at %.0f%% of historical range (extreme level)",
			m.Commercial.CotIndex))
	}

	if m.NonCommercial.IsCrowded {
		side := "long"
		if m.NonCommercial.NetPosition < 0 {
			side = "short"
		}
		notes = append(notes, fmt.Sprintf("Large speculators at crowded %s levels", side))
	}

	if len(notes) == 0 {
		notes = append(notes, "COT data updated")
	}
	return truncate(notes), nil
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
