// Package annotate turns computed COT metrics into short human-readable
// notes. Generation is best-effort: callers fall back to deterministic
// template notes and never block the numeric result on a generator failure.
package annotate

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sawpanic/cotlens/internal/domain/cot"
)

// MaxNotes caps the number of notes attached to an analysis.
const MaxNotes = 3

// Request carries everything a generator needs to describe one week of
// positioning.
type Request struct {
	AssetName string
	Current   cot.WeeklyRecord
	Previous  cot.WeeklyRecord
	Analysis  *cot.Analysis
}

// Generator produces up to MaxNotes plain-language notes describing (not
// scoring) the positioning metrics.
type Generator interface {
	GenerateNotes(ctx context.Context, req Request) ([]string, error)
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// parseNotes extracts a note list from raw model output. It accepts a JSON
// string array, optionally wrapped in markdown fencing, and falls back to
// splitting non-empty lines with bullet prefixes stripped.
func parseNotes(text string) []string {
	text = strings.TrimSpace(text)

	jsonText := text
	if match := jsonArrayPattern.FindString(text); match != "" {
		jsonText = match
	}

	var notes []string
	if err := json.Unmarshal([]byte(jsonText), &notes); err == nil {
		return truncate(notes)
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-•* ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return truncate(lines)
}

func truncate(notes []string) []string {
	if len(notes) > MaxNotes {
		return notes[:MaxNotes]
	}
	return notes
}
