package annotate

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// OpenAIConfig tunes the hosted text-generation generator.
type OpenAIConfig struct {
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
}

// DefaultOpenAIConfig returns conservative generation settings.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:             openai.GPT4oMini,
		Timeout:           15 * time.Second,
		RequestsPerMinute: 20,
	}
}

// OpenAIGenerator produces notes via a hosted chat-completion model. Calls
// are rate limited and guarded by a circuit breaker so a degraded upstream
// trips fast instead of stalling the refresh pipeline.
type OpenAIGenerator struct {
	client  *openai.Client
	cfg     OpenAIConfig
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewOpenAIGenerator builds a generator for the given API key.
func NewOpenAIGenerator(apiKey string, cfg OpenAIConfig) *OpenAIGenerator {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "annotate-openai",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     120 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &OpenAIGenerator{
		client:  openai.NewClient(apiKey),
		cfg:     cfg,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}
}

func (g *OpenAIGenerator) GenerateNotes(ctx context.Context, req Request) ([]string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("annotate: rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	raw, err := g.breaker.Execute(func() (interface{}, error) {
		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     g.cfg.Model,
			MaxTokens: 1024,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
			},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("empty completion response")
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return nil, fmt.Errorf("annotate: generation failed: %w", err)
	}

	notes := parseNotes(raw.(string))
	if len(notes) == 0 {
		return nil, fmt.Errorf("annotate: no notes in model output")
	}
	return notes, nil
}

func buildPrompt(req Request) string {
	cur, prev := req.Current, req.Previous
	m := req.Analysis.Metrics

	comNet := cur.CommercialLong - cur.CommercialShort
	comNetPrev := prev.CommercialLong - prev.CommercialShort
	specNet := cur.NonCommercialLong - cur.NonCommercialShort
	specNetPrev := prev.NonCommercialLong - prev.NonCommercialShort
	retailNet := cur.SmallTraderLong - cur.SmallTraderShort
	retailNetPrev := prev.SmallTraderLong - prev.SmallTraderShort

	specPosture := "MODERATE"
	if m.NonCommercial.IsExtreme {
		specPosture = "EXTREME"
	} else if m.NonCommercial.IsCrowded {
		specPosture = "CROWDED"
	}
	retailPosture := "MODERATE"
	if m.SmallTrader.IsExtreme {
		retailPosture = "EXTREME"
	}
	comPosture := ""
	if m.Commercial.IsExtreme {
		comPosture = " (EXTREME)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are summarizing Commitment of Traders (COT) positioning data for %s.\n\n", req.AssetName)

	fmt.Fprintf(&b, "Current Week (%s):\n", cur.ReportDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Commercials: %d long, %d short (net: %+d)\n", cur.CommercialLong, cur.CommercialShort, comNet)
	fmt.Fprintf(&b, "- Non-Commercials (Large Specs): %d long, %d short (net: %+d)\n", cur.NonCommercialLong, cur.NonCommercialShort, specNet)
	fmt.Fprintf(&b, "- Small Traders: %d long, %d short (net: %+d)\n", cur.SmallTraderLong, cur.SmallTraderShort, retailNet)
	fmt.Fprintf(&b, "- Open Interest: %d\n\n", cur.OpenInterest)

	fmt.Fprintf(&b, "Previous Week (%s):\n", prev.ReportDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Commercials: %d long, %d short (net: %+d)\n", prev.CommercialLong, prev.CommercialShort, comNetPrev)
	fmt.Fprintf(&b, "- Non-Commercials: %d long, %d short (net: %+d)\n", prev.NonCommercialLong, prev.NonCommercialShort, specNetPrev)
	fmt.Fprintf(&b, "- Small Traders: %d long, %d short (net: %+d)\n", prev.SmallTraderLong, prev.SmallTraderShort, retailNetPrev)
	fmt.Fprintf(&b, "- Open Interest: %d\n\n", prev.OpenInterest)

	fmt.Fprintf(&b, "Week-over-Week Changes:\n")
	fmt.Fprintf(&b, "- Commercial net change: %+d\n", m.Commercial.NetChange)
	fmt.Fprintf(&b, "- Non-Commercial net change: %+d\n", m.NonCommercial.NetChange)
	fmt.Fprintf(&b, "- Open Interest change: %+d\n\n", m.OpenInterestChange)

	fmt.Fprintf(&b, "Positioning Context:\n")
	fmt.Fprintf(&b, "- Commercial COT Index: %.1f%%%s\n", m.Commercial.CotIndex, comPosture)
	fmt.Fprintf(&b, "- Non-Commercial positioning: %s\n", specPosture)
	fmt.Fprintf(&b, "- Small Trader positioning: %s\n\n", retailPosture)

	b.WriteString(`Your task:
Generate 1-3 factual, neutral notes describing the positioning behavior. Focus on:
1. What each trader category is doing (commercials, large specs, small traders)
2. Highlight any extremes or crowding
3. Week-over-week changes that are significant
4. Any notable positioning conflicts (e.g., small traders positioned against commercials)

Rules:
- Be factual and neutral
- NO scoring, NO predictions, NO price forecasts
- NO technical analysis
- Describe WHO is positioned HOW and WHY it matters
- Use clear, concise language

Return ONLY the notes as a JSON array of strings, like: ["note 1", "note 2", "note 3"]`)

	return b.String()
}
