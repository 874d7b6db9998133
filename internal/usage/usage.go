// Package usage parses Claude-style log events into priced API calls: token
// counts in, dollars out. Model names are normalized to a small pricing
// table before cost lookup; unknown models fall back to Sonnet-like rates.
package usage

import (
	"strings"
	"time"
)

// EventType distinguishes the two JSONL event shapes the tailer recognizes.
type EventType string

const (
	EventAssistant EventType = "assistant"
	EventResult    EventType = "result"
)

// ApiCall is one priced usage observation, parsed from a single log line.
type ApiCall struct {
	Timestamp           time.Time `json:"timestamp"`
	WorkerID            string    `json:"worker_id"`
	SessionID           string    `json:"session_id,omitempty"`
	BeadID              string    `json:"bead_id,omitempty"`
	Model               string    `json:"model"`
	InputTokens         int64     `json:"input_tokens"`
	OutputTokens        int64     `json:"output_tokens"`
	CacheCreationTokens int64     `json:"cache_creation_tokens"`
	CacheReadTokens     int64     `json:"cache_read_tokens"`
	CostUSD             float64   `json:"cost_usd"`
	EventType           EventType `json:"event_type"`
}

// Pricing is one model's USD-per-million-token rate card.
type Pricing struct {
	InputPerMillion         float64
	OutputPerMillion        float64
	CacheCreationPerMillion float64
	CacheReadPerMillion     float64
}

// NewPricing builds a rate card with the default cache convention: creation
// priced the same as input, read priced at 10% of input.
func NewPricing(input, output float64) Pricing {
	return Pricing{
		InputPerMillion:         input,
		OutputPerMillion:        output,
		CacheCreationPerMillion: input,
		CacheReadPerMillion:     input * 0.1,
	}
}

// WithCache overrides the default cache rates.
func (p Pricing) WithCache(creation, read float64) Pricing {
	p.CacheCreationPerMillion = creation
	p.CacheReadPerMillion = read
	return p
}

// Cost computes the dollar cost of a token breakdown under this rate card.
func (p Pricing) Cost(input, output, cacheCreation, cacheRead int64) float64 {
	const million = 1_000_000.0
	return float64(input)*p.InputPerMillion/million +
		float64(output)*p.OutputPerMillion/million +
		float64(cacheCreation)*p.CacheCreationPerMillion/million +
		float64(cacheRead)*p.CacheReadPerMillion/million
}

// fallbackPricing is applied to any model the table doesn't recognize.
var fallbackPricing = NewPricing(3.0, 15.0)

// DefaultPricingTable is the normalized-model-name -> rate card lookup.
func DefaultPricingTable() map[string]Pricing {
	return map[string]Pricing{
		"claude-opus":     NewPricing(15.0, 75.0).WithCache(18.75, 1.50),
		"claude-sonnet":   NewPricing(3.0, 15.0).WithCache(3.75, 0.30),
		"claude-haiku":    NewPricing(0.80, 4.0).WithCache(1.0, 0.08),
		"glm-4.7":         NewPricing(1.0, 2.0).WithCache(1.0, 0.10),
		"gpt-4-turbo":     NewPricing(10.0, 30.0),
		"gpt-4o":          NewPricing(5.0, 15.0),
		"deepseek-chat":   NewPricing(0.14, 0.28),
		"deepseek-coder":  NewPricing(0.14, 0.28),
	}
}

// NormalizeModelName lowercases model and matches substrings in the
// documented priority order. Unrecognized names pass through unchanged
// (lowercased) so the caller can still display them.
func NormalizeModelName(model string) string {
	m := strings.ToLower(model)

	switch {
	case strings.Contains(m, "opus"):
		return "claude-opus"
	case strings.Contains(m, "sonnet"):
		return "claude-sonnet"
	case strings.Contains(m, "haiku"):
		return "claude-haiku"
	case strings.Contains(m, "glm"):
		return "glm-4.7"
	case strings.Contains(m, "gpt-4-turbo"):
		return "gpt-4-turbo"
	case strings.Contains(m, "gpt-4o"):
		return "gpt-4o"
	case strings.Contains(m, "deepseek-coder"):
		return "deepseek-coder"
	case strings.Contains(m, "deepseek"):
		return "deepseek-chat"
	default:
		return m
	}
}

// Calculator looks up pricing by normalized model name, warning (via a
// caller-supplied logger) and falling back to Sonnet-like rates for
// anything unrecognized.
type Calculator struct {
	table  map[string]Pricing
	onMiss func(rawModel, normalized string)
}

// NewCalculator builds a Calculator over table. A nil onMiss is a no-op.
func NewCalculator(table map[string]Pricing, onMiss func(rawModel, normalized string)) *Calculator {
	if table == nil {
		table = DefaultPricingTable()
	}
	if onMiss == nil {
		onMiss = func(string, string) {}
	}
	return &Calculator{table: table, onMiss: onMiss}
}

// Cost computes the dollar cost for a raw model name and token breakdown.
func (c *Calculator) Cost(rawModel string, input, output, cacheCreation, cacheRead int64) float64 {
	normalized := NormalizeModelName(rawModel)
	pricing, ok := c.table[normalized]
	if !ok {
		c.onMiss(rawModel, normalized)
		pricing = fallbackPricing
	}
	return pricing.Cost(input, output, cacheCreation, cacheRead)
}
