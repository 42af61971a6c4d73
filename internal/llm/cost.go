package llm

import (
	"strings"
	"unicode/utf8"
)

// price is USD per million tokens.
type price struct {
	in, out float64
}

// prices is keyed by model id prefix; the longest matching prefix wins so
// dated snapshots ("gpt-4o-2024-08-06") price like their family.
var prices = map[string]price{
	"gpt-4":             {30.00, 60.00},
	"gpt-4-turbo":       {10.00, 30.00},
	"gpt-4o":            {2.50, 10.00},
	"gpt-4o-mini":       {0.15, 0.60},
	"gpt-3.5-turbo":     {0.50, 1.50},
	"claude-3-opus":     {15.00, 75.00},
	"claude-3-sonnet":   {3.00, 15.00},
	"claude-3-haiku":    {0.25, 1.25},
	"claude-3-5-sonnet": {3.00, 15.00},
	"claude-3-5-haiku":  {0.80, 4.00},
	"gemini-1.5-pro":    {1.25, 5.00},
	"gemini-1.5-flash":  {0.075, 0.30},
	"gemini-2.0-flash":  {0.10, 0.40},
}

func lookupPrice(model string) (price, bool) {
	best, found := "", false
	for prefix := range prices {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best, found = prefix, true
		}
	}
	return prices[best], found
}

// EstimateCost returns the USD cost of a call, or 0 for an unpriced model
// (local ollama models, custom endpoints).
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := lookupPrice(model)
	if !ok {
		return 0
	}
	return (float64(inputTokens)*p.in + float64(outputTokens)*p.out) / 1_000_000
}

// EstimateTokens approximates a token count at four characters per token.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n > 0 && n < 4 {
		return 1
	}
	return n / 4
}
