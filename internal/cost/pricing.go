package cost

import "strings"

// ModelPrice is the cost in USD per million tokens for one model family.
type ModelPrice struct {
	InputPerMTok  float64 `json:"input_per_mtok"`
	OutputPerMTok float64 `json:"output_per_mtok"`
}

// Pricing maps model-name prefixes to prices. Longest matching prefix
// wins, so "claude-sonnet-4-5" beats "claude-sonnet".
type Pricing map[string]ModelPrice

// DefaultPricing covers the Anthropic models the pipeline runs against.
// Unknown models price at zero rather than guessing.
func DefaultPricing() Pricing {
	return Pricing{
		"claude-sonnet-4-5": {InputPerMTok: 3.00, OutputPerMTok: 15.00},
		"claude-3-5-haiku":  {InputPerMTok: 0.80, OutputPerMTok: 4.00},
		"claude-3-5-sonnet": {InputPerMTok: 3.00, OutputPerMTok: 15.00},
		"claude-opus-4":     {InputPerMTok: 15.00, OutputPerMTok: 75.00},
	}
}

// Cost prices one call's token usage for model.
func (p Pricing) Cost(model string, promptTokens, completionTokens int64) float64 {
	var best string
	for prefix := range p {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return 0
	}
	price := p[best]
	return float64(promptTokens)/1e6*price.InputPerMTok +
		float64(completionTokens)/1e6*price.OutputPerMTok
}
