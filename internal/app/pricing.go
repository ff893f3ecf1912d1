package app

import "strings"

// per 1K tokens, USD
type modelPrice struct {
	prefix string
	input  float64
	output float64
}

var modelPrices = []modelPrice{
	{"gpt-4o-mini", 0.00015, 0.0006},
	{"gpt-4o", 0.005, 0.015},
	{"gpt-4-turbo", 0.01, 0.03},
	{"gpt-4-32k", 0.06, 0.12},
	{"gpt-4", 0.03, 0.06},
	{"gpt-3.5-turbo", 0.0005, 0.0015},
}

// EstimateCost returns the approximate USD cost of one call. Unknown models
// are priced as gpt-4.
func EstimateCost(modelName string, inputTokens, outputTokens int) float64 {
	name := strings.ToLower(modelName)
	price := modelPrices[4]
	for _, p := range modelPrices {
		if strings.HasPrefix(name, p.prefix) {
			price = p
			break
		}
	}
	return float64(inputTokens)/1000*price.input + float64(outputTokens)/1000*price.output
}
