package domain

import "math"

// Base credit costs per generation type.
const (
	BaseCostStandard int64 = 3
	BaseCostUpscale  int64 = 10
)

// Style multipliers. Styles not listed cost the base rate.
var styleMultipliers = map[string]float64{
	"oil-painting": 1.5,
	"cinematic":    1.3,
	"realistic":    1.2,
	"anime":        1.1,
}

// CreditCost computes the credit cost of one generation request. Resolution is
// unified pricing across 1K/2K/4K; batch mode multiplies the per-image cost.
func CreditCost(taskType string, settings GenerationSettings) int64 {
	base := BaseCostStandard
	if taskType == TypeUpscale {
		base = BaseCostUpscale
	}

	multiplier := 1.0
	if m, ok := styleMultipliers[settings.ArtStyle]; ok {
		multiplier = m
	}

	single := int64(math.Round(float64(base) * multiplier))

	batch := int64(1)
	if settings.BatchMode && settings.BatchSize > 1 {
		batch = int64(settings.BatchSize)
	}
	return single * batch
}
