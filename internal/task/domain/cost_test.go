package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreditCost(t *testing.T) {
	cases := []struct {
		name     string
		taskType string
		settings GenerationSettings
		want     int64
	}{
		{"standard base", TypeTextToImage, GenerationSettings{}, 3},
		{"upscale base", TypeUpscale, GenerationSettings{}, 10},
		{"resolution is unified pricing", TypeTextToImage, GenerationSettings{Resolution: "4K"}, 3},
		{"oil painting", TypeTextToImage, GenerationSettings{ArtStyle: "oil-painting"}, 5},
		{"cinematic", TypeTextToImage, GenerationSettings{ArtStyle: "cinematic"}, 4},
		{"realistic", TypeTextToImage, GenerationSettings{ArtStyle: "realistic"}, 4},
		{"anime rounds to base", TypeTextToImage, GenerationSettings{ArtStyle: "anime"}, 3},
		{"unknown style is base rate", TypeTextToImage, GenerationSettings{ArtStyle: "vaporwave"}, 3},
		{"upscale with style", TypeUpscale, GenerationSettings{ArtStyle: "oil-painting"}, 15},
		{"batch multiplies per-image cost", TypeTextToImage, GenerationSettings{BatchMode: true, BatchSize: 4}, 12},
		{"batch size one is ignored", TypeTextToImage, GenerationSettings{BatchMode: true, BatchSize: 1}, 3},
		{"batch without mode is ignored", TypeTextToImage, GenerationSettings{BatchSize: 4}, 3},
		{"styled batch", TypeTextToImage, GenerationSettings{ArtStyle: "cinematic", BatchMode: true, BatchSize: 2}, 8},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CreditCost(tc.taskType, tc.settings))
		})
	}
}

func TestSettingsFromMapDefaults(t *testing.T) {
	settings := SettingsFromMap(nil)
	assert.Equal(t, "1K", settings.Resolution)
	assert.Equal(t, "16:9", settings.AspectRatio)

	settings = SettingsFromMap(map[string]any{
		"resolution":  "4K",
		"aspectRatio": "1:1",
		"artStyle":    "anime",
		"batchMode":   true,
		"batchSize":   float64(3), // JSON numbers decode as float64
	})
	assert.Equal(t, "4K", settings.Resolution)
	assert.Equal(t, "1:1", settings.AspectRatio)
	assert.Equal(t, "anime", settings.ArtStyle)
	assert.True(t, settings.BatchMode)
	assert.Equal(t, 3, settings.BatchSize)
}
