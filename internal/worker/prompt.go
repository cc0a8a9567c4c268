package worker

import (
	"strings"

	"github.com/pixelmint/pixelmint/internal/task/domain"
)

var scenePrompts = map[string]string{
	"product":   "Professional product photography, studio lighting, clean background.",
	"portrait":  "Professional portrait photography, flattering lighting, bokeh background.",
	"landscape": "Stunning landscape photography, natural lighting, vibrant colors.",
	"interior":  "Interior design photography, architectural lighting, modern aesthetic.",
	"food":      "Appetizing food photography, professional food styling, warm lighting.",
	"abstract":  "Abstract artistic composition, creative and unique visual elements.",
}

var stylePrompts = map[string]string{
	"realistic":     "Photorealistic style, ultra-detailed, lifelike rendering.",
	"anime":         "Anime/manga art style, clean lines, vibrant colors, cel-shaded.",
	"oil-painting":  "Oil painting style, rich brushstrokes, classical art technique.",
	"watercolor":    "Watercolor painting style, soft gradients, translucent layers.",
	"digital-art":   "Digital art style, modern illustration, crisp details.",
	"pencil-sketch": "Pencil sketch style, hand-drawn look, graphite texture.",
	"cinematic":     "Cinematic style, movie-like composition, dramatic lighting.",
}

var resolutionTexts = map[string]string{
	"1K": "Standard HD quality.",
	"2K": "High resolution 2K quality, enhanced details.",
	"4K": "Ultra high resolution 4K quality, maximum detail and clarity.",
}

// buildPrompt composes the model prompt: a tool-specific instruction base,
// then scene and style directives prepended, then a resolution directive.
func buildPrompt(taskType, basePrompt string, settings domain.GenerationSettings) string {
	basePrompt = strings.TrimSpace(basePrompt)

	var prompt string
	if taskType == domain.TypeTextToImage {
		prompt = basePrompt
		if prompt == "" {
			prompt = "Generate a high quality image"
		}
	} else {
		switch taskType {
		case domain.TypeBackground:
			prompt = "Look at this product image and generate a new version with the background completely removed. Place the product on a pure white background. Keep the product sharp, clear and high quality. " + basePrompt
		case domain.TypeUpscale:
			prompt = "Look at this image and generate an enhanced, higher resolution version. Make it sharper, more detailed, and improve the overall quality. " + basePrompt
		case domain.TypeModel:
			prompt = basePrompt
			if prompt == "" {
				prompt = "Generate a professional fashion photo with a model wearing/holding this product."
			}
		default:
			prompt = basePrompt
			if prompt == "" {
				prompt = "Enhance this image"
			}
		}
	}

	if directive, ok := scenePrompts[settings.SceneType]; ok {
		prompt = directive + " " + prompt
	}
	if directive, ok := stylePrompts[settings.ArtStyle]; ok {
		prompt = directive + " " + prompt
	}
	if directive, ok := resolutionTexts[settings.Resolution]; ok {
		prompt = directive + " " + prompt
	}

	return strings.TrimSpace(prompt)
}
