package genai

import (
	"context"
	"errors"
)

// Image is the usable output of a generation call.
type Image struct {
	Bytes []byte
	Mime  string
}

// InlineImage is an input image attached to an edit-style request.
type InlineImage struct {
	Bytes []byte
	Mime  string
}

type GenerateRequest struct {
	Prompt      string
	AspectRatio string
	Resolution  string
	InputImage  *InlineImage
}

// Provider is the narrow contract the worker depends on: bytes or an error.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (*Image, error)
}

var (
	ErrMissingAPIKey = errors.New("generation provider api key not configured")
	// ErrNoImage means the model answered but returned no usable image.
	ErrNoImage = errors.New("model returned no image")
)
