package llm

import (
	"context"
)

// Sampling holds the sampling parameters sent with every completion request.
type Sampling struct {
	Temperature float32
	TopP        float32
	MaxTokens   int32
}

// DefaultSampling returns deterministic, long-form settings.
func DefaultSampling() Sampling {
	return Sampling{Temperature: 0, TopP: 1, MaxTokens: 2048}
}

type CompletionRequest struct {
	Prompt   string
	Sampling Sampling
}

// TextGenerator is the generative-text service.
type TextGenerator interface {
	// Complete returns the completion for the prompt. An empty string with a nil
	// error means the service answered but produced no usable text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ImageGenerator is the generative-image service.
type ImageGenerator interface {
	// GenerateImage returns a URL for an image depicting the prompt.
	GenerateImage(ctx context.Context, prompt string) (string, error)
}
