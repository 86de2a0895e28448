package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultTextModel  = "gemini-2.5-flash-lite"
	DefaultImageModel = "imagen-3.0-generate-002"
	DefaultTimeout    = 60 * time.Second
)

// GeminiConfig selects the backend: an API key uses the Gemini API, otherwise Vertex AI
// with ProjectID and Location.
type GeminiConfig struct {
	ProjectID  string
	Location   string
	APIKey     string
	TextModel  string
	ImageModel string
	Timeout    time.Duration

	// BaseURL overrides the service endpoint.
	BaseURL string
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	cc := &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	}
	if cfg.APIKey != "" {
		cc = &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("llm.NewGemini: %w", err)
	}

	g := &Gemini{
		client:     client,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		timeout:    cfg.Timeout,
	}
	if g.textModel == "" {
		g.textModel = DefaultTextModel
	}
	if g.imageModel == "" {
		g.imageModel = DefaultImageModel
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	return g, nil
}

// Gemini implements both TextGenerator and ImageGenerator on top of genai.
// Timeouts are applied here, per call.
type Gemini struct {
	client     *genai.Client
	textModel  string
	imageModel string
	timeout    time.Duration
}

func (g *Gemini) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	temp := req.Sampling.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: req.Sampling.MaxTokens,
		CandidateCount:  1,
	}
	if req.Sampling.TopP > 0 {
		topP := req.Sampling.TopP
		cfg.TopP = &topP
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.textModel, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("llm.Gemini.Complete: %w", err)
	}
	return strings.TrimSpace(extractText(resp)), nil
}

func (g *Gemini) GenerateImage(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/png",
	})
	if err != nil {
		return "", fmt.Errorf("llm.Gemini.GenerateImage: %w", err)
	}

	url, err := imageURL(resp)
	if err != nil {
		return "", fmt.Errorf("llm.Gemini.GenerateImage: %w", err)
	}
	return url, nil
}

func extractText(res *genai.GenerateContentResponse) string {
	if res == nil {
		return ""
	}
	// 最も確度が高い候補を優先し、無ければ他候補も走査
	for _, c := range res.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

// imageURL prefers a storage URI and falls back to an inline data URL.
func imageURL(res *genai.GenerateImagesResponse) (string, error) {
	if res == nil || len(res.GeneratedImages) == 0 {
		return "", fmt.Errorf("no image generated")
	}

	var filtered string
	for _, gi := range res.GeneratedImages {
		if gi == nil {
			continue
		}
		if gi.Image == nil {
			if gi.RAIFilteredReason != "" {
				filtered = gi.RAIFilteredReason
			}
			continue
		}
		if gi.Image.GCSURI != "" {
			return gi.Image.GCSURI, nil
		}
		if len(gi.Image.ImageBytes) > 0 {
			mime := gi.Image.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(gi.Image.ImageBytes), nil
		}
	}

	if filtered != "" {
		return "", fmt.Errorf("image filtered: %s", filtered)
	}
	return "", fmt.Errorf("no image generated")
}

var (
	_ TextGenerator  = &Gemini{}
	_ ImageGenerator = &Gemini{}
)
