package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"
)

func newGeminiServer(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewGemini(context.Background(), GeminiConfig{
		APIKey:    "test-key",
		TextModel: "test-model",
		BaseURL:   srv.URL,
	})
	if err != nil {
		t.Fatalf("NewGemini failed: %v", err)
	}
	return g
}

func TestComplete(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	g := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"  President of China: We welcome you.\n"}]}}]}`))
	})

	got, err := g.Complete(context.Background(), CompletionRequest{Prompt: "We come in peace", Sampling: DefaultSampling()})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "President of China: We welcome you." {
		t.Errorf("Complete() = %q", got)
	}
	if !strings.HasSuffix(gotPath, "models/test-model:generateContent") {
		t.Errorf("request path = %q", gotPath)
	}
	if !strings.Contains(toJSON(t, gotBody), "We come in peace") {
		t.Errorf("prompt missing from request body: %v", gotBody)
	}
}

func TestCompleteEmptyCandidates(t *testing.T) {
	g := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	})

	got, err := g.Complete(context.Background(), CompletionRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("an empty completion is not an error at this layer: %v", err)
	}
	if got != "" {
		t.Errorf("Complete() = %q, want empty", got)
	}
}

func TestCompleteServerError(t *testing.T) {
	g := newGeminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
	})

	_, err := g.Complete(context.Background(), CompletionRequest{Prompt: "hello"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "llm.Gemini.Complete") {
		t.Errorf("error is not wrapped: %v", err)
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		res  *genai.GenerateContentResponse
		want string
	}{
		{"nil", nil, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, ""},
		{
			"second candidate",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{{Text: ""}}}},
				{Content: &genai.Content{Parts: []*genai.Part{{Text: "hello"}}}},
			}},
			"hello",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractText(tt.res); got != tt.want {
				t.Errorf("extractText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestImageURL(t *testing.T) {
	tests := []struct {
		name    string
		res     *genai.GenerateImagesResponse
		want    string
		wantErr string
	}{
		{name: "nil", res: nil, wantErr: "no image"},
		{
			name: "gcs uri",
			res: &genai.GenerateImagesResponse{GeneratedImages: []*genai.GeneratedImage{
				{Image: &genai.Image{GCSURI: "gs://bucket/strike.png"}},
			}},
			want: "gs://bucket/strike.png",
		},
		{
			name: "inline bytes",
			res: &genai.GenerateImagesResponse{GeneratedImages: []*genai.GeneratedImage{
				{Image: &genai.Image{ImageBytes: []byte("png"), MIMEType: "image/jpeg"}},
			}},
			want: "data:image/jpeg;base64,cG5n",
		},
		{
			name: "filtered",
			res: &genai.GenerateImagesResponse{GeneratedImages: []*genai.GeneratedImage{
				{RAIFilteredReason: "violence"},
			}},
			wantErr: "violence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := imageURL(tt.res)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want it to mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("imageURL failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("imageURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}
