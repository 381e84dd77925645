package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// Embedding scores similarity as the cosine of sentence embeddings from
// an OpenAI-compatible embeddings endpoint. The underlying client is
// created lazily on first use and reused for the rest of the session.
type Embedding struct {
	baseURL string
	apiKey  string
	model   string

	once sync.Once
	api  *openai.Client
}

// NewEmbedding creates an embedding provider. No connection is made
// until the first Score call.
func NewEmbedding(baseURL, apiKey, modelName string) *Embedding {
	return &Embedding{baseURL: baseURL, apiKey: apiKey, model: modelName}
}

func (e *Embedding) client() *openai.Client {
	e.once.Do(func() {
		config := openai.DefaultConfig(e.apiKey)
		if e.baseURL != "" {
			config.BaseURL = e.baseURL
		}
		e.api = openai.NewClientWithConfig(config)
		slog.Debug("embedding client initialized", "url", e.baseURL, "model", e.model)
	})
	return e.api
}

// Score embeds both texts in one request and returns their cosine
// similarity clamped to [0,1]. Callers fall back to Lexical on error.
func (e *Embedding) Score(ctx context.Context, a, b string) (float64, error) {
	resp, err := e.client().CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{a, b},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return 0, fmt.Errorf("embeddings API call: %w", err)
	}
	if len(resp.Data) < 2 {
		return 0, fmt.Errorf("embeddings API returned %d vectors, want 2", len(resp.Data))
	}

	score := cosine(resp.Data[0].Embedding, resp.Data[1].Embedding)
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	return score, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
