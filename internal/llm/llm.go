package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pavelanni/tutor/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client (Ollama etc.) used to
// enrich feedback and explanations. Every generator returns an empty
// string when the backend has nothing usable; callers fall back to
// templates. Errors never propagate past the session loop.
type Client struct {
	api     *openai.Client
	model   string
	enabled bool

	probeOnce sync.Once
	available bool
}

// New creates a new LLM client. When enabled is false the client is a
// permanent no-op and Available always reports false.
func New(baseURL, apiKey, modelName string, enabled bool) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		enabled: enabled,
	}
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	return nil
}

// Available probes the endpoint once per session and caches the result.
func (c *Client) Available(ctx context.Context) bool {
	if c == nil || !c.enabled {
		return false
	}
	c.probeOnce.Do(func() {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.Ping(probeCtx); err != nil {
			slog.Warn("LLM endpoint unavailable, using template feedback", "error", err)
			return
		}
		c.available = true
	})
	return c.available
}

// GenerateFeedback asks the LLM for verdict-appropriate tutor feedback.
// An empty return means "use the template fallback".
func (c *Client) GenerateFeedback(ctx context.Context, verdict model.Verdict, q model.Question, missing []string) (string, error) {
	if !c.Available(ctx) {
		return "", nil
	}
	return c.complete(ctx, buildFeedbackPrompt(verdict, q, missing))
}

func buildFeedbackPrompt(verdict model.Verdict, q model.Question, missing []string) string {
	var sb strings.Builder
	sb.WriteString("You are an encouraging AI tutor. The student answered a question.\n")
	sb.WriteString("Question: " + q.Text + "\n")
	sb.WriteString("Expected answer: " + q.ExpectedAnswer + "\n")
	sb.WriteString("Verdict: " + string(verdict) + "\n")
	if len(missing) > 0 {
		sb.WriteString("Missing concepts: " + strings.Join(missing, ", ") + ".\n")
	}
	sb.WriteString("Generate brief (2-3 sentence), encouraging feedback appropriate for the verdict.")
	return sb.String()
}

// GenerateExplanation asks the LLM for a short explanation of the
// question's answer, used by the "explain" voice command.
func (c *Client) GenerateExplanation(ctx context.Context, q model.Question) (string, error) {
	if !c.Available(ctx) {
		return "", nil
	}
	return c.complete(ctx, buildExplanationPrompt(q))
}

func buildExplanationPrompt(q model.Question) string {
	var sb strings.Builder
	sb.WriteString("Explain the following concept clearly and concisely:\n")
	sb.WriteString("Question: " + q.Text + "\n")
	sb.WriteString("Answer: " + q.ExpectedAnswer + "\n")
	sb.WriteString("Provide a 2-3 sentence explanation suitable for a student.")
	return sb.String()
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("LLM response", "raw", text)
	return text, nil
}
