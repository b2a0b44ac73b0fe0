package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Options configures the OpenAI-compatible client. BaseURL may point at any
// chat-completions-compatible server (OpenAI, vLLM, Ollama, LM Studio).
type Options struct {
	BaseURL     string
	Model       string
	APIKey      string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
}

// OpenAI implements Client over the chat-completions API.
type OpenAI struct {
	client *openai.Client
	opts   Options
}

// NewOpenAI creates a client from the given options.
func NewOpenAI(opts Options) *OpenAI {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	slog.Info("llm: client initialized",
		slog.String("base_url", cfg.BaseURL),
		slog.String("model", opts.Model))
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		opts:   opts,
	}
}

// Generate implements Client with a per-call timeout.
func (o *OpenAI) Generate(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: o.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if o.opts.MaxTokens > 0 {
		req.MaxCompletionTokens = o.opts.MaxTokens
	}
	if o.opts.Temperature > 0 {
		req.Temperature = o.opts.Temperature
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	slog.Debug("llm: response received",
		slog.String("finish_reason", string(resp.Choices[0].FinishReason)))
	return resp.Choices[0].Message.Content, nil
}
