// Package llm abstracts the single external language-model collaborator.
// The pipeline issues three calls per prompt (classify, name, generate),
// all through the same request/response shape.
package llm

import "context"

// Client is the interface for any LLM backend.
type Client interface {
	// Generate sends one chat-style request with a system instruction and a
	// user prompt and returns the generated text.
	Generate(ctx context.Context, system, prompt string) (string, error)
}
