package internal

import "github.com/starford/scrivano/internal/llm"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	dryRun    bool
	llmClient llm.Client
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithDryRun previews pipeline results without writing notes, archiving
// prompts or journaling runs.
func WithDryRun(dryRun bool) Option {
	return func(a *application) {
		a.dryRun = dryRun
	}
}

// WithLLMClient overrides the default OpenAI-backed client. Used in tests.
func WithLLMClient(client llm.Client) Option {
	return func(a *application) {
		a.llmClient = client
	}
}
