package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/scrivano/internal/llm"
	"github.com/starford/scrivano/internal/models"
)

const generateSystemTmpl = `You are writing a reference note for the %q section
of a personal speech-to-text fine-tuning notebook. Expand the user's prompt
into a focused markdown note: start with a single # heading, keep sections
short, prefer concrete commands and numbers over generalities, and admit
uncertainty rather than invent citations. Do not add any AI disclaimer; the
pipeline appends one.`

// Generator produces the markdown body of a note. Unlike classification and
// naming, generation failure is fatal for the prompt: the caller leaves the
// prompt in intake and moves on.
type Generator struct {
	client llm.Client
}

// NewGenerator creates a Generator.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

// Generate returns the markdown body for the prompt under the given category.
func (g *Generator) Generate(ctx context.Context, p models.Prompt, category string) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("generator: no llm client configured")
	}
	body, err := g.client.Generate(ctx, fmt.Sprintf(generateSystemTmpl, category), p.Text)
	if err != nil {
		return "", fmt.Errorf("generator: %w", err)
	}
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("generator: empty body returned")
	}
	return body, nil
}
