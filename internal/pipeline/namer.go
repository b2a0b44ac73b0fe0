package pipeline

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/starford/scrivano/internal/llm"
	"github.com/starford/scrivano/internal/models"
	"github.com/starford/scrivano/internal/slug"
)

const nameSystem = `You name files in a speech-to-text engineering notebook.
Produce a short descriptive filename slug for the user's text: three to six
lowercase words joined by hyphens. Reply with the slug only, no extension,
no quotes, no explanation.`

// maxNameChars bounds the text sent for naming.
const maxNameChars = 1500

// Namer derives a filesystem-safe slug for a prompt. Naming never fails:
// any LLM problem falls back to a deterministic slug from the original
// filename, so a bad naming call can never abort note generation.
type Namer struct {
	client llm.Client
}

// NewNamer creates a Namer. client may be nil; the fallback then always
// applies.
func NewNamer(client llm.Client) *Namer {
	return &Namer{client: client}
}

// Name returns a sanitized slug for the prompt, falling back to its
// original filename.
func (n *Namer) Name(ctx context.Context, p models.Prompt) string {
	if n.client != nil {
		answer, err := n.client.Generate(ctx, nameSystem, truncate(p.Text, maxNameChars))
		if err == nil {
			if s := slug.Sanitize(answer); s != "" {
				return s
			}
			slog.Warn("namer: llm answer sanitized to nothing, using fallback",
				slog.String("answer", answer))
		} else {
			slog.Warn("namer: llm call failed, using fallback",
				slog.String("error", err.Error()))
		}
	}
	return slug.FromFilename(p.Name)
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
