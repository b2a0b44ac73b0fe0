// Package classify maps prompt text to one category from the configured
// taxonomy. It never fails: keyword matching first, then a single LLM call,
// then the configured default. Callers only ever see a valid category.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/starford/scrivano/internal/llm"
	"github.com/starford/scrivano/internal/taxonomy"
)

// Source records how a classification was decided.
type Source string

const (
	SourceKeyword Source = "keyword"
	SourceLLM     Source = "llm"
	SourceDefault Source = "default"
)

// Result is a validated classification outcome.
type Result struct {
	Category string
	Source   Source
	// Matches is the keyword hit count (zero for llm/default results).
	Matches int
}

const classifySystem = `You are a librarian for a speech-to-text engineering notebook.
Classify the user's text into exactly one of the listed categories.
Reply with the category name only: no punctuation, no explanation.`

// maxClassifyChars bounds the text sent for classification; the opening of
// a prompt carries its topic.
const maxClassifyChars = 2000

// Classifier decides the category for a prompt.
type Classifier struct {
	tax    *taxonomy.Taxonomy
	client llm.Client
}

// New creates a Classifier. client may be nil, in which case zero-match
// prompts go straight to the default category.
func New(tax *taxonomy.Taxonomy, client llm.Client) *Classifier {
	return &Classifier{tax: tax, client: client}
}

// Classify returns a valid category for text. It consults the LLM only when
// no keyword matches, and swallows every LLM failure into the default.
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	if cat, count := c.tax.Match(text); count > 0 {
		return Result{Category: cat, Source: SourceKeyword, Matches: count}
	}

	if c.client != nil {
		if cat, ok := c.askLLM(ctx, text); ok {
			return Result{Category: cat, Source: SourceLLM}
		}
	}

	return Result{Category: c.tax.Default, Source: SourceDefault}
}

// askLLM issues the single classification request and validates the answer
// against the configured category set.
func (c *Classifier) askLLM(ctx context.Context, text string) (string, bool) {
	excerpt := truncate(text, maxClassifyChars)
	prompt := fmt.Sprintf("Categories:\n%s\n\nText:\n%s",
		strings.Join(c.tax.Names(), "\n"), excerpt)

	answer, err := c.client.Generate(ctx, classifySystem, prompt)
	if err != nil {
		slog.Warn("classify: llm call failed, using default",
			slog.String("error", err.Error()))
		return "", false
	}

	cat := strings.ToLower(strings.TrimSpace(answer))
	if !c.tax.Has(cat) {
		slog.Warn("classify: llm returned unrecognized category, using default",
			slog.String("answer", answer))
		return "", false
	}
	return cat, true
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
