// Package pipeline runs prompts through classify → name → generate →
// attribute → write → archive, one prompt at a time.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/scrivano/internal/apperr"
	"github.com/starford/scrivano/internal/checksum"
	"github.com/starford/scrivano/internal/classify"
	"github.com/starford/scrivano/internal/journal"
	"github.com/starford/scrivano/internal/models"
	"github.com/starford/scrivano/internal/notebook"
	"github.com/starford/scrivano/internal/storage"
)

// Layout names the workspace subfolders.
type Layout struct {
	Intake   string
	Notebook string
	Archive  string
}

// DefaultLayout returns the standard subfolder names.
func DefaultLayout() Layout {
	return Layout{Intake: "intake", Notebook: "notebook", Archive: "archive"}
}

// IntakeExts are the prompt extensions the pipeline accepts. Anything else
// in the intake folder is ignored.
var IntakeExts = []string{".txt", ".md"}

// Event kinds published after each processed prompt.
const (
	EventSucceeded = "run.succeeded"
	EventFailed    = "run.failed"
	EventSkipped   = "run.skipped"
)

// EventFunc receives a run result after it is finalized.
type EventFunc func(kind string, run journal.Run)

// Config wires a Processor.
type Config struct {
	Store          storage.Provider
	Classifier     *classify.Classifier
	Namer          *Namer
	Generator      *Generator
	Journal        journal.Recorder // optional
	Layout         Layout
	Logger         *slog.Logger
	DryRun         bool
	SkipDuplicates bool
	Events         EventFunc // optional
	Preview        io.Writer // dry-run preview destination
	Now            func() time.Time
}

// Processor runs the per-prompt pipeline. One Process call is fully
// sequential; callers serialize calls themselves (batch loop or watcher
// queue), keeping LLM traffic to one request at a time.
type Processor struct {
	cfg Config
}

// NewProcessor creates a Processor, applying defaults for optional fields.
func NewProcessor(cfg Config) *Processor {
	if cfg.Layout == (Layout{}) {
		cfg.Layout = DefaultLayout()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Preview == nil {
		cfg.Preview = os.Stdout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Processor{cfg: cfg}
}

// Layout returns the workspace subfolder names in use.
func (p *Processor) Layout() Layout {
	return p.cfg.Layout
}

// EligibleExt reports whether name has a prompt extension the pipeline
// accepts.
func EligibleExt(name string) bool {
	for _, e := range IntakeExts {
		if strings.EqualFold(filepath.Ext(name), e) {
			return true
		}
	}
	return false
}

// Process runs one prompt through the pipeline. name is relative to the
// intake folder. On per-item failure the prompt stays in intake, the
// returned run (when non-nil) carries the failure, and the error is
// returned for the caller's summary.
func (p *Processor) Process(ctx context.Context, name string) (*journal.Run, error) {
	if !EligibleExt(name) {
		return nil, fmt.Errorf("pipeline: %s: not a %s prompt", name, strings.Join(IntakeExts, "/"))
	}

	started := p.cfg.Now()
	srcPath := filepath.Join(p.cfg.Layout.Intake, name)

	data, err := p.cfg.Store.Read(srcPath)
	if err != nil {
		return p.fail(journal.Run{Prompt: name}, started, err)
	}
	prompt := models.Prompt{Name: name, Text: string(data)}
	if strings.TrimSpace(prompt.Text) == "" {
		return p.fail(journal.Run{Prompt: name}, started, apperr.ErrEmptyPrompt)
	}

	run := journal.Run{Prompt: name, Checksum: checksum.Sum(data)}

	if p.cfg.SkipDuplicates && p.cfg.Journal != nil && !p.cfg.DryRun {
		seen, lookupErr := p.cfg.Journal.HasSucceeded(run.Checksum)
		if lookupErr != nil {
			p.cfg.Logger.Warn("pipeline: duplicate lookup failed",
				slog.String("prompt", name), slog.String("error", lookupErr.Error()))
		} else if seen {
			return p.skip(run, started, prompt, srcPath)
		}
	}

	cls := p.cfg.Classifier.Classify(ctx, prompt.Text)
	run.Category = cls.Category
	run.Source = string(cls.Source)
	p.cfg.Logger.Debug("pipeline: classified",
		slog.String("prompt", name),
		slog.String("category", cls.Category),
		slog.String("source", string(cls.Source)))

	s := p.cfg.Namer.Name(ctx, prompt)

	body, err := p.cfg.Generator.Generate(ctx, prompt, cls.Category)
	if err != nil {
		return p.fail(run, started, err)
	}

	note := models.Note{
		Category: cls.Category,
		Slug:     s,
		Title:    notebook.TitleOrSlug(body, s),
		Body:     body,
	}
	content := notebook.Attribute(note.Body)
	run.Title = note.Title
	target := filepath.Join(p.cfg.Layout.Notebook, note.Category, note.Slug+".md")

	if p.cfg.DryRun {
		run.NotePath = target
		run.Status = journal.StatusOK
		run.Duration = p.cfg.Now().Sub(started)
		p.preview(name, run, content)
		return &run, nil
	}

	written, err := p.cfg.Store.WriteUnique(target, []byte(content))
	if err != nil {
		return p.fail(run, started, err)
	}
	note.Path = written
	run.NotePath = note.Path

	if err := p.archive(prompt, srcPath); err != nil {
		return p.fail(run, started, err)
	}

	run.Status = journal.StatusOK
	run.Duration = p.cfg.Now().Sub(started)
	p.record(&run)
	p.publish(EventSucceeded, run)
	p.cfg.Logger.Info("pipeline: prompt processed",
		slog.String("prompt", name),
		slog.String("category", run.Category),
		slog.String("note", run.NotePath))
	return &run, nil
}

// archive moves the original prompt under a year-month folder with a
// timestamp suffix. Collision-free by timestamp granularity.
func (p *Processor) archive(pr models.Prompt, srcPath string) error {
	base := filepath.Base(pr.Name)
	ext := pr.Ext()
	stem := strings.TrimSuffix(base, ext)

	now := p.cfg.Now()
	dst := filepath.Join(
		p.cfg.Layout.Archive,
		now.Format("2006-01"),
		fmt.Sprintf("%s_%s%s", stem, now.Format("20060102-150405"), ext),
	)
	if err := p.cfg.Store.Move(srcPath, dst); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

func (p *Processor) fail(run journal.Run, started time.Time, cause error) (*journal.Run, error) {
	run.Status = journal.StatusFailed
	run.Error = cause.Error()
	run.Duration = p.cfg.Now().Sub(started)
	p.record(&run)
	p.publish(EventFailed, run)
	return &run, fmt.Errorf("pipeline: %s: %w", run.Prompt, cause)
}

// skip archives an already-seen prompt without regenerating its note, so
// intake still drains.
func (p *Processor) skip(run journal.Run, started time.Time, pr models.Prompt, srcPath string) (*journal.Run, error) {
	if err := p.archive(pr, srcPath); err != nil {
		return p.fail(run, started, err)
	}
	run.Status = journal.StatusSkipped
	run.Duration = p.cfg.Now().Sub(started)
	p.record(&run)
	p.publish(EventSkipped, run)
	p.cfg.Logger.Info("pipeline: duplicate prompt skipped", slog.String("prompt", pr.Name))
	return &run, nil
}

func (p *Processor) record(run *journal.Run) {
	if p.cfg.Journal == nil || p.cfg.DryRun {
		return
	}
	id, err := p.cfg.Journal.Record(*run)
	if err != nil {
		p.cfg.Logger.Warn("pipeline: journal record failed",
			slog.String("prompt", run.Prompt), slog.String("error", err.Error()))
		return
	}
	run.ID = id
}

func (p *Processor) publish(kind string, run journal.Run) {
	if p.cfg.Events == nil || p.cfg.DryRun {
		return
	}
	p.cfg.Events(kind, run)
}

func (p *Processor) preview(name string, run journal.Run, content string) {
	fmt.Fprintf(p.cfg.Preview, "---- dry run: %s ----\n", name)
	fmt.Fprintf(p.cfg.Preview, "category: %s (%s)\n", run.Category, run.Source)
	fmt.Fprintf(p.cfg.Preview, "note:     %s\n\n", run.NotePath)
	fmt.Fprintln(p.cfg.Preview, content)
	fmt.Fprintf(p.cfg.Preview, "---- end: %s ----\n", name)
}

// Summary aggregates a batch run.
type Summary struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
	// Failures lists the intake-relative names of failed prompts.
	Failures []string
}

// Batch processes every eligible intake file in lexicographic order.
// Per-item failures are reported in the summary and do not abort the batch;
// only a failure to list the intake folder is fatal.
func (p *Processor) Batch(ctx context.Context) (*Summary, error) {
	files, err := p.cfg.Store.List(p.cfg.Layout.Intake, IntakeExts...)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list intake: %w", err)
	}

	sum := &Summary{}
	for _, f := range files {
		name, relErr := filepath.Rel(p.cfg.Layout.Intake, f.Path)
		if relErr != nil {
			continue
		}
		run, procErr := p.Process(ctx, name)
		sum.Processed++
		switch {
		case procErr != nil:
			sum.Failed++
			sum.Failures = append(sum.Failures, name)
			p.cfg.Logger.Error("pipeline: prompt failed",
				slog.String("prompt", name), slog.String("error", procErr.Error()))
		case run != nil && run.Status == journal.StatusSkipped:
			sum.Skipped++
		default:
			sum.Succeeded++
		}
	}

	p.cfg.Logger.Info("pipeline: batch complete",
		slog.Int("processed", sum.Processed),
		slog.Int("succeeded", sum.Succeeded),
		slog.Int("failed", sum.Failed),
		slog.Int("skipped", sum.Skipped))
	return sum, nil
}
