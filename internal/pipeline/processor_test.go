package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/scrivano/internal/classify"
	"github.com/starford/scrivano/internal/journal"
	"github.com/starford/scrivano/internal/storage"
	"github.com/starford/scrivano/internal/taxonomy"
	"github.com/starford/scrivano/internal/testutil"
)

var testClock = func() time.Time {
	return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type env struct {
	proc    *Processor
	store   storage.Provider
	db      *journal.DB
	fake    *testutil.FakeLLM
	preview *bytes.Buffer
}

func testEnv(t *testing.T, fake *testutil.FakeLLM, mutate func(*Config)) *env {
	t.Helper()
	_, store := testutil.TestWorkspace(t)
	db := testutil.TestJournal(t)
	preview := &bytes.Buffer{}

	cfg := Config{
		Store:      store,
		Classifier: classify.New(taxonomy.DefaultTaxonomy(), fake),
		Namer:      NewNamer(fake),
		Generator:  NewGenerator(fake),
		Journal:    db,
		Logger:     quietLogger(),
		Preview:    preview,
		Now:        testClock,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return &env{
		proc:    NewProcessor(cfg),
		store:   store,
		db:      db,
		fake:    fake,
		preview: preview,
	}
}

func TestProcess_SuccessWritesNoteAndArchives(t *testing.T) {
	fake := &testutil.FakeLLM{Replies: []testutil.FakeReply{
		{Text: "whisper-vs-wav2vec2"},
		{Text: "# Whisper vs wav2vec2\n\nComparison body.\n"},
	}}
	e := testEnv(t, fake, nil)
	_ = e.store.Write("intake/idea.txt", []byte("Comparing Whisper and wav2vec2 for fine-tuning"))

	run, err := e.proc.Process(context.Background(), "idea.txt")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	// Keyword classification: only namer + generator hit the LLM.
	if fake.CallCount() != 2 {
		t.Errorf("llm calls = %d, want 2", fake.CallCount())
	}
	if run.Category != "models" || run.Source != "keyword" {
		t.Errorf("run = %+v", run)
	}
	if run.Title != "Whisper vs wav2vec2" {
		t.Errorf("title = %q", run.Title)
	}

	wantNote := filepath.Join("notebook", "models", "whisper-vs-wav2vec2.md")
	if run.NotePath != wantNote {
		t.Errorf("note path = %q, want %q", run.NotePath, wantNote)
	}
	content, err := e.store.Read(wantNote)
	if err != nil {
		t.Fatalf("note not written: %v", err)
	}
	if !bytes.Contains(content, []byte("AI-generated note")) {
		t.Error("badge missing from note")
	}
	if !bytes.Contains(content, []byte("Comparison body.")) {
		t.Error("generated body missing from note")
	}

	// Archived iff written: intake empty, archive entry present.
	if e.store.Exists("intake/idea.txt") {
		t.Error("prompt should be archived out of intake")
	}
	wantArchive := filepath.Join("archive", "2026-08", "idea_20260828-120000.txt")
	if !e.store.Exists(wantArchive) {
		t.Errorf("archive entry %q missing", wantArchive)
	}

	// Journal records the success.
	runs, total, err := e.db.ListRuns(0, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || runs[0].Status != journal.StatusOK {
		t.Errorf("journal: total=%d runs=%+v", total, runs)
	}
}

func TestProcess_GenerationFailureLeavesPromptInIntake(t *testing.T) {
	fake := &testutil.FakeLLM{Replies: []testutil.FakeReply{
		{Text: "some-slug"},
		{Err: errors.New("model overloaded")},
	}}
	e := testEnv(t, fake, nil)
	_ = e.store.Write("intake/idea.txt", []byte("whisper prompt text"))

	run, err := e.proc.Process(context.Background(), "idea.txt")
	if err == nil {
		t.Fatal("expected generation error")
	}
	if run == nil || run.Status != journal.StatusFailed {
		t.Fatalf("run = %+v", run)
	}

	if !e.store.Exists("intake/idea.txt") {
		t.Error("failed prompt must stay in intake")
	}
	notes, _ := e.store.List("notebook", ".md")
	if len(notes) != 0 {
		t.Errorf("no note should exist, got %v", notes)
	}
	archived, _ := e.store.List("archive")
	if len(archived) != 0 {
		t.Errorf("nothing should be archived, got %v", archived)
	}
}

func TestProcess_CollisionGetsNumericSuffix(t *testing.T) {
	fake := &testutil.FakeLLM{Replies: []testutil.FakeReply{
		{Text: "quantization-formats"},
		{Text: "# Quantization Formats\n\nFirst.\n"},
		{Text: "quantization-formats"},
		{Text: "# Quantization Formats\n\nSecond.\n"},
	}}
	e := testEnv(t, fake, nil)
	_ = e.store.Write("intake/a.txt", []byte("gguf quantization question one"))
	_ = e.store.Write("intake/b.txt", []byte("gguf quantization question two"))

	runA, err := e.proc.Process(context.Background(), "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	runB, err := e.proc.Process(context.Background(), "b.txt")
	if err != nil {
		t.Fatal(err)
	}

	wantA := filepath.Join("notebook", "formats", "quantization-formats.md")
	wantB := filepath.Join("notebook", "formats", "quantization-formats-1.md")
	if runA.NotePath != wantA || runB.NotePath != wantB {
		t.Errorf("paths = %q, %q; want %q, %q", runA.NotePath, runB.NotePath, wantA, wantB)
	}

	first, _ := e.store.Read(wantA)
	if !bytes.Contains(first, []byte("First.")) {
		t.Error("original note was overwritten")
	}
}

func TestProcess_EmptyPromptFails(t *testing.T) {
	e := testEnv(t, &testutil.FakeLLM{}, nil)
	_ = e.store.Write("intake/empty.txt", []byte("   \n\t"))

	if _, err := e.proc.Process(context.Background(), "empty.txt"); err == nil {
		t.Fatal("expected error for empty prompt")
	}
	if !e.store.Exists("intake/empty.txt") {
		t.Error("empty prompt must stay in intake")
	}
}

func TestProcess_RejectsOtherExtensions(t *testing.T) {
	e := testEnv(t, &testutil.FakeLLM{}, nil)
	if _, err := e.proc.Process(context.Background(), "audio.wav"); err == nil {
		t.Fatal("expected error for non-prompt extension")
	}
}

func TestBatch_ContinuesPastPerItemFailures(t *testing.T) {
	fake := &testutil.FakeLLM{Replies: []testutil.FakeReply{
		{Text: "note-a"},
		{Text: "# A\n\nbody\n"},
		{Text: "note-b"},
		{Err: errors.New("boom")},
		{Text: "note-c"},
		{Text: "# C\n\nbody\n"},
	}}
	e := testEnv(t, fake, nil)
	_ = e.store.Write("intake/a.txt", []byte("whisper one"))
	_ = e.store.Write("intake/b.txt", []byte("whisper two"))
	_ = e.store.Write("intake/c.txt", []byte("whisper three"))

	sum, err := e.proc.Batch(context.Background())
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if sum.Processed != 3 || sum.Succeeded != 2 || sum.Failed != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(sum.Failures) != 1 || sum.Failures[0] != "b.txt" {
		t.Errorf("failures = %v, want [b.txt]", sum.Failures)
	}

	if !e.store.Exists("intake/b.txt") {
		t.Error("failed prompt must stay in intake")
	}
	if e.store.Exists("intake/a.txt") || e.store.Exists("intake/c.txt") {
		t.Error("successful prompts must be archived")
	}
}

func TestProcess_DryRunHasNoSideEffects(t *testing.T) {
	fake := &testutil.FakeLLM{Replies: []testutil.FakeReply{
		{Text: "dry-slug"},
		{Text: "# Dry\n\nbody\n"},
	}}
	e := testEnv(t, fake, func(c *Config) { c.DryRun = true })
	_ = e.store.Write("intake/idea.txt", []byte("whisper prompt"))

	run, err := e.proc.Process(context.Background(), "idea.txt")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if run.Status != journal.StatusOK {
		t.Errorf("status = %q", run.Status)
	}

	if !e.store.Exists("intake/idea.txt") {
		t.Error("dry run must not archive")
	}
	notes, _ := e.store.List("notebook", ".md")
	if len(notes) != 0 {
		t.Errorf("dry run must not write notes, got %v", notes)
	}
	_, total, _ := e.db.ListRuns(0, 0, "")
	if total != 0 {
		t.Errorf("dry run must not journal, got %d rows", total)
	}

	out := e.preview.String()
	if !bytes.Contains([]byte(out), []byte("category: models")) {
		t.Errorf("preview missing category: %q", out)
	}
	if !bytes.Contains([]byte(out), []byte("# Dry")) {
		t.Errorf("preview missing content: %q", out)
	}
}

func TestProcess_SkipDuplicates(t *testing.T) {
	fake := &testutil.FakeLLM{Replies: []testutil.FakeReply{
		{Text: "dup-slug"},
		{Text: "# Dup\n\nbody\n"},
	}}
	e := testEnv(t, fake, func(c *Config) { c.SkipDuplicates = true })
	content := []byte("whisper duplicate prompt")
	_ = e.store.Write("intake/a.txt", content)

	if _, err := e.proc.Process(context.Background(), "a.txt"); err != nil {
		t.Fatal(err)
	}

	// Same content again under a new name.
	_ = e.store.Write("intake/b.txt", content)
	run, err := e.proc.Process(context.Background(), "b.txt")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if run.Status != journal.StatusSkipped {
		t.Errorf("status = %q, want skipped", run.Status)
	}
	if e.store.Exists("intake/b.txt") {
		t.Error("skipped duplicate should still be archived")
	}
	notes, _ := e.store.List("notebook", ".md")
	if len(notes) != 1 {
		t.Errorf("notes = %v, want exactly one", notes)
	}
	// No extra LLM traffic for the duplicate.
	if fake.CallCount() != 2 {
		t.Errorf("llm calls = %d, want 2", fake.CallCount())
	}
}

func TestProcess_EventsPublished(t *testing.T) {
	fake := &testutil.FakeLLM{Replies: []testutil.FakeReply{
		{Text: "evt-slug"},
		{Text: "# Evt\n\nbody\n"},
	}}
	var kinds []string
	e := testEnv(t, fake, func(c *Config) {
		c.Events = func(kind string, _ journal.Run) { kinds = append(kinds, kind) }
	})
	_ = e.store.Write("intake/idea.txt", []byte("whisper prompt"))

	if _, err := e.proc.Process(context.Background(), "idea.txt"); err != nil {
		t.Fatal(err)
	}
	if len(kinds) != 1 || kinds[0] != EventSucceeded {
		t.Errorf("events = %v", kinds)
	}
}
