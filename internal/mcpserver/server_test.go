package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/scrivano/internal/classify"
	"github.com/starford/scrivano/internal/journal"
	"github.com/starford/scrivano/internal/pipeline"
	"github.com/starford/scrivano/internal/taxonomy"
	"github.com/starford/scrivano/internal/testutil"
)

func testServer(t *testing.T, llm *testutil.FakeLLM) (*Server, *journal.DB) {
	t.Helper()

	_, store := testutil.TestWorkspace(t)
	db := testutil.TestJournal(t)
	tax := taxonomy.DefaultTaxonomy()
	classifier := classify.New(tax, llm)

	proc := pipeline.NewProcessor(pipeline.Config{
		Store:      store,
		Classifier: classifier,
		Namer:      pipeline.NewNamer(llm),
		Generator:  pipeline.NewGenerator(llm),
		Journal:    db,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return New(store, db, tax, classifier, proc), db
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "submit_prompt":
		result, err = srv.submitPrompt(ctx, req)
	case "classify_text":
		result, err = srv.classifyText(ctx, req)
	case "list_runs":
		result, err = srv.listRuns(ctx, req)
	case "list_categories":
		result, err = srv.listCategories(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSubmitPromptRunsPipeline(t *testing.T) {
	llm := &testutil.FakeLLM{Replies: []testutil.FakeReply{
		{Text: "whisper-streaming"},
		{Text: "# Whisper Streaming\n\nNotes on streaming inference."},
	}}
	srv, db := testServer(t, llm)

	r := callTool(t, srv, "submit_prompt", map[string]interface{}{
		"text": "How does whisper compare to wav2vec2 on long-form audio?",
		"name": "Whisper Question",
	})
	if r.IsError {
		t.Fatalf("submit_prompt failed: %s", resultText(r))
	}

	var run journal.Run
	if err := json.Unmarshal([]byte(resultText(r)), &run); err != nil {
		t.Fatalf("result is not a run record: %v", err)
	}
	if run.Status != journal.StatusOK {
		t.Errorf("status = %q, want ok", run.Status)
	}
	if run.Category != "models" {
		t.Errorf("category = %q, want models", run.Category)
	}
	if run.NotePath != "notebook/models/whisper-streaming.md" {
		t.Errorf("note path = %q", run.NotePath)
	}

	// The run must be journaled.
	stored, err := db.GetRun(run.ID)
	if err != nil || stored == nil {
		t.Fatalf("run not journaled: %v", err)
	}
}

func TestSubmitPromptRejectsEmptyText(t *testing.T) {
	srv, _ := testServer(t, &testutil.FakeLLM{})

	r := callTool(t, srv, "submit_prompt", map[string]interface{}{"text": "   "})
	if !r.IsError {
		t.Fatal("expected error for empty text")
	}
}

func TestClassifyText(t *testing.T) {
	srv, _ := testServer(t, &testutil.FakeLLM{})

	r := callTool(t, srv, "classify_text", map[string]interface{}{
		"text": "LoRA fine-tuning on a small dataset",
	})
	if r.IsError {
		t.Fatalf("classify_text failed: %s", resultText(r))
	}

	var res classify.Result
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if res.Category != "fine-tuning" {
		t.Errorf("category = %q, want fine-tuning", res.Category)
	}
	if res.Source != classify.SourceKeyword {
		t.Errorf("source = %q, want keyword", res.Source)
	}
}

func TestListRunsTool(t *testing.T) {
	srv, db := testServer(t, &testutil.FakeLLM{})

	if _, err := db.Record(journal.Run{Prompt: "a.txt", Status: journal.StatusOK}); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "list_runs", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("list_runs failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "a.txt") {
		t.Errorf("missing run in %s", resultText(r))
	}
}

func TestListCategoriesTool(t *testing.T) {
	srv, _ := testServer(t, &testutil.FakeLLM{})

	r := callTool(t, srv, "list_categories", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "fine-tuning") {
		t.Errorf("missing fine-tuning in %q", text)
	}
	if !strings.Contains(text, "notes") || !strings.Contains(text, "(default)") {
		t.Errorf("default category not marked in %q", text)
	}
}

func TestReadNoteTool(t *testing.T) {
	llm := &testutil.FakeLLM{Replies: []testutil.FakeReply{
		{Text: "quantization"},
		{Text: "# Quantization\n\nbody"},
	}}
	srv, _ := testServer(t, llm)

	r := callTool(t, srv, "submit_prompt", map[string]interface{}{
		"text": "gguf quantization tradeoffs",
	})
	var run journal.Run
	if err := json.Unmarshal([]byte(resultText(r)), &run); err != nil {
		t.Fatal(err)
	}

	read := callTool(t, srv, "read_note", map[string]interface{}{"path": run.NotePath})
	if read.IsError {
		t.Fatalf("read_note failed: %s", resultText(read))
	}
	if !strings.Contains(resultText(read), "# Quantization") {
		t.Errorf("note content missing heading: %q", resultText(read))
	}

	// Paths outside the notebook are rejected.
	bad := callTool(t, srv, "read_note", map[string]interface{}{"path": "intake/x.txt"})
	if !bad.IsError {
		t.Error("expected error for non-notebook path")
	}
}

func TestAttributionResource(t *testing.T) {
	srv, _ := testServer(t, &testutil.FakeLLM{})

	contents, err := srv.readAttributionResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatal("expected text resource contents")
	}
	if !strings.Contains(tc.Text, "AI-generated note") {
		t.Errorf("contract missing badge text: %q", tc.Text)
	}
}
