// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Scrivano pipeline for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/scrivano/internal/classify"
	"github.com/starford/scrivano/internal/journal"
	"github.com/starford/scrivano/internal/pipeline"
	"github.com/starford/scrivano/internal/slug"
	"github.com/starford/scrivano/internal/storage"
	"github.com/starford/scrivano/internal/taxonomy"
)

// Server wraps the MCP server with Scrivano tools.
type Server struct {
	mcp        *server.MCPServer
	store      storage.Provider
	db         *journal.DB
	tax        *taxonomy.Taxonomy
	classifier *classify.Classifier
	proc       *pipeline.Processor
}

// New creates a new MCP server with all Scrivano tools registered.
func New(store storage.Provider, db *journal.DB, tax *taxonomy.Taxonomy, classifier *classify.Classifier, proc *pipeline.Processor) *Server {
	s := &Server{store: store, db: db, tax: tax, classifier: classifier, proc: proc}

	s.mcp = server.NewMCPServer(
		"Scrivano",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("submit_prompt",
		mcp.WithDescription("Submit a raw prompt to the pipeline. The prompt is classified, "+
			"expanded into a Markdown note, filed under its category, and the submission "+
			"is archived. Returns the resulting run record."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Raw prompt text")),
		mcp.WithString("name", mcp.Description("Optional base name for the intake file (without extension)")),
	), s.submitPrompt)

	s.mcp.AddTool(mcp.NewTool("classify_text",
		mcp.WithDescription("Classify text into one of the configured topic categories "+
			"without generating a note. Returns the category and how it was decided."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to classify")),
	), s.classifyText)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recent pipeline runs, newest first."),
		mcp.WithNumber("limit", mcp.Description("Max runs to return (default 20)")),
		mcp.WithString("status", mcp.Description("Optional status filter: ok, failed or skipped")),
	), s.listRuns)

	s.mcp.AddTool(mcp.NewTool("list_categories",
		mcp.WithDescription("List the configured topic categories and their keywords."),
	), s.listCategories)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a generated note. "+
			"Note paths come from run records or list_runs output."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Note path relative to the workspace root (e.g. notebook/models/whisper.md)")),
	), s.readNote)

	// Resource: attribution contract.
	s.mcp.AddResource(
		mcp.NewResource("scrivano://note-attribution", "Note Attribution Contract",
			mcp.WithResourceDescription("The fixed attribution badge and footer wrapped around every generated note."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readAttributionResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) submitPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text must not be empty"), nil
	}

	base := slug.Sanitize(req.GetString("name", ""))
	if base == "" {
		base = "prompt"
	}

	layout := s.proc.Layout()
	written, err := s.store.WriteUnique(path.Join(layout.Intake, base+".txt"), []byte(text))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	run, err := s.proc.Process(ctx, path.Base(written))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(run, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) classifyText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := s.classifier.Classify(ctx, text)
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	status := req.GetString("status", "")

	runs, _, err := s.db.ListRuns(limit, 0, status)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(runs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listCategories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	for _, c := range s.tax.Categories {
		fmt.Fprintf(&b, "%s: %s", c.Name, strings.Join(c.Keywords, ", "))
		if c.Name == s.tax.Default {
			b.WriteString(" (default)")
		}
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notePath, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	layout := s.proc.Layout()
	clean := path.Clean(notePath)
	if !strings.HasPrefix(clean, layout.Notebook+"/") {
		return mcp.NewToolResultError(fmt.Sprintf("not a note path: %s", notePath)), nil
	}
	data, err := s.store.Read(clean)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", notePath)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) readAttributionResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "scrivano://note-attribution",
			MIMEType: "text/markdown",
			Text:     AttributionContract,
		},
	}, nil
}
