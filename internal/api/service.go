package api

import (
	"path"
	"strings"
	"time"

	"github.com/starford/scrivano/internal/apperr"
	"github.com/starford/scrivano/internal/journal"
	"github.com/starford/scrivano/internal/notebook"
	"github.com/starford/scrivano/internal/pipeline"
	"github.com/starford/scrivano/internal/storage"
	"github.com/starford/scrivano/internal/taxonomy"
)

// Service coordinates journal, workspace and taxonomy reads for the API layer.
type Service struct {
	store  storage.Provider
	db     *journal.DB
	tax    *taxonomy.Taxonomy
	layout pipeline.Layout
}

// NewService creates a new API service.
func NewService(store storage.Provider, db *journal.DB, tax *taxonomy.Taxonomy, layout pipeline.Layout) *Service {
	return &Service{store: store, db: db, tax: tax, layout: layout}
}

// RunListResponse wraps paginated run listings.
type RunListResponse struct {
	Runs  []journal.Run `json:"runs"`
	Total int           `json:"total"`
}

// StatsResponse combines journal stats with the live intake backlog.
type StatsResponse struct {
	journal.Stats
	Pending int `json:"pending"`
}

// CategoryInfo describes one taxonomy category.
type CategoryInfo struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Default  bool     `json:"default"`
	Notes    int      `json:"notes"`
}

// NoteListItem is a lightweight item in a note list response.
type NoteListItem struct {
	Path     string    `json:"path"`
	Category string    `json:"category"`
	Slug     string    `json:"slug"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
}

// NoteDetail is the response payload for a single generated note.
type NoteDetail struct {
	Path     string `json:"path"`
	Category string `json:"category"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

// ListRuns returns paginated journal rows, newest first.
func (s *Service) ListRuns(limit, offset int, status string) (*RunListResponse, error) {
	runs, total, err := s.db.ListRuns(limit, offset, status)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []journal.Run{}
	}
	return &RunListResponse{Runs: runs, Total: total}, nil
}

// GetRun returns a single run by id.
func (s *Service) GetRun(id string) (*journal.Run, error) {
	run, err := s.db.GetRun(id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, apperr.ErrNotFound
	}
	return run, nil
}

// Stats returns journal totals plus the number of prompts still waiting
// in the intake folder.
func (s *Service) Stats() (*StatsResponse, error) {
	stats, err := s.db.Stats()
	if err != nil {
		return nil, err
	}
	pending, err := s.store.List(s.layout.Intake, pipeline.IntakeExts...)
	if err != nil {
		return nil, err
	}
	return &StatsResponse{Stats: *stats, Pending: len(pending)}, nil
}

// Categories returns the taxonomy with per-category note counts.
func (s *Service) Categories() ([]CategoryInfo, error) {
	out := make([]CategoryInfo, 0, len(s.tax.Categories))
	for _, cat := range s.tax.Categories {
		files, err := s.store.List(path.Join(s.layout.Notebook, cat.Name), ".md")
		if err != nil {
			return nil, err
		}
		out = append(out, CategoryInfo{
			Name:     cat.Name,
			Keywords: cat.Keywords,
			Default:  cat.Name == s.tax.Default,
			Notes:    len(files),
		})
	}
	return out, nil
}

// ListNotes returns every generated note in the notebook, sorted by path.
func (s *Service) ListNotes() ([]NoteListItem, error) {
	files, err := s.store.List(s.layout.Notebook, ".md")
	if err != nil {
		return nil, err
	}
	items := make([]NoteListItem, 0, len(files))
	for _, f := range files {
		rel := strings.TrimPrefix(f.Path, s.layout.Notebook+"/")
		category := ""
		if i := strings.IndexByte(rel, '/'); i >= 0 {
			category = rel[:i]
		}
		base := path.Base(f.Path)
		items = append(items, NoteListItem{
			Path:     f.Path,
			Category: category,
			Slug:     strings.TrimSuffix(base, path.Ext(base)),
			Size:     f.Size,
			ModTime:  f.ModTime,
		})
	}
	return items, nil
}

// GetNote reads a generated note. notePath is relative to the workspace
// root and must point inside the notebook folder.
func (s *Service) GetNote(notePath string) (*NoteDetail, error) {
	clean := path.Clean(notePath)
	if !strings.HasPrefix(clean, s.layout.Notebook+"/") {
		return nil, apperr.ErrNotFound
	}
	if !s.store.Exists(clean) {
		return nil, apperr.ErrNotFound
	}
	data, err := s.store.Read(clean)
	if err != nil {
		return nil, err
	}

	content := string(data)
	rel := strings.TrimPrefix(clean, s.layout.Notebook+"/")
	category := ""
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		category = rel[:i]
	}
	base := path.Base(clean)
	slug := strings.TrimSuffix(base, path.Ext(base))

	return &NoteDetail{
		Path:     clean,
		Category: category,
		Title:    notebook.TitleOrSlug(content, slug),
		Content:  content,
	}, nil
}
