// Package models defines the domain types for Scrivano.
package models

import "time"

// Prompt is a user-authored text file waiting in the intake folder.
type Prompt struct {
	// Name is the filename relative to the intake folder (e.g. "whisper-vs-wav2vec2.txt").
	Name string `json:"name"`
	// Text is the raw prompt content.
	Text string `json:"text"`
}

// Ext returns the prompt's file extension including the dot.
func (p Prompt) Ext() string {
	for i := len(p.Name) - 1; i >= 0; i-- {
		switch p.Name[i] {
		case '.':
			return p.Name[i:]
		case '/':
			return ""
		}
	}
	return ""
}

// Note is a generated notebook artifact.
type Note struct {
	// Path is relative to the workspace root: "<notebook>/<category>/<slug>.md".
	Path     string `json:"path"`
	Category string `json:"category"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Body     string `json:"-"`
}

// FileInfo is a lightweight listing entry for workspace files.
type FileInfo struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}
