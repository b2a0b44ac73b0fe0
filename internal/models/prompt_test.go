package models

import "testing"

func TestPromptExt(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"idea.txt", ".txt"},
		{"notes.md", ".md"},
		{"archive.tar.gz", ".gz"},
		{"no-extension", ""},
		{"dir.v2/plain", ""},
		{"", ""},
	}
	for _, c := range cases {
		p := Prompt{Name: c.name}
		if got := p.Ext(); got != c.want {
			t.Errorf("Ext(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}
