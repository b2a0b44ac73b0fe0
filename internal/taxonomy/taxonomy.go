// Package taxonomy loads the category → keyword mapping that drives note
// classification. Category declaration order is significant: keyword-count
// ties resolve to the first-declared category, so the file is decoded
// through yaml.Node rather than a Go map.
package taxonomy

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is one topical bucket with its notebook folder name and triggers.
type Category struct {
	Name     string
	Keywords []string
}

// Taxonomy is the fixed category set for a run. Immutable once loaded.
type Taxonomy struct {
	Categories []Category
	Default    string
}

// Names returns category names in declaration order.
func (t *Taxonomy) Names() []string {
	out := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		out[i] = c.Name
	}
	return out
}

// Has reports whether name is a configured category.
func (t *Taxonomy) Has(name string) bool {
	for _, c := range t.Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Match returns the category whose keywords occur most often in text, and
// the match count. Ties resolve to the first-declared category. A zero
// count means no keyword matched and the returned name is empty.
func (t *Taxonomy) Match(text string) (string, int) {
	lowered := strings.ToLower(text)

	best := ""
	bestCount := 0
	for _, c := range t.Categories {
		count := 0
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
				count++
			}
		}
		if count > bestCount {
			best = c.Name
			bestCount = count
		}
	}
	return best, bestCount
}

// Validate checks structural invariants after load.
func (t *Taxonomy) Validate() error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("taxonomy: no categories defined")
	}
	seen := make(map[string]struct{}, len(t.Categories))
	for _, c := range t.Categories {
		if c.Name == "" {
			return fmt.Errorf("taxonomy: empty category name")
		}
		if c.Name != strings.ToLower(c.Name) {
			return fmt.Errorf("taxonomy: category %q must be lowercase", c.Name)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("taxonomy: duplicate category %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	if t.Default == "" {
		return fmt.Errorf("taxonomy: default_category is required")
	}
	if !t.Has(t.Default) {
		return fmt.Errorf("taxonomy: default_category %q is not a configured category", t.Default)
	}
	return nil
}

// file mirrors the on-disk YAML shape. category_keywords is kept as a raw
// node so mapping order survives the decode.
type file struct {
	CategoryKeywords yaml.Node `yaml:"category_keywords"`
	DefaultCategory  string    `yaml:"default_category"`
}

// Decode parses taxonomy YAML, preserving category declaration order.
func Decode(data []byte) (*Taxonomy, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("taxonomy: parse: %w", err)
	}
	if f.CategoryKeywords.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("taxonomy: category_keywords must be a mapping")
	}

	t := &Taxonomy{Default: f.DefaultCategory}
	// Mapping content alternates key, value.
	for i := 0; i+1 < len(f.CategoryKeywords.Content); i += 2 {
		key := f.CategoryKeywords.Content[i]
		val := f.CategoryKeywords.Content[i+1]
		var keywords []string
		if err := val.Decode(&keywords); err != nil {
			return nil, fmt.Errorf("taxonomy: keywords for %q: %w", key.Value, err)
		}
		t.Categories = append(t.Categories, Category{
			Name:     key.Value,
			Keywords: keywords,
		})
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Encode renders the taxonomy back to YAML in declaration order.
func Encode(t *Taxonomy) ([]byte, error) {
	kw := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range t.Categories {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, k := range c.Keywords {
			seq.Content = append(seq.Content, scalar(k))
		}
		kw.Content = append(kw.Content, scalar(c.Name), seq)
	}
	root := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		scalar("category_keywords"), kw,
		scalar("default_category"), scalar(t.Default),
	}}
	return yaml.Marshal(root)
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
