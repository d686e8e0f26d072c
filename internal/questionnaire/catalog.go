package questionnaire

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var questionsYAML []byte

// Question is one control-alignment question with its closed answer set.
type Question struct {
	ID           string   `yaml:"id" json:"id"`
	Text         string   `yaml:"text" json:"text"`
	ISOReference string   `yaml:"isoReference" json:"isoReference"`
	Options      []string `yaml:"options" json:"options"`
}

// Catalog holds the fixed question lists per questionnaire type.
type Catalog struct {
	User     []Question `yaml:"user"`
	Provider []Question `yaml:"provider"`
}

// Questions returns the list for t.
func (c Catalog) Questions(t Type) []Question {
	if t == TypeProvider {
		return c.Provider
	}
	return c.User
}

// ParseCatalog decodes a catalog document and checks question ids are unique.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse questionnaire catalog: %w", err)
	}
	for name, list := range map[string][]Question{"user": c.User, "provider": c.Provider} {
		seen := make(map[string]struct{}, len(list))
		for _, q := range list {
			if q.ID == "" || q.Text == "" {
				return Catalog{}, fmt.Errorf("questionnaire catalog: %s question missing id or text", name)
			}
			if _, dup := seen[q.ID]; dup {
				return Catalog{}, fmt.Errorf("questionnaire catalog: duplicate %s question %q", name, q.ID)
			}
			seen[q.ID] = struct{}{}
		}
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog Catalog
)

// DefaultCatalog returns the embedded ISO 27001/27002 catalog.
func DefaultCatalog() Catalog {
	defaultOnce.Do(func() {
		c, err := ParseCatalog(questionsYAML)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}
