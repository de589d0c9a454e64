// Package catalog holds the exam types a candidate can choose from.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// DefaultQuestionCount is used when an exam type omits question_count.
const DefaultQuestionCount = 120

// ExamType is a selectable practice exam.
type ExamType struct {
	ID            string `yaml:"id" json:"id"`
	Title         string `yaml:"title" json:"title"`
	Subject       string `yaml:"subject" json:"subject"`
	QuestionCount int    `yaml:"question_count" json:"question_count"`
	TimeMinutes   int    `yaml:"time_minutes" json:"time_minutes"`
}

// TimeLimitSeconds returns the exam's countdown length.
func (e ExamType) TimeLimitSeconds() int {
	return e.TimeMinutes * 60
}

type file struct {
	ExamTypes []ExamType `yaml:"exam_types"`
}

// Catalog is an ordered, read-only set of exam types.
type Catalog struct {
	types []ExamType
	byID  map[string]int
}

// New builds a catalog after validating every entry.
func New(types ...ExamType) (*Catalog, error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("catalog has no exam types")
	}
	c := &Catalog{byID: make(map[string]int, len(types))}
	for i, t := range types {
		t.ID = strings.TrimSpace(t.ID)
		t.Subject = strings.TrimSpace(t.Subject)
		if t.ID == "" {
			return nil, fmt.Errorf("exam type %d: id is required", i)
		}
		if t.Subject == "" {
			return nil, fmt.Errorf("exam type %q: subject is required", t.ID)
		}
		if t.Title == "" {
			t.Title = t.Subject
		}
		if t.QuestionCount == 0 {
			t.QuestionCount = DefaultQuestionCount
		}
		if t.QuestionCount < 0 {
			return nil, fmt.Errorf("exam type %q: question_count must be positive", t.ID)
		}
		if t.TimeMinutes <= 0 {
			return nil, fmt.Errorf("exam type %q: time_minutes must be positive", t.ID)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate exam type id %q", t.ID)
		}
		c.byID[t.ID] = len(c.types)
		c.types = append(c.types, t)
	}
	return c, nil
}

// Parse reads a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.ExamTypes...)
}

// Load reads a catalog file from disk.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in KPSS catalog.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic("invalid embedded catalog: " + err.Error())
	}
	return c
}

// Lookup finds an exam type by id.
func (c *Catalog) Lookup(id string) (ExamType, bool) {
	i, ok := c.byID[id]
	if !ok {
		return ExamType{}, false
	}
	return c.types[i], true
}

// All returns the exam types in catalog order.
func (c *Catalog) All() []ExamType {
	out := make([]ExamType, len(c.types))
	copy(out, c.types)
	return out
}
