package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/korjavin/swiftcamp/logger"
	"github.com/korjavin/swiftcamp/models"
)

//go:embed fallback.json
var fallbackLessons []byte

// Source yields the ordered lesson list of a content document
type Source interface {
	Lessons() ([]models.Lesson, error)
}

// FileSource reads lessons from a JSON or YAML file
type FileSource struct {
	Path string
}

// document is the optional wrapped form of a content file
type document struct {
	Lessons []models.Lesson `json:"lessons" yaml:"lessons"`
}

// Lessons loads and decodes the file
func (s FileSource) Lessons() ([]models.Lesson, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".yaml", ".yml":
		return decodeYAML(data)
	default:
		return decodeJSON(data)
	}
}

// BytesSource decodes lessons from an in-memory JSON document
type BytesSource []byte

func (s BytesSource) Lessons() ([]models.Lesson, error) {
	if len(s) == 0 {
		return nil, errors.New("empty content document")
	}
	return decodeJSON(s)
}

// Fallback returns the built-in minimal catalog
func Fallback() Source {
	return BytesSource(fallbackLessons)
}

func decodeJSON(data []byte) ([]models.Lesson, error) {
	var lessons []models.Lesson
	if err := json.Unmarshal(data, &lessons); err == nil {
		return lessons, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode lessons json: %w", err)
	}
	return doc.Lessons, nil
}

func decodeYAML(data []byte) ([]models.Lesson, error) {
	var lessons []models.Lesson
	if err := yaml.Unmarshal(data, &lessons); err == nil {
		return lessons, nil
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode lessons yaml: %w", err)
	}
	return doc.Lessons, nil
}

// Catalog is the read-only lesson registry, in catalog order
type Catalog struct {
	lessons []models.Lesson
	index   map[string]int
}

// New builds a registry from already validated lessons
func New(lessons []models.Lesson) *Catalog {
	c := &Catalog{
		lessons: append([]models.Lesson{}, lessons...),
		index:   make(map[string]int, len(lessons)),
	}
	for i, l := range c.lessons {
		c.index[l.ID] = i
	}
	return c
}

// Load reads the primary source and falls back to the secondary one when the primary
// is missing, malformed, or fails validation. It never fails: if both sources are
// unusable the catalog is empty.
func Load(primary, fallback Source, log *logger.Logger) *Catalog {
	if log == nil {
		log = logger.Nop()
	}

	for _, src := range []struct {
		name   string
		source Source
	}{{"primary", primary}, {"fallback", fallback}} {
		if src.source == nil {
			continue
		}
		lessons, err := src.source.Lessons()
		if err == nil {
			err = Validate(lessons)
		}
		if err != nil {
			log.Warn("Lesson catalog unavailable", "source", src.name, "error", err)
			continue
		}
		log.Info("Loaded lesson catalog", "source", src.name, "lessons", len(lessons))
		return New(lessons)
	}

	log.Error("No lesson catalog could be loaded, continuing with an empty catalog")
	return New(nil)
}

// Lessons returns a copy of all lessons in catalog order
func (c *Catalog) Lessons() []models.Lesson {
	return append([]models.Lesson{}, c.lessons...)
}

// Len returns the number of lessons
func (c *Catalog) Len() int {
	return len(c.lessons)
}

// Lesson looks a lesson up by ID
func (c *Catalog) Lesson(id string) (models.Lesson, bool) {
	i, ok := c.index[id]
	if !ok {
		return models.Lesson{}, false
	}
	return c.lessons[i], true
}

// Next returns the lesson that follows id in catalog order.
// It is positional and ignores prerequisites.
func (c *Catalog) Next(id string) (models.Lesson, bool) {
	i, ok := c.index[id]
	if !ok || i+1 >= len(c.lessons) {
		return models.Lesson{}, false
	}
	return c.lessons[i+1], true
}

// Categories returns category names in first-seen order
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range c.lessons {
		if !seen[l.Category] {
			seen[l.Category] = true
			out = append(out, l.Category)
		}
	}
	return out
}

// ByCategory returns the lessons of one category in catalog order
func (c *Catalog) ByCategory(category string) []models.Lesson {
	var out []models.Lesson
	for _, l := range c.lessons {
		if l.Category == category {
			out = append(out, l)
		}
	}
	return out
}
