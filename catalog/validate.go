package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/korjavin/swiftcamp/models"
)

// ErrDependencyCycle marks a catalog whose prerequisites loop back on themselves;
// every lesson on such a loop could never be unlocked.
var ErrDependencyCycle = errors.New("dependency cycle")

// Validate checks identifiers, difficulties, and the prerequisite graph
func Validate(lessons []models.Lesson) error {
	if len(lessons) == 0 {
		return errors.New("catalog contains no lessons")
	}

	deps := make(map[string][]string, len(lessons))
	for i, l := range lessons {
		if strings.TrimSpace(l.ID) == "" {
			return fmt.Errorf("lesson #%d has no id", i+1)
		}
		if _, dup := deps[l.ID]; dup {
			return fmt.Errorf("duplicate lesson id %q", l.ID)
		}
		if !l.Difficulty.Valid() {
			return fmt.Errorf("lesson %q has unknown difficulty %q", l.ID, l.Difficulty)
		}
		deps[l.ID] = l.Dependencies
	}

	for _, l := range lessons {
		for _, dep := range l.Dependencies {
			if _, ok := deps[dep]; !ok {
				return fmt.Errorf("lesson %q depends on unknown lesson %q", l.ID, dep)
			}
		}
	}

	visited := make(map[string]bool)
	stack := make(map[string]bool)
	var path []string

	var visit func(string) error
	visit = func(id string) error {
		if stack[id] {
			start := 0
			for i, p := range path {
				if p == id {
					start = i
					break
				}
			}
			loop := append(append([]string{}, path[start:]...), id)
			return fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(loop, " -> "))
		}
		if visited[id] {
			return nil
		}
		visited[id] = true
		stack[id] = true
		path = append(path, id)
		for _, dep := range deps[id] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		stack[id] = false
		return nil
	}

	// Walk in catalog order so the reported loop is deterministic.
	for _, l := range lessons {
		if err := visit(l.ID); err != nil {
			return err
		}
	}
	return nil
}
