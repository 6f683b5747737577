package evaluator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korjavin/swiftcamp/catalog"
)

// Every shipped reference solution must pass screening and its own test cases.
func TestBundledSolutionsPass(t *testing.T) {
	sources := map[string]catalog.Source{
		"assets":   catalog.FileSource{Path: filepath.Join("..", "assets", "lessons.json")},
		"fallback": catalog.Fallback(),
	}

	for name, src := range sources {
		lessons, err := src.Lessons()
		require.NoError(t, err, name)

		for _, l := range lessons {
			if l.Challenge == nil {
				continue
			}
			t.Run(name+"/"+l.ID, func(t *testing.T) {
				e := New(WithDelay(0))
				ch, err := e.Submit(l.Challenge.Solution, l.Challenge)
				require.NoError(t, err)

				report := receive(t, ch)
				assert.True(t, report.Success, report.Output())
				assert.Equal(t, len(l.Challenge.TestCases), report.Passed)
			})
		}
	}
}
