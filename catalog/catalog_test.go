package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korjavin/swiftcamp/models"
)

type failingSource struct{}

func (failingSource) Lessons() ([]models.Lesson, error) {
	return nil, errors.New("boom")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSourceJSON(t *testing.T) {
	path := writeFile(t, "lessons.json", `[
		{"id": "a", "title": "A", "difficulty": "beginner", "dependencies": [], "category": "Basics"},
		{"id": "b", "title": "B", "difficulty": "advanced", "dependencies": ["a"], "category": "Basics",
		 "challenge": {"solution": "var x = 1", "testCases": [{"input": "x", "expectedOutput": "1", "description": "x set"}]}}
	]`)

	lessons, err := FileSource{Path: path}.Lessons()
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, models.Advanced, lessons[1].Difficulty)
	assert.Equal(t, []string{"a"}, lessons[1].Dependencies)
	require.NotNil(t, lessons[1].Challenge)
	assert.Equal(t, "x set", lessons[1].Challenge.TestCases[0].Description)
}

func TestFileSourceWrappedJSON(t *testing.T) {
	path := writeFile(t, "lessons.json", `{"lessons": [{"id": "a", "difficulty": "beginner"}]}`)

	lessons, err := FileSource{Path: path}.Lessons()
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "a", lessons[0].ID)
}

func TestFileSourceYAML(t *testing.T) {
	path := writeFile(t, "lessons.yaml", `
lessons:
  - id: loops
    title: Loops
    difficulty: intermediate
    codeExample: |
      for i in 1...3 {
          print(i)
      }
    dependencies: []
    estimatedTime: 20
    category: Control Flow
`)

	lessons, err := FileSource{Path: path}.Lessons()
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "loops", lessons[0].ID)
	assert.Equal(t, models.Intermediate, lessons[0].Difficulty)
	assert.Equal(t, 20, lessons[0].EstimatedTime)
	assert.Contains(t, lessons[0].CodeExample, "print(i)")
}

func TestFallbackIsValid(t *testing.T) {
	lessons, err := Fallback().Lessons()
	require.NoError(t, err)
	require.NotEmpty(t, lessons)
	assert.NoError(t, Validate(lessons))
}

func TestLoadUsesPrimary(t *testing.T) {
	path := writeFile(t, "lessons.json", `[{"id": "only", "difficulty": "beginner"}]`)

	c := Load(FileSource{Path: path}, Fallback(), nil)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Lesson("only")
	assert.True(t, ok)
}

func TestLoadFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		primary Source
	}{
		{"missing file", FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}},
		{"malformed file", FileSource{Path: writeFile(t, "bad.json", `{not json`)}},
		{"failing source", failingSource{}},
		{"cyclic catalog", BytesSource(`[
			{"id": "a", "difficulty": "beginner", "dependencies": ["b"]},
			{"id": "b", "difficulty": "beginner", "dependencies": ["a"]}
		]`)},
		{"nil source", nil},
	}

	fallback, err := Fallback().Lessons()
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Load(tt.primary, Fallback(), nil)
			assert.Equal(t, len(fallback), c.Len())
		})
	}
}

func TestLoadEmptyWhenBothFail(t *testing.T) {
	c := Load(failingSource{}, BytesSource(nil), nil)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Lessons())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		lessons []models.Lesson
		wantErr string
	}{
		{"empty", nil, "no lessons"},
		{"missing id", []models.Lesson{{Difficulty: models.Beginner}}, "has no id"},
		{"duplicate", []models.Lesson{
			{ID: "a", Difficulty: models.Beginner},
			{ID: "a", Difficulty: models.Beginner},
		}, `duplicate lesson id "a"`},
		{"unknown difficulty", []models.Lesson{{ID: "a", Difficulty: "expert"}}, "unknown difficulty"},
		{"unknown dependency", []models.Lesson{
			{ID: "a", Difficulty: models.Beginner, Dependencies: []string{"ghost"}},
		}, `unknown lesson "ghost"`},
		{"self cycle", []models.Lesson{
			{ID: "a", Difficulty: models.Beginner, Dependencies: []string{"a"}},
		}, "a -> a"},
		{"long cycle", []models.Lesson{
			{ID: "root", Difficulty: models.Beginner},
			{ID: "a", Difficulty: models.Beginner, Dependencies: []string{"root", "c"}},
			{ID: "b", Difficulty: models.Beginner, Dependencies: []string{"a"}},
			{ID: "c", Difficulty: models.Beginner, Dependencies: []string{"b"}},
		}, "a -> c -> b -> a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.lessons)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("cycle is classified", func(t *testing.T) {
		err := Validate([]models.Lesson{{ID: "a", Difficulty: models.Beginner, Dependencies: []string{"a"}}})
		assert.ErrorIs(t, err, ErrDependencyCycle)
	})

	t.Run("diamond is fine", func(t *testing.T) {
		err := Validate([]models.Lesson{
			{ID: "a", Difficulty: models.Beginner},
			{ID: "b", Difficulty: models.Beginner, Dependencies: []string{"a"}},
			{ID: "c", Difficulty: models.Beginner, Dependencies: []string{"a"}},
			{ID: "d", Difficulty: models.Advanced, Dependencies: []string{"b", "c"}},
		})
		assert.NoError(t, err)
	})
}

func TestCatalogQueries(t *testing.T) {
	c := New([]models.Lesson{
		{ID: "a", Category: "Basics"},
		{ID: "b", Category: "Control Flow"},
		{ID: "c", Category: "Basics"},
	})

	next, ok := c.Next("a")
	require.True(t, ok)
	assert.Equal(t, "b", next.ID)

	_, ok = c.Next("c")
	assert.False(t, ok, "last lesson has no successor")

	_, ok = c.Next("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"Basics", "Control Flow"}, c.Categories())
	basics := c.ByCategory("Basics")
	require.Len(t, basics, 2)
	assert.Equal(t, "c", basics[1].ID)

	lessons := c.Lessons()
	lessons[0].ID = "mutated"
	first, _ := c.Lesson("a")
	assert.Equal(t, "a", first.ID, "Lessons returns a copy")
}

func TestBundledLessonsAreValid(t *testing.T) {
	lessons, err := FileSource{Path: filepath.Join("..", "assets", "lessons.json")}.Lessons()
	require.NoError(t, err)
	require.NoError(t, Validate(lessons))
	assert.Equal(t, "variables", lessons[0].ID)
	assert.Empty(t, lessons[0].Dependencies)
}
