package models

// Difficulty is the difficulty tier of a lesson
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Valid reports whether d is one of the known tiers
func (d Difficulty) Valid() bool {
	switch d {
	case Beginner, Intermediate, Advanced:
		return true
	default:
		return false
	}
}

// XP returns the experience awarded for completing a lesson of this difficulty
func (d Difficulty) XP() int {
	switch d {
	case Beginner:
		return 10
	case Intermediate:
		return 25
	case Advanced:
		return 50
	default:
		return 0
	}
}

// Lesson represents a lesson from the content catalog
type Lesson struct {
	ID            string     `json:"id" yaml:"id"`
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description" yaml:"description"`
	Difficulty    Difficulty `json:"difficulty" yaml:"difficulty"`
	Theory        string     `json:"theory" yaml:"theory"`
	CodeExample   string     `json:"codeExample" yaml:"codeExample"`
	Challenge     *Challenge `json:"challenge,omitempty" yaml:"challenge,omitempty"`
	Dependencies  []string   `json:"dependencies" yaml:"dependencies"`
	EstimatedTime int        `json:"estimatedTime" yaml:"estimatedTime"` // minutes
	Category      string     `json:"category" yaml:"category"`
}

// Challenge is the coding exercise attached to a lesson
type Challenge struct {
	Instructions string     `json:"instructions" yaml:"instructions"`
	StarterCode  string     `json:"starterCode" yaml:"starterCode"`
	Solution     string     `json:"solution" yaml:"solution"`
	TestCases    []TestCase `json:"testCases" yaml:"testCases"`
	Hints        []string   `json:"hints" yaml:"hints"`
}

// TestCase is a declarative input/expected output pair used to score a submission
type TestCase struct {
	Input          string `json:"input" yaml:"input"`
	ExpectedOutput string `json:"expectedOutput" yaml:"expectedOutput"`
	Description    string `json:"description" yaml:"description"`
}
