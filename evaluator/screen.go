package evaluator

import (
	"regexp"
	"strings"
)

// forbiddenPatterns are operations the sandbox never accepts
var forbiddenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`import\s+`),
	regexp.MustCompile(`NSClassFromString`),
	regexp.MustCompile(`performSelector`),
	regexp.MustCompile(`unsafeBitCast`),
	regexp.MustCompile(`Unmanaged\.`),
	regexp.MustCompile(`malloc\(`),
	regexp.MustCompile(`free\(`),
}

var (
	controlFlowKeyword = regexp.MustCompile(`\b(if|for|while)\b`)
	declaredVariable   = regexp.MustCompile(`(?:var|let)\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
)

// ContainsForbidden reports whether the source uses a denied operation
func ContainsForbidden(src string) bool {
	for _, re := range forbiddenPatterns {
		if re.MatchString(src) {
			return true
		}
	}
	return false
}

// ValidateSyntax applies the line heuristics. It only catches gross malformation.
func ValidateSyntax(src string) bool {
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		if !validLine(trimmed) {
			return false
		}
	}
	return true
}

func validLine(line string) bool {
	if strings.HasSuffix(line, "{") || strings.HasSuffix(line, "}") {
		return true
	}

	if strings.Contains(line, "=") && !strings.Contains(line, "==") {
		parts := strings.Split(line, "=")
		return len(parts) == 2 && strings.TrimSpace(parts[0]) != ""
	}

	if controlFlowKeyword.MatchString(line) {
		return strings.Contains(line, "(") && strings.Contains(line, ")") || strings.Contains(line, "{")
	}

	return true
}

// ExtractVariables returns declared names in source order
func ExtractVariables(src string) []string {
	var names []string
	for _, m := range declaredVariable.FindAllStringSubmatch(src, -1) {
		names = append(names, m[1])
	}
	return names
}
