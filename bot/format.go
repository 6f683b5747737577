package bot

import (
	"fmt"
	"strings"

	"github.com/korjavin/swiftcamp/models"
	"github.com/korjavin/swiftcamp/progress"
)

func difficultyLabel(d models.Difficulty) string {
	s := string(d)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatLesson renders a lesson with code blocks, to be escaped for MarkdownV2
func formatLesson(l models.Lesson) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📘 %s\n", l.Title)

	meta := []string{difficultyLabel(l.Difficulty)}
	if l.EstimatedTime > 0 {
		meta = append(meta, fmt.Sprintf("%d min", l.EstimatedTime))
	}
	if l.Category != "" {
		meta = append(meta, l.Category)
	}
	sb.WriteString(strings.Join(meta, " · ") + "\n")

	if l.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", l.Description)
	}
	if l.Theory != "" {
		fmt.Fprintf(&sb, "\n%s\n", l.Theory)
	}
	if l.CodeExample != "" {
		fmt.Fprintf(&sb, "\n```swift\n%s\n```\n", strings.TrimSpace(l.CodeExample))
	}

	if c := l.Challenge; c != nil {
		fmt.Fprintf(&sb, "\n🎯 Challenge\n%s\n", c.Instructions)
		if c.StarterCode != "" {
			fmt.Fprintf(&sb, "\n```swift\n%s\n```\n", strings.TrimSpace(c.StarterCode))
		}
		sb.WriteString("\nSend your code as a message or with /run. Use /hint for help and /check to compare with the reference solution.")
	} else {
		sb.WriteString("\nTry the example with /run, then complete the lesson.")
	}
	return sb.String()
}

// formatCompletion describes what a completion earned
func formatCompletion(l models.Lesson, res progress.Result) string {
	if res.AlreadyCompleted {
		return fmt.Sprintf("✅ You already completed %s.", l.Title)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🎉 Lesson complete: %s\n+%d XP (total %d, level %d)\n",
		l.Title, res.XPAwarded, res.Progress.TotalXP, res.Progress.Level())
	fmt.Fprintf(&sb, "🔥 Streak: %d day(s)", res.Progress.CurrentStreak)

	for _, badge := range res.NewBadges {
		fmt.Fprintf(&sb, "\n🏅 New badge: %s", models.BadgeName(badge))
	}
	if !res.Persisted {
		sb.WriteString("\n\n⚠️ Your progress could not be saved and will be lost on restart.")
	}
	return sb.String()
}

// formatProfile renders the learner's progress summary
func formatProfile(p models.UserProgress, completed, total int, pct float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `👤 Your Profile:

Level: %d
Total XP: %d
Lessons: %d/%d (%.0f%%)
Current Streak: %d day(s) 🔥
Longest Streak: %d day(s)`,
		p.Level(), p.TotalXP, completed, total, pct, p.CurrentStreak, p.LongestStreak)

	if len(p.EarnedBadges) == 0 {
		sb.WriteString("\n\nNo badges yet. Complete a lesson to earn your first one!")
		return sb.String()
	}

	sb.WriteString("\n\nBadges:")
	for _, badge := range p.EarnedBadges {
		fmt.Fprintf(&sb, "\n🏅 %s", models.BadgeName(badge))
	}
	return sb.String()
}
