package models

import (
	"encoding/json"
	"sort"
	"time"
)

// Badge identifiers
const (
	BadgeFirstSteps   = "first_steps"
	BadgeQuickLearner = "quick_learner"
	BadgeDedicated    = "dedicated"
)

// BadgeName returns the display name of a badge
func BadgeName(id string) string {
	switch id {
	case BadgeFirstSteps:
		return "First Steps"
	case BadgeQuickLearner:
		return "Quick Learner"
	case BadgeDedicated:
		return "Dedicated"
	default:
		return "Achievement"
	}
}

// UserProgress is the learner's persisted progress record
type UserProgress struct {
	CompletedLessons map[string]struct{}
	EarnedBadges     []string
	TotalXP          int
	CurrentStreak    int
	LongestStreak    int
	LastSessionDate  *time.Time
}

// NewUserProgress returns the zero-state progress record
func NewUserProgress() UserProgress {
	return UserProgress{
		CompletedLessons: make(map[string]struct{}),
		EarnedBadges:     []string{},
	}
}

// Clone returns a deep copy that shares no memory with p
func (p UserProgress) Clone() UserProgress {
	out := UserProgress{
		CompletedLessons: make(map[string]struct{}, len(p.CompletedLessons)),
		EarnedBadges:     append([]string{}, p.EarnedBadges...),
		TotalXP:          p.TotalXP,
		CurrentStreak:    p.CurrentStreak,
		LongestStreak:    p.LongestStreak,
	}
	for id := range p.CompletedLessons {
		out.CompletedLessons[id] = struct{}{}
	}
	if p.LastSessionDate != nil {
		t := *p.LastSessionDate
		out.LastSessionDate = &t
	}
	return out
}

// HasBadge reports whether the badge was already earned
func (p UserProgress) HasBadge(id string) bool {
	for _, b := range p.EarnedBadges {
		if b == id {
			return true
		}
	}
	return false
}

// Level is derived from XP, starting at 1 and rising every 100 XP
func (p UserProgress) Level() int {
	return p.TotalXP/100 + 1
}

// CompletedIDs returns the completed lesson IDs in sorted order
func (p UserProgress) CompletedIDs() []string {
	ids := make([]string, 0, len(p.CompletedLessons))
	for id := range p.CompletedLessons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type userProgressJSON struct {
	CompletedLessons []string   `json:"completedLessons"`
	EarnedBadges     []string   `json:"earnedBadges"`
	TotalXP          int        `json:"totalXp"`
	CurrentStreak    int        `json:"currentStreak"`
	LongestStreak    int        `json:"longestStreak"`
	LastSessionDate  *time.Time `json:"lastSessionDate,omitempty"`
}

// MarshalJSON stores the completed set as a sorted list
func (p UserProgress) MarshalJSON() ([]byte, error) {
	badges := p.EarnedBadges
	if badges == nil {
		badges = []string{}
	}
	return json.Marshal(userProgressJSON{
		CompletedLessons: p.CompletedIDs(),
		EarnedBadges:     badges,
		TotalXP:          p.TotalXP,
		CurrentStreak:    p.CurrentStreak,
		LongestStreak:    p.LongestStreak,
		LastSessionDate:  p.LastSessionDate,
	})
}

// UnmarshalJSON restores the completed set and drops duplicate badges
func (p *UserProgress) UnmarshalJSON(data []byte) error {
	var raw userProgressJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = NewUserProgress()
	for _, id := range raw.CompletedLessons {
		p.CompletedLessons[id] = struct{}{}
	}
	for _, b := range raw.EarnedBadges {
		if !p.HasBadge(b) {
			p.EarnedBadges = append(p.EarnedBadges, b)
		}
	}
	p.TotalXP = max(raw.TotalXP, 0)
	p.CurrentStreak = max(raw.CurrentStreak, 0)
	p.LongestStreak = max(raw.LongestStreak, p.CurrentStreak)
	p.LastSessionDate = raw.LastSessionDate
	return nil
}
