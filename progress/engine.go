package progress

import (
	"context"
	"sync"
	"time"

	"github.com/korjavin/swiftcamp/catalog"
	"github.com/korjavin/swiftcamp/logger"
	"github.com/korjavin/swiftcamp/metrics"
	"github.com/korjavin/swiftcamp/models"
)

// Badge thresholds
const (
	quickLearnerLessons = 5
	dedicatedStreakDays = 7
)

// EventKind tells observers what changed
type EventKind string

const (
	EventCompleted EventKind = "completed"
	EventReset     EventKind = "reset"
)

// Result is returned by Complete
type Result struct {
	Progress         models.UserProgress
	XPAwarded        int
	NewBadges        []string
	AlreadyCompleted bool
	Persisted        bool
}

// Event is delivered to subscribers after a mutation is committed
type Event struct {
	Kind     EventKind
	LessonID string
	Result   Result
}

// Engine owns the learner's progress for one session
type Engine struct {
	mu        sync.Mutex
	catalog   *catalog.Catalog
	store     Store
	log       *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	loc       *time.Location
	completed map[string]struct{}
	progress  models.UserProgress

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the time source used for streaks
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the time zone that defines calendar days
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine and restores the persisted progress. A missing or unreadable
// record leaves the engine in the zero state.
func New(ctx context.Context, cat *catalog.Catalog, store Store, opts ...Option) *Engine {
	e := &Engine{
		catalog:  cat,
		store:    store,
		log:      logger.Nop(),
		now:      time.Now,
		loc:      time.Local,
		progress: models.NewUserProgress(),
		subs:     make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.catalog == nil {
		e.catalog = catalog.New(nil)
	}

	if e.store != nil {
		p, ok, err := e.store.LoadProgress(ctx)
		switch {
		case err != nil:
			e.log.Warn("Failed to load user progress, starting fresh", "error", err)
			e.metrics.RecordStoreError("load")
		case ok:
			e.progress = p.Clone()
			e.log.Info("Restored user progress",
				"completed", len(p.CompletedLessons), "xp", p.TotalXP, "streak", p.CurrentStreak)
		}
	}
	if e.progress.CompletedLessons == nil {
		e.progress.CompletedLessons = make(map[string]struct{})
	}
	e.completed = make(map[string]struct{}, len(e.progress.CompletedLessons))
	for id := range e.progress.CompletedLessons {
		e.completed[id] = struct{}{}
	}
	return e
}

// LoadCatalog returns the lessons in catalog order
func (e *Engine) LoadCatalog() []models.Lesson {
	return e.catalog.Lessons()
}

// Catalog returns the registry the engine was built with
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// IsLocked reports whether any prerequisite of the lesson is still incomplete
func (e *Engine) IsLocked(lesson models.Lesson) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, dep := range lesson.Dependencies {
		if _, ok := e.completed[dep]; !ok {
			return true
		}
	}
	return false
}

// CanStart is the negation of IsLocked
func (e *Engine) CanStart(lesson models.Lesson) bool {
	return !e.IsLocked(lesson)
}

// IsCompleted reports whether the lesson was completed
func (e *Engine) IsCompleted(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.completed[id]
	return ok
}

// Complete marks a lesson as done, awarding XP, streak, and badges, and persists the
// result. Completing an already completed lesson changes nothing.
func (e *Engine) Complete(ctx context.Context, lesson models.Lesson) Result {
	e.mu.Lock()
	if _, done := e.completed[lesson.ID]; done {
		res := Result{Progress: e.progress.Clone(), AlreadyCompleted: true}
		e.mu.Unlock()
		return res
	}

	e.completed[lesson.ID] = struct{}{}
	e.progress.CompletedLessons[lesson.ID] = struct{}{}

	xp := lesson.Difficulty.XP()
	e.progress.TotalXP += xp

	e.updateStreak()
	badges := e.awardBadges()

	persisted := e.persist(ctx)

	res := Result{
		Progress:  e.progress.Clone(),
		XPAwarded: xp,
		NewBadges: badges,
		Persisted: persisted,
	}
	e.mu.Unlock()

	e.log.Info("Completed lesson", "lesson_id", lesson.ID, "xp", xp,
		"total_xp", res.Progress.TotalXP, "streak", res.Progress.CurrentStreak, "badges", badges)
	e.metrics.RecordCompletion(string(lesson.Difficulty), xp, badges)

	e.publish(Event{Kind: EventCompleted, LessonID: lesson.ID, Result: res})
	return res
}

// updateStreak advances the streak once per calendar day. Caller holds e.mu.
func (e *Engine) updateStreak() {
	now := e.now()
	p := &e.progress

	if p.LastSessionDate == nil {
		p.CurrentStreak = 1
	} else {
		switch days := e.dayNumber(now) - e.dayNumber(*p.LastSessionDate); {
		case days == 1:
			p.CurrentStreak++
		case days != 0:
			p.CurrentStreak = 1
		}
	}

	p.LastSessionDate = &now
	p.LongestStreak = max(p.LongestStreak, p.CurrentStreak)
}

// dayNumber counts calendar days in the engine's location
func (e *Engine) dayNumber(t time.Time) int {
	y, m, d := t.In(e.loc).Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// awardBadges grants every newly crossed threshold. Caller holds e.mu.
func (e *Engine) awardBadges() []string {
	var awarded []string
	grant := func(id string, ok bool) {
		if ok && !e.progress.HasBadge(id) {
			e.progress.EarnedBadges = append(e.progress.EarnedBadges, id)
			awarded = append(awarded, id)
		}
	}

	count := len(e.completed)
	grant(models.BadgeFirstSteps, count >= 1)
	grant(models.BadgeQuickLearner, count >= quickLearnerLessons)
	grant(models.BadgeDedicated, e.progress.CurrentStreak >= dedicatedStreakDays)
	return awarded
}

// persist writes the record; failures keep the in-memory state. Caller holds e.mu.
func (e *Engine) persist(ctx context.Context) bool {
	if e.store == nil {
		return false
	}
	if err := e.store.SaveProgress(ctx, e.progress); err != nil {
		e.log.Warn("Failed to save user progress", "error", err)
		e.metrics.RecordStoreError("save")
		return false
	}
	return true
}

// NextLesson returns the lesson after the given one in catalog order
func (e *Engine) NextLesson(after models.Lesson) (models.Lesson, bool) {
	return e.catalog.Next(after.ID)
}

// ProgressPercentage is the share of catalog lessons completed, in [0,100]
func (e *Engine) ProgressPercentage() float64 {
	total := e.catalog.Len()
	if total == 0 {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	completed := 0
	for id := range e.completed {
		if _, ok := e.catalog.Lesson(id); ok {
			completed++
		}
	}
	return float64(completed) / float64(total) * 100
}

// CompletedCount returns the number of completed lessons
func (e *Engine) CompletedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.completed)
}

// TotalCount returns the number of lessons in the catalog
func (e *Engine) TotalCount() int {
	return e.catalog.Len()
}

// Progress returns a snapshot of the current progress
func (e *Engine) Progress() models.UserProgress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress.Clone()
}

// ResetProgress returns to the zero state and deletes the stored record
func (e *Engine) ResetProgress(ctx context.Context) {
	e.mu.Lock()
	e.completed = make(map[string]struct{})
	e.progress = models.NewUserProgress()
	if e.store != nil {
		if err := e.store.DeleteProgress(ctx); err != nil {
			e.log.Warn("Failed to delete stored progress", "error", err)
			e.metrics.RecordStoreError("delete")
		}
	}
	snapshot := e.progress.Clone()
	e.mu.Unlock()

	e.log.Info("Progress reset")
	e.metrics.RecordReset()
	e.publish(Event{Kind: EventReset, Result: Result{Progress: snapshot}})
}

// Subscribe registers fn for committed changes. The returned function removes it.
func (e *Engine) Subscribe(fn func(Event)) func() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

func (e *Engine) publish(ev Event) {
	e.subMu.Lock()
	fns := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
