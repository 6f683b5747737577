package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/korjavin/swiftcamp/ai"
	"github.com/korjavin/swiftcamp/config"
	"github.com/korjavin/swiftcamp/database"
	"github.com/korjavin/swiftcamp/evaluator"
	"github.com/korjavin/swiftcamp/logger"
	"github.com/korjavin/swiftcamp/models"
	"github.com/korjavin/swiftcamp/progress"
)

// telegramAPI is the subset of *tgbotapi.BotAPI used by the bot
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Reviewer gives feedback on a code submission
type Reviewer interface {
	ReviewSubmission(ctx context.Context, lesson models.Lesson, code string, report *models.RunReport) (string, error)
}

// Deps are the components the bot presents to the learner
type Deps struct {
	DB        *database.DB
	Engine    *progress.Engine
	Evaluator *evaluator.Evaluator
	Tutor     Reviewer // nil disables /review
	Logger    *logger.Logger
}

// Bot represents the Telegram bot
type Bot struct {
	api    telegramAPI
	db     *database.DB
	engine *progress.Engine
	eval   *evaluator.Evaluator
	tutor  Reviewer
	log    *logger.Logger

	mu         sync.Mutex
	learnerID  int64
	current    string // lesson the learner is working on
	hintIndex  int
	runSeq     uint64 // bumped by every submission
	lastCode   string
	lastReport *models.RunReport

	wg sync.WaitGroup // background deliveries
}

const (
	cmdStart    = "start"
	cmdHelp     = "help"
	cmdLessons  = "lessons"
	cmdLesson   = "lesson"
	cmdHint     = "hint"
	cmdRun      = "run"
	cmdCheck    = "check"
	cmdComplete = "complete"
	cmdNext     = "next"
	cmdProfile  = "profile"
	cmdStat     = "stat"
	cmdReview   = "review"
	cmdReset    = "reset"

	completePrefix = "complete:"
	nextPrefix     = "next:"
)

const helpText = `Commands:
/lessons - List all lessons
/lesson <id> - Open a lesson
/hint - Show the next hint for the current challenge
/run <code> - Run code (or just send code while a lesson is open)
/check <code> - Compare your solution with the reference
/complete - Mark the current lesson as completed
/next - Open the next lesson
/profile - Show XP, level, streak and badges
/stat - Show your submission statistics
/review - Ask the tutor about your last submission
/reset - Reset all progress`

// New creates a new bot instance connected to Telegram
func New(cfg *config.Config, deps Deps) (*Bot, error) {
	if err := cfg.RequireBot(); err != nil {
		return nil, err
	}

	if deps.Logger != nil {
		if err := tgbotapi.SetLogger(deps.Logger.StdLog()); err != nil {
			return nil, fmt.Errorf("failed to set bot logger: %w", err)
		}
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	botAPI.Debug = cfg.Debug

	b := newBot(botAPI, deps, cfg.LearnerID)
	b.log.Info("Authorized on Telegram", "account", botAPI.Self.UserName)
	return b, nil
}

func newBot(api telegramAPI, deps Deps, learnerID int64) *Bot {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Bot{
		api:       api,
		db:        deps.DB,
		engine:    deps.Engine,
		eval:      deps.Evaluator,
		tutor:     deps.Tutor,
		log:       log.With("component", "bot"),
		learnerID: learnerID,
	}
}

// Start listens for updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	b.log.Info("Starting bot polling...")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("Bot polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// parseCommand splits "/cmd@bot args" into its parts. Plain text has an empty command.
func parseCommand(text string) (cmd, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	head, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		head, rest = text[:i], strings.TrimSpace(text[i:])
	}
	head = strings.TrimPrefix(head, "/")
	if at := strings.Index(head, "@"); at >= 0 {
		head = head[:at]
	}
	return strings.ToLower(head), rest
}

// authorize binds the first /start user when no learner is configured
func (b *Bot) authorize(user *tgbotapi.User, allowBind bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.learnerID == 0 {
		if !allowBind {
			return false
		}
		b.learnerID = user.ID
		b.log.Info("Bound learner", "user_id", user.ID, "username", user.UserName)
		return true
	}
	return b.learnerID == user.ID
}

// handleMessage processes incoming messages
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}
	chatID := message.Chat.ID
	cmd, args := parseCommand(message.Text)
	b.log.Debug("Received message", "user_id", message.From.ID, "command", cmd)

	if !b.authorize(message.From, cmd == cmdStart) {
		if b.bound() {
			b.sendMessage(chatID, "Sorry, this SwiftCamp belongs to another learner.")
		} else {
			b.sendMessage(chatID, "Use /start to begin.")
		}
		return
	}

	switch cmd {
	case cmdStart:
		b.handleStartCommand(chatID)
	case cmdHelp:
		b.sendMessage(chatID, helpText)
	case cmdLessons:
		b.sendMessage(chatID, b.lessonList())
	case cmdLesson:
		if args == "" {
			b.sendMessage(chatID, "Usage: /lesson <id>. Use /lessons to see the IDs.")
			return
		}
		b.openLesson(chatID, args)
	case cmdHint:
		b.handleHintCommand(chatID)
	case cmdRun:
		b.handleRun(ctx, chatID, args, false)
	case cmdCheck:
		b.handleRun(ctx, chatID, args, true)
	case cmdComplete:
		b.handleCompleteCommand(ctx, chatID)
	case cmdNext:
		b.handleNextCommand(chatID)
	case cmdProfile:
		b.sendMessage(chatID, formatProfile(b.engine.Progress(), b.engine.CompletedCount(), b.engine.TotalCount(), b.engine.ProgressPercentage()))
	case cmdStat:
		b.handleStatCommand(ctx, chatID)
	case cmdReview:
		b.handleReviewCommand(ctx, chatID)
	case cmdReset:
		b.handleResetCommand(ctx, chatID)
	case "":
		if _, ok := b.currentLesson(); ok {
			b.handleRun(ctx, chatID, args, false)
			return
		}
		b.sendMessage(chatID, "Open a lesson with /lesson <id> first, or use /run <code>.\n\n"+helpText)
	default:
		b.sendMessage(chatID, "Unknown command. Use /help to see what I can do.")
	}
}

func (b *Bot) bound() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.learnerID != 0
}

// handleStartCommand handles the /start command
func (b *Bot) handleStartCommand(chatID int64) {
	welcomeText := `Welcome to SwiftCamp! 🐦

Learn Swift one lesson at a time. Read the theory, solve the challenge, earn XP and badges.

` + helpText

	b.sendMessage(chatID, welcomeText)

	if lesson, ok := b.firstOpenLesson(); ok {
		b.openLesson(chatID, lesson.ID)
		return
	}
	if b.engine.TotalCount() == 0 {
		b.sendMessage(chatID, "No lessons available. Please try again later.")
		return
	}
	b.sendMessage(chatID, "🎓 You have completed every lesson. Use /lessons to revisit one.")
}

// firstOpenLesson returns the first lesson that is unlocked and not yet completed
func (b *Bot) firstOpenLesson() (models.Lesson, bool) {
	for _, l := range b.engine.LoadCatalog() {
		if !b.engine.IsCompleted(l.ID) && b.engine.CanStart(l) {
			return l, true
		}
	}
	return models.Lesson{}, false
}

func (b *Bot) currentLesson() (models.Lesson, bool) {
	b.mu.Lock()
	id := b.current
	b.mu.Unlock()
	if id == "" {
		return models.Lesson{}, false
	}
	return b.engine.Catalog().Lesson(id)
}

// lessonList renders the catalog grouped by category with status markers
func (b *Bot) lessonList() string {
	cat := b.engine.Catalog()
	if cat.Len() == 0 {
		return "No lessons available."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📚 Lessons (%d/%d completed, %.0f%%)\n",
		b.engine.CompletedCount(), b.engine.TotalCount(), b.engine.ProgressPercentage())

	for _, category := range cat.Categories() {
		name := category
		if name == "" {
			name = "Other"
		}
		fmt.Fprintf(&sb, "\n%s\n", name)
		for _, l := range cat.ByCategory(category) {
			fmt.Fprintf(&sb, "%s %s: %s\n", b.statusMarker(l), l.ID, l.Title)
		}
	}
	sb.WriteString("\nOpen one with /lesson <id>.")
	return sb.String()
}

func (b *Bot) statusMarker(l models.Lesson) string {
	switch {
	case b.engine.IsCompleted(l.ID):
		return "✅"
	case b.engine.IsLocked(l):
		return "🔒"
	default:
		return "▶️"
	}
}

// openLesson makes a lesson current and sends its content
func (b *Bot) openLesson(chatID int64, id string) {
	lesson, ok := b.engine.Catalog().Lesson(id)
	if !ok {
		b.sendMessage(chatID, fmt.Sprintf("Lesson %q not found. Use /lessons to see the IDs.", id))
		return
	}
	if b.engine.IsLocked(lesson) {
		b.sendMessage(chatID, b.lockedText(lesson))
		return
	}

	b.mu.Lock()
	b.current = lesson.ID
	b.hintIndex = 0
	b.mu.Unlock()
	b.eval.Reset()

	b.log.Info("Opened lesson", "lesson_id", lesson.ID)
	b.sendMarkdownMessage(chatID, formatLesson(lesson), completeKeyboard(lesson.ID))
}

func (b *Bot) lockedText(lesson models.Lesson) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔒 %s is locked. Complete these lessons first:\n", lesson.Title)
	for _, dep := range lesson.Dependencies {
		if b.engine.IsCompleted(dep) {
			continue
		}
		title := dep
		if l, ok := b.engine.Catalog().Lesson(dep); ok {
			title = l.Title
		}
		fmt.Fprintf(&sb, "- %s (/lesson %s)\n", title, dep)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// handleHintCommand shows hints one at a time
func (b *Bot) handleHintCommand(chatID int64) {
	lesson, ok := b.currentLesson()
	if !ok {
		b.sendMessage(chatID, "Open a lesson first with /lesson <id>.")
		return
	}
	if lesson.Challenge == nil || len(lesson.Challenge.Hints) == 0 {
		b.sendMessage(chatID, "This lesson has no hints.")
		return
	}

	hints := lesson.Challenge.Hints
	b.mu.Lock()
	i := b.hintIndex
	if i < len(hints) {
		b.hintIndex++
	}
	b.mu.Unlock()

	if i >= len(hints) {
		msg := "No more hints for this challenge."
		if b.tutor != nil {
			msg += " Run your code and use /review for feedback."
		}
		b.sendMessage(chatID, msg)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("💡 Hint %d/%d: %s", i+1, len(hints), hints[i]))
}

// handleRun submits code and delivers the report by editing a placeholder message
func (b *Bot) handleRun(ctx context.Context, chatID int64, code string, check bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		b.sendMessage(chatID, "Usage: /run <code>. You can also just send code while a lesson is open.")
		return
	}

	lesson, _ := b.currentLesson()
	if check && lesson.Challenge == nil {
		b.sendMessage(chatID, "Open a lesson with a challenge before using /check.")
		return
	}

	b.mu.Lock()
	b.runSeq++
	seq := b.runSeq
	b.lastCode = code
	b.lastReport = nil
	b.mu.Unlock()

	var (
		ch  <-chan models.RunReport
		err error
	)
	if check {
		ch, err = b.eval.CheckSolution(code, lesson.Challenge)
	} else {
		ch, err = b.eval.Submit(code, lesson.Challenge)
	}
	if err != nil {
		b.log.Info("Submission rejected", "lesson_id", lesson.ID, "error", err)
		b.recordSubmission(ctx, lesson.ID, models.RunReport{Error: err.Error(), FinishedAt: time.Now()})
		b.sendMessage(chatID, b.eval.Output())
		return
	}

	sentMsg, err := b.api.Send(tgbotapi.NewMessage(chatID, "🚀 Running your code..."))
	if err != nil {
		b.log.Error("Error sending run placeholder", "error", err)
		return
	}

	b.wg.Add(1)
	go b.deliverReport(ctx, chatID, sentMsg.MessageID, lesson, seq, ch)
}

func (b *Bot) deliverReport(ctx context.Context, chatID int64, messageID int, lesson models.Lesson, seq uint64, ch <-chan models.RunReport) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Recovered from panic in report delivery", "panic", r)
		}
	}()

	report, ok := <-ch
	if !ok {
		b.editMessage(chatID, messageID, "The run was interrupted. Please try again.", nil)
		return
	}

	// A newer submission owns lastCode; this report must not be paired with it
	b.mu.Lock()
	if b.runSeq == seq {
		b.lastReport = &report
	}
	b.mu.Unlock()
	b.recordSubmission(ctx, lesson.ID, report)

	text := report.Output()
	var markup *tgbotapi.InlineKeyboardMarkup
	if report.Success && lesson.Challenge != nil && !b.engine.IsCompleted(lesson.ID) {
		kb := completeKeyboard(lesson.ID)
		markup = &kb
		text += "\nTap below to complete the lesson."
	} else if !report.Success && b.tutor != nil {
		text += "\nUse /hint or /review if you are stuck."
	}
	b.editMessage(chatID, messageID, text, markup)
}

func (b *Bot) recordSubmission(ctx context.Context, lessonID string, report models.RunReport) {
	if b.db == nil {
		return
	}
	s := models.Submission{
		ID:        report.ID,
		LessonID:  lessonID,
		Passed:    report.Passed,
		Total:     report.Total,
		Success:   report.Success,
		Error:     report.Error,
		Timestamp: report.FinishedAt.Unix(),
	}
	if err := b.db.SaveSubmission(context.WithoutCancel(ctx), s); err != nil {
		b.log.Warn("Error saving submission", "lesson_id", lessonID, "error", err)
	}
}

// handleCompleteCommand completes the current lesson
func (b *Bot) handleCompleteCommand(ctx context.Context, chatID int64) {
	lesson, ok := b.currentLesson()
	if !ok {
		b.sendMessage(chatID, "Open a lesson first with /lesson <id>.")
		return
	}
	b.completeLesson(ctx, chatID, lesson.ID)
}

func (b *Bot) completeLesson(ctx context.Context, chatID int64, id string) {
	lesson, ok := b.engine.Catalog().Lesson(id)
	if !ok {
		b.sendMessage(chatID, "Sorry, this lesson is no longer available.")
		return
	}
	if b.engine.IsLocked(lesson) {
		b.sendMessage(chatID, b.lockedText(lesson))
		return
	}

	res := b.engine.Complete(ctx, lesson)
	text := formatCompletion(lesson, res)

	if kb, ok := b.nextKeyboard(lesson); ok {
		b.sendMessageWithKeyboard(chatID, text, kb)
		return
	}
	b.sendMessage(chatID, text+"\n\n🎓 That was the last lesson of the course!")
}

// nextKeyboard offers the lesson after this one, marked when it is still locked
func (b *Bot) nextKeyboard(lesson models.Lesson) (tgbotapi.InlineKeyboardMarkup, bool) {
	next, ok := b.engine.NextLesson(lesson)
	if !ok {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	label := "➡️ Next: " + next.Title
	if b.engine.IsLocked(next) {
		label = "🔒 Next: " + next.Title
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, nextPrefix+next.ID)),
	), true
}

func completeKeyboard(lessonID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Complete lesson", completePrefix+lessonID)),
	)
}

// handleNextCommand opens the lesson after the current one
func (b *Bot) handleNextCommand(chatID int64) {
	current, ok := b.currentLesson()
	if !ok {
		if lesson, ok := b.firstOpenLesson(); ok {
			b.openLesson(chatID, lesson.ID)
			return
		}
		b.sendMessage(chatID, "🎓 There are no open lessons left. Use /lessons to revisit one.")
		return
	}

	next, ok := b.engine.NextLesson(current)
	if !ok {
		b.sendMessage(chatID, "🎓 You have reached the end of the course!")
		return
	}
	b.openLesson(chatID, next.ID)
}

// handleStatCommand handles the /stat command
func (b *Bot) handleStatCommand(ctx context.Context, chatID int64) {
	if b.db == nil {
		b.sendMessage(chatID, "Statistics are unavailable because the database could not be opened.")
		return
	}

	succeeded, failed, err := b.db.GetSubmissionStats(ctx)
	if err != nil {
		b.log.Error("Error getting submission stats", "error", err)
		b.sendMessage(chatID, "Sorry, I couldn't retrieve your statistics. Please try again later.")
		return
	}

	total := succeeded + failed
	var accuracy float64
	if total > 0 {
		accuracy = float64(succeeded) / float64(total) * 100
	}

	statMessage := fmt.Sprintf(`📊 Your Statistics:

Total Runs: %d
Successful Runs: %d ✅
Failed Runs: %d ❌
Success Rate: %.1f%%`, total, succeeded, failed, accuracy)

	if failed > 0 {
		hardest, err := b.db.GetMostFailedLessons(ctx, 3)
		if err != nil {
			b.log.Warn("Error getting most failed lessons", "error", err)
		}

		var lines []string
		for _, f := range hardest {
			lesson, ok := b.engine.Catalog().Lesson(f.LessonID)
			if !ok {
				continue
			}
			lines = append(lines, fmt.Sprintf("%d. %s (%d failed runs)", len(lines)+1, lesson.Title, f.Failures))
		}
		if len(lines) > 0 {
			statMessage += "\n\nMost Challenging Lessons:\n" + strings.Join(lines, "\n")
		}
	}

	b.sendMessage(chatID, statMessage)
}

// handleReviewCommand asks the tutor about the last submission
func (b *Bot) handleReviewCommand(ctx context.Context, chatID int64) {
	if b.tutor == nil {
		b.sendMessage(chatID, "The tutor is not configured.")
		return
	}
	lesson, ok := b.currentLesson()
	if !ok {
		b.sendMessage(chatID, "Open a lesson first with /lesson <id>.")
		return
	}

	b.mu.Lock()
	code, report := b.lastCode, b.lastReport
	b.mu.Unlock()
	if code == "" {
		b.sendMessage(chatID, "Run some code first, then ask for a review.")
		return
	}

	key := ai.CacheKey(lesson.ID, code)
	var cached string
	if b.db != nil {
		var err error
		cached, err = b.db.GetCachedTutorReview(ctx, key)
		if err != nil {
			b.log.Warn("Error retrieving cached review", "cache_key", key, "error", err)
		}
	}
	if cached != "" {
		b.sendMessage(chatID, "Here's some feedback on your code:\n\n"+cached)
		return
	}

	sentMsg, err := b.api.Send(tgbotapi.NewMessage(chatID, "🤔 Reviewing your code, please wait a moment..."))
	if err != nil {
		b.log.Error("Error sending review placeholder", "error", err)
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.log.Error("Recovered from panic in review goroutine", "panic", r)
			}
		}()

		response, err := b.tutor.ReviewSubmission(ctx, lesson, code, report)
		if err != nil {
			b.log.Error("Error calling tutor", "lesson_id", lesson.ID, "error", err)
			b.editMessage(chatID, sentMsg.MessageID, "Sorry, I couldn't review your code. Please try again later.", nil)
			return
		}

		if b.db != nil {
			if err := b.db.CacheTutorReview(context.WithoutCancel(ctx), key, response); err != nil {
				b.log.Warn("Error caching review", "cache_key", key, "error", err)
			}
		}
		b.editMessage(chatID, sentMsg.MessageID, "Here's some feedback on your code:\n\n"+response, nil)
	}()
}

// handleResetCommand wipes progress, statistics and the session
func (b *Bot) handleResetCommand(ctx context.Context, chatID int64) {
	b.engine.ResetProgress(ctx)
	if b.db != nil {
		if err := b.db.ClearSubmissions(ctx); err != nil {
			b.log.Warn("Error clearing submissions", "error", err)
		}
	}
	b.eval.Reset()

	b.mu.Lock()
	b.current = ""
	b.hintIndex = 0
	b.runSeq++
	b.lastCode = ""
	b.lastReport = nil
	b.mu.Unlock()

	b.sendMessage(chatID, "🔄 Your progress has been reset. Use /start to begin again.")
}

// handleCallback processes callback queries from inline buttons
func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	b.log.Debug("Handling callback", "user_id", callback.From.ID, "data", callback.Data)

	if !b.authorize(callback.From, false) {
		b.sendCallbackResponse(callback.ID, "This SwiftCamp belongs to another learner.")
		return
	}
	if callback.Message == nil {
		b.sendCallbackResponse(callback.ID, "")
		return
	}
	chatID := callback.Message.Chat.ID

	switch {
	case strings.HasPrefix(callback.Data, completePrefix):
		b.sendCallbackResponse(callback.ID, "Completing lesson...")
		b.completeLesson(ctx, chatID, strings.TrimPrefix(callback.Data, completePrefix))
	case strings.HasPrefix(callback.Data, nextPrefix):
		b.sendCallbackResponse(callback.ID, "")
		b.openLesson(chatID, strings.TrimPrefix(callback.Data, nextPrefix))
	default:
		b.log.Warn("Invalid callback data", "data", callback.Data)
		b.sendCallbackResponse(callback.ID, "")
	}
}

// sendMessage sends a plain text message
func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Error("Error sending message", "error", err)
	}
}

func (b *Bot) sendMessageWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("Error sending message", "error", err)
	}
}

// sendMarkdownMessage sends a text message with MarkdownV2 formatting
func (b *Bot) sendMarkdownMessage(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, escapeMarkdown(text))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.ReplyMarkup = kb

	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("Markdown rendering failed, falling back to plain text", "error", err)
		plainMsg := tgbotapi.NewMessage(chatID, text)
		plainMsg.ReplyMarkup = kb
		if _, err := b.api.Send(plainMsg); err != nil {
			b.log.Error("Plain text fallback also failed", "error", err)
		}
	}
}

// escapeMarkdown escapes special characters for Telegram's MarkdownV2 format
func escapeMarkdown(text string) string {
	// Characters that need escaping in MarkdownV2: \_*[]()~`>#+-=|{}.!
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}

	parts := strings.Split(text, "```")
	for i := 0; i < len(parts); i++ {
		if i%2 == 0 {
			for _, char := range specialChars {
				parts[i] = strings.ReplaceAll(parts[i], char, "\\"+char)
			}
			continue
		}
		// Inside code blocks only backslash and backtick are special
		parts[i] = strings.ReplaceAll(parts[i], "\\", "\\\\")
		parts[i] = strings.ReplaceAll(parts[i], "`", "\\`")
	}

	return strings.Join(parts, "```")
}

// sendCallbackResponse sends a response to a callback query
func (b *Bot) sendCallbackResponse(callbackID, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(callback); err != nil {
		b.log.Error("Error sending callback response", "error", err)
	}
}

// editMessage edits an existing message
func (b *Bot) editMessage(chatID int64, messageID int, newText string, markup *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, newText)
	edit.ReplyMarkup = markup

	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("Error editing message", "message_id", messageID, "error", err)
	}
}
