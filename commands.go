package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/korjavin/swiftcamp/ai"
	"github.com/korjavin/swiftcamp/bot"
	"github.com/korjavin/swiftcamp/models"
)

func newBotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if err := a.cfg.RequireBot(); err != nil {
				return err
			}

			deps := bot.Deps{
				DB:        a.db,
				Engine:    a.engine,
				Evaluator: a.eval,
				Logger:    a.log,
			}
			if a.cfg.TutorEnabled() {
				deps.Tutor = ai.NewDeepseekClient(a.cfg.DeepseekAPIKey, a.cfg.DeepseekAPIURL, a.log)
			} else {
				a.log.Info("DEEPSEEK_API_KEY not set, /review is disabled")
			}

			b, err := bot.New(a.cfg, deps)
			if err != nil {
				return fmt.Errorf("failed to initialize bot: %w", err)
			}
			a.log.Info("Bot initialized successfully", "lessons", a.engine.TotalCount())

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				defer cancel()
				return b.Start(ctx)
			})
			if a.cfg.MetricsAddr != "" {
				g.Go(func() error { return serveMetrics(ctx, a) })
			}
			return g.Wait()
		}),
	}
}

// serveMetrics exposes Prometheus metrics until ctx is cancelled
func serveMetrics(ctx context.Context, a *app) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Serving metrics", "addr", a.cfg.MetricsAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func newLessonsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lessons",
		Short: "List lessons with their status",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			out := cmd.OutOrStdout()
			for _, l := range a.engine.LoadCatalog() {
				status := "open"
				switch {
				case a.engine.IsCompleted(l.ID):
					status = "done"
				case a.engine.IsLocked(l):
					status = "locked"
				}
				fmt.Fprintf(out, "%-8s %-16s %-13s %s\n", status, l.ID, l.Difficulty, l.Title)
			}
			return nil
		}),
	}
}

func newRunCommand() *cobra.Command {
	var (
		lessonID string
		check    bool
	)

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Evaluate a Swift source file, optionally against a lesson challenge",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			src, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}

			var challenge *models.Challenge
			if lessonID != "" {
				lesson, ok := a.engine.Catalog().Lesson(lessonID)
				if !ok {
					return fmt.Errorf("lesson %q not found", lessonID)
				}
				challenge = lesson.Challenge
			}
			if check && challenge == nil {
				return errors.New("--check needs --lesson with a challenge")
			}

			var ch <-chan models.RunReport
			if check {
				ch, err = a.eval.CheckSolution(src, challenge)
			} else {
				ch, err = a.eval.Submit(src, challenge)
			}
			out := cmd.OutOrStdout()
			if err != nil {
				fmt.Fprint(out, a.eval.Output())
				a.saveSubmission(cmd.Context(), lessonID, models.RunReport{Error: err.Error()})
				return err
			}

			fmt.Fprintln(out, "🚀 Running your code...")
			var report models.RunReport
			select {
			case report = <-ch:
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}

			fmt.Fprint(out, report.Output())
			a.saveSubmission(cmd.Context(), lessonID, report)
			if !report.Success {
				return errors.New(report.Error)
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&lessonID, "lesson", "l", "", "lesson whose challenge the code is tested against")
	cmd.Flags().BoolVar(&check, "check", false, "compare with the reference solution first")
	return cmd
}

// readSource reads a file, or stdin when the name is "-"
func readSource(cmd *cobra.Command, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read source: %w", err)
	}
	return string(data), nil
}

func (a *app) saveSubmission(ctx context.Context, lessonID string, report models.RunReport) {
	if a.db == nil {
		return
	}
	err := a.db.SaveSubmission(context.WithoutCancel(ctx), models.Submission{
		ID:       report.ID,
		LessonID: lessonID,
		Passed:   report.Passed,
		Total:    report.Total,
		Success:  report.Success,
		Error:    report.Error,
	})
	if err != nil {
		a.log.Warn("Error saving submission", "lesson_id", lessonID, "error", err)
	}
}

func newCompleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <lesson-id>",
		Short: "Mark a lesson as completed",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			lesson, ok := a.engine.Catalog().Lesson(args[0])
			if !ok {
				return fmt.Errorf("lesson %q not found", args[0])
			}
			if a.engine.IsLocked(lesson) {
				return fmt.Errorf("lesson %q is locked, complete %s first", lesson.ID, strings.Join(lesson.Dependencies, ", "))
			}

			res := a.engine.Complete(cmd.Context(), lesson)
			out := cmd.OutOrStdout()
			if res.AlreadyCompleted {
				fmt.Fprintf(out, "Already completed: %s\n", lesson.Title)
				return nil
			}

			fmt.Fprintf(out, "Completed %s: +%d XP (total %d, level %d, streak %d)\n",
				lesson.Title, res.XPAwarded, res.Progress.TotalXP, res.Progress.Level(), res.Progress.CurrentStreak)
			for _, badge := range res.NewBadges {
				fmt.Fprintf(out, "New badge: %s\n", models.BadgeName(badge))
			}
			if next, ok := a.engine.NextLesson(lesson); ok {
				marker := ""
				if a.engine.IsLocked(next) {
					marker = " (locked)"
				}
				fmt.Fprintf(out, "Next: %s%s\n", next.ID, marker)
			}
			if !res.Persisted {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning: progress could not be saved and will be lost when this command exits")
			}
			return nil
		}),
	}
}

func newProgressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show XP, level, streaks and badges",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			p := a.engine.Progress()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Level:          %d\n", p.Level())
			fmt.Fprintf(out, "Total XP:       %d\n", p.TotalXP)
			fmt.Fprintf(out, "Lessons:        %d/%d (%.0f%%)\n", a.engine.CompletedCount(), a.engine.TotalCount(), a.engine.ProgressPercentage())
			fmt.Fprintf(out, "Current streak: %d\n", p.CurrentStreak)
			fmt.Fprintf(out, "Longest streak: %d\n", p.LongestStreak)
			if p.LastSessionDate != nil {
				fmt.Fprintf(out, "Last session:   %s\n", p.LastSessionDate.In(a.cfg.Location).Format("2006-01-02"))
			}

			names := make([]string, 0, len(p.EarnedBadges))
			for _, badge := range p.EarnedBadges {
				names = append(names, models.BadgeName(badge))
			}
			if len(names) == 0 {
				names = append(names, "none")
			}
			fmt.Fprintf(out, "Badges:         %s\n", strings.Join(names, ", "))
			return nil
		}),
	}
}

func newResetCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all progress and run history",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			a.engine.ResetProgress(cmd.Context())
			if a.db != nil {
				if err := a.db.ClearSubmissions(cmd.Context()); err != nil {
					return fmt.Errorf("failed to clear submissions: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Progress reset.")
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the reset")
	return cmd
}
