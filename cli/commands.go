// Command execution for CLI commands.
//
// Information Hiding:
// - Pipeline assembly hidden
// - Output formatting hidden

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sageguide/sage/analyze"
	"github.com/sageguide/sage/compose"
	"github.com/sageguide/sage/config"
	"github.com/sageguide/sage/cooldown"
	"github.com/sageguide/sage/gate"
	"github.com/sageguide/sage/hook"
	"github.com/sageguide/sage/internal/logx"
	"github.com/sageguide/sage/llm"
	"github.com/sageguide/sage/pipeline"
	"github.com/sageguide/sage/storage"
	"github.com/sageguide/sage/transcript"
)

// Hook runs the full pipeline for one host invocation. It always writes
// a valid response to stdout and always returns nil: the host treats a
// failing hook as a broken session end, so every failure mode degrades
// to "no suggestion".
func Hook(ctx context.Context, stdin io.Reader, stdout io.Writer, args []string) error {
	settings, err := config.Load(config.DefaultDataDir())
	if err != nil {
		_ = hook.Write(stdout, hook.Failed(err.Error()))
		return nil
	}

	logger, closeLog := logx.Open(settings.DataDir)
	defer closeLog()

	in := hook.ReadInput(stdin, args)
	if in.TranscriptPath == "" {
		_ = hook.Write(stdout, hook.Failed("no transcript path provided"))
		return nil
	}

	t, err := transcript.Load(in.TranscriptPath)
	if err != nil {
		logger.Warn("failed to load transcript", "path", in.TranscriptPath, "error", err)
		_ = hook.Write(stdout, hook.NoSuggestion())
		return nil
	}

	runner, cleanup, err := buildRunner(settings, logger)
	if err != nil {
		logger.Error("failed to assemble pipeline", "error", err)
		_ = hook.Write(stdout, hook.NoSuggestion())
		return nil
	}
	defer cleanup()
	runner.SessionID = in.SessionID

	s := runner.Run(ctx, t, time.Now())
	if s == nil {
		_ = hook.Write(stdout, hook.NoSuggestion())
		return nil
	}

	_ = hook.Write(stdout, hook.WithSuggestion(s))
	return nil
}

// buildRunner assembles the live pipeline from settings. The returned
// cleanup must be called after the run.
func buildRunner(settings config.Settings, logger *slog.Logger) (*pipeline.Runner, func(), error) {
	providerType, err := llm.ParseProviderType(settings.Provider)
	if err != nil {
		return nil, nil, err
	}

	decision, err := providerType.
		Model(settings.DecisionModel).
		MaxTokens(settings.MaxTokens).
		Temperature(float32(settings.Temperature)).
		FromEnv()
	if err != nil {
		return nil, nil, err
	}

	generation, err := providerType.
		Model(settings.SuggestionModel).
		MaxTokens(settings.MaxTokens).
		Temperature(float32(settings.Temperature)).
		FromEnv()
	if err != nil {
		return nil, nil, err
	}

	classifier := gate.NewLLMClassifier(llm.NewClient(decision), settings.Timeout())
	g := gate.New(settings.MinSessionLength, classifier)

	generator := compose.NewLLMGenerator(llm.NewClient(generation), settings.Timeout())
	c := compose.New(generator, compose.DefaultContextLimit)

	store := cooldown.NewFileStore(settings.CooldownPath(), settings.Cooldown())

	cleanup := func() {}
	var history storage.History
	if h, err := storage.OpenSqlite(settings.HistoryPath()); err != nil {
		// History is best-effort: run without it rather than abort.
		logger.Warn("failed to open history database", "error", err)
	} else {
		history = h
		cleanup = func() { _ = h.Close() }
	}

	return pipeline.New(settings, store, g, c, history, logger), cleanup, nil
}

// Enable turns suggestions on and persists the change.
func Enable(w io.Writer) error {
	return setEnabled(w, func(bool) bool { return true })
}

// Disable turns suggestions off and persists the change.
func Disable(w io.Writer) error {
	return setEnabled(w, func(bool) bool { return false })
}

// Toggle flips the enabled flag and persists the change.
func Toggle(w io.Writer) error {
	return setEnabled(w, func(current bool) bool { return !current })
}

func setEnabled(w io.Writer, next func(bool) bool) error {
	settings, err := config.Load(config.DefaultDataDir())
	if err != nil {
		return err
	}

	settings.Enabled = next(settings.Enabled)
	if err := settings.Save(); err != nil {
		return err
	}

	if settings.Enabled {
		fmt.Fprintln(w, "Suggestions enabled")
	} else {
		fmt.Fprintln(w, "Suggestions disabled")
	}
	return nil
}

// Status prints the effective configuration and cooldown state.
func Status(ctx context.Context, w io.Writer) error {
	settings, err := config.Load(config.DefaultDataDir())
	if err != nil {
		return err
	}

	state := "disabled"
	if settings.Enabled {
		state = "enabled"
	}

	fmt.Fprintf(w, "Suggestions:       %s\n", state)
	fmt.Fprintf(w, "Provider:          %s\n", settings.Provider)
	fmt.Fprintf(w, "Decision model:    %s\n", settings.DecisionModel)
	fmt.Fprintf(w, "Suggestion model:  %s\n", settings.SuggestionModel)
	fmt.Fprintf(w, "Min length:        %d chars\n", settings.MinSessionLength)
	fmt.Fprintf(w, "Cooldown:          %s\n", settings.Cooldown())
	fmt.Fprintf(w, "Data dir:          %s\n", settings.DataDir)

	store := cooldown.NewFileStore(settings.CooldownPath(), settings.Cooldown())
	if store.IsCoolingDown(time.Now()) {
		fmt.Fprintln(w, "Cooldown state:    active")
	} else {
		fmt.Fprintln(w, "Cooldown state:    ready")
	}

	if history, err := storage.OpenSqlite(settings.HistoryPath()); err == nil {
		defer history.Close()
		if count, err := history.Count(ctx); err == nil {
			fmt.Fprintf(w, "Suggestions made:  %d\n", count)
		}
	}

	return nil
}

// History prints the most recent emitted suggestions.
func History(ctx context.Context, w io.Writer, limit int) error {
	settings, err := config.Load(config.DefaultDataDir())
	if err != nil {
		return err
	}

	history, err := storage.OpenSqlite(settings.HistoryPath())
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer history.Close()

	records, err := history.Recent(ctx, limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No suggestions recorded yet")
		return nil
	}

	for _, rec := range records {
		when := time.Unix(rec.CreatedAt, 0).Format("2006-01-02 15:04")
		fmt.Fprintf(w, "%s  [%s]  %s\n", when, rec.Category, rec.Title)
		fmt.Fprintf(w, "    %s\n", rec.Body)
		if rec.SessionID != "" {
			fmt.Fprintf(w, "    session: %s\n", rec.SessionID)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// Analyze runs the extractor on a transcript and prints the feature
// summary. Purely local: no model call, no cooldown, no history.
func Analyze(w io.Writer, path string) error {
	t, err := transcript.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load transcript: %w", err)
	}

	sum := analyze.Extract(t)

	fmt.Fprintf(w, "Length:           %d chars\n", sum.Length)
	fmt.Fprintf(w, "Languages:        %s\n", joinOrNone(sum.Languages))
	fmt.Fprintf(w, "Frameworks:       %s\n", joinOrNone(sum.Frameworks))
	fmt.Fprintf(w, "Tools:            %s\n", joinOrNone(sum.Tools))
	fmt.Fprintf(w, "Patterns:         %s\n", joinOrNone(sum.Patterns))
	fmt.Fprintf(w, "Code blocks:      %d\n", sum.CodeBlocks)
	fmt.Fprintf(w, "Error indicators: %d\n", sum.ErrorIndicators)

	if sum.HasSignals() {
		fmt.Fprintln(w, "Verdict:          has technical signals")
	} else {
		fmt.Fprintln(w, "Verdict:          no technical signals")
	}

	return nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
