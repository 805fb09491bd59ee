// Package pipeline sequences extraction, gating, and composition.
//
// The runner sits at the host boundary: nothing below it may take the
// hook down. Collaborator errors and panics are contained here and turn
// into "no suggestion". The cooldown is recorded only when a suggestion
// is actually emitted, so rejected sessions never push the window out.

package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/sageguide/sage/analyze"
	"github.com/sageguide/sage/compose"
	"github.com/sageguide/sage/config"
	"github.com/sageguide/sage/cooldown"
	"github.com/sageguide/sage/gate"
	"github.com/sageguide/sage/storage"
	"github.com/sageguide/sage/transcript"
)

// Runner wires the stages together for one hook invocation.
type Runner struct {
	settings config.Settings
	store    cooldown.Store
	gate     *gate.Gate
	composer *compose.Composer
	history  storage.History
	logger   *slog.Logger

	// SessionID tags log lines and history records; may be empty.
	SessionID string
}

// New creates a runner. history may be nil when persistence is
// unavailable; logger must not be nil.
func New(settings config.Settings, store cooldown.Store, g *gate.Gate, c *compose.Composer, history storage.History, logger *slog.Logger) *Runner {
	return &Runner{
		settings: settings,
		store:    store,
		gate:     g,
		composer: c,
		history:  history,
		logger:   logger,
	}
}

// Run executes the full pipeline for one session. A nil return means no
// suggestion; the hook response is identical for every no-suggestion
// path. Never panics and never returns an error.
func (r *Runner) Run(ctx context.Context, t transcript.Transcript, now time.Time) (result *compose.Suggestion) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("pipeline panic recovered", "panic", rec, "session", r.SessionID)
			result = nil
		}
	}()

	if !r.settings.Enabled {
		r.logger.Debug("suggestions disabled", "session", r.SessionID)
		return nil
	}

	sum := analyze.Extract(t)
	r.logger.Debug("session features extracted", "session", r.SessionID, "features", sum.String())

	cooldownActive := r.store.IsCoolingDown(now)
	verdict := r.gate.Decide(ctx, sum, cooldownActive, t.Tail(gate.DefaultTailLimit))
	if !verdict.ShouldSuggest {
		r.logger.Info("no suggestion", "session", r.SessionID, "rationale", verdict.Rationale)
		return nil
	}

	s := r.composer.Compose(ctx, sum, t)

	if err := r.store.Record(now); err != nil {
		r.logger.Warn("failed to record cooldown", "error", err)
	}

	if r.history != nil {
		rec := storage.Record{
			ID:        s.ID,
			SessionID: r.SessionID,
			Category:  string(s.Category),
			Title:     s.Title,
			Body:      s.Body,
			Rationale: verdict.Rationale,
			CreatedAt: now.Unix(),
		}
		if err := r.history.Append(ctx, rec); err != nil {
			r.logger.Warn("failed to append history", "error", err)
		}
	}

	r.logger.Info("suggestion emitted",
		"session", r.SessionID,
		"id", s.ID,
		"category", string(s.Category),
		"title", s.Title,
	)

	return &s
}
