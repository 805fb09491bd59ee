package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sageguide/sage/analyze"
	"github.com/sageguide/sage/compose"
	"github.com/sageguide/sage/config"
	"github.com/sageguide/sage/cooldown"
	"github.com/sageguide/sage/gate"
	"github.com/sageguide/sage/storage"
	"github.com/sageguide/sage/transcript"
)

// stubClassifier returns a canned verdict.
type stubClassifier struct {
	result gate.Result
	err    error
	panics bool
	calls  int
}

func (s *stubClassifier) Classify(_ context.Context, _ analyze.Summary, _ string) (gate.Result, error) {
	s.calls++
	if s.panics {
		panic("classifier blew up")
	}
	if s.err != nil {
		return gate.Result{}, s.err
	}
	return s.result, nil
}

// stubGenerator returns a canned suggestion.
type stubGenerator struct {
	suggestion compose.Suggestion
	err        error
	calls      int
}

func (s *stubGenerator) Generate(_ context.Context, _ analyze.Summary, _ string) (compose.Suggestion, error) {
	s.calls++
	if s.err != nil {
		return compose.Suggestion{}, s.err
	}
	return s.suggestion, nil
}

// countingStore wraps a MemoryStore and counts Record calls.
type countingStore struct {
	*cooldown.MemoryStore
	records int
}

func (c *countingStore) Record(now time.Time) error {
	c.records++
	return c.MemoryStore.Record(now)
}

func richTranscript() transcript.Transcript {
	text := strings.Repeat("Building a Flask API with @app.route handlers and pip install of dependencies. ", 5)
	return transcript.FromText(text)
}

type fixture struct {
	classifier *stubClassifier
	generator  *stubGenerator
	store      *countingStore
	history    *storage.SqliteHistory
	runner     *Runner
}

func newFixture(t *testing.T, settings config.Settings) *fixture {
	t.Helper()

	classifier := &stubClassifier{result: gate.Result{ShouldSuggest: true, Rationale: "substantive work"}}
	generator := &stubGenerator{suggestion: compose.Suggestion{
		Category: compose.CategoryTesting,
		Title:    "Add tests",
		Body:     "Cover the error paths.",
	}}
	store := &countingStore{MemoryStore: cooldown.NewMemoryStore(settings.Cooldown())}

	history, err := storage.NewSqliteInMemory()
	if err != nil {
		t.Fatalf("failed to create history: %v", err)
	}
	t.Cleanup(func() { history.Close() })

	g := gate.New(settings.MinSessionLength, classifier)
	c := compose.New(generator, 0)
	runner := New(settings, store, g, c, history, slog.New(slog.DiscardHandler))

	return &fixture{
		classifier: classifier,
		generator:  generator,
		store:      store,
		history:    history,
		runner:     runner,
	}
}

func defaultSettings() config.Settings {
	return config.Settings{
		Enabled:          true,
		MinSessionLength: 100,
		CooldownSeconds:  300,
		TimeoutSeconds:   30,
	}
}

func TestRunEmitsSuggestion(t *testing.T) {
	f := newFixture(t, defaultSettings())
	now := time.Unix(1_700_000_000, 0)

	s := f.runner.Run(context.Background(), richTranscript(), now)
	if s == nil {
		t.Fatal("expected a suggestion")
	}
	if s.ID == "" {
		t.Error("expected a generated id")
	}
	if s.Category != compose.CategoryTesting {
		t.Errorf("expected testing, got %q", s.Category)
	}
	if f.store.records != 1 {
		t.Errorf("expected exactly 1 cooldown record, got %d", f.store.records)
	}

	records, err := f.history.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(records))
	}
	if records[0].ID != s.ID {
		t.Errorf("history id %q does not match suggestion id %q", records[0].ID, s.ID)
	}
}

func TestRunDisabled(t *testing.T) {
	settings := defaultSettings()
	settings.Enabled = false
	f := newFixture(t, settings)

	if s := f.runner.Run(context.Background(), richTranscript(), time.Now()); s != nil {
		t.Error("expected nil when disabled")
	}
	if f.classifier.calls != 0 {
		t.Error("classifier must not run when disabled")
	}
	if f.store.records != 0 {
		t.Error("cooldown must not be recorded when disabled")
	}
}

func TestRunShortSession(t *testing.T) {
	f := newFixture(t, defaultSettings())

	if s := f.runner.Run(context.Background(), transcript.FromText("hi"), time.Now()); s != nil {
		t.Error("expected nil for short session")
	}
	if f.classifier.calls != 0 {
		t.Error("classifier must not run for short sessions")
	}
	if f.store.records != 0 {
		t.Error("cooldown must not be recorded on rejection")
	}
}

func TestRunCooldownActive(t *testing.T) {
	f := newFixture(t, defaultSettings())
	now := time.Unix(1_700_000_000, 0)

	if err := f.store.Record(now); err != nil {
		t.Fatal(err)
	}
	f.store.records = 0

	if s := f.runner.Run(context.Background(), richTranscript(), now.Add(time.Minute)); s != nil {
		t.Error("expected nil during cooldown")
	}
	if f.classifier.calls != 0 {
		t.Error("classifier must not run during cooldown")
	}
	if f.store.records != 0 {
		t.Error("cooldown must not be re-recorded on rejection")
	}
}

func TestRunCooldownExpired(t *testing.T) {
	f := newFixture(t, defaultSettings())
	now := time.Unix(1_700_000_000, 0)

	if err := f.store.Record(now); err != nil {
		t.Fatal(err)
	}
	f.store.records = 0

	if s := f.runner.Run(context.Background(), richTranscript(), now.Add(10*time.Minute)); s == nil {
		t.Error("expected suggestion after cooldown expiry")
	}
}

func TestRunNegativeVerdict(t *testing.T) {
	f := newFixture(t, defaultSettings())
	f.classifier.result = gate.Result{ShouldSuggest: false, Rationale: "routine"}

	if s := f.runner.Run(context.Background(), richTranscript(), time.Now()); s != nil {
		t.Error("expected nil for negative verdict")
	}
	if f.generator.calls != 0 {
		t.Error("generator must not run after a negative verdict")
	}
	if f.store.records != 0 {
		t.Error("cooldown must not be recorded on rejection")
	}
}

func TestRunClassifierErrorFailsClosed(t *testing.T) {
	f := newFixture(t, defaultSettings())
	f.classifier.err = errors.New("network down")

	if s := f.runner.Run(context.Background(), richTranscript(), time.Now()); s != nil {
		t.Error("expected nil when classification fails")
	}
	if f.store.records != 0 {
		t.Error("cooldown must not be recorded on failure")
	}
}

func TestRunGeneratorErrorFallsBack(t *testing.T) {
	f := newFixture(t, defaultSettings())
	f.generator.err = errors.New("model down")

	s := f.runner.Run(context.Background(), richTranscript(), time.Now())
	if s == nil {
		t.Fatal("expected fallback suggestion")
	}
	if s.Title == "" || s.Body == "" {
		t.Error("fallback suggestion must not be empty")
	}
	if f.store.records != 1 {
		t.Errorf("expected 1 cooldown record on fallback emit, got %d", f.store.records)
	}
}

func TestRunRecoversPanic(t *testing.T) {
	f := newFixture(t, defaultSettings())
	f.classifier.panics = true

	if s := f.runner.Run(context.Background(), richTranscript(), time.Now()); s != nil {
		t.Error("expected nil after recovered panic")
	}
	if f.store.records != 0 {
		t.Error("cooldown must not be recorded after a panic")
	}
}

func TestRunNilHistoryTolerated(t *testing.T) {
	settings := defaultSettings()
	f := newFixture(t, settings)

	classifier := &stubClassifier{result: gate.Result{ShouldSuggest: true}}
	g := gate.New(settings.MinSessionLength, classifier)
	c := compose.New(f.generator, 0)
	runner := New(settings, cooldown.NewMemoryStore(settings.Cooldown()), g, c, nil, slog.New(slog.DiscardHandler))

	if s := runner.Run(context.Background(), richTranscript(), time.Now()); s == nil {
		t.Error("expected suggestion with nil history")
	}
}

func TestRunEmptyTranscript(t *testing.T) {
	f := newFixture(t, defaultSettings())

	if s := f.runner.Run(context.Background(), transcript.FromText(""), time.Now()); s != nil {
		t.Error("expected nil for empty transcript")
	}
	if f.classifier.calls != 0 {
		t.Error("classifier must not run for empty transcript")
	}
}

func TestRunSessionIDInHistory(t *testing.T) {
	f := newFixture(t, defaultSettings())
	f.runner.SessionID = "abc-123"

	if s := f.runner.Run(context.Background(), richTranscript(), time.Now()); s == nil {
		t.Fatal("expected a suggestion")
	}

	records, err := f.history.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 1 || records[0].SessionID != "abc-123" {
		t.Errorf("expected session id in history, got %+v", records)
	}
}
