package compose

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sageguide/sage/analyze"
	"github.com/sageguide/sage/llm"
	"github.com/sageguide/sage/transcript"
)

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"quality":       CategoryQuality,
		"security":      CategorySecurity,
		"Testing":       CategoryTesting,
		" performance ": CategoryPerformance,
		"TOOLING":       CategoryTooling,
	}
	for input, want := range cases {
		if got := ParseCategory(input); got != want {
			t.Errorf("ParseCategory(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseCategoryCoercesUnknown(t *testing.T) {
	for _, input := range []string{"", "refactoring", "best-practices", "42"} {
		if got := ParseCategory(input); got != CategoryQuality {
			t.Errorf("ParseCategory(%q) = %q, want quality", input, got)
		}
	}
}

// stubGenerator returns a canned suggestion or error.
type stubGenerator struct {
	suggestion Suggestion
	err        error
	gotTail    string
}

func (s *stubGenerator) Generate(_ context.Context, _ analyze.Summary, tail string) (Suggestion, error) {
	s.gotTail = tail
	if s.err != nil {
		return Suggestion{}, s.err
	}
	return s.suggestion, nil
}

func TestComposeAssignsID(t *testing.T) {
	stub := &stubGenerator{suggestion: Suggestion{
		Category: CategoryTesting,
		Title:    "Add tests",
		Body:     "Cover the error paths.",
	}}
	c := New(stub, 0)

	s := c.Compose(context.Background(), analyze.Summary{}, transcript.FromText("hello"))
	if s.ID == "" {
		t.Error("expected a generated id")
	}
	if s.Category != CategoryTesting {
		t.Errorf("expected testing, got %q", s.Category)
	}
}

func TestComposeBoundsTail(t *testing.T) {
	stub := &stubGenerator{suggestion: Suggestion{Category: CategoryQuality, Title: "t", Body: "b"}}
	c := New(stub, 10)

	long := make([]byte, 100)
	for i := range long {
		long[i] = 'x'
	}
	c.Compose(context.Background(), analyze.Summary{}, transcript.FromText(string(long)))

	if len(stub.gotTail) > 10 {
		t.Errorf("expected bounded tail, got %d chars", len(stub.gotTail))
	}
}

func TestComposeFallsBackOnError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("model down")}
	c := New(stub, 0)

	sum := analyze.Summary{Patterns: []string{"testing"}, Length: 500}
	s := c.Compose(context.Background(), sum, transcript.FromText("x"))

	if s.ID == "" {
		t.Error("expected a generated id")
	}
	if s.Category != CategoryTesting {
		t.Errorf("expected testing fallback, got %q", s.Category)
	}
	if s.Title == "" || s.Body == "" {
		t.Error("fallback suggestion must not be empty")
	}
}

func TestFallbackLeadsWithFirstPattern(t *testing.T) {
	sum := analyze.Summary{Patterns: []string{"security-sensitive", "testing"}}
	s := Fallback(sum)
	if s.Category != CategorySecurity {
		t.Errorf("expected security, got %q", s.Category)
	}
}

func TestFallbackGenericWhenNoPatternMatches(t *testing.T) {
	s := Fallback(analyze.Summary{Patterns: []string{"data-analysis"}})
	if s.Category != CategoryQuality {
		t.Errorf("expected quality, got %q", s.Category)
	}
	if s.Title == "" || s.Body == "" {
		t.Error("fallback must not be empty")
	}
}

func TestFallbackMentionsErrors(t *testing.T) {
	with := Fallback(analyze.Summary{ErrorIndicators: 3})
	without := Fallback(analyze.Summary{})
	if with.Body == without.Body {
		t.Error("expected error-aware fallback body to differ")
	}
}

// stubProvider feeds canned content through the real client path.
type stubProvider struct {
	content string
	err     error
}

func (s *stubProvider) Name() string  { return "stub" }
func (s *stubProvider) Model() string { return "stub-model" }

func (s *stubProvider) Chat(_ context.Context, _ []llm.ChatMessage) (llm.Response, error) {
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Content: s.content}, nil
}

func (s *stubProvider) ChatWithFormat(ctx context.Context, messages []llm.ChatMessage, _ *llm.ResponseFormat) (llm.Response, error) {
	return s.Chat(ctx, messages)
}

func TestLLMGeneratorParsesAnswer(t *testing.T) {
	client := llm.NewClient(&stubProvider{content: `{"category": "performance", "title": "Profile the hot loop", "body": "The parser allocates per line; reuse a buffer."}`})
	g := NewLLMGenerator(client, time.Second)

	s, err := g.Generate(context.Background(), analyze.Summary{}, "tail")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Category != CategoryPerformance {
		t.Errorf("expected performance, got %q", s.Category)
	}
	if s.Title != "Profile the hot loop" {
		t.Errorf("unexpected title %q", s.Title)
	}
}

func TestLLMGeneratorCoercesBadCategory(t *testing.T) {
	client := llm.NewClient(&stubProvider{content: `{"category": "vibes", "title": "t", "body": "b"}`})
	g := NewLLMGenerator(client, time.Second)

	s, err := g.Generate(context.Background(), analyze.Summary{}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Category != CategoryQuality {
		t.Errorf("expected quality coercion, got %q", s.Category)
	}
}

func TestLLMGeneratorRejectsEmptyFields(t *testing.T) {
	client := llm.NewClient(&stubProvider{content: `{"category": "quality", "title": "", "body": ""}`})
	g := NewLLMGenerator(client, time.Second)

	if _, err := g.Generate(context.Background(), analyze.Summary{}, ""); err == nil {
		t.Error("expected error for empty title/body")
	}
}

func TestLLMGeneratorRequestError(t *testing.T) {
	client := llm.NewClient(&stubProvider{err: errors.New("boom")})
	g := NewLLMGenerator(client, time.Second)

	if _, err := g.Generate(context.Background(), analyze.Summary{}, ""); err == nil {
		t.Error("expected error")
	}
}
