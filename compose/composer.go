// Package compose turns a gated session into one concrete suggestion.
//
// The generator is the expensive model call; it only ever runs after a
// positive gate verdict. When it fails the composer degrades to a local
// suggestion synthesized from the extracted features, so a positive
// verdict always produces output.

package compose

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sageguide/sage/analyze"
	ijson "github.com/sageguide/sage/internal/json"
	"github.com/sageguide/sage/llm"
	"github.com/sageguide/sage/transcript"
)

// Category classifies a suggestion.
type Category string

// The closed set of suggestion categories.
const (
	CategoryQuality       Category = "quality"
	CategorySecurity      Category = "security"
	CategoryTesting       Category = "testing"
	CategoryDocumentation Category = "documentation"
	CategoryArchitecture  Category = "architecture"
	CategoryPerformance   Category = "performance"
	CategoryTooling       Category = "tooling"
)

// Categories lists every valid category, in display order.
func Categories() []Category {
	return []Category{
		CategoryQuality,
		CategorySecurity,
		CategoryTesting,
		CategoryDocumentation,
		CategoryArchitecture,
		CategoryPerformance,
		CategoryTooling,
	}
}

// ParseCategory normalizes a raw category string. Anything outside the
// closed set coerces to quality rather than failing.
func ParseCategory(raw string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	for _, valid := range Categories() {
		if c == valid {
			return c
		}
	}
	return CategoryQuality
}

// Suggestion is the composed output payload.
type Suggestion struct {
	ID       string
	Category Category
	Title    string
	Body     string
}

// Generator produces a suggestion from the session features and excerpt.
type Generator interface {
	Generate(ctx context.Context, sum analyze.Summary, tail string) (Suggestion, error)
}

// DefaultContextLimit bounds the transcript excerpt sent to the generator.
const DefaultContextLimit = 15000

// Composer wraps a generator with the local fallback.
type Composer struct {
	generator Generator
	limit     int
}

// New creates a composer. A non-positive limit uses DefaultContextLimit.
func New(generator Generator, limit int) *Composer {
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	return &Composer{generator: generator, limit: limit}
}

// Compose produces one suggestion. Never returns an error: when the
// generator fails, the fallback fills in.
func (c *Composer) Compose(ctx context.Context, sum analyze.Summary, t transcript.Transcript) Suggestion {
	s, err := c.generator.Generate(ctx, sum, t.Tail(c.limit))
	if err != nil {
		s = Fallback(sum)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return s
}

const generatorSystemPrompt = `You are a senior engineer reviewing a completed coding session.
Produce exactly one concrete, actionable improvement suggestion grounded in what actually happened in the session.
Pick the single category that fits best from: quality, security, testing, documentation, architecture, performance, tooling.
Respond with JSON only: {"category": "...", "title": "short imperative title", "body": "2-4 sentences of specific advice"}`

// LLMGenerator implements Generator on top of an llm.Client.
type LLMGenerator struct {
	client  *llm.Client
	timeout time.Duration
}

// NewLLMGenerator creates a generator backed by the given client.
func NewLLMGenerator(client *llm.Client, timeout time.Duration) *LLMGenerator {
	return &LLMGenerator{client: client, timeout: timeout}
}

type generatorAnswer struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

// Generate asks the model for a suggestion.
func (g *LLMGenerator) Generate(ctx context.Context, sum analyze.Summary, tail string) (Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Session features: %s\n\nEnd of transcript:\n%s", sum.String(), tail)

	content, err := g.client.ChatWithFormat(ctx, []llm.ChatMessage{
		llm.SystemMessage(generatorSystemPrompt),
		llm.UserMessage(prompt),
	}, llm.NewJSONObjectFormat())
	if err != nil {
		return Suggestion{}, fmt.Errorf("suggestion request failed: %w", err)
	}

	answer, err := ijson.Unmarshal[generatorAnswer](content)
	if err != nil {
		return Suggestion{}, fmt.Errorf("failed to parse generator response: %w", err)
	}
	if answer.Title == "" || answer.Body == "" {
		return Suggestion{}, fmt.Errorf("generator response missing title or body")
	}

	return Suggestion{
		Category: ParseCategory(answer.Category),
		Title:    answer.Title,
		Body:     answer.Body,
	}, nil
}

// Verify LLMGenerator implements Generator
var _ Generator = (*LLMGenerator)(nil)

// fallbackAdvice maps detected patterns to canned suggestions, strongest
// signal first.
var fallbackAdvice = map[string]Suggestion{
	"security-sensitive": {
		Category: CategorySecurity,
		Title:    "Audit the credential handling you touched",
		Body:     "This session worked with secrets or authentication code. Double-check that no credentials are hardcoded or logged, and that sensitive values are loaded from the environment or a secret store.",
	},
	"testing": {
		Category: CategoryTesting,
		Title:    "Lock in the behavior with tests",
		Body:     "This session involved test work. Consider adding coverage for the edge cases you exercised manually, so regressions surface in CI instead of production.",
	},
	"api-development": {
		Category: CategoryArchitecture,
		Title:    "Document the API contract",
		Body:     "This session built or changed API endpoints. Capture the request and response shapes somewhere discoverable, and make sure error responses are consistent across routes.",
	},
	"database-work": {
		Category: CategoryPerformance,
		Title:    "Review the new queries under load",
		Body:     "This session touched database queries or schema. Check that the hot paths are indexed and that migrations are reversible before shipping.",
	},
	"devops": {
		Category: CategoryTooling,
		Title:    "Pin and verify the deployment changes",
		Body:     "This session changed build or deployment configuration. Pin image and dependency versions where possible and verify the pipeline end to end in a staging environment.",
	},
}

// Fallback synthesizes a suggestion locally from the feature summary.
// Never empty: a generic quality suggestion covers sessions whose
// patterns have no specific advice.
func Fallback(sum analyze.Summary) Suggestion {
	for _, pattern := range sum.Patterns {
		if s, ok := fallbackAdvice[pattern]; ok {
			return s
		}
	}

	body := "Take a few minutes to re-read the code this session produced: tighten naming, remove leftover debug output, and note anything you deferred so it does not get lost."
	if sum.ErrorIndicators > 0 {
		body = "This session hit several errors along the way. Revisit the failure points and add guards or clearer error messages so the next run fails fast with a useful diagnosis."
	}

	return Suggestion{
		Category: CategoryQuality,
		Title:    "Do a quick cleanup pass",
		Body:     body,
	}
}
