// Package gate decides whether a session has earned a suggestion.
//
// Two stages: deterministic pre-filters that cost nothing, then a cheap
// LLM classification for sessions that pass them. The classifier fails
// closed: any error, timeout, or unparseable answer means no suggestion.

package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/sageguide/sage/analyze"
	ijson "github.com/sageguide/sage/internal/json"
	"github.com/sageguide/sage/llm"
)

// Result is the gate's verdict.
type Result struct {
	ShouldSuggest bool
	Rationale     string
}

// Classifier answers whether a session merits a suggestion.
type Classifier interface {
	Classify(ctx context.Context, sum analyze.Summary, tail string) (Result, error)
}

// Gate applies the pre-filters and, when they all pass, the classifier.
type Gate struct {
	minLength  int
	classifier Classifier
}

// New creates a gate with the given minimum session length.
func New(minLength int, classifier Classifier) *Gate {
	return &Gate{minLength: minLength, classifier: classifier}
}

// Decide runs the pre-filters and classifier in order. Pre-filter
// rejections never reach the classifier.
func (g *Gate) Decide(ctx context.Context, sum analyze.Summary, cooldownActive bool, tail string) Result {
	if sum.Length < g.minLength {
		return Result{Rationale: "session too short"}
	}
	if cooldownActive {
		return Result{Rationale: "cooldown active"}
	}
	if !sum.HasSignals() {
		return Result{Rationale: "no technical signals"}
	}

	result, err := g.classifier.Classify(ctx, sum, tail)
	if err != nil {
		return Result{Rationale: "classification unavailable"}
	}
	return result
}

// DefaultTailLimit bounds the transcript excerpt sent to the classifier.
const DefaultTailLimit = 4000

const classifierSystemPrompt = `You decide whether a coding session would benefit from one proactive improvement suggestion.
Answer yes only when the session shows substantive technical work where a concrete, actionable suggestion exists.
Answer no for trivial sessions, pure Q&A, or work that is already in good shape.
Respond with JSON only: {"suggest": true|false, "rationale": "one short sentence"}`

// LLMClassifier implements Classifier on top of an llm.Client.
type LLMClassifier struct {
	client  *llm.Client
	timeout time.Duration
}

// NewLLMClassifier creates a classifier backed by the given client.
func NewLLMClassifier(client *llm.Client, timeout time.Duration) *LLMClassifier {
	return &LLMClassifier{client: client, timeout: timeout}
}

type classifierAnswer struct {
	Suggest   bool   `json:"suggest"`
	Rationale string `json:"rationale"`
}

// Classify asks the model for a yes/no verdict on the session.
func (c *LLMClassifier) Classify(ctx context.Context, sum analyze.Summary, tail string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Session features: %s\n\nEnd of transcript:\n%s", sum.String(), tail)

	content, err := c.client.ChatWithFormat(ctx, []llm.ChatMessage{
		llm.SystemMessage(classifierSystemPrompt),
		llm.UserMessage(prompt),
	}, llm.NewJSONObjectFormat())
	if err != nil {
		return Result{}, fmt.Errorf("classification request failed: %w", err)
	}

	answer, err := ijson.Unmarshal[classifierAnswer](content)
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse classifier response: %w", err)
	}

	return Result{ShouldSuggest: answer.Suggest, Rationale: answer.Rationale}, nil
}

// Verify LLMClassifier implements Classifier
var _ Classifier = (*LLMClassifier)(nil)
