package hook

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sageguide/sage/compose"
)

func TestReadInputFromStdin(t *testing.T) {
	stdin := strings.NewReader(`{"session_id": "abc", "transcript_path": "/tmp/t.jsonl"}`)
	in := ReadInput(stdin, nil)
	if in.SessionID != "abc" {
		t.Errorf("expected session 'abc', got %q", in.SessionID)
	}
	if in.TranscriptPath != "/tmp/t.jsonl" {
		t.Errorf("expected path '/tmp/t.jsonl', got %q", in.TranscriptPath)
	}
}

func TestReadInputFromArgs(t *testing.T) {
	in := ReadInput(strings.NewReader(""), []string{"sess-1", "/tmp/x.jsonl"})
	if in.SessionID != "sess-1" || in.TranscriptPath != "/tmp/x.jsonl" {
		t.Errorf("unexpected input %+v", in)
	}
}

func TestReadInputArgsFillMissingStdinFields(t *testing.T) {
	stdin := strings.NewReader(`{"session_id": "abc"}`)
	in := ReadInput(stdin, []string{"ignored", "/tmp/t.jsonl"})
	if in.SessionID != "abc" {
		t.Errorf("stdin session must win, got %q", in.SessionID)
	}
	if in.TranscriptPath != "/tmp/t.jsonl" {
		t.Errorf("expected arg path, got %q", in.TranscriptPath)
	}
}

func TestReadInputMalformedStdin(t *testing.T) {
	stdin := strings.NewReader("not json at all")
	in := ReadInput(stdin, []string{"s", "/p"})
	if in.SessionID != "s" || in.TranscriptPath != "/p" {
		t.Errorf("expected args fallback, got %+v", in)
	}
}

func TestReadInputFromEnv(t *testing.T) {
	t.Setenv("SESSION_ID", "env-session")
	t.Setenv("TRANSCRIPT_PATH", "/env/path")
	in := ReadInput(strings.NewReader(""), nil)
	if in.SessionID != "env-session" || in.TranscriptPath != "/env/path" {
		t.Errorf("expected env fallback, got %+v", in)
	}
}

func TestOutputNeverBlocks(t *testing.T) {
	outputs := []Output{
		NoSuggestion(),
		WithSuggestion(&compose.Suggestion{Category: compose.CategoryTesting, Title: "t", Body: "b"}),
		Failed("something broke"),
	}
	for _, out := range outputs {
		if out.Block {
			t.Errorf("output must never block: %+v", out)
		}
	}
}

func TestWriteValidJSON(t *testing.T) {
	var buf bytes.Buffer
	s := &compose.Suggestion{
		Category: compose.CategorySecurity,
		Title:    "Rotate the leaked key",
		Body:     "The session pasted an API key into the transcript.",
	}
	if err := Write(&buf, WithSuggestion(s)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["block"] != false {
		t.Error("expected block=false")
	}
	ctx, _ := decoded["context"].(string)
	if !strings.Contains(ctx, "Rotate the leaked key") {
		t.Errorf("expected title in context, got %q", ctx)
	}
	if !strings.Contains(ctx, "[security]") {
		t.Errorf("expected category tag in context, got %q", ctx)
	}
}

func TestWriteNoSuggestionOmitsFields(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, NoSuggestion()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got := strings.TrimSpace(buf.String())
	if got != `{"block":false}` {
		t.Errorf("expected minimal response, got %q", got)
	}
}

func TestFailedCarriesMessage(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Failed("no transcript path provided")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["error"] != "no transcript path provided" {
		t.Errorf("unexpected error field %v", decoded["error"])
	}
	if decoded["block"] != false {
		t.Error("expected block=false")
	}
}
