// Package hook is the host invocation boundary.
//
// The host tool runs the binary synchronously at session end and parses
// whatever lands on stdout, so this package has one hard rule: always
// produce a valid response object with block=false, no matter what went
// wrong. Failures are reported in the error field, never as a nonzero
// exit or garbage output.

package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sageguide/sage/compose"
)

// Input identifies the session the host wants analyzed.
type Input struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
}

// Output is the response object written to stdout. Block is always
// false: this system only ever adds context, it never interrupts the
// host.
type Output struct {
	Block   bool   `json:"block"`
	Context string `json:"context,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ReadInput assembles the input from stdin JSON, positional arguments,
// and environment variables, in that order of precedence. Missing or
// malformed sources are skipped, not errors; validation happens later.
func ReadInput(stdin io.Reader, args []string) Input {
	var in Input

	if stdin != nil {
		data, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
		if err == nil && len(data) > 0 {
			// Best effort: a non-JSON stdin is simply ignored.
			_ = json.Unmarshal(data, &in)
		}
	}

	if in.SessionID == "" && len(args) > 0 {
		in.SessionID = args[0]
	}
	if in.TranscriptPath == "" && len(args) > 1 {
		in.TranscriptPath = args[1]
	}

	if in.SessionID == "" {
		in.SessionID = os.Getenv("SESSION_ID")
	}
	if in.TranscriptPath == "" {
		in.TranscriptPath = os.Getenv("TRANSCRIPT_PATH")
	}

	return in
}

// NoSuggestion is the response for every path that produces nothing.
func NoSuggestion() Output {
	return Output{Block: false}
}

// WithSuggestion wraps a composed suggestion for the host.
func WithSuggestion(s *compose.Suggestion) Output {
	return Output{
		Block:   false,
		Context: fmt.Sprintf("[%s] %s\n\n%s", s.Category, s.Title, s.Body),
		Reason:  "sage suggestion available",
	}
}

// Failed reports an expected failure mode without blocking the host.
func Failed(msg string) Output {
	return Output{Block: false, Error: msg}
}

// Write emits the response as a single JSON line.
func Write(w io.Writer, out Output) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to write hook response: %w", err)
	}
	return nil
}
