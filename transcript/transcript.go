// Package transcript models the session log that is the pipeline's sole input.
//
// Host tools write transcripts either as JSONL (one role-tagged turn per
// line, the Claude Code format) or as plain text. Loading is lenient: a
// file that does not parse as JSONL is treated as a single opaque text
// block rather than rejected, because an unreadable transcript must map to
// "no signals", not to a failure.
package transcript

import (
	"encoding/json"
	"os"
	"strings"
)

// Turn is one entry of a session log: an opaque text block with a role tag.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript is the ordered, read-only sequence of session turns.
type Transcript struct {
	Turns []Turn
}

// jsonlTurn covers the line shapes hosts emit. Content is either a plain
// string or a list of typed blocks; some hosts nest the turn under "message".
type jsonlTurn struct {
	Role    string          `json:"role"`
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
	Message *struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// FromText wraps raw text as a single-turn transcript.
func FromText(text string) Transcript {
	if text == "" {
		return Transcript{}
	}
	return Transcript{Turns: []Turn{{Role: "session", Content: text}}}
}

// Parse decodes transcript data. JSONL input yields one turn per line;
// anything else becomes a single opaque turn.
func Parse(data []byte) Transcript {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return Transcript{}
	}

	lines := strings.Split(text, "\n")
	first := strings.TrimSpace(lines[0])
	if !strings.HasPrefix(first, "{") {
		return FromText(text)
	}

	var turns []Turn
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var raw jsonlTurn
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}
		role, content := raw.Role, raw.Content
		if raw.Message != nil {
			role, content = raw.Message.Role, raw.Message.Content
		}
		if role == "" {
			role = raw.Type
		}
		text := decodeContent(content)
		if role == "" && text == "" {
			continue
		}
		turns = append(turns, Turn{Role: role, Content: text})
	}

	if len(turns) == 0 {
		return FromText(text)
	}
	return Transcript{Turns: turns}
}

// Load reads and parses a transcript file.
func Load(path string) (Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, err
	}
	return Parse(data), nil
}

// decodeContent flattens a content value to text. String content is used
// as-is; block lists contribute their text blocks joined by newlines.
func decodeContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var parts []string
		for _, b := range blocks {
			if b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n")
	}

	return ""
}

// Empty reports whether the transcript has no turns.
func (t Transcript) Empty() bool {
	return len(t.Turns) == 0
}

// Text returns the role-tagged flattened session text.
func (t Transcript) Text() string {
	var b strings.Builder
	for i, turn := range t.Turns {
		if i > 0 {
			b.WriteString("\n")
		}
		if turn.Role != "" {
			b.WriteString(turn.Role)
			b.WriteString(": ")
		}
		b.WriteString(turn.Content)
	}
	return b.String()
}

// Len returns the length of the flattened session text in bytes.
func (t Transcript) Len() int {
	n := 0
	for i, turn := range t.Turns {
		if i > 0 {
			n++
		}
		if turn.Role != "" {
			n += len(turn.Role) + 2
		}
		n += len(turn.Content)
	}
	return n
}

// Tail returns up to maxChars trailing runes of the flattened text.
// The tail is kept rather than the head: the end of a session is where
// the decision-relevant activity is.
func (t Transcript) Tail(maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	runes := []rune(t.Text())
	if len(runes) <= maxChars {
		return string(runes)
	}
	return string(runes[len(runes)-maxChars:])
}
