// Package analyze turns a session transcript into a compact feature summary.
//
// Detection is purely lexical: known keywords, file-extension mentions and
// error-indicator phrases. No I/O and no network, so extraction can run on
// every session end unconditionally.
package analyze

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sageguide/sage/transcript"
)

// Summary is the fixed-shape feature record derived from one transcript.
// Created once per pipeline run, never mutated, never persisted.
type Summary struct {
	Languages       []string // detected languages, ordered by first occurrence
	Frameworks      []string // detected frameworks and libraries
	Tools           []string // detected development tools
	Patterns        []string // coarse activity tags, e.g. "api-development"
	CodeBlocks      int      // fenced code blocks
	ErrorIndicators int      // occurrences of error-indicator phrases
	Length          int      // flattened transcript length in bytes
}

// detector maps one detectable item to the indicator strings that mark it.
type detector struct {
	name       string
	indicators []string
}

// Indicator tables follow the conventions each ecosystem actually leaves in
// a session log: file extensions, import syntax, CLI invocations.

var languageDetectors = []detector{
	{"python", []string{".py", "def ", "import ", "pip install", "pytest"}},
	{"javascript", []string{".js", ".ts", ".jsx", ".tsx", "const ", "npm ", "node "}},
	{"java", []string{".java", "public class", "import java", "maven", "gradle"}},
	{"c++", []string{".cpp", ".hpp", "#include", "std::", "cmake"}},
	{"rust", []string{".rs", "fn ", "cargo ", "impl ", "let mut"}},
	{"go", []string{".go", "func ", "package ", "go mod", "goroutine"}},
	{"html", []string{".html", "<html", "<div", "<script"}},
	{"css", []string{".css", "display:", "margin:", "flexbox"}},
	{"sql", []string{".sql", "select ", " from ", "insert into", "create table"}},
	{"shell", []string{".sh", "#!/bin/bash", "chmod ", "mkdir "}},
}

var frameworkDetectors = []detector{
	{"react", []string{"react", "usestate", "useeffect", "jsx"}},
	{"vue", []string{"vue", "v-model", "@click"}},
	{"angular", []string{"angular", "@component", "@injectable"}},
	{"flask", []string{"flask", "@app.route", "render_template"}},
	{"django", []string{"django", "models.py", "views.py", "urls.py"}},
	{"express", []string{"express", "app.get(", "app.post(", "middleware"}},
	{"spring", []string{"spring", "@controller", "@autowired"}},
	{"tensorflow", []string{"tensorflow", "keras", "model.fit"}},
	{"pytorch", []string{"pytorch", "torch", "nn.module"}},
	{"pandas", []string{"pandas", "dataframe", "pd.read"}},
	{"numpy", []string{"numpy", "np.array", "ndarray"}},
}

var toolDetectors = []detector{
	{"git", []string{"git add", "git commit", "git push", "git pull", "git rebase"}},
	{"docker", []string{"docker", "dockerfile", "docker-compose"}},
	{"kubernetes", []string{"kubectl", "k8s", "deployment.yaml"}},
	{"aws", []string{"aws ", "ec2", "s3://", "lambda", "cloudformation"}},
	{"ci-cd", []string{"github actions", "jenkins", ".github/workflows", "ci.yml"}},
	{"testing", []string{"pytest", "jest", "unittest", "go test", "mocha"}},
	{"linting", []string{"eslint", "pylint", "flake8", "prettier", "golangci"}},
}

// Patterns are coarser than the other tables: a tag only fires when at
// least two distinct indicators appear, to keep a stray word from tagging
// the whole session.
var patternDetectors = []detector{
	{"api-development", []string{"api", "endpoint", "rest", "request", "response", "handler"}},
	{"database-work", []string{"database", "sql", "query", "migration", "schema"}},
	{"frontend-work", []string{"frontend", "component", "styling", "responsive", "layout"}},
	{"backend-work", []string{"backend", "server", "middleware", "route", "service"}},
	{"testing", []string{"test", "coverage", "assertion", "mock", "fixture"}},
	{"data-analysis", []string{"dataset", "analysis", "visualization", "statistics"}},
	{"machine-learning", []string{"model", "training", "prediction", "inference", "embedding"}},
	{"devops", []string{"deployment", "infrastructure", "monitoring", "scaling", "pipeline"}},
	{"security-sensitive", []string{"authentication", "authorization", "password", "token", "encryption", "secret"}},
}

var errorIndicators = []string{
	"traceback",
	"error:",
	"exception",
	"panic:",
	"stack trace",
	"syntax error",
	"segmentation fault",
}

// Extract computes the feature summary for a transcript. Pure function:
// the same transcript always yields the same summary, and empty input
// yields a zero summary rather than an error.
func Extract(t transcript.Transcript) Summary {
	text := t.Text()
	lower := strings.ToLower(text)

	sum := Summary{
		Languages:  detect(lower, languageDetectors, 1),
		Frameworks: detect(lower, frameworkDetectors, 1),
		Tools:      detect(lower, toolDetectors, 1),
		Patterns:   detect(lower, patternDetectors, 2),
		CodeBlocks: strings.Count(text, "```") / 2,
		Length:     len(text),
	}

	for _, phrase := range errorIndicators {
		sum.ErrorIndicators += strings.Count(lower, phrase)
	}

	return sum
}

// detect returns the names whose indicator count reaches minHits, ordered
// by the first occurrence of any of their indicators in the text.
func detect(lower string, detectors []detector, minHits int) []string {
	type hit struct {
		name  string
		first int
		order int
	}

	var hits []hit
	for i, d := range detectors {
		count := 0
		first := -1
		for _, ind := range d.indicators {
			idx := strings.Index(lower, ind)
			if idx == -1 {
				continue
			}
			count++
			if first == -1 || idx < first {
				first = idx
			}
		}
		if count >= minHits {
			hits = append(hits, hit{name: d.name, first: first, order: i})
		}
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].first != hits[b].first {
			return hits[a].first < hits[b].first
		}
		return hits[a].order < hits[b].order
	})

	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.name
	}
	return names
}

// HasSignals reports whether anything at all was detected. A summary with
// no signals short-circuits the decision gate to "no".
func (s Summary) HasSignals() bool {
	return len(s.Languages) > 0 ||
		len(s.Frameworks) > 0 ||
		len(s.Tools) > 0 ||
		len(s.Patterns) > 0 ||
		s.CodeBlocks > 0 ||
		s.ErrorIndicators > 0
}

// String renders the summary in the compact form used in prompts and logs.
func (s Summary) String() string {
	return fmt.Sprintf(
		"languages=%s frameworks=%s tools=%s patterns=%s code_blocks=%d error_indicators=%d length=%d",
		joinOrNone(s.Languages),
		joinOrNone(s.Frameworks),
		joinOrNone(s.Tools),
		joinOrNone(s.Patterns),
		s.CodeBlocks,
		s.ErrorIndicators,
		s.Length,
	)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ",")
}
