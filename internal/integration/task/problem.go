package task

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ErrUnknownMatcher is returned when a task names an unregistered matcher.
var ErrUnknownMatcher = errors.New("unknown problem matcher")

// ProblemSeverity indicates the severity of a problem.
type ProblemSeverity string

const (
	// ProblemSeverityError is an error.
	ProblemSeverityError ProblemSeverity = "error"
	// ProblemSeverityWarning is a warning.
	ProblemSeverityWarning ProblemSeverity = "warning"
	// ProblemSeverityInfo is informational.
	ProblemSeverityInfo ProblemSeverity = "info"
)

// Problem is a diagnostic extracted from tool output.
type Problem struct {
	File     string
	Line     int
	Column   int
	Severity ProblemSeverity
	Code     string
	Message  string
	// Source is the tool that reported the problem.
	Source string
}

// String formats the problem as "file:line:col message".
func (p Problem) String() string {
	var b strings.Builder
	b.WriteString(p.File)
	if p.Line > 0 {
		fmt.Fprintf(&b, ":%d", p.Line)
		if p.Column > 0 {
			fmt.Fprintf(&b, ":%d", p.Column)
		}
	}
	if p.Message != "" {
		b.WriteByte(' ')
		b.WriteString(p.Message)
	}
	if p.Code != "" {
		fmt.Fprintf(&b, " (%s)", p.Code)
	}
	return b.String()
}

// ProblemPattern maps regex capture groups to problem fields.
// Group indexes are 1-based; zero skips the field.
type ProblemPattern struct {
	Pattern  string
	File     int
	Line     int
	Column   int
	Severity int
	Code     int
	Message  int

	// DefaultSeverity is used when Severity is zero.
	DefaultSeverity ProblemSeverity
}

// ProblemMatcherDefinition defines a named problem matcher.
type ProblemMatcherDefinition struct {
	// Name is the matcher name, conventionally starting with "$".
	Name string

	// Owner identifies the tool.
	Owner string

	// Patterns are tried in order; the first match wins.
	Patterns []ProblemPattern
}

// CompiledMatcher is a compiled problem matcher ready for use.
type CompiledMatcher struct {
	def      ProblemMatcherDefinition
	patterns []*compiledPattern
}

type compiledPattern struct {
	regex   *regexp.Regexp
	pattern ProblemPattern
}

// Match attempts to extract a problem from line.
func (m *CompiledMatcher) Match(line string) (Problem, bool) {
	for _, p := range m.patterns {
		matches := p.regex.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		group := func(i int) string {
			if i > 0 && i < len(matches) {
				return matches[i]
			}
			return ""
		}
		number := func(i int) int {
			n, _ := strconv.Atoi(group(i))
			return n
		}

		problem := Problem{
			File:    strings.TrimSpace(group(p.pattern.File)),
			Line:    number(p.pattern.Line),
			Column:  number(p.pattern.Column),
			Code:    group(p.pattern.Code),
			Message: strings.TrimSpace(group(p.pattern.Message)),
			Source:  m.def.Owner,
		}
		if s := group(p.pattern.Severity); s != "" {
			problem.Severity = parseSeverity(s)
		} else {
			problem.Severity = p.pattern.DefaultSeverity
			if problem.Severity == "" {
				problem.Severity = ProblemSeverityError
			}
		}
		return problem, true
	}
	return Problem{}, false
}

func parseSeverity(s string) ProblemSeverity {
	switch strings.ToLower(s) {
	case "warning", "warn", "w":
		return ProblemSeverityWarning
	case "info", "note", "i":
		return ProblemSeverityInfo
	default:
		return ProblemSeverityError
	}
}

// ProblemMatcher is a registry of named problem matchers.
type ProblemMatcher struct {
	mu       sync.RWMutex
	matchers map[string]*CompiledMatcher
}

// NewProblemMatcher creates a registry holding the built-in matchers.
func NewProblemMatcher() *ProblemMatcher {
	pm := &ProblemMatcher{matchers: make(map[string]*CompiledMatcher)}
	for _, def := range builtinMatchers {
		if err := pm.Register(def); err != nil {
			panic(err)
		}
	}
	return pm
}

// Register compiles and registers a matcher definition, replacing any
// matcher with the same name.
func (pm *ProblemMatcher) Register(def ProblemMatcherDefinition) error {
	compiled := &CompiledMatcher{
		def:      def,
		patterns: make([]*compiledPattern, 0, len(def.Patterns)),
	}
	for _, p := range def.Patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return fmt.Errorf("matcher %s: %w", def.Name, err)
		}
		compiled.patterns = append(compiled.patterns, &compiledPattern{regex: re, pattern: p})
	}

	pm.mu.Lock()
	pm.matchers[def.Name] = compiled
	pm.mu.Unlock()
	return nil
}

// GetMatcher returns a compiled matcher by name, or nil.
func (pm *ProblemMatcher) GetMatcher(name string) *CompiledMatcher {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.matchers[name]
}

// ListMatchers returns the registered matcher names in lexical order.
func (pm *ProblemMatcher) ListMatchers() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	names := make([]string, 0, len(pm.matchers))
	for name := range pm.matchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var builtinMatchers = []ProblemMatcherDefinition{
	{
		// jshint --reporter=unix: file:line:col: message
		Name:  "$jshint-unix",
		Owner: "jshint",
		Patterns: []ProblemPattern{{
			Pattern: `^(.+?):(\d+):(\d+): (.+)$`,
			File:    1,
			Line:    2,
			Column:  3,
			Message: 4,
		}},
	},
	{
		// jshint default reporter: file: line N, col M, message
		Name:  "$jshint-default",
		Owner: "jshint",
		Patterns: []ProblemPattern{{
			Pattern: `^(.+?): line (\d+), col (\d+), (.+)$`,
			File:    1,
			Line:    2,
			Column:  3,
			Message: 4,
		}},
	},
	{
		// eslint --format compact: file: line N, col M, Error - message (rule)
		Name:  "$eslint-compact",
		Owner: "eslint",
		Patterns: []ProblemPattern{{
			Pattern:  `^(.+?): line (\d+), col (\d+), (Error|Warning) - (.+?)(?: \(([\w/@-]+)\))?$`,
			File:     1,
			Line:     2,
			Column:   3,
			Severity: 4,
			Message:  5,
			Code:     6,
		}},
	},
	{
		// tsc: file(line,col): error TS1234: message
		Name:  "$tsc",
		Owner: "typescript",
		Patterns: []ProblemPattern{{
			Pattern:  `^(.+)\((\d+),(\d+)\):\s*(error|warning)\s+(\w+):\s*(.+)$`,
			File:     1,
			Line:     2,
			Column:   3,
			Severity: 4,
			Code:     5,
			Message:  6,
		}},
	},
	{
		// Anything shaped like file:line: message
		Name:  "$generic",
		Owner: "generic",
		Patterns: []ProblemPattern{{
			Pattern: `^(.+?):(\d+):\s*(.+)$`,
			File:    1,
			Line:    2,
			Message: 3,
		}},
	},
}
