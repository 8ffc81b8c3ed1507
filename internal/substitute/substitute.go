// Package substitute rewrites text with an ordered list of pattern rules and
// reports how many replacements each rule made.
//
// It runs as a post-processing hook after the formatter rewrites a source
// file. The formatter leaves "!! foo" in places where the project style
// wants "!!foo"; the default rule removes that single space.
package substitute

import (
	"fmt"
	"regexp"
)

// Rule replaces every match of Pattern with the literal Replacement token.
type Rule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// NewRule compiles pattern into a Rule.
func NewRule(pattern, replacement string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return Rule{Pattern: re, Replacement: replacement}, nil
}

// MustRule is like NewRule but panics on an invalid pattern.
func MustRule(pattern, replacement string) Rule {
	r, err := NewRule(pattern, replacement)
	if err != nil {
		panic(err)
	}
	return r
}

// DoubleBangRule strips exactly one whitespace character after "!!".
// Longer runs keep all but the first character.
func DoubleBangRule() Rule {
	return MustRule(`!!\s`, "!!")
}

// Tally maps a replacement token to the number of substitutions made with it
// during one call. Rules sharing a token share an entry.
type Tally map[string]int

// Total returns the sum of all counts.
func (t Tally) Total() int {
	n := 0
	for _, c := range t {
		n += c
	}
	return n
}

// Add folds other into t.
func (t Tally) Add(other Tally) {
	for k, v := range other {
		t[k] += v
	}
}

// Result is the outcome of a single rule.
type Result struct {
	Pattern     string
	Replacement string
	Count       int
}

// Apply runs rules over text in order. Each rule sees the output of the
// rules before it and replaces all leftmost non-overlapping matches.
func Apply(text string, rules []Rule) (string, Tally, []Result) {
	tally := make(Tally, len(rules))
	results := make([]Result, 0, len(rules))

	for _, rule := range rules {
		token := rule.Replacement
		if _, ok := tally[token]; !ok {
			tally[token] = 0
		}
		if rule.Pattern == nil {
			results = append(results, Result{Replacement: token})
			continue
		}

		count := 0
		text = rule.Pattern.ReplaceAllStringFunc(text, func(string) string {
			count++
			return token
		})

		tally[token] += count
		results = append(results, Result{
			Pattern:     rule.Pattern.String(),
			Replacement: token,
			Count:       count,
		})
	}

	return text, tally, results
}
