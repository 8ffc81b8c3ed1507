package task

import (
	"regexp"
	"strconv"
)

// SpecSummary is the result line printed by a spec runner.
type SpecSummary struct {
	Specs      int
	Assertions int
	Failures   int
	Skipped    int
}

var (
	// jasmine-node: "3 tests, 7 assertions, 1 failure, 0 skipped"
	testsSummary = regexp.MustCompile(`(\d+) tests?, (\d+) assertions?, (\d+) failures?(?:, (\d+) skipped)?`)
	// jasmine: "12 specs, 0 failures" with optional ", 2 pending specs"
	specsSummary = regexp.MustCompile(`(\d+) specs?, (\d+) failures?(?:, (\d+) pending specs?)?`)
)

// ParseSpecSummary finds the last summary line in spec runner output.
// It reports false when output holds no recognizable summary.
func ParseSpecSummary(output string) (SpecSummary, bool) {
	var (
		best    SpecSummary
		bestPos = -1
	)

	for _, m := range testsSummary.FindAllStringSubmatchIndex(output, -1) {
		if m[0] > bestPos {
			bestPos = m[0]
			best = SpecSummary{
				Specs:      atoiGroup(output, m, 1),
				Assertions: atoiGroup(output, m, 2),
				Failures:   atoiGroup(output, m, 3),
				Skipped:    atoiGroup(output, m, 4),
			}
		}
	}
	for _, m := range specsSummary.FindAllStringSubmatchIndex(output, -1) {
		if m[0] > bestPos {
			bestPos = m[0]
			best = SpecSummary{
				Specs:    atoiGroup(output, m, 1),
				Failures: atoiGroup(output, m, 2),
				Skipped:  atoiGroup(output, m, 3),
			}
		}
	}
	return best, bestPos >= 0
}

func atoiGroup(s string, m []int, group int) int {
	start, end := m[2*group], m[2*group+1]
	if start < 0 {
		return 0
	}
	n, _ := strconv.Atoi(s[start:end])
	return n
}
