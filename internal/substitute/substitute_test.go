package substitute

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_DoubleBang(t *testing.T) {
	rules := []Rule{DoubleBangRule()}

	tests := []struct {
		name  string
		input string
		want  string
		count int
	}{
		{"single space removed", "a !! b", "a !!b", 1},
		{"already tight", "a !!b", "a !!b", 0},
		{"two occurrences", "!! foo !!  bar", "!!foo !! bar", 2},
		{"newline counts as whitespace", "x = !!\ny", "x = !!y", 1},
		{"empty", "", "", 0},
		{"no bangs", "return value;", "return value;", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tally, results := Apply(tt.input, rules)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, Tally{"!!": tt.count}, tally)
			require.Len(t, results, 1)
			assert.Equal(t, `!!\s`, results[0].Pattern)
			assert.Equal(t, tt.count, results[0].Count)
		})
	}
}

func TestApply_Deterministic(t *testing.T) {
	rules := []Rule{DoubleBangRule(), MustRule(`\t`, "  ")}
	input := "if (!! a) {\n\treturn !! b;\n}"

	out1, tally1, _ := Apply(input, rules)
	out2, tally2, _ := Apply(input, rules)

	assert.Equal(t, out1, out2)
	assert.Equal(t, tally1, tally2)
}

func TestApply_OrderedRules(t *testing.T) {
	// The second rule only matches text produced by the first.
	rules := []Rule{
		MustRule(`not not `, "!! "),
		DoubleBangRule(),
	}

	got, tally, results := Apply("x = not not y", rules)

	assert.Equal(t, "x = !!y", got)
	assert.Equal(t, 1, tally["!! "])
	assert.Equal(t, 1, tally["!!"])
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[1].Count)
}

func TestApply_SharedToken(t *testing.T) {
	rules := []Rule{
		MustRule(`a`, "x"),
		MustRule(`b`, "x"),
	}

	got, tally, _ := Apply("aabb", rules)

	assert.Equal(t, "xxxx", got)
	assert.Equal(t, Tally{"x": 4}, tally)
}

func TestApply_EmptyInputAllZero(t *testing.T) {
	rules := []Rule{DoubleBangRule(), MustRule(`\s+$`, "")}

	got, tally, _ := Apply("", rules)

	assert.Empty(t, got)
	assert.Equal(t, Tally{"!!": 0, "": 0}, tally)
	assert.Zero(t, tally.Total())
}

func TestApply_ReplacementIsLiteral(t *testing.T) {
	got, tally, _ := Apply("abc", []Rule{MustRule(`(b)`, "$1$1")})

	assert.Equal(t, "a$1$1c", got)
	assert.Equal(t, 1, tally["$1$1"])
}

func TestNewRule_InvalidPattern(t *testing.T) {
	_, err := NewRule(`!!(`, "!!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `!!(`)
}

func TestTally_Add(t *testing.T) {
	total := Tally{}
	total.Add(Tally{"!!": 2})
	total.Add(Tally{"!!": 1, "x": 0})

	assert.Equal(t, Tally{"!!": 3, "x": 0}, total)
	assert.Equal(t, 3, total.Total())
}

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Debug(msg string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(msg, args...))
}

func TestSubstituter_LogsOnlyNonZero(t *testing.T) {
	log := &recordingLogger{}
	s := NewSubstituter([]Rule{DoubleBangRule(), MustRule(`zzz`, "y")}, log)

	out, tally := s.Rewrite("src/app.js", "var ok = !! flag;")

	assert.Equal(t, "var ok = !!flag;", out)
	assert.Equal(t, Tally{"!!": 1, "y": 0}, tally)
	require.Len(t, log.lines, 1)
	assert.Equal(t, `Replacing !!\s with !!, 1 time(s) on file src/app.js`, log.lines[0])
}

func TestSubstituter_NilLogger(t *testing.T) {
	s := NewSubstituter([]Rule{DoubleBangRule()}, nil)

	out, tally := s.Rewrite("a.js", "!! a")

	assert.Equal(t, "!!a", out)
	assert.Equal(t, 1, tally["!!"])
}
