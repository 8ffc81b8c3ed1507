package substitute

// Logger receives the per-rule diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
}

// Substituter is the post-format hook. It holds the configured rules and
// reports non-zero counts to Logger at debug level.
type Substituter struct {
	Rules  []Rule
	Logger Logger
}

// NewSubstituter returns a hook for rules. A nil logger disables diagnostics.
func NewSubstituter(rules []Rule, logger Logger) *Substituter {
	return &Substituter{Rules: rules, Logger: logger}
}

// Rewrite applies the rules to the content of file and returns the new text
// with its tally. file only identifies the source in log lines.
func (s *Substituter) Rewrite(file, text string) (string, Tally) {
	out, tally, results := Apply(text, s.Rules)
	if s.Logger == nil {
		return out, tally
	}

	for _, r := range results {
		if r.Count == 0 {
			continue
		}
		s.Logger.Debug("Replacing %s with %s, %d time(s) on file %s", r.Pattern, r.Replacement, r.Count, file)
	}
	return out, tally
}
