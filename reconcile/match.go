package reconcile

import (
	"fmt"
	"strconv"
	"strings"
)

// GoalMatcher decides whether a candidate goal title duplicates an existing one.
type GoalMatcher interface {
	Match(existing, candidate string) bool
}

// SubstringMatcher treats titles as duplicates when either contains the
// other, ignoring case. It over-merges titles that merely share a phrase.
type SubstringMatcher struct{}

func (SubstringMatcher) Match(existing, candidate string) bool {
	a, b := normalize(existing), normalize(candidate)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// ExactMatcher only merges titles that are equal after normalization.
type ExactMatcher struct{}

func (ExactMatcher) Match(existing, candidate string) bool {
	a := normalize(existing)
	return a != "" && a == normalize(candidate)
}

// TokenMatcher merges titles whose word sets overlap by at least Threshold
// (Jaccard similarity).
type TokenMatcher struct {
	Threshold float64
}

func (m TokenMatcher) Match(existing, candidate string) bool {
	a, b := tokens(existing), tokens(candidate)
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter)/float64(union) >= m.Threshold
}

// ParseGoalMatchPolicy maps a configuration value to a matcher:
// "substring", "exact" or "token:<threshold>".
func ParseGoalMatchPolicy(policy string) (GoalMatcher, error) {
	p := strings.ToLower(strings.TrimSpace(policy))
	switch {
	case p == "" || p == "substring":
		return SubstringMatcher{}, nil
	case p == "exact":
		return ExactMatcher{}, nil
	case strings.HasPrefix(p, "token"):
		threshold := 0.6
		if _, v, ok := strings.Cut(p, ":"); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f <= 0 || f > 1 {
				return nil, fmt.Errorf("invalid token threshold %q", v)
			}
			threshold = f
		}
		return TokenMatcher{Threshold: threshold}, nil
	}
	return nil, fmt.Errorf("unknown goal match policy %q", policy)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func tokens(s string) map[string]bool {
	out := map[string]bool{}
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		out[f] = true
	}
	return out
}
