package routing

import (
	"strings"
	"unicode"
)

// Normalize lower-cases, trims, drops punctuation and collapses whitespace.
// "What's a 401(k)?" becomes "whats a 401k".
func Normalize(message string) string {
	var b strings.Builder
	b.Grow(len(message))
	for _, r := range strings.ToLower(message) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '/' || r == '-':
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "what": true, "whats": true,
	"how": true, "does": true, "do": true, "can": true, "you": true, "me": true, "tell": true,
	"about": true, "explain": true, "please": true, "of": true, "to": true, "work": true,
	"works": true, "mean": true, "means": true, "define": true, "definition": true,
}

// keywords returns the content words of a normalized message.
func keywords(norm string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(norm) {
		if !stopwords[w] {
			out[w] = true
		}
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// EstimateTokens approximates a token count at four characters per token.
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}
