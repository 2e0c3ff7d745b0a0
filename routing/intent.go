package routing

import (
	"regexp"
	"strings"
)

// Phrases are matched on word boundaries of the normalized message.
var (
	strongPersonal = []string{
		"my", "mine", "am i", "can i afford", "could i afford", "i have", "ive got", "i make", "i earn",
		"i owe", "i own", "i am", "im", "i saved", "i spend", "i pay", "i want to", "i need to",
		"i work", "i live", "i got", "i just", "based on my", "for me", "our", "we have", "we make",
		"we owe", "me and my", "help me plan", "on track",
	}
	weakPersonal = []string{
		"should i", "do i need", "how much should i", "what should i", "is it worth", "when should i",
		"can i", "how long will it take", "how do i reach",
	}
	definitional = []string{
		"what is", "what are", "whats", "how does", "how do", "explain", "define", "definition of",
		"difference between", "meaning of", "tell me about", "pros and cons", "why is", "why do people",
		"vs", "versus",
	}
)

var firstPersonAmount = regexp.MustCompile(`(?i)\b(i|i'm|im|we|my|our)\b[^.?!]*(\$\s?\d|\d[\d,]*(\.\d+)?\s?(k|m|dollars|bucks)\b)`)

type intent int

const (
	intentUnclear intent = iota
	intentDefinitional
	intentWeakPersonal
	intentPersonal
)

func hasPhrase(norm string, phrases []string) bool {
	padded := " " + norm + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

// classify reads raw for currency amounts and norm for phrasing.
func classify(raw, norm string) intent {
	if firstPersonAmount.MatchString(raw) || hasPhrase(norm, strongPersonal) {
		return intentPersonal
	}
	if hasPhrase(norm, weakPersonal) {
		return intentWeakPersonal
	}
	if hasPhrase(norm, definitional) {
		return intentDefinitional
	}
	return intentUnclear
}
