package usercontext

import "math/rand/v2"

// PlanSuggestionPolicy decides whether a turn's response offers plan
// generation. Rand defaults to math/rand; tests pin it.
type PlanSuggestionPolicy struct {
	Probability float64
	Rand        func() float64
}

func (p PlanSuggestionPolicy) Suggest(ready bool) bool {
	if !ready || p.Probability <= 0 {
		return false
	}
	r := p.Rand
	if r == nil {
		r = rand.Float64
	}
	return r() < p.Probability
}
