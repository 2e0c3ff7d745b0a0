package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiuethan/RT1M-sub001/cache"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/usercontext"
)

func f(v float64) *float64 { return &v }

func populated() *usercontext.Snapshot {
	return &usercontext.Snapshot{
		UserID: "u1",
		Financials: &models.FinancialsDoc{
			FinancialInfo: &models.FinancialInfo{AnnualIncome: f(85000)},
			Debts:         []models.Debt{{ID: "d1", Name: "Visa", Type: models.DebtCreditCard, Balance: 4000}},
		},
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "whats a 401k", Normalize("  What's a 401(k)?  "))
	assert.Equal(t, "roth vs traditional", Normalize("Roth vs. Traditional"))
	assert.Equal(t, "50 30 20 rule", Normalize("50/30/20   rule"))
}

func TestRouteGenericFAQ(t *testing.T) {
	r := New()
	d := r.Route(context.Background(), "What is a 401k?", populated())
	assert.Equal(t, models.SourceCache, d.ResponseSource)
	assert.False(t, d.UsedUserData)
	assert.Equal(t, models.MessageGeneric, d.MessageType)
	assert.Contains(t, d.CachedAnswer, "401(k)")
	assert.Greater(t, d.EstimatedTokensSaved, 0)
}

func TestRouteFuzzyFAQ(t *testing.T) {
	d := New().Route(context.Background(), "Can you explain compound interest please", nil)
	assert.Equal(t, models.SourceCache, d.ResponseSource)
	assert.Contains(t, d.CachedAnswer, "Compound interest")
}

func TestRoutePersonalWithProfile(t *testing.T) {
	d := New().Route(context.Background(), "Should I pay off my debt or invest?", populated())
	assert.Equal(t, models.SourcePrompt, d.ResponseSource)
	assert.True(t, d.UsedUserData)
	assert.Equal(t, models.MessagePersonalized, d.MessageType)
	assert.Zero(t, d.EstimatedTokensSaved)
}

func TestRouteCurrencyAmountIsPersonal(t *testing.T) {
	d := New().Route(context.Background(), "I have $12,000 sitting in a TFSA", nil)
	assert.Equal(t, models.SourcePrompt, d.ResponseSource)
}

func TestRouteWeakPersonalDependsOnData(t *testing.T) {
	r := New()
	msg := "Should I buy or rent a house?"
	assert.Equal(t, models.SourceGeneral, r.Route(context.Background(), msg, nil).ResponseSource)
	assert.Equal(t, models.SourceGeneral, r.Route(context.Background(), msg, &usercontext.Snapshot{UserID: "u1"}).ResponseSource)
	assert.Equal(t, models.SourcePrompt, r.Route(context.Background(), msg, populated()).ResponseSource)
}

func TestRouteDefinitionalGoesGeneral(t *testing.T) {
	d := New().Route(context.Background(), "How does a mortgage amortization schedule work?", populated())
	assert.Equal(t, models.SourceGeneral, d.ResponseSource)
	assert.False(t, d.UsedUserData)
	assert.Equal(t, "definitional phrasing", d.Reason)
}

func TestRouteIsStateless(t *testing.T) {
	r := New()
	ctx := context.Background()
	first := r.Route(ctx, "Can I afford a $400k condo on my salary?", populated())
	second := r.Route(ctx, "What is an ETF?", populated())
	assert.Equal(t, models.SourcePrompt, first.ResponseSource)
	assert.Equal(t, models.SourceCache, second.ResponseSource)
}

func TestRememberFeedsAnswerCache(t *testing.T) {
	answers, err := cache.New(0, 0, nil)
	require.NoError(t, err)
	defer answers.Close()
	r := New(WithAnswerCache(answers))
	ctx := context.Background()
	msg := "How does a mortgage amortization schedule work?"

	require.Equal(t, models.SourceGeneral, r.Route(ctx, msg, nil).ResponseSource)
	r.Remember(ctx, msg, "Each payment covers interest first.")

	d := r.Route(ctx, "how does a mortgage amortization schedule work", nil)
	assert.Equal(t, models.SourceCache, d.ResponseSource)
	assert.Equal(t, "Each payment covers interest first.", d.CachedAnswer)
}

type fakeEmbedder struct{ err error }

func (e fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeIndex struct {
	answer string
	puts   int
}

func (i *fakeIndex) Nearest(context.Context, []float32, float32) (string, float32, bool, error) {
	if i.answer == "" {
		return "", 0, false, nil
	}
	return i.answer, 0.95, true, nil
}

func (i *fakeIndex) Put(_ context.Context, _, answer string, _ []float32) error {
	i.puts++
	i.answer = answer
	return nil
}

func TestSemanticCache(t *testing.T) {
	idx := &fakeIndex{}
	r := New(WithSemanticCache(fakeEmbedder{}, idx, 0.9))
	ctx := context.Background()
	msg := "Is renting a waste of money?"

	assert.Equal(t, models.SourceGeneral, r.Route(ctx, msg, nil).ResponseSource)
	r.Remember(ctx, msg, "Not necessarily.")
	assert.Equal(t, 1, idx.puts)

	d := r.Route(ctx, "Is renting really a waste of money", nil)
	assert.Equal(t, models.SourceCache, d.ResponseSource)
	assert.Equal(t, "semantic cache", d.Reason)

	personal := r.Route(ctx, "Is renting a waste of money for me?", nil)
	assert.Equal(t, models.SourcePrompt, personal.ResponseSource)
}

func TestSemanticCacheEmbedFailureFallsThrough(t *testing.T) {
	r := New(WithSemanticCache(fakeEmbedder{err: errors.New("quota")}, &fakeIndex{answer: "x"}, 0))
	d := r.Route(context.Background(), "Is renting a waste of money?", nil)
	assert.Equal(t, models.SourceGeneral, d.ResponseSource)
}
