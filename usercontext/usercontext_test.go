package usercontext

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/store"
)

func f(v float64) *float64 { return &v }

func TestLoadMissingDocumentsStayAbsent(t *testing.T) {
	gw := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, gw.Save(ctx, store.UserRef(store.FinancialsCollection, "u1"), models.FinancialsDoc{
		FinancialInfo: &models.FinancialInfo{AnnualIncome: f(85000)},
		Assets:        []models.Asset{},
	}, false))

	snap, err := NewLoader(gw).Load(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, snap.Profile)
	assert.Nil(t, snap.Goals)
	require.NotNil(t, snap.Financials)
	assert.Equal(t, int64(1), snap.Revision(store.FinancialsCollection))
	assert.Equal(t, int64(0), snap.Revision(store.GoalsCollection))

	c := snap.Completeness()
	assert.Equal(t, models.Populated, c[KeyFinancialInfo])
	assert.Equal(t, models.Empty, c[KeyAssets])
	assert.Equal(t, models.Absent, c[KeyDebts])
	assert.Equal(t, models.Absent, c[KeyGoals])
}

func TestLoadRequiresUser(t *testing.T) {
	_, err := NewLoader(store.NewMemory()).Load(context.Background(), "")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindAuth))
}

func TestSummaryDistinguishesMissingFromEmpty(t *testing.T) {
	snap := &Snapshot{
		UserID: "u1",
		Financials: &models.FinancialsDoc{
			FinancialInfo: &models.FinancialInfo{AnnualIncome: f(85000), CurrentSavings: f(0)},
			Assets:        []models.Asset{{ID: "a1", Name: "TFSA", Type: models.AssetSavings, Value: 10000}},
			Debts:         []models.Debt{},
		},
	}
	out := snap.Summary()

	assert.Contains(t, out, "- Annual income: $85,000")
	assert.Contains(t, out, "- Annual expenses: not yet provided")
	assert.Contains(t, out, "- Current savings: $0")
	assert.Contains(t, out, "- [id:a1] TFSA (savings): $10,000")
	assert.Contains(t, out, "DEBTS:\n- none (confirmed)")
	assert.Contains(t, out, "CURRENT GOALS:\n- not yet provided")
	assert.Contains(t, out, "- Net worth: $10,000")
}

func TestSummarySectionOrderIsFixed(t *testing.T) {
	out := (&Snapshot{UserID: "u1"}).Summary()
	headings := []string{
		"PERSONAL INFORMATION:", "BACKGROUND:", "FINANCIAL INFORMATION:", "NET WORTH:",
		"ASSETS:", "DEBTS:", "FINANCIAL GOAL:", "CURRENT GOALS:", "SKILLS & INTERESTS:",
	}
	last := -1
	for _, h := range headings {
		idx := strings.Index(out, h)
		require.GreaterOrEqual(t, idx, 0, h)
		assert.Greater(t, idx, last, h)
		last = idx
	}
	assert.NotContains(t, out, "$0")
}

func TestReady(t *testing.T) {
	age := 30
	snap := &Snapshot{
		Profile: &models.ProfileDoc{BasicInfo: &models.BasicInfo{Name: "Ana", Age: &age}},
		Financials: &models.FinancialsDoc{
			FinancialInfo: &models.FinancialInfo{AnnualIncome: f(60000)},
		},
	}
	assert.False(t, snap.Ready())

	snap.Goals = &models.GoalsDoc{IntermediateGoals: []models.Goal{{ID: "g1", Title: "Emergency fund"}}}
	assert.True(t, snap.Ready())
	assert.True(t, snap.HasFinancialData())
}

func TestPlanSuggestionPolicy(t *testing.T) {
	p := PlanSuggestionPolicy{Probability: 0.3, Rand: func() float64 { return 0.1 }}
	assert.True(t, p.Suggest(true))
	assert.False(t, p.Suggest(false))

	p.Rand = func() float64 { return 0.5 }
	assert.False(t, p.Suggest(true))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$1,234.5", Money(1234.5))
	assert.Equal(t, "-$200", Money(-200))
	a, d := Totals([]models.Asset{{Value: 0.1}, {Value: 0.2}}, []models.Debt{{Balance: 5}})
	assert.Equal(t, 0.3, a)
	assert.Equal(t, 5.0, d)
}
