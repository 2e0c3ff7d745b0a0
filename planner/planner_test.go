package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiuethan/RT1M-sub001/llm"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/store"
)

type stub struct {
	out string
	err error
	req llm.CompletionRequest
}

func (s *stub) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	s.req = req
	return s.out, s.err
}

const validPlan = `{"title":"Emergency fund in 12 months","description":"Save steadily.","timeframe":"12 months",
"category":"savings","priority":"high","riskLevel":"low",
"steps":[{"id":"s1","title":"Open a HISA","description":"Pick a high-interest account","order":0,"timeframe":"week 1","completed":false}],
"milestones":[{"id":"m1","title":"Halfway","description":"10k saved","targetAmount":10000,"targetDate":"2027-04-01","completed":false}]}`

func seedGoal(t *testing.T, gw *store.Memory) {
	t.Helper()
	require.NoError(t, gw.Save(context.Background(), store.UserRef(store.GoalsCollection, "u1"), models.GoalsDoc{
		IntermediateGoals: []models.Goal{{ID: "g1", Title: "Emergency fund", Type: models.GoalFinancial, Status: models.StatusNotStarted}},
	}, false))
}

func TestGenerateStoresPlan(t *testing.T) {
	gw := store.NewMemory()
	seedGoal(t, gw)
	c := &stub{out: validPlan}

	plan, err := New(c, "gpt-4o", time.Second, gw).Generate(context.Background(), "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, "u1", plan.UserID)
	assert.Equal(t, "g1", plan.GoalID)
	assert.NotEmpty(t, plan.ID)
	assert.Contains(t, c.req.Messages[1].Content, "Emergency fund")
	assert.True(t, c.req.JSON)

	var stored models.Plan
	found, err := gw.Get(context.Background(), store.Ref{Collection: store.PlansCollection, ID: plan.ID}, &stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Emergency fund in 12 months", stored.Title)
	assert.Len(t, stored.Steps, 1)
}

func TestGenerateUnknownGoal(t *testing.T) {
	gw := store.NewMemory()
	seedGoal(t, gw)
	_, err := New(&stub{out: validPlan}, "m", time.Second, gw).Generate(context.Background(), "u1", "nope")
	assert.True(t, models.IsKind(err, models.KindNotFound))

	_, err = New(&stub{out: validPlan}, "m", time.Second, gw).Generate(context.Background(), "u1", "")
	assert.True(t, models.IsKind(err, models.KindValidation))
}

func TestGenerateRejectsOversizedPlan(t *testing.T) {
	gw := store.NewMemory()
	seedGoal(t, gw)
	steps := `[`
	for i := 0; i < 11; i++ {
		if i > 0 {
			steps += ","
		}
		steps += `{"id":"s","title":"t","description":"d","order":0,"timeframe":"w","completed":false}`
	}
	steps += `]`
	out := `{"title":"t","description":"d","timeframe":"1y","category":"savings","priority":"low","riskLevel":"low","steps":` + steps + `,"milestones":[]}`

	_, err := New(&stub{out: out}, "m", time.Second, gw).Generate(context.Background(), "u1", "g1")
	assert.True(t, models.IsKind(err, models.KindExtractionParse))
}

func TestGenerateModelFailure(t *testing.T) {
	gw := store.NewMemory()
	seedGoal(t, gw)
	_, err := New(&stub{err: errors.New("down")}, "m", time.Second, gw).Generate(context.Background(), "u1", "g1")
	assert.Error(t, err)
}
