// Package planner generates and stores a financial plan for one goal.
package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/jsonx"
	"github.com/qiuethan/RT1M-sub001/llm"
	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/schema"
	"github.com/qiuethan/RT1M-sub001/store"
	"github.com/qiuethan/RT1M-sub001/usercontext"
)

const planPrompt = `You are a financial planning assistant.

Using the user's profile and goal details below, generate a detailed and realistic plan.
Respond ONLY with a JSON object with exactly these keys:
{"title","description","timeframe","category","priority","steps","milestones","estimatedCost","expectedReturn",
 "riskLevel","prerequisites","resources"}
- category: one of "investment","savings","debt","income","budget","mixed"
- priority and riskLevel: one of "high","medium","low" / "low","medium","high"
- steps: 1 to 10 items {"id","title","description","order","timeframe","completed","dueDate","cost","resources"}
- milestones: at most 10 items {"id","title","description","targetAmount","targetDate","completed","completedDate"}
- resources: items {"type":"link"|"document"|"tool"|"contact","title","url","description"}
- dates are YYYY-MM-DD, amounts are non-negative numbers, "completed" is false for new items.
Base every number on the profile; do not invent income or savings the profile does not show.`

type Generator struct {
	llm     llm.Completer
	model   string
	timeout time.Duration
	gw      store.Gateway
	loader  *usercontext.Loader
	now     func() time.Time
}

func New(c llm.Completer, model string, timeout time.Duration, gw store.Gateway) *Generator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Generator{
		llm:     c,
		model:   model,
		timeout: timeout,
		gw:      gw,
		loader:  usercontext.NewLoader(gw),
		now:     time.Now,
	}
}

// Generate builds a plan for goalID, or for the profile's overall financial
// goal when goalID is empty, and stores it in the plans collection.
func (g *Generator) Generate(ctx context.Context, uid, goalID string) (*models.Plan, error) {
	const op = "generate plan"
	snap, err := g.loader.Load(ctx, uid)
	if err != nil {
		return nil, err
	}
	goal, err := goalDetails(snap, goalID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()
	raw, err := g.llm.Complete(ctx, llm.CompletionRequest{
		Model:       g.model,
		Temperature: 0.4,
		JSON:        true,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: planPrompt},
			{Role: llm.RoleUser, Content: "User Profile:\n" + snap.Summary() + "\n\nGoal:\n" + goal},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("plan completion failed: %w", err)
	}
	text := strings.TrimSpace(raw)
	if obj, ok := jsonx.ExtractObject(text); ok {
		text = obj
	}
	plan, err := schema.ParsePlan([]byte(text))
	if err != nil {
		logger.Get().Warn("plan output rejected", zap.String("user_id", uid), zap.Error(err))
		return nil, err
	}

	plan.ID = uuid.NewString()
	plan.UserID = uid
	plan.GoalID = goalID
	plan.CreatedAt = g.now().UTC()
	if err := g.gw.Save(ctx, store.Ref{Collection: store.PlansCollection, ID: plan.ID}, plan, false); err != nil {
		return nil, models.NewError(models.KindPersistence, op, err)
	}
	logger.Get().Info("plan generated",
		zap.String("user_id", uid),
		zap.String("plan_id", plan.ID),
		zap.Int("steps", len(plan.Steps)),
		zap.Int("milestones", len(plan.Milestones)))
	return plan, nil
}

func goalDetails(snap *usercontext.Snapshot, goalID string) (string, error) {
	if goalID == "" {
		if fg := snap.Profile; fg != nil && !fg.FinancialGoal.IsZero() {
			return jsonx.MarshalToString(fg.FinancialGoal)
		}
		return "", models.Errorf(models.KindValidation, "generate plan", "goalId is required when no financial goal is set")
	}
	if snap.Goals != nil {
		for _, goal := range snap.Goals.IntermediateGoals {
			if goal.ID == goalID {
				return jsonx.MarshalToString(goal)
			}
		}
	}
	return "", models.NewError(models.KindNotFound, "generate plan", fmt.Errorf("goal %s: %w", goalID, models.ErrNotFound))
}
