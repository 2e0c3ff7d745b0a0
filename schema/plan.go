package schema

import (
	"github.com/qiuethan/RT1M-sub001/jsonx"
	"github.com/qiuethan/RT1M-sub001/models"
)

// planEnvelope is the shape a plan completion must return. Identity and
// ownership fields are assigned by the service, not the model.
type planEnvelope struct {
	Title          string                 `json:"title" validate:"required,max=200"`
	Description    string                 `json:"description" validate:"required"`
	Timeframe      string                 `json:"timeframe" validate:"required"`
	Category       string                 `json:"category" validate:"required,oneof=investment savings debt income budget mixed"`
	Priority       string                 `json:"priority" validate:"required,oneof=high medium low"`
	Steps          []models.PlanStep      `json:"steps" validate:"required,min=1,max=10,dive"`
	Milestones     []models.PlanMilestone `json:"milestones" validate:"required,max=10,dive"`
	EstimatedCost  *float64               `json:"estimatedCost" validate:"omitempty,gte=0"`
	ExpectedReturn *float64               `json:"expectedReturn"`
	RiskLevel      string                 `json:"riskLevel" validate:"required,oneof=low medium high"`
	Prerequisites  []string               `json:"prerequisites"`
	Resources      []models.PlanResource  `json:"resources" validate:"dive"`
}

// ParsePlan decodes a plan completion under the closed plan shape.
func ParsePlan(raw []byte) (*models.Plan, error) {
	const op = "parse plan"
	var p planEnvelope
	if err := jsonx.UnmarshalStrict(raw, &p); err != nil {
		return nil, models.NewError(models.KindExtractionParse, op, err)
	}
	if err := Struct(op, &p); err != nil {
		return nil, asParse(err)
	}
	return &models.Plan{
		Title:          p.Title,
		Description:    p.Description,
		Timeframe:      p.Timeframe,
		Category:       p.Category,
		Priority:       p.Priority,
		Steps:          p.Steps,
		Milestones:     p.Milestones,
		EstimatedCost:  p.EstimatedCost,
		ExpectedReturn: p.ExpectedReturn,
		RiskLevel:      p.RiskLevel,
		Prerequisites:  p.Prerequisites,
		Resources:      p.Resources,
	}, nil
}
