package models

import "time"

type PlanStep struct {
	ID          string   `json:"id" bson:"id" validate:"required"`
	Title       string   `json:"title" bson:"title" validate:"required"`
	Description string   `json:"description" bson:"description"`
	Order       int      `json:"order" bson:"order" validate:"gte=0"`
	Timeframe   string   `json:"timeframe" bson:"timeframe"`
	Completed   bool     `json:"completed" bson:"completed"`
	DueDate     string   `json:"dueDate,omitempty" bson:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Cost        *float64 `json:"cost,omitempty" bson:"cost,omitempty" validate:"omitempty,gte=0"`
	Resources   []string `json:"resources,omitempty" bson:"resources,omitempty"`
}

type PlanMilestone struct {
	ID            string   `json:"id" bson:"id" validate:"required"`
	Title         string   `json:"title" bson:"title" validate:"required"`
	Description   string   `json:"description" bson:"description"`
	TargetAmount  *float64 `json:"targetAmount,omitempty" bson:"targetAmount,omitempty" validate:"omitempty,gte=0"`
	TargetDate    string   `json:"targetDate" bson:"targetDate" validate:"required,datetime=2006-01-02"`
	Completed     bool     `json:"completed" bson:"completed"`
	CompletedDate string   `json:"completedDate,omitempty" bson:"completedDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type PlanResource struct {
	Type        string `json:"type" bson:"type" validate:"required,oneof=link document tool contact"`
	Title       string `json:"title" bson:"title" validate:"required"`
	URL         string `json:"url,omitempty" bson:"url,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

// Plan is generated wholesale for a goal and stored as-is.
type Plan struct {
	ID             string          `json:"id" bson:"_id"`
	UserID         string          `json:"userId" bson:"userId"`
	GoalID         string          `json:"goalId,omitempty" bson:"goalId,omitempty"`
	Title          string          `json:"title" bson:"title" validate:"required"`
	Description    string          `json:"description" bson:"description" validate:"required"`
	Timeframe      string          `json:"timeframe" bson:"timeframe" validate:"required"`
	Category       string          `json:"category" bson:"category" validate:"required,oneof=investment savings debt income budget mixed"`
	Priority       string          `json:"priority" bson:"priority" validate:"required,oneof=high medium low"`
	Steps          []PlanStep      `json:"steps" bson:"steps" validate:"required,max=10,dive"`
	Milestones     []PlanMilestone `json:"milestones" bson:"milestones" validate:"required,max=10,dive"`
	EstimatedCost  *float64        `json:"estimatedCost,omitempty" bson:"estimatedCost,omitempty" validate:"omitempty,gte=0"`
	ExpectedReturn *float64        `json:"expectedReturn,omitempty" bson:"expectedReturn,omitempty"`
	RiskLevel      string          `json:"riskLevel" bson:"riskLevel" validate:"required,oneof=low medium high"`
	Prerequisites  []string        `json:"prerequisites,omitempty" bson:"prerequisites,omitempty"`
	Resources      []PlanResource  `json:"resources,omitempty" bson:"resources,omitempty" validate:"dive"`
	CreatedAt      time.Time       `json:"createdAt" bson:"createdAt"`
}
