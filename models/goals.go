package models

type GoalType string

const (
	GoalFinancial  GoalType = "financial"
	GoalSkill      GoalType = "skill"
	GoalBehavior   GoalType = "behavior"
	GoalLifestyle  GoalType = "lifestyle"
	GoalNetworking GoalType = "networking"
	GoalProject    GoalType = "project"
)

var GoalTypes = []GoalType{GoalFinancial, GoalSkill, GoalBehavior, GoalLifestyle, GoalNetworking, GoalProject}

type GoalStatus string

const (
	StatusNotStarted GoalStatus = "Not Started"
	StatusInProgress GoalStatus = "In Progress"
	StatusCompleted  GoalStatus = "Completed"
)

var GoalStatuses = []GoalStatus{StatusNotStarted, StatusInProgress, StatusCompleted}

type Goal struct {
	ID            string         `json:"id" bson:"id" validate:"required"`
	Title         string         `json:"title" bson:"title" validate:"required,max=200"`
	Type          GoalType       `json:"type" bson:"type" validate:"required,goaltype"`
	Status        GoalStatus     `json:"status" bson:"status" validate:"required,goalstatus"`
	TargetAmount  *float64       `json:"targetAmount,omitempty" bson:"targetAmount,omitempty" validate:"omitempty,gte=0,lte=1000000000"`
	CurrentAmount *float64       `json:"currentAmount,omitempty" bson:"currentAmount,omitempty" validate:"omitempty,gte=0,lte=1000000000"`
	TargetDate    string         `json:"targetDate,omitempty" bson:"targetDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Progress      *float64       `json:"progress,omitempty" bson:"progress,omitempty" validate:"omitempty,gte=0,lte=100"`
	Description   string         `json:"description,omitempty" bson:"description,omitempty" validate:"max=1000"`
	Category      string         `json:"category,omitempty" bson:"category,omitempty" validate:"max=100"`
	Submilestones []Submilestone `json:"submilestones" bson:"submilestones" validate:"dive"`
	Provenance    `bson:",inline"`
}

// Submilestone belongs to exactly one goal and is only addressable through it.
type Submilestone struct {
	ID           string   `json:"id" bson:"id" validate:"required"`
	Title        string   `json:"title" bson:"title" validate:"required,max=200"`
	Description  string   `json:"description,omitempty" bson:"description,omitempty" validate:"max=1000"`
	TargetAmount *float64 `json:"targetAmount,omitempty" bson:"targetAmount,omitempty" validate:"omitempty,gte=0,lte=1000000000"`
	TargetDate   string   `json:"targetDate,omitempty" bson:"targetDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Completed    bool     `json:"completed" bson:"completed"`
	Order        int      `json:"order" bson:"order" validate:"gte=0"`
}

// GoalsDoc is the per-user `goals` document.
type GoalsDoc struct {
	DocMeta           `bson:",inline"`
	IntermediateGoals []Goal `json:"intermediateGoals" bson:"intermediateGoals"`
}
