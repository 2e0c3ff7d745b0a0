package models

// Envelope is one model turn: a user-facing message plus whatever the model
// extracted. Nil pointers and Absent sections mean "do not touch".
type Envelope struct {
	Message       string                  `json:"message"`
	PersonalInfo  *PersonalInfoUpdate     `json:"personalInfo"`
	FinancialInfo *FinancialUpdate        `json:"financialInfo"`
	Assets        Section[AssetCandidate] `json:"assets"`
	Debts         Section[DebtCandidate]  `json:"debts"`
	Goals         Section[GoalCandidate]  `json:"goals"`
	Skills        *SkillsUpdate           `json:"skills"`
	Operations    *Operations             `json:"operations"`
}

// HasExtraction reports whether the envelope carries anything the reconciler
// would write. Confirmed-empty asset and debt lists append nothing.
func (e *Envelope) HasExtraction() bool {
	if e == nil {
		return false
	}
	return !e.PersonalInfo.IsZero() ||
		len(e.FinancialInfo.Fields()) > 0 ||
		e.Assets.HasItems() ||
		e.Debts.HasItems() ||
		e.Goals.HasItems() ||
		!e.Skills.IsZero() ||
		!e.Operations.IsZero()
}

type AssetCandidate struct {
	Name        string    `json:"name" validate:"required,max=200"`
	Type        AssetType `json:"type" validate:"required,assettype"`
	Value       float64   `json:"value" validate:"gte=0,lte=1000000000"`
	Description string    `json:"description" validate:"max=1000"`
}

type DebtCandidate struct {
	Name         string   `json:"name" validate:"required,max=200"`
	Type         DebtType `json:"type" validate:"required,debttype"`
	Balance      float64  `json:"balance" validate:"gte=0,lte=1000000000"`
	InterestRate *float64 `json:"interestRate" validate:"omitempty,gte=0,lte=100"`
	Description  string   `json:"description" validate:"max=1000"`
}

type GoalCandidate struct {
	Title         string                  `json:"title" validate:"required,max=200"`
	Type          GoalType                `json:"type" validate:"required,goaltype"`
	Status        GoalStatus              `json:"status" validate:"omitempty,goalstatus"`
	TargetAmount  *float64                `json:"targetAmount" validate:"omitempty,gte=0,lte=1000000000"`
	CurrentAmount *float64                `json:"currentAmount" validate:"omitempty,gte=0,lte=1000000000"`
	TargetDate    string                  `json:"targetDate" validate:"omitempty,datetime=2006-01-02"`
	Progress      *float64                `json:"progress" validate:"omitempty,gte=0,lte=100"`
	Description   string                  `json:"description" validate:"max=1000"`
	Category      string                  `json:"category" validate:"max=100"`
	Submilestones []SubmilestoneCandidate `json:"submilestones" validate:"max=20,dive"`
}

type SubmilestoneCandidate struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Description  string   `json:"description" validate:"max=1000"`
	TargetAmount *float64 `json:"targetAmount" validate:"omitempty,gte=0,lte=1000000000"`
	TargetDate   string   `json:"targetDate" validate:"omitempty,datetime=2006-01-02"`
	Completed    bool     `json:"completed"`
	Order        *int     `json:"order" validate:"omitempty,gte=0"`
}

type SkillsUpdate struct {
	Skills    []string `json:"skills" validate:"max=50,dive,required,max=100"`
	Interests []string `json:"interests" validate:"max=50,dive,required,max=100"`
}

func (s *SkillsUpdate) IsZero() bool {
	return s == nil || (len(s.Skills) == 0 && len(s.Interests) == 0)
}

// Operations is the id-addressed edit/delete block of an envelope.
type Operations struct {
	GoalEdits    []GoalEdit  `json:"goalEdits" validate:"dive"`
	GoalDeletes  []string    `json:"goalDeletes" validate:"dive,required"`
	AssetEdits   []AssetEdit `json:"assetEdits" validate:"dive"`
	AssetDeletes []string    `json:"assetDeletes" validate:"dive,required"`
	DebtEdits    []DebtEdit  `json:"debtEdits" validate:"dive"`
	DebtDeletes  []string    `json:"debtDeletes" validate:"dive,required"`
}

func (o *Operations) IsZero() bool {
	return o == nil || (len(o.GoalEdits) == 0 && len(o.GoalDeletes) == 0 &&
		len(o.AssetEdits) == 0 && len(o.AssetDeletes) == 0 &&
		len(o.DebtEdits) == 0 && len(o.DebtDeletes) == 0)
}

type GoalEdit struct {
	ID      string    `json:"id" validate:"required"`
	Updates GoalPatch `json:"updates"`
}

type AssetEdit struct {
	ID      string     `json:"id" validate:"required"`
	Updates AssetPatch `json:"updates"`
}

type DebtEdit struct {
	ID      string    `json:"id" validate:"required"`
	Updates DebtPatch `json:"updates"`
}

// Patches carry only the fields to overwrite. The id is never patchable.
type AssetPatch struct {
	Name        *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Type        *AssetType `json:"type" validate:"omitempty,assettype"`
	Value       *float64   `json:"value" validate:"omitempty,gte=0,lte=1000000000"`
	Description *string    `json:"description" validate:"omitempty,max=1000"`
}

type DebtPatch struct {
	Name         *string   `json:"name" validate:"omitempty,min=1,max=200"`
	Type         *DebtType `json:"type" validate:"omitempty,debttype"`
	Balance      *float64  `json:"balance" validate:"omitempty,gte=0,lte=1000000000"`
	InterestRate *float64  `json:"interestRate" validate:"omitempty,gte=0,lte=100"`
	Description  *string   `json:"description" validate:"omitempty,max=1000"`
}

type GoalPatch struct {
	Title         *string             `json:"title" validate:"omitempty,min=1,max=200"`
	Type          *GoalType           `json:"type" validate:"omitempty,goaltype"`
	Status        *GoalStatus         `json:"status" validate:"omitempty,goalstatus"`
	TargetAmount  *float64            `json:"targetAmount" validate:"omitempty,gte=0,lte=1000000000"`
	CurrentAmount *float64            `json:"currentAmount" validate:"omitempty,gte=0,lte=1000000000"`
	TargetDate    *string             `json:"targetDate" validate:"omitempty,datetime=2006-01-02"`
	Progress      *float64            `json:"progress" validate:"omitempty,gte=0,lte=100"`
	Description   *string             `json:"description" validate:"omitempty,max=1000"`
	Category      *string             `json:"category" validate:"omitempty,max=100"`
	Submilestones []SubmilestonePatch `json:"submilestones" validate:"dive"`
}

// SubmilestonePatch targets a submilestone by ID, or by Order when ID is nil.
type SubmilestonePatch struct {
	ID           *string  `json:"id"`
	Order        *int     `json:"order" validate:"omitempty,gte=0"`
	Title        *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string  `json:"description" validate:"omitempty,max=1000"`
	TargetAmount *float64 `json:"targetAmount" validate:"omitempty,gte=0,lte=1000000000"`
	TargetDate   *string  `json:"targetDate" validate:"omitempty,datetime=2006-01-02"`
	Completed    *bool    `json:"completed"`
}
