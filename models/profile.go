package models

type BasicInfo struct {
	Name             string `json:"name,omitempty" bson:"name,omitempty"`
	Age              *int   `json:"age,omitempty" bson:"age,omitempty"`
	Birthday         string `json:"birthday,omitempty" bson:"birthday,omitempty"`
	Location         string `json:"location,omitempty" bson:"location,omitempty"`
	Occupation       string `json:"occupation,omitempty" bson:"occupation,omitempty"`
	EmploymentStatus string `json:"employmentStatus,omitempty" bson:"employmentStatus,omitempty"`
}

func (b *BasicInfo) IsZero() bool {
	return b == nil || (b.Name == "" && b.Age == nil && b.Birthday == "" && b.Location == "" && b.Occupation == "" && b.EmploymentStatus == "")
}

type Education struct {
	School    string `json:"school" bson:"school"`
	Degree    string `json:"degree,omitempty" bson:"degree,omitempty"`
	Field     string `json:"field,omitempty" bson:"field,omitempty"`
	StartYear string `json:"startYear,omitempty" bson:"startYear,omitempty"`
	EndYear   string `json:"endYear,omitempty" bson:"endYear,omitempty"`
}

type Experience struct {
	Company     string `json:"company" bson:"company"`
	Position    string `json:"position" bson:"position"`
	StartYear   string `json:"startYear,omitempty" bson:"startYear,omitempty"`
	EndYear     string `json:"endYear,omitempty" bson:"endYear,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

type FinancialGoal struct {
	TargetAmount *float64 `json:"targetAmount,omitempty" bson:"targetAmount,omitempty"`
	TargetYear   *int     `json:"targetYear,omitempty" bson:"targetYear,omitempty"`
	Description  string   `json:"description,omitempty" bson:"description,omitempty"`
}

func (g *FinancialGoal) IsZero() bool {
	return g == nil || (g.TargetAmount == nil && g.TargetYear == nil && g.Description == "")
}

// ProfileDoc is the per-user `profile` document. Slices follow the nil/empty
// convention of SlicePresence.
type ProfileDoc struct {
	DocMeta          `bson:",inline"`
	BasicInfo        *BasicInfo     `json:"basicInfo" bson:"basicInfo"`
	EducationHistory []Education    `json:"educationHistory" bson:"educationHistory"`
	Experience       []Experience   `json:"experience" bson:"experience"`
	FinancialGoal    *FinancialGoal `json:"financialGoal" bson:"financialGoal"`
}

// PersonalInfoUpdate is what the model may extract about the person.
type PersonalInfoUpdate struct {
	Name             *string `json:"name" validate:"omitempty,max=200"`
	Age              *int    `json:"age" validate:"omitempty,gte=0,lte=150"`
	Birthday         *string `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	Location         *string `json:"location" validate:"omitempty,max=200"`
	Occupation       *string `json:"occupation" validate:"omitempty,max=200"`
	EmploymentStatus *string `json:"employmentStatus" validate:"omitempty,max=100"`
}

func (p *PersonalInfoUpdate) IsZero() bool {
	return p == nil || (p.Name == nil && p.Age == nil && p.Birthday == nil && p.Location == nil && p.Occupation == nil && p.EmploymentStatus == nil)
}

// Count returns how many fields carry a value.
func (p *PersonalInfoUpdate) Count() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, set := range []bool{p.Name != nil, p.Age != nil, p.Birthday != nil, p.Location != nil, p.Occupation != nil, p.EmploymentStatus != nil} {
		if set {
			n++
		}
	}
	return n
}
