package models

import "time"

type AssetType string

const (
	AssetRealEstate AssetType = "real-estate"
	AssetStocks     AssetType = "stocks"
	AssetBonds      AssetType = "bonds"
	AssetSavings    AssetType = "savings"
	AssetRetirement AssetType = "retirement"
	AssetCrypto     AssetType = "crypto"
	AssetBusiness   AssetType = "business"
	AssetOther      AssetType = "other"
)

var AssetTypes = []AssetType{AssetRealEstate, AssetStocks, AssetBonds, AssetSavings, AssetRetirement, AssetCrypto, AssetBusiness, AssetOther}

type DebtType string

const (
	DebtMortgage     DebtType = "mortgage"
	DebtCreditCard   DebtType = "credit-card"
	DebtStudentLoan  DebtType = "student-loan"
	DebtCarLoan      DebtType = "car-loan"
	DebtPersonalLoan DebtType = "personal-loan"
	DebtBusinessLoan DebtType = "business-loan"
	DebtOther        DebtType = "other"
)

var DebtTypes = []DebtType{DebtMortgage, DebtCreditCard, DebtStudentLoan, DebtCarLoan, DebtPersonalLoan, DebtBusinessLoan, DebtOther}

// Provenance is stamped on records created or changed on behalf of AI extraction.
type Provenance struct {
	AIGenerated bool      `json:"aiGenerated,omitempty" bson:"aiGenerated,omitempty"`
	Source      string    `json:"source,omitempty" bson:"source,omitempty"`
	Confidence  *float64  `json:"confidence,omitempty" bson:"confidence,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

type Asset struct {
	ID          string    `json:"id" bson:"id"`
	Name        string    `json:"name" bson:"name" validate:"required,max=200"`
	Type        AssetType `json:"type" bson:"type" validate:"required,assettype"`
	Value       float64   `json:"value" bson:"value" validate:"gte=0,lte=1000000000"`
	Description string    `json:"description,omitempty" bson:"description,omitempty" validate:"max=1000"`
	Provenance  `bson:",inline"`
}

type Debt struct {
	ID           string   `json:"id" bson:"id"`
	Name         string   `json:"name" bson:"name" validate:"required,max=200"`
	Type         DebtType `json:"type" bson:"type" validate:"required,debttype"`
	Balance      float64  `json:"balance" bson:"balance" validate:"gte=0,lte=1000000000"`
	InterestRate *float64 `json:"interestRate,omitempty" bson:"interestRate,omitempty" validate:"omitempty,gte=0,lte=100"`
	Description  string   `json:"description,omitempty" bson:"description,omitempty" validate:"max=1000"`
	Provenance   `bson:",inline"`
}

// FinancialInfo numeric user fields are pointers: nil means never entered,
// a zero value means the user confirmed zero.
type FinancialInfo struct {
	AnnualIncome   *float64           `json:"annualIncome,omitempty" bson:"annualIncome,omitempty"`
	AnnualExpenses *float64           `json:"annualExpenses,omitempty" bson:"annualExpenses,omitempty"`
	CurrentSavings *float64           `json:"currentSavings,omitempty" bson:"currentSavings,omitempty"`
	TotalAssets    float64            `json:"totalAssets" bson:"totalAssets"`
	TotalDebts     float64            `json:"totalDebts" bson:"totalDebts"`
	LastAIUpdate   *time.Time         `json:"lastAIUpdate,omitempty" bson:"lastAIUpdate,omitempty"`
	AISource       string             `json:"aiSource,omitempty" bson:"aiSource,omitempty"`
	AIConfidence   map[string]float64 `json:"aiConfidence,omitempty" bson:"aiConfidence,omitempty"`
}

// FinancialsDoc is the per-user `financials` document.
type FinancialsDoc struct {
	DocMeta       `bson:",inline"`
	FinancialInfo *FinancialInfo `json:"financialInfo" bson:"financialInfo"`
	Assets        []Asset        `json:"assets" bson:"assets"`
	Debts         []Debt         `json:"debts" bson:"debts"`
}

// DocMeta is the base metadata every per-user document carries.
type DocMeta struct {
	UserID    string    `json:"userId" bson:"userId"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
	Revision  int64     `json:"revision" bson:"revision"`
}

// FinancialUpdate is the extractable part of FinancialInfo. Totals are accepted
// on the wire but never applied; they are derived from assets and debts.
type FinancialUpdate struct {
	AnnualIncome   *float64 `json:"annualIncome" validate:"omitempty,gte=0,lte=1000000000"`
	AnnualExpenses *float64 `json:"annualExpenses" validate:"omitempty,gte=0,lte=1000000000"`
	CurrentSavings *float64 `json:"currentSavings" validate:"omitempty,gte=0,lte=1000000000"`
	TotalAssets    *float64 `json:"totalAssets" validate:"omitempty,gte=0"`
	TotalDebts     *float64 `json:"totalDebts" validate:"omitempty,gte=0"`
}

// Fields returns the extractable fields that carry a value, keyed by wire name.
func (u *FinancialUpdate) Fields() map[string]float64 {
	out := map[string]float64{}
	if u == nil {
		return out
	}
	if u.AnnualIncome != nil {
		out["annualIncome"] = *u.AnnualIncome
	}
	if u.AnnualExpenses != nil {
		out["annualExpenses"] = *u.AnnualExpenses
	}
	if u.CurrentSavings != nil {
		out["currentSavings"] = *u.CurrentSavings
	}
	return out
}
