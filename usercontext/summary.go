package usercontext

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/qiuethan/RT1M-sub001/models"
)

const (
	notProvided   = "not yet provided"
	noneConfirmed = "none (confirmed)"
)

// Completeness keys, in summary order.
const (
	KeyBasicInfo     = "basicInfo"
	KeyEducation     = "educationHistory"
	KeyExperience    = "experience"
	KeyFinancialInfo = "financialInfo"
	KeyAssets        = "assets"
	KeyDebts         = "debts"
	KeyFinancialGoal = "financialGoal"
	KeyGoals         = "goals"
	KeySkills        = "skills"
	KeyInterests     = "interests"
)

// Completeness reports the presence state of every section.
func (s *Snapshot) Completeness() map[string]models.Presence {
	out := map[string]models.Presence{
		KeyBasicInfo:     models.Absent,
		KeyEducation:     models.Absent,
		KeyExperience:    models.Absent,
		KeyFinancialInfo: financialPresence(s.financialInfo()),
		KeyAssets:        models.Absent,
		KeyDebts:         models.Absent,
		KeyFinancialGoal: models.Absent,
		KeyGoals:         models.Absent,
		KeySkills:        models.Absent,
		KeyInterests:     models.Absent,
	}
	if p := s.Profile; p != nil {
		if !p.BasicInfo.IsZero() {
			out[KeyBasicInfo] = models.Populated
		}
		out[KeyEducation] = models.SlicePresence(p.EducationHistory)
		out[KeyExperience] = models.SlicePresence(p.Experience)
		if !p.FinancialGoal.IsZero() {
			out[KeyFinancialGoal] = models.Populated
		}
	}
	if f := s.Financials; f != nil {
		out[KeyAssets] = models.SlicePresence(f.Assets)
		out[KeyDebts] = models.SlicePresence(f.Debts)
	}
	if g := s.Goals; g != nil {
		out[KeyGoals] = models.SlicePresence(g.IntermediateGoals)
	}
	if sk := s.Skills; sk != nil && sk.SkillsAndInterests != nil {
		out[KeySkills] = models.SlicePresence(sk.SkillsAndInterests.Skills)
		out[KeyInterests] = models.SlicePresence(sk.SkillsAndInterests.Interests)
	}
	return out
}

func financialPresence(fi *models.FinancialInfo) models.Presence {
	if fi == nil {
		return models.Absent
	}
	set, nonZero := 0, 0
	for _, v := range []*float64{fi.AnnualIncome, fi.AnnualExpenses, fi.CurrentSavings} {
		if v != nil {
			set++
			if *v != 0 {
				nonZero++
			}
		}
	}
	switch {
	case set == 0:
		return models.Absent
	case nonZero == 0:
		return models.Empty
	default:
		return models.Populated
	}
}

func (s *Snapshot) financialInfo() *models.FinancialInfo {
	if s.Financials == nil {
		return nil
	}
	return s.Financials.FinancialInfo
}

// Ready reports whether there is enough on file to offer plan generation.
func (s *Snapshot) Ready() bool {
	c := s.Completeness()
	fi := s.financialInfo()
	if c[KeyBasicInfo] != models.Populated || fi == nil || fi.AnnualIncome == nil {
		return false
	}
	return c[KeyFinancialGoal] == models.Populated || c[KeyGoals] == models.Populated
}

// HasFinancialData reports whether anything personal-finance related is on file.
func (s *Snapshot) HasFinancialData() bool {
	if s == nil {
		return false
	}
	c := s.Completeness()
	for _, k := range []string{KeyFinancialInfo, KeyAssets, KeyDebts, KeyGoals, KeyFinancialGoal} {
		if c[k] == models.Populated {
			return true
		}
	}
	return false
}

// Summary renders the snapshot for prompt injection. Section order is fixed
// and nothing is filled in that the user has not provided.
func (s *Snapshot) Summary() string {
	var b strings.Builder
	s.writePersonal(&b)
	s.writeBackground(&b)
	s.writeFinancial(&b)
	s.writeNetWorth(&b)
	s.writeAssetsAndDebts(&b)
	s.writeFinancialGoal(&b)
	s.writeGoals(&b)
	s.writeSkills(&b)
	return strings.TrimRight(b.String(), "\n")
}

func (s *Snapshot) writePersonal(b *strings.Builder) {
	b.WriteString("PERSONAL INFORMATION:\n")
	if s.Profile == nil || s.Profile.BasicInfo.IsZero() {
		b.WriteString("- " + notProvided + "\n\n")
		return
	}
	bi := s.Profile.BasicInfo
	line(b, "Name", bi.Name)
	if bi.Age != nil {
		line(b, "Age", fmt.Sprint(*bi.Age))
	}
	line(b, "Birthday", bi.Birthday)
	line(b, "Location", bi.Location)
	line(b, "Occupation", bi.Occupation)
	line(b, "Employment status", bi.EmploymentStatus)
	b.WriteString("\n")
}

func (s *Snapshot) writeBackground(b *strings.Builder) {
	b.WriteString("BACKGROUND:\n")
	var edu []models.Education
	var exp []models.Experience
	if s.Profile != nil {
		edu, exp = s.Profile.EducationHistory, s.Profile.Experience
	}
	switch models.SlicePresence(edu) {
	case models.Absent:
		line(b, "Education", notProvided)
	case models.Empty:
		line(b, "Education", noneConfirmed)
	default:
		for _, e := range edu {
			line(b, "Education", strings.TrimSpace(strings.Join(nonEmpty(e.Degree, e.Field, "at "+e.School, years(e.StartYear, e.EndYear)), " ")))
		}
	}
	switch models.SlicePresence(exp) {
	case models.Absent:
		line(b, "Experience", notProvided)
	case models.Empty:
		line(b, "Experience", noneConfirmed)
	default:
		for _, e := range exp {
			line(b, "Experience", strings.TrimSpace(strings.Join(nonEmpty(e.Position, "at "+e.Company, years(e.StartYear, e.EndYear)), " ")))
		}
	}
	b.WriteString("\n")
}

func (s *Snapshot) writeFinancial(b *strings.Builder) {
	b.WriteString("FINANCIAL INFORMATION:\n")
	fi := s.financialInfo()
	if fi == nil {
		fi = &models.FinancialInfo{}
	}
	line(b, "Annual income", moneyOrMissing(fi.AnnualIncome))
	line(b, "Annual expenses", moneyOrMissing(fi.AnnualExpenses))
	line(b, "Current savings", moneyOrMissing(fi.CurrentSavings))
	b.WriteString("\n")
}

func (s *Snapshot) writeNetWorth(b *strings.Builder) {
	b.WriteString("NET WORTH:\n")
	if s.Financials == nil || (s.Financials.Assets == nil && s.Financials.Debts == nil) {
		b.WriteString("- " + notProvided + "\n\n")
		return
	}
	assets, debts := Totals(s.Financials.Assets, s.Financials.Debts)
	line(b, "Total assets", Money(assets))
	line(b, "Total debts", Money(debts))
	line(b, "Net worth", Money(assets-debts))
	b.WriteString("\n")
}

func (s *Snapshot) writeAssetsAndDebts(b *strings.Builder) {
	var assets []models.Asset
	var debts []models.Debt
	if s.Financials != nil {
		assets, debts = s.Financials.Assets, s.Financials.Debts
	}
	b.WriteString("ASSETS:\n")
	switch models.SlicePresence(assets) {
	case models.Absent:
		b.WriteString("- " + notProvided + "\n")
	case models.Empty:
		b.WriteString("- " + noneConfirmed + "\n")
	default:
		for _, a := range assets {
			fmt.Fprintf(b, "- [id:%s] %s (%s): %s\n", a.ID, a.Name, a.Type, Money(a.Value))
		}
	}
	b.WriteString("\nDEBTS:\n")
	switch models.SlicePresence(debts) {
	case models.Absent:
		b.WriteString("- " + notProvided + "\n")
	case models.Empty:
		b.WriteString("- " + noneConfirmed + "\n")
	default:
		for _, d := range debts {
			rate := ""
			if d.InterestRate != nil {
				rate = fmt.Sprintf(" at %s%%", humanize.Ftoa(*d.InterestRate))
			}
			fmt.Fprintf(b, "- [id:%s] %s (%s): %s%s\n", d.ID, d.Name, d.Type, Money(d.Balance), rate)
		}
	}
	b.WriteString("\n")
}

func (s *Snapshot) writeFinancialGoal(b *strings.Builder) {
	b.WriteString("FINANCIAL GOAL:\n")
	if s.Profile == nil || s.Profile.FinancialGoal.IsZero() {
		b.WriteString("- " + notProvided + "\n\n")
		return
	}
	g := s.Profile.FinancialGoal
	if g.TargetAmount != nil {
		line(b, "Target amount", Money(*g.TargetAmount))
	}
	if g.TargetYear != nil {
		line(b, "Target year", fmt.Sprint(*g.TargetYear))
	}
	line(b, "Description", g.Description)
	b.WriteString("\n")
}

func (s *Snapshot) writeGoals(b *strings.Builder) {
	b.WriteString("CURRENT GOALS:\n")
	var goals []models.Goal
	if s.Goals != nil {
		goals = s.Goals.IntermediateGoals
	}
	switch models.SlicePresence(goals) {
	case models.Absent:
		b.WriteString("- " + notProvided + "\n\n")
		return
	case models.Empty:
		b.WriteString("- " + noneConfirmed + "\n\n")
		return
	}
	for _, g := range goals {
		fmt.Fprintf(b, "- [id:%s] %s (%s, %s)", g.ID, g.Title, g.Type, g.Status)
		if g.TargetAmount != nil {
			fmt.Fprintf(b, " target %s", Money(*g.TargetAmount))
		}
		if g.CurrentAmount != nil {
			fmt.Fprintf(b, " current %s", Money(*g.CurrentAmount))
		}
		if g.TargetDate != "" {
			fmt.Fprintf(b, " by %s", g.TargetDate)
		}
		if g.Progress != nil {
			fmt.Fprintf(b, " progress %s%%", humanize.Ftoa(*g.Progress))
		}
		b.WriteString("\n")
		for _, m := range g.Submilestones {
			done := " "
			if m.Completed {
				done = "x"
			}
			fmt.Fprintf(b, "  - [%s] [id:%s order:%d] %s\n", done, m.ID, m.Order, m.Title)
		}
	}
	b.WriteString("\n")
}

func (s *Snapshot) writeSkills(b *strings.Builder) {
	b.WriteString("SKILLS & INTERESTS:\n")
	var si *models.SkillsAndInterests
	if s.Skills != nil {
		si = s.Skills.SkillsAndInterests
	}
	if si == nil {
		si = &models.SkillsAndInterests{}
	}
	line(b, "Skills", listOrState(si.Skills))
	line(b, "Interests", listOrState(si.Interests))
}

// Totals sums asset values and debt balances in decimal.
func Totals(assets []models.Asset, debts []models.Debt) (float64, float64) {
	a, d := decimal.Zero, decimal.Zero
	for _, x := range assets {
		a = a.Add(decimal.NewFromFloat(x.Value))
	}
	for _, x := range debts {
		d = d.Add(decimal.NewFromFloat(x.Balance))
	}
	return a.InexactFloat64(), d.InexactFloat64()
}

// Money renders an amount with thousands separators, e.g. $10,000 or $1,234.5.
func Money(v float64) string {
	v = math.Round(v*100) / 100
	if v < 0 {
		return "-$" + humanize.Commaf(-v)
	}
	return "$" + humanize.Commaf(v)
}

func moneyOrMissing(v *float64) string {
	if v == nil {
		return notProvided
	}
	return Money(*v)
}

func listOrState(items []string) string {
	switch models.SlicePresence(items) {
	case models.Absent:
		return notProvided
	case models.Empty:
		return noneConfirmed
	}
	return strings.Join(items, ", ")
}

func line(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}

func years(start, end string) string {
	switch {
	case start != "" && end != "":
		return "(" + start + "-" + end + ")"
	case start != "":
		return "(" + start + "-present)"
	}
	return ""
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" && p != "at " {
			out = append(out, p)
		}
	}
	return out
}
