package reconcile

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/schema"
	"github.com/qiuethan/RT1M-sub001/store"
	"github.com/qiuethan/RT1M-sub001/usercontext"
)

// turn is a single merge attempt. It mutates the snapshot it was given, which
// is owned by that attempt.
type turn struct {
	r    *Reconciler
	snap *usercontext.Snapshot
	meta Meta
	now  time.Time
	log  *zap.Logger
	sum  *Summary
	ops  []store.Operation

	finChanged    bool
	goalsChanged  bool
	profChanged   bool
	skillsChanged bool
}

func (r *Reconciler) newTurn(snap *usercontext.Snapshot, meta Meta, log *zap.Logger) *turn {
	return &turn{
		r:    r,
		snap: snap,
		meta: meta,
		now:  r.now().UTC(),
		log:  log,
		sum:  newSummary(meta.Confidence),
	}
}

// run applies edits, then deletes, then creates, then the scalar sections,
// and finally emits one conditional write per changed document.
func (t *turn) run(env *models.Envelope) {
	if ops := env.Operations; ops != nil {
		t.editAssets(ops.AssetEdits)
		t.editDebts(ops.DebtEdits)
		t.editGoals(ops.GoalEdits)
		t.deleteAssets(ops.AssetDeletes)
		t.deleteDebts(ops.DebtDeletes)
		t.deleteGoals(ops.GoalDeletes)
	}
	if env.Assets.HasItems() {
		t.addAssets(env.Assets.Items)
	}
	if env.Debts.HasItems() {
		t.addDebts(env.Debts.Items)
	}
	if env.Goals.HasItems() {
		t.addGoals(env.Goals.Items)
	}
	t.mergeFinancialInfo(env.FinancialInfo)
	t.mergePersonalInfo(env.PersonalInfo)
	t.mergeSkills(env.Skills)
	t.emit()
}

func (t *turn) financials() *models.FinancialsDoc {
	if t.snap.Financials == nil {
		t.snap.Financials = &models.FinancialsDoc{}
	}
	return t.snap.Financials
}

func (t *turn) goals() *models.GoalsDoc {
	if t.snap.Goals == nil {
		t.snap.Goals = &models.GoalsDoc{}
	}
	return t.snap.Goals
}

func (t *turn) profile() *models.ProfileDoc {
	if t.snap.Profile == nil {
		t.snap.Profile = &models.ProfileDoc{}
	}
	return t.snap.Profile
}

func (t *turn) skills() *models.SkillsDoc {
	if t.snap.Skills == nil {
		t.snap.Skills = &models.SkillsDoc{}
	}
	return t.snap.Skills
}

func (t *turn) provenance() models.Provenance {
	conf := t.meta.Confidence
	return models.Provenance{
		AIGenerated: true,
		Source:      t.meta.Source,
		Confidence:  &conf,
		CreatedAt:   t.now,
		UpdatedAt:   t.now,
	}
}

func (t *turn) touch(p *models.Provenance) {
	conf := t.meta.Confidence
	p.Source = t.meta.Source
	p.Confidence = &conf
	p.UpdatedAt = t.now
}

func (t *turn) updated(section string) {
	t.sum.UpdatedSections[section] = true
}

func (t *turn) editAssets(edits []models.AssetEdit) {
	c := t.sum.count(SectionAssets)
	for _, e := range edits {
		if err := schema.ValidatePatch(&e.Updates); err != nil {
			c.Invalid++
			t.log.Warn("rejected asset edit", zap.String("asset_id", e.ID), zap.Error(err))
			continue
		}
		fin := t.financials()
		i := indexOf(fin.Assets, e.ID, func(a models.Asset) string { return a.ID })
		if i < 0 {
			c.Missing++
			t.log.Info("asset edit target not found", zap.String("asset_id", e.ID))
			continue
		}
		if j := t.assetCollision(fin.Assets, i, e.Updates); j >= 0 {
			c.Invalid++
			t.log.Warn("asset edit would duplicate another asset, rejected",
				zap.String("asset_id", e.ID), zap.String("existing_id", fin.Assets[j].ID))
			continue
		}
		a := &fin.Assets[i]
		u := e.Updates
		if u.Name != nil {
			a.Name = strings.TrimSpace(*u.Name)
		}
		if u.Type != nil {
			a.Type = *u.Type
		}
		if u.Value != nil {
			a.Value = *u.Value
		}
		if u.Description != nil {
			a.Description = *u.Description
		}
		t.touch(&a.Provenance)
		c.Edited++
		t.finChanged = true
		t.updated(SectionAssets)
	}
	if c.Edited > 0 {
		t.notice("Updated %s.", plural(c.Edited, "asset"))
	}
}

// assetCollision returns the index of another asset that would share the
// edited asset's (name, type) identity once the patch is applied, or -1.
func (t *turn) assetCollision(assets []models.Asset, i int, u models.AssetPatch) int {
	if u.Name == nil && u.Type == nil {
		return -1
	}
	name, typ := assets[i].Name, assets[i].Type
	if u.Name != nil {
		name = *u.Name
	}
	if u.Type != nil {
		typ = *u.Type
	}
	key := normalize(name)
	for j, a := range assets {
		if j != i && a.Type == typ && normalize(a.Name) == key {
			return j
		}
	}
	return -1
}

func (t *turn) debtCollision(debts []models.Debt, i int, u models.DebtPatch) int {
	if u.Name == nil && u.Type == nil {
		return -1
	}
	name, typ := debts[i].Name, debts[i].Type
	if u.Name != nil {
		name = *u.Name
	}
	if u.Type != nil {
		typ = *u.Type
	}
	key := normalize(name)
	for j, d := range debts {
		if j != i && d.Type == typ && normalize(d.Name) == key {
			return j
		}
	}
	return -1
}

func (t *turn) editDebts(edits []models.DebtEdit) {
	c := t.sum.count(SectionDebts)
	for _, e := range edits {
		if err := schema.ValidatePatch(&e.Updates); err != nil {
			c.Invalid++
			t.log.Warn("rejected debt edit", zap.String("debt_id", e.ID), zap.Error(err))
			continue
		}
		fin := t.financials()
		i := indexOf(fin.Debts, e.ID, func(d models.Debt) string { return d.ID })
		if i < 0 {
			c.Missing++
			t.log.Info("debt edit target not found", zap.String("debt_id", e.ID))
			continue
		}
		if j := t.debtCollision(fin.Debts, i, e.Updates); j >= 0 {
			c.Invalid++
			t.log.Warn("debt edit would duplicate another debt, rejected",
				zap.String("debt_id", e.ID), zap.String("existing_id", fin.Debts[j].ID))
			continue
		}
		d := &fin.Debts[i]
		u := e.Updates
		if u.Name != nil {
			d.Name = strings.TrimSpace(*u.Name)
		}
		if u.Type != nil {
			d.Type = *u.Type
		}
		if u.Balance != nil {
			d.Balance = *u.Balance
		}
		if u.InterestRate != nil {
			rate := *u.InterestRate
			d.InterestRate = &rate
		}
		if u.Description != nil {
			d.Description = *u.Description
		}
		t.touch(&d.Provenance)
		c.Edited++
		t.finChanged = true
		t.updated(SectionDebts)
	}
	if c.Edited > 0 {
		t.notice("Updated %s.", plural(c.Edited, "debt"))
	}
}

func (t *turn) editGoals(edits []models.GoalEdit) {
	c := t.sum.count(SectionGoals)
	for _, e := range edits {
		if err := schema.ValidatePatch(&e.Updates); err != nil {
			c.Invalid++
			t.log.Warn("rejected goal edit", zap.String("goal_id", e.ID), zap.Error(err))
			continue
		}
		doc := t.goals()
		i := indexOf(doc.IntermediateGoals, e.ID, func(g models.Goal) string { return g.ID })
		if i < 0 {
			c.Missing++
			t.log.Info("goal edit target not found", zap.String("goal_id", e.ID))
			continue
		}
		g := &doc.IntermediateGoals[i]
		before := cloneGoal(*g)
		t.applyGoalPatch(g, e.Updates)
		if err := schema.ValidateGoal(g); err != nil {
			*g = before
			c.Invalid++
			t.log.Warn("goal edit left goal invalid, reverted", zap.String("goal_id", e.ID), zap.Error(err))
			continue
		}
		t.touch(&g.Provenance)
		c.Edited++
		t.goalsChanged = true
		t.updated(SectionGoals)
	}
	if c.Edited > 0 {
		t.notice("Updated %s.", plural(c.Edited, "goal"))
	}
}

func (t *turn) applyGoalPatch(g *models.Goal, u models.GoalPatch) {
	if u.Title != nil {
		g.Title = strings.TrimSpace(*u.Title)
	}
	if u.Type != nil {
		g.Type = *u.Type
	}
	if u.Status != nil {
		g.Status = *u.Status
	}
	if u.TargetAmount != nil {
		g.TargetAmount = ptr(*u.TargetAmount)
	}
	if u.CurrentAmount != nil {
		g.CurrentAmount = ptr(*u.CurrentAmount)
	}
	if u.TargetDate != nil {
		g.TargetDate = *u.TargetDate
	}
	if u.Progress != nil {
		g.Progress = ptr(*u.Progress)
	}
	if u.Description != nil {
		g.Description = *u.Description
	}
	if u.Category != nil {
		g.Category = *u.Category
	}
	for _, sp := range u.Submilestones {
		j := findSubmilestone(g.Submilestones, sp)
		if j < 0 {
			t.log.Info("submilestone update matched nothing, ignored", zap.String("goal_id", g.ID))
			continue
		}
		m := &g.Submilestones[j]
		if sp.ID != nil && sp.Order != nil {
			m.Order = *sp.Order
		}
		if sp.Title != nil {
			m.Title = strings.TrimSpace(*sp.Title)
		}
		if sp.Description != nil {
			m.Description = *sp.Description
		}
		if sp.TargetAmount != nil {
			m.TargetAmount = ptr(*sp.TargetAmount)
		}
		if sp.TargetDate != nil {
			m.TargetDate = *sp.TargetDate
		}
		if sp.Completed != nil {
			m.Completed = *sp.Completed
		}
	}
}

// findSubmilestone resolves a patch by id, or by order when no id is given.
func findSubmilestone(ms []models.Submilestone, p models.SubmilestonePatch) int {
	if p.ID != nil {
		return indexOf(ms, *p.ID, func(m models.Submilestone) string { return m.ID })
	}
	if p.Order != nil {
		for i, m := range ms {
			if m.Order == *p.Order {
				return i
			}
		}
	}
	return -1
}

func (t *turn) deleteAssets(ids []string) {
	c := t.sum.count(SectionAssets)
	for _, id := range ids {
		fin := t.financials()
		out, ok := removeByID(fin.Assets, id, func(a models.Asset) string { return a.ID })
		if !ok {
			c.Missing++
			t.log.Info("asset delete target not found", zap.String("asset_id", id))
			continue
		}
		fin.Assets = out
		c.Deleted++
		t.finChanged = true
		t.updated(SectionAssets)
	}
	if c.Deleted > 0 {
		t.notice("Removed %s.", plural(c.Deleted, "asset"))
	}
}

func (t *turn) deleteDebts(ids []string) {
	c := t.sum.count(SectionDebts)
	for _, id := range ids {
		fin := t.financials()
		out, ok := removeByID(fin.Debts, id, func(d models.Debt) string { return d.ID })
		if !ok {
			c.Missing++
			t.log.Info("debt delete target not found", zap.String("debt_id", id))
			continue
		}
		fin.Debts = out
		c.Deleted++
		t.finChanged = true
		t.updated(SectionDebts)
	}
	if c.Deleted > 0 {
		t.notice("Removed %s.", plural(c.Deleted, "debt"))
	}
}

func (t *turn) deleteGoals(ids []string) {
	c := t.sum.count(SectionGoals)
	for _, id := range ids {
		doc := t.goals()
		out, ok := removeByID(doc.IntermediateGoals, id, func(g models.Goal) string { return g.ID })
		if !ok {
			c.Missing++
			t.log.Info("goal delete target not found", zap.String("goal_id", id))
			continue
		}
		doc.IntermediateGoals = out
		c.Deleted++
		t.goalsChanged = true
		t.updated(SectionGoals)
	}
	if c.Deleted > 0 {
		t.notice("Removed %s.", plural(c.Deleted, "goal"))
	}
}

func (t *turn) addAssets(cands []models.AssetCandidate) {
	c := t.sum.count(SectionAssets)
	var names []string
	for _, cand := range cands {
		if err := schema.ValidateAssetCandidate(&cand); err != nil {
			c.Invalid++
			t.log.Warn("rejected extracted asset", zap.String("name", cand.Name), zap.Error(err))
			continue
		}
		fin := t.financials()
		if i := findAsset(fin.Assets, cand.Name, cand.Type); i >= 0 {
			existing := &fin.Assets[i]
			if t.meta.RefreshMatches && existing.Value != cand.Value {
				existing.Value = cand.Value
				t.touch(&existing.Provenance)
				c.Edited++
				t.finChanged = true
				t.updated(SectionAssets)
				continue
			}
			c.Skipped++
			t.log.Debug("duplicate asset skipped", zap.String("name", cand.Name), zap.String("type", string(cand.Type)))
			continue
		}
		fin.Assets = append(fin.Assets, models.Asset{
			ID:          t.r.newID(),
			Name:        strings.TrimSpace(cand.Name),
			Type:        cand.Type,
			Value:       cand.Value,
			Description: cand.Description,
			Provenance:  t.provenance(),
		})
		names = append(names, strings.TrimSpace(cand.Name))
		c.Added++
		t.finChanged = true
		t.updated(SectionAssets)
	}
	if c.Added > 0 {
		t.notice("Added %s: %s.", plural(c.Added, "asset"), strings.Join(names, ", "))
		t.checkLimit(len(t.financials().Assets), t.r.limits.MaxAssets, "assets")
	}
}

func (t *turn) addDebts(cands []models.DebtCandidate) {
	c := t.sum.count(SectionDebts)
	var names []string
	for _, cand := range cands {
		if err := schema.ValidateDebtCandidate(&cand); err != nil {
			c.Invalid++
			t.log.Warn("rejected extracted debt", zap.String("name", cand.Name), zap.Error(err))
			continue
		}
		fin := t.financials()
		if i := findDebt(fin.Debts, cand.Name, cand.Type); i >= 0 {
			existing := &fin.Debts[i]
			if t.meta.RefreshMatches && existing.Balance != cand.Balance {
				existing.Balance = cand.Balance
				t.touch(&existing.Provenance)
				c.Edited++
				t.finChanged = true
				t.updated(SectionDebts)
				continue
			}
			c.Skipped++
			t.log.Debug("duplicate debt skipped", zap.String("name", cand.Name), zap.String("type", string(cand.Type)))
			continue
		}
		var rate *float64
		if cand.InterestRate != nil {
			rate = ptr(*cand.InterestRate)
		}
		fin.Debts = append(fin.Debts, models.Debt{
			ID:           t.r.newID(),
			Name:         strings.TrimSpace(cand.Name),
			Type:         cand.Type,
			Balance:      cand.Balance,
			InterestRate: rate,
			Description:  cand.Description,
			Provenance:   t.provenance(),
		})
		names = append(names, strings.TrimSpace(cand.Name))
		c.Added++
		t.finChanged = true
		t.updated(SectionDebts)
	}
	if c.Added > 0 {
		t.notice("Added %s: %s.", plural(c.Added, "debt"), strings.Join(names, ", "))
		t.checkLimit(len(t.financials().Debts), t.r.limits.MaxDebts, "debts")
	}
}

func (t *turn) addGoals(cands []models.GoalCandidate) {
	c := t.sum.count(SectionGoals)
	var titles []string
	for _, cand := range cands {
		if err := schema.ValidateGoalCandidate(&cand); err != nil {
			c.Invalid++
			t.log.Warn("rejected extracted goal", zap.String("title", cand.Title), zap.Error(err))
			continue
		}
		doc := t.goals()
		if dup := t.findGoal(doc.IntermediateGoals, cand.Title); dup != "" {
			c.Skipped++
			t.log.Debug("goal matches an existing goal, skipped",
				zap.String("title", cand.Title),
				zap.String("existing", dup))
			continue
		}
		g := t.buildGoal(cand)
		if err := schema.ValidateGoal(&g); err != nil {
			c.Invalid++
			t.log.Warn("rejected extracted goal", zap.String("title", cand.Title), zap.Error(err))
			continue
		}
		doc.IntermediateGoals = append(doc.IntermediateGoals, g)
		titles = append(titles, g.Title)
		c.Added++
		t.goalsChanged = true
		t.updated(SectionGoals)
	}
	if c.Added > 0 {
		t.notice("Added %s: %s.", plural(c.Added, "goal"), strings.Join(titles, ", "))
		t.checkLimit(len(t.goals().IntermediateGoals), t.r.limits.MaxGoals, "goals")
	}
}

func (t *turn) findGoal(goals []models.Goal, title string) string {
	for _, g := range goals {
		if t.r.matcher.Match(g.Title, title) {
			return g.Title
		}
	}
	return ""
}

func (t *turn) buildGoal(cand models.GoalCandidate) models.Goal {
	status := cand.Status
	if status == "" {
		status = models.StatusNotStarted
	}
	g := models.Goal{
		ID:            t.r.newID(),
		Title:         strings.TrimSpace(cand.Title),
		Type:          cand.Type,
		Status:        status,
		TargetDate:    cand.TargetDate,
		Description:   cand.Description,
		Category:      cand.Category,
		Submilestones: make([]models.Submilestone, 0, len(cand.Submilestones)),
		Provenance:    t.provenance(),
	}
	if cand.TargetAmount != nil {
		g.TargetAmount = ptr(*cand.TargetAmount)
	}
	if cand.CurrentAmount != nil {
		g.CurrentAmount = ptr(*cand.CurrentAmount)
	}
	if cand.Progress != nil {
		g.Progress = ptr(*cand.Progress)
	}
	for i, sm := range cand.Submilestones {
		order := i
		if sm.Order != nil {
			order = *sm.Order
		}
		m := models.Submilestone{
			ID:          t.r.newID(),
			Title:       strings.TrimSpace(sm.Title),
			Description: sm.Description,
			TargetDate:  sm.TargetDate,
			Completed:   sm.Completed,
			Order:       order,
		}
		if sm.TargetAmount != nil {
			m.TargetAmount = ptr(*sm.TargetAmount)
		}
		g.Submilestones = append(g.Submilestones, m)
	}
	return g
}

func (t *turn) mergeFinancialInfo(u *models.FinancialUpdate) {
	fields := u.Fields()
	if len(fields) == 0 {
		return
	}
	fin := t.financials()
	if fin.FinancialInfo == nil {
		fin.FinancialInfo = &models.FinancialInfo{}
	}
	fi := fin.FinancialInfo
	c := t.sum.count(SectionFinancialInfo)

	var applied []string
	for _, name := range financialFields {
		v, ok := fields[name]
		if !ok {
			continue
		}
		dst := financialField(fi, name)
		if t.meta.SmartMerge && *dst != nil && t.meta.Confidence < t.r.threshold {
			c.Skipped++
			t.log.Info("low-confidence value kept existing figure",
				zap.String("field", name),
				zap.Float64("confidence", t.meta.Confidence))
			continue
		}
		*dst = ptr(v)
		if t.meta.SmartMerge {
			if fi.AIConfidence == nil {
				fi.AIConfidence = map[string]float64{}
			}
			fi.AIConfidence[name] = t.meta.Confidence
		}
		applied = append(applied, financialLabels[name])
		c.Edited++
	}
	if len(applied) == 0 {
		return
	}
	now := t.now
	fi.LastAIUpdate = &now
	fi.AISource = t.meta.Source
	t.finChanged = true
	t.updated(SectionFinancialInfo)
	t.notice("Updated your %s.", strings.Join(applied, ", "))
}

var financialFields = []string{"annualIncome", "annualExpenses", "currentSavings"}

var financialLabels = map[string]string{
	"annualIncome":   "annual income",
	"annualExpenses": "annual expenses",
	"currentSavings": "current savings",
}

func financialField(fi *models.FinancialInfo, name string) **float64 {
	switch name {
	case "annualIncome":
		return &fi.AnnualIncome
	case "annualExpenses":
		return &fi.AnnualExpenses
	default:
		return &fi.CurrentSavings
	}
}

func (t *turn) mergePersonalInfo(p *models.PersonalInfoUpdate) {
	if p.IsZero() {
		return
	}
	prof := t.profile()
	if prof.BasicInfo == nil {
		prof.BasicInfo = &models.BasicInfo{}
	}
	bi := prof.BasicInfo
	if p.Name != nil {
		bi.Name = strings.TrimSpace(*p.Name)
	}
	if p.Age != nil {
		age := *p.Age
		bi.Age = &age
	}
	if p.Birthday != nil {
		bi.Birthday = *p.Birthday
	}
	if p.Location != nil {
		bi.Location = *p.Location
	}
	if p.Occupation != nil {
		bi.Occupation = *p.Occupation
	}
	if p.EmploymentStatus != nil {
		bi.EmploymentStatus = *p.EmploymentStatus
	}
	t.sum.count(SectionPersonalInfo).Edited += p.Count()
	t.profChanged = true
	t.updated(SectionPersonalInfo)
	t.notice("Updated your personal info.")
}

func (t *turn) mergeSkills(s *models.SkillsUpdate) {
	if s.IsZero() {
		return
	}
	doc := t.skills()
	if doc.SkillsAndInterests == nil {
		doc.SkillsAndInterests = &models.SkillsAndInterests{}
	}
	si := doc.SkillsAndInterests
	var added int
	si.Skills, added = union(si.Skills, s.Skills)
	n := added
	si.Interests, added = union(si.Interests, s.Interests)
	n += added
	c := t.sum.count(SectionSkills)
	c.Added += n
	c.Skipped += len(s.Skills) + len(s.Interests) - n
	if n == 0 {
		return
	}
	t.skillsChanged = true
	t.updated(SectionSkills)
	t.notice("Added %d to your skills and interests.", n)
}

// union appends the items of add not already in base, ignoring case, and
// keeps the original order.
func union(base, add []string) ([]string, int) {
	seen := make(map[string]bool, len(base))
	for _, s := range base {
		seen[strings.ToLower(strings.TrimSpace(s))] = true
	}
	n := 0
	for _, s := range add {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		base = append(base, s)
		n++
	}
	return base, n
}

func (t *turn) checkLimit(n, max int, noun string) {
	if max <= 0 || n <= max {
		return
	}
	t.sum.Warnings = append(t.sum.Warnings, fmt.Sprintf(
		"You now have %d %s, which is over the recommended maximum of %d %s. Consider consolidating or removing some.",
		n, noun, max, noun))
}

func (t *turn) notice(format string, args ...any) {
	t.sum.Notices = append(t.sum.Notices, fmt.Sprintf(format, args...))
}

// emit writes each changed document whole, conditional on the revision it
// was read at. Totals are recomputed whenever financials are written.
func (t *turn) emit() {
	uid := t.snap.UserID
	if t.finChanged {
		fin := t.financials()
		if fin.FinancialInfo == nil {
			fin.FinancialInfo = &models.FinancialInfo{}
		}
		fin.FinancialInfo.TotalAssets, fin.FinancialInfo.TotalDebts = usercontext.Totals(fin.Assets, fin.Debts)
		t.ops = append(t.ops, store.Set(store.UserRef(store.FinancialsCollection, uid), fin, store.Revision(fin.Revision)))
	}
	if t.goalsChanged {
		doc := t.goals()
		t.ops = append(t.ops, store.Set(store.UserRef(store.GoalsCollection, uid), doc, store.Revision(doc.Revision)))
	}
	if t.profChanged {
		doc := t.profile()
		t.ops = append(t.ops, store.Set(store.UserRef(store.ProfileCollection, uid), doc, store.Revision(doc.Revision)))
	}
	if t.skillsChanged {
		doc := t.skills()
		t.ops = append(t.ops, store.Set(store.UserRef(store.SkillsCollection, uid), doc, store.Revision(doc.Revision)))
	}
}

func findAsset(assets []models.Asset, name string, typ models.AssetType) int {
	key := normalize(name)
	for i, a := range assets {
		if a.Type == typ && normalize(a.Name) == key {
			return i
		}
	}
	return -1
}

func findDebt(debts []models.Debt, name string, typ models.DebtType) int {
	key := normalize(name)
	for i, d := range debts {
		if d.Type == typ && normalize(d.Name) == key {
			return i
		}
	}
	return -1
}

func indexOf[T any](items []T, id string, idOf func(T) string) int {
	if id == "" {
		return -1
	}
	for i, it := range items {
		if idOf(it) == id {
			return i
		}
	}
	return -1
}

// removeByID always returns a non-nil slice so a list emptied by deletes
// reads back as confirmed empty.
func removeByID[T any](items []T, id string, idOf func(T) string) ([]T, bool) {
	i := indexOf(items, id, idOf)
	if i < 0 {
		return items, false
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...), true
}

func cloneGoal(g models.Goal) models.Goal {
	if g.Submilestones != nil {
		g.Submilestones = append([]models.Submilestone{}, g.Submilestones...)
	}
	return g
}

func ptr[T any](v T) *T { return &v }

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
