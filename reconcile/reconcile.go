// Package reconcile merges extracted envelopes into a user's stored documents.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/schema"
	"github.com/qiuethan/RT1M-sub001/store"
	"github.com/qiuethan/RT1M-sub001/usercontext"
)

const (
	SectionPersonalInfo  = "personalInfo"
	SectionFinancialInfo = "financialInfo"
	SectionAssets        = "assets"
	SectionDebts         = "debts"
	SectionGoals         = "goals"
	SectionSkills        = "skills"
)

const (
	SourceChat   = "ai_chat"
	SourceUpdate = "ai_update"
	SourceMerge  = "ai_merge"
	SourcePlaid  = "plaid"
)

// Meta describes where an envelope came from.
type Meta struct {
	Source     string
	Confidence float64
	SessionID  string
	// SmartMerge only lets a financial field be overwritten when Confidence
	// reaches the threshold or the field has never been set.
	SmartMerge bool
	// RefreshMatches updates the amount of a matching asset or debt instead
	// of skipping the candidate.
	RefreshMatches bool
}

// Limits are soft caps. Exceeding one produces a warning, never a rejection.
type Limits struct {
	MaxAssets int
	MaxDebts  int
	MaxGoals  int
}

func DefaultLimits() Limits {
	return Limits{MaxAssets: 10, MaxDebts: 10, MaxGoals: 15}
}

type Reconciler struct {
	gw          store.Gateway
	loader      *usercontext.Loader
	limits      Limits
	matcher     GoalMatcher
	threshold   float64
	maxAttempts int
	now         func() time.Time
	newID       func() string
}

type Option func(*Reconciler)

func WithLimits(l Limits) Option { return func(r *Reconciler) { r.limits = l } }

func WithGoalMatcher(m GoalMatcher) Option { return func(r *Reconciler) { r.matcher = m } }

func WithSmartMergeThreshold(t float64) Option { return func(r *Reconciler) { r.threshold = t } }

func WithMaxAttempts(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func WithClock(now func() time.Time) Option { return func(r *Reconciler) { r.now = now } }

func WithIDGenerator(fn func() string) Option { return func(r *Reconciler) { r.newID = fn } }

func New(gw store.Gateway, opts ...Option) *Reconciler {
	r := &Reconciler{
		gw:          gw,
		loader:      usercontext.NewLoader(gw),
		limits:      DefaultLimits(),
		matcher:     SubstringMatcher{},
		threshold:   0.8,
		maxAttempts: 3,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply merges env into the user's documents as one batch. Conflicting
// concurrent writes are detected by revision and the whole turn is re-read
// and re-merged.
func (r *Reconciler) Apply(ctx context.Context, uid string, env *models.Envelope, meta Meta) (*Summary, error) {
	if uid == "" {
		return nil, models.NewError(models.KindAuth, "reconcile", models.ErrUnauthenticated)
	}
	if !env.HasExtraction() {
		return newSummary(meta.Confidence), nil
	}
	log := logger.ForUser(uid, meta.SessionID)

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		snap, err := r.loader.Load(ctx, uid)
		if err != nil {
			return nil, err
		}
		t := r.newTurn(snap, meta, log)
		t.run(env)
		if len(t.ops) == 0 {
			log.Info("extraction produced no changes", zap.Any("counts", t.sum.Counts))
			return t.sum, nil
		}

		err = r.gw.Batch(ctx, t.ops)
		if err == nil {
			log.Info("reconciled extraction",
				zap.Any("updated_sections", t.sum.UpdatedSections),
				zap.Int("operations", len(t.ops)),
				zap.Int("attempt", attempt))
			return t.sum, nil
		}
		if !errors.Is(err, models.ErrConflict) {
			log.Error("failed to commit extraction", zap.Error(err))
			if models.KindOf(err) == "" {
				err = models.NewError(models.KindPersistence, "reconcile", err)
			}
			return nil, err
		}
		lastErr = err
		log.Warn("revision conflict while reconciling, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return nil, models.NewError(models.KindPersistence, "reconcile",
		fmt.Errorf("gave up after %d attempts: %w", r.maxAttempts, lastErr))
}

// MergeFinancial applies a standalone confidence-gated financial update.
func (r *Reconciler) MergeFinancial(ctx context.Context, uid string, update *models.FinancialUpdate, confidence float64, source string) (*Summary, error) {
	if update == nil {
		return nil, models.Errorf(models.KindValidation, "merge financial", "financial data is required")
	}
	if err := schema.Struct("merge financial", update); err != nil {
		return nil, models.NewError(models.KindValidation, "merge financial", err)
	}
	if confidence < 0 || confidence > 1 {
		return nil, models.Errorf(models.KindValidation, "merge financial", "confidence must be within [0,1]")
	}
	if source == "" {
		source = SourceMerge
	}
	return r.Apply(ctx, uid, &models.Envelope{FinancialInfo: update}, Meta{
		Source:     source,
		Confidence: confidence,
		SmartMerge: true,
	})
}

// Counts tallies what happened to one section.
type Counts struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Edited  int `json:"edited"`
	Deleted int `json:"deleted"`
	Missing int `json:"missing"`
	Invalid int `json:"invalid"`
}

// Summary reports the outcome of one reconciliation.
type Summary struct {
	UpdatedSections map[string]bool    `json:"updatedSections"`
	Confidence      float64            `json:"confidence"`
	Counts          map[string]*Counts `json:"counts"`
	Warnings        []string           `json:"warnings"`
	Notices         []string           `json:"notices"`
}

func newSummary(confidence float64) *Summary {
	return &Summary{
		UpdatedSections: map[string]bool{},
		Confidence:      confidence,
		Counts:          map[string]*Counts{},
	}
}

func (s *Summary) count(section string) *Counts {
	c, ok := s.Counts[section]
	if !ok {
		c = &Counts{}
		s.Counts[section] = c
	}
	return c
}

func (s *Summary) Changed() bool {
	return s != nil && len(s.UpdatedSections) > 0
}

// UserMessage lists limit warnings ahead of success confirmations.
func (s *Summary) UserMessage() string {
	if s == nil {
		return ""
	}
	lines := make([]string, 0, len(s.Warnings)+len(s.Notices))
	for _, w := range s.Warnings {
		lines = append(lines, "⚠️ "+w)
	}
	for _, n := range s.Notices {
		lines = append(lines, "✅ "+n)
	}
	return strings.Join(lines, "\n")
}
