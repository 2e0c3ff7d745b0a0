// Package routing decides per message whether a chat turn needs the user's
// financial context, and serves generic answers from cache when it can.
package routing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/llm"
	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/usercontext"
)

const (
	DefaultFAQThreshold      = 0.8
	DefaultSemanticThreshold = 0.92

	// Rough prompt sizes used for the tokens-saved estimate.
	fullPromptTokens    = 1800
	generalPromptTokens = 250
	semanticTimeout     = 2 * time.Second
)

// Decision is the advisory routing record for one message.
type Decision struct {
	MessageType          models.MessageType
	ResponseSource       models.ResponseSource
	UsedUserData         bool
	EstimatedTokensSaved int
	// CachedAnswer is set when ResponseSource is cache.
	CachedAnswer string
	Reason       string
}

func (d Decision) Info() *models.RoutingInfo {
	return &models.RoutingInfo{
		MessageType:          d.MessageType,
		ResponseSource:       d.ResponseSource,
		UsedUserData:         d.UsedUserData,
		EstimatedTokensSaved: d.EstimatedTokensSaved,
	}
}

// Personalized is the decision used whenever classification cannot be trusted.
func Personalized(reason string) Decision {
	return Decision{
		MessageType:    models.MessagePersonalized,
		ResponseSource: models.SourcePrompt,
		UsedUserData:   true,
		Reason:         reason,
	}
}

type AnswerCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, answer string)
}

type SemanticIndex interface {
	Nearest(ctx context.Context, vector []float32, threshold float32) (string, float32, bool, error)
	Put(ctx context.Context, question, answer string, vector []float32) error
}

type Router struct {
	faq               *faqIndex
	faqThreshold      float64
	answers           AnswerCache
	embedder          llm.Embedder
	index             SemanticIndex
	semanticThreshold float32
}

type Option func(*Router)

func WithFAQ(entries []FAQEntry) Option {
	return func(r *Router) { r.faq = newFAQIndex(entries) }
}

func WithFAQThreshold(t float64) Option {
	return func(r *Router) {
		if t > 0 && t <= 1 {
			r.faqThreshold = t
		}
	}
}

func WithAnswerCache(c AnswerCache) Option { return func(r *Router) { r.answers = c } }

// WithSemanticCache enables embedding lookups. Both collaborators are required.
func WithSemanticCache(e llm.Embedder, idx SemanticIndex, threshold float64) Option {
	return func(r *Router) {
		if e == nil || idx == nil {
			return
		}
		r.embedder, r.index = e, idx
		if threshold > 0 && threshold <= 1 {
			r.semanticThreshold = float32(threshold)
		}
	}
}

func New(opts ...Option) *Router {
	r := &Router{
		faq:               newFAQIndex(DefaultFAQ),
		faqThreshold:      DefaultFAQThreshold,
		semanticThreshold: DefaultSemanticThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route classifies message. snap may be nil when the profile was not
// pre-fetched; weak personal phrasing then routes to the general path.
func (r *Router) Route(ctx context.Context, message string, snap *usercontext.Snapshot) Decision {
	norm := Normalize(message)
	kind := classify(message, norm)
	saved := r.savedTokens(snap)

	if answer, ok := r.faq.lookup(norm, r.faqThreshold, kind != intentPersonal); ok {
		return cached(answer, saved, "faq")
	}
	if kind != intentPersonal {
		if answer, ok := r.cacheLookup(ctx, norm); ok {
			return cached(answer, saved, "answer cache")
		}
		if answer, ok := r.semanticLookup(ctx, norm); ok {
			return cached(answer, saved, "semantic cache")
		}
	}

	switch {
	case kind == intentPersonal:
		return Personalized("personal phrasing")
	case kind == intentWeakPersonal && snap.HasFinancialData():
		return Personalized("advice question with user data on file")
	}
	reason := "no personal signal"
	switch kind {
	case intentDefinitional:
		reason = "definitional phrasing"
	case intentWeakPersonal:
		reason = "advice question without user data"
	}
	return Decision{
		MessageType:          models.MessageGeneric,
		ResponseSource:       models.SourceGeneral,
		EstimatedTokensSaved: saved - generalPromptTokens,
		Reason:               reason,
	}
}

// Remember stores a general-path answer so the next identical or similar
// question is served from cache.
func (r *Router) Remember(ctx context.Context, message, answer string) {
	norm := Normalize(message)
	if norm == "" || answer == "" {
		return
	}
	if r.answers != nil {
		r.answers.Set(ctx, norm, answer)
	}
	if r.index == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, semanticTimeout)
	defer cancel()
	vec, err := r.embedder.Embed(ctx, norm)
	if err != nil {
		logger.Get().Warn("failed to embed answer for semantic cache", zap.Error(err))
		return
	}
	if err := r.index.Put(ctx, norm, answer, vec); err != nil {
		logger.Get().Warn("failed to store semantic cache entry", zap.Error(err))
	}
}

func (r *Router) cacheLookup(ctx context.Context, norm string) (string, bool) {
	if r.answers == nil || norm == "" {
		return "", false
	}
	return r.answers.Get(ctx, norm)
}

func (r *Router) semanticLookup(ctx context.Context, norm string) (string, bool) {
	if r.index == nil || norm == "" {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, semanticTimeout)
	defer cancel()
	vec, err := r.embedder.Embed(ctx, norm)
	if err != nil {
		logger.Get().Warn("semantic cache embedding failed", zap.Error(err))
		return "", false
	}
	answer, score, ok, err := r.index.Nearest(ctx, vec, r.semanticThreshold)
	if err != nil {
		logger.Get().Warn("semantic cache lookup failed", zap.Error(err))
		return "", false
	}
	if ok {
		logger.Get().Debug("semantic cache hit", zap.Float32("score", score))
	}
	return answer, ok
}

func (r *Router) savedTokens(snap *usercontext.Snapshot) int {
	n := fullPromptTokens
	if snap != nil {
		n += EstimateTokens(snap.Summary())
	}
	return n
}

func cached(answer string, saved int, reason string) Decision {
	return Decision{
		MessageType:          models.MessageGeneric,
		ResponseSource:       models.SourceCache,
		EstimatedTokensSaved: saved,
		CachedAnswer:         answer,
		Reason:               reason,
	}
}
