package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/reconcile"
	"github.com/qiuethan/RT1M-sub001/routing"
	"github.com/qiuethan/RT1M-sub001/usercontext"
)

const commitTimeout = 15 * time.Second

// ConversationLogger appends one entry per turn. Implementations swallow
// and log their own failures.
type ConversationLogger interface {
	Log(ctx context.Context, entry models.ConversationLog)
}

// Publisher announces that a user's documents changed.
type Publisher interface {
	PublishProfileUpdate(ctx context.Context, ev models.ProfileUpdateEvent) error
}

type Deps struct {
	Router        *routing.Router
	Loader        *usercontext.Loader
	Orchestrator  *Orchestrator
	General       *GeneralAdvisor
	Reconciler    *reconcile.Reconciler
	Conversations ConversationLogger
	Events        Publisher
	Policy        usercontext.PlanSuggestionPolicy
	// MaxInputLength defaults to DefaultMaxInputLength.
	MaxInputLength int
	// SmartMerge gates chat-extracted financial figures on confidence.
	SmartMerge bool
	Now        func() time.Time
}

// Service is the full chat pipeline. It holds no per-user state.
type Service struct {
	d Deps
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MaxInputLength <= 0 {
		d.MaxInputLength = DefaultMaxInputLength
	}
	return &Service{d: d}
}

// Handle runs one chat turn for uid. The returned response is always
// non-nil; a non-nil error carries the taxonomy kind of the failure and the
// response then reports success=false with an apology.
func (s *Service) Handle(ctx context.Context, uid string, req models.ChatRequest) (*models.ChatResponse, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	resp := &models.ChatResponse{
		SessionID:     sessionID,
		ExtractedData: map[string]bool{},
		Timestamp:     s.d.Now().UTC(),
	}
	if uid == "" {
		resp.Message = SafeApology
		return resp, models.NewError(models.KindAuth, "chat", models.ErrUnauthenticated)
	}
	log := logger.ForUser(uid, sessionID)

	msg, err := Sanitize(req.Message, s.d.MaxInputLength)
	if err != nil {
		log.Warn("chat input rejected", zap.Bool("unsafe", errors.Is(err, ErrUnsafeInput)), zap.Error(err))
		resp.Message = SafeApology
		return resp, err
	}

	snap, err := s.d.Loader.Load(ctx, uid)
	if err != nil {
		log.Error("failed to load user context", zap.Error(err))
		resp.Message = ApologyMessage
		return resp, persistence(err)
	}

	decision := s.route(ctx, msg, snap)
	resp.Routing = decision.Info()
	log.Info("routed chat message",
		zap.String("message_type", string(decision.MessageType)),
		zap.String("response_source", string(decision.ResponseSource)),
		zap.String("reason", decision.Reason),
		zap.Int("estimated_tokens_saved", decision.EstimatedTokensSaved))

	entry := models.ConversationLog{
		UserID:          uid,
		SessionID:       sessionID,
		UserMessage:     msg,
		UpdatedSections: map[string]bool{},
		Routing:         *resp.Routing,
		ClientTimestamp: req.ClientTimestamp,
		Timestamp:       resp.Timestamp,
	}

	switch decision.ResponseSource {
	case models.SourceCache:
		resp.Message = decision.CachedAnswer
	case models.SourceGeneral:
		answer, err := s.d.General.Answer(ctx, msg, req.ConversationHistory)
		if err != nil {
			log.Warn("general advice failed", zap.Error(err))
		} else {
			s.d.Router.Remember(ctx, msg, answer)
		}
		resp.Message = answer
	default:
		if err := s.personalized(ctx, uid, sessionID, msg, req.ConversationHistory, snap, resp, &entry); err != nil {
			entry.AIResponse = resp.Message
			s.logConversation(ctx, entry)
			return resp, err
		}
	}

	resp.Success = true
	entry.Success = true
	entry.AIResponse = resp.Message
	entry.Confidence = resp.Confidence
	s.logConversation(ctx, entry)
	return resp, nil
}

func (s *Service) route(ctx context.Context, msg string, snap *usercontext.Snapshot) (d routing.Decision) {
	defer func() {
		if r := recover(); r != nil {
			logger.Get().Error("router panicked, defaulting to personalized", zap.Any("panic", r))
			d = routing.Personalized("router failure")
		}
	}()
	return s.d.Router.Route(ctx, msg, snap)
}

func (s *Service) personalized(ctx context.Context, uid, sessionID, msg string, history []models.Turn,
	snap *usercontext.Snapshot, resp *models.ChatResponse, entry *models.ConversationLog) error {
	log := logger.ForUser(uid, sessionID)

	env, outcome := s.d.Orchestrator.Complete(ctx, TurnInput{
		UserID:         uid,
		SessionID:      sessionID,
		Message:        msg,
		History:        history,
		ContextSummary: snap.Summary(),
	})
	entry.ExtractedData = extractedData(env)
	resp.Message = env.Message
	resp.Confidence = outcome.Confidence
	if outcome.Fallback {
		entry.ExtractedData["fallback"] = outcome.Reason
	}

	if env.HasExtraction() {
		// A client disconnect must not split or abort the turn's writes.
		commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
		defer cancel()
		sum, err := s.d.Reconciler.Apply(commitCtx, uid, env, reconcile.Meta{
			Source:     reconcile.SourceChat,
			Confidence: outcome.Confidence,
			SessionID:  sessionID,
			SmartMerge: s.d.SmartMerge,
		})
		if err != nil {
			log.Error("failed to apply extraction", zap.Error(err))
			resp.Message = ApologyMessage
			resp.Confidence = 0
			return persistence(err)
		}
		resp.ExtractedData = sum.UpdatedSections
		entry.UpdatedSections = sum.UpdatedSections
		if note := sum.UserMessage(); note != "" {
			resp.Message = strings.TrimSpace(resp.Message) + "\n\n" + note
		}
		if sum.Changed() {
			s.publish(commitCtx, uid, sessionID, sum)
			if fresh, err := s.d.Loader.Load(commitCtx, uid); err == nil {
				snap = fresh
			} else {
				log.Warn("failed to reload context for readiness", zap.Error(err))
			}
		}
	}
	resp.SuggestPlanGeneration = s.d.Policy.Suggest(snap.Ready())
	return nil
}

func (s *Service) publish(ctx context.Context, uid, sessionID string, sum *reconcile.Summary) {
	if s.d.Events == nil {
		return
	}
	err := s.d.Events.PublishProfileUpdate(ctx, models.ProfileUpdateEvent{
		UserID:          uid,
		SessionID:       sessionID,
		Source:          reconcile.SourceChat,
		UpdatedSections: sum.UpdatedSections,
		Confidence:      sum.Confidence,
		Message:         sum.UserMessage(),
		Timestamp:       s.d.Now().UnixMilli(),
	})
	if err != nil {
		logger.ForUser(uid, sessionID).Warn("failed to publish profile update", zap.Error(err))
	}
}

func (s *Service) logConversation(ctx context.Context, entry models.ConversationLog) {
	if s.d.Conversations == nil {
		return
	}
	s.d.Conversations.Log(context.WithoutCancel(ctx), entry)
}

// extractedData records which sections the model filled in, by presence.
func extractedData(env *models.Envelope) map[string]any {
	out := map[string]any{}
	if !env.PersonalInfo.IsZero() {
		out[reconcile.SectionPersonalInfo] = env.PersonalInfo
	}
	if f := env.FinancialInfo.Fields(); len(f) > 0 {
		out[reconcile.SectionFinancialInfo] = f
	}
	if env.Assets.IsSet() {
		out[reconcile.SectionAssets] = env.Assets.Items
	}
	if env.Debts.IsSet() {
		out[reconcile.SectionDebts] = env.Debts.Items
	}
	if env.Goals.HasItems() {
		out[reconcile.SectionGoals] = env.Goals.Items
	}
	if !env.Skills.IsZero() {
		out[reconcile.SectionSkills] = env.Skills
	}
	if !env.Operations.IsZero() {
		out["operations"] = env.Operations
	}
	return out
}

func persistence(err error) error {
	if models.KindOf(err) != "" {
		return err
	}
	return models.NewError(models.KindPersistence, "chat", err)
}
