// Package chat runs one chat turn: sanitise, route, build context, complete,
// reconcile, log and respond.
package chat

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/jsonx"
	"github.com/qiuethan/RT1M-sub001/llm"
	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/schema"
)

const (
	ApologyMessage = "I apologize, but I'm experiencing technical difficulties. Please try rephrasing your question about financial planning."
	SafeApology    = "I apologize, but I'm having trouble processing your request. Please try rephrasing your question about financial planning."

	DefaultHistoryTurns = 5
	DefaultLLMTimeout   = 30 * time.Second
)

// TurnInput is everything the model sees for one turn.
type TurnInput struct {
	UserID         string
	SessionID      string
	Message        string
	History        []models.Turn
	ContextSummary string
}

// Outcome describes how the envelope was obtained.
type Outcome struct {
	Fallback   bool
	Reason     string
	Raw        string
	Confidence float64
	Latency    time.Duration
}

type Orchestrator struct {
	llm          llm.Completer
	model        string
	timeout      time.Duration
	historyTurns int
}

func NewOrchestrator(c llm.Completer, model string, timeout time.Duration, historyTurns int) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultLLMTimeout
	}
	if historyTurns <= 0 || historyTurns > DefaultHistoryTurns {
		historyTurns = DefaultHistoryTurns
	}
	return &Orchestrator{llm: c, model: model, timeout: timeout, historyTurns: historyTurns}
}

// Complete makes one model round trip. It never returns an error: model
// failures and unparseable output both yield a fallback envelope.
func (o *Orchestrator) Complete(ctx context.Context, in TurnInput) (*models.Envelope, Outcome) {
	log := logger.ForUser(in.UserID, in.SessionID)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()

	start := time.Now()
	raw, err := o.llm.Complete(ctx, llm.CompletionRequest{
		Model:       o.model,
		Messages:    buildMessages(in, o.historyTurns),
		Temperature: 0.3,
		MaxTokens:   1500,
		JSON:        true,
	})
	latency := time.Since(start)
	if err != nil {
		log.Error("completion failed, using fallback envelope",
			zap.Duration("latency", latency),
			zap.Error(err))
		return FallbackEnvelope(""), Outcome{Fallback: true, Reason: "completion failed", Latency: latency}
	}

	env, err := parseCompletion(raw)
	if err != nil {
		log.Warn("model output rejected, using fallback envelope",
			zap.String("kind", string(models.KindOf(err))),
			zap.Int("raw_len", len(raw)),
			zap.Error(err))
		return FallbackEnvelope(fallbackMessage(raw)), Outcome{Fallback: true, Reason: "extraction parse", Raw: raw, Latency: latency}
	}
	if strings.TrimSpace(env.Message) == "" {
		env.Message = ApologyMessage
	}
	return env, Outcome{Raw: raw, Confidence: Confidence(env), Latency: latency}
}

func parseCompletion(raw string) (*models.Envelope, error) {
	text := strings.TrimSpace(raw)
	if obj, ok := jsonx.ExtractObject(text); ok {
		text = obj
	}
	return schema.ParseEnvelope([]byte(text))
}

// FallbackEnvelope carries only a message: confirmed-empty assets and debts,
// every other section absent.
func FallbackEnvelope(message string) *models.Envelope {
	if strings.TrimSpace(message) == "" {
		message = ApologyMessage
	}
	return &models.Envelope{
		Message: message,
		Assets:  models.EmptySection[models.AssetCandidate](),
		Debts:   models.EmptySection[models.DebtCandidate](),
	}
}

// fallbackMessage salvages a reply from output that failed validation:
// the "message" field if the text is JSON, the raw text if it is not.
func fallbackMessage(raw string) string {
	text := strings.TrimSpace(raw)
	looksJSON := strings.HasPrefix(text, "{") || strings.HasPrefix(text, "```")
	obj, ok := jsonx.ExtractObject(text)
	if !ok {
		if looksJSON {
			return ""
		}
		return text
	}
	fields, err := jsonx.Object([]byte(obj))
	if err != nil {
		if looksJSON {
			return ""
		}
		return text
	}
	var msg string
	if m, ok := fields["message"]; ok && jsonx.Unmarshal(m, &msg) == nil {
		return strings.TrimSpace(msg)
	}
	return ""
}

// Confidence scores a turn by how much was extracted: none is 0, a single
// section 0.75, rising 0.05 per extra section up to 0.95.
func Confidence(env *models.Envelope) float64 {
	if !env.HasExtraction() {
		return 0
	}
	n := 0
	for _, set := range []bool{
		!env.PersonalInfo.IsZero(),
		len(env.FinancialInfo.Fields()) > 0,
		env.Assets.HasItems(),
		env.Debts.HasItems(),
		env.Goals.HasItems(),
		!env.Skills.IsZero(),
		!env.Operations.IsZero(),
	} {
		if set {
			n++
		}
	}
	c := 0.7 + 0.05*float64(n)
	if c > 0.95 {
		c = 0.95
	}
	return c
}
