package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/qiuethan/RT1M-sub001/llm"
	"github.com/qiuethan/RT1M-sub001/models"
)

const (
	GeneralFallback = "I'm experiencing technical difficulties. For general financial advice, I'd recommend starting with creating a budget and setting clear financial goals."

	DefaultGeneralMaxChars = 1000
	generalTimeout         = 20 * time.Second
)

const generalPrompt = `You are a helpful financial advisor providing general financial education and advice.

Guidelines:
- Provide helpful, educational financial advice in clear, simple language.
- Don't ask for personal information and don't assume anything about the user's situation.
- Focus on general principles and strategies. Be encouraging and supportive.
- If someone asks for personalized advice, suggest they share more details about their situation.

You can help with budgeting basics, saving strategies, investment principles, debt management,
financial planning concepts, general market information, and financial terms.

Keep responses concise but informative.`

// GeneralAdvisor answers generic questions on a cheaper model without any
// user context.
type GeneralAdvisor struct {
	llm          llm.Completer
	model        string
	maxChars     int
	historyTurns int
}

func NewGeneralAdvisor(c llm.Completer, model string, maxChars int) *GeneralAdvisor {
	if maxChars <= 0 {
		maxChars = DefaultGeneralMaxChars
	}
	return &GeneralAdvisor{llm: c, model: model, maxChars: maxChars, historyTurns: DefaultHistoryTurns}
}

// Answer returns GeneralFallback together with the error when the model call fails.
func (g *GeneralAdvisor) Answer(ctx context.Context, message string, history []models.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), generalTimeout)
	defer cancel()

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: generalPrompt}}
	msgs = append(msgs, historyMessages(recentTurns(history, g.historyTurns))...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	out, err := g.llm.Complete(ctx, llm.CompletionRequest{
		Model:       g.model,
		Messages:    msgs,
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err != nil {
		return GeneralFallback, err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return GeneralFallback, errors.New("general advice completion was empty")
	}
	return truncate(out, g.maxChars), nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
