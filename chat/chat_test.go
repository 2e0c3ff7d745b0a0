package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiuethan/RT1M-sub001/cache"
	"github.com/qiuethan/RT1M-sub001/llm"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/reconcile"
	"github.com/qiuethan/RT1M-sub001/routing"
	"github.com/qiuethan/RT1M-sub001/store"
	"github.com/qiuethan/RT1M-sub001/usercontext"
)

// scripted returns its replies in order and records every request.
type scripted struct {
	mu      sync.Mutex
	replies []string
	err     error
	reqs    []llm.CompletionRequest
}

func (s *scripted) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	out := s.replies[0]
	s.replies = s.replies[1:]
	return out, nil
}

type blocking struct{}

func (blocking) Complete(ctx context.Context, _ llm.CompletionRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type events struct {
	got []models.ProfileUpdateEvent
}

func (e *events) PublishProfileUpdate(_ context.Context, ev models.ProfileUpdateEvent) error {
	e.got = append(e.got, ev)
	return nil
}

type fixture struct {
	svc   *Service
	gw    *store.Memory
	model *scripted
	cheap *scripted
	convs *store.Conversations
	ev    *events
}

func newFixture(t *testing.T, suggest float64) *fixture {
	t.Helper()
	gw := store.NewMemory()
	answers, err := cache.New(0, 0, nil)
	require.NoError(t, err)
	t.Cleanup(answers.Close)
	fx := &fixture{gw: gw, model: &scripted{}, cheap: &scripted{}, convs: &store.Conversations{}, ev: &events{}}
	fx.svc = NewService(Deps{
		Router:        routing.New(routing.WithAnswerCache(answers)),
		Loader:        usercontext.NewLoader(gw),
		Orchestrator:  NewOrchestrator(fx.model, "gpt-4o", time.Second, 5),
		General:       NewGeneralAdvisor(fx.cheap, "gpt-4o-mini", 0),
		Reconciler:    reconcile.New(gw),
		Conversations: fx.convs,
		Events:        fx.ev,
		Policy:        usercontext.PlanSuggestionPolicy{Probability: suggest, Rand: func() float64 { return 0.5 }},
	})
	return fx
}

func TestSanitize(t *testing.T) {
	msg, err := Sanitize("  I make $80k a year  ", 0)
	require.NoError(t, err)
	assert.Equal(t, "I make $80k a year", msg)

	for _, bad := range []string{
		"",
		"   ",
		strings.Repeat("a ", 1001),
		"my api_key is hunter2",
		"my api key is abc",
		"here is my API-Key",
		"use Bearer abc123",
		"<script>alert(1)</script>",
		"call http://localhost:8080 now",
		"sk1234567890abcdefghijklmnop",
	} {
		_, err := Sanitize(bad, 0)
		require.Error(t, err, bad)
		assert.True(t, models.IsKind(err, models.KindValidation), bad)
	}
	_, err = Sanitize("my password is 1234", 0)
	assert.ErrorIs(t, err, ErrUnsafeInput)
}

func TestCompleteParsesEnvelope(t *testing.T) {
	c := &scripted{replies: []string{"```json\n" + `{"message":"Nice!","assets":[{"name":"TFSA","type":"savings","value":10000}],"goals":null}` + "\n```"}}
	env, out := NewOrchestrator(c, "m", time.Second, 5).Complete(context.Background(), TurnInput{
		Message:        "I have 10k in a TFSA",
		ContextSummary: "ASSETS:\n- not yet provided",
		History: []models.Turn{
			{User: "1", Assistant: "a"}, {User: "2", Assistant: "b"}, {User: "3", Assistant: "c"},
			{User: "4", Assistant: "d"}, {User: "5", Assistant: "e"}, {User: "6", Assistant: "f"},
		},
	})
	assert.False(t, out.Fallback)
	assert.Equal(t, "Nice!", env.Message)
	require.True(t, env.Assets.HasItems())
	assert.Equal(t, models.Absent, env.Goals.State)
	assert.InDelta(t, 0.75, out.Confidence, 1e-9)

	req := c.reqs[0]
	assert.True(t, req.JSON)
	// system prompt, context, five turns of two messages, then the user message
	require.Len(t, req.Messages, 2+10+1)
	assert.Equal(t, "2", req.Messages[2].Content)
	assert.Contains(t, req.Messages[0].Content, "TFSA, GIC, savings account")
	assert.Contains(t, req.Messages[0].Content, `"credit-card"`)
	assert.Contains(t, req.Messages[1].Content, "ASSETS:")
}

func TestCompleteNonJSONFallsBack(t *testing.T) {
	c := &scripted{replies: []string{"I think you should save more."}}
	env, out := NewOrchestrator(c, "m", time.Second, 5).Complete(context.Background(), TurnInput{Message: "hi"})
	assert.True(t, out.Fallback)
	assert.Equal(t, "I think you should save more.", env.Message)
	assert.Equal(t, models.Empty, env.Assets.State)
	assert.Equal(t, models.Empty, env.Debts.State)
	assert.Equal(t, models.Absent, env.Goals.State)
	assert.Nil(t, env.FinancialInfo)
	assert.Nil(t, env.Skills)
	assert.False(t, env.HasExtraction())
}

func TestCompleteInvalidEnvelopeKeepsMessage(t *testing.T) {
	c := &scripted{replies: []string{`{"message":"Got it.","assets":[{"name":"Boat","type":"other","value":1,"id":"a1"}]}`}}
	env, out := NewOrchestrator(c, "m", time.Second, 5).Complete(context.Background(), TurnInput{Message: "hi"})
	assert.True(t, out.Fallback)
	assert.Equal(t, "Got it.", env.Message)
	assert.False(t, env.HasExtraction())

	c = &scripted{replies: []string{`{"message": "", "goals": []`}}
	env, _ = NewOrchestrator(c, "m", time.Second, 5).Complete(context.Background(), TurnInput{Message: "hi"})
	assert.Equal(t, ApologyMessage, env.Message)
}

func TestCompleteEmptyMessageGetsApology(t *testing.T) {
	c := &scripted{replies: []string{`{"message":"   ","financialInfo":{"annualIncome":50000}}`}}
	env, out := NewOrchestrator(c, "m", time.Second, 5).Complete(context.Background(), TurnInput{Message: "hi"})
	assert.False(t, out.Fallback)
	assert.Equal(t, ApologyMessage, env.Message)
	assert.Equal(t, 50000.0, *env.FinancialInfo.AnnualIncome)
}

func TestCompleteTimeoutFallsBack(t *testing.T) {
	env, out := NewOrchestrator(blocking{}, "m", 20*time.Millisecond, 5).Complete(context.Background(), TurnInput{Message: "hi"})
	assert.True(t, out.Fallback)
	assert.Equal(t, ApologyMessage, env.Message)
}

func TestCompleteIgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &scripted{replies: []string{`{"message":"still here"}`}}
	env, out := NewOrchestrator(c, "m", time.Second, 5).Complete(ctx, TurnInput{Message: "hi"})
	assert.False(t, out.Fallback)
	assert.Equal(t, "still here", env.Message)
}

func TestGeneralAdvisorTruncates(t *testing.T) {
	long := strings.Repeat("é", 1200)
	g := NewGeneralAdvisor(&scripted{replies: []string{long}}, "m", 0)
	out, err := g.Answer(context.Background(), "what is a bond", nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 1000)+"...", out)

	out, err = NewGeneralAdvisor(&scripted{err: errors.New("down")}, "m", 0).Answer(context.Background(), "x", nil)
	assert.Error(t, err)
	assert.Equal(t, GeneralFallback, out)
}

func TestHandleRequiresUser(t *testing.T) {
	fx := newFixture(t, 0)
	resp, err := fx.svc.Handle(context.Background(), "", models.ChatRequest{Message: "hi"})
	assert.True(t, models.IsKind(err, models.KindAuth))
	assert.False(t, resp.Success)
	assert.Empty(t, fx.model.reqs)
}

func TestHandleRejectsBadInputBeforeModel(t *testing.T) {
	fx := newFixture(t, 0)
	resp, err := fx.svc.Handle(context.Background(), "u1", models.ChatRequest{Message: "my api key is abc"})
	assert.True(t, models.IsKind(err, models.KindValidation))
	assert.False(t, resp.Success)
	assert.Equal(t, SafeApology, resp.Message)
	assert.Empty(t, fx.model.reqs)
	assert.Empty(t, fx.cheap.reqs)
}

func TestHandleCachedFAQ(t *testing.T) {
	fx := newFixture(t, 0)
	resp, err := fx.svc.Handle(context.Background(), "u1", models.ChatRequest{Message: "What is a 401k?", SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, models.SourceCache, resp.Routing.ResponseSource)
	assert.False(t, resp.Routing.UsedUserData)
	assert.Empty(t, fx.model.reqs)
	assert.Empty(t, fx.cheap.reqs)

	entries := fx.convs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "s1", entries[0].SessionID)
	assert.Equal(t, resp.Message, entries[0].AIResponse)
}

func TestHandleGeneralPathCachesAnswer(t *testing.T) {
	fx := newFixture(t, 0)
	fx.cheap.replies = []string{"A HELOC is a line of credit secured by your home."}
	ctx := context.Background()

	resp, err := fx.svc.Handle(ctx, "u1", models.ChatRequest{Message: "Explain how a HELOC works"})
	require.NoError(t, err)
	assert.Equal(t, models.SourceGeneral, resp.Routing.ResponseSource)
	assert.NotEmpty(t, resp.SessionID)

	resp, err = fx.svc.Handle(ctx, "u2", models.ChatRequest{Message: "explain how a heloc works?"})
	require.NoError(t, err)
	assert.Equal(t, models.SourceCache, resp.Routing.ResponseSource)
	assert.Equal(t, "A HELOC is a line of credit secured by your home.", resp.Message)
	assert.Len(t, fx.cheap.reqs, 1)
}

func TestHandlePersonalizedExtractsAndReconciles(t *testing.T) {
	fx := newFixture(t, 1)
	fx.model.replies = []string{`{"message":"Great start!","personalInfo":{"name":"Sam","age":31},
		"financialInfo":{"annualIncome":85000},"assets":[{"name":"TFSA","type":"savings","value":10000}],
		"goals":[{"title":"Emergency fund","type":"financial","targetAmount":20000}]}`}

	resp, err := fx.svc.Handle(context.Background(), "u1", models.ChatRequest{
		Message: "I'm Sam, 31, I make $85,000 and have $10k in my TFSA. I want an emergency fund of 20k.",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, models.SourcePrompt, resp.Routing.ResponseSource)
	assert.True(t, resp.Routing.UsedUserData)
	assert.True(t, resp.ExtractedData[reconcile.SectionAssets])
	assert.True(t, resp.ExtractedData[reconcile.SectionGoals])
	assert.True(t, resp.ExtractedData[reconcile.SectionFinancialInfo])
	assert.True(t, strings.HasPrefix(resp.Message, "Great start!\n\n✅ "))
	assert.Greater(t, resp.Confidence, 0.0)
	assert.True(t, resp.SuggestPlanGeneration)

	require.Len(t, fx.ev.got, 1)
	assert.Equal(t, "u1", fx.ev.got[0].UserID)

	snap, err := usercontext.NewLoader(fx.gw).Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, snap.Financials.Assets, 1)
	assert.Equal(t, 10000.0, snap.Financials.FinancialInfo.TotalAssets)
	assert.True(t, snap.Ready())

	entries := fx.convs.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
	assert.True(t, entries[0].UpdatedSections[reconcile.SectionAssets])
	assert.Contains(t, entries[0].ExtractedData, reconcile.SectionAssets)
}

func TestHandleInvalidGoalKeepsRestOfTurn(t *testing.T) {
	fx := newFixture(t, 0)
	fx.model.replies = []string{`{"message":"Noted.","financialInfo":{"annualIncome":90000},
		"assets":[{"name":"TFSA","type":"savings","value":10000}],
		"goals":[{"title":"Emergency fund","type":"financial"},{"title":"Get promoted","type":"career"}]}`}

	resp, err := fx.svc.Handle(context.Background(), "u1", models.ChatRequest{
		Message: "I make $90,000 and have $10k in my TFSA. I want an emergency fund and a promotion.",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.ExtractedData[reconcile.SectionAssets])
	assert.True(t, resp.ExtractedData[reconcile.SectionGoals])

	snap, err := usercontext.NewLoader(fx.gw).Load(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, snap.Financials.Assets, 1)
	assert.Equal(t, "TFSA", snap.Financials.Assets[0].Name)
	assert.Equal(t, 90000.0, *snap.Financials.FinancialInfo.AnnualIncome)
	require.Len(t, snap.Goals.IntermediateGoals, 1)
	assert.Equal(t, "Emergency fund", snap.Goals.IntermediateGoals[0].Title)
}

func TestHandleParseFailureStillSucceeds(t *testing.T) {
	fx := newFixture(t, 0)
	fx.model.replies = []string{"I think you should save more."}
	resp, err := fx.svc.Handle(context.Background(), "u1", models.ChatRequest{Message: "Can I afford a new car on my salary?"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "I think you should save more.", resp.Message)
	assert.Empty(t, resp.ExtractedData)
	assert.Equal(t, "extraction parse", fx.convs.Entries()[0].ExtractedData["fallback"])
}

func TestHandlePersistenceFailure(t *testing.T) {
	fx := newFixture(t, 0)
	fx.gw.BeforeCommit = func([]store.Operation) error { return errors.New("unavailable") }
	fx.model.replies = []string{`{"message":"Noted.","debts":[{"name":"Visa","type":"credit-card","balance":4000}]}`}

	resp, err := fx.svc.Handle(context.Background(), "u1", models.ChatRequest{Message: "I owe $4000 on my Visa"})
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindPersistence))
	assert.False(t, resp.Success)
	assert.Equal(t, ApologyMessage, resp.Message)
	assert.Empty(t, fx.ev.got)

	entries := fx.convs.Entries()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
}

func TestHandleLimitWarningPrecedesNotice(t *testing.T) {
	fx := newFixture(t, 0)
	ctx := context.Background()
	var b strings.Builder
	b.WriteString(`{"message":"Added.","assets":[`)
	for i := 0; i < 11; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"name":"Account ` + string(rune('A'+i)) + `","type":"savings","value":100}`)
	}
	b.WriteString(`]}`)
	fx.model.replies = []string{b.String()}

	resp, err := fx.svc.Handle(ctx, "u1", models.ChatRequest{Message: "I have 11 savings accounts with $100 each"})
	require.NoError(t, err)
	warn := strings.Index(resp.Message, "⚠️")
	ok := strings.Index(resp.Message, "✅")
	require.GreaterOrEqual(t, warn, 0)
	assert.Less(t, warn, ok)
	assert.Contains(t, resp.Message, "maximum of 10 assets")
}
