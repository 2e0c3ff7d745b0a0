package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiuethan/RT1M-sub001/cache"
	"github.com/qiuethan/RT1M-sub001/chat"
	"github.com/qiuethan/RT1M-sub001/jsonx"
	"github.com/qiuethan/RT1M-sub001/llm"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/reconcile"
	"github.com/qiuethan/RT1M-sub001/routing"
	"github.com/qiuethan/RT1M-sub001/sse"
	"github.com/qiuethan/RT1M-sub001/store"
	"github.com/qiuethan/RT1M-sub001/usercontext"
)

const (
	testSecret   = "test-secret"
	testSupabase = "https://example.supabase.co"
	testKey      = "internal-key"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type scripted struct {
	mu      sync.Mutex
	replies []string
}

func (s *scripted) Complete(context.Context, llm.CompletionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	out := s.replies[0]
	s.replies = s.replies[1:]
	return out, nil
}

type fakeSessions struct {
	sessions map[uuid.UUID]*models.Session
}

func (f *fakeSessions) CreateSession(_ context.Context, userID, title string) (*models.Session, error) {
	s := &models.Session{ID: uuid.New(), UserID: userID, Title: title, CreatedAt: time.Now()}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeSessions) ListSessions(_ context.Context, userID string) ([]*models.Session, error) {
	var out []*models.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessions) GetSession(_ context.Context, id uuid.UUID, userID string) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok || s.UserID != userID {
		return nil, models.NewError(models.KindNotFound, "get session", models.ErrNotFound)
	}
	return s, nil
}

func (f *fakeSessions) DeleteSession(_ context.Context, id uuid.UUID, userID string) error {
	if _, err := f.GetSession(context.Background(), id, userID); err != nil {
		return err
	}
	delete(f.sessions, id)
	return nil
}

type fakeItems struct {
	statuses map[string]string
}

func (f *fakeItems) CreatePlaidItem(_ context.Context, userID, _, itemID string) (*models.PlaidItem, error) {
	f.statuses[itemID] = "active"
	return &models.PlaidItem{UserID: userID, ItemID: itemID, Status: "active"}, nil
}

func (f *fakeItems) GetPlaidItemsByUserID(context.Context, string) ([]*models.PlaidItem, error) {
	return nil, nil
}

func (f *fakeItems) UpdatePlaidItemStatus(_ context.Context, itemID, status string) error {
	f.statuses[itemID] = status
	return nil
}

type fakeLinker struct{}

func (fakeLinker) CreateLinkToken(context.Context, string) (string, error) { return "link-sandbox", nil }

func (fakeLinker) ExchangePublicToken(context.Context, string) (string, string, error) {
	return "access-sandbox", "item-1", nil
}

func (fakeLinker) RemoveItem(context.Context, string) error { return nil }

type bankJobs struct {
	got []models.BankSyncJob
}

func (b *bankJobs) PublishBankSync(_ context.Context, job models.BankSyncJob) error {
	b.got = append(b.got, job)
	return nil
}

type fixture struct {
	router *gin.Engine
	h      *Handler
	gw     *store.Memory
	model  *scripted
	convs  *store.Conversations
	items  *fakeItems
	jobs   *bankJobs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := store.NewMemory()
	answers, err := cache.New(0, 0, nil)
	require.NoError(t, err)
	t.Cleanup(answers.Close)

	fx := &fixture{
		gw:    gw,
		model: &scripted{},
		convs: &store.Conversations{},
		items: &fakeItems{statuses: map[string]string{}},
		jobs:  &bankJobs{},
	}
	rec := reconcile.New(gw)
	loader := usercontext.NewLoader(gw)
	fx.h = &Handler{
		Chat: chat.NewService(chat.Deps{
			Router:        routing.New(routing.WithAnswerCache(answers)),
			Loader:        loader,
			Orchestrator:  chat.NewOrchestrator(fx.model, "gpt-4o", time.Second, 5),
			General:       chat.NewGeneralAdvisor(fx.model, "gpt-4o-mini", 0),
			Reconciler:    rec,
			Conversations: fx.convs,
		}),
		Loader:      loader,
		Reconciler:  rec,
		Sessions:    &fakeSessions{sessions: map[uuid.UUID]*models.Session{}},
		History:     fx.convs,
		Titles:      fx.model,
		TitleModel:  "gpt-4o-mini",
		Plaid:       fakeLinker{},
		Items:       fx.items,
		BankSync:    fx.jobs,
		Hub:         sse.NewHub(),
		JWTSecret:   testSecret,
		SupabaseURL: testSupabase,
	}
	fx.router = gin.New()
	fx.h.Register(fx.router, RouterOptions{
		FrontendOrigin: "http://localhost:3000",
		InternalAPIKey: testKey,
		PlaidVerifier:  func(c *gin.Context) { c.Next() },
		CacheStats:     answers.Stats,
	})
	return fx
}

func token(t *testing.T, uid string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uid,
		"iss": testSupabase + "/auth/v1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (fx *fixture) do(t *testing.T, method, path, uid, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, uid))
	}
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = jsonx.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestAPIRequiresToken(t *testing.T) {
	fx := newFixture(t)
	w, _ := fx.do(t, http.MethodPost, "/api/chat", "", `{"message":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChatPersonalizedTurn(t *testing.T) {
	fx := newFixture(t)
	fx.model.replies = []string{`{"message":"Nice!","assets":[{"name":"TFSA","type":"savings","value":10000}]}`}

	w, body := fx.do(t, http.MethodPost, "/api/chat", "u1",
		`{"message":"I have $10k saved in my TFSA, what should I do with it?","sessionId":"s1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "s1", body["sessionId"])
	extracted, ok := body["extractedData"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, extracted[reconcile.SectionAssets])

	snap, err := usercontext.NewLoader(fx.gw).Load(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, snap.Financials.Assets, 1)
	assert.Equal(t, "TFSA", snap.Financials.Assets[0].Name)
}

func TestChatRejectsUnsafeInput(t *testing.T) {
	fx := newFixture(t)
	w, body := fx.do(t, http.MethodPost, "/api/chat", "u1", `{"message":"my api_key is hunter2"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, chat.SafeApology, body["message"])
}

func TestChatMissingMessage(t *testing.T) {
	fx := newFixture(t)
	w, body := fx.do(t, http.MethodPost, "/api/chat", "u1", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(models.KindValidation), body["code"])
	assert.Equal(t, chat.SafeApology, body["message"])
	assert.NotContains(t, body, "error")
	assert.NotContains(t, w.Body.String(), "ChatRequest")
}

func TestAIUpdateAppliesEnvelope(t *testing.T) {
	fx := newFixture(t)
	w, body := fx.do(t, http.MethodPost, "/api/ai/update", "u1",
		`{"extractedData":{"debts":[{"name":"Visa","type":"credit-card","balance":1200}]},"confidence":0.9}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sections, ok := body["updatedSections"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, sections[reconcile.SectionDebts])

	w, body = fx.do(t, http.MethodGet, "/api/context", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["hasFinancialData"])
	assert.Contains(t, body["summary"], "Visa")
}

func TestAIUpdateRejectsBadBodies(t *testing.T) {
	fx := newFixture(t)
	for _, body := range []string{
		`{}`,
		`{"extractedData":null}`,
		`{"extractedData":{"assets":[{"name":"x","type":"savings","value":1,"id":"a1"}]}}`,
		`{"extractedData":{"unknown":1}}`,
		`{"extractedData":{},"extra":true}`,
	} {
		w, out := fx.do(t, http.MethodPost, "/api/ai/update", "u1", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, string(models.KindValidation), out["code"], body)
	}
}

func TestFinancialMerge(t *testing.T) {
	fx := newFixture(t)
	w, _ := fx.do(t, http.MethodPost, "/api/ai/financial-merge", "u1",
		`{"financialData":{"annualIncome":90000},"confidence":0.95}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	snap, err := usercontext.NewLoader(fx.gw).Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 90000.0, *snap.Financials.FinancialInfo.AnnualIncome)

	w, _ = fx.do(t, http.MethodPost, "/api/ai/financial-merge", "u1",
		`{"financialData":{"annualIncome":90000},"confidence":3}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlansUnavailableWithoutPlanner(t *testing.T) {
	fx := newFixture(t)
	w, _ := fx.do(t, http.MethodPost, "/api/plans", "u1", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSessions(t *testing.T) {
	fx := newFixture(t)
	fx.model.replies = []string{"Budget basics"}

	w, body := fx.do(t, http.MethodPost, "/api/sessions", "u1", `{"message":"Help me build a budget"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session, ok := body["session"].(map[string]any)
	require.True(t, ok)
	id, _ := session["id"].(string)
	assert.Equal(t, "Budget basics", session["title"])

	w, _ = fx.do(t, http.MethodGet, "/api/sessions/"+id+"/messages", "u2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = fx.do(t, http.MethodGet, "/api/sessions/"+id+"/messages", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["messages"])

	w, _ = fx.do(t, http.MethodGet, "/api/sessions/not-a-uuid/messages", "u1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = fx.do(t, http.MethodDelete, "/api/sessions/"+id, "u1", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteUserReportsFailedStores(t *testing.T) {
	fx := newFixture(t)
	var calls []string
	fx.h.Deleters = []UserDeleter{
		{Name: "mongodb", Delete: func(_ context.Context, uid string) error { calls = append(calls, "mongodb:"+uid); return nil }},
		{Name: "postgres", Delete: func(context.Context, string) error { return errors.New("down") }},
		{Name: "supabase", Delete: func(_ context.Context, uid string) error { calls = append(calls, "supabase:"+uid); return nil }},
	}
	w, body := fx.do(t, http.MethodDelete, "/api/user", "u1", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, []any{"postgres"}, body["failed"])
	assert.Equal(t, []string{"mongodb:u1", "supabase:u1"}, calls)
}

func TestPlaidExchangeQueuesImport(t *testing.T) {
	fx := newFixture(t)
	w, body := fx.do(t, http.MethodPost, "/api/plaid/exchange", "u1", `{"public_token":"public-sandbox"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "access-sandbox")
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "active", fx.items.statuses["item-1"])
	require.Len(t, fx.jobs.got, 1)
	assert.Equal(t, models.BankSyncJob{UserID: "u1", ItemID: "item-1", Reason: "linked"}, fx.jobs.got[0])

	w, body = fx.do(t, http.MethodPost, "/api/plaid/link-token", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "link-sandbox", body["link_token"])
}

func TestPlaidWebhook(t *testing.T) {
	fx := newFixture(t)
	w, _ := fx.do(t, http.MethodPost, "/webhook/plaid", "",
		`{"webhook_type":"TRANSACTIONS","webhook_code":"DEFAULT_UPDATE","item_id":"item-9"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, fx.jobs.got, 1)
	assert.Equal(t, "item-9", fx.jobs.got[0].ItemID)

	w, _ = fx.do(t, http.MethodPost, "/webhook/plaid", "",
		`{"webhook_type":"ITEM","webhook_code":"ERROR","item_id":"item-9"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "error", fx.items.statuses["item-9"])
	assert.Len(t, fx.jobs.got, 1)
}

func TestInternalStatsRequiresKey(t *testing.T) {
	fx := newFixture(t)
	w, _ := fx.do(t, http.MethodGet, "/internal/stats", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/internal/stats", nil)
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sse_connections")
}

func TestSSERejectsBadToken(t *testing.T) {
	fx := newFixture(t)
	w, _ := fx.do(t, http.MethodGet, "/sse/updates?token=nope", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = fx.do(t, http.MethodGet, "/sse/updates", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebSocketChat(t *testing.T) {
	fx := newFixture(t)
	fx.model.replies = []string{`{"message":"Got it."}`}
	srv := httptest.NewServer(fx.router)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token="

	_, resp, err := websocket.DefaultDialer.Dial(base+"bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+token(t, "u1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(models.ChatRequest{Message: "I make $50k a year, how much should I save?", SessionID: "s1"}))
	var out models.ChatResponse
	require.NoError(t, conn.ReadJSON(&out))
	assert.True(t, out.Success)
	assert.Equal(t, "Got it.", out.Message)
	assert.Equal(t, "s1", out.SessionID)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(models.Errorf(models.KindValidation, "op", "bad")))
	assert.Equal(t, http.StatusNotFound, statusFor(models.NewError(models.KindNotFound, "op", models.ErrNotFound)))
	assert.Equal(t, http.StatusBadGateway, statusFor(models.Errorf(models.KindExtractionParse, "op", "bad")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
