package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/qiuethan/RT1M-sub001/bankimport"
	"github.com/qiuethan/RT1M-sub001/chat"
	"github.com/qiuethan/RT1M-sub001/llm"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/planner"
	"github.com/qiuethan/RT1M-sub001/reconcile"
	"github.com/qiuethan/RT1M-sub001/sse"
	"github.com/qiuethan/RT1M-sub001/usercontext"
)

type SessionStore interface {
	CreateSession(ctx context.Context, userID, title string) (*models.Session, error)
	ListSessions(ctx context.Context, userID string) ([]*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID, userID string) (*models.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID, userID string) error
}

type HistoryStore interface {
	History(ctx context.Context, uid, sessionID string, limit int) ([]models.Turn, error)
}

type PlanLister interface {
	Plans(ctx context.Context, uid string) ([]models.Plan, error)
}

type PlaidItemStore interface {
	CreatePlaidItem(ctx context.Context, userID, accessToken, itemID string) (*models.PlaidItem, error)
	GetPlaidItemsByUserID(ctx context.Context, userID string) ([]*models.PlaidItem, error)
	UpdatePlaidItemStatus(ctx context.Context, itemID, status string) error
}

type BankSyncPublisher interface {
	PublishBankSync(ctx context.Context, job models.BankSyncJob) error
}

// UserDeleter removes one store's share of a user's data.
type UserDeleter struct {
	Name   string
	Delete func(ctx context.Context, uid string) error
}

// Handler carries the collaborators of the HTTP surface. Optional ones may
// be nil; their routes then answer 503.
type Handler struct {
	Chat       *chat.Service
	Loader     *usercontext.Loader
	Reconciler *reconcile.Reconciler
	Planner    *planner.Generator
	Plans      PlanLister
	Sessions   SessionStore
	History    HistoryStore
	Titles     llm.Completer
	TitleModel string

	Plaid    PlaidLinker
	Items    PlaidItemStore
	Bank     *bankimport.Syncer
	BankSync BankSyncPublisher

	Deleters []UserDeleter
	Hub      *sse.Hub

	JWTSecret    string
	SupabaseURL  string
	HistoryTurns int
}
