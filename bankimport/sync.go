// Package bankimport turns linked bank balances into asset and debt updates.
package bankimport

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/jsonx"
	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/reconcile"
)

// ItemStore is where linked items and their sync state live.
type ItemStore interface {
	GetPlaidItemsByUserID(ctx context.Context, userID string) ([]*models.PlaidItem, error)
	GetPlaidItemByItemID(ctx context.Context, itemID string) (*models.PlaidItem, error)
	SetSyncStatus(ctx context.Context, itemID string, status models.SyncStatus) error
}

type Publisher interface {
	PublishProfileUpdate(ctx context.Context, ev models.ProfileUpdateEvent) error
}

type Syncer struct {
	items  ItemStore
	fetch  AccountFetcher
	rec    *reconcile.Reconciler
	events Publisher
}

func NewSyncer(items ItemStore, fetch AccountFetcher, rec *reconcile.Reconciler, events Publisher) *Syncer {
	return &Syncer{items: items, fetch: fetch, rec: rec, events: events}
}

// SyncUser imports the balances of every active item of the user in one
// reconciliation. Accounts already stored under the same name and type get
// their amount refreshed.
func (s *Syncer) SyncUser(ctx context.Context, uid string) (*reconcile.Summary, error) {
	items, err := s.items.GetPlaidItemsByUserID(ctx, uid)
	if err != nil {
		return nil, models.NewError(models.KindPersistence, "bank import", err)
	}
	env := &models.Envelope{}
	failed := map[string]bool{}
	var assets []models.AssetCandidate
	var debts []models.DebtCandidate
	for _, item := range items {
		s.setStatus(ctx, item.ItemID, models.SyncInProgress)
		accounts, err := s.fetch.Accounts(ctx, item.AccessToken)
		if err != nil {
			failed[item.ItemID] = true
			s.setStatus(ctx, item.ItemID, models.SyncFailed)
			logger.Get().Error("failed to fetch accounts",
				zap.String("user_id", uid),
				zap.String("item_id", item.ItemID),
				zap.Error(err))
			continue
		}
		for _, a := range accounts {
			asset, debt := Candidate(a)
			if asset != nil {
				assets = append(assets, *asset)
			} else {
				debts = append(debts, *debt)
			}
		}
	}
	if len(assets) > 0 {
		env.Assets = models.SectionOf(assets...)
	}
	if len(debts) > 0 {
		env.Debts = models.SectionOf(debts...)
	}

	sum, err := s.rec.Apply(ctx, uid, env, reconcile.Meta{
		Source:         reconcile.SourcePlaid,
		Confidence:     1,
		RefreshMatches: true,
	})
	status := models.SyncIdle
	if err != nil {
		status = models.SyncFailed
	}
	for _, item := range items {
		if !failed[item.ItemID] {
			s.setStatus(ctx, item.ItemID, status)
		}
	}
	if err != nil {
		return nil, err
	}

	logger.Get().Info("bank import finished",
		zap.String("user_id", uid),
		zap.Int("items", len(items)),
		zap.Int("assets", len(assets)),
		zap.Int("debts", len(debts)))
	if sum.Changed() && s.events != nil {
		ev := models.ProfileUpdateEvent{
			UserID:          uid,
			Source:          reconcile.SourcePlaid,
			UpdatedSections: sum.UpdatedSections,
			Confidence:      1,
			Message:         sum.UserMessage(),
			Timestamp:       time.Now().Unix(),
		}
		if err := s.events.PublishProfileUpdate(ctx, ev); err != nil {
			logger.Get().Warn("failed to publish profile update", zap.String("user_id", uid), zap.Error(err))
		}
	}
	return sum, nil
}

// HandleJob runs an encoded models.BankSyncJob. Jobs that name only an item
// are resolved to its owner.
func (s *Syncer) HandleJob(ctx context.Context, value []byte) error {
	var job models.BankSyncJob
	if err := jsonx.Unmarshal(value, &job); err != nil {
		return fmt.Errorf("decode bank sync job: %w", err)
	}
	uid := job.UserID
	if uid == "" && job.ItemID != "" {
		item, err := s.items.GetPlaidItemByItemID(ctx, job.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			logger.Get().Warn("bank sync for unknown item", zap.String("item_id", job.ItemID))
			return nil
		}
		uid = item.UserID
	}
	if uid == "" {
		return fmt.Errorf("bank sync job without user or item")
	}
	_, err := s.SyncUser(ctx, uid)
	return err
}

func (s *Syncer) setStatus(ctx context.Context, itemID string, status models.SyncStatus) {
	if err := s.items.SetSyncStatus(ctx, itemID, status); err != nil {
		logger.Get().Warn("failed to record sync status",
			zap.String("item_id", itemID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}
