// Package usercontext assembles what the assistant knows about a user.
package usercontext

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/store"
)

// Snapshot holds the four user documents as read at one point in time. A nil
// document has never been written.
type Snapshot struct {
	UserID     string
	Profile    *models.ProfileDoc
	Financials *models.FinancialsDoc
	Goals      *models.GoalsDoc
	Skills     *models.SkillsDoc
}

type Loader struct {
	gw store.Gateway
}

func NewLoader(gw store.Gateway) *Loader {
	return &Loader{gw: gw}
}

// Load reads the four documents concurrently.
func (l *Loader) Load(ctx context.Context, uid string) (*Snapshot, error) {
	if uid == "" {
		return nil, models.NewError(models.KindAuth, "load context", models.ErrUnauthenticated)
	}
	snap := &Snapshot{UserID: uid}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return load(gctx, l.gw, store.ProfileCollection, uid, &snap.Profile)
	})
	g.Go(func() error {
		return load(gctx, l.gw, store.FinancialsCollection, uid, &snap.Financials)
	})
	g.Go(func() error {
		return load(gctx, l.gw, store.GoalsCollection, uid, &snap.Goals)
	})
	g.Go(func() error {
		return load(gctx, l.gw, store.SkillsCollection, uid, &snap.Skills)
	})
	if err := g.Wait(); err != nil {
		logger.Get().Error("failed to load user context",
			zap.String("user_id", uid),
			zap.Error(err))
		return nil, err
	}
	return snap, nil
}

func load[T any](ctx context.Context, gw store.Gateway, collection, uid string, dst **T) error {
	doc := new(T)
	found, err := gw.Get(ctx, store.UserRef(collection, uid), doc)
	if err != nil {
		return models.NewError(models.KindPersistence, "load "+collection, fmt.Errorf("user %s: %w", uid, err))
	}
	if found {
		*dst = doc
	}
	return nil
}

// Revision returns the stored revision of a document, 0 when it does not exist.
func (s *Snapshot) Revision(collection string) int64 {
	switch collection {
	case store.ProfileCollection:
		if s.Profile != nil {
			return s.Profile.Revision
		}
	case store.FinancialsCollection:
		if s.Financials != nil {
			return s.Financials.Revision
		}
	case store.GoalsCollection:
		if s.Goals != nil {
			return s.Goals.Revision
		}
	case store.SkillsCollection:
		if s.Skills != nil {
			return s.Skills.Revision
		}
	}
	return 0
}
