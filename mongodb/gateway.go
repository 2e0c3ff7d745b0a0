package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/store"
)

// Gateway implements store.Gateway on MongoDB. Every write, single or
// batched, runs inside a multi-document transaction so revision checks and
// writes are applied together.
type Gateway struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

func NewGateway(client *mongo.Client, database string) *Gateway {
	return &Gateway{client: client, db: client.Database(database), now: time.Now}
}

func (g *Gateway) Get(ctx context.Context, ref store.Ref, out any) (bool, error) {
	err := g.db.Collection(ref.Collection).FindOne(ctx, bson.M{"_id": ref.ID}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, store.PersistenceError("get "+ref.String(), err)
	}
	return true, nil
}

func (g *Gateway) Save(ctx context.Context, ref store.Ref, data any, merge bool) error {
	kind := store.OpSet
	if merge {
		kind = store.OpUpdate
	}
	return g.commit(ctx, []store.Operation{{Kind: kind, Ref: ref, Data: data}}, true)
}

// UpdateSection sets one top-level key, creating the document with base
// metadata when it does not exist yet.
func (g *Gateway) UpdateSection(ctx context.Context, ref store.Ref, key string, value any) error {
	return g.commit(ctx, []store.Operation{store.Update(ref, bson.M{key: value}, nil)}, true)
}

func (g *Gateway) Batch(ctx context.Context, ops []store.Operation) error {
	return g.commit(ctx, ops, false)
}

func (g *Gateway) commit(ctx context.Context, ops []store.Operation, upsert bool) error {
	session, err := g.client.StartSession()
	if err != nil {
		return store.PersistenceError("batch", fmt.Errorf("start session: %w", err))
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	_, err = session.WithTransaction(ctx, func(sctx context.Context) (any, error) {
		now := g.now()
		for i, op := range ops {
			if err := g.apply(sctx, op, upsert, now); err != nil {
				return nil, fmt.Errorf("operation %d: %w", i, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return store.PersistenceError("batch", err)
	}
	return nil
}

func (g *Gateway) apply(ctx context.Context, op store.Operation, upsert bool, now time.Time) error {
	coll := g.db.Collection(op.Ref.Collection)
	filter := bson.M{"_id": op.Ref.ID}

	var existing bson.M
	err := coll.FindOne(ctx, filter).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		existing = nil
	} else if err != nil {
		return fmt.Errorf("read %s: %w", op.Ref, err)
	}
	if err := store.CheckRevision(op, existing); err != nil {
		return err
	}

	switch op.Kind {
	case store.OpDelete:
		if _, err := coll.DeleteOne(ctx, filter); err != nil {
			return fmt.Errorf("delete %s: %w", op.Ref, err)
		}
		return nil
	case store.OpSet:
	case store.OpUpdate:
		if existing == nil && !upsert {
			return fmt.Errorf("update %s: %w", op.Ref, models.ErrNotFound)
		}
	default:
		return fmt.Errorf("unknown kind %q", op.Kind)
	}

	doc, err := store.ToDocument(op.Data)
	if err != nil {
		return err
	}
	if op.Kind == store.OpUpdate && existing != nil {
		merged := bson.M{}
		for k, v := range existing {
			merged[k] = v
		}
		for k, v := range doc {
			merged[k] = v
		}
		doc = merged
	}
	doc = store.Stamp(op.Ref, doc, existing, now)
	if _, err := coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("write %s: %w", op.Ref, err)
	}
	return nil
}

// DeleteUser removes the user's documents, plans and conversation log.
func (g *Gateway) DeleteUser(ctx context.Context, uid string) (int64, error) {
	var total int64
	for _, c := range store.UserCollections {
		res, err := g.db.Collection(c).DeleteOne(ctx, bson.M{"_id": uid})
		if err != nil {
			return total, fmt.Errorf("error deleting %s: %w", c, err)
		}
		total += res.DeletedCount
	}
	for _, c := range []string{store.PlansCollection, store.ConversationsCollection} {
		res, err := g.db.Collection(c).DeleteMany(ctx, bson.M{"userId": uid})
		if err != nil {
			return total, fmt.Errorf("error deleting %s: %w", c, err)
		}
		total += res.DeletedCount
	}
	return total, nil
}

// Plans lists a user's plans, newest first.
func (g *Gateway) Plans(ctx context.Context, uid string) ([]models.Plan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := g.db.Collection(store.PlansCollection).Find(ctx, bson.M{"userId": uid}, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching plans: %w", err)
	}
	defer cursor.Close(ctx)

	plans := []models.Plan{}
	if err := cursor.All(ctx, &plans); err != nil {
		return nil, fmt.Errorf("error decoding plans: %w", err)
	}
	return plans, nil
}
