package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/store"
)

// newTestGateway connects to MONGO_TEST_URI, which must point at a replica
// set since every write runs in a transaction.
func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	db := "rt1m_test_" + uuid.NewString()[:8]
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Database(db).Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return NewGateway(client, db)
}

func TestGatewayBatchRevisions(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()
	ref := store.UserRef(store.FinancialsCollection, "u1")

	doc := models.FinancialsDoc{Assets: []models.Asset{}, Debts: []models.Debt{}}
	require.NoError(t, g.Batch(ctx, []store.Operation{store.Set(ref, doc, store.Revision(0))}))

	var got models.FinancialsDoc
	found, err := g.Get(ctx, ref, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(1), got.Revision)
	assert.Equal(t, "u1", got.UserID)
	assert.NotNil(t, got.Assets)
	assert.Empty(t, got.Assets)

	err = g.Batch(ctx, []store.Operation{store.Set(ref, doc, store.Revision(0))})
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.True(t, models.IsKind(err, models.KindPersistence))
}

func TestGatewayBatchIsAtomic(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	err := g.Batch(ctx, []store.Operation{
		store.Set(store.UserRef(store.GoalsCollection, "u1"), models.GoalsDoc{}, nil),
		store.Update(store.UserRef(store.ProfileCollection, "missing"), nil, nil),
	})
	require.Error(t, err)

	found, err := g.Get(ctx, store.UserRef(store.GoalsCollection, "u1"), &models.GoalsDoc{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGatewayUpdateSectionCreatesParent(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()
	ref := store.UserRef(store.SkillsCollection, "u2")

	require.NoError(t, g.UpdateSection(ctx, ref, "skillsAndInterests", models.SkillsAndInterests{Skills: []string{"python"}}))
	var got models.SkillsDoc
	found, err := g.Get(ctx, ref, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"python"}, got.SkillsAndInterests.Skills)
	assert.False(t, got.CreatedAt.IsZero())

	n, err := g.DeleteUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
