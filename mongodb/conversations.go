package mongodb

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/logger"
	"github.com/qiuethan/RT1M-sub001/models"
	"github.com/qiuethan/RT1M-sub001/store"
)

// ConversationLog appends chat turns to ai_conversations.
type ConversationLog struct {
	collection *mongo.Collection
}

func NewConversationLog(db *mongo.Database) *ConversationLog {
	return &ConversationLog{collection: db.Collection(store.ConversationsCollection)}
}

// Log never fails the turn; errors are logged.
func (c *ConversationLog) Log(ctx context.Context, entry models.ConversationLog) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if _, err := c.collection.InsertOne(ctx, entry); err != nil {
		logger.Get().Error("failed to log conversation",
			zap.String("user_id", entry.UserID),
			zap.String("session_id", entry.SessionID),
			zap.Error(err))
	}
}

// History returns up to limit most recent turns of a session, oldest first.
func (c *ConversationLog) History(ctx context.Context, uid, sessionID string, limit int) ([]models.Turn, error) {
	filter := bson.M{"userId": uid, "sessionId": sessionID}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(int64(limit))

	cursor, err := c.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching conversation: %w", err)
	}
	defer cursor.Close(ctx)

	var turns []models.Turn
	for cursor.Next(ctx) {
		var entry models.ConversationLog
		if err := cursor.Decode(&entry); err != nil {
			return nil, fmt.Errorf("error decoding conversation: %w", err)
		}
		turns = append(turns, models.Turn{User: entry.UserMessage, Assistant: entry.AIResponse})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	slices.Reverse(turns)
	return turns, nil
}
