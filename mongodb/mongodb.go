package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/logger"
)

var (
	MongoDatabase string = "rt1m"
	MongoClient   *mongo.Client
)

func InitMongoDB(mongoURI, database string) error {
	if mongoURI == "" {
		return fmt.Errorf("MONGO_URI environment variable not set")
	}
	if database != "" {
		MongoDatabase = database
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(mongoURI).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(opts)
	if err != nil {
		logger.Get().Error("failed to connect to MongoDB",
			zap.String("database", MongoDatabase),
			zap.Error(err))
		return fmt.Errorf("error connecting to MongoDB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("error pinging MongoDB: %w", err)
	}

	MongoClient = client
	logger.Get().Info("successfully connected to MongoDB",
		zap.String("database", MongoDatabase))
	return nil
}

// Database returns the configured database on the shared client.
func Database() *mongo.Database {
	return MongoClient.Database(MongoDatabase)
}

func CloseMongoDB() {
	if MongoClient != nil {
		if err := MongoClient.Disconnect(context.TODO()); err != nil {
			logger.Get().Error("failed to disconnect from MongoDB",
				zap.Error(err))
			return
		}
		logger.Get().Info("successfully disconnected from MongoDB")
	}
}
