package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/qiuethan/RT1M-sub001/logger"
)

var DB *sql.DB

// InitDB opens the Postgres connection used for sessions and linked bank items.
func InitDB(dbURL string) error {
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}

	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	DB.SetMaxOpenConns(20)
	DB.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = DB.PingContext(ctx); err != nil {
		return fmt.Errorf("error connecting to the database: %w", err)
	}

	logger.Get().Info("successfully connected to Postgres")
	return nil
}

// CloseDB closes the database connection
func CloseDB() {
	if DB != nil {
		if err := DB.Close(); err != nil {
			logger.Get().Error("failed to close Postgres", zap.Error(err))
		}
	}
}

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT 'New Chat',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS sessions_user_id_idx ON sessions (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS plaid_items (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id TEXT NOT NULL,
		access_token TEXT NOT NULL,
		item_id TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'active',
		sync_status TEXT NOT NULL DEFAULT 'idle',
		last_synced_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS plaid_items_user_id_idx ON plaid_items (user_id)`,
}

// Migrate creates the tables if they do not exist. It is safe to run repeatedly.
func Migrate(ctx context.Context, conn *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	logger.Get().Info("postgres migrations applied", zap.Int("statements", len(migrations)))
	return nil
}

// Store runs queries against one connection pool.
type Store struct {
	db *sql.DB
}

func New(conn *sql.DB) *Store {
	return &Store{db: conn}
}

// DeleteUserData removes every row owned by the user and returns the access
// tokens of the bank items that were unlinked.
func (s *Store) DeleteUserData(ctx context.Context, userID string) (accessTokens []string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	rows, err := tx.QueryContext(ctx, `DELETE FROM plaid_items WHERE user_id = $1 RETURNING access_token`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		accessTokens = append(accessTokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return nil, err
	}

	return accessTokens, nil
}
