package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/qiuethan/RT1M-sub001/models"
)

func (s *Store) CreateSession(ctx context.Context, userID, title string) (*models.Session, error) {
	query := `
		INSERT INTO sessions (user_id, title)
		VALUES ($1, $2)
		RETURNING id, user_id, title, created_at
	`
	item := &models.Session{}
	err := s.db.QueryRowContext(ctx, query, userID, title).Scan(
		&item.ID,
		&item.UserID,
		&item.Title,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}
	return item, nil
}

// GetSession returns the session only if it belongs to userID.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID, userID string) (*models.Session, error) {
	query := `
		SELECT id, user_id, title, created_at
		FROM sessions
		WHERE id = $1 AND user_id = $2
	`
	item := &models.Session{}
	err := s.db.QueryRowContext(ctx, query, id, userID).Scan(
		&item.ID,
		&item.UserID,
		&item.Title,
		&item.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewError(models.KindNotFound, "get session", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting session: %w", err)
	}
	return item, nil
}

func (s *Store) ListSessions(ctx context.Context, userID string) ([]*models.Session, error) {
	query := `
		SELECT id, user_id, title, created_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing sessions: %w", err)
	}
	defer rows.Close()

	items := []*models.Session{}
	for rows.Next() {
		item := &models.Session{}
		if err := rows.Scan(&item.ID, &item.UserID, &item.Title, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning session: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return items, nil
}

func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NewError(models.KindNotFound, "delete session", models.ErrNotFound)
	}
	return nil
}
