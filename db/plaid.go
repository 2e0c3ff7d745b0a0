package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/qiuethan/RT1M-sub001/models"
)

const plaidColumns = `id, user_id, access_token, item_id, status, sync_status, last_synced_at, created_at, updated_at`

func scanPlaidItem(row interface{ Scan(...any) error }, item *models.PlaidItem) error {
	return row.Scan(
		&item.ID,
		&item.UserID,
		&item.AccessToken,
		&item.ItemID,
		&item.Status,
		&item.SyncStatus,
		&item.LastSyncedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
}

// CreatePlaidItem stores a newly linked item, reactivating it if it was linked before.
func (s *Store) CreatePlaidItem(ctx context.Context, userID, accessToken, itemID string) (*models.PlaidItem, error) {
	query := `
		INSERT INTO plaid_items (user_id, access_token, item_id, status)
		VALUES ($1, $2, $3, 'active')
		ON CONFLICT (item_id) DO UPDATE
		SET access_token = EXCLUDED.access_token, status = 'active', updated_at = now()
		RETURNING ` + plaidColumns

	item := &models.PlaidItem{}
	if err := scanPlaidItem(s.db.QueryRowContext(ctx, query, userID, accessToken, itemID), item); err != nil {
		return nil, fmt.Errorf("error creating Plaid item: %w", err)
	}
	return item, nil
}

// GetPlaidItemsByUserID retrieves all active Plaid items for a user
func (s *Store) GetPlaidItemsByUserID(ctx context.Context, userID string) ([]*models.PlaidItem, error) {
	query := `SELECT ` + plaidColumns + `
		FROM plaid_items
		WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting Plaid items: %w", err)
	}
	defer rows.Close()

	var items []*models.PlaidItem
	for rows.Next() {
		item := &models.PlaidItem{}
		if err := scanPlaidItem(rows, item); err != nil {
			return nil, fmt.Errorf("error scanning Plaid item: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating Plaid items: %w", err)
	}
	return items, nil
}

// GetPlaidItemByItemID returns nil, nil when the item is unknown.
func (s *Store) GetPlaidItemByItemID(ctx context.Context, itemID string) (*models.PlaidItem, error) {
	query := `SELECT ` + plaidColumns + ` FROM plaid_items WHERE item_id = $1`

	item := &models.PlaidItem{}
	err := scanPlaidItem(s.db.QueryRowContext(ctx, query, itemID), item)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting Plaid item: %w", err)
	}
	return item, nil
}

// UpdatePlaidItemStatus updates the status of a Plaid item
func (s *Store) UpdatePlaidItemStatus(ctx context.Context, itemID, status string) error {
	query := `
		UPDATE plaid_items
		SET status = $1, updated_at = now()
		WHERE item_id = $2
	`
	result, err := s.db.ExecContext(ctx, query, status, itemID)
	if err != nil {
		return fmt.Errorf("error updating Plaid item status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no Plaid item found with ID: %s", itemID)
	}
	return nil
}

// SetSyncStatus records the progress of a bank import; idle also stamps last_synced_at.
func (s *Store) SetSyncStatus(ctx context.Context, itemID string, status models.SyncStatus) error {
	query := `
		UPDATE plaid_items
		SET sync_status = $1,
			last_synced_at = CASE WHEN $1 = 'idle' THEN now() ELSE last_synced_at END,
			updated_at = now()
		WHERE item_id = $2
	`
	if _, err := s.db.ExecContext(ctx, query, string(status), itemID); err != nil {
		return fmt.Errorf("error updating sync status: %w", err)
	}
	return nil
}
