package models

import (
	"database/sql"
	"fmt"
)

type PlaidItem struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	AccessToken  string       `json:"-"`
	ItemID       string       `json:"item_id"`
	Status       string       `json:"status"`
	SyncStatus   SyncStatus   `json:"sync_status"`
	LastSyncedAt sql.NullTime `json:"last_synced_at"`
	CreatedAt    sql.NullTime `json:"created_at"`
	UpdatedAt    sql.NullTime `json:"updated_at"`
}

type PlaidError struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	RequestId    string `json:"request_id"`
}

func (e *PlaidError) Error() string {
	return fmt.Sprintf("Plaid API error: %s (type: %s, code: %s, request_id: %s)",
		e.ErrorMessage, e.ErrorType, e.ErrorCode, e.RequestId)
}

// BankSyncJob asks a worker to re-import the balances of one linked item.
type BankSyncJob struct {
	UserID string `json:"user_id"`
	ItemID string `json:"item_id"`
	Reason string `json:"reason"`
}

type SyncStatus string

const (
	SyncPending    SyncStatus = "pending"
	SyncFailed     SyncStatus = "failed"
	SyncInProgress SyncStatus = "in_progress"
	SyncIdle       SyncStatus = "idle"
)
