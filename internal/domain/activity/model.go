// Package activity records who changed which ledger, when, and with what payload.
package activity

import (
	"encoding/json"
	"time"

	"bakehouse/internal/core/id"
)

// Action names a ledger mutation.
type Action string

const (
	ActionStockAdd         Action = "stock.add"
	ActionStockReturn      Action = "stock.return"
	ActionStockTransfer    Action = "stock.transfer"
	ActionBatchFinish      Action = "batch.finish"
	ActionGroceryAdd       Action = "grocery.add"
	ActionGroceryReturn    Action = "grocery.return"
	ActionGroceryRemaining Action = "grocery.update_remaining"
	ActionGroceryTransfer  Action = "grocery.transfer"
	ActionMachineStart     Action = "machine.start"
	ActionMachineFinish    Action = "machine.finish"
	ActionItemCreate       Action = "item.create"
	ActionItemUpdate       Action = "item.update"
	ActionItemDelete       Action = "item.delete"
	ActionBranchCreate     Action = "branch.create"
)

// Entry is one activity log row.
type Entry struct {
	ID         id.ID           `db:"id" json:"id"`
	Branch     string          `db:"branch" json:"branch"`
	Action     Action          `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entityType"`
	EntityID   string          `db:"entity_id" json:"entityId"`
	UserID     string          `db:"user_id" json:"userId"`
	Payload    json.RawMessage `db:"payload" json:"payload,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// Filter selects entries for listing.
type Filter struct {
	// Branches restricts rows; nil means all branches.
	Branches []string
	Action   Action
	From     *time.Time
	To       *time.Time
	Limit    int
}
