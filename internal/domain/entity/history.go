package entity

import "time"

// ActionHistory is an audit row for one reviewer action outcome on one item
type ActionHistory struct {
	ID        int64     `db:"id" json:"id"`
	RunID     string    `db:"run_id" json:"run_id"`
	ItemType  ItemType  `db:"item_type" json:"item_type"`
	ItemID    string    `db:"item_id" json:"item_id"`
	Action    string    `db:"action" json:"action"`
	Outcome   string    `db:"outcome" json:"outcome"` // success | failure
	ErrorKind string    `db:"error_kind" json:"error_kind,omitempty"`
	Message   string    `db:"message" json:"message,omitempty"`
	Notes     string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Action history outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
