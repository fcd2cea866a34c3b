package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/domain/workflow"
)

// Event represents a domain event
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	ItemType  entity.ItemType        `json:"item_type"`
	ItemID    string                 `json:"item_id,omitempty"`
	RunID     string                 `json:"run_id"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent creates a new domain event correlated to a bulk run
func NewEvent(eventType Type, itemType entity.ItemType, itemID, runID string, payload map[string]interface{}) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ItemType:  itemType,
		ItemID:    itemID,
		RunID:     runID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// OutcomeType maps an action and its error onto the item outcome event type
func OutcomeType(kind workflow.ActionKind, err error) Type {
	if err != nil {
		return TypeItemActionFailed
	}
	switch kind {
	case workflow.ActionRequestChanges:
		return TypeItemChangesRequested
	case workflow.ActionDeny:
		return TypeItemDenied
	default:
		return TypeItemApproved
	}
}

// NewOutcome builds the item outcome event for one dispatched action
func NewOutcome(itemType entity.ItemType, itemID, runID string, action workflow.Action, err error) *Event {
	payload := map[string]interface{}{
		"action": action.Kind.String(),
	}
	if action.Notes != "" {
		payload["notes"] = action.Notes
	}
	if action.Reason != "" {
		payload["reason"] = action.Reason
	}
	if err != nil {
		payload["error_kind"] = workflow.KindOf(err).String()
		payload["error"] = err.Error()
	}
	return NewEvent(OutcomeType(action.Kind, err), itemType, itemID, runID, payload)
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
