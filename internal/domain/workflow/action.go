package workflow

import (
	"fmt"
	"strings"
)

// ActionKind identifies a reviewer action
type ActionKind string

const (
	ActionApprove          ActionKind = "approve"
	ActionApproveWithNotes ActionKind = "approve_with_notes"
	ActionRequestChanges   ActionKind = "request_changes"
	ActionDeny             ActionKind = "deny"
)

// ActionKinds lists every reviewer action
var ActionKinds = []ActionKind{
	ActionApprove,
	ActionApproveWithNotes,
	ActionRequestChanges,
	ActionDeny,
}

// String returns the string representation of the action kind
func (k ActionKind) String() string {
	return string(k)
}

// IsValid reports whether k is a known action kind
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionApprove, ActionApproveWithNotes, ActionRequestChanges, ActionDeny:
		return true
	default:
		return false
	}
}

// ParseActionKind accepts the canonical names plus a few dashboard aliases
func ParseActionKind(s string) (ActionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve":
		return ActionApprove, nil
	case "approve_with_notes", "approve-with-notes", "approvewithnotes":
		return ActionApproveWithNotes, nil
	case "request_changes", "request-changes", "requestchanges", "reject":
		return ActionRequestChanges, nil
	case "deny":
		return ActionDeny, nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrValidationFailed, s)
	}
}

// Action is one logical reviewer action with its parameters
type Action struct {
	Kind   ActionKind `json:"kind"`
	Notes  string     `json:"notes,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

// Approve builds a plain approval
func Approve() Action {
	return Action{Kind: ActionApprove}
}

// ApproveWithNotes builds an approval carrying a reviewer annotation
func ApproveWithNotes(notes string) Action {
	return Action{Kind: ActionApproveWithNotes, Notes: notes}
}

// RequestChanges builds a non-terminal send-back
func RequestChanges(reason string) Action {
	return Action{Kind: ActionRequestChanges, Reason: reason}
}

// Deny builds a terminal rejection
func Deny(reason string) Action {
	return Action{Kind: ActionDeny, Reason: reason}
}

// Validate checks the parameters required by the action kind
func (a Action) Validate() error {
	switch a.Kind {
	case ActionApprove:
		return nil
	case ActionApproveWithNotes:
		if strings.TrimSpace(a.Notes) == "" {
			return fmt.Errorf("%w: notes are required", ErrValidationFailed)
		}
	case ActionRequestChanges, ActionDeny:
		if strings.TrimSpace(a.Reason) == "" {
			return fmt.Errorf("%w: reason is required", ErrValidationFailed)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", ErrValidationFailed, a.Kind)
	}
	return nil
}
