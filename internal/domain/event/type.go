package event

// Type identifies the type of domain event
type Type string

const (
	TypeItemApproved         Type = "item.approved"
	TypeItemChangesRequested Type = "item.changes_requested"
	TypeItemDenied           Type = "item.denied"
	TypeItemActionFailed     Type = "item.action_failed"
	TypeBulkCompleted        Type = "bulk.completed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeItemApproved,
		TypeItemChangesRequested,
		TypeItemDenied,
		TypeItemActionFailed,
		TypeBulkCompleted:
		return true
	default:
		return false
	}
}

// IsItemOutcome reports whether the event describes a single item outcome
func (t Type) IsItemOutcome() bool {
	return t != TypeBulkCompleted && t.IsValid()
}
