package workflow

import "github.com/garyjia/approvals-hub/internal/domain/entity"

// Each source type keeps its own status vocabulary. The engine only knows the
// single open value per type; every other value counts as processed.
var openStatus = map[entity.ItemType]string{
	entity.ItemTypeInvoice:       entity.StatusPendingApproval,
	entity.ItemTypeReceipt:       entity.StatusPending,
	entity.ItemTypeMileage:       entity.StatusPending,
	entity.ItemTypeKitRental:     entity.StatusPending,
	entity.ItemTypePerDiemGroup:  entity.StatusPending,
	entity.ItemTypePerDiem:       entity.StatusPending,
	entity.ItemTypeTimecard:      entity.StatusSubmitted,
	entity.ItemTypePurchaseOrder: entity.StatusPending,
}

// terminalStatuses lists the processed values each type is known to produce.
// Values outside this table are still processed, they are just unexpected.
var terminalStatuses = map[entity.ItemType]map[string]bool{
	entity.ItemTypeReceipt: set(
		entity.StatusApproved, entity.StatusRejected, entity.StatusReimbursed,
		entity.StatusChangesRequested),
	entity.ItemTypeMileage: set(
		entity.StatusApproved, entity.StatusRejected, entity.StatusChangesRequested),
	entity.ItemTypeKitRental: set(
		entity.StatusActive, entity.StatusApproved, entity.StatusRejected, entity.StatusDenied,
		entity.StatusCompleted, entity.StatusReimbursed, entity.StatusChangesRequested),
	entity.ItemTypePerDiemGroup: set(
		entity.StatusApproved, entity.StatusRejected, entity.StatusReimbursed,
		entity.StatusChangesRequested),
	entity.ItemTypePerDiem: set(
		entity.StatusApproved, entity.StatusRejected, entity.StatusReimbursed,
		entity.StatusChangesRequested),
	entity.ItemTypeInvoice: set(
		entity.StatusApproved, entity.StatusRejected, entity.StatusChangesRequested),
	entity.ItemTypeTimecard: set(
		entity.StatusApproved, entity.StatusRejected, entity.StatusDenied),
	entity.ItemTypePurchaseOrder: set(
		entity.StatusApproved, entity.StatusRejected, entity.StatusChangesRequested),
}

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// OpenStatus returns the status value meaning "awaiting reviewer action"
func OpenStatus(t entity.ItemType) (string, bool) {
	s, ok := openStatus[t]
	return s, ok
}

// IsOpen reports whether status is the open state of the item type.
// Unknown types and unknown statuses are never open.
func IsOpen(t entity.ItemType, status string) bool {
	open, ok := openStatus[t]
	return ok && status == open
}

// KnownTerminal reports whether status is an expected processed value for t
func KnownTerminal(t entity.ItemType, status string) bool {
	return terminalStatuses[t][status]
}
