package workflow

import "github.com/garyjia/approvals-hub/internal/domain/entity"

// transitions maps each source type and action to the status the source
// system records after the action. Approve and approve-with-notes share a target.
var transitions = map[entity.ItemType]map[ActionKind]string{
	entity.ItemTypeInvoice:       targets(entity.StatusApproved, entity.StatusChangesRequested, entity.StatusRejected),
	entity.ItemTypeReceipt:       targets(entity.StatusApproved, entity.StatusChangesRequested, entity.StatusRejected),
	entity.ItemTypeMileage:       targets(entity.StatusApproved, entity.StatusChangesRequested, entity.StatusRejected),
	entity.ItemTypeKitRental:     targets(entity.StatusApproved, entity.StatusChangesRequested, entity.StatusDenied),
	entity.ItemTypePerDiem:       targets(entity.StatusApproved, entity.StatusChangesRequested, entity.StatusRejected),
	entity.ItemTypeTimecard:      targets(entity.StatusApproved, entity.StatusRejected, entity.StatusDenied),
	entity.ItemTypePurchaseOrder: targets(entity.StatusApproved, entity.StatusChangesRequested, entity.StatusRejected),
}

func targets(approved, changesRequested, denied string) map[ActionKind]string {
	return map[ActionKind]string{
		ActionApprove:          approved,
		ActionApproveWithNotes: approved,
		ActionRequestChanges:   changesRequested,
		ActionDeny:             denied,
	}
}

// TargetStatus returns the status an item of type t moves to under action k.
// Grouped per-diem items have no target of their own; their entries do.
func TargetStatus(t entity.ItemType, k ActionKind) (string, bool) {
	s, ok := transitions[t][k]
	return s, ok
}
