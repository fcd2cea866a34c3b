package entity

// ItemType discriminates the source record type of a queue item
type ItemType string

const (
	ItemTypeInvoice       ItemType = "invoice"
	ItemTypeReceipt       ItemType = "receipt"
	ItemTypeMileage       ItemType = "mileage"
	ItemTypeKitRental     ItemType = "kit_rental"
	ItemTypePerDiemGroup  ItemType = "per_diem_group"
	ItemTypeTimecard      ItemType = "timecard"
	ItemTypePurchaseOrder ItemType = "purchase_order"

	// ItemTypePerDiem addresses a single per-diem claim inside a group.
	// It never appears in the queue itself.
	ItemTypePerDiem ItemType = "per_diem"
)

// QueueItemTypes lists the seven item types that appear in the queue
var QueueItemTypes = []ItemType{
	ItemTypeInvoice,
	ItemTypeReceipt,
	ItemTypeMileage,
	ItemTypeKitRental,
	ItemTypePerDiemGroup,
	ItemTypeTimecard,
	ItemTypePurchaseOrder,
}

// String returns the string representation of the item type
func (t ItemType) String() string {
	return string(t)
}

// IsValid reports whether t is a queue item type or the per-diem entry type
func (t ItemType) IsValid() bool {
	switch t {
	case ItemTypeInvoice,
		ItemTypeReceipt,
		ItemTypeMileage,
		ItemTypeKitRental,
		ItemTypePerDiemGroup,
		ItemTypeTimecard,
		ItemTypePurchaseOrder,
		ItemTypePerDiem:
		return true
	default:
		return false
	}
}

// Category returns the coarse dashboard grouping for the item type
func (t ItemType) Category() Category {
	switch t {
	case ItemTypeInvoice:
		return CategoryInvoice
	case ItemTypeTimecard:
		return CategoryTimecard
	case ItemTypePurchaseOrder:
		return CategoryPurchaseOrder
	default:
		return CategoryExpense
	}
}

// SubType returns the expense sub-type label, empty for non-expense types
func (t ItemType) SubType() string {
	switch t {
	case ItemTypeReceipt:
		return SubTypeReceipt
	case ItemTypeMileage:
		return SubTypeMileage
	case ItemTypeKitRental:
		return SubTypeKitRental
	case ItemTypePerDiemGroup, ItemTypePerDiem:
		return SubTypePerDiem
	default:
		return ""
	}
}

// Category is the coarse grouping used for badges and totals
type Category string

const (
	CategoryExpense       Category = "expense"
	CategoryInvoice       Category = "invoice"
	CategoryTimecard      Category = "timecard"
	CategoryPurchaseOrder Category = "purchase_order"
)

// Categories lists every category in dashboard order
var Categories = []Category{
	CategoryExpense,
	CategoryInvoice,
	CategoryTimecard,
	CategoryPurchaseOrder,
}

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// Expense sub-types
const (
	SubTypeReceipt   = "receipt"
	SubTypeMileage   = "mileage"
	SubTypeKitRental = "kit_rental"
	SubTypePerDiem   = "per_diem"
)

// Raw status values observed across the source types
const (
	StatusPending          = "pending"
	StatusPendingApproval  = "pending_approval"
	StatusSubmitted        = "submitted"
	StatusApproved         = "approved"
	StatusRejected         = "rejected"
	StatusDenied           = "denied"
	StatusReimbursed       = "reimbursed"
	StatusActive           = "active"
	StatusCompleted        = "completed"
	StatusChangesRequested = "changes_requested"
)
