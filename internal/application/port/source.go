package port

import (
	"context"
	"time"

	"github.com/garyjia/approvals-hub/internal/domain/entity"
)

// ListFilter narrows a source listing. Zero values disable a clause.
type ListFilter struct {
	Statuses    []string
	SubmitterID string
	Since       time.Time
}

// Mutator is the action surface every source adapter exposes. Sources name
// these differently (reject, deny, requestChanges); adapters map them here.
//
// Errors should wrap the workflow sentinels (ErrNotFound, ErrPermissionDenied,
// ErrValidationFailed, ErrTransient). Anything else is treated as transient.
type Mutator interface {
	Approve(ctx context.Context, id string, notes string) error
	RequestChanges(ctx context.Context, id string, reason string) error
	Deny(ctx context.Context, id string, reason string) error
}

// Source is a per-type data accessor returning raw records of shape T
type Source[T any] interface {
	Mutator
	List(ctx context.Context, filter ListFilter) ([]T, error)
}

// Sources bundles the seven source adapters. A nil adapter is treated as an
// unavailable source.
type Sources struct {
	Invoices       Source[entity.RawInvoice]
	Receipts       Source[entity.RawReceipt]
	Mileage        Source[entity.RawMileage]
	KitRentals     Source[entity.RawKitRental]
	PerDiems       Source[entity.RawPerDiem]
	Timecards      Source[entity.RawTimecard]
	PurchaseOrders Source[entity.RawPurchaseOrder]
}

// Mutators returns the action surface keyed by the actionable item type.
// Per-diem claims are actioned individually under ItemTypePerDiem.
func (s Sources) Mutators() map[entity.ItemType]Mutator {
	m := make(map[entity.ItemType]Mutator, 7)
	add := func(t entity.ItemType, mut Mutator, present bool) {
		if present {
			m[t] = mut
		}
	}
	add(entity.ItemTypeInvoice, s.Invoices, s.Invoices != nil)
	add(entity.ItemTypeReceipt, s.Receipts, s.Receipts != nil)
	add(entity.ItemTypeMileage, s.Mileage, s.Mileage != nil)
	add(entity.ItemTypeKitRental, s.KitRentals, s.KitRentals != nil)
	add(entity.ItemTypePerDiem, s.PerDiems, s.PerDiems != nil)
	add(entity.ItemTypeTimecard, s.Timecards, s.Timecards != nil)
	add(entity.ItemTypePurchaseOrder, s.PurchaseOrders, s.PurchaseOrders != nil)
	return m
}

// Permissions are the reviewer's pre-computed approval rights
type Permissions struct {
	CanApproveExpenses  bool `json:"can_approve_expenses"`
	CanApproveInvoices  bool `json:"can_approve_invoices"`
	CanApproveTimecards bool `json:"can_approve_timecards"`
	CanApprovePOs       bool `json:"can_approve_pos"`
}

// Allows reports whether the permissions cover the item type
func (p Permissions) Allows(t entity.ItemType) bool {
	switch t.Category() {
	case entity.CategoryInvoice:
		return p.CanApproveInvoices
	case entity.CategoryTimecard:
		return p.CanApproveTimecards
	case entity.CategoryPurchaseOrder:
		return p.CanApprovePOs
	default:
		return p.CanApproveExpenses
	}
}

// PermissionProvider supplies the current reviewer's permissions
type PermissionProvider interface {
	Permissions(ctx context.Context) (Permissions, error)
}
