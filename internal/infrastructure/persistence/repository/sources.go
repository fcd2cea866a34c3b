package repository

import (
	"go.uber.org/zap"

	"github.com/garyjia/approvals-hub/internal/application/port"
	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/infrastructure/persistence/sqlite"
)

var (
	invoiceTable = tableSpec{
		name:     "invoices",
		itemType: entity.ItemTypeInvoice,
		columns: []string{"id", "invoice_number", "vendor_name", "description", "amount",
			"invoice_date", "submitted_by", "submitter_name", "status", "created_at"},
		submitterColumn: "submitted_by",
		dateColumn:      "invoice_date",
		orderBy:         "id",
		openByDefault:   true,
	}
	receiptTable = tableSpec{
		name:     "receipts",
		itemType: entity.ItemTypeReceipt,
		columns: []string{"id", "vendor_name", "description", "amount", "receipt_date",
			"submitter_id", "submitter_name", "status", "created_at"},
		submitterColumn: "submitter_id",
		dateColumn:      "receipt_date",
		orderBy:         "id",
	}
	mileageTable = tableSpec{
		name:     "mileage",
		itemType: entity.ItemTypeMileage,
		columns: []string{"id", "origin", "destination", "purpose", "miles", "rate", "total_amount",
			"trip_date", "submitter_id", "submitter_name", "status", "created_at"},
		submitterColumn: "submitter_id",
		dateColumn:      "trip_date",
		orderBy:         "id",
		openByDefault:   true,
	}
	kitRentalTable = tableSpec{
		name:     "kit_rentals",
		itemType: entity.ItemTypeKitRental,
		columns: []string{"id", "kit_name", "description", "daily_rate", "days", "total_amount",
			"start_date", "submitter_id", "submitter_name", "status", "created_at"},
		submitterColumn: "submitter_id",
		dateColumn:      "start_date",
		orderBy:         "id",
	}
	perDiemTable = tableSpec{
		name:     "per_diems",
		itemType: entity.ItemTypePerDiem,
		columns: []string{"id", "claim_date", "meal_type", "location", "amount",
			"submitter_id", "submitter_name", "status", "created_at"},
		submitterColumn: "submitter_id",
		dateColumn:      "claim_date",
		orderBy:         "claim_date, id",
	}
	timecardTable = tableSpec{
		name:     "timecards",
		itemType: entity.ItemTypeTimecard,
		columns: []string{"id", "week_ending", "total_hours", "department", "crew_member_id",
			"crew_member_name", "status", "submitted_at", "created_at"},
		submitterColumn: "crew_member_id",
		dateColumn:      "week_ending",
		orderBy:         "id",
		openByDefault:   true,
	}
	purchaseOrderTable = tableSpec{
		name:     "purchase_orders",
		itemType: entity.ItemTypePurchaseOrder,
		columns: []string{"id", "po_number", "vendor_name", "description", "amount", "order_date",
			"requested_by", "requester_name", "status", "created_at"},
		submitterColumn: "requested_by",
		dateColumn:      "order_date",
		orderBy:         "id",
		openByDefault:   true,
	}
)

// InvoiceSource is the SQLite invoice adapter
type InvoiceSource struct{ *recordStore[entity.RawInvoice] }

// ReceiptSource is the SQLite receipt adapter
type ReceiptSource struct{ *recordStore[entity.RawReceipt] }

// MileageSource is the SQLite mileage adapter
type MileageSource struct{ *recordStore[entity.RawMileage] }

// KitRentalSource is the SQLite kit rental adapter
type KitRentalSource struct{ *recordStore[entity.RawKitRental] }

// PerDiemSource is the SQLite per-diem claim adapter
type PerDiemSource struct{ *recordStore[entity.RawPerDiem] }

// TimecardSource is the SQLite timecard adapter
type TimecardSource struct{ *recordStore[entity.RawTimecard] }

// PurchaseOrderSource is the SQLite purchase order adapter
type PurchaseOrderSource struct{ *recordStore[entity.RawPurchaseOrder] }

// SQLiteSources holds the concrete adapters so seeding can reach Create
type SQLiteSources struct {
	Invoices       *InvoiceSource
	Receipts       *ReceiptSource
	Mileage        *MileageSource
	KitRentals     *KitRentalSource
	PerDiems       *PerDiemSource
	Timecards      *TimecardSource
	PurchaseOrders *PurchaseOrderSource
}

// NewSQLiteSources creates the seven source adapters over one database
func NewSQLiteSources(db *sqlite.DB, logger *zap.Logger) *SQLiteSources {
	return &SQLiteSources{
		Invoices:       &InvoiceSource{newRecordStore[entity.RawInvoice](db, invoiceTable, logger)},
		Receipts:       &ReceiptSource{newRecordStore[entity.RawReceipt](db, receiptTable, logger)},
		Mileage:        &MileageSource{newRecordStore[entity.RawMileage](db, mileageTable, logger)},
		KitRentals:     &KitRentalSource{newRecordStore[entity.RawKitRental](db, kitRentalTable, logger)},
		PerDiems:       &PerDiemSource{newRecordStore[entity.RawPerDiem](db, perDiemTable, logger)},
		Timecards:      &TimecardSource{newRecordStore[entity.RawTimecard](db, timecardTable, logger)},
		PurchaseOrders: &PurchaseOrderSource{newRecordStore[entity.RawPurchaseOrder](db, purchaseOrderTable, logger)},
	}
}

// Ports returns the adapters as the application's source bundle
func (s *SQLiteSources) Ports() port.Sources {
	return port.Sources{
		Invoices:       s.Invoices,
		Receipts:       s.Receipts,
		Mileage:        s.Mileage,
		KitRentals:     s.KitRentals,
		PerDiems:       s.PerDiems,
		Timecards:      s.Timecards,
		PurchaseOrders: s.PurchaseOrders,
	}
}

// Verify interface compliance
var (
	_ port.Source[entity.RawInvoice]       = (*InvoiceSource)(nil)
	_ port.Source[entity.RawReceipt]       = (*ReceiptSource)(nil)
	_ port.Source[entity.RawMileage]       = (*MileageSource)(nil)
	_ port.Source[entity.RawKitRental]     = (*KitRentalSource)(nil)
	_ port.Source[entity.RawPerDiem]       = (*PerDiemSource)(nil)
	_ port.Source[entity.RawTimecard]      = (*TimecardSource)(nil)
	_ port.Source[entity.RawPurchaseOrder] = (*PurchaseOrderSource)(nil)
)
