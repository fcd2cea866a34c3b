package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Raw records as returned by the source adapters. Each type keeps its own
// shape and status vocabulary; optional fields are pointers.

// RawInvoice is a vendor invoice awaiting approval
type RawInvoice struct {
	ID            string           `db:"id" json:"id"`
	InvoiceNumber string           `db:"invoice_number" json:"invoice_number"`
	VendorName    string           `db:"vendor_name" json:"vendor_name"`
	Description   string           `db:"description" json:"description"`
	Amount        *decimal.Decimal `db:"amount" json:"amount,omitempty"`
	InvoiceDate   *time.Time       `db:"invoice_date" json:"invoice_date,omitempty"`
	SubmittedBy   string           `db:"submitted_by" json:"submitted_by"`
	SubmitterName string           `db:"submitter_name" json:"submitter_name"`
	Status        string           `db:"status" json:"status"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// RawReceipt is an out-of-pocket expense receipt
type RawReceipt struct {
	ID            string           `db:"id" json:"id"`
	VendorName    string           `db:"vendor_name" json:"vendor_name"`
	Description   string           `db:"description" json:"description"`
	Amount        *decimal.Decimal `db:"amount" json:"amount,omitempty"`
	ReceiptDate   *time.Time       `db:"receipt_date" json:"receipt_date,omitempty"`
	SubmitterID   string           `db:"submitter_id" json:"submitter_id"`
	SubmitterName string           `db:"submitter_name" json:"submitter_name"`
	Status        string           `db:"status" json:"status"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// RawMileage is a mileage reimbursement claim
type RawMileage struct {
	ID            string           `db:"id" json:"id"`
	Origin        string           `db:"origin" json:"origin"`
	Destination   string           `db:"destination" json:"destination"`
	Purpose       string           `db:"purpose" json:"purpose"`
	Miles         decimal.Decimal  `db:"miles" json:"miles"`
	Rate          decimal.Decimal  `db:"rate" json:"rate"`
	TotalAmount   *decimal.Decimal `db:"total_amount" json:"total_amount,omitempty"`
	TripDate      *time.Time       `db:"trip_date" json:"trip_date,omitempty"`
	SubmitterID   string           `db:"submitter_id" json:"submitter_id"`
	SubmitterName string           `db:"submitter_name" json:"submitter_name"`
	Status        string           `db:"status" json:"status"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// RawKitRental is a crew member's equipment (kit) rental claim
type RawKitRental struct {
	ID            string           `db:"id" json:"id"`
	KitName       string           `db:"kit_name" json:"kit_name"`
	Description   string           `db:"description" json:"description"`
	DailyRate     *decimal.Decimal `db:"daily_rate" json:"daily_rate,omitempty"`
	Days          int              `db:"days" json:"days"`
	TotalAmount   *decimal.Decimal `db:"total_amount" json:"total_amount,omitempty"`
	StartDate     *time.Time       `db:"start_date" json:"start_date,omitempty"`
	SubmitterID   string           `db:"submitter_id" json:"submitter_id"`
	SubmitterName string           `db:"submitter_name" json:"submitter_name"`
	Status        string           `db:"status" json:"status"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// RawPerDiem is a single per-diem claim for one day or meal
type RawPerDiem struct {
	ID            string          `db:"id" json:"id"`
	ClaimDate     time.Time       `db:"claim_date" json:"claim_date"`
	MealType      string          `db:"meal_type" json:"meal_type"`
	Location      string          `db:"location" json:"location"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	SubmitterID   string          `db:"submitter_id" json:"submitter_id"`
	SubmitterName string          `db:"submitter_name" json:"submitter_name"`
	Status        string          `db:"status" json:"status"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// RawTimecard is a weekly crew timecard
type RawTimecard struct {
	ID             string          `db:"id" json:"id"`
	WeekEnding     *time.Time      `db:"week_ending" json:"week_ending,omitempty"`
	TotalHours     decimal.Decimal `db:"total_hours" json:"total_hours"`
	Department     string          `db:"department" json:"department"`
	CrewMemberID   string          `db:"crew_member_id" json:"crew_member_id"`
	CrewMemberName string          `db:"crew_member_name" json:"crew_member_name"`
	Status         string          `db:"status" json:"status"`
	SubmittedAt    *time.Time      `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// RawPurchaseOrder is a purchase order request
type RawPurchaseOrder struct {
	ID            string           `db:"id" json:"id"`
	PONumber      string           `db:"po_number" json:"po_number"`
	VendorName    string           `db:"vendor_name" json:"vendor_name"`
	Description   string           `db:"description" json:"description"`
	Amount        *decimal.Decimal `db:"amount" json:"amount,omitempty"`
	OrderDate     *time.Time       `db:"order_date" json:"order_date,omitempty"`
	RequestedBy   string           `db:"requested_by" json:"requested_by"`
	RequesterName string           `db:"requester_name" json:"requester_name"`
	Status        string           `db:"status" json:"status"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// SourceRecords carries the raw records of every source type for one refresh.
// A nil slice means the source was not queried or returned nothing.
type SourceRecords struct {
	Invoices       []RawInvoice
	Receipts       []RawReceipt
	Mileage        []RawMileage
	KitRentals     []RawKitRental
	PerDiems       []RawPerDiem
	Timecards      []RawTimecard
	PurchaseOrders []RawPurchaseOrder
}

// Total returns the number of raw records across all sources
func (s SourceRecords) Total() int {
	return len(s.Invoices) + len(s.Receipts) + len(s.Mileage) + len(s.KitRentals) +
		len(s.PerDiems) + len(s.Timecards) + len(s.PurchaseOrders)
}
