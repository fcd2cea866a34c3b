package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/domain/workflow"
)

const unknownSubmitter = "Unknown"

// NormalizeResult is the output of Normalize
type NormalizeResult struct {
	Items []entity.PendingItem
	// Dropped counts records discarded per source type: missing identity,
	// duplicate identity, or a per-diem claim the grouper rejected.
	Dropped map[entity.ItemType]int
	// UnexpectedStatus counts items whose status is neither open nor a known
	// processed value for their type. They still land in processed.
	UnexpectedStatus int
}

// DroppedTotal returns the number of records dropped across all types
func (r NormalizeResult) DroppedTotal() int {
	total := 0
	for _, n := range r.Dropped {
		total += n
	}
	return total
}

// normalizer accumulates items while enforcing (itemType, id) uniqueness
type normalizer struct {
	result NormalizeResult
	seen   map[string]struct{}
}

func (n *normalizer) add(item entity.PendingItem) {
	if strings.TrimSpace(item.ID) == "" {
		n.result.Dropped[item.ItemType]++
		return
	}
	if _, dup := n.seen[item.Key()]; dup {
		n.result.Dropped[item.ItemType]++
		return
	}
	n.seen[item.Key()] = struct{}{}

	item.Category = item.ItemType.Category()
	item.SubType = item.ItemType.SubType()
	if item.SubmitterName == "" {
		item.SubmitterName = unknownSubmitter
	}
	if !workflow.IsOpen(item.ItemType, item.Status) && !workflow.KnownTerminal(item.ItemType, item.Status) {
		n.result.UnexpectedStatus++
	}
	n.result.Items = append(n.result.Items, item)
}

// Normalize maps the raw records of every source type onto PendingItem.
// Per-diem claims are grouped first and emitted as one per_diem_group item per
// group. The transform is pure; bad records are dropped and counted.
func Normalize(src entity.SourceRecords) NormalizeResult {
	n := &normalizer{
		result: NormalizeResult{
			Items:   make([]entity.PendingItem, 0, src.Total()),
			Dropped: make(map[entity.ItemType]int),
		},
		seen: make(map[string]struct{}, src.Total()),
	}

	for _, r := range src.Invoices {
		n.add(fromInvoice(r))
	}
	for _, r := range src.Receipts {
		n.add(fromReceipt(r))
	}
	for _, r := range src.Mileage {
		n.add(fromMileage(r))
	}
	for _, r := range src.KitRentals {
		n.add(fromKitRental(r))
	}

	grouped := GroupClaims(src.PerDiems)
	if grouped.Dropped > 0 {
		n.result.Dropped[entity.ItemTypePerDiemGroup] += grouped.Dropped
	}
	for i := range grouped.Groups {
		n.add(fromGroup(&grouped.Groups[i]))
	}

	for _, r := range src.Timecards {
		n.add(fromTimecard(r))
	}
	for _, r := range src.PurchaseOrders {
		n.add(fromPurchaseOrder(r))
	}

	return n.result
}

func fromInvoice(r entity.RawInvoice) entity.PendingItem {
	title := firstNonEmpty(r.VendorName, r.Description)
	if title == "" && r.InvoiceNumber != "" {
		title = "Invoice " + r.InvoiceNumber
	}
	return entity.PendingItem{
		ID:            r.ID,
		ItemType:      entity.ItemTypeInvoice,
		Title:         orDefault(title, "Invoice"),
		SubmitterName: firstNonEmpty(r.SubmitterName, r.SubmittedBy),
		SubmitterID:   r.SubmittedBy,
		Amount:        r.Amount,
		Date:          dateOr(r.InvoiceDate, r.CreatedAt),
		Status:        r.Status,
	}
}

func fromReceipt(r entity.RawReceipt) entity.PendingItem {
	return entity.PendingItem{
		ID:            r.ID,
		ItemType:      entity.ItemTypeReceipt,
		Title:         orDefault(firstNonEmpty(r.VendorName, r.Description), "Receipt"),
		SubmitterName: r.SubmitterName,
		SubmitterID:   r.SubmitterID,
		Amount:        r.Amount,
		Date:          dateOr(r.ReceiptDate, r.CreatedAt),
		Status:        r.Status,
	}
}

func fromMileage(r entity.RawMileage) entity.PendingItem {
	title := r.Purpose
	if title == "" && r.Origin != "" && r.Destination != "" {
		title = r.Origin + " to " + r.Destination
	}

	amount := r.TotalAmount
	if amount == nil && !r.Rate.IsZero() {
		computed := r.Miles.Mul(r.Rate).Round(2)
		amount = &computed
	}

	return entity.PendingItem{
		ID:            r.ID,
		ItemType:      entity.ItemTypeMileage,
		Title:         orDefault(title, "Mileage"),
		SubmitterName: r.SubmitterName,
		SubmitterID:   r.SubmitterID,
		Amount:        amount,
		Date:          dateOr(r.TripDate, r.CreatedAt),
		Status:        r.Status,
	}
}

func fromKitRental(r entity.RawKitRental) entity.PendingItem {
	amount := r.TotalAmount
	if amount == nil && r.DailyRate != nil && r.Days > 0 {
		computed := r.DailyRate.Mul(decimal.NewFromInt(int64(r.Days)))
		amount = &computed
	}

	return entity.PendingItem{
		ID:            r.ID,
		ItemType:      entity.ItemTypeKitRental,
		Title:         orDefault(firstNonEmpty(r.KitName, r.Description), "Kit Rental"),
		SubmitterName: r.SubmitterName,
		SubmitterID:   r.SubmitterID,
		Amount:        amount,
		Date:          dateOr(r.StartDate, r.CreatedAt),
		Status:        r.Status,
	}
}

func fromGroup(g *entity.GroupedClaim) entity.PendingItem {
	total := g.TotalAmount
	noun := "entries"
	if g.Count == 1 {
		noun = "entry"
	}
	return entity.PendingItem{
		ID:            g.ID,
		ItemType:      entity.ItemTypePerDiemGroup,
		Title:         fmt.Sprintf("Per Diem (%d %s)", g.Count, noun),
		SubmitterName: g.SubmitterName,
		SubmitterID:   g.SubmitterID,
		Amount:        &total,
		Date:          g.DateRange.Latest,
		Status:        g.Status,
		GroupRef:      g,
	}
}

func fromTimecard(r entity.RawTimecard) entity.PendingItem {
	title := "Timecard"
	if r.WeekEnding != nil {
		title = "Timecard w/e " + r.WeekEnding.Format("2006-01-02")
	}
	date := r.CreatedAt
	if r.SubmittedAt != nil {
		date = *r.SubmittedAt
	}
	return entity.PendingItem{
		ID:            r.ID,
		ItemType:      entity.ItemTypeTimecard,
		Title:         title,
		SubmitterName: r.CrewMemberName,
		SubmitterID:   r.CrewMemberID,
		Date:          dateOr(r.WeekEnding, date),
		Status:        r.Status,
	}
}

func fromPurchaseOrder(r entity.RawPurchaseOrder) entity.PendingItem {
	title := firstNonEmpty(r.Description, r.VendorName)
	if title == "" && r.PONumber != "" {
		title = "PO " + r.PONumber
	}
	return entity.PendingItem{
		ID:            r.ID,
		ItemType:      entity.ItemTypePurchaseOrder,
		Title:         orDefault(title, "Purchase Order"),
		SubmitterName: firstNonEmpty(r.RequesterName, r.RequestedBy),
		SubmitterID:   r.RequestedBy,
		Amount:        r.Amount,
		Date:          dateOr(r.OrderDate, r.CreatedAt),
		Status:        r.Status,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func dateOr(primary *time.Time, fallback time.Time) time.Time {
	if primary != nil && !primary.IsZero() {
		return *primary
	}
	return fallback
}
