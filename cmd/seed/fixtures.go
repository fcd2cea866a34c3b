package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/infrastructure/persistence/repository"
)

const dateLayout = "2006-01-02"

// Fixtures is the YAML seed file layout. Amounts and dates are strings so
// the file stays readable and decimal values stay exact.
type Fixtures struct {
	Invoices []struct {
		ID            string `yaml:"id"`
		InvoiceNumber string `yaml:"invoice_number"`
		VendorName    string `yaml:"vendor_name"`
		Description   string `yaml:"description"`
		Amount        string `yaml:"amount"`
		InvoiceDate   string `yaml:"invoice_date"`
		SubmittedBy   string `yaml:"submitted_by"`
		SubmitterName string `yaml:"submitter_name"`
		Status        string `yaml:"status"`
	} `yaml:"invoices"`

	Receipts []struct {
		ID            string `yaml:"id"`
		VendorName    string `yaml:"vendor_name"`
		Description   string `yaml:"description"`
		Amount        string `yaml:"amount"`
		ReceiptDate   string `yaml:"receipt_date"`
		SubmitterID   string `yaml:"submitter_id"`
		SubmitterName string `yaml:"submitter_name"`
		Status        string `yaml:"status"`
	} `yaml:"receipts"`

	Mileage []struct {
		ID            string `yaml:"id"`
		Origin        string `yaml:"origin"`
		Destination   string `yaml:"destination"`
		Purpose       string `yaml:"purpose"`
		Miles         string `yaml:"miles"`
		Rate          string `yaml:"rate"`
		TotalAmount   string `yaml:"total_amount"`
		TripDate      string `yaml:"trip_date"`
		SubmitterID   string `yaml:"submitter_id"`
		SubmitterName string `yaml:"submitter_name"`
		Status        string `yaml:"status"`
	} `yaml:"mileage"`

	KitRentals []struct {
		ID            string `yaml:"id"`
		KitName       string `yaml:"kit_name"`
		Description   string `yaml:"description"`
		DailyRate     string `yaml:"daily_rate"`
		Days          int    `yaml:"days"`
		TotalAmount   string `yaml:"total_amount"`
		StartDate     string `yaml:"start_date"`
		SubmitterID   string `yaml:"submitter_id"`
		SubmitterName string `yaml:"submitter_name"`
		Status        string `yaml:"status"`
	} `yaml:"kit_rentals"`

	PerDiems []struct {
		ID            string `yaml:"id"`
		ClaimDate     string `yaml:"claim_date"`
		MealType      string `yaml:"meal_type"`
		Location      string `yaml:"location"`
		Amount        string `yaml:"amount"`
		SubmitterID   string `yaml:"submitter_id"`
		SubmitterName string `yaml:"submitter_name"`
		Status        string `yaml:"status"`
	} `yaml:"per_diems"`

	Timecards []struct {
		ID             string `yaml:"id"`
		WeekEnding     string `yaml:"week_ending"`
		TotalHours     string `yaml:"total_hours"`
		Department     string `yaml:"department"`
		CrewMemberID   string `yaml:"crew_member_id"`
		CrewMemberName string `yaml:"crew_member_name"`
		Status         string `yaml:"status"`
		SubmittedAt    string `yaml:"submitted_at"`
	} `yaml:"timecards"`

	PurchaseOrders []struct {
		ID            string `yaml:"id"`
		PONumber      string `yaml:"po_number"`
		VendorName    string `yaml:"vendor_name"`
		Description   string `yaml:"description"`
		Amount        string `yaml:"amount"`
		OrderDate     string `yaml:"order_date"`
		RequestedBy   string `yaml:"requested_by"`
		RequesterName string `yaml:"requester_name"`
		Status        string `yaml:"status"`
	} `yaml:"purchase_orders"`
}

// LoadFixtures reads and decodes a fixture file
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &f, nil
}

// fieldParser collects the first parse error so conversions read linearly
type fieldParser struct {
	err error
}

func (p *fieldParser) amount(where, s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" || p.err != nil {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		p.err = fmt.Errorf("%s: invalid amount %q: %w", where, s, err)
		return nil
	}
	return &d
}

func (p *fieldParser) value(where, s string) decimal.Decimal {
	if d := p.amount(where, s); d != nil {
		return *d
	}
	return decimal.Zero
}

func (p *fieldParser) date(where, s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || p.err != nil {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		p.err = fmt.Errorf("%s: invalid date %q: %w", where, s, err)
		return nil
	}
	return &t
}

func (p *fieldParser) day(where, s string) time.Time {
	if t := p.date(where, s); t != nil {
		return *t
	}
	return time.Time{}
}

// Count returns the number of fixture records
func (f *Fixtures) Count() int {
	return len(f.Invoices) + len(f.Receipts) + len(f.Mileage) + len(f.KitRentals) +
		len(f.PerDiems) + len(f.Timecards) + len(f.PurchaseOrders)
}

// Records converts the fixtures into raw source records
func (f *Fixtures) Records() (entity.SourceRecords, error) {
	var out entity.SourceRecords
	p := &fieldParser{}

	for _, r := range f.Invoices {
		where := "invoice " + r.ID
		out.Invoices = append(out.Invoices, entity.RawInvoice{
			ID: r.ID, InvoiceNumber: r.InvoiceNumber, VendorName: r.VendorName, Description: r.Description,
			Amount: p.amount(where, r.Amount), InvoiceDate: p.date(where, r.InvoiceDate),
			SubmittedBy: r.SubmittedBy, SubmitterName: r.SubmitterName, Status: r.Status,
		})
	}
	for _, r := range f.Receipts {
		where := "receipt " + r.ID
		out.Receipts = append(out.Receipts, entity.RawReceipt{
			ID: r.ID, VendorName: r.VendorName, Description: r.Description,
			Amount: p.amount(where, r.Amount), ReceiptDate: p.date(where, r.ReceiptDate),
			SubmitterID: r.SubmitterID, SubmitterName: r.SubmitterName, Status: r.Status,
		})
	}
	for _, r := range f.Mileage {
		where := "mileage " + r.ID
		out.Mileage = append(out.Mileage, entity.RawMileage{
			ID: r.ID, Origin: r.Origin, Destination: r.Destination, Purpose: r.Purpose,
			Miles: p.value(where, r.Miles), Rate: p.value(where, r.Rate),
			TotalAmount: p.amount(where, r.TotalAmount), TripDate: p.date(where, r.TripDate),
			SubmitterID: r.SubmitterID, SubmitterName: r.SubmitterName, Status: r.Status,
		})
	}
	for _, r := range f.KitRentals {
		where := "kit rental " + r.ID
		out.KitRentals = append(out.KitRentals, entity.RawKitRental{
			ID: r.ID, KitName: r.KitName, Description: r.Description,
			DailyRate: p.amount(where, r.DailyRate), Days: r.Days,
			TotalAmount: p.amount(where, r.TotalAmount), StartDate: p.date(where, r.StartDate),
			SubmitterID: r.SubmitterID, SubmitterName: r.SubmitterName, Status: r.Status,
		})
	}
	for _, r := range f.PerDiems {
		where := "per diem " + r.ID
		out.PerDiems = append(out.PerDiems, entity.RawPerDiem{
			ID: r.ID, ClaimDate: p.day(where, r.ClaimDate), MealType: r.MealType, Location: r.Location,
			Amount:      p.value(where, r.Amount),
			SubmitterID: r.SubmitterID, SubmitterName: r.SubmitterName, Status: r.Status,
		})
	}
	for _, r := range f.Timecards {
		where := "timecard " + r.ID
		out.Timecards = append(out.Timecards, entity.RawTimecard{
			ID: r.ID, WeekEnding: p.date(where, r.WeekEnding), TotalHours: p.value(where, r.TotalHours),
			Department: r.Department, CrewMemberID: r.CrewMemberID, CrewMemberName: r.CrewMemberName,
			Status: r.Status, SubmittedAt: p.date(where, r.SubmittedAt),
		})
	}
	for _, r := range f.PurchaseOrders {
		where := "purchase order " + r.ID
		out.PurchaseOrders = append(out.PurchaseOrders, entity.RawPurchaseOrder{
			ID: r.ID, PONumber: r.PONumber, VendorName: r.VendorName, Description: r.Description,
			Amount: p.amount(where, r.Amount), OrderDate: p.date(where, r.OrderDate),
			RequestedBy: r.RequestedBy, RequesterName: r.RequesterName, Status: r.Status,
		})
	}

	if p.err != nil {
		return entity.SourceRecords{}, p.err
	}
	return out, nil
}

// insertAll writes every record through the source adapters. Callers run it
// inside a transaction so a bad record leaves nothing behind.
func insertAll(ctx context.Context, sources *repository.SQLiteSources, recs entity.SourceRecords) error {
	for i := range recs.Invoices {
		if err := sources.Invoices.Create(ctx, &recs.Invoices[i]); err != nil {
			return err
		}
	}
	for i := range recs.Receipts {
		if err := sources.Receipts.Create(ctx, &recs.Receipts[i]); err != nil {
			return err
		}
	}
	for i := range recs.Mileage {
		if err := sources.Mileage.Create(ctx, &recs.Mileage[i]); err != nil {
			return err
		}
	}
	for i := range recs.KitRentals {
		if err := sources.KitRentals.Create(ctx, &recs.KitRentals[i]); err != nil {
			return err
		}
	}
	for i := range recs.PerDiems {
		if err := sources.PerDiems.Create(ctx, &recs.PerDiems[i]); err != nil {
			return err
		}
	}
	for i := range recs.Timecards {
		if err := sources.Timecards.Create(ctx, &recs.Timecards[i]); err != nil {
			return err
		}
	}
	for i := range recs.PurchaseOrders {
		if err := sources.PurchaseOrders.Create(ctx, &recs.PurchaseOrders[i]); err != nil {
			return err
		}
	}
	return nil
}
