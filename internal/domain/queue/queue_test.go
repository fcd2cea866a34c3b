package queue

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/domain/workflow"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(d int) *time.Time {
	t := day(d)
	return &t
}

func money(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func perDiem(id, submitter, status string, d int, amount string) entity.RawPerDiem {
	return entity.RawPerDiem{
		ID:            id,
		ClaimDate:     day(d),
		MealType:      "dinner",
		Amount:        decimal.RequireFromString(amount),
		SubmitterID:   submitter,
		SubmitterName: "Alex",
		Status:        status,
	}
}

func mixedSources() entity.SourceRecords {
	return entity.SourceRecords{
		Invoices: []entity.RawInvoice{
			{ID: "inv-1", VendorName: "Lights Co", Amount: money("1200.00"), InvoiceDate: dayPtr(3), SubmitterName: "Dana", Status: "pending_approval"},
		},
		Receipts: []entity.RawReceipt{
			{ID: "r-1", VendorName: "Hardware Depot", Amount: money("42.10"), ReceiptDate: dayPtr(4), SubmitterName: "Sam", Status: "pending"},
			{ID: "r-2", Description: "Taxi", Amount: money("18.00"), ReceiptDate: dayPtr(2), SubmitterName: "Sam", Status: "reimbursed"},
			{ID: "r-3", Amount: money("9.99"), ReceiptDate: dayPtr(1), SubmitterName: "Kim", Status: "escalated"},
		},
		Mileage: []entity.RawMileage{
			{ID: "m-1", Origin: "Studio", Destination: "Location B", Miles: decimal.NewFromInt(30), Rate: decimal.RequireFromString("0.67"), TripDate: dayPtr(5), SubmitterName: "Lee", Status: "pending"},
		},
		KitRentals: []entity.RawKitRental{
			{ID: "k-1", KitName: "Makeup kit", DailyRate: money("25"), Days: 4, StartDate: dayPtr(6), SubmitterName: "Rae", Status: "active"},
		},
		PerDiems: []entity.RawPerDiem{
			perDiem("pd-1", "alex", "pending", 5, "40"),
			perDiem("pd-2", "alex", "pending", 6, "55"),
			perDiem("pd-3", "alex", "approved", 2, "40"),
		},
		Timecards: []entity.RawTimecard{
			{ID: "t-1", WeekEnding: dayPtr(7), CrewMemberName: "Jo", Status: "submitted"},
		},
		PurchaseOrders: []entity.RawPurchaseOrder{
			{ID: "po-1", PONumber: "0042", Amount: money("500"), OrderDate: dayPtr(8), RequesterName: "Pat", Status: "pending"},
			{ID: "", Description: "no identity", Status: "pending"},
		},
	}
}

func TestGroupClaims_ExampleScenario(t *testing.T) {
	claims := []entity.RawPerDiem{
		perDiem("a", "alex", "pending", 5, "40"),
		perDiem("b", "alex", "pending", 6, "55"),
		perDiem("c", "alex", "pending", 7, "40"),
	}

	result := GroupClaims(claims)

	require.Len(t, result.Groups, 1)
	g := result.Groups[0]
	assert.Equal(t, "alex-pending", g.ID)
	assert.Equal(t, 3, g.Count)
	assert.Len(t, g.Entries, 3)
	assert.Len(t, g.EntryIDs, 3)
	assert.True(t, g.TotalAmount.Equal(decimal.NewFromInt(135)), "total = %s", g.TotalAmount)
	assert.Equal(t, day(5), g.DateRange.Earliest)
	assert.Equal(t, day(7), g.DateRange.Latest)
	assert.Equal(t, []string{"a", "b", "c"}, g.EntryIDList())
}

func TestGroupClaims_SplitsBySubmitterAndStatus(t *testing.T) {
	claims := []entity.RawPerDiem{
		perDiem("1", "alex", "pending", 5, "10"),
		perDiem("2", "blair", "pending", 5, "20"),
		perDiem("3", "alex", "approved", 5, "30"),
		perDiem("4", "alex", "pending", 9, "40"),
	}

	result := GroupClaims(claims)

	require.Len(t, result.Groups, 3)
	assert.Equal(t, "alex-pending", result.Groups[0].ID)
	assert.Equal(t, "blair-pending", result.Groups[1].ID)
	assert.Equal(t, "alex-approved", result.Groups[2].ID)
	assert.Equal(t, 2, result.Groups[0].Count)
	assert.Zero(t, result.Dropped)
}

func TestGroupClaims_DropsInvalidClaims(t *testing.T) {
	claims := []entity.RawPerDiem{
		perDiem("", "alex", "pending", 5, "10"),
		perDiem("x", "", "pending", 5, "10"),
		perDiem("y", "alex", "on-hold", 5, "10"),
		perDiem("z", "alex", "", 5, "10"),
		perDiem("ok", "alex", "pending", 5, "10"),
		perDiem("ok", "alex", "pending", 6, "10"),
	}

	result := GroupClaims(claims)

	assert.Equal(t, 5, result.Dropped)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, 1, result.Groups[0].Count)
	assert.Equal(t, len(result.Groups[0].Entries), len(result.Groups[0].EntryIDs))
}

func TestGroupClaims_IsOrderIndependent(t *testing.T) {
	forward := []entity.RawPerDiem{
		perDiem("a", "alex", "pending", 9, "12.50"),
		perDiem("b", "alex", "pending", 3, "7.25"),
		perDiem("c", "alex", "pending", 6, "30"),
	}
	reversed := []entity.RawPerDiem{forward[2], forward[1], forward[0]}

	first := GroupClaims(forward).Groups[0]
	again := GroupClaims(forward).Groups[0]
	other := GroupClaims(reversed).Groups[0]

	for _, g := range []entity.GroupedClaim{again, other} {
		assert.True(t, first.TotalAmount.Equal(g.TotalAmount))
		assert.Equal(t, first.Count, g.Count)
		assert.Equal(t, first.DateRange, g.DateRange)
	}
	assert.Equal(t, day(3), first.DateRange.Earliest)
	assert.Equal(t, day(9), first.DateRange.Latest)
}

func TestParseGroupKey(t *testing.T) {
	sub, status, ok := ParseGroupKey(GroupKey("6f1c-44aa", "pending"))
	require.True(t, ok)
	assert.Equal(t, "6f1c-44aa", sub)
	assert.Equal(t, "pending", status)

	_, _, ok = ParseGroupKey("nokey")
	assert.False(t, ok)
	_, _, ok = ParseGroupKey("alex-")
	assert.False(t, ok)
}

func TestNormalize_MixedSources(t *testing.T) {
	src := mixedSources()

	result := Normalize(src)

	// 12 raw records, one missing identity; 3 per-diems collapse into 2 groups.
	assert.Len(t, result.Items, 10)
	assert.Equal(t, 1, result.Dropped[entity.ItemTypePurchaseOrder])
	assert.Equal(t, 1, result.DroppedTotal())
	assert.Equal(t, 1, result.UnexpectedStatus, "r-3 carries an unexpected status")

	byKey := make(map[string]entity.PendingItem)
	for _, item := range result.Items {
		byKey[item.Key()] = item
	}

	inv := byKey["invoice:inv-1"]
	assert.Equal(t, "Lights Co", inv.Title)
	assert.Equal(t, entity.CategoryInvoice, inv.Category)
	assert.Empty(t, inv.SubType)

	assert.Equal(t, "Taxi", byKey["receipt:r-2"].Title)
	assert.Equal(t, "Receipt", byKey["receipt:r-3"].Title)

	m := byKey["mileage:m-1"]
	assert.Equal(t, "Studio to Location B", m.Title)
	require.NotNil(t, m.Amount)
	assert.Equal(t, "20.1", m.Amount.String())
	assert.Equal(t, entity.SubTypeMileage, m.SubType)

	k := byKey["kit_rental:k-1"]
	require.NotNil(t, k.Amount)
	assert.True(t, k.Amount.Equal(decimal.NewFromInt(100)))

	group := byKey["per_diem_group:alex-pending"]
	assert.Equal(t, entity.CategoryExpense, group.Category)
	assert.Equal(t, entity.SubTypePerDiem, group.SubType)
	require.NotNil(t, group.GroupRef)
	assert.Equal(t, 2, group.GroupRef.Count)
	assert.Equal(t, day(6), group.Date)
	assert.Equal(t, "Per Diem (2 entries)", group.Title)

	tc := byKey["timecard:t-1"]
	assert.Nil(t, tc.Amount)
	assert.Equal(t, "Timecard w/e 2024-01-07", tc.Title)
	assert.Equal(t, entity.CategoryTimecard, tc.Category)

	assert.Equal(t, "PO 0042", byKey["purchase_order:po-1"].Title)
}

func TestNormalize_DropsDuplicateIdentity(t *testing.T) {
	src := entity.SourceRecords{
		Receipts: []entity.RawReceipt{
			{ID: "r-1", Status: "pending"},
			{ID: "r-1", Status: "approved"},
		},
		// Same id under a different type is a distinct item.
		Mileage: []entity.RawMileage{{ID: "r-1", Status: "pending"}},
	}

	result := Normalize(src)

	assert.Len(t, result.Items, 2)
	assert.Equal(t, 1, result.Dropped[entity.ItemTypeReceipt])
	for _, item := range result.Items {
		assert.Equal(t, "Unknown", item.SubmitterName)
	}
}

func TestPartition_EveryItemInExactlyOnePartition(t *testing.T) {
	result := Normalize(mixedSources())

	parts := Partition(result.Items)

	assert.Equal(t, len(result.Items), len(parts.Pending)+len(parts.Processed))

	seen := make(map[string]int)
	for _, item := range parts.Pending {
		assert.True(t, workflow.IsOpen(item.ItemType, item.Status), item.Key())
		seen[item.Key()]++
	}
	for _, item := range parts.Processed {
		assert.False(t, workflow.IsOpen(item.ItemType, item.Status), item.Key())
		seen[item.Key()]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, key)
	}

	assert.Len(t, parts.Pending, 6)
	assert.Len(t, parts.Processed, 4)
}

func TestPartition_SortsNewestFirst(t *testing.T) {
	items := []entity.PendingItem{
		{ID: "b", ItemType: entity.ItemTypeReceipt, Status: "pending", Date: day(2)},
		{ID: "c", ItemType: entity.ItemTypeReceipt, Status: "pending", Date: day(9)},
		{ID: "a", ItemType: entity.ItemTypeReceipt, Status: "pending", Date: day(2)},
		{ID: "d", ItemType: entity.ItemTypeReceipt, Status: "approved", Date: day(1)},
		{ID: "e", ItemType: entity.ItemTypeReceipt, Status: "rejected", Date: day(4)},
	}

	parts := Partition(items)

	ids := func(items []entity.PendingItem) []string {
		out := make([]string, 0, len(items))
		for _, i := range items {
			out = append(out, i.ID)
		}
		return out
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids(parts.Pending))
	assert.Equal(t, []string{"e", "d"}, ids(parts.Processed))
	assert.Equal(t, "b", items[0].ID, "input must not be reordered")
}

func TestRecentlyProcessed(t *testing.T) {
	items := []entity.PendingItem{
		{ID: "old", Date: day(1)},
		{ID: "edge", Date: day(3)},
		{ID: "new", Date: day(9)},
	}
	now := day(10)

	recent := RecentlyProcessed(items, now, 7*24*time.Hour)
	require.Len(t, recent, 2)
	assert.Equal(t, "edge", recent[0].ID)

	assert.Len(t, RecentlyProcessed(items, now, 0), 3)
}

func TestFilter_NoopIsIdentity(t *testing.T) {
	items := Partition(Normalize(mixedSources()).Items).Pending

	got := Filter(items, Predicate{Search: "", SubType: All, Status: All, Category: All})
	assert.Equal(t, items, got)

	got = Filter(items, Predicate{})
	assert.Equal(t, items, got)
}

func TestFilter_Clauses(t *testing.T) {
	items := Normalize(mixedSources()).Items

	tests := []struct {
		name string
		pred Predicate
		want []string
	}{
		{"search title case-insensitive", Predicate{Search: "hardware"}, []string{"receipt:r-1"}},
		{"search submitter", Predicate{Search: "ALEX"}, []string{"per_diem_group:alex-pending", "per_diem_group:alex-approved"}},
		{"category", Predicate{Category: "timecard"}, []string{"timecard:t-1"}},
		{"sub type", Predicate{SubType: "mileage"}, []string{"mileage:m-1"}},
		{"status", Predicate{Status: "reimbursed"}, []string{"receipt:r-2"}},
		{"anded clauses", Predicate{Category: "expense", Search: "sam", Status: "pending"}, []string{"receipt:r-1"}},
		{"no match", Predicate{Search: "zzz"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(items, tt.pred)
			keys := make([]string, 0, len(got))
			for _, item := range got {
				keys = append(keys, item.Key())
			}
			assert.ElementsMatch(t, tt.want, keys)
		})
	}
}

func TestFilter_PreservesInputOrderAndDoesNotMutate(t *testing.T) {
	items := Partition(Normalize(mixedSources()).Items).Pending
	snapshot := append([]entity.PendingItem(nil), items...)

	got := Filter(items, Predicate{Category: "expense"})

	assert.Equal(t, snapshot, items)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Date.After(got[i-1].Date))
	}
}

func TestSummarize(t *testing.T) {
	pending := Partition(Normalize(mixedSources()).Items).Pending

	s := Summarize(pending)

	assert.Equal(t, 6, s.Count)
	assert.Equal(t, 3, s.Counts[entity.CategoryExpense])
	assert.Equal(t, 1, s.Counts[entity.CategoryInvoice])
	assert.Equal(t, 1, s.Counts[entity.CategoryTimecard])
	assert.Equal(t, 1, s.Counts[entity.CategoryPurchaseOrder])

	// 42.10 + 20.10 + 95 expense, 1200 invoice, 500 PO, timecard adds nothing.
	assert.Equal(t, "157.2", s.Totals[entity.CategoryExpense].String())
	assert.True(t, s.Totals[entity.CategoryTimecard].IsZero())
	assert.Equal(t, "1857.2", s.GrandTotal.String())
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)

	assert.Zero(t, s.Count)
	assert.True(t, s.GrandTotal.IsZero())
	for _, c := range entity.Categories {
		assert.Contains(t, s.Counts, c)
		assert.Contains(t, s.Totals, c)
	}
}
