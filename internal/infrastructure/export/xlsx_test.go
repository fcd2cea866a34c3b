package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/domain/queue"
)

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestXLSXExporter_Export(t *testing.T) {
	items := []entity.PendingItem{
		{
			ID: "r-1", ItemType: entity.ItemTypeReceipt, Category: entity.CategoryExpense,
			SubType: entity.SubTypeReceipt, Title: "Taxi", SubmitterName: "Alex",
			Amount: amount("42.50"), Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			Status: entity.StatusPending,
		},
		{
			ID: "t-1", ItemType: entity.ItemTypeTimecard, Category: entity.CategoryTimecard,
			Title: "Week 10", SubmitterName: "Sam", Status: entity.StatusSubmitted,
		},
	}
	summary := queue.Summarize(items)

	var buf bytes.Buffer
	e := NewXLSXExporter("Pending", zap.NewNop())
	require.NoError(t, e.Export(&buf, items, summary))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Pending", SummarySheet}, f.GetSheetList())

	rows, err := f.GetRows("Pending")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Date", "Type", "Sub-type", "Title", "Submitter", "Amount", "Status"}, rows[0])
	assert.Equal(t, []string{"2024-03-05", "receipt", "receipt", "Taxi", "Alex", "42.5", "pending"}, rows[1])
	assert.Equal(t, "timecard", rows[2][1])
	assert.Equal(t, "", rows[2][5])
	assert.Equal(t, "submitted", rows[2][6])

	totals, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, totals, 6)
	assert.Equal(t, []string{"expense", "1", "42.5"}, totals[1])
	assert.Equal(t, []string{"timecard", "1", "0"}, totals[3])
	assert.Equal(t, []string{"all", "2", "42.5"}, totals[5])
}

func TestXLSXExporter_EmptyQueue(t *testing.T) {
	var buf bytes.Buffer
	e := NewXLSXExporter("", zap.NewNop())
	require.NoError(t, e.Export(&buf, nil, queue.Summarize(nil)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Pending")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
