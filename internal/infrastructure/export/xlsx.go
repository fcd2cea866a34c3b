// Package export renders queue views as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/domain/queue"
)

// SummarySheet is the name of the totals sheet
const SummarySheet = "Summary"

const dateLayout = "2006-01-02"

var pendingHeader = []interface{}{"Date", "Type", "Sub-type", "Title", "Submitter", "Amount", "Status"}

// XLSXExporter writes pending items and their summary to an XLSX workbook
type XLSXExporter struct {
	sheetName string
	logger    *zap.Logger
}

// NewXLSXExporter creates an exporter writing items to sheetName
func NewXLSXExporter(sheetName string, logger *zap.Logger) *XLSXExporter {
	if sheetName == "" {
		sheetName = "Pending"
	}
	return &XLSXExporter{sheetName: sheetName, logger: logger}
}

// ContentType is the MIME type of the produced workbook
func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Export writes one row per item in the given order plus a summary sheet
func (e *XLSXExporter) Export(w io.Writer, items []entity.PendingItem, summary queue.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), e.sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := e.writePending(f, items); err != nil {
		return err
	}
	if err := e.writeSummary(f, summary); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Queue exported",
		zap.Int("rows", len(items)),
		zap.String("grand_total", summary.GrandTotal.StringFixed(2)))
	return nil
}

func (e *XLSXExporter) writePending(f *excelize.File, items []entity.PendingItem) error {
	if err := f.SetSheetRow(e.sheetName, "A1", &pendingHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, item := range items {
		var amount interface{}
		if item.Amount != nil {
			amount = item.Amount.InexactFloat64()
		}
		var date interface{}
		if !item.Date.IsZero() {
			date = item.Date.Format(dateLayout)
		}

		row := []interface{}{
			date,
			string(item.ItemType),
			item.SubType,
			item.Title,
			item.SubmitterName,
			amount,
			item.Status,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(e.sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return nil
}

func (e *XLSXExporter) writeSummary(f *excelize.File, summary queue.Summary) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	rows := [][]interface{}{{"Category", "Count", "Total"}}
	for _, c := range entity.Categories {
		rows = append(rows, []interface{}{
			string(c),
			summary.Counts[c],
			summary.Totals[c].InexactFloat64(),
		})
	}
	rows = append(rows, []interface{}{"all", summary.Count, summary.GrandTotal.InexactFloat64()})

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	return nil
}
