package queue

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/approvals-hub/internal/domain/entity"
)

// Summary holds dashboard badge counts and pending value totals
type Summary struct {
	Count      int                                 `json:"count"`
	Counts     map[entity.Category]int             `json:"counts"`
	Totals     map[entity.Category]decimal.Decimal `json:"totals"`
	GrandTotal decimal.Decimal                     `json:"grand_total"`
}

// Summarize reduces the given items, normally the pending partition or a
// filtered view of it. Items without an amount add to counts only.
func Summarize(items []entity.PendingItem) Summary {
	s := Summary{
		Counts:     make(map[entity.Category]int, len(entity.Categories)),
		Totals:     make(map[entity.Category]decimal.Decimal, len(entity.Categories)),
		GrandTotal: decimal.Zero,
	}
	for _, c := range entity.Categories {
		s.Counts[c] = 0
		s.Totals[c] = decimal.Zero
	}

	for _, item := range items {
		amount := item.AmountOrZero()
		s.Count++
		s.Counts[item.Category]++
		s.Totals[item.Category] = s.Totals[item.Category].Add(amount)
		s.GrandTotal = s.GrandTotal.Add(amount)
	}
	return s
}
