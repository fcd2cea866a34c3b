package queue

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/garyjia/approvals-hub/internal/domain/entity"
)

// All disables an exact-match clause
const All = "all"

// Predicate is a composable queue filter. Empty or "all" disables a clause;
// active clauses are ANDed.
type Predicate struct {
	Search   string `form:"search" json:"search"`
	SubType  string `form:"sub_type" json:"sub_type"`
	Status   string `form:"status" json:"status"`
	Category string `form:"category" json:"category"`
}

func active(clause string) bool {
	return clause != "" && clause != All
}

// IsNoop reports whether the predicate accepts every item
func (p Predicate) IsNoop() bool {
	return !active(p.SubType) && !active(p.Status) && !active(p.Category) &&
		strings.TrimSpace(p.Search) == ""
}

// Filter returns the items matching p in their input order. The input slice
// is never modified; a no-op predicate returns it as is.
func Filter(items []entity.PendingItem, p Predicate) []entity.PendingItem {
	if p.IsNoop() {
		return items
	}

	// Caser is stateful, so each call gets its own.
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(p.Search))

	out := make([]entity.PendingItem, 0, len(items))
	for _, item := range items {
		if active(p.Category) && string(item.Category) != p.Category {
			continue
		}
		if active(p.SubType) && item.SubType != p.SubType {
			continue
		}
		if active(p.Status) && item.Status != p.Status {
			continue
		}
		if needle != "" &&
			!strings.Contains(fold.String(item.Title), needle) &&
			!strings.Contains(fold.String(item.SubmitterName), needle) {
			continue
		}
		out = append(out, item)
	}
	return out
}
