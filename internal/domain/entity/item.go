package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PendingItem is the canonical, display-agnostic projection of a source record.
// The composite key (ItemType, ID) is its identity; ID alone is only unique
// within its type.
type PendingItem struct {
	ID            string           `json:"id"`
	ItemType      ItemType         `json:"item_type"`
	Category      Category         `json:"category"`
	SubType       string           `json:"sub_type,omitempty"`
	Title         string           `json:"title"`
	SubmitterName string           `json:"submitter_name"`
	SubmitterID   string           `json:"submitter_id,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Date          time.Time        `json:"date"`
	Status        string           `json:"status"`
	GroupRef      *GroupedClaim    `json:"group,omitempty"`
}

// Key returns the composite identity of the item
func (p PendingItem) Key() string {
	return string(p.ItemType) + ":" + p.ID
}

// AmountOrZero returns the amount, or zero for items without one (timecards)
func (p PendingItem) AmountOrZero() decimal.Decimal {
	if p.Amount == nil {
		return decimal.Zero
	}
	return *p.Amount
}

// DateRange is the inclusive span of dates covered by a grouped claim
type DateRange struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

// GroupedClaim aggregates per-diem claims sharing submitter and status
type GroupedClaim struct {
	ID            string              `json:"id"`
	SubmitterID   string              `json:"submitter_id"`
	SubmitterName string              `json:"submitter_name"`
	Status        string              `json:"status"`
	EntryIDs      map[string]struct{} `json:"-"`
	Entries       []RawPerDiem        `json:"entries"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Count         int                 `json:"count"`
	DateRange     DateRange           `json:"date_range"`
}

// HasEntry reports whether the claim contains the given entry ID
func (g *GroupedClaim) HasEntry(id string) bool {
	_, ok := g.EntryIDs[id]
	return ok
}

// EntryIDList returns the entry IDs in source order
func (g *GroupedClaim) EntryIDList() []string {
	ids := make([]string, 0, len(g.Entries))
	for _, e := range g.Entries {
		ids = append(ids, e.ID)
	}
	return ids
}
