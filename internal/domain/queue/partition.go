package queue

import (
	"sort"
	"time"

	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/domain/workflow"
)

// Partitions splits the queue into items awaiting action and items already
// processed. Both are sorted newest first.
type Partitions struct {
	Pending   []entity.PendingItem `json:"pending"`
	Processed []entity.PendingItem `json:"processed"`
}

// Partition places every item in exactly one partition based on its current
// status. Membership is derived from status alone on every call.
func Partition(items []entity.PendingItem) Partitions {
	p := Partitions{
		Pending:   make([]entity.PendingItem, 0, len(items)),
		Processed: make([]entity.PendingItem, 0),
	}
	for _, item := range items {
		if workflow.IsOpen(item.ItemType, item.Status) {
			p.Pending = append(p.Pending, item)
		} else {
			p.Processed = append(p.Processed, item)
		}
	}
	SortByDateDesc(p.Pending)
	SortByDateDesc(p.Processed)
	return p
}

// SortByDateDesc sorts items newest first. Ties fall back to the composite
// key so the order is deterministic across refreshes.
func SortByDateDesc(items []entity.PendingItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.After(items[j].Date)
		}
		return items[i].Key() < items[j].Key()
	})
}

// RecentlyProcessed keeps processed items dated within window of now.
// A non-positive window keeps everything.
func RecentlyProcessed(items []entity.PendingItem, now time.Time, window time.Duration) []entity.PendingItem {
	if window <= 0 {
		return items
	}
	cutoff := now.Add(-window)
	recent := make([]entity.PendingItem, 0, len(items))
	for _, item := range items {
		if !item.Date.Before(cutoff) {
			recent = append(recent, item)
		}
	}
	return recent
}
