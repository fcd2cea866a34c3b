// Package queue holds the pure transforms behind the approvals dashboard:
// normalizing raw source records, grouping per-diem claims, partitioning,
// filtering and summarizing. Nothing here performs I/O or returns errors;
// malformed input is dropped and counted.
package queue

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/approvals-hub/internal/domain/entity"
)

// KeySeparator joins submitter and status in a group key. Status values must
// never contain it, which is checked when claims are grouped.
const KeySeparator = "-"

// GroupResult is the output of GroupClaims
type GroupResult struct {
	Groups  []entity.GroupedClaim
	Dropped int
}

// GroupKey returns the composite key of a grouped claim
func GroupKey(submitterID, status string) string {
	return submitterID + KeySeparator + status
}

// ParseGroupKey splits a group key at the last separator
func ParseGroupKey(key string) (submitterID, status string, ok bool) {
	i := strings.LastIndex(key, KeySeparator)
	if i <= 0 || i == len(key)-1 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}

// validClaim reports whether a claim can be grouped without key ambiguity
func validClaim(c entity.RawPerDiem) bool {
	if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.SubmitterID) == "" {
		return false
	}
	if c.Status == "" || strings.Contains(c.Status, KeySeparator) {
		return false
	}
	return true
}

// GroupClaims collapses per-diem claims into one GroupedClaim per
// (submitter, status) in a single left-to-right pass. Groups appear in
// first-seen order and entries keep source order.
func GroupClaims(claims []entity.RawPerDiem) GroupResult {
	var result GroupResult
	index := make(map[string]int)

	for _, c := range claims {
		if !validClaim(c) {
			result.Dropped++
			continue
		}

		key := GroupKey(c.SubmitterID, c.Status)
		pos, exists := index[key]
		if !exists {
			result.Groups = append(result.Groups, entity.GroupedClaim{
				ID:            key,
				SubmitterID:   c.SubmitterID,
				SubmitterName: c.SubmitterName,
				Status:        c.Status,
				EntryIDs:      make(map[string]struct{}),
				TotalAmount:   decimal.Zero,
				DateRange:     entity.DateRange{Earliest: c.ClaimDate, Latest: c.ClaimDate},
			})
			pos = len(result.Groups) - 1
			index[key] = pos
		}

		g := &result.Groups[pos]
		if g.HasEntry(c.ID) {
			result.Dropped++
			continue
		}

		g.EntryIDs[c.ID] = struct{}{}
		g.Entries = append(g.Entries, c)
		g.TotalAmount = g.TotalAmount.Add(c.Amount)
		g.Count++
		if g.SubmitterName == "" {
			g.SubmitterName = c.SubmitterName
		}
		if c.ClaimDate.Before(g.DateRange.Earliest) {
			g.DateRange.Earliest = c.ClaimDate
		}
		if c.ClaimDate.After(g.DateRange.Latest) {
			g.DateRange.Latest = c.ClaimDate
		}
	}

	return result
}

// FindGroup returns the group with the given key, if present
func FindGroup(groups []entity.GroupedClaim, id string) (*entity.GroupedClaim, bool) {
	for i := range groups {
		if groups[i].ID == id {
			return &groups[i], true
		}
	}
	return nil, false
}
