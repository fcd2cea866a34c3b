package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/approvals-hub/internal/application/action"
	"github.com/garyjia/approvals-hub/internal/application/port"
	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/domain/queue"
	"github.com/garyjia/approvals-hub/internal/domain/workflow"
)

// DrillDownOutcome is the result of an action taken from a detail view.
// Remaining is recomputed from a fresh fetch, never from the input records.
type DrillDownOutcome struct {
	Result    *action.BulkResult   `json:"result"`
	Remaining *entity.GroupedClaim `json:"remaining,omitempty"`
	// Resolved is true when every targeted open item succeeded and the caller
	// may return to the queue.
	Resolved bool `json:"resolved"`
}

// ClaimService drives single, selected and approve-all actions
type ClaimService interface {
	// Get returns the current state of a grouped per-diem claim
	Get(ctx context.Context, groupID string) (*entity.GroupedClaim, error)

	// ActOnGroup acts on every open entry of the group
	ActOnGroup(ctx context.Context, groupID string, a workflow.Action) (*DrillDownOutcome, error)

	// ActOnEntries acts on a caller-selected subset of the group's entries.
	// Ids outside the group or no longer open fail as NotFound without a
	// remote call.
	ActOnEntries(ctx context.Context, groupID string, entryIDs []string, a workflow.Action) (*DrillDownOutcome, error)

	// ActOnItem acts on one queue item; a per-diem group acts on all of its
	// open entries
	ActOnItem(ctx context.Context, itemType entity.ItemType, id string, a workflow.Action) (*DrillDownOutcome, error)

	// ActOnItems acts on many queue items of one type
	ActOnItems(ctx context.Context, itemType entity.ItemType, ids []string, a workflow.Action) (*action.BulkResult, error)
}

type claimServiceImpl struct {
	perDiems    port.Source[entity.RawPerDiem]
	coordinator action.Coordinator
	logger      Logger
}

// NewClaimService creates a new ClaimService
func NewClaimService(perDiems port.Source[entity.RawPerDiem], coordinator action.Coordinator, logger Logger) ClaimService {
	return &claimServiceImpl{
		perDiems:    perDiems,
		coordinator: coordinator,
		logger:      logger,
	}
}

// Get regroups the submitter's claims from a fresh listing
func (s *claimServiceImpl) Get(ctx context.Context, groupID string) (*entity.GroupedClaim, error) {
	claim, err := s.fetch(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, fmt.Errorf("claim %s: %w", groupID, workflow.ErrNotFound)
	}
	return claim, nil
}

// fetch returns nil without error when the group no longer has entries
func (s *claimServiceImpl) fetch(ctx context.Context, groupID string) (*entity.GroupedClaim, error) {
	submitterID, status, ok := queue.ParseGroupKey(groupID)
	if !ok {
		return nil, fmt.Errorf("%w: malformed claim id %q", workflow.ErrValidationFailed, groupID)
	}
	if s.perDiems == nil {
		return nil, fmt.Errorf("per-diem %w", ErrSourceUnavailable)
	}

	claims, err := s.perDiems.List(ctx, port.ListFilter{
		Statuses:    []string{status},
		SubmitterID: submitterID,
	})
	if err != nil {
		s.logger.Error("Failed to list per-diem claims", "group_id", groupID, "error", err)
		return nil, fmt.Errorf("list per-diem claims: %w", err)
	}

	group, found := queue.FindGroup(queue.GroupClaims(claims).Groups, groupID)
	if !found {
		return nil, nil
	}
	return group, nil
}

func (s *claimServiceImpl) ActOnGroup(ctx context.Context, groupID string, a workflow.Action) (*DrillDownOutcome, error) {
	claim, err := s.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	targets := openEntryIDs(claim)
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: claim %s has no open entries", workflow.ErrValidationFailed, groupID)
	}
	return s.run(ctx, groupID, targets, nil, a)
}

func (s *claimServiceImpl) ActOnEntries(ctx context.Context, groupID string, entryIDs []string, a workflow.Action) (*DrillDownOutcome, error) {
	if len(entryIDs) == 0 {
		return nil, fmt.Errorf("%w: no entries selected", workflow.ErrValidationFailed)
	}
	claim, err := s.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}

	open := make(map[string]struct{})
	for _, id := range openEntryIDs(claim) {
		open[id] = struct{}{}
	}

	rejected := make(map[string]error)
	for _, id := range entryIDs {
		if _, ok := open[id]; ok {
			continue
		}
		rejected[id] = workflow.NewActionError(workflow.KindNotFound, entity.ItemTypePerDiem, id,
			fmt.Errorf("not an open entry of claim %s", groupID))
	}
	return s.run(ctx, groupID, entryIDs, rejected, a)
}

func (s *claimServiceImpl) ActOnItem(ctx context.Context, itemType entity.ItemType, id string, a workflow.Action) (*DrillDownOutcome, error) {
	if itemType == entity.ItemTypePerDiemGroup {
		return s.ActOnGroup(ctx, id, a)
	}
	result, err := s.coordinator.RunBulk(ctx, itemType, []string{id}, a)
	if err != nil {
		return nil, err
	}
	return &DrillDownOutcome{Result: result, Resolved: result.AllSucceeded()}, nil
}

func (s *claimServiceImpl) ActOnItems(ctx context.Context, itemType entity.ItemType, ids []string, a workflow.Action) (*action.BulkResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no items selected", workflow.ErrValidationFailed)
	}
	return s.coordinator.RunBulk(ctx, itemType, ids, a)
}

func (s *claimServiceImpl) run(ctx context.Context, groupID string, ids []string, rejected map[string]error, a workflow.Action) (*DrillDownOutcome, error) {
	result, err := s.coordinator.RunBulk(ctx, entity.ItemTypePerDiem, ids, a, action.WithRejected(rejected))
	if err != nil {
		return nil, err
	}

	remaining, err := s.fetch(ctx, groupID)
	if err != nil {
		// The actions were applied; only the refresh failed.
		s.logger.Error("Failed to refresh claim after action", "group_id", groupID, "run_id", result.RunID, "error", err)
		return &DrillDownOutcome{Result: result, Resolved: result.AllSucceeded()}, errors.Join(ErrRefreshFailed, err)
	}
	if remaining == nil {
		remaining = emptyClaim(groupID)
	}

	s.logger.Info("Claim actioned",
		"group_id", groupID,
		"run_id", result.RunID,
		"action", a.Kind,
		"succeeded", result.SuccessCount,
		"failed", result.FailureCount,
		"remaining", remaining.Count,
	)
	return &DrillDownOutcome{
		Result:    result,
		Remaining: remaining,
		Resolved:  result.AllSucceeded(),
	}, nil
}

// ErrRefreshFailed is joined to the error when the post-action re-fetch fails
var ErrRefreshFailed = errors.New("refresh after action failed")

// openEntryIDs returns the claim's entry ids when its status is open. Every
// entry of a group shares the group's status.
func openEntryIDs(claim *entity.GroupedClaim) []string {
	if !workflow.IsOpen(entity.ItemTypePerDiem, claim.Status) {
		return nil
	}
	return claim.EntryIDList()
}

func emptyClaim(groupID string) *entity.GroupedClaim {
	submitterID, status, _ := queue.ParseGroupKey(groupID)
	return &entity.GroupedClaim{
		ID:          groupID,
		SubmitterID: submitterID,
		Status:      status,
		EntryIDs:    map[string]struct{}{},
		Entries:     []entity.RawPerDiem{},
		TotalAmount: decimal.Zero,
	}
}
