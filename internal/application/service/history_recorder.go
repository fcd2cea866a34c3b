package service

import (
	"context"
	"fmt"

	"github.com/garyjia/approvals-hub/internal/application/eventbus"
	"github.com/garyjia/approvals-hub/internal/application/port"
	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/domain/event"
)

// HistoryRecorder persists one audit row per item outcome event
type HistoryRecorder struct {
	repo   port.ActionHistoryRepository
	logger Logger
}

// NewHistoryRecorder creates a new HistoryRecorder
func NewHistoryRecorder(repo port.ActionHistoryRepository, logger Logger) *HistoryRecorder {
	return &HistoryRecorder{repo: repo, logger: logger}
}

// Register subscribes the recorder to every item outcome
func (r *HistoryRecorder) Register(bus eventbus.Bus) {
	bus.SubscribeOutcomes("history-recorder", r.Handle)
}

// Handle records a single outcome event
func (r *HistoryRecorder) Handle(ctx context.Context, evt *event.Event) error {
	if !evt.Type.IsItemOutcome() {
		return nil
	}

	history := &entity.ActionHistory{
		RunID:     evt.RunID,
		ItemType:  evt.ItemType,
		ItemID:    evt.ItemID,
		Action:    evt.GetPayloadString("action"),
		Outcome:   entity.OutcomeSuccess,
		Notes:     evt.GetPayloadString("notes"),
		CreatedAt: evt.Timestamp,
	}
	if reason := evt.GetPayloadString("reason"); reason != "" {
		history.Notes = reason
	}
	if evt.Type == event.TypeItemActionFailed {
		history.Outcome = entity.OutcomeFailure
		history.ErrorKind = evt.GetPayloadString("error_kind")
		history.Message = evt.GetPayloadString("error")
	}

	if err := r.repo.Create(ctx, history); err != nil {
		r.logger.Error("Failed to record action history", "run_id", evt.RunID, "item_id", evt.ItemID, "error", err)
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

// ListByItem returns the recorded outcomes for one item, oldest first
func (r *HistoryRecorder) ListByItem(ctx context.Context, itemType entity.ItemType, itemID string) ([]*entity.ActionHistory, error) {
	return r.repo.ListByItem(ctx, itemType, itemID)
}

// ListByRun returns the recorded outcomes of one bulk run
func (r *HistoryRecorder) ListByRun(ctx context.Context, runID string) ([]*entity.ActionHistory, error) {
	return r.repo.ListByRun(ctx, runID)
}
