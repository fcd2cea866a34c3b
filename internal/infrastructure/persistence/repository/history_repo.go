package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/garyjia/approvals-hub/internal/application/port"
	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/infrastructure/persistence/sqlite"
)

const historyColumns = "id, run_id, item_type, item_id, action, outcome, error_kind, message, notes, created_at"

// HistoryRepository implements port.ActionHistoryRepository
type HistoryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sqlite.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.ActionHistory) error {
	query := `
		INSERT INTO action_history (
			run_id, item_type, item_id, action, outcome, error_kind, message, notes, created_at
		) VALUES (
			:run_id, :item_type, :item_id, :action, :outcome, :error_kind, :message, :notes, :created_at
		)
	`

	result, err := sqlx.NamedExecContext(ctx, r.db.Executor(ctx), query, history)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.String("run_id", history.RunID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// ListByItem returns the history of one item, oldest first
func (r *HistoryRepository) ListByItem(ctx context.Context, itemType entity.ItemType, itemID string) ([]*entity.ActionHistory, error) {
	query := `SELECT ` + historyColumns + ` FROM action_history
		WHERE item_type = ? AND item_id = ?
		ORDER BY created_at ASC, id ASC`

	records := make([]*entity.ActionHistory, 0)
	if err := sqlx.SelectContext(ctx, r.db.Executor(ctx), &records, query, itemType, itemID); err != nil {
		r.logger.Error("Failed to get history by item",
			zap.String("item_type", itemType.String()),
			zap.String("item_id", itemID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return records, nil
}

// ListByRun returns every outcome recorded for a bulk run
func (r *HistoryRepository) ListByRun(ctx context.Context, runID string) ([]*entity.ActionHistory, error) {
	query := `SELECT ` + historyColumns + ` FROM action_history
		WHERE run_id = ?
		ORDER BY id ASC`

	records := make([]*entity.ActionHistory, 0)
	if err := sqlx.SelectContext(ctx, r.db.Executor(ctx), &records, query, runID); err != nil {
		r.logger.Error("Failed to get history by run", zap.String("run_id", runID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return records, nil
}

// Verify interface compliance
var _ port.ActionHistoryRepository = (*HistoryRepository)(nil)
