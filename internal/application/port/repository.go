package port

import (
	"context"

	"github.com/garyjia/approvals-hub/internal/domain/entity"
)

// ActionHistoryRepository defines persistence operations for ActionHistory
type ActionHistoryRepository interface {
	Create(ctx context.Context, history *entity.ActionHistory) error
	ListByItem(ctx context.Context, itemType entity.ItemType, itemID string) ([]*entity.ActionHistory, error)
	ListByRun(ctx context.Context, runID string) ([]*entity.ActionHistory, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
