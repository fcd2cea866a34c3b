package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/garyjia/approvals-hub/internal/application/port"
	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/domain/workflow"
	"github.com/garyjia/approvals-hub/internal/infrastructure/persistence/sqlite"
)

// tableSpec describes how one source type is stored
type tableSpec struct {
	name     string
	itemType entity.ItemType
	// columns map to the db tags of the raw record type
	columns         []string
	submitterColumn string
	dateColumn      string
	orderBy         string
	// openByDefault lists only open records when no status filter is given
	openByDefault bool
}

// recordStore is the SQLite source adapter shared by every record type
type recordStore[T any] struct {
	db     *sqlite.DB
	spec   tableSpec
	now    func() time.Time
	logger *zap.Logger
}

func newRecordStore[T any](db *sqlite.DB, spec tableSpec, logger *zap.Logger) *recordStore[T] {
	return &recordStore[T]{db: db, spec: spec, now: time.Now, logger: logger}
}

// List returns the records matching filter
func (s *recordStore[T]) List(ctx context.Context, filter port.ListFilter) ([]T, error) {
	var where []string
	var args []interface{}

	statuses := filter.Statuses
	if len(statuses) == 0 && s.spec.openByDefault {
		open, _ := workflow.OpenStatus(s.spec.itemType)
		statuses = []string{open}
	}
	if len(statuses) > 0 {
		clause, inArgs, err := sqlx.In("status IN (?)", statuses)
		if err != nil {
			return nil, fmt.Errorf("build status filter: %w", err)
		}
		where = append(where, clause)
		args = append(args, inArgs...)
	}
	if filter.SubmitterID != "" {
		where = append(where, s.spec.submitterColumn+" = ?")
		args = append(args, filter.SubmitterID)
	}
	if !filter.Since.IsZero() {
		where = append(where, fmt.Sprintf("COALESCE(%s, created_at) >= ?", s.spec.dateColumn))
		args = append(args, filter.Since.Format("2006-01-02"))
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(s.spec.columns, ", "), s.spec.name)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + s.spec.orderBy

	exec := s.db.Executor(ctx)
	records := make([]T, 0)
	if err := sqlx.SelectContext(ctx, exec, &records, exec.Rebind(query), args...); err != nil {
		s.logger.Error("Failed to list records", zap.String("table", s.spec.name), zap.Error(err))
		return nil, fmt.Errorf("%w: list %s: %v", workflow.ErrTransient, s.spec.name, err)
	}
	return records, nil
}

// Create inserts a record. Records without a creation time get the
// database default.
func (s *recordStore[T]) Create(ctx context.Context, record *T) error {
	columns := make([]string, 0, len(s.spec.columns))
	for _, c := range s.spec.columns {
		if c != "created_at" {
			columns = append(columns, c)
		}
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)",
		s.spec.name, strings.Join(columns, ", "), strings.Join(columns, ", :"))

	if _, err := sqlx.NamedExecContext(ctx, s.db.Executor(ctx), query, record); err != nil {
		s.logger.Error("Failed to create record", zap.String("table", s.spec.name), zap.Error(err))
		return fmt.Errorf("failed to create %s record: %w", s.spec.itemType, err)
	}
	return nil
}

// Approve moves an open record to its approved status. Retrying an approval
// with the same non-empty notes succeeds without a second transition.
func (s *recordStore[T]) Approve(ctx context.Context, id string, notes string) error {
	kind := workflow.ActionApprove
	if notes != "" {
		kind = workflow.ActionApproveWithNotes
	}
	return s.transition(ctx, id, kind, notes)
}

// RequestChanges sends an open record back to the submitter
func (s *recordStore[T]) RequestChanges(ctx context.Context, id string, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: reason is required", workflow.ErrValidationFailed)
	}
	return s.transition(ctx, id, workflow.ActionRequestChanges, reason)
}

// Deny closes an open record with no resubmission path
func (s *recordStore[T]) Deny(ctx context.Context, id string, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: reason is required", workflow.ErrValidationFailed)
	}
	return s.transition(ctx, id, workflow.ActionDeny, reason)
}

func (s *recordStore[T]) transition(ctx context.Context, id string, kind workflow.ActionKind, text string) error {
	target, ok := workflow.TargetStatus(s.spec.itemType, kind)
	if !ok {
		return fmt.Errorf("%w: %s does not support %s", workflow.ErrValidationFailed, s.spec.itemType, kind)
	}
	open, _ := workflow.OpenStatus(s.spec.itemType)

	exec := s.db.Executor(ctx)
	query := fmt.Sprintf(
		"UPDATE %s SET status = ?, review_notes = ?, reviewed_at = ? WHERE id = ? AND status = ?",
		s.spec.name)
	result, err := exec.ExecContext(ctx, query, target, text, s.now().UTC(), id, open)
	if err != nil {
		s.logger.Error("Failed to update record status",
			zap.String("table", s.spec.name),
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("%w: update %s %s: %v", workflow.ErrTransient, s.spec.itemType, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", workflow.ErrTransient, err)
	}
	if affected == 1 {
		s.logger.Info("Record status updated",
			zap.String("table", s.spec.name),
			zap.String("id", id),
			zap.String("status", target))
		return nil
	}

	return s.explainMiss(ctx, id, kind, target, text)
}

// explainMiss classifies an UPDATE that matched no open row
func (s *recordStore[T]) explainMiss(ctx context.Context, id string, kind workflow.ActionKind, target, text string) error {
	var current struct {
		Status      string `db:"status"`
		ReviewNotes string `db:"review_notes"`
	}
	query := fmt.Sprintf("SELECT status, review_notes FROM %s WHERE id = ?", s.spec.name)
	err := sqlx.GetContext(ctx, s.db.Executor(ctx), &current, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", s.spec.itemType, id, workflow.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%w: load %s %s: %v", workflow.ErrTransient, s.spec.itemType, id, err)
	}

	// A retried approve-with-notes is recognised by its notes; a plain approve
	// carries nothing that tells it apart from someone else's approval.
	retry := kind == workflow.ActionApproveWithNotes && strings.TrimSpace(text) != ""
	if retry && current.Status == target && current.ReviewNotes == text {
		return nil
	}
	return fmt.Errorf("%s %s already processed (status %s): %w", s.spec.itemType, id, current.Status, workflow.ErrNotFound)
}
