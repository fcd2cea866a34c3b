// Package action routes reviewer actions to the source adapters, one item at a
// time (Dispatcher) or as a bounded concurrent batch (Coordinator).
package action

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/approvals-hub/internal/application/port"
	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Operation performs one remote action on one record
type Operation func(ctx context.Context, id string, a workflow.Action) error

type opKey struct {
	itemType entity.ItemType
	kind     workflow.ActionKind
}

// Dispatcher executes a single reviewer action against its source adapter.
// Dispatch returns nil or a *workflow.ActionError, never an untyped error.
type Dispatcher interface {
	Dispatch(ctx context.Context, itemType entity.ItemType, id string, a workflow.Action) error
	Supports(itemType entity.ItemType, kind workflow.ActionKind) bool
}

type dispatcher struct {
	ops         map[opKey]Operation
	permissions port.PermissionProvider
	timeout     time.Duration
	logger      Logger
}

// DispatcherOption configures the dispatcher
type DispatcherOption func(*dispatcher)

// WithPermissions gates every dispatch on the reviewer's permissions
func WithPermissions(p port.PermissionProvider) DispatcherOption {
	return func(d *dispatcher) {
		d.permissions = p
	}
}

// WithActionTimeout bounds each remote call
func WithActionTimeout(timeout time.Duration) DispatcherOption {
	return func(d *dispatcher) {
		d.timeout = timeout
	}
}

// WithDispatchLogger sets a logger for the dispatcher
func WithDispatchLogger(logger Logger) DispatcherOption {
	return func(d *dispatcher) {
		d.logger = logger
	}
}

// WithOperation overrides a single table entry
func WithOperation(itemType entity.ItemType, kind workflow.ActionKind, op Operation) DispatcherOption {
	return func(d *dispatcher) {
		d.ops[opKey{itemType, kind}] = op
	}
}

// NewDispatcher builds the (itemType, action) table from the source mutators.
// Every mutator gets all four actions.
func NewDispatcher(mutators map[entity.ItemType]port.Mutator, opts ...DispatcherOption) Dispatcher {
	d := &dispatcher{
		ops: make(map[opKey]Operation, len(mutators)*len(workflow.ActionKinds)),
	}
	for t, m := range mutators {
		for kind, op := range operationsFor(m) {
			d.ops[opKey{t, kind}] = op
		}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func operationsFor(m port.Mutator) map[workflow.ActionKind]Operation {
	return map[workflow.ActionKind]Operation{
		workflow.ActionApprove: func(ctx context.Context, id string, _ workflow.Action) error {
			return m.Approve(ctx, id, "")
		},
		workflow.ActionApproveWithNotes: func(ctx context.Context, id string, a workflow.Action) error {
			return m.Approve(ctx, id, a.Notes)
		},
		workflow.ActionRequestChanges: func(ctx context.Context, id string, a workflow.Action) error {
			return m.RequestChanges(ctx, id, a.Reason)
		},
		workflow.ActionDeny: func(ctx context.Context, id string, a workflow.Action) error {
			return m.Deny(ctx, id, a.Reason)
		},
	}
}

func (d *dispatcher) Supports(itemType entity.ItemType, kind workflow.ActionKind) bool {
	_, ok := d.ops[opKey{itemType, kind}]
	return ok
}

func (d *dispatcher) Dispatch(ctx context.Context, itemType entity.ItemType, id string, a workflow.Action) error {
	if err := d.dispatch(ctx, itemType, id, a); err != nil {
		ae := workflow.Classify(err, itemType, id)
		if d.logger != nil {
			d.logger.Error("Action failed",
				"item_type", itemType,
				"item_id", id,
				"action", a.Kind,
				"error_kind", ae.Kind,
				"error", ae.Err,
			)
		}
		return ae
	}

	if d.logger != nil {
		d.logger.Info("Action applied", "item_type", itemType, "item_id", id, "action", a.Kind)
	}
	return nil
}

func (d *dispatcher) dispatch(ctx context.Context, itemType entity.ItemType, id string, a workflow.Action) error {
	if id == "" {
		return fmt.Errorf("%w: item id is required", workflow.ErrValidationFailed)
	}
	if err := a.Validate(); err != nil {
		return err
	}
	if itemType == entity.ItemTypePerDiemGroup {
		return fmt.Errorf("%w: per-diem groups are actioned through their entries", workflow.ErrValidationFailed)
	}

	op, ok := d.ops[opKey{itemType, a.Kind}]
	if !ok {
		return fmt.Errorf("%w: %s does not support %s", workflow.ErrValidationFailed, itemType, a.Kind)
	}

	if d.permissions != nil {
		perms, err := d.permissions.Permissions(ctx)
		if err != nil {
			return fmt.Errorf("%w: load permissions: %v", workflow.ErrTransient, err)
		}
		if !perms.Allows(itemType) {
			return fmt.Errorf("%w: not allowed to approve %s", workflow.ErrPermissionDenied, itemType.Category())
		}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return op(ctx, id, a)
}
