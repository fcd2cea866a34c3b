package action

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/approvals-hub/internal/application/eventbus"
	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/domain/event"
	"github.com/garyjia/approvals-hub/internal/domain/workflow"
)

// DefaultConcurrency is the worker pool width of a bulk run
const DefaultConcurrency = 4

// Failure is the typed failure of one id in a bulk run. Retryable marks the
// ids a caller may resubmit unchanged.
type Failure struct {
	ID        string             `json:"id"`
	Kind      workflow.ErrorKind `json:"kind"`
	Message   string             `json:"message"`
	Retryable bool               `json:"retryable"`
	Err       error              `json:"-"`
}

func newFailure(id string, ae *workflow.ActionError) Failure {
	return Failure{
		ID:        id,
		Kind:      ae.Kind,
		Message:   ae.Error(),
		Retryable: ae.Kind.Retryable(),
		Err:       ae,
	}
}

// BulkResult reports every attempted id exactly once, either in Succeeded or
// in Failures, both in input order
type BulkResult struct {
	RunID        string              `json:"run_id"`
	ItemType     entity.ItemType     `json:"item_type"`
	Action       workflow.ActionKind `json:"action"`
	Attempted    int                 `json:"attempted"`
	SuccessCount int                 `json:"success_count"`
	FailureCount int                 `json:"failure_count"`
	Succeeded    []string            `json:"succeeded"`
	Failures     []Failure           `json:"failures"`
}

// AllSucceeded reports whether every attempted id succeeded
func (r *BulkResult) AllSucceeded() bool {
	return r.SuccessCount == r.Attempted
}

// RunOption configures a single bulk run
type RunOption func(*runConfig)

type runConfig struct {
	rejected map[string]error
}

// WithRejected fails the given ids with their error without a remote call.
// They keep their input position in the result and publish an outcome event
// like any dispatched id.
func WithRejected(rejected map[string]error) RunOption {
	return func(rc *runConfig) {
		rc.rejected = rejected
	}
}

// Coordinator runs one action over many ids of the same type
type Coordinator interface {
	// RunBulk dispatches the action once per distinct id. A per-item failure
	// never stops the others. When ctx is cancelled no further ids are issued,
	// in-flight calls complete, and the result is discarded with ctx.Err().
	RunBulk(ctx context.Context, itemType entity.ItemType, ids []string, a workflow.Action, opts ...RunOption) (*BulkResult, error)
}

type coordinator struct {
	dispatcher  Dispatcher
	bus         eventbus.Bus
	concurrency int
	deniedLimit int
	logger      Logger
}

// CoordinatorOption configures the coordinator
type CoordinatorOption func(*coordinator)

// WithConcurrency sets the worker pool width
func WithConcurrency(n int) CoordinatorOption {
	return func(c *coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithPermissionDeniedLimit stops issuing remote calls once n PermissionDenied
// outcomes were seen in a run; remaining ids are reported as PermissionDenied.
// Zero disables it.
func WithPermissionDeniedLimit(n int) CoordinatorOption {
	return func(c *coordinator) {
		if n > 0 {
			c.deniedLimit = n
		}
	}
}

// WithEventBus publishes item outcomes and a bulk summary per run
func WithEventBus(bus eventbus.Bus) CoordinatorOption {
	return func(c *coordinator) {
		c.bus = bus
	}
}

// WithCoordinatorLogger sets a logger for the coordinator
func WithCoordinatorLogger(logger Logger) CoordinatorOption {
	return func(c *coordinator) {
		c.logger = logger
	}
}

// NewCoordinator creates a bulk action coordinator
func NewCoordinator(dispatcher Dispatcher, opts ...CoordinatorOption) Coordinator {
	c := &coordinator{
		dispatcher:  dispatcher,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *coordinator) RunBulk(ctx context.Context, itemType entity.ItemType, ids []string, a workflow.Action, opts ...RunOption) (*BulkResult, error) {
	var rc runConfig
	for _, opt := range opts {
		opt(&rc)
	}

	runID := uuid.NewString()
	ids = dedupe(ids)
	outcomes := make([]error, len(ids))

	// Issued calls outlive the caller; only the listening stops.
	callCtx := context.WithoutCancel(ctx)

	var denied atomic.Int32
	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)

	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		i, id := i, id
		g.Go(func() error {
			// Waiting for a worker slot may have outlasted the caller.
			if ctx.Err() != nil {
				return nil
			}

			var err error
			if rejected, ok := rc.rejected[id]; ok {
				err = rejected
			} else if c.deniedLimit > 0 && int(denied.Load()) >= c.deniedLimit {
				err = workflow.NewActionError(workflow.KindPermissionDenied, itemType, id,
					errors.New("skipped after repeated permission denials"))
			} else {
				err = c.dispatcher.Dispatch(callCtx, itemType, id, a)
				if errors.Is(err, workflow.ErrPermissionDenied) {
					denied.Add(1)
				}
			}
			outcomes[i] = err
			c.publish(callCtx, event.NewOutcome(itemType, id, runID, a, err))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		if c.logger != nil {
			c.logger.Info("Bulk run abandoned", "run_id", runID, "item_type", itemType, "error", err)
		}
		return nil, err
	}

	result := &BulkResult{
		RunID:     runID,
		ItemType:  itemType,
		Action:    a.Kind,
		Attempted: len(ids),
		Succeeded: make([]string, 0, len(ids)),
		Failures:  make([]Failure, 0),
	}
	for i, id := range ids {
		if outcomes[i] == nil {
			result.Succeeded = append(result.Succeeded, id)
			continue
		}
		result.Failures = append(result.Failures, newFailure(id, workflow.Classify(outcomes[i], itemType, id)))
	}
	result.SuccessCount = len(result.Succeeded)
	result.FailureCount = len(result.Failures)

	c.publish(callCtx, event.NewEvent(event.TypeBulkCompleted, itemType, "", runID, map[string]interface{}{
		"action":        a.Kind.String(),
		"attempted":     result.Attempted,
		"success_count": result.SuccessCount,
		"failure_count": result.FailureCount,
	}))

	if c.logger != nil {
		c.logger.Info("Bulk run completed",
			"run_id", runID,
			"item_type", itemType,
			"action", a.Kind,
			"attempted", result.Attempted,
			"succeeded", result.SuccessCount,
			"failed", result.FailureCount,
		)
	}
	return result, nil
}

func (c *coordinator) publish(ctx context.Context, evt *event.Event) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(ctx, evt); err != nil && c.logger != nil {
		c.logger.Error("Failed to publish event", "event_type", evt.Type, "run_id", evt.RunID, "error", err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
