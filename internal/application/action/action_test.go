package action

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/approvals-hub/internal/application/eventbus"
	"github.com/garyjia/approvals-hub/internal/application/port"
	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/domain/event"
	"github.com/garyjia/approvals-hub/internal/domain/workflow"
)

type call struct {
	method string
	id     string
	text   string
}

// mockMutator records calls and fails ids listed in failures
type mockMutator struct {
	mu          sync.Mutex
	calls       []call
	failures    map[string]error
	approveFunc func(ctx context.Context, id, notes string) error
}

func (m *mockMutator) record(method, id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{method, id, text})
	if err, ok := m.failures[id]; ok {
		return err
	}
	return nil
}

func (m *mockMutator) Approve(ctx context.Context, id, notes string) error {
	if m.approveFunc != nil {
		return m.approveFunc(ctx, id, notes)
	}
	return m.record("approve", id, notes)
}

func (m *mockMutator) RequestChanges(ctx context.Context, id, reason string) error {
	return m.record("request_changes", id, reason)
}

func (m *mockMutator) Deny(ctx context.Context, id, reason string) error {
	return m.record("deny", id, reason)
}

func (m *mockMutator) Calls() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]call(nil), m.calls...)
}

type staticPermissions struct {
	perms port.Permissions
	err   error
}

func (s staticPermissions) Permissions(ctx context.Context) (port.Permissions, error) {
	return s.perms, s.err
}

var allowAll = staticPermissions{perms: port.Permissions{
	CanApproveExpenses:  true,
	CanApproveInvoices:  true,
	CanApproveTimecards: true,
	CanApprovePOs:       true,
}}

func actionableTypes() []entity.ItemType {
	return []entity.ItemType{
		entity.ItemTypeInvoice,
		entity.ItemTypeReceipt,
		entity.ItemTypeMileage,
		entity.ItemTypeKitRental,
		entity.ItemTypePerDiem,
		entity.ItemTypeTimecard,
		entity.ItemTypePurchaseOrder,
	}
}

func newMutators() (map[entity.ItemType]port.Mutator, map[entity.ItemType]*mockMutator) {
	out := make(map[entity.ItemType]port.Mutator)
	mocks := make(map[entity.ItemType]*mockMutator)
	for _, t := range actionableTypes() {
		m := &mockMutator{failures: map[string]error{}}
		out[t] = m
		mocks[t] = m
	}
	return out, mocks
}

func TestDispatcher_TableIsTotal(t *testing.T) {
	muts, _ := newMutators()
	d := NewDispatcher(muts)

	for _, typ := range actionableTypes() {
		for _, kind := range workflow.ActionKinds {
			assert.True(t, d.Supports(typ, kind), "%s/%s", typ, kind)
		}
	}
	assert.False(t, d.Supports(entity.ItemTypePerDiemGroup, workflow.ActionApprove))
}

func TestDispatcher_RoutesActions(t *testing.T) {
	muts, mocks := newMutators()
	d := NewDispatcher(muts, WithPermissions(allowAll))
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, entity.ItemTypeReceipt, "r-1", workflow.Approve()))
	require.NoError(t, d.Dispatch(ctx, entity.ItemTypeReceipt, "r-2", workflow.ApproveWithNotes("ok with receipt")))
	require.NoError(t, d.Dispatch(ctx, entity.ItemTypeReceipt, "r-3", workflow.RequestChanges("missing receipt")))
	require.NoError(t, d.Dispatch(ctx, entity.ItemTypeReceipt, "r-4", workflow.Deny("duplicate")))

	assert.Equal(t, []call{
		{"approve", "r-1", ""},
		{"approve", "r-2", "ok with receipt"},
		{"request_changes", "r-3", "missing receipt"},
		{"deny", "r-4", "duplicate"},
	}, mocks[entity.ItemTypeReceipt].Calls())
	assert.Empty(t, mocks[entity.ItemTypeInvoice].Calls())
}

func TestDispatcher_Errors(t *testing.T) {
	tests := []struct {
		name     string
		itemType entity.ItemType
		id       string
		action   workflow.Action
		perms    port.PermissionProvider
		remote   error
		wantKind workflow.ErrorKind
		wantCall bool
	}{
		{
			name:     "missing reason",
			itemType: entity.ItemTypeMileage,
			id:       "m-1",
			action:   workflow.Deny("  "),
			wantKind: workflow.KindValidationFailed,
		},
		{
			name:     "missing id",
			itemType: entity.ItemTypeMileage,
			action:   workflow.Approve(),
			wantKind: workflow.KindValidationFailed,
		},
		{
			name:     "group type",
			itemType: entity.ItemTypePerDiemGroup,
			id:       "u1-pending",
			action:   workflow.Approve(),
			wantKind: workflow.KindValidationFailed,
		},
		{
			name:     "permission gate off",
			itemType: entity.ItemTypeTimecard,
			id:       "t-1",
			action:   workflow.Approve(),
			perms:    staticPermissions{perms: port.Permissions{CanApproveExpenses: true}},
			wantKind: workflow.KindPermissionDenied,
		},
		{
			name:     "permission lookup failure",
			itemType: entity.ItemTypeTimecard,
			id:       "t-1",
			action:   workflow.Approve(),
			perms:    staticPermissions{err: errors.New("offline")},
			wantKind: workflow.KindTransient,
		},
		{
			name:     "remote not found",
			itemType: entity.ItemTypeInvoice,
			id:       "i-1",
			action:   workflow.Approve(),
			remote:   fmt.Errorf("invoice i-1: %w", workflow.ErrNotFound),
			wantKind: workflow.KindNotFound,
			wantCall: true,
		},
		{
			name:     "remote unknown error",
			itemType: entity.ItemTypeInvoice,
			id:       "i-1",
			action:   workflow.Approve(),
			remote:   errors.New("502 bad gateway"),
			wantKind: workflow.KindTransient,
			wantCall: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			muts, mocks := newMutators()
			if tt.remote != nil {
				mocks[tt.itemType].failures[tt.id] = tt.remote
			}
			var opts []DispatcherOption
			if tt.perms != nil {
				opts = append(opts, WithPermissions(tt.perms))
			}
			d := NewDispatcher(muts, opts...)

			err := d.Dispatch(context.Background(), tt.itemType, tt.id, tt.action)
			require.Error(t, err)

			var ae *workflow.ActionError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.wantKind, ae.Kind)
			assert.Equal(t, tt.itemType, ae.ItemType)
			assert.Equal(t, tt.id, ae.ItemID)

			if m, ok := mocks[tt.itemType]; ok {
				assert.Equal(t, tt.wantCall, len(m.Calls()) > 0)
			}
		})
	}
}

func TestDispatcher_ActionTimeout(t *testing.T) {
	m := &mockMutator{approveFunc: func(ctx context.Context, id, notes string) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	d := NewDispatcher(map[entity.ItemType]port.Mutator{entity.ItemTypeReceipt: m},
		WithActionTimeout(10*time.Millisecond))

	err := d.Dispatch(context.Background(), entity.ItemTypeReceipt, "r-1", workflow.Approve())
	assert.ErrorIs(t, err, workflow.ErrTransient)
}

func TestCoordinator_PartialFailureAtAnyPosition(t *testing.T) {
	ids := []string{"p-1", "p-2", "p-3", "p-4", "p-5"}

	for k := range ids {
		t.Run(fmt.Sprintf("fail at %d", k), func(t *testing.T) {
			muts, mocks := newMutators()
			mocks[entity.ItemTypePerDiem].failures[ids[k]] = fmt.Errorf("remote: %w", workflow.ErrTransient)
			c := NewCoordinator(NewDispatcher(muts), WithConcurrency(3))

			result, err := c.RunBulk(context.Background(), entity.ItemTypePerDiem, ids, workflow.Approve())
			require.NoError(t, err)

			assert.Equal(t, len(ids), result.Attempted)
			assert.Equal(t, len(ids)-1, result.SuccessCount)
			assert.Equal(t, 1, result.FailureCount)
			require.Len(t, result.Failures, 1)
			assert.Equal(t, ids[k], result.Failures[0].ID)
			assert.Equal(t, workflow.KindTransient, result.Failures[0].Kind)
			assert.True(t, result.Failures[0].Retryable)
			assert.NotContains(t, result.Succeeded, ids[k])
			assert.False(t, result.AllSucceeded())
			assert.Len(t, mocks[entity.ItemTypePerDiem].Calls(), len(ids))
		})
	}
}

func TestCoordinator_EveryIdReportedOnce(t *testing.T) {
	muts, mocks := newMutators()
	mocks[entity.ItemTypeReceipt].failures["r-2"] = workflow.ErrNotFound
	mocks[entity.ItemTypeReceipt].failures["r-4"] = workflow.ErrValidationFailed
	c := NewCoordinator(NewDispatcher(muts), WithConcurrency(8))

	ids := []string{"r-1", "r-2", "r-3", "r-2", "r-4", "r-1"}
	result, err := c.RunBulk(context.Background(), entity.ItemTypeReceipt, ids, workflow.Deny("duplicate"))
	require.NoError(t, err)

	assert.Equal(t, 4, result.Attempted)
	assert.Equal(t, []string{"r-1", "r-3"}, result.Succeeded)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, "r-2", result.Failures[0].ID)
	assert.Equal(t, workflow.KindNotFound, result.Failures[0].Kind)
	assert.Equal(t, "r-4", result.Failures[1].ID)
	assert.Equal(t, workflow.KindValidationFailed, result.Failures[1].Kind)
	assert.Len(t, mocks[entity.ItemTypeReceipt].Calls(), 4)

	assert.ErrorIs(t, result.Failures[1].Err, workflow.ErrValidationFailed)
	for _, f := range result.Failures {
		assert.False(t, f.Retryable, f.ID)
	}
}

func TestCoordinator_InvalidActionFailsEveryId(t *testing.T) {
	muts, mocks := newMutators()
	c := NewCoordinator(NewDispatcher(muts))

	result, err := c.RunBulk(context.Background(), entity.ItemTypeMileage, []string{"m-1", "m-2"}, workflow.RequestChanges(""))
	require.NoError(t, err)

	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 2, result.FailureCount)
	for _, f := range result.Failures {
		assert.Equal(t, workflow.KindValidationFailed, f.Kind)
	}
	assert.Empty(t, mocks[entity.ItemTypeMileage].Calls())
}

func TestCoordinator_PermissionDenied(t *testing.T) {
	ids := []string{"t-1", "t-2", "t-3", "t-4"}
	noTimecards := staticPermissions{perms: port.Permissions{CanApproveExpenses: true}}

	t.Run("attempts every id by default", func(t *testing.T) {
		muts, _ := newMutators()
		var dispatched int
		var mu sync.Mutex
		d := NewDispatcher(muts, WithPermissions(noTimecards))
		counting := dispatcherFunc(func(ctx context.Context, typ entity.ItemType, id string, a workflow.Action) error {
			mu.Lock()
			dispatched++
			mu.Unlock()
			return d.Dispatch(ctx, typ, id, a)
		})
		c := NewCoordinator(counting, WithConcurrency(1))

		result, err := c.RunBulk(context.Background(), entity.ItemTypeTimecard, ids, workflow.Approve())
		require.NoError(t, err)
		assert.Equal(t, 4, result.FailureCount)
		assert.Equal(t, 4, dispatched)
	})

	t.Run("short-circuits after the limit", func(t *testing.T) {
		muts, mocks := newMutators()
		for _, id := range ids {
			mocks[entity.ItemTypeTimecard].failures[id] = fmt.Errorf("403: %w", workflow.ErrPermissionDenied)
		}
		c := NewCoordinator(NewDispatcher(muts), WithConcurrency(1), WithPermissionDeniedLimit(2))

		result, err := c.RunBulk(context.Background(), entity.ItemTypeTimecard, ids, workflow.Approve())
		require.NoError(t, err)

		assert.Equal(t, 4, result.FailureCount)
		for _, f := range result.Failures {
			assert.Equal(t, workflow.KindPermissionDenied, f.Kind)
		}
		assert.Len(t, mocks[entity.ItemTypeTimecard].Calls(), 2)
	})
}

type dispatcherFunc func(ctx context.Context, typ entity.ItemType, id string, a workflow.Action) error

func (f dispatcherFunc) Dispatch(ctx context.Context, typ entity.ItemType, id string, a workflow.Action) error {
	return f(ctx, typ, id, a)
}

func (f dispatcherFunc) Supports(entity.ItemType, workflow.ActionKind) bool { return true }

func TestCoordinator_CancelledRunIsDiscarded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	var completed []string
	var mu sync.Mutex

	slow := dispatcherFunc(func(callCtx context.Context, typ entity.ItemType, id string, a workflow.Action) error {
		close(started)
		<-release
		// The issued call is not aborted by the caller's cancellation.
		assert.NoError(t, callCtx.Err())
		mu.Lock()
		completed = append(completed, id)
		mu.Unlock()
		return nil
	})
	c := NewCoordinator(slow, WithConcurrency(1))

	done := make(chan struct{})
	var result *BulkResult
	var err error
	go func() {
		defer close(done)
		result, err = c.RunBulk(ctx, entity.ItemTypeReceipt, []string{"r-1", "r-2", "r-3"}, workflow.Approve())
	}()

	<-started
	cancel()
	close(release)
	<-done

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"r-1"}, completed)
}

func TestCoordinator_PublishesOutcomes(t *testing.T) {
	muts, mocks := newMutators()
	mocks[entity.ItemTypeKitRental].failures["k-2"] = workflow.ErrNotFound
	bus := eventbus.New()

	var mu sync.Mutex
	byType := map[event.Type][]string{}
	var runIDs []string
	record := func(ctx context.Context, evt *event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		byType[evt.Type] = append(byType[evt.Type], evt.ItemID)
		runIDs = append(runIDs, evt.RunID)
		return nil
	}
	bus.SubscribeOutcomes("test", record)
	bus.Subscribe(event.TypeBulkCompleted, "test", record)

	c := NewCoordinator(NewDispatcher(muts), WithEventBus(bus))
	result, err := c.RunBulk(context.Background(), entity.ItemTypeKitRental, []string{"k-1", "k-2"}, workflow.Deny("not needed"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"k-1"}, byType[event.TypeItemDenied])
	assert.Equal(t, []string{"k-2"}, byType[event.TypeItemActionFailed])
	assert.Len(t, byType[event.TypeBulkCompleted], 1)
	for _, id := range runIDs {
		assert.Equal(t, result.RunID, id)
	}
}

func TestCoordinator_RejectedIdsKeepInputOrder(t *testing.T) {
	muts, mocks := newMutators()
	bus := eventbus.New()

	var mu sync.Mutex
	var failed []string
	bus.Subscribe(event.TypeItemActionFailed, "test", func(ctx context.Context, evt *event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, evt.ItemID)
		return nil
	})

	rejected := map[string]error{
		"p-1": workflow.NewActionError(workflow.KindNotFound, entity.ItemTypePerDiem, "p-1", errors.New("not in claim")),
		"p-3": workflow.NewActionError(workflow.KindNotFound, entity.ItemTypePerDiem, "p-3", errors.New("not in claim")),
	}
	c := NewCoordinator(NewDispatcher(muts), WithEventBus(bus), WithConcurrency(1))
	result, err := c.RunBulk(context.Background(), entity.ItemTypePerDiem,
		[]string{"p-1", "p-2", "p-3", "p-4"}, workflow.Approve(), WithRejected(rejected))
	require.NoError(t, err)

	assert.Equal(t, 4, result.Attempted)
	assert.Equal(t, []string{"p-2", "p-4"}, result.Succeeded)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, "p-1", result.Failures[0].ID)
	assert.Equal(t, "p-3", result.Failures[1].ID)
	assert.Equal(t, workflow.KindNotFound, result.Failures[0].Kind)
	assert.Len(t, mocks[entity.ItemTypePerDiem].Calls(), 2)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"p-1", "p-3"}, failed)
}
