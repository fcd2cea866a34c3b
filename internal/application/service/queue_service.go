package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garyjia/approvals-hub/internal/application/port"
	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/domain/queue"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

var (
	// ErrAllSourcesFailed is returned when no permitted source could be listed
	ErrAllSourcesFailed = errors.New("all sources failed")

	// ErrSourceUnavailable marks a permitted source with no adapter configured
	ErrSourceUnavailable = errors.New("source unavailable")
)

// Snapshot is one pull-compute cycle over every permitted source
type Snapshot struct {
	LoadedAt     time.Time                  `json:"loaded_at"`
	Permissions  port.Permissions           `json:"permissions"`
	Items        []entity.PendingItem       `json:"-"`
	Pending      []entity.PendingItem       `json:"pending"`
	Processed    []entity.PendingItem       `json:"processed"`
	Badges       queue.Summary              `json:"badges"`
	Dropped      map[entity.ItemType]int    `json:"dropped"`
	Unexpected   int                        `json:"unexpected_status"`
	SourceErrors map[entity.ItemType]string `json:"source_errors,omitempty"`
}

// Degraded reports whether any permitted source failed to load
func (s *Snapshot) Degraded() bool {
	return len(s.SourceErrors) > 0
}

// DegradedSources lists the failed source types in a stable order
func (s *Snapshot) DegradedSources() []entity.ItemType {
	out := make([]entity.ItemType, 0, len(s.SourceErrors))
	for t := range s.SourceErrors {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// View is a filtered projection of a snapshot
type View struct {
	Predicate queue.Predicate      `json:"predicate"`
	Pending   []entity.PendingItem `json:"pending"`
	Processed []entity.PendingItem `json:"processed"`
	// Summary covers the filtered pending items; Badges the unfiltered ones.
	Summary  queue.Summary     `json:"summary"`
	Badges   queue.Summary     `json:"badges"`
	Degraded []entity.ItemType `json:"degraded_sources,omitempty"`
}

// QueueService runs the fetch, normalize, partition and summarize pipeline
type QueueService interface {
	Load(ctx context.Context) (*Snapshot, error)
	View(snapshot *Snapshot, p queue.Predicate) *View
}

type queueServiceImpl struct {
	sources         port.Sources
	permissions     port.PermissionProvider
	fetchTimeout    time.Duration
	processedWindow time.Duration
	now             func() time.Time
	logger          Logger
}

// QueueOption configures the queue service
type QueueOption func(*queueServiceImpl)

// WithFetchTimeout bounds the whole source fan-out
func WithFetchTimeout(d time.Duration) QueueOption {
	return func(s *queueServiceImpl) {
		s.fetchTimeout = d
	}
}

// WithProcessedWindow keeps only processed items dated within d
func WithProcessedWindow(d time.Duration) QueueOption {
	return func(s *queueServiceImpl) {
		s.processedWindow = d
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) QueueOption {
	return func(s *queueServiceImpl) {
		s.now = now
	}
}

// NewQueueService creates a new QueueService
func NewQueueService(sources port.Sources, permissions port.PermissionProvider, logger Logger, opts ...QueueOption) QueueService {
	s := &queueServiceImpl{
		sources:     sources,
		permissions: permissions,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches every permitted source concurrently. A failing source is
// recorded in SourceErrors and the rest of the queue is still served.
func (s *queueServiceImpl) Load(ctx context.Context) (*Snapshot, error) {
	perms, err := s.permissions.Permissions(ctx)
	if err != nil {
		s.logger.Error("Failed to load permissions", "error", err)
		return nil, fmt.Errorf("load permissions: %w", err)
	}

	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	var (
		records entity.SourceRecords
		mu      sync.Mutex
		errs    = make(map[entity.ItemType]error)
		tried   int
	)
	fail := func(t entity.ItemType, err error) {
		mu.Lock()
		errs[t] = err
		mu.Unlock()
	}

	g := new(errgroup.Group)
	spawn := func(t entity.ItemType, allowed bool, present bool, fetch func() error) {
		if !allowed {
			return
		}
		tried++
		if !present {
			fail(t, ErrSourceUnavailable)
			return
		}
		g.Go(func() error {
			if err := fetch(); err != nil {
				fail(t, err)
			}
			return nil
		})
	}

	spawn(entity.ItemTypeInvoice, perms.CanApproveInvoices, s.sources.Invoices != nil, func() error {
		return fetchInto(ctx, s.sources.Invoices, &records.Invoices)
	})
	spawn(entity.ItemTypeReceipt, perms.CanApproveExpenses, s.sources.Receipts != nil, func() error {
		return fetchInto(ctx, s.sources.Receipts, &records.Receipts)
	})
	spawn(entity.ItemTypeMileage, perms.CanApproveExpenses, s.sources.Mileage != nil, func() error {
		return fetchInto(ctx, s.sources.Mileage, &records.Mileage)
	})
	spawn(entity.ItemTypeKitRental, perms.CanApproveExpenses, s.sources.KitRentals != nil, func() error {
		return fetchInto(ctx, s.sources.KitRentals, &records.KitRentals)
	})
	spawn(entity.ItemTypePerDiemGroup, perms.CanApproveExpenses, s.sources.PerDiems != nil, func() error {
		return fetchInto(ctx, s.sources.PerDiems, &records.PerDiems)
	})
	spawn(entity.ItemTypeTimecard, perms.CanApproveTimecards, s.sources.Timecards != nil, func() error {
		return fetchInto(ctx, s.sources.Timecards, &records.Timecards)
	})
	spawn(entity.ItemTypePurchaseOrder, perms.CanApprovePOs, s.sources.PurchaseOrders != nil, func() error {
		return fetchInto(ctx, s.sources.PurchaseOrders, &records.PurchaseOrders)
	})
	_ = g.Wait()

	snapshot := &Snapshot{
		LoadedAt:     s.now(),
		Permissions:  perms,
		SourceErrors: make(map[entity.ItemType]string, len(errs)),
	}
	for t, err := range errs {
		snapshot.SourceErrors[t] = err.Error()
		s.logger.Error("Source fetch failed", "item_type", t, "error", err)
	}
	if tried > 0 && len(errs) == tried {
		return nil, fmt.Errorf("%w: %d of %d", ErrAllSourcesFailed, len(errs), tried)
	}

	normalized := queue.Normalize(records)
	parts := queue.Partition(normalized.Items)

	snapshot.Items = normalized.Items
	snapshot.Pending = parts.Pending
	snapshot.Processed = queue.RecentlyProcessed(parts.Processed, snapshot.LoadedAt, s.processedWindow)
	snapshot.Badges = queue.Summarize(parts.Pending)
	snapshot.Dropped = normalized.Dropped
	snapshot.Unexpected = normalized.UnexpectedStatus

	if dropped := normalized.DroppedTotal(); dropped > 0 {
		s.logger.Info("Dropped malformed records", "count", dropped)
	}
	if normalized.UnexpectedStatus > 0 {
		s.logger.Info("Items with unexpected status treated as processed", "count", normalized.UnexpectedStatus)
	}
	s.logger.Info("Queue loaded",
		"pending", len(snapshot.Pending),
		"processed", len(snapshot.Processed),
		"degraded_sources", len(snapshot.SourceErrors),
	)
	return snapshot, nil
}

// View filters both partitions with the same predicate. The filtered
// summary and the unfiltered badges come from the same reduction.
func (s *queueServiceImpl) View(snapshot *Snapshot, p queue.Predicate) *View {
	pending := queue.Filter(snapshot.Pending, p)
	return &View{
		Predicate: p,
		Pending:   pending,
		Processed: queue.Filter(snapshot.Processed, p),
		Summary:   queue.Summarize(pending),
		Badges:    snapshot.Badges,
		Degraded:  snapshot.DegradedSources(),
	}
}

// fetchInto lists every record of a source and stores them in dst only when
// the source answered without error.
func fetchInto[T any](ctx context.Context, src port.Source[T], dst *[]T) error {
	rows, err := src.List(ctx, port.ListFilter{})
	if err != nil {
		return err
	}
	*dst = rows
	return nil
}
