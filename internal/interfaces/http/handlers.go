package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/approvals-hub/internal/application/service"
	"github.com/garyjia/approvals-hub/internal/domain/entity"
	"github.com/garyjia/approvals-hub/internal/domain/queue"
	"github.com/garyjia/approvals-hub/internal/domain/workflow"
)

// HistoryReader lists recorded action outcomes
type HistoryReader interface {
	ListByItem(ctx context.Context, itemType entity.ItemType, itemID string) ([]*entity.ActionHistory, error)
	ListByRun(ctx context.Context, runID string) ([]*entity.ActionHistory, error)
}

// Exporter renders pending items as a downloadable document
type Exporter interface {
	ContentType() string
	Export(w io.Writer, items []entity.PendingItem, summary queue.Summary) error
}

// Pinger checks a backing store
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	queue    service.QueueService
	claims   service.ClaimService
	history  HistoryReader
	exporter Exporter
	db       Pinger
	logger   Logger
}

// NewHandlers creates a new Handlers instance. db may be nil.
func NewHandlers(
	queueService service.QueueService,
	claimService service.ClaimService,
	history HistoryReader,
	exporter Exporter,
	db Pinger,
	logger Logger,
) *Handlers {
	return &Handlers{
		queue:    queueService,
		claims:   claimService,
		history:  history,
		exporter: exporter,
		db:       db,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database,omitempty"`
}

// QueueResponse is the filtered queue plus snapshot metadata
type QueueResponse struct {
	*service.View
	LoadedAt         time.Time               `json:"loaded_at"`
	DroppedRecords   map[entity.ItemType]int `json:"dropped_records,omitempty"`
	UnexpectedStatus int                     `json:"unexpected_status,omitempty"`
}

// ActionRequest is the body of single-item and claim actions
type ActionRequest struct {
	Action   string   `json:"action" binding:"required"`
	Notes    string   `json:"notes"`
	Reason   string   `json:"reason"`
	EntryIDs []string `json:"entry_ids"`
}

// BulkActionRequest is the body of a bulk action
type BulkActionRequest struct {
	IDs    []string `json:"ids" binding:"required"`
	Action string   `json:"action" binding:"required"`
	Notes  string   `json:"notes"`
	Reason string   `json:"reason"`
}

func toAction(kind, notes, reason string) (workflow.Action, error) {
	k, err := workflow.ParseActionKind(kind)
	if err != nil {
		return workflow.Action{}, err
	}
	a := workflow.Action{Kind: k, Notes: notes, Reason: reason}
	if err := a.Validate(); err != nil {
		return workflow.Action{}, err
	}
	return a, nil
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.db != nil {
		if err := h.db.PingContext(c.Request.Context()); err != nil {
			h.logger.Error("Database health check failed", "error", err)
			response.Status = "unhealthy"
			response.Database = err.Error()
			c.JSON(http.StatusServiceUnavailable, Response{Success: false, Data: response})
			return
		}
		response.Database = "ok"
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: response})
}

// loadView pulls a fresh snapshot and applies the query predicate
func (h *Handlers) loadView(c *gin.Context) (*service.Snapshot, *service.View, bool) {
	var p queue.Predicate
	if err := c.ShouldBindQuery(&p); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid query parameters", err)
		return nil, nil, false
	}

	snapshot, err := h.queue.Load(c.Request.Context())
	if err != nil {
		h.respondError(c, "failed to load queue", err)
		return nil, nil, false
	}
	return snapshot, h.queue.View(snapshot, p), true
}

// GetQueue handles GET /api/queue
func (h *Handlers) GetQueue(c *gin.Context) {
	snapshot, view, ok := h.loadView(c)
	if !ok {
		return
	}

	resp := Response{
		Success: true,
		Data: QueueResponse{
			View:             view,
			LoadedAt:         snapshot.LoadedAt,
			DroppedRecords:   snapshot.Dropped,
			UnexpectedStatus: snapshot.Unexpected,
		},
	}
	if snapshot.Degraded() {
		resp.Warning = fmt.Sprintf("some sources are unavailable: %v", snapshot.DegradedSources())
	}
	c.JSON(http.StatusOK, resp)
}

// ExportQueue handles GET /api/queue/export
func (h *Handlers) ExportQueue(c *gin.Context) {
	snapshot, view, ok := h.loadView(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.Export(&buf, view.Pending, view.Summary); err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to export queue", err)
		return
	}

	filename := fmt.Sprintf("pending-%s.xlsx", snapshot.LoadedAt.Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, h.exporter.ContentType(), buf.Bytes())
}

// GetClaim handles GET /api/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	claim, err := h.claims.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "failed to get claim", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: claim})
}

// ActOnClaim handles POST /api/claims/:id/actions. Without entry_ids every
// open entry of the claim is actioned.
func (h *Handlers) ActOnClaim(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	a, err := toAction(req.Action, req.Notes, req.Reason)
	if err != nil {
		h.respondError(c, "invalid action", err)
		return
	}

	groupID := c.Param("id")
	var outcome *service.DrillDownOutcome
	if len(req.EntryIDs) > 0 {
		outcome, err = h.claims.ActOnEntries(c.Request.Context(), groupID, req.EntryIDs, a)
	} else {
		outcome, err = h.claims.ActOnGroup(c.Request.Context(), groupID, a)
	}
	h.respondOutcome(c, outcome, err)
}

// ActOnItem handles POST /api/items/:type/:id/actions
func (h *Handlers) ActOnItem(c *gin.Context) {
	itemType, ok := h.itemType(c)
	if !ok {
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	a, err := toAction(req.Action, req.Notes, req.Reason)
	if err != nil {
		h.respondError(c, "invalid action", err)
		return
	}

	outcome, err := h.claims.ActOnItem(c.Request.Context(), itemType, c.Param("id"), a)
	h.respondOutcome(c, outcome, err)
}

// BulkAction handles POST /api/items/:type/bulk
func (h *Handlers) BulkAction(c *gin.Context) {
	itemType, ok := h.itemType(c)
	if !ok {
		return
	}

	var req BulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	a, err := toAction(req.Action, req.Notes, req.Reason)
	if err != nil {
		h.respondError(c, "invalid action", err)
		return
	}

	result, err := h.claims.ActOnItems(c.Request.Context(), itemType, req.IDs, a)
	if err != nil {
		h.respondError(c, "bulk action failed", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: result.AllSucceeded(), Data: result})
}

// ItemHistory handles GET /api/history/:type/:id
func (h *Handlers) ItemHistory(c *gin.Context) {
	itemType, ok := h.itemType(c)
	if !ok {
		return
	}

	entries, err := h.history.ListByItem(c.Request.Context(), itemType, c.Param("id"))
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to retrieve history", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// RunHistory handles GET /api/runs/:id
func (h *Handlers) RunHistory(c *gin.Context) {
	entries, err := h.history.ListByRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "failed to retrieve history", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

func (h *Handlers) itemType(c *gin.Context) (entity.ItemType, bool) {
	t := entity.ItemType(c.Param("type"))
	if !t.IsValid() {
		h.fail(c, http.StatusBadRequest, "unknown item type", fmt.Errorf("item type %q", t))
		return "", false
	}
	return t, true
}

func (h *Handlers) respondOutcome(c *gin.Context, outcome *service.DrillDownOutcome, err error) {
	if err != nil && errors.Is(err, service.ErrRefreshFailed) && outcome != nil {
		h.logger.Error("Claim refresh failed after action", "error", err)
		c.JSON(http.StatusOK, Response{
			Success: outcome.Resolved,
			Data:    outcome,
			Warning: "actions were applied but the claim could not be refreshed",
		})
		return
	}
	if err != nil {
		h.respondError(c, "action failed", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: outcome.Resolved, Data: outcome})
}

// respondError maps service errors onto status codes
func (h *Handlers) respondError(c *gin.Context, msg string, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	case errors.Is(err, service.ErrAllSourcesFailed):
		status = http.StatusServiceUnavailable
	default:
		switch workflow.KindOf(err) {
		case workflow.KindNotFound:
			status = http.StatusNotFound
		case workflow.KindPermissionDenied:
			status = http.StatusForbidden
		case workflow.KindValidationFailed:
			status = http.StatusBadRequest
		}
	}
	h.fail(c, status, fmt.Sprintf("%s: %v", msg, err), err)
}

func (h *Handlers) fail(c *gin.Context, status int, msg string, err error) {
	h.logger.Error("Request failed",
		"path", c.Request.URL.Path,
		"status", status,
		"error", err,
	)
	c.JSON(status, Response{Success: false, Error: msg})
}
