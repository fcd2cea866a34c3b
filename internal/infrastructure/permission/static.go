// Package permission supplies the reviewer's approval rights.
package permission

import (
	"context"

	"github.com/garyjia/approvals-hub/internal/application/port"
	"github.com/garyjia/approvals-hub/internal/config"
)

// Static serves a fixed permission set, normally read from configuration
type Static struct {
	perms port.Permissions
}

var _ port.PermissionProvider = (*Static)(nil)

// NewStatic creates a provider returning perms
func NewStatic(perms port.Permissions) *Static {
	return &Static{perms: perms}
}

// FromConfig creates a provider from the permissions config section
func FromConfig(cfg config.PermissionsConfig) *Static {
	return NewStatic(port.Permissions{
		CanApproveExpenses:  cfg.CanApproveExpenses,
		CanApproveInvoices:  cfg.CanApproveInvoices,
		CanApproveTimecards: cfg.CanApproveTimecards,
		CanApprovePOs:       cfg.CanApprovePOs,
	})
}

// Permissions returns the configured permission set
func (s *Static) Permissions(ctx context.Context) (port.Permissions, error) {
	if err := ctx.Err(); err != nil {
		return port.Permissions{}, err
	}
	return s.perms, nil
}
