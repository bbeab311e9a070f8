package service

import (
	"context"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

// DefaultTable is the built-in admin -> customer status fallback. ok is
// false for statuses it does not cover.
type DefaultTable func(model.AdminStatus) (status model.CustomerStatus, ok bool)

// DefaultCustomerStatus is the fallback used when no active mapping row exists.
func DefaultCustomerStatus(s model.AdminStatus) (model.CustomerStatus, bool) {
	switch s {
	case model.AdminStatusPending:
		return model.CustomerStatusPending, true
	case model.AdminStatusInProgress:
		return model.CustomerStatusConfirmed, true
	case model.AdminStatusPurchased:
		return model.CustomerStatusShippedFromChina, true
	case model.AdminStatusShipped:
		return model.CustomerStatusShippedFromUAE, true
	case model.AdminStatusCompleted:
		return model.CustomerStatusDelivered, true
	case model.AdminStatusCancelled:
		return model.CustomerStatusCancelled, true
	default:
		return "", false
	}
}

type ResolutionSource string

const (
	ResolvedByMapping ResolutionSource = "mapping"
	ResolvedByDefault ResolutionSource = "default"
	ResolvedNone      ResolutionSource = "none" // leave the customer status untouched
)

// StatusMapper resolves the customer status for an admin status:
// active mapping row, else the default table, else nothing. It never fails.
type StatusMapper interface {
	Resolve(ctx context.Context, adminStatus model.AdminStatus) (model.CustomerStatus, ResolutionSource)
	Default(adminStatus model.AdminStatus) (model.CustomerStatus, bool)
}

type statusMapper struct {
	mappings repository.StatusMappingRepository
	defaults DefaultTable
	opts     Options
}

func NewStatusMapper(mappings repository.StatusMappingRepository, defaults DefaultTable, opts Options) StatusMapper {
	if defaults == nil {
		defaults = DefaultCustomerStatus
	}
	return &statusMapper{mappings: mappings, defaults: defaults, opts: opts.withDefaults()}
}

func (m *statusMapper) Resolve(ctx context.Context, adminStatus model.AdminStatus) (model.CustomerStatus, ResolutionSource) {
	mapping, err := readWithRetry(ctx, m.opts, "find status mapping", func(ctx context.Context) (*model.AdminStatusMapping, error) {
		return m.mappings.FindActive(ctx, adminStatus)
	})
	switch {
	case err == nil:
		return mapping.CustomerStatus, ResolvedByMapping
	case apperrors.IsNotFound(err):
	default:
		logger.Warn("Status mapping lookup failed, using default table", map[string]interface{}{
			"admin_status": adminStatus,
			"error":        err.Error(),
		})
	}

	if status, ok := m.defaults(adminStatus); ok {
		return status, ResolvedByDefault
	}

	logger.Debug("No customer status for admin status", map[string]interface{}{
		"admin_status": adminStatus,
	})
	return "", ResolvedNone
}

func (m *statusMapper) Default(adminStatus model.AdminStatus) (model.CustomerStatus, bool) {
	return m.defaults(adminStatus)
}
