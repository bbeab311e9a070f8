package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/events"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

// ErrScopeBusy is wrapped in the ConflictError returned when another replace
// of the same scope is still running.
var ErrScopeBusy = errors.New("operation already in progress")

// ScopeLocker serializes replaces of the same scope. TryLock never waits:
// acquired is false when the scope is held elsewhere.
type ScopeLocker interface {
	TryLock(ctx context.Context, scope string) (unlock func(), acquired bool, err error)
}

// ListCache stores read-model lists. Implementations must tolerate misses
// and failures silently.
type ListCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{})
	InvalidatePrefix(ctx context.Context, prefix string)
}

// EventPublisher delivers fulfillment events. Delivery is best effort.
type EventPublisher interface {
	PublishOrderStatusChanged(ctx context.Context, event events.OrderStatusChanged) error
}

type memoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryLocker returns a ScopeLocker for a single process.
func NewMemoryLocker() ScopeLocker {
	return &memoryLocker{held: make(map[string]struct{})}
}

func (l *memoryLocker) TryLock(_ context.Context, scope string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[scope]; busy {
		return nil, false, nil
	}
	l.held[scope] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, scope)
			l.mu.Unlock()
		})
	}, true, nil
}

// lockScopes acquires every scope in a fixed order or none of them.
func lockScopes(ctx context.Context, locker ScopeLocker, scopes ...string) (func(), error) {
	sorted := append([]string(nil), scopes...)
	sort.Strings(sorted)

	var unlocks []func()
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}

	for _, scope := range sorted {
		unlock, acquired, err := locker.TryLock(ctx, scope)
		if err != nil {
			release()
			return nil, err
		}
		if !acquired {
			release()
			logger.Warn("Scope busy", map[string]interface{}{
				"scope": scope,
			})
			return nil, &scopeBusyError{scope: scope}
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

type scopeBusyError struct {
	scope string
}

func (e *scopeBusyError) Error() string {
	return "scope " + e.scope + " is busy"
}

func (e *scopeBusyError) Unwrap() error {
	return ErrScopeBusy
}

// NoopCache never hits.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, interface{}) bool { return false }
func (NoopCache) Set(context.Context, string, interface{})      {}
func (NoopCache) InvalidatePrefix(context.Context, string)      {}

// LogPublisher writes events to the log instead of a broker.
type LogPublisher struct{}

func (LogPublisher) PublishOrderStatusChanged(_ context.Context, event events.OrderStatusChanged) error {
	logger.Info("Order status changed", map[string]interface{}{
		"order_id":        event.OrderID,
		"order_number":    event.OrderNumber,
		"from":            event.FromAdminStatus,
		"to":              event.ToAdminStatus,
		"customer_status": event.CustomerStatus,
	})
	return nil
}

func scopeProduct(productID uint) string {
	return fmt.Sprintf("product:%d", productID)
}

func scopeVariants(productID uint) string {
	return fmt.Sprintf("product:%d:variants", productID)
}

func scopeGeneralImages(productID uint) string {
	return fmt.Sprintf("product:%d:images:general", productID)
}

func scopeVariantImage(productID, variantID uint) string {
	return fmt.Sprintf("product:%d:variant:%d:image", productID, variantID)
}

// lock acquires the scopes for one write. A busy scope is a ConflictError;
// a locker failure is classified like any collaborator error.
func (o Options) lock(ctx context.Context, entity, action string, scopes ...string) (func(), error) {
	release, err := lockScopes(ctx, o.Locker, scopes...)
	if err == nil {
		return release, nil
	}
	if errors.Is(err, ErrScopeBusy) {
		return nil, apperrors.NewConflict(apperrors.CatalogScopeBusy, entity, action,
			"another change to the same "+entity+" is still in progress", err)
	}
	logger.Error("Failed to acquire scope lock", err, map[string]interface{}{
		"scopes": scopes,
	})
	return nil, apperrors.Wrap(err, entity, action)
}
