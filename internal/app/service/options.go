package service

import (
	"context"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"golang.org/x/text/language"
)

// Timeouts bound every call to the data collaborator.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
}

// Options carries the collaborators shared by all services. Zero values are
// replaced with in-process defaults.
type Options struct {
	Timeouts  Timeouts
	Locker    ScopeLocker
	Cache     ListCache
	Publisher EventPublisher
	Locale    language.Tag
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Timeouts.Read <= 0 {
		o.Timeouts.Read = 5 * time.Second
	}
	if o.Timeouts.Write <= 0 {
		o.Timeouts.Write = 10 * time.Second
	}
	if o.Locker == nil {
		o.Locker = NewMemoryLocker()
	}
	if o.Cache == nil {
		o.Cache = NoopCache{}
	}
	if o.Publisher == nil {
		o.Publisher = LogPublisher{}
	}
	if o.Locale == language.Und {
		o.Locale = language.English
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) readContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.Timeouts.Read)
}

// writeContext detaches from the caller's cancellation so a replace
// sequence is never abandoned halfway; the write timeout still applies.
func (o Options) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), o.Timeouts.Write)
}

// readWithRetry runs an idempotent read under the read timeout and repeats it
// once on a transient failure. Writes never go through here.
func readWithRetry[T any](ctx context.Context, o Options, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		rctx, cancel := o.readContext(ctx)
		v, err := fn(rctx)
		cancel()
		if err == nil {
			return v, nil
		}
		if attempt > 1 || ctx.Err() != nil || !apperrors.IsTransient(err) {
			return zero, err
		}
		logger.Warn("Transient read failure, retrying once", map[string]interface{}{
			"operation": op,
			"error":     err.Error(),
		})
	}
}

func requireStaff(actor model.Actor, entity, action string) error {
	if actor.IsStaff() {
		return nil
	}
	logger.Warn("Rejected operation for non-staff actor", map[string]interface{}{
		"user_id": actor.UserID,
		"role":    actor.Role,
		"entity":  entity,
		"action":  action,
	})
	return apperrors.NewAuthorization(entity, action)
}
