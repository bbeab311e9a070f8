package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/util"
)

var ErrNoCredential = errors.New("no valid credential available")

// Token is a bearer credential and the instant it stops being accepted.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// ValidFor reports whether the token is still usable window from now.
func (t Token) ValidFor(now time.Time, window time.Duration) bool {
	return t.Value != "" && now.Add(window).Before(t.ExpiresAt)
}

// Source mints or fetches a fresh token.
type Source interface {
	FetchToken(ctx context.Context) (Token, error)
}

// Provider hands out tokens that stay valid for at least minValidity.
type Provider interface {
	GetToken(ctx context.Context, minValidity time.Duration) (Token, error)
}

// CachingProvider keeps the last token and refreshes it when it would expire
// inside the requested window. A refresh is bounded by timeout; when it fails
// or times out, a cached token that has not yet expired is returned instead.
type CachingProvider struct {
	source  Source
	timeout time.Duration
	now     func() time.Time

	mu     sync.Mutex
	cached *Token
}

func NewCachingProvider(source Source, timeout time.Duration) *CachingProvider {
	return &CachingProvider{source: source, timeout: timeout, now: time.Now}
}

func (p *CachingProvider) GetToken(ctx context.Context, minValidity time.Duration) (Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.cached != nil && p.cached.ValidFor(now, minValidity) {
		return *p.cached, nil
	}

	token, err := p.refresh(ctx)
	if err == nil {
		p.cached = &token
		logger.Debug("Credential refreshed", map[string]interface{}{
			"expires_at": token.ExpiresAt,
		})
		return token, nil
	}

	if p.cached != nil && p.cached.ValidFor(p.now(), 0) {
		logger.Warn("Credential refresh failed, using cached token", map[string]interface{}{
			"error":      err.Error(),
			"expires_at": p.cached.ExpiresAt,
		})
		return *p.cached, nil
	}

	logger.Error("Credential refresh failed", err, nil)
	return Token{}, fmt.Errorf("%w: %v", ErrNoCredential, err)
}

// refresh returns once the source answers or the timeout elapses, even when
// the source ignores cancellation.
func (p *CachingProvider) refresh(ctx context.Context) (Token, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		token Token
		err   error
	}
	done := make(chan result, 1)
	go func() {
		token, err := p.source.FetchToken(ctx)
		done <- result{token, err}
	}()

	select {
	case r := <-done:
		if r.err == nil && r.token.Value == "" {
			return Token{}, errors.New("source returned an empty token")
		}
		return r.token, r.err
	case <-ctx.Done():
		return Token{}, ctx.Err()
	}
}

// SignerSource mints access tokens for a fixed service account.
type SignerSource struct {
	UserID uint
	Role   model.UserRole
	Secret string
	Expiry time.Duration
}

func (s SignerSource) FetchToken(context.Context) (Token, error) {
	value, expiresAt, err := util.GenerateAccessToken(s.UserID, string(s.Role), s.Secret, s.Expiry)
	if err != nil {
		return Token{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return Token{Value: value, ExpiresAt: expiresAt}, nil
}

// ActorFromToken verifies the token and returns the identity it carries.
func ActorFromToken(token Token, secret string) (model.Actor, error) {
	claims, err := util.ValidateToken(token.Value, secret)
	if err != nil {
		return model.Actor{}, err
	}
	role, err := model.ParseUserRole(claims.Role)
	if err != nil {
		return model.Actor{}, util.ErrInvalidToken
	}
	return model.Actor{UserID: claims.UserID, Role: role}, nil
}
