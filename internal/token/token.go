// Package token implements the Token Provider: a cached bearer token backed
// by one of three sources (static, synthetic development, or an OAuth2
// identity provider), refreshed proactively before expiry.
package token

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/ledgersync/pkg/log"
	"github.com/cuemby/ledgersync/pkg/metrics"
)

const (
	minRenewalThreshold     = 0.1
	maxRenewalThreshold     = 0.95
	defaultRenewalThreshold = 0.8
	developmentTokenLifetime = 24 * time.Hour
	backgroundRetryDelay    = 30 * time.Second
)

// Source fetches a fresh token string and its advertised lifetime. expiresIn
// is zero when the source has no notion of expiry (Static tokens).
type Source interface {
	Fetch(ctx context.Context) (tokenString string, expiresIn time.Duration, err error)
}

// Provider caches a bearer token and refreshes it before the renewal
// threshold elapses. Safe for concurrent use; the cache is guarded by a
// read-write lock, so concurrent fast-path reads do not block each other.
// A refresh holds the write lock while it fetches, and readers wait for it.
type Provider struct {
	mu               sync.RWMutex
	source           Source
	renewalThreshold float64

	cached     string
	obtainedAt time.Time
	expiresIn  time.Duration // zero means non-expiring
}

// New constructs a Provider for the given source. renewalThreshold is
// clamped to [0.1, 0.95]; zero selects the default of 0.8.
func New(source Source, renewalThreshold float64) *Provider {
	if renewalThreshold == 0 {
		renewalThreshold = defaultRenewalThreshold
	}
	if renewalThreshold < minRenewalThreshold {
		renewalThreshold = minRenewalThreshold
	}
	if renewalThreshold > maxRenewalThreshold {
		renewalThreshold = maxRenewalThreshold
	}
	return &Provider{
		source:           source,
		renewalThreshold: renewalThreshold,
	}
}

// GetToken returns the currently cached token if fresh, otherwise triggers a
// refresh under mutual exclusion.
func (p *Provider) GetToken(ctx context.Context) (string, error) {
	p.mu.RLock()
	fresh := p.isFresh()
	token := p.cached
	p.mu.RUnlock()

	if fresh {
		return token, nil
	}
	return p.RefreshToken(ctx)
}

// isFresh must be called with at least a read lock held.
func (p *Provider) isFresh() bool {
	if p.cached == "" {
		return false
	}
	if p.expiresIn == 0 {
		return true // non-expiring: static token, or no expires_in advertised
	}
	age := time.Since(p.obtainedAt)
	return age < time.Duration(float64(p.expiresIn)*p.renewalThreshold)
}

// RefreshToken acquires the exclusive lock, re-checks freshness under the
// lock (double-check), and if still stale fetches a new token.
func (p *Provider) RefreshToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isFresh() {
		return p.cached, nil
	}

	newToken, expiresIn, err := p.source.Fetch(ctx)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		log.WithComponent("token").Warn().Err(err).Msg("token refresh failed, keeping cached token")
		return p.cached, err
	}

	p.cached = newToken
	p.obtainedAt = time.Now()
	p.expiresIn = expiresIn
	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	return p.cached, nil
}

// StartBackgroundRefresh spawns a goroutine that sleeps until the next
// expected refresh moment, then refreshes, looping until ctx is canceled.
// On failure it logs and retries after backgroundRetryDelay.
func (p *Provider) StartBackgroundRefresh(ctx context.Context) {
	go func() {
		logger := log.WithComponent("token")
		for {
			p.mu.RLock()
			wait := p.nextRefreshDelay()
			p.mu.RUnlock()

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}

			if _, err := p.RefreshToken(ctx); err != nil {
				logger.Warn().Err(err).Msg("background token refresh failed, retrying")
				select {
				case <-ctx.Done():
					return
				case <-time.After(backgroundRetryDelay):
				}
			}
		}
	}()
}

// nextRefreshDelay must be called with at least a read lock held.
func (p *Provider) nextRefreshDelay() time.Duration {
	if p.cached == "" {
		return 0
	}
	if p.expiresIn == 0 {
		return backgroundRetryDelay * 10
	}
	refreshAt := p.obtainedAt.Add(time.Duration(float64(p.expiresIn) * p.renewalThreshold))
	remaining := time.Until(refreshAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// developmentLifetime returns the synthetic 24-hour expiry constant. It is
// unexported and has no callers.
func developmentLifetime() time.Duration { return developmentTokenLifetime }
