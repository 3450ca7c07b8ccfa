// Package timetrust decides whether the process clock can be trusted for
// financial timestamps. Payroll and revenue rows must not silently pick up
// a tampered or unsynchronized local clock, so every write through the
// persistence gateway consults the oracle's trust state first.
package timetrust

import (
	"context"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/paycore/payroll-backend/pkg/config"
	"github.com/paycore/payroll-backend/pkg/logger"
)

// QueryFunc resolves the current time from a single network time server.
type QueryFunc func(server string, timeout time.Duration) (time.Time, error)

// Oracle resolves the current time against a fixed list of network time
// sources and tracks whether the last resolution fell back to the local
// clock. The trust flag is explicit state, not a package-level variable:
// the gateway reads it, only the oracle writes it.
type Oracle struct {
	mu             sync.RWMutex
	usingLocalTime bool

	servers []string
	timeout time.Duration
	query   QueryFunc
	logger  *logger.Logger
}

// New creates an oracle using the real NTP client.
func New(cfg *config.TimeTrustConfig, log *logger.Logger) *Oracle {
	return &Oracle{
		servers: cfg.Servers,
		timeout: cfg.Timeout,
		query:   ntpQuery,
		logger:  log.WithComponent("timetrust"),
	}
}

// NewWithQuery creates an oracle with a custom query function. Used by
// tests to resolve time without network access.
func NewWithQuery(servers []string, timeout time.Duration, query QueryFunc, log *logger.Logger) *Oracle {
	return &Oracle{
		servers: servers,
		timeout: timeout,
		query:   query,
		logger:  log.WithComponent("timetrust"),
	}
}

func ntpQuery(server string, timeout time.Duration) (time.Time, error) {
	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return time.Time{}, err
	}
	if err := resp.Validate(); err != nil {
		return time.Time{}, err
	}
	return time.Now().Add(resp.ClockOffset), nil
}

// Now resolves the current time. Servers are tried in order; the first
// success marks the clock trusted. If every source fails the local clock
// is returned and the trust flag is cleared.
func (o *Oracle) Now(ctx context.Context) time.Time {
	for _, server := range o.servers {
		if err := ctx.Err(); err != nil {
			break
		}
		resolved, err := o.query(server, o.timeout)
		if err != nil {
			o.logger.Debug().Str("server", server).Err(err).Msg("time source failed")
			continue
		}
		o.setUsingLocalTime(false)
		o.logger.Info().Str("server", server).Time("resolved", resolved).Msg("network time resolved")
		return resolved
	}

	local := time.Now()
	o.setUsingLocalTime(true)
	o.logger.Warn().Time("local", local).Msg("all time sources failed, falling back to local clock")
	return local
}

// UsingLocalTime reports whether the last resolution fell back to the
// local clock. The gateway refuses writes while this is true.
func (o *Oracle) UsingLocalTime() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.usingLocalTime
}

// Reset clears the trust flag and immediately re-attempts resolution.
// Returns the post-reset trust state.
func (o *Oracle) Reset(ctx context.Context) bool {
	o.setUsingLocalTime(false)
	o.logger.Info().Msg("time trust reset, re-resolving")
	o.Now(ctx)
	return o.UsingLocalTime()
}

// ForceLocal marks the clock untrusted without attempting resolution.
func (o *Oracle) ForceLocal() {
	o.setUsingLocalTime(true)
	o.logger.Info().Msg("forced local time mode")
}

func (o *Oracle) setUsingLocalTime(v bool) {
	o.mu.Lock()
	o.usingLocalTime = v
	o.mu.Unlock()
}
