// Package health runs the background probe loop that keeps registry state
// aligned with real source behavior.
package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/reelscout/discovery-cli/internal/registry"
	"github.com/reelscout/discovery-cli/internal/source"
)

// Options configures the monitor loop.
type Options struct {
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
}

// Monitor periodically probes every registered source and feeds the outcome
// back into the registry. Probe failures are isolated per source; the loop
// only exits when its context is cancelled.
type Monitor struct {
	reg      *registry.Registry
	adapters *source.Set
	opts     Options

	lastResetDay int // UTC year-day of the last usage reset
	nowFunc      func() time.Time
}

// NewMonitor creates a health monitor for the given registry and adapters.
func NewMonitor(reg *registry.Registry, adapters *source.Set, opts Options) *Monitor {
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = time.Minute
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 5 * time.Second
	}
	return &Monitor{
		reg:      reg,
		adapters: adapters,
		opts:     opts,
		nowFunc:  time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (m *Monitor) WithNow(now func() time.Time) *Monitor {
	m.nowFunc = now
	return m
}

// Run starts the probe loop. It blocks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "health.monitor"))
	log.Info("starting health monitor",
		zap.Duration("interval", m.opts.ProbeInterval),
		zap.Duration("probe_timeout", m.opts.ProbeTimeout),
	)

	m.lastResetDay = m.nowFunc().UTC().YearDay()

	ticker := time.NewTicker(m.opts.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("health monitor stopped")
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick runs one probe pass over every source, plus the daily usage rollover.
// Exported so tests and the CLI can drive probes without the timer.
func (m *Monitor) Tick(ctx context.Context) {
	now := m.nowFunc().UTC()
	if day := now.YearDay(); day != m.lastResetDay {
		m.lastResetDay = day
		m.reg.ResetUsage()
	}

	for _, src := range m.reg.Snapshot() {
		m.probeOne(ctx, src.ID)
	}
}

// probeOne issues a single probe with its own deadline. Any failure, panic
// included, is converted into a RecordFailure so one misbehaving adapter can
// never halt the loop or touch another source's state.
func (m *Monitor) probeOne(ctx context.Context, id string) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("health: probe panicked",
				zap.String("source", id),
				zap.Any("panic", rec),
			)
			m.reg.RecordFailure(id)
		}
	}()

	ad := m.adapters.Get(id)
	if ad == nil {
		// Configured but not wired to an adapter: nothing to probe.
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.opts.ProbeTimeout)
	defer cancel()

	start := m.nowFunc()
	err := probe(probeCtx, ad)
	elapsed := m.nowFunc().Sub(start)

	if err != nil {
		zap.L().Warn("health: probe failed",
			zap.String("source", id),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		m.reg.RecordFailure(id)
		return
	}

	m.reg.RecordSuccess(id, float64(elapsed.Milliseconds()))
}

// probe uses the adapter's Prober capability when present, falling back to a
// zero-result search for adapters without a dedicated ping.
func probe(ctx context.Context, ad source.Adapter) error {
	if p, ok := ad.(source.Prober); ok {
		return p.Probe(ctx)
	}
	_, err := ad.Search(ctx, source.Query{Text: "ping", Limit: 1})
	return err
}
