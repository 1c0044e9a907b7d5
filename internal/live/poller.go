// Package live recomputes views on a fixed interval and hands each snapshot
// to a publisher. A poller stops when its stop flag is set or its context ends.
package live

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abrezinsky/tabulator/internal/logger"
	"github.com/abrezinsky/tabulator/internal/metrics"
)

// DefaultInterval is used when a poller is created with a non-positive interval
const DefaultInterval = 2 * time.Second

// Source computes the current snapshot
type Source func(ctx context.Context) (any, error)

// Publisher receives every snapshot. It must not block for long.
type Publisher func(snapshot any)

// Poller calls a Source every interval and publishes the result
type Poller struct {
	log      logger.Logger
	interval time.Duration
	source   Source
	publish  Publisher
	metrics  *metrics.Metrics

	stopped  atomic.Bool
	kick     chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
	startMu  sync.Mutex
	started  bool
	stopOnce sync.Once
}

// New creates a poller. m may be nil.
func New(log logger.Logger, interval time.Duration, source Source, publish Publisher, m *metrics.Metrics) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		log:      log,
		interval: interval,
		source:   source,
		publish:  publish,
		metrics:  m,
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start runs the poll loop in a goroutine. The first snapshot is published immediately.
// Calling Start more than once has no effect.
func (p *Poller) Start(ctx context.Context) {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if p.started || p.stopped.Load() {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.metrics.PollerStarted()
	go p.run(ctx)
}

// Kick asks for a snapshot now instead of at the next tick
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Stop sets the stop flag and waits for the loop to exit. Safe to call repeatedly.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)

		p.startMu.Lock()
		started := p.started
		cancel := p.cancel
		p.startMu.Unlock()

		if !started {
			return
		}
		cancel()
		<-p.done
	})
}

// Stopped reports whether Stop has been called
func (p *Poller) Stopped() bool {
	return p.stopped.Load()
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	defer p.metrics.PollerStopped()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if p.stopped.Load() {
			return
		}
		p.poll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.kick:
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	snapshot, err := p.source(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn("Live view refresh failed", "error", err)
		}
		return
	}
	if p.stopped.Load() {
		return
	}
	p.publish(snapshot)
}
