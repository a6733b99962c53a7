package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Func is one polling iteration. ctx is cancelled when the poller stops.
type Func func(ctx context.Context)

// Poller runs a function immediately and then on every tick until stopped
type Poller struct {
	name     string
	interval time.Duration
	fn       Func
	trigger  chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger zerolog.Logger
}

// New creates a poller. An interval <= 0 disables the ticker, leaving the
// initial run and Trigger.
func New(name string, interval time.Duration, fn Func, logger zerolog.Logger) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		name:     name,
		interval: interval,
		fn:       fn,
		trigger:  make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.With().Str("component", "poller").Str("poller", name).Logger(),
	}
}

// Name returns the poller name
func (p *Poller) Name() string {
	return p.name
}

// Interval returns the tick interval
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start launches the polling loop. Calling it again, or after Stop, does nothing.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started || p.stopped {
		return
	}
	p.started = true

	p.wg.Add(1)
	go p.run()

	p.logger.Debug().Dur("interval", p.interval).Msg("poller started")
}

// Trigger schedules an extra iteration. Requests made while one is pending are merged.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels the loop and waits for a running iteration to return
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	p.logger.Debug().Msg("poller stopped")
}

func (p *Poller) run() {
	defer p.wg.Done()

	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// Initial run
	p.fn(p.ctx)

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-tick:
			p.fn(p.ctx)
		case <-p.trigger:
			p.fn(p.ctx)
		}
	}
}
