package settlement

import (
	"context"
	"sync"
	"time"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/system"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/pkg/logger"
)

// Poller drains the event queue on an interval. Events that fail settlement
// stay in the queue and are retried with a per-event backoff.
type Poller struct {
	service  *Service
	interval time.Duration
	backoff  time.Duration
	batch    int
	log      *logger.Logger

	mu          sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	running     bool
	nextAttempt map[string]time.Time
}

var _ system.Service = (*Poller)(nil)

// NewPoller creates a settlement poller over the processor.
func NewPoller(service *Service, log *logger.Logger) *Poller {
	if log == nil {
		log = logger.NewDefault("settlement-poller")
	}
	return &Poller{
		service:     service,
		interval:    5 * time.Second,
		backoff:     30 * time.Second,
		batch:       DefaultBatchSize,
		log:         log,
		nextAttempt: make(map[string]time.Time),
	}
}

// WithInterval overrides the polling cadence. Call before Start.
func (p *Poller) WithInterval(interval time.Duration) *Poller {
	if interval > 0 {
		p.interval = interval
	}
	return p
}

func (p *Poller) Name() string { return "settlement-poller" }

func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.tick(runCtx)
			}
		}
	}()

	p.log.Info("settlement poller started")
	return nil
}

func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (p *Poller) tick(ctx context.Context) {
	pending, err := p.service.events.ListUnprocessedEvents(ctx, p.batch)
	if err != nil {
		p.log.WithError(err).Warn("list unprocessed events failed")
		return
	}

	now := time.Now()
	for _, ev := range pending {
		if !p.shouldAttempt(ev.ID, now) {
			continue
		}
		if err := p.service.ProcessEvent(ctx, ev); err != nil {
			p.log.WithError(err).Warnf("settle event %s failed", ev.ID)
			p.scheduleNext(ev.ID)
			continue
		}
		p.clearSchedule(ev.ID)
	}
}

func (p *Poller) shouldAttempt(id string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, ok := p.nextAttempt[id]
	return !ok || now.After(next)
}

func (p *Poller) scheduleNext(id string) {
	p.mu.Lock()
	p.nextAttempt[id] = time.Now().Add(p.backoff)
	p.mu.Unlock()
}

func (p *Poller) clearSchedule(id string) {
	p.mu.Lock()
	delete(p.nextAttempt, id)
	p.mu.Unlock()
}
