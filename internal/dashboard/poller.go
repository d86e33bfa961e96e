package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sofiabaracatlj/fiap-farms/internal/model"
)

// Poller is the live view: it recomputes the current month's snapshot on a
// timer and keeps the latest one. Each run is tagged with a generation;
// a run that finishes after a newer one started is discarded.
type Poller struct {
	agg   *Aggregator
	cache SnapshotCache
	now   func() time.Time

	generation atomic.Uint64
	resetCh    chan time.Duration
	triggerCh  chan struct{}

	mu     sync.RWMutex
	latest *Snapshot
	gen    uint64

	// cacheMu orders writes to the shared cache by generation.
	cacheMu   sync.Mutex
	cachedGen uint64
}

// NewPoller builds a poller. cache may be nil.
func NewPoller(agg *Aggregator, cache SnapshotCache) *Poller {
	return &Poller{
		agg:       agg,
		cache:     cache,
		now:       time.Now,
		resetCh:   make(chan time.Duration, 1),
		triggerCh: make(chan struct{}, 1),
	}
}

// Latest returns the most recent snapshot, or nil before the first run.
func (p *Poller) Latest() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Trigger requests an immediate refresh without waiting for the next tick.
func (p *Poller) Trigger() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// SetInterval changes the refresh period of a running poller.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case p.resetCh <- d:
	default:
		// replace a pending reset with the newer value
		select {
		case <-p.resetCh:
		default:
		}
		select {
		case p.resetCh <- d:
		default:
		}
	}
}

// Run blocks until ctx is done.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("dashboard: poller started")
	go p.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("dashboard: poller stopped")
			return
		case d := <-p.resetCh:
			ticker.Reset(d)
			log.Info().Dur("interval", d).Msg("dashboard: poller interval changed")
		case <-p.triggerCh:
			go p.refresh(ctx)
		case <-ticker.C:
			go p.refresh(ctx)
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	gen := p.generation.Add(1)
	month, year := model.CurrentMonth(p.now())

	snap, err := p.agg.ComputeDashboard(ctx, month, year)
	if err != nil {
		log.Warn().Err(err).Uint64("generation", gen).Msg("dashboard: refresh failed")
	}
	if snap == nil || !p.store(gen, snap) {
		return
	}
	p.publish(ctx, gen, snap)
}

// publish writes snap to the shared cache unless a newer generation already
// went out. Puts are serialized so they land in generation order.
func (p *Poller) publish(ctx context.Context, gen uint64, snap *Snapshot) bool {
	if p.cache == nil {
		return false
	}
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	if gen < p.cachedGen {
		log.Debug().Uint64("generation", gen).Uint64("current", p.cachedGen).Msg("dashboard: skipped stale cache write")
		return false
	}
	p.cachedGen = gen
	if err := p.cache.Put(ctx, snap); err != nil {
		log.Warn().Err(err).Msg("dashboard: snapshot cache write failed")
	}
	return true
}

// store keeps snap unless a newer generation already landed.
func (p *Poller) store(gen uint64, snap *Snapshot) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen < p.gen {
		log.Debug().Uint64("generation", gen).Uint64("current", p.gen).Msg("dashboard: dropped stale snapshot")
		return false
	}
	p.gen = gen
	p.latest = snap
	return true
}
