// Package poller keeps a working set in sync with a remote listing by
// fetching it on an interval and replacing the whole set on every success.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go-ocr-inventory/internal/model"
)

const DefaultInterval = 5 * time.Second

var (
	ErrAlreadyStarted = errors.New("poller already started")
	ErrStopped        = errors.New("poller stopped")
)

// FetchFunc lists the current remote records.
type FetchFunc func(ctx context.Context) ([]model.RemoteFileRecord, error)

// ReconcileFunc receives the complete record set of a successful cycle.
type ReconcileFunc func(records []model.RemoteFileRecord)

// ErrorFunc receives the failure of a cycle. Previous state must be kept.
type ErrorFunc func(err error)

type Poller struct {
	fetch     FetchFunc
	reconcile ReconcileFunc
	onError   ErrorFunc
	interval  time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	issued  uint64
	applied uint64

	stopOnce sync.Once
}

func New(fetch FetchFunc, reconcile ReconcileFunc, onError ErrorFunc, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if onError == nil {
		onError = func(error) {}
	}

	return &Poller{
		fetch:     fetch,
		reconcile: reconcile,
		onError:   onError,
		interval:  interval,
	}
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start runs a first cycle right away and then one per interval until Stop
// is called or ctx is cancelled.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrStopped
	}
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.started = true
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(loopCtx)
	return nil
}

// Stop cancels every future tick. A fetch already in flight is left to
// finish but its outcome is discarded, and no callback runs once Stop
// has returned.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		p.stopped = true
		if p.cancel != nil {
			p.cancel()
		}
	})
}

func (p *Poller) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// FetchNow runs one fetch and reconcile cycle synchronously, outside the
// regular schedule.
func (p *Poller) FetchNow(ctx context.Context) error {
	return p.cycle(ctx)
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	// Stop must not abort a request that is already on the wire.
	if err := p.cycle(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, ErrStopped) {
		slog.Debug("poll cycle failed", "error", err)
	}
}

func (p *Poller) cycle(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrStopped
	}
	p.issued++
	seq := p.issued
	p.mu.Unlock()

	records, err := p.fetch(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		slog.Debug("poll result discarded after stop", "seq", seq)
		return ErrStopped
	}
	// The caller went away. That says nothing about the service, and a
	// newer cycle may still apply its own result.
	if err != nil && ctx.Err() != nil {
		slog.Debug("poll abandoned by caller", "seq", seq, "error", err)
		return err
	}
	if seq < p.applied {
		slog.Debug("stale poll result discarded", "seq", seq, "applied", p.applied)
		return err
	}
	p.applied = seq

	if err != nil {
		p.onError(err)
		return err
	}

	p.reconcile(records)
	return nil
}
