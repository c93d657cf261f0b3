package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/brightpath-health/practice-dashboard/pkg/logging"
)

// Runner drives re-reconciliation: a fixed-period poll, an explicit Refresh,
// and the availability-changed signal all trigger a pass. A pass in flight
// when a new trigger arrives is superseded, not queued; only the newest
// pass's snapshot is ever published.
type Runner struct {
	rec          *Reconciler
	logger       *logging.Logger
	fetchTimeout time.Duration
	now          func() time.Time

	tick    <-chan time.Time
	stop    func()
	refresh chan struct{}
	avail   <-chan struct{}

	mu         sync.Mutex
	latest     *Snapshot
	gen        uint64
	cancelPass context.CancelFunc
	subs       []chan *Snapshot
}

// RunnerConfig configures a Runner. Tick/Stop allow tests to inject a fake
// ticker; when nil a real ticker at Interval is used.
type RunnerConfig struct {
	Reconciler   *Reconciler
	Interval     time.Duration
	FetchTimeout time.Duration
	Logger       *logging.Logger

	Tick                <-chan time.Time
	Stop                func()
	AvailabilityChanged <-chan struct{}
	Now                 func() time.Time
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Reconciler == nil {
		return nil, errors.New("schedule: runner requires a reconciler")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 5 * time.Second
	}

	tick := cfg.Tick
	stop := cfg.Stop
	if tick == nil {
		interval := cfg.Interval
		if interval <= 0 {
			interval = 10 * time.Second
		}
		ticker := time.NewTicker(interval)
		tick = ticker.C
		stop = ticker.Stop
	}

	return &Runner{
		rec:          cfg.Reconciler,
		logger:       logger,
		fetchTimeout: fetchTimeout,
		now:          now,
		tick:         tick,
		stop:         stop,
		refresh:      make(chan struct{}, 1),
		avail:        cfg.AvailabilityChanged,
	}, nil
}

// Start blocks until ctx is cancelled, running one pass immediately and then
// one per trigger.
func (r *Runner) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if r.stop != nil {
			r.stop()
		}
	}()

	r.launchPass(ctx)

	for {
		select {
		case <-ctx.Done():
			r.cancelInFlight()
			return
		case <-r.tick:
			r.launchPass(ctx)
		case <-r.refresh:
			r.launchPass(ctx)
		case _, ok := <-r.avail:
			if !ok {
				r.avail = nil
				continue
			}
			r.logger.Info("availability changed, reconciling immediately")
			r.launchPass(ctx)
		}
	}
}

// Refresh requests an immediate pass. Requests arriving while one is pending
// collapse into a single pass.
func (r *Runner) Refresh() {
	select {
	case r.refresh <- struct{}{}:
	default:
	}
}

// Latest returns the most recently published snapshot, or nil before the
// first pass completes.
func (r *Runner) Latest() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest
}

// Subscribe registers a channel receiving each published snapshot. Slow
// subscribers miss intermediate snapshots rather than blocking the runner.
func (r *Runner) Subscribe() <-chan *Snapshot {
	ch := make(chan *Snapshot, 1)
	r.mu.Lock()
	r.subs = append(r.subs, ch)
	r.mu.Unlock()
	return ch
}

// Unsubscribe releases a channel returned by Subscribe.
func (r *Runner) Unsubscribe(ch <-chan *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, sub := range r.subs {
		if sub == ch {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return
		}
	}
}

func (r *Runner) launchPass(ctx context.Context) {
	r.mu.Lock()
	if r.cancelPass != nil {
		r.cancelPass()
	}
	r.gen++
	myGen := r.gen
	passCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	r.cancelPass = cancel
	r.mu.Unlock()

	go func() {
		defer cancel()
		snap := r.rec.Reconcile(passCtx, r.now())
		r.publish(myGen, snap)
	}()
}

func (r *Runner) publish(gen uint64, snap *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		// A newer pass superseded this one.
		return
	}
	r.latest = snap
	for _, ch := range r.subs {
		select {
		case ch <- snap:
		default:
			// Drop the stale value so the fresh one fits.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (r *Runner) cancelInFlight() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelPass != nil {
		r.cancelPass()
		r.cancelPass = nil
	}
}
