package timesync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tnicklin/birthday_countdown/clock"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

var _ clock.Countdown = (*Estimator)(nil)

// Logger is a minimal logging interface satisfied by logger.Logger.
type Logger interface {
	DebugW(msg string, keysAndValues ...any)
	InfoW(msg string, keysAndValues ...any)
	WarnW(msg string, keysAndValues ...any)
}

// Store persists the last committed offset. store.SQLiteStore satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
}

// Estimator tracks the offset between the local clock and true time as
// reported by external time sources.
type Estimator struct {
	cfg     Config
	sources []Source
	store   Store
	clock   clockwork.Clock
	logger  Logger
	onSync  SyncFunc

	offset     *atomic.Duration
	lastSync   *atomic.Time
	inProgress *atomic.Bool

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Params holds dependencies for creating an Estimator.
type Params struct {
	Config Config
	// Sources overrides the sources built from Config.
	Sources []Source
	// Store is optional; nil disables persistence.
	Store Store
	// Clock is the local clock. Defaults to the real clock.
	Clock  clockwork.Clock
	Logger Logger
	// OnSync is called after every successful sync.
	OnSync SyncFunc
}

// New creates an Estimator. A previously persisted offset is loaded before
// New returns, so Now is corrected before the first network round trip.
func New(p Params) *Estimator {
	p.Config.Defaults()

	sources := p.Sources
	if sources == nil {
		sources = BuildSources(p.Config)
	}
	clk := p.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	log := p.Logger
	if log == nil {
		log = nopLogger{}
	}

	e := &Estimator{
		cfg:        p.Config,
		sources:    sources,
		store:      p.Store,
		clock:      clk,
		logger:     log,
		onSync:     p.OnSync,
		offset:     atomic.NewDuration(0),
		lastSync:   atomic.NewTime(time.Time{}),
		inProgress: atomic.NewBool(false),
	}
	e.restore()
	return e
}

// Now returns the local time adjusted by the current offset.
func (e *Estimator) Now() time.Time {
	return e.clock.Now().Add(e.offset.Load())
}

// Offset returns the current offset (true time minus local time).
func (e *Estimator) Offset() time.Duration {
	return e.offset.Load()
}

// LastSync returns the local time of the last successful sync, or the zero
// time if none has succeeded in this process.
func (e *Estimator) LastSync() time.Time {
	return e.lastSync.Load()
}

// TimeRemaining returns how long until target, never negative.
func (e *Estimator) TimeRemaining(target time.Time) time.Duration {
	return clock.Remaining(e, target)
}

// HasReached reports whether the corrected time is at or past target.
func (e *Estimator) HasReached(target time.Time) bool {
	return clock.Reached(e, target)
}

// Start runs an acquisition immediately in the background and then every
// ResyncInterval until ctx is done or Stop is called. Calls after the
// first are no-ops.
func (e *Estimator) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		e.logger.DebugW("timesync already started")
		return nil
	}
	if len(e.sources) == 0 {
		return ErrNoSources
	}
	e.started = true

	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	go e.run(ctx)
	return nil
}

// Stop cancels the resync schedule and waits for it to exit. An
// acquisition in flight is abandoned; the offset is left as it was.
func (e *Estimator) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (e *Estimator) run(ctx context.Context) {
	defer close(e.done)

	e.Sync(ctx)

	ticker := e.clock.NewTicker(e.cfg.ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.Sync(ctx)
		}
	}
}

// Sync runs one acquisition. If another acquisition is in progress it
// returns StatusSkipped immediately. Failures never escape as panics or
// errors; they are reported through the Result.
func (e *Estimator) Sync(ctx context.Context) Result {
	if !e.inProgress.CompareAndSwap(false, true) {
		e.logger.DebugW("timesync in progress, skipping")
		return Result{Status: StatusSkipped}
	}
	defer e.inProgress.Store(false)

	if len(e.sources) == 0 {
		return Result{Status: StatusFailed, Err: ErrNoSources}
	}

	// One t0 per sequence; failed attempts count towards the round trip.
	t0 := e.clock.Now()

	var errs error
	attempts := 0
	for attempts < e.cfg.SyncAttempts {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}

		src := e.sources[attempts%len(e.sources)]
		attempts++

		offset, receivedAt, err := e.measure(ctx, src, t0)
		if err != nil {
			if errors.Is(err, ErrOffsetTooLarge) {
				e.logger.WarnW("timesync offset rejected",
					"source", src.Name(),
					"attempt", attempts,
					"error", err,
				)
			} else {
				e.logger.WarnW("timesync attempt failed",
					"source", src.Name(),
					"attempt", attempts,
					"error", err,
				)
			}
			errs = multierr.Append(errs, fmt.Errorf("attempt %d (%s): %w", attempts, src.Name(), err))
			continue
		}

		e.commit(ctx, offset, receivedAt)
		e.logger.InfoW("timesync synchronized",
			"source", src.Name(),
			"attempt", attempts,
			"offset_ms", offset.Milliseconds(),
		)

		if e.onSync != nil {
			e.onSync(Event{Offset: offset, SyncTime: receivedAt, Source: src.Name()})
		}
		return Result{
			Status:   StatusSynced,
			Offset:   offset,
			SyncTime: receivedAt,
			Source:   src.Name(),
			Attempts: attempts,
		}
	}

	e.logger.WarnW("timesync exhausted, keeping last offset",
		"attempts", attempts,
		"offset_ms", e.offset.Load().Milliseconds(),
	)
	return Result{Status: StatusFailed, Attempts: attempts, Err: errs}
}

// measure queries one source and returns the candidate offset and the
// local receive time. One-way latency is taken as half the time since t0.
func (e *Estimator) measure(ctx context.Context, src Source, t0 time.Time) (time.Duration, time.Time, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	serverTime, err := src.Fetch(reqCtx)
	if err != nil {
		return 0, time.Time{}, err
	}
	t1 := e.clock.Now()

	latency := t1.Sub(t0) / 2
	offset := serverTime.Add(latency).Sub(t1).Round(time.Millisecond)

	if offset > e.cfg.MaxOffset || offset < -e.cfg.MaxOffset {
		return 0, time.Time{}, fmt.Errorf("%w: %v (max %v)", ErrOffsetTooLarge, offset, e.cfg.MaxOffset)
	}
	return offset, t1, nil
}

func (e *Estimator) commit(ctx context.Context, offset time.Duration, at time.Time) {
	e.offset.Store(offset)
	e.lastSync.Store(at)

	if e.store == nil {
		return
	}
	value := strconv.FormatInt(offset.Milliseconds(), 10)
	if err := e.store.Put(ctx, e.cfg.StorageKey, value); err != nil {
		e.logger.DebugW("timesync persist failed", "key", e.cfg.StorageKey, "error", err)
	}
}

func (e *Estimator) restore() {
	if e.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.RequestTimeout)
	defer cancel()

	value, err := e.store.Get(ctx, e.cfg.StorageKey)
	if err != nil {
		e.logger.DebugW("timesync no persisted offset", "key", e.cfg.StorageKey, "error", err)
		return
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		e.logger.DebugW("timesync ignoring persisted offset", "value", value, "error", err)
		return
	}

	e.offset.Store(time.Duration(ms) * time.Millisecond)
	e.logger.InfoW("timesync restored offset", "offset_ms", ms)
}

type nopLogger struct{}

func (nopLogger) DebugW(_ string, _ ...any) {}
func (nopLogger) InfoW(_ string, _ ...any)  {}
func (nopLogger) WarnW(_ string, _ ...any)  {}
