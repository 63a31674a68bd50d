package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// DefaultSyncInterval is used when SyncerConfig.Interval is not positive.
const DefaultSyncInterval = 10 * time.Second

const syncFlightKey = "sync"

// SyncerConfig configures a Syncer.
type SyncerConfig struct {
	// Store receives merged remote quotes. Required.
	Store *QuoteStore

	// Remote is the collection to reconcile with. Required.
	Remote ports.RemoteQuotes

	// Interval between cycles in Run.
	Interval time.Duration

	// ServerCategory labels remote quotes; the latest quote outside it is posted.
	ServerCategory string

	// PostLocal enables posting the latest local quote after each merge.
	PostLocal bool

	// Metrics is optional.
	Metrics *telemetry.SyncMetrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// SyncResult describes one finished cycle.
type SyncResult struct {
	Fetched int
	Added   int
	Posted  bool
	PostErr error
}

// SyncStatus is the last user-facing sync status line.
type SyncStatus struct {
	Message string    `json:"message"`
	OK      bool      `json:"ok"`
	At      time.Time `json:"at"`
	Added   int       `json:"added"`
}

// Syncer periodically merges the remote collection into the store.
type Syncer struct {
	cfg    SyncerConfig
	logger *slog.Logger
	flight singleflight.Group
	cycles atomic.Uint64

	// waiters counts callers inside SyncOnce. The cycle context lives until
	// the last of them leaves.
	waitMu      sync.Mutex
	waiters     int
	cycleCtx    context.Context //nolint:containedctx // shared by every waiter of one cycle
	cancelCycle context.CancelFunc

	mu        sync.RWMutex
	status    SyncStatus
	listeners []func(SyncStatus)
}

// NewSyncer creates a Syncer. Panics without a store or remote.
func NewSyncer(cfg SyncerConfig) *Syncer {
	if cfg.Store == nil || cfg.Remote == nil {
		panic("Syncer: Store and Remote are required")
	}

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSyncInterval
	}

	if cfg.ServerCategory == "" {
		cfg.ServerCategory = domain.ServerCategory
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Syncer{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app.Syncer")),
		status: SyncStatus{Message: "Not synced yet."},
	}
}

// OnStatus registers fn to receive every new status.
func (s *Syncer) OnStatus(fn func(SyncStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, fn)
}

// Status returns the last recorded status.
func (s *Syncer) Status() SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status
}

func (s *Syncer) setStatus(status SyncStatus) {
	s.mu.Lock()
	s.status = status
	listeners := append([]func(SyncStatus){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(status)
	}
}

// Run syncs once immediately and then every interval until ctx is cancelled.
// Cycle failures are recorded as status and never stop the loop.
func (s *Syncer) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "sync loop started", slog.Duration("interval", s.cfg.Interval))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.SyncOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "sync cycle failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "sync loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// SyncOnce runs one cycle. Concurrent callers share the in-flight cycle,
// which keeps running until every caller has returned, so one caller giving
// up never fails the cycle for the others. SyncOnce itself returns as soon as
// ctx is done.
// The returned error reports a failed fetch or merge; a failed post is
// reported in SyncResult.PostErr and the status line only.
func (s *Syncer) SyncOnce(ctx context.Context) (SyncResult, error) {
	cycleCtx := s.join(ctx)
	defer s.leave()

	led := false

	ch := s.flight.DoChan(syncFlightKey, func() (any, error) {
		led = true
		return s.cycle(cycleCtx)
	})

	select {
	case <-ctx.Done():
		return SyncResult{}, ctx.Err()
	case res := <-ch:
		if res.Shared && !led {
			s.cfg.Metrics.RecordRun(ctx, telemetry.SyncOutcomeShared, 0, 0)
		}

		result, _ := res.Val.(SyncResult)

		return result, res.Err
	}
}

// join registers a waiter and returns the context shared by the current
// cycle. The first waiter's values (trace, logger) carry over; its
// cancellation does not.
func (s *Syncer) join(ctx context.Context) context.Context {
	s.waitMu.Lock()
	defer s.waitMu.Unlock()

	if s.waiters == 0 {
		s.cycleCtx, s.cancelCycle = context.WithCancel(context.WithoutCancel(ctx))
	}

	s.waiters++

	return s.cycleCtx
}

// leave drops a waiter. The last one out cancels the cycle and forgets the
// flight so the next caller starts a fresh one.
func (s *Syncer) leave() {
	s.waitMu.Lock()
	defer s.waitMu.Unlock()

	s.waiters--
	if s.waiters > 0 {
		return
	}

	s.cancelCycle()
	s.flight.Forget(syncFlightKey)
	s.cycleCtx, s.cancelCycle = nil, nil
}

func (s *Syncer) cycle(ctx context.Context) (SyncResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "sync.cycle", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	// Downstream calls log through ctx, so every record of this cycle
	// carries its number.
	logger := logging.FromContextOr(ctx, s.logger).With(slog.Uint64(logging.KeySyncCycle, s.cycles.Add(1)))
	ctx = logging.WithContext(ctx, logger)
	start := s.cfg.Now()

	var result SyncResult

	// The status line shows the cause; the returned error carries the step.
	fail := func(step string, cause error) (SyncResult, error) {
		err := fmt.Errorf("%s: %w", step, cause)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.cfg.Metrics.RecordRun(ctx, telemetry.SyncOutcomeFailed, 0, s.cfg.Now().Sub(start).Seconds())
		s.setStatus(SyncStatus{
			Message: "Sync failed: " + cause.Error(),
			At:      s.cfg.Now(),
		})

		return result, err
	}

	remote, err := s.cfg.Remote.FetchQuotes(ctx)
	if err != nil {
		return fail("fetching remote quotes", err)
	}

	result.Fetched = len(remote)

	added, err := s.cfg.Store.Merge(ctx, remote)
	if err != nil {
		return fail("merging remote quotes", err)
	}

	result.Added = added

	status := SyncStatus{OK: true, Added: added}
	outcome := telemetry.SyncOutcomeUpToDate

	if added > 0 {
		status.Message = fmt.Sprintf("Quotes synced with server! %d new quote(s) added.", added)
		outcome = telemetry.SyncOutcomeUpdated
	} else {
		status.Message = "Quotes are up to date with the server."
	}

	if s.cfg.PostLocal {
		if q, ok := s.cfg.Store.LatestLocal(ctx, s.cfg.ServerCategory); ok {
			if err := s.cfg.Remote.PostQuote(ctx, q); err != nil {
				result.PostErr = err
				s.cfg.Metrics.RecordPostFailure(ctx)
				status.Message = "Failed to post quote to server: " + err.Error()
				status.OK = false

				logger.WarnContext(ctx, "posting local quote failed", slog.Any("error", err))
			} else {
				result.Posted = true
			}
		}
	}

	span.SetAttributes(
		attribute.Int("sync.fetched", result.Fetched),
		attribute.Int("sync.added", result.Added),
		attribute.Bool("sync.posted", result.Posted),
	)

	s.cfg.Metrics.RecordRun(ctx, outcome, added, s.cfg.Now().Sub(start).Seconds())

	status.At = s.cfg.Now()
	s.setStatus(status)

	logger.InfoContext(ctx, "sync cycle finished",
		slog.Int("fetched", result.Fetched),
		slog.Int("added", result.Added),
		slog.Bool("posted", result.Posted),
	)

	return result, nil
}
