// Package poll fetches status snapshots on a fixed cadence.
package poll

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"dashwatch/internal/api"
	"dashwatch/internal/model"
)

// DefaultInterval is the polling cadence.
const DefaultInterval = 5 * time.Second

// Tick results reported to the Observer.
const (
	ResultOK        = "ok"
	ResultNotReady  = "not_ready"
	ResultHTTPError = "http_error"
	ResultError     = "error"
)

// Fetcher performs one request/response cycle.
type Fetcher interface {
	Status(ctx context.Context) (model.StatusSnapshot, error)
}

// Handler receives each tick's snapshot; nil means the tick failed.
type Handler func(*model.StatusSnapshot)

// Observer is notified once per completed tick.
type Observer interface {
	TickCompleted(result string)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	Interval time.Duration

	Logger   *slog.Logger
	Clock    clock.WithTicker
	Observer Observer
}

// Poller is a clock-driven status reader. Ticks never overlap.
type Poller struct {
	cfg      Config
	fetcher  Fetcher
	logger   *slog.Logger
	clock    clock.WithTicker
	observer Observer

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a poller with immutable config.
func New(cfg Config, fetcher Fetcher) (*Poller, error) {
	if fetcher == nil {
		return nil, errors.New("poll: fetcher required")
	}
	if cfg.Interval < 0 {
		return nil, errors.New("poll: interval must be > 0")
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}

	p := &Poller{
		cfg:      cfg,
		fetcher:  fetcher,
		logger:   cfg.Logger,
		clock:    cfg.Clock,
		observer: cfg.Observer,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.clock == nil {
		p.clock = clock.RealClock{}
	}
	if p.observer == nil {
		p.observer = nopObserver{}
	}
	return p, nil
}

// Start runs one tick immediately and then one every interval, in the
// background, until Close.
func (p *Poller) Start(onSnapshot Handler) {
	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		_ = p.Run(ctx, onSnapshot)
	}()
}

// Close stops the timer. No handler call happens after Close returns.
func (p *Poller) Close() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// Run is the blocking form of Start.
func (p *Poller) Run(ctx context.Context, onSnapshot Handler) error {
	ticker := p.clock.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.PollOnce(ctx, onSnapshot)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			p.PollOnce(ctx, onSnapshot)
		}
	}
}

// PollOnce performs exactly one fetch cycle. Every failure is logged and
// reported to the handler as nil; nothing is returned to the caller.
func (p *Poller) PollOnce(ctx context.Context, onSnapshot Handler) {
	snap, err := p.fetcher.Status(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		result := p.report(err)
		p.observer.TickCompleted(result)
		onSnapshot(nil)
		return
	}
	p.observer.TickCompleted(ResultOK)
	onSnapshot(&snap)
}

func (p *Poller) report(err error) string {
	var statusErr *api.StatusError
	switch {
	case errors.Is(err, api.ErrNotReady):
		p.logger.Debug("status tick skipped", slog.String("reason", ResultNotReady))
		return ResultNotReady
	case errors.As(err, &statusErr):
		p.logger.Error("failed to fetch stats", slog.Int("status_code", statusErr.Code), slog.Any("error", err))
		return ResultHTTPError
	default:
		p.logger.Error("failed to fetch stats", slog.Any("error", err))
		return ResultError
	}
}

type nopObserver struct{}

func (nopObserver) TickCompleted(string) {}
