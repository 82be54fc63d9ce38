// Package watcher wires a status client to the terminal dashboard and the
// metrics endpoint.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"dashwatch/internal/api"
	"dashwatch/internal/config"
	"dashwatch/internal/metrics"
	"dashwatch/internal/model"
	"dashwatch/internal/poll"
	"dashwatch/internal/render"
	"dashwatch/internal/stream"
)

const shutdownTimeout = 5 * time.Second

// Watcher renders every tick of one status client.
type Watcher struct {
	cfg      config.Config
	logger   *slog.Logger
	terminal *render.Terminal
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	http     *http.Client
}

// New validates cfg and prepares a watcher writing its table to out.
func New(cfg config.Config, logger *slog.Logger, out io.Writer) (*Watcher, error) {
	config.ApplyDefaults(&cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	reg := prometheus.NewRegistry()
	return &Watcher{
		cfg:      cfg,
		logger:   logger,
		terminal: render.NewTerminal(out),
		registry: reg,
		metrics:  metrics.New(reg),
		http:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Run starts the watcher loop and blocks until ctx is done.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, out io.Writer) error {
	w, err := New(cfg, logger, out)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// Regions exposes the rendered region texts.
func (w *Watcher) Regions() *render.Regions {
	return w.terminal.Regions()
}

// Registry is the Prometheus registry the watcher reports to.
func (w *Watcher) Registry() *prometheus.Registry {
	return w.registry
}

// Run runs the configured client, and the metrics server when enabled,
// until ctx is done. Cancellation is not an error.
func (w *Watcher) Run(ctx context.Context) error {
	key := w.dashboardKey(ctx)

	g, gctx := errgroup.WithContext(ctx)
	if w.cfg.Metrics.Listen != "" {
		srv := &http.Server{
			Addr:              w.cfg.Metrics.Listen,
			Handler:           metrics.Handler(w.registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			w.logger.Info("metrics listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	switch w.cfg.Mode {
	case config.ModePoll:
		g.Go(func() error { return w.runPoll(gctx, key) })
	default:
		g.Go(func() error { return w.runStream(gctx, key) })
	}

	err := g.Wait()
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

// Once performs a single poll cycle and prints the result.
func (w *Watcher) Once(ctx context.Context) error {
	client, err := w.pollClient(w.dashboardKey(ctx))
	if err != nil {
		return err
	}
	snap, err := client.Status(ctx)
	if err != nil {
		w.update(nil)
		return err
	}
	w.update(&snap)
	return nil
}

func (w *Watcher) runStream(ctx context.Context, key string) error {
	url, err := api.StreamURL(w.cfg.Dashboard.URL, w.cfg.Stream.Path)
	if err != nil {
		return err
	}
	variant, err := api.ParseVariant(w.cfg.Stream.Payload)
	if err != nil {
		return err
	}
	header := http.Header{}
	if key != "" {
		header.Set(api.DashboardKeyHeader, key)
	}

	client, err := stream.New(stream.Config{
		URL:            url,
		ReconnectDelay: w.cfg.Stream.ReconnectDelay(),
		Variant:        variant,
		Header:         header,
		OnFailure:      func(error) { w.update(nil) },
		Logger:         w.logger.With(slog.String("component", "stream")),
		Observer:       w.metrics,
	}, stream.NewWebsocketDialer())
	if err != nil {
		return err
	}
	return client.Run(ctx, func(snap model.StatusSnapshot) {
		w.update(&snap)
	})
}

func (w *Watcher) runPoll(ctx context.Context, key string) error {
	client, err := w.pollClient(key)
	if err != nil {
		return err
	}
	p, err := poll.New(poll.Config{
		Interval: w.cfg.Poll.Interval(),
		Logger:   w.logger.With(slog.String("component", "poll")),
		Observer: w.metrics,
	}, client)
	if err != nil {
		return err
	}
	return p.Run(ctx, w.update)
}

func (w *Watcher) pollClient(key string) (*api.Client, error) {
	base, err := api.BaseURL(w.cfg.Dashboard.URL)
	if err != nil {
		return nil, err
	}
	variant, err := api.ParseVariant(w.cfg.Poll.Payload)
	if err != nil {
		return nil, err
	}
	return api.NewClient(base,
		api.WithDashboardKey(key),
		api.WithStatusPath(w.cfg.Poll.Path),
		api.WithVariant(variant),
		api.WithHTTPClient(w.http),
	), nil
}

func (w *Watcher) update(snap *model.StatusSnapshot) {
	w.metrics.ObserveSnapshot(snap)
	if err := w.terminal.Update(snap); err != nil {
		w.logger.Warn("render failed", slog.Any("error", err))
	}
}

// dashboardKey returns the configured key, or the one published on the
// dashboard page when key_from_page is set. Discovery failures are logged
// and the watcher continues without a key.
func (w *Watcher) dashboardKey(ctx context.Context) string {
	if w.cfg.Dashboard.Key != "" || !w.cfg.Dashboard.KeyFromPage {
		return w.cfg.Dashboard.Key
	}
	key, err := api.DiscoverDashboardKey(ctx, w.http, normalizeBaseURL(w.cfg.Dashboard.URL))
	if err != nil {
		w.logger.Warn("dashboard key discovery failed", slog.Any("error", err))
		return ""
	}
	if key == "" {
		w.logger.Debug("dashboard page has no key")
	}
	return key
}

func normalizeBaseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	return "http://" + addr
}
