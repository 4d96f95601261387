package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/reqprof/health"
	"github.com/jonwraymond/reqprof/observe"
)

// serve runs the instrumented site on ln until ctx is done, then shuts the
// server and the telemetry down.
func serve(ctx context.Context, cfg appConfig, ln net.Listener, out io.Writer) error {
	tel, err := observe.New(ctx, cfg.Telemetry)
	if err != nil {
		_ = ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           newMux(cfg, tel),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	_, _ = fmt.Fprintf(out, "Profiler is running on http://%s\n", ln.Addr())
	tel.Logger().Info(ctx, "serving",
		observe.Field{Key: "addr", Value: ln.Addr().String()},
		observe.Field{Key: "root", Value: cfg.Server.Root},
	)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx),
		time.Duration(cfg.Server.ShutdownTimeoutMs)*time.Millisecond)
	defer cancel()

	var errs []error
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		errs = append(errs, serveErr)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}
	return errors.Join(errs...)
}

// newMux mounts the health endpoints, the optional Prometheus scrape
// endpoint and the instrumented site. Only the site goes through the
// instrumentation chain.
func newMux(cfg appConfig, tel *observe.Telemetry) *http.ServeMux {
	mux := http.NewServeMux()

	agg := health.NewAggregator()
	agg.Register(health.NewExportChecker(tel.Driver(), health.ExportCheckerConfig{}))
	agg.Register(health.NewSinkChecker("metrics-sink", cfg.Telemetry.MetricsPath))
	if tr := cfg.Telemetry.Tracing; tr.Enabled && (tr.Exporter == "file" || tr.Exporter == "") {
		agg.Register(health.NewSinkChecker("spans-sink", cfg.Telemetry.SpansPath))
	}
	agg.Register(health.NewHeapChecker(health.HeapCheckerConfig{}))
	health.RegisterHandlers(mux, agg)

	if cfg.Telemetry.Metrics.Bridge == "prometheus" {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	mux.Handle("/", tel.Handler(http.FileServer(http.Dir(cfg.Server.Root))))
	return mux
}
