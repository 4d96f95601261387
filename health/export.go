package health

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/reqprof/observe"
	"github.com/jonwraymond/reqprof/observe/exporters"
)

// ExportSource is the view of the export driver the checker needs.
// *observe.Driver implements it.
type ExportSource interface {
	LastResult() (exporters.Result, bool)
	Stats() observe.DriverStats
	Interval() time.Duration
}

// ExportCheckerConfig configures ExportChecker.
type ExportCheckerConfig struct {
	// StaleAfter is how many intervals may pass without an export before
	// the checker reports degraded. Default: 3
	StaleAfter int

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// ExportChecker reports the state of the periodic metrics export: unhealthy
// when the latest export failed, degraded when exports stall or ticks were
// skipped since the previous check.
type ExportChecker struct {
	src        ExportSource
	staleAfter int
	now        func() time.Time

	lastSkipped atomic.Uint64
}

// NewExportChecker creates a checker over src.
func NewExportChecker(src ExportSource, cfg ExportCheckerConfig) *ExportChecker {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 3
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &ExportChecker{src: src, staleAfter: cfg.StaleAfter, now: cfg.Clock}
}

// Name returns the name of this checker.
func (c *ExportChecker) Name() string {
	return "metrics-export"
}

// Check performs the export health check.
func (c *ExportChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	stats := c.src.Stats()
	details := map[string]any{
		"exports":  stats.Exports,
		"failures": stats.Failures,
		"skipped":  stats.Skipped,
	}
	if !stats.LastExport.IsZero() {
		details["last_export"] = stats.LastExport.UTC().Format(time.RFC3339Nano)
	}

	last, ok := c.src.LastResult()
	if !ok {
		return Healthy("no export yet").WithDetails(details)
	}
	if !last.OK() {
		return Unhealthy(fmt.Sprintf("last export failed: %v", last.Err), ErrExportFailed).
			WithDetails(details)
	}

	maxAge := time.Duration(c.staleAfter) * c.src.Interval()
	if age := c.now().Sub(stats.LastExport); age > maxAge {
		return Degraded(fmt.Sprintf("no export for %s", age.Round(time.Millisecond))).
			WithDetails(details)
	}

	// Skipped ticks are counted since the previous check.
	skipped := stats.Skipped - c.lastSkipped.Swap(stats.Skipped)
	if skipped > 0 {
		return Degraded(fmt.Sprintf("%d export ticks skipped: exports are slower than the interval", skipped)).
			WithDetails(details)
	}

	return Healthy("exporting").WithDetails(details)
}
