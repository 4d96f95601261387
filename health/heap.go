package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/reqprof/procstat"
)

// HeapCheckerConfig configures the heap health checker.
type HeapCheckerConfig struct {
	// WarningMB is the heap size that triggers degraded status.
	// Default: 512
	WarningMB float64

	// CriticalMB is the heap size that triggers unhealthy status.
	// Default: 1024
	CriticalMB float64

	// Sampler defaults to procstat.System().
	Sampler procstat.Sampler
}

// HeapChecker checks the process heap against fixed thresholds. The bound
// instrument cache never evicts, so a heap that keeps growing usually means
// route labels are unbounded.
type HeapChecker struct {
	config HeapCheckerConfig
}

// NewHeapChecker creates a new heap health checker.
func NewHeapChecker(config HeapCheckerConfig) *HeapChecker {
	if config.WarningMB <= 0 {
		config.WarningMB = 512
	}
	if config.CriticalMB <= 0 {
		config.CriticalMB = 1024
	}
	if config.CriticalMB < config.WarningMB {
		config.CriticalMB = config.WarningMB
	}
	if config.Sampler == nil {
		config.Sampler = procstat.System()
	}
	return &HeapChecker{config: config}
}

// Name returns the name of this checker.
func (h *HeapChecker) Name() string {
	return "heap"
}

// Check performs the heap health check.
func (h *HeapChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	heap, err := h.config.Sampler.HeapBytes()
	if err != nil {
		// Sampling failures do not fail the check.
		return Healthy("heap size unavailable").WithDetails(map[string]any{"error": err.Error()})
	}

	mb := float64(heap) / procstat.BytesPerMB
	details := map[string]any{
		"heap_bytes":  heap,
		"heap_mb":     mb,
		"warning_mb":  h.config.WarningMB,
		"critical_mb": h.config.CriticalMB,
	}

	switch {
	case mb >= h.config.CriticalMB:
		return Unhealthy(fmt.Sprintf("heap critical: %.1f MB", mb), ErrCheckFailed).WithDetails(details)
	case mb >= h.config.WarningMB:
		return Degraded(fmt.Sprintf("heap high: %.1f MB", mb)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("heap normal: %.1f MB", mb)).WithDetails(details)
	}
}
