package health

import (
	"context"
	"fmt"
	"os"
)

// SinkChecker verifies a telemetry log can still be appended to. It opens
// the file write-only without writing, the same way each export does.
type SinkChecker struct {
	name string
	path string
}

// NewSinkChecker creates a checker for the log at path.
func NewSinkChecker(name, path string) *SinkChecker {
	return &SinkChecker{name: name, path: path}
}

// Name returns the name of this checker.
func (s *SinkChecker) Name() string {
	return s.name
}

// Check performs the sink health check.
func (s *SinkChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	details := map[string]any{"path": s.path}

	info, err := os.Stat(s.path)
	if err != nil {
		return Unhealthy(fmt.Sprintf("sink missing: %v", err), ErrSinkNotWritable).WithDetails(details)
	}
	if !info.Mode().IsRegular() {
		return Unhealthy("sink is not a regular file", ErrSinkNotWritable).WithDetails(details)
	}
	details["size_bytes"] = info.Size()

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return Unhealthy(fmt.Sprintf("sink not writable: %v", err), ErrSinkNotWritable).WithDetails(details)
	}
	_ = f.Close()

	return Healthy("writable").WithDetails(details)
}
