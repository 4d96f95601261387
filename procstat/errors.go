package procstat

import "errors"

var (
	// ErrUnsupportedPlatform indicates resource usage is not available here.
	ErrUnsupportedPlatform = errors.New("procstat: unsupported platform")

	// ErrHeapUnavailable indicates the runtime did not report heap usage.
	ErrHeapUnavailable = errors.New("procstat: heap metric unavailable")
)
