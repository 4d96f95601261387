//go:build unix

package procstat

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// getrusage is a variable so tests can force the error path.
var getrusage = unix.Getrusage

// ReadUsage returns the cumulative resource usage of the calling process.
func ReadUsage() (Usage, error) {
	var ru unix.Rusage
	if err := getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return Usage{}, fmt.Errorf("procstat: getrusage RUSAGE_SELF: %w", err)
	}
	return Usage{
		UserCPU:             time.Duration(ru.Utime.Nano()),
		SystemCPU:           time.Duration(ru.Stime.Nano()),
		FSReads:             int64(ru.Inblock),
		FSWrites:            int64(ru.Oublock),
		VoluntarySwitches:   int64(ru.Nvcsw),
		InvoluntarySwitches: int64(ru.Nivcsw),
	}, nil
}
