package procstat

import (
	"fmt"
	"runtime/metrics"
	"time"
)

// BytesPerMB converts bytes to megabytes.
const BytesPerMB = 1024 * 1024

const heapMetric = "/memory/classes/heap/objects:bytes"

// processStart approximates the process start time.
var processStart = time.Now()

// Usage is a snapshot of cumulative process resource counters.
type Usage struct {
	UserCPU             time.Duration
	SystemCPU           time.Duration
	FSReads             int64 // block input operations
	FSWrites            int64 // block output operations
	VoluntarySwitches   int64
	InvoluntarySwitches int64
}

// CPUTime returns user plus system CPU time.
func (u Usage) CPUTime() time.Duration {
	return u.UserCPU + u.SystemCPU
}

// FSOps returns block input plus block output operations.
func (u Usage) FSOps() int64 {
	return u.FSReads + u.FSWrites
}

// CPUPercent returns CPU time as a percentage of one core over uptime.
// A non-positive uptime yields 0.
func CPUPercent(u Usage, uptime time.Duration) float64 {
	if uptime <= 0 {
		return 0
	}
	return float64(u.CPUTime()) / float64(uptime) * 100
}

// Uptime returns the time since the process started.
func Uptime() time.Duration {
	return time.Since(processStart)
}

// HeapBytes returns the bytes occupied by live and not-yet-swept heap
// objects. It avoids runtime.ReadMemStats so it can run on every request.
func HeapBytes() (uint64, error) {
	sample := []metrics.Sample{{Name: heapMetric}}
	metrics.Read(sample)
	if sample[0].Value.Kind() != metrics.KindUint64 {
		return 0, fmt.Errorf("%w: %s", ErrHeapUnavailable, heapMetric)
	}
	return sample[0].Value.Uint64(), nil
}

// Sampler reads process resource counters.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a platform that cannot provide a value returns an error; callers
//   treat that as "no sample".
type Sampler interface {
	Usage() (Usage, error)
	HeapBytes() (uint64, error)
	Uptime() time.Duration
}

type systemSampler struct{}

// System returns the Sampler backed by the operating system and runtime.
func System() Sampler {
	return systemSampler{}
}

func (systemSampler) Usage() (Usage, error)      { return ReadUsage() }
func (systemSampler) HeapBytes() (uint64, error) { return HeapBytes() }
func (systemSampler) Uptime() time.Duration      { return Uptime() }
