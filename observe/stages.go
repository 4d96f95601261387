package observe

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jonwraymond/reqprof/instrument"
	"github.com/jonwraymond/reqprof/procstat"
)

// Stage names accepted in Config.Stages.
const (
	StageRequestCounter  = "request-counter"
	StageErrorCounter    = "error-counter"
	StageLatency         = "latency"
	StageSpanTree        = "span-tree"
	StageMemory          = "memory"
	StageThroughput      = "throughput"
	StageCPUUsage        = "cpu-usage"
	StageCPUTime         = "cpu-time"
	StageFSOps           = "fs-ops"
	StageContextSwitches = "context-switches"
)

// DefaultStages returns the stage order used when none is configured.
func DefaultStages() []string {
	return []string{
		StageRequestCounter,
		StageErrorCounter,
		StageLatency,
		StageSpanTree,
		StageMemory,
		StageThroughput,
		StageCPUUsage,
		StageCPUTime,
		StageFSOps,
		StageContextSwitches,
	}
}

// StageNames returns every known stage name.
func StageNames() []string {
	return DefaultStages()
}

// InstrumentationConfig configures the metric stages.
type InstrumentationConfig struct {
	// ExcludedRoutes are paths never counted as errors.
	ExcludedRoutes []string
	// Sampler reads process resources. Defaults to procstat.System().
	Sampler procstat.Sampler
	// Clock defaults to time.Now. Its readings must carry a monotonic
	// component for latency to be immune to wall clock steps.
	Clock func() time.Time
	// Logger receives sampling failures at debug level.
	Logger Logger
}

// Instrumentation builds the metric stages over one cache.
//
// Route labels use the request path as-is, so the cache grows with the
// number of distinct paths served. Put the chain behind a bounded route
// set.
type Instrumentation struct {
	cache    *instrument.Cache
	excluded map[string]struct{}
	sampler  procstat.Sampler
	now      func() time.Time
	logger   Logger
}

// NewInstrumentation creates the stage constructors for cache.
func NewInstrumentation(cache *instrument.Cache, cfg InstrumentationConfig) *Instrumentation {
	in := &Instrumentation{
		cache:    cache,
		excluded: make(map[string]struct{}, len(cfg.ExcludedRoutes)),
		sampler:  cfg.Sampler,
		now:      cfg.Clock,
		logger:   cfg.Logger,
	}
	for _, r := range cfg.ExcludedRoutes {
		in.excluded[r] = struct{}{}
	}
	if in.sampler == nil {
		in.sampler = procstat.System()
	}
	if in.now == nil {
		in.now = time.Now
	}
	if in.logger == nil {
		in.logger = NopLogger()
	}
	return in
}

// Cache returns the cache the stages write to.
func (in *Instrumentation) Cache() *instrument.Cache {
	return in.cache
}

// Excluded reports whether route is ignored by the error counter.
func (in *Instrumentation) Excluded(route string) bool {
	_, ok := in.excluded[route]
	return ok
}

// Stage returns the metric stage registered under name. The span tree is
// not a metric stage; see SpanTree.
func (in *Instrumentation) Stage(name string) (Stage, error) {
	switch name {
	case StageRequestCounter:
		return in.RequestCounter(), nil
	case StageErrorCounter:
		return in.ErrorCounter(), nil
	case StageLatency:
		return in.LatencyRecorder(), nil
	case StageMemory:
		return in.MemoryUsageRecorder(), nil
	case StageThroughput:
		return in.ThroughputRecorder(), nil
	case StageCPUUsage:
		return in.CPUUsageRecorder(), nil
	case StageCPUTime:
		return in.CPUTimeRecorder(), nil
	case StageFSOps:
		return in.FSOpsRecorder(), nil
	case StageContextSwitches:
		return in.ContextSwitchRecorder(), nil
	default:
		return Stage{}, fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
}

// Stages resolves names in order.
func (in *Instrumentation) Stages(names []string) ([]Stage, error) {
	stages := make([]Stage, 0, len(names))
	for _, name := range names {
		st, err := in.Stage(name)
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return stages, nil
}

// RequestCounter adds 1 to page_requests for the route at entry.
func (in *Instrumentation) RequestCounter() Stage {
	return Stage{Name: StageRequestCounter, Run: func(ex *Exchange, proceed func()) {
		in.cache.GetOrCreate(pageRequests, instrument.Route(ex.Path)).Add(1)
		proceed()
	}}
}

// ErrorCounter counts finished responses with status >= 400 on routes
// that are not excluded: once in total, once by status code and once by
// route and message.
func (in *Instrumentation) ErrorCounter() Stage {
	return Stage{Name: StageErrorCounter, Run: func(ex *Exchange, proceed func()) {
		ex.OnFinish(func(ex *Exchange) {
			status := ex.Status()
			if status < http.StatusBadRequest || in.Excluded(ex.Path) {
				return
			}
			in.cache.GetOrCreate(errorCount, instrument.Labels()).Add(1)
			in.cache.Bind(errorCodeCount,
				instrument.ErrorCodeKey.String(strconv.Itoa(status)),
			).Add(1)
			in.cache.Bind(errorMessageCount,
				instrument.RouteKey.String(ex.Path),
				instrument.ErrorMessageKey.String(ErrorMessage(ex.Path, status)),
			).Add(1)
		})
		proceed()
	}}
}

// LatencyRecorder records the milliseconds between entry and finish.
func (in *Instrumentation) LatencyRecorder() Stage {
	return Stage{Name: StageLatency, Run: func(ex *Exchange, proceed func()) {
		start := in.now()
		ex.OnFinish(func(ex *Exchange) {
			in.cache.GetOrCreate(requestLatency, instrument.Route(ex.Path)).
				Record(LatencyMillis(in.now().Sub(start)))
		})
		proceed()
	}}
}

// ThroughputRecorder records the reciprocal of the request's elapsed
// seconds as requests per second.
func (in *Instrumentation) ThroughputRecorder() Stage {
	return Stage{Name: StageThroughput, Run: func(ex *Exchange, proceed func()) {
		start := in.now()
		ex.OnFinish(func(ex *Exchange) {
			in.cache.GetOrCreate(requestThroughput, instrument.Route(ex.Path)).
				Record(Throughput(in.now().Sub(start)))
		})
		proceed()
	}}
}

// MemoryUsageRecorder records process heap MB at entry.
func (in *Instrumentation) MemoryUsageRecorder() Stage {
	return Stage{Name: StageMemory, Run: func(ex *Exchange, proceed func()) {
		in.sample(ex, StageMemory, func() error {
			heap, err := in.sampler.HeapBytes()
			if err != nil {
				return err
			}
			in.cache.GetOrCreate(memoryUsage, instrument.Route(ex.Path)).
				Record(float64(heap) / procstat.BytesPerMB)
			return nil
		})
		proceed()
	}}
}

// The remaining recorders sample process-wide cumulative counters at
// request entry. The value is the whole process total, not the share used
// by the request.

// CPUUsageRecorder records process CPU time as a percentage of uptime.
func (in *Instrumentation) CPUUsageRecorder() Stage {
	return in.usageStage(StageCPUUsage, cpuUsage, func(u procstat.Usage) float64 {
		return procstat.CPUPercent(u, in.sampler.Uptime())
	})
}

// CPUTimeRecorder records process user+system CPU milliseconds.
func (in *Instrumentation) CPUTimeRecorder() Stage {
	return in.usageStage(StageCPUTime, cpuTime, func(u procstat.Usage) float64 {
		return float64(u.CPUTime()) / float64(time.Millisecond)
	})
}

// FSOpsRecorder records process block input plus output operations.
func (in *Instrumentation) FSOpsRecorder() Stage {
	return in.usageStage(StageFSOps, fsOperations, func(u procstat.Usage) float64 {
		return float64(u.FSOps())
	})
}

// ContextSwitchRecorder records process voluntary context switches.
func (in *Instrumentation) ContextSwitchRecorder() Stage {
	return in.usageStage(StageContextSwitches, contextSwitches, func(u procstat.Usage) float64 {
		return float64(u.VoluntarySwitches)
	})
}

func (in *Instrumentation) usageStage(name string, inst instrument.Instrument, value func(procstat.Usage) float64) Stage {
	return Stage{Name: name, Run: func(ex *Exchange, proceed func()) {
		in.sample(ex, name, func() error {
			u, err := in.sampler.Usage()
			if err != nil {
				return err
			}
			in.cache.GetOrCreate(inst, instrument.Route(ex.Path)).Record(value(u))
			return nil
		})
		proceed()
	}}
}

// sample runs fn and turns a failure into a no-op for this request.
func (in *Instrumentation) sample(ex *Exchange, stage string, fn func() error) {
	if err := fn(); err != nil {
		in.logger.Debug(ex.Context(), "sample skipped",
			Field{Key: "stage", Value: stage},
			Field{Key: "route", Value: ex.Path},
			Field{Key: "error", Value: err},
		)
	}
}

// LatencyMillis converts d to milliseconds, clamping negative values to 0.
func LatencyMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

// Throughput returns 1/seconds(d). A non-positive duration yields 0.
func Throughput(d time.Duration) float64 {
	secs := d.Seconds()
	if secs <= 0 {
		return 0
	}
	return 1 / secs
}

// ErrorMessage returns the error_message label for a route and status.
func ErrorMessage(route string, status int) string {
	text := http.StatusText(status)
	if text == "" {
		text = "Unknown error"
	}
	return route + ": " + text
}
