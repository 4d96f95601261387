package observe

import "github.com/jonwraymond/reqprof/instrument"

// Instrument names written to the metrics log.
const (
	MetricPageRequests      = "page_requests"
	MetricErrorCount        = "error_count"
	MetricErrorCodeCount    = "error_code_count"
	MetricErrorMessageCount = "error_message_count"
	MetricLatency           = "request_latency_summary"
	MetricThroughput        = "request_throughput"
	MetricMemoryUsage       = "memory_usage"
	MetricCPUUsage          = "cpu_usage"
	MetricCPUTime           = "cpu_time"
	MetricFSOperations      = "fs_operations"
	MetricContextSwitches   = "voluntary_context_switches"
)

// The kind of every instrument is fixed here. Request and error counts are
// true counters. Everything sampled per request, including the cumulative
// process-wide resource counters, is a last-value gauge: recording the
// process total each time yields the same exported value as resetting a
// counter and adding the total.
var (
	pageRequests = instrument.Instrument{
		Name:        MetricPageRequests,
		Description: "Request count",
		Unit:        "times",
		Kind:        instrument.Counter,
	}
	errorCount = instrument.Instrument{
		Name:        MetricErrorCount,
		Description: "Counts total occurrences of errors",
		Unit:        "times",
		Kind:        instrument.Counter,
	}
	errorCodeCount = instrument.Instrument{
		Name:        MetricErrorCodeCount,
		Description: "Counts occurrences of different error codes",
		Unit:        "times",
		Kind:        instrument.Counter,
	}
	errorMessageCount = instrument.Instrument{
		Name:        MetricErrorMessageCount,
		Description: "Counts occurrences of different error messages",
		Unit:        "times",
		Kind:        instrument.Counter,
	}
	requestLatency = instrument.Instrument{
		Name:        MetricLatency,
		Description: "Latency of requests",
		Unit:        "ms",
		Kind:        instrument.Gauge,
	}
	requestThroughput = instrument.Instrument{
		Name:        MetricThroughput,
		Description: "Instantaneous requests per second",
		Unit:        "{request}/s",
		Kind:        instrument.Gauge,
	}
	memoryUsage = instrument.Instrument{
		Name:        MetricMemoryUsage,
		Description: "Process heap in use at request entry",
		Unit:        "MB",
		Kind:        instrument.Gauge,
	}
	cpuUsage = instrument.Instrument{
		Name:        MetricCPUUsage,
		Description: "Process CPU time as a percentage of uptime (process-wide)",
		Unit:        "%",
		Kind:        instrument.Gauge,
	}
	cpuTime = instrument.Instrument{
		Name:        MetricCPUTime,
		Description: "Cumulative process user+system CPU time (process-wide)",
		Unit:        "ms",
		Kind:        instrument.Gauge,
	}
	fsOperations = instrument.Instrument{
		Name:        MetricFSOperations,
		Description: "Cumulative process block I/O operations (process-wide)",
		Unit:        "{operation}",
		Kind:        instrument.Gauge,
	}
	contextSwitches = instrument.Instrument{
		Name:        MetricContextSwitches,
		Description: "Cumulative process voluntary context switches (process-wide)",
		Unit:        "{switch}",
		Kind:        instrument.Gauge,
	}
)

// Instruments returns every instrument the stages may bind, in stage order.
func Instruments() []instrument.Instrument {
	return []instrument.Instrument{
		pageRequests,
		errorCount,
		errorCodeCount,
		errorMessageCount,
		requestLatency,
		requestThroughput,
		memoryUsage,
		cpuUsage,
		cpuTime,
		fsOperations,
		contextSwitches,
	}
}
