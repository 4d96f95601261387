// Package exporters provides the telemetry sinks and exporter factories.
//
// The file exporters append line-delimited JSON to a target file. They never
// keep a file handle open between calls: each export opens the file in
// append mode, writes the whole batch in one call and closes it again. An
// empty batch writes nothing.
//
// NewTracingExporter and NewMetricsReader select an exporter by name so
// spans can also go to stdout or an OTLP collector, and cache metrics can be
// mirrored to Prometheus, stdout or OTLP.
package exporters
