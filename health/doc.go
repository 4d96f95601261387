// Package health reports whether the telemetry pipeline is doing its job.
//
// A Checker reports Healthy, Degraded or Unhealthy for one component. The
// package ships checkers for the periodic metrics export (ExportChecker),
// the append-only log files (SinkChecker) and the process heap
// (HeapChecker). An Aggregator runs them together and returns the reports
// in registration order.
//
// # HTTP Endpoints
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewExportChecker(tel.Driver(), health.ExportCheckerConfig{}))
//	agg.Register(health.NewSinkChecker("metrics-sink", cfg.MetricsPath))
//	health.RegisterHandlers(mux, agg)
//
// This serves /healthz (liveness), /readyz (503 when any check is
// unhealthy) and /health (detailed JSON).
package health
