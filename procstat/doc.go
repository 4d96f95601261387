// Package procstat samples process-wide resource usage.
//
// Every value here is cumulative for the whole process since it started,
// not attributable to any single request. Request stages that record these
// values are therefore a coarse approximation of what a request cost.
//
// CPU time, filesystem operation counts and context switches come from
// getrusage(2) on Unix platforms; elsewhere ReadUsage returns
// ErrUnsupportedPlatform. Heap usage comes from the Go runtime and is
// available everywhere.
package procstat
