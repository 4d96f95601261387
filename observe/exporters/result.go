package exporters

// ResultCode is the outcome of one export call.
type ResultCode int

const (
	// Success means the batch was written (or there was nothing to write).
	Success ResultCode = iota
	// Failed means the batch was not written.
	Failed
)

// String returns the string representation of the code.
func (c ResultCode) String() string {
	switch c {
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is returned once per export call. Failed results are never
// retried by the exporters.
type Result struct {
	Code ResultCode
	Err  error
}

// Succeeded returns a success result.
func Succeeded() Result {
	return Result{Code: Success}
}

// Failure returns a failed result carrying err.
func Failure(err error) Result {
	return Result{Code: Failed, Err: err}
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.Code == Success
}
