package observe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/felixge/httpsnoop"
)

// StageFunc is one step of the instrumentation chain. It must call proceed
// at most once; the chain calls it on the stage's behalf if the stage
// returns or panics without doing so.
type StageFunc func(ex *Exchange, proceed func())

// Stage is a named StageFunc.
type Stage struct {
	Name string
	Run  StageFunc
}

// Exchange is the request/response pair seen by the stages.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Lifecycle: Finish fires the registered observers exactly once, in
//   registration order; observers registered after that are ignored.
type Exchange struct {
	Method string
	Path   string
	URL    string

	req    *http.Request
	logger Logger

	mu        sync.Mutex
	status    int
	finished  bool
	observers []func(*Exchange)
}

// NewExchange creates the exchange for r.
func NewExchange(r *http.Request, logger Logger) *Exchange {
	if logger == nil {
		logger = NopLogger()
	}
	return &Exchange{
		Method: r.Method,
		Path:   r.URL.Path,
		URL:    r.URL.String(),
		req:    r,
		logger: logger,
	}
}

// Request returns the underlying request.
func (ex *Exchange) Request() *http.Request {
	return ex.req
}

// Context returns the request context.
func (ex *Exchange) Context() context.Context {
	return ex.req.Context()
}

// Status returns the response status, or 0 before a status is known.
func (ex *Exchange) Status() int {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.status
}

func (ex *Exchange) setStatus(code int) {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	if ex.status == 0 && !ex.finished {
		ex.status = code
	}
}

// OnFinish registers fn to run when the response finishes. It reports
// false when the exchange already finished and fn was dropped.
func (ex *Exchange) OnFinish(fn func(*Exchange)) bool {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	if ex.finished {
		return false
	}
	ex.observers = append(ex.observers, fn)
	return true
}

// Finished reports whether Finish has run.
func (ex *Exchange) Finished() bool {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.finished
}

// Finish fixes the final status and fires the observers. Only the first
// call has an effect; it reports whether this call was that one. A zero
// status keeps a status already captured, else means 200.
func (ex *Exchange) Finish(status int) bool {
	ex.mu.Lock()
	if ex.finished {
		ex.mu.Unlock()
		return false
	}
	ex.finished = true
	if status != 0 {
		ex.status = status
	}
	if ex.status == 0 {
		ex.status = http.StatusOK
	}
	observers := ex.observers
	ex.observers = nil
	ex.mu.Unlock()

	for _, fn := range observers {
		ex.notify(fn)
	}
	return true
}

func (ex *Exchange) notify(fn func(*Exchange)) {
	defer func() {
		if r := recover(); r != nil {
			ex.logger.Warn(ex.Context(), "finish observer failed",
				Field{Key: "route", Value: ex.Path},
				Field{Key: "panic", Value: fmt.Sprint(r)},
			)
		}
	}()
	fn(ex)
}

// Chain runs stages in registration order in front of a handler.
//
// Contract:
// - Concurrency: Run and Wrap are safe for concurrent use. Use may be
//   called concurrently but only affects requests that start afterwards.
// - Errors: a failing stage is logged and skipped; the request always
//   reaches the handler.
type Chain struct {
	logger Logger

	mu     sync.RWMutex
	stages []Stage
}

// NewChain creates a chain of stages.
func NewChain(logger Logger, stages ...Stage) *Chain {
	if logger == nil {
		logger = NopLogger()
	}
	return &Chain{logger: logger, stages: stages}
}

// Use appends a stage.
func (c *Chain) Use(st Stage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages = append(c.stages, st)
}

// Names returns the stage names in run order.
func (c *Chain) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.stages))
	for i, st := range c.stages {
		names[i] = st.Name
	}
	return names
}

func (c *Chain) snapshot() []Stage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Stage(nil), c.stages...)
}

// downstreamPanic carries a panic from the terminal handler through the
// stage frames so that stage recovery does not swallow it.
type downstreamPanic struct {
	value any
}

// Run runs every stage for ex, then final. A panic raised by final is
// re-raised to the caller unchanged.
func (c *Chain) Run(ex *Exchange, final func()) {
	defer func() {
		if r := recover(); r != nil {
			if dp, ok := r.(downstreamPanic); ok {
				panic(dp.value)
			}
			panic(r)
		}
	}()
	c.run(c.snapshot(), 0, ex, final)
}

func (c *Chain) run(stages []Stage, i int, ex *Exchange, final func()) {
	if i == len(stages) {
		callFinal(final)
		return
	}

	called := false
	proceed := func() {
		if called {
			return
		}
		called = true
		c.run(stages, i+1, ex, final)
	}

	c.invoke(stages[i], ex, proceed)
	if !called {
		proceed()
	}
}

func callFinal(final func()) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(downstreamPanic); ok {
				panic(r)
			}
			panic(downstreamPanic{value: r})
		}
	}()
	final()
}

func (c *Chain) invoke(st Stage, ex *Exchange, proceed func()) {
	defer func() {
		if r := recover(); r != nil {
			if dp, ok := r.(downstreamPanic); ok {
				panic(dp)
			}
			c.logger.Warn(ex.Context(), "stage failed",
				Field{Key: "stage", Value: st.Name},
				Field{Key: "route", Value: ex.Path},
				Field{Key: "panic", Value: fmt.Sprint(r)},
			)
		}
	}()
	st.Run(ex, proceed)
}

// Wrap returns a handler that runs the chain and then next. The response
// status is captured from the writer; observers fire once after next
// returns. If next panics the exchange finishes with 500 and the panic
// continues to the server.
func (c *Chain) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ex := NewExchange(r, c.logger)
		sw := httpsnoop.Wrap(w, httpsnoop.Hooks{
			WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
				return func(code int) {
					// Informational responses are followed by the final one.
					if code >= 200 || code == http.StatusSwitchingProtocols {
						ex.setStatus(code)
					}
					next(code)
				}
			},
			Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
				return func(b []byte) (int, error) {
					ex.setStatus(http.StatusOK)
					return next(b)
				}
			},
			ReadFrom: func(next httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
				return func(src io.Reader) (int64, error) {
					ex.setStatus(http.StatusOK)
					return next(src)
				}
			},
		})

		completed := false
		defer func() {
			if !completed {
				ex.Finish(http.StatusInternalServerError)
			}
		}()

		c.Run(ex, func() { next.ServeHTTP(sw, r) })
		completed = true
		ex.Finish(0)
	})
}
