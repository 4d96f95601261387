package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultCheckTimeout bounds one CheckAll run.
const DefaultCheckTimeout = 5 * time.Second

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout is the maximum time to wait for all checks.
	// Default: DefaultCheckTimeout
	Timeout time.Duration

	// Sequential runs the checks one after another instead of in parallel.
	Sequential bool
}

// Report is the result of one named checker.
type Report struct {
	Name   string
	Result Result
}

// Aggregator runs a set of checkers.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ordering: CheckAll returns reports in registration order regardless of
//   the order in which parallel checks finish.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	var cfg AggregatorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCheckTimeout
	}
	return &Aggregator{
		config:   cfg,
		checkers: make(map[string]Checker),
	}
}

// Register adds c under its name. Registering a name again replaces the
// checker and keeps its original position.
func (a *Aggregator) Register(c Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	name := c.Name()
	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = c
}

// Names returns the registered checker names in registration order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.order...)
}

// Check runs a single named check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	c, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrCheckerNotFound, name)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return run(ctx, c), nil
}

// CheckAll runs every registered check.
func (a *Aggregator) CheckAll(ctx context.Context) []Report {
	a.mu.RLock()
	reports := make([]Report, len(a.order))
	checkers := make([]Checker, len(a.order))
	for i, name := range a.order {
		reports[i].Name = name
		checkers[i] = a.checkers[name]
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	if a.config.Sequential {
		for i, c := range checkers {
			reports[i].Result = run(ctx, c)
		}
		return reports
	}

	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports[i].Result = run(ctx, c)
		}()
	}
	wg.Wait()
	return reports
}

// run executes one check, converting a timeout or a panic into an
// unhealthy result, and stamps the duration.
func run(ctx context.Context, c Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Unhealthy(fmt.Sprintf("check panicked: %v", r), ErrCheckFailed)
			}
		}()
		done <- c.Check(ctx)
	}()

	var res Result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = Unhealthy("check timed out", ErrCheckTimeout)
	}
	return res.WithDuration(time.Since(start))
}

// OverallStatus returns the worst status among reports. No reports means
// healthy.
func OverallStatus(reports []Report) Status {
	status := StatusHealthy
	for _, r := range reports {
		if r.Result.Status > status {
			status = r.Result.Status
		}
	}
	return status
}
