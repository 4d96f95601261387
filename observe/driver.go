package observe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jonwraymond/reqprof/instrument"
	"github.com/jonwraymond/reqprof/observe/exporters"
)

// Snapshotter produces the records of one export cycle.
type Snapshotter interface {
	Snapshot(now time.Time) []instrument.Record
}

// MetricsExporter writes one batch of records.
type MetricsExporter interface {
	Export(ctx context.Context, records []instrument.Record) exporters.Result
}

// DriverConfig configures a Driver.
type DriverConfig struct {
	Interval time.Duration
	// Service is stamped on every exported record.
	Service string
	Logger  Logger
	Clock   func() time.Time
}

// DriverStats are the driver's counters since creation.
type DriverStats struct {
	Exports    uint64    `json:"exports"`
	Failures   uint64    `json:"failures"`
	Skipped    uint64    `json:"skipped"`
	LastExport time.Time `json:"last_export,omitzero"`
}

// Driver snapshots a Snapshotter on a fixed interval and hands the records
// to a MetricsExporter.
//
// Contract:
// - Concurrency: safe for concurrent use. At most one export runs at a
//   time; a tick that finds an export in flight is skipped and counted.
// - Errors: failed exports are logged and discarded, never retried.
// - Lifecycle: Start is idempotent. Stop halts the timer, waits for the
//   in-flight export and runs one final flush; it is idempotent.
type Driver struct {
	src      Snapshotter
	exp      MetricsExporter
	interval time.Duration
	service  string
	logger   Logger
	now      func() time.Time

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	stopOnce  sync.Once
	stopErr   error

	exported atomic.Uint64
	failures atomic.Uint64
	skipped  atomic.Uint64

	mu      sync.Mutex
	last    exporters.Result
	lastAt  time.Time
	hasLast bool
}

// NewDriver creates a stopped driver. A non-positive interval falls back
// to DefaultExportIntervalMs.
func NewDriver(src Snapshotter, exp MetricsExporter, cfg DriverConfig) *Driver {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultExportIntervalMs * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Driver{
		src:      src,
		exp:      exp,
		interval: cfg.Interval,
		service:  cfg.Service,
		logger:   cfg.Logger,
		now:      cfg.Clock,
		sem:      semaphore.NewWeighted(1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Interval returns the export interval.
func (d *Driver) Interval() time.Duration {
	return d.interval
}

// Start launches the timer goroutine.
func (d *Driver) Start() {
	d.startOnce.Do(func() {
		if d.ctx.Err() != nil {
			return
		}
		d.wg.Add(1)
		go d.loop()
	})
}

func (d *Driver) loop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if !d.sem.TryAcquire(1) {
				d.skip()
				continue
			}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				defer d.sem.Release(1)
				d.export(context.WithoutCancel(d.ctx))
			}()
		}
	}
}

// Tick runs one export now unless one is already in flight. It reports
// whether the export ran.
func (d *Driver) Tick(ctx context.Context) bool {
	if !d.sem.TryAcquire(1) {
		d.skip()
		return false
	}
	defer d.sem.Release(1)
	d.export(ctx)
	return true
}

// Flush waits for any in-flight export, then exports once.
func (d *Driver) Flush(ctx context.Context) exporters.Result {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return exporters.Failure(err)
	}
	defer d.sem.Release(1)
	return d.export(ctx)
}

func (d *Driver) skip() {
	d.skipped.Add(1)
	d.logger.Debug(d.ctx, "export tick skipped: previous export still running")
}

func (d *Driver) export(ctx context.Context) exporters.Result {
	now := d.now()
	records := d.src.Snapshot(now)
	for i := range records {
		records[i].Service = d.service
	}

	res := d.exp.Export(ctx, records)
	d.exported.Add(1)
	if !res.OK() {
		d.failures.Add(1)
		d.logger.Warn(ctx, "metrics export failed",
			Field{Key: "records", Value: len(records)},
			Field{Key: "error", Value: res.Err},
		)
	}

	d.mu.Lock()
	d.last, d.lastAt, d.hasLast = res, now, true
	d.mu.Unlock()
	return res
}

// Stop halts the timer, waits for the in-flight export and flushes once
// more. If ctx ends first, Stop returns ctx.Err() without the final flush.
func (d *Driver) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() {
		d.cancel()

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			d.stopErr = ctx.Err()
			return
		}

		if res := d.Flush(ctx); !res.OK() {
			d.stopErr = res.Err
		}
	})
	return d.stopErr
}

// Stats returns the driver counters.
func (d *Driver) Stats() DriverStats {
	d.mu.Lock()
	lastAt := d.lastAt
	d.mu.Unlock()
	return DriverStats{
		Exports:    d.exported.Load(),
		Failures:   d.failures.Load(),
		Skipped:    d.skipped.Load(),
		LastExport: lastAt,
	}
}

// LastResult returns the result of the latest export. ok is false before
// the first export.
func (d *Driver) LastResult() (res exporters.Result, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.hasLast
}
