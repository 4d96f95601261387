package observe

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/reqprof/instrument"
)

// Bridge mirrors cache handles into an OpenTelemetry meter through
// observable instruments, so an SDK reader (Prometheus, OTLP, stdout) sees
// the same values the file sink exports.
//
// Contract:
// - Concurrency: the callback reads handles without locking them.
// - Lifecycle: Unregister removes the callback; it is idempotent.
type Bridge struct {
	observables  map[string]metric.Float64Observable
	reg          metric.Registration
	unregistered bool
}

// NewBridge registers one observable instrument per definition and a
// callback observing every handle in cache.
func NewBridge(meter metric.Meter, cache *instrument.Cache, defs []instrument.Instrument) (*Bridge, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if cache == nil {
		return nil, ErrNilCache
	}

	b := &Bridge{observables: make(map[string]metric.Float64Observable, len(defs))}
	instruments := make([]metric.Observable, 0, len(defs))
	for _, def := range defs {
		obs, err := newObservable(meter, def)
		if err != nil {
			return nil, fmt.Errorf("observe: bridge %q: %w", def.Name, err)
		}
		b.observables[def.Name] = obs
		instruments = append(instruments, obs)
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		cache.Range(func(h *instrument.Handle) bool {
			if obs, ok := b.observables[h.Instrument().Name]; ok {
				o.ObserveFloat64(obs, h.Value(), metric.WithAttributeSet(h.Labels()))
			}
			return true
		})
		return nil
	}, instruments...)
	if err != nil {
		return nil, fmt.Errorf("observe: register bridge callback: %w", err)
	}
	b.reg = reg
	return b, nil
}

func newObservable(meter metric.Meter, def instrument.Instrument) (metric.Float64Observable, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	desc := metric.WithDescription(def.Description)
	unit := metric.WithUnit(def.Unit)
	switch def.Kind {
	case instrument.Counter:
		return meter.Float64ObservableCounter(def.Name, desc, unit)
	case instrument.UpDownCounter:
		return meter.Float64ObservableUpDownCounter(def.Name, desc, unit)
	default:
		return meter.Float64ObservableGauge(def.Name, desc, unit)
	}
}

// Unregister removes the bridge callback.
func (b *Bridge) Unregister() error {
	if b.unregistered {
		return nil
	}
	b.unregistered = true
	return b.reg.Unregister()
}
