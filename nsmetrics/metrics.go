// Package nsmetrics exposes Prometheus instrumentation for a nested
// sampling run: iteration throughput, acceptance ratios, step size, and
// live-set energy bounds. Nil-safe throughout, so callers that don't wire a
// registry can simply pass a nil *Metrics and every method becomes a no-op.
package nsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for one engine instance.
type Metrics struct {
	iterations      prometheus.Counter
	walksDispatched prometheus.Counter
	walkDuration    prometheus.Histogram
	acceptRatio     prometheus.Gauge
	stepSize        prometheus.Gauge
	worstEnergy     prometheus.Gauge
	bestEnergy      prometheus.Gauge
	energySpread    prometheus.Gauge
}

// New registers a fresh set of collectors against reg under the "ns"
// namespace. Pass prometheus.NewRegistry() in tests to avoid collisions
// with the default global registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		iterations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ns", Name: "iterations_total", Help: "Completed nested sampling iterations.",
		}),
		walksDispatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ns", Name: "walks_dispatched_total", Help: "Walk jobs handed to a dispatcher.",
		}),
		walkDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ns", Name: "walk_batch_duration_seconds", Help: "Wall-clock time to complete one batch of walks.",
			Buckets: prometheus.DefBuckets,
		}),
		acceptRatio: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ns", Name: "accept_ratio", Help: "Acceptance ratio of the most recent walk batch.",
		}),
		stepSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ns", Name: "step_size", Help: "Current adapted step size.",
		}),
		worstEnergy: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ns", Name: "worst_energy", Help: "E_max_live: energy of the worst live replica at the last iteration.",
		}),
		bestEnergy: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ns", Name: "best_energy", Help: "E_min_live: energy of the best live replica at the last iteration.",
		}),
		energySpread: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ns", Name: "energy_spread", Help: "E_max_live - E_min_live, the quantity compared against etol for termination.",
		}),
	}
}

func (m *Metrics) IterationCompleted() {
	if m == nil {
		return
	}
	m.iterations.Inc()
}

func (m *Metrics) WalksDispatched(n int) {
	if m == nil {
		return
	}
	m.walksDispatched.Add(float64(n))
}

func (m *Metrics) ObserveWalkBatchSeconds(seconds float64) {
	if m == nil {
		return
	}
	m.walkDuration.Observe(seconds)
}

func (m *Metrics) SetAcceptRatio(r float64) {
	if m == nil {
		return
	}
	m.acceptRatio.Set(r)
}

func (m *Metrics) SetStepSize(s float64) {
	if m == nil {
		return
	}
	m.stepSize.Set(s)
}

func (m *Metrics) SetWorstEnergy(e float64) {
	if m == nil {
		return
	}
	m.worstEnergy.Set(e)
}

func (m *Metrics) SetBestEnergy(e float64) {
	if m == nil {
		return
	}
	m.bestEnergy.Set(e)
}

func (m *Metrics) SetEnergySpread(s float64) {
	if m == nil {
		return
	}
	m.energySpread.Set(s)
}
