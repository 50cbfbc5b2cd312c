package ns

// Observer is a pure, per-trial watcher invoked by the walker after every
// trial move, whether accepted or rejected (the "events" of spec §4.1 step
// 6). Observers must not mutate x; they exist purely for diagnostics such as
// trajectory recording or live visualization.
type Observer interface {
	Observe(x []float64)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(x []float64)

// Observe implements Observer.
func (f ObserverFunc) Observe(x []float64) { f(x) }
