// Package metrics exports agent activity as Prometheus metrics. A Collector
// subscribes to an agent's hooks; nothing in the engine depends on it.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/SoarGroup/Soar-sub034/engine"
)

const (
	namespace = "soar"
	subsystem = "engine"
)

// Collector holds the metric vectors. All vectors are labelled by agent id.
type Collector struct {
	firings     *prometheus.CounterVec
	retractions *prometheus.CounterVec
	vetoes      *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	cycles      *prometheus.CounterVec
	deferred    *prometheus.CounterVec
	totalMemory *prometheus.GaugeVec
	liveInsts   *prometheus.GaugeVec
	cycleFired  *prometheus.HistogramVec
}

// NewCollector registers the metric vectors on reg. Pass
// prometheus.DefaultRegisterer to expose them on the default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		firings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "firings_total",
			Help:      "Instantiations created, by agent",
		}, []string{"agent"}),
		retractions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "retractions_total",
			Help:      "Instantiations retracted from the match set, by agent",
		}, []string{"agent"}),
		vetoes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "vetoed_preferences_total",
			Help:      "Preferences removed from total memory by operator rejects",
		}, []string{"agent"}),
		diagnostics: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "diagnostics_total",
			Help:      "Non-fatal problems reported during firing, by error code",
		}, []string{"agent", "code"}),
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "preference_phases_total",
			Help:      "Preference phases run, by whether the agent ended halted",
		}, []string{"agent", "halted"}),
		deferred: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "deferred_matches_total",
			Help:      "Matches left queued at the end of a preference phase",
		}, []string{"agent"}),
		totalMemory: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "total_memory_preferences",
			Help:      "Preferences committed to total memory",
		}, []string{"agent"}),
		liveInsts: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "live_instantiations",
			Help:      "Instantiations not yet deallocated",
		}, []string{"agent"}),
		cycleFired: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "firings_per_phase",
			Help:      "Instantiations created per preference phase",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}, []string{"agent"}),
	}
}

// Register subscribes the collector to a's hooks.
func (c *Collector) Register(a *engine.Agent) {
	id := a.ID()
	hm := a.Hooks()

	hm.RegisterHook(engine.NewFunctionHook(engine.HookFiring, func(context.Context, *engine.HookContext) error {
		c.firings.WithLabelValues(id).Inc()
		return nil
	}))
	hm.RegisterHook(engine.NewFunctionHook(engine.HookRetraction, func(context.Context, *engine.HookContext) error {
		c.retractions.WithLabelValues(id).Inc()
		return nil
	}))
	hm.RegisterHook(engine.NewFunctionHook(engine.HookVeto, func(_ context.Context, hc *engine.HookContext) error {
		c.vetoes.WithLabelValues(id).Add(float64(len(hc.Preferences)))
		return nil
	}))
	hm.RegisterHook(engine.NewFunctionHook(engine.HookDiagnostic, func(_ context.Context, hc *engine.HookContext) error {
		code, _ := hc.Metadata["code"].(string)
		if code == "" {
			code = "none"
		}
		c.diagnostics.WithLabelValues(id, code).Inc()
		return nil
	}))
	hm.RegisterHook(engine.NewFunctionHook(engine.HookCycle, func(_ context.Context, hc *engine.HookContext) error {
		if hc.Report == nil {
			return nil
		}
		halted := "false"
		if hc.Report.Halted {
			halted = "true"
		}
		c.cycles.WithLabelValues(id, halted).Inc()
		c.deferred.WithLabelValues(id).Add(float64(hc.Report.Deferred))
		c.cycleFired.WithLabelValues(id).Observe(float64(hc.Report.Fired))

		st := a.Stats()
		c.totalMemory.WithLabelValues(id).Set(float64(st.TotalMemory))
		c.liveInsts.WithLabelValues(id).Set(float64(st.LiveInstantiations))
		return nil
	}))
}
