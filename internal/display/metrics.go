package display

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soundscape_generations_total",
		Help: "Automaton generations computed",
	})

	population = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soundscape_population",
		Help: "Live cells in the current generation",
	})

	stepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "soundscape_step_duration_seconds",
		Help:    "Time to compute one generation",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	bandEnergy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "soundscape_band_energy",
		Help: "Most recent band energy seen by the simulation",
	}, []string{"band"})

	viewers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "soundscape_viewers",
		Help: "Connected websocket viewers",
	})

	framesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soundscape_frames_rendered_total",
		Help: "PNG frames rendered for viewers",
	})
)
