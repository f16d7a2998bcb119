package autopilot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reseedsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soundscape_autopilot_reseeds_total",
		Help: "Grids reseeded after the population died out",
	})

	transitionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soundscape_autopilot_transitions_total",
		Help: "Automatic color scheme changes",
	})
)
