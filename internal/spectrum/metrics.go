package spectrum

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soundscape_analyzer_frames_total",
		Help: "Sample blocks processed by the spectral analyzer",
	})

	feedDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "soundscape_feed_dropped_total",
		Help: "Band-energy frames discarded because the consumer fell behind",
	})
)
