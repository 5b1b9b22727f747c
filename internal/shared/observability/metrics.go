package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shaker_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shaker_analysis_seconds",
		Help:    "Time spent building the retention graph for one tree.",
		Buckets: prometheus.DefBuckets,
	})

	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shaker_analysis_sessions_total",
		Help: "Total number of completed analysis sessions.",
	})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shaker_graph_nodes_total",
		Help: "Nodes referenced by the most recent retention graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shaker_graph_edges_total",
		Help: "Edges in the most recent retention graph.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shaker_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
