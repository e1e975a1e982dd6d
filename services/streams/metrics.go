package streams

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brahimtod123-lgtm/Souhail-torrent/models"
)

// Metrics holds Prometheus collectors for the stream pipeline.
type Metrics struct {
	RequestsTotal      prometheus.Counter
	CandidatesFound    prometheus.Histogram
	ResolutionsTotal   *prometheus.CounterVec
	ResolveDuration    prometheus.Histogram
	PhaseDuration      prometheus.Histogram
	DeadlineAbandoned  prometheus.Counter
	StreamsReturned    prometheus.Histogram
	CandidateFetchErrs prometheus.Counter
}

// NewMetrics registers the pipeline collectors on reg. A nil registerer
// yields working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "souhail_stream_requests_total",
			Help: "Total number of stream listing requests",
		}),
		CandidatesFound: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "souhail_candidates_found",
			Help:    "Unique candidates returned by the candidate source per request",
			Buckets: []float64{0, 1, 5, 10, 15, 20, 25, 30, 50},
		}),
		ResolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "souhail_resolutions_total",
			Help: "Candidate resolutions by final state",
		}, []string{"state"}),
		ResolveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "souhail_resolve_duration_seconds",
			Help:    "Time spent resolving a single candidate",
			Buckets: prometheus.DefBuckets,
		}),
		PhaseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "souhail_resolution_phase_duration_seconds",
			Help:    "Wall-clock time of the whole resolution phase of a request",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 15, 20, 25, 30},
		}),
		DeadlineAbandoned: factory.NewCounter(prometheus.CounterOpts{
			Name: "souhail_resolutions_abandoned_total",
			Help: "Candidates reported torrent-only because the resolution phase deadline passed",
		}),
		StreamsReturned: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "souhail_streams_returned",
			Help:    "Streams returned per request after ranking and capping",
			Buckets: []float64{0, 1, 5, 10, 15, 20},
		}),
		CandidateFetchErrs: factory.NewCounter(prometheus.CounterOpts{
			Name: "souhail_candidate_fetch_errors_total",
			Help: "Requests where every candidate lookup failed",
		}),
	}
}

func (m *Metrics) observeResult(result models.ResolutionResult) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(string(result.State)).Inc()
}
