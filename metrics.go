package transducer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search outcomes used as the "outcome" label of the searches counter.
const (
	outcomeOK         = "ok"
	outcomeInfeasible = "infeasible"
	outcomeDegenerate = "degenerate"
	outcomeOracle     = "oracle_error"
	outcomeCanceled   = "canceled"
)

// Metrics collects counters about alignment searches.
// A nil *Metrics records nothing.
type Metrics struct {
	Searches    *prometheus.CounterVec
	OracleCalls prometheus.Counter
	Candidates  prometheus.Counter
	Pruned      prometheus.Counter
	Duration    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "transducer",
			Name:      "alignment_searches_total",
			Help:      "Alignment searches by outcome.",
		}, []string{"outcome"}),
		OracleCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "transducer",
			Name:      "oracle_calls_total",
			Help:      "Number of oracle invocations.",
		}),
		Candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "transducer",
			Name:      "alignment_candidates_total",
			Help:      "Candidate alignments generated before pruning.",
		}),
		Pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "transducer",
			Name:      "alignment_candidates_pruned_total",
			Help:      "Candidate alignments discarded by dominance pruning.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "transducer",
			Name:      "alignment_search_duration_seconds",
			Help:      "Wall time of alignment searches.",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 10),
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Searches, m.OracleCalls, m.Candidates, m.Pruned, m.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeSearch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(outcome).Inc()
	m.Duration.Observe(d.Seconds())
}

func (m *Metrics) observeRound(calls, candidates, survivors int) {
	if m == nil {
		return
	}
	m.OracleCalls.Add(float64(calls))
	m.Candidates.Add(float64(candidates))
	m.Pruned.Add(float64(candidates - survivors))
}
