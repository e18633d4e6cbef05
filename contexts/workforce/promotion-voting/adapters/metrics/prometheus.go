package metrics

import (
	"time"

	"promovote/contexts/workforce/promotion-voting/domain/entities"
	"promovote/contexts/workforce/promotion-voting/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus records promotion voting activity on a registry.
type Prometheus struct {
	proposalsCreated  *prometheus.CounterVec
	votesRecorded     *prometheus.CounterVec
	votesRejected     *prometheus.CounterVec
	proposalsResolved *prometheus.CounterVec
	sweepFinalized    prometheus.Counter
	sweepDuration     prometheus.Histogram
}

// NewPrometheus registers the collectors on registry. A nil registry uses the
// default registerer.
func NewPrometheus(registry prometheus.Registerer) *Prometheus {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)
	return &Prometheus{
		proposalsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promovote_proposals_created_total",
			Help: "Total number of promotion votes opened, by store",
		}, []string{"store"}),
		votesRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promovote_votes_recorded_total",
			Help: "Total number of ballots counted, by choice",
		}, []string{"choice"}),
		votesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promovote_votes_rejected_total",
			Help: "Total number of ballots rejected, by reason",
		}, []string{"reason"}),
		proposalsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "promovote_proposals_resolved_total",
			Help: "Total number of promotion votes resolved, by final status",
		}, []string{"status"}),
		sweepFinalized: factory.NewCounter(prometheus.CounterOpts{
			Name: "promovote_sweep_finalized_total",
			Help: "Total number of proposals finalized by the deadline sweep",
		}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "promovote_sweep_duration_seconds",
			Help:    "Duration of deadline sweeps",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (p *Prometheus) ProposalCreated(storeName string) {
	p.proposalsCreated.WithLabelValues(storeName).Inc()
}

func (p *Prometheus) VoteRecorded(choice entities.VoteChoice) {
	p.votesRecorded.WithLabelValues(string(choice)).Inc()
}

func (p *Prometheus) VoteRejected(reason string) {
	p.votesRejected.WithLabelValues(reason).Inc()
}

func (p *Prometheus) ProposalResolved(status entities.ProposalStatus) {
	p.proposalsResolved.WithLabelValues(string(status)).Inc()
}

func (p *Prometheus) SweepCompleted(finalized int, duration time.Duration) {
	p.sweepFinalized.Add(float64(finalized))
	p.sweepDuration.Observe(duration.Seconds())
}

var _ ports.Metrics = (*Prometheus)(nil)
