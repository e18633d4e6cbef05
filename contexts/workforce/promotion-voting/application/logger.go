package application

import (
	"log/slog"
	"time"

	"promovote/contexts/workforce/promotion-voting/domain/entities"
	"promovote/contexts/workforce/promotion-voting/ports"
)

// ResolveLogger guarantees a non-nil logger for application/worker code paths.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// ResolveMetrics guarantees a non-nil metrics sink.
func ResolveMetrics(metrics ports.Metrics) ports.Metrics {
	if metrics == nil {
		return noopMetrics{}
	}
	return metrics
}

type noopMetrics struct{}

func (noopMetrics) ProposalCreated(string)                   {}
func (noopMetrics) VoteRecorded(entities.VoteChoice)         {}
func (noopMetrics) VoteRejected(string)                      {}
func (noopMetrics) ProposalResolved(entities.ProposalStatus) {}
func (noopMetrics) SweepCompleted(int, time.Duration)        {}
