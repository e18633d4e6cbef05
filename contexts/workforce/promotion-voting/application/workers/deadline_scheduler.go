package workers

import (
	"context"
	"log/slog"
	"time"

	application "promovote/contexts/workforce/promotion-voting/application"
	"promovote/contexts/workforce/promotion-voting/domain/entities"
	"promovote/contexts/workforce/promotion-voting/ports"
)

// Finalizer is the lifecycle operation the sweep drives.
type Finalizer interface {
	Finalize(ctx context.Context, proposalID string) (entities.Proposal, bool, error)
}

// DeadlineScheduler finalizes open proposals whose deadline has elapsed. It
// keeps no state between runs: every sweep re-derives its work from
// (status, deadline), so missed, delayed or concurrent sweeps are harmless.
type DeadlineScheduler struct {
	Proposals ports.ProposalRepository
	Lifecycle Finalizer
	Clock     ports.Clock
	Metrics   ports.Metrics
	BatchSize int
	Interval  time.Duration
	Disabled  bool
	Logger    *slog.Logger
}

// RunOnce pages through overdue proposals in (deadline, id) order and
// returns how many it moved to a terminal status. A proposal that fails to
// finalize is logged and picked up again by the next sweep; the page cursor
// moves past it either way.
func (s DeadlineScheduler) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(s.Logger)
	started := time.Now()
	now := s.now()
	limit := s.BatchSize
	if limit <= 0 {
		limit = 100
	}
	logger.Debug("promotion deadline sweep started",
		"event", "promotion_sweep_started",
		"module", "workforce/promotion-voting",
		"layer", "worker",
		"batch_size", limit,
		"now", now,
	)

	finalized := 0
	attempted := 0
	var cursor ports.OverdueCursor
	for {
		if err := ctx.Err(); err != nil {
			return finalized, err
		}
		overdue, err := s.Proposals.ListOverdueOpenProposals(ctx, now, cursor, limit)
		if err != nil {
			logger.Error("promotion deadline sweep list failed",
				"event", "promotion_sweep_list_failed",
				"module", "workforce/promotion-voting",
				"layer", "worker",
				"error", err.Error(),
			)
			return finalized, err
		}
		for _, proposal := range overdue {
			attempted++
			cursor = ports.OverdueCursor{Deadline: proposal.Deadline, ProposalID: proposal.ProposalID}
			resolved, transitioned, err := s.Lifecycle.Finalize(ctx, proposal.ProposalID)
			if err != nil {
				logger.Warn("promotion deadline finalize failed",
					"event", "promotion_sweep_finalize_failed",
					"module", "workforce/promotion-voting",
					"layer", "worker",
					"proposal_id", proposal.ProposalID,
					"error", err.Error(),
				)
				continue
			}
			if transitioned {
				finalized++
				logger.Info("promotion vote finalized at deadline",
					"event", "promotion_sweep_finalized",
					"module", "workforce/promotion-voting",
					"layer", "worker",
					"proposal_id", resolved.ProposalID,
					"status", string(resolved.Status),
				)
			}
		}
		if len(overdue) < limit {
			break
		}
	}

	application.ResolveMetrics(s.Metrics).SweepCompleted(finalized, time.Since(started))
	logger.Info("promotion deadline sweep completed",
		"event", "promotion_sweep_completed",
		"module", "workforce/promotion-voting",
		"layer", "worker",
		"finalized_count", finalized,
		"attempted_count", attempted,
	)
	return finalized, nil
}

// Run sweeps immediately and then on every interval tick until ctx is done.
func (s DeadlineScheduler) Run(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)
	if s.Disabled {
		logger.Info("promotion deadline scheduler disabled by feature flag",
			"event", "promotion_sweep_disabled",
			"module", "workforce/promotion-voting",
			"layer", "worker",
		)
		return nil
	}
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			logger.Error("promotion deadline sweep failed",
				"event", "promotion_sweep_failed",
				"module", "workforce/promotion-voting",
				"layer", "worker",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s DeadlineScheduler) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
