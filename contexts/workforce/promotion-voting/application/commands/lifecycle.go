package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "promovote/contexts/workforce/promotion-voting/application"
	"promovote/contexts/workforce/promotion-voting/application/eligibility"
	"promovote/contexts/workforce/promotion-voting/application/tally"
	"promovote/contexts/workforce/promotion-voting/domain/entities"
	domainerrors "promovote/contexts/workforce/promotion-voting/domain/errors"
	"promovote/contexts/workforce/promotion-voting/ports"
)

// LifecycleManager owns the proposal state machine: Open moves to Passed,
// Failed or Expired exactly once. Every transition is a compare-and-set on the
// open status inside the persistence gateway, with the resolution event
// written in the same step.
type LifecycleManager struct {
	Proposals      ports.ProposalRepository
	Eligibility    eligibility.Resolver
	Tally          tally.Engine
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	Metrics        ports.Metrics
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Finalize evaluates the proposal at the current time and moves it to its
// terminal status when the outcome is decided. Calling it on a terminal or
// undecided proposal is a no-op that returns the stored proposal with
// transitioned=false.
func (m LifecycleManager) Finalize(ctx context.Context, proposalID string) (entities.Proposal, bool, error) {
	proposalID = strings.TrimSpace(proposalID)
	if proposalID == "" {
		return entities.Proposal{}, false, domainerrors.ErrNotFound
	}
	return m.resolve(ctx, proposalID, m.now())
}

func (m LifecycleManager) resolve(ctx context.Context, proposalID string, at time.Time) (entities.Proposal, bool, error) {
	logger := application.ResolveLogger(m.Logger)
	eventID, err := m.IDGen.NewID(ctx)
	if err != nil {
		return entities.Proposal{}, false, err
	}
	proposal, transitioned, err := m.Proposals.ResolveProposal(ctx, proposalID, at,
		func(resolved entities.Proposal) (ports.EventEnvelope, error) {
			return newPromotionEnvelope(eventID, EventProposalResolved, resolved.ProposalID, at, proposalResolvedData(resolved))
		},
	)
	if err != nil {
		logger.Error("promotion vote resolution failed",
			"event", "promotion_lifecycle_resolve_failed",
			"module", "workforce/promotion-voting",
			"layer", "application",
			"proposal_id", proposalID,
			"error", err.Error(),
		)
		return entities.Proposal{}, false, err
	}
	if !transitioned {
		logger.Debug("promotion vote resolution skipped",
			"event", "promotion_lifecycle_resolve_noop",
			"module", "workforce/promotion-voting",
			"layer", "application",
			"proposal_id", proposalID,
			"status", string(proposal.Status),
		)
		return proposal, false, nil
	}

	application.ResolveMetrics(m.Metrics).ProposalResolved(proposal.Status)
	logger.Info("promotion vote resolved",
		"event", "promotion_lifecycle_resolved",
		"module", "workforce/promotion-voting",
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"applicant_id", proposal.ApplicantID,
		"status", string(proposal.Status),
		"agree_count", proposal.AgreeCount,
		"disagree_count", proposal.DisagreeCount,
		"qualified_voter_count", proposal.QualifiedVoterCount,
	)
	return proposal, true, nil
}

func (m LifecycleManager) now() time.Time {
	if m.Clock == nil {
		return time.Now().UTC()
	}
	return m.Clock.Now().UTC()
}

func (m LifecycleManager) resolveIdempotencyTTL() time.Duration {
	if m.IdempotencyTTL <= 0 {
		return 24 * time.Hour
	}
	return m.IdempotencyTTL
}
