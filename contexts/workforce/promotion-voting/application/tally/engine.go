package tally

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	application "promovote/contexts/workforce/promotion-voting/application"
	"promovote/contexts/workforce/promotion-voting/domain/entities"
	domainerrors "promovote/contexts/workforce/promotion-voting/domain/errors"
	"promovote/contexts/workforce/promotion-voting/ports"
)

// Engine records ballots through the gateway's atomic primitive. It never
// reads and then writes counters itself; the returned proposal is the snapshot
// taken inside the same atomic step as the increment.
type Engine struct {
	Recorder ports.VoteRecorder
	Metrics  ports.Metrics
	Logger   *slog.Logger
}

// Record casts vote at now and returns the proposal with its updated counts.
func (e Engine) Record(
	ctx context.Context,
	vote entities.Vote,
	now time.Time,
	event ports.EventEnvelope,
) (entities.Proposal, error) {
	logger := application.ResolveLogger(e.Logger)
	metrics := application.ResolveMetrics(e.Metrics)
	if !vote.Choice.Valid() {
		return entities.Proposal{}, fmt.Errorf("%w: choice must be agree or disagree", domainerrors.ErrValidation)
	}

	proposal, err := e.Recorder.RecordVote(ctx, vote, now, event)
	if err != nil {
		reason := application.RejectionReason(err)
		metrics.VoteRejected(reason)
		if errors.Is(err, domainerrors.ErrAlreadyVoted) {
			logger.Info("duplicate ballot rejected",
				"event", "promotion_tally_duplicate_rejected",
				"module", "workforce/promotion-voting",
				"layer", "application",
				"proposal_id", vote.ProposalID,
				"voter_id", vote.VoterID,
			)
			return entities.Proposal{}, err
		}
		logger.Warn("ballot not recorded",
			"event", "promotion_tally_record_failed",
			"module", "workforce/promotion-voting",
			"layer", "application",
			"proposal_id", vote.ProposalID,
			"voter_id", vote.VoterID,
			"reason", reason,
			"error", err.Error(),
		)
		return entities.Proposal{}, err
	}

	if proposal.VotesCast() > proposal.QualifiedVoterCount {
		logger.Error("tally exceeds qualified voter count",
			"event", "promotion_tally_invariant_violated",
			"module", "workforce/promotion-voting",
			"layer", "application",
			"proposal_id", proposal.ProposalID,
			"agree_count", proposal.AgreeCount,
			"disagree_count", proposal.DisagreeCount,
			"qualified_voter_count", proposal.QualifiedVoterCount,
		)
	}

	metrics.VoteRecorded(vote.Choice)
	logger.Info("ballot recorded",
		"event", "promotion_tally_recorded",
		"module", "workforce/promotion-voting",
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"voter_id", vote.VoterID,
		"choice", string(vote.Choice),
		"agree_count", proposal.AgreeCount,
		"disagree_count", proposal.DisagreeCount,
	)
	return proposal, nil
}
