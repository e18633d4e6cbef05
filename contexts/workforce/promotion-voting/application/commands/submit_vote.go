package commands

import (
	"context"
	"errors"
	"strings"
	"time"

	application "promovote/contexts/workforce/promotion-voting/application"
	"promovote/contexts/workforce/promotion-voting/domain/entities"
	domainerrors "promovote/contexts/workforce/promotion-voting/domain/errors"
)

// SubmitVoteCommand casts one ballot. VoterPosition and VoterStore are the
// caller's claims; the directory record wins when it is available.
type SubmitVoteCommand struct {
	ProposalID    string
	VoterID       string
	VoterName     string
	Choice        entities.VoteChoice
	Comment       string
	VoterPosition string
	VoterStore    string
}

// SubmitVoteResult carries the counts as they stood right after the ballot and
// the status the proposal holds once early resolution has been applied.
type SubmitVoteResult struct {
	Vote     entities.Vote
	Proposal entities.Proposal
	Resolved bool
}

// SubmitVote re-checks eligibility server side, records the ballot through the
// tally engine and resolves the proposal early when the outcome is decided.
func (m LifecycleManager) SubmitVote(ctx context.Context, cmd SubmitVoteCommand) (SubmitVoteResult, error) {
	logger := application.ResolveLogger(m.Logger)
	metrics := application.ResolveMetrics(m.Metrics)
	cmd.ProposalID = strings.TrimSpace(cmd.ProposalID)
	cmd.VoterID = strings.TrimSpace(cmd.VoterID)
	if err := validateSubmitVoteCommand(cmd); err != nil {
		metrics.VoteRejected(application.RejectionReason(err))
		logger.Warn("promotion ballot validation failed",
			"event", "promotion_vote_validation_failed",
			"module", "workforce/promotion-voting",
			"layer", "application",
			"proposal_id", cmd.ProposalID,
			"voter_id", cmd.VoterID,
			"error", err.Error(),
		)
		return SubmitVoteResult{}, err
	}

	now := m.now()
	proposal, err := m.Proposals.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	if err := m.Eligibility.CanVote(ctx, proposal, cmd.VoterID, now); err != nil {
		metrics.VoteRejected(application.RejectionReason(err))
		logger.Info("promotion ballot rejected",
			"event", "promotion_vote_rejected",
			"module", "workforce/promotion-voting",
			"layer", "application",
			"proposal_id", cmd.ProposalID,
			"voter_id", cmd.VoterID,
			"error", err.Error(),
		)
		if errors.Is(err, domainerrors.ErrDeadlinePassed) {
			m.finalizeOverdue(ctx, cmd.ProposalID, now)
		}
		return SubmitVoteResult{}, err
	}

	voteID, err := m.IDGen.NewID(ctx)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	eventID, err := m.IDGen.NewID(ctx)
	if err != nil {
		return SubmitVoteResult{}, err
	}
	position, store := m.voterProfile(ctx, cmd)
	vote := entities.Vote{
		VoteID:        voteID,
		ProposalID:    proposal.ProposalID,
		VoterID:       cmd.VoterID,
		VoterName:     strings.TrimSpace(cmd.VoterName),
		Choice:        cmd.Choice,
		Comment:       strings.TrimSpace(cmd.Comment),
		VoterPosition: position,
		VoterStore:    store,
		CastAt:        now,
	}
	event, err := newPromotionEnvelope(eventID, EventVoteCast, vote.ProposalID, now, voteCastData(vote))
	if err != nil {
		return SubmitVoteResult{}, err
	}

	recorded, err := m.Tally.Record(ctx, vote, now, event)
	if err != nil {
		if errors.Is(err, domainerrors.ErrDeadlinePassed) {
			m.finalizeOverdue(ctx, vote.ProposalID, now)
		}
		return SubmitVoteResult{}, err
	}

	result := SubmitVoteResult{Vote: vote, Proposal: recorded}
	if _, decided := recorded.Evaluate(now); !decided {
		return result, nil
	}
	resolved, transitioned, err := m.resolve(ctx, vote.ProposalID, now)
	if err != nil {
		// The ballot is committed; the sweep finalizes the proposal later.
		logger.Warn("promotion early resolution deferred",
			"event", "promotion_vote_early_resolution_deferred",
			"module", "workforce/promotion-voting",
			"layer", "application",
			"proposal_id", vote.ProposalID,
			"error", err.Error(),
		)
		return result, nil
	}
	result.Proposal = resolved
	result.Resolved = transitioned
	return result, nil
}

// finalizeOverdue closes a proposal whose deadline passed before the sweep got
// to it. Failures are left to the sweep.
func (m LifecycleManager) finalizeOverdue(ctx context.Context, proposalID string, now time.Time) {
	if _, _, err := m.resolve(ctx, proposalID, now); err != nil {
		application.ResolveLogger(m.Logger).Warn("promotion overdue finalize deferred to sweep",
			"event", "promotion_vote_overdue_finalize_deferred",
			"module", "workforce/promotion-voting",
			"layer", "application",
			"proposal_id", proposalID,
			"error", err.Error(),
		)
	}
}

func (m LifecycleManager) voterProfile(ctx context.Context, cmd SubmitVoteCommand) (string, string) {
	position := strings.TrimSpace(cmd.VoterPosition)
	store := strings.TrimSpace(cmd.VoterStore)
	if m.Eligibility.Directory == nil {
		return position, store
	}
	employee, err := m.Eligibility.Directory.GetEmployee(ctx, cmd.VoterID)
	if err != nil {
		if !errors.Is(err, domainerrors.ErrEmployeeNotFound) {
			application.ResolveLogger(m.Logger).Warn("promotion voter profile lookup failed",
				"event", "promotion_vote_profile_lookup_failed",
				"module", "workforce/promotion-voting",
				"layer", "application",
				"voter_id", cmd.VoterID,
				"error", err.Error(),
			)
		}
		return position, store
	}
	if canonical, ok := m.Eligibility.Hierarchy.Canonical(employee.Position); ok {
		position = canonical
	} else if strings.TrimSpace(employee.Position) != "" {
		position = strings.TrimSpace(employee.Position)
	}
	if strings.TrimSpace(employee.StoreName) != "" {
		store = strings.TrimSpace(employee.StoreName)
	}
	return position, store
}
