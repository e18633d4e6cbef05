package commands

import (
	"context"
	"errors"
	"strings"
	"time"

	application "promovote/contexts/workforce/promotion-voting/application"
	"promovote/contexts/workforce/promotion-voting/application/eligibility"
	"promovote/contexts/workforce/promotion-voting/domain/entities"
	domainerrors "promovote/contexts/workforce/promotion-voting/domain/errors"
	"promovote/contexts/workforce/promotion-voting/ports"
)

// InitiateCommand opens a promotion vote for one applicant and one step up the
// position ladder.
type InitiateCommand struct {
	InitiatorID      string
	IdempotencyKey   string
	ApplicantID      string
	ApplicantName    string
	StoreName        string
	CurrentPosition  string
	TargetPosition   string
	Reason           string
	VoteDurationDays int
}

type InitiateResult struct {
	Proposal entities.Proposal
	Replayed bool
}

// Initiate validates the request, freezes the qualified voter pool and stores
// the new open proposal. An optional idempotency key makes retries of the same
// request return the original proposal.
func (m LifecycleManager) Initiate(ctx context.Context, cmd InitiateCommand) (InitiateResult, error) {
	logger := application.ResolveLogger(m.Logger)
	logger.Info("promotion vote initiation started",
		"event", "promotion_initiate_started",
		"module", "workforce/promotion-voting",
		"layer", "application",
		"initiator_id", strings.TrimSpace(cmd.InitiatorID),
		"applicant_id", strings.TrimSpace(cmd.ApplicantID),
		"store_name", strings.TrimSpace(cmd.StoreName),
	)
	if err := validateInitiateCommand(cmd); err != nil {
		logger.Warn("promotion vote initiation validation failed",
			"event", "promotion_initiate_validation_failed",
			"module", "workforce/promotion-voting",
			"layer", "application",
			"applicant_id", strings.TrimSpace(cmd.ApplicantID),
			"error", err.Error(),
		)
		return InitiateResult{}, err
	}

	now := m.now()
	key := strings.TrimSpace(cmd.IdempotencyKey)
	requestHash := hashInitiateCommand(cmd)
	keyed := key != "" && m.Idempotency != nil
	if keyed {
		result, replayed, err := m.replayInitiate(ctx, key, requestHash, now)
		if err != nil || replayed {
			return result, err
		}
	}

	applicant := eligibility.Applicant{
		EmployeeID:      strings.TrimSpace(cmd.ApplicantID),
		StoreName:       strings.TrimSpace(cmd.StoreName),
		CurrentPosition: strings.TrimSpace(cmd.CurrentPosition),
		TargetPosition:  strings.TrimSpace(cmd.TargetPosition),
	}
	employee, err := m.Eligibility.ResolveApplicant(ctx, applicant)
	if err != nil {
		return InitiateResult{}, err
	}
	applicant.StoreName = strings.TrimSpace(employee.StoreName)

	// An open proposal left behind a missed sweep must not block a new one.
	if existing, open, err := m.Proposals.GetOpenProposalByApplicant(ctx, applicant.EmployeeID); err != nil {
		return InitiateResult{}, err
	} else if open && existing.DeadlineReached(now) {
		if _, _, err := m.resolve(ctx, existing.ProposalID, now); err != nil {
			return InitiateResult{}, err
		}
	}

	if err := m.Eligibility.CanInitiate(ctx, applicant); err != nil {
		if keyed && errors.Is(err, domainerrors.ErrDuplicateOpenProposal) {
			if result, replayed, replayErr := m.replayInitiate(ctx, key, requestHash, now); replayErr != nil || replayed {
				return result, replayErr
			}
		}
		logger.Warn("promotion vote initiation rejected",
			"event", "promotion_initiate_rejected",
			"module", "workforce/promotion-voting",
			"layer", "application",
			"applicant_id", applicant.EmployeeID,
			"current_position", applicant.CurrentPosition,
			"target_position", applicant.TargetPosition,
			"error", err.Error(),
		)
		return InitiateResult{}, err
	}
	voters, err := m.Eligibility.QualifiedVoters(ctx, applicant)
	if err != nil {
		return InitiateResult{}, err
	}

	proposalID, err := m.IDGen.NewID(ctx)
	if err != nil {
		return InitiateResult{}, err
	}
	currentPosition, _ := m.Eligibility.Hierarchy.Canonical(applicant.CurrentPosition)
	targetPosition, _ := m.Eligibility.Hierarchy.Canonical(applicant.TargetPosition)
	voterIDs := make([]string, 0, len(voters))
	for _, voter := range voters {
		voterIDs = append(voterIDs, voter.EmployeeID)
	}
	proposal := entities.Proposal{
		ProposalID:          proposalID,
		ApplicantID:         applicant.EmployeeID,
		ApplicantName:       strings.TrimSpace(cmd.ApplicantName),
		StoreName:           applicant.StoreName,
		CurrentPosition:     currentPosition,
		TargetPosition:      targetPosition,
		Reason:              strings.TrimSpace(cmd.Reason),
		InitiatorID:         strings.TrimSpace(cmd.InitiatorID),
		InitiatedAt:         now,
		Deadline:            now.Add(entities.VoteDuration(cmd.VoteDurationDays)),
		Status:              entities.ProposalStatusOpen,
		QualifiedVoterCount: len(voterIDs),
		QualifiedVoterIDs:   voterIDs,
		Version:             1,
	}

	eventID, err := m.IDGen.NewID(ctx)
	if err != nil {
		return InitiateResult{}, err
	}
	event, err := newPromotionEnvelope(eventID, EventProposalCreated, proposal.ProposalID, now, proposalCreatedData(proposal))
	if err != nil {
		return InitiateResult{}, err
	}
	var record *ports.IdempotencyRecord
	if keyed {
		record = &ports.IdempotencyRecord{
			Key:         key,
			RequestHash: requestHash,
			ProposalID:  proposal.ProposalID,
			ExpiresAt:   now.Add(m.resolveIdempotencyTTL()),
		}
	}
	if err := m.Proposals.CreateProposal(ctx, proposal, event, record); err != nil {
		// A concurrent request with the same key may have won the race.
		if keyed && (errors.Is(err, domainerrors.ErrDuplicateOpenProposal) ||
			errors.Is(err, domainerrors.ErrIdempotencyKeyConflict)) {
			result, replayed, replayErr := m.replayInitiate(ctx, key, requestHash, now)
			if replayErr != nil || replayed {
				return result, replayErr
			}
		}
		logger.Error("promotion vote create failed",
			"event", "promotion_initiate_create_failed",
			"module", "workforce/promotion-voting",
			"layer", "application",
			"proposal_id", proposal.ProposalID,
			"applicant_id", proposal.ApplicantID,
			"error", err.Error(),
		)
		return InitiateResult{}, err
	}

	application.ResolveMetrics(m.Metrics).ProposalCreated(proposal.StoreName)
	logger.Info("promotion vote initiated",
		"event", "promotion_initiate_completed",
		"module", "workforce/promotion-voting",
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"applicant_id", proposal.ApplicantID,
		"target_position", proposal.TargetPosition,
		"qualified_voter_count", proposal.QualifiedVoterCount,
		"deadline", proposal.Deadline,
	)
	return InitiateResult{Proposal: proposal}, nil
}

// replayInitiate returns the proposal stored under key when the key is live.
// The same key with a different request is a conflict.
func (m LifecycleManager) replayInitiate(ctx context.Context, key string, requestHash string, now time.Time) (InitiateResult, bool, error) {
	logger := application.ResolveLogger(m.Logger)
	record, found, err := m.Idempotency.Get(ctx, key, now)
	if err != nil {
		logger.Error("promotion vote idempotency lookup failed",
			"event", "promotion_initiate_idempotency_lookup_failed",
			"module", "workforce/promotion-voting",
			"layer", "application",
			"error", err.Error(),
		)
		return InitiateResult{}, false, err
	}
	if !found {
		return InitiateResult{}, false, nil
	}
	if record.RequestHash != requestHash {
		logger.Warn("promotion vote idempotency conflict",
			"event", "promotion_initiate_idempotency_conflict",
			"module", "workforce/promotion-voting",
			"layer", "application",
			"proposal_id", record.ProposalID,
		)
		return InitiateResult{}, false, domainerrors.ErrIdempotencyKeyConflict
	}
	proposal, err := m.Proposals.GetProposal(ctx, record.ProposalID)
	if err != nil {
		return InitiateResult{}, false, err
	}
	logger.Info("promotion vote initiation replayed",
		"event", "promotion_initiate_replayed",
		"module", "workforce/promotion-voting",
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"applicant_id", proposal.ApplicantID,
	)
	return InitiateResult{Proposal: proposal, Replayed: true}, true, nil
}
