package retrying

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"promovote/contexts/workforce/promotion-voting/domain/entities"
	domainerrors "promovote/contexts/workforce/promotion-voting/domain/errors"
	"promovote/contexts/workforce/promotion-voting/ports"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds the retries of one gateway call.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Repository retries infrastructure failures of the wrapped gateway with
// exponential backoff. Business outcomes pass through on the first attempt.
// When attempts run out the caller gets ErrServiceUnavailable wrapping the
// last cause.
type Repository struct {
	next   ports.ProposalRepository
	policy Policy
	logger *slog.Logger
}

func NewRepository(next ports.ProposalRepository, policy Policy, logger *slog.Logger) *Repository {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = 50 * time.Millisecond
	}
	if policy.MaxInterval <= 0 {
		policy.MaxInterval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{next: next, policy: policy, logger: logger}
}

func (r *Repository) CreateProposal(ctx context.Context, proposal entities.Proposal, event ports.EventEnvelope, key *ports.IdempotencyRecord) error {
	failedBefore := false
	_, err := retry(ctx, r, "create_proposal", func() (struct{}, error) {
		err := r.next.CreateProposal(ctx, proposal, event, key)
		if err == nil {
			return struct{}{}, nil
		}
		if failedBefore && errors.Is(err, domainerrors.ErrConflict) {
			stored, lookupErr := r.next.GetProposal(ctx, proposal.ProposalID)
			if lookupErr != nil {
				return struct{}{}, lookupErr
			}
			if stored.ApplicantID == proposal.ApplicantID && stored.InitiatedAt.Equal(proposal.InitiatedAt) {
				return struct{}{}, nil
			}
		}
		if !domainerrors.IsBusiness(err) {
			failedBefore = true
		}
		return struct{}{}, err
	})
	return err
}

func (r *Repository) GetProposal(ctx context.Context, proposalID string) (entities.Proposal, error) {
	return retry(ctx, r, "get_proposal", func() (entities.Proposal, error) {
		return r.next.GetProposal(ctx, proposalID)
	})
}

func (r *Repository) GetOpenProposalByApplicant(ctx context.Context, applicantID string) (entities.Proposal, bool, error) {
	type found struct {
		proposal entities.Proposal
		ok       bool
	}
	result, err := retry(ctx, r, "get_open_proposal_by_applicant", func() (found, error) {
		proposal, ok, err := r.next.GetOpenProposalByApplicant(ctx, applicantID)
		return found{proposal: proposal, ok: ok}, err
	})
	return result.proposal, result.ok, err
}

func (r *Repository) HasVoted(ctx context.Context, proposalID string, voterID string) (bool, error) {
	return retry(ctx, r, "has_voted", func() (bool, error) {
		return r.next.HasVoted(ctx, proposalID, voterID)
	})
}

func (r *Repository) ListVotes(ctx context.Context, proposalID string) ([]entities.Vote, error) {
	return retry(ctx, r, "list_votes", func() ([]entities.Vote, error) {
		return r.next.ListVotes(ctx, proposalID)
	})
}

func (r *Repository) RecordVote(
	ctx context.Context,
	vote entities.Vote,
	now time.Time,
	event ports.EventEnvelope,
) (entities.Proposal, error) {
	failedBefore := false
	return retry(ctx, r, "record_vote", func() (entities.Proposal, error) {
		proposal, err := r.next.RecordVote(ctx, vote, now, event)
		if err == nil {
			return proposal, nil
		}
		if failedBefore && errors.Is(err, domainerrors.ErrAlreadyVoted) {
			// An earlier attempt may have committed before its error surfaced.
			committed, lookupErr := r.ballotCommitted(ctx, vote)
			if lookupErr != nil {
				return entities.Proposal{}, lookupErr
			}
			if committed {
				return r.next.GetProposal(ctx, vote.ProposalID)
			}
		}
		if !domainerrors.IsBusiness(err) {
			failedBefore = true
		}
		return proposal, err
	})
}

func (r *Repository) ballotCommitted(ctx context.Context, vote entities.Vote) (bool, error) {
	votes, err := r.next.ListVotes(ctx, vote.ProposalID)
	if err != nil {
		return false, err
	}
	for _, stored := range votes {
		if stored.VoterID == vote.VoterID {
			return stored.VoteID == vote.VoteID, nil
		}
	}
	return false, nil
}

func (r *Repository) ResolveProposal(
	ctx context.Context,
	proposalID string,
	resolvedAt time.Time,
	buildEvent func(entities.Proposal) (ports.EventEnvelope, error),
) (entities.Proposal, bool, error) {
	type resolution struct {
		proposal     entities.Proposal
		transitioned bool
	}
	result, err := retry(ctx, r, "resolve_proposal", func() (resolution, error) {
		proposal, transitioned, err := r.next.ResolveProposal(ctx, proposalID, resolvedAt, buildEvent)
		return resolution{proposal: proposal, transitioned: transitioned}, err
	})
	return result.proposal, result.transitioned, err
}

func (r *Repository) ListOverdueOpenProposals(ctx context.Context, now time.Time, after ports.OverdueCursor, limit int) ([]entities.Proposal, error) {
	return retry(ctx, r, "list_overdue_open_proposals", func() ([]entities.Proposal, error) {
		return r.next.ListOverdueOpenProposals(ctx, now, after, limit)
	})
}

func (r *Repository) ListOpenProposalsForEmployee(ctx context.Context, employeeID string) ([]entities.Proposal, error) {
	return retry(ctx, r, "list_open_proposals_for_employee", func() ([]entities.Proposal, error) {
		return r.next.ListOpenProposalsForEmployee(ctx, employeeID)
	})
}

func (r *Repository) ListTerminalProposals(ctx context.Context, filter ports.HistoryFilter) ([]entities.Proposal, error) {
	return retry(ctx, r, "list_terminal_proposals", func() ([]entities.Proposal, error) {
		return r.next.ListTerminalProposals(ctx, filter)
	})
}

func (r *Repository) backOff(ctx context.Context) backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = r.policy.InitialInterval
	exponential.MaxInterval = r.policy.MaxInterval
	exponential.MaxElapsedTime = 0
	return backoff.WithContext(
		backoff.WithMaxRetries(exponential, uint64(r.policy.MaxAttempts-1)),
		ctx,
	)
}

func retry[T any](ctx context.Context, r *Repository, operation string, fn func() (T, error)) (T, error) {
	attempt := 0
	value, err := backoff.RetryWithData(func() (T, error) {
		attempt++
		value, err := fn()
		if err == nil {
			return value, nil
		}
		if domainerrors.IsBusiness(err) || ctx.Err() != nil {
			return value, backoff.Permanent(err)
		}
		r.logger.Warn("promotion gateway call failed, retrying",
			"event", "promotion_gateway_retry",
			"module", "workforce/promotion-voting",
			"layer", "adapter",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"error", err.Error(),
		)
		return value, err
	}, r.backOff(ctx))
	if err == nil || domainerrors.IsBusiness(err) {
		return value, err
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return value, err
	}
	r.logger.Error("promotion gateway retries exhausted",
		"event", "promotion_gateway_retry_exhausted",
		"module", "workforce/promotion-voting",
		"layer", "adapter",
		"operation", operation,
		"attempts", attempt,
		"error", err.Error(),
	)
	var zero T
	return zero, fmt.Errorf("%w: %s: %w", domainerrors.ErrServiceUnavailable, operation, err)
}

var _ ports.ProposalRepository = (*Repository)(nil)
