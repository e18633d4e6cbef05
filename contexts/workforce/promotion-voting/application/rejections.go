package application

import (
	"errors"

	domainerrors "promovote/contexts/workforce/promotion-voting/domain/errors"
)

// RejectionReason is the metric label for a ballot that was not counted.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, domainerrors.ErrValidation):
		return "validation"
	case errors.Is(err, domainerrors.ErrSelfVoteForbidden):
		return "self_vote"
	case errors.Is(err, domainerrors.ErrNotQualified):
		return "not_qualified"
	case errors.Is(err, domainerrors.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, domainerrors.ErrProposalNotOpen):
		return "proposal_not_open"
	case errors.Is(err, domainerrors.ErrDeadlinePassed):
		return "deadline_passed"
	case errors.Is(err, domainerrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, domainerrors.ErrServiceUnavailable):
		return "service_unavailable"
	default:
		return "internal"
	}
}
