package errors

import "errors"

var (
	ErrValidation             = errors.New("validation error")
	ErrInvalidPromotionPath   = errors.New("target position is not the next level for the current position")
	ErrTerminalPosition       = errors.New("current position has no promotion target")
	ErrDuplicateOpenProposal  = errors.New("applicant already has an active promotion vote")
	ErrNoQualifiedVoters      = errors.New("no qualified voters in store")
	ErrApplicantNotFound      = errors.New("applicant not found in directory")
	ErrEmployeeNotFound       = errors.New("employee not found in directory")
	ErrNotFound               = errors.New("promotion vote not found")
	ErrSelfVoteForbidden      = errors.New("applicants cannot vote on their own promotion")
	ErrAlreadyVoted           = errors.New("you have already voted")
	ErrNotQualified           = errors.New("voter is not qualified for this promotion vote")
	ErrProposalNotOpen        = errors.New("promotion vote is not open")
	ErrDeadlinePassed         = errors.New("promotion vote deadline has passed")
	ErrIdempotencyKeyConflict = errors.New("idempotency key conflict")
	ErrConflict               = errors.New("promotion vote conflict")
	ErrServiceUnavailable     = errors.New("service unavailable")
)

// IsBusiness reports whether err is a routine outcome of the voting process
// rather than an infrastructure failure. Business errors are never retried.
func IsBusiness(err error) bool {
	for _, target := range []error{
		ErrValidation,
		ErrInvalidPromotionPath,
		ErrTerminalPosition,
		ErrDuplicateOpenProposal,
		ErrNoQualifiedVoters,
		ErrApplicantNotFound,
		ErrEmployeeNotFound,
		ErrNotFound,
		ErrSelfVoteForbidden,
		ErrAlreadyVoted,
		ErrNotQualified,
		ErrProposalNotOpen,
		ErrDeadlinePassed,
		ErrIdempotencyKeyConflict,
		ErrConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
