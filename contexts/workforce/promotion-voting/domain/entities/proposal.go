package entities

import "time"

type ProposalStatus string

const (
	ProposalStatusOpen    ProposalStatus = "open"
	ProposalStatusPassed  ProposalStatus = "passed"
	ProposalStatusFailed  ProposalStatus = "failed"
	ProposalStatusExpired ProposalStatus = "expired"
)

func (s ProposalStatus) Terminal() bool {
	switch s {
	case ProposalStatusPassed, ProposalStatusFailed, ProposalStatusExpired:
		return true
	default:
		return false
	}
}

const (
	MinReasonLength   = 10
	MaxReasonLength   = 500
	MaxCommentLength  = 500
	MinVoteDuration   = 1
	MaxVoteDuration   = 30
	voteDurationUnits = 24 * time.Hour
)

// VoteDuration converts a day count into the proposal's voting window.
func VoteDuration(days int) time.Duration {
	return time.Duration(days) * voteDurationUnits
}

// Proposal is a single promotion vote for one applicant and one position step.
// QualifiedVoterIDs is the eligible pool frozen at creation; its size is the
// quorum denominator for the proposal's lifetime.
type Proposal struct {
	ProposalID          string
	ApplicantID         string
	ApplicantName       string
	StoreName           string
	CurrentPosition     string
	TargetPosition      string
	Reason              string
	InitiatorID         string
	InitiatedAt         time.Time
	Deadline            time.Time
	Status              ProposalStatus
	AgreeCount          int
	DisagreeCount       int
	QualifiedVoterCount int
	QualifiedVoterIDs   []string
	ResolvedAt          *time.Time
	Version             int64
}

func (p Proposal) VotesCast() int {
	return p.AgreeCount + p.DisagreeCount
}

func (p Proposal) DeadlineReached(now time.Time) bool {
	return !now.Before(p.Deadline)
}

func (p Proposal) IsQualifiedVoter(voterID string) bool {
	for _, id := range p.QualifiedVoterIDs {
		if id == voterID {
			return true
		}
	}
	return false
}

// Evaluate reports the status the proposal should hold at now and whether that
// differs from its stored status. Terminal proposals always evaluate to
// themselves.
//
// Passed requires a strict majority of the qualified pool. Failed is reached
// early once Agree can no longer reach that majority even if every remaining
// qualified voter agrees, or at the deadline otherwise. A deadline with no
// votes at all resolves to Expired.
func (p Proposal) Evaluate(now time.Time) (ProposalStatus, bool) {
	if p.Status.Terminal() {
		return p.Status, false
	}
	if p.AgreeCount*2 > p.QualifiedVoterCount {
		return ProposalStatusPassed, true
	}
	remaining := p.QualifiedVoterCount - p.VotesCast()
	if remaining < 0 {
		remaining = 0
	}
	if p.VotesCast() > 0 && (p.AgreeCount+remaining)*2 <= p.QualifiedVoterCount {
		return ProposalStatusFailed, true
	}
	if p.DeadlineReached(now) {
		if p.VotesCast() == 0 {
			return ProposalStatusExpired, true
		}
		return ProposalStatusFailed, true
	}
	return ProposalStatusOpen, false
}
