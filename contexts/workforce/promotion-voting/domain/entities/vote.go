package entities

import "time"

type VoteChoice string

const (
	VoteChoiceAgree    VoteChoice = "agree"
	VoteChoiceDisagree VoteChoice = "disagree"
)

func (c VoteChoice) Valid() bool {
	return c == VoteChoiceAgree || c == VoteChoiceDisagree
}

// Vote is an append-only ballot. There is at most one per (ProposalID, VoterID)
// and it is never edited or retracted.
type Vote struct {
	VoteID        string
	ProposalID    string
	VoterID       string
	VoterName     string
	Choice        VoteChoice
	Comment       string
	VoterPosition string
	VoterStore    string
	CastAt        time.Time
}
