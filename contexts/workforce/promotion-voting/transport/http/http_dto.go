package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type InitiatePromotionVoteRequest struct {
	ApplicantID      string `json:"applicant_id"`
	ApplicantName    string `json:"applicant_name"`
	StoreName        string `json:"store_name"`
	CurrentPosition  string `json:"current_position"`
	TargetPosition   string `json:"target_position"`
	Reason           string `json:"reason"`
	VoteDurationDays int    `json:"vote_duration_days"`
}

type SubmitVoteRequest struct {
	VoterName     string `json:"voter_name"`
	Choice        string `json:"choice"`
	Comment       string `json:"comment,omitempty"`
	VoterPosition string `json:"voter_position,omitempty"`
	VoterStore    string `json:"voter_store,omitempty"`
}

type ProposalSummary struct {
	ProposalID          string     `json:"proposal_id"`
	ApplicantID         string     `json:"applicant_id"`
	ApplicantName       string     `json:"applicant_name"`
	StoreName           string     `json:"store_name"`
	CurrentPosition     string     `json:"current_position"`
	TargetPosition      string     `json:"target_position"`
	Reason              string     `json:"reason"`
	InitiatorID         string     `json:"initiator_id"`
	Status              string     `json:"status"`
	AgreeCount          int        `json:"agree_count"`
	DisagreeCount       int        `json:"disagree_count"`
	QualifiedVoterCount int        `json:"qualified_voter_count"`
	InitiatedAt         time.Time  `json:"initiated_at"`
	Deadline            time.Time  `json:"deadline"`
	ResolvedAt          *time.Time `json:"resolved_at,omitempty"`
}

type InitiatePromotionVoteResponse struct {
	Proposal ProposalSummary `json:"proposal"`
	Replayed bool            `json:"replayed"`
}

type ActivePromotionVote struct {
	ProposalSummary
	HasVoted bool `json:"has_voted"`
	CanVote  bool `json:"can_vote"`
}

type ActivePromotionVotesResponse struct {
	Items []ActivePromotionVote `json:"items"`
}

type VoteItem struct {
	VoteID        string    `json:"vote_id"`
	VoterID       string    `json:"voter_id"`
	VoterName     string    `json:"voter_name"`
	Choice        string    `json:"choice"`
	Comment       string    `json:"comment,omitempty"`
	VoterPosition string    `json:"voter_position,omitempty"`
	VoterStore    string    `json:"voter_store,omitempty"`
	CastAt        time.Time `json:"cast_at"`
}

type PromotionVoteDetailResponse struct {
	Proposal ProposalSummary `json:"proposal"`
	Votes    []VoteItem      `json:"votes"`
}

type SubmitVoteResponse struct {
	ProposalID          string `json:"proposal_id"`
	VoteID              string `json:"vote_id"`
	Status              string `json:"status"`
	AgreeCount          int    `json:"agree_count"`
	DisagreeCount       int    `json:"disagree_count"`
	QualifiedVoterCount int    `json:"qualified_voter_count"`
	Resolved            bool   `json:"resolved"`
}

type VoteHistoryResponse struct {
	Items []ProposalSummary `json:"items"`
}
