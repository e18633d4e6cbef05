package commands

import (
	"encoding/json"
	"time"

	"promovote/contexts/workforce/promotion-voting/domain/entities"
	"promovote/contexts/workforce/promotion-voting/ports"
)

const (
	EventProposalCreated  = "promotion_vote.created"
	EventVoteCast         = "promotion_vote.vote_cast"
	EventProposalResolved = "promotion_vote.resolved"
)

func newPromotionEnvelope(
	eventID string,
	eventType string,
	proposalID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Partitioned by proposal so created, vote_cast and resolved keep their
	// relative order for proposal-scoped consumers.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "promotion-voting",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "proposal_id",
		PartitionKey:     proposalID,
		Data:             payload,
	}, nil
}

func proposalCreatedData(proposal entities.Proposal) map[string]any {
	return map[string]any{
		"proposal_id":           proposal.ProposalID,
		"applicant_id":          proposal.ApplicantID,
		"applicant_name":        proposal.ApplicantName,
		"store_name":            proposal.StoreName,
		"current_position":      proposal.CurrentPosition,
		"target_position":       proposal.TargetPosition,
		"initiator_id":          proposal.InitiatorID,
		"qualified_voter_count": proposal.QualifiedVoterCount,
		"deadline":              proposal.Deadline.UTC(),
		"initiated_at":          proposal.InitiatedAt.UTC(),
	}
}

func voteCastData(vote entities.Vote) map[string]any {
	return map[string]any{
		"vote_id":     vote.VoteID,
		"proposal_id": vote.ProposalID,
		"voter_id":    vote.VoterID,
		"choice":      string(vote.Choice),
		"cast_at":     vote.CastAt.UTC(),
	}
}

func proposalResolvedData(proposal entities.Proposal) map[string]any {
	data := map[string]any{
		"proposal_id":           proposal.ProposalID,
		"applicant_id":          proposal.ApplicantID,
		"applicant_name":        proposal.ApplicantName,
		"store_name":            proposal.StoreName,
		"current_position":      proposal.CurrentPosition,
		"target_position":       proposal.TargetPosition,
		"status":                string(proposal.Status),
		"agree_count":           proposal.AgreeCount,
		"disagree_count":        proposal.DisagreeCount,
		"qualified_voter_count": proposal.QualifiedVoterCount,
	}
	if proposal.ResolvedAt != nil {
		data["resolved_at"] = proposal.ResolvedAt.UTC()
	}
	return data
}
