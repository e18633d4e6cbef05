package httpadapter

import (
	"context"
	"log/slog"

	"promovote/contexts/workforce/promotion-voting/application/commands"
	"promovote/contexts/workforce/promotion-voting/application/queries"
	"promovote/contexts/workforce/promotion-voting/domain/entities"
	httptransport "promovote/contexts/workforce/promotion-voting/transport/http"
)

type Handler struct {
	Lifecycle commands.LifecycleManager
	Queries   queries.ProposalQueries
	Logger    *slog.Logger
}

func (h Handler) InitiatePromotionVoteHandler(
	ctx context.Context,
	initiatorID string,
	idempotencyKey string,
	req httptransport.InitiatePromotionVoteRequest,
) (httptransport.InitiatePromotionVoteResponse, error) {
	result, err := h.Lifecycle.Initiate(ctx, commands.InitiateCommand{
		InitiatorID:      initiatorID,
		IdempotencyKey:   idempotencyKey,
		ApplicantID:      req.ApplicantID,
		ApplicantName:    req.ApplicantName,
		StoreName:        req.StoreName,
		CurrentPosition:  req.CurrentPosition,
		TargetPosition:   req.TargetPosition,
		Reason:           req.Reason,
		VoteDurationDays: req.VoteDurationDays,
	})
	if err != nil {
		return httptransport.InitiatePromotionVoteResponse{}, err
	}
	return httptransport.InitiatePromotionVoteResponse{
		Proposal: mapProposal(result.Proposal),
		Replayed: result.Replayed,
	}, nil
}

func (h Handler) ActivePromotionVotesHandler(ctx context.Context, employeeID string) (httptransport.ActivePromotionVotesResponse, error) {
	items, err := h.Queries.Active(ctx, employeeID)
	if err != nil {
		return httptransport.ActivePromotionVotesResponse{}, err
	}
	out := make([]httptransport.ActivePromotionVote, 0, len(items))
	for _, item := range items {
		out = append(out, httptransport.ActivePromotionVote{
			ProposalSummary: mapProposal(item.Proposal),
			HasVoted:        item.HasVoted,
			CanVote:         item.CanVote,
		})
	}
	return httptransport.ActivePromotionVotesResponse{Items: out}, nil
}

func (h Handler) PromotionVoteHandler(ctx context.Context, proposalID string) (httptransport.PromotionVoteDetailResponse, error) {
	detail, err := h.Queries.Get(ctx, proposalID)
	if err != nil {
		return httptransport.PromotionVoteDetailResponse{}, err
	}
	votes := make([]httptransport.VoteItem, 0, len(detail.Votes))
	for _, vote := range detail.Votes {
		votes = append(votes, httptransport.VoteItem{
			VoteID:        vote.VoteID,
			VoterID:       vote.VoterID,
			VoterName:     vote.VoterName,
			Choice:        string(vote.Choice),
			Comment:       vote.Comment,
			VoterPosition: vote.VoterPosition,
			VoterStore:    vote.VoterStore,
			CastAt:        vote.CastAt,
		})
	}
	return httptransport.PromotionVoteDetailResponse{
		Proposal: mapProposal(detail.Proposal),
		Votes:    votes,
	}, nil
}

func (h Handler) SubmitVoteHandler(
	ctx context.Context,
	voterID string,
	proposalID string,
	req httptransport.SubmitVoteRequest,
) (httptransport.SubmitVoteResponse, error) {
	result, err := h.Lifecycle.SubmitVote(ctx, commands.SubmitVoteCommand{
		ProposalID:    proposalID,
		VoterID:       voterID,
		VoterName:     req.VoterName,
		Choice:        entities.VoteChoice(req.Choice),
		Comment:       req.Comment,
		VoterPosition: req.VoterPosition,
		VoterStore:    req.VoterStore,
	})
	if err != nil {
		return httptransport.SubmitVoteResponse{}, err
	}
	return httptransport.SubmitVoteResponse{
		ProposalID:          result.Proposal.ProposalID,
		VoteID:              result.Vote.VoteID,
		Status:              string(result.Proposal.Status),
		AgreeCount:          result.Proposal.AgreeCount,
		DisagreeCount:       result.Proposal.DisagreeCount,
		QualifiedVoterCount: result.Proposal.QualifiedVoterCount,
		Resolved:            result.Resolved,
	}, nil
}

func (h Handler) VoteHistoryHandler(ctx context.Context, employeeID string, storeName string) (httptransport.VoteHistoryResponse, error) {
	items, err := h.Queries.History(ctx, employeeID, storeName)
	if err != nil {
		return httptransport.VoteHistoryResponse{}, err
	}
	out := make([]httptransport.ProposalSummary, 0, len(items))
	for _, item := range items {
		out = append(out, mapProposal(item))
	}
	return httptransport.VoteHistoryResponse{Items: out}, nil
}

func mapProposal(proposal entities.Proposal) httptransport.ProposalSummary {
	return httptransport.ProposalSummary{
		ProposalID:          proposal.ProposalID,
		ApplicantID:         proposal.ApplicantID,
		ApplicantName:       proposal.ApplicantName,
		StoreName:           proposal.StoreName,
		CurrentPosition:     proposal.CurrentPosition,
		TargetPosition:      proposal.TargetPosition,
		Reason:              proposal.Reason,
		InitiatorID:         proposal.InitiatorID,
		Status:              string(proposal.Status),
		AgreeCount:          proposal.AgreeCount,
		DisagreeCount:       proposal.DisagreeCount,
		QualifiedVoterCount: proposal.QualifiedVoterCount,
		InitiatedAt:         proposal.InitiatedAt,
		Deadline:            proposal.Deadline,
		ResolvedAt:          proposal.ResolvedAt,
	}
}
