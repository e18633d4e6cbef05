package queries

import (
	"context"
	"sort"
	"strings"
	"time"

	"promovote/contexts/workforce/promotion-voting/domain/entities"
	domainerrors "promovote/contexts/workforce/promotion-voting/domain/errors"
	"promovote/contexts/workforce/promotion-voting/ports"
)

const defaultHistoryLimit = 100

// ActiveProposal is an open proposal as seen by one employee.
type ActiveProposal struct {
	Proposal entities.Proposal
	HasVoted bool
	CanVote  bool
}

type ProposalDetail struct {
	Proposal entities.Proposal
	Votes    []entities.Vote
}

type ProposalQueries struct {
	Proposals    ports.ProposalRepository
	Clock        ports.Clock
	HistoryLimit int
}

// Active lists the open proposals the employee is the applicant of or may
// vote on. Proposals past their deadline are hidden even if the sweep has not
// finalized them yet.
func (q ProposalQueries) Active(ctx context.Context, employeeID string) ([]ActiveProposal, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return []ActiveProposal{}, nil
	}
	now := q.now()
	proposals, err := q.Proposals.ListOpenProposalsForEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	items := make([]ActiveProposal, 0, len(proposals))
	for _, proposal := range proposals {
		if proposal.Status != entities.ProposalStatusOpen || proposal.DeadlineReached(now) {
			continue
		}
		item := ActiveProposal{Proposal: proposal}
		if proposal.ApplicantID != employeeID {
			voted, err := q.Proposals.HasVoted(ctx, proposal.ProposalID, employeeID)
			if err != nil {
				return nil, err
			}
			item.HasVoted = voted
			item.CanVote = !voted && proposal.IsQualifiedVoter(employeeID)
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Proposal.Deadline.Before(items[j].Proposal.Deadline)
	})
	return items, nil
}

// Get returns the proposal with its live counts and the ballots cast so far.
func (q ProposalQueries) Get(ctx context.Context, proposalID string) (ProposalDetail, error) {
	proposalID = strings.TrimSpace(proposalID)
	if proposalID == "" {
		return ProposalDetail{}, domainerrors.ErrNotFound
	}
	proposal, err := q.Proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return ProposalDetail{}, err
	}
	votes, err := q.Proposals.ListVotes(ctx, proposalID)
	if err != nil {
		return ProposalDetail{}, err
	}
	return ProposalDetail{Proposal: proposal, Votes: votes}, nil
}

// History lists terminal proposals involving the employee, newest first. An
// empty store name matches every store.
func (q ProposalQueries) History(ctx context.Context, employeeID string, storeName string) ([]entities.Proposal, error) {
	limit := q.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	items, err := q.Proposals.ListTerminalProposals(ctx, ports.HistoryFilter{
		EmployeeID: strings.TrimSpace(employeeID),
		StoreName:  strings.TrimSpace(storeName),
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return resolvedAt(items[i]).After(resolvedAt(items[j]))
	})
	return items, nil
}

func (q ProposalQueries) now() time.Time {
	if q.Clock == nil {
		return time.Now().UTC()
	}
	return q.Clock.Now().UTC()
}

func resolvedAt(proposal entities.Proposal) time.Time {
	if proposal.ResolvedAt != nil {
		return *proposal.ResolvedAt
	}
	return proposal.Deadline
}
