package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "promovote/contexts/workforce/promotion-voting/application"
	"promovote/contexts/workforce/promotion-voting/domain/entities"
	domainerrors "promovote/contexts/workforce/promotion-voting/domain/errors"
	"promovote/contexts/workforce/promotion-voting/ports"
)

// Applicant is the creation-side subject of an eligibility decision.
type Applicant struct {
	EmployeeID      string
	StoreName       string
	CurrentPosition string
	TargetPosition  string
}

// Resolver decides who may open a proposal and who may vote on one.
type Resolver struct {
	Hierarchy entities.PositionHierarchy
	Proposals ports.ProposalRepository
	Directory ports.Directory
	Logger    *slog.Logger
}

// ResolveApplicant checks the applicant against the directory and returns the
// directory record. Store and position claimed by the caller must match it.
func (r Resolver) ResolveApplicant(ctx context.Context, applicant Applicant) (entities.Employee, error) {
	employee, err := r.Directory.GetEmployee(ctx, strings.TrimSpace(applicant.EmployeeID))
	if err != nil {
		if errors.Is(err, domainerrors.ErrEmployeeNotFound) {
			return entities.Employee{}, domainerrors.ErrApplicantNotFound
		}
		return entities.Employee{}, err
	}
	if !employee.Active {
		return entities.Employee{}, domainerrors.ErrApplicantNotFound
	}
	if !strings.EqualFold(strings.TrimSpace(employee.StoreName), strings.TrimSpace(applicant.StoreName)) {
		return entities.Employee{}, fmt.Errorf("%w: store_name does not match the applicant's store", domainerrors.ErrValidation)
	}
	if !r.samePosition(employee.Position, applicant.CurrentPosition) {
		return entities.Employee{}, fmt.Errorf("%w: current_position does not match the applicant's position", domainerrors.ErrValidation)
	}
	return employee, nil
}

// CanInitiate validates the promotion path and rejects applicants that already
// have an open proposal.
func (r Resolver) CanInitiate(ctx context.Context, applicant Applicant) error {
	if _, known := r.Hierarchy.Rank(applicant.CurrentPosition); !known {
		return domainerrors.ErrInvalidPromotionPath
	}
	next, ok := r.Hierarchy.Next(applicant.CurrentPosition)
	if !ok {
		return domainerrors.ErrTerminalPosition
	}
	if !r.samePosition(next, applicant.TargetPosition) {
		return domainerrors.ErrInvalidPromotionPath
	}
	_, open, err := r.Proposals.GetOpenProposalByApplicant(ctx, strings.TrimSpace(applicant.EmployeeID))
	if err != nil {
		return err
	}
	if open {
		return domainerrors.ErrDuplicateOpenProposal
	}
	return nil
}

// QualifiedVoters returns the active employees of the applicant's store whose
// position ranks at or above the applicant's current position, excluding the
// applicant, ordered by employee id.
func (r Resolver) QualifiedVoters(ctx context.Context, applicant Applicant) ([]entities.Employee, error) {
	applicantRank, ok := r.Hierarchy.Rank(applicant.CurrentPosition)
	if !ok {
		return nil, domainerrors.ErrInvalidPromotionPath
	}
	roster, err := r.Directory.ListStoreEmployees(ctx, strings.TrimSpace(applicant.StoreName))
	if err != nil {
		return nil, err
	}
	applicantID := strings.TrimSpace(applicant.EmployeeID)
	seen := make(map[string]struct{}, len(roster))
	voters := make([]entities.Employee, 0, len(roster))
	for _, employee := range roster {
		id := strings.TrimSpace(employee.EmployeeID)
		if id == "" || id == applicantID || !employee.Active {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		rank, known := r.Hierarchy.Rank(employee.Position)
		if !known || rank < applicantRank {
			continue
		}
		seen[id] = struct{}{}
		employee.EmployeeID = id
		voters = append(voters, employee)
	}
	if len(voters) == 0 {
		application.ResolveLogger(r.Logger).Info("no qualified voters for promotion",
			"event", "promotion_eligibility_no_qualified_voters",
			"module", "workforce/promotion-voting",
			"layer", "application",
			"applicant_id", applicantID,
			"store_name", strings.TrimSpace(applicant.StoreName),
		)
		return nil, domainerrors.ErrNoQualifiedVoters
	}
	sort.Slice(voters, func(i, j int) bool {
		return voters[i].EmployeeID < voters[j].EmployeeID
	})
	return voters, nil
}

// CanVote is the authoritative server-side ballot check. The deadline is
// checked against now, not only the stored status, so a vote arriving after
// the deadline is rejected even before the sweep finalizes the proposal.
func (r Resolver) CanVote(ctx context.Context, proposal entities.Proposal, voterID string, now time.Time) error {
	voterID = strings.TrimSpace(voterID)
	if voterID == proposal.ApplicantID {
		return domainerrors.ErrSelfVoteForbidden
	}
	if proposal.Status != entities.ProposalStatusOpen {
		return domainerrors.ErrProposalNotOpen
	}
	if proposal.DeadlineReached(now) {
		return domainerrors.ErrDeadlinePassed
	}
	if !proposal.IsQualifiedVoter(voterID) {
		return domainerrors.ErrNotQualified
	}
	voted, err := r.Proposals.HasVoted(ctx, proposal.ProposalID, voterID)
	if err != nil {
		return err
	}
	if voted {
		return domainerrors.ErrAlreadyVoted
	}
	return nil
}

func (r Resolver) samePosition(a string, b string) bool {
	rankA, okA := r.Hierarchy.Rank(a)
	rankB, okB := r.Hierarchy.Rank(b)
	if okA && okB {
		return rankA == rankB
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
