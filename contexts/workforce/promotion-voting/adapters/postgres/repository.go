package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"promovote/contexts/workforce/promotion-voting/domain/entities"
	domainerrors "promovote/contexts/workforce/promotion-voting/domain/errors"
	"promovote/contexts/workforce/promotion-voting/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the gorm persistence gateway. It runs against PostgreSQL in
// production and SQLite for local runs and tests. Every mutating call is a
// single transaction; on PostgreSQL the proposal row is locked FOR UPDATE so
// concurrent ballots on one proposal serialize on that row.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateProposal(ctx context.Context, proposal entities.Proposal, event ports.EventEnvelope, key *ports.IdempotencyRecord) error {
	row := proposalModelFromEntity(proposal)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Only an id collision is absorbed here; the open-applicant index
		// still raises.
		create := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&row)
		if create.Error != nil {
			if isUniqueViolation(create.Error) {
				return domainerrors.ErrDuplicateOpenProposal
			}
			return create.Error
		}
		if create.RowsAffected == 0 {
			return domainerrors.ErrConflict
		}
		voters := make([]qualifiedVoterModel, 0, len(proposal.QualifiedVoterIDs))
		for _, voterID := range proposal.QualifiedVoterIDs {
			voters = append(voters, qualifiedVoterModel{
				ProposalID: row.ID,
				VoterID:    strings.TrimSpace(voterID),
			})
		}
		if len(voters) > 0 {
			if err := tx.CreateInBatches(voters, 200).Error; err != nil {
				return err
			}
		}
		if key != nil {
			if err := storeIdempotencyKey(tx, *key, proposal.InitiatedAt); err != nil {
				return err
			}
		}
		return appendOutbox(tx, event)
	})
	if err != nil {
		if domainerrors.IsBusiness(err) {
			return err
		}
		return r.logError("promotion_repo_create_proposal_failed", err,
			"proposal_id", row.ID,
			"applicant_id", row.ApplicantID,
		)
	}
	return nil
}

func (r *Repository) GetProposal(ctx context.Context, proposalID string) (entities.Proposal, error) {
	proposalID = strings.TrimSpace(proposalID)
	var row proposalModel
	if err := r.db.WithContext(ctx).Where("id = ?", proposalID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, domainerrors.ErrNotFound
		}
		return entities.Proposal{}, r.logError("promotion_repo_get_proposal_failed", err, "proposal_id", proposalID)
	}
	voters, err := loadQualifiedVoters(r.db.WithContext(ctx), []string{row.ID})
	if err != nil {
		return entities.Proposal{}, r.logError("promotion_repo_get_qualified_voters_failed", err, "proposal_id", proposalID)
	}
	return row.toEntity(voters[row.ID]), nil
}

func (r *Repository) GetOpenProposalByApplicant(ctx context.Context, applicantID string) (entities.Proposal, bool, error) {
	applicantID = strings.TrimSpace(applicantID)
	var row proposalModel
	err := r.db.WithContext(ctx).
		Where("open_applicant_key = ?", applicantID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, false, nil
		}
		return entities.Proposal{}, false, r.logError("promotion_repo_get_open_by_applicant_failed", err,
			"applicant_id", applicantID,
		)
	}
	voters, err := loadQualifiedVoters(r.db.WithContext(ctx), []string{row.ID})
	if err != nil {
		return entities.Proposal{}, false, r.logError("promotion_repo_get_qualified_voters_failed", err, "proposal_id", row.ID)
	}
	return row.toEntity(voters[row.ID]), true, nil
}

func (r *Repository) HasVoted(ctx context.Context, proposalID string, voterID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("proposal_id = ? AND voter_id = ?", strings.TrimSpace(proposalID), strings.TrimSpace(voterID)).
		Count(&count).Error; err != nil {
		return false, r.logError("promotion_repo_has_voted_failed", err,
			"proposal_id", strings.TrimSpace(proposalID),
			"voter_id", strings.TrimSpace(voterID),
		)
	}
	return count > 0, nil
}

func (r *Repository) ListVotes(ctx context.Context, proposalID string) ([]entities.Vote, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Where("proposal_id = ?", strings.TrimSpace(proposalID)).
		Order("cast_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("promotion_repo_list_votes_failed", err, "proposal_id", strings.TrimSpace(proposalID))
	}
	items := make([]entities.Vote, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// RecordVote is the atomic tally primitive. The unique (proposal_id, voter_id)
// index is the duplicate gate and the counter increment is conditional on the
// proposal still being open, both inside one transaction.
func (r *Repository) RecordVote(
	ctx context.Context,
	vote entities.Vote,
	now time.Time,
	event ports.EventEnvelope,
) (entities.Proposal, error) {
	column, err := counterColumn(vote.Choice)
	if err != nil {
		return entities.Proposal{}, err
	}
	ballot := voteModelFromEntity(vote)
	var updated entities.Proposal
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row proposalModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", ballot.ProposalID).
			First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrNotFound
			}
			return err
		}
		if row.Status != string(entities.ProposalStatusOpen) {
			return domainerrors.ErrProposalNotOpen
		}
		if !now.Before(row.Deadline) {
			return domainerrors.ErrDeadlinePassed
		}

		var qualified int64
		if err := tx.Model(&qualifiedVoterModel{}).
			Where("proposal_id = ? AND voter_id = ?", ballot.ProposalID, ballot.VoterID).
			Count(&qualified).Error; err != nil {
			return err
		}
		if qualified == 0 {
			return domainerrors.ErrNotQualified
		}

		if err := tx.Create(&ballot).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrAlreadyVoted
			}
			return err
		}
		result := tx.Model(&proposalModel{}).
			Where("id = ? AND status = ?", ballot.ProposalID, string(entities.ProposalStatusOpen)).
			Updates(map[string]any{
				column:    gorm.Expr(column + " + 1"),
				"version": gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrProposalNotOpen
		}
		if err := appendOutbox(tx, event); err != nil {
			return err
		}

		if err := tx.Where("id = ?", ballot.ProposalID).First(&row).Error; err != nil {
			return err
		}
		voters, err := loadQualifiedVoters(tx, []string{row.ID})
		if err != nil {
			return err
		}
		updated = row.toEntity(voters[row.ID])
		return nil
	})
	if err != nil {
		if domainerrors.IsBusiness(err) {
			return entities.Proposal{}, err
		}
		return entities.Proposal{}, r.logError("promotion_repo_record_vote_failed", err,
			"proposal_id", ballot.ProposalID,
			"voter_id", ballot.VoterID,
		)
	}
	return updated, nil
}

// ResolveProposal evaluates the locked row and flips status with a
// compare-and-set on status = open. Losing that race is reported as
// transitioned=false, never as an error.
func (r *Repository) ResolveProposal(
	ctx context.Context,
	proposalID string,
	resolvedAt time.Time,
	buildEvent func(entities.Proposal) (ports.EventEnvelope, error),
) (entities.Proposal, bool, error) {
	proposalID = strings.TrimSpace(proposalID)
	var (
		result       entities.Proposal
		transitioned bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row proposalModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", proposalID).
			First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrNotFound
			}
			return err
		}
		voters, err := loadQualifiedVoters(tx, []string{row.ID})
		if err != nil {
			return err
		}
		current := row.toEntity(voters[row.ID])
		status, decided := current.Evaluate(resolvedAt)
		if !decided {
			result = current
			return nil
		}

		at := resolvedAt.UTC()
		update := tx.Model(&proposalModel{}).
			Where("id = ? AND status = ?", row.ID, string(entities.ProposalStatusOpen)).
			Updates(map[string]any{
				"status":             string(status),
				"resolved_at":        at,
				"open_applicant_key": nil,
				"version":            gorm.Expr("version + 1"),
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			if err := tx.Where("id = ?", row.ID).First(&row).Error; err != nil {
				return err
			}
			result = row.toEntity(voters[row.ID])
			return nil
		}

		resolved := current
		resolved.Status = status
		resolved.ResolvedAt = &at
		resolved.Version++
		event, err := buildEvent(resolved)
		if err != nil {
			return err
		}
		if err := appendOutbox(tx, event); err != nil {
			return err
		}
		result = resolved
		transitioned = true
		return nil
	})
	if err != nil {
		if domainerrors.IsBusiness(err) {
			return entities.Proposal{}, false, err
		}
		return entities.Proposal{}, false, r.logError("promotion_repo_resolve_proposal_failed", err,
			"proposal_id", proposalID,
		)
	}
	return result, transitioned, nil
}

func (r *Repository) ListOverdueOpenProposals(ctx context.Context, now time.Time, after ports.OverdueCursor, limit int) ([]entities.Proposal, error) {
	if limit <= 0 {
		limit = 100
	}
	query := r.db.WithContext(ctx).
		Where("status = ? AND deadline <= ?", string(entities.ProposalStatusOpen), now.UTC())
	if !after.IsZero() {
		deadline := after.Deadline.UTC()
		query = query.Where("(deadline > ? OR (deadline = ? AND id > ?))", deadline, deadline, after.ProposalID)
	}
	var rows []proposalModel
	if err := query.
		Order("deadline ASC, id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("promotion_repo_list_overdue_failed", err, "limit", limit)
	}
	return r.hydrate(ctx, rows, "promotion_repo_list_overdue_voters_failed")
}

func (r *Repository) ListOpenProposalsForEmployee(ctx context.Context, employeeID string) ([]entities.Proposal, error) {
	employeeID = strings.TrimSpace(employeeID)
	pool := r.db.WithContext(ctx).
		Model(&qualifiedVoterModel{}).
		Select("proposal_id").
		Where("voter_id = ?", employeeID)
	var rows []proposalModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.ProposalStatusOpen)).
		Where(r.db.Where("applicant_id = ?", employeeID).Or("id IN (?)", pool)).
		Order("deadline ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("promotion_repo_list_open_for_employee_failed", err, "employee_id", employeeID)
	}
	return r.hydrate(ctx, rows, "promotion_repo_list_open_for_employee_voters_failed")
}

func (r *Repository) ListTerminalProposals(ctx context.Context, filter ports.HistoryFilter) ([]entities.Proposal, error) {
	tx := r.db.WithContext(ctx).
		Model(&proposalModel{}).
		Where("status IN ?", []string{
			string(entities.ProposalStatusPassed),
			string(entities.ProposalStatusFailed),
			string(entities.ProposalStatusExpired),
		})
	if storeName := strings.TrimSpace(filter.StoreName); storeName != "" {
		tx = tx.Where("LOWER(store_name) = LOWER(?)", storeName)
	}
	if employeeID := strings.TrimSpace(filter.EmployeeID); employeeID != "" {
		pool := r.db.WithContext(ctx).
			Model(&qualifiedVoterModel{}).
			Select("proposal_id").
			Where("voter_id = ?", employeeID)
		tx = tx.Where(r.db.Where("applicant_id = ?", employeeID).Or("id IN (?)", pool))
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}
	var rows []proposalModel
	if err := tx.Order("resolved_at DESC, id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("promotion_repo_list_terminal_failed", err,
			"employee_id", strings.TrimSpace(filter.EmployeeID),
			"store_name", strings.TrimSpace(filter.StoreName),
		)
	}
	return r.hydrate(ctx, rows, "promotion_repo_list_terminal_voters_failed")
}

func (r *Repository) hydrate(ctx context.Context, rows []proposalModel, failureEvent string) ([]entities.Proposal, error) {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	voters, err := loadQualifiedVoters(r.db.WithContext(ctx), ids)
	if err != nil {
		return nil, r.logError(failureEvent, err, "proposal_count", len(ids))
	}
	items := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity(voters[row.ID]))
	}
	return items, nil
}

func loadQualifiedVoters(tx *gorm.DB, proposalIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(proposalIDs))
	if len(proposalIDs) == 0 {
		return out, nil
	}
	var rows []qualifiedVoterModel
	if err := tx.
		Where("proposal_id IN ?", proposalIDs).
		Order("proposal_id ASC, voter_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ProposalID] = append(out[row.ProposalID], row.VoterID)
	}
	return out, nil
}

func counterColumn(choice entities.VoteChoice) (string, error) {
	switch choice {
	case entities.VoteChoiceAgree:
		return "agree_count", nil
	case entities.VoteChoiceDisagree:
		return "disagree_count", nil
	default:
		return "", domainerrors.ErrValidation
	}
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "workforce/promotion-voting",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("promotion repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ ports.ProposalRepository = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
var _ ports.Directory = (*Repository)(nil)
