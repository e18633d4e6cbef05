package postgresadapter

import (
	"strings"
	"time"

	"promovote/contexts/workforce/promotion-voting/domain/entities"
)

type proposalModel struct {
	ID                  string     `gorm:"column:id;primaryKey"`
	ApplicantID         string     `gorm:"column:applicant_id;index"`
	ApplicantName       string     `gorm:"column:applicant_name"`
	StoreName           string     `gorm:"column:store_name;index"`
	CurrentPosition     string     `gorm:"column:current_position"`
	TargetPosition      string     `gorm:"column:target_position"`
	Reason              string     `gorm:"column:reason"`
	InitiatorID         string     `gorm:"column:initiator_id"`
	InitiatedAt         time.Time  `gorm:"column:initiated_at"`
	Deadline            time.Time  `gorm:"column:deadline;index:idx_promotion_proposals_status_deadline,priority:2"`
	Status              string     `gorm:"column:status;index:idx_promotion_proposals_status_deadline,priority:1"`
	AgreeCount          int        `gorm:"column:agree_count"`
	DisagreeCount       int        `gorm:"column:disagree_count"`
	QualifiedVoterCount int        `gorm:"column:qualified_voter_count"`
	OpenApplicantKey    *string    `gorm:"column:open_applicant_key;uniqueIndex"`
	ResolvedAt          *time.Time `gorm:"column:resolved_at"`
	Version             int64      `gorm:"column:version"`
}

func (proposalModel) TableName() string {
	return "promotion_proposals"
}

func proposalModelFromEntity(proposal entities.Proposal) proposalModel {
	row := proposalModel{
		ID:                  strings.TrimSpace(proposal.ProposalID),
		ApplicantID:         strings.TrimSpace(proposal.ApplicantID),
		ApplicantName:       strings.TrimSpace(proposal.ApplicantName),
		StoreName:           strings.TrimSpace(proposal.StoreName),
		CurrentPosition:     strings.TrimSpace(proposal.CurrentPosition),
		TargetPosition:      strings.TrimSpace(proposal.TargetPosition),
		Reason:              strings.TrimSpace(proposal.Reason),
		InitiatorID:         strings.TrimSpace(proposal.InitiatorID),
		InitiatedAt:         proposal.InitiatedAt.UTC(),
		Deadline:            proposal.Deadline.UTC(),
		Status:              string(proposal.Status),
		AgreeCount:          proposal.AgreeCount,
		DisagreeCount:       proposal.DisagreeCount,
		QualifiedVoterCount: proposal.QualifiedVoterCount,
		ResolvedAt:          normalizeOptionalTime(proposal.ResolvedAt),
		Version:             proposal.Version,
	}
	if proposal.Status == entities.ProposalStatusOpen {
		key := row.ApplicantID
		row.OpenApplicantKey = &key
	}
	return row
}

func (m proposalModel) toEntity(voterIDs []string) entities.Proposal {
	return entities.Proposal{
		ProposalID:          m.ID,
		ApplicantID:         m.ApplicantID,
		ApplicantName:       m.ApplicantName,
		StoreName:           m.StoreName,
		CurrentPosition:     m.CurrentPosition,
		TargetPosition:      m.TargetPosition,
		Reason:              m.Reason,
		InitiatorID:         m.InitiatorID,
		InitiatedAt:         m.InitiatedAt.UTC(),
		Deadline:            m.Deadline.UTC(),
		Status:              entities.ProposalStatus(m.Status),
		AgreeCount:          m.AgreeCount,
		DisagreeCount:       m.DisagreeCount,
		QualifiedVoterCount: m.QualifiedVoterCount,
		QualifiedVoterIDs:   append([]string(nil), voterIDs...),
		ResolvedAt:          normalizeOptionalTime(m.ResolvedAt),
		Version:             m.Version,
	}
}

// qualifiedVoterModel is the frozen eligible pool of a proposal.
type qualifiedVoterModel struct {
	ProposalID string `gorm:"column:proposal_id;primaryKey"`
	VoterID    string `gorm:"column:voter_id;primaryKey;index"`
}

func (qualifiedVoterModel) TableName() string {
	return "promotion_qualified_voters"
}

type voteModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	ProposalID    string    `gorm:"column:proposal_id;uniqueIndex:idx_promotion_votes_proposal_voter,priority:1"`
	VoterID       string    `gorm:"column:voter_id;uniqueIndex:idx_promotion_votes_proposal_voter,priority:2"`
	VoterName     string    `gorm:"column:voter_name"`
	Choice        string    `gorm:"column:choice"`
	Comment       string    `gorm:"column:comment"`
	VoterPosition string    `gorm:"column:voter_position"`
	VoterStore    string    `gorm:"column:voter_store"`
	CastAt        time.Time `gorm:"column:cast_at"`
}

func (voteModel) TableName() string {
	return "promotion_votes"
}

func voteModelFromEntity(vote entities.Vote) voteModel {
	row := voteModel{
		ID:            strings.TrimSpace(vote.VoteID),
		ProposalID:    strings.TrimSpace(vote.ProposalID),
		VoterID:       strings.TrimSpace(vote.VoterID),
		VoterName:     strings.TrimSpace(vote.VoterName),
		Choice:        string(vote.Choice),
		Comment:       strings.TrimSpace(vote.Comment),
		VoterPosition: strings.TrimSpace(vote.VoterPosition),
		VoterStore:    strings.TrimSpace(vote.VoterStore),
		CastAt:        vote.CastAt.UTC(),
	}
	if row.CastAt.IsZero() {
		row.CastAt = time.Now().UTC()
	}
	return row
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		VoteID:        m.ID,
		ProposalID:    m.ProposalID,
		VoterID:       m.VoterID,
		VoterName:     m.VoterName,
		Choice:        entities.VoteChoice(m.Choice),
		Comment:       m.Comment,
		VoterPosition: m.VoterPosition,
		VoterStore:    m.VoterStore,
		CastAt:        m.CastAt.UTC(),
	}
}

// employeeModel is the local projection of the directory service roster.
type employeeModel struct {
	EmployeeID string `gorm:"column:employee_id;primaryKey"`
	Name       string `gorm:"column:name"`
	StoreName  string `gorm:"column:store_name;index"`
	Position   string `gorm:"column:position"`
	Active     bool   `gorm:"column:active"`
}

func (employeeModel) TableName() string {
	return "employees"
}

func (m employeeModel) toEntity() entities.Employee {
	return entities.Employee{
		EmployeeID: m.EmployeeID,
		Name:       m.Name,
		StoreName:  m.StoreName,
		Position:   m.Position,
		Active:     m.Active,
	}
}

type idempotencyModel struct {
	Key         string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	ProposalID  string    `gorm:"column:proposal_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "promotion_idempotency"
}

type outboxModel struct {
	Sequence     int64      `gorm:"column:sequence;primaryKey;autoIncrement"`
	OutboxID     string     `gorm:"column:outbox_id;uniqueIndex"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "promotion_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "promotion_event_dedup"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
