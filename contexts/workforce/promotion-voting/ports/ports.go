package ports

import (
	"context"
	"time"

	"promovote/contexts/workforce/promotion-voting/domain/entities"
	"promovote/internal/shared/events"
	"promovote/internal/shared/outbox"
)

// VoteRecorder is the persistence gateway's atomic tally primitive. A call
// inserts (ProposalID, VoterID) only if absent, increments the counter for the
// vote's choice only while the proposal is open and now is before its
// deadline, appends event to the outbox and returns the proposal as it stands
// after the increment. Either all of that commits or none of it does.
//
// A voter already present yields ErrAlreadyVoted. A proposal that is no longer
// open yields ErrProposalNotOpen and one past its deadline ErrDeadlinePassed.
// A voter outside the frozen qualified set yields ErrNotQualified.
type VoteRecorder interface {
	RecordVote(ctx context.Context, vote entities.Vote, now time.Time, event EventEnvelope) (entities.Proposal, error)
}

// ProposalRepository is the persistence gateway for proposals and votes.
type ProposalRepository interface {
	VoteRecorder

	// CreateProposal stores a new open proposal with its frozen qualified
	// voter set and, when key is non-nil, the idempotency record pointing at
	// it, all in one step. A concurrent open proposal for the same applicant
	// yields ErrDuplicateOpenProposal. A key still live at
	// proposal.InitiatedAt yields ErrIdempotencyKeyConflict; the caller reads
	// the key back to tell a replay from a real conflict. Any other id
	// collision yields ErrConflict.
	CreateProposal(ctx context.Context, proposal entities.Proposal, event EventEnvelope, key *IdempotencyRecord) error
	GetProposal(ctx context.Context, proposalID string) (entities.Proposal, error)
	GetOpenProposalByApplicant(ctx context.Context, applicantID string) (entities.Proposal, bool, error)
	HasVoted(ctx context.Context, proposalID string, voterID string) (bool, error)
	ListVotes(ctx context.Context, proposalID string) ([]entities.Vote, error)

	// ResolveProposal evaluates the stored proposal at resolvedAt against a
	// consistent snapshot of its counts and, when the outcome is decided,
	// moves it from open to the terminal status and appends the event built
	// from the resolved proposal in the same step. It returns
	// transitioned=false without writing anything when the proposal is
	// already terminal or still undecided.
	ResolveProposal(
		ctx context.Context,
		proposalID string,
		resolvedAt time.Time,
		buildEvent func(entities.Proposal) (EventEnvelope, error),
	) (entities.Proposal, bool, error)

	// ListOverdueOpenProposals pages open proposals with deadline <= now in
	// (deadline, id) order, starting strictly after the cursor. The zero
	// cursor starts from the beginning.
	ListOverdueOpenProposals(ctx context.Context, now time.Time, after OverdueCursor, limit int) ([]entities.Proposal, error)
	ListOpenProposalsForEmployee(ctx context.Context, employeeID string) ([]entities.Proposal, error)
	ListTerminalProposals(ctx context.Context, filter HistoryFilter) ([]entities.Proposal, error)
}

// OverdueCursor is the (deadline, id) position of the last proposal a sweep
// has seen.
type OverdueCursor struct {
	Deadline   time.Time
	ProposalID string
}

func (c OverdueCursor) IsZero() bool {
	return c.Deadline.IsZero() && c.ProposalID == ""
}

// After reports whether proposal sorts strictly after the cursor.
func (c OverdueCursor) After(proposal entities.Proposal) bool {
	if c.IsZero() {
		return true
	}
	if proposal.Deadline.Equal(c.Deadline) {
		return proposal.ProposalID > c.ProposalID
	}
	return proposal.Deadline.After(c.Deadline)
}

type HistoryFilter struct {
	EmployeeID string
	StoreName  string
	Limit      int
}

type IdempotencyRecord struct {
	Key         string
	RequestHash string
	ProposalID  string
	ExpiresAt   time.Time
}

// IdempotencyStore reads initiate keys. Keys are written by
// ProposalRepository.CreateProposal together with the proposal they name.
type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
}

// Directory resolves organizational data owned by the external directory
// service.
type Directory interface {
	GetEmployee(ctx context.Context, employeeID string) (entities.Employee, error)
	ListStoreEmployees(ctx context.Context, storeName string) ([]entities.Employee, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type OutboxMessage = outbox.Message

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type EventEnvelope = events.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a topic consumer callback.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// ResolutionNotice is what downstream delivery (email/chat) learns about a
// resolved proposal.
type ResolutionNotice struct {
	ProposalID          string
	ApplicantID         string
	ApplicantName       string
	StoreName           string
	CurrentPosition     string
	TargetPosition      string
	Status              entities.ProposalStatus
	AgreeCount          int
	DisagreeCount       int
	QualifiedVoterCount int
	ResolvedAt          time.Time
}

// NotificationSink receives resolution notices best-effort. Delivery failures
// never affect proposal state.
type NotificationSink interface {
	NotifyResolution(ctx context.Context, notice ResolutionNotice) error
}

type Metrics interface {
	ProposalCreated(storeName string)
	VoteRecorded(choice entities.VoteChoice)
	VoteRejected(reason string)
	ProposalResolved(status entities.ProposalStatus)
	SweepCompleted(finalized int, duration time.Duration)
}
