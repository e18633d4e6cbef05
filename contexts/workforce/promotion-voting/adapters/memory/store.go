package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"promovote/contexts/workforce/promotion-voting/domain/entities"
	domainerrors "promovote/contexts/workforce/promotion-voting/domain/errors"
	"promovote/contexts/workforce/promotion-voting/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// Store is a single-process persistence gateway. One mutex serializes every
// write, which makes each gateway call atomic.
type Store struct {
	mu sync.RWMutex

	proposals       map[string]entities.Proposal
	votes           map[string]map[string]entities.Vote
	openByApplicant map[string]string
	idempotency     map[string]ports.IdempotencyRecord
	outbox          map[string]outboxRecord
	eventDedup      map[string]dedupRecord
	outboxSeq       int64
}

func NewStore(seed []entities.Proposal) *Store {
	store := &Store{
		proposals:       make(map[string]entities.Proposal, len(seed)),
		votes:           make(map[string]map[string]entities.Vote),
		openByApplicant: make(map[string]string),
		idempotency:     make(map[string]ports.IdempotencyRecord),
		outbox:          make(map[string]outboxRecord),
		eventDedup:      make(map[string]dedupRecord),
	}
	for _, proposal := range seed {
		store.proposals[proposal.ProposalID] = cloneProposal(proposal)
		if proposal.Status == entities.ProposalStatusOpen {
			store.openByApplicant[proposal.ApplicantID] = proposal.ProposalID
		}
	}
	return store
}

func (s *Store) CreateProposal(_ context.Context, proposal entities.Proposal, event ports.EventEnvelope, key *ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposalID := strings.TrimSpace(proposal.ProposalID)
	if proposalID == "" {
		return domainerrors.ErrValidation
	}
	if _, exists := s.proposals[proposalID]; exists {
		return domainerrors.ErrConflict
	}
	if _, open := s.openByApplicant[proposal.ApplicantID]; open {
		return domainerrors.ErrDuplicateOpenProposal
	}
	var record ports.IdempotencyRecord
	if key != nil {
		record = *key
		record.Key = strings.TrimSpace(record.Key)
		if existing, ok := s.idempotency[record.Key]; ok && liveAt(existing, proposal.InitiatedAt) {
			return domainerrors.ErrIdempotencyKeyConflict
		}
	}
	if err := s.appendOutboxLocked(event); err != nil {
		return err
	}
	s.proposals[proposalID] = cloneProposal(proposal)
	s.openByApplicant[proposal.ApplicantID] = proposalID
	if key != nil {
		s.idempotency[record.Key] = record
	}
	return nil
}

func (s *Store) GetProposal(_ context.Context, proposalID string) (entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposal, ok := s.proposals[strings.TrimSpace(proposalID)]
	if !ok {
		return entities.Proposal{}, domainerrors.ErrNotFound
	}
	return cloneProposal(proposal), nil
}

func (s *Store) GetOpenProposalByApplicant(_ context.Context, applicantID string) (entities.Proposal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposalID, ok := s.openByApplicant[strings.TrimSpace(applicantID)]
	if !ok {
		return entities.Proposal{}, false, nil
	}
	return cloneProposal(s.proposals[proposalID]), true, nil
}

func (s *Store) HasVoted(_ context.Context, proposalID string, voterID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, voted := s.votes[strings.TrimSpace(proposalID)][strings.TrimSpace(voterID)]
	return voted, nil
}

func (s *Store) ListVotes(_ context.Context, proposalID string) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ballots := s.votes[strings.TrimSpace(proposalID)]
	items := make([]entities.Vote, 0, len(ballots))
	for _, vote := range ballots {
		items = append(items, vote)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CastAt.Equal(items[j].CastAt) {
			return items[i].VoteID < items[j].VoteID
		}
		return items[i].CastAt.Before(items[j].CastAt)
	})
	return items, nil
}

func (s *Store) RecordVote(
	_ context.Context,
	vote entities.Vote,
	now time.Time,
	event ports.EventEnvelope,
) (entities.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, ok := s.proposals[strings.TrimSpace(vote.ProposalID)]
	if !ok {
		return entities.Proposal{}, domainerrors.ErrNotFound
	}
	if proposal.Status != entities.ProposalStatusOpen {
		return entities.Proposal{}, domainerrors.ErrProposalNotOpen
	}
	if proposal.DeadlineReached(now) {
		return entities.Proposal{}, domainerrors.ErrDeadlinePassed
	}
	if !proposal.IsQualifiedVoter(vote.VoterID) {
		return entities.Proposal{}, domainerrors.ErrNotQualified
	}
	ballots := s.votes[proposal.ProposalID]
	if _, exists := ballots[vote.VoterID]; exists {
		return entities.Proposal{}, domainerrors.ErrAlreadyVoted
	}

	switch vote.Choice {
	case entities.VoteChoiceAgree:
		proposal.AgreeCount++
	case entities.VoteChoiceDisagree:
		proposal.DisagreeCount++
	default:
		return entities.Proposal{}, domainerrors.ErrValidation
	}
	if err := s.appendOutboxLocked(event); err != nil {
		return entities.Proposal{}, err
	}
	proposal.Version++
	if ballots == nil {
		ballots = make(map[string]entities.Vote)
		s.votes[proposal.ProposalID] = ballots
	}
	ballots[vote.VoterID] = vote
	s.proposals[proposal.ProposalID] = proposal
	return cloneProposal(proposal), nil
}

func (s *Store) ResolveProposal(
	_ context.Context,
	proposalID string,
	resolvedAt time.Time,
	buildEvent func(entities.Proposal) (ports.EventEnvelope, error),
) (entities.Proposal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, ok := s.proposals[strings.TrimSpace(proposalID)]
	if !ok {
		return entities.Proposal{}, false, domainerrors.ErrNotFound
	}
	status, decided := proposal.Evaluate(resolvedAt)
	if !decided {
		return cloneProposal(proposal), false, nil
	}
	resolved := cloneProposal(proposal)
	at := resolvedAt.UTC()
	resolved.Status = status
	resolved.ResolvedAt = &at
	resolved.Version++

	event, err := buildEvent(resolved)
	if err != nil {
		return entities.Proposal{}, false, err
	}
	if err := s.appendOutboxLocked(event); err != nil {
		return entities.Proposal{}, false, err
	}
	s.proposals[resolved.ProposalID] = resolved
	if s.openByApplicant[resolved.ApplicantID] == resolved.ProposalID {
		delete(s.openByApplicant, resolved.ApplicantID)
	}
	return cloneProposal(resolved), true, nil
}

func (s *Store) ListOverdueOpenProposals(_ context.Context, now time.Time, after ports.OverdueCursor, limit int) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]entities.Proposal, 0)
	for _, proposal := range s.proposals {
		if proposal.Status == entities.ProposalStatusOpen && proposal.DeadlineReached(now) && after.After(proposal) {
			items = append(items, cloneProposal(proposal))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Deadline.Equal(items[j].Deadline) {
			return items[i].ProposalID < items[j].ProposalID
		}
		return items[i].Deadline.Before(items[j].Deadline)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ListOpenProposalsForEmployee(_ context.Context, employeeID string) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	employeeID = strings.TrimSpace(employeeID)
	items := make([]entities.Proposal, 0)
	for _, proposal := range s.proposals {
		if proposal.Status != entities.ProposalStatusOpen {
			continue
		}
		if proposal.ApplicantID == employeeID || proposal.IsQualifiedVoter(employeeID) {
			items = append(items, cloneProposal(proposal))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Deadline.Before(items[j].Deadline)
	})
	return items, nil
}

func (s *Store) ListTerminalProposals(_ context.Context, filter ports.HistoryFilter) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	employeeID := strings.TrimSpace(filter.EmployeeID)
	storeName := strings.TrimSpace(filter.StoreName)
	items := make([]entities.Proposal, 0)
	for _, proposal := range s.proposals {
		if !proposal.Status.Terminal() {
			continue
		}
		if storeName != "" && !strings.EqualFold(proposal.StoreName, storeName) {
			continue
		}
		if employeeID != "" && proposal.ApplicantID != employeeID && !proposal.IsQualifiedVoter(employeeID) {
			continue
		}
		items = append(items, cloneProposal(proposal))
	}
	sort.Slice(items, func(i, j int) bool {
		left, right := resolvedAtOf(items[i]), resolvedAtOf(items[j])
		if left.Equal(right) {
			return items[i].ProposalID < items[j].ProposalID
		}
		return left.After(right)
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.idempotency[strings.TrimSpace(key)]
	if !ok || !liveAt(record, now) {
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func liveAt(record ports.IdempotencyRecord, now time.Time) bool {
	return record.ExpiresAt.IsZero() || now.Before(record.ExpiresAt)
}

func (s *Store) appendOutboxLocked(envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outboxSeq++
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
			Sequence:     s.outboxSeq,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Sequence < items[j].Sequence
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	existing, ok := s.eventDedup[key]
	if ok {
		if !existing.expiresAt.IsZero() && time.Now().UTC().After(existing.expiresAt.UTC()) {
			delete(s.eventDedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}

	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func cloneProposal(proposal entities.Proposal) entities.Proposal {
	proposal.QualifiedVoterIDs = append([]string(nil), proposal.QualifiedVoterIDs...)
	if proposal.ResolvedAt != nil {
		at := *proposal.ResolvedAt
		proposal.ResolvedAt = &at
	}
	return proposal
}

func resolvedAtOf(proposal entities.Proposal) time.Time {
	if proposal.ResolvedAt != nil {
		return *proposal.ResolvedAt
	}
	return proposal.Deadline
}
