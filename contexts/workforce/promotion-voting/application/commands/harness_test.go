package commands_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	promotionvoting "promovote/contexts/workforce/promotion-voting"
	"promovote/contexts/workforce/promotion-voting/adapters/directory"
	"promovote/contexts/workforce/promotion-voting/adapters/memory"
	"promovote/contexts/workforce/promotion-voting/application/commands"
	"promovote/contexts/workforce/promotion-voting/domain/entities"
	"promovote/contexts/workforce/promotion-voting/ports"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sequenceIDs struct {
	next atomic.Int64
}

func (g *sequenceIDs) NewID(context.Context) (string, error) {
	return fmt.Sprintf("id-%04d", g.next.Add(1)), nil
}

type recordingMetrics struct {
	mu        sync.Mutex
	created   int
	recorded  map[entities.VoteChoice]int
	rejected  map[string]int
	resolved  map[entities.ProposalStatus]int
	finalized int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		recorded: map[entities.VoteChoice]int{},
		rejected: map[string]int{},
		resolved: map[entities.ProposalStatus]int{},
	}
}

func (m *recordingMetrics) ProposalCreated(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *recordingMetrics) VoteRecorded(choice entities.VoteChoice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded[choice]++
}

func (m *recordingMetrics) VoteRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *recordingMetrics) ProposalResolved(status entities.ProposalStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved[status]++
}

func (m *recordingMetrics) SweepCompleted(finalized int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalized += finalized
}

type harness struct {
	module  promotionvoting.Module
	store   *memory.Store
	roster  *directory.Roster
	clock   *fakeClock
	metrics *recordingMetrics
}

// newHarness builds Store A around the applicant Chen (Clerk) with the given
// number of qualified colleagues, plus one junior and one employee of another
// store who never qualify.
func newHarness(t *testing.T, qualified int) *harness {
	t.Helper()
	return newHarnessWithIdempotency(t, qualified, nil)
}

// slowIdempotency delays key lookups so concurrent requests all miss the key
// before any of them has stored it.
type slowIdempotency struct {
	ports.IdempotencyStore
	delay time.Duration
}

func (s slowIdempotency) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	time.Sleep(s.delay)
	return s.IdempotencyStore.Get(ctx, key, now)
}

func newHarnessWithIdempotency(t *testing.T, qualified int, wrap func(ports.IdempotencyStore) ports.IdempotencyStore) *harness {
	t.Helper()
	employees := []entities.Employee{
		{EmployeeID: "chen", Name: "Chen", StoreName: "Store A", Position: "Clerk", Active: true},
		{EmployeeID: "other-store", Name: "Olive", StoreName: "Store B", Position: "Store Manager", Active: true},
		{EmployeeID: "inactive", Name: "Ivan", StoreName: "Store A", Position: "Team Lead", Active: false},
	}
	positions := []string{"Clerk", "Senior Clerk", "Team Lead", "Store Manager"}
	for i := 0; i < qualified; i++ {
		employees = append(employees, entities.Employee{
			EmployeeID: fmt.Sprintf("voter-%02d", i+1),
			Name:       fmt.Sprintf("Voter %d", i+1),
			StoreName:  "Store A",
			Position:   positions[i%len(positions)],
			Active:     true,
		})
	}

	store := memory.NewStore(nil)
	roster := directory.NewRoster(employees)
	clock := newFakeClock()
	metrics := newRecordingMetrics()
	var idempotency ports.IdempotencyStore = store
	if wrap != nil {
		idempotency = wrap(store)
	}
	module := promotionvoting.NewModule(promotionvoting.Dependencies{
		Proposals:   store,
		Idempotency: idempotency,
		Directory:   roster,
		Clock:       clock,
		IDGen:       &sequenceIDs{},
		Metrics:     metrics,
		Hierarchy:   entities.MustPositionHierarchy(entities.DefaultPositions),
	})
	return &harness{module: module, store: store, roster: roster, clock: clock, metrics: metrics}
}

func (h *harness) initiateChen(t *testing.T, days int) entities.Proposal {
	t.Helper()
	result, err := h.module.Lifecycle.Initiate(context.Background(), chenCommand(days))
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	return result.Proposal
}

func (h *harness) vote(proposalID string, voterID string, choice entities.VoteChoice) (commands.SubmitVoteResult, error) {
	return h.module.Lifecycle.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		ProposalID: proposalID,
		VoterID:    voterID,
		VoterName:  voterID,
		Choice:     choice,
	})
}

func (h *harness) mustVote(t *testing.T, proposalID string, voterID string, choice entities.VoteChoice) commands.SubmitVoteResult {
	t.Helper()
	result, err := h.vote(proposalID, voterID, choice)
	if err != nil {
		t.Fatalf("vote by %s failed: %v", voterID, err)
	}
	return result
}

func (h *harness) outboxTypes(t *testing.T) map[string]int {
	t.Helper()
	rows, err := h.store.ListPendingOutbox(context.Background(), 1000)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	counts := map[string]int{}
	for _, row := range rows {
		counts[row.EventType]++
	}
	return counts
}

func chenCommand(days int) commands.InitiateCommand {
	return commands.InitiateCommand{
		InitiatorID:      "voter-04",
		ApplicantID:      "chen",
		ApplicantName:    "Chen",
		StoreName:        "Store A",
		CurrentPosition:  "Clerk",
		TargetPosition:   "Senior Clerk",
		Reason:           "Trains every new hire on the register",
		VoteDurationDays: days,
	}
}

var _ ports.Metrics = (*recordingMetrics)(nil)
