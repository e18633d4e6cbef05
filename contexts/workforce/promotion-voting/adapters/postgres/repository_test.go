package postgresadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"promovote/contexts/workforce/promotion-voting/domain/entities"
	domainerrors "promovote/contexts/workforce/promotion-voting/domain/errors"
	"promovote/contexts/workforce/promotion-voting/ports"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, Migrate(context.Background(), db))
	return NewRepository(db, nil)
}

func testEvent(id string, eventType string, proposalID string, at time.Time) ports.EventEnvelope {
	data, _ := json.Marshal(map[string]string{"proposal_id": proposalID})
	return ports.EventEnvelope{
		EventID:       id,
		EventType:     eventType,
		OccurredAt:    at,
		SourceService: "promotion-voting",
		SchemaVersion: 1,
		PartitionKey:  proposalID,
		Data:          data,
	}
}

func openProposal(id string, applicant string, initiated time.Time, voters ...string) entities.Proposal {
	return entities.Proposal{
		ProposalID:          id,
		ApplicantID:         applicant,
		ApplicantName:       "Applicant " + applicant,
		StoreName:           "Store A",
		CurrentPosition:     "Clerk",
		TargetPosition:      "Senior Clerk",
		InitiatorID:         "boss",
		InitiatedAt:         initiated,
		Deadline:            initiated.Add(7 * 24 * time.Hour),
		Status:              entities.ProposalStatusOpen,
		QualifiedVoterCount: len(voters),
		QualifiedVoterIDs:   voters,
	}
}

func ballot(proposalID string, voterID string, choice entities.VoteChoice, at time.Time) entities.Vote {
	return entities.Vote{
		VoteID:     proposalID + "-" + voterID,
		ProposalID: proposalID,
		VoterID:    voterID,
		Choice:     choice,
		CastAt:     at,
	}
}

func TestCreateAndLoadProposalWithFrozenPool(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateProposal(ctx, openProposal("p-1", "chen", now, "v1", "v2", "v3"), testEvent("e-1", "promotion_vote.created", "p-1", now), nil))

	loaded, err := repo.GetProposal(ctx, "p-1")
	require.NoError(t, err)
	require.Equal(t, entities.ProposalStatusOpen, loaded.Status)
	require.ElementsMatch(t, []string{"v1", "v2", "v3"}, loaded.QualifiedVoterIDs)
	require.True(t, loaded.Deadline.Equal(now.Add(7*24*time.Hour)))

	open, ok, err := repo.GetOpenProposalByApplicant(ctx, "chen")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "p-1", open.ProposalID)

	err = repo.CreateProposal(ctx, openProposal("p-2", "chen", now, "v1"), testEvent("e-2", "promotion_vote.created", "p-2", now), nil)
	require.ErrorIs(t, err, domainerrors.ErrDuplicateOpenProposal)
	err = repo.CreateProposal(ctx, openProposal("p-1", "amy", now, "v1"), testEvent("e-3", "promotion_vote.created", "p-1", now), nil)
	require.ErrorIs(t, err, domainerrors.ErrConflict)
	require.NotErrorIs(t, err, domainerrors.ErrDuplicateOpenProposal)
	_, ok, err = repo.GetOpenProposalByApplicant(ctx, "amy")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = repo.GetProposal(ctx, "missing")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	pending, err := repo.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestRecordVoteGatesAndCounts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateProposal(ctx, openProposal("p-1", "chen", now, "v1", "v2", "v3"), testEvent("e-1", "promotion_vote.created", "p-1", now), nil))

	updated, err := repo.RecordVote(ctx, ballot("p-1", "v1", entities.VoteChoiceAgree, now), now, testEvent("e-2", "promotion_vote.vote_cast", "p-1", now))
	require.NoError(t, err)
	require.Equal(t, 1, updated.AgreeCount)

	_, err = repo.RecordVote(ctx, ballot("p-1", "v1", entities.VoteChoiceDisagree, now), now, testEvent("e-3", "promotion_vote.vote_cast", "p-1", now))
	require.ErrorIs(t, err, domainerrors.ErrAlreadyVoted)

	_, err = repo.RecordVote(ctx, ballot("p-1", "stranger", entities.VoteChoiceAgree, now), now, testEvent("e-4", "promotion_vote.vote_cast", "p-1", now))
	require.ErrorIs(t, err, domainerrors.ErrNotQualified)

	late := now.Add(7 * 24 * time.Hour)
	_, err = repo.RecordVote(ctx, ballot("p-1", "v2", entities.VoteChoiceAgree, late), late, testEvent("e-5", "promotion_vote.vote_cast", "p-1", late))
	require.ErrorIs(t, err, domainerrors.ErrDeadlinePassed)

	_, err = repo.RecordVote(ctx, ballot("missing", "v2", entities.VoteChoiceAgree, now), now, testEvent("e-6", "promotion_vote.vote_cast", "missing", now))
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	voted, err := repo.HasVoted(ctx, "p-1", "v1")
	require.NoError(t, err)
	require.True(t, voted)
	votes, err := repo.ListVotes(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, votes, 1)
	require.Equal(t, entities.VoteChoiceAgree, votes[0].Choice)

	pending, err := repo.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
}

func TestConcurrentBallotsEachCountOnce(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	voters := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		voters = append(voters, fmt.Sprintf("v%d", i))
	}
	require.NoError(t, repo.CreateProposal(ctx, openProposal("p-1", "chen", now, voters...), testEvent("e-0", "promotion_vote.created", "p-1", now), nil))

	var wg sync.WaitGroup
	for i, voter := range voters {
		for attempt := 0; attempt < 3; attempt++ {
			wg.Add(1)
			go func(i int, voter string, attempt int) {
				defer wg.Done()
				eventID := fmt.Sprintf("e-%d-%d", i, attempt)
				_, _ = repo.RecordVote(ctx, ballot("p-1", voter, entities.VoteChoiceDisagree, now), now, testEvent(eventID, "promotion_vote.vote_cast", "p-1", now))
			}(i, voter, attempt)
		}
	}
	wg.Wait()

	loaded, err := repo.GetProposal(ctx, "p-1")
	require.NoError(t, err)
	require.Equal(t, 8, loaded.DisagreeCount)
	votes, err := repo.ListVotes(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, votes, 8)
}

func TestResolveProposalTransitionsOnce(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateProposal(ctx, openProposal("p-1", "chen", now, "v1", "v2", "v3"), testEvent("e-1", "promotion_vote.created", "p-1", now), nil))

	buildEvent := func(p entities.Proposal) (ports.EventEnvelope, error) {
		return testEvent("resolved-"+p.ProposalID, "promotion_vote.resolved", p.ProposalID, *p.ResolvedAt), nil
	}

	undecided, transitioned, err := repo.ResolveProposal(ctx, "p-1", now, buildEvent)
	require.NoError(t, err)
	require.False(t, transitioned)
	require.Equal(t, entities.ProposalStatusOpen, undecided.Status)

	for _, voter := range []string{"v1", "v2"} {
		_, err := repo.RecordVote(ctx, ballot("p-1", voter, entities.VoteChoiceAgree, now), now, testEvent("vote-"+voter, "promotion_vote.vote_cast", "p-1", now))
		require.NoError(t, err)
	}

	resolved, transitioned, err := repo.ResolveProposal(ctx, "p-1", now, buildEvent)
	require.NoError(t, err)
	require.True(t, transitioned)
	require.Equal(t, entities.ProposalStatusPassed, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	again, transitioned, err := repo.ResolveProposal(ctx, "p-1", now.Add(time.Minute), buildEvent)
	require.NoError(t, err)
	require.False(t, transitioned)
	require.Equal(t, entities.ProposalStatusPassed, again.Status)

	_, err = repo.RecordVote(ctx, ballot("p-1", "v3", entities.VoteChoiceAgree, now), now, testEvent("vote-v3", "promotion_vote.vote_cast", "p-1", now))
	require.ErrorIs(t, err, domainerrors.ErrProposalNotOpen)

	_, ok, err := repo.GetOpenProposalByApplicant(ctx, "chen")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, repo.CreateProposal(ctx, openProposal("p-2", "chen", now, "v1"), testEvent("e-9", "promotion_vote.created", "p-2", now), nil))

	_, _, err = repo.ResolveProposal(ctx, "missing", now, buildEvent)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestListingQueries(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	overdue := openProposal("p-old", "amy", now.Add(-8*24*time.Hour), "v1", "v2")
	require.NoError(t, repo.CreateProposal(ctx, overdue, testEvent("e-1", "promotion_vote.created", "p-old", now), nil))
	current := openProposal("p-new", "bob", now, "v2", "v3")
	require.NoError(t, repo.CreateProposal(ctx, current, testEvent("e-2", "promotion_vote.created", "p-new", now), nil))

	due, err := repo.ListOverdueOpenProposals(ctx, now, ports.OverdueCursor{}, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "p-old", due[0].ProposalID)
	after, err := repo.ListOverdueOpenProposals(ctx, now, ports.OverdueCursor{Deadline: due[0].Deadline, ProposalID: due[0].ProposalID}, 10)
	require.NoError(t, err)
	require.Empty(t, after)

	forV2, err := repo.ListOpenProposalsForEmployee(ctx, "v2")
	require.NoError(t, err)
	require.Len(t, forV2, 2)
	forBob, err := repo.ListOpenProposalsForEmployee(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, forBob, 1)

	buildEvent := func(p entities.Proposal) (ports.EventEnvelope, error) {
		return testEvent("resolved-"+p.ProposalID, "promotion_vote.resolved", p.ProposalID, now), nil
	}
	expired, transitioned, err := repo.ResolveProposal(ctx, "p-old", now, buildEvent)
	require.NoError(t, err)
	require.True(t, transitioned)
	require.Equal(t, entities.ProposalStatusExpired, expired.Status)

	history, err := repo.ListTerminalProposals(ctx, ports.HistoryFilter{StoreName: "store a"})
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "p-old", history[0].ProposalID)

	history, err = repo.ListTerminalProposals(ctx, ports.HistoryFilter{EmployeeID: "v3"})
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestOutboxIdempotencyAndDedup(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	key := &ports.IdempotencyRecord{Key: "k-1", RequestHash: "h-1", ProposalID: "p-1", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.CreateProposal(ctx, openProposal("p-1", "chen", now, "v1"), testEvent("e-1", "promotion_vote.created", "p-1", now), key))
	stored, ok, err := repo.Get(ctx, "k-1", now)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "p-1", stored.ProposalID)
	require.Equal(t, "h-1", stored.RequestHash)

	// A live key blocks a second proposal and rolls the whole create back.
	reuse := &ports.IdempotencyRecord{Key: "k-1", RequestHash: "h-2", ProposalID: "p-2", ExpiresAt: now.Add(2 * time.Hour)}
	err = repo.CreateProposal(ctx, openProposal("p-2", "amy", now.Add(30*time.Minute), "v1"), testEvent("e-2", "promotion_vote.created", "p-2", now), reuse)
	require.ErrorIs(t, err, domainerrors.ErrIdempotencyKeyConflict)
	_, err = repo.GetProposal(ctx, "p-2")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	// Once expired at the new creation time the key is taken over.
	reuse.ExpiresAt = now.Add(3 * time.Hour)
	require.NoError(t, repo.CreateProposal(ctx, openProposal("p-2", "amy", now.Add(2*time.Hour), "v1"), testEvent("e-3", "promotion_vote.created", "p-2", now), reuse))
	stored, ok, err = repo.Get(ctx, "k-1", now.Add(2*time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "p-2", stored.ProposalID)
	_, ok, err = repo.Get(ctx, "k-1", now.Add(4*time.Hour))
	require.NoError(t, err)
	require.False(t, ok)

	pending, err := repo.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "promotion_vote.created", pending[0].EventType)
	require.NoError(t, repo.MarkOutboxPublished(ctx, pending[0].OutboxID, now))
	require.NoError(t, repo.MarkOutboxPublished(ctx, pending[1].OutboxID, now))
	require.ErrorIs(t, repo.MarkOutboxPublished(ctx, "unknown", now), domainerrors.ErrConflict)
	pending, err = repo.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)

	seen, err := repo.ReserveEvent(ctx, "evt-1", "hash", now.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, seen)
	seen, err = repo.ReserveEvent(ctx, "evt-1", "hash", now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, seen)
}

func TestEmployeeProjection(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertEmployees(ctx, []entities.Employee{
		{EmployeeID: "amy", Name: "Amy", StoreName: "Downtown", Position: "Clerk", Active: true},
		{EmployeeID: "bob", Name: "Bob", StoreName: "Downtown", Position: "Team Lead", Active: true},
	}))
	require.NoError(t, repo.UpsertEmployees(ctx, []entities.Employee{
		{EmployeeID: "amy", Name: "Amy", StoreName: "Downtown", Position: "Senior Clerk", Active: true},
	}))

	amy, err := repo.GetEmployee(ctx, "amy")
	require.NoError(t, err)
	require.Equal(t, "Senior Clerk", amy.Position)

	staff, err := repo.ListStoreEmployees(ctx, "downtown")
	require.NoError(t, err)
	require.Len(t, staff, 2)

	_, err = repo.GetEmployee(ctx, "nobody")
	require.ErrorIs(t, err, domainerrors.ErrEmployeeNotFound)
}
