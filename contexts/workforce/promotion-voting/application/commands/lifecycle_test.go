package commands_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"promovote/contexts/workforce/promotion-voting/application/commands"
	"promovote/contexts/workforce/promotion-voting/domain/entities"
	domainerrors "promovote/contexts/workforce/promotion-voting/domain/errors"
	"promovote/contexts/workforce/promotion-voting/ports"
)

func TestChenPassesAtThirdAgreeWithoutWaitingForDeadline(t *testing.T) {
	h := newHarness(t, 5)
	proposal := h.initiateChen(t, 7)
	if proposal.QualifiedVoterCount != 5 {
		t.Fatalf("expected 5 qualified voters, got %d", proposal.QualifiedVoterCount)
	}
	if !proposal.Deadline.Equal(proposal.InitiatedAt.Add(7 * 24 * time.Hour)) {
		t.Fatalf("expected a 7 day window, got deadline %s", proposal.Deadline)
	}

	h.mustVote(t, proposal.ProposalID, "voter-01", entities.VoteChoiceAgree)
	h.mustVote(t, proposal.ProposalID, "voter-02", entities.VoteChoiceDisagree)
	second := h.mustVote(t, proposal.ProposalID, "voter-03", entities.VoteChoiceAgree)
	if second.Resolved || second.Proposal.Status != entities.ProposalStatusOpen {
		t.Fatalf("expected open after 2 agrees, got %s", second.Proposal.Status)
	}
	third := h.mustVote(t, proposal.ProposalID, "voter-04", entities.VoteChoiceAgree)
	if !third.Resolved || third.Proposal.Status != entities.ProposalStatusPassed {
		t.Fatalf("expected passed at third agree, got %s resolved=%v", third.Proposal.Status, third.Resolved)
	}
	if third.Proposal.AgreeCount != 3 || third.Proposal.DisagreeCount != 1 {
		t.Fatalf("expected 3/1, got %d/%d", third.Proposal.AgreeCount, third.Proposal.DisagreeCount)
	}

	if _, err := h.vote(proposal.ProposalID, "voter-05", entities.VoteChoiceAgree); !errors.Is(err, domainerrors.ErrProposalNotOpen) {
		t.Fatalf("expected proposal not open for late voter, got %v", err)
	}
	if got := h.outboxTypes(t)[commands.EventProposalResolved]; got != 1 {
		t.Fatalf("expected one resolved event, got %d", got)
	}
	if h.metrics.resolved[entities.ProposalStatusPassed] != 1 {
		t.Fatalf("expected passed metric once, got %d", h.metrics.resolved[entities.ProposalStatusPassed])
	}
}

func TestChenFailsAtDeadlineOnTie(t *testing.T) {
	h := newHarness(t, 5)
	proposal := h.initiateChen(t, 7)

	h.mustVote(t, proposal.ProposalID, "voter-01", entities.VoteChoiceAgree)
	h.mustVote(t, proposal.ProposalID, "voter-02", entities.VoteChoiceDisagree)
	h.mustVote(t, proposal.ProposalID, "voter-03", entities.VoteChoiceAgree)
	last := h.mustVote(t, proposal.ProposalID, "voter-04", entities.VoteChoiceDisagree)
	if last.Proposal.Status != entities.ProposalStatusOpen {
		t.Fatalf("expected open while voter-05 can still tip it, got %s", last.Proposal.Status)
	}

	h.clock.Advance(7 * 24 * time.Hour)
	resolved, transitioned, err := h.module.Lifecycle.Finalize(context.Background(), proposal.ProposalID)
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if !transitioned || resolved.Status != entities.ProposalStatusFailed {
		t.Fatalf("expected failed, got %s transitioned=%v", resolved.Status, transitioned)
	}
}

func TestChenExpiresWithoutVotesAndFinalizesOnce(t *testing.T) {
	h := newHarness(t, 5)
	proposal := h.initiateChen(t, 1)

	early, transitioned, err := h.module.Lifecycle.Finalize(context.Background(), proposal.ProposalID)
	if err != nil || transitioned || early.Status != entities.ProposalStatusOpen {
		t.Fatalf("expected no-op before deadline, got %s transitioned=%v err=%v", early.Status, transitioned, err)
	}

	h.clock.Advance(24 * time.Hour)
	first, transitioned, err := h.module.Lifecycle.Finalize(context.Background(), proposal.ProposalID)
	if err != nil || !transitioned || first.Status != entities.ProposalStatusExpired {
		t.Fatalf("expected expired, got %s transitioned=%v err=%v", first.Status, transitioned, err)
	}
	h.clock.Advance(time.Hour)
	second, transitioned, err := h.module.Lifecycle.Finalize(context.Background(), proposal.ProposalID)
	if err != nil || transitioned {
		t.Fatalf("expected second finalize to be a no-op, transitioned=%v err=%v", transitioned, err)
	}
	if second.Status != first.Status || !second.ResolvedAt.Equal(*first.ResolvedAt) {
		t.Fatalf("expected identical terminal state, got %s at %v", second.Status, second.ResolvedAt)
	}
	if got := h.outboxTypes(t)[commands.EventProposalResolved]; got != 1 {
		t.Fatalf("expected one resolved event, got %d", got)
	}
}

func TestConcurrentDuplicateBallotsCountOnce(t *testing.T) {
	h := newHarness(t, 5)
	proposal := h.initiateChen(t, 7)

	const attempts = 32
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.vote(proposal.ProposalID, "voter-01", entities.VoteChoiceAgree)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, domainerrors.ErrAlreadyVoted):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted ballot, got %d", accepted)
	}
	detail, err := h.module.Queries.Get(context.Background(), proposal.ProposalID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if detail.Proposal.AgreeCount != 1 || len(detail.Votes) != 1 {
		t.Fatalf("expected one counted ballot, got agree=%d votes=%d", detail.Proposal.AgreeCount, len(detail.Votes))
	}
}

func TestConcurrentVotersResolveExactlyOnce(t *testing.T) {
	h := newHarness(t, 12)
	proposal := h.initiateChen(t, 7)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		resolved int
	)
	for i := 1; i <= 12; i++ {
		voterID := fmt.Sprintf("voter-%02d", i)
		for dup := 0; dup < 3; dup++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := h.vote(proposal.ProposalID, voterID, entities.VoteChoiceAgree)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					accepted++
					if result.Resolved {
						resolved++
					}
				case errors.Is(err, domainerrors.ErrAlreadyVoted), errors.Is(err, domainerrors.ErrProposalNotOpen):
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
	}
	wg.Wait()

	detail, err := h.module.Queries.Get(context.Background(), proposal.ProposalID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if detail.Proposal.Status != entities.ProposalStatusPassed {
		t.Fatalf("expected passed, got %s", detail.Proposal.Status)
	}
	if detail.Proposal.AgreeCount != accepted || len(detail.Votes) != accepted {
		t.Fatalf("expected counts to match %d accepted ballots, got agree=%d votes=%d",
			accepted, detail.Proposal.AgreeCount, len(detail.Votes))
	}
	if accepted < 7 || accepted > 12 {
		t.Fatalf("expected between 7 and 12 accepted ballots, got %d", accepted)
	}
	if resolved != 1 {
		t.Fatalf("expected exactly one caller to observe the transition, got %d", resolved)
	}
	if got := h.outboxTypes(t)[commands.EventProposalResolved]; got != 1 {
		t.Fatalf("expected one resolved event, got %d", got)
	}
}

func TestQualifiedPoolIsFrozenAtCreation(t *testing.T) {
	h := newHarness(t, 3)
	proposal := h.initiateChen(t, 7)

	h.roster.Upsert(entities.Employee{EmployeeID: "late-hire", Name: "Lee", StoreName: "Store A", Position: "Store Manager", Active: true})
	h.roster.Remove("voter-01")

	if _, err := h.vote(proposal.ProposalID, "late-hire", entities.VoteChoiceAgree); !errors.Is(err, domainerrors.ErrNotQualified) {
		t.Fatalf("expected late hire to be unqualified, got %v", err)
	}
	result := h.mustVote(t, proposal.ProposalID, "voter-01", entities.VoteChoiceAgree)
	if result.Proposal.QualifiedVoterCount != 3 {
		t.Fatalf("expected quorum denominator to stay 3, got %d", result.Proposal.QualifiedVoterCount)
	}
	if result.Vote.VoterName != "voter-01" {
		t.Fatalf("expected caller supplied name when the directory has no record, got %q", result.Vote.VoterName)
	}
}

func TestSelfVoteAndUnqualifiedVotersAreRejected(t *testing.T) {
	h := newHarness(t, 3)
	proposal := h.initiateChen(t, 7)

	cases := map[string]error{
		"chen":        domainerrors.ErrSelfVoteForbidden,
		"other-store": domainerrors.ErrNotQualified,
		"inactive":    domainerrors.ErrNotQualified,
	}
	for voterID, want := range cases {
		if _, err := h.vote(proposal.ProposalID, voterID, entities.VoteChoiceAgree); !errors.Is(err, want) {
			t.Fatalf("%s: expected %v, got %v", voterID, want, err)
		}
	}
	if _, err := h.vote("missing", "voter-01", entities.VoteChoiceAgree); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if h.metrics.rejected["self_vote"] != 1 || h.metrics.rejected["not_qualified"] != 2 {
		t.Fatalf("unexpected rejection metrics: %v", h.metrics.rejected)
	}
}

func TestVoterProfileComesFromDirectory(t *testing.T) {
	h := newHarness(t, 3)
	proposal := h.initiateChen(t, 7)

	result, err := h.module.Lifecycle.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		ProposalID:    proposal.ProposalID,
		VoterID:       "voter-02",
		VoterName:     "Voter 2",
		Choice:        entities.VoteChoiceDisagree,
		Comment:       "  needs more time on closing duties  ",
		VoterPosition: "Store Manager",
		VoterStore:    "Store Z",
	})
	if err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if result.Vote.VoterPosition != "Senior Clerk" || result.Vote.VoterStore != "Store A" {
		t.Fatalf("expected directory profile, got %q at %q", result.Vote.VoterPosition, result.Vote.VoterStore)
	}
	if result.Vote.Comment != "needs more time on closing duties" {
		t.Fatalf("expected trimmed comment, got %q", result.Vote.Comment)
	}
}

func TestSecondOpenProposalIsRejected(t *testing.T) {
	h := newHarness(t, 3)
	h.initiateChen(t, 7)

	if _, err := h.module.Lifecycle.Initiate(context.Background(), chenCommand(3)); !errors.Is(err, domainerrors.ErrDuplicateOpenProposal) {
		t.Fatalf("expected duplicate open proposal, got %v", err)
	}
}

func TestOverdueOpenProposalDoesNotBlockANewOne(t *testing.T) {
	h := newHarness(t, 3)
	first := h.initiateChen(t, 1)
	h.clock.Advance(48 * time.Hour)

	second, err := h.module.Lifecycle.Initiate(context.Background(), chenCommand(5))
	if err != nil {
		t.Fatalf("expected overdue proposal to be finalized first, got %v", err)
	}
	if second.Proposal.ProposalID == first.ProposalID {
		t.Fatalf("expected a new proposal")
	}
	detail, err := h.module.Queries.Get(context.Background(), first.ProposalID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if detail.Proposal.Status != entities.ProposalStatusExpired {
		t.Fatalf("expected old proposal expired, got %s", detail.Proposal.Status)
	}
}

func TestLateBallotIsRejectedAndFinalizesTheProposal(t *testing.T) {
	h := newHarness(t, 3)
	proposal := h.initiateChen(t, 2)
	h.mustVote(t, proposal.ProposalID, "voter-01", entities.VoteChoiceAgree)
	h.clock.Advance(2 * 24 * time.Hour)

	if _, err := h.vote(proposal.ProposalID, "voter-02", entities.VoteChoiceAgree); !errors.Is(err, domainerrors.ErrDeadlinePassed) {
		t.Fatalf("expected deadline passed, got %v", err)
	}
	detail, err := h.module.Queries.Get(context.Background(), proposal.ProposalID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if detail.Proposal.Status != entities.ProposalStatusFailed {
		t.Fatalf("expected failed after late ballot, got %s", detail.Proposal.Status)
	}
}

func TestInitiateRejectsInvalidPaths(t *testing.T) {
	h := newHarness(t, 3)
	h.roster.Upsert(entities.Employee{EmployeeID: "boss", Name: "Boss", StoreName: "Store A", Position: "Regional Manager", Active: true})
	h.roster.Upsert(entities.Employee{EmployeeID: "solo", Name: "Solo", StoreName: "Store C", Position: "Clerk", Active: true})

	cases := []struct {
		name string
		edit func(*commands.InitiateCommand)
		want error
	}{
		{"skip a rank", func(c *commands.InitiateCommand) { c.TargetPosition = "Team Lead" }, domainerrors.ErrInvalidPromotionPath},
		{"demotion", func(c *commands.InitiateCommand) { c.TargetPosition = "Clerk" }, domainerrors.ErrInvalidPromotionPath},
		{"top of ladder", func(c *commands.InitiateCommand) {
			c.ApplicantID, c.CurrentPosition, c.TargetPosition = "boss", "Regional Manager", "CEO"
		}, domainerrors.ErrTerminalPosition},
		{"unknown applicant", func(c *commands.InitiateCommand) { c.ApplicantID = "ghost" }, domainerrors.ErrApplicantNotFound},
		{"inactive applicant", func(c *commands.InitiateCommand) {
			c.ApplicantID, c.CurrentPosition, c.TargetPosition = "inactive", "Team Lead", "Assistant Manager"
		}, domainerrors.ErrApplicantNotFound},
		{"store mismatch", func(c *commands.InitiateCommand) { c.StoreName = "Store B" }, domainerrors.ErrValidation},
		{"no voters", func(c *commands.InitiateCommand) { c.ApplicantID, c.StoreName = "solo", "Store C" }, domainerrors.ErrNoQualifiedVoters},
		{"short reason", func(c *commands.InitiateCommand) { c.Reason = "   too short  " }, domainerrors.ErrValidation},
		{"long reason", func(c *commands.InitiateCommand) { c.Reason = strings.Repeat("é", 501) }, domainerrors.ErrValidation},
		{"zero days", func(c *commands.InitiateCommand) { c.VoteDurationDays = 0 }, domainerrors.ErrValidation},
		{"too many days", func(c *commands.InitiateCommand) { c.VoteDurationDays = 31 }, domainerrors.ErrValidation},
		{"missing initiator", func(c *commands.InitiateCommand) { c.InitiatorID = " " }, domainerrors.ErrValidation},
	}
	for _, tc := range cases {
		cmd := chenCommand(7)
		tc.edit(&cmd)
		if _, err := h.module.Lifecycle.Initiate(context.Background(), cmd); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if h.metrics.created != 0 {
		t.Fatalf("expected no proposals created, got %d", h.metrics.created)
	}
}

func TestBallotValidation(t *testing.T) {
	h := newHarness(t, 3)
	proposal := h.initiateChen(t, 7)

	if _, err := h.vote(proposal.ProposalID, "voter-01", entities.VoteChoice("maybe")); !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected validation error for choice, got %v", err)
	}
	_, err := h.module.Lifecycle.SubmitVote(context.Background(), commands.SubmitVoteCommand{
		ProposalID: proposal.ProposalID,
		VoterID:    "voter-01",
		Choice:     entities.VoteChoiceAgree,
		Comment:    strings.Repeat("x", 501),
	})
	if !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected validation error for comment, got %v", err)
	}
}

func TestInitiateIsIdempotentPerKey(t *testing.T) {
	h := newHarness(t, 3)
	cmd := chenCommand(7)
	cmd.IdempotencyKey = "initiate-1"

	first, err := h.module.Lifecycle.Initiate(context.Background(), cmd)
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	replay, err := h.module.Lifecycle.Initiate(context.Background(), cmd)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !replay.Replayed || replay.Proposal.ProposalID != first.Proposal.ProposalID {
		t.Fatalf("expected replay of %s, got %s replayed=%v", first.Proposal.ProposalID, replay.Proposal.ProposalID, replay.Replayed)
	}

	cmd.Reason = "A completely different justification"
	if _, err := h.module.Lifecycle.Initiate(context.Background(), cmd); !errors.Is(err, domainerrors.ErrIdempotencyKeyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
	if got := h.outboxTypes(t)[commands.EventProposalCreated]; got != 1 {
		t.Fatalf("expected one created event, got %d", got)
	}
}

func TestConcurrentInitiatesWithOneKeyReplayTheWinner(t *testing.T) {
	h := newHarnessWithIdempotency(t, 3, func(next ports.IdempotencyStore) ports.IdempotencyStore {
		return slowIdempotency{IdempotencyStore: next, delay: 5 * time.Millisecond}
	})
	cmd := chenCommand(7)
	cmd.IdempotencyKey = "initiate-race"

	const attempts = 2
	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make(chan commands.InitiateResult, attempts)
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			result, err := h.module.Lifecycle.Initiate(context.Background(), cmd)
			if err != nil {
				errs <- err
				return
			}
			results <- result
		}()
	}
	close(start)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("expected both requests to succeed, got %v", err)
	}
	replayed := 0
	proposalIDs := map[string]struct{}{}
	for result := range results {
		if result.Replayed {
			replayed++
		}
		proposalIDs[result.Proposal.ProposalID] = struct{}{}
	}
	if replayed != 1 || len(proposalIDs) != 1 {
		t.Fatalf("expected one creation and one replay of it, got replayed=%d proposals=%v", replayed, proposalIDs)
	}
	if got := h.outboxTypes(t)[commands.EventProposalCreated]; got != 1 {
		t.Fatalf("expected one created event, got %d", got)
	}
}
