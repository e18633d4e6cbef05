package entities

import (
	"testing"
	"time"
)

func openProposal(qualified int, deadline time.Time) Proposal {
	ids := make([]string, 0, qualified)
	for i := 0; i < qualified; i++ {
		ids = append(ids, string(rune('a'+i)))
	}
	return Proposal{
		ProposalID:          "p-1",
		ApplicantID:         "chen",
		Status:              ProposalStatusOpen,
		QualifiedVoterCount: qualified,
		QualifiedVoterIDs:   ids,
		Deadline:            deadline,
	}
}

func TestEvaluatePassesOnStrictMajorityBeforeDeadline(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	proposal := openProposal(5, now.Add(7*24*time.Hour))

	proposal.AgreeCount, proposal.DisagreeCount = 2, 1
	if status, decided := proposal.Evaluate(now); decided {
		t.Fatalf("expected open with 2 of 5 agreeing, got %s", status)
	}
	proposal.AgreeCount = 3
	status, decided := proposal.Evaluate(now)
	if !decided || status != ProposalStatusPassed {
		t.Fatalf("expected passed at third agree, got %s decided=%v", status, decided)
	}
}

func TestEvaluateTieNeverPasses(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	proposal := openProposal(4, now.Add(time.Hour))
	proposal.AgreeCount, proposal.DisagreeCount = 2, 2

	status, decided := proposal.Evaluate(now)
	if !decided || status != ProposalStatusFailed {
		t.Fatalf("expected 2-2 of 4 to fail, got %s decided=%v", status, decided)
	}
}

func TestEvaluateFailsAtDeadlineWhenMajorityMissed(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	proposal := openProposal(5, start.Add(VoteDuration(7)))
	proposal.AgreeCount, proposal.DisagreeCount = 2, 2

	if status, decided := proposal.Evaluate(start.Add(24 * time.Hour)); decided {
		t.Fatalf("expected open while one voter may still agree, got %s", status)
	}
	status, decided := proposal.Evaluate(proposal.Deadline)
	if !decided || status != ProposalStatusFailed {
		t.Fatalf("expected failed at deadline, got %s decided=%v", status, decided)
	}
}

func TestEvaluateExpiresWithoutVotes(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	proposal := openProposal(5, start.Add(VoteDuration(1)))

	status, decided := proposal.Evaluate(proposal.Deadline.Add(time.Second))
	if !decided || status != ProposalStatusExpired {
		t.Fatalf("expected expired, got %s decided=%v", status, decided)
	}
}

func TestEvaluateTerminalIsStable(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	proposal := openProposal(3, now.Add(-time.Hour))
	proposal.Status = ProposalStatusPassed
	proposal.AgreeCount = 2

	status, decided := proposal.Evaluate(now)
	if decided || status != ProposalStatusPassed {
		t.Fatalf("expected terminal status to hold, got %s decided=%v", status, decided)
	}
}

func TestDeadlineReachedIsInclusive(t *testing.T) {
	deadline := time.Date(2026, 5, 8, 9, 0, 0, 0, time.UTC)
	proposal := openProposal(1, deadline)
	if proposal.DeadlineReached(deadline.Add(-time.Nanosecond)) {
		t.Fatalf("expected deadline not reached just before it")
	}
	if !proposal.DeadlineReached(deadline) {
		t.Fatalf("expected deadline reached at the instant")
	}
}

func TestVoteChoiceValid(t *testing.T) {
	if !VoteChoiceAgree.Valid() || !VoteChoiceDisagree.Valid() {
		t.Fatalf("expected agree and disagree to be valid")
	}
	if VoteChoice("abstain").Valid() {
		t.Fatalf("expected abstain to be rejected")
	}
}
