package consensus

import (
	"testing"

	"almoner/contexts/mutual-aid/validation-engine/domain/entities"
)

func TestRequiredApprovalsTiers(t *testing.T) {
	cases := []struct {
		name     string
		severity int
		amount   float64
		want     int
	}{
		{"high severity alone", 8, 10, 5},
		{"high severity under high amount", 8, 99, 5},
		{"high amount alone", 5, 100, 5},
		{"mid severity alone", 6, 10, 3},
		{"mid amount alone", 5, 50, 3},
		{"just under mid amount", 5, 49, 2},
		{"both below mid", 5, 49.99, 2},
		{"severity wins over low amount", 9, 1, 5},
		{"amount wins over low severity", 1, 250, 5},
	}
	for _, tc := range cases {
		if got := RequiredApprovals(tc.severity, tc.amount); got != tc.want {
			t.Errorf("%s: RequiredApprovals(%d, %v) = %d, want %d", tc.name, tc.severity, tc.amount, got, tc.want)
		}
	}
}

func votesOf(decisions ...entities.VoteDecision) []entities.ValidationVote {
	votes := make([]entities.ValidationVote, 0, len(decisions))
	for i, decision := range decisions {
		votes = append(votes, entities.ValidationVote{
			VoteID:    string(rune('a' + i)),
			RequestID: "req-1",
			Decision:  decision,
		})
	}
	return votes
}

func TestEvaluateApprovesAtQuorum(t *testing.T) {
	outcome := Evaluate(votesOf(entities.VoteDecisionApprove, entities.VoteDecisionApprove), 3, 20)
	if !outcome.Decided || !outcome.Approved {
		t.Fatalf("expected approved outcome, got %+v", outcome)
	}
	if outcome.Required != 2 || outcome.ApproveCount != 2 {
		t.Fatalf("unexpected tally: %+v", outcome)
	}
}

func TestEvaluateUndecidedBelowQuorum(t *testing.T) {
	outcome := Evaluate(votesOf(entities.VoteDecisionApprove), 6, 20)
	if outcome.Decided {
		t.Fatalf("one approval of three required must stay open, got %+v", outcome)
	}

	outcome = Evaluate(votesOf(entities.VoteDecisionReject, entities.VoteDecisionReject, entities.VoteDecisionReject), 8, 200)
	if outcome.Decided {
		t.Fatalf("three rejections of five required must stay open, got %+v", outcome)
	}
}

func TestEvaluateRejectsEarly(t *testing.T) {
	outcome := Evaluate(votesOf(entities.VoteDecisionReject, entities.VoteDecisionReject), 3, 20)
	if !outcome.Decided || outcome.Approved {
		t.Fatalf("two rejections with quorum two must reject, got %+v", outcome)
	}

	outcome = Evaluate(votesOf(
		entities.VoteDecisionApprove,
		entities.VoteDecisionReject,
		entities.VoteDecisionReject,
		entities.VoteDecisionReject,
		entities.VoteDecisionReject,
	), 8, 200)
	if !outcome.Decided || outcome.Approved {
		t.Fatalf("four rejections at quorum five must reject, got %+v", outcome)
	}
	if outcome.RejectCount != 4 || outcome.TotalVotes != 5 {
		t.Fatalf("unexpected tally: %+v", outcome)
	}
}

func TestEvaluateSplitVoteRejectsOnceQuorumSizedSetCannotApprove(t *testing.T) {
	// With quorum two, one approval and one rejection already means the
	// rejection share exceeds the allowed slack.
	outcome := Evaluate(votesOf(entities.VoteDecisionApprove, entities.VoteDecisionReject), 3, 20)
	if !outcome.Decided || outcome.Approved {
		t.Fatalf("split vote at quorum two must reject, got %+v", outcome)
	}
}
