package reconcile

import (
	"testing"

	"github.com/Leganyst/association-portal/internal/model"
)

func TestScore(t *testing.T) {
	c := Candidate{ClubID: 1, HasDescription: true, Validated: true, Members: 3}
	if got := Score(c); got != 153 {
		t.Fatalf("Score = %d, want 153", got)
	}
	if got := Score(Candidate{ClubID: 2}); got != 0 {
		t.Fatalf("empty candidate Score = %d, want 0", got)
	}
}

func TestFromClub_BlankDescription(t *testing.T) {
	c := FromClub(model.Club{ID: 7, Description: "   ", ValidationStatus: model.StatusValidated}, 2)
	if c.HasDescription {
		t.Fatalf("whitespace-only description must not count")
	}
	if !c.Validated || c.Members != 2 {
		t.Fatalf("unexpected candidate %+v", c)
	}
}

func TestElect_TieGoesToLowestID(t *testing.T) {
	scored := ScoreAll([]Candidate{
		{ClubID: 30, Validated: true, Members: 2}, // B: 52
		{ClubID: 20, Members: 10},                 // A: 10
		{ClubID: 10, Validated: true, Members: 2}, // C: 52
	})

	winner, losers, ok := Elect(scored)
	if !ok {
		t.Fatalf("expected election to succeed")
	}
	if winner.ClubID != 10 || winner.Score != 52 {
		t.Fatalf("winner = %+v, want club 10 with score 52", winner)
	}
	if len(losers) != 2 || losers[0].ClubID != 20 || losers[1].ClubID != 30 {
		t.Fatalf("losers must be ordered by id, got %+v", losers)
	}
}

func TestElect_StrictlyHighestWins(t *testing.T) {
	scored := ScoreAll([]Candidate{
		{ClubID: 1},
		{ClubID: 2, HasDescription: true},
	})
	winner, _, ok := Elect(scored)
	if !ok || winner.ClubID != 2 {
		t.Fatalf("expected club 2 to win, got %+v ok=%v", winner, ok)
	}
}

func TestElect_NeedsTwoCandidates(t *testing.T) {
	if _, _, ok := Elect(ScoreAll([]Candidate{{ClubID: 1}})); ok {
		t.Fatalf("single candidate must not be elected")
	}
}
