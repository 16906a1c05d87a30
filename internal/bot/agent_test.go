package bot

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/magic3t/server/internal/game"
	"github.com/magic3t/server/internal/models"
)

func TestRandomStrategyPicksOnlyFreeChoice(t *testing.T) {
	s := NewRandomStrategy(rand.New(rand.NewSource(1)))
	own := []models.Choice{1, 2, 3, 4}
	opponent := []models.Choice{5, 6, 7, 8}

	for i := 0; i < 10; i++ {
		if got := s.SelectChoice(own, opponent); got != 9 {
			t.Fatalf("SelectChoice = %d, want 9 (the only free choice)", got)
		}
	}
}

func TestGreedyStrategySelection(t *testing.T) {
	tests := []struct {
		name     string
		own      []models.Choice
		opponent []models.Choice
		want     models.Choice
	}{
		{"completes own triple", []models.Choice{2, 6}, []models.Choice{1, 3}, 7},
		{"blocks opponent triple", []models.Choice{1, 2}, []models.Choice{5, 6}, 4},
		{"winning beats blocking", []models.Choice{2, 6}, []models.Choice{9, 5}, 7},
	}

	s := NewGreedyStrategy(rand.New(rand.NewSource(1)))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SelectChoice(tt.own, tt.opponent); got != tt.want {
				t.Errorf("SelectChoice(%v, %v) = %d, want %d", tt.own, tt.opponent, got, tt.want)
			}
		})
	}
}

func TestGreedyStrategyFallsBackToFreeChoice(t *testing.T) {
	s := NewGreedyStrategy(rand.New(rand.NewSource(1)))
	own := []models.Choice{5}
	var opponent []models.Choice

	got := s.SelectChoice(own, opponent)
	if got == 5 {
		t.Fatal("fallback returned an already claimed choice")
	}
	if got < models.MinChoice || got > models.MaxChoice {
		t.Fatalf("fallback returned out-of-range choice %d", got)
	}
}

// waitFor polls cond until it holds or the deadline passes. Fake-clock timer
// callbacks run on their own goroutines, so assertions after Advance must
// poll.
func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func TestTwoAgentsPlayMatchToCompletion(t *testing.T) {
	clock := clockwork.NewFakeClock()
	bank := game.NewMatchBank(clock)

	match := bank.CreateMatch(models.GameModeCasual, time.Minute)
	order, chaos := bank.CreatePerspectives(match, uuid.New(), uuid.New(), models.SideOrder)

	thinkDelay := 10 * time.Millisecond
	NewAgent(order, NewGreedyStrategy(rand.New(rand.NewSource(42))), clock, thinkDelay).Run()
	NewAgent(chaos, NewGreedyStrategy(rand.New(rand.NewSource(43))), clock, thinkDelay).Run()

	match.Start()

	// Each advance releases the pending think timers; one choice lands per
	// round. Nine choices fill the set, so the bound is generous.
	moves := func() int {
		return len(match.Choices(models.SideOrder)) + len(match.Choices(models.SideChaos))
	}
	for i := 0; i < 30 && !match.Finished(); i++ {
		before := moves()
		clock.Advance(thinkDelay)
		waitFor(t, func() bool { return match.Finished() || moves() > before })
	}

	if !match.Finished() {
		t.Fatal("match did not finish under two bots")
	}

	summary := match.Summary()
	if summary.Winner != nil {
		side := *summary.Winner
		if !hasTriple(match.Choices(side)) {
			t.Errorf("winner %s holds no triple summing to 15: %v", side, match.Choices(side))
		}
	} else if moves() != int(models.MaxChoice) {
		t.Errorf("draw declared with only %d choices claimed", moves())
	}

	scoreSum := summary.FinalScore[models.SideOrder] + summary.FinalScore[models.SideChaos]
	if scoreSum != 1 {
		t.Errorf("final scores sum to %v, want 1", scoreSum)
	}
}

func hasTriple(choices []models.Choice) bool {
	for i := 0; i < len(choices); i++ {
		for j := i + 1; j < len(choices); j++ {
			for k := j + 1; k < len(choices); k++ {
				if choices[i]+choices[j]+choices[k] == 15 {
					return true
				}
			}
		}
	}
	return false
}
