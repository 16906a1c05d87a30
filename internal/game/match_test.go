package game

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/magic3t/server/internal/models"
)

func newTestMatch(fc clockwork.Clock, limit time.Duration) *Match {
	return NewMatch(MatchConfig{
		ID:        uuid.New(),
		Mode:      models.GameModeRanked,
		TimeLimit: limit,
		Clock:     fc,
	})
}

// play applies an alternating pick sequence starting with Order, failing the
// test on any rejected pick.
func play(t *testing.T, m *Match, picks ...models.Choice) {
	t.Helper()
	side := models.SideOrder
	for _, c := range picks {
		if err := m.HandleChoice(side, c); err != nil {
			t.Fatalf("pick %d by %s: %v", c, side, err)
		}
		side = side.Other()
	}
}

func TestMatchWinByTriple(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := newTestMatch(fc, time.Minute)
	m.Start()

	if got := m.Turn(); got != models.SideOrder {
		t.Fatalf("turn after start = %s, want ORDER", got)
	}

	// Order collects {2,6,7}: 2+6+7 == 15.
	play(t, m, 2, 5, 6, 9, 7)

	if !m.Finished() {
		t.Fatal("match not finished after winning triple")
	}
	if got := m.Turn(); got != "" {
		t.Errorf("turn after finish = %q, want empty", got)
	}
	if w := m.Winner(); w == nil || *w != models.SideOrder {
		t.Errorf("winner = %v, want ORDER", w)
	}
	if got := m.FinalScore(models.SideOrder); got != 1 {
		t.Errorf("winner final score = %v, want 1", got)
	}
	if got := m.FinalScore(models.SideChaos); got != 0 {
		t.Errorf("loser final score = %v, want 0", got)
	}

	// The finished match is immutable.
	if err := m.HandleChoice(models.SideChaos, 1); !errors.Is(err, ErrMatchFinished) {
		t.Errorf("pick after finish = %v, want ErrMatchFinished", err)
	}
	if err := m.HandleSurrender(models.SideOrder); !errors.Is(err, ErrMatchFinished) {
		t.Errorf("surrender after finish = %v, want ErrMatchFinished", err)
	}
}

func TestMatchDrawSplitsPointByTime(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := newTestMatch(fc, time.Minute)
	m.Start()

	// Order ends with {1,2,3,4,5}, Chaos with {6,7,8,9}: no triple on either
	// side sums to 15. Order thinks 1s per move, Chaos 2s.
	order := []models.Choice{1, 2, 3, 4, 5}
	chaos := []models.Choice{6, 7, 8, 9}
	for i := 0; i < 9; i++ {
		if i%2 == 0 {
			fc.Advance(time.Second)
			if err := m.HandleChoice(models.SideOrder, order[i/2]); err != nil {
				t.Fatalf("order pick %d: %v", order[i/2], err)
			}
		} else {
			fc.Advance(2 * time.Second)
			if err := m.HandleChoice(models.SideChaos, chaos[i/2]); err != nil {
				t.Fatalf("chaos pick %d: %v", chaos[i/2], err)
			}
		}
	}

	if !m.Finished() {
		t.Fatal("match not finished after all nine choices")
	}
	if w := m.Winner(); w != nil {
		t.Fatalf("winner = %v, want nil on draw", *w)
	}

	orderScore := m.FinalScore(models.SideOrder)
	chaosScore := m.FinalScore(models.SideChaos)
	if orderScore <= 0.5 || orderScore >= 1 {
		t.Errorf("faster side score = %v, want in (0.5, 1)", orderScore)
	}
	if math.Abs(orderScore+chaosScore-1) > 1e-9 {
		t.Errorf("scores sum to %v, want 1", orderScore+chaosScore)
	}

	summary := m.Summary()
	if summary.TotalTime != 13*time.Second {
		t.Errorf("total time = %v, want 13s", summary.TotalTime)
	}
	if summary.TimeSpent[models.SideOrder] != 5*time.Second {
		t.Errorf("order time = %v, want 5s", summary.TimeSpent[models.SideOrder])
	}
	if summary.TimeSpent[models.SideChaos] != 8*time.Second {
		t.Errorf("chaos time = %v, want 8s", summary.TimeSpent[models.SideChaos])
	}
}

func TestMatchZeroTimeDrawIsNeutral(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := newTestMatch(fc, time.Minute)
	m.Start()

	// Same draw sequence with no clock movement at all.
	play(t, m, 1, 6, 2, 7, 3, 8, 4, 9, 5)

	if got := m.FinalScore(models.SideOrder); got != 0.5 {
		t.Errorf("order score = %v, want 0.5", got)
	}
	if got := m.FinalScore(models.SideChaos); got != 0.5 {
		t.Errorf("chaos score = %v, want 0.5", got)
	}
}

func TestMatchDrawWithInstantSideIsNeutral(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := newTestMatch(fc, time.Minute)
	m.Start()

	// Order answers instantly and accrues no time at all; only Chaos burns
	// clock. The draw must still not award Order the full point.
	order := []models.Choice{1, 2, 3, 4, 5}
	chaos := []models.Choice{6, 7, 8, 9}
	for i := 0; i < 9; i++ {
		if i%2 == 0 {
			if err := m.HandleChoice(models.SideOrder, order[i/2]); err != nil {
				t.Fatalf("order pick %d: %v", order[i/2], err)
			}
		} else {
			fc.Advance(2 * time.Second)
			if err := m.HandleChoice(models.SideChaos, chaos[i/2]); err != nil {
				t.Fatalf("chaos pick %d: %v", chaos[i/2], err)
			}
		}
	}

	if w := m.Winner(); w != nil {
		t.Fatalf("winner = %v, want nil on draw", *w)
	}
	if got := m.FinalScore(models.SideOrder); got != 0.5 {
		t.Errorf("order score = %v, want 0.5", got)
	}
	if got := m.FinalScore(models.SideChaos); got != 0.5 {
		t.Errorf("chaos score = %v, want 0.5", got)
	}
}

func TestMatchRejectsProtocolViolations(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := newTestMatch(fc, time.Minute)
	m.Start()

	if err := m.HandleChoice(models.SideChaos, 1); !errors.Is(err, ErrWrongTurn) {
		t.Errorf("out-of-turn pick = %v, want ErrWrongTurn", err)
	}
	if err := m.HandleChoice(models.SideOrder, 5); err != nil {
		t.Fatalf("valid pick: %v", err)
	}
	if err := m.HandleChoice(models.SideChaos, 5); !errors.Is(err, ErrChoiceUnavailable) {
		t.Errorf("double-claimed pick = %v, want ErrChoiceUnavailable", err)
	}
	for _, c := range []models.Choice{0, 10, -1} {
		if err := m.HandleChoice(models.SideChaos, c); !errors.Is(err, ErrChoiceUnavailable) {
			t.Errorf("out-of-range pick %d = %v, want ErrChoiceUnavailable", c, err)
		}
	}

	// Failed calls must not have mutated anything.
	if got := m.Turn(); got != models.SideChaos {
		t.Errorf("turn = %s, want CHAOS", got)
	}
	if got := len(m.Choices(models.SideChaos)); got != 0 {
		t.Errorf("chaos has %d choices, want 0", got)
	}
}

func TestMatchSurrender(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := newTestMatch(fc, time.Minute)

	if err := m.HandleSurrender(models.SideOrder); !errors.Is(err, ErrMatchNotStarted) {
		t.Fatalf("surrender before start = %v, want ErrMatchNotStarted", err)
	}

	m.Start()
	play(t, m, 5, 3)

	if err := m.HandleSurrender(models.SideOrder); err != nil {
		t.Fatalf("surrender: %v", err)
	}
	if w := m.Winner(); w == nil || *w != models.SideChaos {
		t.Errorf("winner = %v, want CHAOS", w)
	}

	var sawForfeit bool
	for _, ev := range m.Events() {
		if ev.Type == models.MatchEventForfeit && ev.Side == models.SideOrder {
			sawForfeit = true
		}
	}
	if !sawForfeit {
		t.Error("no Forfeit event logged for ORDER")
	}
}

func TestMatchTimeout(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := newTestMatch(fc, 10*time.Second)
	m.Start()

	play(t, m, 4) // turn passes to Chaos

	fc.Advance(11 * time.Second)
	waitFor(t, m.Finished, "match did not finish on timeout")

	if w := m.Winner(); w == nil || *w != models.SideOrder {
		t.Errorf("winner = %v, want ORDER", w)
	}
	if got := m.Turn(); got != "" {
		t.Errorf("turn after timeout = %q, want empty", got)
	}

	var sawTimeout bool
	for _, ev := range m.Events() {
		if ev.Type == models.MatchEventTimeout && ev.Side == models.SideChaos {
			sawTimeout = true
		}
	}
	if !sawTimeout {
		t.Error("no Timeout event logged for CHAOS")
	}

	if err := m.HandleChoice(models.SideChaos, 1); !errors.Is(err, ErrMatchFinished) {
		t.Errorf("pick after timeout = %v, want ErrMatchFinished", err)
	}
	if err := m.HandleSurrender(models.SideChaos); !errors.Is(err, ErrMatchFinished) {
		t.Errorf("surrender after timeout = %v, want ErrMatchFinished", err)
	}
}

func TestMatchTimeoutAfterFinishIsNoOp(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := newTestMatch(fc, 10*time.Second)
	m.Start()

	// Win the match, then push the clock far past every limit. The paused
	// timers were cancelled; even a stray callback must find the match
	// finished and leave it alone.
	play(t, m, 2, 5, 6, 9, 7)
	fc.Advance(time.Hour)

	if w := m.Winner(); w == nil || *w != models.SideOrder {
		t.Errorf("winner = %v, want ORDER", w)
	}
	var timeouts int
	for _, ev := range m.Events() {
		if ev.Type == models.MatchEventTimeout {
			timeouts++
		}
	}
	if timeouts != 0 {
		t.Errorf("found %d Timeout events after a decided match, want 0", timeouts)
	}
}

func TestMatchStartTwicePanics(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := newTestMatch(fc, time.Minute)
	m.Start()

	defer func() {
		if recover() == nil {
			t.Error("second Start did not panic")
		}
	}()
	m.Start()
}

func TestMatchFinalScoreBeforeFinishPanics(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := newTestMatch(fc, time.Minute)
	m.Start()

	defer func() {
		if recover() == nil {
			t.Error("FinalScore on running match did not panic")
		}
	}()
	m.FinalScore(models.SideOrder)
}

func TestMatchFinishedInvariant(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := newTestMatch(fc, time.Minute)

	check := func(stage string) {
		t.Helper()
		if m.Finished() != (m.Started() && m.Turn() == "") {
			t.Errorf("%s: finished=%v but started=%v turn=%q", stage, m.Finished(), m.Started(), m.Turn())
		}
	}

	check("before start")
	m.Start()
	check("after start")
	play(t, m, 2, 5)
	check("mid-game")
	play(t, m, 6, 9, 7)
	check("after finish")
}

func TestMatchEventSubscription(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := newTestMatch(fc, time.Minute)

	var choices []models.Choice
	m.Subscribe(models.MatchEventChoice, func(ev Event) {
		choices = append(choices, ev.Choice)
	})

	var finish *models.MatchSummary
	var id int
	id = m.Subscribe(models.MatchEventFinish, func(ev Event) {
		finish = ev.Summary
		// Self-removal during dispatch must be safe.
		m.Unsubscribe(models.MatchEventFinish, id)
	})

	m.Start()
	play(t, m, 2, 5, 6, 9, 7)

	want := []models.Choice{2, 5, 6, 9, 7}
	if len(choices) != len(want) {
		t.Fatalf("saw %d choice events, want %d", len(choices), len(want))
	}
	for i, c := range want {
		if choices[i] != c {
			t.Errorf("choice event %d = %d, want %d", i, choices[i], c)
		}
	}
	if finish == nil {
		t.Fatal("no Finish summary received")
	}
	if finish.Winner == nil || *finish.Winner != models.SideOrder {
		t.Errorf("summary winner = %v, want ORDER", finish.Winner)
	}
}

func TestHasWinningTriple(t *testing.T) {
	tests := []struct {
		name    string
		choices []models.Choice
		want    bool
	}{
		{"empty", nil, false},
		{"two elements", []models.Choice{7, 8}, false},
		{"exact triple", []models.Choice{2, 6, 7}, true},
		{"triple within larger set", []models.Choice{1, 9, 4, 2}, true},
		{"sum without triple", []models.Choice{1, 2, 3, 4}, false},
		{"center cross", []models.Choice{5, 9, 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasWinningTriple(tt.choices); got != tt.want {
				t.Errorf("hasWinningTriple(%v) = %v, want %v", tt.choices, got, tt.want)
			}
		})
	}
}
