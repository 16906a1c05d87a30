package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/magic3t/server/internal/models"
)

// Recoverable protocol errors. Transport decides how to present them; the
// match state is unchanged when they are returned.
var (
	ErrWrongTurn         = errors.New("not your turn")
	ErrChoiceUnavailable = errors.New("choice unavailable")
	ErrMatchNotStarted   = errors.New("match not started")
	ErrMatchFinished     = errors.New("match already finished")
)

// playerState is one side's half of a match: the claimed choices, the side's
// clock and the forfeit flag. It is mutated only by the owning Match.
type playerState struct {
	choices   []models.Choice
	timer     *Timer
	forfeited bool
}

func (p *playerState) claimed(c models.Choice) bool {
	for _, got := range p.choices {
		if got == c {
			return true
		}
	}
	return false
}

// MatchConfig carries everything needed to construct a Match.
type MatchConfig struct {
	ID        uuid.UUID
	Mode      models.GameMode
	TimeLimit time.Duration // per side
	Clock     clockwork.Clock
}

// Match is the turn-based state machine for one game. Every transition entry
// point (Start, HandleChoice, HandleSurrender and the internal timeout
// callback) is serialized by the match mutex, so a timeout racing a
// near-simultaneous pick or surrender finds the match already finished and
// becomes a no-op.
type Match struct {
	id    uuid.UUID
	mode  models.GameMode
	clock clockwork.Clock

	mu       sync.Mutex
	players  map[models.Side]*playerState
	turn     models.Side // zero value while not started or finished
	started  bool
	finished bool
	winner   models.Side // zero value when undecided or draw
	events   []models.MatchEvent
	total    *Stopwatch
	summary  *models.MatchSummary

	emitter *emitter
}

// NewMatch builds an unstarted match. Each side's timer is armed to forfeit
// the side on expiry once started.
func NewMatch(cfg MatchConfig) *Match {
	m := &Match{
		id:      cfg.ID,
		mode:    cfg.Mode,
		clock:   cfg.Clock,
		players: make(map[models.Side]*playerState, 2),
		total:   NewStopwatch(cfg.Clock),
		emitter: newEmitter(),
	}
	for _, side := range models.Sides {
		side := side
		m.players[side] = &playerState{
			timer: NewTimer(cfg.Clock, cfg.TimeLimit, func() { m.handleTimeout(side) }),
		}
	}
	return m
}

func (m *Match) ID() uuid.UUID         { return m.id }
func (m *Match) Mode() models.GameMode { return m.mode }

// Start begins the match: Order takes the turn and both the global clock and
// Order's timer start counting. Starting a match twice is a caller-contract
// bug and panics.
func (m *Match) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.finished {
		panic(fmt.Sprintf("game: Start called on already started match %s", m.id))
	}
	m.started = true
	m.turn = models.SideOrder
	m.total.Start()
	m.players[models.SideOrder].timer.Start()
	m.logEvent(models.MatchEvent{Type: models.MatchEventStart})

	log.Info().
		Str("match_id", m.id.String()).
		Str("mode", string(m.mode)).
		Msg("match started")
}

// HandleChoice applies side's claim of choice. It fails without mutating
// state when the match is over, it is not side's turn, or the choice is
// taken. A successful claim either wins the match (a triple summing to 15),
// draws it (all nine claimed) or passes the turn.
func (m *Match) HandleChoice(side models.Side, choice models.Choice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finished {
		return ErrMatchFinished
	}
	if m.turn != side {
		return ErrWrongTurn
	}
	if !choice.Valid() {
		return ErrChoiceUnavailable
	}
	for _, p := range m.players {
		if p.claimed(choice) {
			return ErrChoiceUnavailable
		}
	}

	// Terminal transitions must silence the opposing clock before anything
	// else; a timeout that already fired then finds the match finished.
	for _, p := range m.players {
		p.timer.Pause()
	}

	mover := m.players[side]
	mover.choices = append(mover.choices, choice)
	m.logEvent(models.MatchEvent{Type: models.MatchEventChoice, Side: side, Choice: choice})

	switch {
	case hasWinningTriple(mover.choices):
		m.finishLocked(side)
	case m.claimedCount() == int(models.MaxChoice):
		m.finishLocked("")
	default:
		m.turn = side.Other()
		m.players[m.turn].timer.Start()
	}
	return nil
}

// HandleSurrender forfeits the match for side, handing the win to the
// opponent.
func (m *Match) HandleSurrender(side models.Side) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finished {
		return ErrMatchFinished
	}
	if !m.started {
		return ErrMatchNotStarted
	}

	for _, p := range m.players {
		p.timer.Pause()
	}
	m.players[side].forfeited = true
	m.logEvent(models.MatchEvent{Type: models.MatchEventForfeit, Side: side})
	m.finishLocked(side.Other())
	return nil
}

// handleTimeout is invoked by a side's timer on expiry. It is not part of
// the public API; a timeout racing a pick or surrender that already finished
// the match is a guarded no-op.
func (m *Match) handleTimeout(side models.Side) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finished || !m.started {
		return
	}

	for _, p := range m.players {
		p.timer.Pause()
	}
	m.logEvent(models.MatchEvent{Type: models.MatchEventTimeout, Side: side})
	log.Info().
		Str("match_id", m.id.String()).
		Str("side", string(side)).
		Msg("side ran out of time")
	m.finishLocked(side.Other())
}

// finishLocked performs the single terminal transition. winner is the zero
// value on a draw. Callers hold m.mu and have paused both side timers.
func (m *Match) finishLocked(winner models.Side) {
	m.total.Pause()
	m.finished = true
	m.turn = ""
	m.winner = winner

	timeSpent := map[models.Side]time.Duration{
		models.SideOrder: m.players[models.SideOrder].timer.Elapsed(),
		models.SideChaos: m.players[models.SideChaos].timer.Elapsed(),
	}

	m.logEvent(models.MatchEvent{Type: models.MatchEventFinish, Side: winner})

	summary := &models.MatchSummary{
		MatchID:   m.id,
		Mode:      m.mode,
		TotalTime: m.total.Elapsed(),
		TimeSpent: timeSpent,
		FinalScore: map[models.Side]float64{
			models.SideOrder: finalScore(models.SideOrder, winner, timeSpent),
			models.SideChaos: finalScore(models.SideChaos, winner, timeSpent),
		},
		Events: append([]models.MatchEvent(nil), m.events...),
	}
	if winner != "" {
		w := winner
		summary.Winner = &w
	}
	m.summary = summary

	log.Info().
		Str("match_id", m.id.String()).
		Str("winner", string(winner)).
		Dur("total_time", summary.TotalTime).
		Msg("match finished")

	m.emitter.emit(Event{Type: models.MatchEventFinish, Side: winner, Summary: summary})
}

// logEvent appends to the event log and dispatches to subscribers. Finish is
// emitted separately with its summary attached.
func (m *Match) logEvent(ev models.MatchEvent) {
	ev.Elapsed = m.total.Elapsed()
	m.events = append(m.events, ev)
	if ev.Type != models.MatchEventFinish {
		m.emitter.emit(Event{Type: ev.Type, Side: ev.Side, Choice: ev.Choice})
	}
}

func (m *Match) claimedCount() int {
	n := 0
	for _, p := range m.players {
		n += len(p.choices)
	}
	return n
}

// FinalScore is defined only once the match is finished; asking earlier is a
// caller-contract bug. A decisive win scores 1/0. A draw splits a point by
// active time spent, the faster side landing above 0.5, both sides summing
// to 1; when either side spent no measurable time the split is neutral.
func (m *Match) FinalScore(side models.Side) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.finished {
		panic(fmt.Sprintf("game: FinalScore on unfinished match %s", m.id))
	}
	return m.summary.FinalScore[side]
}

func finalScore(side, winner models.Side, timeSpent map[models.Side]time.Duration) float64 {
	if winner != "" {
		if side == winner {
			return 1
		}
		return 0
	}
	// A side with no measured time would take the whole point; a draw has to
	// stay a draw, so the split is neutral whenever either clock reads zero.
	if timeSpent[side] == 0 || timeSpent[side.Other()] == 0 {
		return 0.5
	}
	return float64(timeSpent[side.Other()]) / float64(timeSpent[side]+timeSpent[side.Other()])
}

// hasWinningTriple reports whether any three distinct choices sum to 15.
// Brute force over at most nine elements.
func hasWinningTriple(choices []models.Choice) bool {
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

// Turn returns the side currently to move, or the zero value while the match
// is not started or already finished.
func (m *Match) Turn() models.Side {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.turn
}

// Started reports whether Start has run.
func (m *Match) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Finished reports whether the match reached its terminal state.
func (m *Match) Finished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished
}

// Winner returns the winning side, or nil while unfinished or on a draw.
func (m *Match) Winner() *models.Side {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.winner == "" {
		return nil
	}
	w := m.winner
	return &w
}

// Choices returns a copy of side's claimed choices in claim order.
func (m *Match) Choices(side models.Side) []models.Choice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Choice(nil), m.players[side].choices...)
}

// Remaining returns the time side has left on its clock.
func (m *Match) Remaining(side models.Side) time.Duration {
	return m.players[side].timer.Remaining()
}

// Events returns a copy of the append-only event log.
func (m *Match) Events() []models.MatchEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.MatchEvent(nil), m.events...)
}

// Summary returns the immutable finish summary, or nil while unfinished.
func (m *Match) Summary() *models.MatchSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary
}

// Subscribe registers fn for events of the given kind and returns a token
// for Unsubscribe. Handlers run on the emitting goroutine; see EventHandler.
func (m *Match) Subscribe(kind models.MatchEventType, fn EventHandler) int {
	return m.emitter.subscribe(kind, fn)
}

// Unsubscribe removes a previously registered handler. Safe to call from
// inside a handler.
func (m *Match) Unsubscribe(kind models.MatchEventType, id int) {
	m.emitter.unsubscribe(kind, id)
}
