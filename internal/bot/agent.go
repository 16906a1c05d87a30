package bot

import (
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/magic3t/server/internal/game"
	"github.com/magic3t/server/internal/models"
)

// Agent plays one side of a match through an ordinary Perspective: it
// subscribes to Start and Choice events and picks on its turn after a think
// delay. The match has no idea it is playing a bot.
type Agent struct {
	perspective *game.Perspective
	strategy    Strategy
	clock       clockwork.Clock
	thinkDelay  time.Duration
}

// NewAgent wires a strategy to a perspective. thinkDelay must be positive;
// event handlers run on the match's dispatch path, so the actual move is
// always deferred to a timer goroutine.
func NewAgent(p *game.Perspective, strategy Strategy, clock clockwork.Clock, thinkDelay time.Duration) *Agent {
	return &Agent{perspective: p, strategy: strategy, clock: clock, thinkDelay: thinkDelay}
}

// Run subscribes the agent to its match. It returns immediately; moves are
// scheduled as events arrive.
func (a *Agent) Run() {
	a.perspective.Subscribe(models.MatchEventStart, a.onEvent)
	a.perspective.Subscribe(models.MatchEventChoice, a.onEvent)
}

func (a *Agent) onEvent(game.Event) {
	a.clock.AfterFunc(a.thinkDelay, a.move)
}

func (a *Agent) move() {
	report := a.perspective.Report()
	if report.Finished || !report.YourTurn {
		return
	}

	choice := a.strategy.SelectChoice(report.OwnChoices, report.OpponentChoices)
	err := a.perspective.Pick(choice)
	switch {
	case err == nil:
		log.Debug().
			Str("match_id", report.MatchID.String()).
			Str("side", string(report.Side)).
			Int("choice", int(choice)).
			Msg("bot picked")
	case errors.Is(err, game.ErrMatchFinished), errors.Is(err, game.ErrWrongTurn):
		// Lost the race against a timeout or surrender; nothing to do.
	default:
		log.Warn().
			Err(err).
			Str("match_id", report.MatchID.String()).
			Str("side", string(report.Side)).
			Msg("bot pick rejected")
	}
}
