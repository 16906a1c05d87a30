package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/magic3t/server/internal/models"
)

// Perspective is the capability-scoped view of a match handed to exactly one
// side. It owns no mutable state of its own; every call forwards to the
// match as that side. Sockets and bots alike act through a Perspective and
// nothing else.
type Perspective struct {
	match      *Match
	side       models.Side
	userID     uuid.UUID
	opponentID uuid.UUID
}

// StateReport is the side-relative snapshot relayed to clients.
type StateReport struct {
	MatchID           uuid.UUID       `json:"match_id"`
	Side              models.Side     `json:"side"`
	YourTurn          bool            `json:"your_turn"`
	Finished          bool            `json:"finished"`
	Winner            *models.Side    `json:"winner,omitempty"`
	OwnChoices        []models.Choice `json:"own_choices"`
	OpponentChoices   []models.Choice `json:"opponent_choices"`
	OwnRemaining      time.Duration   `json:"own_remaining"`
	OpponentRemaining time.Duration   `json:"opponent_remaining"`
}

func newPerspective(match *Match, side models.Side, userID, opponentID uuid.UUID) *Perspective {
	return &Perspective{match: match, side: side, userID: userID, opponentID: opponentID}
}

func (p *Perspective) MatchID() uuid.UUID    { return p.match.ID() }
func (p *Perspective) Side() models.Side     { return p.side }
func (p *Perspective) UserID() uuid.UUID     { return p.userID }
func (p *Perspective) OpponentID() uuid.UUID { return p.opponentID }

// Pick claims choice for this side.
func (p *Perspective) Pick(choice models.Choice) error {
	return p.match.HandleChoice(p.side, choice)
}

// Surrender forfeits the match for this side.
func (p *Perspective) Surrender() error {
	return p.match.HandleSurrender(p.side)
}

// Report snapshots the match from this side's point of view.
func (p *Perspective) Report() StateReport {
	return StateReport{
		MatchID:           p.match.ID(),
		Side:              p.side,
		YourTurn:          p.match.Turn() == p.side,
		Finished:          p.match.Finished(),
		Winner:            p.match.Winner(),
		OwnChoices:        p.match.Choices(p.side),
		OpponentChoices:   p.match.Choices(p.side.Other()),
		OwnRemaining:      p.match.Remaining(p.side),
		OpponentRemaining: p.match.Remaining(p.side.Other()),
	}
}

// Summary returns the finish summary, or nil while the match is running.
func (p *Perspective) Summary() *models.MatchSummary { return p.match.Summary() }

// Subscribe registers fn for match events of the given kind.
func (p *Perspective) Subscribe(kind models.MatchEventType, fn EventHandler) int {
	return p.match.Subscribe(kind, fn)
}

// Unsubscribe removes a handler registered through Subscribe.
func (p *Perspective) Unsubscribe(kind models.MatchEventType, id int) {
	p.match.Unsubscribe(kind, id)
}
