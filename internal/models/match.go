package models

import (
	"time"

	"github.com/google/uuid"
)

// GameMode selects the per-side time limit for a match.
type GameMode string

const (
	GameModeCasual GameMode = "CASUAL"
	GameModeRanked GameMode = "RANKED"
)

// MatchEventType tags entries in a match's event log.
type MatchEventType string

const (
	MatchEventStart   MatchEventType = "Start"
	MatchEventChoice  MatchEventType = "Choice"
	MatchEventForfeit MatchEventType = "Forfeit"
	MatchEventTimeout MatchEventType = "Timeout"
	MatchEventFinish  MatchEventType = "Finish"
)

// MatchEvent is one append-only entry of a match's event log.
type MatchEvent struct {
	Type    MatchEventType `json:"type"`
	Side    Side           `json:"side,omitempty"`
	Choice  Choice         `json:"choice,omitempty"`
	Elapsed time.Duration  `json:"elapsed"` // total match time at the event
}

// MatchSummary is the immutable record emitted exactly once at Finish.
// External writers derive match history and rating updates from it without
// re-deriving match state.
type MatchSummary struct {
	MatchID    uuid.UUID               `json:"match_id"`
	Mode       GameMode                `json:"mode"`
	Winner     *Side                   `json:"winner,omitempty"` // nil on draw
	TotalTime  time.Duration           `json:"total_time"`
	TimeSpent  map[Side]time.Duration  `json:"time_spent"`
	FinalScore map[Side]float64        `json:"final_score"`
	Events     []MatchEvent            `json:"events"`
}
