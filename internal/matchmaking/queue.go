package matchmaking

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/magic3t/server/internal/game"
	"github.com/magic3t/server/internal/models"
)

// Recoverable enqueue errors.
var (
	ErrAlreadyInGame   = errors.New("already in game")
	ErrUnknownMode     = errors.New("unknown game mode")
	ErrBotsUnavailable = errors.New("bot matches unavailable")
)

// ModeConfig is the per-mode matchmaking tuning.
type ModeConfig struct {
	TimeLimit time.Duration
}

// PairedNotification tells a user their match is ready.
type PairedNotification struct {
	MatchID    uuid.UUID `json:"match_id"`
	OpponentID uuid.UUID `json:"opponent_id"`
}

// Notifier delivers a pairing notification to one user. The gateway plugs
// its websocket fanout in here.
type Notifier func(userID uuid.UUID, n PairedNotification)

// PairedHook observes every freshly created match before it starts. The
// result sync layer and the gateway bind their Finish/event subscriptions
// here.
type PairedHook func(match *game.Match, order, chaos *game.Perspective)

// BotSeater attaches a server-side player to the bot side of a freshly
// created match, before it starts.
type BotSeater func(p *game.Perspective)

// Queue pairs players FIFO with a single pending slot per mode. The whole
// check-clear-create sequence runs under the queue mutex, so two concurrent
// enqueues can never both pair against the same stale pending id.
type Queue struct {
	bank   *game.MatchBank
	modes  map[models.GameMode]ModeConfig
	notify Notifier

	mu      sync.Mutex
	pending map[models.GameMode]uuid.UUID
	hooks   []PairedHook
	seatBot BotSeater
}

// OnPaired registers a hook run for every match the queue creates. Hooks
// must be registered during wiring, before players enqueue.
func (q *Queue) OnPaired(fn PairedHook) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.hooks = append(q.hooks, fn)
}

// EnableBots registers the seater used for bot matches. Like OnPaired, it is
// called once during wiring; without it EnqueueBot is rejected.
func (q *Queue) EnableBots(fn BotSeater) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seatBot = fn
}

// NewQueue creates a queue over bank for the configured modes. notify may be
// nil when nobody cares about pairing callbacks (tests).
func NewQueue(bank *game.MatchBank, modes map[models.GameMode]ModeConfig, notify Notifier) *Queue {
	return &Queue{
		bank:    bank,
		modes:   modes,
		notify:  notify,
		pending: make(map[models.GameMode]uuid.UUID),
	}
}

// Enqueue registers userID for pairing in mode. Re-enqueueing the pending id
// is a no-op; a user with an active match is rejected. When a different id
// is already pending the pair is matched immediately: the slot is cleared,
// a match is created and started, and both parties are notified.
func (q *Queue) Enqueue(userID uuid.UUID, mode models.GameMode) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cfg, ok := q.modes[mode]
	if !ok {
		return ErrUnknownMode
	}
	if q.bank.ContainsUser(userID) {
		return ErrAlreadyInGame
	}

	waiting, has := q.pending[mode]
	if !has {
		q.pending[mode] = userID
		log.Info().
			Str("user_id", userID.String()).
			Str("mode", string(mode)).
			Msg("user queued")
		return nil
	}
	if waiting == userID {
		return nil
	}

	// Claim the slot before building anything so a concurrent enqueue sees
	// it empty.
	delete(q.pending, mode)

	match := q.bank.CreateMatch(mode, cfg.TimeLimit)
	// FIFO seat order: the longer-waiting player opens as Order.
	first, second := q.bank.CreatePerspectives(match, waiting, userID, models.SideOrder)
	for _, hook := range q.hooks {
		hook(match, first, second)
	}
	match.Start()

	log.Info().
		Str("match_id", match.ID().String()).
		Str("order", waiting.String()).
		Str("chaos", userID.String()).
		Str("mode", string(mode)).
		Msg("players paired")

	if q.notify != nil {
		q.notify(first.UserID(), PairedNotification{MatchID: match.ID(), OpponentID: first.OpponentID()})
		q.notify(second.UserID(), PairedNotification{MatchID: match.ID(), OpponentID: second.OpponentID()})
	}
	return nil
}

// EnqueueBot pairs userID against a server-side bot immediately, the user
// seated as Order. Any pending queue slot the user holds is released first so
// nobody else pairs against a player already in a match.
func (q *Queue) EnqueueBot(userID uuid.UUID, mode models.GameMode) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cfg, ok := q.modes[mode]
	if !ok {
		return ErrUnknownMode
	}
	if q.seatBot == nil {
		return ErrBotsUnavailable
	}
	if q.bank.ContainsUser(userID) {
		return ErrAlreadyInGame
	}

	for m, waiting := range q.pending {
		if waiting == userID {
			delete(q.pending, m)
		}
	}

	botID := uuid.New()
	match := q.bank.CreateMatch(mode, cfg.TimeLimit)
	human, bot := q.bank.CreatePerspectives(match, userID, botID, models.SideOrder)
	for _, hook := range q.hooks {
		hook(match, human, bot)
	}
	q.seatBot(bot)
	match.Start()

	log.Info().
		Str("match_id", match.ID().String()).
		Str("user_id", userID.String()).
		Str("bot_id", botID.String()).
		Str("mode", string(mode)).
		Msg("bot match created")

	if q.notify != nil {
		q.notify(userID, PairedNotification{MatchID: match.ID(), OpponentID: botID})
	}
	return nil
}

// Dequeue removes userID from whichever pending slot holds it, if any.
func (q *Queue) Dequeue(userID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for mode, waiting := range q.pending {
		if waiting == userID {
			delete(q.pending, mode)
			log.Info().
				Str("user_id", userID.String()).
				Str("mode", string(mode)).
				Msg("user left queue")
			return
		}
	}
}

// Pending returns the id waiting in mode's slot, if any.
func (q *Queue) Pending(mode models.GameMode) (uuid.UUID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id, ok := q.pending[mode]
	return id, ok
}
