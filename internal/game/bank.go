package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/magic3t/server/internal/models"
)

// MatchBank is the process-wide registry of running matches. It enforces one
// active match per user: a user id maps to at most one Perspective and one
// opponent, and both pair entries appear and disappear together. The bank is
// owned and injected by the composition root, never a package global.
type MatchBank struct {
	clock clockwork.Clock

	mu           sync.RWMutex
	perspectives map[uuid.UUID]*Perspective
	opponents    map[uuid.UUID]uuid.UUID
}

// NewMatchBank creates an empty registry whose matches run on clock.
func NewMatchBank(clock clockwork.Clock) *MatchBank {
	return &MatchBank{
		clock:        clock,
		perspectives: make(map[uuid.UUID]*Perspective),
		opponents:    make(map[uuid.UUID]uuid.UUID),
	}
}

// CreateMatch allocates an id and constructs a match with the given mode and
// per-side time limit. The match is not yet bound to any user.
func (b *MatchBank) CreateMatch(mode models.GameMode, timeLimit time.Duration) *Match {
	return NewMatch(MatchConfig{
		ID:        uuid.New(),
		Mode:      mode,
		TimeLimit: timeLimit,
		Clock:     b.clock,
	})
}

// CreatePerspectives builds two opposite-side perspectives on match for the
// user pair and registers all four id entries as one atomic batch. A Finish
// subscription removes the batch the same way, so no reader ever observes a
// half-registered pair.
func (b *MatchBank) CreatePerspectives(match *Match, idA, idB uuid.UUID, sideOfA models.Side) (*Perspective, *Perspective) {
	pa := newPerspective(match, sideOfA, idA, idB)
	pb := newPerspective(match, sideOfA.Other(), idB, idA)

	b.mu.Lock()
	b.perspectives[idA] = pa
	b.perspectives[idB] = pb
	b.opponents[idA] = idB
	b.opponents[idB] = idA
	b.mu.Unlock()

	match.Subscribe(models.MatchEventFinish, func(Event) {
		b.mu.Lock()
		delete(b.perspectives, idA)
		delete(b.perspectives, idB)
		delete(b.opponents, idA)
		delete(b.opponents, idB)
		b.mu.Unlock()

		log.Debug().
			Str("match_id", match.ID().String()).
			Msg("match unregistered from bank")
	})

	log.Info().
		Str("match_id", match.ID().String()).
		Str("user_a", idA.String()).
		Str("user_b", idB.String()).
		Str("side_of_a", string(sideOfA)).
		Msg("match registered in bank")

	return pa, pb
}

// GetPerspective returns the user's perspective on their active match, or
// nil when the user is not in one.
func (b *MatchBank) GetPerspective(userID uuid.UUID) *Perspective {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.perspectives[userID]
}

// GetOpponent returns the opponent of a registered user. Asking for the
// opponent of an unregistered id is a caller-contract bug: callers must
// have checked ContainsUser or hold a Perspective.
func (b *MatchBank) GetOpponent(userID uuid.UUID) uuid.UUID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	opp, ok := b.opponents[userID]
	if !ok {
		panic(fmt.Sprintf("game: GetOpponent for unregistered user %s", userID))
	}
	return opp
}

// ContainsUser reports whether the user has an active match. Matchmaking
// gates enqueueing on it.
func (b *MatchBank) ContainsUser(userID uuid.UUID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.perspectives[userID]
	return ok
}
