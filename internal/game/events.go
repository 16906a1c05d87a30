package game

import (
	"sync"

	"github.com/magic3t/server/internal/models"
)

// Event is what match subscribers receive. Summary is non-nil only for
// Finish events.
type Event struct {
	Type    models.MatchEventType
	Side    models.Side
	Choice  models.Choice
	Summary *models.MatchSummary
}

// EventHandler consumes a single match event. Handlers run on the emitting
// goroutine and must not call back into the match synchronously; schedule
// follow-up moves (bots) or I/O (persistence) asynchronously.
type EventHandler func(Event)

type listener struct {
	id int
	fn EventHandler
}

// emitter is a per-kind listener registry. Unsubscribing from inside a
// handler (self-removal on Finish) is safe: dispatch iterates over a
// snapshot taken under the lock.
type emitter struct {
	mu        sync.Mutex
	nextID    int
	listeners map[models.MatchEventType][]listener
}

func newEmitter() *emitter {
	return &emitter{listeners: make(map[models.MatchEventType][]listener)}
}

func (e *emitter) subscribe(kind models.MatchEventType, fn EventHandler) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.listeners[kind] = append(e.listeners[kind], listener{id: e.nextID, fn: fn})
	return e.nextID
}

func (e *emitter) unsubscribe(kind models.MatchEventType, id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls := e.listeners[kind]
	for i, l := range ls {
		if l.id == id {
			e.listeners[kind] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	snapshot := make([]listener, len(e.listeners[ev.Type]))
	copy(snapshot, e.listeners[ev.Type])
	e.mu.Unlock()

	for _, l := range snapshot {
		l.fn(ev)
	}
}
