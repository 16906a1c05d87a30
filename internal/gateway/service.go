package gateway

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/magic3t/server/internal/game"
	"github.com/magic3t/server/internal/matchmaking"
	"github.com/magic3t/server/internal/models"
)

// Service translates websocket frames into Perspective calls and relays
// match events back out. It holds no game state of its own; the bank is the
// single source of truth for who is in which match.
type Service struct {
	bank *game.MatchBank
	cm   *ConnectionManager
}

// NewService builds the gateway service and its connection manager.
func NewService(bank *game.MatchBank, cfg ConnectionConfig) *Service {
	s := &Service{bank: bank}
	s.cm = NewConnectionManager(cfg, s.handleClientMessage)
	return s
}

// Connections exposes the connection manager for the HTTP handler.
func (s *Service) Connections() *ConnectionManager { return s.cm }

// QueuedPayload acknowledges a queue join over the socket.
type QueuedPayload struct {
	Mode models.GameMode `json:"mode"`
}

// NotifyQueued acknowledges a successful queue join on the user's socket, if
// they have one open.
func (s *Service) NotifyQueued(userID uuid.UUID, mode models.GameMode) {
	s.send(userID, MessageQueued, QueuedPayload{Mode: mode})
}

// NotifyPaired is the queue's pairing callback: it pushes the match id and
// opponent to the freshly paired user.
func (s *Service) NotifyPaired(userID uuid.UUID, n matchmaking.PairedNotification) {
	s.send(userID, MessagePaired, n)
}

// BindMatch subscribes the gateway to a new match so both players receive
// events and state refreshes. Wired as a queue PairedHook.
func (s *Service) BindMatch(match *game.Match, order, chaos *game.Perspective) {
	perspectives := map[uuid.UUID]*game.Perspective{
		order.UserID(): order,
		chaos.UserID(): chaos,
	}

	relay := func(ev game.Event) {
		for userID := range perspectives {
			s.send(userID, MessageEvent, MatchEventPayload{
				Type:   ev.Type,
				Side:   ev.Side,
				Choice: int(ev.Choice),
			})
		}
		// Reports read match state, which is locked during dispatch; push
		// them from a fresh goroutine.
		go func() {
			for userID, p := range perspectives {
				s.send(userID, MessageState, p.Report())
			}
		}()
	}

	for _, kind := range []models.MatchEventType{
		models.MatchEventStart,
		models.MatchEventChoice,
		models.MatchEventForfeit,
		models.MatchEventTimeout,
	} {
		match.Subscribe(kind, relay)
	}

	match.Subscribe(models.MatchEventFinish, func(ev game.Event) {
		for userID := range perspectives {
			s.send(userID, MessageFinished, ev.Summary)
		}
	})
}

// MatchEventPayload is the wire form of a relayed match event.
type MatchEventPayload struct {
	Type   models.MatchEventType `json:"type"`
	Side   models.Side           `json:"side,omitempty"`
	Choice int                   `json:"choice,omitempty"`
}

func (s *Service) handleClientMessage(userID uuid.UUID, msg ClientMessage) {
	switch msg.Type {
	case ClientPick:
		s.withPerspective(userID, func(p *game.Perspective) error {
			return p.Pick(models.Choice(msg.Choice))
		})
	case ClientSurrender:
		s.withPerspective(userID, func(p *game.Perspective) error {
			return p.Surrender()
		})
	case ClientState:
		p := s.bank.GetPerspective(userID)
		if p == nil {
			s.sendError(userID, "not in a match")
			return
		}
		s.send(userID, MessageState, p.Report())
	default:
		log.Debug().
			Str("user_id", userID.String()).
			Str("type", string(msg.Type)).
			Msg("unknown client message type")
	}
}

func (s *Service) withPerspective(userID uuid.UUID, fn func(*game.Perspective) error) {
	p := s.bank.GetPerspective(userID)
	if p == nil {
		s.sendError(userID, "not in a match")
		return
	}
	if err := fn(p); err != nil {
		if isProtocolError(err) {
			s.sendError(userID, err.Error())
			return
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("perspective call failed")
	}
}

func isProtocolError(err error) bool {
	return errors.Is(err, game.ErrWrongTurn) ||
		errors.Is(err, game.ErrChoiceUnavailable) ||
		errors.Is(err, game.ErrMatchNotStarted) ||
		errors.Is(err, game.ErrMatchFinished)
}

func (s *Service) sendError(userID uuid.UUID, message string) {
	s.send(userID, MessageError, ErrorPayload{Message: message})
}

func (s *Service) send(userID uuid.UUID, kind ServerMessageType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(kind)).Msg("failed to marshal payload")
		return
	}
	s.cm.SendToUser(userID, ServerMessage{
		Type:      kind,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}
