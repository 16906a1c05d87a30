package results

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/magic3t/server/internal/game"
	"github.com/magic3t/server/internal/models"
	"github.com/magic3t/server/internal/publish"
	"github.com/magic3t/server/internal/rating"
	"github.com/magic3t/server/internal/store"
)

// Store is what the syncer needs from persistence.
type Store interface {
	InsertMatch(ctx context.Context, row store.MatchRow) error
	GetOrInitRating(ctx context.Context, userID uuid.UUID, initial models.RatingRecord) (models.RatingRecord, error)
	UpdateRating(ctx context.Context, userID uuid.UUID, rec models.RatingRecord) error
}

// Publisher is what the syncer needs from the event bus.
type Publisher interface {
	Publish(ctx context.Context, event publish.MatchEvent) error
}

// FinishedPayload is the bus payload for a MatchFinished event.
type FinishedPayload struct {
	MatchID    uuid.UUID    `json:"match_id"`
	Mode       string       `json:"mode"`
	OrderID    uuid.UUID    `json:"order_id"`
	ChaosID    uuid.UUID    `json:"chaos_id"`
	Winner     *models.Side `json:"winner,omitempty"`
	OrderDelta int          `json:"order_lp_delta"`
	ChaosDelta int          `json:"chaos_lp_delta"`
	TotalMs    int64        `json:"total_ms"`
}

// Syncer subscribes to match Finish events and derives everything external
// from the summary alone: the match-history row, both rating updates and the
// bus event. The game core never sees it.
type Syncer struct {
	store     Store
	publisher Publisher // optional
	converter rating.Converter
	initial   models.RatingRecord
	timeout   time.Duration
}

// NewSyncer builds a syncer. initial seeds rating rows for first-time
// players; publisher may be nil when no bus is configured.
func NewSyncer(st Store, publisher Publisher, converter rating.Converter, initial models.RatingRecord) *Syncer {
	return &Syncer{
		store:     st,
		publisher: publisher,
		converter: converter,
		initial:   initial,
		timeout:   10 * time.Second,
	}
}

// Attach subscribes the syncer to one match. Persistence runs on its own
// goroutine so the finishing transition never blocks on I/O.
func (s *Syncer) Attach(match *game.Match, order, chaos *game.Perspective) {
	orderID, chaosID := order.UserID(), chaos.UserID()
	if order.Side() != models.SideOrder {
		orderID, chaosID = chaosID, orderID
	}

	match.Subscribe(models.MatchEventFinish, func(ev game.Event) {
		go s.sync(ev.Summary, orderID, chaosID)
	})
}

func (s *Syncer) sync(summary *models.MatchSummary, orderID, chaosID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	orderRec, err := s.store.GetOrInitRating(ctx, orderID, s.initial)
	if err != nil {
		log.Error().Err(err).Str("match_id", summary.MatchID.String()).Msg("failed to load order rating")
		return
	}
	chaosRec, err := s.store.GetOrInitRating(ctx, chaosID, s.initial)
	if err != nil {
		log.Error().Err(err).Str("match_id", summary.MatchID.String()).Msg("failed to load chaos rating")
		return
	}

	newOrder, newChaos, orderDelta, chaosDelta := s.converter.UpdateRatings(
		orderRec, chaosRec, summary.FinalScore[models.SideOrder])

	if err := s.store.UpdateRating(ctx, orderID, newOrder); err != nil {
		log.Error().Err(err).Str("user_id", orderID.String()).Msg("failed to update rating")
	}
	if err := s.store.UpdateRating(ctx, chaosID, newChaos); err != nil {
		log.Error().Err(err).Str("user_id", chaosID.String()).Msg("failed to update rating")
	}

	row := store.MatchRow{
		ID:        summary.MatchID,
		Mode:      summary.Mode,
		OrderID:   orderID,
		ChaosID:   chaosID,
		TotalTime: summary.TotalTime,
		OrderTime: summary.TimeSpent[models.SideOrder],
		ChaosTime: summary.TimeSpent[models.SideChaos],
		Events:    summary.Events,
	}
	if summary.Winner != nil {
		winnerID := orderID
		if *summary.Winner == models.SideChaos {
			winnerID = chaosID
		}
		row.WinnerID = &winnerID
	}
	if err := s.store.InsertMatch(ctx, row); err != nil {
		log.Error().Err(err).Str("match_id", summary.MatchID.String()).Msg("failed to insert match")
	}

	log.Info().
		Str("match_id", summary.MatchID.String()).
		Int("order_lp_delta", orderDelta).
		Int("chaos_lp_delta", chaosDelta).
		Msg("match results synced")

	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(FinishedPayload{
		MatchID:    summary.MatchID,
		Mode:       string(summary.Mode),
		OrderID:    orderID,
		ChaosID:    chaosID,
		Winner:     summary.Winner,
		OrderDelta: orderDelta,
		ChaosDelta: chaosDelta,
		TotalMs:    summary.TotalTime.Milliseconds(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal MatchFinished payload")
		return
	}
	if err := s.publisher.Publish(ctx, publish.MatchEvent{
		EventID:   uuid.New(),
		EventType: "MatchFinished",
		MatchID:   summary.MatchID,
		Payload:   payload,
	}); err != nil {
		log.Error().Err(err).Str("match_id", summary.MatchID.String()).Msg("failed to publish MatchFinished")
	}
}
