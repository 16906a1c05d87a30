package store

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/magic3t/server/internal/models"
)

//go:embed schema.sql
var schema embed.FS

// DB wraps a pgx pool with the match-history and rating write paths. The
// game core never touches it; everything here is derived from Finish
// summaries.
type DB struct{ *pgxpool.Pool }

// Open connects a pool to dsn.
func Open(ctx context.Context, dsn string) (*DB, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}
	return &DB{p}, nil
}

func (db *DB) Close() { db.Pool.Close() }

func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

// MatchRow is one finished match as persisted.
type MatchRow struct {
	ID         uuid.UUID
	Mode       models.GameMode
	OrderID    uuid.UUID
	ChaosID    uuid.UUID
	WinnerID   *uuid.UUID
	TotalTime  time.Duration
	OrderTime  time.Duration
	ChaosTime  time.Duration
	Events     []models.MatchEvent
}

// InsertMatch records a finished match.
func (db *DB) InsertMatch(ctx context.Context, row MatchRow) error {
	var winner any
	if row.WinnerID != nil {
		winner = *row.WinnerID
	}
	events, err := json.Marshal(row.Events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	_, err = db.Exec(ctx, `
        INSERT INTO matches(id, mode, order_id, chaos_id, winner_id, total_ms, order_time_ms, chaos_time_ms, events)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, row.ID, string(row.Mode), row.OrderID, row.ChaosID, winner,
		row.TotalTime.Milliseconds(), row.OrderTime.Milliseconds(), row.ChaosTime.Milliseconds(), events)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

// GetOrInitRating ensures a rating row exists for the user, seeding it from
// initial, and returns the current record.
func (db *DB) GetOrInitRating(ctx context.Context, userID uuid.UUID, initial models.RatingRecord) (models.RatingRecord, error) {
	if _, err := db.Exec(ctx, `
        INSERT INTO ratings(user_id, score, k, matches, challenger)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (user_id) DO NOTHING
    `, userID, initial.Score, initial.K, initial.Matches, initial.Challenger); err != nil {
		return models.RatingRecord{}, fmt.Errorf("failed to init rating: %w", err)
	}

	var rec models.RatingRecord
	err := db.QueryRow(ctx, `
        SELECT score, k, matches, challenger FROM ratings WHERE user_id = $1
    `, userID).Scan(&rec.Score, &rec.K, &rec.Matches, &rec.Challenger)
	if err != nil {
		return models.RatingRecord{}, fmt.Errorf("failed to get rating: %w", err)
	}
	return rec, nil
}

// UpdateRating overwrites the user's rating record.
func (db *DB) UpdateRating(ctx context.Context, userID uuid.UUID, rec models.RatingRecord) error {
	_, err := db.Exec(ctx, `
        UPDATE ratings
           SET score = $2,
               k = $3,
               matches = $4,
               challenger = $5,
               updated_at = now()
         WHERE user_id = $1
    `, userID, rec.Score, rec.K, rec.Matches, rec.Challenger)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	return nil
}
