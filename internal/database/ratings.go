// internal/database/ratings.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/versus/internal/rating"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Rating returns a user's rating for gameName, or the default rating if they
// have never played a rated match.
func (s *Store) Rating(ctx context.Context, userID uuid.UUID, gameName string) (rating.Rating, error) {
	return loadRating(ctx, s.pool, userID, gameName, false)
}

func loadRating(ctx context.Context, q querier, userID uuid.UUID, gameName string, forUpdate bool) (rating.Rating, error) {
	sql := `SELECT rating, deviation, volatility FROM ratings WHERE user_id = $1 AND game = $2`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var r rating.Rating
	err := q.QueryRow(ctx, sql, userID, gameName).Scan(&r.Rating, &r.Deviation, &r.Volatility)
	if errors.Is(err, pgx.ErrNoRows) {
		return rating.Default(), nil
	}
	if err != nil {
		return rating.Rating{}, fmt.Errorf("load rating: %w", err)
	}
	return r, nil
}

// applyRating updates both players' ratings after winnerID beat loserID.
func applyRating(ctx context.Context, tx pgx.Tx, gameName string, winnerID, loserID uuid.UUID) error {
	w, err := loadRating(ctx, tx, winnerID, gameName, true)
	if err != nil {
		return err
	}
	l, err := loadRating(ctx, tx, loserID, gameName, true)
	if err != nil {
		return err
	}
	w, l = rating.Update1v1(w, l)

	q := `
		INSERT INTO ratings (user_id, game, rating, deviation, volatility, games, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, NOW())
		ON CONFLICT (user_id, game) DO UPDATE SET
			rating = EXCLUDED.rating,
			deviation = EXCLUDED.deviation,
			volatility = EXCLUDED.volatility,
			games = ratings.games + 1,
			updated_at = NOW()
	`
	batch := &pgx.Batch{}
	batch.Queue(q, winnerID, gameName, w.Rating, w.Deviation, w.Volatility)
	batch.Queue(q, loserID, gameName, l.Rating, l.Deviation, l.Volatility)
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("store ratings: %w", err)
	}
	return nil
}
