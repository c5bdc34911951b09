// internal/database/results.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/versus/internal/game"
	"github.com/jason-s-yu/versus/internal/models"
)

// InsertMatchResults persists a batch of finished matches in one transaction
// and applies the rating change of every rated match. Results already stored
// (same session id) are skipped along with their rating update, so a
// redelivered batch is harmless.
func (s *Store) InsertMatchResults(ctx context.Context, results []game.MatchResult) error {
	q := `
		INSERT INTO match_results (
			session_id, game, kind, tournament_id,
			winner_id, winner_username, loser_id, loser_username,
			reason, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id) DO NOTHING
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, r := range results {
			tag, err := tx.Exec(ctx, q,
				r.SessionID, r.Game, string(r.Kind), nullable(r.TournamentID),
				r.Winner.UserID, r.Winner.Username, nullable(r.Loser.UserID), r.Loser.Username,
				string(r.Reason), time.UnixMilli(r.FinishedAt),
			)
			if err != nil {
				return fmt.Errorf("insert result %s: %w", r.SessionID, err)
			}
			if tag.RowsAffected() == 0 || !rated(r) {
				continue
			}
			if err := applyRating(ctx, tx, r.Game, r.Winner.UserID, r.Loser.UserID); err != nil {
				return fmt.Errorf("rate result %s: %w", r.SessionID, err)
			}
		}
		return nil
	})
}

// rated reports whether a result counts toward ratings. Custom games are
// friendlies.
func rated(r game.MatchResult) bool {
	return r.Kind != models.KindCustom && r.Loser.UserID != uuid.Nil && r.Loser.UserID != r.Winner.UserID
}

// nullable maps the nil UUID to SQL NULL.
func nullable(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
