// internal/database/relations.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/versus/internal/game"
)

// IsBlocked reports whether either user has blocked the other.
func (s *Store) IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error) {
	q := `
		SELECT EXISTS (
			SELECT 1 FROM friends
			WHERE status = 'blocked'
			  AND ((user1_id = $1 AND user2_id = $2) OR (user1_id = $2 AND user2_id = $1))
		)
	`
	var blocked bool
	if err := s.pool.QueryRow(ctx, q, a, b).Scan(&blocked); err != nil {
		return false, fmt.Errorf("block lookup %s/%s: %w", a, b, err)
	}
	return blocked, nil
}

// ResolveUsername returns the display name of a user, or game.ErrUserNotFound.
func (s *Store) ResolveUsername(ctx context.Context, userID uuid.UUID) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, userID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", game.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("username lookup %s: %w", userID, err)
	}
	return name, nil
}
