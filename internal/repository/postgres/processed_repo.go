package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// ProcessedRepo remembers which external message ids were handled.
type ProcessedRepo struct {
	db *sql.DB
}

// NewProcessedRepo creates a ProcessedRepo.
func NewProcessedRepo(db *sql.DB) *ProcessedRepo {
	return &ProcessedRepo{db: db}
}

// Mark records a message id as handled. Battle id 0 covers inbox
// messages; marking twice is a no-op.
func (r *ProcessedRepo) Mark(ctx context.Context, battleID int64, messageID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO processed (battle_id, message_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, battleID, messageID)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// Seen reports whether the message id was already handled.
func (r *ProcessedRepo) Seen(ctx context.Context, battleID int64, messageID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed WHERE battle_id = $1 AND message_id = $2`, battleID, messageID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check processed: %w", err)
	}
	return true, nil
}
