package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/atiaxi/chromabot/internal/model"
)

// CodewordRepo handles codeword database operations.
type CodewordRepo struct {
	db *sql.DB
}

// NewCodewordRepo creates a CodewordRepo.
func NewCodewordRepo(db *sql.DB) *CodewordRepo {
	return &CodewordRepo{db: db}
}

// Set creates or replaces a player's codeword.
func (r *CodewordRepo) Set(ctx context.Context, c *model.Codeword) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO codewords (player_id, code, word) VALUES ($1, $2, $3)
		 ON CONFLICT (player_id, code) DO UPDATE SET word = EXCLUDED.word
		 RETURNING id`,
		c.PlayerID, strings.ToLower(c.Code), strings.ToLower(c.Word),
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("set codeword: %w", err)
	}
	return nil
}

// Lookup resolves one code for a player, or nil.
func (r *CodewordRepo) Lookup(ctx context.Context, playerID int64, code string) (*model.Codeword, error) {
	var c model.Codeword
	err := r.db.QueryRowContext(ctx,
		`SELECT id, player_id, code, word FROM codewords WHERE player_id = $1 AND code = $2`,
		playerID, strings.ToLower(code),
	).Scan(&c.ID, &c.PlayerID, &c.Code, &c.Word)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup codeword: %w", err)
	}
	return &c, nil
}

// ListByPlayer returns a player's codewords alphabetically.
func (r *CodewordRepo) ListByPlayer(ctx context.Context, playerID int64) ([]model.Codeword, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, player_id, code, word FROM codewords WHERE player_id = $1 ORDER BY code`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list codewords: %w", err)
	}
	defer rows.Close()

	var words []model.Codeword
	for rows.Next() {
		var c model.Codeword
		if err := rows.Scan(&c.ID, &c.PlayerID, &c.Code, &c.Word); err != nil {
			return nil, fmt.Errorf("scan codeword: %w", err)
		}
		words = append(words, c)
	}
	return words, rows.Err()
}

// Remove deletes one codeword.
func (r *CodewordRepo) Remove(ctx context.Context, playerID int64, code string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM codewords WHERE player_id = $1 AND code = $2`, playerID, strings.ToLower(code))
	if err != nil {
		return fmt.Errorf("remove codeword: %w", err)
	}
	return nil
}

// RemoveAll deletes every codeword a player has.
func (r *CodewordRepo) RemoveAll(ctx context.Context, playerID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM codewords WHERE player_id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("remove codewords: %w", err)
	}
	return nil
}
