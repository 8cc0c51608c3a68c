package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atiaxi/chromabot/internal/model"
)

// MarchRepo handles marching-order database operations.
type MarchRepo struct {
	db *sql.DB
}

// NewMarchRepo creates a MarchRepo.
func NewMarchRepo(db *sql.DB) *MarchRepo {
	return &MarchRepo{db: db}
}

// Create inserts a new marching order and fills in its id.
func (r *MarchRepo) Create(ctx context.Context, m *model.MarchingOrder) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO marching_orders (player_id, source_id, dest_id, dest_sector, arrives_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		m.PlayerID, m.SourceID, m.DestID, m.DestSector, m.ArrivesAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("create marching order: %w", err)
	}
	return nil
}

// ListByPlayer returns a player's chain, earliest arrival first.
func (r *MarchRepo) ListByPlayer(ctx context.Context, playerID int64) ([]model.MarchingOrder, error) {
	return r.list(ctx,
		`SELECT id, player_id, source_id, dest_id, dest_sector, arrives_at
		 FROM marching_orders WHERE player_id = $1 ORDER BY arrives_at, id`, playerID)
}

// ListDue returns every order whose arrival time has passed.
func (r *MarchRepo) ListDue(ctx context.Context, now time.Time) ([]model.MarchingOrder, error) {
	return r.list(ctx,
		`SELECT id, player_id, source_id, dest_id, dest_sector, arrives_at
		 FROM marching_orders WHERE arrives_at <= $1 ORDER BY arrives_at, id`, now)
}

// Delete removes one order.
func (r *MarchRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM marching_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete marching order: %w", err)
	}
	return nil
}

// DeleteByPlayer clears a player's whole chain.
func (r *MarchRepo) DeleteByPlayer(ctx context.Context, playerID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM marching_orders WHERE player_id = $1`, playerID)
	if err != nil {
		return fmt.Errorf("delete player orders: %w", err)
	}
	return nil
}

func (r *MarchRepo) list(ctx context.Context, query string, args ...any) ([]model.MarchingOrder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list marching orders: %w", err)
	}
	defer rows.Close()

	var orders []model.MarchingOrder
	for rows.Next() {
		var m model.MarchingOrder
		if err := rows.Scan(&m.ID, &m.PlayerID, &m.SourceID, &m.DestID, &m.DestSector, &m.ArrivesAt); err != nil {
			return nil, fmt.Errorf("scan marching order: %w", err)
		}
		orders = append(orders, m)
	}
	return orders, rows.Err()
}
