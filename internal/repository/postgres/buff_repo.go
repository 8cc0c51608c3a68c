package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atiaxi/chromabot/internal/model"
)

// BuffRepo handles buff database operations.
type BuffRepo struct {
	db *sql.DB
}

// NewBuffRepo creates a BuffRepo.
func NewBuffRepo(db *sql.DB) *BuffRepo {
	return &BuffRepo{db: db}
}

// Attach inserts the buff unless the target already carries the same
// internal key.
func (r *BuffRepo) Attach(ctx context.Context, b *model.Buff) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO buffs (name, internal, value, expires_at, region_id, skirmish_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (region_id, skirmish_id, internal) DO UPDATE SET expires_at = EXCLUDED.expires_at
		 RETURNING id`,
		b.Name, b.Internal, b.Value, nullTime(b.ExpiresAt), b.RegionID, b.SkirmishID,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("attach buff: %w", err)
	}
	return nil
}

// ListByRegion returns the buffs on a region.
func (r *BuffRepo) ListByRegion(ctx context.Context, regionID int64) ([]model.Buff, error) {
	return r.list(ctx,
		`SELECT `+buffCols+` FROM buffs WHERE region_id = $1 AND region_id <> 0 ORDER BY id`, regionID)
}

// ListBySkirmish returns the buffs on one skirmish action.
func (r *BuffRepo) ListBySkirmish(ctx context.Context, skirmishID int64) ([]model.Buff, error) {
	return r.list(ctx,
		`SELECT `+buffCols+` FROM buffs WHERE skirmish_id = $1 AND skirmish_id <> 0 ORDER BY id`, skirmishID)
}

// DeleteExpired removes every buff past its expiry, returning how many
// went away.
func (r *BuffRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM buffs WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired buffs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired buff count: %w", err)
	}
	return int(n), nil
}

// DeleteBySkirmishBattle removes skirmish buffs belonging to a battle,
// used when the battle itself is torn down.
func (r *BuffRepo) DeleteBySkirmishBattle(ctx context.Context, battleID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM buffs WHERE skirmish_id IN (SELECT id FROM skirmishes WHERE battle_id = $1)`, battleID)
	if err != nil {
		return fmt.Errorf("delete battle buffs: %w", err)
	}
	return nil
}

const buffCols = `id, name, internal, value, expires_at, region_id, skirmish_id`

func (r *BuffRepo) list(ctx context.Context, query string, args ...any) ([]model.Buff, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list buffs: %w", err)
	}
	defer rows.Close()

	var buffs []model.Buff
	for rows.Next() {
		var b model.Buff
		var expires sql.NullTime
		if err := rows.Scan(&b.ID, &b.Name, &b.Internal, &b.Value, &expires, &b.RegionID, &b.SkirmishID); err != nil {
			return nil, fmt.Errorf("scan buff: %w", err)
		}
		b.ExpiresAt = expires.Time
		buffs = append(buffs, b)
	}
	return buffs, rows.Err()
}
