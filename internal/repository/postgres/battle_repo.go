package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atiaxi/chromabot/internal/model"
)

// BattleRepo handles battle database operations.
type BattleRepo struct {
	db *sql.DB
}

// NewBattleRepo creates a BattleRepo.
func NewBattleRepo(db *sql.DB) *BattleRepo {
	return &BattleRepo{db: db}
}

// Create inserts a new battle and fills in its id.
func (r *BattleRepo) Create(ctx context.Context, b *model.Battle) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO battles (region_id, begins_at, ends_at, display_ends_at, submission_id, lockout, score0, score1, victor)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		b.RegionID, b.BeginsAt, nullTime(b.EndsAt), nullTime(b.DisplayEndsAt),
		b.SubmissionID, b.Lockout, b.Score0, b.Score1, b.Victor,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("create battle: %w", err)
	}
	return nil
}

// FindByID returns a battle, or nil when absent.
func (r *BattleRepo) FindByID(ctx context.Context, id int64) (*model.Battle, error) {
	return r.scanOne(ctx, `SELECT `+battleCols+` FROM battles WHERE id = $1`, id)
}

// FindBySubmission looks a battle up by its thread id.
func (r *BattleRepo) FindBySubmission(ctx context.Context, submissionID string) (*model.Battle, error) {
	return r.scanOne(ctx, `SELECT `+battleCols+` FROM battles WHERE submission_id = $1`, submissionID)
}

// FindByRegion returns the battle over a region, or nil. At most one
// battle exists per region at a time.
func (r *BattleRepo) FindByRegion(ctx context.Context, regionID int64) (*model.Battle, error) {
	return r.scanOne(ctx, `SELECT `+battleCols+` FROM battles WHERE region_id = $1 LIMIT 1`, regionID)
}

// List returns every battle, oldest first.
func (r *BattleRepo) List(ctx context.Context) ([]model.Battle, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+battleCols+` FROM battles ORDER BY begins_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list battles: %w", err)
	}
	defer rows.Close()

	var battles []model.Battle
	for rows.Next() {
		var b model.Battle
		if err := scanBattle(rows, &b); err != nil {
			return nil, err
		}
		battles = append(battles, b)
	}
	return battles, rows.Err()
}

// Update rewrites the mutable columns.
func (r *BattleRepo) Update(ctx context.Context, b *model.Battle) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE battles SET begins_at = $1, ends_at = $2, display_ends_at = $3,
		        submission_id = $4, lockout = $5, score0 = $6, score1 = $7, victor = $8
		 WHERE id = $9`,
		b.BeginsAt, nullTime(b.EndsAt), nullTime(b.DisplayEndsAt),
		b.SubmissionID, b.Lockout, b.Score0, b.Score1, b.Victor, b.ID)
	if err != nil {
		return fmt.Errorf("update battle: %w", err)
	}
	return nil
}

// Delete removes a battle; skirmishes cascade.
func (r *BattleRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM battles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete battle: %w", err)
	}
	return nil
}

const battleCols = `id, region_id, begins_at, ends_at, display_ends_at, submission_id, lockout, score0, score1, victor`

func (r *BattleRepo) scanOne(ctx context.Context, query string, args ...any) (*model.Battle, error) {
	var b model.Battle
	err := scanBattle(r.db.QueryRowContext(ctx, query, args...), &b)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBattle(row rowScanner, b *model.Battle) error {
	var ends, displayEnds sql.NullTime
	err := row.Scan(&b.ID, &b.RegionID, &b.BeginsAt, &ends, &displayEnds,
		&b.SubmissionID, &b.Lockout, &b.Score0, &b.Score1, &b.Victor)
	if err == sql.ErrNoRows {
		return err
	}
	if err != nil {
		return fmt.Errorf("scan battle: %w", err)
	}
	b.EndsAt = ends.Time
	b.DisplayEndsAt = displayEnds.Time
	return nil
}
