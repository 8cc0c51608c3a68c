package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atiaxi/chromabot/internal/model"
)

// SkirmishRepo handles skirmish-action database operations.
type SkirmishRepo struct {
	db *sql.DB
}

// NewSkirmishRepo creates a SkirmishRepo.
func NewSkirmishRepo(db *sql.DB) *SkirmishRepo {
	return &SkirmishRepo{db: db}
}

// Create inserts a new action and fills in its id.
func (r *SkirmishRepo) Create(ctx context.Context, s *model.SkirmishAction) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO skirmishes (battle_id, parent_id, player_id, amount, troop_type, hinder, sector,
		        comment_id, summary_id, ends_at, display_ends_at, resolved, victor, vp, margin, unopposed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 RETURNING id`,
		s.BattleID, s.ParentID, s.PlayerID, s.Amount, s.TroopType, s.Hinder, s.Sector,
		s.CommentID, s.SummaryID, nullTime(s.EndsAt), nullTime(s.DisplayEndsAt),
		s.Resolved, s.Victor, s.VP, s.Margin, s.Unopposed,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create skirmish: %w", err)
	}
	return nil
}

// FindByID returns an action, or nil when absent.
func (r *SkirmishRepo) FindByID(ctx context.Context, id int64) (*model.SkirmishAction, error) {
	return r.scanOne(ctx, `SELECT `+skirmishCols+` FROM skirmishes WHERE id = $1`, id)
}

// FindByComment looks an action up by the comment that created it.
func (r *SkirmishRepo) FindByComment(ctx context.Context, commentID string) (*model.SkirmishAction, error) {
	if commentID == "" {
		return nil, nil
	}
	return r.scanOne(ctx, `SELECT `+skirmishCols+` FROM skirmishes WHERE comment_id = $1`, commentID)
}

// ListByBattle returns a battle's whole forest in creation order.
func (r *SkirmishRepo) ListByBattle(ctx context.Context, battleID int64) ([]model.SkirmishAction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+skirmishCols+` FROM skirmishes WHERE battle_id = $1 ORDER BY id`, battleID)
	if err != nil {
		return nil, fmt.Errorf("list skirmishes: %w", err)
	}
	defer rows.Close()

	var actions []model.SkirmishAction
	for rows.Next() {
		var s model.SkirmishAction
		if err := scanSkirmish(rows, &s); err != nil {
			return nil, err
		}
		actions = append(actions, s)
	}
	return actions, rows.Err()
}

// RootFor finds a player's top-level action in a battle.
func (r *SkirmishRepo) RootFor(ctx context.Context, battleID, playerID int64) (*model.SkirmishAction, error) {
	return r.scanOne(ctx,
		`SELECT `+skirmishCols+` FROM skirmishes
		 WHERE battle_id = $1 AND player_id = $2 AND parent_id = 0 LIMIT 1`,
		battleID, playerID)
}

// ChildFor finds a player's direct reply under a parent action.
func (r *SkirmishRepo) ChildFor(ctx context.Context, parentID, playerID int64) (*model.SkirmishAction, error) {
	return r.scanOne(ctx,
		`SELECT `+skirmishCols+` FROM skirmishes
		 WHERE parent_id = $1 AND player_id = $2 LIMIT 1`,
		parentID, playerID)
}

// CountActions counts a player's actions across a battle.
func (r *SkirmishRepo) CountActions(ctx context.Context, battleID, playerID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM skirmishes WHERE battle_id = $1 AND player_id = $2`,
		battleID, playerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count skirmishes: %w", err)
	}
	return n, nil
}

// Update rewrites the mutable columns.
func (r *SkirmishRepo) Update(ctx context.Context, s *model.SkirmishAction) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE skirmishes SET comment_id = $1, summary_id = $2, ends_at = $3, display_ends_at = $4,
		        resolved = $5, victor = $6, vp = $7, margin = $8, unopposed = $9
		 WHERE id = $10`,
		s.CommentID, s.SummaryID, nullTime(s.EndsAt), nullTime(s.DisplayEndsAt),
		s.Resolved, s.Victor, s.VP, s.Margin, s.Unopposed, s.ID)
	if err != nil {
		return fmt.Errorf("update skirmish: %w", err)
	}
	return nil
}

// Delete removes one action and any replies under it.
func (r *SkirmishRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM skirmishes WHERE id = $1 OR parent_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete skirmish: %w", err)
	}
	return nil
}

// DeleteByBattle clears a battle's forest.
func (r *SkirmishRepo) DeleteByBattle(ctx context.Context, battleID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM skirmishes WHERE battle_id = $1`, battleID)
	if err != nil {
		return fmt.Errorf("delete battle skirmishes: %w", err)
	}
	return nil
}

const skirmishCols = `id, battle_id, parent_id, player_id, amount, troop_type, hinder, sector,
	comment_id, summary_id, ends_at, display_ends_at, resolved, victor, vp, margin, unopposed`

func (r *SkirmishRepo) scanOne(ctx context.Context, query string, args ...any) (*model.SkirmishAction, error) {
	var s model.SkirmishAction
	err := scanSkirmish(r.db.QueryRowContext(ctx, query, args...), &s)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSkirmish(row rowScanner, s *model.SkirmishAction) error {
	var ends, displayEnds sql.NullTime
	err := row.Scan(&s.ID, &s.BattleID, &s.ParentID, &s.PlayerID, &s.Amount, &s.TroopType, &s.Hinder, &s.Sector,
		&s.CommentID, &s.SummaryID, &ends, &displayEnds, &s.Resolved, &s.Victor, &s.VP, &s.Margin, &s.Unopposed)
	if err == sql.ErrNoRows {
		return err
	}
	if err != nil {
		return fmt.Errorf("scan skirmish: %w", err)
	}
	s.EndsAt = ends.Time
	s.DisplayEndsAt = displayEnds.Time
	return nil
}
