package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/atiaxi/chromabot/internal/model"
)

// PlayerRepo handles player database operations.
type PlayerRepo struct {
	db *sql.DB
}

// NewPlayerRepo creates a PlayerRepo.
func NewPlayerRepo(db *sql.DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// Create inserts a new player and fills in its id.
func (r *PlayerRepo) Create(ctx context.Context, p *model.Player) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO players (name, team, loyalists, committed_loyalists, region_id, sector, leader, defectable, recruited_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		strings.ToLower(p.Name), p.Team, p.Loyalists, p.CommittedLoyalists, p.RegionID, p.Sector, p.Leader, p.Defectable, p.RecruitedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create player: %w", err)
	}
	return nil
}

// FindByID returns a player, or nil when absent.
func (r *PlayerRepo) FindByID(ctx context.Context, id int64) (*model.Player, error) {
	return r.scanOne(ctx, `SELECT `+playerCols+` FROM players WHERE id = $1`, id)
}

// FindByName matches case-insensitively.
func (r *PlayerRepo) FindByName(ctx context.Context, name string) (*model.Player, error) {
	return r.scanOne(ctx, `SELECT `+playerCols+` FROM players WHERE name = $1`,
		strings.ToLower(strings.TrimSpace(name)))
}

// Update rewrites the mutable columns.
func (r *PlayerRepo) Update(ctx context.Context, p *model.Player) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE players SET team = $1, loyalists = $2, committed_loyalists = $3,
		        region_id = $4, sector = $5, leader = $6, defectable = $7
		 WHERE id = $8`,
		p.Team, p.Loyalists, p.CommittedLoyalists, p.RegionID, p.Sector, p.Leader, p.Defectable, p.ID)
	if err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	return nil
}

// ListInRegion returns the players currently in a region.
func (r *PlayerRepo) ListInRegion(ctx context.Context, regionID int64) ([]model.Player, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+playerCols+` FROM players WHERE region_id = $1 ORDER BY id`, regionID)
	if err != nil {
		return nil, fmt.Errorf("list players in region: %w", err)
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		var p model.Player
		if err := scanPlayer(rows, &p); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// CountByTeam returns player counts keyed by team.
func (r *PlayerRepo) CountByTeam(ctx context.Context) (map[int]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT team, COUNT(*) FROM players GROUP BY team`)
	if err != nil {
		return nil, fmt.Errorf("count players: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var team, n int
		if err := rows.Scan(&team, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[team] = n
	}
	return counts, rows.Err()
}

const playerCols = `id, name, team, loyalists, committed_loyalists, region_id, sector, leader, defectable, recruited_at`

func (r *PlayerRepo) scanOne(ctx context.Context, query string, args ...any) (*model.Player, error) {
	var p model.Player
	err := scanPlayer(r.db.QueryRowContext(ctx, query, args...), &p)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner, p *model.Player) error {
	err := row.Scan(&p.ID, &p.Name, &p.Team, &p.Loyalists, &p.CommittedLoyalists,
		&p.RegionID, &p.Sector, &p.Leader, &p.Defectable, &p.RecruitedAt)
	if err == sql.ErrNoRows {
		return err
	}
	if err != nil {
		return fmt.Errorf("scan player: %w", err)
	}
	return nil
}
