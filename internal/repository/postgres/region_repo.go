package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/atiaxi/chromabot/internal/model"
)

// RegionRepo handles region, border, and alias database operations.
type RegionRepo struct {
	db *sql.DB
}

// NewRegionRepo creates a RegionRepo.
func NewRegionRepo(db *sql.DB) *RegionRepo {
	return &RegionRepo{db: db}
}

// Create inserts a new region and fills in its id.
func (r *RegionRepo) Create(ctx context.Context, reg *model.Region) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO regions (name, srname, owner, capital_of, eternal, travel_multiplier)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		strings.ToLower(reg.Name), reg.SRName, reg.Owner, reg.CapitalOf, reg.Eternal, reg.TravelMultiplier,
	).Scan(&reg.ID)
	if err != nil {
		return fmt.Errorf("create region: %w", err)
	}
	return nil
}

// FindByID returns a region with its borders, or nil when absent.
func (r *RegionRepo) FindByID(ctx context.Context, id int64) (*model.Region, error) {
	reg, err := r.scanOne(ctx,
		`SELECT id, name, srname, owner, capital_of, eternal, travel_multiplier
		 FROM regions WHERE id = $1`, id)
	if err != nil || reg == nil {
		return reg, err
	}
	return reg, r.attach(ctx, reg)
}

// FindByName matches canonical name, board name, or alias.
func (r *RegionRepo) FindByName(ctx context.Context, name string) (*model.Region, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	reg, err := r.scanOne(ctx,
		`SELECT r.id, r.name, r.srname, r.owner, r.capital_of, r.eternal, r.travel_multiplier
		 FROM regions r
		 LEFT JOIN region_aliases a ON a.region_id = r.id
		 WHERE r.name = $1 OR lower(r.srname) = $1 OR lower(a.alias) = $1
		 LIMIT 1`, name)
	if err != nil || reg == nil {
		return reg, err
	}
	return reg, r.attach(ctx, reg)
}

// List returns every region with borders attached, ordered by id.
func (r *RegionRepo) List(ctx context.Context) ([]model.Region, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, srname, owner, capital_of, eternal, travel_multiplier
		 FROM regions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list regions: %w", err)
	}
	defer rows.Close()

	var regions []model.Region
	for rows.Next() {
		var reg model.Region
		if err := rows.Scan(&reg.ID, &reg.Name, &reg.SRName, &reg.Owner, &reg.CapitalOf, &reg.Eternal, &reg.TravelMultiplier); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		regions = append(regions, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range regions {
		if err := r.attach(ctx, &regions[i]); err != nil {
			return nil, err
		}
	}
	return regions, nil
}

// Update rewrites the mutable columns.
func (r *RegionRepo) Update(ctx context.Context, reg *model.Region) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE regions SET srname = $1, owner = $2, capital_of = $3, eternal = $4, travel_multiplier = $5
		 WHERE id = $6`,
		reg.SRName, reg.Owner, reg.CapitalOf, reg.Eternal, reg.TravelMultiplier, reg.ID)
	if err != nil {
		return fmt.Errorf("update region: %w", err)
	}
	return nil
}

// AddBorder records the adjacency once, in canonical (low, high) order.
func (r *RegionRepo) AddBorder(ctx context.Context, a, b int64) error {
	if a == b {
		return nil
	}
	if a > b {
		a, b = b, a
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO region_borders (region_a, region_b) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, a, b)
	if err != nil {
		return fmt.Errorf("add border: %w", err)
	}
	return nil
}

// SetAliases replaces the alias list for a region.
func (r *RegionRepo) SetAliases(ctx context.Context, id int64, aliases []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM region_aliases WHERE region_id = $1`, id); err != nil {
		return fmt.Errorf("clear aliases: %w", err)
	}
	for _, alias := range aliases {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO region_aliases (region_id, alias) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, id, strings.ToLower(alias))
		if err != nil {
			return fmt.Errorf("insert alias: %w", err)
		}
	}
	return tx.Commit()
}

// CapitalFor returns the capital region of a team, or nil.
func (r *RegionRepo) CapitalFor(ctx context.Context, team int) (*model.Region, error) {
	reg, err := r.scanOne(ctx,
		`SELECT id, name, srname, owner, capital_of, eternal, travel_multiplier
		 FROM regions WHERE capital_of = $1 LIMIT 1`, team)
	if err != nil || reg == nil {
		return reg, err
	}
	return reg, r.attach(ctx, reg)
}

func (r *RegionRepo) scanOne(ctx context.Context, query string, args ...any) (*model.Region, error) {
	var reg model.Region
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&reg.ID, &reg.Name, &reg.SRName, &reg.Owner, &reg.CapitalOf, &reg.Eternal, &reg.TravelMultiplier)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find region: %w", err)
	}
	return &reg, nil
}

// attach loads borders and aliases onto a scanned region.
func (r *RegionRepo) attach(ctx context.Context, reg *model.Region) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT CASE WHEN region_a = $1 THEN region_b ELSE region_a END
		 FROM region_borders WHERE region_a = $1 OR region_b = $1`, reg.ID)
	if err != nil {
		return fmt.Errorf("load borders: %w", err)
	}
	defer rows.Close()
	reg.Borders = reg.Borders[:0]
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan border: %w", err)
		}
		reg.Borders = append(reg.Borders, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	arows, err := r.db.QueryContext(ctx,
		`SELECT alias FROM region_aliases WHERE region_id = $1 ORDER BY alias`, reg.ID)
	if err != nil {
		return fmt.Errorf("load aliases: %w", err)
	}
	defer arows.Close()
	reg.Aliases = reg.Aliases[:0]
	for arows.Next() {
		var alias string
		if err := arows.Scan(&alias); err != nil {
			return fmt.Errorf("scan alias: %w", err)
		}
		reg.Aliases = append(reg.Aliases, alias)
	}
	return arows.Err()
}
