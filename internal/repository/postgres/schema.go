package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate brings the schema up to date. Statements are idempotent so
// the bot can run this on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	migrations := []string{
		createRegionsTable,
		createRegionBordersTable,
		createRegionAliasesTable,
		createPlayersTable,
		createMarchingOrdersTable,
		createBattlesTable,
		createSkirmishesTable,
		createBuffsTable,
		createCodewordsTable,
		createProcessedTable,
	}
	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

const createRegionsTable = `
CREATE TABLE IF NOT EXISTS regions (
    id BIGSERIAL PRIMARY KEY,
    name TEXT UNIQUE NOT NULL,
    srname TEXT NOT NULL,
    owner INT NOT NULL DEFAULT -1,
    capital_of INT NOT NULL DEFAULT -1,
    eternal BOOLEAN NOT NULL DEFAULT false,
    travel_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1
);
`

const createRegionBordersTable = `
CREATE TABLE IF NOT EXISTS region_borders (
    region_a BIGINT NOT NULL REFERENCES regions(id) ON DELETE CASCADE,
    region_b BIGINT NOT NULL REFERENCES regions(id) ON DELETE CASCADE,
    PRIMARY KEY (region_a, region_b)
);
`

const createRegionAliasesTable = `
CREATE TABLE IF NOT EXISTS region_aliases (
    region_id BIGINT NOT NULL REFERENCES regions(id) ON DELETE CASCADE,
    alias TEXT NOT NULL,
    PRIMARY KEY (region_id, alias)
);
`

const createPlayersTable = `
CREATE TABLE IF NOT EXISTS players (
    id BIGSERIAL PRIMARY KEY,
    name TEXT UNIQUE NOT NULL,
    team INT NOT NULL,
    loyalists INT NOT NULL DEFAULT 100,
    committed_loyalists INT NOT NULL DEFAULT 0,
    region_id BIGINT NOT NULL REFERENCES regions(id),
    sector INT NOT NULL DEFAULT 0,
    leader BOOLEAN NOT NULL DEFAULT false,
    defectable BOOLEAN NOT NULL DEFAULT true,
    recruited_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const createMarchingOrdersTable = `
CREATE TABLE IF NOT EXISTS marching_orders (
    id BIGSERIAL PRIMARY KEY,
    player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
    source_id BIGINT NOT NULL REFERENCES regions(id),
    dest_id BIGINT NOT NULL REFERENCES regions(id),
    dest_sector INT NOT NULL DEFAULT 0,
    arrives_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS marching_orders_arrives_idx ON marching_orders (arrives_at);
`

const createBattlesTable = `
CREATE TABLE IF NOT EXISTS battles (
    id BIGSERIAL PRIMARY KEY,
    region_id BIGINT NOT NULL REFERENCES regions(id) ON DELETE CASCADE,
    begins_at TIMESTAMPTZ NOT NULL,
    ends_at TIMESTAMPTZ,
    display_ends_at TIMESTAMPTZ,
    submission_id TEXT NOT NULL DEFAULT '',
    lockout INT NOT NULL DEFAULT 0,
    score0 INT NOT NULL DEFAULT 0,
    score1 INT NOT NULL DEFAULT 0,
    victor INT NOT NULL DEFAULT -1
);
`

const createSkirmishesTable = `
CREATE TABLE IF NOT EXISTS skirmishes (
    id BIGSERIAL PRIMARY KEY,
    battle_id BIGINT NOT NULL REFERENCES battles(id) ON DELETE CASCADE,
    parent_id BIGINT NOT NULL DEFAULT 0,
    player_id BIGINT NOT NULL REFERENCES players(id),
    amount INT NOT NULL,
    troop_type TEXT NOT NULL DEFAULT 'infantry',
    hinder BOOLEAN NOT NULL DEFAULT true,
    sector INT NOT NULL DEFAULT 0,
    comment_id TEXT NOT NULL DEFAULT '',
    summary_id TEXT NOT NULL DEFAULT '',
    ends_at TIMESTAMPTZ,
    display_ends_at TIMESTAMPTZ,
    resolved BOOLEAN NOT NULL DEFAULT false,
    victor INT NOT NULL DEFAULT -1,
    vp INT NOT NULL DEFAULT 0,
    margin INT NOT NULL DEFAULT 0,
    unopposed BOOLEAN NOT NULL DEFAULT false
);
CREATE INDEX IF NOT EXISTS skirmishes_battle_idx ON skirmishes (battle_id);
CREATE INDEX IF NOT EXISTS skirmishes_comment_idx ON skirmishes (comment_id);
`

const createBuffsTable = `
CREATE TABLE IF NOT EXISTS buffs (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    internal TEXT NOT NULL,
    value DOUBLE PRECISION NOT NULL DEFAULT 0,
    expires_at TIMESTAMPTZ,
    region_id BIGINT NOT NULL DEFAULT 0,
    skirmish_id BIGINT NOT NULL DEFAULT 0,
    UNIQUE (region_id, skirmish_id, internal)
);
`

const createCodewordsTable = `
CREATE TABLE IF NOT EXISTS codewords (
    id BIGSERIAL PRIMARY KEY,
    player_id BIGINT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
    code TEXT NOT NULL,
    word TEXT NOT NULL,
    UNIQUE (player_id, code)
);
`

const createProcessedTable = `
CREATE TABLE IF NOT EXISTS processed (
    id BIGSERIAL PRIMARY KEY,
    battle_id BIGINT NOT NULL DEFAULT 0,
    message_id TEXT NOT NULL,
    UNIQUE (battle_id, message_id)
);
`
