// Package repository defines the persistence interfaces for the world
// store. Implementations live in the postgres and redis subpackages;
// services depend only on these interfaces so tests can swap in mocks.
package repository

import (
	"context"
	"time"

	"github.com/atiaxi/chromabot/internal/model"
)

// RegionRepo stores the world map.
type RegionRepo interface {
	Create(ctx context.Context, r *model.Region) error
	FindByID(ctx context.Context, id int64) (*model.Region, error)
	// FindByName matches the canonical name, the display board name,
	// or any alias, case-insensitively.
	FindByName(ctx context.Context, name string) (*model.Region, error)
	List(ctx context.Context) ([]model.Region, error)
	Update(ctx context.Context, r *model.Region) error
	AddBorder(ctx context.Context, a, b int64) error
	SetAliases(ctx context.Context, id int64, aliases []string) error
	CapitalFor(ctx context.Context, team int) (*model.Region, error)
}

// PlayerRepo stores combatants.
type PlayerRepo interface {
	Create(ctx context.Context, p *model.Player) error
	FindByID(ctx context.Context, id int64) (*model.Player, error)
	FindByName(ctx context.Context, name string) (*model.Player, error)
	Update(ctx context.Context, p *model.Player) error
	ListInRegion(ctx context.Context, regionID int64) ([]model.Player, error)
	CountByTeam(ctx context.Context) (map[int]int, error)
}

// MarchRepo stores scheduled movement hops.
type MarchRepo interface {
	Create(ctx context.Context, m *model.MarchingOrder) error
	ListByPlayer(ctx context.Context, playerID int64) ([]model.MarchingOrder, error)
	// ListDue returns orders whose arrival time has passed, soonest
	// first so chained hops apply in sequence.
	ListDue(ctx context.Context, now time.Time) ([]model.MarchingOrder, error)
	Delete(ctx context.Context, id int64) error
	DeleteByPlayer(ctx context.Context, playerID int64) error
}

// BattleRepo stores battles.
type BattleRepo interface {
	Create(ctx context.Context, b *model.Battle) error
	FindByID(ctx context.Context, id int64) (*model.Battle, error)
	FindBySubmission(ctx context.Context, submissionID string) (*model.Battle, error)
	FindByRegion(ctx context.Context, regionID int64) (*model.Battle, error)
	List(ctx context.Context) ([]model.Battle, error)
	Update(ctx context.Context, b *model.Battle) error
	Delete(ctx context.Context, id int64) error
}

// SkirmishRepo stores the per-battle action forests.
type SkirmishRepo interface {
	Create(ctx context.Context, s *model.SkirmishAction) error
	FindByID(ctx context.Context, id int64) (*model.SkirmishAction, error)
	FindByComment(ctx context.Context, commentID string) (*model.SkirmishAction, error)
	ListByBattle(ctx context.Context, battleID int64) ([]model.SkirmishAction, error)
	// RootFor finds a player's top-level action in a battle, resolved
	// or not; a player gets exactly one per battle.
	RootFor(ctx context.Context, battleID, playerID int64) (*model.SkirmishAction, error)
	// ChildFor finds a player's reply directly under a parent action.
	ChildFor(ctx context.Context, parentID, playerID int64) (*model.SkirmishAction, error)
	// CountActions counts a player's actions across a battle,
	// sub-skirmishes included.
	CountActions(ctx context.Context, battleID, playerID int64) (int, error)
	Update(ctx context.Context, s *model.SkirmishAction) error
	Delete(ctx context.Context, id int64) error
	DeleteByBattle(ctx context.Context, battleID int64) error
}

// BuffRepo stores region and skirmish modifiers.
type BuffRepo interface {
	// Attach inserts the buff unless the target already carries one
	// with the same internal key.
	Attach(ctx context.Context, b *model.Buff) error
	ListByRegion(ctx context.Context, regionID int64) ([]model.Buff, error)
	ListBySkirmish(ctx context.Context, skirmishID int64) ([]model.Buff, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	DeleteBySkirmishBattle(ctx context.Context, battleID int64) error
}

// CodewordRepo stores player-private aliases.
type CodewordRepo interface {
	Set(ctx context.Context, c *model.Codeword) error
	Lookup(ctx context.Context, playerID int64, code string) (*model.Codeword, error)
	ListByPlayer(ctx context.Context, playerID int64) ([]model.Codeword, error)
	Remove(ctx context.Context, playerID int64, code string) error
	RemoveAll(ctx context.Context, playerID int64) error
}

// ProcessedRepo remembers handled message ids.
type ProcessedRepo interface {
	Mark(ctx context.Context, battleID int64, messageID string) error
	Seen(ctx context.Context, battleID int64, messageID string) (bool, error)
}

// ReportCache caches rendered world reports so status commands do not
// rebuild them on every request.
type ReportCache interface {
	GetReport(ctx context.Context, key string) (string, error)
	SetReport(ctx context.Context, key, body string, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}
