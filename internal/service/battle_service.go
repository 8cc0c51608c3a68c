package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/atiaxi/chromabot/internal/config"
	"github.com/atiaxi/chromabot/internal/model"
	"github.com/atiaxi/chromabot/internal/repository"
	"github.com/atiaxi/chromabot/pkg/chroma"
)

// BattleService schedules invasions, builds skirmish trees, and
// resolves battles.
type BattleService struct {
	regions    repository.RegionRepo
	players    repository.PlayerRepo
	battles    repository.BattleRepo
	skirmishes repository.SkirmishRepo
	buffs      repository.BuffRepo
	marches    repository.MarchRepo
	world      *WorldService
	game       *config.Game
	clock      chroma.Clock
	intn       func(int) int
}

// NewBattleService creates a BattleService.
func NewBattleService(regions repository.RegionRepo, players repository.PlayerRepo,
	battles repository.BattleRepo, skirmishes repository.SkirmishRepo,
	buffs repository.BuffRepo, marches repository.MarchRepo,
	world *WorldService, game *config.Game, clock chroma.Clock) *BattleService {
	return &BattleService{regions: regions, players: players, battles: battles,
		skirmishes: skirmishes, buffs: buffs, marches: marches,
		world: world, game: game, clock: clock, intn: rand.Intn}
}

// Invade schedules a battle for a region. Leaders only; the region
// must be hostile, adjacent to friendly territory, not already
// contested, and not fortified.
func (s *BattleService) Invade(ctx context.Context, player *model.Player, dest *model.Region) (*model.Battle, error) {
	if !player.Leader {
		return nil, model.RankError()
	}
	if dest.Owner == player.Team {
		return nil, model.TeamError(dest.Name, true)
	}
	if dest.CapitalOf != model.TeamNone && s.game.CapitalInvasion == "none" {
		return nil, model.Disabled("capital invasion")
	}

	existing, err := s.battles.FindByRegion(ctx, dest.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.InProgress(model.ConflictBattle)
	}

	friendly := false
	for _, bid := range dest.Borders {
		neighbor, err := s.regions.FindByID(ctx, bid)
		if err != nil {
			return nil, err
		}
		if neighbor != nil && neighbor.Owner == player.Team {
			friendly = true
			break
		}
	}
	if !friendly {
		return nil, model.NonAdjacent(dest.Name, "your territory")
	}

	regionBuffs, err := s.buffs.ListByRegion(ctx, dest.ID)
	if err != nil {
		return nil, err
	}
	for _, b := range regionBuffs {
		if b.Internal == model.BuffFortified {
			return nil, model.TimingUntil(model.TimingSoon, b.ExpiresAt)
		}
	}

	now := s.clock.Now()
	battle := &model.Battle{
		RegionID:      dest.ID,
		BeginsAt:      now.Add(s.game.BattleDelayDur()),
		DisplayEndsAt: now.Add(s.game.BattleDelayDur() + s.game.BattleTimeDur()),
		Lockout:       s.game.BattleLockout,
		Victor:        model.TeamNone,
	}
	if err := s.battles.Create(ctx, battle); err != nil {
		return nil, err
	}

	player.Defectable = false
	if err := s.players.Update(ctx, player); err != nil {
		return nil, err
	}
	return battle, nil
}

// SpawnEternal creates the standing battle for an eternal region that
// has none.
func (s *BattleService) SpawnEternal(ctx context.Context, region *model.Region) (*model.Battle, error) {
	now := s.clock.Now()
	battle := &model.Battle{
		RegionID:      region.ID,
		BeginsAt:      now.Add(s.game.BattleDelayDur()),
		DisplayEndsAt: now.Add(s.game.BattleDelayDur() + s.game.BattleTimeDur()),
		Lockout:       s.game.BattleLockout,
		Victor:        model.TeamNone,
	}
	if err := s.battles.Create(ctx, battle); err != nil {
		return nil, err
	}
	return battle, nil
}

// Open gives a ready battle its real end time: somewhere inside the
// lockout window around the displayed end, so snipers can't time the
// final second.
func (s *BattleService) Open(ctx context.Context, battle *model.Battle) error {
	lockout := time.Duration(battle.Lockout) * time.Second
	jitter := time.Duration(0)
	if battle.Lockout > 0 {
		jitter = time.Duration(s.intn(battle.Lockout)) * time.Second
	}
	battle.EndsAt = battle.DisplayEndsAt.Add(-lockout / 2).Add(jitter)
	return s.battles.Update(ctx, battle)
}

// CreateRoot opens a player's top-level skirmish in a battle.
func (s *BattleService) CreateRoot(ctx context.Context, battle *model.Battle,
	player *model.Player, amount int, troopRaw string) (*model.SkirmishAction, error) {

	troop, err := s.resolveTroop(ctx, player, troopRaw)
	if err != nil {
		return nil, err
	}
	sa := &model.SkirmishAction{
		BattleID:  battle.ID,
		PlayerID:  player.ID,
		Amount:    amount,
		TroopType: string(troop),
		Hinder:    true,
		Sector:    player.Sector,
		Victor:    model.TeamNone,
	}
	if s.game.SkirmishTime > 0 {
		ends := s.clock.Now().Add(s.game.SkirmishTimeDur())
		sa.DisplayEndsAt = ends
		if v := s.game.SkirmishVariability; v > 0 {
			chosen := time.Duration(s.intn(2*v)) * time.Second
			ends = ends.Add(-s.game.SkirmishJitterDur()).Add(chosen)
		}
		sa.EndsAt = ends
	}
	if err := s.validate(ctx, battle, player, sa, nil); err != nil {
		return nil, err
	}
	return sa, s.commit(ctx, player, sa, battle)
}

// React adds a child action under an existing one. Hinder must match
// the team relationship; that is checked in validation.
func (s *BattleService) React(ctx context.Context, parent *model.SkirmishAction,
	player *model.Player, amount int, hinder bool, troopRaw string) (*model.SkirmishAction, error) {

	battle, err := s.battles.FindByID(ctx, parent.BattleID)
	if err != nil {
		return nil, err
	}
	if battle == nil {
		return nil, model.Timing(model.TimingLate)
	}
	troop, err := s.resolveTroop(ctx, player, troopRaw)
	if err != nil {
		return nil, err
	}
	sa := &model.SkirmishAction{
		BattleID:  battle.ID,
		ParentID:  parent.ID,
		PlayerID:  player.ID,
		Amount:    amount,
		TroopType: string(troop),
		Hinder:    hinder,
		Sector:    player.Sector,
		Victor:    model.TeamNone,
	}
	if err := s.validate(ctx, battle, player, sa, parent); err != nil {
		return nil, err
	}
	return sa, s.commit(ctx, player, sa, battle)
}

// FirstStrikeEligible reports whether a just-created action earns the
// early-participation buff: inside the grace window, and the player's
// first action of the battle.
func (s *BattleService) FirstStrikeEligible(ctx context.Context, battle *model.Battle, sa *model.SkirmishAction) (bool, error) {
	if s.game.FFTBTime <= 0 {
		return false, nil
	}
	if s.clock.Now().After(battle.BeginsAt.Add(s.game.FFTBDur())) {
		return false, nil
	}
	n, err := s.skirmishes.CountActions(ctx, battle.ID, sa.PlayerID)
	if err != nil {
		return false, err
	}
	return n <= 1, nil
}

// AttachFirstStrike puts the buff on an action.
func (s *BattleService) AttachFirstStrike(ctx context.Context, sa *model.SkirmishAction) error {
	buff := model.FirstStrikeBuff()
	buff.SkirmishID = sa.ID
	return s.buffs.Attach(ctx, buff)
}

// validate enforces every skirmish guard. It mirrors the rules the
// game has always had; see the package tests for the full matrix.
func (s *BattleService) validate(ctx context.Context, battle *model.Battle,
	player *model.Player, sa *model.SkirmishAction, parent *model.SkirmishAction) error {

	now := s.clock.Now()
	if !battle.Started(now) {
		return model.Timing(model.TimingSoon)
	}

	if player.RegionID != battle.RegionID {
		region, err := s.regions.FindByID(ctx, battle.RegionID)
		if err != nil {
			return err
		}
		actually, err := s.regions.FindByID(ctx, player.RegionID)
		if err != nil {
			return err
		}
		return model.NotPresent(region.Name, actually.Name)
	}

	moving, err := s.marches.ListByPlayer(ctx, player.ID)
	if err != nil {
		return err
	}
	if len(moving) > 0 {
		return model.InProgress(model.ConflictMove)
	}

	if s.game.EnforceNoobRule && player.RecruitedAt.After(battle.BeginsAt) {
		return model.Timing(model.TimingSoon)
	}

	if parent != nil {
		parentPlayer, err := s.players.FindByID(ctx, parent.PlayerID)
		if err != nil {
			return err
		}
		sameTeam := parentPlayer != nil && parentPlayer.Team == player.Team
		if sa.Hinder == sameTeam {
			return model.TeamError(parentPlayer.Name, sameTeam)
		}

		prior, err := s.skirmishes.ChildFor(ctx, parent.ID, player.ID)
		if err != nil {
			return err
		}
		if prior != nil {
			return model.InProgress(model.ConflictSkirmish)
		}

		root, err := s.RootOf(ctx, parent)
		if err != nil {
			return err
		}
		if root.Resolved {
			return model.TimingUntil(model.TimingLate, root.EndsAt)
		}
		if sa.Amount > root.Amount {
			return model.TooMany(sa.Amount, root.Amount, "loyalists")
		}
		if sa.Sector != parent.Sector {
			return model.WrongSector(sa.Sector, parent.Sector)
		}
	} else {
		prior, err := s.skirmishes.RootFor(ctx, battle.ID, player.ID)
		if err != nil {
			return err
		}
		if prior != nil {
			return model.InProgress(model.ConflictBattle)
		}
		if battle.Lockout > 0 {
			locktime := battle.DisplayEndsAt.Add(-time.Duration(battle.Lockout) * time.Second)
			if !now.Before(locktime) {
				return model.Timing(model.TimingLate)
			}
		}
	}

	if sa.Amount <= 0 {
		return model.Insufficient(sa.Amount, 1, "argument")
	}
	if sa.Amount+player.CommittedLoyalists > player.Loyalists {
		return model.Insufficient(sa.Amount, player.Loyalists, "loyalists")
	}
	return nil
}

func (s *BattleService) commit(ctx context.Context, player *model.Player,
	sa *model.SkirmishAction, battle *model.Battle) error {
	if err := s.skirmishes.Create(ctx, sa); err != nil {
		return err
	}
	player.CommittedLoyalists += sa.Amount
	player.Defectable = false
	return s.players.Update(ctx, player)
}

// Retract undoes a just-committed action whose confirmation could not
// be posted, so the player is not silently bound to it.
func (s *BattleService) Retract(ctx context.Context, player *model.Player, sa *model.SkirmishAction) error {
	if err := s.skirmishes.Delete(ctx, sa.ID); err != nil {
		return err
	}
	player.CommittedLoyalists -= sa.Amount
	if player.CommittedLoyalists < 0 {
		player.CommittedLoyalists = 0
	}
	return s.players.Update(ctx, player)
}

// RootOf climbs to the top of an action's tree.
func (s *BattleService) RootOf(ctx context.Context, sa *model.SkirmishAction) (*model.SkirmishAction, error) {
	cur := sa
	for cur.ParentID != 0 {
		parent, err := s.skirmishes.FindByID(ctx, cur.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return cur, nil
		}
		cur = parent
	}
	return cur, nil
}

func (s *BattleService) resolveTroop(ctx context.Context, player *model.Player, raw string) (chroma.TroopType, error) {
	word, err := s.world.TranslateCodeword(ctx, player.ID, raw)
	if err != nil {
		return "", err
	}
	return chroma.CanonicalTroopType(word), nil
}

// forest holds a battle's loaded skirmish trees alongside the rows
// they came from.
type forest struct {
	roots []*chroma.Skirmish
	rows  map[int64]*model.SkirmishAction
}

// loadForest rebuilds the pure resolution tree from storage, buffs
// applied, prior outcomes of already-resolved actions preserved.
func (s *BattleService) loadForest(ctx context.Context, battleID int64) (*forest, error) {
	rows, err := s.skirmishes.ListByBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	f := &forest{rows: make(map[int64]*model.SkirmishAction)}
	nodes := make(map[int64]*chroma.Skirmish)

	for i := range rows {
		row := &rows[i]
		player, err := s.players.FindByID(ctx, row.PlayerID)
		if err != nil {
			return nil, err
		}
		team := model.TeamNone
		if player != nil {
			team = player.Team
		}
		buffs, err := s.buffs.ListBySkirmish(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		buffValue := 0.0
		for _, b := range buffs {
			buffValue += b.Value
		}
		node := &chroma.Skirmish{
			ID:        row.ID,
			Team:      team,
			Amount:    row.Amount,
			TroopType: chroma.CanonicalTroopType(row.TroopType),
			Hinder:    row.Hinder,
			BuffValue: buffValue,
		}
		if row.Resolved {
			node.Resolved = true
			node.Victor = row.Victor
			node.VP = row.VP
			node.Margin = row.Margin
			node.Unopposed = row.Unopposed
		}
		nodes[row.ID] = node
		f.rows[row.ID] = row
	}

	for i := range rows {
		row := &rows[i]
		if row.ParentID == 0 {
			f.roots = append(f.roots, nodes[row.ID])
			continue
		}
		if parent, ok := nodes[row.ParentID]; ok {
			parent.Children = append(parent.Children, nodes[row.ID])
		} else {
			f.roots = append(f.roots, nodes[row.ID])
		}
	}
	return f, nil
}

// persistOutcome writes a resolved subtree back to its rows.
func (s *BattleService) persistOutcome(ctx context.Context, f *forest, node *chroma.Skirmish) error {
	row := f.rows[node.ID]
	if row != nil && !row.Resolved && node.Resolved {
		row.Resolved = true
		row.Victor = node.Victor
		row.VP = node.VP
		row.Margin = node.Margin
		row.Unopposed = node.Unopposed
		if err := s.skirmishes.Update(ctx, row); err != nil {
			return err
		}
	}
	for _, child := range node.Children {
		if err := s.persistOutcome(ctx, f, child); err != nil {
			return err
		}
	}
	return nil
}

// ExpireSkirmishes resolves root skirmishes whose own clock ran out
// while the battle is still open. Returns the rows of the roots that
// just ended, for summary updates.
func (s *BattleService) ExpireSkirmishes(ctx context.Context, battle *model.Battle) ([]model.SkirmishAction, error) {
	f, err := s.loadForest(ctx, battle.ID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	var ended []model.SkirmishAction
	for _, root := range f.roots {
		row := f.rows[root.ID]
		if row.Resolved || row.EndsAt.IsZero() || now.Before(row.EndsAt) {
			continue
		}
		root.ResolveRoot()
		if err := s.persistOutcome(ctx, f, root); err != nil {
			return nil, err
		}
		ended = append(ended, *f.rows[root.ID])
	}
	return ended, nil
}

// Outcome is everything battle resolution produced, for reporting.
type Outcome struct {
	Battle      *model.Battle
	Region      *model.Region
	Roots       []model.SkirmishAction
	Score       [2]int
	Victor      int
	OldOwner    int
	OldBuffs    []model.Buff
	HomelandPct [2]float64
}

// Resolve scores an ended battle and applies every side effect:
// ownership change, defense buffs, troop rewards, ejection of the
// losers, and teardown of the battle itself.
func (s *BattleService) Resolve(ctx context.Context, battle *model.Battle) (*Outcome, error) {
	region, err := s.regions.FindByID(ctx, battle.RegionID)
	if err != nil {
		return nil, err
	}

	f, err := s.loadForest(ctx, battle.ID)
	if err != nil {
		return nil, err
	}
	for _, root := range f.roots {
		root.ResolveRoot()
		if err := s.persistOutcome(ctx, f, root); err != nil {
			return nil, err
		}
	}

	regionBuffs, err := s.buffs.ListByRegion(ctx, region.ID)
	if err != nil {
		return nil, err
	}
	buffValues := make([]float64, 0, len(regionBuffs))
	for _, b := range regionBuffs {
		buffValues = append(buffValues, b.Value)
	}

	dist, err := s.capitalDistances(ctx, region.ID)
	if err != nil {
		return nil, err
	}

	result := chroma.Score(chroma.ScoreInput{
		Roots:            f.roots,
		Owner:            region.Owner,
		BuffValues:       buffValues,
		HomelandPercents: s.game.HomelandPercents(),
		CapitalDistance:  dist,
	})

	battle.Score0, battle.Score1 = result.Score[0], result.Score[1]
	battle.Victor = result.Victor
	if err := s.battles.Update(ctx, battle); err != nil {
		return nil, err
	}

	out := &Outcome{
		Battle:      battle,
		Region:      region,
		Score:       result.Score,
		Victor:      result.Victor,
		OldOwner:    region.Owner,
		OldBuffs:    regionBuffs,
		HomelandPct: result.HomelandPct,
	}
	for _, root := range f.roots {
		out.Roots = append(out.Roots, *f.rows[root.ID])
	}

	if result.Victor != model.TeamNone {
		expires := s.clock.Now().Add(s.game.DefenseBuffDur())
		var buff *model.Buff
		if out.OldOwner != result.Victor {
			buff = model.OTDBuff(expires)
		} else {
			buff = model.FortifiedBuff(expires)
		}
		buff.RegionID = region.ID
		if err := s.buffs.Attach(ctx, buff); err != nil {
			return nil, err
		}
		region.Owner = result.Victor
		if err := s.regions.Update(ctx, region); err != nil {
			return nil, err
		}
	}

	if err := s.settleTroops(ctx, region, result.Victor); err != nil {
		return nil, err
	}
	log.Info().Int64("battle", battle.ID).Str("region", region.Name).
		Int("victor", result.Victor).Ints("score", result.Score[:]).
		Msg("Battle resolved")
	return out, nil
}

// Teardown deletes a resolved battle and its forest. Runs after the
// final report and summary edits, which still need the rows.
func (s *BattleService) Teardown(ctx context.Context, battle *model.Battle) error {
	if err := s.buffs.DeleteBySkirmishBattle(ctx, battle.ID); err != nil {
		return err
	}
	if err := s.skirmishes.DeleteByBattle(ctx, battle.ID); err != nil {
		return err
	}
	return s.battles.Delete(ctx, battle.ID)
}

// settleTroops pays out rewards, uncommits everyone in the region,
// and marches the losing side home.
func (s *BattleService) settleTroops(ctx context.Context, region *model.Region, victor int) error {
	people, err := s.players.ListInRegion(ctx, region.ID)
	if err != nil {
		return err
	}
	caps := make(map[int]*model.Region)
	for i := range people {
		p := &people[i]
		pct := s.game.LoseReward
		if p.Team == victor {
			pct = s.game.WinReward
		}
		p.Loyalists += p.CommittedLoyalists * pct / 100
		if s.game.Troopcap > 0 && p.Loyalists > s.game.Troopcap {
			p.Loyalists = s.game.Troopcap
		}
		p.CommittedLoyalists = 0
		if p.Team != victor {
			cap, ok := caps[p.Team]
			if !ok {
				cap, err = s.world.CapitalFor(ctx, p.Team)
				if err != nil {
					return err
				}
				caps[p.Team] = cap
			}
			p.RegionID = cap.ID
			p.Sector = 0
		}
		if err := s.players.Update(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *BattleService) capitalDistances(ctx context.Context, regionID int64) ([2]int, error) {
	var dist [2]int
	g, err := s.world.Graph(ctx)
	if err != nil {
		return dist, err
	}
	for team := 0; team < 2; team++ {
		cap, err := s.regions.CapitalFor(ctx, team)
		if err != nil {
			return dist, err
		}
		if cap == nil {
			dist[team] = -1
			continue
		}
		dist[team] = g.Distance(cap.ID, regionID)
	}
	return dist, nil
}
