package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/atiaxi/chromabot/internal/command"
	"github.com/atiaxi/chromabot/internal/config"
	"github.com/atiaxi/chromabot/internal/model"
	"github.com/atiaxi/chromabot/internal/repository"
	"github.com/atiaxi/chromabot/pkg/chroma"
)

// MovementService validates and schedules troop movement, and applies
// arrivals at tick time.
type MovementService struct {
	players repository.PlayerRepo
	regions repository.RegionRepo
	marches repository.MarchRepo
	world   *WorldService
	game    *config.Game
	clock   chroma.Clock
}

// NewMovementService creates a MovementService.
func NewMovementService(players repository.PlayerRepo, regions repository.RegionRepo,
	marches repository.MarchRepo, world *WorldService, game *config.Game, clock chroma.Clock) *MovementService {
	return &MovementService{players: players, regions: regions, marches: marches,
		world: world, game: game, clock: clock}
}

// Move schedules a march along the given destinations. The returned
// orders are the scheduled hops; an empty chain means the move
// completed immediately.
func (s *MovementService) Move(ctx context.Context, player *model.Player,
	amount int, all bool, dests []command.Destination) ([]model.MarchingOrder, error) {

	already, err := s.marches.ListByPlayer(ctx, player.ID)
	if err != nil {
		return nil, err
	}
	if len(already) > 0 {
		return nil, model.InProgress(model.ConflictMove)
	}

	// Committed loyalists mean a live skirmish somewhere. The one
	// allowed exception is a sector change inside the contested
	// region, when configured.
	if player.CommittedLoyalists > 0 {
		retreat := s.game.AllowSectorRetreat && len(dests) == 1 &&
			(dests[0].Name == "" || s.isCurrentRegion(ctx, player, dests[0].Name))
		if !retreat {
			return nil, model.InProgress(model.ConflictBattle)
		}
	}

	if all {
		amount = player.Loyalists
	}
	if amount <= 0 {
		return nil, model.Insufficient(amount, 1, "argument")
	}
	if amount > player.Loyalists {
		return nil, model.Insufficient(amount, player.Loyalists, "loyalists")
	}

	sector := player.Sector
	if last := dests[len(dests)-1]; last.HasSector {
		sector = last.Sector
		if sector < 0 || sector >= s.game.NumSectors {
			return nil, model.NoSuchSector(sector, s.game.NumSectors-1)
		}
	}

	path, err := s.expandPath(ctx, player, dests)
	if err != nil {
		return nil, err
	}

	src, err := s.regions.FindByID(ctx, player.RegionID)
	if err != nil {
		return nil, err
	}

	// Validate every hop before scheduling anything.
	hops := append([]*model.Region{src}, path...)
	for i := 0; i+1 < len(hops); i++ {
		from, to := hops[i], hops[i+1]
		if from.ID == to.ID {
			continue
		}
		if !containsID(from.Borders, to.ID) {
			return nil, model.NonAdjacent(from.Name, to.Name)
		}
		enterable, err := s.enterable(ctx, to, player.Team)
		if err != nil {
			return nil, err
		}
		if !enterable {
			return nil, model.TeamError(to.Name, false)
		}
	}

	// Zero travel speed means instantaneous movement: the player lands
	// at the final stop immediately, with nothing scheduled.
	if s.game.Speed <= 0 {
		last := hops[len(hops)-1]
		player.RegionID = last.ID
		player.Sector = sector
		player.Defectable = false
		if err := s.players.Update(ctx, player); err != nil {
			return nil, err
		}
		return nil, nil
	}

	now := s.clock.Now()
	var orders []model.MarchingOrder
	var total time.Duration
	for i := 0; i+1 < len(hops); i++ {
		from, to := hops[i], hops[i+1]
		if from.ID == to.ID {
			// Sector changes don't pick up the terrain multiplier.
			total += s.game.IntrasectorDur()
		} else {
			total += time.Duration(float64(s.game.SpeedDur()) * to.TravelMultiplier)
		}
		mo := model.MarchingOrder{
			PlayerID:   player.ID,
			SourceID:   from.ID,
			DestID:     to.ID,
			DestSector: sector,
			ArrivesAt:  now.Add(total),
		}
		if err := s.marches.Create(ctx, &mo); err != nil {
			return nil, err
		}
		orders = append(orders, mo)
	}

	player.Defectable = false
	if err := s.players.Update(ctx, player); err != nil {
		return nil, err
	}
	return orders, nil
}

// Stop cancels the player's marching orders.
func (s *MovementService) Stop(ctx context.Context, player *model.Player) error {
	return s.marches.DeleteByPlayer(ctx, player.ID)
}

// Extract evacuates the player to their capital, unless they are
// committed to a battle.
func (s *MovementService) Extract(ctx context.Context, player *model.Player) (*model.Region, error) {
	if player.CommittedLoyalists > 0 {
		return nil, model.InProgress(model.ConflictBattle)
	}
	if err := s.marches.DeleteByPlayer(ctx, player.ID); err != nil {
		return nil, err
	}
	cap, err := s.world.CapitalFor(ctx, player.Team)
	if err != nil {
		return nil, err
	}
	player.RegionID = cap.ID
	player.Sector = 0
	if err := s.players.Update(ctx, player); err != nil {
		return nil, err
	}
	return cap, nil
}

// ApplyArrivals advances every due marching order. An arrival only
// lands if the player is still at the hop's source and the
// destination is still enterable; otherwise the whole chain cancels.
func (s *MovementService) ApplyArrivals(ctx context.Context, now time.Time) (int, error) {
	due, err := s.marches.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}
	arrived := 0
	cancelled := make(map[int64]bool)
	for _, mo := range due {
		if cancelled[mo.PlayerID] {
			continue
		}
		player, err := s.players.FindByID(ctx, mo.PlayerID)
		if err != nil {
			return arrived, err
		}
		if player == nil {
			if err := s.marches.Delete(ctx, mo.ID); err != nil {
				return arrived, err
			}
			continue
		}
		dest, err := s.regions.FindByID(ctx, mo.DestID)
		if err != nil {
			return arrived, err
		}
		enterable, err := s.enterable(ctx, dest, player.Team)
		if err != nil {
			return arrived, err
		}
		if player.RegionID != mo.SourceID || !enterable {
			log.Info().Str("player", player.Name).Str("dest", dest.Name).
				Msg("March no longer valid, cancelling chain")
			if err := s.marches.DeleteByPlayer(ctx, player.ID); err != nil {
				return arrived, err
			}
			cancelled[player.ID] = true
			continue
		}
		player.RegionID = mo.DestID
		player.Sector = mo.DestSector
		if err := s.players.Update(ctx, player); err != nil {
			return arrived, err
		}
		if err := s.marches.Delete(ctx, mo.ID); err != nil {
			return arrived, err
		}
		arrived++
	}
	return arrived, nil
}

// expandPath resolves destination names and fills in "*" wildcards
// with pathfinder hops. The returned path excludes the player's
// current region.
func (s *MovementService) expandPath(ctx context.Context, player *model.Player,
	dests []command.Destination) ([]*model.Region, error) {

	curr, err := s.regions.FindByID(ctx, player.RegionID)
	if err != nil {
		return nil, err
	}

	var path []*model.Region
	for i, d := range dests {
		if d.Path {
			if i+1 >= len(dests) {
				return nil, model.NonAdjacent(curr.Name, "nowhere in particular")
			}
			if dests[i+1].Path {
				continue
			}
			next, err := s.resolveDest(ctx, player, dests[i+1], curr)
			if err != nil {
				return nil, err
			}
			g, err := s.world.Graph(ctx)
			if err != nil {
				return nil, err
			}
			found := g.FindPath(curr.ID, next.ID, player.Team, s.game.TraversableNeutrals)
			if found == nil {
				return nil, model.NonAdjacent(curr.Name, next.Name)
			}
			// Endpoints come from the surrounding stops.
			for _, n := range found[1 : len(found)-1] {
				reg, err := s.regions.FindByID(ctx, n.ID)
				if err != nil {
					return nil, err
				}
				path = append(path, reg)
			}
			curr = next
			continue
		}
		reg, err := s.resolveDest(ctx, player, d, curr)
		if err != nil {
			return nil, err
		}
		path = append(path, reg)
		curr = reg
	}
	return path, nil
}

// resolveDest maps a parsed destination to a region. A bare "#N" stop
// means the region the player is leaving from, entering sector N.
func (s *MovementService) resolveDest(ctx context.Context, player *model.Player,
	d command.Destination, curr *model.Region) (*model.Region, error) {
	if d.Name == "" {
		return curr, nil
	}
	reg, err := s.world.FindRegion(ctx, player.ID, d.Name)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, &ErrUnknownRegion{Name: d.Name}
	}
	return reg, nil
}

func (s *MovementService) isCurrentRegion(ctx context.Context, player *model.Player, name string) bool {
	reg, err := s.world.FindRegion(ctx, player.ID, name)
	return err == nil && reg != nil && reg.ID == player.RegionID
}

func (s *MovementService) enterable(ctx context.Context, reg *model.Region, team int) (bool, error) {
	if reg.Owner == team {
		return true, nil
	}
	battle, err := s.world.battles.FindByRegion(ctx, reg.ID)
	if err != nil {
		return false, err
	}
	if battle != nil {
		return true, nil
	}
	return s.game.TraversableNeutrals && reg.Owner == model.TeamNone, nil
}

func containsID(ids []int64, id int64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
