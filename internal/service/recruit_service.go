package service

import (
	"context"
	"math/rand"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/atiaxi/chromabot/internal/config"
	"github.com/atiaxi/chromabot/internal/model"
	"github.com/atiaxi/chromabot/internal/repository"
	"github.com/atiaxi/chromabot/pkg/chroma"
)

// RecruitService creates players on first observed participation.
type RecruitService struct {
	players repository.PlayerRepo
	world   *WorldService
	game    *config.Game
	clock   chroma.Clock
	intn    func(int) int
}

// NewRecruitService creates a RecruitService.
func NewRecruitService(players repository.PlayerRepo, world *WorldService, game *config.Game, clock chroma.Clock) *RecruitService {
	return &RecruitService{players: players, world: world, game: game, clock: clock, intn: rand.Intn}
}

// Recruit registers a new combatant: team per the assignment policy,
// leader when on the configured roster, 100 loyalists, encamped at
// the team capital. Returns the existing player unchanged when the
// name is already enlisted; created reports which happened.
func (s *RecruitService) Recruit(ctx context.Context, name, uid string) (player *model.Player, created bool, err error) {
	existing, err := s.players.FindByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	team := s.assignTeam(uid)
	cap, err := s.world.CapitalFor(ctx, team)
	if err != nil {
		return nil, false, err
	}

	p := &model.Player{
		Name:        strings.ToLower(name),
		Team:        team,
		Loyalists:   100,
		RegionID:    cap.ID,
		Leader:      s.game.IsLeader(name),
		Defectable:  true,
		RecruitedAt: s.clock.Now(),
	}
	if err := s.players.Create(ctx, p); err != nil {
		return nil, false, err
	}
	log.Info().Str("name", p.Name).Int("team", p.Team).Bool("leader", p.Leader).
		Msg("Created combatant")
	return p, true, nil
}

// Defect switches a player to the other faction and marches them to
// its capital. A player may defect only while they have taken no
// actions; defecting spends that privilege.
func (s *RecruitService) Defect(ctx context.Context, player *model.Player, team int) (*model.Region, error) {
	if team == model.TeamNone {
		team = model.OppositeTeam(player.Team)
	}
	if team == player.Team || (team != model.TeamOrangered && team != model.TeamPeriwinkle) {
		return nil, model.TeamError(s.game.SideName(team), true)
	}
	if s.game.DisableDefect {
		return nil, model.Disabled("defection")
	}
	if !s.game.UnlimitedDefect && !player.Defectable {
		return nil, model.Timing(model.TimingLate)
	}

	cap, err := s.world.CapitalFor(ctx, team)
	if err != nil {
		return nil, err
	}
	player.Team = team
	player.Leader = s.game.IsLeader(player.Name)
	player.RegionID = cap.ID
	player.Sector = 0
	player.Defectable = false
	if err := s.players.Update(ctx, player); err != nil {
		return nil, err
	}
	log.Info().Str("name", player.Name).Int("team", team).Msg("Combatant defected")
	return cap, nil
}

// assignTeam follows game.assignment: "uid" hashes the forum account
// id, "random" rolls, anything else parses as a fixed team number.
func (s *RecruitService) assignTeam(uid string) int {
	switch s.game.Assignment {
	case "uid":
		if n, err := strconv.ParseInt(strings.ToLower(uid), 36, 64); err == nil {
			return int(n % 2)
		}
		return 0
	case "random":
		return s.intn(2)
	default:
		if n, err := strconv.Atoi(s.game.Assignment); err == nil && (n == 0 || n == 1) {
			return n
		}
		return 0
	}
}
