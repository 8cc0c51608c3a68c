package service

import (
	"context"
	"testing"
	"time"

	"github.com/atiaxi/chromabot/internal/config"
	"github.com/atiaxi/chromabot/internal/model"
	"github.com/atiaxi/chromabot/pkg/chroma"
)

// fixture wires the full service stack over in-memory repos and a
// fixed clock, with the classic three-region test map: each capital
// borders the contested center.
type fixture struct {
	ctx        context.Context
	regions    *mockRegionRepo
	players    *mockPlayerRepo
	marches    *mockMarchRepo
	battles    *mockBattleRepo
	skirmishes *mockSkirmishRepo
	buffs      *mockBuffRepo
	codewords  *mockCodewordRepo
	processed  *mockProcessedRepo
	cache      *mockCache
	forum      *mockHost
	clock      *chroma.FixedClock
	game       *config.Game
	world      *WorldService
	movement   *MovementService
	recruits   *RecruitService
	combat     *BattleService
	reports    *ReportService
	commands   *CommandService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:        context.Background(),
		regions:    newMockRegionRepo(),
		players:    newMockPlayerRepo(),
		marches:    newMockMarchRepo(),
		battles:    newMockBattleRepo(),
		skirmishes: newMockSkirmishRepo(),
		buffs:      newMockBuffRepo(),
		codewords:  newMockCodewordRepo(),
		processed:  newMockProcessedRepo(),
		cache:      newMockCache(),
		forum:      newMockHost(),
		clock:      &chroma.FixedClock{T: time.Date(2013, 4, 1, 12, 0, 0, 0, time.UTC)},
	}
	game := config.Default().Game
	f.game = &game

	f.world = NewWorldService(f.regions, f.battles, f.codewords)
	f.movement = NewMovementService(f.players, f.regions, f.marches, f.world, f.game, f.clock)
	f.recruits = NewRecruitService(f.players, f.world, f.game, f.clock)
	f.combat = NewBattleService(f.regions, f.players, f.battles, f.skirmishes,
		f.buffs, f.marches, f.world, f.game, f.clock)
	f.combat.intn = func(int) int { return 0 }
	f.recruits.intn = func(int) int { return 0 }
	f.reports = NewReportService(f.regions, f.players, f.battles, f.skirmishes,
		f.buffs, f.marches, f.cache, f.game, f.clock)
	bot := config.Default().Bot
	f.commands = NewCommandService(f.forum, f.players, f.regions, f.battles,
		f.skirmishes, f.codewords, f.processed, f.marches, f.world, f.movement,
		f.combat, f.recruits, f.reports, NoopBroadcaster{}, &bot, f.game, f.clock)

	f.addRegion(t, "oraistedarg", model.TeamOrangered, model.TeamOrangered)
	f.addRegion(t, "periopolis", model.TeamPeriwinkle, model.TeamPeriwinkle)
	f.addRegion(t, "sapphire", model.TeamNone, model.TeamNone)
	f.border(t, "oraistedarg", "sapphire")
	f.border(t, "sapphire", "periopolis")
	return f
}

func (f *fixture) addRegion(t *testing.T, name string, owner, capitalOf int) *model.Region {
	t.Helper()
	r := &model.Region{
		Name:             name,
		SRName:           "ct_" + name,
		Owner:            owner,
		CapitalOf:        capitalOf,
		TravelMultiplier: 1.0,
	}
	if err := f.regions.Create(f.ctx, r); err != nil {
		t.Fatalf("create region %s: %v", name, err)
	}
	return r
}

func (f *fixture) border(t *testing.T, a, b string) {
	t.Helper()
	ra, _ := f.regions.FindByName(f.ctx, a)
	rb, _ := f.regions.FindByName(f.ctx, b)
	if ra == nil || rb == nil {
		t.Fatalf("border %s-%s: region missing", a, b)
	}
	if err := f.regions.AddBorder(f.ctx, ra.ID, rb.ID); err != nil {
		t.Fatalf("border %s-%s: %v", a, b, err)
	}
}

func (f *fixture) region(t *testing.T, name string) *model.Region {
	t.Helper()
	r, err := f.regions.FindByName(f.ctx, name)
	if err != nil || r == nil {
		t.Fatalf("region %s not found", name)
	}
	return r
}

func (f *fixture) addPlayer(t *testing.T, name string, team int, region string) *model.Player {
	t.Helper()
	r := f.region(t, region)
	p := &model.Player{
		Name:        name,
		Team:        team,
		Loyalists:   100,
		RegionID:    r.ID,
		Defectable:  true,
		RecruitedAt: f.clock.Now().Add(-48 * time.Hour),
	}
	if err := f.players.Create(f.ctx, p); err != nil {
		t.Fatalf("create player %s: %v", name, err)
	}
	return p
}

func (f *fixture) reload(t *testing.T, p *model.Player) *model.Player {
	t.Helper()
	got, err := f.players.FindByID(f.ctx, p.ID)
	if err != nil || got == nil {
		t.Fatalf("reload player %d", p.ID)
	}
	return got
}

// startBattle creates an already-open battle over the named region:
// begun an hour ago, a day left on the clock, thread in place.
func (f *fixture) startBattle(t *testing.T, region string) *model.Battle {
	t.Helper()
	r := f.region(t, region)
	now := f.clock.Now()
	b := &model.Battle{
		RegionID:      r.ID,
		BeginsAt:      now.Add(-time.Hour),
		EndsAt:        now.Add(23 * time.Hour),
		DisplayEndsAt: now.Add(24 * time.Hour),
		SubmissionID:  "sub-1",
		Lockout:       3600,
		Victor:        model.TeamNone,
	}
	if err := f.battles.Create(f.ctx, b); err != nil {
		t.Fatalf("create battle: %v", err)
	}
	return b
}

// kindOf asserts err is a GameError and returns it.
func kindOf(t *testing.T, err error, want model.ErrorKind) *model.GameError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected game error, got nil")
	}
	ge, ok := err.(*model.GameError)
	if !ok {
		t.Fatalf("expected *model.GameError, got %T: %v", err, err)
	}
	if ge.Kind != want {
		t.Fatalf("expected error kind %d, got %d (%v)", want, ge.Kind, ge)
	}
	return ge
}
