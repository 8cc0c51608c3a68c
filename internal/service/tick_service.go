package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/atiaxi/chromabot/internal/host"
	"github.com/atiaxi/chromabot/internal/model"
	"github.com/atiaxi/chromabot/internal/repository"
	"github.com/atiaxi/chromabot/pkg/chroma"
)

// TimerStore schedules wakeups for battle and skirmish deadlines.
type TimerStore interface {
	SetBattleTimer(ctx context.Context, battleID int64, deadline time.Time) error
	ClearBattleTimer(ctx context.Context, battleID int64) error
	SetSkirmishTimer(ctx context.Context, skirmishID int64, deadline time.Time) error
}

// TickService advances the world clock: marches land, eternal battles
// respawn, battles open and resolve, skirmishes expire, buffs lapse.
type TickService struct {
	regions    repository.RegionRepo
	battles    repository.BattleRepo
	skirmishes repository.SkirmishRepo
	buffs      repository.BuffRepo
	movement   *MovementService
	combat     *BattleService
	reports    *ReportService
	commands   *CommandService
	forum      host.Host
	timers     TimerStore
	bcast      Broadcaster
	clock      chroma.Clock
}

// NewTickService creates a TickService.
func NewTickService(regions repository.RegionRepo, battles repository.BattleRepo,
	skirmishes repository.SkirmishRepo, buffs repository.BuffRepo,
	movement *MovementService, combat *BattleService, reports *ReportService,
	commands *CommandService, forum host.Host, timers TimerStore,
	bcast Broadcaster, clock chroma.Clock) *TickService {
	return &TickService{regions: regions, battles: battles, skirmishes: skirmishes,
		buffs: buffs, movement: movement, combat: combat, reports: reports,
		commands: commands, forum: forum, timers: timers, bcast: bcast, clock: clock}
}

// Tick runs one world update. Order matters: troops land before
// battles are judged, and buffs lapse last so resolution still sees
// them.
func (s *TickService) Tick(ctx context.Context) error {
	now := s.clock.Now()

	arrived, err := s.movement.ApplyArrivals(ctx, now)
	if err != nil {
		return err
	}
	if arrived > 0 {
		log.Info().Int("arrived", arrived).Msg("Marching orders completed")
		s.bcast.BroadcastEvent("troops_arrived", map[string]any{"count": arrived})
	}

	if err := s.spawnEternals(ctx); err != nil {
		return err
	}
	if err := s.updateBattles(ctx, now); err != nil {
		return err
	}

	expired, err := s.buffs.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}
	if expired > 0 {
		log.Info().Int("expired", expired).Msg("Buffs expired")
		s.reports.InvalidateLands(ctx)
	}
	return nil
}

// spawnEternals keeps every eternal region fighting: the moment its
// battle resolves, the next is scheduled.
func (s *TickService) spawnEternals(ctx context.Context) error {
	regions, err := s.regions.List(ctx)
	if err != nil {
		return err
	}
	for i := range regions {
		r := &regions[i]
		if !r.Eternal {
			continue
		}
		existing, err := s.battles.FindByRegion(ctx, r.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		battle, err := s.combat.SpawnEternal(ctx, r)
		if err != nil {
			return err
		}
		postID, err := s.forum.SubmitPost(ctx, r.SRName,
			"The Eternal Battle Rages On", s.reports.InvasionText(battle))
		if err != nil || postID == "" {
			log.Warn().Err(err).Str("region", r.Name).
				Msg("Couldn't submit eternal battle thread")
			if derr := s.battles.Delete(ctx, battle.ID); derr != nil {
				return derr
			}
			continue
		}
		battle.SubmissionID = postID
		if err := s.battles.Update(ctx, battle); err != nil {
			return err
		}
		log.Info().Str("region", r.Name).Int64("battle", battle.ID).
			Msg("Eternal battle scheduled")
	}
	return nil
}

func (s *TickService) updateBattles(ctx context.Context, now time.Time) error {
	battles, err := s.battles.List(ctx)
	if err != nil {
		return err
	}
	for i := range battles {
		b := &battles[i]
		switch {
		case !b.Started(now) && b.Ready(now) && b.SubmissionID != "":
			if err := s.openBattle(ctx, b); err != nil {
				return err
			}
		case b.Started(now) && b.PastEnd(now):
			if err := s.resolveBattle(ctx, b); err != nil {
				return err
			}
		case b.Started(now):
			ended, err := s.combat.ExpireSkirmishes(ctx, b)
			if err != nil {
				return err
			}
			for j := range ended {
				if err := s.commands.UpdateSummary(ctx, &ended[j]); err != nil {
					log.Warn().Err(err).Int64("root", ended[j].ID).
						Msg("Couldn't update expired skirmish summary")
				}
			}
			if err := s.scheduleTimers(ctx, b); err != nil {
				return err
			}
		default:
			if s.timers != nil {
				if err := s.timers.SetBattleTimer(ctx, b.ID, b.BeginsAt); err != nil {
					log.Warn().Err(err).Int64("battle", b.ID).Msg("Couldn't set battle timer")
				}
			}
		}
	}
	return nil
}

// openBattle assigns the hidden end time and announces that commands
// are live.
func (s *TickService) openBattle(ctx context.Context, b *model.Battle) error {
	if err := s.combat.Open(ctx, b); err != nil {
		return err
	}
	if err := s.forum.EditPost(ctx, b.SubmissionID, s.reports.BattleOpenText(b)); err != nil {
		log.Warn().Err(err).Int64("battle", b.ID).Msg("Couldn't edit battle thread")
	}
	s.reports.InvalidateLands(ctx)
	s.bcast.BroadcastEvent("battle_opened", map[string]any{
		"battle": b.ID, "ends": b.DisplayEndsAt})
	log.Info().Int64("battle", b.ID).Time("ends", b.EndsAt).Msg("Battle opened")
	return s.scheduleTimers(ctx, b)
}

// resolveBattle judges a finished battle and edits the final report
// into its thread.
func (s *TickService) resolveBattle(ctx context.Context, b *model.Battle) error {
	out, err := s.combat.Resolve(ctx, b)
	if err != nil {
		return err
	}

	if err := s.forum.EditPost(ctx, b.SubmissionID, s.reports.FinalReport(out)); err != nil {
		log.Warn().Err(err).Int64("battle", b.ID).Msg("Couldn't edit final battle report")
	}

	// Summaries go out before teardown deletes the rows they render.
	for i := range out.Roots {
		if err := s.commands.UpdateSummary(ctx, &out.Roots[i]); err != nil {
			log.Warn().Err(err).Int64("root", out.Roots[i].ID).
				Msg("Couldn't update final skirmish summary")
		}
	}
	if err := s.combat.Teardown(ctx, b); err != nil {
		return err
	}

	if s.timers != nil {
		if err := s.timers.ClearBattleTimer(ctx, b.ID); err != nil {
			log.Warn().Err(err).Int64("battle", b.ID).Msg("Couldn't clear battle timer")
		}
	}
	s.reports.InvalidateLands(ctx)
	s.bcast.BroadcastEvent("battle_resolved", map[string]any{
		"battle": b.ID, "victor": out.Victor, "score": out.Score})
	return nil
}

// scheduleTimers arms wakeups for the battle's next deadline and every
// unresolved timed skirmish.
func (s *TickService) scheduleTimers(ctx context.Context, b *model.Battle) error {
	if s.timers == nil {
		return nil
	}
	if err := s.timers.SetBattleTimer(ctx, b.ID, b.EndsAt); err != nil {
		log.Warn().Err(err).Int64("battle", b.ID).Msg("Couldn't set battle timer")
	}
	rows, err := s.skirmishes.ListByBattle(ctx, b.ID)
	if err != nil {
		return err
	}
	for i := range rows {
		row := &rows[i]
		if !row.IsRoot() || row.Resolved || row.EndsAt.IsZero() {
			continue
		}
		if err := s.timers.SetSkirmishTimer(ctx, row.ID, row.EndsAt); err != nil {
			log.Warn().Err(err).Int64("skirmish", row.ID).Msg("Couldn't set skirmish timer")
		}
	}
	return nil
}
