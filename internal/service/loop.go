package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/atiaxi/chromabot/internal/config"
	"github.com/atiaxi/chromabot/internal/host"
	"github.com/atiaxi/chromabot/internal/repository"
)

// BotLoop sweeps the forum for new activity: recruitment comments,
// inbox orders, and battle-thread commands.
type BotLoop struct {
	forum     host.Host
	regions   repository.RegionRepo
	battles   repository.BattleRepo
	processed repository.ProcessedRepo
	recruits  *RecruitService
	commands  *CommandService
	game      *config.Game
	interval  time.Duration
}

// NewBotLoop creates a BotLoop. interval is the sweep period.
func NewBotLoop(forum host.Host, regions repository.RegionRepo,
	battles repository.BattleRepo, processed repository.ProcessedRepo,
	recruits *RecruitService, commands *CommandService,
	game *config.Game, interval time.Duration) *BotLoop {
	if interval <= 0 {
		interval = time.Minute
	}
	return &BotLoop{forum: forum, regions: regions, battles: battles,
		processed: processed, recruits: recruits, commands: commands,
		game: game, interval: interval}
}

// Run sweeps until ctx is cancelled. Each sweep is best-effort; a
// failing source is logged and retried next round.
func (l *BotLoop) Run(ctx context.Context) {
	log.Info().Dur("interval", l.interval).Msg("Bot loop started")
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		l.sweep(ctx)
		select {
		case <-ctx.Done():
			log.Info().Msg("Bot loop stopped")
			return
		case <-ticker.C:
		}
	}
}

func (l *BotLoop) sweep(ctx context.Context) {
	if err := l.checkRecruitment(ctx); err != nil {
		log.Error().Err(err).Msg("Recruitment sweep failed")
	}
	if err := l.checkInbox(ctx); err != nil {
		log.Error().Err(err).Msg("Inbox sweep failed")
	}
	if err := l.checkBattles(ctx); err != nil {
		log.Error().Err(err).Msg("Battle thread sweep failed")
	}
}

// checkRecruitment enlists everyone who commented on a recruitment
// thread and welcomes the newcomers.
func (l *BotLoop) checkRecruitment(ctx context.Context) error {
	events, err := l.forum.ObserveRecruitmentPosts(ctx)
	if err != nil {
		return err
	}
	for i := range events {
		ev := &events[i]
		if ev.Author == "" || strings.EqualFold(ev.Author, l.forum.BotName()) {
			continue
		}
		seen, err := l.processed.Seen(ctx, 0, ev.ID)
		if err != nil {
			return err
		}
		if seen {
			continue
		}

		player, created, err := l.recruits.Recruit(ctx, strings.ToLower(ev.Author), ev.AuthorUID)
		if err != nil {
			return err
		}
		if created {
			cap, err := l.regions.FindByID(ctx, player.RegionID)
			if err != nil {
				return err
			}
			welcome := fmt.Sprintf("Welcome to Chroma!  You are now a %s "+
				"in the %s army, commanding a force of loyalists "+
				"%d people strong. You are currently encamped at %s",
				player.Rank(), l.game.SideName(player.Team),
				player.Loyalists, cap.Markdown())
			if _, err := l.forum.Reply(ctx, ev.ID, welcome); err != nil {
				log.Warn().Err(err).Str("name", player.Name).Msg("Couldn't post welcome")
			}
		}
		if err := l.processed.Mark(ctx, 0, ev.ID); err != nil {
			return err
		}
	}
	return nil
}

// checkInbox runs orders arriving by private message.
func (l *BotLoop) checkInbox(ctx context.Context) error {
	events, err := l.forum.ObserveInbox(ctx)
	if err != nil {
		return err
	}
	for i := range events {
		ev := &events[i]
		if ev.Author == "" || strings.EqualFold(ev.Author, l.forum.BotName()) {
			continue
		}
		if err := l.commands.HandleEvent(ctx, ev); err != nil {
			log.Error().Err(err).Str("event", ev.ID).Msg("Inbox command failed")
		}
		if err := l.forum.MarkRead(ctx, ev.ID); err != nil {
			log.Warn().Err(err).Str("event", ev.ID).Msg("Couldn't mark message read")
		}
	}
	return nil
}

// checkBattles walks every live battle thread for new commands. The
// bot's own comments are skipped without being marked, so summary
// comments stay recognizable as reply targets.
func (l *BotLoop) checkBattles(ctx context.Context) error {
	battles, err := l.battles.List(ctx)
	if err != nil {
		return err
	}
	for i := range battles {
		b := &battles[i]
		if b.SubmissionID == "" {
			continue
		}
		comments, err := l.forum.FetchBattleThread(ctx, b.SubmissionID)
		if err != nil {
			log.Warn().Err(err).Int64("battle", b.ID).Msg("Couldn't fetch battle thread")
			continue
		}
		for j := range comments {
			c := &comments[j]
			if c.Author == "" || strings.EqualFold(c.Author, l.forum.BotName()) {
				continue
			}
			seen, err := l.processed.Seen(ctx, b.ID, c.ID)
			if err != nil {
				return err
			}
			if seen {
				continue
			}

			parentID := c.ParentID
			if parentID == "" {
				parentID = b.SubmissionID
			}
			ev := &host.Event{
				ID:       c.ID,
				Author:   c.Author,
				Body:     c.Body,
				Kind:     host.OriginComment,
				ParentID: parentID,
				LinkID:   b.SubmissionID,
			}
			if err := l.commands.HandleEvent(ctx, ev); err != nil {
				log.Error().Err(err).Str("comment", c.ID).Msg("Battle command failed")
			}
			if err := l.processed.Mark(ctx, b.ID, c.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
