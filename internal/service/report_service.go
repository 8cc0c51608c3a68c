package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/atiaxi/chromabot/internal/config"
	"github.com/atiaxi/chromabot/internal/model"
	"github.com/atiaxi/chromabot/internal/repository"
	"github.com/atiaxi/chromabot/pkg/chroma"
)

const landsReportKey = "lands"
const landsReportTTL = 5 * time.Minute

// ReportService renders every player-visible text: world status,
// personal status, skirmish summaries, and final battle reports.
type ReportService struct {
	regions    repository.RegionRepo
	players    repository.PlayerRepo
	battles    repository.BattleRepo
	skirmishes repository.SkirmishRepo
	buffs      repository.BuffRepo
	marches    repository.MarchRepo
	cache      repository.ReportCache
	game       *config.Game
	clock      chroma.Clock
}

// NewReportService creates a ReportService.
func NewReportService(regions repository.RegionRepo, players repository.PlayerRepo,
	battles repository.BattleRepo, skirmishes repository.SkirmishRepo,
	buffs repository.BuffRepo, marches repository.MarchRepo,
	cache repository.ReportCache, game *config.Game, clock chroma.Clock) *ReportService {
	return &ReportService{regions: regions, players: players, battles: battles,
		skirmishes: skirmishes, buffs: buffs, marches: marches,
		cache: cache, game: game, clock: clock}
}

// LandsReport renders the world map status, cached briefly since every
// status command wants it.
func (s *ReportService) LandsReport(ctx context.Context) (string, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetReport(ctx, landsReportKey); err == nil && cached != "" {
			return cached, nil
		}
	}

	regions, err := s.regions.List(ctx)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(regions))
	for i := range regions {
		r := &regions[i]
		dispute := ""
		battle, err := s.battles.FindByRegion(ctx, r.ID)
		if err != nil {
			return "", err
		}
		if battle != nil {
			dispute = " ( " + battleMarkdown(r, battle, "Disputed") + " )"
		}
		regionBuffs, err := s.buffs.ListByRegion(ctx, r.ID)
		if err != nil {
			return "", err
		}
		if len(regionBuffs) > 0 {
			marks := make([]string, 0, len(regionBuffs))
			for _, b := range regionBuffs {
				marks = append(marks, s.buffMarkdown(&b))
			}
			dispute += " ( " + strings.Join(marks, ",") + " )"
		}
		lines = append(lines, fmt.Sprintf("* **%s**:  %s%s",
			r.Markdown(), s.game.SideName(r.Owner), dispute))
	}
	sort.Strings(lines)
	report := "State of the Lands:\n\n" + strings.Join(lines, "\n")

	if s.cache != nil {
		if err := s.cache.SetReport(ctx, landsReportKey, report, landsReportTTL); err != nil {
			log.Warn().Err(err).Msg("Could not cache lands report")
		}
	}
	return report, nil
}

// InvalidateLands drops the cached world report after anything that
// changes it.
func (s *ReportService) InvalidateLands(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, landsReportKey); err != nil {
		log.Warn().Err(err).Msg("Could not invalidate lands report")
	}
}

// PersonalStatus renders the reply to a player's status command.
func (s *ReportService) PersonalStatus(ctx context.Context, player *model.Player) (string, error) {
	region, err := s.regions.FindByID(ctx, player.RegionID)
	if err != nil {
		return "", err
	}
	encamp := fmt.Sprintf("You are currently encamped in sector %d of  %s",
		player.Sector, region.Markdown())

	forces := ""
	moving, err := s.marches.ListByPlayer(ctx, player.ID)
	if err != nil {
		return "", err
	}
	if len(moving) > 0 {
		itinerary := make([]string, 0, len(moving))
		for i := range moving {
			line, err := s.MarchMarkdown(ctx, &moving[i])
			if err != nil {
				return "", err
			}
			itinerary = append(itinerary, line)
		}
		forces = "\n\nYour troops are currently on the march:\n\n" +
			strings.Join(itinerary, "\n\n")
	}

	commitStr := ""
	if player.CommittedLoyalists > 0 {
		commitStr = fmt.Sprintf(", %d of which are committed to battle",
			player.CommittedLoyalists)
	}
	return fmt.Sprintf("You are a %s in the %s army.\n\n"+
		"Your forces number %d loyalists%s.\n\n%s%s",
		player.Rank(), s.game.SideName(player.Team),
		player.Loyalists, commitStr, encamp, forces), nil
}

// MarchMarkdown renders one marching order as an itinerary line.
func (s *ReportService) MarchMarkdown(ctx context.Context, mo *model.MarchingOrder) (string, error) {
	src, err := s.regions.FindByID(ctx, mo.SourceID)
	if err != nil {
		return "", err
	}
	dest, err := s.regions.FindByID(ctx, mo.DestID)
	if err != nil {
		return "", err
	}
	destMark := dest.Markdown()
	if mo.DestSector != 0 {
		destMark = fmt.Sprintf("%s (sector %d)", destMark, mo.DestSector)
	}
	return fmt.Sprintf("*  From %s to %s (arriving at %s)",
		src.Markdown(), destMark, timestr(mo.ArrivesAt)), nil
}

// WinnerStr renders a resolved skirmish's outcome.
func (s *ReportService) WinnerStr(sa *model.SkirmishAction) string {
	if sa.Victor == model.TeamNone {
		return "**TIE**"
	}
	return fmt.Sprintf("**%s** by %d for **%d VP**",
		s.game.SideName(sa.Victor), sa.Margin, sa.VP)
}

// SkirmishLine renders one root for the final battle report.
func (s *ReportService) SkirmishLine(sa *model.SkirmishAction) string {
	return fmt.Sprintf("*  Skirmish #%d - [Sector %d] the victor is  %s",
		sa.ID, sa.Sector, s.WinnerStr(sa))
}

// FullDetails renders a root skirmish and its whole subtree, one line
// per action, as the running summary comment players watch.
func (s *ReportService) FullDetails(ctx context.Context, root *model.SkirmishAction) ([]string, error) {
	rows, err := s.skirmishes.ListByBattle(ctx, root.BattleID)
	if err != nil {
		return nil, err
	}
	byParent := make(map[int64][]*model.SkirmishAction)
	byID := make(map[int64]*model.SkirmishAction)
	for i := range rows {
		row := &rows[i]
		byID[row.ID] = row
		byParent[row.ParentID] = append(byParent[row.ParentID], row)
	}

	var result []string
	result = append(result, fmt.Sprintf("This skirmish is taking place in **Sector %d**", root.Sector))
	if !root.EndsAt.IsZero() {
		if s.clock.Now().Before(root.EndsAt) {
			result = append(result, "This skirmish will end near "+timestr(root.DisplayEndsAt))
		} else {
			result = append(result, "**This skirmish has ended!**")
		}
	}
	result = append(result, "Confirmed actions for this skirmish:\n")

	var walk func(sa *model.SkirmishAction, indent int) error
	walk = func(sa *model.SkirmishAction, indent int) error {
		line, err := s.detailLine(ctx, sa, byID[sa.ParentID])
		if err != nil {
			return err
		}
		result = append(result, strings.Repeat(">", indent)+" "+line)
		for _, child := range byParent[sa.ID] {
			if err := walk(child, indent+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, 0); err != nil {
		return nil, err
	}
	return result, nil
}

// detailLine renders one action: who, what, and its effective strength
// after buffs and the matchup against its parent.
func (s *ReportService) detailLine(ctx context.Context, sa, parent *model.SkirmishAction) (string, error) {
	verb := "support"
	if sa.Hinder {
		verb = "attack"
		if parent != nil {
			verb = "oppose"
		}
	}
	player, err := s.players.FindByID(ctx, sa.PlayerID)
	if err != nil {
		return "", err
	}
	name, team := "unknown", model.TeamNone
	if player != nil {
		name, team = player.Name, player.Team
	}

	saBuffs, err := s.buffs.ListBySkirmish(ctx, sa.ID)
	if err != nil {
		return "", err
	}
	buffValue := 0.0
	buffNames := make([]string, 0, len(saBuffs))
	for _, b := range saBuffs {
		buffValue += b.Value
		buffNames = append(buffNames, "*"+b.Name+"*")
	}
	buffStr := ""
	if len(buffNames) > 0 {
		buffStr = " (Buffs: " + strings.Join(buffNames, ", ") + ") "
	}

	amount := int(float64(sa.Amount) + buffValue*float64(sa.Amount))
	effective := amount
	if parent != nil {
		effective = chroma.AdjustedForType(
			chroma.CanonicalTroopType(parent.TroopType),
			chroma.CanonicalTroopType(sa.TroopType),
			effective, !sa.Hinder)
	}

	wins := ""
	if sa.Resolved && s.hasChildren(ctx, sa) {
		wins = "Victor: " + s.WinnerStr(sa)
	}
	return fmt.Sprintf(" \\#%d %s (%s): **%s with %d %s** %s(effective: %d, for above: %d) %s",
		sa.ID, name, s.game.SideName(team), verb, sa.Amount, sa.TroopType,
		buffStr, amount, effective, wins), nil
}

func (s *ReportService) hasChildren(ctx context.Context, sa *model.SkirmishAction) bool {
	rows, err := s.skirmishes.ListByBattle(ctx, sa.BattleID)
	if err != nil {
		return false
	}
	for i := range rows {
		if rows[i].ParentID == sa.ID {
			return true
		}
	}
	return false
}

// BattleOpenText is the thread edit announcing commands are live.
func (s *ReportService) BattleOpenText(battle *model.Battle) string {
	return fmt.Sprintf("War is now at your doorstep!  Mobilize your armies! "+
		"The battle has begun now, and will end at %s.\n\n"+
		"> Enter your commands in this thread, prefixed with '>'",
		timestr(battle.DisplayEndsAt))
}

// InvasionText is the body of a new battle thread.
func (s *ReportService) InvasionText(battle *model.Battle) string {
	return fmt.Sprintf("Negotiations have broken down, and the trumpets of "+
		"war have sounded.  Even now, civilians are being "+
		"evacuated and the able-bodied drafted.  The conflict "+
		"will soon be upon you.\n\n"+
		"Gather your forces while you can, for your enemy "+
		"shall arrive at %s", timestr(battle.BeginsAt))
}

// FinalReport renders the battle-complete edit for a resolved battle.
func (s *ReportService) FinalReport(out *Outcome) string {
	report := []string{"The battle is complete...\n"}
	for i := range out.Roots {
		report = append(report, s.SkirmishLine(&out.Roots[i]))
	}
	report = append(report, "")

	if len(out.OldBuffs) > 0 {
		report = append(report, fmt.Sprintf("Buffs in effect for Team %s\n",
			s.game.SideName(out.OldOwner)))
		for _, b := range out.OldBuffs {
			report = append(report, "  * "+b.Name)
		}
		report = append(report, "")
	}

	if out.HomelandPct[0] > 0 || out.HomelandPct[1] > 0 {
		report = append(report, "Homeland buffs in effect:")
		for team := 0; team < 2; team++ {
			report = append(report, fmt.Sprintf("%s: %d%%",
				s.game.SideName(team), int(out.HomelandPct[team]*100)))
		}
	}

	report = append(report, fmt.Sprintf("## Final Score:  Team %s: %d Team %s: %d",
		s.game.SideName(0), out.Score[0], s.game.SideName(1), out.Score[1]))
	if out.Victor != model.TeamNone {
		report = append(report, fmt.Sprintf("\n# The Victor:  Team %s",
			s.game.SideName(out.Victor)))
	} else {
		report = append(report, "# TIE")
	}
	return strings.Join(report, "\n")
}

// buffMarkdown renders a region buff with its remaining lifetime.
func (s *ReportService) buffMarkdown(b *model.Buff) string {
	if b.ExpiresAt.IsZero() {
		return b.Name
	}
	days := int(b.ExpiresAt.Sub(s.clock.Now()).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return fmt.Sprintf("%s for %d days", b.Name, days)
}

// battleMarkdown links a region's battle thread.
func battleMarkdown(r *model.Region, b *model.Battle, text string) string {
	if b.SubmissionID == "" {
		return text
	}
	return fmt.Sprintf("[%s](/r/%s/comments/%s)", text, r.SRName, b.SubmissionID)
}
