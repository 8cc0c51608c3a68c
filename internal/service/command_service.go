package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/atiaxi/chromabot/internal/command"
	"github.com/atiaxi/chromabot/internal/config"
	"github.com/atiaxi/chromabot/internal/host"
	"github.com/atiaxi/chromabot/internal/model"
	"github.com/atiaxi/chromabot/internal/repository"
	"github.com/atiaxi/chromabot/pkg/chroma"
)

const failNotPlayer = "Sorry, I can't help you - first of all, you messaged a bot.  " +
	"Secondly, you don't seem to actually be playing the game I run!  " +
	"If you'd like to change that, comment in the latest recruitment thread in /r/%s"

// summaryLimit keeps each summary comment under the host's post size.
const summaryLimit = 9800

var (
	subskirmishRe = regexp.MustCompile(`\(subskirmish (\d+)\)`)
	skirmishRefRe = regexp.MustCompile(`Skirmish #(\d+)\*`)
)

// CommandService interprets parsed orders: it runs them through the
// engine services and turns outcomes, good or bad, into replies.
type CommandService struct {
	forum      host.Host
	players    repository.PlayerRepo
	regions    repository.RegionRepo
	battles    repository.BattleRepo
	skirmishes repository.SkirmishRepo
	codewords  repository.CodewordRepo
	processed  repository.ProcessedRepo
	marches    repository.MarchRepo
	world      *WorldService
	movement   *MovementService
	combat     *BattleService
	recruits   *RecruitService
	reports    *ReportService
	bcast      Broadcaster
	bot        *config.Bot
	game       *config.Game
	clock      chroma.Clock
}

// NewCommandService creates a CommandService.
func NewCommandService(forum host.Host, players repository.PlayerRepo,
	regions repository.RegionRepo, battles repository.BattleRepo,
	skirmishes repository.SkirmishRepo, codewords repository.CodewordRepo,
	processed repository.ProcessedRepo, marches repository.MarchRepo,
	world *WorldService, movement *MovementService, combat *BattleService,
	recruits *RecruitService, reports *ReportService, bcast Broadcaster,
	bot *config.Bot, game *config.Game, clock chroma.Clock) *CommandService {
	return &CommandService{forum: forum, players: players, regions: regions,
		battles: battles, skirmishes: skirmishes, codewords: codewords,
		processed: processed, marches: marches, world: world, movement: movement,
		combat: combat, recruits: recruits, reports: reports, bcast: bcast,
		bot: bot, game: game, clock: clock}
}

// HandleEvent extracts and runs every order in one observed message.
func (s *CommandService) HandleEvent(ctx context.Context, ev *host.Event) error {
	player, err := s.players.FindByName(ctx, strings.ToLower(ev.Author))
	if err != nil {
		return err
	}
	if player == nil {
		s.reply(ctx, ev, nil, fmt.Sprintf(failNotPlayer, s.bot.HQ))
		return nil
	}

	orders := command.ExtractOrders(ev.Body, ev.Kind == host.OriginMessage)
	for _, order := range orders {
		cmd, err := command.Parse(order)
		if err != nil {
			var nac *command.ErrNotACommand
			if errors.As(err, &nac) {
				log.Debug().Str("input", order).Str("author", ev.Author).
					Msg("Unparseable order")
				continue
			}
			return err
		}
		if err := s.execute(ctx, player, cmd, ev); err != nil {
			return err
		}
	}
	return nil
}

func (s *CommandService) execute(ctx context.Context, player *model.Player,
	cmd command.Command, ev *host.Event) error {
	switch c := cmd.(type) {
	case *command.StatusCommand:
		return s.handleStatus(ctx, player, ev)
	case *command.TimeCommand:
		s.reply(ctx, ev, player, "The current time is: "+timestr(s.clock.Now()))
		return nil
	case *command.ExtractCommand:
		return s.handleExtract(ctx, player, ev)
	case *command.StopCommand:
		return s.handleStop(ctx, player, ev)
	case *command.MoveCommand:
		return s.handleMove(ctx, player, c, ev)
	case *command.InvadeCommand:
		return s.handleInvade(ctx, player, c, ev)
	case *command.SkirmishCommand:
		return s.handleSkirmish(ctx, player, c, ev)
	case *command.DefectCommand:
		return s.handleDefect(ctx, player, c, ev)
	case *command.PromoteCommand:
		return s.handlePromote(ctx, player, c, ev)
	case *command.CodewordCommand:
		return s.handleCodeword(ctx, player, c, ev)
	}
	return nil
}

func (s *CommandService) handleStatus(ctx context.Context, player *model.Player, ev *host.Event) error {
	status, err := s.reports.PersonalStatus(ctx, player)
	if err != nil {
		return err
	}
	s.reply(ctx, ev, player, status)
	return nil
}

func (s *CommandService) handleExtract(ctx context.Context, player *model.Player, ev *host.Event) error {
	cap, err := s.movement.Extract(ctx, player)
	if err != nil {
		var ge *model.GameError
		if errors.As(err, &ge) && ge.Kind == model.ErrInProgress {
			s.reply(ctx, ev, player, "The zone is too hot for extraction!  "+
				"You will have to wait until the battle finishes.")
			return nil
		}
		return err
	}
	s.reply(ctx, ev, player,
		"You have successfully evacuated your team to "+cap.Markdown())
	return nil
}

func (s *CommandService) handleStop(ctx context.Context, player *model.Player, ev *host.Event) error {
	if err := s.movement.Stop(ctx, player); err != nil {
		return err
	}
	region, err := s.regions.FindByID(ctx, player.RegionID)
	if err != nil {
		return err
	}
	s.reply(ctx, ev, player,
		"**Confirmed**:  You have halted your armies at "+region.Markdown())
	return nil
}

func (s *CommandService) handleMove(ctx context.Context, player *model.Player,
	cmd *command.MoveCommand, ev *host.Event) error {

	orders, err := s.movement.Move(ctx, player, cmd.Amount, cmd.All, cmd.Dests)
	if err != nil {
		var unknown *ErrUnknownRegion
		if errors.As(err, &unknown) {
			s.reply(ctx, ev, player,
				fmt.Sprintf("I don't know any region named '%s'", unknown.Name))
			return nil
		}
		var ge *model.GameError
		if !errors.As(err, &ge) {
			return err
		}
		s.reply(ctx, ev, player, s.moveErrorText(ctx, player, ge))
		return nil
	}

	if len(orders) > 0 {
		itinerary := make([]string, 0, len(orders))
		for i := range orders {
			line, err := s.reports.MarchMarkdown(ctx, &orders[i])
			if err != nil {
				return err
			}
			itinerary = append(itinerary, line)
		}
		s.reply(ctx, ev, player,
			"**Confirmed**:  Your troops are moving:\n\n"+strings.Join(itinerary, "\n\n"))
	} else {
		region, err := s.regions.FindByID(ctx, player.RegionID)
		if err != nil {
			return err
		}
		amount := cmd.Amount
		if cmd.All {
			amount = player.Loyalists
		}
		s.reply(ctx, ev, player, fmt.Sprintf(
			"**Confirmed**: You have lead %d of your people to %s.",
			amount, region.Markdown()))
	}
	s.bcast.BroadcastEvent("march_ordered", map[string]any{"player": player.Name})
	return nil
}

func (s *CommandService) moveErrorText(ctx context.Context, player *model.Player, ge *model.GameError) string {
	switch ge.Kind {
	case model.ErrInsufficient:
		return fmt.Sprintf("You cannot move %d of your people - you only have %d",
			ge.Requested, ge.Available)
	case model.ErrNonAdjacent:
		if ge.Dest == "nowhere in particular" {
			return "You can't end a movement command with a pathfinding " +
				"instruction; I have no idea where you want to end up!"
		}
		if curr, err := s.regions.FindByID(ctx, player.RegionID); err == nil &&
			strings.EqualFold(curr.Name, ge.Dest) {
			return fmt.Sprintf("How can you go to %s when you are *already here*?",
				s.regionMarkdown(ctx, ge.Dest))
		}
		return fmt.Sprintf("The region %s is not adjacent to %s",
			s.regionMarkdown(ctx, ge.Src), s.regionMarkdown(ctx, ge.Dest))
	case model.ErrNoSuchSector:
		return fmt.Sprintf("You cannot go to sector %d, it must be between 0 and %d",
			ge.Requested, ge.Max)
	case model.ErrInProgress:
		if ge.Conflict == model.ConflictMove {
			if moving, err := s.marches.ListByPlayer(ctx, player.ID); err == nil && len(moving) > 0 {
				last := moving[len(moving)-1]
				dest, derr := s.regions.FindByID(ctx, last.DestID)
				if derr == nil {
					return fmt.Sprintf("You are already leading your armies to %s - "+
						"you can give further orders upon your arrival at %s",
						dest.Markdown(), timestr(last.ArrivesAt))
				}
			}
			return "You are already leading your armies elsewhere"
		}
		region, err := s.regions.FindByID(ctx, player.RegionID)
		if err != nil {
			return "You have committed your armies to battle - you must see this through to the bitter end."
		}
		return fmt.Sprintf("You have committed your armies to the battle at %s - "+
			"you must see this through to the bitter end.", region.Markdown())
	case model.ErrTeam:
		return fmt.Sprintf("%s is not friendly territory - invade first "+
			"if you want to go there", s.regionMarkdown(ctx, ge.Dest))
	}
	return ge.Error()
}

func (s *CommandService) handleInvade(ctx context.Context, player *model.Player,
	cmd *command.InvadeCommand, ev *host.Event) error {

	dest, err := s.world.FindRegion(ctx, player.ID, cmd.Where)
	if err != nil {
		return err
	}
	if dest == nil {
		s.reply(ctx, ev, player,
			fmt.Sprintf("I don't know any region named '%s'", cmd.Where))
		return nil
	}

	battle, err := s.combat.Invade(ctx, player, dest)
	if err != nil {
		var ge *model.GameError
		if !errors.As(err, &ge) {
			return err
		}
		s.reply(ctx, ev, player, s.invadeErrorText(ctx, dest, ge))
		return nil
	}

	s.reply(ctx, ev, player,
		"**Confirmed**  Battle will begin at "+timestr(battle.BeginsAt))

	title := fmt.Sprintf("[Invasion] The %s armies march on %s!",
		s.game.SideName(player.Team), dest.Name)
	postID, err := s.forum.SubmitPost(ctx, dest.SRName, title,
		s.reports.InvasionText(battle))
	if err != nil || postID == "" {
		log.Warn().Err(err).Str("region", dest.Name).
			Msg("Couldn't submit invasion thread")
		return s.battles.Delete(ctx, battle.ID)
	}
	battle.SubmissionID = postID
	if err := s.battles.Update(ctx, battle); err != nil {
		return err
	}
	s.reports.InvalidateLands(ctx)
	s.bcast.BroadcastEvent("battle_scheduled", map[string]any{
		"region": dest.Name, "begins": battle.BeginsAt})
	return nil
}

func (s *CommandService) invadeErrorText(ctx context.Context, dest *model.Region, ge *model.GameError) string {
	switch ge.Kind {
	case model.ErrRank:
		return "You don't have the authority to invade a region!"
	case model.ErrTeam:
		return fmt.Sprintf("You can't invade %s, you already own it!", dest.Markdown())
	case model.ErrNonAdjacent:
		return fmt.Sprintf("%s is not next to any territory you control", dest.Markdown())
	case model.ErrInProgress:
		link := "already"
		if battle, err := s.battles.FindByRegion(ctx, dest.ID); err == nil && battle != nil {
			link = battleMarkdown(dest, battle, "already")
		}
		return fmt.Sprintf("%s is %s being invaded!", dest.Markdown(), link)
	case model.ErrTiming:
		return fmt.Sprintf("%s is too fortified to be attacked.  "+
			"These fortifications will break down by %s",
			dest.Markdown(), timestr(ge.Expected))
	case model.ErrDisabled:
		return "You cannot invade the enemy capital"
	}
	return ge.Error()
}

func (s *CommandService) handleSkirmish(ctx context.Context, player *model.Player,
	cmd *command.SkirmishCommand, ev *host.Event) error {

	// PMed skirmish commands work only when enabled, and only against
	// an explicit skirmish id; there is no thread to infer one from.
	if ev.Kind != host.OriginComment {
		if !s.game.BattlePM {
			s.reply(ctx, ev, player,
				"You must enter your skirmish commands in the appropriate battle post")
			return nil
		}
		if cmd.Target == 0 {
			s.reply(ctx, ev, player,
				"PMed skirmish commands must target an ongoing skirmish!")
			return nil
		}
	}

	var current *model.Battle
	var err error
	if ev.Kind == host.OriginComment {
		current, err = s.battles.FindBySubmission(ctx, ev.LinkID)
		if err != nil {
			return err
		}
		if current == nil {
			s.reply(ctx, ev, player, "There's no battle happening here!")
			return nil
		}
	}

	var sa *model.SkirmishAction
	if cmd.Target == 0 && ev.ParentID == ev.LinkID {
		sa, err = s.combat.CreateRoot(ctx, current, player, cmd.Amount, cmd.Troop)
	} else {
		parent, stop, perr := s.resolveParent(ctx, cmd, current, ev, player)
		if perr != nil {
			return perr
		}
		if stop {
			return nil
		}
		if current == nil {
			current, err = s.battles.FindByID(ctx, parent.BattleID)
			if err != nil {
				return err
			}
			if current == nil {
				s.reply(ctx, ev, player, "That does not appear to be a valid skirmish!")
				return nil
			}
		}
		sa, err = s.combat.React(ctx, parent, player, cmd.Amount, cmd.Hinder(), cmd.Troop)
	}
	if err != nil {
		var ge *model.GameError
		if !errors.As(err, &ge) {
			return err
		}
		text, terr := s.skirmishErrorText(ctx, player, current, ge)
		if terr != nil {
			return terr
		}
		s.reply(ctx, ev, player, text)
		return nil
	}

	eligible, err := s.combat.FirstStrikeEligible(ctx, current, sa)
	if err != nil {
		return err
	}
	if eligible {
		if err := s.combat.AttachFirstStrike(ctx, sa); err != nil {
			return err
		}
	}

	root, err := s.combat.RootOf(ctx, sa)
	if err != nil {
		return err
	}
	subskirmish := ""
	if root.ID != sa.ID {
		subskirmish = fmt.Sprintf(" (subskirmish %d)", sa.ID)
	}
	s.reply(ctx, ev, player, fmt.Sprintf(
		"**Confirmed**: You have committed %d of your forces as **%s** to "+
			"**Skirmish #%d**%s.\n\nAs of now, you have committed %d total.  **For %s!**",
		sa.Amount, sa.TroopType, root.ID, subskirmish,
		player.CommittedLoyalists, s.game.SideName(player.Team)))

	sa.CommentID = ev.ID
	if err := s.skirmishes.Update(ctx, sa); err != nil {
		return err
	}

	if sa.IsRoot() {
		return s.postRootSummary(ctx, player, sa, ev)
	}
	if err := s.UpdateSummary(ctx, root); err != nil {
		log.Warn().Err(err).Int64("root", root.ID).Msg("Couldn't update skirmish summary")
	}
	return nil
}

// resolveParent locates the action a skirmish reply targets. stop
// means the command was answered with an error reply and is done.
// current is nil for PMed commands, which always carry a target id.
func (s *CommandService) resolveParent(ctx context.Context, cmd *command.SkirmishCommand,
	current *model.Battle, ev *host.Event, player *model.Player) (parent *model.SkirmishAction, stop bool, err error) {

	if cmd.Target != 0 {
		parent, err = s.skirmishes.FindByID(ctx, cmd.Target)
		if err != nil {
			return nil, false, err
		}
		if parent != nil && current != nil && parent.BattleID != current.ID {
			s.reply(ctx, ev, player, "That skirmish belongs to another battle!")
			return nil, true, nil
		}
		if parent == nil {
			s.reply(ctx, ev, player, "That does not appear to be a valid skirmish!")
			return nil, true, nil
		}
		return parent, false, nil
	}

	parent, err = s.skirmishes.FindByComment(ctx, ev.ParentID)
	if err != nil {
		return nil, false, err
	}
	if parent == nil {
		sub, serr := s.extractSubskirmish(ctx, current, ev)
		if serr != nil {
			return nil, false, serr
		}
		if sub != 0 {
			parent, err = s.skirmishes.FindByID(ctx, sub)
			if err != nil {
				return nil, false, err
			}
		}
	}
	if parent == nil {
		s.reply(ctx, ev, player, "You can only use skirmish commands in reply "+
			"to other confirmed skirmish commands")
		return nil, true, nil
	}
	return parent, false, nil
}

// extractSubskirmish recovers the target id from the bot's own summary
// comment the player replied to. Non-bot parents are remembered so
// they are not fetched again.
func (s *CommandService) extractSubskirmish(ctx context.Context, battle *model.Battle, ev *host.Event) (int64, error) {
	seen, err := s.processed.Seen(ctx, battle.ID, ev.ParentID)
	if err != nil {
		return 0, err
	}
	if seen {
		return 0, nil
	}

	parent, err := s.forum.FetchComment(ctx, ev.ParentID)
	if err != nil {
		log.Warn().Err(err).Str("parent", ev.ParentID).Msg("Can't get parent comment")
		return 0, nil
	}
	if parent == nil || parent.Author == "" {
		return 0, nil
	}
	if !strings.EqualFold(parent.Author, s.forum.BotName()) {
		if err := s.processed.Mark(ctx, battle.ID, parent.ID); err != nil {
			return 0, err
		}
		return 0, nil
	}

	if m := subskirmishRe.FindStringSubmatch(parent.Body); m != nil {
		n, _ := strconv.ParseInt(m[1], 10, 64)
		return n, nil
	}
	if m := skirmishRefRe.FindStringSubmatch(parent.Body); m != nil {
		n, _ := strconv.ParseInt(m[1], 10, 64)
		return n, nil
	}
	return 0, nil
}

// postRootSummary creates the running summary comment under a new root
// skirmish. If the post fails the skirmish is retracted; a silent
// unconfirmed commitment would be worse than none.
func (s *CommandService) postRootSummary(ctx context.Context, player *model.Player,
	sa *model.SkirmishAction, ev *host.Event) error {
	details, err := s.reports.FullDetails(ctx, sa)
	if err != nil {
		return err
	}
	summaryID, err := s.forum.Reply(ctx, ev.ID, strings.Join(details, "\n\n"))
	if err != nil || summaryID == "" {
		log.Warn().Err(err).Int64("skirmish", sa.ID).Msg("Couldn't post skirmish summary")
		if rerr := s.combat.Retract(ctx, player, sa); rerr != nil {
			return rerr
		}
		s.reply(ctx, ev, player, "I'm sorry - an error occurred and I coudn't "+
			"commit your skirmish.  Disregard the previous confirmation")
		return nil
	}
	sa.SummaryID = summaryID
	return s.skirmishes.Update(ctx, sa)
}

// UpdateSummary re-renders a root's summary comments, spilling into
// additional comments when the details outgrow the post size limit.
func (s *CommandService) UpdateSummary(ctx context.Context, root *model.SkirmishAction) error {
	if root.SummaryID == "" {
		return nil
	}
	details, err := s.reports.FullDetails(ctx, root)
	if err != nil {
		return err
	}

	var parts []string
	var sb strings.Builder
	for _, d := range details {
		sb.WriteString(d)
		sb.WriteString("\n\n")
		if sb.Len() > summaryLimit {
			parts = append(parts, sb.String())
			sb.Reset()
		}
	}
	parts = append(parts, sb.String())

	ids := strings.Split(root.SummaryID, ",")
	for len(ids) < len(parts) {
		newID, err := s.forum.Reply(ctx, ids[0], parts[len(ids)])
		if err != nil || newID == "" {
			return fmt.Errorf("extend summary for skirmish %d: %w", root.ID, err)
		}
		ids = append(ids, newID)
	}
	if joined := strings.Join(ids, ","); joined != root.SummaryID {
		root.SummaryID = joined
		if err := s.skirmishes.Update(ctx, root); err != nil {
			return err
		}
	}

	for i, part := range parts {
		if err := host.Execute(ctx, s.forum, host.Edit(ids[i], part)); err != nil {
			return err
		}
	}
	return nil
}

func (s *CommandService) skirmishErrorText(ctx context.Context, player *model.Player,
	current *model.Battle, ge *model.GameError) (string, error) {
	switch ge.Kind {
	case model.ErrNotPresent:
		standard := fmt.Sprintf("Your armies are currently in %s and thus "+
			"cannot participate in this battle.", s.regionMarkdown(ctx, ge.ActuallyAm))
		moving, err := s.marches.ListByPlayer(ctx, player.ID)
		if err != nil {
			return "", err
		}
		if len(moving) > 0 {
			dest, err := s.regions.FindByID(ctx, moving[0].DestID)
			if err != nil {
				return "", err
			}
			standard += fmt.Sprintf("\n\n(Your forces will arrive in %s at %s )",
				dest.Markdown(), timestr(moving[0].ArrivesAt))
		}
		return standard, nil
	case model.ErrTeam:
		if ge.Friendly {
			return "You cannot attack someone on your team", nil
		}
		return "You cannot aid the enemy!", nil
	case model.ErrInProgress:
		switch ge.Conflict {
		case model.ConflictBattle:
			return "You can only spearhead one offensive per battle " +
				"(though you may still assist others)", nil
		case model.ConflictSkirmish:
			return "You may only respond to a specific sub-skirmish once " +
				"(though you may still fight elsewhere)", nil
		case model.ConflictMove:
			moving, err := s.marches.ListByPlayer(ctx, player.ID)
			if err != nil {
				return "", err
			}
			if len(moving) > 0 {
				dest, err := s.regions.FindByID(ctx, moving[0].DestID)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Your troops are moving to %s - they are "+
					"in no condition to fight!", dest.Markdown()), nil
			}
		}
		return "You're already doing that!", nil
	case model.ErrInsufficient:
		if ge.Requested <= 0 {
			return "You must use at least 1 troop!", nil
		}
		return fmt.Sprintf("You don't have %d troops to spare! "+
			"(you have committed %d total)",
			ge.Requested, player.CommittedLoyalists), nil
	case model.ErrTooMany:
		return fmt.Sprintf("You may commit at most %d troops to that skirmish", ge.Max), nil
	case model.ErrTiming:
		if ge.Side == model.TimingLate {
			if ge.Expected.IsZero() {
				return fmt.Sprintf("Top-level attacks are disallowed in the "+
					"last %d seconds of a battle", current.Lockout), nil
			}
			return "That skirmish has ended!", nil
		}
		if current.Started(s.clock.Now()) {
			return "You cannot participate in a battle created before you signed up.", nil
		}
		return "The battle has not yet begun!", nil
	case model.ErrWrongSector:
		return fmt.Sprintf("You must be in sector #%d to do that!  "+
			"(You are in sector #%d)", ge.Max, ge.Requested), nil
	case model.ErrNoSuchSector:
		return "You must first move to a sector", nil
	}
	return ge.Error(), nil
}

func (s *CommandService) handleDefect(ctx context.Context, player *model.Player,
	cmd *command.DefectCommand, ev *host.Event) error {

	cap, err := s.recruits.Defect(ctx, player, cmd.Team)
	if err != nil {
		var ge *model.GameError
		if !errors.As(err, &ge) {
			return err
		}
		switch ge.Kind {
		case model.ErrTeam:
			s.reply(ctx, ev, player, "You're trying to defect to the team you're already on!")
		case model.ErrTiming:
			s.reply(ctx, ev, player, "You can only defect if you haven't taken any actions.")
		case model.ErrDisabled:
			s.reply(ctx, ev, player, "Defection has been disabled.")
		default:
			s.reply(ctx, ev, player, ge.Error())
		}
		return nil
	}
	s.reply(ctx, ev, player, fmt.Sprintf(
		"Done - you are now on team %s and encamped in their capital of %s",
		s.game.SideName(player.Team), cap.Markdown()))
	return nil
}

func (s *CommandService) handlePromote(ctx context.Context, player *model.Player,
	cmd *command.PromoteCommand, ev *host.Event) error {

	person, err := s.players.FindByName(ctx, strings.ToLower(cmd.Who))
	if err != nil {
		return err
	}
	if person == nil {
		s.reply(ctx, ev, player, fmt.Sprintf("I don't know who %s is", cmd.Who))
		return nil
	}
	if !player.Leader {
		s.reply(ctx, ev, player, "You can't promote if you aren't a leader yourself!")
		return nil
	}
	person.Leader = cmd.Direction == "promote"
	if err := s.players.Update(ctx, person); err != nil {
		return err
	}
	s.reply(ctx, ev, player, fmt.Sprintf("%s has been %sd!", cmd.Who, cmd.Direction))
	return nil
}

func (s *CommandService) handleCodeword(ctx context.Context, player *model.Player,
	cmd *command.CodewordCommand, ev *host.Event) error {

	switch {
	case cmd.Remove && cmd.All:
		if err := s.codewords.RemoveAll(ctx, player.ID); err != nil {
			return err
		}
		s.reply(ctx, ev, player, "**Confirmed**:  You no longer have codewords")
	case cmd.Remove:
		if err := s.codewords.Remove(ctx, player.ID, cmd.Code); err != nil {
			return err
		}
		s.reply(ctx, ev, player,
			fmt.Sprintf("**Confirmed**:  %s is no longer a codeword", cmd.Code))
	case cmd.Status && cmd.Code != "":
		cw, err := s.codewords.Lookup(ctx, player.ID, cmd.Code)
		if err != nil {
			return err
		}
		if cw != nil {
			s.reply(ctx, ev, player, fmt.Sprintf(
				"The codeword `%s` translates to: `%s`", cmd.Code, cw.Word))
		} else {
			s.reply(ctx, ev, player, fmt.Sprintf(
				"`%s` does not appear to be a valid codeword", cmd.Code))
		}
	case cmd.Status:
		cws, err := s.codewords.ListByPlayer(ctx, player.ID)
		if err != nil {
			return err
		}
		lines := make([]string, 0, len(cws))
		for _, cw := range cws {
			lines = append(lines, fmt.Sprintf("**%s**: `%s`", cw.Word, cw.Code))
		}
		s.reply(ctx, ev, player,
			"Your codewords are as follows:\n\n"+strings.Join(lines, "\n\n"))
	default:
		word := cmd.Word
		if chroma.IsTroopType(word) {
			word = string(chroma.CanonicalTroopType(word))
		}
		if err := s.codewords.Set(ctx, &model.Codeword{
			PlayerID: player.ID, Code: cmd.Code, Word: word}); err != nil {
			return err
		}
		s.reply(ctx, ev, player, fmt.Sprintf(
			"**Confirmed**:  `%s` will now refer to %s", cmd.Code, word))
	}
	return nil
}

// reply answers an event. Comment-originated commands are answered by
// private message with a pointer back to the comment; messages are
// answered in place.
func (s *CommandService) reply(ctx context.Context, ev *host.Event, player *model.Player, text string) {
	var action host.ReplyAction
	if ev.Kind == host.OriginComment {
		who := ev.Author
		if player != nil {
			who = player.Name
		}
		full := text
		if ev.Permalink != "" {
			full = fmt.Sprintf("(In response to [this comment](%s))\n\n%s",
				ev.Permalink, text)
		}
		action = host.PM(who, "Chromabot reply", full)
	} else {
		action = host.ReplyTo(ev.ID, text)
	}
	if err := host.Execute(ctx, s.forum, action); err != nil {
		log.Warn().Err(err).Str("event", ev.ID).Msg("Couldn't deliver reply")
	}
}

// regionMarkdown renders a region link from its name, degrading to the
// bare name when the lookup fails.
func (s *CommandService) regionMarkdown(ctx context.Context, name string) string {
	reg, err := s.regions.FindByName(ctx, strings.ToLower(name))
	if err != nil || reg == nil {
		return name
	}
	return reg.Markdown()
}
