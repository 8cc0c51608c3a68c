package service

import (
	"strings"
	"testing"

	"github.com/atiaxi/chromabot/internal/host"
	"github.com/atiaxi/chromabot/internal/model"
)

func pm(author, body string) *host.Event {
	return &host.Event{ID: "msg-1", Author: author, Body: body, Kind: host.OriginMessage}
}

func battleComment(id, author, body string) *host.Event {
	return &host.Event{ID: id, Author: author, Body: "> " + body,
		Kind: host.OriginComment, ParentID: "sub-1", LinkID: "sub-1"}
}

func TestHandleEventUnknownAuthor(t *testing.T) {
	f := newFixture(t)
	if err := f.commands.HandleEvent(f.ctx, pm("stranger", "status")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got := f.forum.lastReply()
	if !strings.Contains(got, "you don't seem to actually be playing") {
		t.Errorf("expected the not-a-player reply, got %q", got)
	}
	if !strings.Contains(got, "chromabothq") {
		t.Errorf("expected a pointer to the recruitment board, got %q", got)
	}
}

func TestStatusCommand(t *testing.T) {
	f := newFixture(t)
	f.addPlayer(t, "mencken", model.TeamOrangered, "oraistedarg")
	if err := f.commands.HandleEvent(f.ctx, pm("mencken", "status")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got := f.forum.lastReply()
	if !strings.Contains(got, "You are a captain in the Orangered army.") {
		t.Errorf("unexpected status reply %q", got)
	}
	if !strings.Contains(got, "Your forces number 100 loyalists.") {
		t.Errorf("expected the force count, got %q", got)
	}
}

func TestMoveCommand(t *testing.T) {
	f := newFixture(t)
	f.game.TraversableNeutrals = true
	f.addPlayer(t, "mencken", model.TeamOrangered, "oraistedarg")

	if err := f.commands.HandleEvent(f.ctx, pm("mencken", "lead 10 to sapphire")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got := f.forum.lastReply()
	if !strings.Contains(got, "**Confirmed**:  Your troops are moving:") {
		t.Errorf("expected a marching confirmation, got %q", got)
	}

	// A second order while marching names the existing destination.
	if err := f.commands.HandleEvent(f.ctx, pm("mencken", "lead 10 to oraistedarg")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got = f.forum.lastReply()
	if !strings.Contains(got, "You are already leading your armies to") {
		t.Errorf("expected the already-marching reply, got %q", got)
	}
}

func TestMoveCommandUnknownRegion(t *testing.T) {
	f := newFixture(t)
	f.addPlayer(t, "mencken", model.TeamOrangered, "oraistedarg")
	if err := f.commands.HandleEvent(f.ctx, pm("mencken", "lead 10 to atlantis")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := f.forum.lastReply(); !strings.Contains(got, "I don't know any region named 'atlantis'") {
		t.Errorf("expected the unknown-region reply, got %q", got)
	}
}

func TestInvadeCommand(t *testing.T) {
	f := newFixture(t)
	leader := f.addPlayer(t, "warlord", model.TeamOrangered, "oraistedarg")
	leader.Leader = true
	f.players.Update(f.ctx, leader)

	if err := f.commands.HandleEvent(f.ctx, pm("warlord", "invade sapphire")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := f.forum.lastReply(); !strings.Contains(got, "**Confirmed**  Battle will begin at") {
		t.Errorf("expected an invasion confirmation, got %q", got)
	}
	if len(f.forum.posts) != 1 {
		t.Fatalf("expected one invasion thread, got %d", len(f.forum.posts))
	}
	if !strings.Contains(f.forum.posts[0], "[Invasion] The Orangered armies march on sapphire!") {
		t.Errorf("unexpected thread title in %q", f.forum.posts[0])
	}
	battle, _ := f.battles.FindBySubmission(f.ctx, "post-1")
	if battle == nil {
		t.Fatal("expected the battle linked to its thread")
	}
}

func TestInvadeCommandDeniedForGrunts(t *testing.T) {
	f := newFixture(t)
	f.addPlayer(t, "grunt", model.TeamOrangered, "oraistedarg")
	if err := f.commands.HandleEvent(f.ctx, pm("grunt", "invade sapphire")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := f.forum.lastReply(); !strings.Contains(got, "You don't have the authority to invade a region!") {
		t.Errorf("expected the rank refusal, got %q", got)
	}
}

func TestSkirmishCommandFlow(t *testing.T) {
	f := newFixture(t)
	f.startBattle(t, "sapphire")
	f.addPlayer(t, "alice", model.TeamOrangered, "sapphire")
	f.addPlayer(t, "bob", model.TeamPeriwinkle, "sapphire")

	// Alice opens a root skirmish with a top-level comment.
	if err := f.commands.HandleEvent(f.ctx, battleComment("c1", "alice", "attack with 30")); err != nil {
		t.Fatalf("alice attack: %v", err)
	}
	confirmation := f.forum.lastPM()
	if !strings.Contains(confirmation,
		"**Confirmed**: You have committed 30 of your forces as **infantry** to **Skirmish #1**.") {
		t.Errorf("unexpected confirmation %q", confirmation)
	}
	if !strings.Contains(confirmation, "**For Orangered!**") {
		t.Errorf("expected a battle cry, got %q", confirmation)
	}
	root, _ := f.skirmishes.FindByComment(f.ctx, "c1")
	if root == nil || !root.IsRoot() {
		t.Fatal("expected a root action bound to the comment")
	}
	if root.SummaryID == "" {
		t.Fatal("expected a posted summary comment")
	}
	if len(f.forum.replies) != 1 || !strings.HasPrefix(f.forum.replies[0], "c1|") {
		t.Fatalf("expected the summary under the command comment, got %v", f.forum.replies)
	}

	// Bob opposes by replying to Alice's command comment.
	ev := battleComment("c2", "bob", "oppose with 20 ranged")
	ev.ParentID = "c1"
	if err := f.commands.HandleEvent(f.ctx, ev); err != nil {
		t.Fatalf("bob oppose: %v", err)
	}
	confirmation = f.forum.lastPM()
	if !strings.Contains(confirmation, "**Skirmish #1** (subskirmish 2)") {
		t.Errorf("expected a subskirmish confirmation, got %q", confirmation)
	}
	child, _ := f.skirmishes.FindByComment(f.ctx, "c2")
	if child == nil || child.ParentID != root.ID || !child.Hinder {
		t.Fatalf("unexpected child %+v", child)
	}
	// The running summary got re-rendered.
	if len(f.forum.edits) == 0 {
		t.Error("expected a summary edit after the reply")
	}
}

func TestSkirmishCommandTargetsById(t *testing.T) {
	f := newFixture(t)
	f.startBattle(t, "sapphire")
	f.addPlayer(t, "alice", model.TeamOrangered, "sapphire")
	f.addPlayer(t, "bob", model.TeamPeriwinkle, "sapphire")

	if err := f.commands.HandleEvent(f.ctx, battleComment("c1", "alice", "attack with 30")); err != nil {
		t.Fatalf("alice attack: %v", err)
	}

	// "#1" works from anywhere in the thread, parent comment or not.
	ev := battleComment("c2", "bob", "oppose #1 with 15")
	ev.ParentID = "elsewhere"
	if err := f.commands.HandleEvent(f.ctx, ev); err != nil {
		t.Fatalf("bob oppose: %v", err)
	}
	child, _ := f.skirmishes.FindByComment(f.ctx, "c2")
	if child == nil || child.ParentID != 1 {
		t.Fatalf("expected a child of skirmish 1, got %+v", child)
	}
}

func TestSkirmishCommandThroughBotSummary(t *testing.T) {
	f := newFixture(t)
	f.startBattle(t, "sapphire")
	f.addPlayer(t, "alice", model.TeamOrangered, "sapphire")
	f.addPlayer(t, "bob", model.TeamPeriwinkle, "sapphire")
	f.addPlayer(t, "carol", model.TeamOrangered, "sapphire")

	if err := f.commands.HandleEvent(f.ctx, battleComment("c1", "alice", "attack with 30")); err != nil {
		t.Fatalf("alice attack: %v", err)
	}
	ev := battleComment("c2", "bob", "oppose with 20")
	ev.ParentID = "c1"
	if err := f.commands.HandleEvent(f.ctx, ev); err != nil {
		t.Fatalf("bob oppose: %v", err)
	}

	// Carol replies to the bot's confirmation of Bob's action; the
	// subskirmish marker in its body identifies the target.
	f.forum.comments["bot-c"] = &host.Comment{
		ID: "bot-c", Author: "chromabot", Body: f.forum.lastPM()}
	ev = battleComment("c3", "carol", "attack with 10")
	ev.ParentID = "bot-c"
	if err := f.commands.HandleEvent(f.ctx, ev); err != nil {
		t.Fatalf("carol attack: %v", err)
	}
	child, _ := f.skirmishes.FindByComment(f.ctx, "c3")
	if child == nil || child.ParentID != 2 {
		t.Fatalf("expected a reply to subskirmish 2, got %+v", child)
	}
}

func TestSkirmishCommandOutsideBattle(t *testing.T) {
	f := newFixture(t)
	f.addPlayer(t, "alice", model.TeamOrangered, "sapphire")

	t.Run("via pm", func(t *testing.T) {
		if err := f.commands.HandleEvent(f.ctx, pm("alice", "attack with 30")); err != nil {
			t.Fatalf("handle: %v", err)
		}
		if got := f.forum.lastReply(); !strings.Contains(got,
			"You must enter your skirmish commands in the appropriate battle post") {
			t.Errorf("expected the wrong-channel reply, got %q", got)
		}
	})

	t.Run("no battle thread", func(t *testing.T) {
		if err := f.commands.HandleEvent(f.ctx, battleComment("c1", "alice", "attack with 30")); err != nil {
			t.Fatalf("handle: %v", err)
		}
		if got := f.forum.lastPM(); !strings.Contains(got, "There's no battle happening here!") {
			t.Errorf("expected the no-battle reply, got %q", got)
		}
	})
}

func TestSkirmishCommandErrorTexts(t *testing.T) {
	f := newFixture(t)
	f.startBattle(t, "sapphire")
	f.addPlayer(t, "alice", model.TeamOrangered, "sapphire")
	f.addPlayer(t, "bob", model.TeamPeriwinkle, "sapphire")
	f.addPlayer(t, "away", model.TeamOrangered, "oraistedarg")

	if err := f.commands.HandleEvent(f.ctx, battleComment("c1", "alice", "attack with 30")); err != nil {
		t.Fatalf("alice attack: %v", err)
	}

	tests := []struct {
		name   string
		author string
		body   string
		parent string
		want   string
	}{
		{"absent", "away", "attack with 10", "sub-1",
			"Your armies are currently in [oraistedarg](/r/ct_oraistedarg) and thus cannot participate"},
		{"second root", "alice", "attack with 10", "sub-1",
			"You can only spearhead one offensive per battle"},
		{"zero troops", "bob", "oppose #1 with 0", "sub-1",
			"You must use at least 1 troop!"},
		{"over the root", "bob", "oppose #1 with 31", "sub-1",
			"You may commit at most 30 troops to that skirmish"},
		{"friendly fire", "alice", "oppose #1 with 5", "sub-1",
			"You cannot attack someone on your team"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := battleComment(tt.name+"-c", tt.author, tt.body)
			ev.ParentID = tt.parent
			_ = i
			if err := f.commands.HandleEvent(f.ctx, ev); err != nil {
				t.Fatalf("handle: %v", err)
			}
			if got := f.forum.lastPM(); !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in reply, got %q", tt.want, got)
			}
		})
	}
}

func TestSkirmishRetractsWhenSummaryFails(t *testing.T) {
	f := newFixture(t)
	f.startBattle(t, "sapphire")
	alice := f.addPlayer(t, "alice", model.TeamOrangered, "sapphire")

	f.forum.failNextReply = true
	if err := f.commands.HandleEvent(f.ctx, battleComment("c1", "alice", "attack with 30")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := f.forum.lastPM(); !strings.Contains(got, "Disregard the previous confirmation") {
		t.Errorf("expected the apology, got %q", got)
	}
	if got := f.reload(t, alice); got.CommittedLoyalists != 0 {
		t.Errorf("expected the commitment refunded, got %d", got.CommittedLoyalists)
	}
	if left, _ := f.skirmishes.FindByComment(f.ctx, "c1"); left != nil {
		t.Error("expected the action retracted")
	}
}

func TestDefectCommand(t *testing.T) {
	f := newFixture(t)
	f.addPlayer(t, "turncoat", model.TeamOrangered, "oraistedarg")
	if err := f.commands.HandleEvent(f.ctx, pm("turncoat", "defect to periwinkle")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got := f.forum.lastReply()
	if !strings.Contains(got, "you are now on team Periwinkle") {
		t.Errorf("expected a defection confirmation, got %q", got)
	}

	if err := f.commands.HandleEvent(f.ctx, pm("turncoat", "defect to periwinkle")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := f.forum.lastReply(); !strings.Contains(got, "the team you're already on!") {
		t.Errorf("expected the same-team refusal, got %q", got)
	}
}

func TestPromoteCommand(t *testing.T) {
	f := newFixture(t)
	leader := f.addPlayer(t, "warlord", model.TeamOrangered, "oraistedarg")
	leader.Leader = true
	f.players.Update(f.ctx, leader)
	grunt := f.addPlayer(t, "grunt", model.TeamOrangered, "oraistedarg")

	if err := f.commands.HandleEvent(f.ctx, pm("warlord", "promote grunt")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := f.forum.lastReply(); !strings.Contains(got, "grunt has been promoted!") {
		t.Errorf("expected a promotion confirmation, got %q", got)
	}
	if !f.reload(t, grunt).Leader {
		t.Error("expected the grunt promoted")
	}

	// The freshly promoted grunt can demote in turn.
	if err := f.commands.HandleEvent(f.ctx, pm("grunt", "demote warlord")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if f.reload(t, leader).Leader {
		t.Error("expected the warlord demoted")
	}

	if err := f.commands.HandleEvent(f.ctx, pm("warlord", "promote warlord")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := f.forum.lastReply(); !strings.Contains(got, "You can't promote if you aren't a leader yourself!") {
		t.Errorf("expected the rank refusal, got %q", got)
	}
}

func TestCodewordCommand(t *testing.T) {
	f := newFixture(t)
	f.addPlayer(t, "mencken", model.TeamOrangered, "oraistedarg")

	if err := f.commands.HandleEvent(f.ctx,
		pm("mencken", `codeword "doom" is calvary`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	// Troop aliases canonicalize at definition time.
	if got := f.forum.lastReply(); !strings.Contains(got, "`doom` will now refer to cavalry") {
		t.Errorf("expected the canonicalized confirmation, got %q", got)
	}

	if err := f.commands.HandleEvent(f.ctx, pm("mencken", `codeword status "doom"`)); err != nil {
		t.Fatalf("status: %v", err)
	}
	if got := f.forum.lastReply(); !strings.Contains(got, "The codeword `doom` translates to: `cavalry`") {
		t.Errorf("expected the translation, got %q", got)
	}

	if err := f.commands.HandleEvent(f.ctx, pm("mencken", `codeword remove "doom"`)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := f.forum.lastReply(); !strings.Contains(got, "`doom` is no longer a codeword") {
		t.Errorf("expected the removal confirmation, got %q", got)
	}
}

func TestCodewordResolvesInSkirmish(t *testing.T) {
	f := newFixture(t)
	f.startBattle(t, "sapphire")
	f.addPlayer(t, "alice", model.TeamOrangered, "sapphire")

	if err := f.commands.HandleEvent(f.ctx,
		pm("alice", `codeword "doom" is ranged`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := f.commands.HandleEvent(f.ctx, battleComment("c1", "alice", "attack with 30 doom")); err != nil {
		t.Fatalf("attack: %v", err)
	}
	root, _ := f.skirmishes.FindByComment(f.ctx, "c1")
	if root == nil || root.TroopType != "ranged" {
		t.Fatalf("expected the codeword to resolve to ranged, got %+v", root)
	}
}

func TestSkirmishCommandByPM(t *testing.T) {
	f := newFixture(t)
	f.startBattle(t, "sapphire")
	f.addPlayer(t, "alice", model.TeamOrangered, "sapphire")
	f.addPlayer(t, "bob", model.TeamPeriwinkle, "sapphire")
	if err := f.commands.HandleEvent(f.ctx, battleComment("c1", "alice", "attack with 30")); err != nil {
		t.Fatalf("alice attack: %v", err)
	}

	// Disabled by default.
	if err := f.commands.HandleEvent(f.ctx, pm("bob", "oppose #1 with 15")); err != nil {
		t.Fatalf("bob pm: %v", err)
	}
	if got := f.forum.lastReply(); !strings.Contains(got, "appropriate battle post") {
		t.Errorf("expected the disabled reply, got %q", got)
	}

	f.game.BattlePM = true

	// Enabled, but a target id is still required.
	if err := f.commands.HandleEvent(f.ctx, pm("bob", "oppose with 15")); err != nil {
		t.Fatalf("bob pm without target: %v", err)
	}
	if got := f.forum.lastReply(); !strings.Contains(got, "must target an ongoing skirmish") {
		t.Errorf("expected the no-target reply, got %q", got)
	}

	if err := f.commands.HandleEvent(f.ctx, pm("bob", "oppose #1 with 15")); err != nil {
		t.Fatalf("bob pm oppose: %v", err)
	}
	child, _ := f.skirmishes.FindByComment(f.ctx, "msg-1")
	if child == nil || child.ParentID != 1 || !child.Hinder {
		t.Fatalf("expected a hinder child of skirmish 1, got %+v", child)
	}
	if got := f.forum.lastReply(); !strings.Contains(got, "(subskirmish 2)") {
		t.Errorf("expected the subskirmish confirmation, got %q", got)
	}

	if err := f.commands.HandleEvent(f.ctx, pm("bob", "support #99 with 5")); err != nil {
		t.Fatalf("bob pm bad target: %v", err)
	}
	if got := f.forum.lastReply(); !strings.Contains(got, "valid skirmish") {
		t.Errorf("expected the invalid-skirmish reply, got %q", got)
	}
}

func TestMoveCommandInstant(t *testing.T) {
	f := newFixture(t)
	f.game.TraversableNeutrals = true
	f.game.Speed = 0
	f.addPlayer(t, "mencken", model.TeamOrangered, "oraistedarg")

	if err := f.commands.HandleEvent(f.ctx, pm("mencken", "lead 10 to sapphire")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got := f.forum.lastReply()
	if !strings.Contains(got, "You have lead 10 of your people to [sapphire](/r/ct_sapphire)") {
		t.Errorf("expected the instant-move confirmation, got %q", got)
	}
}
