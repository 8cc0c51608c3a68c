// Package command parses the order grammar players write in posts and
// private messages.
package command

// Command is a parsed player order. The interpreter in the service
// layer type-switches on the concrete variants.
type Command interface {
	isCommand()
}

// StatusCommand asks for the player's own status report.
type StatusCommand struct{}

// TimeCommand asks for the current time and pending deadlines.
type TimeCommand struct{}

// ExtractCommand teleports the player back to their capital.
type ExtractCommand struct{}

// StopCommand cancels the player's marching orders.
type StopCommand struct{}

// Destination is one stop in a lead command. Path is the "*"
// wildcard asking the pathfinder to fill in the hops to the next
// named stop.
type Destination struct {
	Name      string
	Sector    int
	HasSector bool
	Path      bool
}

// MoveCommand moves troops along one or more destinations.
type MoveCommand struct {
	Amount int
	All    bool
	Dests  []Destination
}

// InvadeCommand schedules a battle for a region.
type InvadeCommand struct {
	Where string
}

// Skirmish intents. Attack and oppose both declare hostility; support
// aids the parent action's side.
const (
	ActionAttack  = "attack"
	ActionOppose  = "oppose"
	ActionSupport = "support"
)

// SkirmishCommand joins a battle, either as a new root action or as a
// reply to an existing one.
type SkirmishCommand struct {
	Action string
	// Target is the skirmish id given with "#"; 0 means the command
	// context (the comment replied to) decides.
	Target int64
	Amount int
	// Troop is the trailing text, raw: a troop type, an alias, or a
	// player codeword. Resolution happens against the player's
	// codeword list at execution time.
	Troop string
}

// Hinder reports whether the declared intent opposes the parent.
func (c *SkirmishCommand) Hinder() bool {
	return c.Action != ActionSupport
}

// DefectCommand switches team. Team is -1 when unspecified, meaning
// the opposite of the player's current team.
type DefectCommand struct {
	Team int
}

// PromoteCommand raises or lowers another player's rank.
type PromoteCommand struct {
	Direction string // "promote" or "demote"
	Who       string
}

// CodewordCommand manages the player's private aliases.
type CodewordCommand struct {
	Remove bool
	All    bool
	Status bool
	Code   string
	Word   string
}

func (*StatusCommand) isCommand()   {}
func (*TimeCommand) isCommand()     {}
func (*ExtractCommand) isCommand()  {}
func (*StopCommand) isCommand()     {}
func (*MoveCommand) isCommand()     {}
func (*InvadeCommand) isCommand()   {}
func (*SkirmishCommand) isCommand() {}
func (*DefectCommand) isCommand()   {}
func (*PromoteCommand) isCommand()  {}
func (*CodewordCommand) isCommand() {}
