package model

import "time"

// Team numbering. Display labels come from config (game.sides).
const (
	TeamOrangered  = 0
	TeamPeriwinkle = 1
	// TeamNone marks neutral regions and tied battles.
	TeamNone = -1
)

// OppositeTeam returns the other faction.
func OppositeTeam(team int) int {
	if team == TeamOrangered {
		return TeamPeriwinkle
	}
	return TeamOrangered
}

// Region is a node on the world graph.
type Region struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`   // lowercase, unique
	SRName           string   `json:"srname"` // display subreddit name
	Owner            int      `json:"owner"`  // team or TeamNone
	CapitalOf        int      `json:"capital_of"`
	Eternal          bool     `json:"eternal"`
	TravelMultiplier float64  `json:"travel_multiplier"`
	Borders          []int64  `json:"borders,omitempty"` // region ids, symmetric
	Aliases          []string `json:"aliases,omitempty"`
}

// Markdown renders the standard region link.
func (r *Region) Markdown() string {
	return "[" + r.Name + "](/r/" + r.SRName + ")"
}

// Player is a combatant commanding a force of loyalists.
type Player struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"` // lowercase
	Team               int       `json:"team"`
	Loyalists          int       `json:"loyalists"`
	CommittedLoyalists int       `json:"committed_loyalists"`
	RegionID           int64     `json:"region_id"`
	Sector             int       `json:"sector"`
	Leader             bool      `json:"leader"`
	Defectable         bool      `json:"defectable"`
	RecruitedAt        time.Time `json:"recruited_at"`
}

// Rank returns the display rank for the player.
func (p *Player) Rank() string {
	if p.Leader {
		return "general"
	}
	return "captain"
}

// MarchingOrder is one hop of a scheduled movement. A player owns an
// ordered chain of these; only the head is actionable.
type MarchingOrder struct {
	ID         int64     `json:"id"`
	PlayerID   int64     `json:"player_id"`
	SourceID   int64     `json:"source_id"`
	DestID     int64     `json:"dest_id"`
	DestSector int       `json:"dest_sector"`
	ArrivesAt  time.Time `json:"arrives_at"`
}

// Battle is a scheduled contest over one region.
type Battle struct {
	ID            int64     `json:"id"`
	RegionID      int64     `json:"region_id"`
	BeginsAt      time.Time `json:"begins_at"`
	EndsAt        time.Time `json:"ends_at"`         // jittered; zero until opened
	DisplayEndsAt time.Time `json:"display_ends_at"` // what players are told
	SubmissionID  string    `json:"submission_id"`   // forum thread id
	Lockout       int       `json:"lockout"`         // seconds
	Score0        int       `json:"score0"`
	Score1        int       `json:"score1"`
	Victor        int       `json:"victor"` // team or TeamNone
}

// Started reports whether the battle is open for skirmish commands:
// its time has come, there is a thread to fight in, and the tick has
// assigned a real end time.
func (b *Battle) Started(now time.Time) bool {
	return b.Ready(now) && b.SubmissionID != "" && b.EndsAt.After(b.BeginsAt)
}

// Ready reports whether the begin time has passed.
func (b *Battle) Ready(now time.Time) bool {
	return !now.Before(b.BeginsAt)
}

// PastEnd reports whether the (jittered) end time has passed.
func (b *Battle) PastEnd(now time.Time) bool {
	return b.EndsAt.After(b.BeginsAt) && !now.Before(b.EndsAt)
}

// SkirmishAction is a node in a battle's resolution tree. Roots score
// independently; children modify their parents.
type SkirmishAction struct {
	ID            int64     `json:"id"`
	BattleID      int64     `json:"battle_id"`
	ParentID      int64     `json:"parent_id"` // 0 for roots
	PlayerID      int64     `json:"player_id"`
	Amount        int       `json:"amount"`
	TroopType     string    `json:"troop_type"`
	Hinder        bool      `json:"hinder"`
	Sector        int       `json:"sector"`
	CommentID     string    `json:"comment_id"`
	SummaryID     string    `json:"summary_id"`
	EndsAt        time.Time `json:"ends_at"` // zero = lives until battle end
	DisplayEndsAt time.Time `json:"display_ends_at"`
	Resolved      bool      `json:"resolved"`
	Victor        int       `json:"victor"`
	VP            int       `json:"vp"`
	Margin        int       `json:"margin"`
	Unopposed     bool      `json:"unopposed"`
}

// IsRoot reports whether this action is a tree root.
func (s *SkirmishAction) IsRoot() bool { return s.ParentID == 0 }

// Buff internal keys.
const (
	BuffFirstStrike = "first_strike"
	BuffFortified   = "fortified"
	BuffOTD         = "otd"
)

// Buff is a named, optionally-expiring modifier attached to a region
// or a skirmish action. The same internal key never occurs twice on
// one target.
type Buff struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Internal   string    `json:"internal"`
	Value      float64   `json:"value"`
	ExpiresAt  time.Time `json:"expires_at"` // zero = never
	RegionID   int64     `json:"region_id"`  // 0 when attached to a skirmish
	SkirmishID int64     `json:"skirmish_id"`
}

// FirstStrikeBuff rewards early battle participation.
func FirstStrikeBuff() *Buff {
	return &Buff{Name: "Fortune Favors the Brave", Internal: BuffFirstStrike, Value: 0.25}
}

// FortifiedBuff prevents invasion of a successfully defended region.
func FortifiedBuff(expires time.Time) *Buff {
	return &Buff{Name: "Fortified", Internal: BuffFortified, ExpiresAt: expires}
}

// OTDBuff ("On the Defensive") grants bonus VP to a region's new owner.
func OTDBuff(expires time.Time) *Buff {
	return &Buff{Name: "On the Defensive", Internal: BuffOTD, Value: 0.1, ExpiresAt: expires}
}

// Codeword is a player-private alias for a troop type or region name.
type Codeword struct {
	ID       int64  `json:"id"`
	PlayerID int64  `json:"player_id"`
	Code     string `json:"code"`
	Word     string `json:"word"`
}

// Processed marks an externally-originated message id as handled so
// at-least-once delivery from the host yields at-most-once effects.
type Processed struct {
	ID        int64  `json:"id"`
	BattleID  int64  `json:"battle_id"` // 0 for inbox messages
	MessageID string `json:"message_id"`
}
