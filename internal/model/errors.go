package model

import (
	"fmt"
	"time"
)

// ErrorKind is the closed set of game-rule failures. Every engine
// operation that refuses a command returns a *GameError carrying one
// of these; the interpreter maps each kind to a user-visible message.
type ErrorKind int

const (
	// ErrInsufficient - not enough loyalists, or a non-positive argument.
	ErrInsufficient ErrorKind = iota
	// ErrTooMany - child skirmish exceeds the root's amount.
	ErrTooMany
	// ErrNonAdjacent - movement or invasion topology violation.
	ErrNonAdjacent
	// ErrNotPresent - acting in a region you are not in.
	ErrNotPresent
	// ErrInProgress - a conflicting live operation exists.
	ErrInProgress
	// ErrTeam - crossing or aiding team lines illegally.
	ErrTeam
	// ErrTiming - a normally valid action at the wrong time.
	ErrTiming
	// ErrRank - a leader-only action attempted by a non-leader.
	ErrRank
	// ErrDisabled - feature turned off by config.
	ErrDisabled
	// ErrNoSuchSector - sector index out of range.
	ErrNoSuchSector
	// ErrWrongSector - acting from the wrong sector.
	ErrWrongSector
)

// Conflicting-operation markers for GameError.Conflict.
type ConflictKind int

const (
	ConflictNone ConflictKind = iota
	ConflictMove
	ConflictBattle
	ConflictSkirmish
)

// TimingSoon / TimingLate distinguish too-early from too-late.
const (
	TimingSoon = "soon"
	TimingLate = "late"
)

// GameError is the error-as-data variant produced by engine operations.
// Only the fields relevant to its Kind are populated.
type GameError struct {
	Kind ErrorKind

	Requested int    // Insufficient, TooMany, NoSuchSector, WrongSector
	Available int    // Insufficient
	Max       int    // TooMany, NoSuchSector
	OfWhat    string // Insufficient, TooMany

	Src  string // NonAdjacent
	Dest string // NonAdjacent, Team

	NeedToBe   string // NotPresent
	ActuallyAm string // NotPresent, WrongSector (sector in Requested/Max)

	Conflict ConflictKind // InProgress
	Friendly bool         // Team

	Side     string    // Timing: TimingSoon or TimingLate
	Expected time.Time // Timing: when the action becomes valid, if known

	Feature string // Disabled
}

func (e *GameError) Error() string {
	switch e.Kind {
	case ErrInsufficient:
		return fmt.Sprintf("insufficient %s: needed %d but only had %d", e.OfWhat, e.Requested, e.Available)
	case ErrTooMany:
		return fmt.Sprintf("too many %s: wanted %d but %d in play", e.OfWhat, e.Requested, e.Max)
	case ErrNonAdjacent:
		return fmt.Sprintf("%s and %s are not adjacent", e.Src, e.Dest)
	case ErrNotPresent:
		return fmt.Sprintf("need to be in %s, but am in %s", e.NeedToBe, e.ActuallyAm)
	case ErrInProgress:
		return "already doing that"
	case ErrTeam:
		if e.Friendly {
			return fmt.Sprintf("%s is friendly", e.Dest)
		}
		return fmt.Sprintf("%s is not friendly", e.Dest)
	case ErrTiming:
		return "too " + e.Side
	case ErrRank:
		return "insufficient rank"
	case ErrDisabled:
		return e.Feature + " is disabled"
	case ErrNoSuchSector:
		return fmt.Sprintf("no sector %d: must be between 0 and %d", e.Requested, e.Max)
	case ErrWrongSector:
		return fmt.Sprintf("must be in sector %d, but am in sector %d", e.Max, e.Requested)
	}
	return "game error"
}

// Constructors mirror the operations' failure modes.

func Insufficient(requested, available int, ofWhat string) *GameError {
	return &GameError{Kind: ErrInsufficient, Requested: requested, Available: available, OfWhat: ofWhat}
}

func TooMany(requested, max int, ofWhat string) *GameError {
	return &GameError{Kind: ErrTooMany, Requested: requested, Max: max, OfWhat: ofWhat}
}

func NonAdjacent(src, dest string) *GameError {
	return &GameError{Kind: ErrNonAdjacent, Src: src, Dest: dest}
}

func NotPresent(needToBe, actuallyAm string) *GameError {
	return &GameError{Kind: ErrNotPresent, NeedToBe: needToBe, ActuallyAm: actuallyAm}
}

func InProgress(conflict ConflictKind) *GameError {
	return &GameError{Kind: ErrInProgress, Conflict: conflict}
}

func TeamError(dest string, friendly bool) *GameError {
	return &GameError{Kind: ErrTeam, Dest: dest, Friendly: friendly}
}

func Timing(side string) *GameError {
	return &GameError{Kind: ErrTiming, Side: side}
}

func TimingUntil(side string, expected time.Time) *GameError {
	return &GameError{Kind: ErrTiming, Side: side, Expected: expected}
}

func RankError() *GameError {
	return &GameError{Kind: ErrRank}
}

func Disabled(feature string) *GameError {
	return &GameError{Kind: ErrDisabled, Feature: feature}
}

func NoSuchSector(specified, highest int) *GameError {
	return &GameError{Kind: ErrNoSuchSector, Requested: specified, Max: highest}
}

func WrongSector(specified, needed int) *GameError {
	return &GameError{Kind: ErrWrongSector, Requested: specified, Max: needed}
}
