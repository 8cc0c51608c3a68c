// Package chroma implements the pure rules of the two-faction
// territorial game: the world graph with faction-aware pathfinding,
// the recursive skirmish-tree resolution, and battle scoring. It holds
// no state of its own; callers load snapshots from the world store,
// resolve, and persist the results.
package chroma

// NoTeam marks neutral ownership and tied outcomes.
const NoTeam = -1

// TroopType is one of the three unit types in the matchup ring.
type TroopType string

const (
	Infantry TroopType = "infantry"
	Cavalry  TroopType = "cavalry"
	Ranged   TroopType = "ranged"
)

// troopAliases corrects common misspellings before canonicalization.
var troopAliases = map[string]TroopType{
	"infantry": Infantry,
	"cavalry":  Cavalry,
	"ranged":   Ranged,
	"calvary":  Cavalry,
	"calvalry": Cavalry,
	"range":    Ranged,
}

// CanonicalTroopType resolves aliases and defaults unrecognized values
// to infantry.
func CanonicalTroopType(s string) TroopType {
	if t, ok := troopAliases[s]; ok {
		return t
	}
	return Infantry
}

// IsTroopType reports whether s names a troop type, aliases included.
func IsTroopType(s string) bool {
	_, ok := troopAliases[s]
	return ok
}

// Matchup rings. A defender of type ring[i] takes half effect from
// ring[i-1] and 1.5x effect from ring[i+1]; the attack and support
// rings run in opposite directions.
var (
	attackRing  = [3]TroopType{Ranged, Infantry, Cavalry}
	supportRing = [3]TroopType{Cavalry, Infantry, Ranged}
)

// AdjustedForType scales amount by the matchup of other against a
// defender of type def. Support contributions use the reversed ring.
func AdjustedForType(def, other TroopType, amount int, support bool) int {
	ring := attackRing
	if support {
		ring = supportRing
	}
	i := ringIndex(ring, def)
	penalty := ring[(i+2)%3]
	bonus := ring[(i+1)%3]
	switch other {
	case penalty:
		return amount / 2
	case bonus:
		return amount * 3 / 2
	}
	return amount
}

func ringIndex(ring [3]TroopType, t TroopType) int {
	for i, r := range ring {
		if r == t {
			return i
		}
	}
	return 1 // infantry sits at index 1 in both rings
}
