package chroma

// Skirmish is a node in a battle's resolution tree. Leaves feed their
// parents with type-adjusted sums; roots aggregate victory points.
type Skirmish struct {
	ID        int64
	Team      int // participant's team
	Amount    int
	TroopType TroopType
	Hinder    bool    // true when opposing the parent's participant
	BuffValue float64 // sum of attached buff values
	Children  []*Skirmish

	// Outcome, valid once Resolved.
	Resolved  bool
	Victor    int // team or NoTeam on a tie
	VP        int
	Margin    int
	Unopposed bool
}

// AdjustedAmount is the declared amount scaled by attached buffs.
func (s *Skirmish) AdjustedAmount() int {
	return int(float64(s.Amount) + s.BuffValue*float64(s.Amount))
}

// Root follows parent links upward. The tree is resolved from roots,
// so Root is only meaningful on loaded forests; see BuildForest.
func (s *Skirmish) Root(parentOf map[int64]*Skirmish) *Skirmish {
	cur := s
	for {
		p, ok := parentOf[cur.ID]
		if !ok || p == nil {
			return cur
		}
		cur = p
	}
}

// Resolve scores the subtree rooted at s. Idempotent: a resolved node
// keeps its recorded outcome.
func (s *Skirmish) Resolve() *Skirmish {
	if s.Resolved {
		return s
	}

	s.Victor = s.Team
	s.VP = 0
	s.Margin = s.AdjustedAmount()
	cap := s.Margin
	s.Unopposed = true

	if len(s.Children) > 0 {
		rawSupport := s.Amount
		support := s.Margin
		rawAttack := 0
		attack := 0

		for _, child := range s.Children {
			child.Resolve()
			if child.Hinder {
				// Attacks only count if our side didn't beat them.
				if child.Victor != s.Team {
					rawAttack += child.Margin
					attack += AdjustedForType(s.TroopType, child.TroopType, child.Margin, false)
				}
			} else {
				// Support only counts if it wasn't ambushed on the way.
				if child.Victor == s.Team {
					rawSupport += child.Margin
					support += AdjustedForType(s.TroopType, child.TroopType, child.Margin, true)
				}
			}
		}

		s.Unopposed = attack == 0

		switch {
		case attack > support:
			s.Margin = attack - support
			s.Victor = oppositeOf(s.Team)
			s.VP += rawSupport
		case support > attack:
			s.Margin = support - attack
			s.Victor = s.Team
			s.VP += rawAttack
		default:
			s.Victor = NoTeam
			s.Margin = 0
			s.VP += max(rawAttack, rawSupport)
		}
	}

	// Support nodes can't supply more than their declared strength.
	if !s.Hinder {
		s.Margin = min(s.Margin, cap)
	}
	s.Resolved = true
	return s
}

// ResolveRoot resolves the whole tree and folds the subtree VP of the
// winning team into the root. Unopposed roots are worth double.
func (s *Skirmish) ResolveRoot() *Skirmish {
	if s.Resolved {
		return s
	}
	s.Resolve()
	s.VP = s.vpForTeam(s.Victor)
	if s.Unopposed {
		s.VP = max(s.VP*2, s.Amount*2)
	}
	return s
}

// vpForTeam sums the VP this subtree provides for the given team.
func (s *Skirmish) vpForTeam(team int) int {
	if team == NoTeam {
		return 0
	}
	total := 0
	for _, child := range s.Children {
		total += child.vpForTeam(team)
	}
	if s.Victor == team {
		total += s.VP
	}
	return total
}

func oppositeOf(team int) int {
	if team == 0 {
		return 1
	}
	return 0
}
