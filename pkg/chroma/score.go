package chroma

// ScoreInput gathers everything battle scoring needs besides the
// skirmish forest itself.
type ScoreInput struct {
	Roots []*Skirmish // resolved via ResolveRoot

	// Region buffs credit the current owner.
	Owner      int
	BuffValues []float64

	// Homeland defense. Percents come from config as fractions; each
	// team's entry in CapitalDistance is the hop count from its
	// capital to the contested region, -1 when unreachable.
	HomelandPercents []float64
	CapitalDistance  [2]int
}

// Result is the outcome of scoring one battle.
type Result struct {
	Score       [2]int
	Victor      int        // team or NoTeam on a tie
	HomelandPct [2]float64 // applied bonus, for reporting
}

// Score totals victory points across the skirmish forest, applies
// region buffs and homeland defense, and picks a victor.
func Score(in ScoreInput) Result {
	var res Result
	res.Victor = NoTeam

	for _, root := range in.Roots {
		if root.Victor == NoTeam {
			continue
		}
		res.Score[root.Victor] += root.VP
	}

	if in.Owner != NoTeam {
		for _, v := range in.BuffValues {
			res.Score[in.Owner] += int(float64(res.Score[in.Owner]) * v)
		}
	}

	if len(in.HomelandPercents) > 0 {
		for team := 0; team < 2; team++ {
			pct, ok := homelandPercent(in.HomelandPercents, in.CapitalDistance[team])
			if !ok {
				continue
			}
			res.HomelandPct[team] = pct
			res.Score[team] += int(float64(res.Score[team]) * pct)
		}
	}

	switch {
	case res.Score[0] > res.Score[1]:
		res.Victor = 0
	case res.Score[1] > res.Score[0]:
		res.Victor = 1
	}
	return res
}

// homelandPercent picks the bonus for a capital dist hops away. The
// capital itself and its direct neighbors both get the first entry;
// farther regions walk down the list until it runs out.
func homelandPercent(percents []float64, dist int) (float64, bool) {
	if dist < 0 {
		return 0, false
	}
	idx := dist
	if idx > 0 {
		idx--
	}
	if idx >= len(percents) {
		return 0, false
	}
	return percents[idx], true
}
