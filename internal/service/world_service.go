// Package service implements the game engine: recruitment, movement,
// battles, the world tick, command interpretation, and reporting.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atiaxi/chromabot/internal/model"
	"github.com/atiaxi/chromabot/internal/repository"
	"github.com/atiaxi/chromabot/pkg/chroma"
)

// WorldService answers map questions: lookups, graphs, paths.
type WorldService struct {
	regions   repository.RegionRepo
	battles   repository.BattleRepo
	codewords repository.CodewordRepo
}

// NewWorldService creates a WorldService.
func NewWorldService(regions repository.RegionRepo, battles repository.BattleRepo, codewords repository.CodewordRepo) *WorldService {
	return &WorldService{regions: regions, battles: battles, codewords: codewords}
}

// FindRegion resolves a player-supplied name: codewords first, then
// canonical names, board names, and aliases. Nil when unknown.
func (s *WorldService) FindRegion(ctx context.Context, playerID int64, name string) (*model.Region, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if playerID != 0 {
		translated, err := s.TranslateCodeword(ctx, playerID, name)
		if err != nil {
			return nil, err
		}
		name = translated
	}
	return s.regions.FindByName(ctx, name)
}

// TranslateCodeword maps a player's private code to its meaning, or
// returns the word unchanged.
func (s *WorldService) TranslateCodeword(ctx context.Context, playerID int64, word string) (string, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	cw, err := s.codewords.Lookup(ctx, playerID, word)
	if err != nil {
		return "", err
	}
	if cw == nil {
		return word, nil
	}
	return cw.Word, nil
}

// Graph snapshots the world map for pathfinding.
func (s *WorldService) Graph(ctx context.Context) (*chroma.Graph, error) {
	regions, err := s.regions.List(ctx)
	if err != nil {
		return nil, err
	}
	g := chroma.NewGraph()
	for i := range regions {
		r := &regions[i]
		battle, err := s.battles.FindByRegion(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		g.Add(&chroma.Node{
			ID:               r.ID,
			Name:             r.Name,
			Owner:            r.Owner,
			HasBattle:        battle != nil,
			TravelMultiplier: r.TravelMultiplier,
		})
	}
	for i := range regions {
		for _, b := range regions[i].Borders {
			g.AddBorder(regions[i].ID, b)
		}
	}
	return g, nil
}

// CapitalFor returns a team's capital. Every deployed map has one per
// team; a missing capital is a world-definition error.
func (s *WorldService) CapitalFor(ctx context.Context, team int) (*model.Region, error) {
	cap, err := s.regions.CapitalFor(ctx, team)
	if err != nil {
		return nil, err
	}
	if cap == nil {
		return nil, fmt.Errorf("no capital defined for team %d", team)
	}
	return cap, nil
}

// timestr renders a deadline the way players see it everywhere.
func timestr(t time.Time) string {
	if t.IsZero() {
		return "eternity"
	}
	return t.UTC().Format("15:04 UTC on Jan 2, 2006")
}
