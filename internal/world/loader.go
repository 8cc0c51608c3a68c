// Package world loads and patches the region map from JSON land files.
package world

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/atiaxi/chromabot/internal/model"
	"github.com/atiaxi/chromabot/internal/repository"
)

// RegionDef is one entry of a land file.
type RegionDef struct {
	Name             string   `json:"name"`
	SRName           string   `json:"srname"`
	Capital          *int     `json:"capital,omitempty"`
	Owner            *int     `json:"owner,omitempty"`
	Eternal          bool     `json:"eternal,omitempty"`
	TravelMultiplier *float64 `json:"travel_multiplier,omitempty"`
	Connections      []string `json:"connections"`
	Aliases          []string `json:"aliases,omitempty"`
}

// Loader creates and patches the world map.
type Loader struct {
	regions repository.RegionRepo
}

// NewLoader creates a Loader.
func NewLoader(regions repository.RegionRepo) *Loader {
	return &Loader{regions: regions}
}

// LoadFile parses a land file.
func LoadFile(path string) ([]RegionDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read land file: %w", err)
	}
	var defs []RegionDef
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse land file %s: %w", path, err)
	}
	return defs, nil
}

// Bootstrap creates the whole world from defs. The map must be empty.
func (l *Loader) Bootstrap(ctx context.Context, defs []RegionDef) error {
	existing, err := l.regions.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return fmt.Errorf("world already has %d regions, use patch instead", len(existing))
	}
	return l.Patch(ctx, defs)
}

// Patch brings the world up to date with defs: it creates missing
// regions, missing connections, and missing aliases. It never removes
// or rewrites anything already present.
func (l *Loader) Patch(ctx context.Context, defs []RegionDef) error {
	// Regions and aliases first, connections once everything exists.
	for _, def := range defs {
		name := strings.ToLower(def.Name)
		r, err := l.regions.FindByName(ctx, name)
		if err != nil {
			return err
		}
		if r == nil {
			r = regionFromDef(&def)
			if err := l.regions.Create(ctx, r); err != nil {
				return err
			}
			log.Info().Str("region", r.Name).Msg("Created region")
		}
		if len(def.Aliases) > 0 {
			aliases := make([]string, 0, len(def.Aliases))
			for _, a := range def.Aliases {
				aliases = append(aliases, strings.ToLower(a))
			}
			if err := l.regions.SetAliases(ctx, r.ID, aliases); err != nil {
				return err
			}
		}
	}

	for _, def := range defs {
		r, err := l.regions.FindByName(ctx, strings.ToLower(def.Name))
		if err != nil {
			return err
		}
		for _, adjacent := range def.Connections {
			adj, err := l.regions.FindByName(ctx, strings.ToLower(adjacent))
			if err != nil {
				return err
			}
			if adj == nil {
				return fmt.Errorf("could not locate region %s", adjacent)
			}
			if err := l.regions.AddBorder(ctx, r.ID, adj.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func regionFromDef(def *RegionDef) *model.Region {
	r := &model.Region{
		Name:             strings.ToLower(def.Name),
		SRName:           strings.ToLower(def.SRName),
		Owner:            model.TeamNone,
		CapitalOf:        model.TeamNone,
		Eternal:          def.Eternal,
		TravelMultiplier: 1.0,
	}
	if def.TravelMultiplier != nil {
		r.TravelMultiplier = *def.TravelMultiplier
	}
	if def.Capital != nil {
		r.CapitalOf = *def.Capital
		r.Owner = *def.Capital
	}
	if def.Owner != nil {
		r.Owner = *def.Owner
	}
	return r
}
