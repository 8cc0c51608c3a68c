package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/atiaxi/chromabot/internal/config"
	"github.com/atiaxi/chromabot/internal/model"
	"github.com/atiaxi/chromabot/internal/repository"
)

// StatusHandler serves the read-only world state.
type StatusHandler struct {
	regions repository.RegionRepo
	players repository.PlayerRepo
	battles repository.BattleRepo
	buffs   repository.BuffRepo
	game    *config.Game
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(regions repository.RegionRepo, players repository.PlayerRepo,
	battles repository.BattleRepo, buffs repository.BuffRepo, game *config.Game) *StatusHandler {
	return &StatusHandler{regions: regions, players: players, battles: battles,
		buffs: buffs, game: game}
}

type regionStatus struct {
	Name      string   `json:"name"`
	SRName    string   `json:"srname"`
	Owner     string   `json:"owner"`
	CapitalOf string   `json:"capital_of,omitempty"`
	Eternal   bool     `json:"eternal,omitempty"`
	Disputed  bool     `json:"disputed"`
	Buffs     []string `json:"buffs,omitempty"`
}

// GetRegions handles GET /api/v1/regions: the world map with owners
// and disputes.
func (h *StatusHandler) GetRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.regions.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list regions")
		return
	}
	out := make([]regionStatus, 0, len(regions))
	for i := range regions {
		reg := &regions[i]
		battle, err := h.battles.FindByRegion(r.Context(), reg.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not load battles")
			return
		}
		regionBuffs, err := h.buffs.ListByRegion(r.Context(), reg.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not load buffs")
			return
		}
		rs := regionStatus{
			Name:     reg.Name,
			SRName:   reg.SRName,
			Owner:    h.game.SideName(reg.Owner),
			Eternal:  reg.Eternal,
			Disputed: battle != nil,
		}
		if reg.CapitalOf != model.TeamNone {
			rs.CapitalOf = h.game.SideName(reg.CapitalOf)
		}
		for _, b := range regionBuffs {
			rs.Buffs = append(rs.Buffs, b.Name)
		}
		out = append(out, rs)
	}
	writeJSON(w, http.StatusOK, out)
}

type battleStatus struct {
	ID            int64     `json:"id"`
	Region        string    `json:"region"`
	BeginsAt      time.Time `json:"begins_at"`
	DisplayEndsAt time.Time `json:"display_ends_at"`
	Started       bool      `json:"started"`
}

// GetBattles handles GET /api/v1/battles: scheduled and live battles.
// Real end times stay hidden; snipers read APIs too.
func (h *StatusHandler) GetBattles(w http.ResponseWriter, r *http.Request) {
	battles, err := h.battles.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list battles")
		return
	}
	now := time.Now()
	out := make([]battleStatus, 0, len(battles))
	for i := range battles {
		b := &battles[i]
		region, err := h.regions.FindByID(r.Context(), b.RegionID)
		if err != nil || region == nil {
			writeError(w, http.StatusInternalServerError, "could not load battle region")
			return
		}
		out = append(out, battleStatus{
			ID:            b.ID,
			Region:        region.Name,
			BeginsAt:      b.BeginsAt,
			DisplayEndsAt: b.DisplayEndsAt,
			Started:       b.Started(now),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type playerStatus struct {
	Name      string `json:"name"`
	Team      string `json:"team"`
	Rank      string `json:"rank"`
	Loyalists int    `json:"loyalists"`
	Committed int    `json:"committed"`
	Region    string `json:"region"`
	Sector    int    `json:"sector"`
}

// GetPlayer handles GET /api/v1/players/{name}.
func (h *StatusHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(r.PathValue("name"))
	player, err := h.players.FindByName(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load player")
		return
	}
	if player == nil {
		writeError(w, http.StatusNotFound, "no such player")
		return
	}
	region, err := h.regions.FindByID(r.Context(), player.RegionID)
	if err != nil || region == nil {
		writeError(w, http.StatusInternalServerError, "could not load player region")
		return
	}
	writeJSON(w, http.StatusOK, playerStatus{
		Name:      player.Name,
		Team:      h.game.SideName(player.Team),
		Rank:      player.Rank(),
		Loyalists: player.Loyalists,
		Committed: player.CommittedLoyalists,
		Region:    region.Name,
		Sector:    player.Sector,
	})
}
