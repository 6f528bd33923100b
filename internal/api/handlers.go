package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/susu3304/chipledger/internal/db"
)

// group loads the group in the route and checks the caller owns it. On
// failure the response is already written.
func (a *API) group(w http.ResponseWriter, r *http.Request) (*db.Group, bool) {
	claims := claimsFrom(r)
	g, err := a.svc.Group(r.Context(), claims.UserID, mux.Vars(r)["group_id"])
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return g, true
}

func (a *API) handleListGroups(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	groups, err := a.svc.Groups(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if groups == nil {
		groups = []db.Group{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (a *API) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(r, &req) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	g, err := a.svc.CreateGroup(r.Context(), claims.UserID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (a *API) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	g, ok := a.group(w, r)
	if !ok {
		return
	}
	players, err := a.svc.Players(r.Context(), g.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (a *API) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	g, ok := a.group(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(r, &req) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, err := a.svc.AddPlayer(r.Context(), g.ID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	g, ok := a.group(w, r)
	if !ok {
		return
	}
	stats, err := a.svc.PlayerStats(r.Context(), g.ID, mux.Vars(r)["player_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
