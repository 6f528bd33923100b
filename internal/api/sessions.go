package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/susu3304/chipledger/internal/ledger"
	"github.com/susu3304/chipledger/internal/poker"
)

// session loads the session in the route and checks the caller owns its
// group. On failure the response is already written.
func (a *API) session(w http.ResponseWriter, r *http.Request) (*ledger.GameSession, bool) {
	claims := claimsFrom(r)
	s, err := a.svc.SessionForUser(r.Context(), claims.UserID, mux.Vars(r)["session_id"])
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return s, true
}

func (a *API) handleListSessions(w http.ResponseWriter, r *http.Request) {
	g, ok := a.group(w, r)
	if !ok {
		return
	}
	sessions, err := a.svc.Sessions(r.Context(), g.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []ledger.GameSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (a *API) handleStartSession(w http.ResponseWriter, r *http.Request) {
	g, ok := a.group(w, r)
	if !ok {
		return
	}
	var req struct {
		ChipValue json.Number `json:"chip_value"`
		Players   []struct {
			PlayerID string      `json:"player_id"`
			BuyIn    json.Number `json:"buy_in"`
		} `json:"players"`
	}
	if !decodeBody(r, &req) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var chipValue *ledger.Cents
	if req.ChipValue != "" {
		v, err := ledger.ParseAmount(req.ChipValue.String())
		if err != nil {
			writeError(w, r, err)
			return
		}
		chipValue = &v
	}
	seats := make([]poker.Seat, 0, len(req.Players))
	for _, p := range req.Players {
		buyIn, err := ledger.ParseQuantity(p.BuyIn.String(), chipValue)
		if err != nil {
			writeError(w, r, err)
			return
		}
		seats = append(seats, poker.Seat{PlayerID: p.PlayerID, BuyIn: buyIn})
	}

	s, err := a.svc.StartSession(r.Context(), g.ID, seats, chipValue)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (a *API) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req struct {
		PlayerID string      `json:"player_id"`
		BuyIn    json.Number `json:"buy_in"`
	}
	if !decodeBody(r, &req) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	buyIn, err := ledger.ParseQuantity(req.BuyIn.String(), s.ChipValue)
	if err != nil {
		writeError(w, r, err)
		return
	}
	next, err := a.svc.JoinSession(r.Context(), s.ID, req.PlayerID, buyIn)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

func (a *API) handleRecord(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Type   ledger.TxType `json:"type"`
		From   string        `json:"from"`
		To     string        `json:"to"`
		Amount json.Number   `json:"amount"`
	}
	if !decodeBody(r, &req) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	amount, err := ledger.ParseQuantity(req.Amount.String(), s.ChipValue)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := a.svc.Record(r.Context(), s.ID, req.Type, req.From, req.To, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (a *API) handleRemoveTransaction(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	if err := a.svc.RemoveTransaction(r.Context(), s.ID, mux.Vars(r)["tx_id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "transaction removed"})
}

func (a *API) handleSetChips(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Chips json.Number `json:"chips"`
	}
	if !decodeBody(r, &req) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	chips, err := ledger.ParseQuantity(req.Chips.String(), s.ChipValue)
	if err != nil {
		writeError(w, r, err)
		return
	}
	playerID := mux.Vars(r)["player_id"]
	if err := a.svc.SetFinalChips(r.Context(), s.ID, playerID, chips); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"player_id": playerID, "final_chips": chips})
}

func (a *API) handleFinish(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Force bool `json:"force"`
	}
	// An empty body means no options.
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	report, err := a.svc.Finish(r.Context(), s.ID, req.Force)
	if errors.Is(err, poker.ErrDiscrepancy) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":  err.Error(),
			"report": report,
		})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleReopen(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	if err := a.svc.Reopen(r.Context(), s.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "session reopened"})
}

func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	report, err := a.svc.Report(r.Context(), s.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handlePayouts(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	plan, err := a.svc.PayoutPlan(r.Context(), s.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (a *API) handlePaid(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req struct {
		PayerID string      `json:"payer_id"`
		PayeeID string      `json:"payee_id"`
		Amount  json.Number `json:"amount"`
		Memo    string      `json:"memo"`
	}
	if !decodeBody(r, &req) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	amount, err := ledger.ParseAmount(req.Amount.String())
	if err != nil {
		writeError(w, r, err)
		return
	}
	remaining, err := a.svc.RecordPayment(r.Context(), s.ID, req.PayerID, req.PayeeID, amount, req.Memo, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"remaining": remaining})
}
