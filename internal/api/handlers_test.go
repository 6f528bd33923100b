package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/susu3304/chipledger/internal/config"
	"github.com/susu3304/chipledger/internal/ledger"
	"github.com/susu3304/chipledger/internal/memstore"
	"github.com/susu3304/chipledger/internal/poker"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	api     *API
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{JWTSecret: "test-secret", WebBind: "127.0.0.1:0"}
	a := New(cfg, poker.NewService(memstore.New(), time.Hour))
	return &testServer{t: t, handler: a.Handler(), api: a}
}

func (s *testServer) token(userID string) string {
	s.t.Helper()
	tok, err := s.api.issueToken(userID, userID)
	if err != nil {
		s.t.Fatalf("issueToken: %v", err)
	}
	return tok
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

// decode checks the status and unmarshals the body into v.
func decode(t *testing.T, w *httptest.ResponseRecorder, status int, v interface{}) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, status, w.Body.String())
	}
	if v != nil {
		if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
			t.Fatalf("decode %s: %v", w.Body.String(), err)
		}
	}
}

// setup creates a group with Alice and Bob seated for 400 chips of 0.25 each.
func setup(t *testing.T, s *testServer, tok string) (groupID, aliceID, bobID, sessionID string) {
	t.Helper()
	var g struct {
		ID string `json:"id"`
	}
	decode(t, s.do("POST", "/api/groups", tok, `{"name":"Friday game"}`), http.StatusCreated, &g)

	var ids []string
	for _, name := range []string{"Alice", "Bob"} {
		var p ledger.Player
		decode(t, s.do("POST", "/api/groups/"+g.ID+"/players", tok, `{"name":"`+name+`"}`), http.StatusCreated, &p)
		ids = append(ids, p.ID)
	}

	var session ledger.GameSession
	body := `{"chip_value":"0.25","players":[{"player_id":"` + ids[0] + `","buy_in":400},{"player_id":"` + ids[1] + `","buy_in":"400"}]}`
	decode(t, s.do("POST", "/api/groups/"+g.ID+"/sessions", tok, body), http.StatusCreated, &session)
	if len(session.Transactions) != 2 || session.Transactions[0].Amount != 10000 {
		t.Fatalf("session = %+v", session)
	}
	return g.ID, ids[0], ids[1], session.ID
}

func TestHealthAndAuth(t *testing.T) {
	s := newTestServer(t)

	decode(t, s.do("GET", "/api/health", "", ""), http.StatusOK, nil)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"bad token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/groups", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			s.handler.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}

	var groups []json.RawMessage
	decode(t, s.do("GET", "/api/groups", s.token("u1"), ""), http.StatusOK, &groups)
	if len(groups) != 0 {
		t.Errorf("groups = %v, want empty", groups)
	}
}

func TestSessionFlow(t *testing.T) {
	s := newTestServer(t)
	tok := s.token("u1")
	groupID, aliceID, bobID, sessionID := setup(t, s, tok)
	base := "/api/sessions/" + sessionID

	// Bob borrows 40 chips from Alice.
	var tx ledger.Transaction
	decode(t, s.do("POST", base+"/transactions", tok,
		`{"type":"TRANSFER","from":"`+aliceID+`","to":"`+bobID+`","amount":"40"}`), http.StatusCreated, &tx)
	if tx.Amount != 1000 {
		t.Errorf("transfer amount = %d, want 1000", tx.Amount)
	}

	decode(t, s.do("PUT", base+"/players/"+aliceID+"/chips", tok, `{"chips":"600"}`), http.StatusOK, nil)
	decode(t, s.do("PUT", base+"/players/"+bobID+"/chips", tok, `{"chips":200}`), http.StatusOK, nil)

	var report ledger.GameSettlementReport
	decode(t, s.do("GET", base+"/report", tok, ""), http.StatusOK, &report)
	if report.TotalBuyIn != 20000 || report.TotalChips != 20000 || report.Discrepancy != 0 {
		t.Errorf("report = %+v", report)
	}

	decode(t, s.do("POST", base+"/finish", tok, ""), http.StatusOK, &report)
	if row, _ := report.Player(aliceID); row.NetProfit != 6000 {
		t.Errorf("alice profit = %d, want 6000", row.NetProfit)
	}

	var plan poker.Plan
	decode(t, s.do("GET", base+"/payouts", tok, ""), http.StatusOK, &plan)
	if len(plan.Payouts) != 1 || plan.Payouts[0] != (ledger.Payout{From: bobID, To: aliceID, Amount: 6000}) {
		t.Errorf("payouts = %+v", plan.Payouts)
	}
	if len(plan.Pending) != 1 {
		t.Errorf("pending = %+v", plan.Pending)
	}

	var paid struct {
		Remaining int64 `json:"remaining"`
	}
	decode(t, s.do("POST", base+"/payouts/paid", tok,
		`{"payer_id":"`+bobID+`","payee_id":"`+aliceID+`","amount":"25.50"}`), http.StatusOK, &paid)
	if paid.Remaining != 3450 {
		t.Errorf("remaining = %d, want 3450", paid.Remaining)
	}

	var stats poker.Stats
	decode(t, s.do("GET", "/api/groups/"+groupID+"/players/"+bobID+"/stats", tok, ""), http.StatusOK, &stats)
	if stats.Stats.GamesPlayed != 1 || stats.Stats.NetProfit != -6000 || stats.Stats.TotalBorrowed != 1000 {
		t.Errorf("stats = %+v", stats.Stats)
	}

	// Closed sessions reject new money until reopened.
	buyIn := `{"type":"BUY_IN","from":"BANK","to":"` + bobID + `","amount":"100"}`
	decode(t, s.do("POST", base+"/transactions", tok, buyIn), http.StatusConflict, nil)
	decode(t, s.do("POST", base+"/reopen", tok, ""), http.StatusOK, nil)
	decode(t, s.do("POST", base+"/transactions", tok, buyIn), http.StatusCreated, &tx)
	decode(t, s.do("DELETE", base+"/transactions/"+tx.ID, tok, ""), http.StatusOK, nil)
	decode(t, s.do("DELETE", base+"/transactions/"+tx.ID, tok, ""), http.StatusNotFound, nil)
}

func TestFinishDiscrepancy(t *testing.T) {
	s := newTestServer(t)
	tok := s.token("u1")
	_, aliceID, bobID, sessionID := setup(t, s, tok)
	base := "/api/sessions/" + sessionID

	decode(t, s.do("PUT", base+"/players/"+aliceID+"/chips", tok, `{"chips":"500"}`), http.StatusOK, nil)
	decode(t, s.do("PUT", base+"/players/"+bobID+"/chips", tok, `{"chips":"260"}`), http.StatusOK, nil)

	var conflict struct {
		Error  string                      `json:"error"`
		Report ledger.GameSettlementReport `json:"report"`
	}
	decode(t, s.do("POST", base+"/finish", tok, ""), http.StatusConflict, &conflict)
	if conflict.Report.Discrepancy != -1000 || conflict.Error == "" {
		t.Errorf("conflict = %+v", conflict)
	}

	decode(t, s.do("POST", base+"/finish", tok, `{"force":true}`), http.StatusOK, nil)

	var plan poker.Plan
	decode(t, s.do("GET", base+"/payouts", tok, ""), http.StatusOK, &plan)
	if plan.Discrepancy != -1000 || plan.Unsettled[bobID] != -1000 {
		t.Errorf("plan = %+v", plan)
	}
}

func TestFinishBody(t *testing.T) {
	s := newTestServer(t)
	tok := s.token("u1")
	_, aliceID, bobID, sessionID := setup(t, s, tok)
	base := "/api/sessions/" + sessionID

	decode(t, s.do("PUT", base+"/players/"+aliceID+"/chips", tok, `{"chips":"500"}`), http.StatusOK, nil)
	decode(t, s.do("PUT", base+"/players/"+bobID+"/chips", tok, `{"chips":"300"}`), http.StatusOK, nil)
	decode(t, s.do("POST", base+"/finish", tok, `{"force":`), http.StatusBadRequest, nil)

	// A chunked request has an unknown length even when its body is empty.
	req := httptest.NewRequest("POST", base+"/finish", io.NopCloser(strings.NewReader("")))
	req.Header.Set("Authorization", "Bearer "+tok)
	if req.ContentLength != -1 {
		t.Fatalf("ContentLength = %d, want -1", req.ContentLength)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	var report ledger.GameSettlementReport
	decode(t, w, http.StatusOK, &report)
	if !report.Balanced() {
		t.Errorf("report = %+v", report)
	}
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t)
	tok := s.token("u1")
	groupID, aliceID, _, sessionID := setup(t, s, tok)
	base := "/api/sessions/" + sessionID

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		status int
	}{
		{"other user group", "GET", "/api/groups/" + groupID + "/players", s.token("u2"), "", http.StatusForbidden},
		{"other user session", "GET", base, s.token("u2"), "", http.StatusForbidden},
		{"unknown session", "GET", "/api/sessions/nope", tok, "", http.StatusNotFound},
		{"unknown group", "GET", "/api/groups/nope/sessions", tok, "", http.StatusNotFound},
		{"malformed body", "POST", base + "/transactions", tok, `{`, http.StatusBadRequest},
		{"malformed amount", "POST", base + "/transactions", tok, `{"type":"BUY_IN","from":"BANK","to":"` + aliceID + `","amount":"ten"}`, http.StatusBadRequest},
		{"negative amount", "POST", base + "/transactions", tok, `{"type":"BUY_IN","from":"BANK","to":"` + aliceID + `","amount":"-5"}`, http.StatusBadRequest},
		{"amount too large", "POST", base + "/transactions", tok, `{"type":"BUY_IN","from":"BANK","to":"` + aliceID + `","amount":"92233720368547758.08"}`, http.StatusBadRequest},
		{"chip count too large", "PUT", base + "/players/" + aliceID + "/chips", tok, `{"chips":1e14}`, http.StatusBadRequest},
		{"self transfer", "POST", base + "/transactions", tok, `{"type":"TRANSFER","from":"` + aliceID + `","to":"` + aliceID + `","amount":"5"}`, http.StatusBadRequest},
		{"unknown player", "POST", base + "/transactions", tok, `{"type":"BUY_IN","from":"BANK","to":"ghost","amount":"5"}`, http.StatusBadRequest},
		{"unknown type", "POST", base + "/transactions", tok, `{"type":"REBUY","from":"BANK","to":"` + aliceID + `","amount":"5"}`, http.StatusBadRequest},
		{"duplicate join", "POST", base + "/players", tok, `{"player_id":"` + aliceID + `"}`, http.StatusConflict},
		{"duplicate player name", "POST", "/api/groups/" + groupID + "/players", tok, `{"name":"Alice"}`, http.StatusConflict},
		{"blank group name", "POST", "/api/groups", tok, `{"name":" "}`, http.StatusBadRequest},
		{"payment without tasks", "POST", base + "/payouts/paid", tok, `{"payer_id":"` + aliceID + `","payee_id":"x","amount":"1"}`, http.StatusNotFound},
		{"zero payment", "POST", base + "/payouts/paid", tok, `{"payer_id":"` + aliceID + `","payee_id":"x","amount":"0"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.token, tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.status, w.Body.String())
			}
		})
	}
}
