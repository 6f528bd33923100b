package ledger

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 14, 20, 0, 0, 0, time.UTC)

func chips(c Cents) *Cents { return &c }

func buyIn(id, to string, amt Cents) Transaction {
	return Transaction{ID: id, Timestamp: t0, Type: BuyIn, FromID: Bank, ToID: to, Amount: amt}
}

func transfer(id, from, to string, amt Cents) Transaction {
	return Transaction{ID: id, Timestamp: t0, Type: Transfer, FromID: from, ToID: to, Amount: amt}
}

func cashOut(id, from string, amt Cents) Transaction {
	return Transaction{ID: id, Timestamp: t0, Type: CashOut, FromID: from, ToID: Bank, Amount: amt}
}

// session builds a closed two-or-more player session one hour long.
func session(players []Player, txs []Transaction, final map[string]Cents) GameSession {
	s := NewSession("s1", "g1", t0, players, nil)
	s.Transactions = txs
	for id, c := range final {
		s.PlayerStates[id] = PlayerState{FinalChips: chips(c)}
	}
	return s.Close(t0.Add(time.Hour))
}

var p1, p2, p3 = Player{ID: "p1", Name: "Alice"}, Player{ID: "p2", Name: "Bob"}, Player{ID: "p3", Name: "Carol"}

func TestComputeSettlementScenarios(t *testing.T) {
	tests := []struct {
		name            string
		session         GameSession
		wantTotalBuyIn  Cents
		wantTotalChips  Cents
		wantDiscrepancy Cents
		wantRows        []PlayerSettlement
	}{
		{
			name: "simple buy-in and count",
			session: session([]Player{p1, p2},
				[]Transaction{buyIn("t1", "p1", 10000), buyIn("t2", "p2", 10000)},
				map[string]Cents{"p1": 15000, "p2": 5000}),
			wantTotalBuyIn:  20000,
			wantTotalChips:  20000,
			wantDiscrepancy: 0,
			wantRows: []PlayerSettlement{
				{PlayerID: "p1", Name: "Alice", TotalBuyIn: 10000, NetInvested: 10000, FinalChips: 15000, NetProfit: 5000},
				{PlayerID: "p2", Name: "Bob", TotalBuyIn: 10000, NetInvested: 10000, FinalChips: 5000, NetProfit: -5000},
			},
		},
		{
			name: "loan between players",
			session: session([]Player{p1, p2},
				[]Transaction{buyIn("t1", "p1", 10000), buyIn("t2", "p2", 10000), transfer("t3", "p1", "p2", 2000)},
				map[string]Cents{"p1": 6000, "p2": 14000}),
			wantTotalBuyIn:  20000,
			wantTotalChips:  20000,
			wantDiscrepancy: 0,
			wantRows: []PlayerSettlement{
				{PlayerID: "p2", Name: "Bob", TotalBuyIn: 10000, TransfersIn: 2000, NetInvested: 12000, FinalChips: 14000, NetProfit: 2000},
				{PlayerID: "p1", Name: "Alice", TotalBuyIn: 10000, TransfersOut: 2000, NetInvested: 8000, FinalChips: 6000, NetProfit: -2000},
			},
		},
		{
			name: "miscounted chips",
			session: session([]Player{p1, p2},
				[]Transaction{buyIn("t1", "p1", 10000), buyIn("t2", "p2", 10000)},
				map[string]Cents{"p1": 14000, "p2": 5000}),
			wantTotalBuyIn:  20000,
			wantTotalChips:  19000,
			wantDiscrepancy: -1000,
			wantRows: []PlayerSettlement{
				{PlayerID: "p1", Name: "Alice", TotalBuyIn: 10000, NetInvested: 10000, FinalChips: 14000, NetProfit: 4000},
				{PlayerID: "p2", Name: "Bob", TotalBuyIn: 10000, NetInvested: 10000, FinalChips: 5000, NetProfit: -5000},
			},
		},
		{
			name: "early cash-out reduces buy-in",
			session: session([]Player{p1, p2},
				[]Transaction{buyIn("t1", "p1", 10000), buyIn("t2", "p2", 10000), cashOut("t3", "p2", 7000)},
				map[string]Cents{"p1": 13000}),
			wantTotalBuyIn:  13000,
			wantTotalChips:  13000,
			wantDiscrepancy: 0,
			wantRows: []PlayerSettlement{
				{PlayerID: "p1", Name: "Alice", TotalBuyIn: 10000, NetInvested: 10000, FinalChips: 13000, NetProfit: 3000},
				{PlayerID: "p2", Name: "Bob", TotalBuyIn: 3000, NetInvested: 3000, FinalChips: 0, NetProfit: -3000},
			},
		},
		{
			name: "uncounted player counts as zero",
			session: session([]Player{p1, p2},
				[]Transaction{buyIn("t1", "p1", 5000), buyIn("t2", "p2", 5000)},
				map[string]Cents{"p1": 10000}),
			wantTotalBuyIn:  10000,
			wantTotalChips:  10000,
			wantDiscrepancy: 0,
			wantRows: []PlayerSettlement{
				{PlayerID: "p1", Name: "Alice", TotalBuyIn: 5000, NetInvested: 5000, FinalChips: 10000, NetProfit: 5000},
				{PlayerID: "p2", Name: "Bob", TotalBuyIn: 5000, NetInvested: 5000, FinalChips: 0, NetProfit: -5000},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ComputeSettlementAt(tt.session, t0)
			if r.TotalBuyIn != tt.wantTotalBuyIn {
				t.Errorf("TotalBuyIn = %v, want %v", r.TotalBuyIn, tt.wantTotalBuyIn)
			}
			if r.TotalChips != tt.wantTotalChips {
				t.Errorf("TotalChips = %v, want %v", r.TotalChips, tt.wantTotalChips)
			}
			if r.Discrepancy != tt.wantDiscrepancy {
				t.Errorf("Discrepancy = %v, want %v", r.Discrepancy, tt.wantDiscrepancy)
			}
			if !reflect.DeepEqual(r.Players, tt.wantRows) {
				t.Errorf("Players = %+v, want %+v", r.Players, tt.wantRows)
			}
			if r.DurationMinutes != 60 {
				t.Errorf("DurationMinutes = %d, want 60", r.DurationMinutes)
			}
		})
	}
}

func TestComputeSettlementTiesKeepRosterOrder(t *testing.T) {
	s := session([]Player{p3, p1, p2},
		[]Transaction{buyIn("t1", "p1", 1000), buyIn("t2", "p2", 1000), buyIn("t3", "p3", 1000)},
		map[string]Cents{"p1": 1000, "p2": 1000, "p3": 1000})

	r := ComputeSettlementAt(s, t0)
	var got []string
	for _, p := range r.Players {
		got = append(got, p.PlayerID)
	}
	if want := []string{"p3", "p1", "p2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestComputeSettlementIgnoresMalformedTransactions(t *testing.T) {
	base := []Transaction{buyIn("t1", "p1", 10000), buyIn("t2", "p2", 10000)}
	final := map[string]Cents{"p1": 10000, "p2": 10000}
	want := ComputeSettlementAt(session([]Player{p1, p2}, base, final), t0)

	bad := []Transaction{
		transfer("x1", "p1", "p1", 500),           // self transfer
		transfer("x2", "p1", "ghost", 500),        // unknown counterparty
		buyIn("x3", "ghost", 500),                 // unknown player
		{ID: "x4", Type: BuyIn, FromID: "p2", ToID: "p1", Amount: 500}, // buy-in not from bank
		{ID: "x5", Type: "REBUY", FromID: Bank, ToID: "p1", Amount: 500},
		{ID: "x6", Type: BuyIn, FromID: Bank, ToID: "p1", Amount: -500},
		buyIn("x7", "p1", MaxAmount+1), // too large to sum safely
	}
	got := ComputeSettlementAt(session([]Player{p1, p2}, append(base, bad...), final), t0)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("malformed transactions changed the report:\n got %+v\nwant %+v", got, want)
	}
}

func TestComputeSettlementDuration(t *testing.T) {
	s := NewSession("s1", "g1", t0, []Player{p1}, nil)

	if got := ComputeSettlementAt(s, t0.Add(90*time.Minute+59*time.Second)).DurationMinutes; got != 90 {
		t.Errorf("active duration = %d, want 90", got)
	}
	if got := ComputeSettlementAt(s, t0.Add(-time.Hour)).DurationMinutes; got != 0 {
		t.Errorf("duration before start = %d, want 0", got)
	}
	closed := s.Close(t0.Add(30 * time.Minute))
	if got := ComputeSettlementAt(closed, t0.Add(5*time.Hour)).DurationMinutes; got != 30 {
		t.Errorf("closed duration = %d, want 30", got)
	}
}

func TestComputeSettlementDoesNotMutateSession(t *testing.T) {
	s := session([]Player{p2, p1},
		[]Transaction{buyIn("t1", "p1", 100), buyIn("t2", "p2", 100)},
		map[string]Cents{"p1": 200})
	before := s.Clone()

	first := ComputeSettlementAt(s, t0)
	second := ComputeSettlementAt(s, t0)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two computations differ: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(s, before) {
		t.Errorf("session was mutated")
	}
}

func TestReopenedSessionSettlesLikeFresh(t *testing.T) {
	fresh := NewSession("s1", "g1", t0, []Player{p1, p2}, nil)
	fresh, _ = fresh.Append(buyIn("t1", "p1", 2500))
	fresh, _ = fresh.Append(buyIn("t2", "p2", 2500))
	fresh, _ = fresh.SetFinalChips("p1", 4000)

	reopened := fresh.Close(t0.Add(time.Hour)).Reopen()
	now := t0.Add(2 * time.Hour)
	if got, want := ComputeSettlementAt(reopened, now), ComputeSettlementAt(fresh, now); !reflect.DeepEqual(got, want) {
		t.Errorf("reopened = %+v, fresh = %+v", got, want)
	}
}

func TestNoOpEditRestoresReport(t *testing.T) {
	s := NewSession("s1", "g1", t0, []Player{p1, p2}, nil)
	s, _ = s.Append(buyIn("t1", "p1", 2500))
	s, _ = s.Append(buyIn("t2", "p2", 2500))
	want := ComputeSettlementAt(s, t0)

	edited, err := s.Append(transfer("t3", "p1", "p2", 1000))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	edited, err = edited.Remove("t3")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := ComputeSettlementAt(edited, t0); !reflect.DeepEqual(got, want) {
		t.Errorf("after no-op edit = %+v, want %+v", got, want)
	}
}

func TestAppendValidation(t *testing.T) {
	s := NewSession("s1", "g1", t0, []Player{p1, p2}, nil)
	tests := []struct {
		name string
		tx   Transaction
		want error
	}{
		{"self transfer", transfer("x", "p1", "p1", 100), ErrSelfTransfer},
		{"unknown player", buyIn("x", "ghost", 100), ErrUnknownPlayer},
		{"transfer via bank", transfer("x", Bank, "p1", 100), ErrInvalidEndpoints},
		{"cash-out to player", Transaction{ID: "x", Type: CashOut, FromID: "p1", ToID: "p2", Amount: 1}, ErrInvalidEndpoints},
		{"negative", buyIn("x", "p1", -1), ErrNegativeAmount},
		{"bad type", Transaction{ID: "x", Type: "RAKE", FromID: "p1", ToID: Bank}, ErrUnknownType},
		{"over the maximum", buyIn("x", "p1", MaxAmount+1), ErrInvalidAmount},
		{"valid", buyIn("x", "p1", 0), nil},
		{"maximum", buyIn("x", "p1", MaxAmount), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Append(tt.tx)
			if !errors.Is(err, tt.want) {
				t.Errorf("Append() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := s.Close(t0).Append(buyIn("x", "p1", 1)); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("append to closed session error = %v, want %v", err, ErrSessionClosed)
	}
	if len(s.Transactions) != 0 {
		t.Errorf("Append mutated the receiver")
	}
	if _, err := s.SetFinalChips("p1", MaxAmount+1); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("SetFinalChips over the maximum error = %v, want %v", err, ErrInvalidAmount)
	}
}

func TestAddPlayer(t *testing.T) {
	s := NewSession("s1", "g1", t0, []Player{p1}, nil)
	grown, err := s.AddPlayer(p2)
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if !grown.HasPlayer("p2") || s.HasPlayer("p2") {
		t.Errorf("AddPlayer should return a new roster and leave the receiver alone")
	}
	if _, err := grown.AddPlayer(p2); !errors.Is(err, ErrDuplicatePlayer) {
		t.Errorf("duplicate AddPlayer error = %v", err)
	}
	if _, err := grown.AddPlayer(Player{ID: Bank}); !errors.Is(err, ErrInvalidEndpoints) {
		t.Errorf("AddPlayer(BANK) error = %v", err)
	}
}
