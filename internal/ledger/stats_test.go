package ledger

import (
	"reflect"
	"testing"
	"time"
)

func closedAt(id string, start time.Time, players []Player, txs []Transaction, final map[string]Cents) GameSession {
	s := session(players, txs, final)
	s.ID = id
	s.StartTime = start
	s.EndTime = nil
	return s.Close(start.Add(2 * time.Hour))
}

func TestComputeLifetimeStats(t *testing.T) {
	day := 24 * time.Hour
	sessions := []GameSession{
		// listed out of order on purpose
		closedAt("s3", t0.Add(2*day), []Player{p1, p2},
			[]Transaction{buyIn("a", "p1", 5000), buyIn("b", "p2", 5000)},
			map[string]Cents{"p1": 5000, "p2": 5000}),
		closedAt("s1", t0, []Player{p1, p2},
			[]Transaction{buyIn("a", "p1", 10000), buyIn("b", "p2", 10000), transfer("c", "p2", "p1", 2000)},
			map[string]Cents{"p1": 17000, "p2": 3000}),
		closedAt("s2", t0.Add(day), []Player{p1, p3},
			[]Transaction{buyIn("a", "p1", 10000), buyIn("b", "p3", 10000), transfer("c", "p1", "p3", 1000)},
			map[string]Cents{"p1": 2000, "p3": 18000}),
		// p1 did not play
		closedAt("s4", t0.Add(3*day), []Player{p2, p3},
			[]Transaction{buyIn("a", "p2", 10000)},
			map[string]Cents{"p2": 10000}),
	}
	active := NewSession("s5", "g1", t0.Add(4*day), []Player{p1, p2}, nil)
	active, _ = active.Append(buyIn("a", "p1", 99900))
	sessions = append(sessions, active)

	got := ComputeLifetimeStats(p1, sessions)
	want := PlayerStats{
		PlayerID:      "p1",
		GamesPlayed:   3,
		TotalBuyIn:    25000,
		NetProfit:     5000 - 7000 + 0,
		TotalBorrowed: 2000,
		TotalLoaned:   1000,
		Wins:          1,
		Losses:        1,
		BiggestWin:    5000,
		BiggestLoss:   -7000,
		History: []HistoryPoint{
			{Date: t0, Profit: 5000, SessionID: "s1"},
			{Date: t0.Add(day), Profit: -7000, SessionID: "s2"},
			{Date: t0.Add(2 * day), Profit: 0, SessionID: "s3"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ComputeLifetimeStats() =\n%+v\nwant\n%+v", got, want)
	}
	if even := got.GamesPlayed - got.Wins - got.Losses; even != 1 {
		t.Errorf("break-even sessions = %d, want 1", even)
	}

	if got := CumulativeProfit(got.History); !reflect.DeepEqual(got, []Cents{5000, -2000, -2000}) {
		t.Errorf("CumulativeProfit = %v", got)
	}
}

func TestComputeLifetimeStatsNoGames(t *testing.T) {
	got := ComputeLifetimeStats(p3, nil)
	if got.GamesPlayed != 0 || got.BiggestWin != 0 || got.BiggestLoss != 0 || len(got.History) != 0 {
		t.Errorf("empty stats = %+v", got)
	}
	if got.WinRate() != 0 {
		t.Errorf("WinRate = %v, want 0", got.WinRate())
	}
}

func TestComputeLifetimeStatsOnlyLosses(t *testing.T) {
	s := closedAt("s1", t0, []Player{p1, p2},
		[]Transaction{buyIn("a", "p1", 1000), buyIn("b", "p2", 1000)},
		map[string]Cents{"p1": 400, "p2": 1600})
	got := ComputeLifetimeStats(p1, []GameSession{s})
	if got.BiggestWin != 0 {
		t.Errorf("BiggestWin = %v, want floor 0", got.BiggestWin)
	}
	if got.BiggestLoss != -600 {
		t.Errorf("BiggestLoss = %v, want -600", got.BiggestLoss)
	}
}

func TestLeaderboard(t *testing.T) {
	in := []PlayerStats{
		{PlayerID: "b", NetProfit: 100},
		{PlayerID: "c", NetProfit: -50},
		{PlayerID: "a", NetProfit: 100},
	}
	var got []string
	for _, s := range Leaderboard(in) {
		got = append(got, s.PlayerID)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Leaderboard order = %v, want %v", got, want)
	}
	if in[0].PlayerID != "b" {
		t.Errorf("Leaderboard sorted its input in place")
	}
}
