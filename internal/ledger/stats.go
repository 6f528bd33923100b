package ledger

import (
	"cmp"
	"slices"
)

// ComputeLifetimeStats aggregates the finished sessions in which p played.
// Active sessions and sessions p did not join are skipped.
func ComputeLifetimeStats(p Player, sessions []GameSession) PlayerStats {
	stats := PlayerStats{PlayerID: p.ID, History: []HistoryPoint{}}
	for _, s := range sessions {
		if s.IsActive || !s.HasPlayer(p.ID) {
			continue
		}
		row, ok := ComputeSettlementAt(s, s.StartTime).Player(p.ID)
		if !ok {
			continue
		}
		stats.GamesPlayed++
		stats.TotalBuyIn += row.TotalBuyIn
		stats.NetProfit += row.NetProfit
		stats.TotalBorrowed += row.TransfersIn
		stats.TotalLoaned += row.TransfersOut
		switch {
		case row.NetProfit > 0:
			stats.Wins++
		case row.NetProfit < 0:
			stats.Losses++
		}
		stats.BiggestWin = max(stats.BiggestWin, row.NetProfit)
		stats.BiggestLoss = min(stats.BiggestLoss, row.NetProfit)
		stats.History = append(stats.History, HistoryPoint{
			Date:      s.StartTime,
			Profit:    row.NetProfit,
			SessionID: s.ID,
		})
	}
	slices.SortStableFunc(stats.History, func(a, b HistoryPoint) int {
		return a.Date.Compare(b.Date)
	})
	return stats
}

// CumulativeProfit returns the running total of profit along history.
func CumulativeProfit(history []HistoryPoint) []Cents {
	out := make([]Cents, len(history))
	var sum Cents
	for i, h := range history {
		sum += h.Profit
		out[i] = sum
	}
	return out
}

// Leaderboard orders stats by net profit, best first, then by player id.
func Leaderboard(stats []PlayerStats) []PlayerStats {
	out := slices.Clone(stats)
	slices.SortStableFunc(out, func(a, b PlayerStats) int {
		if c := cmp.Compare(b.NetProfit, a.NetProfit); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})
	return out
}
