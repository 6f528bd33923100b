package ledger

import (
	"slices"
	"time"
)

// ComputeSettlement settles s, measuring the duration of an active session
// up to the current time.
func ComputeSettlement(s GameSession) GameSettlementReport {
	return ComputeSettlementAt(s, time.Now())
}

// ComputeSettlementAt settles s using now as the end of a session that has
// no end time yet.
//
// Transactions that are malformed or that touch a player who is not on the
// roster are ignored entirely, so one bad row never unbalances the others.
func ComputeSettlementAt(s GameSession, now time.Time) GameSettlementReport {
	type acc struct {
		buyIns, cashOuts, in, out Cents
	}
	accs := make(map[string]*acc, len(s.Players))
	for _, p := range s.Players {
		accs[p.ID] = &acc{}
	}
	known := func(id string) bool {
		_, ok := accs[id]
		return ok
	}

	for _, tx := range s.Transactions {
		if checkShape(tx) != nil {
			continue
		}
		switch tx.Type {
		case BuyIn:
			if known(tx.ToID) {
				accs[tx.ToID].buyIns += tx.Amount
			}
		case CashOut:
			if known(tx.FromID) {
				accs[tx.FromID].cashOuts += tx.Amount
			}
		case Transfer:
			if known(tx.FromID) && known(tx.ToID) {
				accs[tx.FromID].out += tx.Amount
				accs[tx.ToID].in += tx.Amount
			}
		}
	}

	report := GameSettlementReport{
		Players: make([]PlayerSettlement, 0, len(s.Players)),
	}
	for _, p := range s.Players {
		a := accs[p.ID]
		row := PlayerSettlement{
			PlayerID:     p.ID,
			Name:         p.Name,
			TotalBuyIn:   a.buyIns - a.cashOuts,
			TransfersIn:  a.in,
			TransfersOut: a.out,
			FinalChips:   s.FinalChips(p.ID),
		}
		row.NetInvested = row.TotalBuyIn + row.TransfersIn - row.TransfersOut
		row.NetProfit = row.FinalChips - row.NetInvested

		report.TotalBuyIn += row.TotalBuyIn
		report.TotalChips += row.FinalChips
		report.Players = append(report.Players, row)
	}
	report.Discrepancy = report.TotalChips - report.TotalBuyIn

	// winners first, roster order among equals
	slices.SortStableFunc(report.Players, func(a, b PlayerSettlement) int {
		switch {
		case a.NetProfit > b.NetProfit:
			return -1
		case a.NetProfit < b.NetProfit:
			return 1
		}
		return 0
	})

	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	if d := end.Sub(s.StartTime); d > 0 {
		report.DurationMinutes = int64(d / time.Minute)
	}
	return report
}
