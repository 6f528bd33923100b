package ledger

// ComputePayouts returns the payments that clear every net profit in r.
//
// The largest remaining creditor is always paid by the largest remaining
// debtor, for as much as the smaller of the two is owed. Equal amounts are
// resolved by position in r.Players, which keeps roster order among players
// with the same profit. This is the usual greedy approximation and is not
// guaranteed to be minimal in every case.
//
// When r carries a discrepancy, creditors and debtors do not balance and the
// difference is left unassigned; see Unsettled.
func ComputePayouts(r GameSettlementReport) []Payout {
	type bal struct {
		id  string
		net Cents
	}
	var pos, neg []bal
	for _, p := range r.Players {
		switch {
		case p.NetProfit > 0:
			pos = append(pos, bal{id: p.PlayerID, net: p.NetProfit})
		case p.NetProfit < 0:
			neg = append(neg, bal{id: p.PlayerID, net: -p.NetProfit})
		}
	}

	// largest returns the index of the largest remaining balance, the
	// earliest one on ties, or -1 when nothing is left.
	largest := func(bs []bal) int {
		best := -1
		for i, b := range bs {
			if b.net <= 0 {
				continue
			}
			if best < 0 || b.net > bs[best].net {
				best = i
			}
		}
		return best
	}

	payouts := []Payout{}
	for {
		i, j := largest(pos), largest(neg)
		if i < 0 || j < 0 {
			break
		}
		amt := min(pos[i].net, neg[j].net)
		payouts = append(payouts, Payout{From: neg[j].id, To: pos[i].id, Amount: amt})
		pos[i].net -= amt
		neg[j].net -= amt
	}
	return payouts
}

// Unsettled returns how much each player is still owed (positive) or still
// owes (negative) after payouts are applied to r. Players whose balance is
// cleared are omitted. For a balanced report the result is empty.
func Unsettled(r GameSettlementReport, payouts []Payout) map[string]Cents {
	left := make(map[string]Cents, len(r.Players))
	for _, p := range r.Players {
		left[p.PlayerID] = p.NetProfit
	}
	for _, po := range payouts {
		left[po.From] += po.Amount
		left[po.To] -= po.Amount
	}
	for id, v := range left {
		if v == 0 {
			delete(left, id)
		}
	}
	return left
}

// TotalPaid sums the amounts of payouts.
func TotalPaid(payouts []Payout) Cents {
	var sum Cents
	for _, p := range payouts {
		sum += p.Amount
	}
	return sum
}
