package commands

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/susu3304/chipledger/internal/ledger"
	"github.com/susu3304/chipledger/internal/poker"
)

// Discord rejects messages longer than this.
const maxMessageLen = 2000

func ReportMessage(f Formatter, r ledger.GameSettlementReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**精算レポート** (%d分)\n", r.DurationMinutes)
	for _, p := range r.Players {
		fmt.Fprintf(&b, "・%s: %s (バイイン %s / 最終チップ %s)\n",
			p.Name, f.Signed(p.NetProfit), f.Amount(p.NetInvested), f.Amount(p.FinalChips))
	}
	fmt.Fprintf(&b, "合計バイイン %s / 合計チップ %s", f.Amount(r.TotalBuyIn), f.Amount(r.TotalChips))
	if !r.Balanced() {
		fmt.Fprintf(&b, "\n⚠ チップの差額: %s", f.Signed(r.Discrepancy))
	}
	return b.String()
}

func PayoutMessage(f Formatter, plan *poker.Plan) string {
	if len(plan.Payouts) == 0 && len(plan.Unsettled) == 0 {
		return "精算は不要です"
	}
	var b strings.Builder
	b.WriteString("**支払い**\n")
	for _, p := range plan.Payouts {
		fmt.Fprintf(&b, "・%s → %s: %s\n", nameOf(plan, p.From), nameOf(plan, p.To), f.Amount(p.Amount))
	}
	if len(plan.Unsettled) > 0 {
		ids := make([]string, 0, len(plan.Unsettled))
		for id := range plan.Unsettled {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Fprintf(&b, "⚠ チップの差額 %s のため未精算:\n", f.Signed(plan.Discrepancy))
		for _, id := range ids {
			fmt.Fprintf(&b, "・%s: %s\n", nameOf(plan, id), f.Signed(plan.Unsettled[id]))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// ReminderMessage lists the unpaid payouts of a finished session, or returns
// "" when everything has been paid.
func ReminderMessage(f Formatter, plan *poker.Plan) string {
	if len(plan.Pending) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("**未払いの精算があります**\n")
	for _, t := range plan.Pending {
		fmt.Fprintf(&b, "・%s → %s: %s\n", nameOf(plan, t.PayerID), nameOf(plan, t.PayeeID), f.Amount(t.Amount))
	}
	b.WriteString("支払ったら `/poker paid` で記録してください")
	return b.String()
}

func StatsMessage(f Formatter, st *poker.Stats) string {
	s := st.Stats
	if s.GamesPlayed == 0 {
		return fmt.Sprintf("%s の記録はまだありません", st.Player.Name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**%s の通算成績**\n", st.Player.Name)
	fmt.Fprintf(&b, "参加 %d回 / 勝ち %d / 負け %d (勝率 %.1f%%)\n", s.GamesPlayed, s.Wins, s.Losses, st.WinRate)
	fmt.Fprintf(&b, "収支 %s / バイイン合計 %s\n", f.Signed(s.NetProfit), f.Amount(s.TotalBuyIn))
	fmt.Fprintf(&b, "最大勝ち %s / 最大負け %s\n", f.Signed(s.BiggestWin), f.Signed(s.BiggestLoss))
	fmt.Fprintf(&b, "借りた額 %s / 貸した額 %s", f.Amount(s.TotalBorrowed), f.Amount(s.TotalLoaned))
	return b.String()
}

func nameOf(plan *poker.Plan, id string) string {
	if name, ok := plan.Names[id]; ok {
		return name
	}
	return id
}

// splitMessage breaks text into chunks Discord accepts, on line boundaries
// where possible. Lines that are too long on their own are cut between runes.
func splitMessage(text string) []string {
	var chunks []string
	var buffer strings.Builder
	flush := func() {
		if buffer.Len() > 0 {
			chunks = append(chunks, buffer.String())
			buffer.Reset()
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if buffer.Len() > 0 && buffer.Len()+len(line)+1 > maxMessageLen {
			flush()
		}
		for len(line) > maxMessageLen {
			flush()
			cut := maxMessageLen
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
	}
	flush()
	return chunks
}
