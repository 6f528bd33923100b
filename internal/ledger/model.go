// Package ledger models the money movements of a poker session and computes
// settlements, payout plans and lifetime statistics from them.
//
// Every computation in this package is a pure function of its input: nothing
// is cached, nothing is mutated in place, and all amounts are integer Cents.
package ledger

import "time"

// Bank is the pseudo-player that is the source of buy-ins and the sink of
// cash-outs.
const Bank = "BANK"

type TxType string

const (
	BuyIn    TxType = "BUY_IN"
	Transfer TxType = "TRANSFER"
	CashOut  TxType = "CASH_OUT"
)

func (t TxType) Valid() bool {
	switch t {
	case BuyIn, Transfer, CashOut:
		return true
	}
	return false
}

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Transaction struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      TxType    `json:"type"`
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	Amount    Cents     `json:"amount"`
}

// PlayerState holds what is known about a player at the end of a session.
// FinalChips is nil until the player's stack has been counted.
type PlayerState struct {
	FinalChips *Cents `json:"final_chips"`
}

type GameSession struct {
	ID           string                 `json:"id"`
	GroupID      string                 `json:"group_id"`
	StartTime    time.Time              `json:"start_time"`
	EndTime      *time.Time             `json:"end_time,omitempty"`
	Players      []Player               `json:"players"`
	Transactions []Transaction          `json:"transactions"`
	PlayerStates map[string]PlayerState `json:"player_states"`
	IsActive     bool                   `json:"is_active"`
	// ChipValue is the value of one chip in fixed-denomination sessions.
	ChipValue *Cents `json:"chip_value,omitempty"`
}

// HasPlayer reports whether id is on the session roster.
func (s GameSession) HasPlayer(id string) bool {
	return s.playerIndex(id) >= 0
}

func (s GameSession) playerIndex(id string) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// FinalChips returns the counted chips of a player, or zero if uncounted.
func (s GameSession) FinalChips(playerID string) Cents {
	if st, ok := s.PlayerStates[playerID]; ok && st.FinalChips != nil {
		return *st.FinalChips
	}
	return 0
}

type PlayerSettlement struct {
	PlayerID     string `json:"player_id"`
	Name         string `json:"name"`
	TotalBuyIn   Cents  `json:"total_buy_in"`
	TransfersIn  Cents  `json:"transfers_in"`
	TransfersOut Cents  `json:"transfers_out"`
	NetInvested  Cents  `json:"net_invested"`
	FinalChips   Cents  `json:"final_chips"`
	NetProfit    Cents  `json:"net_profit"`
}

type GameSettlementReport struct {
	Players         []PlayerSettlement `json:"players"`
	TotalBuyIn      Cents              `json:"total_buy_in"`
	TotalChips      Cents              `json:"total_chips"`
	Discrepancy     Cents              `json:"discrepancy"`
	DurationMinutes int64              `json:"duration_minutes"`
}

// Balanced reports whether the counted chips match the money in play.
func (r GameSettlementReport) Balanced() bool {
	return r.Discrepancy == 0
}

// Player returns the settlement row of the given player.
func (r GameSettlementReport) Player(id string) (PlayerSettlement, bool) {
	for _, p := range r.Players {
		if p.PlayerID == id {
			return p, true
		}
	}
	return PlayerSettlement{}, false
}

type Payout struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount Cents  `json:"amount"`
}

type HistoryPoint struct {
	Date      time.Time `json:"date"`
	Profit    Cents     `json:"profit"`
	SessionID string    `json:"session_id"`
}

type PlayerStats struct {
	PlayerID      string         `json:"player_id"`
	GamesPlayed   int            `json:"games_played"`
	TotalBuyIn    Cents          `json:"total_buy_in"`
	NetProfit     Cents          `json:"net_profit"`
	TotalBorrowed Cents          `json:"total_borrowed"`
	TotalLoaned   Cents          `json:"total_loaned"`
	Wins          int            `json:"wins"`
	Losses        int            `json:"losses"`
	BiggestWin    Cents          `json:"biggest_win"`
	BiggestLoss   Cents          `json:"biggest_loss"`
	History       []HistoryPoint `json:"history"`
}

// WinRate is the share of played sessions that ended in profit, in percent.
func (s PlayerStats) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.GamesPlayed) * 100
}
