package poker

import (
	"context"
	"fmt"

	"github.com/susu3304/chipledger/internal/db"
	"github.com/susu3304/chipledger/internal/ledger"
)

// Plan is the settlement of a session: who pays whom, what the plan could
// not assign, and which payments are still outstanding.
type Plan struct {
	SessionID   string                  `json:"session_id"`
	Payouts     []ledger.Payout         `json:"payouts"`
	Unsettled   map[string]ledger.Cents `json:"unsettled"`
	Discrepancy ledger.Cents            `json:"discrepancy"`
	Pending     []db.PayoutTask         `json:"pending"`
	Names       map[string]string       `json:"names"`
}

// Stats is a player's lifetime record with the running profit after each
// session.
type Stats struct {
	Player     ledger.Player      `json:"player"`
	Stats      ledger.PlayerStats `json:"stats"`
	WinRate    float64            `json:"win_rate"`
	Cumulative []ledger.Cents     `json:"cumulative"`
}

func (s *Service) Report(ctx context.Context, sessionID string) (ledger.GameSettlementReport, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return ledger.GameSettlementReport{}, err
	}
	return ledger.ComputeSettlementAt(*session, s.now().UTC()), nil
}

// PayoutPlan computes the payouts of a session from its current ledger.
// Pending is only filled once the session has been finished.
func (s *Service) PayoutPlan(ctx context.Context, sessionID string) (*Plan, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	report := ledger.ComputeSettlementAt(*session, s.now().UTC())
	payouts := ledger.ComputePayouts(report)
	pending, err := s.store.ListPendingPayoutTasks(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payout tasks: %w", err)
	}
	names := make(map[string]string, len(session.Players))
	for _, p := range session.Players {
		names[p.ID] = p.Name
	}
	return &Plan{
		SessionID:   sessionID,
		Payouts:     payouts,
		Unsettled:   ledger.Unsettled(report, payouts),
		Discrepancy: report.Discrepancy,
		Pending:     pending,
		Names:       names,
	}, nil
}

// RecordPayment marks amount as paid from payer to payee and returns what
// the payer still owes the payee.
func (s *Service) RecordPayment(ctx context.Context, sessionID, payerID, payeeID string, amount ledger.Cents, memo, recordedBy string) (ledger.Cents, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	return s.store.RecordPayoutPayment(ctx, sessionID, payerID, payeeID, amount, memo, recordedBy)
}

func (s *Service) PlayerStats(ctx context.Context, groupID, playerID string) (*Stats, error) {
	p, err := s.groupPlayer(ctx, groupID, playerID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.store.ListSessions(ctx, groupID)
	if err != nil {
		return nil, err
	}
	st := ledger.ComputeLifetimeStats(p, sessions)
	return &Stats{
		Player:     p,
		Stats:      st,
		WinRate:    st.WinRate(),
		Cumulative: ledger.CumulativeProfit(st.History),
	}, nil
}

// Leaderboard returns the lifetime stats of every group player, best first.
func (s *Service) Leaderboard(ctx context.Context, groupID string) ([]ledger.PlayerStats, error) {
	players, err := s.store.ListPlayers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.store.ListSessions(ctx, groupID)
	if err != nil {
		return nil, err
	}
	all := make([]ledger.PlayerStats, 0, len(players))
	for _, p := range players {
		all = append(all, ledger.ComputeLifetimeStats(p, sessions))
	}
	return ledger.Leaderboard(all), nil
}
