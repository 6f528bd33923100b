package poker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/susu3304/chipledger/internal/db"
	"github.com/susu3304/chipledger/internal/ledger"
)

// Seat is a player taking part in a new session with their first buy-in.
type Seat struct {
	PlayerID string
	BuyIn    ledger.Cents
}

// StartSession opens a session in groupID with the given seats. chipValue
// is nil for sessions played with mixed denominations.
func (s *Service) StartSession(ctx context.Context, groupID string, seats []Seat, chipValue *ledger.Cents) (*ledger.GameSession, error) {
	if chipValue != nil && *chipValue <= 0 {
		return nil, fmt.Errorf("%w: chip value must be positive", ErrInvalidInput)
	}
	var players []ledger.Player
	for _, seat := range seats {
		p, err := s.groupPlayer(ctx, groupID, seat.PlayerID)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	now := s.now().UTC()
	session := ledger.NewSession(s.newID(), groupID, now, nil, chipValue)
	for i, seat := range seats {
		var err error
		if session, err = session.AddPlayer(players[i]); err != nil {
			return nil, err
		}
		if seat.BuyIn > 0 {
			if session, err = session.Append(s.transaction(ledger.BuyIn, ledger.Bank, seat.PlayerID, seat.BuyIn)); err != nil {
				return nil, err
			}
		}
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &session, nil
}

func (s *Service) transaction(typ ledger.TxType, from, to string, amount ledger.Cents) ledger.Transaction {
	return ledger.Transaction{ID: s.newID(), Timestamp: s.now().UTC(), Type: typ, FromID: from, ToID: to, Amount: amount}
}

func (s *Service) Session(ctx context.Context, sessionID string) (*ledger.GameSession, error) {
	return s.store.GetSession(ctx, sessionID)
}

func (s *Service) Sessions(ctx context.Context, groupID string) ([]ledger.GameSession, error) {
	return s.store.ListSessions(ctx, groupID)
}

func (s *Service) LatestSession(ctx context.Context, groupID string) (*ledger.GameSession, error) {
	return s.store.LatestSession(ctx, groupID)
}

// SessionForUser loads a session and checks that userID owns its group.
func (s *Service) SessionForUser(ctx context.Context, userID, sessionID string) (*ledger.GameSession, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Group(ctx, userID, session.GroupID); err != nil {
		return nil, err
	}
	return session, nil
}

// JoinSession seats a group player in a running session, with an optional
// first buy-in.
func (s *Service) JoinSession(ctx context.Context, sessionID, playerID string, buyIn ledger.Cents) (*ledger.GameSession, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	p, err := s.groupPlayer(ctx, session.GroupID, playerID)
	if err != nil {
		return nil, err
	}
	next, err := session.AddPlayer(p)
	if err != nil {
		return nil, err
	}
	var first *ledger.Transaction
	if buyIn > 0 {
		tx := s.transaction(ledger.BuyIn, ledger.Bank, playerID, buyIn)
		if next, err = next.Append(tx); err != nil {
			return nil, err
		}
		first = &tx
	}
	if err := s.store.AddSessionPlayer(ctx, sessionID, playerID, first); err != nil {
		return nil, fmt.Errorf("failed to add player to session: %w", err)
	}
	return &next, nil
}

// Record appends a money movement to the session ledger.
func (s *Service) Record(ctx context.Context, sessionID string, typ ledger.TxType, from, to string, amount ledger.Cents) (ledger.Transaction, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	tx := s.transaction(typ, from, to, amount)
	if _, err := session.Append(tx); err != nil {
		return ledger.Transaction{}, err
	}
	if err := s.store.InsertTransaction(ctx, sessionID, tx); err != nil {
		return ledger.Transaction{}, fmt.Errorf("failed to record transaction: %w", err)
	}
	return tx, nil
}

func (s *Service) RemoveTransaction(ctx context.Context, sessionID, txID string) error {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if _, err := session.Remove(txID); err != nil {
		return err
	}
	return s.store.DeleteTransaction(ctx, sessionID, txID)
}

func (s *Service) SetFinalChips(ctx context.Context, sessionID, playerID string, chips ledger.Cents) error {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if _, err := session.SetFinalChips(playerID, chips); err != nil {
		return err
	}
	return s.store.SetFinalChips(ctx, sessionID, playerID, chips)
}

// Finish closes a session. When the counted chips do not match the money in
// play it returns the report together with ErrDiscrepancy unless force is
// set. On success the payout plan is stored as tasks to be paid.
func (s *Service) Finish(ctx context.Context, sessionID string, force bool) (*ledger.GameSettlementReport, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, ledger.ErrSessionClosed
	}
	now := s.now().UTC()
	closed := session.Close(now)
	report := ledger.ComputeSettlementAt(closed, now)
	if !report.Balanced() && !force {
		return &report, fmt.Errorf("%w: off by %s", ErrDiscrepancy, report.Discrepancy)
	}

	var tasks []db.PayoutTask
	for _, p := range ledger.ComputePayouts(report) {
		tasks = append(tasks, db.PayoutTask{PayerID: p.From, PayeeID: p.To, Amount: p.Amount})
	}
	// The session stays active until its plan is stored.
	if err := s.store.SetPayoutTasks(ctx, sessionID, tasks); err != nil {
		return nil, fmt.Errorf("failed to store payout tasks: %w", err)
	}
	if s.reminderInterval > 0 && len(tasks) > 0 {
		next := now.Add(s.reminderInterval)
		if err := s.store.UpsertReminder(ctx, sessionID, true, int(s.reminderInterval/time.Minute), &next); err != nil {
			return nil, errors.Join(fmt.Errorf("failed to schedule reminder: %w", err), s.discardPlan(ctx, sessionID))
		}
	}
	if err := s.store.SetSessionStatus(ctx, sessionID, false, closed.EndTime); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to close session: %w", err), s.discardPlan(ctx, sessionID))
	}
	return &report, nil
}

// discardPlan drops the payout tasks of a session and disables its reminder.
func (s *Service) discardPlan(ctx context.Context, sessionID string) error {
	if err := s.store.SetPayoutTasks(ctx, sessionID, nil); err != nil {
		return fmt.Errorf("failed to clear payout tasks: %w", err)
	}
	if s.reminderInterval > 0 {
		if err := s.store.UpsertReminder(ctx, sessionID, false, int(s.reminderInterval/time.Minute), nil); err != nil {
			return fmt.Errorf("failed to disable reminder: %w", err)
		}
	}
	return nil
}

// Reopen makes a finished session editable again and drops its payout
// tasks; they are planned again on the next Finish.
func (s *Service) Reopen(ctx context.Context, sessionID string) error {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.IsActive {
		return nil
	}
	if err := s.store.SetSessionStatus(ctx, sessionID, true, nil); err != nil {
		return fmt.Errorf("failed to reopen session: %w", err)
	}
	return s.discardPlan(ctx, sessionID)
}
