package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownType         = errors.New("unknown transaction type")
	ErrInvalidEndpoints    = errors.New("invalid transaction endpoints")
	ErrSelfTransfer        = errors.New("cannot transfer to self")
	ErrUnknownPlayer       = errors.New("player is not in the session")
	ErrDuplicatePlayer     = errors.New("player already in the session")
	ErrSessionClosed       = errors.New("session is closed")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// ValidateTransaction checks tx against the rules of its type and the
// session roster.
func ValidateTransaction(s GameSession, tx Transaction) error {
	if err := checkShape(tx); err != nil {
		return err
	}
	for _, id := range []string{tx.FromID, tx.ToID} {
		if id != Bank && !s.HasPlayer(id) {
			return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
		}
	}
	return nil
}

// checkShape validates a transaction without looking at the roster.
func checkShape(tx Transaction) error {
	if tx.Amount < 0 {
		return ErrNegativeAmount
	}
	if tx.Amount > MaxAmount {
		return fmt.Errorf("%w: %s exceeds %s", ErrInvalidAmount, tx.Amount, MaxAmount)
	}
	switch tx.Type {
	case BuyIn:
		if tx.FromID != Bank || tx.ToID == Bank || tx.ToID == "" {
			return fmt.Errorf("%w: buy-in must go from %s to a player", ErrInvalidEndpoints, Bank)
		}
	case CashOut:
		if tx.ToID != Bank || tx.FromID == Bank || tx.FromID == "" {
			return fmt.Errorf("%w: cash-out must go from a player to %s", ErrInvalidEndpoints, Bank)
		}
	case Transfer:
		if tx.FromID == Bank || tx.ToID == Bank || tx.FromID == "" || tx.ToID == "" {
			return fmt.Errorf("%w: transfer must be between players", ErrInvalidEndpoints)
		}
		if tx.FromID == tx.ToID {
			return ErrSelfTransfer
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, tx.Type)
	}
	return nil
}
