package ledger

import (
	"fmt"
	"slices"
	"time"
)

// NewSession returns an active session with the given roster.
func NewSession(id, groupID string, start time.Time, players []Player, chipValue *Cents) GameSession {
	s := GameSession{
		ID:           id,
		GroupID:      groupID,
		StartTime:    start,
		Players:      slices.Clone(players),
		PlayerStates: make(map[string]PlayerState),
		IsActive:     true,
	}
	if chipValue != nil {
		v := *chipValue
		s.ChipValue = &v
	}
	return s
}

// Clone returns a deep copy of s.
func (s GameSession) Clone() GameSession {
	c := s
	c.Players = slices.Clone(s.Players)
	c.Transactions = slices.Clone(s.Transactions)
	c.PlayerStates = make(map[string]PlayerState, len(s.PlayerStates))
	for id, st := range s.PlayerStates {
		if st.FinalChips != nil {
			v := *st.FinalChips
			st.FinalChips = &v
		}
		c.PlayerStates[id] = st
	}
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	if s.ChipValue != nil {
		v := *s.ChipValue
		c.ChipValue = &v
	}
	return c
}

// AddPlayer appends p to the roster of an active session.
func (s GameSession) AddPlayer(p Player) (GameSession, error) {
	if !s.IsActive {
		return s, ErrSessionClosed
	}
	if p.ID == "" || p.ID == Bank {
		return s, fmt.Errorf("%w: %q", ErrInvalidEndpoints, p.ID)
	}
	if s.HasPlayer(p.ID) {
		return s, fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.ID)
	}
	c := s.Clone()
	c.Players = append(c.Players, p)
	return c, nil
}

// Append validates tx and returns a session with tx at the end of the ledger.
func (s GameSession) Append(tx Transaction) (GameSession, error) {
	if !s.IsActive {
		return s, ErrSessionClosed
	}
	if err := ValidateTransaction(s, tx); err != nil {
		return s, err
	}
	c := s.Clone()
	c.Transactions = append(c.Transactions, tx)
	return c, nil
}

// Remove returns a session without the transaction txID.
func (s GameSession) Remove(txID string) (GameSession, error) {
	if !s.IsActive {
		return s, ErrSessionClosed
	}
	i := slices.IndexFunc(s.Transactions, func(tx Transaction) bool { return tx.ID == txID })
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrTransactionNotFound, txID)
	}
	c := s.Clone()
	c.Transactions = slices.Delete(c.Transactions, i, i+1)
	return c, nil
}

// SetFinalChips records the counted stack of a player. Counting is allowed
// on closed sessions too, so a miscount can be fixed after the fact.
func (s GameSession) SetFinalChips(playerID string, chips Cents) (GameSession, error) {
	if !s.HasPlayer(playerID) {
		return s, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	if chips < 0 {
		return s, ErrNegativeAmount
	}
	if chips > MaxAmount {
		return s, fmt.Errorf("%w: %s exceeds %s", ErrInvalidAmount, chips, MaxAmount)
	}
	c := s.Clone()
	c.PlayerStates[playerID] = PlayerState{FinalChips: &chips}
	return c, nil
}

// Close marks the session finished at t.
func (s GameSession) Close(t time.Time) GameSession {
	c := s.Clone()
	c.IsActive = false
	c.EndTime = &t
	return c
}

// Reopen makes a closed session editable again. The end time is cleared so a
// reopened session is indistinguishable from one that was never closed.
func (s GameSession) Reopen() GameSession {
	c := s.Clone()
	c.IsActive = true
	c.EndTime = nil
	return c
}

// Counted reports whether every roster player has final chips recorded.
func (s GameSession) Counted() bool {
	for _, p := range s.Players {
		if st, ok := s.PlayerStates[p.ID]; !ok || st.FinalChips == nil {
			return false
		}
	}
	return true
}

// PlayerIDs returns the roster ids in roster order.
func (s GameSession) PlayerIDs() []string {
	ids := make([]string, len(s.Players))
	for i, p := range s.Players {
		ids[i] = p.ID
	}
	return ids
}
