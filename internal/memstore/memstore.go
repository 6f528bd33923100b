// Package memstore is an in-process store used when no database is
// configured. It keeps everything in maps and loses it on restart.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/susu3304/chipledger/internal/db"
	"github.com/susu3304/chipledger/internal/ledger"
)

type task struct {
	db.PayoutTask
	completed bool
}

type reminder struct {
	enabled         bool
	intervalMinutes int
	nextDueAt       *time.Time
	lastSentAt      *time.Time
}

type Store struct {
	mu        sync.Mutex
	groups    map[string]db.Group
	players   map[string][]ledger.Player // by group
	sessions  map[string]ledger.GameSession
	tasks     map[string][]*task
	reminders map[string]*reminder
}

func New() *Store {
	return &Store{
		groups:    make(map[string]db.Group),
		players:   make(map[string][]ledger.Player),
		sessions:  make(map[string]ledger.GameSession),
		tasks:     make(map[string][]*task),
		reminders: make(map[string]*reminder),
	}
}

func (s *Store) CreateGroup(_ context.Context, g db.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[g.ID]; ok {
		return fmt.Errorf("%w: group %s", db.ErrConflict, g.ID)
	}
	s.groups[g.ID] = g
	return nil
}

func (s *Store) GetGroup(_ context.Context, id string) (*db.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &g, nil
}

func (s *Store) ListGroups(_ context.Context, ownerID string) ([]db.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []db.Group
	for _, g := range s.groups {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) LinkChannel(_ context.Context, groupID string, guildID int64, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return db.ErrNotFound
	}
	for id, other := range s.groups {
		if id != groupID && other.ChannelID != nil && *other.ChannelID == channelID {
			other.GuildID, other.ChannelID = nil, nil
			s.groups[id] = other
		}
	}
	g.GuildID, g.ChannelID = &guildID, &channelID
	s.groups[groupID] = g
	return nil
}

func (s *Store) GroupByChannel(_ context.Context, channelID string) (*db.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.ChannelID != nil && *g.ChannelID == channelID {
			return &g, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Store) AddPlayer(_ context.Context, groupID string, p ledger.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return db.ErrNotFound
	}
	for _, existing := range s.players[groupID] {
		if existing.ID == p.ID || existing.Name == p.Name {
			return fmt.Errorf("%w: player %s", db.ErrConflict, p.Name)
		}
	}
	s.players[groupID] = append(s.players[groupID], p)
	return nil
}

func (s *Store) ListPlayers(_ context.Context, groupID string) ([]ledger.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.players[groupID])
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateSession(_ context.Context, gs ledger.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[gs.GroupID]; !ok {
		return db.ErrNotFound
	}
	if _, ok := s.sessions[gs.ID]; ok {
		return fmt.Errorf("%w: session %s", db.ErrConflict, gs.ID)
	}
	s.sessions[gs.ID] = gs.Clone()
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (*ledger.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.sessions[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	c := gs.Clone()
	return &c, nil
}

func (s *Store) ListSessions(_ context.Context, groupID string) ([]ledger.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupSessions(groupID), nil
}

func (s *Store) LatestSession(_ context.Context, groupID string) (*ledger.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.groupSessions(groupID)
	if len(all) == 0 {
		return nil, db.ErrNotFound
	}
	return &all[len(all)-1], nil
}

// groupSessions returns copies ordered by start time then id. Callers hold mu.
func (s *Store) groupSessions(groupID string) []ledger.GameSession {
	var out []ledger.GameSession
	for _, gs := range s.sessions {
		if gs.GroupID == groupID {
			out = append(out, gs.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// update applies fn to a copy of a stored session under the lock and keeps
// the copy if fn succeeds.
func (s *Store) update(id string, fn func(gs *ledger.GameSession) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.sessions[id]
	if !ok {
		return db.ErrNotFound
	}
	gs = gs.Clone()
	if err := fn(&gs); err != nil {
		return err
	}
	s.sessions[id] = gs
	return nil
}

func (s *Store) AddSessionPlayer(_ context.Context, sessionID, playerID string, buyIn *ledger.Transaction) error {
	return s.update(sessionID, func(gs *ledger.GameSession) error {
		roster := s.players[gs.GroupID]
		i := slices.IndexFunc(roster, func(p ledger.Player) bool { return p.ID == playerID })
		if i < 0 {
			return db.ErrNotFound
		}
		if gs.HasPlayer(playerID) {
			return fmt.Errorf("%w: player %s", db.ErrConflict, playerID)
		}
		gs.Players = append(gs.Players, roster[i])
		if buyIn != nil {
			gs.Transactions = append(gs.Transactions, *buyIn)
		}
		return nil
	})
}

func (s *Store) InsertTransaction(_ context.Context, sessionID string, t ledger.Transaction) error {
	return s.update(sessionID, func(gs *ledger.GameSession) error {
		gs.Transactions = append(gs.Transactions, t)
		return nil
	})
}

func (s *Store) DeleteTransaction(_ context.Context, sessionID, txID string) error {
	return s.update(sessionID, func(gs *ledger.GameSession) error {
		i := slices.IndexFunc(gs.Transactions, func(t ledger.Transaction) bool { return t.ID == txID })
		if i < 0 {
			return db.ErrNotFound
		}
		gs.Transactions = slices.Delete(gs.Transactions, i, i+1)
		return nil
	})
}

func (s *Store) SetFinalChips(_ context.Context, sessionID, playerID string, chips ledger.Cents) error {
	return s.update(sessionID, func(gs *ledger.GameSession) error {
		if !gs.HasPlayer(playerID) {
			return db.ErrNotFound
		}
		gs.PlayerStates[playerID] = ledger.PlayerState{FinalChips: &chips}
		return nil
	})
}

func (s *Store) SetSessionStatus(_ context.Context, sessionID string, active bool, endTime *time.Time) error {
	return s.update(sessionID, func(gs *ledger.GameSession) error {
		gs.IsActive = active
		gs.EndTime = nil
		if endTime != nil {
			t := *endTime
			gs.EndTime = &t
		}
		return nil
	})
}

func (s *Store) SetPayoutTasks(_ context.Context, sessionID string, tasks []db.PayoutTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*task
	for _, t := range tasks {
		if t.Amount <= 0 || t.PayerID == "" || t.PayeeID == "" {
			continue
		}
		out = append(out, &task{PayoutTask: t})
	}
	s.tasks[sessionID] = out
	return nil
}

func (s *Store) ListPendingPayoutTasks(_ context.Context, sessionID string) ([]db.PayoutTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []db.PayoutTask
	for _, t := range s.tasks[sessionID] {
		if !t.completed {
			out = append(out, t.PayoutTask)
		}
	}
	return out, nil
}

func (s *Store) RecordPayoutPayment(_ context.Context, sessionID, payerID, payeeID string, amount ledger.Cents, _, _ string) (ledger.Cents, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*task
	for _, t := range s.tasks[sessionID] {
		if !t.completed && t.PayerID == payerID && t.PayeeID == payeeID {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return 0, db.ErrNotFound
	}
	left := amount
	for _, t := range pending {
		if left <= 0 {
			break
		}
		if left >= t.Amount {
			left -= t.Amount
			t.completed = true
			continue
		}
		t.Amount -= left
		left = 0
	}
	var remaining ledger.Cents
	for _, t := range pending {
		if !t.completed {
			remaining += t.Amount
		}
	}
	return remaining, nil
}

func (s *Store) UpsertReminder(_ context.Context, sessionID string, enabled bool, intervalMinutes int, nextDueAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return db.ErrNotFound
	}
	r, ok := s.reminders[sessionID]
	if !ok {
		r = &reminder{}
		s.reminders[sessionID] = r
	}
	r.enabled = enabled
	r.intervalMinutes = intervalMinutes
	if nextDueAt != nil {
		r.nextDueAt = nextDueAt
	}
	return nil
}

func (s *Store) DueReminders(_ context.Context, now time.Time) ([]db.ReminderDue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []db.ReminderDue
	for sessionID, r := range s.reminders {
		if !r.enabled || (r.nextDueAt != nil && r.nextDueAt.After(now)) {
			continue
		}
		g, ok := s.groups[s.sessions[sessionID].GroupID]
		if !ok || g.ChannelID == nil {
			continue
		}
		if !slices.ContainsFunc(s.tasks[sessionID], func(t *task) bool { return !t.completed }) {
			continue
		}
		out = append(out, db.ReminderDue{SessionID: sessionID, ChannelID: *g.ChannelID, IntervalMinutes: r.intervalMinutes})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}

func (s *Store) MarkReminderSent(_ context.Context, sessionID string, sentAt time.Time, nextDue time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reminders[sessionID]; ok {
		r.lastSentAt, r.nextDueAt = &sentAt, &nextDue
	}
	return nil
}

func (s *Store) DelayReminder(_ context.Context, sessionID string, nextDue time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reminders[sessionID]; ok {
		r.nextDueAt = &nextDue
	}
	return nil
}
