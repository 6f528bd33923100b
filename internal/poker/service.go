// Package poker runs poker sessions on top of a Store: it records money
// movements, closes and reopens sessions, and turns the ledger into reports,
// payout plans and player statistics.
package poker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/susu3304/chipledger/internal/db"
	"github.com/susu3304/chipledger/internal/ledger"
)

var (
	ErrNotFound     = db.ErrNotFound
	ErrConflict     = db.ErrConflict
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	// ErrDiscrepancy is returned when a session is finished while its chip
	// count does not match the money in play and the caller did not force it.
	ErrDiscrepancy = errors.New("chip count does not match money in play")
)

// Store is the persistence the service needs. *db.DB and *memstore.Store
// implement it.
type Store interface {
	CreateGroup(ctx context.Context, g db.Group) error
	GetGroup(ctx context.Context, id string) (*db.Group, error)
	ListGroups(ctx context.Context, ownerID string) ([]db.Group, error)
	LinkChannel(ctx context.Context, groupID string, guildID int64, channelID string) error
	GroupByChannel(ctx context.Context, channelID string) (*db.Group, error)

	AddPlayer(ctx context.Context, groupID string, p ledger.Player) error
	ListPlayers(ctx context.Context, groupID string) ([]ledger.Player, error)

	CreateSession(ctx context.Context, s ledger.GameSession) error
	GetSession(ctx context.Context, id string) (*ledger.GameSession, error)
	ListSessions(ctx context.Context, groupID string) ([]ledger.GameSession, error)
	LatestSession(ctx context.Context, groupID string) (*ledger.GameSession, error)
	AddSessionPlayer(ctx context.Context, sessionID, playerID string, buyIn *ledger.Transaction) error
	InsertTransaction(ctx context.Context, sessionID string, t ledger.Transaction) error
	DeleteTransaction(ctx context.Context, sessionID, txID string) error
	SetFinalChips(ctx context.Context, sessionID, playerID string, chips ledger.Cents) error
	SetSessionStatus(ctx context.Context, sessionID string, active bool, endTime *time.Time) error

	SetPayoutTasks(ctx context.Context, sessionID string, tasks []db.PayoutTask) error
	ListPendingPayoutTasks(ctx context.Context, sessionID string) ([]db.PayoutTask, error)
	RecordPayoutPayment(ctx context.Context, sessionID, payerID, payeeID string, amount ledger.Cents, memo, recordedBy string) (ledger.Cents, error)
	UpsertReminder(ctx context.Context, sessionID string, enabled bool, intervalMinutes int, nextDueAt *time.Time) error
}

type Service struct {
	store            Store
	reminderInterval time.Duration
	now              func() time.Time
	newID            func() string
}

// NewService returns a service backed by store. Finished sessions get a
// payout reminder every reminderInterval; zero disables reminders.
func NewService(store Store, reminderInterval time.Duration) *Service {
	return &Service{
		store:            store,
		reminderInterval: reminderInterval,
		now:              time.Now,
		newID:            uuid.NewString,
	}
}

func (s *Service) CreateGroup(ctx context.Context, ownerID, name string) (*db.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" || ownerID == "" {
		return nil, fmt.Errorf("%w: group name is required", ErrInvalidInput)
	}
	g := db.Group{ID: s.newID(), Name: name, OwnerID: ownerID, CreatedAt: s.now().UTC()}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return &g, nil
}

func (s *Service) Groups(ctx context.Context, ownerID string) ([]db.Group, error) {
	return s.store.ListGroups(ctx, ownerID)
}

// Group returns a group if userID owns it.
func (s *Service) Group(ctx context.Context, userID, groupID string) (*db.Group, error) {
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.OwnerID != userID {
		return nil, ErrForbidden
	}
	return g, nil
}

func (s *Service) LinkChannel(ctx context.Context, groupID string, guildID int64, channelID string) error {
	return s.store.LinkChannel(ctx, groupID, guildID, channelID)
}

func (s *Service) GroupByChannel(ctx context.Context, channelID string) (*db.Group, error) {
	return s.store.GroupByChannel(ctx, channelID)
}

const maxNameLen = 64

func (s *Service) AddPlayer(ctx context.Context, groupID, name string) (ledger.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ledger.Player{}, fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return ledger.Player{}, fmt.Errorf("%w: player name is longer than %d characters", ErrInvalidInput, maxNameLen)
	}
	if strings.EqualFold(name, ledger.Bank) {
		return ledger.Player{}, fmt.Errorf("%w: %q is reserved", ErrInvalidInput, name)
	}
	p := ledger.Player{ID: s.newID(), Name: name}
	if err := s.store.AddPlayer(ctx, groupID, p); err != nil {
		return ledger.Player{}, fmt.Errorf("failed to add player: %w", err)
	}
	return p, nil
}

func (s *Service) Players(ctx context.Context, groupID string) ([]ledger.Player, error) {
	return s.store.ListPlayers(ctx, groupID)
}

// PlayerByName finds a group player by case-insensitive name.
func (s *Service) PlayerByName(ctx context.Context, groupID, name string) (ledger.Player, error) {
	players, err := s.store.ListPlayers(ctx, groupID)
	if err != nil {
		return ledger.Player{}, err
	}
	for _, p := range players {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return ledger.Player{}, fmt.Errorf("%w: player %q", ErrNotFound, name)
}

func (s *Service) groupPlayer(ctx context.Context, groupID, playerID string) (ledger.Player, error) {
	players, err := s.store.ListPlayers(ctx, groupID)
	if err != nil {
		return ledger.Player{}, err
	}
	for _, p := range players {
		if p.ID == playerID {
			return p, nil
		}
	}
	return ledger.Player{}, fmt.Errorf("%w: player %s", ErrNotFound, playerID)
}
