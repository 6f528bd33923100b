package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/susu3304/chipledger/internal/ledger"
)

func centsPtr(v *int64) *ledger.Cents {
	if v == nil {
		return nil
	}
	c := ledger.Cents(*v)
	return &c
}

func int64Ptr(c *ledger.Cents) *int64 {
	if c == nil {
		return nil
	}
	v := int64(*c)
	return &v
}

// CreateSession inserts a session with its roster and initial transactions.
func (db *DB) CreateSession(ctx context.Context, s ledger.GameSession) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO game_sessions (id, group_id, start_time, end_time, is_active, chip_value)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.GroupID, s.StartTime, s.EndTime, s.IsActive, int64Ptr(s.ChipValue),
	); err != nil {
		return mapErr(err)
	}
	for i, p := range s.Players {
		if err := insertSessionPlayer(ctx, tx, s.ID, p.ID, i); err != nil {
			return err
		}
	}
	for _, t := range s.Transactions {
		if err := insertTransaction(ctx, tx, s.ID, t); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertSessionPlayer(ctx context.Context, tx execer, sessionID, playerID string, position int) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO session_players (session_id, player_id, position) VALUES ($1, $2, $3)`,
		sessionID, playerID, position,
	)
	return mapErr(err)
}

func insertTransaction(ctx context.Context, tx execer, sessionID string, t ledger.Transaction) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO transactions (id, session_id, ts, type, from_id, to_id, amount)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, sessionID, t.Timestamp, string(t.Type), t.FromID, t.ToID, int64(t.Amount),
	)
	return mapErr(err)
}

// AddSessionPlayer appends a player to the roster, optionally together with
// their first buy-in.
func (db *DB) AddSessionPlayer(ctx context.Context, sessionID, playerID string, buyIn *ledger.Transaction) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var position int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM session_players WHERE session_id = $1`,
		sessionID,
	).Scan(&position); err != nil {
		return err
	}
	if err := insertSessionPlayer(ctx, tx, sessionID, playerID, position); err != nil {
		return err
	}
	if buyIn != nil {
		if err := insertTransaction(ctx, tx, sessionID, *buyIn); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (db *DB) InsertTransaction(ctx context.Context, sessionID string, t ledger.Transaction) error {
	return insertTransaction(ctx, db.pool, sessionID, t)
}

func (db *DB) DeleteTransaction(ctx context.Context, sessionID, txID string) error {
	ct, err := db.pool.Exec(ctx,
		`DELETE FROM transactions WHERE session_id = $1 AND id = $2`,
		sessionID, txID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) SetFinalChips(ctx context.Context, sessionID, playerID string, chips ledger.Cents) error {
	ct, err := db.pool.Exec(ctx,
		`UPDATE session_players SET final_chips = $3 WHERE session_id = $1 AND player_id = $2`,
		sessionID, playerID, int64(chips),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSessionStatus closes or reopens a session.
func (db *DB) SetSessionStatus(ctx context.Context, sessionID string, active bool, endTime *time.Time) error {
	ct, err := db.pool.Exec(ctx,
		`UPDATE game_sessions SET is_active = $2, end_time = $3 WHERE id = $1`,
		sessionID, active, endTime,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSession loads a session with its roster, ledger and counts.
func (db *DB) GetSession(ctx context.Context, id string) (*ledger.GameSession, error) {
	sessions, err := db.loadSessions(ctx, "s.id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrNotFound
	}
	return &sessions[0], nil
}

// ListSessions returns every session of a group, oldest first.
func (db *DB) ListSessions(ctx context.Context, groupID string) ([]ledger.GameSession, error) {
	return db.loadSessions(ctx, "s.group_id = $1", groupID)
}

// LatestSession returns the most recently started session of a group.
func (db *DB) LatestSession(ctx context.Context, groupID string) (*ledger.GameSession, error) {
	var id string
	err := db.pool.QueryRow(ctx,
		`SELECT id FROM game_sessions WHERE group_id = $1 ORDER BY start_time DESC, id DESC LIMIT 1`,
		groupID,
	).Scan(&id)
	if err != nil {
		return nil, mapErr(err)
	}
	return db.GetSession(ctx, id)
}

// loadSessions assembles sessions matching where in three queries: sessions,
// rosters and transactions.
func (db *DB) loadSessions(ctx context.Context, where string, arg any) ([]ledger.GameSession, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT s.id, s.group_id, s.start_time, s.end_time, s.is_active, s.chip_value
		 FROM game_sessions s WHERE `+where+` ORDER BY s.start_time, s.id`,
		arg,
	)
	if err != nil {
		return nil, err
	}
	var out []ledger.GameSession
	index := make(map[string]int)
	for rows.Next() {
		var s ledger.GameSession
		var chipValue *int64
		if err := rows.Scan(&s.ID, &s.GroupID, &s.StartTime, &s.EndTime, &s.IsActive, &chipValue); err != nil {
			rows.Close()
			return nil, err
		}
		s.ChipValue = centsPtr(chipValue)
		s.Players = []ledger.Player{}
		s.Transactions = []ledger.Transaction{}
		s.PlayerStates = make(map[string]ledger.PlayerState)
		index[s.ID] = len(out)
		out = append(out, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	rows, err = db.pool.Query(ctx,
		`SELECT sp.session_id, p.id, p.name, sp.final_chips
		 FROM session_players sp
		 JOIN players p ON p.id = sp.player_id
		 JOIN game_sessions s ON s.id = sp.session_id
		 WHERE `+where+` ORDER BY sp.session_id, sp.position`,
		arg,
	)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var sessionID string
		var p ledger.Player
		var final *int64
		if err := rows.Scan(&sessionID, &p.ID, &p.Name, &final); err != nil {
			rows.Close()
			return nil, err
		}
		s := &out[index[sessionID]]
		s.Players = append(s.Players, p)
		if final != nil {
			s.PlayerStates[p.ID] = ledger.PlayerState{FinalChips: centsPtr(final)}
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.pool.Query(ctx,
		`SELECT t.session_id, t.id, t.ts, t.type, t.from_id, t.to_id, t.amount
		 FROM transactions t
		 JOIN game_sessions s ON s.id = t.session_id
		 WHERE `+where+` ORDER BY t.session_id, t.seq`,
		arg,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sessionID, typ string
		var t ledger.Transaction
		var amount int64
		if err := rows.Scan(&sessionID, &t.ID, &t.Timestamp, &typ, &t.FromID, &t.ToID, &amount); err != nil {
			return nil, err
		}
		t.Type = ledger.TxType(typ)
		t.Amount = ledger.Cents(amount)
		s := &out[index[sessionID]]
		s.Transactions = append(s.Transactions, t)
	}
	return out, rows.Err()
}
