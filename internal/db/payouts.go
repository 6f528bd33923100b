package db

import (
	"context"
	"fmt"
	"time"

	"github.com/susu3304/chipledger/internal/ledger"
)

type PayoutTask struct {
	PayerID string       `json:"payer_id"`
	PayeeID string       `json:"payee_id"`
	Amount  ledger.Cents `json:"amount"`
}

type ReminderDue struct {
	SessionID       string
	ChannelID       string
	IntervalMinutes int
}

// SetPayoutTasks replaces the payout tasks of a session.
func (db *DB) SetPayoutTasks(ctx context.Context, sessionID string, tasks []PayoutTask) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM payout_tasks WHERE session_id = $1`, sessionID); err != nil {
		return err
	}
	for _, t := range tasks {
		if t.Amount <= 0 || t.PayerID == "" || t.PayeeID == "" {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO payout_tasks (session_id, payer_id, payee_id, amount, completed)
             VALUES ($1, $2, $3, $4, FALSE)`,
			sessionID, t.PayerID, t.PayeeID, int64(t.Amount),
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListPendingPayoutTasks returns unpaid tasks of a session.
func (db *DB) ListPendingPayoutTasks(ctx context.Context, sessionID string) ([]PayoutTask, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT payer_id, payee_id, amount
		 FROM payout_tasks
		 WHERE session_id = $1 AND completed = FALSE
		 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []PayoutTask
	for rows.Next() {
		var t PayoutTask
		var amount int64
		if err := rows.Scan(&t.PayerID, &t.PayeeID, &amount); err != nil {
			return nil, err
		}
		t.Amount = ledger.Cents(amount)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// RecordPayoutPayment logs a payment and reduces outstanding tasks
// (payer -> payee), oldest first. Returns the remaining unpaid amount for the
// pair after applying the payment.
func (db *DB) RecordPayoutPayment(ctx context.Context, sessionID, payerID, payeeID string, amount ledger.Cents, memo, recordedBy string) (ledger.Cents, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	type pending struct {
		ID     int64
		Amount int64
	}

	rows, err := tx.Query(ctx,
		`SELECT id, amount
		 FROM payout_tasks
		 WHERE session_id = $1 AND completed = FALSE AND payer_id = $2 AND payee_id = $3
		 ORDER BY id FOR UPDATE`,
		sessionID, payerID, payeeID,
	)
	if err != nil {
		return 0, err
	}
	var tasks []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.ID, &p.Amount); err != nil {
			rows.Close()
			return 0, err
		}
		tasks = append(tasks, p)
	}
	rows.Close()
	if len(tasks) == 0 {
		return 0, ErrNotFound
	}

	remainingPayment := int64(amount)
	for _, t := range tasks {
		if remainingPayment <= 0 {
			break
		}
		switch {
		case remainingPayment >= t.Amount:
			remainingPayment -= t.Amount
			if _, err := tx.Exec(ctx,
				`UPDATE payout_tasks
				 SET completed = TRUE, completed_at = COALESCE(completed_at, CURRENT_TIMESTAMP)
				 WHERE id = $1`,
				t.ID,
			); err != nil {
				return 0, err
			}
		default:
			newAmount := t.Amount - remainingPayment
			remainingPayment = 0
			if _, err := tx.Exec(ctx,
				`UPDATE payout_tasks SET amount = $2 WHERE id = $1`,
				t.ID, newAmount,
			); err != nil {
				return 0, err
			}
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO payout_payments (session_id, payer_id, payee_id, amount, memo, recorded_by)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sessionID, payerID, payeeID, int64(amount), memo, recordedBy,
	); err != nil {
		return 0, err
	}

	var remaining int64
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)
		 FROM payout_tasks
		 WHERE session_id = $1 AND completed = FALSE AND payer_id = $2 AND payee_id = $3`,
		sessionID, payerID, payeeID,
	).Scan(&remaining); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return ledger.Cents(remaining), nil
}

// UpsertReminder configures reminders for a session and optionally schedules the next due time.
func (db *DB) UpsertReminder(ctx context.Context, sessionID string, enabled bool, intervalMinutes int, nextDueAt *time.Time) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO payout_reminders (session_id, enabled, interval_minutes, next_due_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id) DO UPDATE
		 SET enabled = EXCLUDED.enabled,
			 interval_minutes = EXCLUDED.interval_minutes,
			 next_due_at = COALESCE(EXCLUDED.next_due_at, payout_reminders.next_due_at)`,
		sessionID, enabled, intervalMinutes, nextDueAt,
	)
	return mapErr(err)
}

// DueReminders returns reminder targets that are due, linked to a channel and
// still have pending tasks.
func (db *DB) DueReminders(ctx context.Context, now time.Time) ([]ReminderDue, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT r.session_id, g.channel_id, r.interval_minutes
		 FROM payout_reminders r
		 JOIN game_sessions s ON s.id = r.session_id
		 JOIN groups g ON g.id = s.group_id
		 WHERE r.enabled = TRUE
		   AND g.channel_id IS NOT NULL
		   AND (r.next_due_at IS NULL OR r.next_due_at <= $1)
		   AND EXISTS (
			 SELECT 1 FROM payout_tasks t
			 WHERE t.session_id = r.session_id AND t.completed = FALSE
		   )`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []ReminderDue
	for rows.Next() {
		var r ReminderDue
		if err := rows.Scan(&r.SessionID, &r.ChannelID, &r.IntervalMinutes); err != nil {
			return nil, err
		}
		targets = append(targets, r)
	}
	return targets, rows.Err()
}

// MarkReminderSent updates reminder schedule timestamps.
func (db *DB) MarkReminderSent(ctx context.Context, sessionID string, sentAt time.Time, nextDue time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE payout_reminders
		 SET last_sent_at = $2, next_due_at = $3
		 WHERE session_id = $1`,
		sessionID, sentAt, nextDue,
	)
	return err
}

// DelayReminder updates next_due_at without touching last_sent_at.
func (db *DB) DelayReminder(ctx context.Context, sessionID string, nextDue time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE payout_reminders
		 SET next_due_at = $2
		 WHERE session_id = $1`,
		sessionID, nextDue,
	)
	return err
}
