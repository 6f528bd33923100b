package bot

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/chipledger/internal/commands"
	"github.com/susu3304/chipledger/internal/db"
	"github.com/susu3304/chipledger/internal/poker"
)

// ReminderStore schedules payout reminders. *db.DB and *memstore.Store
// implement it.
type ReminderStore interface {
	DueReminders(ctx context.Context, now time.Time) ([]db.ReminderDue, error)
	MarkReminderSent(ctx context.Context, sessionID string, sentAt time.Time, nextDue time.Time) error
	DelayReminder(ctx context.Context, sessionID string, nextDue time.Time) error
}

// reminderWorker periodically posts unpaid payouts to linked channels.
type reminderWorker struct {
	store    ReminderStore
	svc      *poker.Service
	format   commands.Formatter
	session  reminderSession
	stopChan chan struct{}
	ticker   *time.Ticker
	interval time.Duration
}

// Minimal session interface for sending channel messages.
type reminderSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

func newReminderWorker(session reminderSession, store ReminderStore, svc *poker.Service, f commands.Formatter) *reminderWorker {
	return &reminderWorker{
		store:    store,
		svc:      svc,
		format:   f,
		session:  session,
		stopChan: make(chan struct{}),
		interval: time.Minute,
	}
}

func (w *reminderWorker) start() {
	if w == nil {
		return
	}
	w.ticker = time.NewTicker(w.interval)
	go w.loop()
}

func (w *reminderWorker) stop() {
	if w == nil || w.ticker == nil {
		return
	}
	close(w.stopChan)
	w.ticker.Stop()
}

func (w *reminderWorker) loop() {
	ctx := context.Background()
	for {
		select {
		case <-w.ticker.C:
			w.tick(ctx, time.Now())
		case <-w.stopChan:
			return
		}
	}
}

func (w *reminderWorker) tick(ctx context.Context, now time.Time) {
	targets, err := w.store.DueReminders(ctx, now)
	if err != nil {
		log.Printf("reminder: failed to load due reminders: %v", err)
		return
	}

	for _, t := range targets {
		plan, err := w.svc.PayoutPlan(ctx, t.SessionID)
		if err != nil {
			log.Printf("reminder: failed to build message for session %s: %v", t.SessionID, err)
			continue
		}
		msg := commands.ReminderMessage(w.format, plan)
		if msg == "" {
			continue
		}
		autoMsg := msg + "\n\n※このメッセージは自動投稿です"
		if err := w.sendWithRetry(ctx, t.ChannelID, autoMsg); err != nil {
			log.Printf("reminder: failed to send message to channel %s: %v", t.ChannelID, err)
			// Back off so we don't hammer Discord (or a bad edge) every minute.
			backoff := 2 * time.Minute
			if t.IntervalMinutes > 0 {
				backoff = min(backoff, time.Duration(t.IntervalMinutes)*time.Minute)
			}
			if derr := w.store.DelayReminder(ctx, t.SessionID, now.Add(backoff)); derr != nil {
				log.Printf("reminder: failed to delay reminder for session %s: %v", t.SessionID, derr)
			}
			continue
		}
		next := now.Add(time.Duration(t.IntervalMinutes) * time.Minute)
		if err := w.store.MarkReminderSent(ctx, t.SessionID, now, next); err != nil {
			log.Printf("reminder: failed to mark reminder sent for session %s: %v", t.SessionID, err)
		}
	}
}

func (w *reminderWorker) sendWithRetry(ctx context.Context, channelID, content string) error {
	const attemptTimeout = 12 * time.Second
	const maxAttempts = 2

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		_, err := w.session.ChannelMessageSend(channelID, content, discordgo.WithContext(sendCtx))
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTimeout(err) {
			return err
		}
		time.Sleep(time.Duration(300+rand.Intn(500)) * time.Millisecond)
	}
	return lastErr
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
