package bot

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/chipledger/internal/commands"
	"github.com/susu3304/chipledger/internal/poker"
)

type Bot struct {
	session  *discordgo.Session
	poker    *commands.Poker
	reminder *reminderWorker
}

// New creates a bot answering /poker. Finished sessions with unpaid payouts
// are reminded through reminders.
func New(token string, svc *poker.Service, reminders ReminderStore, f commands.Formatter) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session: session,
		poker:   commands.NewPoker(svc, f),
	}
	bot.reminder = newReminderWorker(session, reminders, svc, f)

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onGuildCreate)
	session.AddHandler(bot.onInteractionCreate)

	session.Identify.Intents = discordgo.IntentsGuilds

	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.reminder.start()
	log.Println("Discord bot is running")
	return nil
}

func (b *Bot) Stop() error {
	b.reminder.stop()
	return b.session.Close()
}
