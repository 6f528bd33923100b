package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/susu3304/chipledger/internal/api"
	"github.com/susu3304/chipledger/internal/bot"
	"github.com/susu3304/chipledger/internal/commands"
	"github.com/susu3304/chipledger/internal/config"
	"github.com/susu3304/chipledger/internal/db"
	"github.com/susu3304/chipledger/internal/memstore"
	"github.com/susu3304/chipledger/internal/poker"
)

type store interface {
	poker.Store
	bot.ReminderStore
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var st store
	if cfg.DatabaseURL == "" {
		log.Println("DATABASE_URL not set, keeping data in memory")
		st = memstore.New()
	} else {
		database, err := db.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := database.RunMigrations(context.Background()); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		st = database
	}

	svc := poker.NewService(st, cfg.ReminderInterval)

	// Discord bot is optional
	if cfg.DiscordToken != "" {
		discordBot, err := bot.New(cfg.DiscordToken, svc, st, commands.NewFormatter(cfg.Currency))
		if err != nil {
			log.Fatalf("Failed to create discord bot: %v", err)
		}
		if err := discordBot.Start(); err != nil {
			log.Fatalf("Failed to start discord bot: %v", err)
		}
		defer discordBot.Stop()
	} else {
		log.Println("DISCORD_TOKEN not set, bot disabled")
	}

	// Start API server
	apiServer := api.New(cfg, svc)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("API server error: %v", err)
		}
	}()

	// Wait for signal to stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
}
