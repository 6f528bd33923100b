package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DISCORD_TOKEN", "DATABASE_URL", "WEB_BIND", "DISCORD_CLIENT_ID", "DISCORD_CLIENT_SECRET", "DISCORD_REDIRECT_URI", "JWT_SECRET", "CURRENCY", "REMINDER_INTERVAL_MINUTES"} {
		t.Setenv(key, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WebBind != "0.0.0.0:3000" || cfg.Currency != "USD" || cfg.ReminderInterval != 24*time.Hour {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.WebUIBaseURL != "http://localhost:3000" {
		t.Errorf("WebUIBaseURL = %q", cfg.WebUIBaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CURRENCY", "eur")
	t.Setenv("REMINDER_INTERVAL_MINUTES", "0")
	t.Setenv("DISCORD_CLIENT_ID", "id")
	t.Setenv("DISCORD_CLIENT_SECRET", "secret")
	t.Setenv("DISCORD_REDIRECT_URI", "https://poker.example.com/api/auth/callback")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Currency != "EUR" || cfg.ReminderInterval != 0 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.WebUIBaseURL != "https://poker.example.com" {
		t.Errorf("WebUIBaseURL = %q", cfg.WebUIBaseURL)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad interval", map[string]string{"REMINDER_INTERVAL_MINUTES": "soon"}},
		{"negative interval", map[string]string{"REMINDER_INTERVAL_MINUTES": "-5"}},
		{"client id without secret", map[string]string{"DISCORD_CLIENT_ID": "id", "DISCORD_CLIENT_SECRET": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("REMINDER_INTERVAL_MINUTES", "")
			t.Setenv("DISCORD_CLIENT_ID", "")
			t.Setenv("DISCORD_CLIENT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
