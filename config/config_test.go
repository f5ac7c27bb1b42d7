package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TWITCH_BOT_USERNAME", "BotName")
	t.Setenv("TWITCH_BOT_OAUTH", "oauth:abc")
	t.Setenv("BOT_OPERATOR", "")
	t.Setenv("DB_DSN", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("MATCH_POLL_INTERVAL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BotUsername != "botname" {
		t.Errorf("BotUsername = %q, want lowercased", cfg.BotUsername)
	}
	if cfg.BotOperator != "botname" {
		t.Errorf("BotOperator = %q, want to default to bot username", cfg.BotOperator)
	}
	if cfg.PollInterval != 5*time.Minute {
		t.Errorf("PollInterval = %v, want 5m", cfg.PollInterval)
	}
	if cfg.StaggerDelay != 20*time.Second || cfg.RetryDelay != 20*time.Second {
		t.Errorf("stagger/retry = %v/%v, want 20s/20s", cfg.StaggerDelay, cfg.RetryDelay)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.DBDsn == "" {
		t.Error("DBDsn should default to local postgres")
	}
	if err := cfg.ValidateChatReady(); err != nil {
		t.Errorf("ValidateChatReady: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MATCH_POLL_INTERVAL", "2m")
	t.Setenv("MATCH_POLL_STAGGER", "5s")
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("TWITCH_REFRESH_TOKEN", "refresh123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollInterval != 2*time.Minute {
		t.Errorf("PollInterval = %v, want 2m", cfg.PollInterval)
	}
	if cfg.StaggerDelay != 5*time.Second {
		t.Errorf("StaggerDelay = %v, want 5s", cfg.StaggerDelay)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q, want :9999", cfg.HTTPAddr)
	}
	if cfg.TwitchRefreshToken != "refresh123" {
		t.Errorf("TwitchRefreshToken = %q, want refresh123", cfg.TwitchRefreshToken)
	}
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("MATCH_POLL_INTERVAL", "not-a-duration")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollInterval != 5*time.Minute {
		t.Errorf("PollInterval = %v, want default on bad value", cfg.PollInterval)
	}
}

func TestValidateChatReadyMissingCreds(t *testing.T) {
	t.Setenv("TWITCH_BOT_USERNAME", "")
	t.Setenv("TWITCH_BOT_OAUTH", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.ValidateChatReady(); err == nil {
		t.Error("ValidateChatReady should fail without creds")
	}
}

func TestIsVIP(t *testing.T) {
	t.Setenv("VIP_USERS", "Alice, bob ,CAROL")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, v := range []string{"alice", "BOB", "Carol"} {
		if !cfg.IsVIP(v) {
			t.Errorf("IsVIP(%q) = false, want true", v)
		}
	}
	if cfg.IsVIP("dave") {
		t.Error("IsVIP(dave) = true, want false")
	}
}
