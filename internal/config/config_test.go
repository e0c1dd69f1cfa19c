package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Secrets.SealPassphrase = "test-passphrase"
	return cfg
}

func TestDefaultsValidateWithPassphrase(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsMissingPassphrase(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "seal_passphrase") {
		t.Fatalf("err = %v, want seal_passphrase complaint", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "turbo"
	cfg.Debate.TieBreak = "coinflip"
	cfg.Debate.FeeBps = 2000
	cfg.Ownership.RenewEvery = duration{10 * time.Minute} // >= lease_ttl

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"mode", "tie_break", "fee_bps", "renew_every"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestValidateMemoryCoordinationSkipsRedisAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Coordination = "memory"
	cfg.Redis.Addr = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARENA_DEBATE_TIE_BREAK", "con")
	t.Setenv("ARENA_DEBATE_FEE_BPS", "250")
	t.Setenv("ARENA_MATCHMAKING_GROWTH_INTERVAL", "30s")
	t.Setenv("ARENA_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := validConfig()
	applyEnvOverrides(&cfg)

	if cfg.Debate.TieBreak != "con" {
		t.Errorf("tie_break = %q", cfg.Debate.TieBreak)
	}
	if cfg.Debate.FeeBps != 250 {
		t.Errorf("fee_bps = %d", cfg.Debate.FeeBps)
	}
	if cfg.Matchmaking.GrowthInterval.Duration != 30*time.Second {
		t.Errorf("growth_interval = %v", cfg.Matchmaking.GrowthInterval.Duration)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors_origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "pg-secret"
	cfg.Redis.Password = "redis-secret"
	cfg.S3.SecretKey = "s3-secret"
	cfg.Server.APIKey = "api-secret"

	red := RedactedConfig(&cfg)

	for name, got := range map[string]string{
		"postgres password": red.Postgres.Password,
		"redis password":    red.Redis.Password,
		"s3 secret key":     red.S3.SecretKey,
		"server api key":    red.Server.APIKey,
		"seal passphrase":   red.Secrets.SealPassphrase,
	} {
		if got != "***" {
			t.Errorf("%s not redacted: %q", name, got)
		}
	}

	// The original must be untouched.
	if cfg.Postgres.Password != "pg-secret" {
		t.Error("redaction mutated the original config")
	}
}
