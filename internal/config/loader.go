package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARENA_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARENA_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ARENA_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARENA_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARENA_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARENA_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARENA_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARENA_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARENA_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARENA_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARENA_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARENA_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ARENA_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARENA_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARENA_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARENA_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARENA_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARENA_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ARENA_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ARENA_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARENA_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARENA_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARENA_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARENA_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ARENA_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARENA_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.ArchiveEvery, "ARENA_S3_ARCHIVE_EVERY")

	// ── Gateway ──
	setDuration(&cfg.Gateway.InvokeTimeout, "ARENA_GATEWAY_INVOKE_TIMEOUT")
	setDuration(&cfg.Gateway.ProbeTimeout, "ARENA_GATEWAY_PROBE_TIMEOUT")

	// ── Matchmaking ──
	setInt(&cfg.Matchmaking.MinWindow, "ARENA_MATCHMAKING_MIN_WINDOW")
	setInt(&cfg.Matchmaking.MaxWindow, "ARENA_MATCHMAKING_MAX_WINDOW")
	setInt(&cfg.Matchmaking.WindowGrowth, "ARENA_MATCHMAKING_WINDOW_GROWTH")
	setDuration(&cfg.Matchmaking.GrowthInterval, "ARENA_MATCHMAKING_GROWTH_INTERVAL")
	setFloat64(&cfg.Matchmaking.MaxStakeSpread, "ARENA_MATCHMAKING_MAX_STAKE_SPREAD")
	setDuration(&cfg.Matchmaking.EntryTTL, "ARENA_MATCHMAKING_ENTRY_TTL")
	setDuration(&cfg.Matchmaking.MatchTick, "ARENA_MATCHMAKING_MATCH_TICK")

	// ── Debate ──
	setStr(&cfg.Debate.TieBreak, "ARENA_DEBATE_TIE_BREAK")
	setInt(&cfg.Debate.FeeBps, "ARENA_DEBATE_FEE_BPS")
	setInt(&cfg.Debate.VoteRateLimit, "ARENA_DEBATE_VOTE_RATE_LIMIT")
	setDuration(&cfg.Debate.VoteRateWindow, "ARENA_DEBATE_VOTE_RATE_WINDOW")

	// ── Ownership ──
	setStr(&cfg.Ownership.InstanceID, "ARENA_OWNERSHIP_INSTANCE_ID")
	setDuration(&cfg.Ownership.LeaseTTL, "ARENA_OWNERSHIP_LEASE_TTL")
	setDuration(&cfg.Ownership.RenewEvery, "ARENA_OWNERSHIP_RENEW_EVERY")
	setDuration(&cfg.Ownership.StaleAfter, "ARENA_OWNERSHIP_STALE_AFTER")

	// ── Server ──
	setInt(&cfg.Server.Port, "ARENA_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARENA_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ARENA_SERVER_API_KEY")
	setInt(&cfg.Server.RequestLimit, "ARENA_SERVER_REQUEST_LIMIT")
	setDuration(&cfg.Server.RequestWindow, "ARENA_SERVER_REQUEST_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARENA_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARENA_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARENA_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARENA_NOTIFY_EVENTS")

	// ── Secrets ──
	setStr(&cfg.Secrets.SealPassphrase, "ARENA_SECRETS_SEAL_PASSPHRASE")

	// ── Top-level ──
	setStr(&cfg.Coordination, "ARENA_COORDINATION")
	setStr(&cfg.Mode, "ARENA_MODE")
	setStr(&cfg.LogLevel, "ARENA_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
