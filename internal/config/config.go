// Package config defines the top-level configuration for the debate arena
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARENA_* environment variables.
type Config struct {
	Postgres    PostgresConfig    `toml:"postgres"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Gateway     GatewayConfig     `toml:"gateway"`
	Matchmaking MatchmakingConfig `toml:"matchmaking"`
	Debate      DebateConfig      `toml:"debate"`
	Ownership   OwnershipConfig   `toml:"ownership"`
	Server      ServerConfig      `toml:"server"`
	Notify      NotifyConfig      `toml:"notify"`
	Secrets     SecretsConfig     `toml:"secrets"`

	// Coordination selects the backend for queues, leases, locks, and the
	// signal bus: "redis" for multi-instance deployments, "memory" for a
	// single process.
	Coordination string `toml:"coordination"`
	Mode         string `toml:"mode"`
	LogLevel     string `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for transcript
// archival. Archival is disabled when Enabled is false.
type S3Config struct {
	Enabled        bool     `toml:"enabled"`
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	UseSSL         bool     `toml:"use_ssl"`
	ForcePathStyle bool     `toml:"force_path_style"`
	ArchiveEvery   duration `toml:"archive_every"`
}

// GatewayConfig holds bot-invocation timing parameters.
type GatewayConfig struct {
	InvokeTimeout duration `toml:"invoke_timeout"`
	ProbeTimeout  duration `toml:"probe_timeout"`
}

// MatchmakingConfig holds queue pairing parameters.
type MatchmakingConfig struct {
	MinWindow      int      `toml:"min_window"`
	MaxWindow      int      `toml:"max_window"`
	WindowGrowth   int      `toml:"window_growth"`
	GrowthInterval duration `toml:"growth_interval"`
	MaxStakeSpread float64  `toml:"max_stake_spread"`
	EntryTTL       duration `toml:"entry_ttl"`
	MatchTick      duration `toml:"match_tick"`
}

// DebateConfig holds debate engine and wagering parameters.
type DebateConfig struct {
	// TieBreak decides drawn rounds: "pro", "con", or "defender".
	TieBreak string `toml:"tie_break"`
	// FeeBps is the platform fee on settled wagers in basis points (max 1000).
	FeeBps int `toml:"fee_bps"`
	// VoteRateLimit caps votes per voter per VoteRateWindow.
	VoteRateLimit  int      `toml:"vote_rate_limit"`
	VoteRateWindow duration `toml:"vote_rate_window"`
}

// OwnershipConfig holds debate lease parameters. InstanceID defaults to a
// random id at startup when empty.
type OwnershipConfig struct {
	InstanceID string   `toml:"instance_id"`
	LeaseTTL   duration `toml:"lease_ttl"`
	RenewEvery duration `toml:"renew_every"`
	StaleAfter duration `toml:"stale_after"`
}

// duration wraps time.Duration with TOML text (de)serialization.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port          int      `toml:"port"`
	CORSOrigins   []string `toml:"cors_origins"`
	APIKey        string   `toml:"api_key"`
	RequestLimit  int      `toml:"request_limit"`
	RequestWindow duration `toml:"request_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// SecretsConfig holds the passphrase protecting participant credentials at
// rest.
type SecretsConfig struct {
	SealPassphrase string `toml:"seal_passphrase"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "debatearena",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arena-transcripts",
			ForcePathStyle: true,
			ArchiveEvery:   duration{time.Hour},
		},
		Gateway: GatewayConfig{
			InvokeTimeout: duration{30 * time.Second},
			ProbeTimeout:  duration{5 * time.Second},
		},
		Matchmaking: MatchmakingConfig{
			MinWindow:      50,
			MaxWindow:      500,
			WindowGrowth:   25,
			GrowthInterval: duration{10 * time.Second},
			MaxStakeSpread: 0.20,
			EntryTTL:       duration{15 * time.Minute},
			MatchTick:      duration{5 * time.Second},
		},
		Debate: DebateConfig{
			TieBreak:       "defender",
			FeeBps:         1000,
			VoteRateLimit:  10,
			VoteRateWindow: duration{time.Minute},
		},
		Ownership: OwnershipConfig{
			LeaseTTL:   duration{5 * time.Minute},
			RenewEvery: duration{2 * time.Minute},
			StaleAfter: duration{10 * time.Minute},
		},
		Server: ServerConfig{
			Port:          8080,
			RequestWindow: duration{time.Minute},
		},
		Coordination: "redis",
		Mode:         "full",
		LogLevel:     "info",
	}
}

var validModes = map[string]bool{
	"api":          true,
	"orchestrator": true,
	"full":         true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validTieBreaks = map[string]bool{
	"pro":      true,
	"con":      true,
	"defender": true,
}

var validCoordination = map[string]bool{
	"redis":  true,
	"memory": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: api, orchestrator, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Coordination backend
	if !validCoordination[strings.ToLower(c.Coordination)] {
		errs = append(errs, fmt.Sprintf("unknown coordination backend %q (valid: redis, memory)", c.Coordination))
	}
	if strings.ToLower(c.Coordination) == "redis" && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when coordination = redis")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// S3 (only when archival is enabled)
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	// Matchmaking
	if c.Matchmaking.MinWindow <= 0 {
		errs = append(errs, "matchmaking: min_window must be > 0")
	}
	if c.Matchmaking.MaxWindow < c.Matchmaking.MinWindow {
		errs = append(errs, "matchmaking: max_window must be >= min_window")
	}
	if c.Matchmaking.MaxStakeSpread < 0 || c.Matchmaking.MaxStakeSpread > 1 {
		errs = append(errs, fmt.Sprintf("matchmaking: max_stake_spread must be in [0, 1], got %g", c.Matchmaking.MaxStakeSpread))
	}

	// Debate
	if !validTieBreaks[strings.ToLower(c.Debate.TieBreak)] {
		errs = append(errs, fmt.Sprintf("debate: unknown tie_break %q (valid: pro, con, defender)", c.Debate.TieBreak))
	}
	if c.Debate.FeeBps < 0 || c.Debate.FeeBps > 1000 {
		errs = append(errs, fmt.Sprintf("debate: fee_bps must be 0-1000, got %d", c.Debate.FeeBps))
	}
	if c.Debate.VoteRateLimit < 1 {
		errs = append(errs, "debate: vote_rate_limit must be >= 1")
	}

	// Ownership
	if c.Ownership.LeaseTTL.Duration <= 0 {
		errs = append(errs, "ownership: lease_ttl must be > 0")
	}
	if c.Ownership.RenewEvery.Duration <= 0 || c.Ownership.RenewEvery.Duration >= c.Ownership.LeaseTTL.Duration {
		errs = append(errs, "ownership: renew_every must be > 0 and less than lease_ttl")
	}
	if c.Ownership.StaleAfter.Duration < c.Ownership.LeaseTTL.Duration {
		errs = append(errs, "ownership: stale_after must be >= lease_ttl")
	}

	// Server (only relevant in api/full modes)
	mode := strings.ToLower(c.Mode)
	if mode == "api" || mode == "full" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Secrets
	if c.Secrets.SealPassphrase == "" {
		errs = append(errs, "secrets: seal_passphrase must not be empty")
	}

	// Notify — telegram needs both token and chat id.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
