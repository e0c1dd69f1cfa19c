package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/arenalabs/debatearena/internal/blob/s3"
	"github.com/arenalabs/debatearena/internal/cache/memory"
	"github.com/arenalabs/debatearena/internal/cache/redis"
	"github.com/arenalabs/debatearena/internal/config"
	"github.com/arenalabs/debatearena/internal/crypto"
	"github.com/arenalabs/debatearena/internal/domain"
	"github.com/arenalabs/debatearena/internal/gateway"
	"github.com/arenalabs/debatearena/internal/matchmaking"
	"github.com/arenalabs/debatearena/internal/notify"
	"github.com/arenalabs/debatearena/internal/service"
	"github.com/arenalabs/debatearena/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	DebateStore      domain.DebateStore
	MessageStore     domain.MessageStore
	WagerStore       domain.WagerStore
	ParticipantStore domain.ParticipantStore // seals credentials at rest
	TopicStore       domain.TopicStore

	// Coordination
	LeaseStore  domain.LeaseStore
	QueueStore  domain.QueueStore
	LockManager domain.LockManager // nil in memory coordination
	SignalBus   domain.SignalBus
	RateLimiter domain.RateLimiter

	// Blob storage (nil unless s3.enabled)
	BlobWriter domain.BlobWriter
	Archiver   *s3blob.TranscriptArchiver

	// External agents and operators
	Gateway  *gateway.Gateway
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (all modes persist debates) ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.DebateStore = postgres.NewDebateStore(pool)
	deps.MessageStore = postgres.NewMessageStore(pool)
	deps.WagerStore = postgres.NewWagerStore(pool)
	deps.TopicStore = postgres.NewTopicStore(pool)

	// Participant credentials are sealed before they reach the database and
	// opened on the way out.
	sealer, err := crypto.NewSealer(cfg.Secrets.SealPassphrase)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: sealer: %w", err)
	}
	deps.ParticipantStore = service.NewCredentialStore(postgres.NewParticipantStore(pool), sealer)

	// --- Coordination: redis for fleets, memory for a single process ---
	switch strings.ToLower(cfg.Coordination) {
	case "memory":
		deps.LeaseStore = memory.NewLeaseStore()
		deps.QueueStore = matchmaking.NewMemoryQueueStore()
		deps.SignalBus = memory.NewSignalBus()
		deps.RateLimiter = memory.NewRateLimiter()
		// No lock manager: a single instance never races itself on the
		// matchmaking cycle.
	default:
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.LeaseStore = redis.NewLeaseStore(redisClient)
		deps.QueueStore = redis.NewQueueStore(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- S3 transcript archival (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewTranscriptArchiver(
			deps.BlobWriter,
			deps.DebateStore,
			deps.MessageStore,
			logger,
		)
	}

	// --- Bot invocation gateway ---
	deps.Gateway = gateway.New(gateway.Config{
		InvokeTimeout: cfg.Gateway.InvokeTimeout.Duration,
		ProbeTimeout:  cfg.Gateway.ProbeTimeout.Duration,
	}, logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
