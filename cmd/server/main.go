package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/reactboard/internal/adapter/discord"
	"github.com/pscheid92/reactboard/internal/adapter/httpserver"
	"github.com/pscheid92/reactboard/internal/adapter/metrics"
	"github.com/pscheid92/reactboard/internal/adapter/postgres"
	"github.com/pscheid92/reactboard/internal/adapter/redis"
	"github.com/pscheid92/reactboard/internal/adapter/sqlite"
	"github.com/pscheid92/reactboard/internal/app"
	"github.com/pscheid92/reactboard/internal/domain"
	"github.com/pscheid92/reactboard/internal/platform/config"
	"github.com/pscheid92/reactboard/internal/platform/logging"
	"github.com/pscheid92/reactboard/internal/platform/retry"
	"github.com/pscheid92/reactboard/internal/platform/version"
	goredis "github.com/redis/go-redis/v9"
)

const (
	connectTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

var connectRetry = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: time.Second,
	MaxBackoff:     8 * time.Second,
}

// mappingStore is the store as main sees it: the domain contract plus a liveness probe.
type mappingStore interface {
	domain.MappingStore
	Ping(ctx context.Context) error
}

type storeResult struct {
	store mappingStore
	close func()
}

type collectors struct {
	sync      *metrics.SyncMetrics
	store     *metrics.StoreMetrics
	publisher *metrics.PublisherMetrics
	breaker   *metrics.BreakerMetrics
	http      *metrics.HTTPMetrics
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func logRetry(component string) func(int, error, time.Duration) {
	return func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Connection attempt failed, retrying", "component", component, "attempt", attempt, "backoff", backoff, "error", err)
	}
}

func setupPostgres(ctx context.Context, cfg *config.Config, m *metrics.StoreMetrics) storeResult {
	policy := connectRetry
	policy.OnRetry = logRetry("postgres")

	pool, err := retry.Do(ctx, policy, func(error) retry.Action { return retry.Retry }, func(ctx context.Context) (*pgxpool.Pool, error) {
		return postgres.Connect(ctx, cfg.DatabaseURL, postgres.NewMetricsTracer(m))
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return storeResult{store: postgres.NewMappingRepo(pool), close: pool.Close}
}

func setupSQLite(ctx context.Context, cfg *config.Config, clock clockwork.Clock) storeResult {
	db, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		slog.Error("Failed to open SQLite database", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	return storeResult{
		store: sqlite.NewMappingRepo(db, clock),
		close: func() { closeDB(db) },
	}
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
}

func setupStore(ctx context.Context, cfg *config.Config, m *metrics.StoreMetrics, clock clockwork.Clock) storeResult {
	if cfg.StoreDriver == config.StoreDriverSQLite {
		return setupSQLite(ctx, cfg, clock)
	}
	return setupPostgres(ctx, cfg, m)
}

// setupLocker returns the in-process locker unless REDIS_URL is set. The returned
// client is nil in the in-process case.
func setupLocker(ctx context.Context, cfg *config.Config, c collectors, clock clockwork.Clock) (domain.ReferenceLocker, *goredis.Client) {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, using in-process reference locks")
		return app.NewKeyedLocker(), nil
	}

	policy := connectRetry
	policy.OnRetry = logRetry("redis")

	rdb, err := retry.Do(ctx, policy, func(error) retry.Action { return retry.Retry }, func(ctx context.Context) (*goredis.Client, error) {
		return redis.NewClient(ctx, cfg.RedisURL,
			redis.NewMetricsHook(c.store),
			redis.NewCircuitBreakerHook(c.breaker),
		)
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	// A lock never outlives the event that took it.
	return redis.NewReferenceLocker(rdb, cfg.EventTimeout, clock), rdb
}

func setupDiscord(cfg *config.Config) (*discordgo.Session, discord.Webhook) {
	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		slog.Error("Failed to create Discord session", "error", err)
		os.Exit(1)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuildMessageReactions

	webhook, err := discord.ParseWebhookURL(cfg.DiscordWebhookURL)
	if err != nil {
		slog.Error("Invalid Discord webhook URL", "error", err)
		os.Exit(1)
	}

	return session, webhook
}

// trackGateway keeps ready in sync with the gateway connection state.
func trackGateway(session *discordgo.Session, ready *atomic.Bool) func() {
	removers := []func(){
		session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
			ready.Store(true)
			slog.Info("Discord gateway ready", "user", r.User.Username, "guilds", len(r.Guilds))
		}),
		session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
			ready.Store(true)
			slog.Info("Discord gateway resumed")
		}),
		session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
			ready.Store(false)
			slog.Warn("Discord gateway disconnected")
		}),
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

func healthChecks(store mappingStore, rdb *goredis.Client, gatewayReady *atomic.Bool) []httpserver.HealthCheck {
	checks := []httpserver.HealthCheck{
		{Name: "store", Check: store.Ping},
		{Name: "discord", Check: func(context.Context) error {
			if !gatewayReady.Load() {
				return errors.New("gateway not connected")
			}
			return nil
		}},
	}
	if rdb != nil {
		checks = append(checks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return checks
}

type shutdownDeps struct {
	srv            *httpserver.Server
	session        *discordgo.Session
	removeHandlers []func()
	dispatcher     *app.Dispatcher
}

// runGracefulShutdown stops intake first, then drains queued events, then the HTTP surface.
func runGracefulShutdown(deps shutdownDeps) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		for _, remove := range deps.removeHandlers {
			remove()
		}
		if err := deps.session.Close(); err != nil {
			slog.Error("Failed to close Discord session", "error", err)
		}

		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := deps.dispatcher.Stop(drainCtx); err != nil {
			slog.Error("Dispatcher did not drain in time", "error", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := deps.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "store", cfg.StoreDriver, "version", version.Get().String())

	reg := metrics.NewRegistry()
	c := collectors{
		sync:      metrics.NewSyncMetrics(reg),
		store:     metrics.NewStoreMetrics(reg),
		publisher: metrics.NewPublisherMetrics(reg),
		breaker:   metrics.NewBreakerMetrics(reg),
		http:      metrics.NewHTTPMetrics(reg),
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), connectTimeout)
	defer cancelConnect()

	st := setupStore(connectCtx, cfg, c.store, clock)
	defer st.close()

	locker, rdb := setupLocker(connectCtx, cfg, c, clock)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	session, webhook := setupDiscord(cfg)
	publisher := discord.NewPublisher(session, webhook, cfg.PublishRate, c.publisher, c.breaker)

	settings := domain.BoardSettings{
		GuildID:        cfg.GuildID,
		BoardChannelID: cfg.BoardChannelID,
		Threshold:      cfg.MinReactionCount,
	}
	syncer := app.NewSynchronizer(app.SyncConfig{
		Settings:     settings,
		StoreTimeout: cfg.StoreTimeout,
		LockTimeout:  cfg.LockTimeout,
	}, st.store, locker, publisher, c.sync, clock)

	dispatcher := app.NewDispatcher(app.DispatcherConfig{
		Workers:      cfg.Workers,
		QueueSize:    cfg.QueueSize,
		EventTimeout: cfg.EventTimeout,
	}, syncer, c.sync)
	dispatcher.Start(context.Background())

	ingress := discord.NewIngress(discord.IngressConfig{
		GuildID:        cfg.GuildID,
		BoardChannelID: cfg.BoardChannelID,
	}, session, dispatcher, c.sync)

	var gatewayReady atomic.Bool
	removeHandlers := []func(){
		ingress.Register(session),
		trackGateway(session, &gatewayReady),
	}

	if err := session.Open(); err != nil {
		slog.Error("Failed to open Discord gateway", "error", err)
		os.Exit(1)
	}

	srv := httpserver.NewServer(httpserver.Config{
		Port:         cfg.Port,
		APIRate:      cfg.APIRate,
		APIBurst:     cfg.APIBurst,
		StoreTimeout: cfg.StoreTimeout,
	}, st.store, metrics.Handler(reg), c.http, healthChecks(st.store, rdb, &gatewayReady))

	done := runGracefulShutdown(shutdownDeps{
		srv:            srv,
		session:        session,
		removeHandlers: removeHandlers,
		dispatcher:     dispatcher,
	})

	if err := srv.Start(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
