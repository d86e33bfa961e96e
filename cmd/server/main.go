package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sofiabaracatlj/fiap-farms/internal/config"
	"github.com/sofiabaracatlj/fiap-farms/internal/dashboard"
	"github.com/sofiabaracatlj/fiap-farms/internal/infra"
	"github.com/sofiabaracatlj/fiap-farms/internal/ledger"
	"github.com/sofiabaracatlj/fiap-farms/internal/middleware"
	"github.com/sofiabaracatlj/fiap-farms/internal/router"
	"github.com/sofiabaracatlj/fiap-farms/internal/service"
	"github.com/sofiabaracatlj/fiap-farms/internal/session"
	"github.com/sofiabaracatlj/fiap-farms/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty in development, JSON in production
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	live := config.NewLive(cfg)
	config.Watch(live)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := infra.InitTracing(cfg.OTelEnabled)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init tracing")
	}

	store, closeStore, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open store")
	}
	defer closeStore()

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
	}

	// ── Locking ──────────────────────────────────────────────────────────────
	var locker infra.KeyLocker = infra.NewLocalLocker()
	if rdb != nil {
		locker = infra.NewRedisLocker(rdb)
	}

	// ── Events and images ────────────────────────────────────────────────────
	var events infra.EventPublisher = infra.NopPublisher{}
	if cfg.PubSubTopic != "" {
		pub, closePub, err := infra.NewPubSubPublisher(ctx, cfg.FirebaseProjectID, cfg.PubSubTopic)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init pubsub publisher")
		}
		defer closePub()
		events = pub
	}

	var images service.ImageUploader
	if cfg.GCSBucket != "" {
		imgStore, err := infra.NewImageStore(ctx, cfg.GCSBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init image store")
		}
		defer imgStore.Close()
		images = imgStore
	}

	// ── Async jobs ───────────────────────────────────────────────────────────
	// Worker handlers are wired here so the pool sees every infra dependency.
	mailer := infra.NewMailer(cfg, infra.NewCircuitBreaker(infra.DefaultCBConfig()))
	registry := worker.Registry{
		worker.JobLowStock:     worker.NewLowStockWorker(mailer, live.AlertEmail),
		worker.JobReportEmail:  worker.NewReportEmailWorker(mailer),
		worker.JobGoalProgress: worker.NewGoalWorker(service.NewGoalService(store.Goals())),
	}

	var dispatcher service.JobDispatcher
	if rdb != nil {
		dispatcher = worker.NewDispatcher(rdb)
		worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, registry)
		worker.StartRetryCron(ctx, worker.RetryCronConfig{
			RDB:    rdb,
			CB:     mailer.Breaker(),
			Queues: []string{worker.QueueAlerts, worker.QueueGoals},
		})
	} else {
		dispatcher = worker.NewInlineDispatcher(registry)
	}

	// ── Session recovery ─────────────────────────────────────────────────────
	sessionCache, closeCache, err := infra.OpenSessionCache(cfg, rdb)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session cache")
	}
	defer closeCache()

	identity := infra.NewIdentityClient(infra.IdentityClientConfig{
		APIKey:         cfg.FirebaseAPIKey,
		BaseURL:        cfg.IdentityBaseURL,
		SecureTokenURL: cfg.SecureTokenURL,
		RatePerSecond:  cfg.IdentityRateLimit,
	}, infra.NewCircuitBreaker(infra.DefaultCBConfig()))
	recovery := session.NewRecovery(identity, sessionCache, session.WithConfigValid(cfg.FirebaseConfigValid()))
	identity.SetPersistence(session.PersistSession)
	identity.OnSignIn(recovery.Remember)
	go recovery.InitializeFromCache(ctx)

	var verifier *middleware.TokenVerifier
	if cfg.FirebaseProjectID != "" {
		verifier = middleware.NewTokenVerifier(cfg.FirebaseProjectID)
	}

	// ── Dashboard ────────────────────────────────────────────────────────────
	agg := dashboard.NewAggregator(dashboard.StoreSources(store),
		dashboard.WithQueryTimeout(cfg.DashboardQueryTimeout))

	var snapCache dashboard.SnapshotCache
	if rdb != nil {
		snapCache = dashboard.NewRedisSnapshotCache(rdb)
	}
	poller := dashboard.NewPoller(agg, snapCache)
	live.OnRefreshChange(poller.SetInterval)
	go poller.Run(ctx, live.RefreshInterval())

	r := router.New(cfg, router.Deps{
		Store:         store,
		RDB:           rdb,
		Locker:        locker,
		Events:        events,
		Images:        images,
		Dispatcher:    dispatcher,
		Aggregator:    agg,
		Poller:        poller,
		SnapshotCache: snapCache,
		Identity:      identity,
		Recovery:      recovery,
		Verifier:      verifier,
		Ledger:        ledger.NewStore("0001", "FIAP Farms", decimal.Zero),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("store", cfg.StoreBackend).Msgf("fiap-farms backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracing shutdown")
	}
	log.Info().Msg("server exited")
}
