// Command server runs the training-compliance audit service.
//
// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal services packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"attesta/internal/audits"
	auditshandler "attesta/internal/audits/handler"
	auditsmetrics "attesta/internal/audits/metrics"
	httpapi "attesta/internal/http"
	"attesta/internal/platform/config"
	"attesta/internal/platform/httpserver"
	"attesta/internal/platform/kafka/producer"
	"attesta/internal/platform/logger"
	platformmetrics "attesta/internal/platform/metrics"
	platformpostgres "attesta/internal/platform/postgres"
	"attesta/internal/platform/redis"
	"attesta/internal/platform/token"
	"attesta/internal/records"
	recordshandler "attesta/internal/records/handler"
	"attesta/internal/reporting"
	reportinghandler "attesta/internal/reporting/handler"
	"attesta/pkg/platform/audit"
	auditmemory "attesta/pkg/platform/audit/store/memory"
	auditpostgres "attesta/pkg/platform/audit/store/postgres"
	auditworker "attesta/pkg/platform/audit/worker"
	"attesta/pkg/platform/middleware/ratelimit"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		db          *sql.DB
		recordStore records.RecordStore
		policyStore records.PolicyStore
		resultLog   audits.ResultLog
		sessions    audits.SessionStore
		auditStore  audit.Store
	)
	if cfg.Postgres.URL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if os.Getenv("ATTESTA_MIGRATE") == "true" {
			if err := platformpostgres.Migrate(ctx, db); err != nil {
				return err
			}
			log.Info("schema applied")
		}

		pg := records.NewPostgres(db)
		recordStore, policyStore = pg, pg
		resultLog = audits.NewPostgresLog(db)
		sessions = audits.NewPostgresSessions(db)
		auditStore = auditpostgres.New(db)
		log.Info("using postgres stores")
	} else {
		mem := records.NewInMemory()
		if cfg.Server.SeedFixtures {
			if err := records.SeedDemoFixtures(mem); err != nil {
				return err
			}
			log.Info("seeded demo fixtures")
		}
		recordStore, policyStore = mem, mem
		resultLog = audits.NewInMemoryLog()
		sessions = audits.NewInMemorySessions()
		auditStore = auditmemory.NewInMemoryStore()
		log.Info("using in-memory stores")
	}

	// Policy cache: optional read-through Redis decorator.
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		policyStore = records.NewCachedPolicyStore(policyStore, redisClient.Client, cfg.Redis.PolicyCacheTTL, log)
		log.Info("policy cache enabled", "ttl", cfg.Redis.PolicyCacheTTL)
	}

	// Audit event pipeline: events land in the store (outbox under Postgres);
	// with Kafka configured, the relay worker drains the outbox to the broker.
	emitter := audit.NewStoreEmitter(auditStore)
	var relay *auditworker.Worker
	if len(cfg.Kafka.Brokers) > 0 && db != nil {
		kafkaProducer, err := producer.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer kafkaProducer.Close()
		if err := kafkaProducer.Ping(ctx); err != nil {
			return err
		}
		relay = auditworker.New(db, kafkaProducer, log, cfg.Kafka.PollInterval, 100)
		log.Info("audit event relay enabled", "topic", cfg.Kafka.Topic)
	}

	// Services.
	auditService, err := audits.New(recordStore, policyStore, resultLog, sessions,
		audits.WithLogger(log),
		audits.WithMetrics(auditsmetrics.New()),
		audits.WithAuditPublisher(emitter),
	)
	if err != nil {
		return err
	}
	reportingService := reporting.New(auditService, recordStore, reporting.WithLogger(log))

	// HTTP surface.
	tokenService := token.NewService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	healthCheckers := map[string]httpapi.HealthChecker{}
	if db != nil {
		healthCheckers["postgres"] = dbHealth{db}
	}
	if redisClient != nil {
		healthCheckers["redis"] = redisClient
	}

	var limiter *ratelimit.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = ratelimit.NewLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitWindow)
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Logger:         log,
		TokenValidator: token.NewMiddlewareAdapter(tokenService),
		HTTPMetrics:    platformmetrics.NewHTTP(),
		RateLimiter:    limiter,
		Protected: []httpapi.Registrar{
			auditshandler.New(auditService, log),
			recordshandler.New(recordStore, policyStore, log, recordshandler.WithAuditEmitter(emitter)),
			reportinghandler.New(reportingService, log),
		},
		HealthCheckers: healthCheckers,
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	errCh := make(chan error, 2)
	go func() {
		log.Info("starting attesta", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	if relay != nil {
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		stop()
		log.Error("fatal error, shutting down", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
