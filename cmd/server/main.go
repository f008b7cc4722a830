package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	jwttoken "mandate/internal/jwt_token"
	ledgerhandler "mandate/internal/ledger/handler"
	ledgermetrics "mandate/internal/ledger/metrics"
	ledgerservice "mandate/internal/ledger/service"
	ledgerstore "mandate/internal/ledger/store"
	"mandate/internal/outbox"
	"mandate/internal/platform/config"
	"mandate/internal/platform/httpserver"
	"mandate/internal/platform/logger"
	"mandate/internal/platform/metrics"
	"mandate/internal/platform/postgres"
	"mandate/internal/platform/redis"
	policyhandler "mandate/internal/policy/handler"
	policymetrics "mandate/internal/policy/metrics"
	policyservice "mandate/internal/policy/service"
	policystore "mandate/internal/policy/store"
	ratelimitmetrics "mandate/internal/ratelimit/metrics"
	ratelimit "mandate/internal/ratelimit/middleware"
	ratelimitmodels "mandate/internal/ratelimit/models"
	ratelimitstore "mandate/internal/ratelimit/store"
	httptransport "mandate/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("mandate stopped with error", "error", err)
		os.Exit(1)
	}
}

// run wires dependencies from cfg and blocks until ctx is cancelled. Postgres,
// Redis and Kafka are each optional; without a database every store is in
// memory.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	reg := metrics.NewRegistry()
	checks := map[string]httptransport.Check{}

	var (
		pool           *pgxpool.Pool
		policies       policyservice.Store = policystore.NewInMemory()
		ledgerOpts     []ledgerservice.Option
		outboxWriter   *outbox.PostgresStore
		limiterStore   ratelimit.Store = ratelimitstore.NewInMemory()
		backgroundJobs []func(ctx context.Context) error
	)

	if cfg.Database.URL != "" {
		var err error
		pool, err = postgres.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		policies = policystore.NewPostgres(pool)
		outboxWriter = outbox.NewPostgresStore(pool)
		checks["postgres"] = pool.Ping
		log.InfoContext(ctx, "postgres stores enabled")
	}

	policyMetrics := policymetrics.New(reg)
	if cfg.Redis.URL != "" {
		rdb, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		policies = policystore.NewRedisCache(policies, rdb.Client, cfg.Redis.CacheTTL,
			policystore.WithCacheLogger(log),
			policystore.WithCacheMetrics(policyMetrics),
		)
		limiterStore = ratelimitstore.NewRedis(rdb.Client)
		checks["redis"] = rdb.Health
		log.InfoContext(ctx, "policy cache enabled", "ttl", cfg.Redis.CacheTTL)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := outbox.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer publisher.Close()
		if err := outbox.EnsureTopic(ctx, publisher.Client(), cfg.Kafka.Topic, cfg.Kafka.Partitions, -1); err != nil {
			return err
		}
		checks["kafka"] = publisher.Ping

		if outboxWriter != nil {
			relay, err := outbox.NewRelay(outboxWriter, publisher,
				outbox.WithLogger(log),
				outbox.WithMetrics(outbox.NewMetrics(reg)),
				outbox.WithInterval(cfg.Kafka.PollInterval),
				outbox.WithBatchSize(cfg.Kafka.BatchSize),
			)
			if err != nil {
				return err
			}
			backgroundJobs = append(backgroundJobs, relay.Run)
		} else {
			ledgerOpts = append(ledgerOpts, ledgerservice.WithPublisher(publisher))
		}
		log.InfoContext(ctx, "ledger stream enabled", "topic", cfg.Kafka.Topic, "relay", outboxWriter != nil)
	}

	policySvc, err := policyservice.New(policies,
		policyservice.WithLogger(log),
		policyservice.WithMetrics(policyMetrics),
	)
	if err != nil {
		return err
	}

	var ledgerStore ledgerservice.Store = ledgerstore.NewInMemory()
	if pool != nil {
		ledgerStore = ledgerstore.NewPostgres(pool, outboxWriter)
	}
	ledgerSvc, err := ledgerservice.New(ledgerStore, policySvc, append(ledgerOpts,
		ledgerservice.WithLogger(log),
		ledgerservice.WithMetrics(ledgermetrics.New(reg)),
	)...)
	if err != nil {
		return err
	}

	limiter := ratelimit.New(limiterStore,
		map[ratelimitmodels.Class]ratelimitmodels.Limit{
			ratelimitmodels.ClassWrite: {RequestsPerWindow: cfg.RateLimit.Writes, Window: cfg.RateLimit.Window},
			ratelimitmodels.ClassRead:  {RequestsPerWindow: cfg.RateLimit.Reads, Window: cfg.RateLimit.Window},
		},
		ratelimit.WithFallback(ratelimitstore.NewInMemory()),
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(ratelimitmetrics.New(reg)),
	)

	tokens := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	deps := httptransport.Deps{
		Logger:         log,
		Tokens:         jwttoken.NewJWTServiceAdapter(tokens),
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Checks:         checks,
		RateLimit:      limiter.PerPrincipal,
		Modules: []httptransport.Module{
			policyhandler.New(policySvc, log),
			ledgerhandler.New(ledgerSvc, log),
		},
	}
	servers := []*http.Server{}
	if cfg.Server.MetricsAddr == "" {
		deps.Registry = reg
	} else {
		servers = append(servers, httpserver.New(cfg.Server.MetricsAddr, metrics.Handler(reg)))
	}
	servers = append(servers, httpserver.New(cfg.Server.Addr, httptransport.NewRouter(deps)))

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			log.InfoContext(gctx, "listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	for _, job := range backgroundJobs {
		g.Go(func() error {
			return job(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}
