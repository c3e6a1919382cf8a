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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"complyhub/internal/audit"
	"complyhub/internal/catalog/handler"
	"complyhub/internal/catalog/importer"
	catalogmetrics "complyhub/internal/catalog/metrics"
	"complyhub/internal/catalog/service"
	"complyhub/internal/catalog/store/memory"
	"complyhub/internal/catalog/store/postgres"
	"complyhub/internal/catalog/store/statscache"
	jwttoken "complyhub/internal/jwt_token"
	"complyhub/internal/lifecycle"
	"complyhub/internal/platform/config"
	"complyhub/internal/platform/httpserver"
	"complyhub/internal/platform/logger"
	"complyhub/internal/platform/metrics"
	"complyhub/internal/platform/redis"
	id "complyhub/pkg/domain"
	adminmw "complyhub/pkg/platform/middleware/admin"
	authmw "complyhub/pkg/platform/middleware/auth"
	"complyhub/pkg/platform/middleware/metadata"
	"complyhub/pkg/platform/middleware/request"
	"complyhub/pkg/platform/middleware/requesttime"
	"complyhub/pkg/requestcontext"
)

const (
	tokenIssuer   = "complyhub"
	tokenAudience = "complyhub-api"
	shutdownGrace = 10 * time.Second
)

// systemActor owns scheduler tasks and startup imports.
var systemActor = id.ActorID(uuid.NewSHA1(uuid.NameSpaceOID, []byte("complyhub/system")))

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, closeStores, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores()

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(catalogmetrics.New()),
	}

	publisher, closeAudit, err := openAudit(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAudit()
	opts = append(opts, service.WithAuditPublisher(publisher))

	redisClient, err := redis.Open(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, service.WithStatisticsCache(statscache.NewRedis(redisClient, statscache.WithTTL(cfg.StatsCacheTTL))))
		log.Info("statistics cache enabled")
	}

	catalog, err := service.New(stores, opts...)
	if err != nil {
		return err
	}

	if cfg.CatalogImportFile != "" {
		importCtx := requestcontext.WithActor(ctx, systemActor, string(lifecycle.RoleManager))
		if _, err := importer.New(catalog, log).ImportFiles(importCtx, cfg.CatalogImportFile); err != nil {
			return fmt.Errorf("import catalog: %w", err)
		}
	}

	srv := httpserver.New(cfg.Addr, newRouter(cfg, log, catalog))
	scheduler := service.NewTestScheduler(catalog, service.LogTaskRaiser{Logger: log}, service.WithSystemActor(systemActor))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting complyhub", "addr", cfg.Addr)
		return httpserver.Serve(ctx, srv, shutdownGrace)
	})
	g.Go(func() error {
		err := scheduler.Run(ctx, cfg.TestSchedulerInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

func newRouter(cfg config.Server, log *slog.Logger, catalog *service.Service) chi.Router {
	httpMetrics := metrics.New()
	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, tokenIssuer, tokenAudience)
	h := handler.New(catalog, log)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(httpMetrics.Middleware)
	r.Use(request.Logger(log))

	r.Handle("/metrics", metrics.Handler())
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(jwtService.Validator(), log))
		h.Register(r)
	})
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(cfg.AdminToken, log))
		r.Use(asSystem)
		h.RegisterAdmin(r)
	})
	return r
}

// asSystem runs admin-token requests as the system actor.
func asSystem(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithActor(r.Context(), systemActor, string(lifecycle.RoleManager))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// openStores uses PostgreSQL when DATABASE_URL is set and the in-memory store otherwise.
func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (service.Stores, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, catalog kept in memory")
		db := memory.New()
		return service.Stores{
			Standards:    db.Standards,
			Categories:   db.Categories,
			Domains:      db.Domains,
			Requirements: db.Requirements,
			Controls:     db.Controls,
			Questions:    db.Questions,
			Tools:        db.Tools,
			Zones:        db.Zones,
			Certs:        db.Certs,
			Tx:           db,
		}, func() {}, nil
	}

	sqlDB, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return service.Stores{}, nil, err
	}
	if err := postgres.Migrate(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return service.Stores{}, nil, err
	}
	pg := postgres.New(sqlDB)
	return service.Stores{
		Standards:    pg.Standards,
		Categories:   pg.Categories,
		Domains:      pg.Domains,
		Requirements: pg.Requirements,
		Controls:     pg.Controls,
		Questions:    pg.Questions,
		Tools:        pg.Tools,
		Zones:        pg.Zones,
		Certs:        pg.Certs,
		Tx:           pg,
	}, func() { sqlDB.Close() }, nil
}

// openAudit streams audit events to Kafka when brokers are configured.
func openAudit(ctx context.Context, cfg config.Server, log *slog.Logger) (*audit.Publisher, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return audit.NewPublisher(audit.NewInMemoryStore(), audit.WithLogger(log)), func() {}, nil
	}
	k := cfg.Kafka
	if err := audit.EnsureTopic(ctx, k.Brokers, k.AuditTopic, k.TopicPartitions, k.TopicReplication); err != nil {
		return nil, nil, err
	}
	store, err := audit.NewKafkaStore(k.Brokers, k.AuditTopic, log)
	if err != nil {
		return nil, nil, err
	}
	log.Info("audit events streamed to kafka", "topic", k.AuditTopic)
	return audit.NewPublisher(store, audit.WithLogger(log)), store.Close, nil
}
