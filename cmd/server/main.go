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

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/texlink-oficial/texlink/internal/audit"
	"github.com/texlink-oficial/texlink/internal/compliance"
	compliancehandler "github.com/texlink-oficial/texlink/internal/compliance/handler"
	compmetrics "github.com/texlink-oficial/texlink/internal/compliance/metrics"
	complianceservice "github.com/texlink-oficial/texlink/internal/compliance/service"
	"github.com/texlink-oficial/texlink/internal/credential"
	credentialhandler "github.com/texlink-oficial/texlink/internal/credential/handler"
	credmetrics "github.com/texlink-oficial/texlink/internal/credential/metrics"
	credentialservice "github.com/texlink-oficial/texlink/internal/credential/service"
	"github.com/texlink-oficial/texlink/internal/jwttoken"
	"github.com/texlink-oficial/texlink/internal/platform/config"
	"github.com/texlink-oficial/texlink/internal/platform/httpserver"
	"github.com/texlink-oficial/texlink/internal/platform/logger"
	redisplatform "github.com/texlink-oficial/texlink/internal/platform/redis"
	transporthttp "github.com/texlink-oficial/texlink/internal/transport/http"
	"github.com/texlink-oficial/texlink/internal/verification"
	"github.com/texlink-oficial/texlink/internal/verification/cache"
	verificationhandler "github.com/texlink-oficial/texlink/internal/verification/handler"
	vermetrics "github.com/texlink-oficial/texlink/internal/verification/metrics"
	"github.com/texlink-oficial/texlink/internal/verification/providers"
)

const shutdownGrace = 15 * time.Second

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()

	var (
		db         *sql.DB
		credStore  credential.Store
		compStore  compliance.Store
		auditStore audit.Store
	)
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		credStore = credential.NewPostgresStore(db)
		compStore = compliance.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
		log.Info("using postgres stores")
	} else {
		credStore = credential.NewInMemoryStore()
		compStore = compliance.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		log.Info("using in-memory stores")
	}

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		return err
	}
	var creditCache cache.Cache
	if redisClient != nil {
		defer redisClient.Close()
		creditCache = cache.NewRedisCache(redisClient.Client)
		log.Info("using redis credit cache")
	} else {
		creditCache = cache.NewInMemoryCache()
		log.Info("using in-memory credit cache")
	}

	httpClient := &http.Client{Timeout: cfg.Providers.HTTPTimeout}

	registryProviders := []providers.RegistryProvider{
		providers.NewBrasilAPIProvider(cfg.Providers.BrasilAPIBaseURL, 1, httpClient),
		providers.NewReceitaWSProvider(cfg.Providers.ReceitaWSBaseURL, 2, httpClient),
	}

	var creditProviders []providers.CreditProvider
	if cfg.Providers.SerasaBaseURL != "" {
		creditProviders = append(creditProviders,
			providers.NewSerasaProvider(cfg.Providers.SerasaBaseURL, cfg.Providers.SerasaAPIKey, httpClient))
	}
	if cfg.Providers.BoaVistaBaseURL != "" {
		creditProviders = append(creditProviders,
			providers.NewBoaVistaProvider(cfg.Providers.BoaVistaBaseURL, cfg.Providers.BoaVistaAPIKey, httpClient))
	}
	if cfg.Providers.SPCBaseURL != "" {
		creditProviders = append(creditProviders,
			providers.NewSPCProvider(cfg.Providers.SPCBaseURL, cfg.Providers.SPCAPIKey, httpClient))
	}

	verificationOpts := []verification.Option{
		verification.WithLogger(log),
		verification.WithMetrics(vermetrics.New()),
		verification.WithPreferredCredit(cfg.Providers.PreferredCredit),
		verification.WithCacheTTL(config.CreditCacheTTL),
	}
	if cfg.Providers.MessagingGatewayBaseURL != "" {
		verificationOpts = append(verificationOpts, verification.WithNotifier(
			providers.NewMessagingGatewayProvider(
				cfg.Providers.MessagingGatewayBaseURL, cfg.Providers.MessagingGatewayAPIKey, httpClient)))
	}
	verificationSvc := verification.NewService(registryProviders, creditProviders, creditCache, verificationOpts...)

	auditPublisher := audit.NewPublisher(auditStore)

	credentialSvc := credentialservice.New(credStore,
		credentialservice.WithLogger(log),
		credentialservice.WithMetrics(credmetrics.New()),
		credentialservice.WithAuditPublisher(auditPublisher),
	)

	complianceSvc := complianceservice.New(compStore, credentialSvc, verificationSvc,
		complianceservice.WithLogger(log),
		complianceservice.WithMetrics(compmetrics.New()),
		complianceservice.WithAuditPublisher(auditPublisher),
	)

	jwtService := jwttoken.NewService(cfg.Server.JWTSigningKey, "texlink", "texlink-api")

	router := transporthttp.New(transporthttp.Deps{
		Credentials:  credentialhandler.New(credentialSvc, verificationSvc, log),
		Compliance:   compliancehandler.New(complianceSvc, log),
		Verification: verificationhandler.New(verificationSvc, log),
		JWTValidator: jwtService,
		Logger:       log,
		Health: func(r *http.Request) error {
			if db != nil {
				if err := db.PingContext(r.Context()); err != nil {
					return err
				}
			}
			if redisClient != nil {
				return redisClient.Health(r.Context())
			}
			return nil
		},
	})

	group, ctx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		if db == nil {
			log.Warn("kafka brokers configured without postgres, audit worker disabled")
		} else {
			sink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
			if err != nil {
				return err
			}
			defer sink.Close()
			worker := audit.NewWorker(audit.NewPostgresStore(db), sink, log)
			group.Go(func() error {
				err := worker.Run(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			log.Info("audit worker started", "topic", cfg.Kafka.AuditTopic)
		}
	}

	server := httpserver.New(cfg.Server, router)

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
