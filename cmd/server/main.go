package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	otellog "go.opentelemetry.io/otel/log"

	"saasgate/backend/internal/activity"
	"saasgate/backend/internal/activity/publisher"
	activityrepo "saasgate/backend/internal/activity/repository"
	authhandler "saasgate/backend/internal/auth/handler"
	authservice "saasgate/backend/internal/auth/service"
	"saasgate/backend/internal/billing/gateway"
	billinghandler "saasgate/backend/internal/billing/handler"
	billingservice "saasgate/backend/internal/billing/service"
	"saasgate/backend/internal/config"
	"saasgate/backend/internal/db"
	healthhandler "saasgate/backend/internal/health/handler"
	"saasgate/backend/internal/identity/provider"
	invitationrepo "saasgate/backend/internal/invitation/repository"
	membershiprepo "saasgate/backend/internal/membership/repository"
	"saasgate/backend/internal/platform/errreport"
	"saasgate/backend/internal/platform/httpx"
	"saasgate/backend/internal/policy/engine"
	"saasgate/backend/internal/security"
	"saasgate/backend/internal/server"
	"saasgate/backend/internal/server/middleware"
	sessionrepo "saasgate/backend/internal/session/repository"
	sessionservice "saasgate/backend/internal/session/service"
	teamrepo "saasgate/backend/internal/team/repository"
	"saasgate/backend/internal/telemetry/logging"
	telemetryotel "saasgate/backend/internal/telemetry/otel"
	userrepo "saasgate/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.OTelService, false)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	var lp otellog.LoggerProvider
	if providers.Exporting {
		lp = providers.LoggerProvider
	}
	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel), cfg.OTelService, lp)
	slog.SetDefault(logger)

	metrics, err := telemetryotel.NewMetrics(providers.MeterProvider)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	reporter, err := errreport.New(cfg.SentryDSN, cfg.Env)
	if err != nil {
		log.Fatalf("sentry: %v", err)
	}
	defer reporter.Flush(2 * time.Second)

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer sqlDB.Close()

	users := userrepo.NewPostgresRepository(sqlDB)
	memberships := membershiprepo.NewPostgresRepository(sqlDB)
	invitations := invitationrepo.NewPostgresRepository(sqlDB)
	teams := teamrepo.NewPostgresRepository(sqlDB)

	codec, err := security.CodecFromConfig(cfg.SessionSigningKey, cfg.SessionVerifyKey, cfg.SessionSecret, cfg.SessionIssuer, cfg.SessionTTL())
	if err != nil {
		log.Fatalf("session codec: %v", err)
	}
	var denylist sessionrepo.Denylist = sessionrepo.NewMemoryDenylist()
	if cfg.RedisURL != "" {
		redisDenylist, err := sessionrepo.NewRedisDenylist(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisDenylist.Close()
		denylist = redisDenylist
	}
	sessions := sessionservice.NewResolver(codec, denylist, metrics)

	// Untyped nils so Multi drops disabled sinks.
	var kafkaPub, otelPub publisher.Publisher
	if p := publisher.NewKafkaPublisher(cfg.KafkaBrokersList(), cfg.KafkaActivityTopic); p != nil {
		kafkaPub = p
	}
	if providers.Exporting {
		otelPub = telemetryotel.NewActivityPublisher(providers.LoggerProvider)
	}
	activityPub := publisher.Multi(kafkaPub, otelPub)
	recorder := activity.NewLogger(activityrepo.NewPostgresRepository(sqlDB), activityPub)

	identity, err := newIdentityProvider(cfg)
	if err != nil {
		log.Fatalf("identity provider: %v", err)
	}

	policy, err := engine.NewOPAEvaluator(ctx, "")
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	stripe := gateway.NewStripe(cfg.StripeSecretKey, cfg.BaseURL, cfg.StripeTrialDays)
	billing := billingservice.NewService(stripe, users, memberships, teams, sessions, reporter, cfg.CollaboratorTimeout())

	auth := authservice.NewService(authservice.Deps{
		Users:       users,
		Memberships: memberships,
		Invitations: invitations,
		Activity:    recorder,
		Hasher: security.NewHasher(security.HashParams{
			Memory:  cfg.HashMemory,
			Time:    cfg.HashTime,
			Threads: cfg.HashThreads,
		}),
		Sessions:   sessions,
		Identity:   identity,
		Checkout:   billing,
		Authorizer: policy,
		Reporter:   reporter,
		Metrics:    metrics,
	}, authservice.Options{
		Timeout:       cfg.CollaboratorTimeout(),
		BaseURL:       cfg.BaseURL,
		OAuthProvider: cfg.OAuthProvider,
	})

	cookies := httpx.Cookies{SessionName: cfg.SessionCookieName, Secure: cfg.CookieSecure}
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	router := server.NewRouter(server.Deps{
		Auth:       authhandler.New(auth, cookies),
		Billing:    billinghandler.New(billing, sessions, cookies),
		Health:     healthhandler.New(sqlDB, policy),
		Limiter:    limiter,
		Logger:     logger,
		Tracer:     providers.TracerProvider.Tracer("saasgate/backend/http"),
		Reporter:   reporter,
		TrustProxy: cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "identity_provider", cfg.IdentityProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}

	// Let in-flight activity publishes finish before closing their sinks.
	time.Sleep(activity.ShutdownDrainDuration)
	if activityPub != nil {
		if err := activityPub.Close(); err != nil {
			logger.Warn("activity publisher close", "error", err)
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("otel shutdown", "error", err)
	}
	logger.Info("http server stopped")
}

func newIdentityProvider(cfg *config.Config) (authservice.IdentityProvider, error) {
	switch cfg.IdentityProvider {
	case config.IdentityGoogle:
		return provider.NewGoogle(provider.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.BaseURL + "/auth/callback",
		}), nil
	case config.IdentityLocal:
		return provider.NewLocal(), nil
	default:
		return provider.NewGoTrue(provider.GoTrueConfig{
			BaseURL:          cfg.SupabaseURL,
			AnonKey:          cfg.SupabaseAnonKey,
			ServiceRoleKey:   cfg.SupabaseServiceRoleKey,
			EmailRedirectURL: cfg.BaseURL + "/sign-in",
		})
	}
}
