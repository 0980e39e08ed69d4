package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"careshield/internal/audit"
	"careshield/internal/csrf"
	"careshield/internal/fieldcrypto"
	"careshield/internal/incident"
	"careshield/internal/pipeline"
	"careshield/internal/platform/config"
	"careshield/internal/platform/logger"
	"careshield/internal/platform/tracer"
	"careshield/internal/protect"
	"careshield/internal/ratelimit"
	"careshield/internal/session"
	httptransport "careshield/internal/transport/http"
	"careshield/pkg/httputil"
)

const sweepInterval = time.Minute

// main is the composition root: it wires the audit trail, the incident
// engine, the security pipeline and the HTTP layer, then runs the server and
// the background workers under one errgroup. Business logic lives in the
// internal packages.
func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(parseLevel(cfg.LogLevel))
	slog.SetDefault(log)
	httputil.ExposeErrorIDs(!cfg.IsProduction())

	log.Info("initializing careshield",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"protected_fields", len(cfg.ProtectedFields),
	)

	fieldKey := cfg.FieldEncryptionKey
	if len(fieldKey) == 0 {
		// validate() guarantees this branch is development-only.
		fieldKey = randomKey(log, "FIELD_ENCRYPTION_KEY")
	}
	sessionSecret := cfg.SessionSecret
	if len(sessionSecret) == 0 {
		sessionSecret = randomKey(log, "SESSION_SECRET")
	}

	cryptoEngine, err := fieldcrypto.New(fieldKey)
	if err != nil {
		log.Error("field encryption init failed", "error", err)
		os.Exit(1)
	}
	protector := protect.NewProtector(protect.NewClassifier(cfg.ProtectedFields), cryptoEngine)

	// The in-memory store feeds detection; SQLite is the durable compliance
	// record. Both receive every event through the publisher.
	events := audit.NewInMemoryStore(10000)
	durable, err := audit.OpenSQLite(cfg.AuditDBPath)
	if err != nil {
		log.Error("audit database unavailable", "error", err, "path", cfg.AuditDBPath)
		os.Exit(1)
	}
	defer durable.Close()

	stores := []audit.Store{events, durable}
	var alerter incident.Alerter = incident.NewLogAlerter(log)
	if cfg.AuditNATSURL != "" {
		exporter, err := audit.NewNATSExporter(cfg.AuditNATSURL)
		if err != nil {
			log.Error("audit NATS exporter unavailable", "error", err, "url", cfg.AuditNATSURL)
			os.Exit(1)
		}
		defer exporter.Close()
		stores = append(stores, exporter)
		alerter = exporter
	}

	publisher := audit.NewPublisher(stores, audit.WithLogger(log))
	defer publisher.Close()

	blocklist := incident.NewBlockList()
	sessions := session.NewStore(session.WithTimeout(cfg.SessionTimeout))
	responder := incident.NewStoreResponder(blocklist, sessions)
	engine := incident.NewEngine(events, responder,
		incident.WithLogger(log),
		incident.WithSink(durable),
		incident.WithAlerter(alerter),
		incident.WithBruteForceThreshold(cfg.BruteForceLimit),
		incident.WithDetectionWindow(cfg.BruteForceWindow),
	)
	scorer := incident.NewRiskScorer(events)

	csrfOpts := []csrf.StoreOption{csrf.WithTTL(cfg.CSRFTokenTTL)}
	if cfg.SharedSessionStore {
		csrfOpts = append(csrfOpts, csrf.WithSessionBinding())
	}
	tokens := csrf.NewStore(csrfOpts...)

	directory := newDirectory(log)
	issuer := session.NewTokenIssuer(sessionSecret, 5*time.Minute)
	guard := session.NewGuard(sessions, publisher, directory.Principal,
		session.WithBearerVerifier(issuer))

	limiter := ratelimit.NewLimiter(map[ratelimit.Tier]ratelimit.TierConfig{
		ratelimit.TierGeneral: {
			Window:    cfg.GeneralTier.Window,
			Limit:     cfg.GeneralTier.Limit,
			AnonLimit: cfg.GeneralAnonLimit,
		},
		ratelimit.TierAuth: {
			Window: cfg.AuthTier.Window,
			Limit:  cfg.AuthTier.Limit,
		},
		ratelimit.TierSensitive: {
			Window:   cfg.SensitiveTier.Window,
			Limit:    cfg.SensitiveTier.Limit,
			BlockFor: cfg.SensitiveTier.BlockFor,
		},
	})

	registry := prometheus.NewRegistry()
	limits := ratelimit.NewMiddleware(limiter, publisher, ratelimit.NewMetrics(registry), ratelimit.DelayConfig{
		Threshold: cfg.DelayThreshold,
		Step:      cfg.DelayStep,
		Max:       cfg.DelayMax,
	})

	securityPipeline := pipeline.New(publisher, blocklist, guard, limits,
		csrf.NewMiddleware(tokens, publisher), protector,
		pipeline.WithTracer(tracer.NewOTel()),
		pipeline.WithMetrics(pipeline.NewMetrics(registry)),
		pipeline.WithExemptPaths(cfg.ExemptPaths),
	)

	handler := httptransport.NewHandler(log, tokens, sessions, issuer, publisher,
		engine, scorer, blocklist, responder, directory.Authenticate,
		httptransport.WithSecureCookies(cfg.IsProduction()),
	)
	router := httptransport.NewRouter(handler, securityPipeline, httptransport.RouterConfig{
		AdminSecretHash: cfg.AdminSecretHash,
		TrustedProxies:  cfg.TrustedProxies,
		Registry:        registry,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return sessions.StartSweeping(ctx, sweepInterval, log) })
	g.Go(func() error { return tokens.StartSweeping(ctx, sweepInterval, log) })
	g.Go(func() error { return engine.StartScanning(ctx, cfg.IncidentScanEvery) })
	g.Go(func() error { return scorer.StartRecomputing(ctx, cfg.RiskRecomputeEvery, log) })
	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Sweep()
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// randomKey generates ephemeral key material for development runs. Sessions
// and sealed fields do not survive a restart without a configured key.
func randomKey(log *slog.Logger, name string) []byte {
	log.Warn("generating ephemeral key, set the environment variable for persistence", "key", name)
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Error("could not generate key material", "error", err)
		os.Exit(1)
	}
	return buf
}
