package main

// @title Capty Shopify API
// @version 1.0
// @description Referral attribution and commission ledger for the Capty Shopify app.

// @host localhost:3000
// @BasePath /

// @securityDefinitions.apikey CaptyAPIKey
// @in header
// @name x-capty-api-key
// @description Shared key of the Capty backend.

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Growthvoodoo/Capty-shopify/config"
	"github.com/Growthvoodoo/Capty-shopify/pkg/cache"
	"github.com/Growthvoodoo/Capty-shopify/pkg/database"
	"github.com/Growthvoodoo/Capty-shopify/pkg/jobs"
	"github.com/Growthvoodoo/Capty-shopify/pkg/logger"
	"github.com/Growthvoodoo/Capty-shopify/pkg/metrics"
	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	if cfg.ShopifyAPISecret == "" {
		log.Printf("⚠️  SHOPIFY_API_SECRET is empty, every webhook will be rejected")
	}

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 0.2,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Initialize database
	db, err := database.Open(database.Options{
		Driver: cfg.DatabaseDriver,
		URL:    cfg.DatabaseURL,
		Pool:   database.DefaultPoolConfig(),
		SSL: &database.SSLConfig{
			Mode:         cfg.DBSSLMode,
			CertPath:     cfg.DBSSLCertPath,
			KeyPath:      cfg.DBSSLKeyPath,
			RootCertPath: cfg.DBSSLRootCertPath,
		},
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatalf("❌ Failed to migrate database: %v", err)
	}
	log.Printf("✅ Database ready (driver: %s)", db.Dialect())

	// Redis is optional: without it webhook redeliveries fall through to the
	// order uniqueness check.
	var redisClient *cache.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewClient(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, webhook de-duplication cache disabled: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Printf("✅ Redis connected")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	appLog := logger.New(cfg.LogLevel)
	srv, err := newServer(cfg, db, redisClient, m, registry, appLog)
	if err != nil {
		log.Fatalf("❌ Failed to build server: %v", err)
	}
	defer srv.Close()

	// Initialize and start cron jobs
	var cronManager *jobs.CronManager
	if cfg.ReconcileEnabled {
		cronManager = jobs.NewCronManager(srv.ledger, m, log.Default())
		if err := cronManager.SetupJobs(cfg.ReconcileSchedule); err != nil {
			log.Fatalf("❌ Failed to set up cron jobs: %v", err)
		}
		cronManager.Start()
	}

	stopStats := make(chan struct{})
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.UpdateDBConnections(float64(db.Stats().InUse))
			case <-stopStats:
				return
			}
		}
	}()

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("🚀 Capty API starting on %s", address)
	log.Printf("🌍 App URL: %s", cfg.AppURL)
	log.Printf("💰 Commission rate: %.2f%%", cfg.CommissionRate*100)
	log.Printf("🛡️  Rate limiting: %d req/min (burst: %d), webhooks %d req/min",
		cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst, cfg.WebhookRateLimitPerMinute)
	if cfg.ReconcileEnabled {
		log.Printf("⏰ Ledger reconciliation: %s (UTC)", cfg.ReconcileSchedule)
	}

	// Graceful shutdown
	go func() {
		if err := srv.echo.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	close(stopStats)

	if cronManager != nil {
		cronManager.Stop()
		log.Println("✅ Cron jobs stopped")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.echo.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}
