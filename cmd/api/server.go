package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Growthvoodoo/Capty-shopify/config"
	"github.com/Growthvoodoo/Capty-shopify/pkg/api/handlers"
	"github.com/Growthvoodoo/Capty-shopify/pkg/attribution"
	"github.com/Growthvoodoo/Capty-shopify/pkg/cache"
	"github.com/Growthvoodoo/Capty-shopify/pkg/clicks"
	"github.com/Growthvoodoo/Capty-shopify/pkg/commission"
	"github.com/Growthvoodoo/Capty-shopify/pkg/database"
	"github.com/Growthvoodoo/Capty-shopify/pkg/ledger"
	"github.com/Growthvoodoo/Capty-shopify/pkg/logger"
	"github.com/Growthvoodoo/Capty-shopify/pkg/metrics"
	custommiddleware "github.com/Growthvoodoo/Capty-shopify/pkg/middleware"
	"github.com/Growthvoodoo/Capty-shopify/pkg/sessions"
	"github.com/Growthvoodoo/Capty-shopify/pkg/webhook"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/Growthvoodoo/Capty-shopify/docs" // Swagger docs (generated)
)

// server is the assembled HTTP API
type server struct {
	echo     *echo.Echo
	ledger   *ledger.Service
	limiters []*custommiddleware.RateLimiter
}

// Close stops the rate limiter cleanup loops
func (s *server) Close() {
	for _, l := range s.limiters {
		l.Stop()
	}
}

func newServer(cfg *config.Config, db *database.Client, redisClient *cache.Client, m *metrics.Metrics, gatherer prometheus.Gatherer, appLog logger.Logger) (*server, error) {
	calc, err := commission.NewCalculator(cfg.CommissionRate)
	if err != nil {
		return nil, err
	}

	// Services
	clickService := clicks.NewService(db, appLog.With("component", "clicks"))
	ledgerService := ledger.NewService(db, appLog.With("component", "ledger"))
	orderService := attribution.NewService(db, clickService, ledgerService, calc, appLog.With("component", "attribution"))
	sessionStore := sessions.NewStore(db)

	opts := []webhook.Option{webhook.WithRecorder(m)}
	if redisClient != nil {
		opts = append(opts, webhook.WithDedup(redisClient, cfg.WebhookDedupTTL))
	}
	dispatcher := webhook.NewDispatcher(sessionStore, orderService, appLog.With("component", "webhooks"), opts...)

	// Handlers
	referralHandler := handlers.NewReferralHandler(clickService, m, appLog.With("component", "referrals"), cfg.ClickRecordTimeout)
	scriptHandler := handlers.NewScriptHandler(
		os.DirFS(filepath.Dir(cfg.TrackingScriptPath)), filepath.Base(cfg.TrackingScriptPath), appLog,
	)
	webhookHandler := handlers.NewWebhookHandler(dispatcher, cfg.ShopifyAPISecret, appLog.With("component", "webhooks"))
	commissionHandler := handlers.NewCommissionHandler(ledgerService, orderService, clickService)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	webhookRateLimiter := custommiddleware.NewRateLimiter(cfg.WebhookRateLimitPerMinute, cfg.WebhookRateLimitPerMinute/10+1)

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[%s] %s - Status: %d", c.Request().Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	e.Use(m.Middleware())
	e.Use(middleware.CORSWithConfig(custommiddleware.CORSConfig()))
	e.Use(middleware.Gzip())
	e.Use(middleware.Secure())

	// Storefront routes. Shopify's app proxy forwards under /apps/capty to /api/proxy.
	e.GET("/api/proxy", referralHandler.Redirect, globalRateLimiter.RateLimitMiddleware())
	e.GET("/proxy", referralHandler.Redirect, globalRateLimiter.RateLimitMiddleware())
	e.GET("/capty-tracking.js", scriptHandler.Serve)

	// Webhooks with their own limit, Shopify delivers in bursts
	e.POST("/webhooks", webhookHandler.HandleWebhook, webhookRateLimiter.RateLimitMiddleware())

	// Capty backend
	api := e.Group("/api")
	api.Use(custommiddleware.RequireAPIKey(custommiddleware.APIKeyHeader, cfg.CaptyAPIKey))
	api.Use(globalRateLimiter.RateLimitMiddleware())
	api.GET("/commissions", commissionHandler.GetCommissions)
	api.GET("/commissions/export", commissionHandler.ExportCommissions)

	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := map[string]any{"status": "healthy", "database": "up"}
		code := http.StatusOK
		if err := db.Ping(ctx); err != nil {
			status["status"], status["database"] = "unhealthy", "down"
			code = http.StatusServiceUnavailable
		}
		if redisClient != nil {
			status["cache"] = "up"
			if err := redisClient.Ping(ctx); err != nil {
				// Dedup fails open, a down cache only degrades
				status["cache"] = "down"
				if code == http.StatusOK {
					status["status"] = "degraded"
				}
			}
		}
		return c.JSON(code, status)
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return &server{
		echo:     e,
		ledger:   ledgerService,
		limiters: []*custommiddleware.RateLimiter{globalRateLimiter, webhookRateLimiter},
	}, nil
}
