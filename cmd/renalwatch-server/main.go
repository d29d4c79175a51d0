package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/renalwatch/renalwatch/internal/config"
	"github.com/renalwatch/renalwatch/internal/domain/alert"
	"github.com/renalwatch/renalwatch/internal/domain/checkin"
	"github.com/renalwatch/renalwatch/internal/domain/clinician"
	"github.com/renalwatch/renalwatch/internal/domain/measurement"
	"github.com/renalwatch/renalwatch/internal/domain/notification"
	"github.com/renalwatch/renalwatch/internal/platform/auth"
	"github.com/renalwatch/renalwatch/internal/platform/db"
	"github.com/renalwatch/renalwatch/internal/platform/mail"
	"github.com/renalwatch/renalwatch/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "renalwatch-server",
		Short: "CKD remote monitoring API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the monitoring API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s)\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "migrations", "Directory containing migration files")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied"
					if s.AppliedAt != nil {
						state = fmt.Sprintf("applied at %s", s.AppliedAt.Format(time.RFC3339))
					}
				}
				fmt.Printf("%03d  %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "migrations", "Directory containing migration files")

	cmd.AddCommand(upCmd)
	cmd.AddCommand(statusCmd)
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Repositories
	measurementRepo := measurement.NewRepo(pool)
	checkinRepo := checkin.NewRepo(pool)
	clinicianRepo := clinician.NewRepo(pool)
	alertRepo := alert.NewRepo(pool)
	notificationRepo := notification.NewRepo(pool)

	// Mail transport. Development runs without a relay so dispatched mail
	// lands in an in-memory sink instead of failing every send.
	var sender mail.Sender
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		})
	} else {
		logger.Warn().Msg("SMTP_HOST not set, email delivery disabled")
		sender = mail.NewMockSender()
	}

	// Notification dispatcher fans alerts out to enrolled clinicians.
	dispatcher := notification.NewDispatcher(notificationRepo, clinicianRepo, sender, logger)
	dispatcher.SetMarker(alertRepo)

	// Alert evaluation runs the rule catalog inline with measurement ingestion.
	evaluator := alert.NewEvaluator(alert.Catalog(alert.DefaultRuleConfig()), measurementRepo, alertRepo, logger)
	evaluator.SetNotifier(dispatcher)

	// Escalation scheduler re-notifies unacknowledged alerts on a fixed cadence.
	escalator := alert.NewEscalator(alertRepo, alert.DefaultEscalationPolicy(), cfg.EscalationTick(), logger)
	escalator.SetNotifier(dispatcher)
	escalator.Start(ctx)

	// Measurement domain
	measurementSvc := measurement.NewService(measurementRepo)
	measurementSvc.SetEvaluator(evaluator)
	measurement.NewHandler(measurementSvc).RegisterRoutes(apiV1)

	// Symptom check-in domain
	checkinSvc := checkin.NewService(checkinRepo)
	checkin.NewHandler(checkinSvc).RegisterRoutes(apiV1)

	// Clinician and enrollment domain
	clinicianSvc := clinician.NewService(clinicianRepo)
	clinician.NewHandler(clinicianSvc).RegisterRoutes(apiV1)

	// Alert domain
	alertSvc := alert.NewService(alertRepo)
	alert.NewHandler(alertSvc).RegisterRoutes(apiV1)

	// Notification preferences and delivery log
	notification.NewHandler(notificationRepo).RegisterRoutes(apiV1)

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
