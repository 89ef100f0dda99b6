package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"store-ratings-api/auth"
	"store-ratings-api/config"
	"store-ratings-api/handlers"
	"store-ratings-api/metrics"
	"store-ratings-api/middleware"
	"store-ratings-api/routes"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("store-ratings-api", pflag.ExitOnError)
	envFile := flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	migrateOnly := flags.Bool("migrate-only", false, "migrate the database, create the bootstrap admin and exit")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(*envFile)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(cfg.GinMode)

	// Initialize database
	db, err := config.OpenDB(cfg.DatabasePath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	log.WithField("path", cfg.DatabasePath).Info("database connected and migrated")

	created, err := config.EnsureAdmin(db, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to create bootstrap admin")
	}
	if created {
		log.WithField("email", cfg.AdminEmail).Info("bootstrap admin created")
	}
	if *migrateOnly {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)
	limiter.StartCleanup(ctx, time.Minute)

	m := metrics.New()
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	r, err := routes.NewEngine(routes.Deps{
		Handler:        handlers.New(db, issuer, m, log, cfg.BcryptCost),
		Issuer:         issuer,
		AuthLimiter:    limiter,
		Metrics:        m,
		Log:            log,
		CORSOrigin:     cfg.CORSOrigin,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to build router")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
