package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "procurement-desk/internal/adapters/web"
	"procurement-desk/internal/ai"
	"procurement-desk/internal/app"
	"procurement-desk/internal/config"
	"procurement-desk/internal/db"
	"procurement-desk/internal/obs"
	"procurement-desk/migrations"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := obs.NewLogger(cfg.LogFormat, cfg.LogLevel)
	if err := cfg.RequireDatabase(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()

	if _, err := db.Migrate(ctx, pool, migrations.FS, log); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	var drafter ai.LineDrafter
	if cfg.OpenAIAPIKey != "" {
		drafter = ai.NewAgent(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	} else {
		log.Warn().Msg("OPENAI_API_KEY is not set; line drafting is disabled")
	}
	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is not set; the API is unauthenticated")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewMetrics("procurement", reg)

	svc := app.NewFromPool(pool, drafter, metrics, log)
	handler := webAdapter.NewHandler(svc, webAdapter.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
		Logger:         log,
		Metrics:        metrics,
		Gatherer:       reg,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server")
	}
	log.Info().Msg("server stopped")
}
