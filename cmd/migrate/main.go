package main

import (
	"context"
	"flag"
	"io/fs"
	"os"
	"time"

	"procurement-desk/internal/config"
	"procurement-desk/internal/db"
	"procurement-desk/internal/obs"
	"procurement-desk/migrations"
)

func main() {
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := obs.NewLogger(cfg.LogFormat, cfg.LogLevel)
	if err := cfg.RequireDatabase(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx := context.Background()
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := db.NewPool(connCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}
	defer pool.Close()

	var fsys fs.FS = migrations.FS
	if *dir != "" {
		fsys = os.DirFS(*dir)
	}

	applied, err := db.Migrate(ctx, pool, fsys, log)
	if err != nil {
		log.Fatal().Err(err).Strs("applied", applied).Msg("migrate")
	}
	log.Info().Int("applied", len(applied)).Msg("all migrations processed")
}
