package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/devlearning/devauth/internal/admincli"
	"github.com/devlearning/devauth/internal/logging"
	"github.com/devlearning/devauth/internal/server/auth"
	"github.com/devlearning/devauth/internal/server/config"
	"github.com/devlearning/devauth/internal/server/repositories/repomanager"
	"github.com/devlearning/devauth/internal/server/services"
	"github.com/devlearning/devauth/internal/timex"
)

func main() {
	if len(os.Args) < 2 {
		os.Exit(admincli.NewApp(nil, nil, nil, nil, os.Stdout).Run(context.Background(), nil))
	}
	args := os.Args[1:]

	cfg, err := config.Load(args[1:], os.LookupEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	ctx := context.Background()
	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		log.Fatalf("migrations: %v", err)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewJSONLogger(os.Stderr, level)
	clock := timex.Clock(timex.SystemClock)

	store := services.NewTokenStore(db, rm, cfg.RefreshTokenValidityDuration, clock)
	principals := services.NewPrincipalService(db, rm, auth.NewBcryptHasher(cfg.BcryptCost), logger)

	app := admincli.NewApp(principals, store, store, clock, os.Stdout)
	code := app.Run(ctx, args)
	_ = db.Close()
	os.Exit(code)
}
