package main

import (
	"context"
	"fmt"
	"os"

	"github.com/brandhub/deploycenter/internal/migrations"
	"github.com/brandhub/deploycenter/pkg/config"
	"github.com/brandhub/deploycenter/pkg/database"
	"github.com/brandhub/deploycenter/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.OpenPostgres(context.Background(), cfg.DatabaseURL, database.Options{MaxOpenConns: 2})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := migrations.Run(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
