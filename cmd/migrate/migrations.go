package main

import (
	"fmt"
	"strconv"

	"github.com/uptrace/bun"

	"github.com/Jackson16868/mcshop-bot/internal/config"
	"github.com/Jackson16868/mcshop-bot/internal/database/migrations"
	"github.com/Jackson16868/mcshop-bot/internal/logger"
)

func runMigrations(bunDB *bun.DB, cfg config.DatabaseConfig, log *logger.Logger, cmd, arg string) error {
	if cfg.Driver != "postgres" {
		return fmt.Errorf("SQL migrations target postgres, DB_DRIVER is %q", cfg.Driver)
	}

	runner := migrations.NewRunner(bunDB, cfg.MigrationsDir, log)
	defer runner.Close()

	switch cmd {
	case "up":
		return runner.Up()
	case "down":
		return runner.Down()
	default:
		version, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", arg, err)
		}
		return runner.To(uint(version))
	}
}
