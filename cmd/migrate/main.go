package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/Jackson16868/mcshop-bot/internal/config"
	"github.com/Jackson16868/mcshop-bot/internal/database"
	"github.com/Jackson16868/mcshop-bot/internal/logger"
)

const usage = `usage: migrate <command>

commands:
  schema   create tables from the models (any driver)
  reset    drop and recreate tables from the models
  up       apply SQL migrations (postgres)
  down     roll back all SQL migrations (postgres)
  to N     migrate to version N (postgres)
  seed     insert the default services and shop hours when empty`

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewWithWriter(os.Stdout, logger.INFO)

	ctx := context.Background()
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	switch cmd := flag.Arg(0); cmd {
	case "schema":
		err = database.CreateSchema(ctx, bunDB)
	case "reset":
		if err = database.DropSchema(ctx, bunDB); err == nil {
			err = database.CreateSchema(ctx, bunDB)
		}
	case "up", "down", "to":
		err = runMigrations(bunDB, cfg.Database, log, cmd, flag.Arg(1))
	case "seed":
		var services, slots int
		services, slots, err = database.Seed(ctx, bunDB)
		if err == nil {
			log.LogDatabase("SEED", "services", fmt.Sprintf("%d inserted", services))
			log.LogDatabase("SEED", "shop_slots", fmt.Sprintf("%d inserted", slots))
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal("MIGRATE", fmt.Sprintf("❌ %s failed: %v", flag.Arg(0), err))
	}
	log.Info("MIGRATE", "✅ Done.")
}
