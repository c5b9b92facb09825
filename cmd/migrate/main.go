package main

// Run database migrations:
//   go run ./cmd/migrate [up|down|status]

import (
	"context"
	"log"
	"os"

	"github.com/Megamind2600/resumerocketpro/internal/shared/config"
	"github.com/Megamind2600/resumerocketpro/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	pool, err := db.MigratePool().WithEnv(nil)
	if err != nil {
		log.Printf("database pool settings: %v", err)
		os.Exit(2)
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, pool)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch command {
	case "up":
		err = db.RunMigrations(ctx, sqlDB)
	case "down":
		err = db.RollbackMigration(ctx, sqlDB)
	case "status":
		err = db.MigrationStatus(ctx, sqlDB)
	default:
		log.Printf("unknown command %q (want up, down or status)", command)
		sqlDB.Close()
		os.Exit(2)
	}
	if err != nil {
		log.Printf("migrate %s: %v", command, err)
		sqlDB.Close()
		os.Exit(1)
	}
}
