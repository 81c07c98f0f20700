// Command migrate creates the service tables and backfills the legacy
// request_status column into current_request_status.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"transfer-appeal-api/config"
	"transfer-appeal-api/services"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var (
		skipSchema bool
		dryRun     bool
	)
	flag.BoolVar(&skipSchema, "skip-schema", false, "only run the legacy status backfill")
	flag.BoolVar(&dryRun, "dry-run", false, "report the backfill without writing")
	flag.Parse()

	config.LoadAppConfig()
	logger, flush := config.InitLogging()
	defer flush()

	config.InitDB()

	if !skipSchema {
		if err := config.AutoMigrate(config.DB); err != nil {
			logger.Fatal("auto migration failed", zap.Error(err))
		}
		logger.Info("schema migrated")
	}

	summary, err := services.BackfillLegacyStatus(context.Background(), config.DB, logger.Named("backfill"), dryRun)
	if err != nil {
		logger.Fatal("legacy status backfill failed", zap.Error(err))
	}

	fmt.Printf("Legacy rows scanned: %d, updated: %d, unresolved: %d\n", summary.Scanned, summary.Updated, len(summary.Unresolved))
	if dryRun {
		fmt.Println("Dry run complete. No database changes were made.")
	}
}
