// Command import-specs provisions transfer applicant records from an xlsx file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

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
		path    string
		dryRun  bool
		trigger string
	)
	flag.StringVar(&path, "file", "", "path to the .xlsx workbook (required)")
	flag.BoolVar(&dryRun, "dry-run", false, "validate rows without writing records")
	flag.StringVar(&trigger, "trigger", "cli", "trigger source label stored in spec_import_runs")
	flag.Parse()

	if path == "" {
		log.Fatal("-file is required")
	}

	config.LoadAppConfig()
	logger, flush := config.InitLogging()
	defer flush()

	f, err := os.Open(path)
	if err != nil {
		logger.Fatal("failed to open workbook", zap.String("file", path), zap.Error(err))
	}
	defer f.Close()

	config.InitDB()

	svc := services.NewSpecImportService(config.DB, nil)
	summary, err := svc.Import(context.Background(), f, filepath.Base(path), trigger, dryRun)
	if err != nil {
		if errors.Is(err, services.ErrImportInProgress) {
			logger.Fatal("another import is already running")
		}
		logger.Fatal("import failed", zap.Error(err))
	}

	fmt.Printf("Rows: %d, created: %d, skipped: %d, failed: %d\n",
		summary.RowCount,
		summary.CreatedCount,
		summary.SkippedCount,
		summary.FailedCount,
	)
	for _, rowErr := range summary.Errors {
		fmt.Printf("  row %d %s: %s\n", rowErr.Row, rowErr.Field, rowErr.Message)
	}
	if dryRun {
		fmt.Println("Dry run complete. No database changes were made.")
	}
	if summary.FailedCount > 0 {
		os.Exit(2)
	}
}
