// Command scraper runs the extraction pipeline once and writes the merged
// dataset to a CSV file. Useful for cron jobs and offline analysis without
// the dashboard server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/jonboulle/clockwork"

	"popflow/internal/config"
	"popflow/internal/exporter"
	"popflow/internal/infrastructure"
	"popflow/internal/services"
)

func main() {
	var logger *slog.Logger
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC RECOVERED: %v\n%s\n", r, debug.Stack())
			if logger != nil {
				logger.Error("scraper panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
			}
			os.Exit(1)
		}
	}()

	out := flag.String("out", "", "output CSV path (defaults to <data_dir>/population_data.csv)")
	synthetic := flag.Bool("synthetic", false, "generate the deterministic demo dataset instead of scraping")
	refresh := flag.Bool("refresh", false, "ignore cached data and re-scrape")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall pipeline timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *synthetic {
		cfg.Scraper.Synthetic = true
	}

	logger, err = infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create directories: %v\n", err)
		os.Exit(1)
	}

	outPath := *out
	if outPath == "" {
		outPath = filepath.Join(cfg.Paths.DataDir, "population_data.csv")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc := services.NewDataService(cfg, clockwork.NewRealClock(), logger)

	fetch := svc.Dataset
	if *refresh {
		fetch = svc.Refresh
	}
	dataset, err := fetch(ctx)
	if err != nil {
		logger.Error("pipeline failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	dataset.SortByCityYear()

	for _, report := range svc.FetchReports() {
		if report.OK {
			logger.Info("source ok",
				slog.String("url", report.URL),
				slog.Int("records", report.Records),
				slog.Duration("duration", report.Duration))
		} else {
			logger.Warn("source failed",
				slog.String("url", report.URL),
				slog.String("error", report.Error))
		}
	}

	if err := exporter.WriteCSVFile(outPath, dataset, logger); err != nil {
		logger.Error("export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("Wrote %d rows for %d cities to %s\n",
		dataset.Len(), len(dataset.Cities()), outPath)
}
