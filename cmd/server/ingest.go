package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/louhia/hankintadata/pkg/catalog"
	"github.com/louhia/hankintadata/pkg/ingest"
	"github.com/louhia/hankintadata/pkg/store"
)

func cmdIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	yearsFlag := fs.String("years", "", "comma-separated source years to ingest (default: all)")
	force := fs.Bool("force", false, "redownload files already on disk")
	clear := fs.Bool("clear", false, "wipe all invoices and ledger rows before ingesting")
	fs.Parse(args)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := loadConfig(*cfgPath, logger)

	years, err := parseYears(*yearsFlag)
	if err != nil {
		logger.Error("invalid --years", "error", err)
		os.Exit(1)
	}

	db, err := store.Open(cfg.DBPath, cfg.DebugSQL)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := store.Init(ctx, db); err != nil {
		logger.Error("init schema", "error", err)
		os.Exit(1)
	}

	invoices := store.NewInvoiceStore(db)
	ledger := store.NewLedger(db)

	pipeline := ingest.NewPipeline(
		catalog.NewClient(cfg.Catalog.BaseURL),
		cfg.Catalog.Dataset,
		ingest.NewDownloader(cfg.DownloadDir, cfg.requestDelay(), logger),
		ingest.NewImporter(invoices, ledger, logger),
		invoices,
		logger,
	)

	report, err := pipeline.Run(ctx, ingest.Options{
		Years: years,
		Force: *force,
		Clear: *clear,
	})
	if err != nil {
		logger.Error("ingestion aborted", "error", err)
		os.Exit(1)
	}

	for _, r := range report.Results {
		if r.Err != "" {
			fmt.Printf("  FAILED  %-40s %s\n", r.Name, r.Err)
		} else {
			fmt.Printf("  ok      %-40s %d records (%d rejected)\n", r.Name, r.Records, r.Rejected)
		}
	}
	fmt.Printf("\nIngestion done: %d files, %d succeeded, %d failed, %d records total\n",
		report.Files, report.Succeeded, report.Failed, report.TotalRecords)
}

func parseYears(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var years []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("not a year: %q", part)
		}
		years = append(years, y)
	}
	return years, nil
}
