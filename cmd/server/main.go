package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/louhia/hankintadata/pkg/api"
	"github.com/louhia/hankintadata/pkg/catalog"
	"github.com/louhia/hankintadata/pkg/chassis"
	"github.com/louhia/hankintadata/pkg/store"
)

type config struct {
	Addr        string `yaml:"addr"`
	DBPath      string `yaml:"db_path"`
	DownloadDir string `yaml:"download_dir"`
	TLSCert     string `yaml:"tls_cert"`
	TLSKey      string `yaml:"tls_key"`
	DebugSQL    bool   `yaml:"debug_sql"`

	Catalog struct {
		BaseURL           string `yaml:"base_url"`
		Dataset           string `yaml:"dataset"`
		RequestDelayMilli int    `yaml:"request_delay_ms"`
	} `yaml:"catalog"`
}

func (c config) requestDelay() time.Duration {
	return time.Duration(c.Catalog.RequestDelayMilli) * time.Millisecond
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "ingest":
		cmdIngest(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: hankinta <command>\n\nCommands:\n  serve    Start the query API server\n  ingest   Download and import the procurement dataset\n")
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := loadConfig(*cfgPath, logger)

	db, err := store.Open(cfg.DBPath, cfg.DebugSQL)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.Init(ctx, db); err != nil {
		logger.Error("init schema", "error", err)
		os.Exit(1)
	}

	invoices := store.NewInvoiceStore(db)
	ledger := store.NewLedger(db)

	mcpSrv := server.NewMCPServer("hankintadata", "1.0.0", server.WithToolCapabilities(false))
	api.RegisterMCPTools(mcpSrv, invoices, ledger)

	srv, err := chassis.New(chassis.Config{
		Addr:      cfg.Addr,
		CertFile:  cfg.TLSCert,
		KeyFile:   cfg.TLSKey,
		Handler:   api.NewRouter(invoices, ledger),
		MCPServer: mcpSrv,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Stop(shutdownCtx)
	}()

	logger.Info("hankintadata listening", "addr", cfg.Addr)
	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string, logger *slog.Logger) config {
	cfg := config{
		Addr:        ":8430",
		DBPath:      "hankinnat.db",
		DownloadDir: "downloads",
	}
	cfg.Catalog.BaseURL = catalog.DefaultBaseURL
	cfg.Catalog.Dataset = "valtion-hankinnat"
	cfg.Catalog.RequestDelayMilli = 500

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no config file, using defaults", "path", path)
			return cfg
		}
		logger.Error("read config", "error", err)
		os.Exit(1)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Error("parse config", "error", err)
		os.Exit(1)
	}
	return cfg
}
