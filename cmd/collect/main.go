package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"agrostat/internal/config"
	"agrostat/internal/container"
	"agrostat/reporting"
	"agrostat/server"
)

func main() {
	groupsFlag := flag.String("groups", "", "Product groups to collect, comma separated (default: whole catalog)")
	dataDir := flag.String("data-dir", "", "Directory with the branch spreadsheet (overrides DATA_DIR)")
	exportPath := flag.String("export", "", "Workbook path (default: <data-dir>/relatorio_filiais.xlsx)")
	noExport := flag.Bool("no-export", false, "Skip the branch workbook export")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := server.NewLogger(cfg.LogLevel)
	logger.Info("collection started", "data_dir", cfg.DataDir, "database", cfg.DatabaseURL)

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := c.Pipeline.Run(ctx, splitGroups(*groupsFlag))
	if runErr != nil {
		logger.Error("collection finished with errors", "error", runErr)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("failed to print report: %v", err)
	}

	if !*noExport && ctx.Err() == nil {
		path := *exportPath
		if path == "" {
			path = filepath.Join(cfg.DataDir, "relatorio_filiais.xlsx")
		}
		year, err := c.Exporter.BranchesWorkbook(ctx, path)
		switch {
		case errors.Is(err, reporting.ErrNoData):
			logger.Warn("no observations to export, run the collection first")
		case err != nil:
			log.Fatalf("failed to export workbook: %v", err)
		default:
			fmt.Printf("Generated %s (year %d)\n", path, year)
		}
	}

	if runErr != nil {
		os.Exit(1)
	}
}

func splitGroups(s string) []string {
	var groups []string
	for _, g := range strings.Split(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}
