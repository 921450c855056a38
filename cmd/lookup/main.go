package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"agrostat/internal/config"
	"agrostat/internal/container"
	"agrostat/server"
)

func main() {
	outDir := flag.String("out", "", "Output directory (default: DATA_DIR)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if *outDir == "" {
		*outDir = cfg.DataDir
	}

	c, err := container.NewContainer(cfg, server.NewLogger(cfg.LogLevel))
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	defer c.Close()

	summary, err := c.Exporter.LookupFiles(context.Background(), *outDir)
	if err != nil {
		log.Fatalf("failed to build lookup files: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		log.Fatalf("failed to print summary: %v", err)
	}
}
