// Package container собирает зависимости приложения из конфигурации
package container

import (
	"fmt"
	"log/slog"

	"agrostat/collector"
	"agrostat/database"
	"agrostat/fetch"
	"agrostat/internal/config"
	"agrostat/localidades"
	"agrostat/matching"
	"agrostat/reporting"
	"agrostat/server/handlers"
	"agrostat/sidra"
)

// Container контейнер зависимостей
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	DB      *database.StatsDB
	Fetcher *fetch.HTTPFetcher
	Catalog []sidra.ProductGroup
	Metrics *collector.Metrics

	Registry  *localidades.Client
	Sidra     *sidra.Client
	Matcher   *matching.Service
	Collector *collector.Collector
	Pipeline  *collector.Pipeline
	Exporter  *reporting.Exporter
}

// NewContainer открывает хранилище и создает клиентов IBGE, сборщик и экспортер
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load product catalog: %w", err)
	}

	db, err := database.NewStatsDBWithConfig(cfg.DatabaseURL, cfg.DBConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Info("database opened", "dialect", db.Dialect().String())

	fetchCfg := cfg.FetchConfig()
	fetchCfg.Logger = logger
	fetcher := fetch.NewHTTPFetcher(fetchCfg)

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Fetcher:  fetcher,
		Catalog:  catalog,
		Metrics:  collector.NewMetrics(),
		Registry: localidades.NewClient(cfg.LocalidadesBaseURL, fetcher),
		Sidra:    sidra.NewClient(cfg.SidraBaseURL, fetcher),
	}

	c.Matcher = matching.NewService(db, c.Registry, matching.NewResolver(cfg.MatchScoreThreshold), cfg.AllowedUFs, logger)

	planner := sidra.NewPlanner(cfg.SidraBaseURL, cfg.BatchSizes())
	c.Collector = collector.New(c.Sidra, db, planner, collector.Options{
		Period:      cfg.CollectPeriod,
		Concurrency: cfg.CollectConcurrency,
	}, c.Metrics, logger)

	c.Pipeline = collector.NewPipeline(db, c.Matcher, c.Collector, collector.PipelineConfig{
		DataDir:    cfg.DataDir,
		AllowedUFs: cfg.AllowedUFs,
		Catalog:    catalog,
	}, c.Metrics, logger)

	c.Exporter = reporting.NewExporter(db, logger)
	return c, nil
}

// Handler обработчики HTTP API поверх зависимостей контейнера
func (c *Container) Handler() *handlers.Handler {
	return handlers.NewHandler(c.DB, c.Exporter, c.Pipeline, c.Logger)
}

// Close закрывает хранилище
func (c *Container) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
