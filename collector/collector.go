package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"agrostat/models"
	"agrostat/sidra"
)

// StatsSource источник метаданных и значений SIDRA
type StatsSource interface {
	Metadata(ctx context.Context, tableID int) (*sidra.Metadata, error)
	Values(ctx context.Context, url string) ([]json.RawMessage, error)
}

// ObservationStore хранилище наблюдений
type ObservationStore interface {
	UpsertObservations(ctx context.Context, observations []models.Observation) (int, error)
}

// Options параметры сбора
type Options struct {
	Period      string
	Concurrency int
}

// GroupReport итог сбора по группе продуктов
type GroupReport struct {
	Group         string         `json:"group"`
	TableID       int            `json:"table"`
	VariableID    int            `json:"variable,omitempty"`
	VariableName  string         `json:"variable_name,omitempty"`
	Categories    int            `json:"categories"`
	Skipped       bool           `json:"skipped"`
	SkipReason    string         `json:"skip_reason,omitempty"`
	ChunksPlanned int            `json:"chunks_planned"`
	ChunksFailed  int            `json:"chunks_failed"`
	Rows          int            `json:"rows"`
	Extracted     int            `json:"extracted"`
	RowsSkipped   map[string]int `json:"rows_skipped,omitempty"`
	Upserted      int            `json:"upserted"`
	Error         string         `json:"error,omitempty"`
	Duration      time.Duration  `json:"duration_ns"`
}

// Collector собирает наблюдения по группам продуктов
type Collector struct {
	source  StatsSource
	store   ObservationStore
	planner *sidra.Planner
	opts    Options
	metrics *Metrics
	logger  *slog.Logger
}

// New создает сборщик
func New(source StatsSource, store ObservationStore, planner *sidra.Planner, opts Options, metrics *Metrics, logger *slog.Logger) *Collector {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Period == "" {
		opts.Period = sidra.DefaultPeriod
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		source:  source,
		store:   store,
		planner: planner,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
	}
}

// CollectGroup собирает группу для переданных кодов муниципалитетов.
// Отсутствие метаданных или подходящих категорий дает пропуск группы в отчете;
// ошибка возвращается только при сбое хранилища.
func (c *Collector) CollectGroup(ctx context.Context, group sidra.ProductGroup, codes []int) (GroupReport, error) {
	started := time.Now()
	report, err := c.collectGroup(ctx, group, codes)
	report.Duration = time.Since(started)
	return report, err
}

func (c *Collector) collectGroup(ctx context.Context, group sidra.ProductGroup, codes []int) (GroupReport, error) {
	report := GroupReport{Group: group.Name, TableID: group.TableID, RowsSkipped: map[string]int{}}

	if len(codes) == 0 {
		return c.skip(report, "no resolved municipalities"), nil
	}

	meta, err := c.source.Metadata(ctx, group.TableID)
	if err != nil {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		c.logger.Warn("metadata unavailable", "group", group.Name, "table", group.TableID, "error", err)
		return c.skip(report, "metadata unavailable"), nil
	}

	selection, err := sidra.Select(meta, group)
	switch {
	case errors.Is(err, sidra.ErrNoUsableVariable):
		return c.skip(report, "no usable variable"), nil
	case errors.Is(err, sidra.ErrNoTargetCategories):
		return c.skip(report, "no target categories"), nil
	case err != nil:
		return report, fmt.Errorf("failed to select metadata for %s: %w", group.Name, err)
	}

	report.VariableID = selection.Variable.ID
	report.VariableName = selection.Variable.Name
	report.Categories = selection.Categories.Len()

	var queries []sidra.Query
	for _, clsID := range selection.Categories.ClassificationIDs() {
		queries = append(queries, c.planner.Plan(group.TableID, selection.Variable.ID, c.opts.Period,
			codes, clsID, selection.Categories.CategoryIDs(clsID))...)
	}
	report.ChunksPlanned = len(queries)

	c.logger.Info("collecting product group",
		"group", group.Name,
		"table", group.TableID,
		"variable", selection.Variable.ID,
		"categories", report.Categories,
		"municipalities", len(codes),
		"chunks", len(queries),
	)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for _, q := range queries {
		g.Go(func() error {
			chunkStarted := time.Now()
			categories := selection.Categories[q.ClassificationID]
			req := sidra.NewExtractRequest(q, categories, selection.Variable.Unit, group.Source())

			doc, err := c.source.Values(gctx, q.URL)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logger.Warn("chunk fetch failed", "group", group.Name, "url", q.URL, "error", err)
				c.metrics.chunkDone(group.Name, "failed", time.Since(chunkStarted))
				mu.Lock()
				report.ChunksFailed++
				mu.Unlock()
				return nil
			}

			result := sidra.ExtractChunk(doc, req)
			n, err := c.store.UpsertObservations(gctx, result.Observations)
			if err != nil {
				return fmt.Errorf("failed to store observations for %s: %w", group.Name, err)
			}

			c.metrics.chunkDone(group.Name, "ok", time.Since(chunkStarted))
			c.metrics.rowsSeen(group.Name, "extracted", len(result.Observations))
			for reason, count := range result.Skipped {
				c.metrics.rowsSeen(group.Name, string(reason), count)
			}
			c.metrics.upsertedRows(group.Name, n)

			if skipped := result.SkippedTotal(); skipped > 0 {
				c.logger.Debug("rows skipped", "group", group.Name, "url", q.URL, "skipped", skipped)
			}

			mu.Lock()
			report.Rows += result.Rows
			report.Extracted += len(result.Observations)
			for reason, count := range result.Skipped {
				report.RowsSkipped[string(reason)] += count
			}
			report.Upserted += n
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	c.logger.Info("product group collected",
		"group", group.Name,
		"chunks_failed", report.ChunksFailed,
		"rows", report.Rows,
		"upserted", report.Upserted,
	)
	return report, nil
}

func (c *Collector) skip(report GroupReport, reason string) GroupReport {
	report.Skipped = true
	report.SkipReason = reason
	c.logger.Warn("product group skipped", "group", report.Group, "reason", reason)
	return report
}
