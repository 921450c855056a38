package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"agrostat/importer"
	"agrostat/matching"
	"agrostat/models"
	"agrostat/sidra"
)

// BranchStore хранилище записей филиалов и журнала запусков
type BranchStore interface {
	UpsertBranchMunicipalities(ctx context.Context, records []models.BranchMunicipality) (int, error)
	ListResolvedCodes(ctx context.Context) ([]int, error)
	SaveCollectionRun(ctx context.Context, run models.CollectionRun) error
}

// Matcher сопоставление записей филиалов с реестром
type Matcher interface {
	MatchCodes(ctx context.Context) (matching.Result, error)
}

// RunReport итог полного запуска
type RunReport struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	SourceFile string          `json:"source_file,omitempty"`
	Imported   int             `json:"imported"`
	Matching   matching.Result `json:"matching"`
	Groups     []GroupReport   `json:"groups"`
	Upserted   int             `json:"upserted"`
}

// PipelineConfig параметры полного запуска
type PipelineConfig struct {
	DataDir    string
	AllowedUFs []string
	Catalog    []sidra.ProductGroup
}

// Pipeline загрузка таблицы филиалов, сопоставление и сбор всех групп
type Pipeline struct {
	store     BranchStore
	matcher   Matcher
	collector *Collector
	cfg       PipelineConfig
	metrics   *Metrics
	logger    *slog.Logger
}

// NewPipeline создает конвейер
func NewPipeline(store BranchStore, matcher Matcher, collector *Collector, cfg PipelineConfig, metrics *Metrics, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:     store,
		matcher:   matcher,
		collector: collector,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
	}
}

// GroupNames имена групп каталога
func (p *Pipeline) GroupNames() []string {
	names := make([]string, 0, len(p.cfg.Catalog))
	for _, g := range p.cfg.Catalog {
		names = append(names, g.Name)
	}
	return names
}

// Run выполняет полный запуск для перечисленных групп (все группы каталога, если список пуст).
// Сбой одной группы не останавливает остальные; недоступный реестр оставляет ранее
// сопоставленные коды. Такие ошибки возвращаются вместе с отчетом.
func (p *Pipeline) Run(ctx context.Context, groups []string) (RunReport, error) {
	report := RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	logger := p.logger.With("run_id", report.RunID)

	if err := p.importBranches(ctx, &report, logger); err != nil {
		return report, err
	}

	var runErrs []error
	matched, err := p.matcher.MatchCodes(ctx)
	switch {
	case err == nil:
		report.Matching = matched
		p.metrics.SetMatching(matched.Matched, matched.Unmatched)
	case ctx.Err() != nil:
		return report, ctx.Err()
	case errors.Is(err, matching.ErrRegistryUnavailable):
		logger.Warn("matching skipped, collecting stored codes", "error", err)
		report.Matching = matching.Result{Skipped: true, Error: err.Error()}
		runErrs = append(runErrs, err)
	default:
		return report, fmt.Errorf("failed to match municipality codes: %w", err)
	}

	codes, err := p.store.ListResolvedCodes(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list resolved codes: %w", err)
	}

	if len(groups) == 0 {
		groups = p.GroupNames()
	}

	for _, name := range groups {
		group, ok := sidra.FindGroup(p.cfg.Catalog, name)
		if !ok {
			logger.Warn("unknown product group", "group", name)
			report.Groups = append(report.Groups, GroupReport{Group: name, Skipped: true, SkipReason: "unknown group"})
			continue
		}

		gr, err := p.collector.CollectGroup(ctx, group, codes)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			logger.Error("product group failed", "group", name, "error", err)
			gr.Error = err.Error()
			runErrs = append(runErrs, err)
		}
		report.Upserted += gr.Upserted
		report.Groups = append(report.Groups, gr)
	}

	report.FinishedAt = time.Now().UTC()
	if err := p.saveRun(ctx, report); err != nil {
		runErrs = append(runErrs, err)
	}

	logger.Info("collection run finished",
		"imported", report.Imported,
		"matched", report.Matching.Matched,
		"groups", len(report.Groups),
		"upserted", report.Upserted,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, errors.Join(runErrs...)
}

func (p *Pipeline) importBranches(ctx context.Context, report *RunReport, logger *slog.Logger) error {
	path, err := importer.FindBranchFile(p.cfg.DataDir)
	if errors.Is(err, importer.ErrBranchFileNotFound) {
		logger.Warn("branch spreadsheet not found, using stored records", "data_dir", p.cfg.DataDir)
		return nil
	}
	if err != nil {
		return err
	}

	records, err := importer.ParseBranchFile(path, p.cfg.AllowedUFs)
	if err != nil {
		return fmt.Errorf("failed to parse branch file %s: %w", path, err)
	}

	n, err := p.store.UpsertBranchMunicipalities(ctx, records)
	if err != nil {
		return fmt.Errorf("failed to store branch municipalities: %w", err)
	}

	report.SourceFile = path
	report.Imported = n
	logger.Info("branch spreadsheet imported", "file", path, "records", n)
	return nil
}

func (p *Pipeline) saveRun(ctx context.Context, report RunReport) error {
	summary, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}
	run := models.CollectionRun{
		RunID:      report.RunID,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Upserted:   report.Upserted,
		Summary:    string(summary),
	}
	if err := p.store.SaveCollectionRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save collection run: %w", err)
	}
	return nil
}
