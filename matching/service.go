package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"agrostat/models"
)

// ErrRegistryUnavailable реестр муниципалитетов не ответил; сохраненные коды остаются в силе
var ErrRegistryUnavailable = errors.New("municipality registry unavailable")

// RecordStore хранилище записей филиалов
type RecordStore interface {
	ListBranchMunicipalities(ctx context.Context) ([]models.BranchMunicipality, error)
	UpdateResolvedCodes(ctx context.Context, resolutions []models.Resolution) (int, error)
}

// Registry источник канонических муниципалитетов
type Registry interface {
	Municipalities(ctx context.Context, ufs []string) ([]models.CanonicalMunicipality, error)
}

// Result итог сопоставления
type Result struct {
	Total     int    `json:"total"`
	Matched   int    `json:"matched"`
	Unmatched int    `json:"unmatched"`
	Updated   int    `json:"updated"`
	Skipped   bool   `json:"skipped,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Service загружает реестр, сопоставляет записи и записывает коды одной транзакцией
type Service struct {
	store    RecordStore
	registry Registry
	resolver *Resolver
	ufs      []string
	logger   *slog.Logger
}

// NewService создает сервис сопоставления
func NewService(store RecordStore, registry Registry, resolver *Resolver, ufs []string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		registry: registry,
		resolver: resolver,
		ufs:      ufs,
		logger:   logger,
	}
}

// MatchCodes сопоставляет все записи филиалов и возвращает число обновленных записей
func (s *Service) MatchCodes(ctx context.Context) (Result, error) {
	records, err := s.store.ListBranchMunicipalities(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list branch municipalities: %w", err)
	}

	canonical, err := s.registry.Municipalities(ctx, s.ufs)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}
	pool := NewPool(canonical)

	resolved, unmatched := s.resolver.Resolve(records, pool)
	for _, rec := range unmatched {
		s.logger.Debug("municipality not matched",
			"branch", rec.Branch,
			"name", rec.RawName,
			"uf", rec.UF,
		)
	}

	updated, err := s.store.UpdateResolvedCodes(ctx, resolved)
	if err != nil {
		return Result{}, fmt.Errorf("failed to store resolved codes: %w", err)
	}

	res := Result{
		Total:     len(records),
		Matched:   len(resolved),
		Unmatched: len(unmatched),
		Updated:   updated,
	}
	s.logger.Info("municipality matching finished",
		"total", res.Total,
		"matched", res.Matched,
		"unmatched", res.Unmatched,
		"pool_size", pool.Len(),
		"threshold", s.resolver.Threshold(),
	)
	return res, nil
}
