package matching

import (
	"sort"

	"agrostat/models"
	"agrostat/normalization"
	"agrostat/normalization/algorithms"
)

// DefaultThreshold минимальная оценка WRatio, при которой совпадение принимается
const DefaultThreshold = 88.0

// Scorer функция оценки сходства двух нормализованных строк (0..100)
type Scorer func(a, b string) float64

// Pool канонические муниципалитеты, сгруппированные по UF.
// Внутри каждой группы записи отсортированы по коду.
type Pool struct {
	all  []models.CanonicalMunicipality
	byUF map[string][]models.CanonicalMunicipality
}

// NewPool строит пул; пустые нормализованные имена вычисляются
func NewPool(entries []models.CanonicalMunicipality) *Pool {
	all := make([]models.CanonicalMunicipality, len(entries))
	copy(all, entries)
	for i := range all {
		if all[i].NormalizedName == "" {
			all[i].NormalizedName = normalization.NormalizeName(all[i].Name)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })

	byUF := make(map[string][]models.CanonicalMunicipality)
	for _, m := range all {
		byUF[m.UF] = append(byUF[m.UF], m)
	}
	return &Pool{all: all, byUF: byUF}
}

// Candidates возвращает муниципалитеты UF или весь пул, если uf пуст
func (p *Pool) Candidates(uf string) []models.CanonicalMunicipality {
	if p == nil {
		return nil
	}
	if uf == "" {
		return p.all
	}
	return p.byUF[uf]
}

// Len размер пула
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.all)
}

// Resolver сопоставляет названия из таблицы филиалов с реестром IBGE
type Resolver struct {
	threshold float64
	scorer    Scorer
}

// NewResolver создает резолвер с порогом threshold и оценкой WRatio
func NewResolver(threshold float64) *Resolver {
	return &Resolver{threshold: threshold, scorer: algorithms.WRatio}
}

// NewResolverWithScorer создает резолвер с произвольной функцией оценки
func NewResolverWithScorer(threshold float64, scorer Scorer) *Resolver {
	return &Resolver{threshold: threshold, scorer: scorer}
}

// Threshold текущий порог
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Best ищет лучший кандидат для нормализованного имени.
// При равных оценках выигрывает меньший код. Совпадение принимается при score >= порога.
func (r *Resolver) Best(normalizedName, uf string, pool *Pool) (models.CanonicalMunicipality, float64, bool) {
	candidates := pool.Candidates(uf)
	if len(candidates) == 0 || normalizedName == "" {
		return models.CanonicalMunicipality{}, 0, false
	}

	bestIdx := -1
	bestScore := -1.0
	for i, c := range candidates {
		score := r.scorer(normalizedName, c.NormalizedName)
		if score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}

	if bestScore < r.threshold {
		return models.CanonicalMunicipality{}, bestScore, false
	}
	return candidates[bestIdx], bestScore, true
}

// Resolve сопоставляет записи с пулом и возвращает найденные соответствия
// и записи без соответствия
func (r *Resolver) Resolve(records []models.BranchMunicipality, pool *Pool) ([]models.Resolution, []models.BranchMunicipality) {
	var resolved []models.Resolution
	var unmatched []models.BranchMunicipality

	for _, rec := range records {
		name := rec.NormalizedName
		if name == "" {
			name = normalization.NormalizeName(rec.RawName)
		}

		match, score, ok := r.Best(name, rec.UF, pool)
		if !ok {
			unmatched = append(unmatched, rec)
			continue
		}
		resolved = append(resolved, models.Resolution{
			RecordID: rec.ID,
			Code:     match.Code,
			UF:       match.UF,
			Name:     match.Name,
			Score:    score,
		})
	}

	return resolved, unmatched
}
