package sidra

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultMunicipalityBatch муниципалитетов в одном запросе
	DefaultMunicipalityBatch = 30
	// DefaultCategoryBatch категорий в одном запросе
	DefaultCategoryBatch = 8
	// DefaultPeriod период по умолчанию: последний доступный
	DefaultPeriod = "last"
	// MunicipalityLevel территориальный уровень муниципалитетов
	MunicipalityLevel = "N6"
)

// BatchSizes размеры пакетов запроса
type BatchSizes struct {
	Municipalities int
	Categories     int
}

// DefaultBatchSizes размеры пакетов по умолчанию
func DefaultBatchSizes() BatchSizes {
	return BatchSizes{
		Municipalities: DefaultMunicipalityBatch,
		Categories:     DefaultCategoryBatch,
	}
}

// Query один запрос значений: пакет муниципалитетов × пакет категорий
type Query struct {
	TableID           int
	VariableID        int
	Period            string
	ClassificationID  int
	MunicipalityCodes []int
	CategoryIDs       []int
	URL               string
}

// Planner разбивает выборку на запросы в пределах лимитов сервиса
type Planner struct {
	baseURL string
	sizes   BatchSizes
}

// NewPlanner создает планировщик; неположительные размеры заменяются значениями по умолчанию
func NewPlanner(baseURL string, sizes BatchSizes) *Planner {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if sizes.Municipalities < 1 {
		sizes.Municipalities = DefaultMunicipalityBatch
	}
	if sizes.Categories < 1 {
		sizes.Categories = DefaultCategoryBatch
	}
	return &Planner{baseURL: strings.TrimRight(baseURL, "/"), sizes: sizes}
}

// Sizes размеры пакетов планировщика
func (p *Planner) Sizes() BatchSizes {
	return p.sizes
}

// Plan строит запросы для перекрестного произведения пакетов.
// Число запросов равно ceil(M/m) * ceil(C/c); без муниципалитетов или категорий запросов нет.
func (p *Planner) Plan(tableID, variableID int, period string, codes []int, classificationID int, categories []int) []Query {
	if period == "" {
		period = DefaultPeriod
	}

	var queries []Query
	for _, muniBatch := range Batch(codes, p.sizes.Municipalities) {
		for _, catBatch := range Batch(categories, p.sizes.Categories) {
			q := Query{
				TableID:           tableID,
				VariableID:        variableID,
				Period:            period,
				ClassificationID:  classificationID,
				MunicipalityCodes: muniBatch,
				CategoryIDs:       catBatch,
			}
			q.URL = p.ValuesURL(q)
			queries = append(queries, q)
		}
	}
	return queries
}

// ValuesURL формирует адрес запроса значений.
// Классификация добавляется, только если заданы категории.
func (p *Planner) ValuesURL(q Query) string {
	period := q.Period
	if period == "" {
		period = DefaultPeriod
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s/agregados/%d/periodos/%s/variaveis/%d?localidades=%s[%s]",
		p.baseURL, q.TableID, url.PathEscape(period), q.VariableID,
		MunicipalityLevel, joinInts(q.MunicipalityCodes))
	if q.ClassificationID != 0 && len(q.CategoryIDs) > 0 {
		fmt.Fprintf(&b, "&classificacao=%d[%s]", q.ClassificationID, joinInts(q.CategoryIDs))
	}
	return b.String()
}

// Batch делит срез на последовательные пакеты размера не более size
func Batch[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size < 1 {
		size = len(items)
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
