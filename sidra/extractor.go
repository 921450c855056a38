package sidra

import (
	"encoding/json"
	"strconv"
	"strings"

	"agrostat/models"
)

const (
	minYear = 1900
	maxYear = 2100
)

// SkipReason причина отбрасывания строки
type SkipReason string

const (
	SkipMalformed      SkipReason = "malformed_row"
	SkipNoCategory     SkipReason = "no_category"
	SkipNoMunicipality SkipReason = "no_municipality"
	SkipNoYear         SkipReason = "no_year"
)

// ExtractRequest параметры запроса, из которого получен документ
type ExtractRequest struct {
	TableID        int
	VariableID     int
	Categories     map[int]string
	Municipalities map[int]bool
	SourceTag      string
	DefaultUnit    string
}

// NewExtractRequest собирает параметры извлечения для запроса
func NewExtractRequest(q Query, categories map[int]string, unit, source string) ExtractRequest {
	requested := make(map[int]string, len(q.CategoryIDs))
	for _, id := range q.CategoryIDs {
		requested[id] = categories[id]
	}
	munis := make(map[int]bool, len(q.MunicipalityCodes))
	for _, code := range q.MunicipalityCodes {
		munis[code] = true
	}
	return ExtractRequest{
		TableID:        q.TableID,
		VariableID:     q.VariableID,
		Categories:     requested,
		Municipalities: munis,
		SourceTag:      source,
		DefaultUnit:    unit,
	}
}

// Columns роли кодовых колонок строки
type Columns struct {
	CategoryKey      string
	CategoryID       int
	MunicipalityKey  string
	MunicipalityCode int
}

// HasCategory найдена колонка категории
func (c Columns) HasCategory() bool { return c.CategoryKey != "" }

// HasMunicipality найдена колонка муниципалитета
func (c Columns) HasMunicipality() bool { return c.MunicipalityKey != "" }

// ClassifyColumns определяет колонки категории и муниципалитета.
// Кодовая колонка оканчивается на "C" и содержит только цифры; роль определяется
// принадлежностью значения к запрошенным множествам. Берется первая подходящая колонка.
func ClassifyColumns(row Row, categories map[int]string, municipalities map[int]bool) Columns {
	var cols Columns
	for _, f := range row {
		if f.Null || !strings.HasSuffix(f.Key, "C") || !isDigits(f.Value) {
			continue
		}
		v, err := strconv.Atoi(f.Value)
		if err != nil {
			continue
		}
		if _, ok := categories[v]; ok && cols.CategoryKey == "" {
			cols.CategoryKey = f.Key
			cols.CategoryID = v
		}
		if municipalities[v] && cols.MunicipalityKey == "" {
			cols.MunicipalityKey = f.Key
			cols.MunicipalityCode = v
		}
	}
	return cols
}

// ExtractYear определяет год: поле "Ano", затем первые четыре цифры "Mês",
// затем первое значение, начинающееся с года в диапазоне 1900..2100
func ExtractYear(row Row) (int, bool) {
	if v, ok := row.Lookup("Ano"); ok && strings.TrimSpace(v) != "" {
		return leadingYear(strings.TrimSpace(v))
	}
	for _, key := range []string{"Mês", "Mes"} {
		if v, ok := row.Lookup(key); ok && strings.TrimSpace(v) != "" {
			return leadingYear(strings.TrimSpace(v))
		}
	}

	for _, f := range row {
		if f.Null {
			continue
		}
		if y, ok := leadingYear(strings.TrimSpace(f.Value)); ok && y >= minYear && y <= maxYear {
			return y, true
		}
	}
	return 0, false
}

// RowOutcome результат обработки строки: наблюдение или причина пропуска
type RowOutcome struct {
	Observation *models.Observation
	Skip        SkipReason
}

// ExtractRow извлекает наблюдение из строки данных
func ExtractRow(row, header Row, req ExtractRequest) RowOutcome {
	cols := ClassifyColumns(row, req.Categories, req.Municipalities)
	if !cols.HasCategory() {
		return RowOutcome{Skip: SkipNoCategory}
	}
	if !cols.HasMunicipality() {
		return RowOutcome{Skip: SkipNoMunicipality}
	}

	year, ok := ExtractYear(row)
	if !ok {
		return RowOutcome{Skip: SkipNoYear}
	}

	obs := models.Observation{
		TableID:          req.TableID,
		VariableID:       req.VariableID,
		Year:             year,
		MunicipalityCode: cols.MunicipalityCode,
		MunicipalityName: municipalityName(row, cols),
		CategoryName:     categoryName(row, cols, req),
		Unit:             unit(row, header, req),
		SourceTag:        req.SourceTag,
	}
	catID := cols.CategoryID
	obs.CategoryID = &catID

	if v, ok := row.Lookup("V"); ok {
		raw := v
		obs.RawValue = &raw
		obs.NumericValue = ParseNumber(v)
	}

	return RowOutcome{Observation: &obs}
}

// ChunkResult итог обработки документа одного запроса
type ChunkResult struct {
	Rows         int
	Observations []models.Observation
	Skipped      map[SkipReason]int
}

// SkippedTotal число отброшенных строк
func (r ChunkResult) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// ExtractChunk обрабатывает документ: первая строка заголовок, остальные данные.
// Каждая строка обрабатывается независимо.
func ExtractChunk(doc []json.RawMessage, req ExtractRequest) ChunkResult {
	result := ChunkResult{Skipped: make(map[SkipReason]int)}
	if len(doc) == 0 {
		return result
	}

	var header Row
	if err := json.Unmarshal(doc[0], &header); err != nil {
		header = nil
	}

	for _, raw := range doc[1:] {
		result.Rows++

		var row Row
		if err := json.Unmarshal(raw, &row); err != nil {
			result.Skipped[SkipMalformed]++
			continue
		}

		outcome := ExtractRow(row, header, req)
		if outcome.Observation == nil {
			result.Skipped[outcome.Skip]++
			continue
		}
		result.Observations = append(result.Observations, *outcome.Observation)
	}
	return result
}

func municipalityName(row Row, cols Columns) string {
	if name, ok := row.Lookup(nameKey(cols.MunicipalityKey)); ok {
		return name
	}
	for _, key := range []string{"Município", "D3N"} {
		if name, ok := row.Lookup(key); ok {
			return name
		}
	}
	return ""
}

func categoryName(row Row, cols Columns, req ExtractRequest) string {
	if name := req.Categories[cols.CategoryID]; name != "" {
		return name
	}
	name, _ := row.Lookup(nameKey(cols.CategoryKey))
	return name
}

func unit(row, header Row, req ExtractRequest) string {
	if u, ok := row.Lookup("MN"); ok && strings.TrimSpace(u) != "" {
		return u
	}
	if u, ok := header.Lookup("Unidade"); ok && strings.TrimSpace(u) != "" {
		return u
	}
	return req.DefaultUnit
}

// nameKey колонка с названием для кодовой колонки: D1C → D1N
func nameKey(codeKey string) string {
	return strings.TrimSuffix(codeKey, "C") + "N"
}

func leadingYear(s string) (int, bool) {
	if len(s) < 4 || !isDigits(s[:4]) {
		return 0, false
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
