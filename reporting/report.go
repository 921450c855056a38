package reporting

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"agrostat/database"
)

// Format формат отчета филиала
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatHTML Format = "html"
)

// EmptyMessage текст отчета без данных
const EmptyMessage = "Sem dados para os parâmetros informados."

// ParseFormat разбирает формат; пустая строка означает xlsx
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", s)
	}
}

// ContentType MIME-тип формата
func (f Format) ContentType() string {
	if f == FormatHTML {
		return "text/html; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

var slugPattern = regexp.MustCompile(`[^0-9A-Za-z]+`)

// FileName имя файла отчета: relatorio_<филиал>_<год>.<формат>
func FileName(branch string, year int, format Format) string {
	slug := strings.Trim(slugPattern.ReplaceAllString(branch, "_"), "_")
	return fmt.Sprintf("relatorio_%s_%d.%s", slug, year, format)
}

// Table сводная таблица филиала: муниципалитеты по строкам, продукты по колонкам
type Table struct {
	Branch   string
	Year     int
	Products []string
	Units    []string
	Rows     []TableRow
}

// TableRow строка сводной таблицы
type TableRow struct {
	MunicipalityName string
	Code             *int
	Values           []*float64
}

// Empty в таблице нет ни одного наблюдения
func (t Table) Empty() bool {
	return len(t.Products) == 0
}

// BuildTable сворачивает строки отчета по продуктам.
// Для пары муниципалитет/продукт берется первое значение.
func BuildTable(branch string, year int, rows []database.ReportRow) Table {
	t := Table{Branch: branch, Year: year}

	units := make(map[string]string)
	for _, r := range rows {
		if r.Product == "" {
			continue
		}
		if _, ok := units[r.Product]; !ok {
			t.Products = append(t.Products, r.Product)
			units[r.Product] = r.Unit
		} else if units[r.Product] == "" {
			units[r.Product] = r.Unit
		}
	}
	sort.Strings(t.Products)
	column := make(map[string]int, len(t.Products))
	for i, p := range t.Products {
		column[p] = i
		t.Units = append(t.Units, units[p])
	}

	type muniKey struct {
		name string
		code int
	}
	index := make(map[muniKey]int)
	for _, r := range rows {
		key := muniKey{name: r.MunicipalityName, code: -1}
		if r.MunicipalityCode != nil {
			key.code = *r.MunicipalityCode
		}
		i, ok := index[key]
		if !ok {
			i = len(t.Rows)
			index[key] = i
			t.Rows = append(t.Rows, TableRow{
				MunicipalityName: r.MunicipalityName,
				Code:             r.MunicipalityCode,
				Values:           make([]*float64, len(t.Products)),
			})
		}
		if r.Product == "" || r.Value == nil {
			continue
		}
		if c := column[r.Product]; t.Rows[i].Values[c] == nil {
			t.Rows[i].Values[c] = r.Value
		}
	}
	return t
}

// WithCodeOnly оставляет только муниципалитеты с кодом IBGE
func (t Table) WithCodeOnly() Table {
	out := t
	out.Rows = nil
	for _, r := range t.Rows {
		if r.Code != nil {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

func (t Table) headers() []string {
	headers := []string{"filial", "nome_municipio", "codigo_ibge"}
	for i, p := range t.Products {
		if t.Units[i] != "" {
			p = fmt.Sprintf("%s (%s)", p, t.Units[i])
		}
		headers = append(headers, p)
	}
	return headers
}
