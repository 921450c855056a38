package reporting

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"agrostat/database"
)

// ErrNoData в хранилище нет наблюдений для отчета
var ErrNoData = errors.New("no observations to export")

// Source данные для отчетов
type Source interface {
	BranchReport(ctx context.Context, branch string, year int) ([]database.ReportRow, error)
	ListBranches(ctx context.Context) ([]string, error)
	LastYear(ctx context.Context) (int, bool, error)
	LookupEntries(ctx context.Context) ([]database.LookupEntry, error)
}

// Exporter строит отчеты филиалов и файлы соответствия кодов
type Exporter struct {
	source Source
	logger *slog.Logger
}

// NewExporter создает новый экспортер
func NewExporter(source Source, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{source: source, logger: logger}
}

// BranchTable сводная таблица филиала за год
func (e *Exporter) BranchTable(ctx context.Context, branch string, year int) (Table, error) {
	rows, err := e.source.BranchReport(ctx, branch, year)
	if err != nil {
		return Table{}, fmt.Errorf("failed to load branch report: %w", err)
	}
	return BuildTable(branch, year, rows), nil
}

// Write выводит таблицу в выбранном формате
func Write(w io.Writer, t Table, format Format) error {
	if format == FormatHTML {
		return WriteHTML(w, t)
	}
	return WriteXLSX(w, t)
}

// WriteXLSX выводит таблицу как книгу с листом "dados"
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "dados"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeSheet(f, sheet, t); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

// BranchesWorkbook сохраняет книгу с листом на каждый филиал за последний год.
// Возвращает год отчета.
func (e *Exporter) BranchesWorkbook(ctx context.Context, path string) (int, error) {
	year, ok, err := e.source.LastYear(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read last year: %w", err)
	}
	if !ok {
		return 0, ErrNoData
	}

	branches, err := e.source.ListBranches(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list branches: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool)
	for i, branch := range branches {
		t, err := e.BranchTable(ctx, branch, year)
		if err != nil {
			return 0, err
		}
		t = t.WithCodeOnly()

		sheet := uniqueSheetName(branch, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return 0, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return 0, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, t); err != nil {
			return 0, err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return 0, fmt.Errorf("failed to save Excel file: %w", err)
	}
	e.logger.Info("branch workbook exported", "path", path, "year", year, "branches", len(branches))
	return year, nil
}

func writeSheet(f *excelize.File, sheet string, t Table) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if t.Empty() {
		rows := [][]any{
			{"filial", "ano", "mensagem"},
			{t.Branch, t.Year, EmptyMessage},
		}
		if err := setRows(f, sheet, rows); err != nil {
			return err
		}
		return f.SetCellStyle(sheet, "A1", "C1", headerStyle)
	}

	headers := t.headers()
	rows := make([][]any, 0, len(t.Rows)+1)
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	rows = append(rows, row)

	for _, r := range t.Rows {
		row := []any{t.Branch, r.MunicipalityName, nil}
		if r.Code != nil {
			row[2] = *r.Code
		}
		for _, v := range r.Values {
			if v == nil {
				row = append(row, nil)
				continue
			}
			row = append(row, *v)
		}
		rows = append(rows, row)
	}
	if err := setRows(f, sheet, rows); err != nil {
		return err
	}

	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return nil
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	return nil
}

const maxSheetName = 31

// SheetName приводит название филиала к допустимому имени листа
func SheetName(branch string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(branch))
	name = strings.Trim(name, "'")
	if name == "" {
		name = "filial"
	}
	return truncateRunes(name, maxSheetName)
}

func uniqueSheetName(branch string, used map[string]bool) string {
	base := SheetName(branch)
	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"value": func(v *float64) string {
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%.2f", *v)
	},
	"code": func(c *int) string {
		if c == nil {
			return ""
		}
		return fmt.Sprint(*c)
	},
}).Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>Relatório {{.Branch}} {{.Year}}</title></head>
<body>
<table class="report" data-filial="{{.Branch}}" data-ano="{{.Year}}">
{{- if .Empty}}
<thead><tr><th>filial</th><th>ano</th><th>mensagem</th></tr></thead>
<tbody><tr class="empty"><td>{{.Branch}}</td><td>{{.Year}}</td><td>{{.Message}}</td></tr></tbody>
{{- else}}
<thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr><td>{{$.Branch}}</td><td class="municipio">{{.MunicipalityName}}</td><td class="codigo">{{code .Code}}</td>{{range .Values}}<td class="valor">{{value .}}</td>{{end}}</tr>
{{- end}}
</tbody>
{{- end}}
</table>
</body>
</html>
`))

// WriteHTML выводит таблицу как HTML-страницу
func WriteHTML(w io.Writer, t Table) error {
	data := struct {
		Table
		Headers []string
		Message string
	}{Table: t, Headers: t.headers(), Message: EmptyMessage}

	if err := htmlReport.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return nil
}
