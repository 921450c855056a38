package reporting

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"agrostat/database"
)

// Имена файлов соответствия кодов
const (
	LookupFile     = "codigo_municipio_lookup.xlsx"
	DuplicatesFile = "codigo_municipio_duplicados.xlsx"
	SimpleFile     = "codigo_municipio_lookup_simples.csv"
)

// LookupRow агрегат записей филиалов по одному коду IBGE
type LookupRow struct {
	Code          int
	Names         []string
	UFs           []string
	Branches      []string
	PreferredName string
}

// Duplicated код встречается более чем в одном филиале
func (r LookupRow) Duplicated() bool { return len(r.Branches) > 1 }

// NameConflict под кодом записаны разные названия
func (r LookupRow) NameConflict() bool { return len(r.Names) > 1 }

// LookupSummary пути к созданным файлам
type LookupSummary struct {
	LookupPath     string `json:"xlsx_lookup"`
	DuplicatesPath string `json:"xlsx_duplicados"`
	SimplePath     string `json:"csv_simples"`
	Duplicates     int    `json:"qtd_duplicados"`
	Codes          int    `json:"qtd_codigos"`
}

// BuildLookup группирует записи по коду. Предпочтительное название самое частое,
// при равенстве частот лексикографически меньшее. Дубликаты идут первыми,
// затем по убыванию числа филиалов и по коду.
func BuildLookup(entries []database.LookupEntry) []LookupRow {
	type acc struct {
		row   LookupRow
		freq  map[string]int
		names map[string]bool
		ufs   map[string]bool
		brs   map[string]bool
	}
	byCode := make(map[int]*acc)
	var order []int
	for _, e := range entries {
		a, ok := byCode[e.Code]
		if !ok {
			a = &acc{
				row:   LookupRow{Code: e.Code},
				freq:  map[string]int{},
				names: map[string]bool{},
				ufs:   map[string]bool{},
				brs:   map[string]bool{},
			}
			byCode[e.Code] = a
			order = append(order, e.Code)
		}
		a.freq[e.Name]++
		addSorted(&a.row.Names, a.names, e.Name)
		addSorted(&a.row.UFs, a.ufs, e.UF)
		addSorted(&a.row.Branches, a.brs, e.Branch)
	}

	rows := make([]LookupRow, 0, len(order))
	for _, code := range order {
		a := byCode[code]
		best, bestFreq := "", 0
		for _, name := range a.row.Names {
			if a.freq[name] > bestFreq {
				best, bestFreq = name, a.freq[name]
			}
		}
		a.row.PreferredName = best
		rows = append(rows, a.row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Duplicated() != rows[j].Duplicated() {
			return rows[i].Duplicated()
		}
		if len(rows[i].Branches) != len(rows[j].Branches) {
			return len(rows[i].Branches) > len(rows[j].Branches)
		}
		return rows[i].Code < rows[j].Code
	})
	return rows
}

func addSorted(list *[]string, seen map[string]bool, v string) {
	if v == "" || seen[v] {
		return
	}
	seen[v] = true
	i := sort.SearchStrings(*list, v)
	*list = append(*list, "")
	copy((*list)[i+1:], (*list)[i:])
	(*list)[i] = v
}

// LookupFiles создает в каталоге полный файл соответствия, файл дубликатов
// и простой CSV (код, предпочтительное название, uf)
func (e *Exporter) LookupFiles(ctx context.Context, dir string) (LookupSummary, error) {
	entries, err := e.source.LookupEntries(ctx)
	if err != nil {
		return LookupSummary{}, fmt.Errorf("failed to load lookup entries: %w", err)
	}
	rows := BuildLookup(entries)

	var dups []LookupRow
	for _, r := range rows {
		if r.Duplicated() {
			dups = append(dups, r)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return LookupSummary{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	summary := LookupSummary{
		LookupPath:     filepath.Join(dir, LookupFile),
		DuplicatesPath: filepath.Join(dir, DuplicatesFile),
		SimplePath:     filepath.Join(dir, SimpleFile),
		Duplicates:     len(dups),
		Codes:          len(rows),
	}

	if err := saveLookupWorkbook(summary.LookupPath, "lookup", rows); err != nil {
		return summary, err
	}
	if err := saveLookupWorkbook(summary.DuplicatesPath, "duplicados", dups); err != nil {
		return summary, err
	}
	if err := saveSimpleCSV(summary.SimplePath, rows); err != nil {
		return summary, err
	}

	e.logger.Info("lookup files exported", "dir", dir, "codes", summary.Codes, "duplicates", summary.Duplicates)
	return summary, nil
}

var lookupHeaders = []any{
	"codigo_ibge", "nome_municipio", "uf", "filial", "nome_preferido",
	"qtd_nomes_distintos", "qtd_ufs_distintas", "qtd_filiais",
	"duplicado_entre_filiais", "conflito_de_nome",
}

func saveLookupWorkbook(path, sheet string, rows []LookupRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	data := make([][]any, 0, len(rows)+1)
	data = append(data, lookupHeaders)
	for _, r := range rows {
		data = append(data, []any{
			r.Code,
			strings.Join(r.Names, "; "),
			strings.Join(r.UFs, "; "),
			strings.Join(r.Branches, "; "),
			r.PreferredName,
			len(r.Names),
			len(r.UFs),
			len(r.Branches),
			r.Duplicated(),
			r.NameConflict(),
		})
	}
	if err := setRows(f, sheet, data); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// saveSimpleCSV пишет CSV в UTF-8 с BOM для Excel
func saveSimpleCSV(path string, rows []LookupRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString("\ufeff"); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"codigo_ibge", "nome_preferido", "uf"}); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for _, r := range rows {
		uf := ""
		if len(r.UFs) > 0 {
			uf = r.UFs[0]
		}
		if err := writer.Write([]string{strconv.Itoa(r.Code), r.PreferredName, uf}); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return file.Close()
}
