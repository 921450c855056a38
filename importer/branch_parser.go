package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"agrostat/models"
	"agrostat/normalization"
)

// ErrBranchFileNotFound в каталоге данных нет таблицы филиалов
var ErrBranchFileNotFound = errors.New("branch spreadsheet not found")

// BranchFileNames имена файлов таблицы филиалов в порядке поиска
var BranchFileNames = []string{
	"municipio_por_filial.xlsx",
	"municipios_por_filial.xlsx",
	"municipio_por_filial.csv",
	"municipios_por_filial.csv",
}

var (
	branchHeaders       = []string{"filial"}
	municipalityHeaders = []string{"municipio", "municipios", "nome_municipio", "nome municipio"}
	ufHeaders           = []string{"uf", "estado"}
)

// branchColumns индексы колонок таблицы филиалов
type branchColumns struct {
	branch       int
	municipality int
	uf           int
}

// FindBranchFile ищет таблицу филиалов в каталоге данных
func FindBranchFile(dataDir string) (string, error) {
	for _, name := range BranchFileNames {
		path := filepath.Join(dataDir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrBranchFileNotFound, dataDir)
}

// ParseBranchFile читает таблицу филиалов (xlsx или csv).
// Строки с UF вне allowedUFs отбрасываются, пустая UF допускается;
// дубликаты по (филиал, муниципалитет) удаляются.
func ParseBranchFile(path string, allowedUFs []string) ([]models.BranchMunicipality, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readExcelRows(path)
	case ".csv", ".txt":
		rows, err = readCSVRows(path)
	default:
		return nil, fmt.Errorf("unsupported branch file format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	return parseBranchRows(rows, allowedUFs)
}

func parseBranchRows(rows [][]string, allowedUFs []string) ([]models.BranchMunicipality, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("branch file is empty")
	}

	cols := findBranchColumns(rows[0])
	if cols.branch == -1 || cols.municipality == -1 {
		return nil, fmt.Errorf("branch file must have 'filial' and 'municipio' columns, found: %s",
			strings.Join(rows[0], ", "))
	}

	allowed := make(map[string]bool, len(allowedUFs))
	for _, uf := range allowedUFs {
		allowed[strings.ToUpper(strings.TrimSpace(uf))] = true
	}

	seen := make(map[[2]string]bool)
	var records []models.BranchMunicipality
	for _, row := range rows[1:] {
		branch := strings.TrimSpace(cell(row, cols.branch))
		name := strings.TrimSpace(cell(row, cols.municipality))
		if branch == "" || name == "" {
			continue
		}

		uf := strings.ToUpper(strings.TrimSpace(cell(row, cols.uf)))
		if uf != "" && len(allowed) > 0 && !allowed[uf] {
			continue
		}

		key := [2]string{branch, name}
		if seen[key] {
			continue
		}
		seen[key] = true

		records = append(records, models.BranchMunicipality{
			Branch:         branch,
			RawName:        name,
			UF:             uf,
			NormalizedName: normalization.NormalizeName(name),
		})
	}
	return records, nil
}

// findBranchColumns определяет колонки по нормализованным заголовкам
func findBranchColumns(headers []string) branchColumns {
	cols := branchColumns{branch: -1, municipality: -1, uf: -1}
	for i, h := range headers {
		normalized := normalization.NormalizeName(h)
		switch {
		case cols.branch == -1 && containsHeader(branchHeaders, normalized):
			cols.branch = i
		case cols.municipality == -1 && containsHeader(municipalityHeaders, normalized):
			cols.municipality = i
		case cols.uf == -1 && containsHeader(ufHeaders, normalized):
			cols.uf = i
		}
	}
	return cols
}

func containsHeader(candidates []string, header string) bool {
	for _, c := range candidates {
		if header == c {
			return true
		}
	}
	return false
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

// readCSVRows читает CSV в UTF-8 или Windows-1252; разделитель ";" или ","
func readCSVRows(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode CSV file: %w", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV file: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func detectDelimiter(data []byte) rune {
	firstLine := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		firstLine = data[:idx]
	}
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		return ';'
	}
	return ','
}
