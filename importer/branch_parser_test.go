package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

var sul = []string{"RS", "SC", "PR"}

func writeBranchWorkbook(t *testing.T, dir string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}

	path := filepath.Join(dir, "municipio_por_filial.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParseBranchFileExcel(t *testing.T) {
	dir := t.TempDir()
	path := writeBranchWorkbook(t, dir, [][]any{
		{"Filial", "Município", "UF"},
		{"101", "Porto Alegre", "rs"},
		{"101", "Porto Alegre", "RS"},
		{"101", "Belo Horizonte", "MG"},
		{"102", "Chapecó", ""},
		{"", "Sem Filial", "PR"},
		{"103", "", "PR"},
	})

	records, err := ParseBranchFile(path, sul)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "101", records[0].Branch)
	assert.Equal(t, "Porto Alegre", records[0].RawName)
	assert.Equal(t, "RS", records[0].UF)
	assert.Equal(t, "porto alegre", records[0].NormalizedName)

	assert.Equal(t, "102", records[1].Branch)
	assert.Equal(t, "", records[1].UF)
	assert.Equal(t, "chapeco", records[1].NormalizedName)
}

func TestParseBranchFileMissingColumns(t *testing.T) {
	dir := t.TempDir()
	path := writeBranchWorkbook(t, dir, [][]any{
		{"Codigo", "Cidade"},
		{"1", "Lages"},
	})

	_, err := ParseBranchFile(path, sul)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filial")
}

func TestParseBranchFileCSVLatin1(t *testing.T) {
	content := "filial;nome_municipio;estado\n201;São José;SC\n202;Içara;SC\n"
	encoded, err := charmap.Windows1252.NewEncoder().String(content)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "municipios_por_filial.csv")
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0o644))

	records, err := ParseBranchFile(path, sul)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "São José", records[0].RawName)
	assert.Equal(t, "icara", records[1].NormalizedName)
}

func TestParseBranchFileUnsupported(t *testing.T) {
	_, err := ParseBranchFile("branches.ods", sul)
	assert.Error(t, err)
}

func TestFindBranchFile(t *testing.T) {
	dir := t.TempDir()
	_, err := FindBranchFile(dir)
	assert.ErrorIs(t, err, ErrBranchFileNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "municipios_por_filial.csv"), []byte("filial,municipio\n"), 0o644))
	path, err := FindBranchFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "municipios_por_filial.csv"), path)
}
