package container

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrostat/database"
	"agrostat/internal/config"
)

func fakeIBGE(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/loc/estados/43/municipios", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 4314902, "nome": "Porto Alegre"}, {"id": 4304606, "nome": "Canoas"}]`)
	})
	mux.HandleFunc("/sidra/agregados/1612/metadados", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": 1612,
			"variaveis": [{"id": 214, "nome": "Quantidade produzida", "unidade": "Toneladas"}],
			"classificacoes": [{"id": 81, "nome": "Produto das lavouras temporárias", "categorias": [
				{"id": 2711, "nome": "Milho (em grão)"},
				{"id": 2713, "nome": "Soja (em grão)"},
				{"id": 2692, "nome": "Alho"}
			]}]
		}`)
	})
	mux.HandleFunc("/sidra/agregados/1612/periodos/last/variaveis/214", func(w http.ResponseWriter, r *http.Request) {
		codes := strings.Trim(strings.TrimPrefix(r.URL.Query().Get("localidades"), "N6"), "[]")
		cats := strings.Trim(strings.TrimPrefix(r.URL.Query().Get("classificacao"), "81"), "[]")

		doc := []map[string]string{{"D1C": "Município (Código)", "V": "Valor"}}
		for _, code := range strings.Split(codes, ",") {
			for _, cat := range strings.Split(cats, ",") {
				doc = append(doc, map[string]string{"D1C": code, "D2C": "2023", "D3C": cat, "V": "1.250"})
			}
		}
		require.NoError(t, json.NewEncoder(w).Encode(doc))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "municipios_por_filial.csv"),
		[]byte("Filial;Município;UF\n101;Porto Alegre;RS\n101;Canoas;rs\n102;Porto Alegre;RS\n103;Joinville;SC\n"), 0o644))

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	cfg.DatabaseURL = ":memory:"
	cfg.DataDir = dataDir
	cfg.SidraBaseURL = baseURL + "/sidra"
	cfg.LocalidadesBaseURL = baseURL + "/loc"
	cfg.AllowedUFs = []string{"RS"}
	cfg.FetchInitialDelay = time.Millisecond
	cfg.FetchMaxDelay = 5 * time.Millisecond
	cfg.FetchRatePerSec = 1000
	cfg.CollectConcurrency = 2
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestContainerRunsFullPipeline(t *testing.T) {
	ibge := fakeIBGE(t)
	c, err := NewContainer(testConfig(t, ibge.URL), nil)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	report, err := c.Pipeline.Run(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Imported)
	assert.Equal(t, 3, report.Matching.Matched)
	require.Len(t, report.Groups, 3)
	assert.Equal(t, 4, report.Groups[0].Upserted)
	assert.Equal(t, "metadata unavailable", report.Groups[1].SkipReason)
	assert.Equal(t, "metadata unavailable", report.Groups[2].SkipReason)

	observations, err := c.DB.ListObservations(ctx, database.ObservationFilter{Year: 2023})
	require.NoError(t, err)
	require.Len(t, observations, 4)
	for _, o := range observations {
		assert.Equal(t, 1250.0, *o.NumericValue)
		assert.Equal(t, "Toneladas", o.Unit)
	}

	path := filepath.Join(c.Config.DataDir, "relatorio_filiais.xlsx")
	year, err := c.Exporter.BranchesWorkbook(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2023, year)
	assert.FileExists(t, path)

	summary, err := c.Exporter.LookupFiles(ctx, c.Config.DataDir)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Codes)
	assert.Equal(t, 1, summary.Duplicates)

	assert.NotNil(t, c.Handler())
}

func TestContainerRejectsBadCatalog(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := NewContainer(cfg, nil)
	assert.ErrorContains(t, err, "failed to load product catalog")
}
