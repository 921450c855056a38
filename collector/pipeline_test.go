package collector

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"agrostat/matching"
	"agrostat/models"
	"agrostat/sidra"
)

type staticRegistry []models.CanonicalMunicipality

func (r staticRegistry) Municipalities(ctx context.Context, ufs []string) ([]models.CanonicalMunicipality, error) {
	return r, nil
}

type failingRegistry struct{}

func (failingRegistry) Municipalities(ctx context.Context, ufs []string) ([]models.CanonicalMunicipality, error) {
	return nil, errors.New("registry down")
}

func writeBranchFile(t *testing.T, dir string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"filial", "municipio", "uf"},
		{"101", "Porto Alegre", "RS"},
		{"101", "Canoas", "RS"},
		{"102", "Curitiba", "PR"},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, "municipio_por_filial.xlsx")))
}

func TestPipelineRun(t *testing.T) {
	dir := t.TempDir()
	writeBranchFile(t, dir)

	store := newTestStore(t)
	registry := staticRegistry{
		{Code: 4314902, Name: "Porto Alegre", UF: "RS"},
		{Code: 4304606, Name: "Canoas", UF: "RS"},
	}
	matcher := matching.NewService(store, registry, matching.NewResolver(matching.DefaultThreshold), []string{"RS", "PR"}, nil)
	c := testCollector(&fakeSource{meta: testMetadata()}, store, 2, nil)

	p := NewPipeline(store, matcher, c, PipelineConfig{
		DataDir:    dir,
		AllowedUFs: []string{"RS", "SC", "PR"},
		Catalog:    []sidra.ProductGroup{vegetal},
	}, NewMetrics(), nil)

	report, err := p.Run(context.Background(), []string{"vegetal", "desconhecido"})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.Imported)
	assert.Equal(t, matching.Result{Total: 3, Matched: 2, Unmatched: 1, Updated: 2}, report.Matching)
	require.Len(t, report.Groups, 2)
	assert.Equal(t, 4, report.Groups[0].Upserted)
	assert.True(t, report.Groups[1].Skipped)
	assert.Equal(t, "unknown group", report.Groups[1].SkipReason)
	assert.Equal(t, 4, report.Upserted)

	runs, err := store.ListCollectionRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].RunID)
	assert.Contains(t, runs[0].Summary, `"group":"vegetal"`)
}

func TestPipelineRunWithoutSpreadsheet(t *testing.T) {
	store := newTestStore(t)
	matcher := matching.NewService(store, staticRegistry{}, matching.NewResolver(matching.DefaultThreshold), nil, nil)
	c := testCollector(&fakeSource{meta: testMetadata()}, store, 1, nil)
	p := NewPipeline(store, matcher, c, PipelineConfig{DataDir: t.TempDir(), Catalog: []sidra.ProductGroup{vegetal}}, nil, nil)

	report, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, report.Imported)
	require.Len(t, report.Groups, 1)
	assert.Equal(t, "no resolved municipalities", report.Groups[0].SkipReason)
}

func TestPipelineRunRegistryUnavailable(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := store.UpsertBranchMunicipalities(ctx, []models.BranchMunicipality{
		{Branch: "101", RawName: "Porto Alegre", UF: "RS", NormalizedName: "porto alegre"},
	})
	require.NoError(t, err)
	records, err := store.ListBranchMunicipalities(ctx)
	require.NoError(t, err)
	_, err = store.UpdateResolvedCodes(ctx, []models.Resolution{{RecordID: records[0].ID, Code: 4314902, UF: "RS", Score: 100}})
	require.NoError(t, err)

	matcher := matching.NewService(store, failingRegistry{}, matching.NewResolver(matching.DefaultThreshold), []string{"RS"}, nil)
	source := &fakeSource{meta: testMetadata()}
	c := testCollector(source, store, 1, nil)
	p := NewPipeline(store, matcher, c, PipelineConfig{DataDir: t.TempDir(), Catalog: []sidra.ProductGroup{vegetal}}, NewMetrics(), nil)

	report, err := p.Run(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, matching.ErrRegistryUnavailable)

	assert.True(t, report.Matching.Skipped)
	assert.Contains(t, report.Matching.Error, "registry down")
	require.Len(t, report.Groups, 1)
	assert.False(t, report.Groups[0].Skipped)
	assert.Equal(t, 2, report.Groups[0].Upserted)
	assert.Equal(t, 2, report.Upserted)
	assert.Len(t, source.calls, 2)

	runs, err := store.ListCollectionRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].RunID)
	assert.Contains(t, runs[0].Summary, `"skipped":true`)
}
