package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrostat/database"
	"agrostat/models"
	"agrostat/sidra"
)

// fakeSource отдает метаданные и документы значений без сети
type fakeSource struct {
	mu       sync.Mutex
	meta     *sidra.Metadata
	metaErr  error
	failURLs map[string]bool
	calls    []string
}

func (f *fakeSource) Metadata(ctx context.Context, tableID int) (*sidra.Metadata, error) {
	return f.meta, f.metaErr
}

func (f *fakeSource) Values(ctx context.Context, url string) ([]json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	fail := f.failURLs[url]
	f.mu.Unlock()
	if fail {
		return nil, errors.New("upstream unavailable")
	}

	codes := between(url, "localidades=N6[", "]")
	cats := between(url, "classificacao=81[", "]")
	doc := []json.RawMessage{json.RawMessage(`{"D1C": "Município (Código)", "Unidade": "Toneladas"}`)}
	for _, code := range strings.Split(codes, ",") {
		for _, cat := range strings.Split(cats, ",") {
			doc = append(doc, json.RawMessage(fmt.Sprintf(
				`{"D1C": %q, "D1N": "Municipio %s", "D2C": "2022", "D4C": %q, "V": "1.000"}`, code, code, cat)))
		}
	}
	doc = append(doc, json.RawMessage(`{"D1C": "1", "D4C": "2", "V": "3"}`))
	return doc, nil
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	s = s[i+len(start):]
	if j := strings.Index(s, end); j >= 0 {
		return s[:j]
	}
	return s
}

func testMetadata() *sidra.Metadata {
	return &sidra.Metadata{
		ID: 1612,
		Variables: []sidra.Variable{
			{ID: 109, Name: "Área plantada"},
			{ID: 214, Name: "Quantidade produzida", Unit: "Toneladas"},
		},
		Classifications: []sidra.Classification{{
			ID: 81, Name: "Produto das lavouras temporárias",
			Categories: []sidra.Category{{ID: 2711, Name: "Milho (em grão)"}, {ID: 2713, Name: "Soja (em grão)"}},
		}},
	}
}

var vegetal = sidra.ProductGroup{
	Name: "vegetal", TableID: 1612, PreferredVariable: "quantidade produzida",
	Targets: []string{"milho", "soja"}, SourceTag: "sidra:vegetal",
}

func newTestStore(t *testing.T) *database.StatsDB {
	t.Helper()
	db, err := database.NewStatsDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testCollector(source StatsSource, store ObservationStore, concurrency int, metrics *Metrics) *Collector {
	planner := sidra.NewPlanner("https://sidra.test/api/v3", sidra.BatchSizes{Municipalities: 2, Categories: 1})
	return New(source, store, planner, Options{Concurrency: concurrency}, metrics, nil)
}

func TestCollectGroup(t *testing.T) {
	store := newTestStore(t)
	source := &fakeSource{meta: testMetadata()}
	metrics := NewMetrics()
	c := testCollector(source, store, 3, metrics)

	report, err := c.CollectGroup(context.Background(), vegetal, []int{4300001, 4300002, 4300003})
	require.NoError(t, err)

	assert.False(t, report.Skipped)
	assert.Equal(t, 214, report.VariableID)
	assert.Equal(t, 2, report.Categories)
	assert.Equal(t, 4, report.ChunksPlanned)
	assert.Equal(t, 0, report.ChunksFailed)
	assert.Equal(t, 6, report.Upserted)
	assert.Equal(t, 4, report.RowsSkipped[string(sidra.SkipNoCategory)])
	assert.Len(t, source.calls, 4)

	stored, err := store.ListObservations(context.Background(), database.ObservationFilter{TableID: 1612})
	require.NoError(t, err)
	require.Len(t, stored, 6)
	assert.Equal(t, 1000.0, *stored[0].NumericValue)
	assert.Equal(t, "sidra:vegetal", stored[0].SourceTag)

	assert.Equal(t, 6.0, testutil.ToFloat64(metrics.upserted.WithLabelValues("vegetal")))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.chunks.WithLabelValues("vegetal", "ok")))
}

func TestCollectGroupIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	c := testCollector(&fakeSource{meta: testMetadata()}, store, 1, nil)
	codes := []int{4300001, 4300002}

	for i := 0; i < 2; i++ {
		_, err := c.CollectGroup(context.Background(), vegetal, codes)
		require.NoError(t, err)
	}

	stored, err := store.ListObservations(context.Background(), database.ObservationFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestCollectGroupChunkFailureIsIsolated(t *testing.T) {
	store := newTestStore(t)
	planner := sidra.NewPlanner("https://sidra.test/api/v3", sidra.BatchSizes{Municipalities: 2, Categories: 1})
	failing := planner.Plan(1612, 214, "last", []int{4300001, 4300002}, 81, []int{2711})[0].URL

	source := &fakeSource{meta: testMetadata(), failURLs: map[string]bool{failing: true}}
	c := testCollector(source, store, 2, nil)

	report, err := c.CollectGroup(context.Background(), vegetal, []int{4300001, 4300002, 4300003})
	require.NoError(t, err)
	assert.Equal(t, 4, report.ChunksPlanned)
	assert.Equal(t, 1, report.ChunksFailed)
	assert.Equal(t, 4, report.Upserted)
}

func TestCollectGroupSkips(t *testing.T) {
	store := newTestStore(t)

	c := testCollector(&fakeSource{meta: testMetadata()}, store, 1, nil)
	report, err := c.CollectGroup(context.Background(), vegetal, nil)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, "no resolved municipalities", report.SkipReason)

	c = testCollector(&fakeSource{metaErr: errors.New("timeout")}, store, 1, nil)
	report, err = c.CollectGroup(context.Background(), vegetal, []int{4300001})
	require.NoError(t, err)
	assert.Equal(t, "metadata unavailable", report.SkipReason)

	aquicultura := sidra.ProductGroup{Name: "aquicultura", TableID: 3946, Targets: []string{"tilapia"}}
	c = testCollector(&fakeSource{meta: testMetadata()}, store, 1, nil)
	report, err = c.CollectGroup(context.Background(), aquicultura, []int{4300001})
	require.NoError(t, err)
	assert.Equal(t, "no target categories", report.SkipReason)

	c = testCollector(&fakeSource{meta: &sidra.Metadata{ID: 1612}}, store, 1, nil)
	report, err = c.CollectGroup(context.Background(), vegetal, []int{4300001})
	require.NoError(t, err)
	assert.Equal(t, "no usable variable", report.SkipReason)
}

type failingStore struct{}

func (failingStore) UpsertObservations(ctx context.Context, observations []models.Observation) (int, error) {
	return 0, errors.New("disk full")
}

func TestCollectGroupStoreFailureIsFatal(t *testing.T) {
	c := testCollector(&fakeSource{meta: testMetadata()}, failingStore{}, 2, nil)
	_, err := c.CollectGroup(context.Background(), vegetal, []int{4300001, 4300002})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
