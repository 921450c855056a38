package matching

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrostat/models"
	"agrostat/normalization"
	"agrostat/normalization/algorithms"
)

func testPool() *Pool {
	return NewPool([]models.CanonicalMunicipality{
		{Code: 4314902, Name: "Porto Alegre", UF: "RS"},
		{Code: 4305108, Name: "Caxias do Sul", UF: "RS"},
		{Code: 4209102, Name: "Joinville", UF: "SC"},
		{Code: 4204202, Name: "Chapecó", UF: "SC"},
		{Code: 4125506, Name: "São José dos Pinhais", UF: "PR"},
		{Code: 4216602, Name: "São José", UF: "SC"},
	})
}

func TestResolverExactName(t *testing.T) {
	r := NewResolver(DefaultThreshold)
	match, score, ok := r.Best("chapeco", "SC", testPool())

	require.True(t, ok)
	assert.Equal(t, 4204202, match.Code)
	assert.Equal(t, 100.0, score)
}

func TestResolverRestrictsToUF(t *testing.T) {
	r := NewResolver(DefaultThreshold)

	match, _, ok := r.Best("sao jose", "SC", testPool())
	require.True(t, ok)
	assert.Equal(t, 4216602, match.Code)

	_, _, ok = r.Best("joinville", "RS", testPool())
	assert.False(t, ok)
}

func TestResolverEmptyPool(t *testing.T) {
	r := NewResolver(DefaultThreshold)

	_, _, ok := r.Best("porto alegre", "", NewPool(nil))
	assert.False(t, ok)

	_, _, ok = r.Best("porto alegre", "MG", testPool())
	assert.False(t, ok)
}

func TestResolverThresholdBoundary(t *testing.T) {
	pool := testPool()
	score := algorithms.WRatio("caxias", "caxias do sul")
	require.Greater(t, score, 0.0)

	atThreshold := NewResolver(score)
	_, _, ok := atThreshold.Best("caxias", "RS", pool)
	assert.True(t, ok, "score equal to threshold must be accepted")

	above := NewResolver(score + 1)
	_, _, ok = above.Best("caxias", "RS", pool)
	assert.False(t, ok, "score one point below threshold must be rejected")
}

func TestResolverTieBreakLowestCode(t *testing.T) {
	pool := NewPool([]models.CanonicalMunicipality{
		{Code: 4300002, Name: "Bom Jesus", UF: "RS"},
		{Code: 4300001, Name: "Bom Jesus", UF: "RS"},
	})
	constant := func(a, b string) float64 { return 95 }
	r := NewResolverWithScorer(DefaultThreshold, constant)

	for i := 0; i < 10; i++ {
		match, _, ok := r.Best("bom jesus", "RS", pool)
		require.True(t, ok)
		assert.Equal(t, 4300001, match.Code)
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(DefaultThreshold)
	records := []models.BranchMunicipality{
		{ID: 1, Branch: "101", RawName: "PORTO ALEGRE", UF: "RS"},
		{ID: 2, Branch: "101", RawName: "Chapeco", UF: ""},
		{ID: 3, Branch: "102", RawName: "Cidade Inexistente", UF: "PR"},
	}

	resolved, unmatched := r.Resolve(records, testPool())

	require.Len(t, resolved, 2)
	assert.Equal(t, int64(1), resolved[0].RecordID)
	assert.Equal(t, 4314902, resolved[0].Code)
	assert.Equal(t, "RS", resolved[0].UF)
	assert.Equal(t, int64(2), resolved[1].RecordID)
	assert.Equal(t, 4204202, resolved[1].Code)
	assert.Equal(t, "SC", resolved[1].UF)

	require.Len(t, unmatched, 1)
	assert.Equal(t, int64(3), unmatched[0].ID)
}

func TestResolveExactNamesAlwaysMatch(t *testing.T) {
	faker := gofakeit.New(7)
	var entries []models.CanonicalMunicipality
	for i := 0; i < 50; i++ {
		entries = append(entries, models.CanonicalMunicipality{
			Code: 4300000 + i,
			Name: faker.City(),
			UF:   "RS",
		})
	}
	pool := NewPool(entries)
	r := NewResolver(DefaultThreshold)

	for _, e := range entries {
		match, score, ok := r.Best(normalization.NormalizeName(e.Name), "RS", pool)
		require.True(t, ok, e.Name)
		assert.Equal(t, 100.0, score)
		assert.Equal(t, normalization.NormalizeName(e.Name), match.NormalizedName)
	}
}
