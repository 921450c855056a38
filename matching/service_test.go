package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agrostat/models"
)

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) Municipalities(ctx context.Context, ufs []string) ([]models.CanonicalMunicipality, error) {
	args := m.Called(ctx, ufs)
	if v := args.Get(0); v != nil {
		return v.([]models.CanonicalMunicipality), args.Error(1)
	}
	return nil, args.Error(1)
}

type memoryRecords struct {
	records []models.BranchMunicipality
	written []models.Resolution
}

func (s *memoryRecords) ListBranchMunicipalities(ctx context.Context) ([]models.BranchMunicipality, error) {
	return s.records, nil
}

func (s *memoryRecords) UpdateResolvedCodes(ctx context.Context, resolutions []models.Resolution) (int, error) {
	s.written = append(s.written, resolutions...)
	return len(resolutions), nil
}

func TestServiceMatchCodes(t *testing.T) {
	store := &memoryRecords{records: []models.BranchMunicipality{
		{ID: 1, Branch: "101", RawName: "Joinville", UF: "SC"},
		{ID: 2, Branch: "101", RawName: "Nowhere", UF: "SC"},
	}}
	registry := &mockRegistry{}
	registry.On("Municipalities", mock.Anything, []string{"SC"}).
		Return([]models.CanonicalMunicipality{{Code: 4209102, Name: "Joinville", UF: "SC"}}, nil)

	svc := NewService(store, registry, NewResolver(DefaultThreshold), []string{"SC"}, nil)
	res, err := svc.MatchCodes(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Result{Total: 2, Matched: 1, Unmatched: 1, Updated: 1}, res)
	require.Len(t, store.written, 1)
	assert.Equal(t, 4209102, store.written[0].Code)
	registry.AssertExpectations(t)
}

func TestServiceRegistryFailure(t *testing.T) {
	store := &memoryRecords{}
	registry := &mockRegistry{}
	registry.On("Municipalities", mock.Anything, mock.Anything).Return(nil, errors.New("service down"))

	svc := NewService(store, registry, NewResolver(DefaultThreshold), []string{"RS"}, nil)
	_, err := svc.MatchCodes(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistryUnavailable)
	assert.Contains(t, err.Error(), "service down")
	assert.Empty(t, store.written)
}
