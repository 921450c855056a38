package algorithms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	assert.Equal(t, 100.0, Ratio("", ""))
	assert.Equal(t, 100.0, Ratio("ijui", "ijui"))
	assert.InDelta(t, 66.666, Ratio("abc", "abd"), 0.01)
	assert.Equal(t, 0.0, Ratio("abc", ""))
	assert.Equal(t, 0.0, Ratio("abc", "xyz"))
}

func TestPartialRatio(t *testing.T) {
	assert.Equal(t, 100.0, PartialRatio("sao jose", "sao jose dos pinhais"))
	assert.Equal(t, 100.0, PartialRatio("sao jose dos pinhais", "sao jose"))
	assert.Equal(t, 0.0, PartialRatio("", "canoas"))
	assert.Less(t, PartialRatio("lages", "canoas"), 100.0)
}

func TestTokenRatios(t *testing.T) {
	assert.Equal(t, 100.0, TokenSortRatio("alegre porto", "porto alegre"))
	assert.Equal(t, 100.0, TokenSetRatio("nova prata", "nova prata do iguacu"))
	assert.Equal(t, 0.0, TokenSetRatio("", "nova prata"))
	assert.Equal(t, 100.0, PartialTokenRatio("nova", "nova prata"))
	assert.Equal(t, 0.0, PartialTokenRatio(" ", "nova"))
}

func TestWRatio(t *testing.T) {
	tests := []struct {
		name     string
		s1, s2   string
		expected float64
	}{
		{"Identical", "porto alegre", "porto alegre", 100},
		{"Empty left", "", "porto alegre", 0},
		{"Empty right", "porto alegre", "", 0},
		{"Reordered tokens", "alegre porto", "porto alegre", 95},
		{"Prefix of longer name", "sao jose", "sao jose dos pinhais", 90},
		{"Much longer name", "ab", "ab cdefghijklmnop", 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, WRatio(tt.s1, tt.s2), 0.001)
		})
	}
}

func TestWRatioRange(t *testing.T) {
	pairs := [][2]string{
		{"santa maria", "santa rosa"},
		{"chapeco", "chapecó"},
		{"erechim", "erexim"},
		{"a", "abcdefghijklmnopqrstuvwxyz"},
	}
	for _, p := range pairs {
		score := WRatio(p[0], p[1])
		assert.GreaterOrEqual(t, score, 0.0, p)
		assert.LessOrEqual(t, score, 100.0, p)
	}
}

func TestWRatioPrefersCloserSpelling(t *testing.T) {
	near := WRatio("erexim", "erechim")
	far := WRatio("erexim", "canoinhas")
	assert.Greater(t, near, far)
}
