package synthetic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popflow/pkg/contracts/domain"
)

func TestGenerateDeterministic(t *testing.T) {
	first := Generate(nil, 0, 0)
	second := Generate(nil, 0, 0)
	assert.Equal(t, first, second)
}

func TestGenerateCoversAllCityYears(t *testing.T) {
	obs := Generate(nil, 0, 0)
	years := LastYear - FirstYear + 1
	require.Len(t, obs, len(Cities)*years)

	seen := make(map[domain.Key]bool)
	for _, o := range obs {
		require.NoError(t, o.Validate())
		assert.Equal(t, domain.SourceSynthetic, o.Source)
		assert.False(t, seen[o.Key()], "duplicate %v", o.Key())
		seen[o.Key()] = true
	}
}

func TestGenerateSeries(t *testing.T) {
	obs := Generate([]string{"广州市"}, 2020, 2023)
	require.Len(t, obs, 4)

	assert.Equal(t, 2020, obs[0].Year)
	assert.InDelta(t, 1500.0, obs[0].Population, 1e-9)
	assert.Zero(t, obs[0].ChangeAmount, "first year has no prior to diff against")

	for i := 1; i < len(obs); i++ {
		assert.Greater(t, obs[i].Population, obs[i-1].Population)
		assert.InDelta(t, obs[i].Population-obs[i-1].Population, obs[i].ChangeAmount, 0.011)
	}
}

func TestGenerateUnknownCityUsesDefaultBase(t *testing.T) {
	obs := Generate([]string{"测试市"}, 2020, 2020)
	require.Len(t, obs, 1)
	assert.InDelta(t, 300.0, obs[0].Population, 1e-9)
}

func TestGenerateEmptyRange(t *testing.T) {
	assert.Empty(t, Generate(nil, 2024, 2020))
}
