// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/indicator-engine/pkg/types"
)

func testResolver() *Resolver {
	r := NewResolver(types.ResolverConfig{})
	r.Add("Soil organic carbon", 1)
	r.Add("Earthworm abundance", 2)
	r.Add("Breeding bird index", 3)
	return r
}

func TestResolveExact(t *testing.T) {
	m, ok := testResolver().Resolve("Soil organic carbon")
	require.True(t, ok)
	assert.Equal(t, 1, m.ID)
	assert.Equal(t, TierExact, m.Tier)
	assert.Equal(t, 1.0, m.Ratio)
}

func TestResolveNormalized(t *testing.T) {
	m, ok := testResolver().Resolve("  soil   ORGANIC carbon ")
	require.True(t, ok)
	assert.Equal(t, 1, m.ID)
	assert.Equal(t, TierNormalized, m.Tier)
}

func TestResolveFuzzyAboveThreshold(t *testing.T) {
	// One-character typo stays well above 0.85.
	m, ok := testResolver().Resolve("Soil organic carbn")
	require.True(t, ok)
	assert.Equal(t, 1, m.ID)
	assert.Equal(t, TierFuzzy, m.Tier)
	assert.GreaterOrEqual(t, m.Ratio, 0.85)
}

func TestResolveRejectsDissimilarNames(t *testing.T) {
	_, ok := testResolver().Resolve("Atmospheric methane flux")
	assert.False(t, ok)
}

func TestResolveEmptyName(t *testing.T) {
	_, ok := testResolver().Resolve("   ")
	assert.False(t, ok)
}

func TestFuzzyTieBreaksToFirstEntry(t *testing.T) {
	r := NewResolver(types.ResolverConfig{})
	// Two canonical names equidistant from the query.
	r.Add("indicator ax", 10)
	r.Add("indicator bx", 20)

	m, ok := r.Resolve("indicator cx")
	require.True(t, ok)
	assert.Equal(t, 10, m.ID)
	assert.Equal(t, TierFuzzy, m.Tier)
}

func TestDuplicateAddKeepsFirst(t *testing.T) {
	r := NewResolver(types.ResolverConfig{})
	r.Add("Soil organic carbon", 1)
	r.Add("Soil organic carbon", 99)

	m, ok := r.Resolve("Soil organic carbon")
	require.True(t, ok)
	assert.Equal(t, 1, m.ID)
	assert.Equal(t, 1, r.Len())
}

func TestCustomThreshold(t *testing.T) {
	r := NewResolver(types.ResolverConfig{FuzzyThreshold: 0.99})
	r.Add("Soil organic carbon", 1)

	_, ok := r.Resolve("Soil organic carbn")
	assert.False(t, ok)
}

func TestResolveAll(t *testing.T) {
	ids, unresolved := testResolver().ResolveAll([]string{
		"Soil organic carbon",
		"earthworm abundance",
		"Mystery metric",
		"SOIL ORGANIC CARBON", // duplicate after normalization
	})

	assert.Equal(t, []int{1, 2}, ids)
	assert.Equal(t, []string{"Mystery metric"}, unresolved)
}
