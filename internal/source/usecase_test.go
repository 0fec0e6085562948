// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeUseCase(t *testing.T, name string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadUseCase(t *testing.T) {
	path := writeUseCase(t, "Valley Farm Pilot.xlsx", [][]interface{}{
		{"Outcome ID", "Outcome", "Indicators"},
		{"O1", "Improved soil health", "Soil organic carbon; Earthworm abundance"},
		{"O2", "More farmland birds", "Breeding bird index"},
		{"", "", ""},
	})

	uc, err := LoadUseCase(path)
	require.NoError(t, err)

	assert.Equal(t, "valley-farm-pilot", uc.Slug)
	require.Len(t, uc.Outcomes, 2)

	assert.Equal(t, "O1", uc.Outcomes[0].OutcomeID)
	assert.Equal(t, "Improved soil health", uc.Outcomes[0].Text)
	assert.Equal(t, []string{"Soil organic carbon", "Earthworm abundance"}, uc.Outcomes[0].IndicatorNames)

	assert.Equal(t, []string{"Breeding bird index"}, uc.Outcomes[1].IndicatorNames)
}

func TestLoadNarrativeTruncates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.md")
	long := strings.Repeat("The project restores hedgerows. ", 50)
	require.NoError(t, os.WriteFile(path, []byte(long), 0o644))

	text, err := LoadNarrative(path, 100)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(text), 100)
	assert.True(t, strings.HasPrefix(text, "The project restores hedgerows."))
}

func TestLoadNarrativeMissingFileIsEmpty(t *testing.T) {
	text, err := LoadNarrative(filepath.Join(t.TempDir(), "absent.md"), 100)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Valley Farm Pilot":    "valley-farm-pilot",
		"  Upland / Peatland ": "upland-peatland",
		"Côte d'Or 2024":       "c-te-d-or-2024",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in))
	}
}
