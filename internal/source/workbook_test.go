// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/indicator-engine/pkg/types"
)

// writeWorkbook builds an xlsx fixture with Indicators and Methods sheets.
func writeWorkbook(t *testing.T, indicators, methods [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet(SheetIndicators)
	require.NoError(t, err)
	_, err = f.NewSheet(SheetMethods)
	require.NoError(t, err)
	require.NoError(t, f.DeleteSheet("Sheet1"))

	for i, row := range indicators {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(SheetIndicators, cell, &row))
	}
	for i, row := range methods {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(SheetMethods, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "indicators.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

var indicatorHeader = []interface{}{
	"ID", "Indicator", "Category", "Class", "Unit",
	"Field measurement", "Remote sensing", "Soil health", "Biodiversity",
}

var methodHeader = []interface{}{
	"Indicator ID", "Technique", "Notes", "Accuracy", "Ease", "Cost", "Citation", "DOI",
}

func TestLoadWorkbookJoinsSheets(t *testing.T) {
	path := writeWorkbook(t,
		[][]interface{}{
			indicatorHeader,
			{1, "Soil organic carbon", "Soil", "Chemical", "g/kg", "x", "", "x", "(x)"},
			{2, "Earthworm abundance ", "Soil", "Biological", "count/m2", "X", "x", "", "x"},
		},
		[][]interface{}{
			methodHeader,
			{1, "Dry combustion", "ISO 10694", "High", "Medium", "High",
				"Nelson & Sommers 1996. Total carbon, organic carbon.", "DOI: 10.2136/sssabookser5.3.c34"},
			{1, "Loss on ignition", "cheap proxy", "medium", "high", "low",
				"Heiri et al. 2001, J. Paleolimnology", ""},
		},
	)

	wb, err := LoadWorkbook(path)
	require.NoError(t, err)

	require.Len(t, wb.Indicators, 2)
	require.Len(t, wb.Methods, 2)

	soc := wb.Indicators[0]
	assert.Equal(t, 1, soc.ID)
	assert.Equal(t, "Soil organic carbon", soc.Name)
	assert.Equal(t, "g/kg", soc.Unit)
	assert.True(t, soc.MethodFlags["field_measurement"])
	assert.False(t, soc.MethodFlags["remote_sensing"])
	assert.Equal(t, types.CoverageFull, soc.Coverage["Soil health"])
	assert.Equal(t, types.CoveragePartial, soc.Coverage["Biodiversity"])

	// Whitespace cleanup on names; case-insensitive flags.
	worm := wb.Indicators[1]
	assert.Equal(t, "Earthworm abundance", worm.Name)
	assert.True(t, worm.MethodFlags["field_measurement"])

	// Join: both method rows belong to indicator 1.
	assert.Len(t, wb.MethodsByIndicator[1], 2)
	assert.Empty(t, wb.MethodsByIndicator[2])
	assert.Equal(t, []int{2}, wb.IndicatorsWithoutMethods)
	assert.Zero(t, wb.OrphanMethodRows)
}

func TestLoadWorkbookNormalizesCitations(t *testing.T) {
	path := writeWorkbook(t,
		[][]interface{}{
			indicatorHeader,
			{1, "Soil organic carbon", "Soil", "Chemical", "g/kg", "x", "", "", ""},
		},
		[][]interface{}{
			methodHeader,
			{1, "Dry combustion", "", "high", "", "",
				"Nelson 1996 (doi: 10.2136/sssabookser5.3.c34)", ""},
		},
	)

	wb, err := LoadWorkbook(path)
	require.NoError(t, err)

	cits := wb.Methods[0].Citations
	require.Len(t, cits, 1)
	assert.Equal(t, "10.2136/sssabookser5.3.c34", cits[0].DOI)
	assert.Equal(t, "https://doi.org/10.2136/sssabookser5.3.c34", cits[0].URL)
	assert.Equal(t, "Nelson 1996", cits[0].Text)
}

func TestLoadWorkbookFoldsSpillover(t *testing.T) {
	path := writeWorkbook(t,
		[][]interface{}{
			indicatorHeader,
			{1, "Soil organic carbon", "Soil", "Chemical", "g/kg", "x", "", "", ""},
		},
		[][]interface{}{
			methodHeader,
			// Citation text in the fixed column, its DOI spilled into the
			// ninth column, then a second free-text citation in the tenth.
			{1, "Dry combustion", "", "high", "", "",
				"Nelson & Sommers 1996", "",
				"10.2136/sssabookser5.3.c34",
				"Schumacher 2002. Methods for organic carbon."},
		},
	)

	wb, err := LoadWorkbook(path)
	require.NoError(t, err)

	cits := wb.Methods[0].Citations
	require.Len(t, cits, 2)

	// Spilled DOI attaches to the preceding DOI-less citation.
	assert.Equal(t, "Nelson & Sommers 1996", cits[0].Text)
	assert.Equal(t, "10.2136/sssabookser5.3.c34", cits[0].DOI)

	assert.Equal(t, "Schumacher 2002. Methods for organic carbon.", cits[1].Text)
	assert.Empty(t, cits[1].DOI)
}

func TestLoadWorkbookSkipsBlankAndAnnotationRows(t *testing.T) {
	path := writeWorkbook(t,
		[][]interface{}{
			indicatorHeader,
			{"", "", "", "", "", "", "", "", ""},
			{"see notes tab", "", "", "", "", "", "", "", ""},
			{3, "Canopy cover", "Vegetation", "Structural", "%", "", "x", "", ""},
		},
		[][]interface{}{
			methodHeader,
			{99, "Orphan technique", "", "", "", "", "", ""},
		},
	)

	wb, err := LoadWorkbook(path)
	require.NoError(t, err)

	require.Len(t, wb.Indicators, 1)
	assert.Equal(t, 3, wb.Indicators[0].ID)
	assert.Equal(t, 1, wb.OrphanMethodRows)
	assert.Equal(t, []int{3}, wb.IndicatorsWithoutMethods)
}

func TestParseFlag(t *testing.T) {
	cases := map[string]bool{
		"x": true, "X": true, "(x)": true, " x ": true,
		"yes": true, "m": true,
		"": false, "-": false, "n/a": false, "12": false,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseFlag(in), "cell %q", in)
	}
}

func TestParseCoverage(t *testing.T) {
	assert.Equal(t, types.CoverageFull, ParseCoverage("x"))
	assert.Equal(t, types.CoveragePartial, ParseCoverage("(x)"))
	assert.Equal(t, types.CoverageNone, ParseCoverage(""))
	assert.Equal(t, types.CoverageNone, ParseCoverage("-"))
	assert.Equal(t, types.CoverageFull, ParseCoverage("E"))
}

func TestParseID(t *testing.T) {
	assert.Equal(t, 12, ParseID("12"))
	assert.Equal(t, 12, ParseID("12.0"))
	assert.Equal(t, -1, ParseID(""))
	assert.Equal(t, -1, ParseID("12.5"))
	assert.Equal(t, -1, ParseID("abc"))
}
