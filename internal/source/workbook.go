// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source reads indicator and use-case workbooks into normalized
// in-memory rows: flag cells become booleans or tri-state coverage flags,
// id cells are coerced, and column spillover is folded into citation lists.
package source

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/indicator-engine/internal/citation"
	"github.com/pdiddy/indicator-engine/pkg/types"
)

// Sheet names expected in the indicator workbook.
const (
	SheetIndicators = "Indicators"
	SheetMethods    = "Methods"
)

// methodFlagHeaders are the Indicators-sheet columns that mark measurement
// approach applicability. Any other column beyond the fixed block is treated
// as a principle/criteria coverage column.
var methodFlagHeaders = map[string]string{
	"field measurement": "field_measurement",
	"remote sensing":    "remote_sensing",
	"survey":            "survey",
	"lab analysis":      "lab_analysis",
	"modelling":         "modelling",
	"modeling":          "modelling",
}

// IndicatorRow is one normalized row from the Indicators sheet.
type IndicatorRow struct {
	ID          int
	Name        string
	Category    string
	Class       string
	Unit        string
	MethodFlags map[string]bool
	Coverage    map[string]types.CoverageFlag
}

// MethodRow is one normalized row from the Methods sheet.
type MethodRow struct {
	IndicatorID int
	Technique   string
	Notes       string
	Accuracy    string
	Ease        string
	Cost        string
	Citations   []types.Citation
}

// Workbook is the normalized content of one indicator workbook.
type Workbook struct {
	Indicators []IndicatorRow
	Methods    []MethodRow

	// MethodsByIndicator groups method rows by indicator id, preserving
	// sheet order.
	MethodsByIndicator map[int][]MethodRow

	// IndicatorsWithoutMethods lists indicator ids that matched zero
	// method rows, for reporting.
	IndicatorsWithoutMethods []int

	// OrphanMethodRows counts method rows whose indicator id matched no
	// Indicators-sheet row.
	OrphanMethodRows int
}

// LoadWorkbook reads the Indicators and Methods sheets from an xlsx file and
// joins them by indicator id.
func LoadWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	indicators, err := loadIndicatorSheet(f)
	if err != nil {
		return nil, err
	}
	methods, err := loadMethodSheet(f)
	if err != nil {
		return nil, err
	}

	wb := &Workbook{
		Indicators:         indicators,
		Methods:            methods,
		MethodsByIndicator: make(map[int][]MethodRow),
	}

	known := make(map[int]bool, len(indicators))
	for _, ind := range indicators {
		known[ind.ID] = true
	}

	for _, m := range methods {
		if !known[m.IndicatorID] {
			wb.OrphanMethodRows++
			continue
		}
		wb.MethodsByIndicator[m.IndicatorID] = append(wb.MethodsByIndicator[m.IndicatorID], m)
	}

	for _, ind := range indicators {
		if len(wb.MethodsByIndicator[ind.ID]) == 0 {
			wb.IndicatorsWithoutMethods = append(wb.IndicatorsWithoutMethods, ind.ID)
		}
	}

	return wb, nil
}

// indicatorFixedCols is the number of leading fixed columns in the
// Indicators sheet: ID, Indicator, Category, Class, Unit.
const indicatorFixedCols = 5

func loadIndicatorSheet(f *excelize.File) ([]IndicatorRow, error) {
	rows, err := f.GetRows(SheetIndicators)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", SheetIndicators, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("sheet %s is empty", SheetIndicators)
	}

	header := rows[0]
	if len(header) < indicatorFixedCols {
		return nil, fmt.Errorf("sheet %s: expected at least %d header columns, got %d",
			SheetIndicators, indicatorFixedCols, len(header))
	}

	var out []IndicatorRow
	for _, row := range rows[1:] {
		id := ParseID(cellAt(row, 0))
		if id < 0 {
			// Blank or annotation rows are skipped, not errors.
			continue
		}

		ind := IndicatorRow{
			ID:          id,
			Name:        CleanCell(cellAt(row, 1)),
			Category:    CleanCell(cellAt(row, 2)),
			Class:       CleanCell(cellAt(row, 3)),
			Unit:        CleanCell(cellAt(row, 4)),
			MethodFlags: make(map[string]bool),
			Coverage:    make(map[string]types.CoverageFlag),
		}

		for col := indicatorFixedCols; col < len(header); col++ {
			label := CleanCell(header[col])
			if label == "" {
				continue
			}
			cell := cellAt(row, col)
			if key, ok := methodFlagHeaders[strings.ToLower(label)]; ok {
				ind.MethodFlags[key] = ParseFlag(cell)
			} else {
				ind.Coverage[label] = ParseCoverage(cell)
			}
		}

		out = append(out, ind)
	}
	return out, nil
}

// methodFixedCols is the number of fixed columns in the Methods sheet:
// Indicator ID, Technique, Notes, Accuracy, Ease, Cost, Citation, DOI.
// Anything beyond is spillover.
const methodFixedCols = 8

func loadMethodSheet(f *excelize.File) ([]MethodRow, error) {
	rows, err := f.GetRows(SheetMethods)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", SheetMethods, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("sheet %s is empty", SheetMethods)
	}

	var out []MethodRow
	for _, row := range rows[1:] {
		id := ParseID(cellAt(row, 0))
		if id < 0 {
			continue
		}

		m := MethodRow{
			IndicatorID: id,
			Technique:   CleanCell(cellAt(row, 1)),
			Notes:       CleanCell(cellAt(row, 2)),
			Accuracy:    strings.ToLower(CleanCell(cellAt(row, 3))),
			Ease:        strings.ToLower(CleanCell(cellAt(row, 4))),
			Cost:        strings.ToLower(CleanCell(cellAt(row, 5))),
		}

		citText := cellAt(row, 6)
		citDOI := cellAt(row, 7)
		if CleanCell(citText) != "" || CleanCell(citDOI) != "" {
			m.Citations = append(m.Citations, citation.Normalize(citText, citDOI))
		}

		// Overflow columns: classify each spillover cell as a DOI or as
		// free citation text and fold it into the citation list.
		for col := methodFixedCols; col < len(row); col++ {
			foldSpillover(&m, cellAt(row, col))
		}

		out = append(out, m)
	}
	return out, nil
}

// foldSpillover classifies one overflow cell. A cell that normalizes to a
// DOI fills the last citation's missing DOI, or starts a new DOI-only
// citation; any other non-blank cell becomes a free-text citation.
func foldSpillover(m *MethodRow, cell string) {
	c := CleanCell(cell)
	if c == "" {
		return
	}

	if doi := citation.NormalizeDOI(c); doi != "" && looksLikeBareDOI(c) {
		if n := len(m.Citations); n > 0 && m.Citations[n-1].DOI == "" {
			m.Citations[n-1].DOI = doi
			m.Citations[n-1].URL = citation.ResolverURL(doi)
			return
		}
		m.Citations = append(m.Citations, citation.Normalize("", c))
		return
	}

	m.Citations = append(m.Citations, citation.Normalize(c, ""))
}

// looksLikeBareDOI reports whether the cell is a DOI by itself rather than a
// citation that merely mentions one. A short cell whose cleaned text is
// empty after DOI stripping is a bare DOI.
func looksLikeBareDOI(cell string) bool {
	return citation.CleanText(cell) == ""
}

// cellAt returns row[i] or "" when the row is shorter; excelize trims
// trailing empty cells so ragged rows are routine.
func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
