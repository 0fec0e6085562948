// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"strconv"
	"strings"

	"github.com/pdiddy/indicator-engine/pkg/types"
)

// CleanCell trims whitespace and collapses internal runs of spaces in a raw
// workbook cell.
func CleanCell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseFlag converts a flag cell to a boolean. Authors mark applicability
// with "x", "(x)", a single marker letter, or yes/true; anything else,
// including a blank cell, is false.
func ParseFlag(cell string) bool {
	c := strings.ToLower(CleanCell(cell))
	switch c {
	case "":
		return false
	case "x", "(x)", "yes", "y", "true", "1":
		return true
	}
	// Single marker letters (e.g. "m" for modelled, "e" for estimated).
	if len(c) == 1 && c[0] >= 'a' && c[0] <= 'z' {
		return true
	}
	return false
}

// ParseCoverage converts a principle/criteria cell to a tri-state flag:
// "x" means full coverage, "(x)" partial, blank none. Marker letters count
// as full coverage.
func ParseCoverage(cell string) types.CoverageFlag {
	c := strings.ToLower(CleanCell(cell))
	switch {
	case c == "":
		return types.CoverageNone
	case strings.HasPrefix(c, "(") && strings.HasSuffix(c, ")"):
		return types.CoveragePartial
	case ParseFlag(c):
		return types.CoverageFull
	default:
		return types.CoverageNone
	}
}

// ParseID coerces an id cell to an integer, tolerating float-formatted
// values ("12.0") that spreadsheet tools produce. Returns -1 when the cell
// holds no usable id.
func ParseID(cell string) int {
	c := CleanCell(cell)
	if c == "" {
		return -1
	}
	if n, err := strconv.Atoi(c); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(c, 64); err == nil && f == float64(int(f)) {
		return int(f)
	}
	return -1
}
