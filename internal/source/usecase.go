// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// OutcomeRow is one normalized row from a use-case workbook: an outcome id,
// the outcome statement, and the indicator names mapped to it.
type OutcomeRow struct {
	OutcomeID      string
	Text           string
	IndicatorNames []string
}

// UseCaseSource is the normalized content of one per-project workbook.
type UseCaseSource struct {
	// Slug is the filesystem-safe project identifier derived from the
	// workbook filename.
	Slug string

	// Name is the project display name (first sheet cell A1 of a "Project"
	// sheet when present, otherwise the slug).
	Name string

	Outcomes []OutcomeRow

	// Narrative holds the project summary text when a narrative document
	// was supplied, truncated to the configured character budget.
	Narrative string
}

// nameListSepRe splits an indicator-names cell on semicolons or newlines.
var nameListSepRe = regexp.MustCompile(`[;\n]`)

// LoadUseCase reads a per-project workbook. The first sheet must carry
// outcome id / outcome text / indicator names columns; additional columns
// are ignored.
func LoadUseCase(path string) (*UseCaseSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening use-case workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("use-case workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("use-case workbook %s: sheet %s is empty", path, sheets[0])
	}

	uc := &UseCaseSource{Slug: Slugify(stemOf(path))}
	uc.Name = uc.Slug

	for _, row := range rows[1:] {
		id := CleanCell(cellAt(row, 0))
		text := CleanCell(cellAt(row, 1))
		if id == "" && text == "" {
			continue
		}

		outcome := OutcomeRow{OutcomeID: id, Text: text}
		for _, name := range nameListSepRe.Split(cellAt(row, 2), -1) {
			if n := CleanCell(name); n != "" {
				outcome.IndicatorNames = append(outcome.IndicatorNames, n)
			}
		}
		uc.Outcomes = append(uc.Outcomes, outcome)
	}

	return uc, nil
}

// LoadNarrative reads a narrative summary document and keeps its first
// maxChars characters. A missing file is not an error; it returns "".
func LoadNarrative(path string, maxChars int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading narrative %s: %w", path, err)
	}

	text := strings.TrimSpace(string(data))
	if r := []rune(text); maxChars > 0 && len(r) > maxChars {
		text = strings.TrimSpace(string(r[:maxChars]))
	}
	return text, nil
}

// slugRe matches characters that are unsafe in a slug.
var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a project name to a lowercase, hyphen-separated slug.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
