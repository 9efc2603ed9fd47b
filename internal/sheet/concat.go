package sheet

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultConcatMaxCellLength is the hard cell limit of spreadsheet tools.
const DefaultConcatMaxCellLength = 32767

const concatEllipsis = "..."

// Source is one sheet taken from a file.
type Source struct {
	Name  string
	File  string
	Table *Table
}

// ConcatOptions tunes Concat.
type ConcatOptions struct {
	MaxCellLength int
}

// ConcatStats counts what Concat did.
type ConcatStats struct {
	Sheets       int
	Rows         int
	BlankSkipped int
	Truncated    int
	Duplicates   int
}

// ConcatResult holds the merged table and the duplicate sheet report.
// Duplicates is nil when every sheet name was unique.
type ConcatResult struct {
	Merged     *Table
	Duplicates *Table
	Stats      ConcatStats
}

// Concat stacks every source into one table. Each output row starts with the
// sheet name and the file name, followed by the source cells; a source's
// header is emitted as its first row. Rows whose cells are all blank are
// skipped. A sheet name already seen is reported in the duplicates table,
// once per repeated occurrence.
func Concat(sources []Source, opts ConcatOptions) ConcatResult {
	limit := opts.MaxCellLength
	if limit <= 0 {
		limit = DefaultConcatMaxCellLength
	}

	res := ConcatResult{Merged: NewTable("MergedData")}
	seen := make(map[string]bool)
	var dupOrder []string
	dupFiles := make(map[string][]string)

	for _, src := range sources {
		res.Stats.Sheets++
		if seen[src.Name] {
			if _, ok := dupFiles[src.Name]; !ok {
				dupOrder = append(dupOrder, src.Name)
			}
			dupFiles[src.Name] = append(dupFiles[src.Name], src.File)
			res.Stats.Duplicates++
		}
		seen[src.Name] = true

		if src.Table == nil {
			continue
		}
		rows := src.Table.Rows
		if len(src.Table.Header) > 0 {
			rows = append([][]string{src.Table.Header}, rows...)
		}
		for _, row := range rows {
			if IsBlankRow(row) {
				res.Stats.BlankSkipped++
				continue
			}
			out := make([]string, 0, len(row)+2)
			out = append(out, src.Name, src.File)
			for _, cell := range row {
				if clipped, ok := clip(cell, limit); ok {
					cell = clipped
					res.Stats.Truncated++
				}
				out = append(out, cell)
			}
			res.Merged.Append(out)
			res.Stats.Rows++
		}
	}

	if len(dupOrder) > 0 {
		res.Duplicates = NewTable("DuplicateSheets", "Sheet Name", "Source File Name")
		for _, name := range dupOrder {
			for _, file := range dupFiles[name] {
				res.Duplicates.Append([]string{name, file})
			}
		}
	}
	return res
}

// clip shortens s to limit runes, the last three being "...".
func clip(s string, limit int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	keep := limit - len(concatEllipsis)
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + concatEllipsis, true
}

// LoadSources reads every *.csv file of the given directories. Files are
// visited directory by directory, sorted by name; each file is one sheet named
// after the file.
func LoadSources(dirs ...string) ([]Source, error) {
	var sources []Source
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read sheet dir: %w", err)
		}
		var names []string
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
				continue
			}
			names = append(names, e.Name())
		}
		sort.Strings(names)

		for _, name := range names {
			t, err := ReadFile(filepath.Join(dir, name))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			sources = append(sources, Source{Name: t.Name, File: name, Table: t})
		}
	}
	return sources, nil
}
