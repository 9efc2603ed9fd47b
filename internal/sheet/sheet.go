// Package sheet holds the tabular output model shared by the batch drivers:
// tables with header and rows, length-limited cells and the file codecs.
package sheet

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxCellLength is the length a cell value is truncated to.
	DefaultMaxCellLength = 32000
	// DefaultTruncationMarker is appended to truncated values.
	DefaultTruncationMarker = "... [ truncated ]"
)

// Table is a named sheet. Rows may be shorter or longer than Header.
type Table struct {
	Name   string     `json:"name,omitempty" yaml:"name,omitempty"`
	Header []string   `json:"header,omitempty" yaml:"header,omitempty"`
	Rows   [][]string `json:"rows" yaml:"rows"`
}

// NewTable creates an empty table with the given header.
func NewTable(name string, header ...string) *Table {
	return &Table{Name: name, Header: header, Rows: [][]string{}}
}

// Append adds a row and returns its index.
func (t *Table) Append(row []string) int {
	t.Rows = append(t.Rows, row)
	return len(t.Rows) - 1
}

// Cell returns the value at row, col or "" when out of range.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// Set writes value at row, col, growing the row when needed.
func (t *Table) Set(row, col int, value string) {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return
	}
	t.Rows[row] = grow(t.Rows[row], col+1)
	t.Rows[row][col] = value
}

// SetHeader writes a header name, growing the header when needed.
func (t *Table) SetHeader(col int, name string) {
	if col < 0 {
		return
	}
	t.Header = grow(t.Header, col+1)
	t.Header[col] = name
}

// Width is the widest of header and rows.
func (t *Table) Width() int {
	width := len(t.Header)
	for _, r := range t.Rows {
		if len(r) > width {
			width = len(r)
		}
	}
	return width
}

func grow(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	out := make([]string, n)
	copy(out, row)
	return out
}

// Limits configures cell truncation.
type Limits struct {
	MaxCellLength int
	Marker        string
}

// DefaultLimits returns the stock truncation settings.
func DefaultLimits() Limits {
	return Limits{MaxCellLength: DefaultMaxCellLength, Marker: DefaultTruncationMarker}
}

// Cell keeps both the complete value and what fits into one cell.
type Cell struct {
	Full      string
	Value     string
	Truncated bool
}

// Cell applies the limits to s.
func (l Limits) Cell(s string) Cell {
	v := Truncate(s, l.MaxCellLength, l.Marker)
	return Cell{Full: s, Value: v, Truncated: v != s}
}

// Exceeds reports whether s is longer than the cell limit.
func (l Limits) Exceeds(s string) bool {
	return l.MaxCellLength > 0 && utf8.RuneCountInString(s) > l.MaxCellLength
}

// Truncate keeps the first limit runes of s and appends marker. Values that
// fit, and any value when limit <= 0, are returned unchanged.
func Truncate(s string, limit int, marker string) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + marker
}

// Split cuts s into chunks of at most size runes.
func Split(s string, size int) []string {
	if s == "" {
		return nil
	}
	if size <= 0 {
		return []string{s}
	}
	runes := []rune(s)
	parts := make([]string, 0, (len(runes)+size-1)/size)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[i:end]))
	}
	return parts
}

// IsBlankRow reports whether every cell is empty or whitespace.
func IsBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
