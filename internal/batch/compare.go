package batch

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/shofin-islam/qahelper/internal/sheet"
	"github.com/shofin-islam/qahelper/internal/storage"
	"github.com/shofin-islam/qahelper/pkg/jsondiff"
)

// ComparisonHeader is the header of the result column.
const ComparisonHeader = "Comparison Result"

// Default zero-based columns of a comparison sheet.
const (
	DefaultLeftColumn   = 6
	DefaultRightColumn  = 7
	DefaultResultColumn = 10
)

// CompareOptions selects the columns of CompareTable.
type CompareOptions struct {
	Left   int
	Right  int
	Result int
	Limits sheet.Limits
	// TextFallback replaces the invalid-JSON message with a character diff.
	TextFallback bool
}

// DefaultCompareOptions returns the stock column layout.
func DefaultCompareOptions() CompareOptions {
	return CompareOptions{
		Left:   DefaultLeftColumn,
		Right:  DefaultRightColumn,
		Result: DefaultResultColumn,
		Limits: sheet.DefaultLimits(),
	}
}

// CompareStats counts comparison outcomes.
type CompareStats struct {
	Compared  int
	Identical int
	Different int
	Invalid   int
	Skipped   int
}

func (s *CompareStats) add(diffs []jsondiff.Difference) {
	s.Compared++
	switch {
	case len(diffs) == 0:
		s.Identical++
	case jsondiff.HasInvalidInput(diffs):
		s.Invalid++
	default:
		s.Different++
	}
}

// CompareTable compares the JSON of the left and right column of every row
// and writes the summary into the result column. Rows missing either value
// are skipped.
func CompareTable(t *sheet.Table, opts CompareOptions) CompareStats {
	var stats CompareStats
	t.SetHeader(opts.Result, ComparisonHeader)

	for i := range t.Rows {
		left, right := t.Cell(i, opts.Left), t.Cell(i, opts.Right)
		if strings.TrimSpace(left) == "" || strings.TrimSpace(right) == "" {
			stats.Skipped++
			continue
		}
		diffs := jsondiff.CompareText(left, right)
		stats.add(diffs)

		result := jsondiff.Summarize(diffs)
		if opts.TextFallback && jsondiff.HasInvalidInput(diffs) {
			result = TextDiff(left, right)
		}
		t.Set(i, opts.Result, opts.Limits.Cell(result).Value)
	}
	return stats
}

// CompareFiles compares two JSON documents on disk.
func CompareFiles(leftPath, rightPath string) ([]jsondiff.Difference, error) {
	left, err := os.ReadFile(leftPath)
	if err != nil {
		return nil, fmt.Errorf("read left document: %w", err)
	}
	right, err := os.ReadFile(rightPath)
	if err != nil {
		return nil, fmt.Errorf("read right document: %w", err)
	}
	return jsondiff.CompareText(string(left), string(right)), nil
}

// RunComparison is the result for one sheet row present in both runs.
type RunComparison struct {
	Sheet       string
	Row         int
	Differences []jsondiff.Difference
}

// Summary renders the differences as one line.
func (c RunComparison) Summary() string {
	return jsondiff.Summarize(c.Differences)
}

// RunComparisonTable lays the results of CompareRuns out as a sheet.
func RunComparisonTable(results []RunComparison, limits sheet.Limits) *sheet.Table {
	t := sheet.NewTable("Run Comparison", "Sheet Name", "Row", ComparisonHeader)
	for _, r := range results {
		t.Append([]string{r.Sheet, strconv.Itoa(r.Row), limits.Cell(r.Summary()).Value})
	}
	return t
}

// CompareRuns compares the stored response bodies of two runs, matching
// executions by sheet and row. Rows recorded in only one run are skipped.
func CompareRuns(store storage.Store, leftRun, rightRun string) ([]RunComparison, CompareStats, error) {
	var stats CompareStats
	left, err := loadRun(store, leftRun)
	if err != nil {
		return nil, stats, err
	}
	right, err := loadRun(store, rightRun)
	if err != nil {
		return nil, stats, err
	}

	index := make(map[string]*storage.Execution, len(right))
	for _, e := range right {
		index[executionKey(e)] = e
	}

	var out []RunComparison
	for _, l := range left {
		r, ok := index[executionKey(l)]
		if !ok {
			stats.Skipped++
			continue
		}
		diffs := jsondiff.CompareText(l.Body, r.Body)
		stats.add(diffs)
		out = append(out, RunComparison{Sheet: l.Sheet, Row: l.Row, Differences: diffs})
	}
	return out, stats, nil
}

func loadRun(store storage.Store, id string) ([]*storage.Execution, error) {
	if _, err := store.GetRun(id); err != nil {
		return nil, err
	}
	execs, _, err := store.ListExecutions(storage.ListOptions{RunID: id})
	if err != nil {
		return nil, fmt.Errorf("list executions of %s: %w", id, err)
	}
	return execs, nil
}

func executionKey(e *storage.Execution) string {
	return fmt.Sprintf("%s\x00%d", e.Sheet, e.Row)
}

// TextDiff renders a character level diff of two texts, marking deletions
// with [-...-] and insertions with {+...+}.
func TextDiff(left, right string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(left, right, false))

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}
