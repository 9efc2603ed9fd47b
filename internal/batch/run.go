package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shofin-islam/qahelper/internal/collection"
	"github.com/shofin-islam/qahelper/internal/logger"
	"github.com/shofin-islam/qahelper/internal/sheet"
	"github.com/shofin-islam/qahelper/internal/storage"
	"github.com/shofin-islam/qahelper/pkg/curl"
	"github.com/shofin-islam/qahelper/pkg/request"
)

// RunColumns is the header of the run results table.
var RunColumns = []string{
	"Sheet Name", "Row", "Request cURL", "Method", "URL",
	"Status Code", "Outcome", "Response File Path",
}

// TimestampLayout formats timestamps used in output names.
const TimestampLayout = "20060102_150405"

// responseFileError is written in place of a path when a body could not be saved.
const responseFileError = "Error"

// Executor runs cURL commands, returning captures in input order.
type Executor interface {
	ExecuteAll(ctx context.Context, curlTexts []string) []request.Capture
}

// CurlRow is a cURL command taken from a sheet row. Index is the position in
// Table.Rows; Row is the sheet row number, the header being row 0.
type CurlRow struct {
	Sheet string
	Row   int
	Curl  string

	Table *sheet.Table
	Index int
}

// RowsFromTable returns one CurlRow per data row of t, reading the command
// from column col. Empty cells are kept and skipped by Run.
func RowsFromTable(t *sheet.Table, col int) []CurlRow {
	rows := make([]CurlRow, 0, len(t.Rows))
	for i := range t.Rows {
		rows = append(rows, CurlRow{
			Sheet: t.Name,
			Row:   i + 1,
			Curl:  t.Cell(i, col),
			Table: t,
			Index: i,
		})
	}
	return rows
}

// RowsFromCollections encodes every request of the documents. Placeholders are
// left in place for Run to resolve.
func RowsFromCollections(docs []collection.Document) []CurlRow {
	var rows []CurlRow
	for _, doc := range docs {
		name := strings.TrimSuffix(doc.File, filepath.Ext(doc.File))
		for i, entry := range collection.Flatten(doc.File, doc.Collection.Items) {
			rows = append(rows, CurlRow{
				Sheet: name,
				Row:   i + 1,
				Curl:  curl.Encode(entry.Request, nil),
			})
		}
	}
	return rows
}

// RunOptions controls Run.
type RunOptions struct {
	Executor     Executor
	Env          map[string]string
	ResponsesDir string
	Limits       sheet.Limits
	// ResponseColumn, when > 0, is the zero-based column of the source table
	// that receives each response body.
	ResponseColumn int

	Store   storage.Store
	RunName string
	Source  string

	// OnCapture, when set, is called for every executed row in input order.
	OnCapture func(r CurlRow, c request.Capture)

	Log logger.Logger
	Now func() time.Time
}

// RunStats counts the outcome of a run.
type RunStats struct {
	Total     int
	Skipped   int
	Succeeded int
	Invalid   int
	Failed    int

	// Unresolved counts executed commands that still held {{name}}
	// placeholders after substitution.
	Unresolved int

	ResponseDir string
	RunID       string
}

// Run resolves placeholders, executes every non-empty command and saves each
// response body to <ResponsesDir>/responses_<timestamp>/<sheet>_response_<row>.json.
func Run(ctx context.Context, rows []CurlRow, opts RunOptions) (*sheet.Table, RunStats, error) {
	stats := RunStats{Total: len(rows)}
	table := sheet.NewTable("Results", RunColumns...)
	if opts.Executor == nil {
		return nil, stats, fmt.Errorf("run: executor is nil")
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var pending []CurlRow
	var texts []string
	for _, r := range rows {
		if strings.TrimSpace(r.Curl) == "" {
			stats.Skipped++
			opts.Log.Debug("Skipping empty cURL cell", "sheet", r.Sheet, "row", r.Row)
			continue
		}
		text := curl.Substitute(r.Curl, opts.Env)
		if names := curl.Placeholders(text); len(names) > 0 {
			stats.Unresolved++
			opts.Log.Warn("Unresolved placeholders in cURL", "sheet", r.Sheet, "row", r.Row, "names", strings.Join(names, ", "))
		}
		pending = append(pending, r)
		texts = append(texts, text)
	}
	if len(pending) == 0 {
		return table, stats, nil
	}

	stats.ResponseDir = filepath.Join(opts.ResponsesDir, "responses_"+now().Format(TimestampLayout))
	if err := os.MkdirAll(stats.ResponseDir, 0o755); err != nil {
		return nil, stats, fmt.Errorf("create response dir: %w", err)
	}

	var runID string
	if opts.Store != nil {
		run, err := opts.Store.CreateRun(opts.RunName, opts.Source)
		if err != nil {
			return nil, stats, fmt.Errorf("create run: %w", err)
		}
		runID = run.ID
		stats.RunID = runID
	}

	opts.Log.Info("Executing cURL commands", "count", len(texts), "dir", stats.ResponseDir)
	captures := opts.Executor.ExecuteAll(ctx, texts)

	for i, r := range pending {
		capture := captures[i]
		switch capture.Outcome {
		case request.OutcomeOK:
			stats.Succeeded++
		case request.OutcomeInvalidFormat:
			stats.Invalid++
		default:
			stats.Failed++
		}

		if opts.OnCapture != nil {
			opts.OnCapture(r, capture)
		}
		path := writeResponse(stats.ResponseDir, r, capture.Body, opts.Log)

		if runID != "" {
			if _, err := opts.Store.RecordExecution(runID, r.Sheet, r.Row, capture); err != nil {
				opts.Log.Warn("Failed to record execution", "sheet", r.Sheet, "row", r.Row, "error", err)
			}
		}
		if opts.ResponseColumn > 0 && r.Table != nil {
			if opts.ResponseColumn >= len(r.Table.Header) || r.Table.Header[opts.ResponseColumn] == "" {
				r.Table.SetHeader(opts.ResponseColumn, "Response")
			}
			r.Table.Set(r.Index, opts.ResponseColumn, opts.Limits.Cell(capture.Body).Value)
		}

		status := ""
		if capture.StatusCode > 0 {
			status = strconv.Itoa(capture.StatusCode)
		}
		table.Append([]string{
			r.Sheet,
			strconv.Itoa(r.Row),
			opts.Limits.Cell(texts[i]).Value,
			capture.Method,
			capture.URL,
			status,
			string(capture.Outcome),
			path,
		})
	}

	return table, stats, nil
}

func writeResponse(dir string, r CurlRow, body string, log logger.Logger) string {
	name := fmt.Sprintf("%s_response_%d.json", safeFileName(r.Sheet), r.Row)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		log.Warn("Error writing response to file", "path", path, "error", err)
		return responseFileError
	}
	return path
}

var fileNameReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_")

func safeFileName(s string) string {
	return fileNameReplacer.Replace(strings.TrimSpace(s))
}

// TimestampedName inserts _<timestamp> before the extension of path.
func TimestampedName(path string, t time.Time) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + t.Format(TimestampLayout) + ext
}
