// Package batch drives the bulk operations: exporting collections to a sheet,
// running the cURL commands of a sheet and comparing response columns.
package batch

import (
	"strconv"
	"strings"

	"github.com/shofin-islam/qahelper/internal/collection"
	"github.com/shofin-islam/qahelper/internal/sheet"
	"github.com/shofin-islam/qahelper/pkg/curl"
)

// ExportColumns is the header of an exported collection sheet.
var ExportColumns = []string{
	"File Name", "Full Directory Path", "Parent Folder", "Feature Name",
	"Request Method", "Request Body", "cURL", "Response Count",
	"Response body", "Response headers", "status", "Status code",
	"Response-Status,Body,Headers",
	"cURL Part 1", "cURL Part 2",
	"Response Body Part 1", "Response Body Part 2", "Response Body Part 3",
	"Combined Part 1", "Combined Part 2", "Combined Part 3",
	"Response Name", "Response Tag",
}

// UniqueColumns is the header of the unique layout: one block of rows per
// distinct method and query-less URL within a collection file, with the cURL
// in column 3 where Run looks for it by default.
var UniqueColumns = []string{
	"Full Directory Path", "Parent Folder", "Feature Name", "cURL", "File Name",
	"Saved Response", "Response Count", "Request Method", "JSON Request Body",
}

// Export layouts.
const (
	LayoutDetails = "details"
	LayoutUnique  = "unique"
)

// UniqueCurlColumn is the cURL column of the unique layout.
const UniqueCurlColumn = 3

const (
	colCurl         = 6
	colCurlParts    = 13
	colBodyParts    = 15
	colComboParts   = 18
	colResponseName = 21

	curlParts  = 2
	bodyParts  = 3
	comboParts = 3
)

// ValidLayout reports whether name is a known export layout; "" counts as the default.
func ValidLayout(name string) bool {
	return name == "" || name == LayoutDetails || name == LayoutUnique
}

// ExportOptions controls ExportCollections.
type ExportOptions struct {
	// Layout is LayoutDetails (default) or LayoutUnique.
	Layout               string
	Limits               sheet.Limits
	Split                bool
	FeatureStripPatterns []string
}

// ExportStats counts what an export produced.
type ExportStats struct {
	Files     int
	Requests  int
	Rows      int
	Truncated int
	Skipped   int
}

// ExportCollections writes one row per saved example of every request, or a
// single row with empty response fields when a request has none. Placeholders
// in the generated cURL are resolved from env. The unique layout keeps only the
// first request per method and query-less URL of each file and counts the rest
// as skipped.
func ExportCollections(docs []collection.Document, env map[string]string, opts ExportOptions) (*sheet.Table, ExportStats) {
	var stats ExportStats
	unique := opts.Layout == LayoutUnique
	build := exportRows
	columns := ExportColumns
	if unique {
		build = uniqueRows
		columns = UniqueColumns
	}
	table := sheet.NewTable("API Details", columns...)

	for _, doc := range docs {
		stats.Files++
		seen := make(map[string]bool)
		for _, entry := range collection.Flatten(doc.File, doc.Collection.Items) {
			stats.Requests++
			if unique {
				key := entry.Request.Method + " " + collection.StripQuery(entry.Request.URL)
				if seen[key] {
					stats.Skipped++
					continue
				}
				seen[key] = true
			}
			for _, row := range build(entry, env, opts, &stats) {
				table.Append(row)
				stats.Rows++
			}
		}
	}
	return table, stats
}

// uniqueRows renders the unique layout: one row per saved response body.
func uniqueRows(entry collection.Entry, env map[string]string, opts ExportOptions, stats *ExportStats) [][]string {
	cell := func(s string) string {
		c := opts.Limits.Cell(s)
		if c.Truncated {
			stats.Truncated++
		}
		return c.Value
	}

	curlCommand := cell(curl.Encode(entry.Request, env))
	var requestBody string
	if entry.Request.Body != "" {
		requestBody = cell(curl.FormatBody(entry.Request.Body))
	}
	feature := collection.FeatureName(entry.Request.URL, opts.FeatureStripPatterns)
	count := strconv.Itoa(len(entry.Examples))

	bodies := make([]string, 0, len(entry.Examples))
	for _, ex := range entry.Examples {
		bodies = append(bodies, ex.Body)
	}
	if len(bodies) == 0 {
		bodies = []string{""}
	}

	rows := make([][]string, 0, len(bodies))
	for _, body := range bodies {
		rows = append(rows, []string{
			entry.FullPath,
			entry.ParentFolder,
			feature,
			curlCommand,
			entry.File,
			cell(body),
			count,
			entry.Request.Method,
			requestBody,
		})
	}
	return rows
}

func exportRows(entry collection.Entry, env map[string]string, opts ExportOptions, stats *ExportStats) [][]string {
	cell := func(s string) string {
		c := opts.Limits.Cell(s)
		if c.Truncated {
			stats.Truncated++
		}
		return c.Value
	}

	curlCommand := curl.Encode(entry.Request, env)
	var requestBody string
	if entry.Request.Body != "" {
		requestBody = curl.FormatBody(entry.Request.Body)
	}

	examples := entry.Examples
	if len(examples) == 0 {
		examples = []collection.Example{{}}
	}

	rows := make([][]string, 0, len(examples))
	for _, ex := range examples {
		row := make([]string, len(ExportColumns))
		row[0] = entry.File
		row[1] = entry.FullPath
		row[2] = entry.ParentFolder
		row[3] = collection.FeatureName(entry.Request.URL, opts.FeatureStripPatterns)
		row[4] = entry.Request.Method
		row[5] = cell(requestBody)
		row[colCurl] = cell(curlCommand)
		row[7] = strconv.Itoa(len(entry.Examples))

		headers := ex.HeaderLine()
		code := ex.CodeText()
		combined := code + "\n" + headers + "\n" + ex.Body
		row[8] = cell(ex.Body)
		row[9] = headers
		row[10] = ex.Status
		row[11] = code
		row[12] = cell(combined)

		if opts.Split {
			fillParts(row, colCurlParts, curlParts, curlCommand, opts.Limits)
			fillParts(row, colBodyParts, bodyParts, ex.Body, opts.Limits)
			fillParts(row, colComboParts, comboParts, combined, opts.Limits)
		}

		name, tag := splitExampleName(ex.Name)
		row[colResponseName] = name
		row[colResponseName+1] = tag

		rows = append(rows, row)
	}
	return rows
}

// fillParts spreads an over-long value over at most n part columns.
func fillParts(row []string, start, n int, value string, limits sheet.Limits) {
	if !limits.Exceeds(value) {
		return
	}
	for i, part := range sheet.Split(value, limits.MaxCellLength) {
		if i >= n {
			break
		}
		row[start+i] = part
	}
}

// splitExampleName maps "Name-Tag" to its two leading parts.
func splitExampleName(name string) (string, string) {
	parts := strings.Split(name, "-")
	var tag string
	if len(parts) > 1 {
		tag = parts[1]
	}
	return parts[0], tag
}
