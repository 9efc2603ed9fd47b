package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shofin-islam/qahelper/internal/batch"
	"github.com/shofin-islam/qahelper/internal/collection"
	"github.com/shofin-islam/qahelper/internal/printer"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <collections-dir>",
		Short: "Export every request and saved example of the collections to a sheet",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	cmd.Flags().StringP("out", "o", "", "Output file (default api_details_<timestamp>.<format>)")
	cmd.Flags().String("format", "", "Output format (csv, json, yaml)")
	cmd.Flags().String("layout", batch.LayoutDetails, "Sheet layout: details (every column) or unique (one request per method and URL, cURL in column 3)")
	cmd.Flags().Bool("no-split", false, "Only truncate long values instead of splitting them into part columns")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	docs, err := loadCollections(a, args[0])
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = a.cfg.Sheet.Format
	}
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = batch.TimestampedName("api_details."+format, time.Now())
	}
	noSplit, _ := cmd.Flags().GetBool("no-split")
	layout, _ := cmd.Flags().GetString("layout")
	if !batch.ValidLayout(layout) {
		return fmt.Errorf("unknown layout %q (want %s or %s)", layout, batch.LayoutDetails, batch.LayoutUnique)
	}

	table, stats := batch.ExportCollections(docs, a.env, batch.ExportOptions{
		Layout:               layout,
		Limits:               a.limits(),
		Split:                a.cfg.Sheet.Overflow == "split" && !noSplit,
		FeatureStripPatterns: a.cfg.Collection.FeatureStripPatterns,
	})
	if err := a.writeTable(out, table, format); err != nil {
		return err
	}

	return a.printer.PrintSummary("Export finished", []printer.SummaryRow{
		{Label: "Collections", Value: strconv.Itoa(stats.Files)},
		{Label: "Requests", Value: strconv.Itoa(stats.Requests)},
		{Label: "Rows", Value: strconv.Itoa(stats.Rows)},
		{Label: "Duplicates skipped", Value: strconv.Itoa(stats.Skipped)},
		{Label: "Truncated cells", Value: strconv.Itoa(stats.Truncated)},
		{Label: "Output", Value: out},
	})
}

// loadCollections reads the collections of dir, logging unreadable files.
func loadCollections(a *app, dir string) ([]collection.Document, error) {
	docs, failed, err := collection.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, f := range failed {
		a.log.Warn("Skipping unreadable collection", "file", filepath.Join(dir, f.File), "error", f.Err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no collections found in %s", dir)
	}
	a.log.Info("Collections loaded", "dir", dir, "count", len(docs))
	return docs, nil
}
