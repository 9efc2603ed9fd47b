package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shofin-islam/qahelper/internal/batch"
	"github.com/shofin-islam/qahelper/internal/printer"
	"github.com/shofin-islam/qahelper/internal/sheet"
	"github.com/shofin-islam/qahelper/pkg/request"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [sheet.csv ...]",
		Short: "Execute the cURL commands of sheets or of a collection",
		Long: `Execute the cURL commands found in a column of each sheet, or every request of
the collections in --collection. Response bodies are written to
<responses-dir>/responses_<timestamp>/<sheet>_response_<row>.json.`,
		RunE: runRun,
	}
	cmd.Flags().String("collection", "", "Directory of collections to execute instead of sheets")
	cmd.Flags().Int("curl-column", -1, "Zero-based column holding the cURL command (default from config)")
	cmd.Flags().String("responses-dir", "", "Directory receiving response bodies")
	cmd.Flags().Int("response-column", 0, "Zero-based column receiving each response body; sheets are saved with a timestamp suffix")
	cmd.Flags().Int("concurrency", 0, "Number of commands executed in parallel")
	cmd.Flags().Int("retries", -1, "Retries on network failure (default from config)")
	cmd.Flags().Bool("record", false, "Record the run in the results store")
	cmd.Flags().String("name", "", "Name of the recorded run")
	cmd.Flags().StringP("out", "o", "", "Write the results table to this file")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	if c, _ := cmd.Flags().GetInt("concurrency"); c > 0 {
		a.cfg.HTTP.MaxConcurrent = c
	}
	if r, _ := cmd.Flags().GetInt("retries"); r >= 0 {
		a.cfg.HTTP.Retries = r
	}
	curlColumn := a.cfg.Collection.CurlColumn
	if c, _ := cmd.Flags().GetInt("curl-column"); c >= 0 {
		curlColumn = c
	}
	responsesDir, _ := cmd.Flags().GetString("responses-dir")
	if responsesDir == "" {
		responsesDir = a.cfg.Responses.Dir
	}
	responseColumn, _ := cmd.Flags().GetInt("response-column")

	collectionDir, _ := cmd.Flags().GetString("collection")
	var rows []batch.CurlRow
	var tables []*sheet.Table
	var paths []string
	source := collectionDir
	switch {
	case collectionDir != "" && len(args) > 0:
		return fmt.Errorf("pass either sheets or --collection, not both")
	case collectionDir != "":
		docs, err := loadCollections(a, collectionDir)
		if err != nil {
			return err
		}
		rows = batch.RowsFromCollections(docs)
	case len(args) > 0:
		for _, path := range args {
			t, err := sheet.ReadFile(path)
			if err != nil {
				return err
			}
			tables = append(tables, t)
			paths = append(paths, path)
			rows = append(rows, batch.RowsFromTable(t, curlColumn)...)
		}
		source = strings.Join(args, ",")
	default:
		return fmt.Errorf("no sheets given")
	}

	record, _ := cmd.Flags().GetBool("record")
	store, err := a.openStore(record)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	runName, _ := cmd.Flags().GetString("name")
	if runName == "" {
		runName = filepath.Base(source)
	}

	d := a.dispatcher()
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	started := time.Now()
	table, stats, err := batch.Run(ctx, rows, batch.RunOptions{
		Executor:       d,
		Env:            a.env,
		ResponsesDir:   responsesDir,
		Limits:         a.limits(),
		ResponseColumn: responseColumn,
		Store:          store,
		RunName:        runName,
		Source:         source,
		OnCapture: func(r batch.CurlRow, c request.Capture) {
			a.printer.PrintCapture(fmt.Sprintf("%s row %d", r.Sheet, r.Row), c)
		},
		Log: a.log,
		Now: func() time.Time { return started },
	})
	if err != nil {
		return err
	}

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := a.writeTable(out, table, ""); err != nil {
			return err
		}
	}
	if responseColumn > 0 {
		for i, t := range tables {
			if err := a.writeTable(batch.TimestampedName(paths[i], started), t, ""); err != nil {
				return err
			}
		}
	}

	rowsOut := []printer.SummaryRow{
		{Label: "Commands", Value: strconv.Itoa(stats.Total)},
		{Label: "Skipped (empty)", Value: strconv.Itoa(stats.Skipped)},
		{Label: "Succeeded", Value: strconv.Itoa(stats.Succeeded)},
		{Label: "Invalid cURL", Value: strconv.Itoa(stats.Invalid)},
		{Label: "Network failures", Value: strconv.Itoa(stats.Failed)},
		{Label: "Unresolved placeholders", Value: strconv.Itoa(stats.Unresolved)},
		{Label: "Duration", Value: time.Since(started).Round(time.Millisecond).String()},
	}
	if stats.ResponseDir != "" {
		rowsOut = append(rowsOut, printer.SummaryRow{Label: "Responses", Value: stats.ResponseDir})
	}
	if stats.RunID != "" {
		rowsOut = append(rowsOut, printer.SummaryRow{Label: "Run ID", Value: stats.RunID})
	}
	return a.printer.PrintSummary("Run finished", rowsOut)
}
