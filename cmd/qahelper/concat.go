package main

import (
	"strconv"

	"github.com/shofin-islam/qahelper/internal/batch"
	"github.com/shofin-islam/qahelper/internal/printer"
	"github.com/shofin-islam/qahelper/internal/sheet"
	"github.com/spf13/cobra"
)

func newConcatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "concat <dir> [dir ...]",
		Short: "Stack every sheet of the directories into one table",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runConcat,
	}
	cmd.Flags().StringP("out", "o", "merged_data.csv", "Merged output file")
	cmd.Flags().String("duplicates", "", "Duplicate sheet report (default <out>_duplicate_sheets.<ext>)")
	return cmd
}

func runConcat(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	sources, err := sheet.LoadSources(args...)
	if err != nil {
		return err
	}
	a.log.Info("Sheets loaded", "count", len(sources))

	out, _ := cmd.Flags().GetString("out")
	dups, _ := cmd.Flags().GetString("duplicates")
	written, stats, err := batch.ConcatToFiles(sources, sheet.ConcatOptions{
		MaxCellLength: a.cfg.Sheet.ConcatMaxCellLength,
	}, out, dups, a.log)
	if err != nil {
		return err
	}

	rows := []printer.SummaryRow{
		{Label: "Sheets", Value: strconv.Itoa(stats.Sheets)},
		{Label: "Rows", Value: strconv.Itoa(stats.Rows)},
		{Label: "Blank rows skipped", Value: strconv.Itoa(stats.BlankSkipped)},
		{Label: "Clipped cells", Value: strconv.Itoa(stats.Truncated)},
		{Label: "Duplicate sheet names", Value: strconv.Itoa(stats.Duplicates)},
		{Label: "Output", Value: written.Merged},
	}
	if written.Duplicates != "" {
		rows = append(rows, printer.SummaryRow{Label: "Duplicate report", Value: written.Duplicates})
	}
	return a.printer.PrintSummary("Concatenation finished", rows)
}
