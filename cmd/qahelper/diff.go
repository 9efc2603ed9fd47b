package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shofin-islam/qahelper/internal/batch"
	"github.com/shofin-islam/qahelper/internal/printer"
	"github.com/shofin-islam/qahelper/internal/sheet"
	"github.com/spf13/cobra"
)

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <left.json> <right.json>",
		Short: "Compare JSON documents, sheet columns or two recorded runs",
		Example: `  qahelper diff old.json new.json
  qahelper diff --sheet responses.csv --left 6 --right 7 --result 10 -o compared.csv
  qahelper diff --runs <runA> <runB>`,
		RunE: runDiff,
	}
	cmd.Flags().String("sheet", "", "Compare two columns of every row of this sheet")
	cmd.Flags().Bool("runs", false, "Compare the response bodies of two recorded runs")
	cmd.Flags().Int("left", -1, "Zero-based column of the left document (default from config)")
	cmd.Flags().Int("right", -1, "Zero-based column of the right document (default from config)")
	cmd.Flags().Int("result", -1, "Zero-based column receiving the result (default from config)")
	cmd.Flags().Bool("text-fallback", false, "Show a character diff when a cell is not valid JSON")
	cmd.Flags().StringP("out", "o", "", "Output file for --sheet and --runs (default: <sheet>_<timestamp> / print only)")
	return cmd
}

func runDiff(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	sheetPath, _ := cmd.Flags().GetString("sheet")
	runs, _ := cmd.Flags().GetBool("runs")
	switch {
	case sheetPath != "":
		if len(args) > 0 {
			return fmt.Errorf("--sheet takes no positional arguments")
		}
		return diffSheet(cmd, a, sheetPath)
	case runs:
		if len(args) != 2 {
			return fmt.Errorf("--runs needs two run ids")
		}
		return diffRuns(cmd, a, args[0], args[1])
	case len(args) == 2:
		diffs, err := batch.CompareFiles(args[0], args[1])
		if err != nil {
			return err
		}
		return a.printer.PrintDifferences(args[0]+" vs "+args[1], diffs)
	default:
		return fmt.Errorf("expected two JSON files, --sheet or --runs")
	}
}

func diffSheet(cmd *cobra.Command, a *app, path string) error {
	t, err := sheet.ReadFile(path)
	if err != nil {
		return err
	}

	opts := batch.CompareOptions{
		Left:   a.cfg.Collection.CompareColumns.Left,
		Right:  a.cfg.Collection.CompareColumns.Right,
		Result: a.cfg.Collection.CompareColumns.Result,
		Limits: a.limits(),
	}
	for name, dst := range map[string]*int{"left": &opts.Left, "right": &opts.Right, "result": &opts.Result} {
		if v, _ := cmd.Flags().GetInt(name); v >= 0 {
			*dst = v
		}
	}
	opts.TextFallback, _ = cmd.Flags().GetBool("text-fallback")

	stats := batch.CompareTable(t, opts)

	out, _ := cmd.Flags().GetString("out")
	out = comparedSheetName(out, path, time.Now())
	if err := a.writeTable(out, t, ""); err != nil {
		return err
	}
	return a.printer.PrintSummary("Comparison finished", compareSummary(stats, out))
}

// comparedSheetName keeps the compared sheet next to its input unless out is set.
func comparedSheetName(out, input string, now time.Time) string {
	if out != "" {
		return out
	}
	return batch.TimestampedName(input, now)
}

func diffRuns(cmd *cobra.Command, a *app, left, right string) error {
	store, err := a.openStore(true)
	if err != nil {
		return err
	}
	defer store.Close()

	results, stats, err := batch.CompareRuns(store, left, right)
	if err != nil {
		return err
	}
	for _, r := range results {
		title := fmt.Sprintf("%s row %d", r.Sheet, r.Row)
		if err := a.printer.PrintDifferences(title, r.Differences); err != nil {
			return err
		}
	}

	out, _ := cmd.Flags().GetString("out")
	if out != "" {
		if err := a.writeTable(out, batch.RunComparisonTable(results, a.limits()), ""); err != nil {
			return err
		}
	}
	return a.printer.PrintSummary("Run comparison finished", compareSummary(stats, out))
}

func compareSummary(stats batch.CompareStats, out string) []printer.SummaryRow {
	rows := []printer.SummaryRow{
		{Label: "Compared", Value: strconv.Itoa(stats.Compared)},
		{Label: "Identical", Value: strconv.Itoa(stats.Identical)},
		{Label: "Different", Value: strconv.Itoa(stats.Different)},
		{Label: "Invalid JSON", Value: strconv.Itoa(stats.Invalid)},
		{Label: "Skipped", Value: strconv.Itoa(stats.Skipped)},
	}
	if out != "" {
		rows = append(rows, printer.SummaryRow{Label: "Output", Value: out})
	}
	return rows
}
