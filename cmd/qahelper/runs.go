package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shofin-islam/qahelper/internal/printer"
	"github.com/shofin-islam/qahelper/internal/storage"
	"github.com/shofin-islam/qahelper/pkg/request"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect runs recorded in the results store",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  runRunsList,
	}
	listCmd.Flags().Int("limit", 20, "Maximum number of runs")

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the executions of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsShow,
	}
	showCmd.Flags().String("sheet", "", "Only executions of this sheet")
	showCmd.Flags().String("outcome", "", "Only executions with this outcome (ok, invalid_format, network_failure)")
	showCmd.Flags().Int("limit", 0, "Maximum number of executions")

	cmd.AddCommand(listCmd, showCmd)
	return cmd
}

func runRunsList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.openStore(true)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	if a.cfg.Output.Mode == "json" {
		return a.printer.PrintValue("runs", runs)
	}

	rows := make([]printer.SummaryRow, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, printer.SummaryRow{
			Label: r.ID,
			Value: fmt.Sprintf("%s  %s  %d executions", r.CreatedAt.Format(time.DateTime), r.Name, r.Executions),
		})
	}
	return a.printer.PrintSummary("Recorded runs ("+strconv.Itoa(len(runs))+")", rows)
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	store, err := a.openStore(true)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(args[0])
	if err != nil {
		return err
	}
	sheetName, _ := cmd.Flags().GetString("sheet")
	outcome, _ := cmd.Flags().GetString("outcome")
	limit, _ := cmd.Flags().GetInt("limit")

	execs, total, err := store.ListExecutions(storage.ListOptions{
		RunID:   run.ID,
		Sheet:   sheetName,
		Outcome: request.Outcome(outcome),
		Limit:   limit,
	})
	if err != nil {
		return err
	}
	for _, e := range execs {
		if err := a.printer.PrintCapture(fmt.Sprintf("%s row %d", e.Sheet, e.Row), e.Capture); err != nil {
			return err
		}
	}
	return a.printer.PrintSummary("Run "+run.ID, []printer.SummaryRow{
		{Label: "Name", Value: run.Name},
		{Label: "Source", Value: run.Source},
		{Label: "Created", Value: run.CreatedAt.Format(time.DateTime)},
		{Label: "Executions", Value: fmt.Sprintf("%d of %d", len(execs), total)},
	})
}
