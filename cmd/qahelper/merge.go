package main

import (
	"strconv"
	"time"

	"github.com/shofin-islam/qahelper/internal/batch"
	"github.com/shofin-islam/qahelper/internal/collection"
	"github.com/shofin-islam/qahelper/internal/printer"
	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <collections-dir>",
		Short: "Merge the collections of a directory into one collection",
		Args:  cobra.ExactArgs(1),
		RunE:  runMerge,
	}
	cmd.Flags().String("mode", "folders", "Merge mode (folders, unique, filtered)")
	cmd.Flags().StringSlice("filter", nil, "URL prefixes kept in filtered mode (default from config)")
	cmd.Flags().String("name", "", "Name of the merged collection")
	cmd.Flags().StringP("out", "o", ".", "Output directory")
	return cmd
}

func runMerge(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	modeName, _ := cmd.Flags().GetString("mode")
	mode, err := collection.ParseMergeMode(modeName)
	if err != nil {
		return err
	}
	filters, _ := cmd.Flags().GetStringSlice("filter")
	if len(filters) == 0 {
		filters = a.cfg.Collection.FilterDomains
	}
	name, _ := cmd.Flags().GetString("name")
	outDir, _ := cmd.Flags().GetString("out")

	docs, err := loadCollections(a, args[0])
	if err != nil {
		return err
	}

	path, stats, err := batch.MergeToDir(docs, collection.MergeOptions{
		Mode:          mode,
		Name:          name,
		FilterDomains: filters,
	}, outDir, time.Now(), a.log)
	if err != nil {
		return err
	}

	rows := []printer.SummaryRow{
		{Label: "Requests processed", Value: strconv.Itoa(stats.Processed)},
		{Label: "Added", Value: strconv.Itoa(stats.Added)},
		{Label: "Duplicates skipped", Value: strconv.Itoa(stats.Skipped)},
		{Label: "Without URL", Value: strconv.Itoa(stats.NoURL)},
	}
	if mode == collection.MergeFiltered {
		rows = append(rows, printer.SummaryRow{Label: "Matching filter", Value: strconv.Itoa(stats.MatchingFilter)})
	}
	if mode != collection.MergeUnique {
		rows = append(rows, printer.SummaryRow{Label: "Folders", Value: strconv.Itoa(stats.Folders)})
	}
	rows = append(rows, printer.SummaryRow{Label: "Output", Value: path})
	return a.printer.PrintSummary("Merge finished", rows)
}
