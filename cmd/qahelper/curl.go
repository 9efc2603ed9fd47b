package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shofin-islam/qahelper/internal/collection"
	"github.com/shofin-islam/qahelper/pkg/curl"
	"github.com/spf13/cobra"
)

func newCurlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "curl",
		Short: "Convert between collection requests and cURL commands",
	}

	encodeCmd := &cobra.Command{
		Use:   "encode <collections-dir>",
		Short: "Print one cURL command per request of the collections",
		Args:  cobra.ExactArgs(1),
		RunE:  runCurlEncode,
	}
	encodeCmd.Flags().Bool("keep-placeholders", false, "Do not substitute {{placeholders}}")

	parseCmd := &cobra.Command{
		Use:   "parse <curl text | ->",
		Short: "Parse a cURL command and print the request it describes",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCurlParse,
	}

	cmd.AddCommand(encodeCmd, parseCmd)
	return cmd
}

func runCurlEncode(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	docs, err := loadCollections(a, args[0])
	if err != nil {
		return err
	}

	env := a.env
	if keep, _ := cmd.Flags().GetBool("keep-placeholders"); keep {
		env = nil
	}
	for _, entry := range collection.FlattenAll(docs) {
		if err := a.printer.PrintValue("curl", curl.Encode(entry.Request, env)); err != nil {
			return err
		}
	}
	return nil
}

func runCurlParse(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	if text == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	desc, err := curl.Parse(curl.Substitute(text, a.env))
	if err != nil {
		return err
	}
	return a.printer.PrintValue("descriptor", desc)
}
