package main

import (
	"fmt"
	"os"
	"time"

	"github.com/shofin-islam/qahelper/internal/config"
	"github.com/shofin-islam/qahelper/internal/dispatcher"
	"github.com/shofin-islam/qahelper/internal/logger"
	"github.com/shofin-islam/qahelper/internal/printer"
	"github.com/shofin-islam/qahelper/internal/sheet"
	"github.com/shofin-islam/qahelper/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "qahelper",
	Short: "API testing helpers for Postman collections, cURL commands and JSON responses",
	Long: `qahelper exports Postman collections to sheets, executes cURL commands in bulk,
compares JSON responses structurally and merges collections and sheets.
`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run:   showVersion,
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().Bool("log-file-enable", false, "Enable file logging")
	rootCmd.PersistentFlags().String("log-file-path", "", "Log file path")
	rootCmd.PersistentFlags().Int("log-file-max-size", 0, "Maximum size of a single log file (MB)")
	rootCmd.PersistentFlags().Int("log-file-max-backups", 0, "Maximum number of old log files to retain")
	rootCmd.PersistentFlags().Int("log-file-max-age", 0, "Maximum retention days for old log files")
	rootCmd.PersistentFlags().Bool("log-file-compress", false, "Whether to compress old log files")
	rootCmd.PersistentFlags().String("output", "", "Output mode (console, json)")
	rootCmd.PersistentFlags().Bool("silence", false, "Do not print individual executions")
	rootCmd.PersistentFlags().String("env", "", "Placeholder values file (.properties, .env, .yaml, .json)")
	rootCmd.PersistentFlags().StringArray("var", nil, "Placeholder value as key=value (repeatable)")

	bindFlags(rootCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newMergeCmd())
	rootCmd.AddCommand(newConcatCmd())
	rootCmd.AddCommand(newCurlCmd())
	rootCmd.AddCommand(newRunsCmd())
}

func bindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("log.file_logging.enable", flags.Lookup("log-file-enable"))
	viper.BindPFlag("log.file_logging.path", flags.Lookup("log-file-path"))
	viper.BindPFlag("log.file_logging.max_size_mb", flags.Lookup("log-file-max-size"))
	viper.BindPFlag("log.file_logging.max_backups", flags.Lookup("log-file-max-backups"))
	viper.BindPFlag("log.file_logging.max_age_days", flags.Lookup("log-file-max-age"))
	viper.BindPFlag("log.file_logging.compress", flags.Lookup("log-file-compress"))
	viper.BindPFlag("output.mode", flags.Lookup("output"))
	viper.BindPFlag("output.silence", flags.Lookup("silence"))
	viper.BindPFlag("env.file", flags.Lookup("env"))
}

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	printer printer.Printer
	env     map[string]string
}

func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadConfig(configPath, viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Command line has the highest priority.
	if logLevel, err := cmd.Flags().GetString("log-level"); err == nil && logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if mode, err := cmd.Flags().GetString("output"); err == nil && mode != "" {
		cfg.Output.Mode = mode
	}
	if envFile, err := cmd.Flags().GetString("env"); err == nil && envFile != "" {
		cfg.Env.File = envFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.NewLogger(&cfg.Log, cfg.Output.Mode)

	pairs, _ := cmd.Flags().GetStringArray("var")
	overrides, err := config.ParseVarFlags(pairs)
	if err != nil {
		return nil, err
	}
	env, err := config.ResolveEnv(cfg.Env, overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	log.Debug("Placeholder values resolved", "count", len(env), "file", cfg.Env.File)

	return &app{
		cfg:     cfg,
		log:     log,
		printer: printer.New(cfg.Output.Mode, log, &cfg.Output),
		env:     env,
	}, nil
}

func (a *app) limits() sheet.Limits {
	return sheet.Limits{MaxCellLength: a.cfg.Sheet.MaxCellLength, Marker: a.cfg.Sheet.TruncationMarker}
}

func (a *app) dispatcher() *dispatcher.Dispatcher {
	h := a.cfg.HTTP
	return dispatcher.New(a.log, dispatcher.Options{
		Timeout:               time.Duration(h.Timeout) * time.Second,
		Retries:               h.Retries,
		MaxConcurrent:         h.MaxConcurrent,
		MaxIdleConns:          h.MaxIdleConns,
		MaxIdleConnsPerHost:   h.MaxIdleConnsPerHost,
		IdleConnTimeout:       time.Duration(h.IdleConnTimeout) * time.Second,
		TLSHandshakeTimeout:   time.Duration(h.TLSHandshakeTimeout) * time.Second,
		TLSInsecureSkipVerify: h.TLSInsecureSkipVerify,
		MaxRedirects:          h.MaxRedirects,
	})
}

// openStore opens the results store. force opens it even when storage is
// disabled in the configuration.
func (a *app) openStore(force bool) (storage.Store, error) {
	if !a.cfg.Storage.Enable && !force {
		return nil, nil
	}
	store, err := storage.New(&a.cfg.Storage, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to open results store: %w", err)
	}
	return store, nil
}

func (a *app) writeTable(path string, t *sheet.Table, format string) error {
	if format == "" {
		format = sheet.FormatFromPath(path)
	}
	if err := sheet.WriteFile(path, t, format); err != nil {
		return err
	}
	a.log.Info("Table written", "path", path, "rows", len(t.Rows), "format", format)
	return nil
}

func showVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("qahelper version %s\n", version)
	fmt.Printf("Commit: %s\n", commit)
	fmt.Printf("Built: %s\n", buildDate)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
