package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func validConfig() *Config {
	return &Config{
		Log:    LogConfig{Level: "info"},
		Output: OutputConfig{Mode: "console"},
		HTTP:   HTTPConfig{Timeout: 30, MaxConcurrent: 1, MaxRedirects: 10},
		Sheet: SheetConfig{
			MaxCellLength:       32000,
			TruncationMarker:    "... [ truncated ]",
			ConcatMaxCellLength: 32767,
		},
		Collection: CollectionConfig{
			CurlColumn:     3,
			CompareColumns: CompareColumnsConfig{Left: 6, Right: 7, Result: 10},
		},
		Responses: ResponsesConfig{Dir: "./output"},
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("Default config", func(t *testing.T) {
		cfg, err := LoadConfig("", nil)
		if err != nil {
			t.Fatalf("Failed to load default config: %v", err)
		}

		if cfg.Log.Level != "info" {
			t.Errorf("Expected default log level 'info', got %s", cfg.Log.Level)
		}
		if cfg.HTTP.Timeout != 30 {
			t.Errorf("Expected default http timeout 30, got %d", cfg.HTTP.Timeout)
		}
		if cfg.HTTP.MaxConcurrent != 1 {
			t.Errorf("Expected default max concurrent 1, got %d", cfg.HTTP.MaxConcurrent)
		}
		if cfg.Sheet.MaxCellLength != 32000 || cfg.Sheet.TruncationMarker != "... [ truncated ]" {
			t.Errorf("Unexpected sheet defaults: %+v", cfg.Sheet)
		}
		if cfg.Collection.CurlColumn != 3 || cfg.Collection.CompareColumns.Result != 10 {
			t.Errorf("Unexpected collection defaults: %+v", cfg.Collection)
		}
		if diff := cmp.Diff([]string{"{{baseUrl}}", "{{base_url}}"}, cfg.Collection.FilterDomains); diff != "" {
			t.Errorf("filter domains mismatch (-want +got):\n%s", diff)
		}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("default config should validate: %v", err)
		}
	})
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{name: "Valid config", mutate: func(*Config) {}},
		{
			name:     "Invalid log level",
			mutate:   func(c *Config) { c.Log.Level = "verbose" },
			errorMsg: "invalid log level",
		},
		{
			name: "File logging without path",
			mutate: func(c *Config) {
				c.Log.FileLogging = FileLogConfig{Enable: true, MaxSizeMB: 1}
			},
			errorMsg: "log file path cannot be empty",
		},
		{
			name:     "Invalid output mode",
			mutate:   func(c *Config) { c.Output.Mode = "xml" },
			errorMsg: "output mode must be",
		},
		{
			name:     "Negative timeout",
			mutate:   func(c *Config) { c.HTTP.Timeout = -1 },
			errorMsg: "http timeout cannot be negative",
		},
		{
			name:     "Zero max concurrent",
			mutate:   func(c *Config) { c.HTTP.MaxConcurrent = 0 },
			errorMsg: "http max concurrent must be at least 1",
		},
		{
			name:     "Zero cell length",
			mutate:   func(c *Config) { c.Sheet.MaxCellLength = 0 },
			errorMsg: "sheet max cell length must be at least 1",
		},
		{
			name:     "Unknown overflow",
			mutate:   func(c *Config) { c.Sheet.Overflow = "wrap" },
			errorMsg: "sheet overflow must be",
		},
		{
			name: "Same compare columns",
			mutate: func(c *Config) {
				c.Collection.CompareColumns.Right = c.Collection.CompareColumns.Left
			},
			errorMsg: "left and right must differ",
		},
		{
			name:     "Unsupported storage driver",
			mutate:   func(c *Config) { c.Storage.Driver = "postgres" },
			errorMsg: "storage driver must be sqlite",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.errorMsg != "" {
				if err == nil {
					t.Fatalf("Expected error containing '%s', but got no error", tt.errorMsg)
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Fatalf("Expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, but got: %v", err)
			}
		})
	}
}

func TestValidateFillsDerivedDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Output.Mode = ""
	cfg.Sheet.Overflow = "TRUNCATE"
	cfg.Collection.FilterDomains = []string{" api.example.com ", "", "api.example.com"}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Output.Mode != "console" || cfg.Sheet.Overflow != "truncate" || cfg.Sheet.Format != "csv" {
		t.Fatalf("derived defaults not applied: %+v %+v", cfg.Output, cfg.Sheet)
	}
	if diff := cmp.Diff([]string{"api.example.com"}, cfg.Collection.FilterDomains); diff != "" {
		t.Fatalf("filter domains not normalized (-want +got):\n%s", diff)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("storage driver not defaulted: %q", cfg.Storage.Driver)
	}
}

func TestLoadConfigWithFile(t *testing.T) {
	configContent := `
log:
  level: "debug"
  file_logging:
    enable: true
    path: "/tmp/test.log"
    max_size_mb: 5

http:
  timeout: 60
  max_concurrent: 4
  tls_insecure_skip_verify: true

sheet:
  max_cell_length: 1000
  overflow: truncate

collection:
  filter_domains:
    - "api.example.com"
  curl_column: 2

storage:
  enable: true
  path: "/tmp/qa.db"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to write config content: %v", err)
	}

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Log.Level != "debug" || !cfg.Log.FileLogging.Enable || cfg.Log.FileLogging.Path != "/tmp/test.log" {
		t.Errorf("Unexpected log config: %+v", cfg.Log)
	}
	if cfg.HTTP.Timeout != 60 || cfg.HTTP.MaxConcurrent != 4 || !cfg.HTTP.TLSInsecureSkipVerify {
		t.Errorf("Unexpected http config: %+v", cfg.HTTP)
	}
	if cfg.Sheet.MaxCellLength != 1000 || cfg.Sheet.Overflow != "truncate" {
		t.Errorf("Unexpected sheet config: %+v", cfg.Sheet)
	}
	if cfg.Sheet.TruncationMarker != "... [ truncated ]" {
		t.Errorf("Expected default marker to survive partial sheet section, got %q", cfg.Sheet.TruncationMarker)
	}
	if cfg.Collection.CurlColumn != 2 || len(cfg.Collection.FilterDomains) != 1 {
		t.Errorf("Unexpected collection config: %+v", cfg.Collection)
	}
	if !cfg.Storage.Enable || cfg.Storage.Path != "/tmp/qa.db" {
		t.Errorf("Unexpected storage config: %+v", cfg.Storage)
	}
}

func TestLoadConfigKeepsColumnZero(t *testing.T) {
	configContent := `
collection:
  curl_column: 0
  compare_columns:
    left: 0
    right: 1
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to write config content: %v", err)
	}

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	cols := cfg.Collection.CompareColumns
	if cfg.Collection.CurlColumn != 0 || cols.Left != 0 || cols.Right != 1 || cols.Result != 10 {
		t.Errorf("Unexpected columns: curl=%d compare=%+v", cfg.Collection.CurlColumn, cols)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Column zero should validate: %v", err)
	}
}

func TestLoadConfigInvalidFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml", nil)
	if err == nil {
		t.Error("Expected error for missing config file")
	}
	if cfg != nil {
		t.Error("Expected nil config for missing file")
	}
}
