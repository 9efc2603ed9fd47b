package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config application configuration structure
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	HTTP       HTTPConfig       `yaml:"http" mapstructure:"http"`
	Env        EnvConfig        `yaml:"env" mapstructure:"env"`
	Sheet      SheetConfig      `yaml:"sheet" mapstructure:"sheet"`
	Collection CollectionConfig `yaml:"collection" mapstructure:"collection"`
	Responses  ResponsesConfig  `yaml:"responses" mapstructure:"responses"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
}

// LogConfig log configuration
type LogConfig struct {
	Level       string        `yaml:"level" mapstructure:"level"`
	FileLogging FileLogConfig `yaml:"file_logging" mapstructure:"file_logging"`
}

// FileLogConfig file log configuration
type FileLogConfig struct {
	Enable     bool   `yaml:"enable" mapstructure:"enable"`
	Path       string `yaml:"path" mapstructure:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// OutputConfig controls CLI output style
type OutputConfig struct {
	Mode     string         `yaml:"mode" mapstructure:"mode"`
	Silence  bool           `yaml:"silence" mapstructure:"silence"`
	BodyView BodyViewConfig `yaml:"body_view" mapstructure:"body_view"`
}

// BodyViewConfig controls body formatting in console output
type BodyViewConfig struct {
	Enable          bool           `yaml:"enable" mapstructure:"enable"`
	MaxPreviewBytes int            `yaml:"max_preview_bytes" mapstructure:"max_preview_bytes"`
	FullBody        bool           `yaml:"full_body" mapstructure:"full_body"`
	Json            JSONViewConfig `yaml:"json" mapstructure:"json"`
	Form            FormViewConfig `yaml:"form" mapstructure:"form"`
	XML             XMLViewConfig  `yaml:"xml" mapstructure:"xml"`
	HTML            HTMLViewConfig `yaml:"html" mapstructure:"html"`
}

// JSONViewConfig JSON view options
type JSONViewConfig struct {
	Enable         bool `yaml:"enable" mapstructure:"enable"`
	Pretty         bool `yaml:"pretty" mapstructure:"pretty"`
	MaxIndentBytes int  `yaml:"max_indent_bytes" mapstructure:"max_indent_bytes"`
}

// FormViewConfig form view options
type FormViewConfig struct {
	Enable bool `yaml:"enable" mapstructure:"enable"`
}

// XMLViewConfig XML view options
type XMLViewConfig struct {
	Enable       bool `yaml:"enable" mapstructure:"enable"`
	Pretty       bool `yaml:"pretty" mapstructure:"pretty"`
	StripControl bool `yaml:"strip_control" mapstructure:"strip_control"`
}

// HTMLViewConfig HTML view options
type HTMLViewConfig struct {
	Enable       bool `yaml:"enable" mapstructure:"enable"`
	Pretty       bool `yaml:"pretty" mapstructure:"pretty"`
	StripControl bool `yaml:"strip_control" mapstructure:"strip_control"`
}

// HTTPConfig outbound request configuration. Durations are in seconds.
type HTTPConfig struct {
	Timeout               int  `yaml:"timeout" mapstructure:"timeout"`
	Retries               int  `yaml:"retries" mapstructure:"retries"`
	MaxConcurrent         int  `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MaxIdleConns          int  `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost   int  `yaml:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout       int  `yaml:"idle_conn_timeout" mapstructure:"idle_conn_timeout"`
	TLSHandshakeTimeout   int  `yaml:"tls_handshake_timeout" mapstructure:"tls_handshake_timeout"`
	TLSInsecureSkipVerify bool `yaml:"tls_insecure_skip_verify" mapstructure:"tls_insecure_skip_verify"`
	MaxRedirects          int  `yaml:"max_redirects" mapstructure:"max_redirects"`
}

// EnvConfig placeholder variable sources
type EnvConfig struct {
	File string            `yaml:"file" mapstructure:"file"`
	Vars map[string]string `yaml:"vars" mapstructure:"vars"`
}

// SheetConfig tabular output limits
type SheetConfig struct {
	MaxCellLength       int    `yaml:"max_cell_length" mapstructure:"max_cell_length"`
	TruncationMarker    string `yaml:"truncation_marker" mapstructure:"truncation_marker"`
	Overflow            string `yaml:"overflow" mapstructure:"overflow"`
	ConcatMaxCellLength int    `yaml:"concat_max_cell_length" mapstructure:"concat_max_cell_length"`
	Format              string `yaml:"format" mapstructure:"format"`
}

// CollectionConfig collection walking and column layout options
type CollectionConfig struct {
	FeatureStripPatterns []string             `yaml:"feature_strip_patterns" mapstructure:"feature_strip_patterns"`
	FilterDomains        []string             `yaml:"filter_domains" mapstructure:"filter_domains"`
	CurlColumn           int                  `yaml:"curl_column" mapstructure:"curl_column"`
	CompareColumns       CompareColumnsConfig `yaml:"compare_columns" mapstructure:"compare_columns"`
}

// CompareColumnsConfig zero-based columns used by sheet comparison
type CompareColumnsConfig struct {
	Left   int `yaml:"left" mapstructure:"left"`
	Right  int `yaml:"right" mapstructure:"right"`
	Result int `yaml:"result" mapstructure:"result"`
}

// ResponsesConfig where executed response bodies are written
type ResponsesConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StorageConfig results store parameters
type StorageConfig struct {
	Enable     bool          `yaml:"enable" mapstructure:"enable"`
	Driver     string        `yaml:"driver" mapstructure:"driver"`
	Path       string        `yaml:"path" mapstructure:"path"`
	MaxRecords int           `yaml:"max_records" mapstructure:"max_records"`
	Retention  time.Duration `yaml:"retention" mapstructure:"retention"`
}

// LoadConfig load configuration
// If v is nil, a new viper instance will be created
func LoadConfig(configPath string, v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)

	v.SetEnvPrefix("QAHELPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.qahelper")
		v.AddConfigPath("/etc/qahelper")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		log.Printf("Config file loaded: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Unmarshal leaves zero values where only defaults or bound flags exist.
	applyDefaults(&config, v)

	return &config, nil
}

// applyDefaults fills zero-value fields from viper, which resolves flags,
// config file values and defaults in that order.
func applyDefaults(cfg *Config, v *viper.Viper) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = v.GetString("log.level")
	}
	cfg.Log.FileLogging.Enable = v.GetBool("log.file_logging.enable")
	cfg.Log.FileLogging.Compress = v.GetBool("log.file_logging.compress")
	if cfg.Log.FileLogging.Path == "" {
		cfg.Log.FileLogging.Path = v.GetString("log.file_logging.path")
	}
	if cfg.Log.FileLogging.MaxSizeMB == 0 {
		cfg.Log.FileLogging.MaxSizeMB = v.GetInt("log.file_logging.max_size_mb")
	}
	if cfg.Log.FileLogging.MaxBackups == 0 {
		cfg.Log.FileLogging.MaxBackups = v.GetInt("log.file_logging.max_backups")
	}
	if cfg.Log.FileLogging.MaxAgeDays == 0 {
		cfg.Log.FileLogging.MaxAgeDays = v.GetInt("log.file_logging.max_age_days")
	}

	if cfg.Output.Mode == "" {
		cfg.Output.Mode = v.GetString("output.mode")
	}
	cfg.Output.Silence = v.GetBool("output.silence")
	cfg.Output.BodyView.Enable = v.GetBool("output.body_view.enable")
	if cfg.Output.BodyView.MaxPreviewBytes == 0 {
		cfg.Output.BodyView.MaxPreviewBytes = v.GetInt("output.body_view.max_preview_bytes")
	}
	cfg.Output.BodyView.FullBody = v.GetBool("output.body_view.full_body")
	cfg.Output.BodyView.Json.Enable = v.GetBool("output.body_view.json.enable")
	cfg.Output.BodyView.Json.Pretty = v.GetBool("output.body_view.json.pretty")
	if cfg.Output.BodyView.Json.MaxIndentBytes == 0 {
		cfg.Output.BodyView.Json.MaxIndentBytes = v.GetInt("output.body_view.json.max_indent_bytes")
	}
	cfg.Output.BodyView.Form.Enable = v.GetBool("output.body_view.form.enable")
	cfg.Output.BodyView.XML.Enable = v.GetBool("output.body_view.xml.enable")
	cfg.Output.BodyView.XML.Pretty = v.GetBool("output.body_view.xml.pretty")
	cfg.Output.BodyView.XML.StripControl = v.GetBool("output.body_view.xml.strip_control")
	cfg.Output.BodyView.HTML.Enable = v.GetBool("output.body_view.html.enable")
	cfg.Output.BodyView.HTML.Pretty = v.GetBool("output.body_view.html.pretty")
	cfg.Output.BodyView.HTML.StripControl = v.GetBool("output.body_view.html.strip_control")

	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = v.GetInt("http.timeout")
	}
	if cfg.HTTP.Retries == 0 {
		cfg.HTTP.Retries = v.GetInt("http.retries")
	}
	if cfg.HTTP.MaxConcurrent == 0 {
		cfg.HTTP.MaxConcurrent = v.GetInt("http.max_concurrent")
	}
	if cfg.HTTP.MaxIdleConns == 0 {
		cfg.HTTP.MaxIdleConns = v.GetInt("http.max_idle_conns")
	}
	if cfg.HTTP.MaxIdleConnsPerHost == 0 {
		cfg.HTTP.MaxIdleConnsPerHost = v.GetInt("http.max_idle_conns_per_host")
	}
	if cfg.HTTP.IdleConnTimeout == 0 {
		cfg.HTTP.IdleConnTimeout = v.GetInt("http.idle_conn_timeout")
	}
	if cfg.HTTP.TLSHandshakeTimeout == 0 {
		cfg.HTTP.TLSHandshakeTimeout = v.GetInt("http.tls_handshake_timeout")
	}
	if cfg.HTTP.MaxRedirects == 0 {
		cfg.HTTP.MaxRedirects = v.GetInt("http.max_redirects")
	}
	cfg.HTTP.TLSInsecureSkipVerify = v.GetBool("http.tls_insecure_skip_verify")

	if cfg.Env.File == "" {
		cfg.Env.File = v.GetString("env.file")
	}
	if cfg.Env.Vars == nil {
		cfg.Env.Vars = v.GetStringMapString("env.vars")
	}

	if cfg.Sheet.MaxCellLength == 0 {
		cfg.Sheet.MaxCellLength = v.GetInt("sheet.max_cell_length")
	}
	if cfg.Sheet.TruncationMarker == "" {
		cfg.Sheet.TruncationMarker = v.GetString("sheet.truncation_marker")
	}
	if cfg.Sheet.Overflow == "" {
		cfg.Sheet.Overflow = v.GetString("sheet.overflow")
	}
	if cfg.Sheet.ConcatMaxCellLength == 0 {
		cfg.Sheet.ConcatMaxCellLength = v.GetInt("sheet.concat_max_cell_length")
	}
	if cfg.Sheet.Format == "" {
		cfg.Sheet.Format = v.GetString("sheet.format")
	}

	if len(cfg.Collection.FeatureStripPatterns) == 0 {
		cfg.Collection.FeatureStripPatterns = v.GetStringSlice("collection.feature_strip_patterns")
	}
	if len(cfg.Collection.FilterDomains) == 0 {
		cfg.Collection.FilterDomains = v.GetStringSlice("collection.filter_domains")
	}
	// Column 0 is a real column, so these are always taken from viper.
	cfg.Collection.CurlColumn = v.GetInt("collection.curl_column")
	cfg.Collection.CompareColumns.Left = v.GetInt("collection.compare_columns.left")
	cfg.Collection.CompareColumns.Right = v.GetInt("collection.compare_columns.right")
	cfg.Collection.CompareColumns.Result = v.GetInt("collection.compare_columns.result")

	if cfg.Responses.Dir == "" {
		cfg.Responses.Dir = v.GetString("responses.dir")
	}

	cfg.Storage.Enable = v.GetBool("storage.enable")
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = v.GetString("storage.driver")
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = v.GetString("storage.path")
	}
	if cfg.Storage.MaxRecords == 0 {
		cfg.Storage.MaxRecords = v.GetInt("storage.max_records")
	}
	if cfg.Storage.Retention == 0 {
		cfg.Storage.Retention = v.GetDuration("storage.retention")
	}
}

// setDefaults set default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_logging.enable", false)
	v.SetDefault("log.file_logging.path", "./qahelper.log")
	v.SetDefault("log.file_logging.max_size_mb", 10)
	v.SetDefault("log.file_logging.max_backups", 5)
	v.SetDefault("log.file_logging.max_age_days", 30)
	v.SetDefault("log.file_logging.compress", true)

	v.SetDefault("output.mode", "console")
	v.SetDefault("output.silence", false)
	v.SetDefault("output.body_view.enable", true)
	v.SetDefault("output.body_view.max_preview_bytes", int(32*1024))
	v.SetDefault("output.body_view.full_body", false)
	v.SetDefault("output.body_view.json.enable", true)
	v.SetDefault("output.body_view.json.pretty", true)
	v.SetDefault("output.body_view.json.max_indent_bytes", int(128*1024))
	v.SetDefault("output.body_view.form.enable", true)
	v.SetDefault("output.body_view.xml.enable", true)
	v.SetDefault("output.body_view.xml.pretty", true)
	v.SetDefault("output.body_view.xml.strip_control", true)
	v.SetDefault("output.body_view.html.enable", true)
	v.SetDefault("output.body_view.html.pretty", false)
	v.SetDefault("output.body_view.html.strip_control", true)

	v.SetDefault("http.timeout", 30)
	v.SetDefault("http.retries", 0)
	v.SetDefault("http.max_concurrent", 1)
	v.SetDefault("http.max_idle_conns", 100)
	v.SetDefault("http.max_idle_conns_per_host", 10)
	v.SetDefault("http.idle_conn_timeout", 90)
	v.SetDefault("http.tls_handshake_timeout", 10)
	v.SetDefault("http.tls_insecure_skip_verify", false)
	v.SetDefault("http.max_redirects", 10)

	v.SetDefault("env.file", "")
	v.SetDefault("env.vars", map[string]string{})

	v.SetDefault("sheet.max_cell_length", 32000)
	v.SetDefault("sheet.truncation_marker", "... [ truncated ]")
	v.SetDefault("sheet.overflow", "split")
	v.SetDefault("sheet.concat_max_cell_length", 32767)
	v.SetDefault("sheet.format", "csv")

	v.SetDefault("collection.feature_strip_patterns", []string{"{{base_url}}", "{{baseUrl}}"})
	v.SetDefault("collection.filter_domains", []string{"{{baseUrl}}", "{{base_url}}"})
	v.SetDefault("collection.curl_column", 3)
	v.SetDefault("collection.compare_columns.left", 6)
	v.SetDefault("collection.compare_columns.right", 7)
	v.SetDefault("collection.compare_columns.result", 10)

	v.SetDefault("responses.dir", "./output")

	v.SetDefault("storage.enable", false)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "./data/qahelper.db")
	v.SetDefault("storage.max_records", 200)
	v.SetDefault("storage.retention", "0s")
}

// Validate checks configuration values and fills derived defaults.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if c.Log.FileLogging.Enable {
		if c.Log.FileLogging.Path == "" {
			return fmt.Errorf("log file path cannot be empty when file logging is enabled")
		}
		if c.Log.FileLogging.MaxSizeMB < 1 {
			return fmt.Errorf("log file max size must be at least 1MB")
		}
		if c.Log.FileLogging.MaxBackups < 0 {
			return fmt.Errorf("log file max backups cannot be negative")
		}
		if c.Log.FileLogging.MaxAgeDays < 0 {
			return fmt.Errorf("log file max age cannot be negative")
		}
	}

	switch strings.ToLower(c.Output.Mode) {
	case "", "console", "json":
		if c.Output.Mode == "" {
			c.Output.Mode = "console"
		}
	default:
		return fmt.Errorf("output mode must be 'console' or 'json'")
	}
	if c.Output.BodyView.MaxPreviewBytes < 0 {
		return fmt.Errorf("output.body_view.max_preview_bytes cannot be negative")
	}
	if c.Output.BodyView.Json.MaxIndentBytes < 0 {
		return fmt.Errorf("output.body_view.json.max_indent_bytes cannot be negative")
	}

	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http timeout cannot be negative")
	}
	if c.HTTP.Retries < 0 {
		return fmt.Errorf("http retries cannot be negative")
	}
	if c.HTTP.MaxConcurrent < 1 {
		return fmt.Errorf("http max concurrent must be at least 1")
	}
	if c.HTTP.MaxRedirects < 0 {
		return fmt.Errorf("http max redirects cannot be negative")
	}

	if c.Sheet.MaxCellLength < 1 {
		return fmt.Errorf("sheet max cell length must be at least 1")
	}
	switch strings.ToLower(c.Sheet.Overflow) {
	case "", "split", "truncate":
		c.Sheet.Overflow = strings.ToLower(c.Sheet.Overflow)
		if c.Sheet.Overflow == "" {
			c.Sheet.Overflow = "split"
		}
	default:
		return fmt.Errorf("sheet overflow must be 'split' or 'truncate'")
	}
	if c.Sheet.ConcatMaxCellLength < 4 {
		return fmt.Errorf("sheet concat max cell length must be at least 4")
	}
	switch strings.ToLower(c.Sheet.Format) {
	case "", "csv", "json", "yaml":
		c.Sheet.Format = strings.ToLower(c.Sheet.Format)
		if c.Sheet.Format == "" {
			c.Sheet.Format = "csv"
		}
	default:
		return fmt.Errorf("sheet format must be csv, json or yaml")
	}

	if c.Collection.CurlColumn < 0 {
		return fmt.Errorf("collection curl column cannot be negative")
	}
	cols := c.Collection.CompareColumns
	if cols.Left < 0 || cols.Right < 0 || cols.Result < 0 {
		return fmt.Errorf("collection compare columns cannot be negative")
	}
	if cols.Left == cols.Right {
		return fmt.Errorf("collection compare columns left and right must differ")
	}
	c.Collection.FilterDomains = normalizeList(c.Collection.FilterDomains)
	c.Collection.FeatureStripPatterns = normalizeList(c.Collection.FeatureStripPatterns)

	if strings.TrimSpace(c.Responses.Dir) == "" {
		return fmt.Errorf("responses dir cannot be empty")
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "sqlite", "sqlite3":
		if strings.TrimSpace(c.Storage.Driver) == "" {
			c.Storage.Driver = "sqlite"
		}
	default:
		return fmt.Errorf("storage driver must be sqlite")
	}
	if c.Storage.Enable && strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage path cannot be empty")
	}
	if c.Storage.MaxRecords < 0 {
		return fmt.Errorf("storage max_records cannot be negative")
	}
	if c.Storage.Retention < 0 {
		return fmt.Errorf("storage retention cannot be negative")
	}

	return nil
}

// RequestTimeout returns the configured HTTP timeout.
func (c HTTPConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func normalizeList(list []string) []string {
	if len(list) == 0 {
		return list
	}
	set := make(map[string]struct{}, len(list))
	result := make([]string, 0, len(list))
	for _, item := range list {
		norm := strings.TrimSpace(item)
		if norm == "" {
			continue
		}
		if _, exists := set[norm]; exists {
			continue
		}
		set[norm] = struct{}{}
		result = append(result, norm)
	}
	return result
}
