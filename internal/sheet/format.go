package sheet

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported table formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnsupportedFormat is returned for unknown table formats.
var ErrUnsupportedFormat = errors.New("unsupported table format")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encode serializes a table into the desired format.
func Encode(t *Table, format string) ([]byte, error) {
	switch NormalizeFormat(format) {
	case FormatJSON:
		return json.MarshalIndent(t, "", "  ")
	case FormatYAML:
		return yaml.Marshal(t)
	case FormatCSV:
		return encodeCSV(t)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func encodeCSV(t *Table) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := WriteCSV(buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes the header (when present) followed by every row.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if len(t.Header) > 0 {
		if err := writer.Write(t.Header); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV reads a table whose first record is the header. Records may have
// differing lengths.
func ReadCSV(r io.Reader, name string) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	t := NewTable(name)
	if len(records) == 0 {
		return t, nil
	}
	t.Header = records[0]
	t.Rows = append(t.Rows, records[1:]...)
	return t, nil
}

// ReadFile reads a CSV file. The table is named after the file without its
// extension.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sheet: %w", err)
	}
	defer f.Close()

	base := filepath.Base(path)
	return ReadCSV(f, strings.TrimSuffix(base, filepath.Ext(base)))
}

// WriteFile encodes the table into path. An empty format is derived from the
// file extension.
func WriteFile(path string, t *Table, format string) error {
	if format == "" {
		format = FormatFromPath(path)
	}
	data, err := Encode(t, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}
	return nil
}

// NormalizeFormat lowercases a format name and maps "yml" to yaml.
func NormalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "yml" {
		return FormatYAML
	}
	return f
}

// FormatFromPath guesses the format from the file extension, defaulting to CSV.
func FormatFromPath(path string) string {
	switch f := NormalizeFormat(strings.TrimPrefix(filepath.Ext(path), ".")); f {
	case FormatJSON, FormatYAML:
		return f
	default:
		return FormatCSV
	}
}

// AllowedFormats normalizes configured formats, dropping unknown ones.
func AllowedFormats(formats []string) []string {
	set := make(map[string]struct{})
	for _, f := range formats {
		f = NormalizeFormat(f)
		switch f {
		case FormatCSV, FormatJSON, FormatYAML:
			set[f] = struct{}{}
		}
	}

	result := make([]string, 0, len(set))
	for f := range set {
		result = append(result, f)
	}
	sort.Strings(result)
	return result
}
