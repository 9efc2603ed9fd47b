package printer

import (
	"encoding/json"
	"io"
	"os"

	"github.com/shofin-islam/qahelper/internal/logger"
	"github.com/shofin-islam/qahelper/pkg/jsondiff"
	"github.com/shofin-islam/qahelper/pkg/request"
)

// JSONPrinter writes one JSON document per line.
type JSONPrinter struct {
	encoder *json.Encoder
	logger  logger.Logger
	out     io.Writer
}

// NewJSONPrinter creates a JSON lines printer on stdout.
func NewJSONPrinter(log logger.Logger) *JSONPrinter {
	p := &JSONPrinter{logger: log}
	p.SetOutput(os.Stdout)
	return p
}

// SetOutput replaces the output target, mainly for tests.
func (p *JSONPrinter) SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	p.out = w
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	p.encoder = encoder
}

type captureEnvelope struct {
	Type    string          `json:"type"`
	ID      uint64          `json:"id"`
	Label   string          `json:"label,omitempty"`
	Capture request.Capture `json:"capture"`
}

type comparisonEnvelope struct {
	Type        string                `json:"type"`
	Title       string                `json:"title,omitempty"`
	Identical   bool                  `json:"identical"`
	Summary     string                `json:"summary"`
	Differences []jsondiff.Difference `json:"differences"`
}

type summaryEnvelope struct {
	Type  string       `json:"type"`
	Title string       `json:"title"`
	Rows  []SummaryRow `json:"rows"`
}

type valueEnvelope struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// PrintCapture writes a capture envelope.
func (p *JSONPrinter) PrintCapture(label string, c request.Capture) error {
	return p.encode(captureEnvelope{
		Type:    "capture",
		ID:      nextCaptureNumber(),
		Label:   label,
		Capture: c,
	})
}

// PrintDifferences writes a comparison envelope.
func (p *JSONPrinter) PrintDifferences(title string, diffs []jsondiff.Difference) error {
	if diffs == nil {
		diffs = []jsondiff.Difference{}
	}
	return p.encode(comparisonEnvelope{
		Type:        "comparison",
		Title:       title,
		Identical:   len(diffs) == 0,
		Summary:     jsondiff.Summarize(diffs),
		Differences: diffs,
	})
}

// PrintSummary writes a summary envelope.
func (p *JSONPrinter) PrintSummary(title string, rows []SummaryRow) error {
	if rows == nil {
		rows = []SummaryRow{}
	}
	return p.encode(summaryEnvelope{Type: "summary", Title: title, Rows: rows})
}

// PrintValue writes v under the given kind.
func (p *JSONPrinter) PrintValue(kind string, v interface{}) error {
	if kind == "" {
		kind = "value"
	}
	return p.encode(valueEnvelope{Type: kind, Value: v})
}

func (p *JSONPrinter) encode(v interface{}) error {
	if err := p.encoder.Encode(v); err != nil {
		if p.logger != nil {
			p.logger.Error("Failed to encode JSON output", "error", err)
		}
		return err
	}
	return nil
}
