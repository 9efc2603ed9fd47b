package printer

import (
	"sync/atomic"

	"github.com/shofin-islam/qahelper/internal/config"
	"github.com/shofin-islam/qahelper/internal/logger"
	"github.com/shofin-islam/qahelper/pkg/jsondiff"
	"github.com/shofin-islam/qahelper/pkg/request"
)

// Printer renders command results on stdout.
type Printer interface {
	PrintCapture(label string, c request.Capture) error
	PrintDifferences(title string, diffs []jsondiff.Difference) error
	PrintSummary(title string, rows []SummaryRow) error
	PrintValue(kind string, v interface{}) error
}

// SummaryRow is one label/value line of a summary box.
type SummaryRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

var globalCaptureCounter uint64

func nextCaptureNumber() uint64 {
	return atomic.AddUint64(&globalCaptureCounter, 1)
}

// New creates the printer for the output mode.
func New(mode string, log logger.Logger, cfg *config.OutputConfig) Printer {
	if cfg == nil {
		cfg = &config.OutputConfig{}
	}
	switch mode {
	case "json":
		return NewJSONPrinter(log)
	default:
		p := NewConsolePrinter(log, &cfg.BodyView)
		p.silence = cfg.Silence
		return p
	}
}
