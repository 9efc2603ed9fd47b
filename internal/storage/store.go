// Package storage persists batch runs and the executions they produced so
// that two runs can be compared later.
package storage

import (
	"errors"
	"time"

	"github.com/shofin-islam/qahelper/internal/config"
	"github.com/shofin-islam/qahelper/internal/logger"
	"github.com/shofin-islam/qahelper/pkg/request"
)

var (
	// ErrUnsupportedDriver indicates the configured driver is not available.
	ErrUnsupportedDriver = errors.New("unsupported storage driver")
	// ErrRunNotFound is returned when a run id is unknown.
	ErrRunNotFound = errors.New("run not found")
)

// Run is one batch invocation.
type Run struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
	Executions int       `json:"executions"`
}

// Execution is a capture recorded within a run, keyed by sheet and row.
type Execution struct {
	RunID string `json:"run_id"`
	Sheet string `json:"sheet"`
	Row   int    `json:"row"`
	request.Capture
}

// ListOptions controls filtering and pagination when fetching executions.
type ListOptions struct {
	RunID   string
	Sheet   string
	Outcome request.Outcome
	Limit   int
	Offset  int
}

// Store defines the persistence contract for runs.
type Store interface {
	CreateRun(name, source string) (*Run, error)
	RecordExecution(runID, sheet string, row int, capture request.Capture) (*Execution, error)
	ListExecutions(ListOptions) ([]*Execution, int, error)
	ListRuns(limit int) ([]*Run, error)
	GetRun(id string) (*Run, error)

	Close() error
}

// New instantiates a Store based on configuration.
func New(cfg *config.StorageConfig, log logger.Logger) (Store, error) {
	if cfg == nil {
		return nil, errors.New("storage config is nil")
	}
	switch driver := cfg.Driver; driver {
	case "", "sqlite", "sqlite3":
		return newSQLiteStore(cfg, log)
	default:
		return nil, ErrUnsupportedDriver
	}
}
