package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shofin-islam/qahelper/internal/config"
	"github.com/shofin-islam/qahelper/internal/logger"
	"github.com/shofin-islam/qahelper/pkg/request"

	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName = "sqlite"
)

const executionColumns = `run_id, sheet, row_num, id, timestamp_ns, method, url,
    request_headers_json, request_body, status_code, status_text, headers_json,
    body, duration_ms, outcome, error`

type sqliteStore struct {
	db  *sql.DB
	cfg *config.StorageConfig
	log logger.Logger
}

func newSQLiteStore(cfg *config.StorageConfig, log logger.Logger) (Store, error) {
	path := cfg.Path
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("prepare sqlite directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", filepath.ToSlash(absPath))
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %s: %w", stmt, err)
		}
	}

	store := &sqliteStore{db: db, cfg: cfg, log: log}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *sqliteStore) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    name TEXT,
    source TEXT,
    created_ns INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_ns DESC);

CREATE TABLE IF NOT EXISTS executions (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    sheet TEXT NOT NULL,
    row_num INTEGER NOT NULL,
    timestamp_ns INTEGER NOT NULL,
    method TEXT,
    url TEXT,
    request_headers_json TEXT,
    request_body TEXT,
    status_code INTEGER,
    status_text TEXT,
    headers_json TEXT,
    body BLOB,
    duration_ms INTEGER,
    outcome TEXT NOT NULL,
    error TEXT,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_executions_run ON executions(run_id, sheet, row_num);
`
	_, err := s.db.Exec(schema)
	return err
}

func (s *sqliteStore) CreateRun(name, source string) (*Run, error) {
	ctx := context.Background()
	run := &Run{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, "INSERT INTO runs (id, name, source, created_ns) VALUES (?, ?, ?, ?)",
		run.ID, run.Name, run.Source, run.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	if err = s.prune(ctx, tx); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	s.log.Debug("Run created", "run_id", run.ID, "name", run.Name)
	return run, nil
}

// prune keeps at most MaxRecords runs and drops runs older than Retention,
// together with their executions.
func (s *sqliteStore) prune(ctx context.Context, tx *sql.Tx) error {
	if s.cfg.Retention > 0 {
		cutoff := time.Now().Add(-s.cfg.Retention).UTC().UnixNano()
		if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE created_ns < ?", cutoff); err != nil {
			return fmt.Errorf("prune by retention: %w", err)
		}
	}
	if s.cfg.MaxRecords > 0 {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM runs").Scan(&count); err != nil {
			return fmt.Errorf("count runs: %w", err)
		}
		if excess := count - s.cfg.MaxRecords; excess > 0 {
			if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id IN (SELECT id FROM runs ORDER BY created_ns ASC, rowid ASC LIMIT ?)", excess); err != nil {
				return fmt.Errorf("prune max records: %w", err)
			}
		}
	}
	// foreign_keys is per connection, so orphans are removed explicitly.
	if _, err := tx.ExecContext(ctx, "DELETE FROM executions WHERE run_id NOT IN (SELECT id FROM runs)"); err != nil {
		return fmt.Errorf("prune executions: %w", err)
	}
	return nil
}

func (s *sqliteStore) RecordExecution(runID, sheet string, row int, capture request.Capture) (*Execution, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("run id cannot be empty")
	}
	if strings.TrimSpace(capture.ID) == "" {
		capture.ID = fmt.Sprintf("EXE-%d", time.Now().UnixNano())
	}
	ts := capture.Timestamp.UTC()
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	capture.Timestamp = ts
	if capture.Outcome == "" {
		capture.Outcome = request.OutcomeOK
	}

	reqHeadersJSON, err := json.Marshal(capture.RequestHeaders)
	if err != nil {
		return nil, fmt.Errorf("marshal request headers: %w", err)
	}
	headers := capture.Headers
	if headers == nil {
		headers = http.Header{}
	}
	headersJSON, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("marshal headers: %w", err)
	}

	insertSQL := fmt.Sprintf(`INSERT INTO executions (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, executionColumns)
	_, err = s.db.ExecContext(context.Background(), insertSQL,
		runID,
		sheet,
		row,
		capture.ID,
		ts.UnixNano(),
		capture.Method,
		capture.URL,
		string(reqHeadersJSON),
		capture.RequestBody,
		capture.StatusCode,
		capture.StatusText,
		string(headersJSON),
		[]byte(capture.Body),
		capture.DurationMs,
		string(capture.Outcome),
		capture.Error,
	)
	if err != nil {
		return nil, fmt.Errorf("insert execution: %w", err)
	}

	return &Execution{RunID: runID, Sheet: sheet, Row: row, Capture: capture}, nil
}

func (s *sqliteStore) ListExecutions(opts ListOptions) ([]*Execution, int, error) {
	ctx := context.Background()
	where, args := buildFilters(opts)

	countQuery := fmt.Sprintf("SELECT COUNT(1) FROM executions %s", where)
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT " + executionColumns + " FROM executions ")
	queryBuilder.WriteString(where)
	queryBuilder.WriteString(" ORDER BY sheet ASC, row_num ASC, timestamp_ns ASC")

	listArgs := append([]interface{}{}, args...)
	if opts.Limit > 0 {
		offset := opts.Offset
		if offset < 0 {
			offset = 0
		}
		queryBuilder.WriteString(" LIMIT ? OFFSET ?")
		listArgs = append(listArgs, opts.Limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, queryBuilder.String(), listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*Execution
	for rows.Next() {
		record, err := scanExecution(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

const runQuery = `SELECT r.id, r.name, r.source, r.created_ns,
    (SELECT COUNT(1) FROM executions e WHERE e.run_id = r.id)
    FROM runs r`

func (s *sqliteStore) ListRuns(limit int) ([]*Run, error) {
	query := runQuery + " ORDER BY r.created_ns DESC, r.rowid DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

func (s *sqliteStore) GetRun(id string) (*Run, error) {
	row := s.db.QueryRowContext(context.Background(), runQuery+" WHERE r.id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *sqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(scanner rowScanner) (*Run, error) {
	var (
		id, name, source sql.NullString
		created          int64
		count            int
	)
	if err := scanner.Scan(&id, &name, &source, &created, &count); err != nil {
		return nil, err
	}
	return &Run{
		ID:         id.String,
		Name:       name.String,
		Source:     source.String,
		CreatedAt:  time.Unix(0, created).UTC(),
		Executions: count,
	}, nil
}

func scanExecution(scanner rowScanner) (*Execution, error) {
	var (
		runID          string
		sheet          string
		row            int
		id             string
		ts             int64
		method         sql.NullString
		url            sql.NullString
		reqHeadersJSON sql.NullString
		reqBody        sql.NullString
		statusCode     sql.NullInt64
		statusText     sql.NullString
		headersJSON    sql.NullString
		body           []byte
		durationMs     sql.NullInt64
		outcome        string
		errorMsg       sql.NullString
	)

	if err := scanner.Scan(
		&runID,
		&sheet,
		&row,
		&id,
		&ts,
		&method,
		&url,
		&reqHeadersJSON,
		&reqBody,
		&statusCode,
		&statusText,
		&headersJSON,
		&body,
		&durationMs,
		&outcome,
		&errorMsg,
	); err != nil {
		return nil, err
	}

	var reqHeaders []request.Header
	if reqHeadersJSON.Valid && reqHeadersJSON.String != "" {
		if err := json.Unmarshal([]byte(reqHeadersJSON.String), &reqHeaders); err != nil {
			reqHeaders = nil
		}
	}
	header := http.Header{}
	if headersJSON.Valid && headersJSON.String != "" {
		if err := json.Unmarshal([]byte(headersJSON.String), &header); err != nil {
			header = http.Header{}
		}
	}

	return &Execution{
		RunID: runID,
		Sheet: sheet,
		Row:   row,
		Capture: request.Capture{
			ID:             id,
			Timestamp:      time.Unix(0, ts).UTC(),
			Method:         method.String,
			URL:            url.String,
			RequestHeaders: reqHeaders,
			RequestBody:    reqBody.String,
			StatusCode:     int(statusCode.Int64),
			StatusText:     statusText.String,
			Headers:        header,
			Body:           string(body),
			DurationMs:     durationMs.Int64,
			Outcome:        request.Outcome(outcome),
			Error:          errorMsg.String,
		},
	}, nil
}

func buildFilters(opts ListOptions) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if runID := strings.TrimSpace(opts.RunID); runID != "" {
		clauses = append(clauses, "run_id = ?")
		args = append(args, runID)
	}
	if sheet := strings.TrimSpace(opts.Sheet); sheet != "" {
		clauses = append(clauses, "sheet = ?")
		args = append(args, sheet)
	}
	if opts.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(opts.Outcome))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}
