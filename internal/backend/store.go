package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/yukino-dev/bugsnap/internal/model"
)

// ReportStore provides SQLite-based storage for submitted bug reports.
//
// Design decision: We keep the full submitted payload as JSON next to a
// few indexed columns. The dev server never mutates reports, so the
// JSON column doubles as the source of truth and the columns exist for
// listing and lookup.
type ReportStore struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// OpenStore opens or creates the report database under dataDir.
// The directory is created if it does not exist.
func OpenStore(dataDir string) (*ReportStore, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "bugsnap.db")

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &ReportStore{db: db, dbPath: dbPath}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := store.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *ReportStore) Close() error {
	return s.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (s *ReportStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bug_reports (
		id TEXT PRIMARY KEY,
		project_id TEXT,
		title TEXT NOT NULL,
		environment TEXT,
		app_version TEXT,
		received_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		payload_json TEXT NOT NULL,
		summary_path TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_project ON bug_reports(project_id);
	CREATE INDEX IF NOT EXISTS idx_reports_received ON bug_reports(received_at);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// StoredReport is a persisted bug report row.
type StoredReport struct {
	ID          string
	ProjectID   string
	Title       string
	Environment string
	AppVersion  string
	ReceivedAt  time.Time
	Payload     model.ReportPayload
	SummaryPath string
}

// InsertReport persists a submitted report under the given id.
func (s *ReportStore) InsertReport(ctx context.Context, id string, payload *model.ReportPayload, summaryPath string) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize report payload: %w", err)
	}

	query := `
	INSERT INTO bug_reports (id, project_id, title, environment, app_version, payload_json, summary_path)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		id,
		payload.ProjectID,
		payload.Title,
		payload.Environment,
		payload.AppVersion,
		string(payloadJSON),
		summaryPath,
	); err != nil {
		return fmt.Errorf("failed to insert bug report: %w", err)
	}
	return nil
}

// GetReport retrieves a stored report by id.
// Returns nil without error when the report does not exist.
func (s *ReportStore) GetReport(ctx context.Context, id string) (*StoredReport, error) {
	query := `
	SELECT id, project_id, title, environment, app_version, received_at, payload_json, summary_path
	FROM bug_reports
	WHERE id = ?
	`

	var report StoredReport
	var payloadJSON, receivedAt string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&report.ID,
		&report.ProjectID,
		&report.Title,
		&report.Environment,
		&report.AppVersion,
		&receivedAt,
		&payloadJSON,
		&report.SummaryPath,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bug report: %w", err)
	}

	report.ReceivedAt = parseTimestamp(receivedAt)
	if err := json.Unmarshal([]byte(payloadJSON), &report.Payload); err != nil {
		return nil, fmt.Errorf("failed to parse stored payload: %w", err)
	}
	return &report, nil
}

// ListReports returns stored reports newest first, up to limit.
// A non-positive limit returns all reports.
func (s *ReportStore) ListReports(ctx context.Context, limit int) ([]StoredReport, error) {
	query := `
	SELECT id, project_id, title, environment, app_version, received_at, payload_json, summary_path
	FROM bug_reports
	ORDER BY received_at DESC, id
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bug reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reports []StoredReport
	for rows.Next() {
		var report StoredReport
		var payloadJSON, receivedAt string
		if err := rows.Scan(
			&report.ID,
			&report.ProjectID,
			&report.Title,
			&report.Environment,
			&report.AppVersion,
			&receivedAt,
			&payloadJSON,
			&report.SummaryPath,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bug report: %w", err)
		}
		report.ReceivedAt = parseTimestamp(receivedAt)
		if err := json.Unmarshal([]byte(payloadJSON), &report.Payload); err != nil {
			return nil, fmt.Errorf("failed to parse stored payload: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// timestampFormats lists the formats SQLite may return timestamps in,
// depending on configuration.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
