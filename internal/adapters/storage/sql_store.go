package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/stoik/phish-verdict/internal/domain"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// SQLStore implements ports.Storage on PostgreSQL or SQLite
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore opens the database, checks the connection and creates the schema
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite serializes writers anyway; one connection also keeps :memory: databases shared
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// InitSchema creates the history table if it doesn't exist
// In production, use proper migration tools
func (s *SQLStore) InitSchema() error {
	schema := `
	-- One row per scan. result holds the full verdict as JSON; score and label
	-- are copied out so history listings never have to decode it.
	CREATE TABLE IF NOT EXISTS scan_history (
		id UUID PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		scan_type VARCHAR(10) NOT NULL CHECK (scan_type IN ('url', 'email', 'qr')),
		target TEXT NOT NULL,
		result JSONB NOT NULL,
		risk_score INTEGER NOT NULL,
		risk_label VARCHAR(16) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- Backs ListScans: a user's history, most recent first
	CREATE INDEX IF NOT EXISTS idx_scan_history_user ON scan_history(user_id, created_at DESC);
	`
	if s.driver == DriverSQLite {
		schema = `
		CREATE TABLE IF NOT EXISTS scan_history (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			scan_type TEXT NOT NULL CHECK (scan_type IN ('url', 'email', 'qr')),
			target TEXT NOT NULL,
			result TEXT NOT NULL,
			risk_score INTEGER NOT NULL,
			risk_label TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_scan_history_user ON scan_history(user_id, created_at DESC);
		`
	}

	_, err := s.db.Exec(schema)
	return err
}

// SaveScan inserts a history record
func (s *SQLStore) SaveScan(ctx context.Context, rec *domain.ScanRecord) error {
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal scan result: %w", err)
	}

	query := s.rebind(`
		INSERT INTO scan_history (id, user_id, scan_type, target, result, risk_score, risk_label, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = s.db.ExecContext(ctx, query,
		rec.ID.String(), rec.UserID, rec.ScanType, rec.Target, string(resultJSON),
		rec.RiskScore, string(rec.RiskLabel), rec.CreatedAt.UTC(),
	)
	return err
}

// ListScans returns a user's most recent scans, newest first
func (s *SQLStore) ListScans(ctx context.Context, userID string, limit int) ([]domain.ScanRecord, error) {
	query := s.rebind(`
		SELECT id, user_id, scan_type, target, result, risk_score, risk_label, created_at
		FROM scan_history
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`)
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.ScanRecord, 0)
	for rows.Next() {
		var (
			rec        domain.ScanRecord
			resultJSON []byte
			label      string
		)
		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.ScanType, &rec.Target, &resultJSON,
			&rec.RiskScore, &label, &rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		rec.RiskLabel = domain.Label(label)

		if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result of scan %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// rebind turns ? placeholders into $N for PostgreSQL
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
