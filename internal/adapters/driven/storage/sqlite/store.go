package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/pocfinder/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.QueryLogStore = (*Store)(nil)

// dbFile is the database file name inside the data directory.
const dbFile = "analytics.db"

// Store is the SQLite query log.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.pocfinder/data/analytics.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".pocfinder", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// WAL lets `stats` read while a chat session writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_query_log.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Record appends one entry. Missing ids and timestamps are filled in.
func (s *Store) Record(ctx context.Context, entry domain.QueryLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	if entry.Mode == "" {
		entry.Mode = domain.ModePlatform
	}

	keywords, err := marshalList(entry.Keywords)
	if err != nil {
		return fmt.Errorf("marshalling keywords: %w", err)
	}
	platformIDs, err := marshalList(entry.PlatformIDs)
	if err != nil {
		return fmt.Errorf("marshalling platform ids: %w", err)
	}
	eventIDs, err := marshalList(entry.EventIDs)
	if err != nil {
		return fmt.Errorf("marshalling event ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO query_log (
			id, session_id, created_at, mode, query_length, keywords,
			platform_ids, event_ids, response_length, provider, degraded, error_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.SessionID,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		string(entry.Mode),
		entry.QueryLength,
		keywords,
		platformIDs,
		eventIDs,
		entry.ResponseLength,
		entry.Provider,
		boolToInt(entry.Degraded),
		entry.ErrorType,
	)
	if err != nil {
		return fmt.Errorf("inserting query log entry: %w", err)
	}
	return nil
}

// Stats summarises the log. Keyword and platform lists are ordered by
// count desc, then value asc, and capped at limit.
func (s *Store) Stats(ctx context.Context, limit int) (domain.QueryStats, error) {
	stats := domain.QueryStats{ByMode: make(map[domain.Mode]int)}

	var avg sql.NullFloat64
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN error_type != '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(degraded), 0),
			AVG(query_length)
		FROM query_log
	`)
	if err := row.Scan(&stats.TotalQueries, &stats.Errors, &stats.Degraded, &avg); err != nil {
		return stats, fmt.Errorf("reading totals: %w", err)
	}
	stats.AvgQueryLength = avg.Float64

	rows, err := s.db.QueryContext(ctx, "SELECT mode, COUNT(*) FROM query_log GROUP BY mode")
	if err != nil {
		return stats, fmt.Errorf("reading modes: %w", err)
	}
	for rows.Next() {
		var mode string
		var n int
		if err := rows.Scan(&mode, &n); err != nil {
			rows.Close()
			return stats, fmt.Errorf("scanning mode: %w", err)
		}
		stats.ByMode[domain.Mode(mode)] = n
	}
	if err := rows.Close(); err != nil {
		return stats, err
	}

	if limit <= 0 {
		return stats, nil
	}
	if stats.TopKeywords, err = s.topValues(ctx, "keywords", limit); err != nil {
		return stats, err
	}
	if stats.TopPlatforms, err = s.topValues(ctx, "platform_ids", limit); err != nil {
		return stats, err
	}
	return stats, nil
}

// topValues counts the elements of a JSON array column across all rows.
func (s *Store) topValues(ctx context.Context, column string, limit int) ([]domain.KeywordCount, error) {
	// column is one of a fixed set of names, never user input.
	query := fmt.Sprintf(`
		SELECT j.value, COUNT(*) AS n
		FROM query_log, json_each(query_log.%s) AS j
		GROUP BY j.value
		ORDER BY n DESC, j.value ASC
		LIMIT ?
	`, column)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("counting %s: %w", column, err)
	}
	defer rows.Close()

	var out []domain.KeywordCount
	for rows.Next() {
		var kc domain.KeywordCount
		if err := rows.Scan(&kc.Value, &kc.Count); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", column, err)
		}
		out = append(out, kc)
	}
	return out, rows.Err()
}

func marshalList(values []string) (string, error) {
	if len(values) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
