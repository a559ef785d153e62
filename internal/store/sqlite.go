package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ruvxn/revtriage/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors from parallel workers.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const trackedErrorColumns = `id, review_id, reviewer_name, date, review_text, error_summary, error_types, criticality, rationale, error_hash, created_at, updated_at`

func (s *SQLiteStore) FindByHash(ctx context.Context, hash string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM tracked_errors WHERE error_hash = ?", hash).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find by hash: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) CreateError(ctx context.Context, e *models.TrackedError) error {
	if e.ID == "" {
		e.ID = newULID()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	types, err := json.Marshal(e.ErrorTypes)
	if err != nil {
		return fmt.Errorf("marshal error types: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tracked_errors (`+trackedErrorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ReviewID, e.ReviewerName, e.Date, e.ReviewText, e.ErrorSummary,
		string(types), string(e.Criticality), e.Rationale, e.ErrorHash, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create tracked error: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateError(ctx context.Context, e *models.TrackedError) error {
	e.UpdatedAt = time.Now().UTC()

	types, err := json.Marshal(e.ErrorTypes)
	if err != nil {
		return fmt.Errorf("marshal error types: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE tracked_errors SET review_id=?, reviewer_name=?, date=?, review_text=?, error_summary=?, error_types=?, criticality=?, rationale=?, error_hash=?, updated_at=?
		WHERE id=?`,
		e.ReviewID, e.ReviewerName, e.Date, e.ReviewText, e.ErrorSummary,
		string(types), string(e.Criticality), e.Rationale, e.ErrorHash, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update tracked error: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("tracked error not found: %s", e.ID)
	}
	return nil
}

func (s *SQLiteStore) GetErrorByHash(ctx context.Context, hash string) (*models.TrackedError, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+trackedErrorColumns+` FROM tracked_errors WHERE error_hash = ?`, hash)

	e, err := scanTrackedError(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tracked error not found: %s", hash)
	}
	if err != nil {
		return nil, fmt.Errorf("get tracked error: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) ListErrors(ctx context.Context, filter ErrorListFilter) ([]*models.TrackedError, error) {
	query := `SELECT ` + trackedErrorColumns + ` FROM tracked_errors`
	var conds []string
	var args []any

	if filter.ReviewID != "" {
		conds = append(conds, "review_id = ?")
		args = append(args, filter.ReviewID)
	}
	if filter.Criticality != "" {
		conds = append(conds, "criticality = ?")
		args = append(args, string(filter.Criticality))
	}
	if filter.Category != "" {
		// error_types is a JSON array of quoted tags.
		conds = append(conds, "error_types LIKE ?")
		args = append(args, `%"`+filter.Category+`"%`)
	}

	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tracked errors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.TrackedError
	for rows.Next() {
		e, err := scanTrackedError(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracked error: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT criticality, COUNT(*) FROM tracked_errors GROUP BY criticality")
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &Stats{ByCriticality: make(map[models.Criticality]int)}
	for rows.Next() {
		var crit string
		var count int
		if err := rows.Scan(&crit, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByCriticality[models.Criticality(crit)] = count
		stats.Total += count
	}
	return stats, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTrackedError(row scanner) (*models.TrackedError, error) {
	e := &models.TrackedError{}
	var types, crit string

	err := row.Scan(&e.ID, &e.ReviewID, &e.ReviewerName, &e.Date, &e.ReviewText,
		&e.ErrorSummary, &types, &crit, &e.Rationale, &e.ErrorHash, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(types), &e.ErrorTypes); err != nil {
		return nil, fmt.Errorf("unmarshal error types: %w", err)
	}
	e.Criticality = models.Criticality(crit)
	return e, nil
}
