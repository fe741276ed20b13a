package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/ports"
)

// Dialect names a supported SQL backend; it doubles as the database/sql driver name.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const (
	summariesTable   = "summaries"
	defaultChunkSize = 200
)

// ErrInvalidRecord is returned when a batch contains a record with an empty
// title or summary. Nothing from such a batch is written.
var ErrInvalidRecord = errors.New("invalid summary record")

var schemas = map[Dialect]string{
	DialectSQLite: `CREATE TABLE IF NOT EXISTS summaries (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		title      TEXT NOT NULL CHECK (title <> ''),
		summary    TEXT NOT NULL CHECK (summary <> ''),
		created_at TIMESTAMP NOT NULL
	)`,
	DialectPostgres: `CREATE TABLE IF NOT EXISTS summaries (
		id         BIGSERIAL PRIMARY KEY,
		title      TEXT NOT NULL CHECK (title <> ''),
		summary    TEXT NOT NULL CHECK (summary <> ''),
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

// SQLStore persists summaries in a single append-only table. Every
// operation checks a connection out of the pool and returns it before
// exiting, so the store holds no connection between calls.
type SQLStore struct {
	db        *sql.DB
	dialect   Dialect
	builder   sq.StatementBuilderType
	chunkSize int
}

var _ ports.SummaryStore = (*SQLStore)(nil)

// Open connects to the database identified by driver and dsn.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	dialect := Dialect(driver)
	if _, ok := schemas[dialect]; !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if dialect == DialectSQLite {
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, err
		}
		dsn = withSQLitePragmas(dsn)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	return NewSQLStore(db, dialect), nil
}

// NewSQLStore wires an existing sql.DB.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	var format sq.PlaceholderFormat = sq.Question
	if dialect == DialectPostgres {
		format = sq.Dollar
	}
	return &SQLStore{
		db:        db,
		dialect:   dialect,
		builder:   sq.StatementBuilder.PlaceholderFormat(format),
		chunkSize: defaultChunkSize,
	}
}

// Close releases the underlying pool.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureSchema creates the summaries table if it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	ddl, ok := schemas[s.dialect]
	if !ok {
		return fmt.Errorf("unsupported dialect %q", s.dialect)
	}

	return s.withConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create summaries table: %w", err)
		}
		return nil
	})
}

// Store appends records in one transaction. An empty batch is a no-op.
func (s *SQLStore) Store(ctx context.Context, records []domain.Summary) error {
	if len(records) == 0 {
		return nil
	}

	for i, record := range records {
		if !record.Valid() {
			return fmt.Errorf("%w: record %d has an empty title or summary", ErrInvalidRecord, i)
		}
	}

	return s.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin batch: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		createdAt := time.Now().UTC()
		for start := 0; start < len(records); start += s.chunkSize {
			end := min(start+s.chunkSize, len(records))

			insert := s.builder.Insert(summariesTable).Columns("title", "summary", "created_at")
			for _, record := range records[start:end] {
				insert = insert.Values(record.Title, record.Summary, createdAt)
			}

			query, args, err := insert.ToSql()
			if err != nil {
				return fmt.Errorf("build insert: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert summaries: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		return nil
	})
}

// GetAll returns every stored record in insertion order.
func (s *SQLStore) GetAll(ctx context.Context) ([]domain.SummaryRecord, error) {
	query, args, err := s.builder.
		Select("id", "title", "summary", "created_at").
		From(summariesTable).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	records := []domain.SummaryRecord{}
	err = s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query summaries: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				record    domain.SummaryRecord
				createdAt timestamp
			)
			if err := rows.Scan(&record.ID, &record.Title, &record.Summary, &createdAt); err != nil {
				return fmt.Errorf("scan summary: %w", err)
			}
			record.CreatedAt = createdAt.Time
			records = append(records, record)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows iteration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Count returns the number of stored records.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	query, args, err := s.builder.Select("COUNT(*)").From(summariesTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int
	err = s.withConn(ctx, func(conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return fmt.Errorf("count summaries: %w", err)
		}
		return nil
	})
	return n, err
}

func (s *SQLStore) withConn(ctx context.Context, fn func(*sql.Conn) error) error {
	if s.db == nil {
		return fmt.Errorf("summary store is not configured")
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

func ensureSQLiteDir(dsn string) error {
	path := dsn
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimPrefix(path, "file:")
	if path == "" || path == ":memory:" {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	return nil
}

// withSQLitePragmas makes concurrent readers wait for the writer instead of
// failing with SQLITE_BUSY.
func withSQLitePragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}
