package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLiteSource reads tables from an on-disk SQLite database file.
type SQLiteSource struct {
	path string
}

func NewSQLiteSource(path string) *SQLiteSource {
	return &SQLiteSource{path: path}
}

// LoadTable reads every row of table. The file is opened read-only and closed
// before returning.
func (s *SQLiteSource) LoadTable(ctx context.Context, table string) (*domain.RowSet, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("opening knowledge base file: %w", err)
	}
	dsn := "file:" + (&url.URL{Path: s.path}).EscapedPath() + "?mode=ro"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening knowledge base file: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table)+" ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("reading table %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading table %s: %w", table, err)
	}
	set := &domain.RowSet{Table: table, Columns: cols}
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("reading table %s: %w", table, err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = v.String
		}
		set.Rows = append(set.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading table %s: %w", table, err)
	}
	return set, nil
}

// WriteSQLite stores rows as a table of the SQLite database file at path,
// creating the file if needed and replacing an existing table of that name.
func WriteSQLite(ctx context.Context, path string, rows *domain.RowSet) error {
	if rows == nil || rows.Table == "" || len(rows.Columns) == 0 {
		return fmt.Errorf("write %s: table name and columns are required", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write %s: begin: %w", rows.Table, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := writeTable(ctx, tx, rows); err != nil {
		return fmt.Errorf("write %s: %w", rows.Table, err)
	}
	return tx.Commit()
}

// PostgresSource reads tables from a Postgres database.
type PostgresSource struct {
	db *pgxpool.Pool
}

func NewPostgresSource(db *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{db: db}
}

// LoadTable reads every row of table; non-text values are rendered as text.
func (s *PostgresSource) LoadTable(ctx context.Context, table string) (*domain.RowSet, error) {
	rows, err := s.db.Query(ctx, "SELECT * FROM "+pgx.Identifier{table}.Sanitize())
	if err != nil {
		return nil, fmt.Errorf("reading table %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}

	set := &domain.RowSet{Table: table, Columns: cols}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading table %s: %w", table, err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = textValue(v)
		}
		set.Rows = append(set.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading table %s: %w", table, err)
	}
	return set, nil
}

func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

// OpenSource picks the row source for a KB_SOURCE value. The returned close
// function releases any connection pool.
func OpenSource(ctx context.Context, source string) (domain.RowSource, func(), error) {
	if !IsPostgresURL(source) {
		return NewSQLiteSource(source), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, source)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to knowledge base: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connecting to knowledge base: %w", err)
	}
	return NewPostgresSource(pool), pool.Close, nil
}

// IsPostgresURL reports whether source names a Postgres server rather than a file.
func IsPostgresURL(source string) bool {
	return strings.HasPrefix(source, "postgres://") || strings.HasPrefix(source, "postgresql://")
}

var (
	_ domain.RowSource = (*SQLiteSource)(nil)
	_ domain.RowSource = (*PostgresSource)(nil)
)
