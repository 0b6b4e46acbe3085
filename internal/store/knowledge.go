package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// KnowledgeStore is an in-memory SQLite database holding the working copy of
// the knowledge base. Reads run concurrently; writes hold an exclusive lock so
// a read-modify-write of one row cannot interleave with any other access.
type KnowledgeStore struct {
	db *sql.DB
	// pin keeps one connection open so the shared in-memory database is not
	// dropped when the pool closes idle connections.
	pin *sql.Conn

	mu     sync.RWMutex
	tables map[string][]string
}

// NewKnowledgeStore opens a fresh, empty in-memory database.
func NewKnowledgeStore(ctx context.Context) (*KnowledgeStore, error) {
	dsn := fmt.Sprintf("file:kb-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(8)

	pin, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("pinning in-memory database: %w", err)
	}

	return &KnowledgeStore{
		db:     db,
		pin:    pin,
		tables: make(map[string][]string),
	}, nil
}

// Close releases the database. The in-memory data is lost.
func (s *KnowledgeStore) Close() error {
	_ = s.pin.Close()
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *KnowledgeStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// LoadFrom bulk-loads table from src.
func (s *KnowledgeStore) LoadFrom(ctx context.Context, src domain.RowSource, table string) error {
	rows, err := src.LoadTable(ctx, table)
	if err != nil {
		return err
	}
	return s.Load(ctx, rows)
}

// Load replaces the table named by rows with its contents. All columns are
// stored as TEXT.
func (s *KnowledgeStore) Load(ctx context.Context, rows *domain.RowSet) error {
	if rows == nil || rows.Table == "" {
		return fmt.Errorf("load: table name is required")
	}
	if len(rows.Columns) == 0 {
		return fmt.Errorf("load %s: no columns", rows.Table)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load %s: begin: %w", rows.Table, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := writeTable(ctx, tx, rows); err != nil {
		return fmt.Errorf("load %s: %w", rows.Table, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("load %s: commit: %w", rows.Table, err)
	}

	cols := make([]string, len(rows.Columns))
	copy(cols, rows.Columns)
	s.tables[rows.Table] = cols
	return nil
}

// writeTable recreates the table described by rows and inserts every row.
func writeTable(ctx context.Context, tx *sql.Tx, rows *domain.RowSet) error {
	table := quoteIdent(rows.Table)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop: %w", err)
	}

	defs := make([]string, len(rows.Columns))
	placeholders := make([]string, len(rows.Columns))
	for i, col := range rows.Columns {
		defs[i] = quoteIdent(col) + " TEXT"
		placeholders[i] = "?"
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, strings.Join(placeholders, ", ")))
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows.Rows {
		if len(row) != len(rows.Columns) {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), len(rows.Columns))
		}
		args := make([]any, len(row))
		for j, v := range row {
			args[j] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return nil
}

// Columns returns the columns of a loaded table in load order.
func (s *KnowledgeStore) Columns(table string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cols, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, table)
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out, nil
}

// Select runs q against table and returns the matching rows in table order.
func (s *KnowledgeStore) Select(ctx context.Context, table string, q domain.EntityQuery) ([]domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectLocked(ctx, table, q)
}

func (s *KnowledgeStore) selectLocked(ctx context.Context, table string, q domain.EntityQuery) ([]domain.Entity, error) {
	known, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, table)
	}
	query, args, err := buildSelect(table, known, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("select %s: columns: %w", table, err)
	}

	var out []domain.Entity
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("select %s: scan: %w", table, err)
		}
		e := make(domain.Entity, len(cols))
		for i, col := range cols {
			e[col] = values[i].String
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update sets columns of the row whose keyColumn equals key.
func (s *KnowledgeStore) Update(ctx context.Context, table, keyColumn, key string, set map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(ctx, table, keyColumn, key, set)
}

func (s *KnowledgeStore) updateLocked(ctx context.Context, table, keyColumn, key string, set map[string]string) error {
	known, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, table)
	}
	stmt, args, err := buildUpdate(table, known, keyColumn, key, set)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Modify performs a read-modify-write of one row under the write lock.
func (s *KnowledgeStore) Modify(ctx context.Context, table, keyColumn, key string, columns []string,
	fn func(current domain.Entity) (map[string]string, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.selectLocked(ctx, table, domain.EntityQuery{
		Columns:   columns,
		KeyColumn: keyColumn,
		Key:       key,
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}

	set, err := fn(rows[0])
	if err != nil {
		return err
	}
	if len(set) == 0 {
		return nil
	}
	return s.updateLocked(ctx, table, keyColumn, key, set)
}

var _ domain.EntityStore = (*KnowledgeStore)(nil)
