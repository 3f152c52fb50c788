package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roach88/sqlplan/internal/queryir"
	"github.com/roach88/sqlplan/internal/querysql"
)

// Executor runs compiled statements. Store implements it; tests may swap in
// a Store over sqlmock.
type Executor interface {
	Exec(ctx context.Context, stmt querysql.Statement) (int64, error)
	Query(ctx context.Context, stmt querysql.Statement) ([]Row, error)
	Exists(ctx context.Context, stmt querysql.Statement) (bool, error)
}

// Row is one result row keyed by column name. Byte slices are returned as
// strings.
type Row map[string]any

// Store executes statements over a *sql.DB.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for statement tracing.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New wraps an open database. driver is informational ("pgx", "sqlite3").
func New(db *sql.DB, driver string, opts ...Option) *Store {
	s := &Store{db: db, driver: driver, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the database/sql driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// Exec runs a statement without result rows and returns the number of
// affected rows.
func (s *Store) Exec(ctx context.Context, stmt querysql.Statement) (int64, error) {
	s.trace(ctx, "exec", stmt)
	res, err := s.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, fmt.Errorf("exec statement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Query runs a statement and collects every row.
func (s *Store) Query(ctx context.Context, stmt querysql.Statement) ([]Row, error) {
	s.trace(ctx, "query", stmt)
	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("query statement: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	out := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Exists runs a SELECT EXISTS(...) statement and returns its single value.
func (s *Store) Exists(ctx context.Context, stmt querysql.Statement) (bool, error) {
	s.trace(ctx, "exists", stmt)
	var ok bool
	if err := s.db.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("exists statement: %w", err)
	}
	return ok, nil
}

// Result is the outcome of Run. Exactly one of the fields is meaningful,
// depending on the plan.
type Result struct {
	Rows     []Row `json:"rows,omitempty"`
	Affected int64 `json:"affected,omitempty"`
	Exists   *bool `json:"exists,omitempty"`
}

// Run compiles plan and executes it with the matching method: Exists for
// existence reads, Query for reads and writes with RETURNING, Exec
// otherwise.
func Run(ctx context.Context, ex Executor, plan queryir.Plan) (Result, error) {
	stmt, err := querysql.Compile(plan)
	if err != nil {
		return Result{}, err
	}

	switch p := plan.(type) {
	case *queryir.Read:
		if p.Mode == queryir.SelectExists {
			ok, err := ex.Exists(ctx, stmt)
			return Result{Exists: &ok}, err
		}
		rows, err := ex.Query(ctx, stmt)
		return Result{Rows: rows}, err
	case *queryir.Insert:
		rows, err := ex.Query(ctx, stmt)
		return Result{Rows: rows, Affected: int64(len(rows))}, err
	case *queryir.Update:
		if p.Returning != nil {
			rows, err := ex.Query(ctx, stmt)
			return Result{Rows: rows, Affected: int64(len(rows))}, err
		}
	case *queryir.Delete:
		if p.Returning != nil {
			rows, err := ex.Query(ctx, stmt)
			return Result{Rows: rows, Affected: int64(len(rows))}, err
		}
	}
	n, err := ex.Exec(ctx, stmt)
	return Result{Affected: n}, err
}

func (s *Store) trace(ctx context.Context, op string, stmt querysql.Statement) {
	s.logger.DebugContext(ctx, "executing statement",
		"op", op,
		"driver", s.driver,
		"sql", stmt.SQL,
		"args", len(stmt.Args))
}
