// Package querysql compiles queryir plans to parameterized PostgreSQL.
//
// Every value is bound as $1..$N, numbered across the whole statement
// including subqueries. Identifiers generated here (join aliases) are
// double-quoted; table names and schema column text are written verbatim.
// Root fields without column text are written bare in single-table
// statements and as <table>.<name> once other tables are joined in.
package querysql

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/roach88/sqlplan/internal/queryir"
	"github.com/roach88/sqlplan/internal/schema"
)

// Statement is one compiled statement: SQL text with $N placeholders and
// the values to bind, in placeholder order.
type Statement struct {
	SQL  string
	Args []any
}

// scope is what column references resolve against. qualify prefixes root
// fields with the table name.
type scope struct {
	entity  *schema.Entity
	joins   []queryir.JoinPath
	qualify bool
}

// Writer assembles one statement. Each clause (joins, where, sort,
// pagination) can be pushed once; later pushes of the same clause are
// ignored. A Writer is single use: every method panics after Finish.
type Writer struct {
	sql   strings.Builder
	args  *[]any
	scope *scope

	joined, filtered, sorted, paged bool
	done                            bool
}

// NewWriter returns a writer resolving root columns against entity (which
// may be nil) and joined columns against the declared paths.
func NewWriter(entity *schema.Entity, joins ...queryir.JoinPath) *Writer {
	return &Writer{
		args:  new([]any),
		scope: &scope{entity: entity, joins: joins, qualify: entity != nil && len(joins) > 0},
	}
}

// sub returns a writer for a subquery. It has its own clause guards and
// text but shares the bind list, so numbering continues globally. Root
// fields are always qualified inside it.
func (w *Writer) sub() *Writer {
	sc := *w.scope
	sc.qualify = sc.entity != nil
	return &Writer{args: w.args, scope: &sc}
}

func (w *Writer) live() {
	if w.done {
		panic("querysql: writer used after Finish")
	}
}

// Push appends raw SQL text.
func (w *Writer) Push(text string) {
	w.live()
	w.sql.WriteString(text)
}

// Bind appends a placeholder for v and records v.
func (w *Writer) Bind(v any) {
	w.live()
	*w.args = append(*w.args, v)
	fmt.Fprintf(&w.sql, "$%d", len(*w.args))
}

// PushExpr writes an expression without a leading keyword.
func (w *Writer) PushExpr(e queryir.Expr) {
	w.live()
	w.writeExpr(e)
}

// PushJoins appends the join clauses in order.
func (w *Writer) PushJoins(clauses []string) {
	w.live()
	if w.joined || len(clauses) == 0 {
		return
	}
	w.joined = true
	for _, c := range clauses {
		w.sql.WriteString(c)
	}
}

// PushWhere appends " WHERE <expr>". A nil expression writes nothing.
func (w *Writer) PushWhere(e queryir.Expr) {
	if e == nil {
		w.live()
		return
	}
	w.pushWhereWith(func(w *Writer) { w.writeExpr(e) })
}

// PushSoftDeleteFilter appends " WHERE <marker> IS NULL", followed by
// " AND (<expr>)" when e is not nil. It shares the WHERE guard with
// PushWhere.
func (w *Writer) PushSoftDeleteFilter(marker string, e queryir.Expr) {
	var cond func(*Writer)
	if e != nil {
		cond = func(w *Writer) { w.writeExpr(e) }
	}
	w.pushSoftDeleteWith(marker, cond)
}

func (w *Writer) pushWhereWith(cond func(*Writer)) {
	w.live()
	if w.filtered {
		return
	}
	w.filtered = true
	w.sql.WriteString(" WHERE ")
	cond(w)
}

func (w *Writer) pushSoftDeleteWith(marker string, cond func(*Writer)) {
	w.live()
	if w.filtered {
		return
	}
	w.filtered = true
	w.sql.WriteString(" WHERE ")
	w.sql.WriteString(w.rootColumn(marker))
	w.sql.WriteString(" IS NULL")
	if cond != nil {
		w.sql.WriteString(" AND (")
		cond(w)
		w.sql.WriteString(")")
	}
}

// PushSort appends " ORDER BY ..." with terms in the given order. An
// empty SortSpec writes nothing.
func (w *Writer) PushSort(spec queryir.SortSpec) {
	w.live()
	if w.sorted || len(spec) == 0 {
		return
	}
	w.sorted = true
	terms := make([]string, len(spec))
	for i, t := range spec {
		terms[i] = w.column(t.Column, t.Path) + " " + t.Direction.SQL()
	}
	w.sql.WriteString(" ORDER BY ")
	w.sql.WriteString(strings.Join(terms, ", "))
}

// PushPagination appends " LIMIT $n OFFSET $m", always binding both.
func (w *Writer) PushPagination(p queryir.Pagination) {
	w.live()
	if w.paged {
		return
	}
	w.paged = true
	w.sql.WriteString(" LIMIT ")
	w.Bind(p.Limit())
	w.sql.WriteString(" OFFSET ")
	w.Bind(p.Offset())
}

// pushReturning appends " RETURNING *" or the listed columns.
func (w *Writer) pushReturning(r *queryir.Returning) {
	if r == nil {
		return
	}
	if len(r.Columns) == 0 {
		w.Push(" RETURNING *")
		return
	}
	w.Push(" RETURNING " + strings.Join(r.Columns, ", "))
}

// Finish returns the statement and retires the writer.
func (w *Writer) Finish() Statement {
	w.live()
	w.done = true
	args := make([]any, len(*w.args))
	copy(args, *w.args)
	return Statement{SQL: w.sql.String(), Args: args}
}

// rootColumn returns the reference for a field of the root entity. Schema
// column text is written as declared; any other name is qualified by the
// table when the scope asks for it.
func (w *Writer) rootColumn(name string) string {
	e := w.scope.entity
	if e == nil {
		return name
	}
	if f, ok := e.Field(name); ok && f.Column != "" {
		return f.Column
	}
	if f, ok := e.FieldByRef(name); ok && f.Column != "" {
		return f.Column
	}
	if w.scope.qualify {
		return e.Table + "." + name
	}
	return name
}

// column renders a root or joined column reference. A path that is not
// declared panics with the resolver's PlanError; Build rejects such plans
// before they reach the writer.
func (w *Writer) column(name string, path queryir.JoinPath) string {
	if len(path) == 0 {
		return w.rootColumn(name)
	}
	alias, err := EnsureJoinAlias(w.scope.joins, path, name)
	if err != nil {
		panic(err)
	}
	return pq.QuoteIdentifier(alias) + "." + name
}
