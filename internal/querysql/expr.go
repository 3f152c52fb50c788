package querysql

import (
	"fmt"

	"github.com/lib/pq"

	"github.com/roach88/sqlplan/internal/queryir"
)

// writeExpr writes one expression node. Groups are always parenthesised,
// even with a single child.
func (w *Writer) writeExpr(e queryir.Expr) {
	switch node := e.(type) {
	case queryir.And:
		w.writeGroup(" AND ", node.Exprs)
	case *queryir.And:
		w.writeGroup(" AND ", node.Exprs)
	case queryir.Or:
		w.writeGroup(" OR ", node.Exprs)
	case *queryir.Or:
		w.writeGroup(" OR ", node.Exprs)
	case queryir.Predicate:
		w.writePredicate(node)
	case *queryir.Predicate:
		w.writePredicate(*node)
	case queryir.FullText:
		w.writeFullText(node)
	case *queryir.FullText:
		w.writeFullText(*node)
	case queryir.Aggregate:
		w.writeAggregate(node)
	case *queryir.Aggregate:
		w.writeAggregate(*node)
	default:
		panic(fmt.Sprintf("querysql: unsupported expression type %T", e))
	}
}

func (w *Writer) writeGroup(sep string, exprs []queryir.Expr) {
	w.sql.WriteString("(")
	for i, e := range exprs {
		if i > 0 {
			w.sql.WriteString(sep)
		}
		w.writeExpr(e)
	}
	w.sql.WriteString(")")
}

func (w *Writer) writePredicate(p queryir.Predicate) {
	w.writeComparison(w.column(p.Column, p.Path), p.Op, p.Values)
}

// writeComparison writes "<lhs> <op> <binds>".
func (w *Writer) writeComparison(lhs string, op queryir.Op, values []any) {
	if len(values) != op.Arity() {
		panic(&queryir.PlanError{
			Code:    queryir.ErrCodeBadArity,
			Message: fmt.Sprintf("%s %s takes %d value(s), got %d", lhs, op, op.Arity(), len(values)),
		})
	}
	w.sql.WriteString(lhs)
	switch op {
	case queryir.OpEq, queryir.OpOn:
		w.sql.WriteString(" = ")
	case queryir.OpNeq:
		w.sql.WriteString(" <> ")
	case queryir.OpLike:
		w.sql.WriteString(" LIKE ")
	case queryir.OpNotLike:
		w.sql.WriteString(" NOT LIKE ")
	case queryir.OpGt:
		w.sql.WriteString(" > ")
	case queryir.OpGte:
		w.sql.WriteString(" >= ")
	case queryir.OpLt:
		w.sql.WriteString(" < ")
	case queryir.OpLte:
		w.sql.WriteString(" <= ")
	case queryir.OpBetween, queryir.OpNotBetween:
		if op == queryir.OpNotBetween {
			w.sql.WriteString(" NOT")
		}
		w.sql.WriteString(" BETWEEN ")
		w.Bind(values[0])
		w.sql.WriteString(" AND ")
		w.Bind(values[1])
		return
	case queryir.OpIsNull:
		w.sql.WriteString(" IS NULL")
		return
	case queryir.OpIsNotNull:
		w.sql.WriteString(" IS NOT NULL")
		return
	case queryir.OpIsTrue:
		w.sql.WriteString(" = TRUE")
		return
	case queryir.OpIsFalse:
		w.sql.WriteString(" = FALSE")
		return
	default:
		panic(fmt.Sprintf("querysql: unsupported operator %s", op))
	}
	w.Bind(values[0])
}

// writeFullText writes the weighted search document of the scope entity
// matched against the bound query:
//
//	(setweight(to_tsvector('english', coalesce(name, '')), 'A') || ...) @@ websearch_to_tsquery('english', $1)
func (w *Writer) writeFullText(f queryir.FullText) {
	e := w.scope.entity
	if e == nil || e.Search == nil || len(e.Search.Columns) == 0 {
		panic(&queryir.PlanError{Code: queryir.ErrCodeNoSearch, Message: "full-text search needs an entity with search columns"})
	}
	cfg := e.Search
	lang := cfg.Language
	if lang == "" {
		lang = "simple"
	}
	lang = pq.QuoteLiteral(lang)

	w.sql.WriteString("(")
	for i, c := range cfg.Columns {
		if i > 0 {
			w.sql.WriteString(" || ")
		}
		col := w.rootColumn(c.Column)
		if c.Path != "" {
			path, ok := queryir.MatchNames(w.scope.joins, c.Path)
			if !ok {
				panic(&queryir.PlanError{
					Code:    queryir.ErrCodeUndeclaredJoin,
					Entity:  e.Name,
					Message: fmt.Sprintf("search column needs join %q which is not declared", c.Path),
				})
			}
			col = pq.QuoteIdentifier(path.Alias()) + "." + c.Column
		}
		weight := c.Weight
		if weight == "" {
			weight = "D"
		}
		fmt.Fprintf(&w.sql, "setweight(to_tsvector(%s, coalesce(%s, '')), %s)", lang, col, pq.QuoteLiteral(weight))
	}
	w.sql.WriteString(") @@ websearch_to_tsquery(" + lang + ", ")
	w.Bind(f.Query)
	w.sql.WriteString(")")
}

var aggSQL = map[queryir.AggFunc]string{
	queryir.AggCount: "COUNT",
	queryir.AggSum:   "SUM",
	queryir.AggAvg:   "AVG",
	queryir.AggMin:   "MIN",
	queryir.AggMax:   "MAX",
}

func (w *Writer) writeAggregate(a queryir.Aggregate) {
	arg := "*"
	if a.Column != "" {
		arg = w.column(a.Column, a.Path)
	}
	var lhs string
	if a.Func == queryir.AggCountDistinct {
		lhs = "COUNT(DISTINCT " + arg + ")"
	} else {
		name, ok := aggSQL[a.Func]
		if !ok {
			panic(fmt.Sprintf("querysql: unsupported aggregate %d", int(a.Func)))
		}
		lhs = name + "(" + arg + ")"
	}
	w.writeComparison(lhs, a.Op, a.Values)
}
