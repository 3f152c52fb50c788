package queryir

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/sqlplan/internal/schema"
)

// Expr is a filter expression node.
//
// This is a sealed interface - only types in this package implement it.
// The marker method keeps backends' type switches exhaustive.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// And is a parenthesised conjunction. It is written in parentheses even
// with a single child: AllOf(x) → "(x)".
type And struct {
	Exprs []Expr
}

func (And) exprNode() {}

// Or is a parenthesised disjunction, written like And.
type Or struct {
	Exprs []Expr
}

func (Or) exprNode() {}

// AllOf groups expressions with AND.
func AllOf(exprs ...Expr) And { return And{Exprs: exprs} }

// AnyOf groups expressions with OR.
func AnyOf(exprs ...Expr) Or { return Or{Exprs: exprs} }

// Predicate compares one column with zero, one or two bound values.
//
// Column names a field of the entity at the end of Path (the plan's own
// entity when Path is empty). Values are bound in order; Build checks that
// their count matches Op.Arity().
type Predicate struct {
	Column string
	Path   JoinPath
	Kind   schema.Kind
	Op     Op
	Values []any
}

func (Predicate) exprNode() {}

// NewPredicate builds a predicate whose kind is only known at runtime, as
// in request decoding. Typed handles are preferred in Go code.
func NewPredicate(kind schema.Kind, column string, op Op, values ...any) Predicate {
	return Predicate{Column: column, Kind: kind, Op: op, Values: values}
}

// Via moves the predicate onto a joined path.
func (p Predicate) Via(path JoinPath) Predicate {
	p.Path = path
	return p
}

// FullText matches rows whose weighted search document satisfies a
// websearch-syntax query. The entity must declare a SearchConfig.
type FullText struct {
	Query string
}

func (FullText) exprNode() {}

// Search builds a full-text node; the text is NFC-normalized and trimmed.
func Search(query string) FullText {
	return FullText{Query: strings.TrimSpace(norm.NFC.String(query))}
}

// AggFunc is the aggregate function of a Having expression.
type AggFunc int

const (
	AggCount AggFunc = iota + 1
	AggCountDistinct
	AggSum
	AggAvg
	AggMin
	AggMax
)

var aggNames = map[AggFunc]string{
	AggCount:         "count",
	AggCountDistinct: "countDistinct",
	AggSum:           "sum",
	AggAvg:           "avg",
	AggMin:           "min",
	AggMax:           "max",
}

func (f AggFunc) String() string { return aggNames[f] }

// ParseAggFunc maps a request-document name to an AggFunc.
func ParseAggFunc(name string) (AggFunc, bool) {
	for f, n := range aggNames {
		if n == name {
			return f, true
		}
	}
	return 0, false
}

// Aggregate compares an aggregate over the entity's rows, grouped by its
// primary key, with bound values. Column "" counts rows (COUNT(*)).
type Aggregate struct {
	Func   AggFunc
	Column string
	Path   JoinPath
	Op     Op
	Values []any
}

func (Aggregate) exprNode() {}

// AggregateField is the handle for building Aggregate comparisons.
type AggregateField struct {
	Func   AggFunc
	Column string
	Path   JoinPath
}

func Count(column string) AggregateField         { return AggregateField{Func: AggCount, Column: column} }
func CountDistinct(column string) AggregateField { return AggregateField{Func: AggCountDistinct, Column: column} }
func Sum(column string) AggregateField           { return AggregateField{Func: AggSum, Column: column} }
func Avg(column string) AggregateField           { return AggregateField{Func: AggAvg, Column: column} }
func Min(column string) AggregateField           { return AggregateField{Func: AggMin, Column: column} }
func Max(column string) AggregateField           { return AggregateField{Func: AggMax, Column: column} }

// Via moves the aggregated column onto a joined path.
func (f AggregateField) Via(path JoinPath) AggregateField {
	f.Path = path
	return f
}

// Compare builds an aggregate comparison with an arbitrary operator.
func (f AggregateField) Compare(op Op, values ...any) Aggregate {
	return Aggregate{Func: f.Func, Column: f.Column, Path: f.Path, Op: op, Values: values}
}

func (f AggregateField) Eq(v any) Aggregate           { return f.Compare(OpEq, v) }
func (f AggregateField) Neq(v any) Aggregate          { return f.Compare(OpNeq, v) }
func (f AggregateField) Gt(v any) Aggregate           { return f.Compare(OpGt, v) }
func (f AggregateField) Gte(v any) Aggregate          { return f.Compare(OpGte, v) }
func (f AggregateField) Lt(v any) Aggregate           { return f.Compare(OpLt, v) }
func (f AggregateField) Lte(v any) Aggregate          { return f.Compare(OpLte, v) }
func (f AggregateField) Between(lo, hi any) Aggregate { return f.Compare(OpBetween, lo, hi) }
