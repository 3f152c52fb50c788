package queryir

import (
	"fmt"

	"github.com/roach88/sqlplan/internal/schema"
)

// Op is a comparison operator of a predicate or aggregate.
type Op int

const (
	OpInvalid Op = iota
	OpEq
	OpNeq
	OpLike
	OpNotLike
	OpIsNull
	OpIsNotNull
	OpIsTrue
	OpIsFalse
	OpGt
	OpGte
	OpLt
	OpLte
	OpBetween
	OpNotBetween
	// OpOn matches a temporal column at an exact instant; it is written as
	// equality.
	OpOn
)

// opNames are the request-document spellings.
var opNames = map[Op]string{
	OpEq:         "eq",
	OpNeq:        "neq",
	OpLike:       "like",
	OpNotLike:    "notLike",
	OpIsNull:     "isNull",
	OpIsNotNull:  "isNotNull",
	OpIsTrue:     "isTrue",
	OpIsFalse:    "isFalse",
	OpGt:         "gt",
	OpGte:        "gte",
	OpLt:         "lt",
	OpLte:        "lte",
	OpBetween:    "between",
	OpNotBetween: "notBetween",
	OpOn:         "on",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// ParseOp maps a request-document name ("eq", "notBetween", ...) to an Op.
func ParseOp(name string) (Op, error) {
	for op, n := range opNames {
		if n == name {
			return op, nil
		}
	}
	return OpInvalid, fmt.Errorf("unknown operator %q", name)
}

// Arity is the number of bound values the operator consumes.
func (o Op) Arity() int {
	switch o {
	case OpIsNull, OpIsNotNull, OpIsTrue, OpIsFalse:
		return 0
	case OpBetween, OpNotBetween:
		return 2
	default:
		return 1
	}
}

var (
	nullOps    = []Op{OpIsNull, OpIsNotNull}
	compareOps = []Op{OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpBetween, OpNotBetween}
)

var opsByKind = map[schema.Kind][]Op{
	schema.KindText:     append([]Op{OpEq, OpNeq, OpLike, OpNotLike}, nullOps...),
	schema.KindBoolean:  {OpIsTrue, OpIsFalse},
	schema.KindNumeric:  compareOps,
	schema.KindOpaque:   append([]Op{OpEq, OpNeq}, nullOps...),
	schema.KindTemporal: append(append([]Op{OpOn}, compareOps...), nullOps...),
}

// Supports reports whether predicates on a column of kind k may use o.
func Supports(k schema.Kind, o Op) bool {
	for _, op := range opsByKind[k] {
		if op == o {
			return true
		}
	}
	return false
}

// OpsFor lists the operators allowed for a kind.
func OpsFor(k schema.Kind) []Op {
	return append([]Op(nil), opsByKind[k]...)
}

// aggregateOps are the operators allowed on aggregate values.
func aggregateSupports(o Op) bool {
	for _, op := range compareOps {
		if op == o {
			return true
		}
	}
	return false
}
