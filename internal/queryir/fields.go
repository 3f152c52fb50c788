package queryir

import (
	"time"

	"github.com/roach88/sqlplan/internal/schema"
)

// Number is the set of Go types a numeric column may be compared with.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// fieldRef is the column part shared by every typed handle.
type fieldRef struct {
	Column string
	Path   JoinPath
}

// Asc sorts ascending on the field.
func (r fieldRef) Asc() SortTerm { return SortTerm{Column: r.Column, Path: r.Path, Direction: Asc} }

// Desc sorts descending on the field.
func (r fieldRef) Desc() SortTerm { return SortTerm{Column: r.Column, Path: r.Path, Direction: Desc} }

func (r fieldRef) pred(kind schema.Kind, op Op, values ...any) Predicate {
	return Predicate{Column: r.Column, Path: r.Path, Kind: kind, Op: op, Values: values}
}

// TextField is a handle on a text column.
type TextField struct{ fieldRef }

// Text returns a handle on a text column of the plan's entity.
func Text(column string) TextField { return TextField{fieldRef{Column: column}} }

// Via returns the same column on the entity reached through path.
func (f TextField) Via(path JoinPath) TextField {
	f.Path = path
	return f
}

func (f TextField) Eq(v string) Predicate      { return f.pred(schema.KindText, OpEq, v) }
func (f TextField) Neq(v string) Predicate     { return f.pred(schema.KindText, OpNeq, v) }
func (f TextField) Like(v string) Predicate    { return f.pred(schema.KindText, OpLike, v) }
func (f TextField) NotLike(v string) Predicate { return f.pred(schema.KindText, OpNotLike, v) }
func (f TextField) IsNull() Predicate          { return f.pred(schema.KindText, OpIsNull) }
func (f TextField) IsNotNull() Predicate       { return f.pred(schema.KindText, OpIsNotNull) }

// BoolField is a handle on a boolean column.
type BoolField struct{ fieldRef }

// Bool returns a handle on a boolean column of the plan's entity.
func Bool(column string) BoolField { return BoolField{fieldRef{Column: column}} }

// Via returns the same column on the entity reached through path.
func (f BoolField) Via(path JoinPath) BoolField {
	f.Path = path
	return f
}

func (f BoolField) IsTrue() Predicate  { return f.pred(schema.KindBoolean, OpIsTrue) }
func (f BoolField) IsFalse() Predicate { return f.pred(schema.KindBoolean, OpIsFalse) }

// NumericField is a handle on a numeric column compared with values of T.
type NumericField[T Number] struct{ fieldRef }

// Numeric returns a handle on a numeric column of the plan's entity.
func Numeric[T Number](column string) NumericField[T] {
	return NumericField[T]{fieldRef{Column: column}}
}

// Via returns the same column on the entity reached through path.
func (f NumericField[T]) Via(path JoinPath) NumericField[T] {
	f.Path = path
	return f
}

func (f NumericField[T]) Eq(v T) Predicate  { return f.pred(schema.KindNumeric, OpEq, v) }
func (f NumericField[T]) Neq(v T) Predicate { return f.pred(schema.KindNumeric, OpNeq, v) }
func (f NumericField[T]) Gt(v T) Predicate  { return f.pred(schema.KindNumeric, OpGt, v) }
func (f NumericField[T]) Gte(v T) Predicate { return f.pred(schema.KindNumeric, OpGte, v) }
func (f NumericField[T]) Lt(v T) Predicate  { return f.pred(schema.KindNumeric, OpLt, v) }
func (f NumericField[T]) Lte(v T) Predicate { return f.pred(schema.KindNumeric, OpLte, v) }

// Between matches lo <= column <= hi. The bounds are bound as given and not
// reordered.
func (f NumericField[T]) Between(lo, hi T) Predicate {
	return f.pred(schema.KindNumeric, OpBetween, lo, hi)
}

func (f NumericField[T]) NotBetween(lo, hi T) Predicate {
	return f.pred(schema.KindNumeric, OpNotBetween, lo, hi)
}

// OpaqueField is a handle on an identifier-like column (UUIDs, codes)
// that only supports equality and null checks.
type OpaqueField[T comparable] struct{ fieldRef }

// Opaque returns a handle on an opaque column of the plan's entity.
func Opaque[T comparable](column string) OpaqueField[T] {
	return OpaqueField[T]{fieldRef{Column: column}}
}

// Via returns the same column on the entity reached through path.
func (f OpaqueField[T]) Via(path JoinPath) OpaqueField[T] {
	f.Path = path
	return f
}

func (f OpaqueField[T]) Eq(v T) Predicate     { return f.pred(schema.KindOpaque, OpEq, v) }
func (f OpaqueField[T]) Neq(v T) Predicate    { return f.pred(schema.KindOpaque, OpNeq, v) }
func (f OpaqueField[T]) IsNull() Predicate    { return f.pred(schema.KindOpaque, OpIsNull) }
func (f OpaqueField[T]) IsNotNull() Predicate { return f.pred(schema.KindOpaque, OpIsNotNull) }

// TemporalField is a handle on a timestamp column.
type TemporalField struct{ fieldRef }

// Temporal returns a handle on a timestamp column of the plan's entity.
func Temporal(column string) TemporalField { return TemporalField{fieldRef{Column: column}} }

// Via returns the same column on the entity reached through path.
func (f TemporalField) Via(path JoinPath) TemporalField {
	f.Path = path
	return f
}

func (f TemporalField) On(v time.Time) Predicate  { return f.pred(schema.KindTemporal, OpOn, v) }
func (f TemporalField) Eq(v time.Time) Predicate  { return f.pred(schema.KindTemporal, OpEq, v) }
func (f TemporalField) Neq(v time.Time) Predicate { return f.pred(schema.KindTemporal, OpNeq, v) }
func (f TemporalField) Gt(v time.Time) Predicate  { return f.pred(schema.KindTemporal, OpGt, v) }
func (f TemporalField) Gte(v time.Time) Predicate { return f.pred(schema.KindTemporal, OpGte, v) }
func (f TemporalField) Lt(v time.Time) Predicate  { return f.pred(schema.KindTemporal, OpLt, v) }
func (f TemporalField) Lte(v time.Time) Predicate { return f.pred(schema.KindTemporal, OpLte, v) }
func (f TemporalField) IsNull() Predicate         { return f.pred(schema.KindTemporal, OpIsNull) }
func (f TemporalField) IsNotNull() Predicate      { return f.pred(schema.KindTemporal, OpIsNotNull) }

func (f TemporalField) Between(lo, hi time.Time) Predicate {
	return f.pred(schema.KindTemporal, OpBetween, lo, hi)
}

func (f TemporalField) NotBetween(lo, hi time.Time) Predicate {
	return f.pred(schema.KindTemporal, OpNotBetween, lo, hi)
}
