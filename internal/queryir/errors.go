package queryir

import (
	"errors"
	"fmt"
)

// PlanErrorCode identifies the precondition a plan violated.
type PlanErrorCode string

const (
	// ErrCodeNoEntity - a builder was created without an entity.
	ErrCodeNoEntity PlanErrorCode = "NO_ENTITY"

	// ErrCodeMissingValues - insert or update built without a value map.
	ErrCodeMissingValues PlanErrorCode = "MISSING_VALUES"

	// ErrCodeEmptyUpdate - update with no assignments and no update marker.
	ErrCodeEmptyUpdate PlanErrorCode = "EMPTY_UPDATE"

	// ErrCodeNoSoftDelete - soft-delete behaviour requested on an entity
	// without a deletion marker.
	ErrCodeNoSoftDelete PlanErrorCode = "NO_SOFT_DELETE"

	// ErrCodeUndeclaredJoin - a column references a path that is neither
	// declared on the plan nor a prefix of a declared path.
	ErrCodeUndeclaredJoin PlanErrorCode = "UNDECLARED_JOIN"

	// ErrCodeConflictingJoin - two declared paths give one alias different
	// hops, or a hop is not a relation of the entity before it.
	ErrCodeConflictingJoin PlanErrorCode = "CONFLICTING_JOIN"

	// ErrCodeConflictingMode - a read asks for more than one head, e.g.
	// Exists and Select on the same builder.
	ErrCodeConflictingMode PlanErrorCode = "CONFLICTING_MODE"

	// ErrCodeJoinNotAllowed - a joined column on a write plan.
	ErrCodeJoinNotAllowed PlanErrorCode = "JOIN_NOT_ALLOWED"

	// ErrCodeUnknownColumn - the column is not a field of the entity.
	ErrCodeUnknownColumn PlanErrorCode = "UNKNOWN_COLUMN"

	// ErrCodeExcludedColumn - a write names a column excluded by the
	// entity's policy, or a marker column written by the statement itself.
	ErrCodeExcludedColumn PlanErrorCode = "EXCLUDED_COLUMN"

	// ErrCodeKindMismatch - the predicate's kind differs from the field's.
	ErrCodeKindMismatch PlanErrorCode = "KIND_MISMATCH"

	// ErrCodeUnsupportedOperator - operator not defined for the kind.
	ErrCodeUnsupportedOperator PlanErrorCode = "UNSUPPORTED_OPERATOR"

	// ErrCodeBadArity - wrong number of bound values for the operator.
	ErrCodeBadArity PlanErrorCode = "BAD_ARITY"

	// ErrCodeBadPagination - page < 0 or page size <= 0.
	ErrCodeBadPagination PlanErrorCode = "BAD_PAGINATION"

	// ErrCodeEmptyGroup - And/Or without children, or a nil child.
	ErrCodeEmptyGroup PlanErrorCode = "EMPTY_GROUP"

	// ErrCodeNoSearch - full-text query on an entity without search columns.
	ErrCodeNoSearch PlanErrorCode = "NO_SEARCH"

	// ErrCodeUnsupportedFilter - node not valid where it appears, e.g. an
	// aggregate outside Having or full text in a write filter.
	ErrCodeUnsupportedFilter PlanErrorCode = "UNSUPPORTED_FILTER"
)

// PlanError is a violated precondition found while building a plan.
type PlanError struct {
	Code    PlanErrorCode
	Entity  string
	Message string
}

func (e *PlanError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s (entity=%s)", e.Code, e.Message, e.Entity)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newPlanError(code PlanErrorCode, entity, format string, args ...any) *PlanError {
	return &PlanError{Code: code, Entity: entity, Message: fmt.Sprintf(format, args...)}
}

// IsPlanError reports whether err (or anything it wraps) is a PlanError.
func IsPlanError(err error) bool {
	var pe *PlanError
	return errors.As(err, &pe)
}

// HasCode reports whether err contains a PlanError with the given code.
// Errors joined by Build are searched too.
func HasCode(err error, code PlanErrorCode) bool {
	for _, pe := range PlanErrors(err) {
		if pe.Code == code {
			return true
		}
	}
	return false
}

// PlanErrors flattens err into the PlanErrors it contains.
func PlanErrors(err error) []*PlanError {
	switch e := err.(type) {
	case nil:
		return nil
	case *PlanError:
		return []*PlanError{e}
	case interface{ Unwrap() []error }:
		var out []*PlanError
		for _, inner := range e.Unwrap() {
			out = append(out, PlanErrors(inner)...)
		}
		return out
	default:
		return PlanErrors(errors.Unwrap(err))
	}
}
