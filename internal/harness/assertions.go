package harness

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/sqlplan/internal/querysql"
)

// AssertionError is returned when an assertion fails.
// It includes the statement to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	SQL      string // Statement under test, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.SQL != "" {
		fmt.Fprintf(&buf, "\nStatement:\n  %s\n", e.SQL)
	}
	return buf.String()
}

// compareStatement checks expect.sql and expect.args when they are set.
func compareStatement(expect Expect, stmt querysql.Statement, result *Result) {
	if expect.SQL != "" && expect.SQL != stmt.SQL {
		result.AddError((&AssertionError{
			Type:     "sql",
			Expected: expect.SQL,
			Actual:   stmt.SQL,
		}).Error())
	}
	if expect.Args != nil && !argsEqual(expect.Args, stmt.Args) {
		result.AddError((&AssertionError{
			Type:     "args",
			Expected: formatArgs(expect.Args),
			Actual:   formatArgs(stmt.Args),
			SQL:      stmt.SQL,
		}).Error())
	}
}

// argsEqual compares bound values by their text form, so YAML's int 50
// matches a bound int64(50) and a UUID string matches a uuid.UUID.
func argsEqual(expected, actual []any) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		if formatArg(expected[i]) != formatArg(actual[i]) {
			return false
		}
	}
	return true
}

func formatArg(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatArg(a)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func assertSQLContains(result *Result, a Assertion) error {
	if strings.Contains(result.SQL, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("statement containing %q", a.Text),
		Actual:   "not found",
		SQL:      result.SQL,
	}
}

func assertSQLNotContains(result *Result, a Assertion) error {
	if !strings.Contains(result.SQL, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("statement without %q", a.Text),
		Actual:   "found",
		SQL:      result.SQL,
	}
}

func assertCount(kind string, want, got int, result *Result) error {
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%d", want),
		Actual:   fmt.Sprintf("%d", got),
		SQL:      result.SQL,
	}
}

// EvaluateAssertions runs every assertion and returns the failure
// messages. Assertions on a request that failed to build are skipped.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	if result.Code != "" {
		return nil
	}
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertSQLContains:
			err = assertSQLContains(result, a)
		case AssertSQLNotContains:
			err = assertSQLNotContains(result, a)
		case AssertArgCount:
			err = assertCount(a.Type, a.Count, len(result.Args), result)
		case AssertRowCount:
			err = assertExecuted(result, a)
			if err == nil {
				err = assertCount(a.Type, a.Count, result.Rows, result)
			}
		case AssertAffectedCount:
			err = assertExecuted(result, a)
			if err == nil {
				err = assertCount(a.Type, a.Count, int(result.Affected), result)
			}
		default:
			err = fmt.Errorf("unknown assertion type: %s", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func assertExecuted(result *Result, a Assertion) error {
	if result.Executed {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: "statement executed against the setup database",
		Actual:   "not executed",
		SQL:      result.SQL,
	}
}
