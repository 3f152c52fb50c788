package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlplan/internal/cueschema"
	"github.com/roach88/sqlplan/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool            `json:"valid"`
	Entities []EntitySummary `json:"entities,omitempty"`
	Errors   []SchemaProblem `json:"errors,omitempty"`
}

// EntitySummary describes one compiled entity.
type EntitySummary struct {
	Name       string   `json:"name"`
	Table      string   `json:"table"`
	Fields     int      `json:"fields"`
	Joins      []string `json:"joins,omitempty"`
	SoftDelete string   `json:"softDelete,omitempty"`
	Search     bool     `json:"search,omitempty"`
}

// SchemaProblem is one schema error with its source location.
type SchemaProblem struct {
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [schema-dir]",
		Short: "Validate a CUE schema",
		Long: `Validate the CUE schema without compiling any request.

Reports every entity error with its file position. The directory
defaults to paths.schema from the config file.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var flag string
			if len(args) == 1 {
				flag = args[0]
			}
			return runValidate(rootOpts, flag, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, flag string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	dir, err := opts.schemaDir(flag)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("schema directory not found: %s", dir), nil)
	}

	formatter.VerboseLog("Validating schema in %s", dir)
	cat, err := cueschema.LoadDir(dir)
	if err != nil {
		return outputValidationErrors(formatter, schemaProblems(err))
	}
	return outputValidateSuccess(formatter, summarize(cat))
}

func summarize(cat *schema.Catalog) []EntitySummary {
	entities := cat.Entities()
	out := make([]EntitySummary, len(entities))
	for i, e := range entities {
		s := EntitySummary{
			Name:       e.Name,
			Table:      e.Table,
			Fields:     len(e.Fields),
			SoftDelete: e.Deletion.Marker(),
			Search:     e.Search != nil && len(e.Search.Columns) > 0,
		}
		for _, j := range e.Joins {
			s.Joins = append(s.Joins, j.Relation)
		}
		out[i] = s
	}
	return out
}

// schemaProblems flattens a load error, keeping CUE positions.
func schemaProblems(err error) []SchemaProblem {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []SchemaProblem
		for _, e := range joined.Unwrap() {
			out = append(out, schemaProblems(e)...)
		}
		return out
	}
	p := SchemaProblem{Message: err.Error()}
	var ce *cueschema.CompileError
	if errors.As(err, &ce) && ce.Pos.IsValid() {
		p.File = ce.Pos.Filename()
		p.Line = ce.Pos.Line()
		p.Column = ce.Pos.Column()
	}
	return []SchemaProblem{p}
}

func outputValidateSuccess(formatter *OutputFormatter, entities []EntitySummary) error {
	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Entities: entities})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Schema valid: %d entit%s\n\n", len(entities), plural(len(entities), "y", "ies"))
	for _, e := range entities {
		fmt.Fprintf(w, "  %s (%s): %d field(s)", e.Name, e.Table, e.Fields)
		if len(e.Joins) > 0 {
			fmt.Fprintf(w, ", joins %v", e.Joins)
		}
		if e.SoftDelete != "" {
			fmt.Fprintf(w, ", soft delete on %s", e.SoftDelete)
		}
		if e.Search {
			fmt.Fprint(w, ", searchable")
		}
		fmt.Fprintln(w)
	}
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, problems []SchemaProblem) error {
	if formatter.JSON() {
		_ = formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: problems},
			Error:  &CLIError{Code: ErrCodeSchema, Message: problems[0].Message},
		})
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(problems)))
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, p := range problems {
		if p.Line > 0 {
			fmt.Fprintf(w, "%s:%d:%d\n", p.File, p.Line, p.Column)
		}
		fmt.Fprintf(w, "  %s: %s\n\n", ErrCodeSchema, p.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(problems)))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
