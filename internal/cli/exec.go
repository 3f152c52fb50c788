package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlplan/internal/querysql"
	"github.com/roach88/sqlplan/internal/request"
	"github.com/roach88/sqlplan/internal/store"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Schema      string
	DatabaseURL string
	SQLite      string // run against a SQLite file instead of PostgreSQL
	DryRun      bool
}

// ExecResult is the outcome of an executed request.
type ExecResult struct {
	SQL      string      `json:"sql"`
	Args     []any       `json:"args"`
	Rows     []store.Row `json:"rows,omitempty"`
	Affected int64       `json:"affected"`
	Exists   *bool       `json:"exists,omitempty"`
	DryRun   bool        `json:"dryRun,omitempty"`
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <request-file>",
		Short: "Compile a request and run it",
		Long: `Compile a request document and run the statement against PostgreSQL.

The connection string comes from --database-url, database.url in the
config file, or DATABASE_URL, in that order. --sqlite runs against a
local SQLite file instead, which is useful for smoke tests.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "CUE schema directory (default from config)")
	cmd.Flags().StringVar(&opts.DatabaseURL, "database-url", "", "PostgreSQL connection string")
	cmd.Flags().StringVar(&opts.SQLite, "sqlite", "", "path to a SQLite database")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the statement without running it")

	return cmd
}

func runExec(ctx context.Context, opts *ExecOptions, file string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)
	logger := formatter.Logger()

	dir, err := opts.schemaDir(opts.Schema)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(formatter, dir)
	if err != nil {
		return err
	}

	doc, err := request.ParseFile(file)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeRequest, err.Error(), nil)
	}
	plan, err := doc.Plan(cat)
	if err != nil {
		ce := classifyBuildError(err)
		return formatter.Fail(ExitFailure, ce.Code, ce.Message, ce.Details)
	}
	stmt, err := querysql.Compile(plan)
	if err != nil {
		ce := classifyBuildError(err)
		return formatter.Fail(ExitFailure, ce.Code, ce.Message, ce.Details)
	}
	result := ExecResult{SQL: stmt.SQL, Args: stmt.Args}
	if result.Args == nil {
		result.Args = []any{}
	}

	if opts.DryRun {
		result.DryRun = true
		return outputExec(formatter, result)
	}

	st, err := opts.open(ctx, store.WithLogger(logger))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	defer st.Close()

	logger.Debug("executing request", "file", file, "driver", st.Driver(), "sql", stmt.SQL)
	res, err := store.Run(ctx, st, plan)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeDatabase, err.Error(), nil)
	}
	result.Rows = res.Rows
	result.Affected = res.Affected
	result.Exists = res.Exists
	return outputExec(formatter, result)
}

func (o *ExecOptions) open(ctx context.Context, opts ...store.Option) (*store.Store, error) {
	if o.SQLite != "" {
		return store.OpenSQLite(o.SQLite, opts...)
	}
	url := o.DatabaseURL
	if url == "" {
		cfg, err := o.Config()
		if err != nil {
			return nil, err
		}
		url = cfg.Database.URL
	}
	if url == "" {
		return nil, fmt.Errorf("no database url: set --database-url, database.url or DATABASE_URL")
	}
	return store.OpenPostgres(ctx, url, opts...)
}

func outputExec(formatter *OutputFormatter, result ExecResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s;\n", result.SQL)
	if len(result.Args) > 0 {
		fmt.Fprintf(w, "-- args: %s\n", formatArgs(result.Args))
	}
	switch {
	case result.DryRun:
	case result.Exists != nil:
		fmt.Fprintf(w, "exists: %t\n", *result.Exists)
	case len(result.Rows) > 0:
		for _, row := range result.Rows {
			fmt.Fprintln(w, formatRow(row))
		}
		fmt.Fprintf(w, "(%d row(s))\n", len(result.Rows))
	default:
		fmt.Fprintf(w, "(%d row(s) affected)\n", result.Affected)
	}
	return nil
}

// formatRow prints columns in name order so output is stable.
func formatRow(row store.Row) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, row[k])
	}
	return strings.Join(parts, " ")
}
