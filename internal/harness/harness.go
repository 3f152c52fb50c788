package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlplan/internal/cueschema"
	"github.com/roach88/sqlplan/internal/queryir"
	"github.com/roach88/sqlplan/internal/querysql"
	"github.com/roach88/sqlplan/internal/request"
	"github.com/roach88/sqlplan/internal/schema"
	"github.com/roach88/sqlplan/internal/store"
)

// Runner executes scenarios.
type Runner struct {
	catalog *schema.Catalog
	logger  *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithCatalog sets the catalog used by scenarios without a schema path.
func WithCatalog(c *schema.Catalog) Option {
	return func(r *Runner) { r.catalog = c }
}

// WithLogger sets the runner's logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Resolve the catalog (scenario schema or the runner's)
//  2. Decode the request and build its plan
//  3. Compile the plan and compare it with expect
//  4. With a setup section, execute the statement on fresh SQLite
//  5. Evaluate assertions
//
// A returned error means the scenario could not be run at all; failed
// expectations are reported in Result.Errors.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Result, error) {
	cat, err := r.catalogFor(s)
	if err != nil {
		return nil, err
	}

	// Round-trip through request.Parse for its strict field checks.
	data, err := yaml.Marshal(&s.Request)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	doc, err := request.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	result := NewResult()
	plan, err := doc.Plan(cat)
	if err != nil {
		pes := queryir.PlanErrors(err)
		if len(pes) == 0 {
			return nil, fmt.Errorf("build request: %w", err)
		}
		result.Code = string(pes[0].Code)
		r.checkBuildError(s, err, result)
		r.logger.Info("scenario rejected", "scenario", s.Name, "code", result.Code)
		return result, nil
	}
	if s.Expect.Error != "" {
		result.AddError(fmt.Sprintf("expected error %s, request built successfully", s.Expect.Error))
	}

	stmt, err := querysql.Compile(plan)
	if err != nil {
		return nil, fmt.Errorf("compile request: %w", err)
	}
	result.SQL = stmt.SQL
	result.Args = stmt.Args
	r.logger.Info("scenario compiled", "scenario", s.Name, "sql", stmt.SQL, "args", len(stmt.Args))

	compareStatement(s.Expect, stmt, result)

	if len(s.Setup) > 0 {
		if err := r.execute(ctx, s, plan, result); err != nil {
			return nil, err
		}
	}

	for _, msg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// Run executes a scenario with a default runner.
func Run(s *Scenario) (*Result, error) {
	return NewRunner().Run(context.Background(), s)
}

func (r *Runner) catalogFor(s *Scenario) (*schema.Catalog, error) {
	if s.Schema != "" {
		cat, err := cueschema.LoadDir(s.Schema)
		if err != nil {
			return nil, fmt.Errorf("load schema: %w", err)
		}
		return cat, nil
	}
	if r.catalog == nil {
		return nil, errors.New("scenario has no schema and the runner has no catalog")
	}
	return r.catalog, nil
}

// checkBuildError matches a build failure against expect.error. Any of
// the joined codes may match.
func (r *Runner) checkBuildError(s *Scenario, err error, result *Result) {
	if s.Expect.Error == "" {
		result.AddError(fmt.Sprintf("request failed to build: %v", err))
		return
	}
	if !queryir.HasCode(err, queryir.PlanErrorCode(s.Expect.Error)) {
		result.AddError(fmt.Sprintf("expected error %s, got: %v", s.Expect.Error, err))
	}
}

// execute runs the setup statements and the compiled plan on an isolated
// in-memory database.
func (r *Runner) execute(ctx context.Context, s *Scenario, plan queryir.Plan, result *Result) error {
	st, err := store.OpenSQLite(":memory:", store.WithLogger(r.logger))
	if err != nil {
		return fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	for i, stmt := range s.Setup {
		if _, err := st.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	res, err := store.Run(ctx, st, plan)
	if err != nil {
		result.AddError(fmt.Sprintf("execution failed: %v", err))
		return nil
	}
	result.Executed = true
	result.Rows = len(res.Rows)
	result.Affected = res.Affected
	result.Exists = res.Exists
	r.logger.Info("scenario executed", "scenario", s.Name, "rows", result.Rows, "affected", result.Affected)
	return nil
}
