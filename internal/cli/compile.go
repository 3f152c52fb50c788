package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/sqlplan/internal/queryir"
	"github.com/roach88/sqlplan/internal/querysql"
	"github.com/roach88/sqlplan/internal/request"
	"github.com/roach88/sqlplan/internal/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Schema string
	Watch  bool
}

// CompiledRequest is the outcome for one request file.
type CompiledRequest struct {
	File  string    `json:"file"`
	Name  string    `json:"name,omitempty"`
	SQL   string    `json:"sql,omitempty"`
	Args  []any     `json:"args"`
	Error *CLIError `json:"error,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <request-file>...",
		Short: "Compile request documents to SQL",
		Long: `Compile request documents to parameterized PostgreSQL statements.

Every file is checked against the schema; all files are compiled even
when some are rejected. With --watch the files and the schema directory
are watched and recompiled on change until interrupted.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "CUE schema directory (default from config)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "recompile on change")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, files []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	dir, err := opts.schemaDir(opts.Schema)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(formatter, dir)
	if err != nil {
		return err
	}

	results, err := compileFiles(ctx, cat, files)
	if err != nil {
		return WrapExitError(ExitCommandError, "compile", err)
	}
	failed := outputCompiled(formatter, results)

	if opts.Watch {
		return watchRequests(ctx, formatter, dir, cat, files)
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d request(s) rejected", failed))
	}
	return nil
}

// compileFiles compiles every file concurrently. Per-file failures are
// reported in the results; the error is only set when ctx is done.
func compileFiles(ctx context.Context, cat *schema.Catalog, files []string) ([]CompiledRequest, error) {
	results := make([]CompiledRequest, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = compileFile(cat, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func compileFile(cat *schema.Catalog, file string) CompiledRequest {
	out := CompiledRequest{File: file, Args: []any{}}

	doc, err := request.ParseFile(file)
	if err != nil {
		out.Error = &CLIError{Code: ErrCodeRequest, Message: err.Error()}
		return out
	}
	out.Name = doc.Name

	plan, err := doc.Plan(cat)
	if err != nil {
		out.Error = classifyBuildError(err)
		return out
	}
	stmt, err := querysql.Compile(plan)
	if err != nil {
		out.Error = classifyBuildError(err)
		return out
	}
	out.SQL = stmt.SQL
	if stmt.Args != nil {
		out.Args = stmt.Args
	}
	return out
}

// classifyBuildError separates plan rejections, which carry their codes
// as details, from decoding errors.
func classifyBuildError(err error) *CLIError {
	pes := queryir.PlanErrors(err)
	if len(pes) == 0 {
		return &CLIError{Code: ErrCodeRequest, Message: err.Error()}
	}
	codes := make([]string, len(pes))
	for i, pe := range pes {
		codes[i] = string(pe.Code)
	}
	return &CLIError{Code: ErrCodePlan, Message: err.Error(), Details: codes}
}

// outputCompiled prints the results and returns how many failed.
func outputCompiled(formatter *OutputFormatter, results []CompiledRequest) int {
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: results}
		if failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodePlan,
				Message: fmt.Sprintf("%d of %d request(s) rejected", failed, len(results)),
			}
		}
		_ = formatter.encode(resp)
		return failed
	}

	w := formatter.Writer
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(w, "✗ %s\n  %s: %s\n\n", r.File, r.Error.Code, r.Error.Message)
			continue
		}
		fmt.Fprintf(w, "-- %s\n%s;\n", r.File, r.SQL)
		if len(r.Args) > 0 {
			fmt.Fprintf(w, "-- args: %s\n", formatArgs(r.Args))
		}
		fmt.Fprintln(w)
	}
	return failed
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("$%d=%v", i+1, a)
	}
	return strings.Join(parts, " ")
}

// watchRequests recompiles on writes to the request files or the schema
// directory until ctx is done.
func watchRequests(ctx context.Context, formatter *OutputFormatter, schemaDir string, cat *schema.Catalog, files []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapExitError(ExitCommandError, "start watcher", err)
	}
	defer watcher.Close()

	// Directories are watched rather than files so editors that replace
	// files on save keep triggering events.
	watched := make(map[string]bool)
	tracked := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return WrapExitError(ExitCommandError, "resolve path", err)
		}
		tracked[abs] = true
		watched[filepath.Dir(abs)] = true
	}
	schemaAbs, err := filepath.Abs(schemaDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "resolve path", err)
	}
	watched[schemaAbs] = true
	for dir := range watched {
		if err := watcher.Add(dir); err != nil {
			return WrapExitError(ExitCommandError, "watch "+dir, err)
		}
	}

	logger := formatter.Logger()
	logger.Info("watching for changes", "files", len(files), "schema", schemaDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", "error", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			name, _ := filepath.Abs(ev.Name)
			switch {
			case filepath.Dir(name) == schemaAbs && filepath.Ext(name) == ".cue":
				reloaded, err := loadCatalog(formatter, schemaDir)
				if err != nil {
					logger.Warn("schema reload failed; keeping previous schema", "error", err)
					continue
				}
				cat = reloaded
			case !tracked[name]:
				continue
			}
			logger.Debug("recompiling", "trigger", ev.Name)
			results, err := compileFiles(ctx, cat, files)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return WrapExitError(ExitCommandError, "compile", err)
			}
			outputCompiled(formatter, results)
		}
	}
}
