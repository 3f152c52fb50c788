package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlplan/internal/codegen"
)

// GenOptions holds flags for the gen command.
type GenOptions struct {
	*RootOptions
	Output  string
	Package string
}

// GenResult describes a written catalog file.
type GenResult struct {
	File     string `json:"file"`
	Package  string `json:"package"`
	Entities int    `json:"entities"`
}

// NewGenCommand creates the gen command.
func NewGenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gen [schema-dir]",
		Short: "Generate a Go catalog from the schema",
		Long: `Generate Go source declaring the schema's entities, joins and typed
field handles, so requests can be built in Go without the CUE loader.

Without --output the source is written to stdout.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var flag string
			if len(args) == 1 {
				flag = args[0]
			}
			return runGen(opts, flag, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Package, "package", "catalog", "package name of the generated file")

	return cmd
}

func runGen(opts *GenOptions, flag string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	dir, err := opts.schemaDir(flag)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(formatter, dir)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := codegen.Render(&buf, cat, opts.Package); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGenerateError, err.Error(), nil)
	}

	if opts.Output == "" {
		_, err := formatter.Writer.Write(buf.Bytes())
		return err
	}

	if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
	}
	if err := os.WriteFile(opts.Output, buf.Bytes(), 0o644); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
	}

	result := GenResult{File: opts.Output, Package: opts.Package, Entities: len(cat.Entities())}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Generated %d entit%s into %s (package %s)\n",
		result.Entities, plural(result.Entities, "y", "ies"), result.File, result.Package)
	return nil
}
