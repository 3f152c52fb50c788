package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlplan/internal/cueschema"
	"github.com/roach88/sqlplan/internal/schema"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	config *Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sqlplan CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sqlplan",
		Short: "sqlplan - typed query plans for PostgreSQL",
		Long: `Compile request documents into parameterized PostgreSQL statements.

Entities, their fields, joins and write policies are declared in a CUE
schema. Requests are YAML or JSON documents checked against that schema
before any SQL is produced.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			_, err := opts.Config()
			return err
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default "+DefaultConfigFile+")")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewGenCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))

	return cmd
}

// Config loads the project config once. Subcommands built on their own
// (as in tests) load it lazily here too.
func (o *RootOptions) Config() (*Config, error) {
	if o.config != nil {
		return o.config, nil
	}
	path, required := o.ConfigPath, true
	if path == "" {
		path, required = DefaultConfigFile, false
	}
	cfg, err := LoadConfig(path, required)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	o.config = cfg
	return cfg, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// schemaDir picks the flag value over the configured directory.
func (o *RootOptions) schemaDir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := o.Config()
	if err != nil {
		return "", err
	}
	return cfg.Paths.Schema, nil
}

// loadCatalog loads the schema directory, reporting through f. A missing
// directory is a command error; an invalid schema is a failure.
func loadCatalog(f *OutputFormatter, dir string) (*schema.Catalog, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("schema directory not found: %s", dir), nil)
	}
	f.VerboseLog("Loading schema from %s", dir)
	cat, err := cueschema.LoadDir(dir)
	if err != nil {
		return nil, f.Fail(ExitFailure, ErrCodeSchema, "schema is invalid", schemaProblems(err))
	}
	return cat, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
