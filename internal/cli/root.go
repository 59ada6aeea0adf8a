package cli

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Debug   bool
	Format  string // "json" | "text"

	ConfigPath string
	DataDir    string
	TTL        time.Duration
	Region     string // default namespace
	Provider   string
	Fixture    string

	// Logger overrides the stderr logger built from Verbose and Debug
	// (for testing).
	Logger *slog.Logger
}

// Version is the aq release.
const Version = "0.1.0"

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the aq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "aq [query]",
		Short: "aq - query cloud resources with SQL",
		Long: `Query cloud resources with SQL.

Tables are named <resource>_<collection> (s3_buckets) and may be prefixed
with a namespace, which for AWS is the region ("eu-west-1".s3_buckets).
Each table is fetched from the provider when a query first needs it, kept
in a local SQLite database, and refetched once it is older than the ttl.

With a query argument aq runs it and exits. Without one it reads queries
from stdin, one per line.

Sample queries:
  aq 'select name, creation_date from s3_buckets'
  aq "select id, tags->'Name' from ec2_instances where state->'Name' = 'running'"
  aq 'select count(*) from "eu-west-1".s3_buckets'`,
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueries(opts, args, cmd)
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debug logging")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.aq/config.yaml)")
	flags.StringVar(&opts.DataDir, "data-dir", "", `directory for cached tables ("" keeps them in memory)`)
	flags.DurationVar(&opts.TTL, "ttl", 0, "how long a fetched table is reused (default 5m0s)")
	flags.StringVar(&opts.Region, "region", "", "default namespace (default $AWS_REGION)")
	flags.StringVar(&opts.Provider, "provider", "", "collection provider (aws|fixture)")
	flags.StringVar(&opts.Fixture, "fixture", "", "fixture file for the fixture provider")

	// Add subcommands
	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewTablesCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
