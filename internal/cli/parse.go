package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lebinh/aq/internal/queryir"
	"github.com/lebinh/aq/internal/querysql"
)

// ParseResult is the JSON payload of the parse command.
type ParseResult struct {
	Canonical string             `json:"canonical"`
	Tables    []queryir.TableRef `json:"tables"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <query>",
		Short: "Print the canonical form of a query and the tables it reads",
		Long: `Parse a query without running it.

Prints the canonical text that would run against the local database
(keywords upper-cased, a -> b rewritten to json_get(a, b)) and every
table reference in the order it appears.

Example:
  aq parse "select tags->'Name' from \"eu-west-1\".ec2_instances i"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, args[0], cmd)
		},
	}
}

func runParse(opts *RootOptions, query string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	canonical, meta, err := querysql.Parse(query)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeParsing, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(ParseResult{Canonical: canonical, Tables: meta.Tables})
	}

	w := formatter.Writer
	fmt.Fprintln(w, canonical)
	if len(meta.Tables) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tables:")
	for _, ref := range meta.Tables {
		fmt.Fprintf(w, "  %s\n", ref)
	}
	return nil
}
