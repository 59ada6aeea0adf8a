package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lebinh/aq/internal/provider"
)

// TableInfo describes one queryable table.
type TableInfo struct {
	Table      string `json:"table"`
	Resource   string `json:"resource"`
	Collection string `json:"collection"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "tables",
		Short:         "List the tables the provider exposes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(rootOpts, cmd)
		},
	}
}

func runTables(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, fmt.Errorf("loading config: %w", err))
	}
	p, err := newProvider(cfg, opts.logger(cmd))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	catalog, ok := p.(provider.Catalog)
	if !ok {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric,
			fmt.Errorf("provider %s cannot list its collections", cfg.Provider))
	}
	collections, err := catalog.Collections(ctx)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err)
	}

	tables := make([]TableInfo, len(collections))
	for i, c := range collections {
		tables[i] = TableInfo{Table: c.TableName(), Resource: c.Resource, Collection: c.Collection}
	}

	if formatter.Format == "json" {
		return formatter.Success(tables)
	}
	for _, t := range tables {
		fmt.Fprintln(formatter.Writer, t.Table)
	}
	return nil
}
