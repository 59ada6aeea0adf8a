package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// Prompt is printed before each query read in interactive mode.
const Prompt = "> "

func (opts *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// runQueries runs the query argument, or reads queries from stdin when
// there is none.
func runQueries(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			s.logger.Error("error closing store", "error", closeErr)
		}
	}()

	if len(args) == 1 {
		if err := executeQuery(ctx, s, formatter, args[0]); err != nil {
			return formatter.Fail(ExitFailure, ErrorCode(err), err)
		}
		return nil
	}
	return repl(ctx, s, formatter, cmd.InOrStdin())
}

// executeQuery runs one query and prints its result.
func executeQuery(ctx context.Context, s *session, formatter *OutputFormatter, query string) error {
	result, err := s.engine.Execute(ctx, query)
	if err != nil {
		return err
	}
	return formatter.Table(result.Columns, result.Rows)
}

// repl reads one query per line until EOF. A failing query is reported and
// the loop goes on.
func repl(ctx context.Context, s *session, formatter *OutputFormatter, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	failed := 0
	for {
		if formatter.Format != "json" {
			fmt.Fprint(formatter.Writer, Prompt)
		}
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		switch query {
		case "":
			continue
		case "exit", "quit", `\q`:
			return nil
		}

		if err := executeQuery(ctx, s, formatter, query); err != nil {
			failed++
			_ = formatter.Error(ErrorCode(err), err.Error(), errorDetails(err))
		}
	}
	if formatter.Format != "json" {
		fmt.Fprintln(formatter.Writer)
	}

	if err := scanner.Err(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("reading input: %w", err))
	}
	s.logger.Debug("input closed", "failed_queries", failed)
	return nil
}
