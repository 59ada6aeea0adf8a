package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/lebinh/aq/internal/engine"
	"github.com/lebinh/aq/internal/querysql"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query or scenario failure
	ExitCommandError = 2 // Command error (bad flags, config, unreadable files, etc.)
)

// Error codes reported by the CLI besides the engine's own.
const (
	ErrCodeParsing = "PARSING_ERROR"
	ErrCodeConfig  = "CONFIG_ERROR"
	ErrCodeGeneric = "ERROR"
)

// ExitError represents an error with a specific exit code.
// Commands print the error themselves before returning one, so callers
// only need the code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitCommandError (2) if the error is not an ExitError; those come
// from cobra itself (unknown flags, wrong argument count).
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // PARSING_ERROR, UNKNOWN_COLLECTION, etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// QueryResult is the JSON payload of a successful query.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail outputs err and returns it as an ExitError with exitCode.
func (f *OutputFormatter) Fail(exitCode int, code string, err error) error {
	_ = f.Error(code, err.Error(), errorDetails(err))
	return WrapExitError(exitCode, code, err)
}

// Table outputs query results: a psql style table in text format, a
// QueryResult in JSON. Absent values print as NULL.
func (f *OutputFormatter) Table(columns []string, rows [][]any) error {
	if f.Format == "json" {
		out := make([][]any, len(rows))
		for i, row := range rows {
			out[i] = make([]any, len(row))
			for j, v := range row {
				if b, ok := v.([]byte); ok {
					v = string(b)
				}
				out[i][j] = v
			}
		}
		return f.Success(QueryResult{Columns: columns, Rows: out})
	}

	table := tablewriter.NewWriter(f.Writer)
	table.SetHeader(columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		table.Append(cells)
	}
	table.Render()

	suffix := "rows"
	if len(rows) == 1 {
		suffix = "row"
	}
	fmt.Fprintf(f.Writer, "(%d %s)\n", len(rows), suffix)
	return nil
}

// formatCell renders one value for the text table.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// ErrorCode classifies an error for output.
func ErrorCode(err error) string {
	if querysql.IsParsingError(err) {
		return ErrCodeParsing
	}
	var qe *engine.QueryError
	if errors.As(err, &qe) {
		return string(qe.Code)
	}
	return ErrCodeGeneric
}

// errorDetails returns structured context for an error, or nil.
func errorDetails(err error) any {
	var pe *querysql.ParsingError
	if errors.As(err, &pe) {
		return map[string]int{"position": pe.Pos, "line": pe.Line, "column": pe.Column}
	}
	var qe *engine.QueryError
	if errors.As(err, &qe) && qe.Table != "" {
		details := map[string]string{"namespace": qe.Namespace, "table": qe.Table}
		if qe.Resource != "" {
			details["resource"] = qe.Resource
			details["collection"] = qe.Collection
		}
		return details
	}
	return nil
}
