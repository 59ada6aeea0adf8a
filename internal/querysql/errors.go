package querysql

import (
	"errors"
	"fmt"
	"strings"
)

// ParsingError reports a statement that does not match the grammar.
type ParsingError struct {
	Message string
	Pos     int // byte offset of the offending token
	Line    int // 1-based
	Column  int // 1-based
	Query   string
}

// Error implements the error interface.
func (e *ParsingError) Error() string {
	return fmt.Sprintf("%s (at char %d), (line:%d, col:%d)", e.Message, e.Pos, e.Line, e.Column)
}

func newParsingError(query string, pos int, format string, args ...any) *ParsingError {
	if pos > len(query) {
		pos = len(query)
	}
	line := 1 + strings.Count(query[:pos], "\n")
	col := pos + 1
	if nl := strings.LastIndexByte(query[:pos], '\n'); nl >= 0 {
		col = pos - nl
	}
	return &ParsingError{
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
		Line:    line,
		Column:  col,
		Query:   query,
	}
}

// IsParsingError reports whether err is or wraps a ParsingError.
func IsParsingError(err error) bool {
	var pe *ParsingError
	return errors.As(err, &pe)
}
