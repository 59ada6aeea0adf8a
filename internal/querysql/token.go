package querysql

import (
	"fmt"
	"strings"
)

// TokenType classifies a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenQuotedIdent
	TokenKeyword
	TokenNumber
	TokenString
	TokenBlob
	TokenParam
	TokenOperator
)

// String returns a readable name for the token type.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of text"
	case TokenIdent:
		return "identifier"
	case TokenQuotedIdent:
		return "quoted identifier"
	case TokenKeyword:
		return "keyword"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenBlob:
		return "blob"
	case TokenParam:
		return "bind parameter"
	case TokenOperator:
		return "operator"
	default:
		return "unknown"
	}
}

// Token is a lexical token. Keyword values are upper-cased; everything
// else keeps the source text, including quotes.
type Token struct {
	Type  TokenType
	Value string
	Pos   int // byte offset into the query
}

func (t Token) describe() string {
	if t.Type == TokenEOF {
		return "end of text"
	}
	return fmt.Sprintf("'%s'", t.Value)
}

// keywords are reserved and never lexed as identifiers.
var keywords = map[string]bool{
	"ALL": true, "AND": true, "AS": true, "ASC": true, "BETWEEN": true, "BY": true,
	"CASE": true, "CAST": true, "COLLATE": true, "CROSS": true,
	"CURRENT_DATE": true, "CURRENT_TIME": true, "CURRENT_TIMESTAMP": true,
	"DESC": true, "DISTINCT": true, "ELSE": true, "END": true, "ESCAPE": true,
	"EXCEPT": true, "EXISTS": true, "FROM": true, "GLOB": true, "GROUP": true,
	"HAVING": true, "IN": true, "INDEXED": true, "INNER": true, "INTERSECT": true,
	"IS": true, "ISNULL": true, "JOIN": true, "LEFT": true, "LIKE": true,
	"LIMIT": true, "MATCH": true, "NATURAL": true, "NOT": true, "NOTNULL": true,
	"NULL": true, "OFFSET": true, "ON": true, "OR": true, "ORDER": true,
	"OUTER": true, "REGEXP": true, "SELECT": true, "THEN": true, "UNION": true,
	"USING": true, "WHEN": true, "WHERE": true,
}

// IsKeyword reports whether word is reserved, ignoring case.
func IsKeyword(word string) bool {
	return keywords[strings.ToUpper(word)]
}

// typeNames are the type names accepted by CAST.
var typeNames = map[string]bool{
	"TEXT": true, "REAL": true, "INTEGER": true, "BLOB": true, "NULL": true, "NUMERIC": true,
}

// operators are matched longest first.
var operators = []string{
	"->", "||", "<<", ">>", "<=", ">=", "==", "!=", "<>",
	"=", "<", ">", "+", "-", "*", "/", "%", "~", "&", "|", "(", ")", ",", ".",
}
