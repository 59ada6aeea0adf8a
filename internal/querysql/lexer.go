package querysql

import "strings"

// Lexer tokenizes query text.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize splits input into tokens, ending with a TokenEOF.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) peekByte(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			l.pos++
		default:
			return
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()
	start := l.pos
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: start}, nil
	}

	ch := l.input[l.pos]
	switch {
	case (ch == 'x' || ch == 'X') && l.peekByte(1) == '\'':
		return l.readBlob()
	case isLetter(ch):
		word := l.readWord()
		if upper := strings.ToUpper(word); keywords[upper] {
			return Token{Type: TokenKeyword, Value: upper, Pos: start}, nil
		}
		return Token{Type: TokenIdent, Value: word, Pos: start}, nil
	case isDigit(ch):
		return Token{Type: TokenNumber, Value: l.readNumber(), Pos: start}, nil
	case ch == '\'':
		s, err := l.readQuoted('\'')
		if err != nil {
			return Token{}, err
		}
		return Token{Type: TokenString, Value: s, Pos: start}, nil
	case ch == '"':
		s, err := l.readQuoted('"')
		if err != nil {
			return Token{}, err
		}
		return Token{Type: TokenQuotedIdent, Value: s, Pos: start}, nil
	case ch == '?':
		l.pos++
		for isDigit(l.peekByte(0)) {
			l.pos++
		}
		return Token{Type: TokenParam, Value: l.input[start:l.pos], Pos: start}, nil
	case ch == ':' || ch == '@' || ch == '$':
		if !isLetter(l.peekByte(1)) {
			return Token{}, newParsingError(l.input, start, "Expected parameter name after '%c'", ch)
		}
		l.pos++
		l.readWord()
		return Token{Type: TokenParam, Value: l.input[start:l.pos], Pos: start}, nil
	}

	for _, op := range operators {
		if strings.HasPrefix(l.input[l.pos:], op) {
			l.pos += len(op)
			return Token{Type: TokenOperator, Value: op, Pos: start}, nil
		}
	}
	return Token{}, newParsingError(l.input, start, "Unexpected character '%c'", ch)
}

func (l *Lexer) readWord() string {
	start := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if !isLetter(ch) && !isDigit(ch) && ch != '_' {
			break
		}
		l.pos++
	}
	return l.input[start:l.pos]
}

// readNumber reads digits, an optional fraction and an optional exponent.
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.peekByte(0)) {
		l.pos++
	}
	if l.peekByte(0) == '.' {
		l.pos++
		for isDigit(l.peekByte(0)) {
			l.pos++
		}
	}
	if c := l.peekByte(0); c == 'e' || c == 'E' {
		n := 1
		if s := l.peekByte(1); s == '+' || s == '-' {
			n = 2
		}
		if isDigit(l.peekByte(n)) {
			l.pos += n
			for isDigit(l.peekByte(0)) {
				l.pos++
			}
		}
	}
	return l.input[start:l.pos]
}

// readQuoted reads a quoted string or identifier. A doubled quote escapes
// the quote character. The returned text keeps the quotes.
func (l *Lexer) readQuoted(quote byte) (string, error) {
	start := l.pos
	l.pos++ // opening quote
	for l.pos < len(l.input) {
		if l.input[l.pos] == quote {
			if l.peekByte(1) == quote {
				l.pos += 2
				continue
			}
			l.pos++
			return l.input[start:l.pos], nil
		}
		l.pos++
	}
	return "", newParsingError(l.input, start, "Unterminated quoted text starting with %c", quote)
}

func (l *Lexer) readBlob() (Token, error) {
	start := l.pos
	l.pos += 2 // x'
	digits := l.pos
	for isHex(l.peekByte(0)) {
		l.pos++
	}
	if l.pos == digits || l.peekByte(0) != '\'' {
		return Token{}, newParsingError(l.input, start, "Malformed blob literal")
	}
	l.pos++
	return Token{Type: TokenBlob, Value: l.input[start:l.pos], Pos: start}, nil
}

func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHex(ch byte) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

// unquote strips the quotes from a quoted identifier.
func unquote(s string) string {
	if len(s) < 2 || s[0] != '"' {
		return s
	}
	return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
}
