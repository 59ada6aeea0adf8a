package querysql

import (
	"github.com/lebinh/aq/internal/ir"
	"github.com/lebinh/aq/internal/queryir"
)

// Parser builds a queryir tree from tokens.
type Parser struct {
	query  string
	tokens []Token
	pos    int
}

// NewParser creates a parser over tokens lexed from query.
func NewParser(query string, tokens []Token) *Parser {
	return &Parser{query: query, tokens: tokens}
}

// Parse parses a statement and returns its canonical text and the table
// references it contains.
func Parse(query string) (string, queryir.Metadata, error) {
	stmt, err := ParseStatement(query)
	if err != nil {
		return "", queryir.Metadata{}, err
	}
	return stmt.Canonical(), stmt.Metadata(), nil
}

// ParseStatement parses a statement into a tree.
func ParseStatement(query string) (*queryir.Statement, error) {
	tokens, err := Tokenize(query)
	if err != nil {
		return nil, err
	}

	p := NewParser(query, tokens)
	root, err := p.parseSelectStmt()
	if err != nil {
		return nil, err
	}
	if p.current().Type != TokenEOF {
		return nil, p.errorf("Expected end of text, found %s", p.current().describe())
	}
	return &queryir.Statement{Root: root}, nil
}

func (p *Parser) current() Token {
	return p.peekN(0)
}

func (p *Parser) peekN(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return Token{Type: TokenEOF, Pos: len(p.query)}
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) errorf(format string, args ...any) *ParsingError {
	return newParsingError(p.query, p.current().Pos, format, args...)
}

func isKeywordTok(tok Token, kws ...string) bool {
	if tok.Type != TokenKeyword {
		return false
	}
	for _, kw := range kws {
		if tok.Value == kw {
			return true
		}
	}
	return false
}

func isOpTok(tok Token, ops ...string) bool {
	if tok.Type != TokenOperator {
		return false
	}
	for _, op := range ops {
		if tok.Value == op {
			return true
		}
	}
	return false
}

func isName(tok Token) bool {
	return tok.Type == TokenIdent || tok.Type == TokenQuotedIdent
}

func (p *Parser) atKeyword(kws ...string) bool {
	return isKeywordTok(p.current(), kws...)
}

func (p *Parser) atOp(ops ...string) bool {
	return isOpTok(p.current(), ops...)
}

// expectKeyword consumes kw or fails.
func (p *Parser) expectKeyword(kw string) (queryir.Node, error) {
	if !p.atKeyword(kw) {
		return nil, p.errorf("Expected %q, found %s", kw, p.current().describe())
	}
	return queryir.Token(p.advance().Value), nil
}

// expectOp consumes op or fails.
func (p *Parser) expectOp(op string) (queryir.Node, error) {
	if !p.atOp(op) {
		return nil, p.errorf("Expected %q, found %s", op, p.current().describe())
	}
	return queryir.Token(p.advance().Value), nil
}

// expectName consumes an identifier or quoted identifier.
func (p *Parser) expectName(what string) (Token, error) {
	if !isName(p.current()) {
		return Token{}, p.errorf("Expected %s, found %s", what, p.current().describe())
	}
	return p.advance(), nil
}

// parseSelectStmt parses:
//
//	select-core (compound-op select-core)* [ORDER BY terms] [LIMIT n [OFFSET m | , m]]
func (p *Parser) parseSelectStmt() (queryir.Node, error) {
	core, err := p.parseSelectCore()
	if err != nil {
		return nil, err
	}
	items := []queryir.Node{core}

	for p.atKeyword("UNION", "INTERSECT", "EXCEPT") {
		op := p.advance()
		items = append(items, queryir.Token(op.Value))
		if op.Value == "UNION" && p.atKeyword("ALL") {
			items = append(items, queryir.Token(p.advance().Value))
		}
		core, err := p.parseSelectCore()
		if err != nil {
			return nil, err
		}
		items = append(items, core)
	}

	if p.atKeyword("ORDER") {
		items = append(items, queryir.Token(p.advance().Value))
		by, err := p.expectKeyword("BY")
		if err != nil {
			return nil, err
		}
		terms, err := p.parseList(p.parseOrderingTerm)
		if err != nil {
			return nil, err
		}
		items = append(items, by, terms)
	}

	if p.atKeyword("LIMIT") {
		items = append(items, queryir.Token(p.advance().Value))
		n, err := p.parseInteger()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
		if p.atKeyword("OFFSET") || p.atOp(",") {
			items = append(items, queryir.Token(p.advance().Value))
			m, err := p.parseInteger()
			if err != nil {
				return nil, err
			}
			items = append(items, m)
		}
	}

	return queryir.SpacedGroup(items...), nil
}

// parseSelectCore parses:
//
//	SELECT [DISTINCT | ALL] result-columns [FROM join-source] [WHERE expr]
//	    [GROUP BY terms [HAVING expr]]
func (p *Parser) parseSelectCore() (queryir.Node, error) {
	sel, err := p.expectKeyword("SELECT")
	if err != nil {
		return nil, err
	}
	items := []queryir.Node{sel}
	if p.atKeyword("DISTINCT", "ALL") {
		items = append(items, queryir.Token(p.advance().Value))
	}

	cols, err := p.parseList(p.parseResultColumn)
	if err != nil {
		return nil, err
	}
	items = append(items, cols)

	if p.atKeyword("FROM") {
		items = append(items, queryir.Token(p.advance().Value))
		src, err := p.parseJoinSource()
		if err != nil {
			return nil, err
		}
		items = append(items, src)
	}

	if p.atKeyword("WHERE") {
		items = append(items, queryir.Token(p.advance().Value))
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, where)
	}

	if p.atKeyword("GROUP") {
		items = append(items, queryir.Token(p.advance().Value))
		by, err := p.expectKeyword("BY")
		if err != nil {
			return nil, err
		}
		terms, err := p.parseList(p.parseOrderingTerm)
		if err != nil {
			return nil, err
		}
		items = append(items, by, terms)

		if p.atKeyword("HAVING") {
			items = append(items, queryir.Token(p.advance().Value))
			having, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			items = append(items, having)
		}
	}

	return queryir.SpacedGroup(items...), nil
}

// parseList parses one or more elements separated by commas. Commas are
// kept as tokens.
func (p *Parser) parseList(elem func() (queryir.Node, error)) (queryir.Node, error) {
	first, err := elem()
	if err != nil {
		return nil, err
	}
	items := []queryir.Node{first}
	for p.atOp(",") {
		items = append(items, queryir.Token(p.advance().Value))
		next, err := elem()
		if err != nil {
			return nil, err
		}
		items = append(items, next)
	}
	return queryir.SpacedGroup(items...), nil
}

// parseResultColumn parses table.*, expr [[AS] alias] or *.
func (p *Parser) parseResultColumn() (queryir.Node, error) {
	if p.atOp("*") {
		return queryir.Token(p.advance().Value), nil
	}
	if isName(p.current()) && isOpTok(p.peekN(1), ".") && isOpTok(p.peekN(2), "*") {
		table := p.advance()
		dot := p.advance()
		star := p.advance()
		return queryir.SpacedGroup(queryir.Token(table.Value), queryir.Token(dot.Value), queryir.Token(star.Value)), nil
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	alias, err := p.parseAlias()
	if err != nil {
		return nil, err
	}
	return queryir.SpacedGroup(expr, alias), nil
}

// parseAlias parses an optional [AS] name. It returns nil when no alias
// is written.
func (p *Parser) parseAlias() (queryir.Node, error) {
	node, _, err := p.parseAliasName()
	return node, err
}

func (p *Parser) parseAliasName() (queryir.Node, string, error) {
	if p.atKeyword("AS") {
		as := p.advance()
		name, err := p.expectName("alias")
		if err != nil {
			return nil, "", err
		}
		return queryir.SpacedGroup(queryir.Token(as.Value), queryir.Token(name.Value)), unquote(name.Value), nil
	}
	if isName(p.current()) {
		name := p.advance()
		return queryir.Token(name.Value), unquote(name.Value), nil
	}
	return nil, "", nil
}

// parseOrderingTerm parses expr [COLLATE name] [ASC | DESC].
func (p *Parser) parseOrderingTerm() (queryir.Node, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	items := []queryir.Node{expr}
	if p.atKeyword("COLLATE") {
		items = append(items, queryir.Token(p.advance().Value))
		name, err := p.expectName("collation name")
		if err != nil {
			return nil, err
		}
		items = append(items, queryir.Token(name.Value))
	}
	if p.atKeyword("ASC", "DESC") {
		items = append(items, queryir.Token(p.advance().Value))
	}
	return queryir.SpacedGroup(items...), nil
}

// parseInteger parses an optionally signed integer literal, rendered as
// one token.
func (p *Parser) parseInteger() (queryir.Node, error) {
	var sign queryir.Node
	if p.atOp("+", "-") && p.peekN(1).Type == TokenNumber {
		sign = queryir.Token(p.advance().Value)
	}
	tok := p.current()
	if tok.Type != TokenNumber || !isAllDigits(tok.Value) {
		return nil, p.errorf("Expected integer, found %s", tok.describe())
	}
	p.advance()
	return queryir.TightGroup(sign, queryir.Token(tok.Value)), nil
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return s != ""
}

// parseJoinSource parses single-source (join-op single-source join-constraint)*.
func (p *Parser) parseJoinSource() (queryir.Node, error) {
	first, err := p.parseSingleSource()
	if err != nil {
		return nil, err
	}
	items := []queryir.Node{first}

	for {
		op, err := p.parseJoinOp()
		if err != nil {
			return nil, err
		}
		if op == nil {
			break
		}
		src, err := p.parseSingleSource()
		if err != nil {
			return nil, err
		}
		constraint, err := p.parseJoinConstraint()
		if err != nil {
			return nil, err
		}
		items = append(items, op, src, constraint)
	}
	return queryir.SpacedGroup(items...), nil
}

// parseJoinOp parses "," or [NATURAL] [INNER | CROSS | LEFT [OUTER] | OUTER] JOIN.
// It returns nil when the current token does not start a join operator.
func (p *Parser) parseJoinOp() (queryir.Node, error) {
	if p.atOp(",") {
		return queryir.Token(p.advance().Value), nil
	}
	if !p.atKeyword("NATURAL", "INNER", "CROSS", "LEFT", "OUTER", "JOIN") {
		return nil, nil
	}

	var items []queryir.Node
	if p.atKeyword("NATURAL") {
		items = append(items, queryir.Token(p.advance().Value))
	}
	switch {
	case p.atKeyword("LEFT"):
		items = append(items, queryir.Token(p.advance().Value))
		if p.atKeyword("OUTER") {
			items = append(items, queryir.Token(p.advance().Value))
		}
	case p.atKeyword("INNER", "CROSS", "OUTER"):
		items = append(items, queryir.Token(p.advance().Value))
	}
	join, err := p.expectKeyword("JOIN")
	if err != nil {
		return nil, err
	}
	items = append(items, join)
	return queryir.SpacedGroup(items...), nil
}

// parseJoinConstraint parses an optional ON expr or USING ( name, ... ).
func (p *Parser) parseJoinConstraint() (queryir.Node, error) {
	switch {
	case p.atKeyword("ON"):
		on := p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return queryir.SpacedGroup(queryir.Token(on.Value), expr), nil
	case p.atKeyword("USING"):
		using := p.advance()
		lpar, err := p.expectOp("(")
		if err != nil {
			return nil, err
		}
		cols, err := p.parseList(func() (queryir.Node, error) {
			name, err := p.expectName("column name")
			if err != nil {
				return nil, err
			}
			return queryir.Token(name.Value), nil
		})
		if err != nil {
			return nil, err
		}
		rpar, err := p.expectOp(")")
		if err != nil {
			return nil, err
		}
		return queryir.SpacedGroup(queryir.Token(using.Value), lpar, cols, rpar), nil
	}
	return nil, nil
}

// parseSingleSource parses a table reference, a parenthesized subquery
// with optional alias, or a parenthesized join source.
func (p *Parser) parseSingleSource() (queryir.Node, error) {
	if p.atOp("(") {
		lpar := queryir.Token(p.advance().Value)
		var inner queryir.Node
		var err error
		subquery := p.atKeyword("SELECT")
		if subquery {
			inner, err = p.parseSelectStmt()
		} else {
			inner, err = p.parseJoinSource()
		}
		if err != nil {
			return nil, err
		}
		rpar, err := p.expectOp(")")
		if err != nil {
			return nil, err
		}
		if !subquery {
			return queryir.SpacedGroup(lpar, inner, rpar), nil
		}
		alias, err := p.parseAlias()
		if err != nil {
			return nil, err
		}
		return queryir.SpacedGroup(lpar, inner, rpar, alias), nil
	}
	return p.parseTableRef()
}

// parseTableRef parses [namespace .] name [[AS] alias] [INDEXED BY name | NOT INDEXED].
func (p *Parser) parseTableRef() (queryir.Node, error) {
	first, err := p.expectName("table name")
	if err != nil {
		return nil, err
	}
	table := &queryir.Table{
		Ref:   queryir.TableRef{Name: unquote(first.Value)},
		Items: []queryir.Node{queryir.Token(first.Value)},
	}

	if p.atOp(".") {
		dot := p.advance()
		name, err := p.expectName("table name")
		if err != nil {
			return nil, err
		}
		table.Ref = queryir.TableRef{Namespace: unquote(first.Value), Name: unquote(name.Value)}
		table.Items = append(table.Items, queryir.Token(dot.Value), queryir.Token(name.Value))
	}

	alias, aliasName, err := p.parseAliasName()
	if err != nil {
		return nil, err
	}
	if alias != nil {
		table.Ref.Alias = aliasName
		table.Items = append(table.Items, alias)
	}

	switch {
	case p.atKeyword("INDEXED"):
		indexed := p.advance()
		by, err := p.expectKeyword("BY")
		if err != nil {
			return nil, err
		}
		idx, err := p.expectName("index name")
		if err != nil {
			return nil, err
		}
		table.Items = append(table.Items, queryir.Token(indexed.Value), by, queryir.Token(idx.Value))
	case p.atKeyword("NOT") && isKeywordTok(p.peekN(1), "INDEXED"):
		table.Items = append(table.Items, queryir.Token(p.advance().Value), queryir.Token(p.advance().Value))
	}
	return table, nil
}

// accessorCall builds the call the path operator a -> b is rewritten into.
func accessorCall(left, right queryir.Node) queryir.Node {
	return &queryir.Call{Name: ir.AccessorFunc, Args: []queryir.Node{left, right}}
}
