package querysql

import (
	"strings"

	"github.com/lebinh/aq/internal/queryir"
)

// Expression precedence, loosest first:
//
//	OR
//	AND
//	[NOT] BETWEEN x AND y
//	= == != <> IS [NOT] IN LIKE GLOB MATCH REGEXP
//	< <= > >=
//	<< >> & |
//	+ -
//	* / %
//	||
//	IS NOT
//	ISNULL NOTNULL NOT NULL (postfix)
//	- + ~ NOT (prefix)
//	->
//
// Binary operators are left-associative.

// parseExpr parses a full expression.
func (p *Parser) parseExpr() (queryir.Node, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (queryir.Node, error) {
	return p.parseBinaryKeyword(p.parseAnd, "OR")
}

func (p *Parser) parseAnd() (queryir.Node, error) {
	return p.parseBinaryKeyword(p.parseBetween, "AND")
}

// parseBinaryKeyword parses operand (kw operand)*.
func (p *Parser) parseBinaryKeyword(operand func() (queryir.Node, error), kw string) (queryir.Node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for p.atKeyword(kw) {
		op := queryir.Token(p.advance().Value)
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = queryir.SpacedGroup(left, op, right)
	}
	return left, nil
}

// parseBinaryOp parses operand (op operand)* for the given operators.
func (p *Parser) parseBinaryOp(operand func() (queryir.Node, error), ops ...string) (queryir.Node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for p.atOp(ops...) {
		op := queryir.Token(p.advance().Value)
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = queryir.SpacedGroup(left, op, right)
	}
	return left, nil
}

func (p *Parser) parseBetween() (queryir.Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for {
		var not queryir.Node
		switch {
		case p.atKeyword("BETWEEN"):
		case p.atKeyword("NOT") && isKeywordTok(p.peekN(1), "BETWEEN"):
			not = queryir.Token(p.advance().Value)
		default:
			return left, nil
		}
		between := queryir.Token(p.advance().Value)
		low, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		and, err := p.expectKeyword("AND")
		if err != nil {
			return nil, err
		}
		high, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = queryir.SpacedGroup(left, not, between, low, and, high)
	}
}

var matchOps = []string{"LIKE", "GLOB", "MATCH", "REGEXP"}

func (p *Parser) parseEquality() (queryir.Node, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.atOp("=", "==", "!=", "<>"):
			op := queryir.Token(p.advance().Value)
			right, err := p.parseRelational()
			if err != nil {
				return nil, err
			}
			left = queryir.SpacedGroup(left, op, right)

		case p.atKeyword("IS"):
			items := []queryir.Node{left, queryir.Token(p.advance().Value)}
			if p.atKeyword("NOT") {
				items = append(items, queryir.Token(p.advance().Value))
			}
			right, err := p.parseRelational()
			if err != nil {
				return nil, err
			}
			left = queryir.SpacedGroup(append(items, right)...)

		case p.atKeyword("IN"):
			in, err := p.parseIn(left, nil)
			if err != nil {
				return nil, err
			}
			left = in

		case p.atKeyword(matchOps...):
			match, err := p.parseMatch(left, nil)
			if err != nil {
				return nil, err
			}
			left = match

		case p.atKeyword("NOT") && isKeywordTok(p.peekN(1), "IN"):
			not := queryir.Token(p.advance().Value)
			in, err := p.parseIn(left, not)
			if err != nil {
				return nil, err
			}
			left = in

		case p.atKeyword("NOT") && isKeywordTok(p.peekN(1), matchOps...):
			not := queryir.Token(p.advance().Value)
			match, err := p.parseMatch(left, not)
			if err != nil {
				return nil, err
			}
			left = match

		default:
			return left, nil
		}
	}
}

// parseIn parses IN ( subquery ) or IN ( expr, ... ) after left.
func (p *Parser) parseIn(left, not queryir.Node) (queryir.Node, error) {
	in := queryir.Token(p.advance().Value)
	lpar, err := p.expectOp("(")
	if err != nil {
		return nil, err
	}

	var body queryir.Node
	switch {
	case p.atKeyword("SELECT"):
		body, err = p.parseSelectStmt()
	case p.atOp(")"):
	default:
		body, err = p.parseList(p.parseExpr)
	}
	if err != nil {
		return nil, err
	}

	rpar, err := p.expectOp(")")
	if err != nil {
		return nil, err
	}
	return queryir.SpacedGroup(left, not, in, lpar, body, rpar), nil
}

// parseMatch parses LIKE/GLOB/MATCH/REGEXP rhs [ESCAPE expr] after left.
func (p *Parser) parseMatch(left, not queryir.Node) (queryir.Node, error) {
	op := queryir.Token(p.advance().Value)
	right, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	items := []queryir.Node{left, not, op, right}
	if p.atKeyword("ESCAPE") {
		items = append(items, queryir.Token(p.advance().Value))
		esc, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		items = append(items, esc)
	}
	return queryir.SpacedGroup(items...), nil
}

func (p *Parser) parseRelational() (queryir.Node, error) {
	return p.parseBinaryOp(p.parseBitwise, "<", "<=", ">", ">=")
}

func (p *Parser) parseBitwise() (queryir.Node, error) {
	return p.parseBinaryOp(p.parseAdditive, "<<", ">>", "&", "|")
}

func (p *Parser) parseAdditive() (queryir.Node, error) {
	return p.parseBinaryOp(p.parseMultiplicative, "+", "-")
}

func (p *Parser) parseMultiplicative() (queryir.Node, error) {
	return p.parseBinaryOp(p.parseConcat, "*", "/", "%")
}

func (p *Parser) parseConcat() (queryir.Node, error) {
	return p.parseBinaryOp(p.parseIsNot, "||")
}

// parseIsNot parses operand (IS NOT operand)*.
func (p *Parser) parseIsNot() (queryir.Node, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("IS") && isKeywordTok(p.peekN(1), "NOT") {
		is := queryir.Token(p.advance().Value)
		not := queryir.Token(p.advance().Value)
		right, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		left = queryir.SpacedGroup(left, is, not, right)
	}
	return left, nil
}

// parsePostfix parses operand followed by ISNULL, NOTNULL or NOT NULL.
func (p *Parser) parsePostfix() (queryir.Node, error) {
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.atKeyword("ISNULL", "NOTNULL"):
			operand = queryir.SpacedGroup(operand, queryir.Token(p.advance().Value))
		case p.atKeyword("NOT") && isKeywordTok(p.peekN(1), "NULL"):
			not := queryir.Token(p.advance().Value)
			null := queryir.Token(p.advance().Value)
			operand = queryir.SpacedGroup(operand, not, null)
		default:
			return operand, nil
		}
	}
}

// parseUnary parses prefix - + ~ and NOT.
func (p *Parser) parseUnary() (queryir.Node, error) {
	if p.atOp("-", "+", "~") || p.atKeyword("NOT") {
		op := queryir.Token(p.advance().Value)
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return queryir.SpacedGroup(op, operand), nil
	}
	return p.parsePath()
}

// parsePath parses term (-> term)* and rewrites each arrow into an
// accessor call, nesting to the left.
func (p *Parser) parsePath() (queryir.Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.atOp("->") {
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = accessorCall(left, right)
	}
	return left, nil
}

// parseTerm parses literals, parameters, CAST, EXISTS, CASE, function
// calls, parenthesized expressions and subqueries, and identifier paths.
func (p *Parser) parseTerm() (queryir.Node, error) {
	tok := p.current()
	switch tok.Type {
	case TokenNumber, TokenString, TokenBlob, TokenParam:
		p.advance()
		return queryir.Token(tok.Value), nil

	case TokenKeyword:
		switch tok.Value {
		case "NULL", "CURRENT_TIME", "CURRENT_DATE", "CURRENT_TIMESTAMP":
			p.advance()
			return queryir.Token(tok.Value), nil
		case "CAST":
			return p.parseCast()
		case "EXISTS":
			return p.parseExists()
		case "CASE":
			return p.parseCase()
		}

	case TokenOperator:
		if tok.Value == "(" {
			return p.parseParenthesized()
		}

	case TokenIdent, TokenQuotedIdent:
		if tok.Type == TokenIdent && isOpTok(p.peekN(1), "(") {
			return p.parseFunctionCall()
		}
		return p.parseIdentifierPath()
	}

	return nil, p.errorf("Expected expression, found %s", tok.describe())
}

// parseIdentifierPath parses name [. name [. name]] as one tight token.
func (p *Parser) parseIdentifierPath() (queryir.Node, error) {
	first := p.advance()
	items := []queryir.Node{queryir.Token(first.Value)}
	for parts := 1; parts < 3 && p.atOp(".") && isName(p.peekN(1)); parts++ {
		dot := p.advance()
		name := p.advance()
		items = append(items, queryir.Token(dot.Value), queryir.Token(name.Value))
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return queryir.TightGroup(items...), nil
}

// parseFunctionCall parses name ( [*] | [DISTINCT] expr, ... ).
func (p *Parser) parseFunctionCall() (queryir.Node, error) {
	name := p.advance()
	p.advance() // (
	call := &queryir.Call{Name: name.Value}

	switch {
	case p.atOp(")"):
	case p.atOp("*"):
		call.Args = []queryir.Node{queryir.Token(p.advance().Value)}
	default:
		var distinct queryir.Node
		if p.atKeyword("DISTINCT") {
			distinct = queryir.Token(p.advance().Value)
		}
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if distinct != nil {
				arg = queryir.SpacedGroup(distinct, arg)
				distinct = nil
			}
			call.Args = append(call.Args, arg)
			if !p.atOp(",") {
				break
			}
			p.advance()
		}
	}

	if _, err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return call, nil
}

// parseParenthesized parses ( subquery ) or ( expr ). Parentheses are kept.
func (p *Parser) parseParenthesized() (queryir.Node, error) {
	lpar := queryir.Token(p.advance().Value)
	var inner queryir.Node
	var err error
	if p.atKeyword("SELECT") {
		inner, err = p.parseSelectStmt()
	} else {
		inner, err = p.parseExpr()
	}
	if err != nil {
		return nil, err
	}
	rpar, err := p.expectOp(")")
	if err != nil {
		return nil, err
	}
	return queryir.SpacedGroup(lpar, inner, rpar), nil
}

// parseCast parses CAST ( expr AS type-name ).
func (p *Parser) parseCast() (queryir.Node, error) {
	cast := queryir.Token(p.advance().Value)
	lpar, err := p.expectOp("(")
	if err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	as, err := p.expectKeyword("AS")
	if err != nil {
		return nil, err
	}
	tok := p.current()
	typeName := strings.ToUpper(tok.Value)
	if (tok.Type != TokenIdent && tok.Type != TokenKeyword) || !typeNames[typeName] {
		return nil, p.errorf("Expected type name, found %s", tok.describe())
	}
	p.advance()
	rpar, err := p.expectOp(")")
	if err != nil {
		return nil, err
	}
	return queryir.SpacedGroup(cast, lpar, expr, as, queryir.Token(typeName), rpar), nil
}

// parseExists parses EXISTS ( subquery ).
func (p *Parser) parseExists() (queryir.Node, error) {
	exists := queryir.Token(p.advance().Value)
	lpar, err := p.expectOp("(")
	if err != nil {
		return nil, err
	}
	stmt, err := p.parseSelectStmt()
	if err != nil {
		return nil, err
	}
	rpar, err := p.expectOp(")")
	if err != nil {
		return nil, err
	}
	return queryir.SpacedGroup(exists, lpar, stmt, rpar), nil
}

// parseCase parses CASE [expr] (WHEN expr THEN expr)+ [ELSE expr] END.
func (p *Parser) parseCase() (queryir.Node, error) {
	items := []queryir.Node{queryir.Token(p.advance().Value)}
	if !p.atKeyword("WHEN") {
		base, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, base)
	}

	if !p.atKeyword("WHEN") {
		return nil, p.errorf("Expected \"WHEN\", found %s", p.current().describe())
	}
	for p.atKeyword("WHEN") {
		when := queryir.Token(p.advance().Value)
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		then, err := p.expectKeyword("THEN")
		if err != nil {
			return nil, err
		}
		result, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, when, cond, then, result)
	}

	if p.atKeyword("ELSE") {
		items = append(items, queryir.Token(p.advance().Value))
		other, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, other)
	}

	end, err := p.expectKeyword("END")
	if err != nil {
		return nil, err
	}
	return queryir.SpacedGroup(append(items, end)...), nil
}
