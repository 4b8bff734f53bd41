package dice

import "fmt"

// Parse parses a dice expression string into an Expression.
//
// Grammar (case- and whitespace-insensitive):
//
//	Expr     := Term (('+'|'-') Term)*
//	Term     := Factor (('*'|'/') Factor)*
//	Factor   := DiceTerm | Number | '(' Expr ')'
//	DiceTerm := [Count] 'd' Sides Modifier*
//	Modifier := ('kh'|'kl'|'dh'|'dl') [N] | ('r'|'ro') [Cond] | '!' [Cond]
//	Cond     := ['<'|'>'|'='|'<='|'>='] Number
//
// Supported forms include "d20", "4d6dl1+2", "2d20kh1", "1d8!", "3d6r1" and
// "(1d4+1)*2". Parse performs no randomness.
//
// Postcondition: Returns an Expression with a non-nil Root, or a *ParseError.
func Parse(expr string) (Expression, error) {
	toks, err := lex(expr)
	if err != nil {
		return Expression{}, err
	}

	p := &parser{expr: expr, toks: toks}
	root, err := p.parseExpr()
	if err != nil {
		return Expression{}, err
	}

	switch t := p.peek(); t.kind {
	case tokEOF:
	case tokRParen:
		return Expression{}, p.fail(UnbalancedParentheses, t, "no matching '('")
	default:
		return Expression{}, p.fail(UnexpectedToken, t, "expected operator or end of expression")
	}

	return Expression{Raw: expr, Root: root}, nil
}

// MustParse parses expr and panics on error. Useful for package-level constants.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

type parser struct {
	expr string
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(offset int) token {
	if i := p.pos + offset; i < len(p.toks) {
		return p.toks[i]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) fail(kind ParseErrorKind, t token, msg string) *ParseError {
	return &ParseError{Kind: kind, Pos: t.pos, Token: t.text, Expression: p.expr, Msg: msg}
}

func (p *parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		var op Operator
		switch p.peek().kind {
		case tokPlus:
			op = OpAdd
		case tokMinus:
			op = OpSub
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		var op Operator
		switch p.peek().kind {
		case tokStar:
			op = OpMul
		case tokSlash:
			op = OpDiv
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseFactor() (Node, error) {
	t := p.peek()
	switch t.kind {
	case tokLParen:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		switch closing := p.peek(); closing.kind {
		case tokRParen:
			p.next()
			return inner, nil
		case tokEOF:
			return nil, p.fail(UnbalancedParentheses, t, "missing ')'")
		default:
			return nil, p.fail(UnexpectedToken, closing, "expected ')'")
		}
	case tokNumber:
		p.next()
		if p.peek().kind == tokDie {
			if t.num < 1 {
				return nil, p.fail(InvalidDieSize, t, "die count must be at least 1")
			}
			return p.parseDice(t.num)
		}
		return &NumberNode{Value: t.num}, nil
	case tokDie:
		return p.parseDice(1)
	case tokRParen:
		return nil, p.fail(UnbalancedParentheses, t, "no matching '('")
	case tokEOF:
		return nil, p.fail(UnexpectedToken, t, "unexpected end of expression")
	default:
		return nil, p.fail(UnexpectedToken, t, "expected number, die or '('")
	}
}

// parseDice parses the remainder of a dice term; the current token is 'd'.
func (p *parser) parseDice(count int) (Node, error) {
	p.next()

	t := p.peek()
	switch {
	case t.kind == tokMinus && p.peekAt(1).kind == tokNumber:
		return nil, p.fail(InvalidDieSize, t, "die sides must be positive")
	case t.kind != tokNumber:
		return nil, p.fail(UnexpectedToken, t, "expected die sides")
	case t.num < 1:
		return nil, p.fail(InvalidDieSize, t, "die sides must be positive")
	}
	p.next()

	n := &DiceNode{Count: count, Sides: t.num}
	exploding := false
	for {
		t := p.peek()
		switch t.kind {
		case tokKeepDrop:
			p.next()
			m := Modifier{N: 1}
			switch t.text {
			case "kh":
				m.Kind = KeepHighest
			case "kl":
				m.Kind = KeepLowest
			case "dh":
				m.Kind = DropHighest
			default:
				m.Kind = DropLowest
			}
			if p.peek().kind == tokNumber {
				m.N = p.next().num
			}
			n.Modifiers = append(n.Modifiers, m)
		case tokReroll:
			p.next()
			m := Modifier{Kind: Reroll, Cond: Condition{Op: Equal, Value: 1}, Limit: DefaultLimit}
			if t.text == "ro" {
				m.Limit = 1
			}
			cond, ok, err := p.parseCondition()
			if err != nil {
				return nil, err
			}
			if ok {
				m.Cond = cond
			}
			n.Modifiers = append(n.Modifiers, m)
		case tokExplode:
			if exploding {
				return nil, p.fail(UnexpectedToken, t, "a dice term may explode only once")
			}
			exploding = true
			p.next()
			m := Modifier{Kind: Explode, Cond: Condition{Op: Equal, Value: n.Sides}, Limit: DefaultLimit}
			cond, ok, err := p.parseCondition()
			if err != nil {
				return nil, err
			}
			if ok {
				m.Cond = cond
			}
			n.Modifiers = append(n.Modifiers, m)
		default:
			return n, nil
		}
	}
}

// parseCondition parses an optional Cond. ok is false when none is present.
func (p *parser) parseCondition() (Condition, bool, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		return Condition{Op: Equal, Value: t.num}, true, nil
	case tokCompare:
		p.next()
		v := p.peek()
		if v.kind != tokNumber {
			return Condition{}, false, p.fail(UnexpectedToken, v, fmt.Sprintf("expected number after %q", t.text))
		}
		p.next()
		ops := map[string]CompareOp{"=": Equal, "<": Less, ">": Greater, "<=": LessEqual, ">=": GreaterEqual}
		return Condition{Op: ops[t.text], Value: v.num}, true, nil
	default:
		return Condition{}, false, nil
	}
}
