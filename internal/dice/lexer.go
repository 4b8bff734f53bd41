package dice

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
)

// diceLexer tokenizes dice notation. Rules are tried in order, so the
// two-letter keep/drop modifiers must precede the bare die marker.
var diceLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Number", Pattern: `[0-9]+`},
	{Name: "KeepDrop", Pattern: `(?i)(?:kh|kl|dh|dl)`},
	{Name: "Reroll", Pattern: `(?i)(?:ro|r)`},
	{Name: "Die", Pattern: `(?i)d`},
	{Name: "Explode", Pattern: `!`},
	{Name: "Compare", Pattern: `<=|>=|<|>|=`},
	{Name: "Operator", Pattern: `[-+*/]`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
})

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokDie
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokKeepDrop
	tokReroll
	tokExplode
	tokCompare
)

type token struct {
	kind tokenKind
	text string // lower-cased source text
	pos  int    // byte offset in the expression
	num  int    // value of a tokNumber
}

var symbolKinds = func() map[lexer.TokenType]string {
	out := make(map[lexer.TokenType]string)
	for name, typ := range diceLexer.Symbols() {
		out[typ] = name
	}
	return out
}()

// lex converts expr into tokens terminated by a tokEOF token.
//
// Postcondition: on failure the error is a *ParseError with Kind InvalidToken.
func lex(expr string) ([]token, error) {
	lx, err := diceLexer.LexString("", expr)
	if err != nil {
		return nil, invalidToken(expr, 0, err)
	}

	var toks []token
	for {
		t, err := lx.Next()
		if err != nil {
			pos := 0
			var lerr *lexer.Error
			if errors.As(err, &lerr) {
				pos = lerr.Pos.Offset
			}
			return nil, invalidToken(expr, pos, err)
		}
		if t.EOF() {
			toks = append(toks, token{kind: tokEOF, pos: len(expr)})
			return toks, nil
		}

		tok := token{text: strings.ToLower(t.Value), pos: t.Pos.Offset}
		switch symbolKinds[t.Type] {
		case "Whitespace":
			continue
		case "Number":
			n, err := strconv.Atoi(t.Value)
			if err != nil {
				return nil, &ParseError{
					Kind: InvalidToken, Pos: tok.pos, Token: t.Value, Expression: expr,
					Msg: "number out of range",
				}
			}
			tok.kind, tok.num = tokNumber, n
		case "KeepDrop":
			tok.kind = tokKeepDrop
		case "Reroll":
			tok.kind = tokReroll
		case "Die":
			tok.kind = tokDie
		case "Explode":
			tok.kind = tokExplode
		case "Compare":
			tok.kind = tokCompare
		case "Operator":
			switch t.Value {
			case "+":
				tok.kind = tokPlus
			case "-":
				tok.kind = tokMinus
			case "*":
				tok.kind = tokStar
			default:
				tok.kind = tokSlash
			}
		case "LParen":
			tok.kind = tokLParen
		case "RParen":
			tok.kind = tokRParen
		default:
			return nil, &ParseError{Kind: InvalidToken, Pos: tok.pos, Token: t.Value, Expression: expr}
		}
		toks = append(toks, tok)
	}
}

func invalidToken(expr string, pos int, cause error) *ParseError {
	tok := ""
	if pos < len(expr) {
		_, size := utf8.DecodeRuneInString(expr[pos:])
		tok = expr[pos : pos+size]
	}
	return &ParseError{Kind: InvalidToken, Pos: pos, Token: tok, Expression: expr, Msg: cause.Error()}
}
