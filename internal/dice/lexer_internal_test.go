package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []token) []tokenKind {
	out := make([]tokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.kind
	}
	return out
}

func TestLex_Tokens(t *testing.T) {
	toks, err := lex("4D6dl1 + (2*3) - 1d8!>=7 / 2 3d6ro<2")
	require.NoError(t, err)
	assert.Equal(t, []tokenKind{
		tokNumber, tokDie, tokNumber, tokKeepDrop, tokNumber, tokPlus,
		tokLParen, tokNumber, tokStar, tokNumber, tokRParen, tokMinus,
		tokNumber, tokDie, tokNumber, tokExplode, tokCompare, tokNumber, tokSlash, tokNumber,
		tokNumber, tokDie, tokNumber, tokReroll, tokCompare, tokNumber,
		tokEOF,
	}, kinds(toks))

	assert.Equal(t, "d", toks[1].text, "letters are lower-cased")
	assert.Equal(t, "dl", toks[3].text)
	assert.Equal(t, 7, toks[5].pos)
	assert.Equal(t, ">=", toks[16].text)
	assert.Equal(t, "ro", toks[23].text)
	assert.Equal(t, len("4D6dl1 + (2*3) - 1d8!>=7 / 2 3d6ro<2"), toks[len(toks)-1].pos)
}

func TestLex_ModifierBeforeDie(t *testing.T) {
	toks, err := lex("2d20kh1kl1dh1")
	require.NoError(t, err)
	assert.Equal(t, []tokenKind{
		tokNumber, tokDie, tokNumber, tokKeepDrop, tokNumber, tokKeepDrop, tokNumber, tokKeepDrop, tokNumber, tokEOF,
	}, kinds(toks))
}

func TestLex_InvalidCharacterPosition(t *testing.T) {
	_, err := lex("1d6 ? 2")
	require.Error(t, err)
	perr, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, InvalidToken, perr.Kind)
	assert.Equal(t, 4, perr.Pos)
	assert.Equal(t, "?", perr.Token)
}

func TestLex_MultibyteInvalidToken(t *testing.T) {
	_, err := lex("1d6✗")
	require.Error(t, err)
	perr := err.(*ParseError)
	assert.Equal(t, 3, perr.Pos)
	assert.Equal(t, "✗", perr.Token)
}

func TestCoversAllFaces(t *testing.T) {
	r := func(op CompareOp, v int) Modifier {
		return Modifier{Kind: Reroll, Cond: Condition{Op: op, Value: v}, Limit: DefaultLimit}
	}
	assert.True(t, coversAllFaces([]Modifier{r(Equal, 1)}, 1))
	assert.False(t, coversAllFaces([]Modifier{r(Equal, 1)}, 2))
	assert.True(t, coversAllFaces([]Modifier{r(Less, 3), r(GreaterEqual, 3)}, 6))
	assert.False(t, coversAllFaces([]Modifier{r(Less, 3), r(Greater, 3)}, 6))
	assert.True(t, coversAllFaces([]Modifier{r(Equal, 2), r(Equal, 1), r(Greater, 2)}, 4))
	assert.True(t, coversAllFaces([]Modifier{r(GreaterEqual, 0)}, 3))
	assert.False(t, coversAllFaces([]Modifier{r(Greater, 10)}, 6))
}
