package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/token"
)

func allTokens(t *testing.T, src string) []token.Token {
	t.Helper()
	in := intern.New()
	reg := intern.NewRegistry()
	fid := reg.RegisterPath("test.h")
	l := New(in, fid, src)
	var toks []token.Token
	for {
		tok, err := l.NextToken()
		require.Nil(t, err, "unexpected lex error: %v", err)
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks
}

func TestIdentifiersAndKeywords(t *testing.T) {
	toks := allTokens(t, "int foo_bar static")
	require.Equal(t, token.KwInt, toks[0].Kind)
	require.Equal(t, token.Identifier, toks[1].Kind)
	require.Equal(t, token.KwStatic, toks[2].Kind)
}

func TestIntegerSuffixes(t *testing.T) {
	toks := allTokens(t, "1 1u 1UL 1LL 0x10 010 0b101")
	require.Equal(t, token.WidthInt, toks[0].Lit.Width)
	require.Equal(t, token.WidthUnsignedInt, toks[1].Lit.Width)
	require.Equal(t, token.WidthUnsignedLong, toks[2].Lit.Width)
	require.Equal(t, token.WidthLongLong, toks[3].Lit.Width)
	require.EqualValues(t, 16, toks[4].Lit.Int)
	require.EqualValues(t, 8, toks[5].Lit.Int)
	require.EqualValues(t, 5, toks[6].Lit.Int)
}

func TestFloatAndHexFloat(t *testing.T) {
	toks := allTokens(t, "1.5 1.5f 0x1.8p3")
	require.Equal(t, token.FloatLiteral, toks[0].Kind)
	require.Equal(t, token.WidthDouble, toks[0].Lit.Width)
	require.Equal(t, token.WidthFloat, toks[1].Lit.Width)
	require.InDelta(t, 12.0, toks[2].Lit.Float, 0.0001)
}

func TestStringAndCharEscapes(t *testing.T) {
	toks := allTokens(t, `"a\nb" '\x41' L"wide" '\101'`)
	require.Equal(t, "a\nb", toks[0].Lit.Decoded)
	require.EqualValues(t, 'A', toks[1].Lit.Int)
	require.Equal(t, token.WidthWChar, toks[2].Lit.Width)
	require.EqualValues(t, 'A', toks[3].Lit.Int, "octal escape \\101 == 'A'")
}

func TestUniversalCharName(t *testing.T) {
	toks := allTokens(t, "\"\\u00e9\"")
	require.Equal(t, "é", toks[0].Lit.Decoded)
}

func TestLineContinuation(t *testing.T) {
	toks := allTokens(t, "foo\\\nbar")
	require.Equal(t, token.Identifier, toks[0].Kind)
	require.Equal(t, "foobar", toks[0].Text, "backslash-newline is folded before tokenization")
	require.Equal(t, token.EOF, toks[1].Kind)
}

func TestPunctuatorMaximalMunch(t *testing.T) {
	toks := allTokens(t, "<<= >>= -> ++ -- ## && ||")
	kinds := []token.Kind{token.ShlAssign, token.ShrAssign, token.Arrow, token.PlusPlus, token.MinusMinus, token.HashHash, token.AmpAmp, token.PipePipe}
	for i, k := range kinds {
		require.Equal(t, k, toks[i].Kind, "token %d", i)
	}
}

func TestUnterminatedStringIsLexicalError(t *testing.T) {
	in := intern.New()
	reg := intern.NewRegistry()
	fid := reg.RegisterPath("bad.h")
	l := New(in, fid, `"abc`)
	_, err := l.NextToken()
	require.NotNil(t, err)
}
