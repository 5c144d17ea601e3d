package cpp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/token"
)

func run(t *testing.T, src string, opt Options) ([]token.Token, *Preprocessor) {
	t.Helper()
	in := intern.New()
	reg := intern.NewRegistry()
	ms := NewMapSource()
	ms.Files["/entry.h"] = src
	p := New(in, reg, ms, opt)
	toks, ferr := p.Run("/entry.h")
	require.Nil(t, ferr, "unexpected fatal error")
	return toks, p
}

func identNames(in *intern.Interner, toks []token.Token) []string {
	var out []string
	for _, t := range toks {
		if t.Kind == token.Identifier {
			out = append(out, in.Lookup(t.Name))
		}
	}
	return out
}

func TestObjectLikeMacroExpansion(t *testing.T) {
	toks, p := run(t, "#define FOO 42\nint x = FOO;\n", Options{})
	require.Equal(t, 0, p.Bag.Len())
	var found bool
	for _, tk := range toks {
		if tk.Kind == token.IntLiteral && tk.Lit.Int == 42 {
			found = true
		}
	}
	require.True(t, found, "expected expanded literal 42 in output: %v", toks)
}

func TestFunctionLikeMacroExpansion(t *testing.T) {
	toks, p := run(t, "#define INC(x) ((x)+1)\nint y = INC(z);\n", Options{})
	require.Equal(t, 0, p.Bag.Len())
	names := identNames(p.in, toks)
	require.Contains(t, names, "z")
	require.NotContains(t, names, "INC")
}

func TestStringizeAndPaste(t *testing.T) {
	toks, p := run(t, "#define STR(x) #x\n#define CAT(a,b) a##b\nconst char *s = STR(hello);\nint CAT(foo,bar);\n", Options{})
	require.Equal(t, 0, p.Bag.Len())
	var sawString bool
	var sawPasted bool
	for _, tk := range toks {
		if tk.Kind == token.StringLiteral && tk.Lit.Decoded == "hello" {
			sawString = true
		}
		if tk.Kind == token.Identifier && p.in.Lookup(tk.Name) == "foobar" {
			sawPasted = true
		}
	}
	require.True(t, sawString, "expected stringized \"hello\": %v", toks)
	require.True(t, sawPasted, "expected pasted identifier foobar: %v", toks)
}

func TestVariadicMacro(t *testing.T) {
	toks, p := run(t, "#define LOG(fmt, ...) printf(fmt, __VA_ARGS__)\nLOG(\"x\", 1, 2);\n", Options{})
	require.Equal(t, 0, p.Bag.Len())
	names := identNames(p.in, toks)
	require.Contains(t, names, "printf")
	require.NotContains(t, names, "LOG")
}

func TestIncludeOnce(t *testing.T) {
	in := intern.New()
	reg := intern.NewRegistry()
	ms := NewMapSource()
	ms.Files["/a.h"] = "#ifndef A_H\n#define A_H\nint from_a;\n#endif\n"
	ms.Files["/entry.h"] = "#include \"/a.h\"\n#include \"/a.h\"\n"
	p := New(in, reg, ms, Options{})
	toks, ferr := p.Run("/entry.h")
	require.Nil(t, ferr)
	names := identNames(p.in, toks)
	count := 0
	for _, n := range names {
		if n == "from_a" {
			count++
		}
	}
	require.Equal(t, 1, count, "expected from_a exactly once, got tokens: %v", toks)
}

func TestWrappedMacroMarkers(t *testing.T) {
	toks, p := run(t, "#define assert(x) ((void)0)\nassert(1==1);\n", Options{})
	require.Equal(t, 0, p.Bag.Len())
	var begins, ends int
	for _, tk := range toks {
		switch tk.Kind {
		case token.MacroBeginMark:
			begins++
		case token.MacroEndMark:
			ends++
		}
	}
	require.Equal(t, 1, begins)
	require.Equal(t, 1, ends)
}

func TestConditionalCompilationScenarioS6(t *testing.T) {
	src := `#define SHIFT_A 4
#define SHIFT_B 2
#define FLAG_1 (1<<0)
#define FLAG_2 (1<<1)
#define FLAG_3 (1<<2)
#define ALL_FLAGS (FLAG_1|FLAG_2|FLAG_3)
#define nBIT_MASK(n) (((1ULL)<<(n))-1)
#if ALL_FLAGS != ((nBIT_MASK(SHIFT_A)) & (~(nBIT_MASK(SHIFT_B))))
int should_appear;
#endif
int always_here;
`
	toks, p := run(t, src, Options{})
	require.Equal(t, 0, p.Bag.Len())
	names := identNames(p.in, toks)
	require.Contains(t, names, "always_here")
	require.NotContains(t, names, "should_appear")
}

func TestUndefRemovesMacro(t *testing.T) {
	toks, p := run(t, "#define X 1\n#undef X\nint X;\n", Options{})
	require.Equal(t, 0, p.Bag.Len())
	var sawIdentX bool
	for _, tk := range toks {
		if tk.Kind == token.Identifier && p.in.Lookup(tk.Name) == "X" {
			sawIdentX = true
		}
	}
	require.True(t, sawIdentX)
}

func TestUnterminatedConditionalIsFatal(t *testing.T) {
	in := intern.New()
	reg := intern.NewRegistry()
	ms := NewMapSource()
	ms.Files["/entry.h"] = "#ifdef FOO\nint x;\n"
	p := New(in, reg, ms, Options{})
	_, ferr := p.Run("/entry.h")
	require.NotNil(t, ferr)
}

func TestSkipExpandSuppressesExpansion(t *testing.T) {
	toks, p := run(t, "#define NOPE 99\nint NOPE;\n", Options{SkipExpandNames: []string{"NOPE"}})
	require.Equal(t, 0, p.Bag.Len())
	names := identNames(p.in, toks)
	require.Contains(t, names, "NOPE")
}
