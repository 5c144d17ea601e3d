package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hkoba/go-macrogen/internal/cast"
	"github.com/hkoba/go-macrogen/internal/cpp"
	"github.com/hkoba/go-macrogen/internal/diag"
	"github.com/hkoba/go-macrogen/internal/intern"
)

func preprocess(t *testing.T, src string) ([]*cast.ExternalDecl, *intern.Interner, *diag.Bag) {
	t.Helper()
	in := intern.New()
	reg := intern.NewRegistry()
	ms := cpp.NewMapSource()
	ms.Files["/entry.h"] = src
	pp := cpp.New(in, reg, ms, cpp.Options{})
	toks, ferr := pp.Run("/entry.h")
	require.Nil(t, ferr)

	bag := diag.NewBag()
	par := New(NewSliceSource(in, toks), bag, Options{
		IsAssertionMacro: pp.IsAssertionMacro,
	})
	decls := par.ParseTranslationUnit()
	return decls, in, bag
}

func TestParsesSimpleDeclarations(t *testing.T) {
	decls, _, bag := preprocess(t, "int always_here;\n")
	require.Equal(t, 0, bag.Len())
	require.Len(t, decls, 1)
	require.Equal(t, cast.EDDeclaration, decls[0].Kind)
	require.Equal(t, cast.TSInt, decls[0].Specs.Spec)
}

func TestParsesFunctionPrototypeAndStruct(t *testing.T) {
	decls, in, bag := preprocess(t, "struct S { int a; }; int g(struct S *);\n")
	require.Equal(t, 0, bag.Len())
	require.Len(t, decls, 2)
	require.Equal(t, cast.TSStruct, decls[0].Specs.Spec)
	require.Equal(t, "a", in.Lookup(decls[0].Specs.Record.Fields[0].Name))

	fnDecl := decls[1].Decls[0].Decl
	require.Equal(t, cast.DeclFunction, fnDecl.Kind)
	name, ok := fnDecl.Ident()
	require.True(t, ok)
	require.Equal(t, "g", in.Lookup(name))
}

func TestTypedefIsRecognisedInLaterDeclarations(t *testing.T) {
	decls, _, bag := preprocess(t, "typedef struct S { int a; } S_t;\nS_t v;\n")
	require.Equal(t, 0, bag.Len())
	require.Len(t, decls, 2)
	require.True(t, decls[0].IsTypedef())
	require.Equal(t, cast.TSTypedefName, decls[1].Specs.Spec)
}

func TestMacroBodyExpandsToExpression(t *testing.T) {
	in := intern.New()
	reg := intern.NewRegistry()
	ms := cpp.NewMapSource()
	ms.Files["/entry.h"] = "#define INC(x) ((x)+1)\n"
	pp := cpp.New(in, reg, ms, cpp.Options{})
	_, ferr := pp.Run("/entry.h")
	require.Nil(t, ferr)

	m := pp.Table().Lookup(in.Intern("INC"))
	require.NotNil(t, m)

	bag := diag.NewBag()
	par := New(NewSliceSource(in, m.Body), bag, Options{})
	e := par.parseExpr()
	require.Equal(t, 0, bag.Len())
	require.Equal(t, cast.ExBinary, e.Kind)
	require.Equal(t, cast.BinAdd, e.BinOp)
}

func TestWrappedAssertionBecomesAssertNode(t *testing.T) {
	in := intern.New()
	reg := intern.NewRegistry()
	ms := cpp.NewMapSource()
	ms.Files["/entry.h"] = "#define assert(x) ((void)0)\nvoid f(void) { assert(1==1); }\n"
	pp := cpp.New(in, reg, ms, cpp.Options{})
	toks, ferr := pp.Run("/entry.h")
	require.Nil(t, ferr)

	bag := diag.NewBag()
	par := New(NewSliceSource(in, toks), bag, Options{IsAssertionMacro: pp.IsAssertionMacro})
	decls := par.ParseTranslationUnit()
	require.Equal(t, 0, bag.Len())
	require.Len(t, decls, 1)
	fn := decls[0]
	require.Equal(t, cast.EDFunctionDef, fn.Kind)
	require.Len(t, fn.FuncBody.Items, 1)
	stmt := fn.FuncBody.Items[0]
	require.Equal(t, cast.StExpr, stmt.Kind)
	require.Equal(t, cast.ExAssert, stmt.Expr.Kind)
}
