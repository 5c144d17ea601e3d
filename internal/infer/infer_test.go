package infer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hkoba/go-macrogen/internal/cast"
	"github.com/hkoba/go-macrogen/internal/config"
	"github.com/hkoba/go-macrogen/internal/cpp"
	"github.com/hkoba/go-macrogen/internal/diag"
	"github.com/hkoba/go-macrogen/internal/dict"
	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/parser"
)

type harness struct {
	pp         *cpp.Preprocessor
	in         *intern.Interner
	reg        *intern.Registry
	fieldDict  *dict.FieldDict
	inlineDict *dict.InlineFuncDict
	enumDict   *dict.EnumVariantDict
}

func build(t *testing.T, src string) *harness {
	t.Helper()
	in := intern.New()
	reg := intern.NewRegistry()
	ms := cpp.NewMapSource()
	ms.Files["/entry.h"] = src
	pp := cpp.New(in, reg, ms, cpp.Options{})
	toks, ferr := pp.Run("/entry.h")
	require.Nil(t, ferr)

	fd := dict.NewFieldDict()
	ifd := dict.NewInlineFuncDict()
	ed := dict.NewEnumVariantDict()
	onDecl := dict.NewCollector(fd, ifd, ed, nil)

	bag := diag.NewBag()
	par := parser.New(parser.NewSliceSource(in, toks), bag, parser.Options{
		IsAssertionMacro: pp.IsAssertionMacro,
		OnExternalDecl:   onDecl,
	})
	par.ParseTranslationUnit()
	require.Equal(t, 0, bag.Len())

	return &harness{pp: pp, in: in, reg: reg, fieldDict: fd, inlineDict: ifd, enumDict: ed}
}

func (h *harness) driver(t *testing.T, funcs *config.ExternalFuncTable, apidoc *config.ApidocTable, cfg config.Config) *Driver {
	t.Helper()
	return NewDriver(h.in, h.reg, h.pp, h.fieldDict, h.inlineDict, h.enumDict, funcs, apidoc, cfg)
}

func findRecord(res InferenceResult, in *intern.Interner, name string) *MacroRecord {
	for _, r := range res.Macros {
		if in.Lookup(r.Name) == name {
			return r
		}
	}
	return nil
}

func TestParamTypeResolvedFromKnownFunctionArgument(t *testing.T) {
	h := build(t, "#define TWICE(x) (foo(x) + foo(x))\n")
	funcs := config.NewExternalFuncTable()
	funcs.AddFunc("foo", config.FuncSig{ParamTypes: []string{"int"}, ReturnType: "int"})

	res := h.driver(t, funcs, nil, config.Config{}).Run()
	r := findRecord(res, h.in, "TWICE")
	require.NotNil(t, r)
	require.Equal(t, StatusSuccess, r.Status)
	require.Len(t, r.ParamResults, 1)
	require.True(t, r.ParamResults[0].Resolved)
	require.Equal(t, cast.TSInt, r.ParamResults[0].Type.Specs.Spec)
	require.True(t, r.ReturnOK)
	require.Equal(t, cast.TSInt, r.ReturnType.Specs.Spec)
}

func TestMemberAccessInfersBaseStructAndFieldType(t *testing.T) {
	h := build(t, "struct S { int a; };\n#define GETA(p) (p->a)\n")
	res := h.driver(t, nil, nil, config.Config{}).Run()
	r := findRecord(res, h.in, "GETA")
	require.NotNil(t, r)
	require.Equal(t, StatusSuccess, r.Status)
	require.Equal(t, cast.TSInt, r.ReturnType.Specs.Spec)
	require.True(t, r.ParamResults[0].Resolved)
	require.Equal(t, cast.TSStruct, r.ParamResults[0].Type.Specs.Spec)
	require.NotNil(t, r.ParamResults[0].Type.Decl)
	require.Equal(t, cast.DeclPointer, r.ParamResults[0].Type.Decl.Kind)
}

func TestUnparseableMacroReportsParseFailed(t *testing.T) {
	h := build(t, "#define BROKEN(x) { ) (\n")
	res := h.driver(t, nil, nil, config.Config{}).Run()
	r := findRecord(res, h.in, "BROKEN")
	require.NotNil(t, r)
	require.Equal(t, StatusParseFailed, r.Status)
	require.NotEmpty(t, r.FailReason)
}

func TestCallsUnavailablePropagatesThroughUsers(t *testing.T) {
	h := build(t, "#define LOW(x) (unknown_fn(x))\n#define HIGH(x) (LOW(x) + 1)\n")
	res := h.driver(t, nil, nil, config.Config{}).Run()
	low := findRecord(res, h.in, "LOW")
	high := findRecord(res, h.in, "HIGH")
	require.NotNil(t, low)
	require.NotNil(t, high)
	require.Equal(t, StatusCallsUnavailable, low.Status)
	require.Equal(t, StatusCallsUnavailable, high.Status)
}

func TestThreadContextFlagPropagatesBackwardsThroughUsedBy(t *testing.T) {
	h := build(t, "#define LOW(x) (aTHX_ x)\n#define HIGH(x) (LOW(x))\n")
	funcs := config.NewExternalFuncTable()
	res := h.driver(t, funcs, nil, config.Config{}).Run()
	low := findRecord(res, h.in, "LOW")
	high := findRecord(res, h.in, "HIGH")
	require.NotNil(t, low)
	require.NotNil(t, high)
	require.True(t, low.ThreadContextDependent)
	require.True(t, high.ThreadContextDependent, "HIGH uses LOW, which is thread-context-dependent")
}

func TestTokenPastingFlagPropagatesBackwardsThroughUsedBy(t *testing.T) {
	h := build(t, "#define CAT(a,b) (a##b)\n#define WRAP(a,b) (CAT(a,b))\n")
	res := h.driver(t, nil, nil, config.Config{}).Run()
	cat := findRecord(res, h.in, "CAT")
	wrap := findRecord(res, h.in, "WRAP")
	require.NotNil(t, cat)
	require.NotNil(t, wrap)
	require.True(t, cat.UsesTokenPasting)
	require.True(t, wrap.UsesTokenPasting)
}

func TestApidocReturnTypeWinsOverBodyDerivedType(t *testing.T) {
	h := build(t, "#define MAKE(x) (x)\n")
	apidoc := config.NewApidocTable()
	apidoc.Add(config.ApidocEntry{Name: "MAKE", ReturnType: "void *", Args: []config.ApidocArg{{Type: "int", Name: "x"}}})

	res := h.driver(t, nil, apidoc, config.Config{}).Run()
	r := findRecord(res, h.in, "MAKE")
	require.NotNil(t, r)
	require.True(t, r.ReturnOK)
	require.Equal(t, cast.TSVoid, r.ReturnType.Specs.Spec)
	require.NotNil(t, r.ReturnType.Decl)
	require.Equal(t, cast.DeclPointer, r.ReturnType.Decl.Kind)
}

func TestBodyLessObjectMacroReportsSkipNoBody(t *testing.T) {
	h := build(t, "#define FOO\n")
	res := h.driver(t, nil, nil, config.Config{}).Run()
	r := findRecord(res, h.in, "FOO")
	require.NotNil(t, r)
	require.Equal(t, StatusSkip, r.Status)
	require.Equal(t, "no-body", r.FailReason)
}

func TestInlineFunctionIncludedWhenConfigured(t *testing.T) {
	h := build(t, "inline int helper(int x) { return x; }\n")
	res := h.driver(t, nil, nil, config.Config{IncludeInlineFunctions: true}).Run()
	require.Len(t, res.Inlines, 1)
	require.Equal(t, "helper", h.in.Lookup(res.Inlines[0].Name))
}
