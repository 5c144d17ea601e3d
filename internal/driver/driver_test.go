package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hkoba/go-macrogen/internal/cast"
	"github.com/hkoba/go-macrogen/internal/config"
	"github.com/hkoba/go-macrogen/internal/infer"
)

func writeEntry(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "entry.h")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunResolvesMacroParamFromExternalFunction(t *testing.T) {
	entry := writeEntry(t, "#define TWICE(x) (foo(x) + foo(x))\n")
	funcs := config.NewExternalFuncTable()
	funcs.AddFunc("foo", config.FuncSig{ParamTypes: []string{"int"}, ReturnType: "int"})

	res, fatal := Run(config.Config{EntryFiles: []string{entry}}, funcs, nil, nil)
	require.Nil(t, fatal)
	require.Len(t, res.Inference.Macros, 1)
	r := res.Inference.Macros[0]
	require.Equal(t, infer.StatusSuccess, r.Status)
	require.Equal(t, cast.TSInt, r.ReturnType.Specs.Spec)
}

func TestRunAccumulatesWarningsWithoutAborting(t *testing.T) {
	entry := writeEntry(t, "#warning deprecated header\n#define FOO 1\n")
	res, fatal := Run(config.Config{EntryFiles: []string{entry}}, nil, nil, nil)
	require.Nil(t, fatal)
	require.NotEmpty(t, res.Warnings)
	require.Len(t, res.Inference.Macros, 1)
}

func TestRunReturnsFatalErrorOnMissingEntryFile(t *testing.T) {
	_, fatal := Run(config.Config{EntryFiles: []string{"/nonexistent/path/entry.h"}}, nil, nil, nil)
	require.NotNil(t, fatal)
}

func TestRunAppliesFieldTypeOverride(t *testing.T) {
	// S and T disagree on field "a"'s type, which would otherwise leave the
	// consistent-type cache ambiguous; the override breaks the tie (§6
	// "field-type-overrides").
	entry := writeEntry(t, "struct S { int a; };\nstruct T { char a; };\n#define GETA(p) (p->a)\n")
	res, fatal := Run(config.Config{
		EntryFiles: []string{entry},
		FieldTypeOverrides: []config.FieldTypeOverride{
			{StructName: "T", FieldName: "a", Type: "long"},
		},
	}, nil, nil, nil)
	require.Nil(t, fatal)
	require.Len(t, res.Inference.Macros, 1)
	r := res.Inference.Macros[0]
	require.True(t, r.ReturnOK)
	require.Equal(t, cast.TSInt, r.ReturnType.Specs.Spec)
	require.Equal(t, 1, r.ReturnType.Specs.LongCount)
}
