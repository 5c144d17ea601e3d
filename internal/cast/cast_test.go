package cast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hkoba/go-macrogen/internal/intern"
)

func TestDeclaratorIdentWalksInnerChain(t *testing.T) {
	in := intern.New()
	name := in.Intern("p")
	d := &Declarator{
		Kind: DeclPointer,
		Inner: &Declarator{
			Kind:    DeclIdent,
			Name:    name,
			HasName: true,
		},
	}
	got, ok := d.Ident()
	require.True(t, ok)
	require.Equal(t, name, got)
}

func TestDeclaratorIdentAbstractHasNoName(t *testing.T) {
	d := &Declarator{Kind: DeclPointer, Inner: &Declarator{Kind: DeclIdent}}
	_, ok := d.Ident()
	require.False(t, ok)
}

func TestIdAllocatorIsDenseAndSequential(t *testing.T) {
	var a IdAllocator
	require.Equal(t, ExprId(1), a.Next())
	require.Equal(t, ExprId(2), a.Next())
	require.Equal(t, ExprId(3), a.Next())
}

func TestExternalDeclClassification(t *testing.T) {
	typedefDecl := &ExternalDecl{Kind: EDDeclaration, Specs: &DeclSpecs{Storage: StorageTypedef}}
	require.True(t, typedefDecl.IsTypedef())
	require.False(t, typedefDecl.IsInline())

	inlineFn := &ExternalDecl{Kind: EDFunctionDef, Specs: &DeclSpecs{Inline: true}}
	require.True(t, inlineFn.IsInline())
	require.False(t, inlineFn.IsTypedef())
}
