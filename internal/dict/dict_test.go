package dict

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hkoba/go-macrogen/internal/cast"
	"github.com/hkoba/go-macrogen/internal/intern"
)

func TestConsistentTypeCacheAgreement(t *testing.T) {
	in := intern.New()
	fieldA := in.Intern("a")
	structS := in.Intern("S")
	structT := in.Intern("T")

	intSpecs := &cast.DeclSpecs{Spec: cast.TSInt}

	fd := NewFieldDict()
	fd.AddStruct(structS, &cast.RecordSpec{HasBody: true, Fields: []cast.Field{{Name: fieldA, Type: intSpecs}}})
	fd.AddStruct(structT, &cast.RecordSpec{HasBody: true, Fields: []cast.Field{{Name: fieldA, Type: intSpecs}}})
	fd.BuildConsistentTypeCache()

	got, ok := fd.ConsistentType(fieldA)
	require.True(t, ok)
	require.Equal(t, cast.TSInt, got.Specs.Spec)
}

func TestConsistentTypeCacheDisagreement(t *testing.T) {
	in := intern.New()
	fieldA := in.Intern("a")
	structS := in.Intern("S")
	structT := in.Intern("T")

	fd := NewFieldDict()
	fd.AddStruct(structS, &cast.RecordSpec{HasBody: true, Fields: []cast.Field{{Name: fieldA, Type: &cast.DeclSpecs{Spec: cast.TSInt}}}})
	fd.AddStruct(structT, &cast.RecordSpec{HasBody: true, Fields: []cast.Field{{Name: fieldA, Type: &cast.DeclSpecs{Spec: cast.TSDouble}}}})
	fd.BuildConsistentTypeCache()

	_, ok := fd.ConsistentType(fieldA)
	require.False(t, ok)
}

func TestFieldTypeOverrideWins(t *testing.T) {
	in := intern.New()
	fieldA := in.Intern("a")
	structS := in.Intern("S")

	fd := NewFieldDict()
	fd.AddStruct(structS, &cast.RecordSpec{HasBody: true, Fields: []cast.Field{{Name: fieldA, Type: &cast.DeclSpecs{Spec: cast.TSInt}}}})
	overrideType := TypeRep{Specs: &cast.DeclSpecs{Spec: cast.TSDouble}}
	fd.Overrides[[2]intern.ID{structS, fieldA}] = overrideType
	fd.BuildConsistentTypeCache()

	got, ok := fd.ConsistentType(fieldA)
	require.True(t, ok)
	require.Equal(t, cast.TSDouble, got.Specs.Spec)
}

func TestInlineFuncDictLastWins(t *testing.T) {
	in := intern.New()
	name := in.Intern("helper")
	d := NewInlineFuncDict()
	first := &cast.ExternalDecl{Kind: cast.EDFunctionDef}
	second := &cast.ExternalDecl{Kind: cast.EDFunctionDef, Recovered: true}
	d.Add(name, first)
	d.Add(name, second)
	got, ok := d.Lookup(name)
	require.True(t, ok)
	require.Same(t, second, got)
}

func TestEnumVariantDict(t *testing.T) {
	in := intern.New()
	variant := in.Intern("RED")
	enumTag := in.Intern("Color")
	d := NewEnumVariantDict()
	d.Add(variant, enumTag)
	got, ok := d.Lookup(variant)
	require.True(t, ok)
	require.Equal(t, enumTag, got)
}
