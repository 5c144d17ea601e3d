// Package dict holds the side tables built incrementally while parsing
// (§4.5 "Dictionaries"): the field dictionary, the inline-function
// dictionary, and the enum-variant dictionary. All three are populated by a
// single per-declaration callback fed from internal/parser and are
// read-only once parsing completes.
package dict

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/hkoba/go-macrogen/internal/cast"
	"github.com/hkoba/go-macrogen/internal/intern"
)

// TypeRep is a minimal, comparable type representation used by the
// dictionaries' consistent-type cache. It mirrors the "C-type{specifier,
// derived-chain}" variant (§3 "Type representation") closely enough to
// compare two field types for equality without re-deriving them from the
// AST each time.
type TypeRep struct {
	Specs *cast.DeclSpecs
	Decl  *cast.Declarator
}

// Equal reports whether two type representations denote the same surface
// type, by structural comparison of the specifier and pointer/array/function
// chain shape (ignoring source position and attribute lists, which carry no
// type information).
func (t TypeRep) Equal(o TypeRep) bool {
	return specsEqual(t.Specs, o.Specs) && declEqual(t.Decl, o.Decl)
}

func specsEqual(a, b *cast.DeclSpecs) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Spec != b.Spec || a.Sign != b.Sign || a.LongCount != b.LongCount || a.Short != b.Short {
		return false
	}
	if a.Qual != b.Qual {
		return false
	}
	switch a.Spec {
	case cast.TSTypedefName:
		return a.TypedefName == b.TypedefName
	case cast.TSStruct, cast.TSUnion:
		return a.Record != nil && b.Record != nil && a.Record.Tag == b.Record.Tag
	case cast.TSEnum:
		return a.Enum != nil && b.Enum != nil && a.Enum.Tag == b.Enum.Tag
	}
	return true
}

func declEqual(a, b *cast.Declarator) bool {
	for {
		if a == nil || b == nil {
			return a == b
		}
		if a.Kind != b.Kind {
			return false
		}
		switch a.Kind {
		case cast.DeclPointer:
			if a.PointerQual != b.PointerQual {
				return false
			}
		case cast.DeclFunction:
			if a.Variadic != b.Variadic || len(a.Params) != len(b.Params) {
				return false
			}
			for i := range a.Params {
				if !specsEqual(a.Params[i].Specs, b.Params[i].Specs) {
					return false
				}
			}
		}
		a, b = a.Inner, b.Inner
	}
}

// FieldEntry is one (struct, field) resolved type, recorded per occurrence
// (§3 "field dictionary").
type FieldEntry struct {
	Struct intern.ID
	Field  intern.ID
	Type   TypeRep
}

// FieldDict is the field dictionary (§3, §4.5): field-name → set of
// struct-names that have it, (struct,field) → type, typedef → struct, and a
// consistent-type cache built once after parsing.
type FieldDict struct {
	structsWithField map[intern.ID]map[intern.ID]bool
	fieldType        map[[2]intern.ID]TypeRep
	typedefToStruct  map[intern.ID]intern.ID

	// Overrides supplements the consistent-type cache from configured
	// field-type-overrides (§6) before the one-pass rebuild runs.
	Overrides map[[2]intern.ID]TypeRep

	consistent map[intern.ID]TypeRep
	ambiguous  map[intern.ID]bool
}

func NewFieldDict() *FieldDict {
	return &FieldDict{
		structsWithField: make(map[intern.ID]map[intern.ID]bool),
		fieldType:        make(map[[2]intern.ID]TypeRep),
		typedefToStruct:  make(map[intern.ID]intern.ID),
		Overrides:        make(map[[2]intern.ID]TypeRep),
		consistent:       make(map[intern.ID]TypeRep),
		ambiguous:        make(map[intern.ID]bool),
	}
}

// AddStruct records every field of rs (a struct/union definition with a
// body) under structName.
func (fd *FieldDict) AddStruct(structName intern.ID, rs *cast.RecordSpec) {
	if rs == nil || !rs.HasBody {
		return
	}
	for _, f := range rs.Fields {
		if fd.structsWithField[f.Name] == nil {
			fd.structsWithField[f.Name] = make(map[intern.ID]bool)
		}
		fd.structsWithField[f.Name][structName] = true
		fd.fieldType[[2]intern.ID{structName, f.Name}] = TypeRep{Specs: f.Type, Decl: f.Decl}
	}
}

// AddTypedef records name as an alias for struct structName.
func (fd *FieldDict) AddTypedef(name, structName intern.ID) {
	fd.typedefToStruct[name] = structName
}

// ResolveTypedef returns the struct name for a typedef alias, if any.
func (fd *FieldDict) ResolveTypedef(name intern.ID) (intern.ID, bool) {
	s, ok := fd.typedefToStruct[name]
	return s, ok
}

// FieldType returns the resolved type for (structName, field), if recorded.
func (fd *FieldDict) FieldType(structName, field intern.ID) (TypeRep, bool) {
	t, ok := fd.fieldType[[2]intern.ID{structName, field}]
	return t, ok
}

// StructsWithField returns every struct name known to have field, sorted for
// reproducibility (§8 "order-independent within and across macros" still
// requires a *reproducible* result, not an arbitrary one) (never empty if ok
// is true, per the invariant that set values are never empty).
func (fd *FieldDict) StructsWithField(field intern.ID) ([]intern.ID, bool) {
	m := fd.structsWithField[field]
	if len(m) == 0 {
		return nil, false
	}
	out := maps.Keys(m)
	slices.Sort(out)
	return out, true
}

// BuildConsistentTypeCache runs the single post-parse pass described in
// §4.5: for each field-name, if every (struct, field) entry resolves to the
// same type representation, cache it; otherwise mark it ambiguous. Overrides
// are applied first and always win, matching §6's "supplement" wording.
func (fd *FieldDict) BuildConsistentTypeCache() {
	fd.consistent = make(map[intern.ID]TypeRep, len(fd.structsWithField))
	fd.ambiguous = make(map[intern.ID]bool)

	for key, t := range fd.Overrides {
		fd.consistent[key[1]] = t
	}

	for field, structs := range fd.structsWithField {
		if _, already := fd.consistent[field]; already {
			continue
		}
		var first TypeRep
		have := false
		same := true
		for s := range structs {
			t, ok := fd.fieldType[[2]intern.ID{s, field}]
			if !ok {
				continue
			}
			if !have {
				first, have = t, true
				continue
			}
			if !t.Equal(first) {
				same = false
				break
			}
		}
		if have && same {
			fd.consistent[field] = first
		} else if have {
			fd.ambiguous[field] = true
		}
	}
}

// ConsistentType returns the cached consistent type for field, if every
// struct containing it gives the same type (§3, §4.6.5 "consistent-type
// cache").
func (fd *FieldDict) ConsistentType(field intern.ID) (TypeRep, bool) {
	t, ok := fd.consistent[field]
	return t, ok
}

// InlineFuncDict maps a name to its function-definition AST, filtered to
// `inline` specifiers and target-directory membership (§3, §4.5). A later
// definition with the same name supersedes an earlier one.
type InlineFuncDict struct {
	byName map[intern.ID]*cast.ExternalDecl
}

func NewInlineFuncDict() *InlineFuncDict {
	return &InlineFuncDict{byName: make(map[intern.ID]*cast.ExternalDecl)}
}

func (d *InlineFuncDict) Add(name intern.ID, fn *cast.ExternalDecl) {
	d.byName[name] = fn
}

func (d *InlineFuncDict) Lookup(name intern.ID) (*cast.ExternalDecl, bool) {
	fn, ok := d.byName[name]
	return fn, ok
}

// Names returns every inline function name currently recorded, sorted for
// reproducible output ordering (§6 "Per-inline-function" inference-result
// listing; §8).
func (d *InlineFuncDict) Names() []intern.ID {
	out := maps.Keys(d.byName)
	slices.Sort(out)
	return out
}

// EnumVariantDict maps an enum variant name to its enclosing enum's tag
// name (§3, §4.5).
type EnumVariantDict struct {
	byVariant map[intern.ID]intern.ID
}

func NewEnumVariantDict() *EnumVariantDict {
	return &EnumVariantDict{byVariant: make(map[intern.ID]intern.ID)}
}

func (d *EnumVariantDict) Add(variant, enumTag intern.ID) {
	d.byVariant[variant] = enumTag
}

func (d *EnumVariantDict) Lookup(variant intern.ID) (intern.ID, bool) {
	t, ok := d.byVariant[variant]
	return t, ok
}

// NewCollector returns an internal/parser Options.OnExternalDecl callback
// that populates all three dictionaries from the declarations a single
// parse produces (§4.5: "a single per-declaration callback"). isTarget
// gates InlineFuncDict membership by source location, per "filtered to
// target-directory membership"; struct/enum definitions are recorded
// unconditionally, since field/variant lookups must see every declared
// struct and enum regardless of which directory defined it.
func NewCollector(fd *FieldDict, ifd *InlineFuncDict, ed *EnumVariantDict, isTarget func(intern.Pos) bool) func(*cast.ExternalDecl) {
	return func(d *cast.ExternalDecl) {
		if d.IsInline() && (isTarget == nil || isTarget(d.Pos)) {
			if name, ok := d.FuncDecl.Ident(); ok {
				ifd.Add(name, d)
			}
		}
		if d.Specs != nil && d.Specs.Record != nil && d.Specs.Record.HasBody {
			fd.AddStruct(d.Specs.Record.Tag, d.Specs.Record)
			if d.IsTypedef() {
				for _, id := range d.Decls {
					if name, ok := id.Decl.Ident(); ok {
						fd.AddTypedef(name, d.Specs.Record.Tag)
					}
				}
			}
		}
		if d.Specs != nil && d.Specs.Enum != nil {
			for _, variant := range d.Specs.Enum.Variants {
				ed.Add(variant.Name, d.Specs.Enum.Tag)
			}
		}
	}
}
