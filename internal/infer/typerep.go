// Package infer implements the inference driver (§4.6): per-macro body
// parsing in a synthetic-argument mode, the name-use graph and its
// thread-context/token-pasting flag propagation, the availability check,
// constraint collection over parsed macro bodies, type selection for
// parameters and return types, and the fixed-point driver that ties them
// together.
package infer

import (
	"strings"

	"github.com/hkoba/go-macrogen/internal/cast"
	"github.com/hkoba/go-macrogen/internal/dict"
	"github.com/hkoba/go-macrogen/internal/intern"
)

// TypeRep is the type representation constraints carry. The closed variant
// described in §3 ("C-type | host-type | inferred") collapses here to
// dict.TypeRep's (Specs, Decl) pair: every concrete type this driver ever
// proposes — a literal's canonical type, an external declaration's type
// string, a cast target lifted straight from the AST — is expressible as a
// DeclSpecs plus a derived-declarator chain, so a second variant tag would
// carry no information a caller couldn't already get from Specs.Spec.
type TypeRep = dict.TypeRep

// IsVoid reports whether t denotes `void` with no derived chain — the "no
// information" type that a parameter or return type only accepts as a last
// resort (§4.6.6 "A candidate typed void ... is used only if nothing else
// is available").
func IsVoid(t TypeRep) bool {
	return t.Decl == nil && t.Specs != nil && t.Specs.Spec == cast.TSVoid && !t.Specs.Qual.Const
}

var voidType = TypeRep{Specs: &cast.DeclSpecs{Spec: cast.TSVoid}}

func VoidType() TypeRep { return voidType }

func primitive(spec cast.TypeSpecKind, sign cast.Signedness, longCount int) TypeRep {
	return TypeRep{Specs: &cast.DeclSpecs{Spec: spec, Sign: sign, LongCount: longCount}}
}

func pointerTo(t TypeRep) TypeRep {
	return TypeRep{Specs: t.Specs, Decl: &cast.Declarator{Kind: cast.DeclPointer, Inner: t.Decl}}
}

// LiteralType returns the canonical C type for a literal classification
// (§4.6.5 "Literal.").
func LiteralType(lc cast.LiteralClass) TypeRep {
	switch lc {
	case cast.LitInt:
		return primitive(cast.TSInt, cast.SignDefault, 0)
	case cast.LitUnsignedInt:
		return primitive(cast.TSInt, cast.SignUnsigned, 0)
	case cast.LitLong:
		return primitive(cast.TSInt, cast.SignDefault, 1)
	case cast.LitUnsignedLong:
		return primitive(cast.TSInt, cast.SignUnsigned, 1)
	case cast.LitLongLong:
		return primitive(cast.TSInt, cast.SignDefault, 2)
	case cast.LitUnsignedLongLong:
		return primitive(cast.TSInt, cast.SignUnsigned, 2)
	case cast.LitFloat:
		return primitive(cast.TSFloat, cast.SignDefault, 0)
	case cast.LitDouble:
		return primitive(cast.TSDouble, cast.SignDefault, 0)
	case cast.LitChar:
		return primitive(cast.TSChar, cast.SignDefault, 0)
	case cast.LitWChar:
		return primitive(cast.TSInt, cast.SignDefault, 0)
	case cast.LitStringPtr:
		return pointerTo(TypeRep{Specs: &cast.DeclSpecs{Spec: cast.TSChar, Qual: cast.Qualifiers{Const: true}}})
	case cast.LitWideStringPtr:
		return pointerTo(TypeRep{Specs: &cast.DeclSpecs{Spec: cast.TSInt, Qual: cast.Qualifiers{Const: true}}})
	}
	return voidType
}

// ParseTypeString builds a TypeRep from a type string as supplied by the
// external function declaration table or the apidoc table (§6 "the
// inference driver consumes types via the same string-to-type parser used
// elsewhere"). It handles the common subset actually seen in declaration
// tables: an optional `const`/`volatile`, an optional sign, an optional
// long/short count, a primitive or struct/union keyword or typedef name,
// and trailing `*` pointer stars. Anything odder falls back to treating
// the whole string as an opaque typedef name.
func ParseTypeString(in *intern.Interner, s string) TypeRep {
	s = strings.TrimSpace(s)
	stars := 0
	for strings.HasSuffix(s, "*") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "*"))
		stars++
	}
	words := strings.Fields(s)
	specs := &cast.DeclSpecs{}
	sawSpec := false
	for i := 0; i < len(words); i++ {
		switch words[i] {
		case "const":
			specs.Qual.Const = true
		case "volatile":
			specs.Qual.Volatile = true
		case "unsigned":
			specs.Sign = cast.SignUnsigned
		case "signed":
			specs.Sign = cast.SignSigned
		case "long":
			specs.LongCount++
		case "short":
			specs.Short = true
		case "void":
			specs.Spec, sawSpec = cast.TSVoid, true
		case "char":
			specs.Spec, sawSpec = cast.TSChar, true
		case "int":
			specs.Spec, sawSpec = cast.TSInt, true
		case "float":
			specs.Spec, sawSpec = cast.TSFloat, true
		case "double":
			specs.Spec, sawSpec = cast.TSDouble, true
		case "struct", "union":
			isUnion := words[i] == "union"
			tag := intern.ID(0)
			if i+1 < len(words) {
				tag = in.Intern(words[i+1])
				i++
			}
			specKind := cast.TSStruct
			if isUnion {
				specKind = cast.TSUnion
			}
			specs.Spec, sawSpec = specKind, true
			specs.Record = &cast.RecordSpec{Tag: tag, IsUnion: isUnion}
		default:
			specs.Spec, sawSpec = cast.TSTypedefName, true
			specs.TypedefName = in.Intern(words[i])
		}
	}
	if !sawSpec {
		specs.Spec = cast.TSInt
	}

	var decl *cast.Declarator
	for k := 0; k < stars; k++ {
		decl = &cast.Declarator{Kind: cast.DeclPointer, Inner: decl}
	}
	return TypeRep{Specs: specs, Decl: decl}
}

// OriginTag records where a candidate type came from, so ties between
// competing constraints on the same parameter can be broken by provenance
// (§4.6.6). Declared in descending rank order; lower numeric value wins.
type OriginTag int

const (
	OriginArgOfKnownFunction OriginTag = iota
	OriginArgOfKnownInline
	OriginApidoc
	OriginCastTarget
	OriginMemberAccessUniqueStruct
	OriginSymbolLookupTypedef
	OriginConsistentFieldType
	OriginLiteralClass
	// OriginDerived covers composite-expression result types (binary,
	// conditional, call, assignment) that §4.6.6's table does not rank
	// explicitly because they are never themselves competing parameter
	// candidates directly — they only feed further constraints through
	// parameter links. Ranked below literal class so an explicit literal
	// or lookup-derived candidate always wins a tie against one.
	OriginDerived
)

// Constraint is a (type, origin) pair (§3 "Type-constraint environment").
type Constraint struct {
	Type   TypeRep
	Origin OriginTag
}

// Env is the per-macro type-constraint environment (§3, §4.6.5): a
// parameter-name constraint list, an ExprId constraint list, and the
// param-link table recording which ExprIds are parameter references.
type Env struct {
	ParamConstraints map[intern.ID][]Constraint
	ExprConstraints  map[cast.ExprId][]Constraint
	ParamLinks       map[cast.ExprId]intern.ID
}

func NewEnv() *Env {
	return &Env{
		ParamConstraints: make(map[intern.ID][]Constraint),
		ExprConstraints:  make(map[cast.ExprId][]Constraint),
		ParamLinks:       make(map[cast.ExprId]intern.ID),
	}
}

func (e *Env) addExpr(id cast.ExprId, c Constraint) {
	if id == 0 {
		return
	}
	e.ExprConstraints[id] = append(e.ExprConstraints[id], c)
}

func (e *Env) addParam(name intern.ID, c Constraint) {
	e.ParamConstraints[name] = append(e.ParamConstraints[name], c)
}

func (e *Env) linkParam(id cast.ExprId, param intern.ID) {
	e.ParamLinks[id] = param
}
