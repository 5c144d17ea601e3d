// Package cast holds the C abstract-syntax-tree node definitions (§3 "AST"):
// declaration specifiers, derived-type declarators, expressions, statements,
// and external declarations. The inference driver (internal/infer) walks
// these trees; the parser (internal/parser) builds them.
package cast

import "github.com/hkoba/go-macrogen/internal/intern"

// StorageClass is at most one of typedef/extern/static/auto/register.
type StorageClass int

const (
	StorageNone StorageClass = iota
	StorageTypedef
	StorageExtern
	StorageStatic
	StorageAuto
	StorageRegister
)

// TypeSpecKind tags the type-specifier portion of a DeclSpecs.
type TypeSpecKind int

const (
	TSVoid TypeSpecKind = iota
	TSChar
	TSInt
	TSFloat
	TSDouble
	TSBool
	TSTypedefName // Name holds the referenced typedef
	TSStruct      // Record holds the struct/union spec
	TSUnion
	TSEnum // Record holds the enum spec
	TSTypeofExpr
	TSTypeofType
)

// Signedness and long/short counts apply to TSInt/TSChar/TSDouble.
type Signedness int

const (
	SignDefault Signedness = iota
	SignSigned
	SignUnsigned
)

// RecordSpec is a struct/union definition or forward reference.
type RecordSpec struct {
	Tag      intern.ID // 0 if anonymous
	IsUnion  bool
	Fields   []Field // nil for a forward reference without a body
	HasBody  bool
	DefinedAt intern.Pos
}

// Field is one struct/union member.
type Field struct {
	Name intern.ID
	Type *DeclSpecs
	Decl *Declarator
}

// EnumSpec is an enum definition or forward reference.
type EnumSpec struct {
	Tag      intern.ID
	Variants []EnumVariant
	HasBody  bool
}

type EnumVariant struct {
	Name  intern.ID
	Value *Expr // nil if implicit (prior value + 1)
}

// Qualifiers bundles the type-qualifier bits (const/volatile/restrict/atomic).
type Qualifiers struct {
	Const, Volatile, Restrict, Atomic bool
}

// DeclSpecs bundles everything that precedes a declarator: storage class,
// function specifiers, qualifiers, and the type specifier itself (§3).
type DeclSpecs struct {
	Storage StorageClass

	Inline   bool
	Noreturn bool

	Qual Qualifiers

	Spec       TypeSpecKind
	Sign       Signedness
	LongCount  int // 0, 1 ("long"), or 2 ("long long")
	Short      bool

	TypedefName intern.ID   // valid when Spec == TSTypedefName
	Record      *RecordSpec // valid when Spec == TSStruct/TSUnion
	Enum        *EnumSpec   // valid when Spec == TSEnum
	TypeofExpr  *Expr       // valid when Spec == TSTypeofExpr
	TypeofType  *DeclSpecs  // valid when Spec == TSTypeofType
	TypeofDecl  *Declarator // paired with TypeofType, for typeof(T*) etc.

	Attrs []Attribute
}

// Attribute records one `__attribute__((name(args...)))` entry. The parser
// attaches these to the nearest declarator or DeclSpecs without otherwise
// acting on them (§4.4 "Extensions").
type Attribute struct {
	Name intern.ID
	Args []*Expr
}

// DeclaratorKind tags one link of a Declarator's derived-type chain.
type DeclaratorKind int

const (
	DeclIdent DeclaratorKind = iota
	DeclPointer
	DeclArray
	DeclFunction
	DeclParen // a parenthesized sub-declarator, e.g. `(*f)(int)`
)

// ParamDecl is one parameter in a function declarator.
type ParamDecl struct {
	Specs *DeclSpecs
	Decl  *Declarator // may be nil (abstract/unnamed parameter)
}

// Declarator is one link of the derived-type chain described in §3:
// `Pointer{qualifiers}`, `Array{size-expr?}`, `Function{params, variadic?}`,
// or a bare identifier, each optionally wrapping an inner Declarator.
type Declarator struct {
	Kind DeclaratorKind

	// DeclIdent
	Name    intern.ID
	HasName bool

	// DeclPointer
	PointerQual Qualifiers

	// DeclArray
	ArraySize *Expr // nil for `[]` / `[*]`

	// DeclFunction
	Params   []ParamDecl
	Variadic bool

	Inner *Declarator // the declarator this one wraps, if any

	Attrs []Attribute
}

// Ident returns the identifier introduced by d, walking through its inner
// chain. Returns (0, false) for an abstract declarator.
func (d *Declarator) Ident() (intern.ID, bool) {
	for cur := d; cur != nil; cur = cur.Inner {
		if cur.Kind == DeclIdent && cur.HasName {
			return cur.Name, true
		}
	}
	return 0, false
}
