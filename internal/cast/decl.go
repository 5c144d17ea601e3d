package cast

import "github.com/hkoba/go-macrogen/internal/intern"

// ExternalDeclKind distinguishes a plain declaration from a function
// definition (§3 "AST — external declarations").
type ExternalDeclKind int

const (
	EDDeclaration ExternalDeclKind = iota
	EDFunctionDef
)

// InitDeclarator pairs one declarator in a declaration with its optional
// initializer, e.g. the `a = 1, b` in `int a = 1, b;`.
type InitDeclarator struct {
	Decl *Declarator
	Init *Expr
}

// ExternalDecl is one top-level construct: a declaration (possibly defining
// a typedef, prototype, global, struct/union/enum, or variable) or a
// function definition (§3).
type ExternalDecl struct {
	Kind ExternalDeclKind
	Pos  intern.Pos

	Specs *DeclSpecs

	// EDDeclaration
	Decls []InitDeclarator

	// EDFunctionDef
	FuncDecl *Declarator
	FuncBody *Stmt

	// Recovered is set when the parser resynchronised after a syntax error
	// inside this construct (§4.4 "Failure semantics"); downstream stages
	// must treat it as unparseable.
	Recovered bool
}

// IsInline reports whether this is a function definition whose specifiers
// include `inline` (§3: "Inline functions are function definitions whose
// specifiers include inline").
func (d *ExternalDecl) IsInline() bool {
	return d.Kind == EDFunctionDef && d.Specs != nil && d.Specs.Inline
}

// IsTypedef reports whether this declaration defines one or more typedefs.
func (d *ExternalDecl) IsTypedef() bool {
	return d.Kind == EDDeclaration && d.Specs != nil && d.Specs.Storage == StorageTypedef
}
