package infer

import (
	"github.com/hkoba/go-macrogen/internal/cast"
	"github.com/hkoba/go-macrogen/internal/intern"
)

// calleeType is what the visitor needs to know about a name that can be
// called: its parameter types (for argument constraints) and its return
// type (for the call's own result), however the driver settled on them
// (external declaration, inline function, or another macro whose return
// type is already known).
type calleeType struct {
	ParamTypes []TypeRep
	ReturnType TypeRep
	IsInline   bool
}

// localScope is a tiny declaration scope for statement-expression bodies
// (§4.6.5 "The visitor maintains a lightweight scope over local
// declarations inside statement expressions").
type localScope struct {
	vars   map[intern.ID]TypeRep
	parent *localScope
}

func (s *localScope) lookup(name intern.ID) (TypeRep, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
	}
	return TypeRep{}, false
}

// visitor collects the name-use graph and the type-constraint environment
// for one macro body in a single walk (§4.6.2, §4.6.5).
type visitor struct {
	d     *Driver
	env   *Env
	uses  map[intern.ID]bool
	synth map[intern.ID]intern.ID // synthetic arg identifier -> real parameter name
}

func newVisitor(d *Driver, synth map[intern.ID]intern.ID) *visitor {
	return &visitor{d: d, env: NewEnv(), uses: make(map[intern.ID]bool), synth: synth}
}

func (v *visitor) walkExpr(e *cast.Expr, scope *localScope) TypeRep {
	if e == nil {
		return voidType
	}
	switch e.Kind {
	case cast.ExIntLit, cast.ExFloatLit, cast.ExCharLit, cast.ExStringLit:
		t := LiteralType(e.LitClass)
		v.env.addExpr(e.Id, Constraint{Type: t, Origin: OriginLiteralClass})
		return t

	case cast.ExIdent:
		if param, ok := v.synth[e.Name]; ok {
			v.env.linkParam(e.Id, param)
			if t, ok := v.bestParamType(param); ok {
				return t
			}
			return voidType
		}
		if t, ok := scope.lookup(e.Name); ok {
			v.env.addExpr(e.Id, Constraint{Type: t, Origin: OriginSymbolLookupTypedef})
			return t
		}
		if enumTag, ok := v.d.enumDict.Lookup(e.Name); ok {
			t := TypeRep{Specs: &cast.DeclSpecs{Spec: cast.TSEnum, Enum: &cast.EnumSpec{Tag: enumTag}}}
			v.env.addExpr(e.Id, Constraint{Type: t, Origin: OriginSymbolLookupTypedef})
			return t
		}
		v.recordUse(e.Name)
		if callee, ok := v.d.calleeType(e.Name); ok {
			v.env.addExpr(e.Id, Constraint{Type: callee.ReturnType, Origin: OriginSymbolLookupTypedef})
			return callee.ReturnType
		}
		return voidType

	case cast.ExUnary:
		a := v.walkExpr(e.A, scope)
		t := a
		switch e.UnOp {
		case cast.UnAddr:
			t = pointerTo(a)
		case cast.UnDeref:
			if a.Decl != nil && a.Decl.Kind == cast.DeclPointer {
				t = TypeRep{Specs: a.Specs, Decl: a.Decl.Inner}
			}
		case cast.UnSizeofExpr, cast.UnSizeofType, cast.UnAlignofType:
			t = primitive(cast.TSInt, cast.SignUnsigned, 1)
		}
		v.env.addExpr(e.Id, Constraint{Type: t, Origin: OriginDerived})
		return t

	case cast.ExBinary:
		a := v.walkExpr(e.A, scope)
		b := v.walkExpr(e.B, scope)
		t := binResultType(e.BinOp, a, b)
		v.env.addExpr(e.Id, Constraint{Type: t, Origin: OriginDerived})
		return t

	case cast.ExConditional:
		v.walkExpr(e.Cond, scope)
		then := v.walkExpr(e.Then, scope)
		els := v.walkExpr(e.Else, scope)
		t := then
		if IsVoid(then) {
			t = els
		}
		v.env.addExpr(e.Id, Constraint{Type: t, Origin: OriginDerived})
		return t

	case cast.ExMember, cast.ExPtrMember:
		base := v.walkExpr(e.Base, scope)
		t, baseStruct, inferredBase, origin := v.resolveFieldAccess(e, base)
		v.env.addExpr(e.Id, Constraint{Type: t, Origin: origin})
		if inferredBase && e.Base != nil {
			baseType := baseStruct
			if e.Kind == cast.ExPtrMember {
				baseType = pointerTo(baseStruct)
			}
			v.env.addExpr(e.Base.Id, Constraint{Type: baseType, Origin: origin})
			if param, ok := v.env.ParamLinks[e.Base.Id]; ok {
				v.env.addParam(param, Constraint{Type: baseType, Origin: origin})
			}
		}
		return t

	case cast.ExCall:
		var callee *calleeType
		if e.Callee != nil && e.Callee.Kind == cast.ExIdent {
			v.recordUse(e.Callee.Name)
			if c, ok := v.d.calleeType(e.Callee.Name); ok {
				callee = &c
			}
		} else {
			v.walkExpr(e.Callee, scope)
		}
		origin := OriginArgOfKnownFunction
		if callee != nil && callee.IsInline {
			origin = OriginArgOfKnownInline
		}
		for i, a := range e.Args {
			v.walkExpr(a, scope)
			if callee != nil && i < len(callee.ParamTypes) {
				v.env.addExpr(a.Id, Constraint{Type: callee.ParamTypes[i], Origin: origin})
				if param, ok := v.env.ParamLinks[a.Id]; ok {
					v.env.addParam(param, Constraint{Type: callee.ParamTypes[i], Origin: origin})
				}
			}
		}
		t := voidType
		if callee != nil {
			t = callee.ReturnType
		}
		v.env.addExpr(e.Id, Constraint{Type: t, Origin: OriginDerived})
		return t

	case cast.ExSubscript:
		arr := v.walkExpr(e.Array, scope)
		v.walkExpr(e.Index, scope)
		t := voidType
		if arr.Decl != nil && (arr.Decl.Kind == cast.DeclPointer || arr.Decl.Kind == cast.DeclArray) {
			t = TypeRep{Specs: arr.Specs, Decl: arr.Decl.Inner}
		}
		v.env.addExpr(e.Id, Constraint{Type: t, Origin: OriginDerived})
		return t

	case cast.ExCast:
		v.walkExpr(e.Operand, scope)
		t := TypeRep{Specs: e.CastType, Decl: e.CastDecl}
		v.env.addExpr(e.Id, Constraint{Type: t, Origin: OriginCastTarget})
		return t

	case cast.ExCompoundLiteral:
		for _, item := range e.InitList {
			v.walkExpr(item, scope)
		}
		t := TypeRep{Specs: e.CastType, Decl: e.CastDecl}
		v.env.addExpr(e.Id, Constraint{Type: t, Origin: OriginCastTarget})
		return t

	case cast.ExComma:
		var t TypeRep
		for _, item := range e.List {
			t = v.walkExpr(item, scope)
		}
		v.env.addExpr(e.Id, Constraint{Type: t, Origin: OriginDerived})
		return t

	case cast.ExStatementExpr:
		inner := &localScope{vars: make(map[intern.ID]TypeRep), parent: scope}
		t := v.walkStmtExprResult(e.Body, inner)
		v.env.addExpr(e.Id, Constraint{Type: t, Origin: OriginDerived})
		return t

	case cast.ExAssert:
		v.walkExpr(e.A, scope)
		v.env.addExpr(e.Id, Constraint{Type: voidType, Origin: OriginDerived})
		return voidType

	case cast.ExMacroCall:
		v.recordUse(e.MacroName)
		for _, a := range e.Args {
			v.walkExpr(a, scope)
		}
		t := v.walkExpr(e.Expanded, scope)
		if callee, ok := v.d.calleeType(e.MacroName); ok {
			for i, a := range e.Args {
				if i < len(callee.ParamTypes) {
					v.env.addExpr(a.Id, Constraint{Type: callee.ParamTypes[i], Origin: OriginArgOfKnownFunction})
					if param, ok := v.env.ParamLinks[a.Id]; ok {
						v.env.addParam(param, Constraint{Type: callee.ParamTypes[i], Origin: OriginArgOfKnownFunction})
					}
				}
			}
		}
		v.env.addExpr(e.Id, Constraint{Type: t, Origin: OriginDerived})
		return t
	}
	return voidType
}

// walkStmtExprResult walks a compound statement used as a GCC statement
// expression's body and returns the type of its last expression, which is
// the value the whole statement-expression produces (§4.6.7).
func (v *visitor) walkStmtExprResult(s *cast.Stmt, scope *localScope) TypeRep {
	if s == nil {
		return voidType
	}
	v.walkStmt(s, scope)
	if s.Kind != cast.StCompound {
		if s.Kind == cast.StExpr {
			return v.env.lastExprType(s.Expr.Id)
		}
		return voidType
	}
	for i := len(s.Items) - 1; i >= 0; i-- {
		item := s.Items[i]
		if item.Kind == cast.StExpr && item.Expr != nil {
			return v.env.lastExprType(item.Expr.Id)
		}
		if item.Kind != cast.StDecl {
			return voidType
		}
	}
	return voidType
}

func (e *Env) lastExprType(id cast.ExprId) TypeRep {
	cs := e.ExprConstraints[id]
	if len(cs) == 0 {
		return voidType
	}
	return cs[len(cs)-1].Type
}

func (v *visitor) walkStmt(s *cast.Stmt, scope *localScope) {
	if s == nil {
		return
	}
	switch s.Kind {
	case cast.StCompound:
		inner := &localScope{vars: make(map[intern.ID]TypeRep), parent: scope}
		for _, item := range s.Items {
			v.walkStmt(item, inner)
		}
	case cast.StExpr:
		v.walkExpr(s.Expr, scope)
	case cast.StDecl:
		v.declareLocals(s.Decl, scope)
	case cast.StIf:
		v.walkExpr(s.Cond, scope)
		v.walkStmt(s.Then, scope)
		v.walkStmt(s.Els, scope)
	case cast.StWhile, cast.StDoWhile:
		v.walkExpr(s.Cond, scope)
		v.walkStmt(s.Body, scope)
	case cast.StFor:
		inner := &localScope{vars: make(map[intern.ID]TypeRep), parent: scope}
		v.walkStmt(s.Init, inner)
		v.walkExpr(s.Cond, inner)
		v.walkExpr(s.Post, inner)
		v.walkStmt(s.Body, inner)
	case cast.StSwitch:
		v.walkExpr(s.Subject, scope)
		v.walkStmt(s.Body, scope)
	case cast.StCase:
		v.walkExpr(s.CaseValue, scope)
		v.walkStmt(s.Body, scope)
	case cast.StDefault:
		v.walkStmt(s.Body, scope)
	case cast.StReturn:
		v.walkExpr(s.Value, scope)
	case cast.StLabelled:
		v.walkStmt(s.Body, scope)
	}
}

// declareLocals adds every declarator in a local StDecl to scope so later
// identifier references inside the same statement-expression resolve
// (§4.6.5 "lightweight scope over local declarations").
func (v *visitor) declareLocals(d *cast.ExternalDecl, scope *localScope) {
	if d == nil || scope == nil {
		return
	}
	for _, id := range d.Decls {
		name, ok := id.Decl.Ident()
		if !ok {
			continue
		}
		scope.vars[name] = TypeRep{Specs: d.Specs, Decl: id.Decl.Inner}
	}
}

func (v *visitor) recordUse(name intern.ID) {
	v.uses[name] = true
}

// resolveFieldAccess implements the `.`/`->` constraint rule (§4.6.5): try
// the base's own known type first, then fall back to the field
// dictionary's consistent-type cache or its unique-struct-with-field case.
// When resolution falls back to a unique struct, it also reports that
// struct so the caller can additionally infer the base expression's own
// type ("the base as a pointer to that unique struct"). The returned
// origin distinguishes a genuinely unique struct-with-field resolution
// (rank OriginMemberAccessUniqueStruct) from one that only agrees because
// every struct with the field happens to type it the same way (rank
// OriginConsistentFieldType, §4.6.6's origin-rank table) — the two are not
// the same strength of evidence and must not tie-break identically.
func (v *visitor) resolveFieldAccess(e *cast.Expr, base TypeRep) (fieldType, baseStruct TypeRep, inferredBase bool, origin OriginTag) {
	baseSpecs := base.Specs
	if e.Kind == cast.ExPtrMember && (base.Decl == nil || base.Decl.Kind != cast.DeclPointer) {
		baseSpecs = nil
	}
	if baseSpecs != nil && (baseSpecs.Spec == cast.TSStruct || baseSpecs.Spec == cast.TSUnion) && baseSpecs.Record != nil {
		if t, ok := v.d.fieldDict.FieldType(baseSpecs.Record.Tag, e.Field); ok {
			return t, TypeRep{}, false, OriginMemberAccessUniqueStruct
		}
	}
	if structs, ok := v.d.fieldDict.StructsWithField(e.Field); ok && len(structs) == 1 {
		if t, ok := v.d.fieldDict.FieldType(structs[0], e.Field); ok {
			return t, TypeRep{Specs: &cast.DeclSpecs{Spec: cast.TSStruct, Record: &cast.RecordSpec{Tag: structs[0]}}}, true, OriginMemberAccessUniqueStruct
		}
	}
	if t, ok := v.d.fieldDict.ConsistentType(e.Field); ok {
		return t, TypeRep{}, false, OriginConsistentFieldType
	}
	return voidType, TypeRep{}, false, OriginConsistentFieldType
}

func (v *visitor) bestParamType(param intern.ID) (TypeRep, bool) {
	cs := v.env.ParamConstraints[param]
	return SelectParamType(cs)
}
