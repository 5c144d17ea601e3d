package infer

import "github.com/hkoba/go-macrogen/internal/cast"

// binResultType applies the simplified C usual-arithmetic-conversion table
// §4.6.5 calls for: comparisons always yield int; shift yields the
// promoted left operand; assignment yields the left-hand type; pointer
// arithmetic yields the pointer type; otherwise the wider of the two
// arithmetic operand types, falling back to whichever side carries actual
// information when the other is void.
func binResultType(op cast.BinOp, a, b TypeRep) TypeRep {
	switch op {
	case cast.BinLt, cast.BinGt, cast.BinLe, cast.BinGe, cast.BinEq, cast.BinNe,
		cast.BinLogAnd, cast.BinLogOr:
		return primitive(cast.TSInt, cast.SignDefault, 0)
	case cast.BinShl, cast.BinShr, cast.BinShlAssign, cast.BinShrAssign:
		return a
	case cast.BinAssign, cast.BinAddAssign, cast.BinSubAssign, cast.BinMulAssign,
		cast.BinDivAssign, cast.BinModAssign, cast.BinAndAssign, cast.BinOrAssign,
		cast.BinXorAssign:
		return a
	case cast.BinAdd, cast.BinSub:
		if a.Decl != nil && (a.Decl.Kind == cast.DeclPointer || a.Decl.Kind == cast.DeclArray) {
			return a
		}
		if b.Decl != nil && (b.Decl.Kind == cast.DeclPointer || b.Decl.Kind == cast.DeclArray) {
			return b
		}
	}
	if IsVoid(a) {
		return b
	}
	if IsVoid(b) {
		return a
	}
	return wider(a, b)
}

// wider picks the arithmetically "larger" of two primitive types, the
// usual-arithmetic-conversion rank order: long double > double > float >
// unsigned long long > long long > unsigned long > long > unsigned int >
// int. Non-arithmetic types (structs, pointers) just keep the left side.
func wider(a, b TypeRep) TypeRep {
	ra, oka := arithRank(a)
	rb, okb := arithRank(b)
	if !oka || !okb {
		return a
	}
	if rb > ra {
		return b
	}
	return a
}

func arithRank(t TypeRep) (int, bool) {
	if t.Specs == nil {
		return 0, false
	}
	switch t.Specs.Spec {
	case cast.TSDouble:
		if t.Specs.LongCount > 0 {
			return 9, true
		}
		return 8, true
	case cast.TSFloat:
		return 7, true
	case cast.TSInt:
		rank := 1
		if t.Specs.LongCount >= 2 {
			rank = 5
		} else if t.Specs.LongCount == 1 {
			rank = 3
		}
		if t.Specs.Sign == cast.SignUnsigned {
			rank++
		}
		return rank, true
	case cast.TSChar, cast.TSBool:
		return 0, true
	}
	return 0, false
}

// rank returns a comparable priority for an origin tag per §4.6.6's table
// (argument-of-known-function highest). Lower is better.
func rank(o OriginTag) int { return int(o) }

// SelectParamType picks a single type from a parameter's accumulated
// constraints, per §4.6.6: highest-ranked origin wins; among same-rank
// constraints, the earlier one (added first) wins; a void-typed candidate
// is used only if nothing else qualifies.
func SelectParamType(cs []Constraint) (TypeRep, bool) {
	var best *Constraint
	var bestVoid *Constraint
	for i := range cs {
		c := &cs[i]
		if IsVoid(c.Type) {
			if bestVoid == nil || rank(c.Origin) < rank(bestVoid.Origin) {
				bestVoid = c
			}
			continue
		}
		if best == nil || rank(c.Origin) < rank(best.Origin) {
			best = c
		}
	}
	if best != nil {
		return best.Type, true
	}
	if bestVoid != nil {
		return bestVoid.Type, true
	}
	return voidType, false
}

// SelectReturnType implements §4.6.7's ordered fallback: apidoc return
// type; external/known-function return type when the body is exactly a
// (possibly cast) call to that function; the cast target of an outer cast;
// the statement-expression's last-expression type; otherwise the body
// expression's own best-ranked type.
func SelectReturnType(outcome ParseOutcome, env *Env, apidocReturn func() (TypeRep, bool)) (TypeRep, bool) {
	if apidocReturn != nil {
		if t, ok := apidocReturn(); ok {
			return t, true
		}
	}
	var bodyExpr *cast.Expr
	switch outcome.Kind {
	case OutcomeExpression:
		bodyExpr = outcome.Expr
	case OutcomeStatement:
		if outcome.Stmt != nil && outcome.Stmt.Kind == cast.StReturn {
			bodyExpr = outcome.Stmt.Value
		} else if outcome.Stmt != nil && outcome.Stmt.Kind == cast.StExpr {
			bodyExpr = outcome.Stmt.Expr
		}
	}
	if bodyExpr == nil {
		return voidType, false
	}
	if bodyExpr.Kind == cast.ExCast {
		if op := bodyExpr.Operand; op != nil && op.Kind == cast.ExCall {
			if t, ok := SelectParamType(env.ExprConstraints[op.Id]); ok && !IsVoid(t) {
				return t, true
			}
		}
		return TypeRep{Specs: bodyExpr.CastType, Decl: bodyExpr.CastDecl}, true
	}
	if bodyExpr.Kind == cast.ExStatementExpr {
		t := env.lastExprType(bodyExpr.Id)
		if !IsVoid(t) {
			return t, true
		}
	}
	cs := env.ExprConstraints[bodyExpr.Id]
	return SelectParamType(cs)
}
