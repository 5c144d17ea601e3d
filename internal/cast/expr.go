package cast

import "github.com/hkoba/go-macrogen/internal/intern"

// ExprId is a stable per-expression key used by the inference layer to
// attach constraints without threading pointers through every visitor (§3).
type ExprId int32

// ExprKind tags the expression node variants from §3.
type ExprKind int

const (
	ExIntLit ExprKind = iota
	ExFloatLit
	ExCharLit
	ExStringLit
	ExIdent

	ExUnary
	ExBinary
	ExConditional
	ExMember    // `.`
	ExPtrMember // `->`
	ExCall
	ExSubscript
	ExCast
	ExCompoundLiteral
	ExComma
	ExStatementExpr

	ExAssert    // synthesized, §4.4
	ExMacroCall // synthesized, §4.4
)

// UnaryOp enumerates the unary operator spellings §3 lists.
type UnaryOp int

const (
	UnAddr UnaryOp = iota
	UnDeref
	UnPlus
	UnMinus
	UnNot
	UnBitNot
	UnPreInc
	UnPreDec
	UnPostInc
	UnPostDec
	UnSizeofExpr
	UnSizeofType
	UnAlignofType
)

// BinOp enumerates the binary/assignment operator spellings §3 lists.
type BinOp int

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinShl
	BinShr
	BinLt
	BinGt
	BinLe
	BinGe
	BinEq
	BinNe
	BinBitAnd
	BinBitOr
	BinBitXor
	BinLogAnd
	BinLogOr
	BinAssign
	BinAddAssign
	BinSubAssign
	BinMulAssign
	BinDivAssign
	BinModAssign
	BinShlAssign
	BinShrAssign
	BinAndAssign
	BinOrAssign
	BinXorAssign
)

// LiteralClass names the canonical C type a literal constant is assigned,
// per §4.6.5 "Literal." constraint rule.
type LiteralClass int

const (
	LitInt LiteralClass = iota
	LitUnsignedInt
	LitLong
	LitUnsignedLong
	LitLongLong
	LitUnsignedLongLong
	LitFloat
	LitDouble
	LitChar
	LitWChar
	LitStringPtr
	LitWideStringPtr
)

// Expr is a single tagged AST expression node. Like Declarator, this uses a
// flat struct with kind-specific fields rather than one interface per kind:
// the inference visitor switches on Kind in its hottest loop, and a single
// concrete type keeps ExprId assignment and constraint bookkeeping simple.
type Expr struct {
	Id   ExprId
	Kind ExprKind
	Pos  intern.Pos

	// Literals
	LitClass LiteralClass
	IntVal   int64
	FloatVal float64
	StrVal   string

	// ExIdent
	Name intern.ID

	// ExUnary / ExBinary
	UnOp  UnaryOp
	BinOp BinOp
	A, B  *Expr // A is the sole operand for ExUnary; type operand for sizeof(type)
	SizeofType *DeclSpecs
	SizeofDecl *Declarator

	// ExConditional
	Cond, Then, Else *Expr

	// ExMember / ExPtrMember
	Base  *Expr
	Field intern.ID

	// ExCall
	Callee *Expr
	Args   []*Expr

	// ExSubscript
	Array, Index *Expr

	// ExCast / ExCompoundLiteral
	CastType *DeclSpecs
	CastDecl *Declarator
	Operand  *Expr
	InitList []*Expr

	// ExComma
	List []*Expr

	// ExStatementExpr
	Body *Stmt

	// ExAssert (synthesized, §4.4)
	AssertKind intern.ID // "assert" or "assert_"

	// ExMacroCall (synthesized, §4.4)
	MacroName intern.ID
	Expanded  *Expr
}

// IdAllocator hands out dense, sequential ExprIds during parsing.
type IdAllocator struct{ next ExprId }

func (a *IdAllocator) Next() ExprId {
	a.next++
	return a.next
}
