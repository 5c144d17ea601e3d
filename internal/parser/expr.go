package parser

import (
	"github.com/hkoba/go-macrogen/internal/cast"
	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/token"
)

// parseExpr parses a full comma-expression (§3 "comma").
func (p *Parser) parseExpr() *cast.Expr {
	first := p.parseAssignExpr()
	if !p.at(token.Comma) {
		return first
	}
	list := []*cast.Expr{first}
	for p.at(token.Comma) {
		p.advance()
		list = append(list, p.parseAssignExpr())
	}
	return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExComma, Pos: first.Pos, List: list}
}

var assignOps = map[token.Kind]cast.BinOp{
	token.Assign:        cast.BinAssign,
	token.PlusAssign:    cast.BinAddAssign,
	token.MinusAssign:   cast.BinSubAssign,
	token.StarAssign:    cast.BinMulAssign,
	token.SlashAssign:   cast.BinDivAssign,
	token.PercentAssign: cast.BinModAssign,
	token.ShlAssign:     cast.BinShlAssign,
	token.ShrAssign:     cast.BinShrAssign,
	token.AmpAssign:     cast.BinAndAssign,
	token.PipeAssign:    cast.BinOrAssign,
	token.CaretAssign:   cast.BinXorAssign,
}

func (p *Parser) parseAssignExpr() *cast.Expr {
	left := p.parseConditional()
	if op, ok := assignOps[p.cur.Kind]; ok {
		pos := p.cur.Pos
		p.advance()
		right := p.parseAssignExpr()
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExBinary, Pos: pos, BinOp: op, A: left, B: right}
	}
	return left
}

func (p *Parser) parseConditional() *cast.Expr {
	cond := p.parseLogicalOr()
	if p.at(token.QuestionMark) {
		pos := p.cur.Pos
		p.advance()
		then := p.parseExpr()
		p.expect(token.Colon, "':'")
		els := p.parseConditional()
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExConditional, Pos: pos, Cond: cond, Then: then, Else: els}
	}
	return cond
}

type binLevel struct {
	kinds map[token.Kind]cast.BinOp
	next  func(*Parser) *cast.Expr
}

func (p *Parser) parseBinLevel(lvl binLevel) *cast.Expr {
	left := lvl.next(p)
	for {
		op, ok := lvl.kinds[p.cur.Kind]
		if !ok {
			return left
		}
		pos := p.cur.Pos
		p.advance()
		right := lvl.next(p)
		left = &cast.Expr{Id: p.ids.Next(), Kind: cast.ExBinary, Pos: pos, BinOp: op, A: left, B: right}
	}
}

func (p *Parser) parseLogicalOr() *cast.Expr {
	return p.parseBinLevel(binLevel{map[token.Kind]cast.BinOp{token.PipePipe: cast.BinLogOr}, (*Parser).parseLogicalAnd})
}
func (p *Parser) parseLogicalAnd() *cast.Expr {
	return p.parseBinLevel(binLevel{map[token.Kind]cast.BinOp{token.AmpAmp: cast.BinLogAnd}, (*Parser).parseBitOr})
}
func (p *Parser) parseBitOr() *cast.Expr {
	return p.parseBinLevel(binLevel{map[token.Kind]cast.BinOp{token.Pipe: cast.BinBitOr}, (*Parser).parseBitXor})
}
func (p *Parser) parseBitXor() *cast.Expr {
	return p.parseBinLevel(binLevel{map[token.Kind]cast.BinOp{token.Caret: cast.BinBitXor}, (*Parser).parseBitAnd})
}
func (p *Parser) parseBitAnd() *cast.Expr {
	return p.parseBinLevel(binLevel{map[token.Kind]cast.BinOp{token.Amp: cast.BinBitAnd}, (*Parser).parseEquality})
}
func (p *Parser) parseEquality() *cast.Expr {
	return p.parseBinLevel(binLevel{map[token.Kind]cast.BinOp{token.Eq: cast.BinEq, token.Ne: cast.BinNe}, (*Parser).parseRelational})
}
func (p *Parser) parseRelational() *cast.Expr {
	return p.parseBinLevel(binLevel{map[token.Kind]cast.BinOp{
		token.Lt: cast.BinLt, token.Gt: cast.BinGt, token.Le: cast.BinLe, token.Ge: cast.BinGe,
	}, (*Parser).parseShift})
}
func (p *Parser) parseShift() *cast.Expr {
	return p.parseBinLevel(binLevel{map[token.Kind]cast.BinOp{token.Shl: cast.BinShl, token.Shr: cast.BinShr}, (*Parser).parseAdditive})
}
func (p *Parser) parseAdditive() *cast.Expr {
	return p.parseBinLevel(binLevel{map[token.Kind]cast.BinOp{token.Plus: cast.BinAdd, token.Minus: cast.BinSub}, (*Parser).parseMultiplicative})
}
func (p *Parser) parseMultiplicative() *cast.Expr {
	return p.parseBinLevel(binLevel{map[token.Kind]cast.BinOp{
		token.Star: cast.BinMul, token.Slash: cast.BinDiv, token.Percent: cast.BinMod,
	}, (*Parser).parseCast})
}

// parseCast handles `(T) e` vs. a merely parenthesized expression: if the
// token after '(' starts a type, it is a cast (§4.6.5 "Cast").
func (p *Parser) parseCast() *cast.Expr {
	if p.at(token.LParen) {
		save := p.cur.Pos
		if p.peekStartsTypeAfterParen() {
			p.advance() // '('
			specs := p.parseDeclSpecs()
			decl := p.parseAbstractDeclarator()
			p.expect(token.RParen, "')'")
			if p.at(token.LBrace) {
				return p.parseCompoundLiteral(save, specs, decl)
			}
			operand := p.parseCast()
			return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExCast, Pos: save, CastType: specs, CastDecl: decl, Operand: operand}
		}
	}
	return p.parseUnary()
}

// peekStartsTypeAfterParen reports whether the token after the current '('
// begins a type-name, without consuming anything.
func (p *Parser) peekStartsTypeAfterParen() bool {
	switch p.peek.Kind {
	case token.KwVoid, token.KwChar, token.KwInt, token.KwFloat, token.KwDouble,
		token.KwSigned, token.KwUnsigned, token.KwShort, token.KwLong,
		token.KwStruct, token.KwUnion, token.KwEnum, token.KwConst, token.KwVolatile,
		token.KwTypeof, token.KwAtomic:
		return true
	case token.Identifier:
		return p.isTypedefName(p.peek.Name)
	}
	return false
}

func (p *Parser) parseCompoundLiteral(pos intern.Pos, specs *cast.DeclSpecs, decl *cast.Declarator) *cast.Expr {
	p.advance() // '{'
	var items []*cast.Expr
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		if p.at(token.Dot) || p.at(token.LBracket) {
			// designated initializer: skip the designator, keep the value
			for !p.at(token.Assign) && !p.at(token.EOF) && !p.at(token.Comma) {
				p.advance()
			}
			if p.at(token.Assign) {
				p.advance()
			}
		}
		items = append(items, p.parseAssignExpr())
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RBrace, "'}'")
	return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExCompoundLiteral, Pos: pos, CastType: specs, CastDecl: decl, InitList: items}
}

func (p *Parser) parseUnary() *cast.Expr {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.PlusPlus:
		p.advance()
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExUnary, Pos: pos, UnOp: cast.UnPreInc, A: p.parseUnary()}
	case token.MinusMinus:
		p.advance()
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExUnary, Pos: pos, UnOp: cast.UnPreDec, A: p.parseUnary()}
	case token.Amp:
		p.advance()
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExUnary, Pos: pos, UnOp: cast.UnAddr, A: p.parseCast()}
	case token.Star:
		p.advance()
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExUnary, Pos: pos, UnOp: cast.UnDeref, A: p.parseCast()}
	case token.Plus:
		p.advance()
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExUnary, Pos: pos, UnOp: cast.UnPlus, A: p.parseCast()}
	case token.Minus:
		p.advance()
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExUnary, Pos: pos, UnOp: cast.UnMinus, A: p.parseCast()}
	case token.Bang:
		p.advance()
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExUnary, Pos: pos, UnOp: cast.UnNot, A: p.parseCast()}
	case token.Tilde:
		p.advance()
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExUnary, Pos: pos, UnOp: cast.UnBitNot, A: p.parseCast()}
	case token.KwSizeof:
		p.advance()
		if p.at(token.LParen) && p.peekStartsTypeAfterParen() {
			p.advance()
			specs := p.parseDeclSpecs()
			decl := p.parseAbstractDeclarator()
			p.expect(token.RParen, "')'")
			return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExUnary, Pos: pos, UnOp: cast.UnSizeofType, SizeofType: specs, SizeofDecl: decl}
		}
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExUnary, Pos: pos, UnOp: cast.UnSizeofExpr, A: p.parseUnary()}
	case token.KwAlignof:
		p.advance()
		p.expect(token.LParen, "'('")
		specs := p.parseDeclSpecs()
		decl := p.parseAbstractDeclarator()
		p.expect(token.RParen, "')'")
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExUnary, Pos: pos, UnOp: cast.UnAlignofType, SizeofType: specs, SizeofDecl: decl}
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() *cast.Expr {
	e := p.parsePrimary()
	for {
		pos := p.cur.Pos
		switch p.cur.Kind {
		case token.LBracket:
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBracket, "']'")
			e = &cast.Expr{Id: p.ids.Next(), Kind: cast.ExSubscript, Pos: pos, Array: e, Index: idx}
		case token.LParen:
			p.advance()
			var args []*cast.Expr
			for !p.at(token.RParen) && !p.at(token.EOF) {
				args = append(args, p.parseAssignExpr())
				if p.at(token.Comma) {
					p.advance()
					continue
				}
				break
			}
			p.expect(token.RParen, "')'")
			e = &cast.Expr{Id: p.ids.Next(), Kind: cast.ExCall, Pos: pos, Callee: e, Args: args}
		case token.Dot:
			p.advance()
			name, _ := p.expect(token.Identifier, "field name")
			e = &cast.Expr{Id: p.ids.Next(), Kind: cast.ExMember, Pos: pos, Base: e, Field: name.Name}
		case token.Arrow:
			p.advance()
			name, _ := p.expect(token.Identifier, "field name")
			e = &cast.Expr{Id: p.ids.Next(), Kind: cast.ExPtrMember, Pos: pos, Base: e, Field: name.Name}
		case token.PlusPlus:
			p.advance()
			e = &cast.Expr{Id: p.ids.Next(), Kind: cast.ExUnary, Pos: pos, UnOp: cast.UnPostInc, A: e}
		case token.MinusMinus:
			p.advance()
			e = &cast.Expr{Id: p.ids.Next(), Kind: cast.ExUnary, Pos: pos, UnOp: cast.UnPostDec, A: e}
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() *cast.Expr {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.MacroBeginMark:
		return p.parseWrappedMacro()
	case token.IntLiteral:
		t := p.advance()
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExIntLit, Pos: pos, LitClass: intLitClass(t), IntVal: t.Lit.Int}
	case token.FloatLiteral:
		t := p.advance()
		cls := cast.LitDouble
		if t.Lit.Width == token.WidthFloat {
			cls = cast.LitFloat
		}
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExFloatLit, Pos: pos, LitClass: cls, FloatVal: t.Lit.Float}
	case token.CharLiteral:
		t := p.advance()
		cls := cast.LitChar
		if t.Lit.Width != token.WidthChar {
			cls = cast.LitWChar
		}
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExCharLit, Pos: pos, LitClass: cls, IntVal: t.Lit.Int}
	case token.StringLiteral:
		t := p.advance()
		cls := cast.LitStringPtr
		if t.Lit.Width != token.WidthNone && t.Lit.Width != token.WidthChar {
			cls = cast.LitWideStringPtr
		}
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExStringLit, Pos: pos, LitClass: cls, StrVal: t.Lit.Decoded}
	case token.Identifier:
		t := p.advance()
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExIdent, Pos: pos, Name: t.Name}
	case token.LParen:
		p.advance()
		if p.at(token.LBrace) {
			body := p.parseCompoundStmt()
			p.expect(token.RParen, "')'")
			return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExStatementExpr, Pos: pos, Body: body}
		}
		e := p.parseExpr()
		p.expect(token.RParen, "')'")
		return e
	default:
		p.errorf("unexpected token %s in expression", p.cur.String())
		p.advance()
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExIdent, Pos: pos}
	}
}

func intLitClass(t token.Token) cast.LiteralClass {
	switch t.Lit.Width {
	case token.WidthUnsignedInt:
		return cast.LitUnsignedInt
	case token.WidthLong:
		return cast.LitLong
	case token.WidthUnsignedLong:
		return cast.LitUnsignedLong
	case token.WidthLongLong:
		return cast.LitLongLong
	case token.WidthUnsignedLongLong:
		return cast.LitUnsignedLongLong
	default:
		return cast.LitInt
	}
}

// parseWrappedMacro consumes one MacroBegin…MacroEnd pair and turns it into
// an Assert or MacroCall node, or (markers elided) just the parsed
// expansion, per §4.4 "Internal-marker handling".
func (p *Parser) parseWrappedMacro() *cast.Expr {
	marker := p.cur.Marker
	beginPos := p.cur.Pos
	p.advance() // MacroBeginMark

	var expansionToks []token.Token
	for !p.at(token.MacroEndMark) && !p.at(token.EOF) {
		expansionToks = append(expansionToks, p.cur)
		p.advance()
	}
	if p.at(token.MacroEndMark) {
		p.advance()
	}

	if p.opt.IsAssertionMacro != nil && marker != nil && p.opt.IsAssertionMacro(marker.Name) {
		cond := p.parseArgTokensAsSingleExpr(marker.ArgTokens)
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExAssert, Pos: beginPos, AssertKind: marker.Name, A: cond}
	}

	if marker != nil && marker.PreserveCall {
		args := p.parseArgTokensAsExprs(marker.ArgTokens)
		expanded := p.parseTokensAsExpr(expansionToks)
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExMacroCall, Pos: beginPos, MacroName: marker.Name, Args: args, Expanded: expanded}
	}

	return p.parseTokensAsExpr(expansionToks)
}

func (p *Parser) parseArgTokensAsExprs(argToks [][]token.Token) []*cast.Expr {
	out := make([]*cast.Expr, 0, len(argToks))
	for _, toks := range argToks {
		out = append(out, p.parseTokensAsExpr(toks))
	}
	return out
}

func (p *Parser) parseArgTokensAsSingleExpr(argToks [][]token.Token) *cast.Expr {
	var all []token.Token
	for i, toks := range argToks {
		if i > 0 {
			all = append(all, token.Token{Kind: token.Comma, Text: ","})
		}
		all = append(all, toks...)
	}
	return p.parseTokensAsExpr(all)
}

// parseTokensAsExpr parses a standalone token slice (a macro argument or an
// expansion's bracketed body) as a full expression, sharing this parser's
// interner and assertion-detection callback but starting fresh typedef
// scope: arguments and expansions are not expected to introduce new types.
func (p *Parser) parseTokensAsExpr(toks []token.Token) *cast.Expr {
	if len(toks) == 0 {
		return &cast.Expr{Id: p.ids.Next(), Kind: cast.ExIdent}
	}
	sub := New(NewSliceSource(p.in, toks), p.bag, p.opt)
	sub.ids = p.ids
	e := sub.parseExpr()
	p.ids = sub.ids
	return e
}
