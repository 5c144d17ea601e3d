package cpp

import (
	"github.com/hkoba/go-macrogen/internal/diag"
	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/token"
)

// condValue is a C11 constant-expression value for #if/#elif evaluation:
// signed or unsigned 64-bit, per §4.3.
type condValue struct {
	v        int64
	unsigned bool
}

func (c condValue) truthy() bool { return c.v != 0 }

func asUint(c condValue) uint64 { return uint64(c.v) }

func combineUnsigned(a, b condValue) bool { return a.unsigned || b.unsigned }

// condParser evaluates a #if/#elif constant expression over a fully macro-
// expanded token slice (defined(X) has already been handled by the caller
// before general macro expansion, per §4.3). It is a small precedence-
// climbing parser restricted to the operators C11 allows in a constant
// expression: the ternary, logical, bitwise, relational, shift, additive,
// multiplicative and unary operators, plus parenthesization.
type condParser struct {
	toks []token.Token
	pos  int
	diag *diag.Bag
	errd bool
}

func (p *condParser) peek() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *condParser) next() token.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *condParser) fail(pos intern.Pos, format string, args ...any) {
	if p.errd {
		return
	}
	p.errd = true
	p.diag.Add(diag.New(pos, diag.Preprocessor, format, args...))
}

// evalCondition parses and evaluates toks as a full constant expression,
// requiring it to consume every token.
func evalCondition(toks []token.Token, bag *diag.Bag) condValue {
	p := &condParser{toks: toks, diag: bag}
	v := p.ternary()
	if !p.errd && p.pos != len(p.toks) {
		p.fail(p.peek().Pos, "unexpected trailing tokens in #if expression")
	}
	return v
}

func (p *condParser) ternary() condValue {
	cond := p.logicalOr()
	if p.peek().Kind == token.QuestionMark {
		p.next()
		a := p.ternary()
		if p.peek().Kind != token.Colon {
			p.fail(p.peek().Pos, "expected ':' in conditional expression")
			return a
		}
		p.next()
		b := p.ternary()
		if cond.truthy() {
			return a
		}
		return b
	}
	return cond
}

func (p *condParser) logicalOr() condValue {
	v := p.logicalAnd()
	for p.peek().Kind == token.PipePipe {
		p.next()
		r := p.logicalAnd()
		v = condValue{v: b2i(v.truthy() || r.truthy())}
	}
	return v
}

func (p *condParser) logicalAnd() condValue {
	v := p.bitOr()
	for p.peek().Kind == token.AmpAmp {
		p.next()
		r := p.bitOr()
		v = condValue{v: b2i(v.truthy() && r.truthy())}
	}
	return v
}

func (p *condParser) bitOr() condValue {
	v := p.bitXor()
	for p.peek().Kind == token.Pipe {
		p.next()
		r := p.bitXor()
		v = condValue{v: int64(asUint(v) | asUint(r)), unsigned: combineUnsigned(v, r)}
	}
	return v
}

func (p *condParser) bitXor() condValue {
	v := p.bitAnd()
	for p.peek().Kind == token.Caret {
		p.next()
		r := p.bitAnd()
		v = condValue{v: int64(asUint(v) ^ asUint(r)), unsigned: combineUnsigned(v, r)}
	}
	return v
}

func (p *condParser) bitAnd() condValue {
	v := p.equality()
	for p.peek().Kind == token.Amp {
		p.next()
		r := p.equality()
		v = condValue{v: int64(asUint(v) & asUint(r)), unsigned: combineUnsigned(v, r)}
	}
	return v
}

func (p *condParser) equality() condValue {
	v := p.relational()
	for {
		k := p.peek().Kind
		if k != token.Eq && k != token.Ne {
			return v
		}
		p.next()
		r := p.relational()
		var eq bool
		if combineUnsigned(v, r) {
			eq = asUint(v) == asUint(r)
		} else {
			eq = v.v == r.v
		}
		if k == token.Ne {
			eq = !eq
		}
		v = condValue{v: b2i(eq)}
	}
}

func (p *condParser) relational() condValue {
	v := p.shift()
	for {
		k := p.peek().Kind
		if k != token.Lt && k != token.Le && k != token.Gt && k != token.Ge {
			return v
		}
		p.next()
		r := p.shift()
		var res bool
		u := combineUnsigned(v, r)
		switch k {
		case token.Lt:
			res = condLess(v, r, u)
		case token.Le:
			res = condLess(v, r, u) || condEqual(v, r, u)
		case token.Gt:
			res = condLess(r, v, u)
		case token.Ge:
			res = condLess(r, v, u) || condEqual(v, r, u)
		}
		v = condValue{v: b2i(res)}
	}
}

func condLess(a, b condValue, unsigned bool) bool {
	if unsigned {
		return asUint(a) < asUint(b)
	}
	return a.v < b.v
}

func condEqual(a, b condValue, unsigned bool) bool {
	if unsigned {
		return asUint(a) == asUint(b)
	}
	return a.v == b.v
}

func (p *condParser) shift() condValue {
	v := p.additive()
	for {
		k := p.peek().Kind
		if k != token.Shl && k != token.Shr {
			return v
		}
		p.next()
		r := p.additive()
		if k == token.Shl {
			v = condValue{v: int64(asUint(v) << uint(r.v)), unsigned: v.unsigned}
		} else if v.unsigned {
			v = condValue{v: int64(asUint(v) >> uint(r.v)), unsigned: true}
		} else {
			v = condValue{v: v.v >> uint(r.v)}
		}
	}
}

func (p *condParser) additive() condValue {
	v := p.multiplicative()
	for {
		k := p.peek().Kind
		if k != token.Plus && k != token.Minus {
			return v
		}
		p.next()
		r := p.multiplicative()
		u := combineUnsigned(v, r)
		if k == token.Plus {
			v = condValue{v: int64(asUint(v) + asUint(r)), unsigned: u}
		} else {
			v = condValue{v: int64(asUint(v) - asUint(r)), unsigned: u}
		}
	}
}

func (p *condParser) multiplicative() condValue {
	v := p.unary()
	for {
		k := p.peek().Kind
		if k != token.Star && k != token.Slash && k != token.Percent {
			return v
		}
		op := p.next()
		r := p.unary()
		u := combineUnsigned(v, r)
		switch k {
		case token.Star:
			v = condValue{v: int64(asUint(v) * asUint(r)), unsigned: u}
		case token.Slash:
			if r.v == 0 {
				p.fail(op.Pos, "division by zero in #if expression")
				v = condValue{}
				continue
			}
			if u {
				v = condValue{v: int64(asUint(v) / asUint(r)), unsigned: true}
			} else {
				v = condValue{v: v.v / r.v}
			}
		case token.Percent:
			if r.v == 0 {
				p.fail(op.Pos, "division by zero in #if expression")
				v = condValue{}
				continue
			}
			if u {
				v = condValue{v: int64(asUint(v) % asUint(r)), unsigned: true}
			} else {
				v = condValue{v: v.v % r.v}
			}
		}
	}
}

func (p *condParser) unary() condValue {
	t := p.peek()
	switch t.Kind {
	case token.Plus:
		p.next()
		return p.unary()
	case token.Minus:
		p.next()
		v := p.unary()
		return condValue{v: -v.v, unsigned: v.unsigned}
	case token.Bang:
		p.next()
		v := p.unary()
		return condValue{v: b2i(!v.truthy())}
	case token.Tilde:
		p.next()
		v := p.unary()
		return condValue{v: ^v.v, unsigned: v.unsigned}
	default:
		return p.primary()
	}
}

func (p *condParser) primary() condValue {
	t := p.next()
	switch t.Kind {
	case token.IntLiteral:
		unsigned := t.Lit.Width == token.WidthUnsignedInt || t.Lit.Width == token.WidthUnsignedLong || t.Lit.Width == token.WidthUnsignedLongLong
		return condValue{v: t.Lit.Int, unsigned: unsigned}
	case token.CharLiteral:
		return condValue{v: t.Lit.Int}
	case token.LParen:
		v := p.ternary()
		if p.peek().Kind != token.RParen {
			p.fail(p.peek().Pos, "expected ')' in #if expression")
		} else {
			p.next()
		}
		return v
	case token.Identifier:
		// An identifier surviving to here (post-expansion, post-`defined`)
		// is undefined per the preprocessor's macro table and is treated
		// as 0, per §4.3 ("treating undefined identifiers as zero").
		return condValue{}
	case token.EOF:
		p.fail(t.Pos, "unexpected end of #if expression")
		return condValue{}
	default:
		p.fail(t.Pos, "unexpected token %q in #if expression", t.String())
		return condValue{}
	}
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
