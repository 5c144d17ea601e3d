package parser

import (
	"github.com/hkoba/go-macrogen/internal/cast"
	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/token"
)

func (p *Parser) startsDeclSpec() bool {
	switch p.cur.Kind {
	case token.KwTypedef, token.KwExtern, token.KwStatic, token.KwAuto, token.KwRegister,
		token.KwInline, token.KwNoreturn,
		token.KwConst, token.KwVolatile, token.KwRestrict, token.KwAtomic,
		token.KwVoid, token.KwChar, token.KwInt, token.KwFloat, token.KwDouble,
		token.KwSigned, token.KwUnsigned, token.KwShort, token.KwLong,
		token.KwStruct, token.KwUnion, token.KwEnum, token.KwTypeof,
		token.KwAttribute, token.KwExtension:
		return true
	case token.Identifier:
		return p.isTypedefName(p.cur.Name)
	}
	return false
}

// parseDeclSpecs parses the storage class, function specifiers, qualifiers
// and type specifier preceding a declarator (§3 "DeclSpecs").
func (p *Parser) parseDeclSpecs() *cast.DeclSpecs {
	ds := &cast.DeclSpecs{}
	sawTypeSpec := false

loop:
	for {
		switch p.cur.Kind {
		case token.KwTypedef:
			ds.Storage = cast.StorageTypedef
			p.advance()
		case token.KwExtern:
			ds.Storage = cast.StorageExtern
			p.advance()
		case token.KwStatic:
			ds.Storage = cast.StorageStatic
			p.advance()
		case token.KwAuto:
			ds.Storage = cast.StorageAuto
			p.advance()
		case token.KwRegister:
			ds.Storage = cast.StorageRegister
			p.advance()
		case token.KwInline:
			ds.Inline = true
			p.advance()
		case token.KwNoreturn:
			ds.Noreturn = true
			p.advance()
		case token.KwConst:
			ds.Qual.Const = true
			p.advance()
		case token.KwVolatile:
			ds.Qual.Volatile = true
			p.advance()
		case token.KwRestrict:
			ds.Qual.Restrict = true
			p.advance()
		case token.KwAtomic:
			ds.Qual.Atomic = true
			p.advance()
		case token.KwExtension:
			p.advance() // __extension__ silences pedantic warnings only
		case token.KwAttribute:
			ds.Attrs = append(ds.Attrs, p.parseAttributeSpecifier()...)
		case token.KwVoid:
			ds.Spec, sawTypeSpec = cast.TSVoid, true
			p.advance()
		case token.KwChar:
			ds.Spec, sawTypeSpec = cast.TSChar, true
			p.advance()
		case token.KwInt:
			ds.Spec, sawTypeSpec = cast.TSInt, true
			p.advance()
		case token.KwFloat:
			ds.Spec, sawTypeSpec = cast.TSFloat, true
			p.advance()
		case token.KwDouble:
			ds.Spec, sawTypeSpec = cast.TSDouble, true
			p.advance()
		case token.KwSigned:
			ds.Sign = cast.SignSigned
			p.advance()
		case token.KwUnsigned:
			ds.Sign = cast.SignUnsigned
			p.advance()
		case token.KwShort:
			ds.Short = true
			p.advance()
		case token.KwLong:
			ds.LongCount++
			p.advance()
		case token.KwStruct, token.KwUnion:
			ds.Spec = cast.TSStruct
			if p.cur.Kind == token.KwUnion {
				ds.Spec = cast.TSUnion
			}
			sawTypeSpec = true
			ds.Record = p.parseRecordSpec()
		case token.KwEnum:
			ds.Spec, sawTypeSpec = cast.TSEnum, true
			ds.Enum = p.parseEnumSpec()
		case token.KwTypeof:
			p.advance()
			p.expectLParen()
			if p.startsDeclSpec() {
				ds.Spec = cast.TSTypeofType
				ds.TypeofType = p.parseDeclSpecs()
				ds.TypeofDecl = p.parseAbstractDeclarator()
			} else {
				ds.Spec = cast.TSTypeofExpr
				ds.TypeofExpr = p.parseExpr()
			}
			sawTypeSpec = true
			p.expectRParen()
		case token.Identifier:
			if sawTypeSpec || !p.isTypedefName(p.cur.Name) {
				break loop
			}
			ds.Spec = cast.TSTypedefName
			ds.TypedefName = p.cur.Name
			sawTypeSpec = true
			p.advance()
		default:
			break loop
		}
	}
	return ds
}

func (p *Parser) expectLParen() { p.expect(token.LParen, "'('") }
func (p *Parser) expectRParen() { p.expect(token.RParen, "')'") }

// parseAttributeSpecifier parses `__attribute__ ((expr-list)) ...`,
// returning the flattened list of attribute calls it names (§4.4
// "Extensions").
func (p *Parser) parseAttributeSpecifier() []cast.Attribute {
	var out []cast.Attribute
	p.advance() // __attribute__
	p.expect(token.LParen, "'('")
	p.expect(token.LParen, "'('")
	for !p.at(token.RParen) && !p.at(token.EOF) {
		if p.at(token.Identifier) {
			name := p.cur.Name
			p.advance()
			var args []*cast.Expr
			if p.at(token.LParen) {
				p.advance()
				for !p.at(token.RParen) && !p.at(token.EOF) {
					args = append(args, p.parseAssignExpr())
					if p.at(token.Comma) {
						p.advance()
						continue
					}
					break
				}
				p.expect(token.RParen, "')'")
			}
			out = append(out, cast.Attribute{Name: name, Args: args})
		} else {
			p.advance()
		}
		if p.at(token.Comma) {
			p.advance()
		}
	}
	p.expect(token.RParen, "')'")
	p.expect(token.RParen, "')'")
	return out
}

func (p *Parser) parseRecordSpec() *cast.RecordSpec {
	isUnion := p.cur.Kind == token.KwUnion
	p.advance()
	rs := &cast.RecordSpec{IsUnion: isUnion}
	if p.at(token.Identifier) {
		rs.Tag = p.cur.Name
		p.advance()
	}
	if p.at(token.LBrace) {
		p.advance()
		rs.HasBody = true
		for !p.at(token.RBrace) && !p.at(token.EOF) {
			fieldSpecs := p.parseDeclSpecs()
			for {
				d := p.parseDeclarator()
				rs.Fields = append(rs.Fields, cast.Field{Type: fieldSpecs, Decl: d, Name: declName(d)})
				if p.at(token.Colon) { // bit-field width, recorded as an array-like size is out of scope; skip
					p.advance()
					p.parseAssignExpr()
				}
				if p.at(token.Comma) {
					p.advance()
					continue
				}
				break
			}
			p.expect(token.Semicolon, "';'")
		}
		p.expect(token.RBrace, "'}'")
	}
	return rs
}

func declName(d *cast.Declarator) intern.ID {
	name, _ := d.Ident()
	return name
}

func (p *Parser) parseEnumSpec() *cast.EnumSpec {
	p.advance() // enum
	es := &cast.EnumSpec{}
	if p.at(token.Identifier) {
		es.Tag = p.cur.Name
		p.advance()
	}
	if p.at(token.LBrace) {
		p.advance()
		es.HasBody = true
		for !p.at(token.RBrace) && !p.at(token.EOF) {
			if !p.at(token.Identifier) {
				break
			}
			v := cast.EnumVariant{Name: p.cur.Name}
			p.advance()
			if p.at(token.Assign) {
				p.advance()
				v.Value = p.parseAssignExpr()
			}
			es.Variants = append(es.Variants, v)
			if p.at(token.Comma) {
				p.advance()
				continue
			}
			break
		}
		p.expect(token.RBrace, "'}'")
	}
	return es
}

// parseDeclarator parses a (possibly abstract) declarator: pointer prefix,
// direct-declarator, then array/function suffixes (§3 "Declarator").
func (p *Parser) parseDeclarator() *cast.Declarator {
	return p.parseDeclaratorInner(true)
}

func (p *Parser) parseAbstractDeclarator() *cast.Declarator {
	return p.parseDeclaratorInner(true)
}

func (p *Parser) parseDeclaratorInner(allowName bool) *cast.Declarator {
	var chain []*cast.Declarator
	for p.at(token.Star) {
		p.advance()
		q := cast.Qualifiers{}
		for {
			switch p.cur.Kind {
			case token.KwConst:
				q.Const = true
				p.advance()
			case token.KwVolatile:
				q.Volatile = true
				p.advance()
			case token.KwRestrict:
				q.Restrict = true
				p.advance()
			case token.KwAtomic:
				q.Atomic = true
				p.advance()
			default:
				goto doneQual
			}
		}
	doneQual:
		chain = append(chain, &cast.Declarator{Kind: cast.DeclPointer, PointerQual: q})
	}

	base := p.parseDirectDeclarator(allowName)

	// Wrap pointer links around base in the order encountered (innermost
	// first) so that Inner walks from the outside in toward the identifier,
	// matching Ident()'s walk.
	for i := len(chain) - 1; i >= 0; i-- {
		chain[i].Inner = base
		base = chain[i]
	}
	return base
}

func (p *Parser) parseDirectDeclarator(allowName bool) *cast.Declarator {
	var base *cast.Declarator
	switch {
	case p.at(token.Identifier) && allowName:
		base = &cast.Declarator{Kind: cast.DeclIdent, Name: p.cur.Name, HasName: true}
		p.advance()
	case p.at(token.LParen):
		p.advance()
		inner := p.parseDeclaratorInner(allowName)
		p.expect(token.RParen, "')'")
		base = &cast.Declarator{Kind: cast.DeclParen, Inner: inner}
	default:
		base = &cast.Declarator{Kind: cast.DeclIdent}
	}

	for {
		switch p.cur.Kind {
		case token.LBracket:
			p.advance()
			var size *cast.Expr
			if !p.at(token.RBracket) {
				size = p.parseAssignExpr()
			}
			p.expect(token.RBracket, "']'")
			base = &cast.Declarator{Kind: cast.DeclArray, ArraySize: size, Inner: base}
		case token.LParen:
			p.advance()
			fn := &cast.Declarator{Kind: cast.DeclFunction, Inner: base}
			if p.at(token.KwVoid) && p.peek.Kind == token.RParen {
				p.advance()
			} else {
				for !p.at(token.RParen) && !p.at(token.EOF) {
					if p.at(token.Ellipsis) {
						fn.Variadic = true
						p.advance()
						break
					}
					specs := p.parseDeclSpecs()
					var d *cast.Declarator
					if p.at(token.Identifier) || p.at(token.Star) || p.at(token.LParen) || p.at(token.LBracket) {
						d = p.parseDeclaratorInner(true)
					}
					fn.Params = append(fn.Params, cast.ParamDecl{Specs: specs, Decl: d})
					if p.at(token.Comma) {
						p.advance()
						continue
					}
					break
				}
			}
			p.expect(token.RParen, "')'")
			base = fn
		case token.KwAttribute:
			p.parseAttributeSpecifier()
		default:
			return base
		}
	}
}

// parseExternalDecl parses one top-level construct: a declaration or a
// function definition (§3 "AST — external declarations"). It never returns
// nil: on a missing ';' in strict-off mode it resynchronises and returns the
// declaration flagged Recovered.
func (p *Parser) parseExternalDecl() *cast.ExternalDecl {
	pos := p.cur.Pos
	specs := p.parseDeclSpecs()

	if p.at(token.Semicolon) {
		p.advance()
		return &cast.ExternalDecl{Kind: cast.EDDeclaration, Pos: pos, Specs: specs}
	}

	first := p.parseDeclarator()
	if specs.Storage == cast.StorageTypedef {
		if name, ok := first.Ident(); ok {
			p.markTypedef(name)
		}
	}

	if p.at(token.LBrace) {
		p.pushScope()
		body := p.parseCompoundStmt()
		p.popScope()
		return &cast.ExternalDecl{Kind: cast.EDFunctionDef, Pos: pos, Specs: specs, FuncDecl: first, FuncBody: body}
	}

	decl := &cast.ExternalDecl{Kind: cast.EDDeclaration, Pos: pos, Specs: specs}
	var init *cast.Expr
	if p.at(token.Assign) {
		p.advance()
		init = p.parseAssignExpr()
	}
	decl.Decls = append(decl.Decls, cast.InitDeclarator{Decl: first, Init: init})

	for p.at(token.Comma) {
		p.advance()
		d := p.parseDeclarator()
		if specs.Storage == cast.StorageTypedef {
			if name, ok := d.Ident(); ok {
				p.markTypedef(name)
			}
		}
		var in *cast.Expr
		if p.at(token.Assign) {
			p.advance()
			in = p.parseAssignExpr()
		}
		decl.Decls = append(decl.Decls, cast.InitDeclarator{Decl: d, Init: in})
	}

	if _, ok := p.expect(token.Semicolon, "';'"); !ok {
		if !p.opt.Strict {
			p.syncTo()
			decl.Recovered = true
		}
	}
	return decl
}
