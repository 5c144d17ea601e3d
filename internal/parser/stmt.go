package parser

import (
	"github.com/hkoba/go-macrogen/internal/cast"
	"github.com/hkoba/go-macrogen/internal/token"
)

// parseCompoundStmt parses a `{ ... }` block, interleaving declarations and
// statements in source order (§3 "Compound statements host a heterogeneous
// sequence").
func (p *Parser) parseCompoundStmt() *cast.Stmt {
	pos := p.cur.Pos
	p.expect(token.LBrace, "'{'")
	p.pushScope()
	st := &cast.Stmt{Kind: cast.StCompound, Pos: pos}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		st.Items = append(st.Items, p.parseBlockItem())
	}
	p.expect(token.RBrace, "'}'")
	p.popScope()
	return st
}

func (p *Parser) parseBlockItem() *cast.Stmt {
	if p.startsDeclSpec() && !p.looksLikeExprStart() {
		pos := p.cur.Pos
		specs := p.parseDeclSpecs()
		decl := &cast.ExternalDecl{Kind: cast.EDDeclaration, Pos: pos, Specs: specs}
		if !p.at(token.Semicolon) {
			d := p.parseDeclarator()
			if specs.Storage == cast.StorageTypedef {
				if name, ok := d.Ident(); ok {
					p.markTypedef(name)
				}
			}
			var init *cast.Expr
			if p.at(token.Assign) {
				p.advance()
				init = p.parseAssignExpr()
			}
			decl.Decls = append(decl.Decls, cast.InitDeclarator{Decl: d, Init: init})
			for p.at(token.Comma) {
				p.advance()
				d2 := p.parseDeclarator()
				var in2 *cast.Expr
				if p.at(token.Assign) {
					p.advance()
					in2 = p.parseAssignExpr()
				}
				decl.Decls = append(decl.Decls, cast.InitDeclarator{Decl: d2, Init: in2})
			}
		}
		if _, ok := p.expect(token.Semicolon, "';'"); !ok && !p.opt.Strict {
			p.syncTo()
			decl.Recovered = true
		}
		return &cast.Stmt{Kind: cast.StDecl, Pos: pos, Decl: decl}
	}
	return p.parseStmt()
}

// looksLikeExprStart always reports false: a block item that starts with a
// declaration specifier, including a typedef name in scope, is parsed as a
// declaration. A typedef name shadowed by a local variable of the same
// spelling is not recognised as an expression identifier.
func (p *Parser) looksLikeExprStart() bool {
	return false
}

func (p *Parser) parseStmt() *cast.Stmt {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.LBrace:
		return p.parseCompoundStmt()
	case token.KwIf:
		p.advance()
		p.expect(token.LParen, "'('")
		cond := p.parseExpr()
		p.expect(token.RParen, "')'")
		then := p.parseStmt()
		var els *cast.Stmt
		if p.at(token.KwElse) {
			p.advance()
			els = p.parseStmt()
		}
		return &cast.Stmt{Kind: cast.StIf, Pos: pos, Cond: cond, Then: then, Els: els}
	case token.KwWhile:
		p.advance()
		p.expect(token.LParen, "'('")
		cond := p.parseExpr()
		p.expect(token.RParen, "')'")
		body := p.parseStmt()
		return &cast.Stmt{Kind: cast.StWhile, Pos: pos, Cond: cond, Body: body}
	case token.KwDo:
		p.advance()
		body := p.parseStmt()
		p.expect(token.KwWhile, "'while'")
		p.expect(token.LParen, "'('")
		cond := p.parseExpr()
		p.expect(token.RParen, "')'")
		p.expect(token.Semicolon, "';'")
		return &cast.Stmt{Kind: cast.StDoWhile, Pos: pos, Cond: cond, Body: body}
	case token.KwFor:
		return p.parseForStmt()
	case token.KwSwitch:
		p.advance()
		p.expect(token.LParen, "'('")
		subj := p.parseExpr()
		p.expect(token.RParen, "')'")
		body := p.parseStmt()
		return &cast.Stmt{Kind: cast.StSwitch, Pos: pos, Subject: subj, Body: body}
	case token.KwCase:
		p.advance()
		v := p.parseConditional()
		p.expect(token.Colon, "':'")
		return &cast.Stmt{Kind: cast.StCase, Pos: pos, CaseValue: v}
	case token.KwDefault:
		p.advance()
		p.expect(token.Colon, "':'")
		return &cast.Stmt{Kind: cast.StDefault, Pos: pos}
	case token.KwBreak:
		p.advance()
		p.expect(token.Semicolon, "';'")
		return &cast.Stmt{Kind: cast.StBreak, Pos: pos}
	case token.KwContinue:
		p.advance()
		p.expect(token.Semicolon, "';'")
		return &cast.Stmt{Kind: cast.StContinue, Pos: pos}
	case token.KwReturn:
		p.advance()
		var v *cast.Expr
		if !p.at(token.Semicolon) {
			v = p.parseExpr()
		}
		p.expect(token.Semicolon, "';'")
		return &cast.Stmt{Kind: cast.StReturn, Pos: pos, Value: v}
	case token.KwGoto:
		p.advance()
		name, _ := p.expect(token.Identifier, "label name")
		p.expect(token.Semicolon, "';'")
		return &cast.Stmt{Kind: cast.StGoto, Pos: pos, Label: name.Name}
	case token.KwAsm:
		return p.parseAsmStmt()
	case token.Semicolon:
		p.advance()
		return &cast.Stmt{Kind: cast.StExpr, Pos: pos}
	case token.Identifier:
		if p.peek.Kind == token.Colon {
			name := p.cur.Name
			p.advance()
			p.advance()
			return &cast.Stmt{Kind: cast.StLabelled, Pos: pos, Label: name, Body: p.parseStmt()}
		}
		return p.parseExprStmt()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseExprStmt() *cast.Stmt {
	pos := p.cur.Pos
	e := p.parseExpr()
	if _, ok := p.expect(token.Semicolon, "';'"); !ok && !p.opt.Strict {
		p.syncTo()
	}
	return &cast.Stmt{Kind: cast.StExpr, Pos: pos, Expr: e}
}

func (p *Parser) parseForStmt() *cast.Stmt {
	pos := p.cur.Pos
	p.advance() // for
	p.expect(token.LParen, "'('")
	p.pushScope()

	var init *cast.Stmt
	if !p.at(token.Semicolon) {
		if p.startsDeclSpec() {
			init = p.parseBlockItem()
		} else {
			e := p.parseExpr()
			p.expect(token.Semicolon, "';'")
			init = &cast.Stmt{Kind: cast.StExpr, Expr: e}
		}
	} else {
		p.advance()
	}

	var cond *cast.Expr
	if !p.at(token.Semicolon) {
		cond = p.parseExpr()
	}
	p.expect(token.Semicolon, "';'")

	var post *cast.Expr
	if !p.at(token.RParen) {
		post = p.parseExpr()
	}
	p.expect(token.RParen, "')'")

	body := p.parseStmt()
	p.popScope()
	return &cast.Stmt{Kind: cast.StFor, Pos: pos, Init: init, Cond: cond, Post: post, Body: body}
}

// parseAsmStmt accepts GCC-style asm without interpreting operand
// constraints (§4.4 "Extensions"): `asm [volatile] ( "text" [: ...] );`.
func (p *Parser) parseAsmStmt() *cast.Stmt {
	pos := p.cur.Pos
	p.advance() // asm / __asm__
	if p.at(token.KwVolatile) {
		p.advance()
	}
	p.expect(token.LParen, "'('")
	var text string
	depth := 1
	for depth > 0 && !p.at(token.EOF) {
		switch p.cur.Kind {
		case token.LParen:
			depth++
		case token.RParen:
			depth--
			if depth == 0 {
				p.advance()
				goto done
			}
		case token.StringLiteral:
			if text == "" {
				text = p.cur.Lit.Decoded
			}
		}
		p.advance()
	}
done:
	if _, ok := p.expect(token.Semicolon, "';'"); !ok && !p.opt.Strict {
		p.syncTo()
	}
	return &cast.Stmt{Kind: cast.StAsm, Pos: pos, AsmText: text}
}
