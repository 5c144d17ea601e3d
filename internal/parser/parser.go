package parser

import (
	"github.com/hkoba/go-macrogen/internal/cast"
	"github.com/hkoba/go-macrogen/internal/diag"
	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/token"
)

// Options configures a Parser (§4.4).
type Options struct {
	// Strict, when true, turns a syntax error into a fatal abort; when
	// false the parser resynchronises to the next ';' or '}' and flags the
	// recovered external or block-scope declaration (§4.4 "Failure
	// semantics").
	Strict bool

	// IsAssertionMacro reports whether name is one of the tiny built-in
	// wrapped-assertion set (`assert`, `assert_`); consulted when the
	// parser meets a MacroBegin marker (§4.4 "Internal-marker handling").
	IsAssertionMacro func(name intern.ID) bool

	// OnExternalDecl, if set, is invoked once per top-level ExternalDecl in
	// source order as Parse runs (§4.4 "client-visible iterator API"),
	// letting side tables (internal/dict) populate incrementally.
	OnExternalDecl func(*cast.ExternalDecl)
}

// Parser is a recursive-descent C parser pulling from a TokenSource (§4.4).
// A single Parser value is not re-entrant across goroutines, but the same
// *Parser* type is reused both for a live token stream and for a buffered
// macro body (§4.6.1), governed entirely by which TokenSource it wraps.
type Parser struct {
	src TokenSource
	in  *intern.Interner
	bag *diag.Bag
	opt Options

	cur  token.Token
	peek token.Token

	// typedefScopes mirrors `{…}` and function-parameter-list boundaries;
	// the innermost scope is last (§4.4 "Typedef disambiguation").
	typedefScopes []map[intern.ID]bool

	ids cast.IdAllocator

	builtinVaList intern.ID
}

// New returns a Parser ready to read from src. __builtin_va_list is
// pre-registered as a typedef at startup (§4.4).
func New(src TokenSource, bag *diag.Bag, opt Options) *Parser {
	p := &Parser{
		src: src,
		in:  src.Interner(),
		bag: bag,
		opt: opt,
	}
	p.pushScope()
	p.builtinVaList = p.in.Intern("__builtin_va_list")
	p.typedefScopes[0][p.builtinVaList] = true
	p.cur = p.src.Next()
	p.peek = p.src.Peek()
	return p
}

func (p *Parser) pushScope() {
	p.typedefScopes = append(p.typedefScopes, make(map[intern.ID]bool))
}

func (p *Parser) popScope() {
	p.typedefScopes = p.typedefScopes[:len(p.typedefScopes)-1]
}

func (p *Parser) markTypedef(name intern.ID) {
	p.typedefScopes[len(p.typedefScopes)-1][name] = true
}

func (p *Parser) isTypedefName(name intern.ID) bool {
	for i := len(p.typedefScopes) - 1; i >= 0; i-- {
		if p.typedefScopes[i][name] {
			return true
		}
	}
	return false
}

func (p *Parser) advance() token.Token {
	t := p.cur
	p.cur = p.src.Next()
	p.peek = p.src.Peek()
	return t
}

func (p *Parser) at(k token.Kind) bool { return p.cur.Kind == k }

func (p *Parser) atKeyword(name string) bool {
	return p.cur.Kind == token.Identifier && p.in.Lookup(p.cur.Name) == name
}

func (p *Parser) expect(k token.Kind, what string) (token.Token, bool) {
	if p.cur.Kind != k {
		p.errorf("expected %s, found %s", what, p.cur.String())
		return token.Token{}, false
	}
	return p.advance(), true
}

func (p *Parser) errorf(format string, args ...any) {
	p.bag.Add(diag.New(p.cur.Pos, diag.Parse, format, args...))
}

// syncTo resynchronises at the next ';' or closing '}' at the current
// nesting depth, consuming it, so the parser can continue with the next
// construct in non-strict mode (§4.4, §7 "statement boundaries").
func (p *Parser) syncTo() {
	depth := 0
	for {
		switch p.cur.Kind {
		case token.EOF:
			return
		case token.LBrace:
			depth++
		case token.RBrace:
			if depth == 0 {
				p.advance()
				return
			}
			depth--
		case token.Semicolon:
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

// ParseTranslationUnit parses a whole token stream as a sequence of external
// declarations, invoking opt.OnExternalDecl for each as it completes (§4.4
// "Outputs").
func (p *Parser) ParseTranslationUnit() []*cast.ExternalDecl {
	var out []*cast.ExternalDecl
	start := p.bag.Len()
	for !p.at(token.EOF) {
		if p.at(token.Semicolon) {
			p.advance() // stray top-level ';'
			continue
		}
		d := p.parseExternalDecl()
		if p.opt.Strict && p.bag.Len() > start {
			break
		}
		if d == nil {
			continue
		}
		out = append(out, d)
		if p.opt.OnExternalDecl != nil {
			p.opt.OnExternalDecl(d)
		}
	}
	return out
}
