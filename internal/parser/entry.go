package parser

import (
	"github.com/hkoba/go-macrogen/internal/cast"
	"github.com/hkoba/go-macrogen/internal/diag"
	"github.com/hkoba/go-macrogen/internal/token"
)

// ParseExpressionBody parses src as a single C expression and requires the
// whole input to be consumed, i.e. the next token after the expression is
// EOF (§4.6.1 "attempt to parse the sequence first as a single C
// expression"). ok is false on any diagnostic or leftover input; the
// caller (internal/infer) then falls back to ParseStatementBody.
func ParseExpressionBody(src TokenSource, opt Options) (expr *cast.Expr, ok bool) {
	bag := diag.NewBag()
	p := New(src, bag, opt)
	expr = p.parseExpr()
	if bag.Len() > 0 || !p.at(token.EOF) {
		return nil, false
	}
	return expr, true
}

// ParseStatementBody parses src as a single C statement and requires the
// whole input to be consumed (§4.6.1 "then, if that fails at end-of-input,
// as a C statement").
func ParseStatementBody(src TokenSource, opt Options) (stmt *cast.Stmt, ok bool) {
	bag := diag.NewBag()
	p := New(src, bag, opt)
	stmt = p.parseStmt()
	if bag.Len() > 0 || !p.at(token.EOF) {
		return nil, false
	}
	return stmt, true
}
