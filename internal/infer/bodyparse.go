package infer

import (
	"github.com/hkoba/go-macrogen/internal/cpp"
	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/parser"
)

// parseMacroBody runs §4.6.1 once per macro: expand the body in
// for-inference mode with synthetic parameter identifiers, then try to
// parse the result first as an expression, then as a statement. A
// body-less object macro (`#define FOO` with no replacement tokens) is
// recognised before expansion is even attempted: it is reported as
// `Skip(no-body)` rather than a parse failure (§4.6.1 "Boundary
// behaviors").
func parseMacroBody(d *Driver, m *cpp.Macro) (ParseOutcome, map[intern.ID]intern.ID) {
	if len(m.Body) == 0 {
		return ParseOutcome{Kind: OutcomeNoBody}, nil
	}

	toks, synthNames := d.cppctx.ExpandForInference(m)
	synth := make(map[intern.ID]intern.ID, len(synthNames))
	for i, s := range synthNames {
		if i < len(m.Params) {
			synth[s] = m.Params[i]
		}
	}

	popt := parser.Options{Strict: false, IsAssertionMacro: d.cppctx.IsAssertionMacro}

	if expr, ok := parser.ParseExpressionBody(parser.NewSliceSource(d.in, toks), popt); ok {
		return ParseOutcome{Kind: OutcomeExpression, Expr: expr}, synth
	}
	if stmt, ok := parser.ParseStatementBody(parser.NewSliceSource(d.in, toks), popt); ok {
		return ParseOutcome{Kind: OutcomeStatement, Stmt: stmt}, synth
	}
	return ParseOutcome{Kind: OutcomeUnparseable, Reason: "body parses as neither an expression nor a statement"}, synth
}
