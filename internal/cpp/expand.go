package cpp

import (
	"strconv"
	"strings"

	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/token"
)

// expandMode distinguishes the normal output-producing expansion pass from
// the inference driver's re-expansion of a macro body in isolation (§4.6.1:
// "expanded a second time, in a mode that also expands the small
// explicit-expand whitelist").
type expandMode int

const (
	modeNormal expandMode = iota
	modeInference
)

// expandAll rewrites toks by repeatedly expanding macro invocations, honouring
// the active set of "currently expanding" names passed down through nested
// argument scanning to prevent infinite recursion on self-referential macros
// (§4.3: "a set of currently-expanding macro names is propagated through
// nested argument scanning").
func (p *Preprocessor) expandAll(toks []token.Token, active map[intern.ID]bool, mode expandMode) []token.Token {
	var out []token.Token
	i := 0
	for i < len(toks) {
		t := toks[i]
		if t.Kind != token.Identifier {
			out = append(out, t)
			i++
			continue
		}
		if t.Name == p.in.Intern("__FILE__") || t.Name == p.in.Intern("__LINE__") {
			out = append(out, p.expandBuiltin(t))
			i++
			continue
		}
		if active[t.Name] {
			out = append(out, t)
			i++
			continue
		}
		if p.tbl.SkipExpand[t.Name] {
			out = append(out, t)
			i++
			continue
		}
		m := p.tbl.Lookup(t.Name)
		if m == nil || (mode == modeInference && m.Kind == FunctionLike && !p.tbl.ExplicitExpand[t.Name]) {
			out = append(out, t)
			i++
			continue
		}
		if m.Kind == ObjectLike {
			wrapped := p.tbl.Wrapped[t.Name]
			nested := withActive(active, t.Name)
			body := p.substitute(m, nil, nil)
			expanded := p.expandAll(body, nested, mode)
			if wrapped {
				out = append(out, p.wrapBegin(t, nil), joinExpanded(expanded)...)
				out = append(out, p.wrapEnd(t))
			} else {
				out = append(out, expanded...)
			}
			i++
			continue
		}

		// Function-like macro: only a call if immediately followed (modulo
		// nothing, since whitespace carries no tokens) by '('.
		if i+1 >= len(toks) || toks[i+1].Kind != token.LParen {
			out = append(out, t)
			i++
			continue
		}
		rawArgs, consumed, ok := scanArgs(toks, i+1)
		if !ok {
			out = append(out, t)
			i++
			continue
		}
		rawArgs, ok = prepareArgs(m, rawArgs)
		if !ok {
			out = append(out, t)
			i++
			continue
		}
		expArgs := make([][]token.Token, len(rawArgs))
		nested := withActive(active, t.Name)
		for k, a := range rawArgs {
			expArgs[k] = p.expandAll(a, nested, mode)
		}
		body := p.substitute(m, rawArgs, expArgs)
		expanded := p.expandAll(body, nested, mode)

		wrapped := p.tbl.Wrapped[t.Name]
		if wrapped {
			out = append(out, p.wrapBegin(t, rawArgs), joinExpanded(expanded)...)
			out = append(out, p.wrapEnd(t))
		} else {
			out = append(out, expanded...)
		}
		i = consumed
	}
	return out
}

func joinExpanded(toks []token.Token) []token.Token { return toks }

func (p *Preprocessor) wrapBegin(name token.Token, rawArgs [][]token.Token) token.Token {
	preserve := !p.assertionNames[name.Name]
	return token.Token{
		Kind: token.MacroBeginMark,
		Pos:  name.Pos,
		Marker: &token.MacroMarker{
			Name:         name.Name,
			ArgTokens:    rawArgs,
			PreserveCall: preserve,
		},
	}
}

func (p *Preprocessor) wrapEnd(name token.Token) token.Token {
	return token.Token{Kind: token.MacroEndMark, Pos: name.Pos, Marker: &token.MacroMarker{Name: name.Name}}
}

func (p *Preprocessor) expandBuiltin(t token.Token) token.Token {
	name := p.in.Lookup(t.Name)
	if name == "__LINE__" {
		s := strconv.Itoa(t.Pos.Line)
		return token.Token{Kind: token.IntLiteral, Pos: t.Pos, Text: s, Lit: token.Literal{Width: token.WidthInt, Int: int64(t.Pos.Line)}}
	}
	path := p.reg.Path(t.Pos.File)
	return token.Token{Kind: token.StringLiteral, Pos: t.Pos, Text: strconv.Quote(path), Lit: token.Literal{Decoded: path}}
}

func withActive(active map[intern.ID]bool, name intern.ID) map[intern.ID]bool {
	nested := make(map[intern.ID]bool, len(active)+1)
	for k := range active {
		nested[k] = true
	}
	nested[name] = true
	return nested
}

// scanArgs collects a balanced-parenthesis argument list for a function-like
// macro call whose name token is immediately followed by toks[lparen]
// (which must be an LParen). It honours nested parens, brackets and braces,
// and treats string/char literal tokens as opaque (their internal commas and
// parens never count). Returns the raw (unexpanded) token slice for each
// argument, the index just past the closing ')', and whether a well-formed
// call was found.
func scanArgs(toks []token.Token, lparen int) ([][]token.Token, int, bool) {
	if lparen >= len(toks) || toks[lparen].Kind != token.LParen {
		return nil, lparen, false
	}
	depth := 0
	var args [][]token.Token
	var cur []token.Token
	i := lparen
	for ; i < len(toks); i++ {
		t := toks[i]
		switch t.Kind {
		case token.LParen, token.LBracket, token.LBrace:
			depth++
			if depth == 1 && t.Kind == token.LParen {
				continue // skip the opening '(' of the call itself
			}
			cur = append(cur, t)
		case token.RParen, token.RBracket, token.RBrace:
			depth--
			if depth == 0 && t.Kind == token.RParen {
				args = append(args, cur)
				i++
				return normalizeEmptyArgs(args), i, true
			}
			cur = append(cur, t)
		case token.Comma:
			if depth == 1 {
				args = append(args, cur)
				cur = nil
			} else {
				cur = append(cur, t)
			}
		case token.EOF:
			return nil, lparen, false
		default:
			cur = append(cur, t)
		}
	}
	return nil, lparen, false
}

// normalizeEmptyArgs treats a single all-empty argument list, i.e. `NAME()`,
// as zero arguments rather than one empty argument, matching a plain
// zero-parameter call.
func normalizeEmptyArgs(args [][]token.Token) [][]token.Token {
	if len(args) == 1 && len(args[0]) == 0 {
		return nil
	}
	return args
}

// prepareArgs validates the collected argument count against the macro's
// parameter list (§3 invariant: a call must supply exactly the declared
// parameter count, or at least that many for a variadic macro, to be
// expanded; otherwise it is left as a literal call) and folds any trailing
// variadic arguments into a single comma-joined argument bound to
// __VA_ARGS__.
func prepareArgs(m *Macro, raw [][]token.Token) ([][]token.Token, bool) {
	if !m.Variadic {
		if len(raw) == 0 && len(m.Params) == 1 {
			// `F()` supplies one empty argument to a one-parameter macro.
			return [][]token.Token{nil}, true
		}
		return raw, len(raw) == len(m.Params)
	}
	fixed := len(m.Params) - 1
	if fixed < 0 {
		fixed = 0
	}
	if len(raw) < fixed {
		return raw, false
	}
	if len(raw) == fixed {
		// No variadic tokens supplied; bind an empty __VA_ARGS__.
		out := make([][]token.Token, fixed+1)
		copy(out, raw)
		return out, true
	}
	out := make([][]token.Token, fixed+1)
	copy(out, raw[:fixed])
	var va []token.Token
	for k := fixed; k < len(raw); k++ {
		if k > fixed {
			va = append(va, token.Token{Kind: token.Comma, Text: ","})
		}
		va = append(va, raw[k]...)
	}
	out[fixed] = va
	return out, true
}

// substitute builds a macro's replacement token list from its body,
// performing `#` stringizing and `##` pasting, and substituting plain
// parameter references with the corresponding (already macro-expanded,
// except under # or ##) argument. rawArgs/expArgs are nil for an
// object-like macro.
//
// Substitution runs in two passes: the first expands each body position
// (stringize, parameter substitution, or literal token) into a "part" — a
// token slice — while remembering which adjacent part boundaries were
// joined by `##` in the original body; the second pass pastes across
// exactly those boundaries (§4.3: "the last raw token of the left operand
// and the first raw token of the right operand are concatenated and
// re-lexed as a single token; any remaining tokens of a multi-token
// argument are emitted unchanged on either side").
func (p *Preprocessor) substitute(m *Macro, rawArgs, expArgs [][]token.Token) []token.Token {
	body := m.Body
	var parts [][]token.Token
	var pasteBefore []bool

	for i := 0; i < len(body); i++ {
		t := body[i]

		if t.Kind == token.HashHash {
			if len(pasteBefore) > 0 {
				pasteBefore[len(pasteBefore)-1] = true
			}
			continue
		}

		if t.Kind == token.Hash && i+1 < len(body) && body[i+1].Param.IsParam {
			idx := body[i+1].Param.Index
			arg := argAt(rawArgs, idx)
			parts = append(parts, []token.Token{p.stringize(arg, t.Pos)})
			pasteBefore = append(pasteBefore, false)
			i++
			continue
		}

		if t.Param.IsParam {
			pastingLeft := i+1 < len(body) && body[i+1].Kind == token.HashHash
			pastingRight := i > 0 && body[i-1].Kind == token.HashHash
			if pastingLeft || pastingRight {
				parts = append(parts, cloneTokens(argAt(rawArgs, t.Param.Index)))
			} else {
				parts = append(parts, cloneTokens(argAt(expArgs, t.Param.Index)))
			}
			pasteBefore = append(pasteBefore, false)
			continue
		}

		parts = append(parts, []token.Token{t})
		pasteBefore = append(pasteBefore, false)
	}

	return p.pasteParts(parts, pasteBefore)
}

// pasteParts concatenates parts, merging the boundary between parts[i] and
// parts[i+1] via paste() whenever pasteBefore[i] is set (a `##` stood
// between those two body positions).
func (p *Preprocessor) pasteParts(parts [][]token.Token, pasteBefore []bool) []token.Token {
	var out []token.Token
	for i, part := range parts {
		if i > 0 && pasteBefore[i-1] {
			if len(out) > 0 && len(part) > 0 {
				left := out[len(out)-1]
				right := part[0]
				out[len(out)-1] = p.paste(left, right)
				out = append(out, part[1:]...)
				continue
			}
			if len(part) == 0 {
				continue
			}
		}
		out = append(out, part...)
	}
	return out
}

func argAt(args [][]token.Token, idx int) []token.Token {
	if idx < 0 || idx >= len(args) {
		return nil
	}
	return args[idx]
}

func cloneTokens(toks []token.Token) []token.Token {
	out := make([]token.Token, len(toks))
	copy(out, toks)
	return out
}

// paste implements `##`: the raw spellings of a and b are concatenated and
// re-lexed as a single token (§4.3). A paste that does not yield exactly
// one valid token is not diagnosed precisely here; the identifier fallback
// keeps later stages fed with a plausible token rather than aborting, since
// most real-world pastes form a single identifier or number.
func (p *Preprocessor) paste(a, b token.Token) token.Token {
	text := a.Text + b.Text
	toks, err := lexAll(p.in, a.Pos.File, text)
	if err != nil || len(toks) == 0 || (len(toks) == 1 && toks[0].Kind == token.EOF) {
		return token.Token{Kind: token.Identifier, Pos: a.Pos, Name: p.in.Intern(text), Text: text}
	}
	result := toks[0]
	result.Pos = a.Pos
	return result
}

// stringize implements `#` (§4.3): the argument's tokens are re-spelled with
// original inter-token spacing collapsed to single spaces, and any embedded
// `"` or `\` inside a string or char literal operand is backslash-escaped.
func (p *Preprocessor) stringize(arg []token.Token, pos intern.Pos) token.Token {
	var sb strings.Builder
	for i, t := range arg {
		if i > 0 && t.Spacing {
			sb.WriteByte(' ')
		}
		if t.Kind == token.StringLiteral || t.Kind == token.CharLiteral {
			sb.WriteString(strings.ReplaceAll(strings.ReplaceAll(t.Text, `\`, `\\`), `"`, `\"`))
		} else {
			sb.WriteString(t.Text)
		}
	}
	decoded := sb.String()
	return token.Token{
		Kind: token.StringLiteral,
		Pos:  pos,
		Text: strconv.Quote(decoded),
		Lit:  token.Literal{Decoded: decoded},
	}
}
