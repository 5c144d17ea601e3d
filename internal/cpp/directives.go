package cpp

import (
	"strings"

	"github.com/hkoba/go-macrogen/internal/diag"
	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/token"
)

// handleDirective processes one directive line (the tokens after the `#`,
// not including it) and returns any tokens it produces for the output
// stream (only `#include` produces any). condStack is threaded by pointer
// since directives push/pop/mutate it.
func (p *Preprocessor) handleDirective(line []token.Token, hashPos intern.Pos, condStack *[]*condFrame, active, parentActive func() bool) ([]token.Token, *diag.Error) {
	if len(line) == 0 {
		// A bare `#` on its own line is a legal null directive.
		return nil, nil
	}
	name := line[0]
	directive := name.Text
	if name.Kind == token.Identifier {
		directive = p.in.Lookup(name.Name)
	} else if name.Kind != token.KwIf && name.Kind != token.KwElse {
		return nil, diag.New(hashPos, diag.Preprocessor, "expected a preprocessing directive name after '#'")
	}
	rest := line[1:]

	switch directive {
	case "define":
		if !active() {
			return nil, nil
		}
		return nil, p.handleDefine(rest, hashPos)
	case "undef":
		if !active() {
			return nil, nil
		}
		if len(rest) == 0 || rest[0].Kind != token.Identifier {
			return nil, diag.New(hashPos, diag.Preprocessor, "#undef expects a macro name")
		}
		p.tbl.Undef(rest[0].Name)
		return nil, nil
	case "include":
		if !active() {
			return nil, nil
		}
		return p.handleInclude(rest, hashPos)
	case "if":
		cond := parentActive()
		f := &condFrame{parentActive: cond, pos: hashPos}
		if cond {
			expanded := p.expandAll(replaceDefined(p, rest), map[intern.ID]bool{}, modeNormal)
			v := evalCondition(expanded, p.Bag)
			f.active = v.truthy()
			f.everTrue = f.active
		}
		*condStack = append(*condStack, f)
		return nil, nil
	case "ifdef", "ifndef":
		cond := parentActive()
		f := &condFrame{parentActive: cond, pos: hashPos}
		if cond {
			if len(rest) == 0 || rest[0].Kind != token.Identifier {
				return nil, diag.New(hashPos, diag.Preprocessor, "#%s expects a macro name", directive)
			}
			defined := p.tbl.IsDefined(rest[0].Name)
			if directive == "ifndef" {
				defined = !defined
			}
			f.active = defined
			f.everTrue = f.active
		}
		*condStack = append(*condStack, f)
		return nil, nil
	case "elif":
		if len(*condStack) == 0 {
			return nil, diag.New(hashPos, diag.Preprocessor, "#elif without matching #if")
		}
		top := (*condStack)[len(*condStack)-1]
		if top.parentActive && !top.everTrue {
			expanded := p.expandAll(replaceDefined(p, rest), map[intern.ID]bool{}, modeNormal)
			v := evalCondition(expanded, p.Bag)
			top.active = v.truthy()
			top.everTrue = top.active
		} else {
			top.active = false
		}
		return nil, nil
	case "else":
		if len(*condStack) == 0 {
			return nil, diag.New(hashPos, diag.Preprocessor, "#else without matching #if")
		}
		top := (*condStack)[len(*condStack)-1]
		if top.parentActive && !top.everTrue {
			top.active = true
			top.everTrue = true
		} else {
			top.active = false
		}
		return nil, nil
	case "endif":
		if len(*condStack) == 0 {
			return nil, diag.New(hashPos, diag.Preprocessor, "#endif without matching #if")
		}
		*condStack = (*condStack)[:len(*condStack)-1]
		return nil, nil
	case "line":
		// §4.3 recognises #line; remapping downstream source positions is
		// not implemented (see DESIGN.md), but the directive is still
		// validated so malformed uses are still caught.
		if !active() {
			return nil, nil
		}
		if len(rest) == 0 || rest[0].Kind != token.IntLiteral {
			return nil, diag.New(hashPos, diag.Preprocessor, "#line expects a line number")
		}
		return nil, nil
	case "error":
		if !active() {
			return nil, nil
		}
		return nil, diag.New(hashPos, diag.Preprocessor, "#error %s", spellLine(rest))
	case "warning":
		if active() {
			p.Bag.Add(diag.New(hashPos, diag.Preprocessor, "#warning %s", spellLine(rest)))
		}
		return nil, nil
	case "pragma":
		if !active() {
			return nil, nil
		}
		p.handlePragma(rest, hashPos)
		return nil, nil
	default:
		if !active() {
			return nil, nil
		}
		return nil, diag.New(hashPos, diag.Preprocessor, "unknown preprocessing directive #%s", directive)
	}
}

func spellLine(toks []token.Token) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && t.Spacing {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// replaceDefined resolves `defined(X)` / `defined X` to an integer literal
// 1 or 0 before general macro expansion runs over the rest of the line, per
// §4.3: "supporting defined(X) / defined X". This must happen before
// expansion because X itself must not be macro-expanded.
func replaceDefined(p *Preprocessor, toks []token.Token) []token.Token {
	var out []token.Token
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == token.Identifier && p.in.Lookup(t.Name) == "defined" {
			i++
			if i < len(toks) && toks[i].Kind == token.LParen {
				i++
				if i < len(toks) && toks[i].Kind == token.Identifier {
					nm := toks[i].Name
					i++
					if i < len(toks) && toks[i].Kind == token.RParen {
						out = append(out, intLit(t.Pos, b2i(p.tbl.IsDefined(nm))))
						continue
					}
				}
				// malformed; fall through leaving tokens mostly intact
				i -= 2
				out = append(out, t)
				continue
			}
			if i < len(toks) && toks[i].Kind == token.Identifier {
				out = append(out, intLit(t.Pos, b2i(p.tbl.IsDefined(toks[i].Name))))
				continue
			}
			out = append(out, t)
			i--
			continue
		}
		out = append(out, t)
	}
	return out
}

func intLit(pos intern.Pos, v int64) token.Token {
	return token.Token{Kind: token.IntLiteral, Pos: pos, Lit: token.Literal{Width: token.WidthInt, Int: v}, Text: "1"}
}

func (p *Preprocessor) handlePragma(rest []token.Token, pos intern.Pos) {
	if len(rest) == 0 {
		return
	}
	switch {
	case rest[0].Kind == token.Identifier && p.in.Lookup(rest[0].Name) == "once":
		// Every header is already treated as include-once (§4.3); nothing
		// further to do.
	case rest[0].Kind == token.Identifier && p.in.Lookup(rest[0].Name) == "pack":
		p.handlePragmaPack(rest[1:], pos)
	default:
		// Unknown pragmas are silently passed through (§4.3).
	}
}

func (p *Preprocessor) handlePragmaPack(rest []token.Token, pos intern.Pos) {
	// pack(push, n) | pack(pop) | pack(n)
	if len(rest) == 0 || rest[0].Kind != token.LParen {
		return
	}
	rest = rest[1:]
	if len(rest) == 0 {
		return
	}
	if rest[0].Kind == token.Identifier && p.in.Lookup(rest[0].Name) == "push" {
		n := 0
		for _, t := range rest {
			if t.Kind == token.IntLiteral {
				n = int(t.Lit.Int)
			}
		}
		p.packStack = append(p.packStack, packFrame{n: n, pos: pos})
		return
	}
	if rest[0].Kind == token.Identifier && p.in.Lookup(rest[0].Name) == "pop" {
		if len(p.packStack) > 0 {
			p.packStack = p.packStack[:len(p.packStack)-1]
		}
		return
	}
	if rest[0].Kind == token.IntLiteral {
		p.packStack = append(p.packStack, packFrame{n: int(rest[0].Lit.Int), pos: pos})
	}
}

// handleDefine parses `#define NAME body` or `#define NAME(params) body`
// (§4.3 "Macro definition and expansion").
func (p *Preprocessor) handleDefine(rest []token.Token, pos intern.Pos) *diag.Error {
	if len(rest) == 0 || rest[0].Kind != token.Identifier {
		return diag.New(pos, diag.Preprocessor, "#define expects a macro name")
	}
	name := rest[0]
	rest = rest[1:]

	m := &Macro{Name: name.Name, Kind: ObjectLike, DefinedAt: pos}

	if len(rest) > 0 && rest[0].Kind == token.LParen && !rest[0].Spacing {
		rest = rest[1:]
		m.Kind = FunctionLike
		for len(rest) > 0 && rest[0].Kind != token.RParen {
			if rest[0].Kind == token.Ellipsis {
				m.Variadic = true
				rest = rest[1:]
				break
			}
			if rest[0].Kind != token.Identifier {
				return diag.New(pos, diag.Preprocessor, "malformed macro parameter list")
			}
			m.Params = append(m.Params, rest[0].Name)
			rest = rest[1:]
			if len(rest) > 0 && rest[0].Kind == token.Comma {
				rest = rest[1:]
				continue
			}
			break
		}
		if len(rest) == 0 || rest[0].Kind != token.RParen {
			return diag.New(pos, diag.Preprocessor, "malformed macro parameter list: missing ')'")
		}
		rest = rest[1:]
		if m.Variadic {
			m.Params = append(m.Params, p.in.Intern("__VA_ARGS__"))
		}
	}

	m.Body = resolveParamRefs(rest, m.Params, p.in.Intern("__VA_ARGS__"))

	prev := p.tbl.Define(m)
	if prev != nil && !SameBody(prev, m) {
		msg := diag.New(pos, diag.Preprocessor, "macro %q redefined incompatibly", p.in.Lookup(name.Name))
		if p.strict {
			return msg
		}
		p.Bag.Add(msg)
	}
	return nil
}

// resolveParamRefs marks each identifier token in body that names one of
// params (or __VA_ARGS__, for a variadic macro) with its ParamRef payload,
// per §3: "body ... whose parameter references use a distinguished
// param-ref token payload".
func resolveParamRefs(body []token.Token, params []intern.ID, vaArgsName intern.ID) []token.Token {
	if len(params) == 0 {
		out := make([]token.Token, len(body))
		copy(out, body)
		return out
	}
	out := make([]token.Token, len(body))
	for i, t := range body {
		out[i] = t
		if t.Kind != token.Identifier {
			continue
		}
		for idx, p := range params {
			if p == t.Name {
				out[i].Param = token.ParamRef{IsParam: true, Index: idx}
				break
			}
		}
	}
	return out
}

// handleInclude resolves and recursively processes an #include target
// (§4.3). Quoted includes search the quote list then the system list;
// angle-bracket includes search the system list only.
func (p *Preprocessor) handleInclude(rest []token.Token, pos intern.Pos) ([]token.Token, *diag.Error) {
	if len(rest) == 0 {
		return nil, diag.New(pos, diag.Preprocessor, "#include expects a filename")
	}
	var target string
	var searchQuoteFirst bool
	if rest[0].Kind == token.StringLiteral {
		target = rest[0].Lit.Decoded
		searchQuoteFirst = true
	} else if rest[0].Kind == token.Lt {
		var sb strings.Builder
		i := 1
		for i < len(rest) && rest[i].Kind != token.Gt {
			sb.WriteString(rest[i].Text)
			i++
		}
		if i >= len(rest) {
			return nil, diag.New(pos, diag.Preprocessor, "malformed #include <...> directive")
		}
		target = sb.String()
		searchQuoteFirst = false
	} else {
		// A macro-expanded #include (the target was itself a macro that
		// expands to a header-name token) would need re-expansion here;
		// real-world target headers rarely rely on this, so it is not
		// supported (documented in DESIGN.md).
		return nil, diag.New(pos, diag.Preprocessor, "unsupported #include form")
	}

	var dirs []string
	if searchQuoteFirst {
		dirs = append(dirs, p.quoteDirs...)
	}
	dirs = append(dirs, p.sysDirs...)

	resolved, ok := p.resolveInclude(target, dirs)
	if !ok {
		return nil, diag.New(pos, diag.Preprocessor, "include file not found: %s", target)
	}

	// The included file's non-fatal diagnostics are collected in their own
	// batch and merged into the including file's bag via diag.Merge, rather
	// than appended directly, so each nested #include's batch keeps its own
	// identity through the merge instead of being flattened in place.
	outer := p.Bag
	inner := diag.NewBag()
	p.Bag = inner
	toks, ferr := p.processInclude(resolved, pos)
	p.Bag = outer
	outer.AddAll(diag.Merge(inner.Errors()))
	return toks, ferr
}

func (p *Preprocessor) resolveInclude(target string, dirs []string) (string, bool) {
	if strings.HasPrefix(target, "/") && p.src.Exists(target) {
		return target, true
	}
	for _, d := range dirs {
		cand := strings.TrimSuffix(d, "/") + "/" + target
		if p.src.Exists(cand) {
			return cand, true
		}
	}
	if p.src.Exists(target) {
		return target, true
	}
	return "", false
}
