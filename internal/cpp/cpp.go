// Package cpp implements the C preprocessor (§4.3): macro definition and
// expansion (object-like, function-like, `#`, `##`, variadic), conditional
// compilation, `#include` resolution with an include-once cache, and the
// small set of selective-expansion controls the inference driver needs
// (skip-expand, wrapped, explicit-expand).
//
// Rather than a "parser pulls, preprocessor pushes lazily" protocol, this
// implementation processes one file to completion in a single left-to-right
// pass before returning its token slice: headers are read in full anyway,
// and a single pass is enough to preserve every ordering guarantee §5
// requires (a #define takes effect exactly at its textual position; a
// macro-table mutation is visible to every token after it, and to no token
// before it) while being far simpler to get right than a fully interleaved
// pull protocol. See DESIGN.md.
package cpp

import (
	"strings"

	"github.com/hkoba/go-macrogen/internal/diag"
	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/lexer"
	"github.com/hkoba/go-macrogen/internal/token"
)

// Define is one command-line macro definition (§6, §4.3 "predefined macro
// bootstrap"). Name may include a parenthesized parameter list, e.g.
// `__UINTMAX_C(c)`, to define a function-like macro exactly as `-D` would.
type Define struct {
	Name string
	Body string
}

// Options configures a Preprocessor (§6 "per-invocation configuration",
// restricted to the fields this package owns).
type Options struct {
	QuoteIncludeDirs    []string
	SystemIncludeDirs   []string
	Defines             []Define
	SkipExpandNames     []string
	WrappedNames        []string
	ExplicitExpandNames []string
	StrictRedefinition  bool
}

var defaultWrappedNames = []string{"assert", "assert_"}

type packFrame struct {
	n   int
	pos intern.Pos
}

// Preprocessor is the per-invocation preprocessing context (§5: confined to
// a single invocation's scope, no hidden global state).
type Preprocessor struct {
	in  *intern.Interner
	reg *intern.Registry
	tbl *Table
	src Source

	quoteDirs []string
	sysDirs   []string

	onceCache map[string]bool
	packStack []packFrame
	strict    bool

	assertionNames map[intern.ID]bool

	Bag *diag.Bag
}

// New returns a Preprocessor ready to run. src resolves #include targets;
// pass OSSource{} for real headers or a *MapSource in tests.
func New(in *intern.Interner, reg *intern.Registry, src Source, opt Options) *Preprocessor {
	p := &Preprocessor{
		in:        in,
		reg:       reg,
		tbl:       NewTable(),
		src:       src,
		quoteDirs: opt.QuoteIncludeDirs,
		sysDirs:   opt.SystemIncludeDirs,
		onceCache: make(map[string]bool),
		strict:    opt.StrictRedefinition,
		Bag:       diag.NewBag(),
	}

	wrapped := opt.WrappedNames
	if len(wrapped) == 0 {
		wrapped = defaultWrappedNames
	}
	p.assertionNames = make(map[intern.ID]bool, len(defaultWrappedNames))
	for _, n := range defaultWrappedNames {
		p.assertionNames[in.Intern(n)] = true
	}
	for _, n := range wrapped {
		p.tbl.Wrapped[in.Intern(n)] = true
	}
	for _, n := range opt.SkipExpandNames {
		p.tbl.SkipExpand[in.Intern(n)] = true
	}
	explicit := opt.ExplicitExpandNames
	if len(explicit) == 0 {
		explicit = []string{"HvNAME_get", "SvANY", "SvFLAGS"}
	}
	for _, n := range explicit {
		p.tbl.ExplicitExpand[in.Intern(n)] = true
	}

	p.tbl.Define(&Macro{Name: in.Intern("__FILE__"), Kind: ObjectLike})
	p.tbl.Define(&Macro{Name: in.Intern("__LINE__"), Kind: ObjectLike})

	p.bootstrap(opt.Defines)
	return p
}

// Table exposes the live macro table, read by the parser (§4.4, wrapped-
// macro/assertion checks) and by the inference driver (§4.6, name-use
// graph and for-inference re-expansion).
func (p *Preprocessor) Table() *Table { return p.tbl }

// IsAssertionMacro reports whether name is one of the small built-in set
// (`assert`, `assert_`) the parser must turn into an Assert node rather
// than a MacroCall node (§4.4).
func (p *Preprocessor) IsAssertionMacro(name intern.ID) bool { return p.assertionNames[name] }

func (p *Preprocessor) bootstrap(defines []Define) {
	if len(defines) == 0 {
		return
	}
	var sb strings.Builder
	for _, d := range defines {
		body := d.Body
		if body == "" {
			body = "1"
		}
		sb.WriteString("#define ")
		sb.WriteString(d.Name)
		sb.WriteByte(' ')
		sb.WriteString(body)
		sb.WriteByte('\n')
	}
	const virtualPath = "<command-line>"
	fid := p.reg.RegisterPath(virtualPath)
	toks, ferr := lexAll(p.in, fid, sb.String())
	if ferr != nil {
		p.Bag.Add(ferr)
		return
	}
	p.walk(toks)
}

// Run preprocesses entryAbsPath and returns the fully expanded token stream
// (terminated by a single EOF token) along with a fatal error, if any
// (§4.3 "directive syntax errors ... abort preprocessing"). Non-fatal
// diagnostics accumulate in p.Bag.
func (p *Preprocessor) Run(entryAbsPath string) ([]token.Token, *diag.Error) {
	out, ferr := p.processInclude(entryAbsPath, intern.Pos{})
	if ferr != nil {
		return nil, ferr
	}
	out = append(out, token.Token{Kind: token.EOF})
	return out, nil
}

func lexAll(in *intern.Interner, fid intern.FileID, content string) ([]token.Token, *diag.Error) {
	lx := lexer.New(in, fid, content)
	var toks []token.Token
	for {
		t, err := lx.NextToken()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.Kind == token.EOF {
			break
		}
	}
	return toks, nil
}

// processInclude resolves, reads, and walks one file, honouring the
// include-once cache (§4.3, invariant 2: "a path is opened at most once
// per invocation"). absPath must already be resolved against the include
// path lists by the caller (or be an entry-file absolute path per §6).
func (p *Preprocessor) processInclude(absPath string, at intern.Pos) ([]token.Token, *diag.Error) {
	canon, err := p.src.Abs(absPath)
	if err != nil {
		return nil, diag.New(at, diag.Preprocessor, "cannot resolve path %q: %v", absPath, err)
	}
	if p.onceCache[canon] {
		return nil, nil
	}
	p.onceCache[canon] = true

	content, err := p.src.ReadFile(canon)
	if err != nil {
		return nil, diag.New(at, diag.Preprocessor, "cannot read %q: %v", canon, err)
	}

	fid := p.reg.RegisterPath(canon)
	toks, ferr := lexAll(p.in, fid, content)
	if ferr != nil {
		return nil, ferr
	}
	// Scoped acquisition/release (§9 "scoped resources"): the file's
	// content and token buffer are local to this call and released (GC'd)
	// on every exit path below, including the propagated-error path,
	// since nothing retains a pointer into them beyond this function.
	return p.walk(toks)
}

type condFrame struct {
	active       bool
	everTrue     bool
	parentActive bool
	pos          intern.Pos
}

// walk performs the single left-to-right pass described in the package
// doc: directive recognition, conditional-compilation gating, and macro
// expansion, all interleaved so that a #define's effect is visible to
// every token after it and none before it (§5).
func (p *Preprocessor) walk(toks []token.Token) ([]token.Token, *diag.Error) {
	var out []token.Token
	var condStack []*condFrame

	active := func() bool {
		if len(condStack) == 0 {
			return true
		}
		return condStack[len(condStack)-1].active
	}
	parentActive := func() bool {
		if len(condStack) == 0 {
			return true
		}
		top := condStack[len(condStack)-1]
		return top.active && top.parentActive
	}

	i := 0
	for i < len(toks) && toks[i].Kind != token.EOF {
		atLineStart := i == 0 || toks[i].Pos.Line != toks[i-1].Pos.Line || toks[i].Pos.File != toks[i-1].Pos.File
		if atLineStart && toks[i].Kind == token.Hash {
			j := i + 1
			for j < len(toks) && toks[j].Kind != token.EOF && toks[j].Pos.Line == toks[i].Pos.Line {
				j++
			}
			emitted, ferr := p.handleDirective(toks[i+1:j], toks[i].Pos, &condStack, active, parentActive)
			if ferr != nil {
				return nil, ferr
			}
			out = append(out, emitted...)
			i = j
			continue
		}
		if !active() {
			i++
			continue
		}
		j := i
		for j < len(toks) && toks[j].Kind != token.EOF {
			if j > i {
				ls := toks[j].Pos.Line != toks[j-1].Pos.Line || toks[j].Pos.File != toks[j-1].Pos.File
				if ls && toks[j].Kind == token.Hash {
					break
				}
			}
			j++
		}
		expanded := p.expandAll(toks[i:j], map[intern.ID]bool{}, modeNormal)
		out = append(out, expanded...)
		i = j
	}

	if len(condStack) != 0 {
		top := condStack[len(condStack)-1]
		return nil, diag.New(top.pos, diag.Preprocessor, "unterminated conditional (missing #endif)")
	}
	return out, nil
}
