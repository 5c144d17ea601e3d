package infer

import (
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/hkoba/go-macrogen/internal/cast"
	"github.com/hkoba/go-macrogen/internal/config"
	"github.com/hkoba/go-macrogen/internal/cpp"
	"github.com/hkoba/go-macrogen/internal/dict"
	"github.com/hkoba/go-macrogen/internal/intern"
)

// maxFixedPointRounds bounds the fixed-point loop (§4.6.8 "the number of
// iterations is bounded by the longest simple path in the use-graph plus
// one, and is empirically small"); this is a hard backstop against a
// pathological or mis-modelled cycle, not a tuning knob callers are meant
// to reach for.
const maxFixedPointRounds = 64

// Driver ties every artifact the inference driver needs (§4.6) into a
// single per-invocation context: the macro table, the three dictionaries,
// the external collaborators, and the macro records it builds.
type Driver struct {
	in         *intern.Interner
	reg        *intern.Registry
	cppctx     *cpp.Preprocessor
	fieldDict  *dict.FieldDict
	inlineDict *dict.InlineFuncDict
	enumDict   *dict.EnumVariantDict
	funcs      *config.ExternalFuncTable
	apidoc     *config.ApidocTable
	cfg        config.Config

	records map[intern.ID]*MacroRecord
}

// NewDriver returns a Driver ready to Run. The dictionaries must already be
// populated by a completed parse (§4.5); funcs/apidoc may be nil.
func NewDriver(
	in *intern.Interner,
	reg *intern.Registry,
	cppctx *cpp.Preprocessor,
	fieldDict *dict.FieldDict,
	inlineDict *dict.InlineFuncDict,
	enumDict *dict.EnumVariantDict,
	funcs *config.ExternalFuncTable,
	apidoc *config.ApidocTable,
	cfg config.Config,
) *Driver {
	if funcs == nil {
		funcs = config.NewExternalFuncTable()
	}
	if apidoc == nil {
		apidoc = config.NewApidocTable()
	}
	return &Driver{
		in: in, reg: reg, cppctx: cppctx,
		fieldDict: fieldDict, inlineDict: inlineDict, enumDict: enumDict,
		funcs: funcs, apidoc: apidoc, cfg: cfg,
		records: make(map[intern.ID]*MacroRecord),
	}
}

// isTargetMacro reports whether m was defined inside the configured
// target-directory prefix (§3 "A declaration is considered target when its
// defining source location lies inside a configured target-directory
// prefix"), extended here to macro definitions since §4.6 speaks of
// "every target macro". With no target-directory configured, every
// macro but the command-line bootstrap defines and the two predefined
// builtins counts as a target.
func (d *Driver) isTargetMacro(m *cpp.Macro) bool {
	name := d.in.Lookup(m.Name)
	if name == "__FILE__" || name == "__LINE__" {
		return false
	}
	path := d.reg.Path(m.DefinedAt.File)
	if path == "<command-line>" {
		return false
	}
	if d.cfg.TargetDirectory == "" {
		return true
	}
	return strings.HasPrefix(path, d.cfg.TargetDirectory)
}

// Run executes the full inference pipeline (§4.6.1–§4.6.8) and returns the
// inference result, the sole contract with an emitter (§6).
func (d *Driver) Run() InferenceResult {
	d.fieldDict.BuildConsistentTypeCache()

	for _, m := range d.cppctx.Table().All() {
		if !d.isTargetMacro(m) {
			continue
		}
		d.records[m.Name] = &MacroRecord{Name: m.Name, Macro: m, Params: m.Params}
	}

	for _, r := range d.records {
		outcome, synth := parseMacroBody(d, r.Macro)
		r.Outcome = outcome
		r.ThreadContextDependent = bodyReferencesThreadContext(d.in, r.Macro.Body)
		r.UsesTokenPasting = bodyUsesTokenPasting(r.Macro.Body)
		if outcome.Kind == OutcomeNoBody {
			r.Status = StatusSkip
			r.FailReason = "no-body"
			continue
		}
		if outcome.Kind == OutcomeUnparseable {
			r.Status = StatusParseFailed
			r.FailReason = outcome.Reason
			continue
		}
		v := newVisitor(d, synth)
		switch outcome.Kind {
		case OutcomeExpression:
			v.walkExpr(outcome.Expr, nil)
		case OutcomeStatement:
			v.walkStmt(outcome.Stmt, nil)
		}
		r.Uses = v.uses
		r.Env = v.env
	}

	// Build the used-by transpose (§4.6.2) once uses sets are known.
	for _, r := range d.records {
		if r.UsedBy == nil {
			r.UsedBy = make(map[intern.ID]bool)
		}
	}
	for userName, r := range d.records {
		for used := range r.Uses {
			if callee, ok := d.records[used]; ok {
				if callee.UsedBy == nil {
					callee.UsedBy = make(map[intern.ID]bool)
				}
				callee.UsedBy[userName] = true
			}
		}
	}

	PropagateFlags(d.records)
	d.runFixedPoint()
	d.finalizeStatuses()

	return d.buildResult()
}

// runFixedPoint implements §4.6.8: repeatedly re-run constraint collection
// and type selection for every unconfirmed macro whose uses are all
// confirmed or resolved outside the target set, moving macros to confirmed
// once every parameter and the return type are non-void.
func (d *Driver) runFixedPoint() {
	for round := 0; round < maxFixedPointRounds; round++ {
		changed := false
		for _, r := range d.records {
			if r.confirmed || r.Outcome.Kind == OutcomeUnparseable || r.Outcome.Kind == OutcomeNoBody {
				continue
			}
			if !d.usesReady(r) {
				continue
			}
			synth := d.synthMapFor(r)
			v := newVisitor(d, synth)
			switch r.Outcome.Kind {
			case OutcomeExpression:
				v.walkExpr(r.Outcome.Expr, nil)
			case OutcomeStatement:
				v.walkStmt(r.Outcome.Stmt, nil)
			}
			r.Env = v.env

			params, allResolved := d.selectParams(r)
			ret, retOK := d.selectReturn(r)
			r.ParamResults = params
			r.ReturnType = ret
			r.ReturnOK = retOK

			if allResolved && retOK {
				r.confirmed = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, r := range d.records {
		if r.confirmed || r.Outcome.Kind == OutcomeUnparseable || r.Outcome.Kind == OutcomeNoBody {
			continue
		}
		hasAny := false
		for _, pr := range r.ParamResults {
			if pr.Resolved {
				hasAny = true
			}
		}
		if hasAny || r.ReturnOK {
			r.unknown = true
		}
	}
}

func (d *Driver) synthMapFor(r *MacroRecord) map[intern.ID]intern.ID {
	synth := make(map[intern.ID]intern.ID, len(r.Params))
	_, synthNames := d.cppctx.ExpandForInference(r.Macro)
	for i, s := range synthNames {
		if i < len(r.Params) {
			synth[s] = r.Params[i]
		}
	}
	return synth
}

// usesReady reports whether every macro name r.Uses refers to is either
// already confirmed, or is not itself a target macro (an external/inline
// callee, whose type is already fixed) (§4.6.8 step 1).
func (d *Driver) usesReady(r *MacroRecord) bool {
	for name := range r.Uses {
		if callee, ok := d.records[name]; ok {
			if !callee.confirmed {
				return false
			}
		}
	}
	return true
}

func (d *Driver) selectParams(r *MacroRecord) ([]ParamResult, bool) {
	out := make([]ParamResult, len(r.Params))
	allResolved := true
	for i, p := range r.Params {
		cs := r.Env.ParamConstraints[p]
		t, ok := SelectParamType(cs)
		out[i] = ParamResult{Name: p, Resolved: ok && !IsVoid(t), Type: t, Candidates: cs}
		if !out[i].Resolved {
			allResolved = false
		}
	}
	return out, allResolved
}

func (d *Driver) selectReturn(r *MacroRecord) (TypeRep, bool) {
	apidocFn := func() (TypeRep, bool) {
		e, ok := d.apidoc.Lookup(d.in.Lookup(r.Name))
		if !ok {
			return TypeRep{}, false
		}
		return ParseTypeString(d.in, e.ReturnType), true
	}
	t, ok := SelectReturnType(r.Outcome, r.Env, apidocFn)
	if !ok || IsVoid(t) {
		return t, false
	}
	return t, true
}

// calleeType resolves what the visitor needs to know about a callable name:
// a confirmed target macro's settled types, an external function's
// declared types, or an inline function's declarator-derived types
// (§4.6.5 "Call", §4.6.6).
func (d *Driver) calleeType(name intern.ID) (calleeType, bool) {
	if r, ok := d.records[name]; ok {
		if !r.confirmed {
			return calleeType{}, false
		}
		pts := make([]TypeRep, len(r.ParamResults))
		for i, pr := range r.ParamResults {
			pts[i] = pr.Type
		}
		return calleeType{ParamTypes: pts, ReturnType: r.ReturnType}, true
	}
	if sig, ok := d.funcs.Lookup(d.in.Lookup(name)); ok {
		pts := make([]TypeRep, len(sig.ParamTypes))
		for i, s := range sig.ParamTypes {
			pts[i] = ParseTypeString(d.in, s)
		}
		return calleeType{ParamTypes: pts, ReturnType: ParseTypeString(d.in, sig.ReturnType)}, true
	}
	if fn, ok := d.inlineDict.Lookup(name); ok && fn.FuncDecl != nil {
		funcNode := findFunctionNode(fn.FuncDecl)
		var pts []TypeRep
		if funcNode != nil {
			pts = make([]TypeRep, len(funcNode.Params))
			for i, p := range funcNode.Params {
				pts[i] = TypeRep{Specs: p.Specs, Decl: p.Decl}
			}
		}
		return calleeType{
			ParamTypes: pts,
			ReturnType: TypeRep{Specs: fn.Specs, Decl: stripFunctionNode(fn.FuncDecl)},
			IsInline:   true,
		}, true
	}
	return calleeType{}, false
}

// findFunctionNode locates the DeclFunction link in a derived-type chain
// (the parameter list belongs there, not necessarily at the chain's head:
// `int *foo(int)` is Pointer{Inner: Function{Inner: Ident}}).
func findFunctionNode(d *cast.Declarator) *cast.Declarator {
	for cur := d; cur != nil; cur = cur.Inner {
		if cur.Kind == cast.DeclFunction {
			return cur
		}
	}
	return nil
}

// stripFunctionNode returns the derived chain that remains once the
// DeclFunction link is spliced out — the function's return type's own
// derived chain (e.g. the `Pointer` in `int *foo(int)`).
func stripFunctionNode(d *cast.Declarator) *cast.Declarator {
	if d == nil {
		return nil
	}
	if d.Kind == cast.DeclFunction {
		return d.Inner
	}
	clone := *d
	clone.Inner = stripFunctionNode(d.Inner)
	return &clone
}

// finalizeStatuses assigns the terminal §6 status to every record once the
// fixed-point loop and flag propagation have both settled.
func (d *Driver) finalizeStatuses() {
	for _, r := range d.records {
		r.References = d.referencesFor(r.Uses)
		if d.anyUnavailable(r.Uses) {
			r.CallsUnavailable = true
		}
	}
	// One more backward pass so a macro depending transitively (through an
	// already-unavailable user) on an unavailable callee is also flagged,
	// reusing the same used-by BFS machinery as the other flags.
	propagateOne(d.records, func(r *MacroRecord) bool { return r.CallsUnavailable },
		func(r *MacroRecord, v bool) { r.CallsUnavailable = v })

	for _, r := range d.records {
		switch {
		case r.Outcome.Kind == OutcomeUnparseable:
			r.Status = StatusParseFailed
		case r.Outcome.Kind == OutcomeNoBody:
			r.Status = StatusSkip
			r.FailReason = "no-body"
		case r.CallsUnavailable:
			r.Status = StatusCallsUnavailable
		case r.confirmed:
			r.Status = StatusSuccess
		case r.unknown:
			r.Status = StatusTypeIncomplete
			for _, pr := range r.ParamResults {
				if !pr.Resolved {
					r.UnresolvedAt = append(r.UnresolvedAt, pr.Name)
				}
			}
		default:
			r.Status = StatusSkip
			r.FailReason = "fixed point did not resolve any parameter or return type"
		}
	}
}

func (d *Driver) buildResult() InferenceResult {
	var res InferenceResult
	names := maps.Keys(d.records)
	slices.Sort(names)
	for _, name := range names {
		res.Macros = append(res.Macros, d.records[name])
	}
	if d.cfg.IncludeInlineFunctions {
		for _, name := range d.inlineDict.Names() {
			fn, ok := d.inlineDict.Lookup(name)
			if !ok {
				continue
			}
			res.Inlines = append(res.Inlines, &InlineFuncResult{
				Name:       name,
				Func:       fn,
				References: d.referencesFor(collectCallNames(d, fn)),
			})
		}
	}
	return res
}

func collectCallNames(d *Driver, fn *cast.ExternalDecl) map[intern.ID]bool {
	v := newVisitor(d, nil)
	if fn.FuncBody != nil {
		v.walkStmt(fn.FuncBody, nil)
	}
	return v.uses
}
