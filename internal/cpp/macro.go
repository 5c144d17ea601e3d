package cpp

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/token"
)

// MacroKind distinguishes object-like from function-like macros (§3).
type MacroKind int

const (
	ObjectLike MacroKind = iota
	FunctionLike
)

// Macro is a single macro-table entry (§3 "Macro definition").
type Macro struct {
	Name      intern.ID
	Kind      MacroKind
	Params    []intern.ID // ordered parameter names, function-like only
	Variadic  bool
	Body      []token.Token
	DefinedAt intern.Pos
}

// Table is the def/undef/redefine store consulted by expansion (§3 "Macro
// table"). Any #define replaces the prior entry; #undef removes it.
type Table struct {
	byName map[intern.ID]*Macro

	// SkipExpand holds names that are never expanded (§4.3 "selective-
	// expansion controls", control 1): they emerge from preprocessing as
	// plain identifier tokens. Seeded at startup from the external
	// declaration table's constant-name set (§6).
	SkipExpand map[intern.ID]bool

	// Wrapped holds names whose expansion is bracketed with MacroBegin/
	// MacroEnd markers (§4.3 control 2, §6 "wrapped-macro-names").
	Wrapped map[intern.ID]bool

	// ExplicitExpand holds the small whitelist consulted only in
	// for-inference expansion mode (§4.3 control 3, §4.6.1).
	ExplicitExpand map[intern.ID]bool
}

// NewTable returns an empty macro table with empty control sets.
func NewTable() *Table {
	return &Table{
		byName:         make(map[intern.ID]*Macro),
		SkipExpand:     make(map[intern.ID]bool),
		Wrapped:        make(map[intern.ID]bool),
		ExplicitExpand: make(map[intern.ID]bool),
	}
}

// Define installs m, replacing any previous definition for the same name.
// Returns the previous definition, if any, so the caller can check for a
// benign vs. incompatible redefinition (§4.3).
func (t *Table) Define(m *Macro) (prev *Macro) {
	prev = t.byName[m.Name]
	t.byName[m.Name] = m
	return prev
}

// Undef removes name from the table. A no-op if it was not defined.
func (t *Table) Undef(name intern.ID) {
	delete(t.byName, name)
}

// Lookup returns the current definition of name, or nil if undefined.
func (t *Table) Lookup(name intern.ID) *Macro {
	return t.byName[name]
}

// IsDefined reports whether name currently has a definition (for `defined`
// and #ifdef/#ifndef).
func (t *Table) IsDefined(name intern.ID) bool {
	_, ok := t.byName[name]
	return ok
}

// All returns every macro currently defined, sorted by name for reproducible
// enumeration order. The inference driver (§4.6) uses this to enumerate
// candidate target macros after preprocessing a header set completes.
func (t *Table) All() []*Macro {
	names := maps.Keys(t.byName)
	slices.Sort(names)
	out := make([]*Macro, 0, len(names))
	for _, n := range names {
		out = append(out, t.byName[n])
	}
	return out
}

// SameBody reports whether two macro definitions are equal for the purpose
// of the "benign redefinition" check (§4.3): same kind, params, variadic
// flag, and token texts.
func SameBody(a, b *Macro) bool {
	if a.Kind != b.Kind || a.Variadic != b.Variadic || len(a.Params) != len(b.Params) || len(a.Body) != len(b.Body) {
		return false
	}
	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}
	for i := range a.Body {
		if a.Body[i].Kind != b.Body[i].Kind || a.Body[i].Text != b.Body[i].Text {
			return false
		}
		if a.Body[i].Param != b.Body[i].Param {
			return false
		}
	}
	return true
}

// ParamIndex returns the 0-based index of p among the macro's parameters,
// or -1 if p is not one of them. The variadic trailing parameter (if any)
// is addressed by the synthetic name __VA_ARGS__ and is appended to Params
// by the parser when a macro definition uses `...` (§3: "__VA_ARGS__
// references inside the body become parameter references to a synthetic
// trailing parameter").
func (m *Macro) ParamIndex(p intern.ID) int {
	for i, q := range m.Params {
		if q == p {
			return i
		}
	}
	return -1
}
