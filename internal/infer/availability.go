package infer

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/hkoba/go-macrogen/internal/config"
	"github.com/hkoba/go-macrogen/internal/intern"
)

// isAvailable implements §4.6.4: a callee name is available iff it is
// another target macro that parses, an external function, an inline
// function, or a known compiler builtin.
func (d *Driver) isAvailable(name intern.ID) bool {
	if r, ok := d.records[name]; ok {
		return r.Outcome.Kind != OutcomeUnparseable
	}
	if _, ok := d.funcs.Lookup(d.in.Lookup(name)); ok {
		return true
	}
	if _, ok := d.inlineDict.Lookup(name); ok {
		return true
	}
	return config.KnownBuiltins[d.in.Lookup(name)]
}

// referencesFor builds the per-name availability list the inference result
// reports for one macro, sorted by name for reproducible output (§6 "list of
// referenced names with per-name availability"; §8).
func (d *Driver) referencesFor(uses map[intern.ID]bool) []NameAvailability {
	names := maps.Keys(uses)
	slices.Sort(names)
	out := make([]NameAvailability, 0, len(names))
	for _, name := range names {
		out = append(out, NameAvailability{Name: name, Available: d.isAvailable(name)})
	}
	return out
}

// anyUnavailable reports whether uses contains at least one unavailable
// name, directly or (already folded in by the caller) transitively.
func (d *Driver) anyUnavailable(uses map[intern.ID]bool) bool {
	for name := range uses {
		if !d.isAvailable(name) {
			return true
		}
	}
	return false
}
