package infer

import (
	"github.com/hkoba/go-macrogen/internal/config"
	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/token"
)

// bodyReferencesThreadContext scans a macro's raw, unexpanded body tokens
// for any of the fixed thread-context identifiers (§4.6.3).
func bodyReferencesThreadContext(in *intern.Interner, body []token.Token) bool {
	for _, t := range body {
		if t.Kind == token.Identifier && config.ThreadContextIdentifiers[in.Lookup(t.Name)] {
			return true
		}
	}
	return false
}

// bodyUsesTokenPasting reports whether a macro's raw body contains a `##`
// operator (§4.6.3 "the same mechanism ... propagate the uses-token-pasting
// flag").
func bodyUsesTokenPasting(body []token.Token) bool {
	for _, t := range body {
		if t.Kind == token.HashHash {
			return true
		}
	}
	return false
}

// PropagateFlags runs the single backwards BFS described in §4.6.3: any
// macro that uses an already-flagged macro inherits the flag, for both the
// thread-context-dependent and uses-token-pasting flags, seeded from
// records whose own bodies already set them.
func PropagateFlags(records map[intern.ID]*MacroRecord) {
	propagateOne(records, func(r *MacroRecord) bool { return r.ThreadContextDependent },
		func(r *MacroRecord, v bool) { r.ThreadContextDependent = v })
	propagateOne(records, func(r *MacroRecord) bool { return r.UsesTokenPasting },
		func(r *MacroRecord, v bool) { r.UsesTokenPasting = v })
}

func propagateOne(records map[intern.ID]*MacroRecord, get func(*MacroRecord) bool, set func(*MacroRecord, bool)) {
	var queue []intern.ID
	for name, r := range records {
		if get(r) {
			queue = append(queue, name)
		}
	}
	visited := make(map[intern.ID]bool, len(queue))
	for _, n := range queue {
		visited[n] = true
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		r := records[name]
		if r == nil {
			continue
		}
		for userName := range r.UsedBy {
			user := records[userName]
			if user == nil || get(user) {
				continue
			}
			set(user, true)
			if !visited[userName] {
				visited[userName] = true
				queue = append(queue, userName)
			}
		}
	}
}
