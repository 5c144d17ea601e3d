// Package intern provides the string interner and source-location registry
// shared by every other component. Identifiers, struct/field/macro names and
// include paths all flow through here so the rest of the core can compare
// names by integer instead of by string.
package intern

import "fmt"

// ID is an opaque, dense, zero-based identifier for an interned byte string.
// Equal IDs compare equal; there is no ordering guarantee beyond that.
type ID int32

// Interner assigns a stable ID to each distinct string it sees. The zero
// value is not usable; construct one with New.
type Interner struct {
	ids     map[string]ID
	strings []string
}

// New returns an empty Interner.
func New() *Interner {
	return &Interner{ids: make(map[string]ID, 256)}
}

// Intern returns the ID for s, assigning a new one if s has not been seen
// before. Intern is idempotent: interning the same bytes twice returns the
// same ID.
func (in *Interner) Intern(s string) ID {
	if id, ok := in.ids[s]; ok {
		return id
	}
	id := ID(len(in.strings))
	in.strings = append(in.strings, s)
	in.ids[s] = id
	return id
}

// Lookup returns the bytes originally interned for id. It panics if id was
// never produced by this Interner, since that indicates a programming error
// in a caller that mixed up interners or fabricated an ID.
func (in *Interner) Lookup(id ID) string {
	if int(id) < 0 || int(id) >= len(in.strings) {
		panic(fmt.Sprintf("intern: id %d out of range (len=%d)", id, len(in.strings)))
	}
	return in.strings[id]
}

// Len reports how many distinct strings have been interned so far.
func (in *Interner) Len() int { return len(in.strings) }

// FileID identifies an absolute source path registered with a Registry.
type FileID int32

// Registry maps absolute file paths to dense FileIDs. It never forgets a
// path for the lifetime of an invocation.
type Registry struct {
	ids   map[string]FileID
	paths []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]FileID, 16)}
}

// RegisterPath returns the FileID for path, registering it if this is the
// first time it has been seen. Idempotent.
func (r *Registry) RegisterPath(path string) FileID {
	if id, ok := r.ids[path]; ok {
		return id
	}
	id := FileID(len(r.paths))
	r.paths = append(r.paths, path)
	r.ids[path] = id
	return id
}

// Path returns the absolute path registered under id.
func (r *Registry) Path(id FileID) string {
	if int(id) < 0 || int(id) >= len(r.paths) {
		panic(fmt.Sprintf("intern: file id %d out of range (len=%d)", id, len(r.paths)))
	}
	return r.paths[id]
}

// Pos is a (file, line, column) source location. Immutable once created;
// zero value means "no location" and should only be used for synthesized
// nodes that have no textual origin.
type Pos struct {
	File   FileID
	Line   int
	Column int
}

// String renders a Pos as "path:line:col" using reg to resolve the file id.
func (p Pos) String(reg *Registry) string {
	if reg == nil {
		return fmt.Sprintf("<file%d>:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", reg.Path(p.File), p.Line, p.Column)
}
