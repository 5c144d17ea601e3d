// Package diag defines the diagnostic taxonomy shared across the core (§7)
// and the accumulation behaviour that keeps a single bad macro from
// aborting an entire run.
package diag

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/multierr"

	"github.com/hkoba/go-macrogen/internal/intern"
)

// Kind classifies a diagnostic per the §7 taxonomy.
type Kind int

const (
	Lexical Kind = iota
	Preprocessor
	Parse
	Type
	Semantic
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Preprocessor:
		return "preprocessor"
	case Parse:
		return "parse"
	case Type:
		return "type"
	case Semantic:
		return "semantic"
	default:
		return "unknown"
	}
}

// Error is the (source-location, kind, message) triple the core surfaces
// for every error per §6. It implements the standard error interface so it
// composes with go-multierror and ordinary error wrapping.
type Error struct {
	Pos     intern.Pos
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Render formats e for fallback display (e.g. as a comment in an emitter
// that could not produce a working wrapper for a macro). The core never
// calls this itself; it exists so the inference result can hand the emitter
// a ready-made string without the emitter re-deriving the format.
func (e *Error) Render(reg *intern.Registry) string {
	return fmt.Sprintf("%s: %s: %s", e.Pos.String(reg), e.Kind, e.Message)
}

// New builds an *Error at pos with the given kind and formatted message.
func New(pos intern.Pos, kind Kind, format string, args ...any) *Error {
	return &Error{Pos: pos, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Bag accumulates non-fatal diagnostics for the duration of one invocation.
// A single run may still report at most one *fatal* error (returned
// directly by the failing call, not added to the bag) while everything
// recoverable — type/semantic problems inside macro bodies, recovered parse
// errors — lands here instead, per §7.
type Bag struct {
	err *multierror.Error
}

// NewBag returns an empty diagnostic bag.
func NewBag() *Bag {
	return &Bag{err: &multierror.Error{}}
}

// Add appends e to the bag. A nil e is a no-op so call sites can pass the
// result of a "maybe" helper directly.
func (b *Bag) Add(e *Error) {
	if e == nil {
		return
	}
	b.err = multierror.Append(b.err, e)
}

// Errors returns the accumulated diagnostics in the order they were added.
func (b *Bag) Errors() []*Error {
	out := make([]*Error, 0, len(b.err.Errors))
	for _, e := range b.err.Errors {
		if de, ok := e.(*Error); ok {
			out = append(out, de)
		}
	}
	return out
}

// AddAll appends every diagnostic in batch, in order.
func (b *Bag) AddAll(batch []*Error) {
	for _, e := range batch {
		b.Add(e)
	}
}

// Len reports how many diagnostics have been accumulated.
func (b *Bag) Len() int { return len(b.err.Errors) }

// ErrorOrNil returns the accumulated diagnostics as a single error value, or
// nil if the bag is empty. This is the shape go-multierror is designed for:
// callers that only care about "did anything go wrong" can treat the result
// as a normal error.
func (b *Bag) ErrorOrNil() error {
	return b.err.ErrorOrNil()
}

// Merge combines independently-collected diagnostic batches (e.g. one per
// recursively processed #include) into a single ordered slice. Unlike
// go-multierror's single run-wide accumulator (what Bag itself uses),
// multierr.Append/Errors round-trips a typed []*Error without forcing the
// caller through the standard-error interface, so nested batches keep their
// *Error identity all the way up to the top-level Bag.
func Merge(batches ...[]*Error) []*Error {
	var combined error
	for _, batch := range batches {
		for _, e := range batch {
			combined = multierr.Append(combined, e)
		}
	}
	out := make([]*Error, 0, len(batches))
	for _, e := range multierr.Errors(combined) {
		if de, ok := e.(*Error); ok {
			out = append(out, de)
		}
	}
	return out
}
