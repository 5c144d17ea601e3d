// Package parser implements the recursive-descent C parser (§4.4): it
// builds the internal/cast AST from a token source, tracks typedef
// disambiguation scope, consumes the preprocessor's MacroBegin/MacroEnd
// markers, and accepts the GCC extensions the rest of the corpus relies on.
package parser

import (
	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/token"
)

// TokenSource is the re-entrant input seam the parser pulls from (§4.4: "a
// trait exposing next-token, peek, and the interner"). The same parser
// parses both a live preprocessor stream and a buffered macro-body token
// slice by running over two different TokenSource implementations.
type TokenSource interface {
	Next() token.Token
	Peek() token.Token
	Interner() *intern.Interner
}

// SliceSource is a TokenSource over an already-expanded, in-memory token
// slice — used to re-parse a macro body during inference (§4.6.1) and
// throughout this package's own tests.
type SliceSource struct {
	toks []token.Token
	pos  int
	in   *intern.Interner
}

// NewSliceSource wraps toks (which need not be EOF-terminated; one is
// appended if missing) as a TokenSource.
func NewSliceSource(in *intern.Interner, toks []token.Token) *SliceSource {
	if len(toks) == 0 || toks[len(toks)-1].Kind != token.EOF {
		toks = append(append([]token.Token{}, toks...), token.Token{Kind: token.EOF})
	}
	return &SliceSource{toks: toks, in: in}
}

func (s *SliceSource) Next() token.Token {
	t := s.Peek()
	if s.pos < len(s.toks)-1 {
		s.pos++
	}
	return t
}

func (s *SliceSource) Peek() token.Token {
	if s.pos >= len(s.toks) {
		return token.Token{Kind: token.EOF}
	}
	return s.toks[s.pos]
}

func (s *SliceSource) Interner() *intern.Interner { return s.in }
