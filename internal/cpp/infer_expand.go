package cpp

import (
	"fmt"

	"github.com/hkoba/go-macrogen/internal/intern"
	"github.com/hkoba/go-macrogen/internal/token"
)

// ExpandForInference re-expands a macro's body in the "for-inference" mode
// described in §4.3/§4.6.1: each parameter reference is first replaced by a
// distinct synthetic identifier (`__macrogen_arg{N}`, kept collision-free
// against real C identifiers per §9's design note), then the rewritten body
// is expanded with the explicit-expand whitelist active, guarding only
// against the macro re-expanding itself. The returned slice is terminated
// with an EOF token so it can be fed directly to a parser's TokenSource.
// paramNames maps each synthetic identifier back to the macro's own
// parameter name, in declared order.
func (p *Preprocessor) ExpandForInference(m *Macro) (body []token.Token, paramNames []intern.ID) {
	synthetic := make([]intern.ID, len(m.Params))
	for i := range m.Params {
		synthetic[i] = p.in.Intern(fmt.Sprintf("__macrogen_arg%d", i))
	}

	rewritten := make([]token.Token, len(m.Body))
	copy(rewritten, m.Body)
	for i, t := range rewritten {
		if t.Param.IsParam && t.Param.Index >= 0 && t.Param.Index < len(synthetic) {
			name := synthetic[t.Param.Index]
			rewritten[i] = token.Token{
				Kind: token.Identifier,
				Pos:  t.Pos,
				Name: name,
				Text: p.in.Lookup(name),
			}
		}
	}

	active := map[intern.ID]bool{m.Name: true}
	out := p.expandAll(rewritten, active, modeInference)
	out = append(out, token.Token{Kind: token.EOF})
	return out, synthetic
}
