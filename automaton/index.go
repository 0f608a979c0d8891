package automaton

import (
	"github.com/BaSui01/tokenfsm/types"
)

// Index is a read-only per-state view of the allowed (token, next) pairs.
type Index struct {
	a     *Automaton
	edges [][]Edge
}

// NewIndex derives the transition index of a.
func NewIndex(a *Automaton) *Index {
	return &Index{a: a, edges: a.edges}
}

// Automaton returns the indexed automaton.
func (x *Index) Automaton() *Automaton { return x.a }

// Contains reports whether s was produced by the builder.
func (x *Index) Contains(s State) bool {
	return s >= 0 && int(s) < len(x.edges)
}

// ValidTransitions returns the outgoing edges of s in ascending token order.
// An empty result is a legitimate dead end. The returned slice is shared and
// must not be modified.
//
// Querying a state the builder never produced is a bug in the caller and
// panics with an INVARIANT_VIOLATION *types.Error.
func (x *Index) ValidTransitions(s State) []Edge {
	if !x.Contains(s) {
		panic(types.Errorf(types.ErrInvariantViolation,
			"state %d was never produced by the builder (%d states)", s, len(x.edges)))
	}
	return x.edges[s]
}

// Lookup returns the state reached from s on token.
func (x *Index) Lookup(s State, token int) (State, bool) {
	return x.a.Next(s, token)
}

// IsAccepting reports whether s is accepting.
func (x *Index) IsAccepting(s State) bool {
	return x.a.IsAccepting(s)
}
