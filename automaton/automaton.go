package automaton

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
)

// State is an opaque automaton state identifier.
type State int

// StartState is the reserved id of the start state.
const StartState State = 0

// Transition is a single (From, Token) -> To edge.
type Transition struct {
	From  State `json:"from" yaml:"from"`
	Token int   `json:"token" yaml:"token"`
	To    State `json:"to" yaml:"to"`
}

// Edge is an outgoing transition as seen from its source state.
type Edge struct {
	Token int   `json:"token" yaml:"token"`
	Next  State `json:"next" yaml:"next"`
}

// Encoder turns text into token ids. It must be deterministic.
type Encoder interface {
	Encode(text string) ([]int, error)
}

// Automaton is an immutable trie-shaped DFA over token ids.
//
// An Automaton is safe for concurrent use by any number of goroutines; no
// method mutates it after Build returns.
type Automaton struct {
	// edges[s] holds the outgoing edges of s sorted by token id.
	edges       [][]Edge
	accepting   []bool
	numAccept   int
	depth       int
	sequences   int
	fingerprint string
	index       *Index
}

func newAutomaton(edges [][]Edge, accepting []bool, depth, sequences int) *Automaton {
	a := &Automaton{
		edges:     edges,
		accepting: accepting,
		depth:     depth,
		sequences: sequences,
	}
	for _, ok := range accepting {
		if ok {
			a.numAccept++
		}
	}
	a.fingerprint = a.computeFingerprint()
	a.index = NewIndex(a)
	return a
}

// Start returns the start state.
func (a *Automaton) Start() State { return StartState }

// NumStates returns the number of states, start state included.
func (a *Automaton) NumStates() int { return len(a.edges) }

// NumTransitions returns the number of recorded transitions.
func (a *Automaton) NumTransitions() int {
	n := 0
	for _, out := range a.edges {
		n += len(out)
	}
	return n
}

// NumAccepting returns the number of accepting states.
func (a *Automaton) NumAccepting() int { return a.numAccept }

// Sequences returns how many sequences were added, duplicates included.
func (a *Automaton) Sequences() int { return a.sequences }

// Depth returns the length of the longest allowed sequence.
func (a *Automaton) Depth() int { return a.depth }

// Has reports whether s was produced by the builder.
func (a *Automaton) Has(s State) bool {
	return s >= 0 && int(s) < len(a.edges)
}

// IsAccepting reports whether s terminates at least one allowed sequence.
func (a *Automaton) IsAccepting(s State) bool {
	return a.Has(s) && a.accepting[s]
}

// Accepting returns the accepting states in ascending order.
func (a *Automaton) Accepting() []State {
	out := make([]State, 0, a.numAccept)
	for s, ok := range a.accepting {
		if ok {
			out = append(out, State(s))
		}
	}
	return out
}

// Next follows the transition (s, token).
func (a *Automaton) Next(s State, token int) (State, bool) {
	if !a.Has(s) {
		return 0, false
	}
	out := a.edges[s]
	i := sort.Search(len(out), func(i int) bool { return out[i].Token >= token })
	if i < len(out) && out[i].Token == token {
		return out[i].Next, true
	}
	return 0, false
}

// Walk follows tokens from the start state and returns the state reached.
// ok is false as soon as a token has no transition.
func (a *Automaton) Walk(tokens []int) (State, bool) {
	s := StartState
	for _, tok := range tokens {
		next, ok := a.Next(s, tok)
		if !ok {
			return s, false
		}
		s = next
	}
	return s, true
}

// Accepts reports whether tokens is exactly one of the allowed sequences.
func (a *Automaton) Accepts(tokens []int) bool {
	s, ok := a.Walk(tokens)
	return ok && a.accepting[s]
}

// Transitions returns every transition ordered by From, then Token.
func (a *Automaton) Transitions() []Transition {
	out := make([]Transition, 0, a.NumTransitions())
	for from, edges := range a.edges {
		for _, e := range edges {
			out = append(out, Transition{From: State(from), Token: e.Token, To: e.Next})
		}
	}
	return out
}

// Index returns the transition index built together with the automaton.
func (a *Automaton) Index() *Index { return a.index }

// Fingerprint is a stable digest of the transition table and accepting set.
// Two automata built from the same ordered input share a fingerprint.
func (a *Automaton) Fingerprint() string { return a.fingerprint }

func (a *Automaton) computeFingerprint() string {
	h := sha256.New()
	var buf [8]byte
	put := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	put(len(a.edges))
	for from, edges := range a.edges {
		for _, e := range edges {
			put(from)
			put(e.Token)
			put(int(e.Next))
		}
	}
	for s, ok := range a.accepting {
		if ok {
			put(-1 - s)
		}
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
