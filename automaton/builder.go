package automaton

import (
	"sort"

	"go.uber.org/zap"

	"github.com/BaSui01/tokenfsm/types"
)

type edgeKey struct {
	from  State
	token int
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the builder logger.
func WithLogger(logger *zap.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRejectEmpty turns a zero-length sequence into a build error instead of
// marking the start state accepting.
func WithRejectEmpty() BuilderOption {
	return func(b *Builder) { b.rejectEmpty = true }
}

// WithVocabSize rejects token ids outside [0, n).
func WithVocabSize(n int) BuilderOption {
	return func(b *Builder) { b.vocabSize = n }
}

// Builder compiles allowed token sequences into an Automaton using
// shared-prefix trie construction. A Builder is single-use and not safe for
// concurrent use.
type Builder struct {
	logger      *zap.Logger
	rejectEmpty bool
	vocabSize   int

	next      map[edgeKey]State
	accepting map[State]struct{}
	numStates int
	depth     int
	sequences int
	tokens    int
	built     bool
}

// NewBuilder creates a Builder holding only the start state.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		logger:    zap.NewNop(),
		next:      make(map[edgeKey]State),
		accepting: make(map[State]struct{}),
		numStates: 1,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(zap.String("component", "automaton_builder"))
	return b
}

// Add records one allowed sequence. The sequence is validated before any
// state is allocated, so a rejected sequence leaves the builder unchanged.
func (b *Builder) Add(seq []int) error {
	if b.built {
		return types.NewError(types.ErrBuild, "builder already used")
	}
	for i, tok := range seq {
		if tok < 0 {
			return types.Errorf(types.ErrBuild, "sequence %d: token id %d at position %d is negative", b.sequences, tok, i)
		}
		if b.vocabSize > 0 && tok >= b.vocabSize {
			return types.Errorf(types.ErrBuild, "sequence %d: token id %d at position %d exceeds vocabulary size %d",
				b.sequences, tok, i, b.vocabSize)
		}
	}
	if len(seq) == 0 {
		if b.rejectEmpty {
			return types.Errorf(types.ErrBuild, "sequence %d is empty", b.sequences)
		}
		b.logger.Warn("empty sequence marks start state accepting", zap.Int("sequence", b.sequences))
	}

	cur := StartState
	for _, tok := range seq {
		key := edgeKey{from: cur, token: tok}
		if to, ok := b.next[key]; ok {
			cur = to
			continue
		}
		to := State(b.numStates)
		b.numStates++
		b.next[key] = to
		cur = to
	}
	b.accepting[cur] = struct{}{}

	b.sequences++
	b.tokens += len(seq)
	if len(seq) > b.depth {
		b.depth = len(seq)
	}
	return nil
}

// AddAll records every sequence in order, stopping at the first error.
func (b *Builder) AddAll(seqs [][]int) error {
	for _, seq := range seqs {
		if err := b.Add(seq); err != nil {
			return err
		}
	}
	return nil
}

// AddText encodes text and records the resulting sequence.
func (b *Builder) AddText(enc Encoder, text string) error {
	seq, err := enc.Encode(text)
	if err != nil {
		return types.Errorf(types.ErrBuild, "encode %q", text).WithCause(err)
	}
	return b.Add(seq)
}

// Build freezes the recorded sequences into an immutable Automaton.
func (b *Builder) Build() (*Automaton, error) {
	if b.built {
		return nil, types.NewError(types.ErrBuild, "builder already used")
	}
	if b.sequences == 0 {
		return nil, types.NewError(types.ErrBuild, "no allowed sequences")
	}
	b.built = true

	edges := make([][]Edge, b.numStates)
	for key, to := range b.next {
		edges[key.from] = append(edges[key.from], Edge{Token: key.token, Next: to})
	}
	for _, out := range edges {
		sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	}
	accepting := make([]bool, b.numStates)
	for s := range b.accepting {
		accepting[s] = true
	}

	a := newAutomaton(edges, accepting, b.depth, b.sequences)
	b.logger.Debug("automaton built",
		zap.Int("sequences", b.sequences),
		zap.Int("tokens", b.tokens),
		zap.Int("states", a.NumStates()),
		zap.Int("accepting", a.NumAccepting()),
		zap.Int("depth", a.Depth()),
		zap.String("fingerprint", a.Fingerprint()),
	)
	return a, nil
}

// Build compiles seqs in one call.
func Build(seqs [][]int, opts ...BuilderOption) (*Automaton, error) {
	b := NewBuilder(opts...)
	if err := b.AddAll(seqs); err != nil {
		return nil, err
	}
	return b.Build()
}

// BuildFromStrings encodes each text with enc and compiles the results.
func BuildFromStrings(enc Encoder, texts []string, opts ...BuilderOption) (*Automaton, error) {
	b := NewBuilder(opts...)
	for _, text := range texts {
		if err := b.AddText(enc, text); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
