package automaton

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/tokenfsm/types"
)

func TestIndex_ValidTransitionsSortedByToken(t *testing.T) {
	a, err := Build([][]int{{9}, {2}, {5, 1}, {5, 0}})
	require.NoError(t, err)
	idx := a.Index()

	start := idx.ValidTransitions(a.Start())
	require.Len(t, start, 3)
	assert.Equal(t, []int{2, 5, 9}, []int{start[0].Token, start[1].Token, start[2].Token})

	s5, ok := idx.Lookup(a.Start(), 5)
	require.True(t, ok)
	inner := idx.ValidTransitions(s5)
	require.Len(t, inner, 2)
	assert.Equal(t, 0, inner[0].Token)
	assert.Equal(t, 1, inner[1].Token)
}

func TestIndex_DeadEndIsEmpty(t *testing.T) {
	a, err := Build([][]int{{9}})
	require.NoError(t, err)
	idx := NewIndex(a)

	leaf, ok := idx.Lookup(a.Start(), 9)
	require.True(t, ok)
	assert.Empty(t, idx.ValidTransitions(leaf))
	assert.True(t, idx.IsAccepting(leaf))
	assert.Same(t, a, idx.Automaton())
}

func TestIndex_UnknownStatePanicsWithInvariantViolation(t *testing.T) {
	a, err := Build([][]int{{1, 2}})
	require.NoError(t, err)
	idx := a.Index()

	for _, s := range []State{-1, State(a.NumStates()), 1000} {
		func() {
			defer func() {
				r := recover()
				require.NotNil(t, r, "state %d should panic", s)
				perr, ok := r.(error)
				require.True(t, ok)
				assert.True(t, types.IsCode(perr, types.ErrInvariantViolation))
			}()
			idx.ValidTransitions(s)
		}()
	}
	assert.False(t, idx.Contains(State(a.NumStates())))
	assert.True(t, idx.Contains(State(a.NumStates()-1)))
}

func TestAutomaton_WriteYAML(t *testing.T) {
	a, err := Build([][]int{{4, 0, 1}, {4, 0, 4}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, a.WriteYAML(&buf))

	var snap Snapshot
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &snap))
	assert.Equal(t, a.Snapshot(), snap)
	assert.Equal(t, 5, snap.States)
	assert.Equal(t, []State{3, 4}, snap.Accepting)
	assert.Contains(t, buf.String(), "fingerprint: "+a.Fingerprint())
}

func TestIndex_BuiltWithAutomaton(t *testing.T) {
	a, err := Build([][]int{{1, 2}})
	require.NoError(t, err)
	require.NotNil(t, a.index)
	assert.Same(t, a.index, a.Index())
	assert.Same(t, a, a.Index().Automaton())
}
