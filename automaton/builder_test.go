package automaton

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/tokenfsm/types"
)

// digitEncoder maps '0'..'9' to token ids 0..9.
type digitEncoder struct{}

func (digitEncoder) Encode(text string) ([]int, error) {
	out := make([]int, 0, len(text))
	for _, r := range text {
		if r < '0' || r > '9' {
			return nil, errors.New("not a digit: " + string(r))
		}
		out = append(out, int(r-'0'))
	}
	return out, nil
}

// =============================================================================
// 🧪 Builder 测试
// =============================================================================

func TestBuild_SharedPrefix(t *testing.T) {
	a, err := Build([][]int{{4, 0, 1}, {4, 0, 4}}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	assert.Equal(t, 5, a.NumStates())
	assert.Equal(t, 4, a.NumTransitions())
	assert.Equal(t, []State{3, 4}, a.Accepting())
	assert.Equal(t, 3, a.Depth())
	assert.Equal(t, []Transition{
		{From: 0, Token: 4, To: 1},
		{From: 1, Token: 0, To: 2},
		{From: 2, Token: 1, To: 3},
		{From: 2, Token: 4, To: 4},
	}, a.Transitions())

	s1, ok := a.Walk([]int{4, 0})
	require.True(t, ok)
	assert.Equal(t, State(2), s1)
	assert.True(t, a.Accepts([]int{4, 0, 1}))
	assert.True(t, a.Accepts([]int{4, 0, 4}))
	assert.False(t, a.Accepts([]int{4, 0}))
	assert.False(t, a.Accepts([]int{4, 1}))
}

func TestBuild_NoSharingAllocatesOneStatePerToken(t *testing.T) {
	a, err := Build([][]int{{1, 2}, {3, 4}})
	require.NoError(t, err)

	assert.Equal(t, 1+4, a.NumStates())
	assert.Equal(t, 2, a.NumAccepting())
}

func TestBuild_OverlapUsesFewerStates(t *testing.T) {
	overlapping, err := Build([][]int{{5, 5, 1}, {5, 5, 2}})
	require.NoError(t, err)
	disjoint, err := Build([][]int{{5, 5, 1}, {6, 6, 2}})
	require.NoError(t, err)

	assert.Equal(t, 5, overlapping.NumStates())
	assert.Equal(t, 7, disjoint.NumStates())
}

func TestBuild_PrefixSequenceIsAcceptingWithOutgoingEdges(t *testing.T) {
	a, err := Build([][]int{{4, 0}, {4, 0, 1}})
	require.NoError(t, err)

	s, ok := a.Walk([]int{4, 0})
	require.True(t, ok)
	assert.True(t, a.IsAccepting(s))
	assert.Len(t, a.Index().ValidTransitions(s), 1)
	assert.Equal(t, 2, a.NumAccepting())
}

func TestBuild_EmptySequenceMarksStartAccepting(t *testing.T) {
	a, err := Build([][]int{{}, {7}})
	require.NoError(t, err)

	assert.True(t, a.IsAccepting(a.Start()))
	assert.Len(t, a.Index().ValidTransitions(a.Start()), 1)
	assert.Equal(t, []State{0, 1}, a.Accepting())
	assert.True(t, a.Accepts(nil))
}

func TestBuild_RejectEmpty(t *testing.T) {
	_, err := Build([][]int{{7}, {}}, WithRejectEmpty())
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrBuild))
}

func TestBuild_DuplicatesShareAcceptingState(t *testing.T) {
	a, err := Build([][]int{{7, 1}, {7, 1}, {7}})
	require.NoError(t, err)

	assert.Equal(t, 3, a.Sequences())
	assert.Equal(t, 3, a.NumStates())
	assert.Equal(t, 2, a.NumAccepting())
}

func TestBuild_InvalidTokens(t *testing.T) {
	tests := []struct {
		name string
		seqs [][]int
		opts []BuilderOption
	}{
		{name: "negative", seqs: [][]int{{1, -1}}},
		{name: "beyond vocabulary", seqs: [][]int{{1, 10}}, opts: []BuilderOption{WithVocabSize(10)}},
		{name: "no sequences", seqs: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.seqs, tt.opts...)
			require.Error(t, err)
			assert.True(t, types.IsCode(err, types.ErrBuild), "got %v", err)
		})
	}
}

func TestBuilder_RejectedSequenceLeavesBuilderUnchanged(t *testing.T) {
	b := NewBuilder(WithVocabSize(5))
	require.NoError(t, b.Add([]int{1, 2}))
	require.Error(t, b.Add([]int{1, 3, 9}))

	a, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 3, a.NumStates())
	assert.Equal(t, 1, a.Sequences())
}

func TestBuilder_SingleUse(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add([]int{1}))
	_, err := b.Build()
	require.NoError(t, err)

	assert.True(t, types.IsCode(b.Add([]int{2}), types.ErrBuild))
	_, err = b.Build()
	assert.True(t, types.IsCode(err, types.ErrBuild))
}

func TestBuild_Deterministic(t *testing.T) {
	seqs := [][]int{{3, 1, 4}, {1, 5}, {3, 1, 9}, {2, 6, 5}, {3}}

	a1, err := Build(seqs)
	require.NoError(t, err)
	a2, err := Build(seqs)
	require.NoError(t, err)

	assert.Equal(t, a1.Transitions(), a2.Transitions())
	assert.Equal(t, a1.Accepting(), a2.Accepting())
	assert.Equal(t, a1.Fingerprint(), a2.Fingerprint())
}

func TestBuild_OrderOnlyAffectsIDs(t *testing.T) {
	forward := [][]int{{3, 1, 4}, {1, 5}, {3, 1, 9}}
	reversed := [][]int{{3, 1, 9}, {1, 5}, {3, 1, 4}}

	a1, err := Build(forward)
	require.NoError(t, err)
	a2, err := Build(reversed)
	require.NoError(t, err)

	assert.Equal(t, a1.NumStates(), a2.NumStates())
	assert.Equal(t, a1.NumTransitions(), a2.NumTransitions())
	assert.Equal(t, a1.NumAccepting(), a2.NumAccepting())
	for _, seq := range forward {
		assert.True(t, a2.Accepts(seq))
	}
	assert.NotEqual(t, a1.Fingerprint(), a2.Fingerprint())
}

func TestBuildFromStrings(t *testing.T) {
	a, err := BuildFromStrings(digitEncoder{}, []string{"401", "404"})
	require.NoError(t, err)
	assert.True(t, a.Accepts([]int{4, 0, 1}))
	assert.True(t, a.Accepts([]int{4, 0, 4}))

	_, err = BuildFromStrings(digitEncoder{}, []string{"401", "4x4"})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrBuild))
	var typed *types.Error
	require.True(t, errors.As(err, &typed))
	assert.NotNil(t, typed.Cause)
}

func TestAutomaton_NextUnknownState(t *testing.T) {
	a, err := Build([][]int{{1}})
	require.NoError(t, err)

	_, ok := a.Next(State(42), 1)
	assert.False(t, ok)
	_, ok = a.Next(a.Start(), 2)
	assert.False(t, ok)
	assert.False(t, a.IsAccepting(State(-1)))
}
