package automaton

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func drawSequences(rt *rapid.T) [][]int {
	// Small alphabet and short sequences force heavy prefix sharing.
	return rapid.SliceOfN(
		rapid.SliceOfN(rapid.IntRange(0, 3), 0, 5),
		1, 12,
	).Draw(rt, "sequences")
}

func seqKey(seq []int) string { return fmt.Sprint(seq) }

// 每个不同的输入序列恰好对应一个接受态，且所有输入都被接受。
func TestProperty_OneAcceptingStatePerDistinctSequence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seqs := drawSequences(rt)
		a, err := Build(seqs)
		require.NoError(rt, err)

		distinct := make(map[string]struct{})
		total := 0
		for _, seq := range seqs {
			distinct[seqKey(seq)] = struct{}{}
			total += len(seq)
			assert.True(rt, a.Accepts(seq), "sequence %v should be accepted", seq)
		}
		assert.Equal(rt, len(distinct), a.NumAccepting())
		assert.LessOrEqual(rt, a.NumStates(), 1+total)
	})
}

// 状态数等于 1 + 不同非空前缀数：共享前缀不会产生重复子路径。
func TestProperty_StatesEqualDistinctPrefixes(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seqs := drawSequences(rt)
		a, err := Build(seqs)
		require.NoError(rt, err)

		prefixes := make(map[string]struct{})
		for _, seq := range seqs {
			for i := 1; i <= len(seq); i++ {
				prefixes[seqKey(seq[:i])] = struct{}{}
			}
		}
		assert.Equal(rt, 1+len(prefixes), a.NumStates())
		assert.Equal(rt, len(prefixes), a.NumTransitions())
	})
}

// 构建两次得到相同的转移表与接受集合。
func TestProperty_BuildIsDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seqs := drawSequences(rt)
		a1, err := Build(seqs)
		require.NoError(rt, err)
		a2, err := Build(seqs)
		require.NoError(rt, err)

		assert.Equal(rt, a1.Transitions(), a2.Transitions())
		assert.Equal(rt, a1.Accepting(), a2.Accepting())
		assert.Equal(rt, a1.Fingerprint(), a2.Fingerprint())
	})
}

// 除起始状态外每个状态都可从起始状态到达，且转移是函数。
func TestProperty_ReachableAndDeterministicTransitions(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a, err := Build(drawSequences(rt))
		require.NoError(rt, err)
		idx := a.Index()

		seen := map[State]bool{a.Start(): true}
		queue := []State{a.Start()}
		for len(queue) > 0 {
			s := queue[0]
			queue = queue[1:]
			tokens := make(map[int]bool)
			for _, e := range idx.ValidTransitions(s) {
				assert.False(rt, tokens[e.Token], "duplicate token %d from state %d", e.Token, s)
				tokens[e.Token] = true
				if !seen[e.Next] {
					seen[e.Next] = true
					queue = append(queue, e.Next)
				}
			}
		}
		assert.Len(rt, seen, a.NumStates())
	})
}

// Feature: constrained-decoding, Property: shared prefix shares state ids
func TestProperty_SharedPrefixSharesStates(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("sequences with a common prefix reach the same state after it", prop.ForAll(
		func(prefix []int, tailA, tailB []int) bool {
			seqA := append(append([]int{}, prefix...), tailA...)
			seqB := append(append([]int{}, prefix...), tailB...)
			a, err := Build([][]int{seqA, seqB})
			if err != nil {
				t.Logf("Build failed: %v", err)
				return false
			}
			for i := 0; i <= len(prefix); i++ {
				sa, okA := a.Walk(seqA[:i])
				sb, okB := a.Walk(seqB[:i])
				if !okA || !okB || sa != sb {
					return false
				}
			}
			return a.Accepts(seqA) && a.Accepts(seqB)
		},
		gen.SliceOf(gen.IntRange(0, 50)),
		gen.SliceOf(gen.IntRange(0, 50)),
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.TestingRun(t)
}
