package decoding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/tokenfsm/automaton"
	"github.com/BaSui01/tokenfsm/testutil"
	"github.com/BaSui01/tokenfsm/types"
)

func edges(tokens ...int) []automaton.Edge {
	out := make([]automaton.Edge, len(tokens))
	for i, tok := range tokens {
		out[i] = automaton.Edge{Token: tok, Next: automaton.State(i + 1)}
	}
	return out
}

func TestRestrict_NormalizesOverAllowedOnly(t *testing.T) {
	scores := []float64{5, 0, 1000, 0, math.Log(3)}
	d, err := Restrict(scores, edges(1, 4))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 4}, d.Tokens)
	assert.InDelta(t, 0.25, d.Probs[0], 1e-12)
	assert.InDelta(t, 0.75, d.Probs[1], 1e-12)
}

func TestRestrict_LargeScoresDoNotOverflow(t *testing.T) {
	d, err := Restrict([]float64{1e308, 1e308}, edges(0, 1))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, d.Probs[0], 1e-12)
	assert.InDelta(t, 0.5, d.Probs[1], 1e-12)
}

func TestRestrict_NegativeInfinityHasNoMass(t *testing.T) {
	d, err := Restrict([]float64{math.Inf(-1), 2}, edges(0, 1))
	require.NoError(t, err)
	assert.Zero(t, d.Probs[0])
	assert.Equal(t, 1.0, d.Probs[1])
}

func TestRestrict_Errors(t *testing.T) {
	tests := []struct {
		name    string
		scores  []float64
		allowed []automaton.Edge
		code    types.ErrorCode
	}{
		{name: "no allowed tokens", scores: []float64{1}, allowed: nil, code: types.ErrInvalidRequest},
		{name: "token outside vector", scores: []float64{1}, allowed: edges(3), code: types.ErrScorerFailure},
		{name: "nan", scores: []float64{math.NaN(), 1}, allowed: edges(0, 1), code: types.ErrScorerFailure},
		{name: "positive infinity", scores: []float64{math.Inf(1)}, allowed: edges(0), code: types.ErrScorerFailure},
		{name: "all negative infinity", scores: []float64{math.Inf(-1), math.Inf(-1), 3}, allowed: edges(0, 1), code: types.ErrScorerFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restrict(tt.scores, tt.allowed)
			testutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestParseAcceptPolicy(t *testing.T) {
	for _, p := range []AcceptPolicy{StopOnFirstAccept, PreferLongestAccept} {
		got, err := ParseAcceptPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	got, err := ParseAcceptPolicy("")
	require.NoError(t, err)
	assert.Equal(t, StopOnFirstAccept, got)

	_, err = ParseAcceptPolicy("shortest")
	assert.Error(t, err)
	assert.Equal(t, "accept-policy(7)", AcceptPolicy(7).String())
}

func TestParseSelector(t *testing.T) {
	s, err := ParseSelector("argmax", 0)
	require.NoError(t, err)
	assert.Equal(t, "argmax", s.Name())

	s, err = ParseSelector(" Weighted-Sample ", 3)
	require.NoError(t, err)
	assert.Equal(t, "weighted-sample", s.Name())

	_, err = ParseSelector("beam", 0)
	assert.Error(t, err)
}

func TestOutcome_Text(t *testing.T) {
	for _, o := range []Outcome{Accepted, DeadEnd, BudgetExhausted} {
		text, err := o.MarshalText()
		require.NoError(t, err)

		var back Outcome
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, o, back)
	}
	assert.Equal(t, "dead_end", DeadEnd.String())

	var o Outcome
	assert.Error(t, o.UnmarshalText([]byte("maybe")))
}
