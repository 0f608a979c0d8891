package decoding

import (
	"fmt"
	"strings"
)

// AcceptPolicy decides what happens when a session enters an accepting state
// that still has outgoing transitions (an allowed sequence that is a strict
// prefix of another).
type AcceptPolicy int

const (
	// StopOnFirstAccept terminates as soon as any accepting state is entered.
	StopOnFirstAccept AcceptPolicy = iota
	// PreferLongestAccept keeps generating while continuations exist and
	// only terminates at an accepting leaf, or at an accepting state when
	// the step budget runs out.
	PreferLongestAccept
)

func (p AcceptPolicy) String() string {
	switch p {
	case StopOnFirstAccept:
		return "stop-on-first-accept"
	case PreferLongestAccept:
		return "prefer-longest-accept"
	default:
		return fmt.Sprintf("accept-policy(%d)", int(p))
	}
}

// ParseAcceptPolicy parses the names produced by AcceptPolicy.String.
func ParseAcceptPolicy(s string) (AcceptPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stop-on-first-accept":
		return StopOnFirstAccept, nil
	case "prefer-longest-accept":
		return PreferLongestAccept, nil
	default:
		return 0, fmt.Errorf("unknown accept policy %q", s)
	}
}

// ParseSelector builds a Selector from its name. seed feeds the random
// source of "weighted-sample" and is ignored by "argmax".
func ParseSelector(name string, seed uint64) (Selector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "argmax":
		return Argmax{}, nil
	case "weighted-sample":
		return NewSeededSampler(seed), nil
	default:
		return nil, fmt.Errorf("unknown selection policy %q", name)
	}
}
