package decoding

import (
	"fmt"
	"time"

	"github.com/BaSui01/tokenfsm/automaton"
)

// Outcome tags how a session terminated. None of the outcomes is an error.
type Outcome int

const (
	// OutcomeUnknown is the zero value of a session that has not finished.
	OutcomeUnknown Outcome = iota
	// Accepted means the tokens form one of the allowed sequences.
	Accepted
	// DeadEnd means the current state has no outgoing transitions.
	DeadEnd
	// BudgetExhausted means the step budget ran out before acceptance.
	BudgetExhausted
)

var outcomeNames = map[Outcome]string{
	OutcomeUnknown:  "unknown",
	Accepted:        "accepted",
	DeadEnd:         "dead_end",
	BudgetExhausted: "budget_exhausted",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	for k, v := range outcomeNames {
		if v == string(text) {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}

// Result is the terminal state of a session. Tokens holds everything
// generated so far whatever the outcome; callers normally detokenize it only
// when Outcome is Accepted.
type Result struct {
	SessionID  string          `json:"session_id" yaml:"session_id"`
	Outcome    Outcome         `json:"outcome" yaml:"outcome"`
	Tokens     []int           `json:"tokens" yaml:"tokens"`
	Steps      int             `json:"steps" yaml:"steps"`
	FinalState automaton.State `json:"final_state" yaml:"final_state"`
	Duration   time.Duration   `json:"duration" yaml:"duration"`
}

// Accepted reports whether the result is a complete allowed sequence.
func (r *Result) Accepted() bool {
	return r != nil && r.Outcome == Accepted
}
