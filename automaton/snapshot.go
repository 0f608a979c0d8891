package automaton

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Snapshot is a serializable view of an Automaton, used for inspection and
// for comparing builds.
type Snapshot struct {
	Fingerprint string       `json:"fingerprint" yaml:"fingerprint"`
	Start       State        `json:"start" yaml:"start"`
	States      int          `json:"states" yaml:"states"`
	Depth       int          `json:"depth" yaml:"depth"`
	Accepting   []State      `json:"accepting" yaml:"accepting"`
	Transitions []Transition `json:"transitions" yaml:"transitions"`
}

// Snapshot returns a copy of the automaton's table.
func (a *Automaton) Snapshot() Snapshot {
	return Snapshot{
		Fingerprint: a.Fingerprint(),
		Start:       a.Start(),
		States:      a.NumStates(),
		Depth:       a.Depth(),
		Accepting:   a.Accepting(),
		Transitions: a.Transitions(),
	}
}

// WriteYAML encodes the snapshot of a to w.
func (a *Automaton) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(a.Snapshot()); err != nil {
		return fmt.Errorf("encode automaton snapshot: %w", err)
	}
	return enc.Close()
}
