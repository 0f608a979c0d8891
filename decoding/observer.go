package decoding

import (
	"time"

	"github.com/BaSui01/tokenfsm/automaton"
)

// StepEvent describes one completed step.
type StepEvent struct {
	SessionID   string
	Step        int
	Token       int
	From        automaton.State
	To          automaton.State
	Probability float64
	Allowed     int
}

// Observer receives decoding events. Implementations must be safe for
// concurrent use because sessions may run in parallel.
type Observer interface {
	ObserveScore(duration time.Duration, err error)
	ObserveStep(ev StepEvent)
	ObserveResult(res *Result)
}

type nopObserver struct{}

func (nopObserver) ObserveScore(time.Duration, error) {}
func (nopObserver) ObserveStep(StepEvent)             {}
func (nopObserver) ObserveResult(*Result)             {}

type multiObserver []Observer

func (m multiObserver) ObserveScore(d time.Duration, err error) {
	for _, o := range m {
		o.ObserveScore(d, err)
	}
}

func (m multiObserver) ObserveStep(ev StepEvent) {
	for _, o := range m {
		o.ObserveStep(ev)
	}
}

func (m multiObserver) ObserveResult(res *Result) {
	for _, o := range m {
		o.ObserveResult(res)
	}
}

// Observers fans events out to every non-nil observer.
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nopObserver{}
	case 1:
		return out[0]
	}
	return out
}
