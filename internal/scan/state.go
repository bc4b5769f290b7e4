// Package scan drives the fetch, categorize, persist life cycle for a
// user's inbox scan.
package scan

import "fmt"

// State is one phase of a scan chain.
type State string

// Scan chain states. A chain either resolves from the cache
// (uninitialized → cached) or runs the pipeline (uninitialized →
// fetching → categorizing → ready). Any running state may fail into
// StateError.
const (
	StateUninitialized State = "uninitialized"
	StateCached        State = "cached"
	StateFetching      State = "fetching"
	StateCategorizing  State = "categorizing"
	StateReady         State = "ready"
	StateError         State = "error"
)

// transitions enumerates the legal state moves.
var transitions = map[State][]State{
	StateUninitialized: {StateCached, StateFetching},
	StateFetching:      {StateCategorizing, StateError},
	StateCategorizing:  {StateReady, StateError},
	StateCached:        {},
	StateReady:         {},
	StateError:         {},
}

// machine tracks the phase of one scan chain and rejects moves the
// life cycle does not allow. It is a correctness guard, not shared
// state: each chain owns its own machine.
type machine struct {
	state State
}

func newMachine() *machine {
	return &machine{state: StateUninitialized}
}

// to advances the machine, or reports the chain took an illegal path.
func (m *machine) to(next State) error {
	for _, allowed := range transitions[m.state] {
		if next == allowed {
			m.state = next
			return nil
		}
	}
	return fmt.Errorf("illegal scan transition %s -> %s", m.state, next)
}

// fail moves to StateError from any state. Terminal states stay put so
// the phase that produced the result remains visible.
func (m *machine) fail() {
	if m.state == StateCached || m.state == StateReady {
		return
	}
	m.state = StateError
}
