package scan

import "testing"

func TestMachine_CacheResolution(t *testing.T) {
	m := newMachine()
	if m.state != StateUninitialized {
		t.Fatalf("initial state = %q, want uninitialized", m.state)
	}
	if err := m.to(StateCached); err != nil {
		t.Fatalf("uninitialized -> cached: %v", err)
	}
	if m.state != StateCached {
		t.Errorf("state = %q, want cached", m.state)
	}
}

func TestMachine_PipelinePath(t *testing.T) {
	m := newMachine()
	for _, next := range []State{StateFetching, StateCategorizing, StateReady} {
		if err := m.to(next); err != nil {
			t.Fatalf("transition to %q: %v", next, err)
		}
	}
	if m.state != StateReady {
		t.Errorf("state = %q, want ready", m.state)
	}
}

func TestMachine_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []State
	}{
		{"skip fetching", []State{StateCategorizing}},
		{"skip categorizing", []State{StateFetching, StateReady}},
		{"cached is terminal", []State{StateCached, StateFetching}},
		{"ready is terminal", []State{StateFetching, StateCategorizing, StateReady, StateFetching}},
		{"uninitialized to ready", []State{StateReady}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine()
			var err error
			for _, next := range tt.path {
				if err = m.to(next); err != nil {
					break
				}
			}
			if err == nil {
				t.Errorf("path %v accepted, want rejection", tt.path)
			}
		})
	}
}

func TestMachine_Fail(t *testing.T) {
	m := newMachine()
	if err := m.to(StateFetching); err != nil {
		t.Fatal(err)
	}
	m.fail()
	if m.state != StateError {
		t.Errorf("state = %q, want error", m.state)
	}
}

func TestMachine_FailKeepsTerminalStates(t *testing.T) {
	m := newMachine()
	if err := m.to(StateCached); err != nil {
		t.Fatal(err)
	}
	m.fail()
	if m.state != StateCached {
		t.Errorf("state = %q, want cached preserved", m.state)
	}
}
