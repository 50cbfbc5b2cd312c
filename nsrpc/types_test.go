package nsrpc

import "testing"

func TestWorkerStateTransitionLegalPaths(t *testing.T) {
	cases := []struct {
		from, to WorkerState
		wantErr  bool
	}{
		{StateRegistering, StateIdle, false},
		{StateIdle, StateBusy, false},
		{StateBusy, StateIdle, false},
		{StateRegistering, StateBusy, true},
		{StateIdle, StateRegistering, true},
		{StateBusy, StateRegistering, true},
		{StateIdle, StateDisconnected, false},
		{StateDisconnected, StateIdle, true},
	}

	for _, c := range cases {
		err := c.from.Transition(c.to)
		if (err != nil) != c.wantErr {
			t.Errorf("%s -> %s: err = %v, wantErr = %v", c.from, c.to, err, c.wantErr)
		}
	}
}
