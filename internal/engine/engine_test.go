package engine

import (
	"errors"
	"testing"
)

func run(t *testing.T, flow Flow, events ...EventType) State {
	t.Helper()
	s := NewState(flow)
	for _, evt := range events {
		next, err := Apply(s, evt)
		if err != nil {
			t.Fatalf("apply %s from %s: %v", evt, s.Phase, err)
		}
		s = next
	}
	return s
}

func TestCreateFlowHappyPath(t *testing.T) {
	s := run(t, FlowCreate, EvtStarted, EvtEncrypted, EvtAccepted, EvtConfirmed)
	if s.Phase != PhaseDone {
		t.Fatalf("got %s, want %s", s.Phase, PhaseDone)
	}
	if !s.Succeeded() || s.InFlight() {
		t.Fatalf("done should be a terminal success, got %+v", s)
	}
}

func TestVerifyFlowPaths(t *testing.T) {
	cases := []struct {
		name   string
		events []EventType
		want   Phase
	}{
		{
			name:   "already verified short-circuits",
			events: []EventType{EvtStarted, EvtFoundVerified},
			want:   PhaseAlreadyVerified,
		},
		{
			name:   "full exchange",
			events: []EventType{EvtStarted, EvtFoundUnverified, EvtHandleResolved, EvtDecrypted, EvtConfirmed},
			want:   PhaseConfirmed,
		},
		{
			name:   "lost race counts as confirmed",
			events: []EventType{EvtStarted, EvtFoundUnverified, EvtHandleResolved, EvtDecrypted, EvtRaceLost},
			want:   PhaseConfirmed,
		},
		{
			name:   "failure while decrypting",
			events: []EventType{EvtStarted, EvtFoundUnverified, EvtHandleResolved, EvtFailed},
			want:   PhaseFailed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := run(t, FlowVerify, tc.events...)
			if s.Phase != tc.want {
				t.Fatalf("got %s, want %s", s.Phase, tc.want)
			}
		})
	}
}

func TestApply_RejectsOutOfOrderEvent(t *testing.T) {
	cases := []struct {
		name  string
		setup State
		evt   EventType
	}{
		{
			name:  "create skips encryption",
			setup: State{Flow: FlowCreate, Phase: PhaseEncrypting},
			evt:   EvtAccepted,
		},
		{
			name:  "decrypt before handle",
			setup: State{Flow: FlowVerify, Phase: PhaseCheckingVerified},
			evt:   EvtDecrypted,
		},
		{
			name:  "restart while in flight",
			setup: State{Flow: FlowVerify, Phase: PhaseDecrypting},
			evt:   EvtStarted,
		},
		{
			name:  "fail before start",
			setup: State{Flow: FlowCreate, Phase: PhaseIdle},
			evt:   EvtFailed,
		},
		{
			name:  "race lost outside proof submission",
			setup: State{Flow: FlowVerify, Phase: PhaseDecrypting},
			evt:   EvtRaceLost,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Apply(tc.setup, tc.evt)
			if !errors.Is(err, ErrIllegalTransition) {
				t.Fatalf("want ErrIllegalTransition, got %v", err)
			}
			if got != tc.setup {
				t.Fatalf("state changed on rejected event: %+v", got)
			}
		})
	}
}

func TestApply_RestartsFromTerminal(t *testing.T) {
	for _, phase := range []Phase{PhaseFailed, PhaseConfirmed, PhaseAlreadyVerified} {
		s, err := Apply(State{Flow: FlowVerify, Phase: phase}, EvtStarted)
		if err != nil {
			t.Fatalf("restart from %s: %v", phase, err)
		}
		if s.Phase != PhaseCheckingVerified {
			t.Fatalf("restart from %s: got %s", phase, s.Phase)
		}
	}
}

func TestApply_UnknownInputs(t *testing.T) {
	if _, err := Apply(State{Flow: "join"}, EvtStarted); !errors.Is(err, ErrUnknownFlow) {
		t.Fatalf("want ErrUnknownFlow, got %v", err)
	}
	if _, err := Apply(State{Flow: FlowCreate, Phase: PhaseEncrypting}, "Hovered"); !errors.Is(err, ErrUnsupportedEvent) {
		t.Fatalf("want ErrUnsupportedEvent, got %v", err)
	}
}
