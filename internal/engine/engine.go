package engine

import (
	"errors"
	"fmt"
)

var ErrIllegalTransition = errors.New("illegal transition")
var ErrUnsupportedEvent = errors.New("unsupported event")
var ErrUnknownFlow = errors.New("unknown flow")

type Flow string

const (
	FlowCreate Flow = "create"
	FlowVerify Flow = "verify"
)

type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseFailed Phase = "failed"

	// Creation
	PhaseEncrypting Phase = "encrypting"
	PhaseSubmitting Phase = "submitting"
	PhaseConfirming Phase = "confirming"
	PhaseDone       Phase = "done"

	// Verification
	PhaseCheckingVerified Phase = "checking_verified"
	PhaseAlreadyVerified  Phase = "already_verified"
	PhaseRequestingHandle Phase = "requesting_handle"
	PhaseDecrypting       Phase = "decrypting"
	PhaseSubmittingProof  Phase = "submitting_proof"
	PhaseConfirmed        Phase = "confirmed"
)

type EventType string

const (
	EvtStarted         EventType = "Started"
	EvtEncrypted       EventType = "Encrypted"
	EvtAccepted        EventType = "Accepted"
	EvtConfirmed       EventType = "Confirmed"
	EvtFoundVerified   EventType = "FoundVerified"
	EvtFoundUnverified EventType = "FoundUnverified"
	EvtHandleResolved  EventType = "HandleResolved"
	EvtDecrypted       EventType = "Decrypted"
	EvtRaceLost        EventType = "RaceLost"
	EvtFailed          EventType = "Failed"
)

/*
	create: Idle -Started-> Encrypting -Encrypted-> Submitting -Accepted-> Confirming -Confirmed-> Done
	verify: Idle -Started-> CheckingVerified -FoundVerified-> AlreadyVerified
	                                         -FoundUnverified-> RequestingHandle -HandleResolved-> Decrypting
	        Decrypting -Decrypted-> SubmittingProof -Confirmed|RaceLost-> Confirmed
	Failed is reachable from every non-terminal phase. Started restarts a flow from any terminal phase.
*/

type State struct {
	Flow  Flow
	Phase Phase
}

func NewState(flow Flow) State {
	return State{Flow: flow, Phase: PhaseIdle}
}

// Apply returns the state reached by evt, or the unchanged state and an error
// when evt is not legal in the current phase.
func Apply(s State, evt EventType) (State, error) {
	table, ok := transitions[s.Flow]
	if !ok {
		return s, fmt.Errorf("%w: %q", ErrUnknownFlow, s.Flow)
	}

	switch evt {
	case EvtStarted:
		if s.Phase != PhaseIdle && !IsTerminal(s.Phase) {
			return s, fmt.Errorf("%w: %s while %s", ErrIllegalTransition, evt, s.Phase)
		}
		return State{Flow: s.Flow, Phase: firstPhase[s.Flow]}, nil

	case EvtFailed:
		if s.Phase == PhaseIdle || IsTerminal(s.Phase) {
			return s, fmt.Errorf("%w: %s while %s", ErrIllegalTransition, evt, s.Phase)
		}
		return State{Flow: s.Flow, Phase: PhaseFailed}, nil
	}

	next, ok := table[s.Phase][evt]
	if !ok {
		if !knownEvent(evt) {
			return s, fmt.Errorf("%w: %q", ErrUnsupportedEvent, evt)
		}
		return s, fmt.Errorf("%w: %s while %s", ErrIllegalTransition, evt, s.Phase)
	}
	return State{Flow: s.Flow, Phase: next}, nil
}

func IsTerminal(p Phase) bool {
	switch p {
	case PhaseDone, PhaseFailed, PhaseAlreadyVerified, PhaseConfirmed:
		return true
	}
	return false
}

// InFlight reports whether the flow has started and not yet reached a terminal phase.
func (s State) InFlight() bool {
	return s.Phase != PhaseIdle && !IsTerminal(s.Phase)
}

// Succeeded reports whether the flow ended in a success-equivalent phase.
func (s State) Succeeded() bool {
	switch s.Phase {
	case PhaseDone, PhaseAlreadyVerified, PhaseConfirmed:
		return true
	}
	return false
}
