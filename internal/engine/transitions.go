package engine

var firstPhase = map[Flow]Phase{
	FlowCreate: PhaseEncrypting,
	FlowVerify: PhaseCheckingVerified,
}

var transitions = map[Flow]map[Phase]map[EventType]Phase{
	FlowCreate: {
		PhaseEncrypting: {EvtEncrypted: PhaseSubmitting},
		PhaseSubmitting: {EvtAccepted: PhaseConfirming},
		PhaseConfirming: {EvtConfirmed: PhaseDone},
	},
	FlowVerify: {
		PhaseCheckingVerified: {
			EvtFoundVerified:   PhaseAlreadyVerified,
			EvtFoundUnverified: PhaseRequestingHandle,
		},
		PhaseRequestingHandle: {EvtHandleResolved: PhaseDecrypting},
		PhaseDecrypting:       {EvtDecrypted: PhaseSubmittingProof},
		PhaseSubmittingProof: {
			EvtConfirmed: PhaseConfirmed,
			EvtRaceLost:  PhaseConfirmed,
		},
	},
}

func knownEvent(evt EventType) bool {
	switch evt {
	case EvtStarted, EvtEncrypted, EvtAccepted, EvtConfirmed, EvtFoundVerified,
		EvtFoundUnverified, EvtHandleResolved, EvtDecrypted, EvtRaceLost, EvtFailed:
		return true
	}
	return false
}
