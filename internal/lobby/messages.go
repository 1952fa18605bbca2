package lobby

import (
	"github.com/DoyleJ11/hidden-role-client/internal/engine"
	"github.com/DoyleJ11/hidden-role-client/internal/session"
)

type Msg interface{ isLobbyMsg() }

type Join struct {
	ClientID string
	Outbox   chan View // where this client wants to receive snapshots
}

type Leave struct{ ClientID string }

// Connect activates the lobby's account. Reads and writes need it.
type Connect struct{}

type Disconnect struct{}

type Refresh struct{}

type OpenForm struct{}

type CloseForm struct{}

// Create submits the form. A zero Form submits the form currently held by the lobby.
type Create struct {
	Form session.Form
}

// EditForm replaces the held form without submitting it.
type EditForm struct {
	Form session.Form
}

type Select struct{ ID string }

type Deselect struct{}

// Verify reveals the role of ID, or of the selected session when ID is empty.
type Verify struct{ ID string }

type Dismiss struct{}

// Probe checks that the store is reachable and reports the result as a notification.
type Probe struct{}

type GetState struct {
	Reply chan View
}

type Shutdown struct{}

func (Join) isLobbyMsg()       {}
func (Leave) isLobbyMsg()      {}
func (Connect) isLobbyMsg()    {}
func (Disconnect) isLobbyMsg() {}
func (Refresh) isLobbyMsg()    {}
func (OpenForm) isLobbyMsg()   {}
func (CloseForm) isLobbyMsg()  {}
func (Create) isLobbyMsg()     {}
func (EditForm) isLobbyMsg()   {}
func (Select) isLobbyMsg()     {}
func (Deselect) isLobbyMsg()   {}
func (Verify) isLobbyMsg()     {}
func (Dismiss) isLobbyMsg()    {}
func (Probe) isLobbyMsg()      {}
func (GetState) isLobbyMsg()   {}
func (Shutdown) isLobbyMsg()   {}

// Results posted back by task goroutines.

type initDone struct{ err error }

type refreshDone struct {
	seq     uint64
	records []session.Record
	err     error
}

type progress struct {
	flow engine.Flow
	id   string
	evt  engine.EventType
}

type createDone struct {
	id  string
	err error
}

type verifyOutcome int

const (
	outcomeFailed verifyOutcome = iota
	outcomeAlreadyVerified
	outcomeConfirmed
	outcomeRaceLost
)

type verifyDone struct {
	id      string
	epoch   uint64
	outcome verifyOutcome
	value   uint64
	known   bool            // value is the decrypted role
	record  *session.Record // fresh store read, when one was made
	err     error
}

type probeDone struct{ err error }

type notificationExpired struct{}

func (initDone) isLobbyMsg()            {}
func (refreshDone) isLobbyMsg()         {}
func (progress) isLobbyMsg()            {}
func (createDone) isLobbyMsg()          {}
func (verifyDone) isLobbyMsg()          {}
func (probeDone) isLobbyMsg()           {}
func (notificationExpired) isLobbyMsg() {}
