package types

// Client -> Server message types.
const (
	MsgRefresh    = "Refresh"
	MsgOpenForm   = "OpenForm"
	MsgCloseForm  = "CloseForm"
	MsgEditForm   = "EditForm"
	MsgCreate     = "Create"
	MsgSelect     = "Select"
	MsgDeselect   = "Deselect"
	MsgVerify     = "Verify"
	MsgDismiss    = "Dismiss"
	MsgConnect    = "Connect"
	MsgDisconnect = "Disconnect"
	MsgProbe      = "Probe"
)

// Server -> Client message types.
const (
	MsgSnapshot = "StateSnapshot"
	MsgError    = "Error"
)

// ClientMessage is a command from a presentation client.
//
//	Create / EditForm: display_name, capacity
//	Select / Verify:   id (Verify with no id targets the selection)
type ClientMessage struct {
	Type        string `json:"type"`
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Capacity    int    `json:"capacity,omitempty"`
}

type ServerMessage struct {
	Type    string     `json:"type"` // "StateSnapshot" | "Error"
	Version int        `json:"version,omitempty"`
	State   *LobbyView `json:"state,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// SessionRequest is the body of POST /accounts/{account}/sessions.
type SessionRequest struct {
	DisplayName string `json:"display_name"`
	Capacity    int    `json:"capacity"`
}

// SelectRequest is the body of the select and verify routes.
type SelectRequest struct {
	ID string `json:"id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
