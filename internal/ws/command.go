package ws

import (
	"github.com/DoyleJ11/hidden-role-client/internal/lobby"
	"github.com/DoyleJ11/hidden-role-client/internal/session"
	"github.com/DoyleJ11/hidden-role-client/pkg/types"
)

// ToLobbyMsg maps a client command onto the lobby message it stands for.
func ToLobbyMsg(m types.ClientMessage) (lobby.Msg, bool) {
	switch m.Type {
	case types.MsgRefresh:
		return lobby.Refresh{}, true
	case types.MsgOpenForm:
		return lobby.OpenForm{}, true
	case types.MsgCloseForm:
		return lobby.CloseForm{}, true
	case types.MsgEditForm:
		return lobby.EditForm{Form: session.Form{DisplayName: m.DisplayName, Capacity: m.Capacity}}, true
	case types.MsgCreate:
		return lobby.Create{Form: session.Form{DisplayName: m.DisplayName, Capacity: m.Capacity}}, true
	case types.MsgSelect:
		if m.ID == "" {
			return nil, false
		}
		return lobby.Select{ID: m.ID}, true
	case types.MsgDeselect:
		return lobby.Deselect{}, true
	case types.MsgVerify:
		return lobby.Verify{ID: m.ID}, true
	case types.MsgDismiss:
		return lobby.Dismiss{}, true
	case types.MsgConnect:
		return lobby.Connect{}, true
	case types.MsgDisconnect:
		return lobby.Disconnect{}, true
	case types.MsgProbe:
		return lobby.Probe{}, true
	default:
		return nil, false
	}
}
