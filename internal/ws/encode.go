package ws

import (
	"github.com/DoyleJ11/hidden-role-client/internal/i18n"
	"github.com/DoyleJ11/hidden-role-client/internal/lobby"
	"github.com/DoyleJ11/hidden-role-client/internal/session"
	"github.com/DoyleJ11/hidden-role-client/internal/stats"
	"github.com/DoyleJ11/hidden-role-client/pkg/types"
)

// Encode turns a lobby view into its wire form with labels in text's language.
func Encode(v lobby.View, text *i18n.Localizer) types.LobbyView {
	out := types.LobbyView{
		Version:    v.Version,
		Account:    v.Account,
		Address:    v.Address,
		Connected:  v.Connected,
		Crypto:     string(v.Crypto),
		NumClients: v.NumClients,
		Sessions:   make([]types.SessionView, 0, len(v.Records)),
		Refreshing: v.Refreshing,
		Form: types.FormView{
			Open:        v.FormOpen,
			DisplayName: v.Form.DisplayName,
			Capacity:    v.Form.Capacity,
			Busy:        v.Creating,
			Phase:       string(v.CreatePhase),
		},
		Verifying: v.Verifying,
		Stats:     encodeStats(stats.Summarize(v.Records, v.Address, 0), text),
	}
	for _, r := range v.Records {
		out.Sessions = append(out.Sessions, encodeSession(r, text))
	}

	if sel := v.Selected; sel != nil {
		sv := &types.SelectionView{
			Session: encodeSession(sel.Record, text),
			Phase:   string(sel.Phase),
			Busy:    sel.Busy,
		}
		if sel.HasLocalValue {
			value := sel.LocalValue
			sv.LocalValue = &value
		}
		if sel.RoleKnown {
			sv.Role = text.Role(sel.Role)
		}
		out.Selected = sv
	}

	if n := v.Notification; n != nil {
		out.Notification = &types.NotificationView{
			Kind:    string(n.Kind),
			Message: n.Message,
			ShownAt: n.ShownAt,
		}
	}
	return out
}

func encodeSession(r session.Record, text *i18n.Localizer) types.SessionView {
	sv := types.SessionView{
		ID:          r.ID,
		DisplayName: r.DisplayName,
		Description: r.Description,
		Capacity:    r.Capacity,
		Creator:     r.Creator,
		CreatedAt:   r.CreatedAt,
		Verified:    r.Verified,
		Status:      text.Status(r.Verified),
	}
	if value, ok := r.Revealed(); ok {
		sv.Role = text.Role(session.RoleOf(value))
	}
	return sv
}

func encodeStats(s stats.Summary, text *i18n.Localizer) types.StatsView {
	out := types.StatsView{
		Total:             s.Total,
		Revealed:          s.Revealed,
		CreatedByAccount:  s.CreatedByAccount,
		RevealedByAccount: s.RevealedByAccount,
		Roles:             make(map[string]int, len(s.Roles)),
		Leaderboard:       make([]types.CreatorCount, 0, len(s.Leaderboard)),
		History:           make([]types.HistoryEvent, 0, len(s.History)),
	}
	for role, n := range s.Roles {
		out.Roles[role.String()] = n
	}
	for _, c := range s.Leaderboard {
		out.Leaderboard = append(out.Leaderboard, types.CreatorCount{Creator: c.Creator, Sessions: c.Sessions})
	}
	for _, e := range s.History {
		he := types.HistoryEvent{
			Kind:        string(e.Kind),
			SessionID:   e.SessionID,
			DisplayName: e.DisplayName,
			At:          e.At,
		}
		if e.Kind == stats.EventRevealed {
			he.Role = text.Role(e.Role)
		}
		out.History = append(out.History, he)
	}
	return out
}
