package types

import "time"

// LobbyView is the StateSnapshot payload: everything one account's client shows.
type LobbyView struct {
	Version    int    `json:"version"`
	Account    string `json:"account"`
	Address    string `json:"address,omitempty"`
	Connected  bool   `json:"connected"`
	Crypto     string `json:"crypto"` // "idle" | "loading" | "ready" | "error"
	NumClients int    `json:"num_clients"`

	Sessions   []SessionView `json:"sessions"`
	Refreshing bool          `json:"refreshing"`

	Form FormView `json:"form"`

	Selected  *SelectionView `json:"selected,omitempty"`
	Verifying []string       `json:"verifying,omitempty"`

	Notification *NotificationView `json:"notification,omitempty"`
	Stats        StatsView         `json:"stats"`
}

type SessionView struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	Capacity    int       `json:"capacity"`
	Creator     string    `json:"creator"`
	CreatedAt   time.Time `json:"created_at"`
	Verified    bool      `json:"verified"`
	Status      string    `json:"status"` // localized verified/unverified label
	Role        string    `json:"role,omitempty"`
}

type FormView struct {
	Open        bool   `json:"open"`
	DisplayName string `json:"display_name"`
	Capacity    int    `json:"capacity"`
	Busy        bool   `json:"busy"`
	Phase       string `json:"phase"`
}

type SelectionView struct {
	Session    SessionView `json:"session"`
	Phase      string      `json:"phase"`
	Busy       bool        `json:"busy"`
	LocalValue *uint64     `json:"local_value,omitempty"`
	Role       string      `json:"role,omitempty"`
}

type NotificationView struct {
	Kind    string    `json:"kind"` // "pending" | "success" | "error"
	Message string    `json:"message"`
	ShownAt time.Time `json:"shown_at"`
}

type StatsView struct {
	Total             int            `json:"total"`
	Revealed          int            `json:"revealed"`
	CreatedByAccount  int            `json:"created_by_account"`
	RevealedByAccount int            `json:"revealed_by_account"`
	Roles             map[string]int `json:"roles"`
	Leaderboard       []CreatorCount `json:"leaderboard"`
	History           []HistoryEvent `json:"history"`
}

type CreatorCount struct {
	Creator  string `json:"creator"`
	Sessions int    `json:"sessions"`
}

type HistoryEvent struct {
	Kind        string    `json:"kind"` // "created" | "revealed"
	SessionID   string    `json:"session_id"`
	DisplayName string    `json:"display_name"`
	At          time.Time `json:"at"`
	Role        string    `json:"role,omitempty"`
}
