// Package stats derives account statistics from the session records a lobby holds.
package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/DoyleJ11/hidden-role-client/internal/session"
)

const DefaultHistoryLimit = 10

type EventKind string

const (
	EventCreated  EventKind = "created"
	EventRevealed EventKind = "revealed"
)

type Event struct {
	Kind        EventKind
	SessionID   string
	DisplayName string
	At          time.Time
	Role        session.Role // EventRevealed only
}

type CreatorCount struct {
	Creator  string
	Sessions int
}

type Summary struct {
	Total    int
	Revealed int

	CreatedByAccount  int
	RevealedByAccount int

	Roles       map[session.Role]int
	Leaderboard []CreatorCount
	History     []Event
}

// Summarize computes the summary for the account at address. History is
// capped at limit entries; limit <= 0 uses DefaultHistoryLimit.
func Summarize(records []session.Record, address string, limit int) Summary {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	s := Summary{
		Total: len(records),
		Roles: make(map[session.Role]int),
	}

	byCreator := make(map[string]int)
	for _, r := range records {
		mine := address != "" && strings.EqualFold(r.Creator, address)
		if r.Creator != "" {
			byCreator[strings.ToLower(r.Creator)]++
		}
		if mine {
			s.CreatedByAccount++
			s.History = append(s.History, Event{Kind: EventCreated, SessionID: r.ID, DisplayName: r.DisplayName, At: r.CreatedAt})
		}

		value, ok := r.Revealed()
		if !ok {
			continue
		}
		role := session.RoleOf(value)
		s.Revealed++
		s.Roles[role]++
		if mine {
			s.RevealedByAccount++
			// Reveals carry no timestamp of their own; they sort with their session.
			s.History = append(s.History, Event{Kind: EventRevealed, SessionID: r.ID, DisplayName: r.DisplayName, At: r.CreatedAt, Role: role})
		}
	}

	for creator, n := range byCreator {
		s.Leaderboard = append(s.Leaderboard, CreatorCount{Creator: creator, Sessions: n})
	}
	sort.Slice(s.Leaderboard, func(i, j int) bool {
		a, b := s.Leaderboard[i], s.Leaderboard[j]
		if a.Sessions != b.Sessions {
			return a.Sessions > b.Sessions
		}
		return a.Creator < b.Creator
	})

	sort.SliceStable(s.History, func(i, j int) bool {
		a, b := s.History[i], s.History[j]
		if !a.At.Equal(b.At) {
			return a.At.After(b.At)
		}
		// A reveal follows its creation, so it lists first.
		return a.Kind == EventRevealed && b.Kind == EventCreated
	})
	if len(s.History) > limit {
		s.History = s.History[:limit]
	}
	return s
}
