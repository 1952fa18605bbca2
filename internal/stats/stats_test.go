package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/hidden-role-client/internal/session"
)

var t0 = time.Date(2024, 10, 31, 21, 0, 0, 0, time.UTC)

func rec(id, creator string, minutes int, verified bool, value uint64) session.Record {
	return session.Record{
		ID:            id,
		DisplayName:   "Game " + id,
		Creator:       creator,
		CreatedAt:     t0.Add(time.Duration(minutes) * time.Minute),
		Verified:      verified,
		RevealedValue: value,
	}
}

func TestSummarize(t *testing.T) {
	records := []session.Record{
		rec("4", "0xAAA", 4, false, 0),
		rec("3", "0xbbb", 3, true, 3),
		rec("2", "0xaaa", 2, true, 2),
		rec("1", "0xaaa", 1, true, 2),
		rec("0", "0xccc", 0, false, 0),
	}

	s := Summarize(records, "0xaaa", 0)

	require.Equal(t, 5, s.Total)
	require.Equal(t, 3, s.Revealed)
	require.Equal(t, 3, s.CreatedByAccount)
	require.Equal(t, 2, s.RevealedByAccount)
	require.Equal(t, map[session.Role]int{session.RoleWerewolf: 2, session.RoleSeer: 1}, s.Roles)
	require.Equal(t, []CreatorCount{
		{Creator: "0xaaa", Sessions: 3},
		{Creator: "0xbbb", Sessions: 1},
		{Creator: "0xccc", Sessions: 1},
	}, s.Leaderboard)

	var got []string
	for _, e := range s.History {
		got = append(got, string(e.Kind)+":"+e.SessionID)
	}
	require.Equal(t, []string{"created:4", "revealed:2", "created:2", "revealed:1", "created:1"}, got)
	require.Equal(t, session.RoleWerewolf, s.History[1].Role)
}

func TestSummarize_HistoryLimit(t *testing.T) {
	var records []session.Record
	for i := range 6 {
		records = append(records, rec(string(rune('a'+i)), "0xaaa", i, true, 1))
	}

	s := Summarize(records, "0xaaa", 3)
	require.Len(t, s.History, 3)
	require.Equal(t, "f", s.History[0].SessionID)
	require.Equal(t, EventRevealed, s.History[0].Kind)
}

func TestSummarize_NoAccount(t *testing.T) {
	s := Summarize([]session.Record{rec("1", "0xaaa", 0, true, 9)}, "", 0)

	require.Zero(t, s.CreatedByAccount)
	require.Empty(t, s.History)
	require.Equal(t, 1, s.Roles[session.RoleUnknown])
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, "0xaaa", 0)
	require.Zero(t, s.Total)
	require.Empty(t, s.Leaderboard)
	require.Empty(t, s.Roles)
}
