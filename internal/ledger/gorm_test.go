package ledger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestPostgres(t *testing.T) *GormState {
	t.Helper()
	dsn := os.Getenv("HIDDENROLE_TEST_DSN")
	if dsn == "" {
		t.Skip("HIDDENROLE_TEST_DSN not set")
	}
	g, err := OpenPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestGormState_InsertGetVerify(t *testing.T) {
	g := openTestPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, g.Ping(ctx))

	id := "game-" + uuid.NewString()
	e := Entry{ID: id, Name: "MoonNight", Capacity: 8, Creator: "0xabc", CreatedAt: time.Now(), Handle: []byte{1, 2, 3}}
	require.NoError(t, g.Insert(ctx, e))
	require.ErrorIs(t, g.Insert(ctx, e), ErrDuplicate)

	got, err := g.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "MoonNight", got.Name)
	require.False(t, got.Verified)

	ids, err := g.IDs(ctx)
	require.NoError(t, err)
	require.Contains(t, ids, id)

	require.NoError(t, g.MarkVerified(ctx, id, 2))
	require.ErrorIs(t, g.MarkVerified(ctx, id, 3), ErrAlreadyVerified)

	got, err = g.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, got.Verified)
	require.Equal(t, uint64(2), got.Revealed)

	_, err = g.Get(ctx, "missing-"+uuid.NewString())
	require.ErrorIs(t, err, ErrNotFound)
}
