package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyring_DeterministicAccounts(t *testing.T) {
	k := NewKeyring([]byte("seed"))

	a1, err := k.Account("alice")
	require.NoError(t, err)
	a2, err := k.Account("alice")
	require.NoError(t, err)
	b, err := k.Account("bob")
	require.NoError(t, err)

	require.Equal(t, a1.Address, a2.Address)
	require.NotEqual(t, a1.Address, b.Address)
	require.Len(t, a1.Address, 42)

	_, err = k.Account(" ")
	require.Error(t, err)
}

func TestSigner_SignAndVerify(t *testing.T) {
	k := NewKeyring([]byte("seed"))
	s, err := k.Signer("alice", Approve)
	require.NoError(t, err)

	env, err := s.Sign(context.Background(), Envelope{Type: "createRecord", Value: []byte(`{"id":"g"}`)})
	require.NoError(t, err)
	require.Equal(t, s.Address(), env.Signer)
	require.NotEmpty(t, env.Nonce)
	require.NoError(t, env.Verify())

	tampered := env
	tampered.Value = []byte(`{"id":"h"}`)
	require.ErrorIs(t, tampered.Verify(), ErrBadSignature)

	other, err := k.Account("bob")
	require.NoError(t, err)
	spoofed := env
	spoofed.Signer = other.Address
	require.ErrorIs(t, spoofed.Verify(), ErrBadSignature)
}

func TestSigner_RejectPolicy(t *testing.T) {
	k := NewKeyring([]byte("seed"))
	s, err := k.Signer("alice", Reject)
	require.NoError(t, err)

	_, err = s.Sign(context.Background(), Envelope{Type: "createRecord"})
	require.ErrorIs(t, err, ErrUserRejected)
}
