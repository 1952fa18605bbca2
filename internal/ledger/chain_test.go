package ledger

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/hidden-role-client/internal/crypto"
	"github.com/DoyleJ11/hidden-role-client/internal/crypto/elgamal"
	"github.com/DoyleJ11/hidden-role-client/internal/wallet"
)

const testContract = "0xledger"

type fixture struct {
	chain  *Chain
	state  *MemoryState
	engine *elgamal.Engine
	signer wallet.Signer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	engine := elgamal.New([]byte("seed"), elgamal.WithMaxPlaintext(8))
	require.NoError(t, engine.Init(context.Background()))

	signer, err := wallet.NewKeyring([]byte("seed")).Signer("alice", wallet.Approve)
	require.NoError(t, err)

	state := NewMemoryState()
	return fixture{
		chain:  NewChain(testContract, state, engine, WithBlockTime(5*time.Millisecond)),
		state:  state,
		engine: engine,
		signer: signer,
	}
}

func (f fixture) send(t *testing.T, method string, args any) (*Tx, error) {
	t.Helper()
	body, err := json.Marshal(args)
	require.NoError(t, err)
	env, err := f.signer.Sign(context.Background(), wallet.Envelope{Type: method, Value: body})
	require.NoError(t, err)
	return f.chain.Send(context.Background(), env)
}

func (f fixture) create(t *testing.T, id string, value uint64) {
	t.Helper()
	sealed, err := f.engine.Encrypt(context.Background(), crypto.Context{Contract: testContract, Account: f.signer.Address()}, value)
	require.NoError(t, err)
	handle, err := sealed.Handle.Bytes()
	require.NoError(t, err)

	tx, err := f.send(t, MethodCreateRecord, CreateArgs{ID: id, Name: "MoonNight", Handle: handle, InputProof: sealed.Proof, Capacity: 8})
	require.NoError(t, err)
	_, err = tx.Wait(context.Background())
	require.NoError(t, err)
}

func (f fixture) decrypt(t *testing.T, id string) VerifyArgs {
	t.Helper()
	raw, err := f.chain.Handle(context.Background(), id)
	require.NoError(t, err)
	cc := crypto.Context{Contract: testContract, Account: f.signer.Address()}
	res, err := f.engine.DecryptAndProve(context.Background(), []crypto.Handle{crypto.HandleFromBytes(raw)}, cc, nil)
	require.NoError(t, err)
	return VerifyArgs{ID: id, Cleared: res.Cleared, Proof: res.Proof}
}

func TestChain_CreateAndRead(t *testing.T) {
	f := newFixture(t)
	f.create(t, "game-1", 2)

	ids, err := f.chain.IDs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"game-1"}, ids)

	raw, err := f.chain.Record(context.Background(), "game-1")
	require.NoError(t, err)
	require.Equal(t, "MoonNight", raw["name"])
	require.Equal(t, f.signer.Address(), raw["creator"])
	require.Equal(t, false, raw["isVerified"])
	require.Equal(t, 0, raw["publicValue1"].(*big.Int).Cmp(big.NewInt(8)))
}

func TestChain_RejectsDuplicateAndForgedInput(t *testing.T) {
	f := newFixture(t)
	f.create(t, "game-1", 2)

	sealed, err := f.engine.Encrypt(context.Background(), crypto.Context{Contract: testContract, Account: f.signer.Address()}, 1)
	require.NoError(t, err)
	handle, _ := sealed.Handle.Bytes()

	_, err = f.send(t, MethodCreateRecord, CreateArgs{ID: "game-1", Name: "x", Handle: handle, InputProof: sealed.Proof, Capacity: 8})
	require.True(t, IsRevert(err, ReasonDuplicate), "got %v", err)

	// Sealed for a different contract.
	other, err := f.engine.Encrypt(context.Background(), crypto.Context{Contract: "0xother", Account: f.signer.Address()}, 1)
	require.NoError(t, err)
	otherHandle, _ := other.Handle.Bytes()
	_, err = f.send(t, MethodCreateRecord, CreateArgs{ID: "game-2", Name: "x", Handle: otherHandle, InputProof: other.Proof, Capacity: 8})
	require.True(t, IsRevert(err, ReasonBadInput), "got %v", err)
}

func TestChain_VerifyOnceThenAlreadyVerified(t *testing.T) {
	f := newFixture(t)
	f.create(t, "game-1", 3)
	args := f.decrypt(t, "game-1")

	tx, err := f.send(t, MethodVerifyDecryption, args)
	require.NoError(t, err)
	receipt, err := tx.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, "DecryptionVerified", receipt.Events[0].Name)

	raw, err := f.chain.Record(context.Background(), "game-1")
	require.NoError(t, err)
	require.Equal(t, true, raw["isVerified"])
	require.Equal(t, 0, raw["decryptedValue"].(*big.Int).Cmp(big.NewInt(3)))

	_, err = f.send(t, MethodVerifyDecryption, args)
	require.True(t, IsRevert(err, ReasonAlreadyVerified), "got %v", err)
}

func TestChain_ConcurrentVerifiersExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	f.create(t, "game-1", 1)
	args := f.decrypt(t, "game-1")
	f.chain = NewChain(testContract, f.state, f.engine, WithBlockTime(200*time.Millisecond))

	const n = 5
	txs := make([]*Tx, 0, n)
	for i := 0; i < n; i++ {
		tx, err := f.send(t, MethodVerifyDecryption, args)
		require.NoError(t, err, "all pre-flights pass before the first tx is mined")
		txs = append(txs, tx)
	}

	var (
		mu       sync.Mutex
		wins     int
		reverted int
		wg       sync.WaitGroup
	)
	for _, tx := range txs {
		wg.Add(1)
		go func(tx *Tx) {
			defer wg.Done()
			_, err := tx.Wait(context.Background())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if IsRevert(err, ReasonAlreadyVerified) {
				reverted++
			}
		}(tx)
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Equal(t, n-1, reverted)
}

func TestChain_RejectsForgedDecryption(t *testing.T) {
	f := newFixture(t)
	f.create(t, "game-1", 2)
	args := f.decrypt(t, "game-1")
	args.Cleared = crypto.EncodeCleared([]uint64{4})

	_, err := f.send(t, MethodVerifyDecryption, args)
	require.True(t, IsRevert(err, ReasonBadProof), "got %v", err)
}

func TestChain_RejectsUnsignedEnvelope(t *testing.T) {
	f := newFixture(t)
	_, err := f.chain.Send(context.Background(), wallet.Envelope{Type: MethodCreateRecord, Value: []byte(`{}`)})
	require.True(t, IsRevert(err, ReasonUnauthorized), "got %v", err)
}

func TestChain_UnknownRecord(t *testing.T) {
	f := newFixture(t)
	_, err := f.chain.Record(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.send(t, MethodVerifyDecryption, VerifyArgs{ID: "missing"})
	require.True(t, IsRevert(err, ReasonNotFound), "got %v", err)
}

func TestChain_Offline(t *testing.T) {
	f := newFixture(t)
	f.state.SetOffline(true)
	_, err := f.chain.IDs(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, f.chain.Available(context.Background()), ErrUnavailable)
}
