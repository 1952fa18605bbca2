package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/hidden-role-client/internal/crypto"
	"github.com/DoyleJ11/hidden-role-client/internal/wallet"
)

const DefaultBlockTime = 500 * time.Millisecond

type Chain struct {
	contract  string
	state     State
	verifier  crypto.Verifier
	blockTime time.Duration
	log       *zap.Logger
	now       func() time.Time

	height atomic.Uint64
}

type Option func(*Chain)

func WithBlockTime(d time.Duration) Option {
	return func(c *Chain) { c.blockTime = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Chain) { c.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Chain) { c.now = now }
}

func NewChain(contract string, state State, verifier crypto.Verifier, opts ...Option) *Chain {
	c := &Chain{
		contract:  contract,
		state:     state,
		verifier:  verifier,
		blockTime: DefaultBlockTime,
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chain) Contract() string { return c.contract }

func (c *Chain) IDs(ctx context.Context) ([]string, error) {
	return c.state.IDs(ctx)
}

// Record returns the record the way a contract call decodes it: numeric
// fields are big integers and field names are the contract's.
func (c *Chain) Record(ctx context.Context, id string) (map[string]any, error) {
	e, err := c.state.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	raw := map[string]any{
		"name":           e.Name,
		"description":    e.Description,
		"publicValue1":   new(big.Int).SetUint64(uint64(e.Capacity)),
		"publicValue2":   new(big.Int),
		"timestamp":      big.NewInt(e.CreatedAt.Unix()),
		"creator":        e.Creator,
		"isVerified":     e.Verified,
		"decryptedValue": new(big.Int),
	}
	if e.Verified {
		raw["decryptedValue"] = new(big.Int).SetUint64(e.Revealed)
	}
	return raw, nil
}

func (c *Chain) Handle(ctx context.Context, id string) ([]byte, error) {
	e, err := c.state.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return append([]byte{}, e.Handle...), nil
}

func (c *Chain) Available(ctx context.Context) error {
	return c.state.Ping(ctx)
}

type Event struct {
	Name string
	ID   string
}

type Receipt struct {
	TxHash string
	Block  uint64
	Events []Event
}

// Tx is a submitted transaction. Wait blocks until it is mined.
type Tx struct {
	hash    string
	done    chan struct{}
	receipt Receipt
	err     error
}

func (t *Tx) Hash() string { return t.hash }

func (t *Tx) Wait(ctx context.Context) (Receipt, error) {
	select {
	case <-t.done:
		return t.receipt, t.err
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	}
}

// Send pre-flights env against current state, then mines it after the block
// time. Rules are checked again at mining, so a tx that passed pre-flight can
// still revert if a competing tx landed first.
func (c *Chain) Send(ctx context.Context, env wallet.Envelope) (*Tx, error) {
	if err := env.Verify(); err != nil {
		return nil, revert(ReasonUnauthorized, err)
	}
	apply, err := c.prepare(ctx, env)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(append(env.SignBytes(), env.Sig...))
	tx := &Tx{hash: "0x" + hex.EncodeToString(sum[:]), done: make(chan struct{})}
	log := c.log.With(zap.String("tx", tx.hash), zap.String("method", env.Type))
	log.Debug("tx accepted")

	time.AfterFunc(c.blockTime, func() {
		defer close(tx.done)
		mctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		block := c.height.Add(1)
		ev, err := apply(mctx)
		if err != nil {
			log.Debug("tx reverted", zap.Uint64("block", block), zap.Error(err))
			tx.err = err
			return
		}
		tx.receipt = Receipt{TxHash: tx.hash, Block: block, Events: []Event{ev}}
		log.Debug("tx mined", zap.Uint64("block", block))
	})
	return tx, nil
}

type applyFunc func(ctx context.Context) (Event, error)

func (c *Chain) prepare(ctx context.Context, env wallet.Envelope) (applyFunc, error) {
	switch env.Type {
	case MethodCreateRecord:
		var args CreateArgs
		if err := json.Unmarshal(env.Value, &args); err != nil {
			return nil, revert(ReasonBadArgs, err)
		}
		return c.prepareCreate(ctx, env.Signer, args)
	case MethodVerifyDecryption:
		var args VerifyArgs
		if err := json.Unmarshal(env.Value, &args); err != nil {
			return nil, revert(ReasonBadArgs, err)
		}
		return c.prepareVerify(ctx, args)
	default:
		return nil, revert(ReasonUnknownMethod, fmt.Errorf("%q", env.Type))
	}
}

func (c *Chain) prepareCreate(ctx context.Context, signer string, args CreateArgs) (applyFunc, error) {
	if strings.TrimSpace(args.ID) == "" || strings.TrimSpace(args.Name) == "" {
		return nil, revert(ReasonBadArgs, errors.New("id and name are required"))
	}
	switch _, err := c.state.Get(ctx, args.ID); {
	case err == nil:
		return nil, revert(ReasonDuplicate, nil)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	if err := c.verifier.VerifyInput(args.Handle, args.InputProof, crypto.Context{Contract: c.contract, Account: signer}); err != nil {
		return nil, revert(ReasonBadInput, err)
	}

	return func(ctx context.Context) (Event, error) {
		err := c.state.Insert(ctx, Entry{
			ID:          args.ID,
			Name:        args.Name,
			Description: args.Description,
			Capacity:    args.Capacity,
			Creator:     signer,
			CreatedAt:   c.now(),
			Handle:      args.Handle,
		})
		if errors.Is(err, ErrDuplicate) {
			return Event{}, revert(ReasonDuplicate, nil)
		}
		if err != nil {
			return Event{}, err
		}
		return Event{Name: "RecordCreated", ID: args.ID}, nil
	}, nil
}

func (c *Chain) prepareVerify(ctx context.Context, args VerifyArgs) (applyFunc, error) {
	e, err := c.state.Get(ctx, args.ID)
	if errors.Is(err, ErrNotFound) {
		return nil, revert(ReasonNotFound, nil)
	}
	if err != nil {
		return nil, err
	}
	if e.Verified {
		return nil, revert(ReasonAlreadyVerified, nil)
	}
	values, err := c.verifier.VerifyDecryption([][]byte{e.Handle}, args.Cleared, args.Proof)
	if err != nil {
		return nil, revert(ReasonBadProof, err)
	}
	value := values[0]

	return func(ctx context.Context) (Event, error) {
		err := c.state.MarkVerified(ctx, args.ID, value)
		if errors.Is(err, ErrAlreadyVerified) {
			return Event{}, revert(ReasonAlreadyVerified, nil)
		}
		if err != nil {
			return Event{}, err
		}
		return Event{Name: "DecryptionVerified", ID: args.ID}, nil
	}, nil
}
