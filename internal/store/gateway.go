// Package store is the client's typed view of the session ledger. It decodes
// raw contract results into session records, signs writes through the
// connected wallet, and maps ledger failures onto a small set of errors the
// rest of the client can act on.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/hidden-role-client/internal/crypto"
	"github.com/DoyleJ11/hidden-role-client/internal/ledger"
	"github.com/DoyleJ11/hidden-role-client/internal/session"
	"github.com/DoyleJ11/hidden-role-client/internal/wallet"
)

var ErrStoreUnavailable = errors.New("store unavailable")
var ErrRecordNotFound = errors.New("record not found")
var ErrAlreadyVerified = errors.New("record already verified")
var ErrMalformedRecord = errors.New("malformed record")

// Pending is a submitted write that has not been confirmed yet.
type Pending interface {
	Hash() string
	Wait(ctx context.Context) (ledger.Receipt, error)
}

// Backend is the raw ledger connection.
type Backend interface {
	Contract() string
	IDs(ctx context.Context) ([]string, error)
	Record(ctx context.Context, id string) (map[string]any, error)
	Handle(ctx context.Context, id string) ([]byte, error)
	Available(ctx context.Context) error
	Submit(ctx context.Context, env wallet.Envelope) (Pending, error)
}

type chainBackend struct {
	*ledger.Chain
}

func (c chainBackend) Submit(ctx context.Context, env wallet.Envelope) (Pending, error) {
	tx, err := c.Send(ctx, env)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// FromChain adapts a ledger chain to Backend.
func FromChain(c *ledger.Chain) Backend {
	return chainBackend{Chain: c}
}

type Gateway struct {
	backend Backend
	signer  wallet.Signer
	log     *zap.Logger
}

// NewGateway returns a gateway acting as signer. A nil signer gives a
// read-only gateway whose writes fail with wallet.ErrNotConnected.
func NewGateway(backend Backend, signer wallet.Signer, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{backend: backend, signer: signer, log: log}
}

func (g *Gateway) Contract() string { return g.backend.Contract() }

// Account is the signing address, or "" for a read-only gateway.
func (g *Gateway) Account() string {
	if g.signer == nil {
		return ""
	}
	return g.signer.Address()
}

func (g *Gateway) ListIDs(ctx context.Context) ([]string, error) {
	ids, err := g.backend.IDs(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	return ids, nil
}

func (g *Gateway) Record(ctx context.Context, id string) (session.Record, error) {
	raw, err := g.backend.Record(ctx, id)
	if err != nil {
		return session.Record{}, mapErr(err)
	}
	return decodeRecord(id, raw)
}

// SecretHandle returns the handle of the record's sealed value.
func (g *Gateway) SecretHandle(ctx context.Context, id string) (crypto.Handle, error) {
	raw, err := g.backend.Handle(ctx, id)
	if err != nil {
		return "", mapErr(err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: %s has no handle", ErrMalformedRecord, id)
	}
	return crypto.HandleFromBytes(raw), nil
}

func (g *Gateway) Available(ctx context.Context) error {
	return mapErr(g.backend.Available(ctx))
}

type NewRecord struct {
	ID          string
	DisplayName string
	Description string
	Capacity    int
	Sealed      crypto.Sealed
}

// CreateRecord signs and submits a new record. The returned Tx is accepted
// but not yet confirmed.
func (g *Gateway) CreateRecord(ctx context.Context, r NewRecord) (*Tx, error) {
	handle, err := r.Sealed.Handle.Bytes()
	if err != nil {
		return nil, err
	}
	if r.Capacity < 0 {
		return nil, session.ErrCapacityOutOfRange
	}
	return g.submit(ctx, ledger.MethodCreateRecord, ledger.CreateArgs{
		ID:          r.ID,
		Name:        r.DisplayName,
		Description: r.Description,
		Handle:      handle,
		InputProof:  r.Sealed.Proof,
		Capacity:    uint32(r.Capacity),
	})
}

// SubmitVerification signs and submits a proven decryption for id.
func (g *Gateway) SubmitVerification(ctx context.Context, id string, cleared, proof []byte) (*Tx, error) {
	return g.submit(ctx, ledger.MethodVerifyDecryption, ledger.VerifyArgs{
		ID:      id,
		Cleared: cleared,
		Proof:   proof,
	})
}

func (g *Gateway) submit(ctx context.Context, method string, args any) (*Tx, error) {
	if g.signer == nil {
		return nil, wallet.ErrNotConnected
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	env, err := g.signer.Sign(ctx, wallet.Envelope{Type: method, Value: body})
	if err != nil {
		return nil, err
	}
	p, err := g.backend.Submit(ctx, env)
	if err != nil {
		g.log.Debug("submit rejected", zap.String("method", method), zap.Error(err))
		return nil, mapErr(err)
	}
	g.log.Debug("submitted", zap.String("method", method), zap.String("tx", p.Hash()))
	return &Tx{pending: p}, nil
}

type Tx struct {
	pending Pending
}

func (t *Tx) Hash() string { return t.pending.Hash() }

// Wait blocks until the write is confirmed or reverted.
func (t *Tx) Wait(ctx context.Context) (ledger.Receipt, error) {
	r, err := t.pending.Wait(ctx)
	if err != nil {
		return ledger.Receipt{}, mapErr(err)
	}
	return r, nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, wallet.ErrUserRejected):
		return err
	case errors.Is(err, ledger.ErrAlreadyVerified), ledger.IsRevert(err, ledger.ReasonAlreadyVerified):
		return fmt.Errorf("%w: %v", ErrAlreadyVerified, err)
	case errors.Is(err, ledger.ErrNotFound), ledger.IsRevert(err, ledger.ReasonNotFound):
		return fmt.Errorf("%w: %v", ErrRecordNotFound, err)
	case errors.Is(err, ledger.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}
