// Package elgamal is a local stand-in for a decryption service: ElGamal over
// ristretto255, with a Schnorr proof on sealed inputs and a Chaum-Pedersen
// proof on every decryption. Recipient keys are derived per account from one
// master seed.
package elgamal

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"

	"github.com/DoyleJ11/hidden-role-client/internal/crypto"
)

const DefaultMaxPlaintext = 255

var _ crypto.Engine = (*Engine)(nil)
var _ crypto.Verifier = (*Engine)(nil)

type Engine struct {
	seed     []byte
	maxPlain uint64
	rand     io.Reader

	mu     sync.RWMutex
	status crypto.Status
	table  map[[pointBytes]byte]uint64
}

type Option func(*Engine)

// WithMaxPlaintext bounds the values Encrypt accepts and DecryptAndProve can recover.
func WithMaxPlaintext(n uint64) Option {
	return func(e *Engine) { e.maxPlain = n }
}

func WithRand(r io.Reader) Option {
	return func(e *Engine) { e.rand = r }
}

func New(seed []byte, opts ...Option) *Engine {
	e := &Engine{
		seed:     append([]byte{}, seed...),
		maxPlain: DefaultMaxPlaintext,
		rand:     rand.Reader,
		status:   crypto.StatusIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init builds the discrete-log table used to recover plaintexts. It is safe
// to call more than once; later calls return immediately.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	if e.status == crypto.StatusReady {
		e.mu.Unlock()
		return nil
	}
	e.status = crypto.StatusLoading
	e.mu.Unlock()

	table, err := e.buildTable(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.status = crypto.StatusError
		return fmt.Errorf("%w: %v", crypto.ErrInitialization, err)
	}
	e.table = table
	e.status = crypto.StatusReady
	return nil
}

func (e *Engine) buildTable(ctx context.Context) (map[[pointBytes]byte]uint64, error) {
	if len(e.seed) == 0 {
		return nil, errors.New("empty key seed")
	}
	table := make(map[[pointBytes]byte]uint64, e.maxPlain+1)
	base := mulBase(scalarFromUint64(1))
	acc := mulBase(scalarFromUint64(0))
	for m := uint64(0); m <= e.maxPlain; m++ {
		if m%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var key [pointBytes]byte
		copy(key[:], acc.bytes())
		table[key] = m
		acc = add(acc, base)
	}
	return table, nil
}

func (e *Engine) Status() crypto.Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *Engine) ready() error {
	if e.Status() != crypto.StatusReady {
		return crypto.ErrNotInitialized
	}
	return nil
}

// secretKey derives the recipient key for account.
func (e *Engine) secretKey(account string) (scalar, error) {
	kdf := hkdf.New(sha512.New, e.seed, []byte("hidden-role/elgamal/v1"), []byte(account))
	var buf [64]byte
	if _, err := io.ReadFull(kdf, buf[:]); err != nil {
		return scalar{}, fmt.Errorf("derive key: %w", err)
	}
	return scalarFromUniform(buf[:])
}

func (e *Engine) publicKey(account string) (point, error) {
	x, err := e.secretKey(account)
	if err != nil {
		return point{}, err
	}
	return mulBase(x), nil
}

// Encrypt seals value for cc.Account.
func (e *Engine) Encrypt(ctx context.Context, cc crypto.Context, value uint64) (crypto.Sealed, error) {
	if err := e.ready(); err != nil {
		return crypto.Sealed{}, err
	}
	if err := ctx.Err(); err != nil {
		return crypto.Sealed{}, err
	}
	if value > e.maxPlain {
		return crypto.Sealed{}, fmt.Errorf("encrypt: value %d exceeds %d", value, e.maxPlain)
	}
	if cc.Account == "" {
		return crypto.Sealed{}, errors.New("encrypt: missing recipient account")
	}

	y, err := e.publicKey(cc.Account)
	if err != nil {
		return crypto.Sealed{}, err
	}
	r, err := randomScalar(e.rand)
	if err != nil {
		return crypto.Sealed{}, err
	}
	w, err := randomScalar(e.rand)
	if err != nil {
		return crypto.Sealed{}, err
	}

	ct := ciphertext{
		y:  y,
		c1: mulBase(r),
		c2: add(mulBase(scalarFromUint64(value)), mul(y, r)),
	}
	return crypto.Sealed{
		Handle: crypto.HandleFromBytes(ct.bytes()),
		Proof:  proveInput(ct, r, w, cc.Contract, cc.Account),
	}, nil
}

// DecryptAndProve opens every handle with cc.Account's key, proves each
// opening, and hands the result to submit before returning it. A submit
// failure fails the whole call.
func (e *Engine) DecryptAndProve(ctx context.Context, handles []crypto.Handle, cc crypto.Context, submit crypto.SubmitFunc) (crypto.Decryption, error) {
	if err := e.ready(); err != nil {
		return crypto.Decryption{}, err
	}
	if len(handles) == 0 {
		return crypto.Decryption{}, errors.New("decrypt: no handles")
	}

	x, err := e.secretKey(cc.Account)
	if err != nil {
		return crypto.Decryption{}, err
	}
	y := mulBase(x)

	values := make([]uint64, 0, len(handles))
	proof := make([]byte, 0, shareProofBytes*len(handles))
	out := crypto.Decryption{Values: make(map[crypto.Handle]uint64, len(handles))}

	for _, h := range handles {
		if err := ctx.Err(); err != nil {
			return crypto.Decryption{}, err
		}
		raw, err := h.Bytes()
		if err != nil {
			return crypto.Decryption{}, err
		}
		ct, err := decodeCiphertext(raw)
		if err != nil {
			return crypto.Decryption{}, fmt.Errorf("%w: %v", crypto.ErrInvalidHandle, err)
		}
		if !ct.y.equal(y) {
			return crypto.Decryption{}, fmt.Errorf("decrypt: handle %s is not sealed for %s", h, cc.Account)
		}

		w, err := randomScalar(e.rand)
		if err != nil {
			return crypto.Decryption{}, err
		}
		share := proveShare(ct, x, w)
		m, ok := e.lookup(sub(ct.c2, share.d))
		if !ok {
			return crypto.Decryption{}, fmt.Errorf("decrypt: plaintext of %s out of range", h)
		}

		values = append(values, m)
		proof = append(proof, share.bytes()...)
		out.Values[h] = m
	}

	out.Cleared = crypto.EncodeCleared(values)
	out.Proof = proof

	if submit != nil {
		if err := submit(ctx, out.Cleared, out.Proof); err != nil {
			return crypto.Decryption{}, fmt.Errorf("submit decryption: %w", err)
		}
	}
	return out, nil
}

func (e *Engine) lookup(p point) (uint64, bool) {
	var key [pointBytes]byte
	copy(key[:], p.bytes())
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.table[key]
	return m, ok
}

// VerifyInput checks that handle is sealed for cc.Account and that the
// sealer knew its randomness.
func (e *Engine) VerifyInput(handle []byte, proof []byte, cc crypto.Context) error {
	ct, err := decodeCiphertext(handle)
	if err != nil {
		return fmt.Errorf("%w: %v", crypto.ErrInvalidHandle, err)
	}
	y, err := e.publicKey(cc.Account)
	if err != nil {
		return err
	}
	if !ct.y.equal(y) {
		return fmt.Errorf("%w: recipient mismatch", crypto.ErrInvalidProof)
	}
	if err := verifyInput(ct, proof, cc.Contract, cc.Account); err != nil {
		return fmt.Errorf("%w: %v", crypto.ErrInvalidProof, err)
	}
	return nil
}

// VerifyDecryption checks a DecryptAndProve result against the handles it
// claims to open and returns the proven values. It needs no key material.
func (e *Engine) VerifyDecryption(handles [][]byte, cleared []byte, proof []byte) ([]uint64, error) {
	values, err := crypto.DecodeCleared(cleared)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrInvalidProof, err)
	}
	if len(values) != len(handles) || len(proof) != shareProofBytes*len(handles) {
		return nil, fmt.Errorf("%w: expected %d values", crypto.ErrInvalidProof, len(handles))
	}

	for i, raw := range handles {
		ct, err := decodeCiphertext(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", crypto.ErrInvalidHandle, err)
		}
		share, err := decodeShareProof(proof[i*shareProofBytes : (i+1)*shareProofBytes])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", crypto.ErrInvalidProof, err)
		}
		if !verifyShare(ct, share) {
			return nil, fmt.Errorf("%w: share %d", crypto.ErrInvalidProof, i)
		}
		if !sub(ct.c2, share.d).equal(mulBase(scalarFromUint64(values[i]))) {
			return nil, fmt.Errorf("%w: value %d does not match ciphertext", crypto.ErrInvalidProof, i)
		}
	}
	return values, nil
}
