// Package crypto defines the capability the client needs from an encryption
// engine: sealing a value for a recipient, and decrypting sealed values
// together with a proof a ledger can check.
package crypto

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var ErrNotInitialized = errors.New("crypto engine not initialized")
var ErrInitialization = errors.New("crypto engine initialization failed")
var ErrInvalidHandle = errors.New("invalid ciphertext handle")
var ErrInvalidProof = errors.New("invalid proof")

// Context binds ciphertexts and proofs to a contract and the account acting on it.
type Context struct {
	Contract string
	Account  string
}

// Handle is an opaque, hex-encoded reference to a ciphertext held by the ledger.
type Handle string

func HandleFromBytes(b []byte) Handle {
	return Handle("0x" + hex.EncodeToString(b))
}

func (h Handle) Bytes() ([]byte, error) {
	s := strings.TrimPrefix(strings.ToLower(string(h)), "0x")
	if s == "" || len(s)%2 != 0 {
		return nil, ErrInvalidHandle
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, err)
	}
	return b, nil
}

// Sealed is an encrypted input ready to be submitted to the ledger.
type Sealed struct {
	Handle Handle
	Proof  []byte
}

// SubmitFunc receives the encoded cleared values and the decryption proof and
// performs the on-chain confirmation. It must return only after the
// confirmation has been observed.
type SubmitFunc func(ctx context.Context, cleared []byte, proof []byte) error

type Decryption struct {
	Values  map[Handle]uint64
	Cleared []byte
	Proof   []byte
}

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Engine is the client-side half of the capability.
type Engine interface {
	Init(ctx context.Context) error
	Status() Status
	Encrypt(ctx context.Context, cc Context, value uint64) (Sealed, error)
	DecryptAndProve(ctx context.Context, handles []Handle, cc Context, submit SubmitFunc) (Decryption, error)
}

// Verifier is the ledger-side half: it checks what an Engine produced.
type Verifier interface {
	VerifyInput(handle []byte, proof []byte, cc Context) error
	VerifyDecryption(handles [][]byte, cleared []byte, proof []byte) ([]uint64, error)
}

const wordSize = 32

// EncodeCleared packs values as consecutive 32-byte big-endian words.
func EncodeCleared(values []uint64) []byte {
	out := make([]byte, wordSize*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint64(out[(i+1)*wordSize-8:(i+1)*wordSize], v)
	}
	return out
}

// DecodeCleared is the inverse of EncodeCleared. Words that do not fit in 64
// bits are rejected.
func DecodeCleared(b []byte) ([]uint64, error) {
	if len(b)%wordSize != 0 {
		return nil, fmt.Errorf("cleared values: length %d is not a multiple of %d", len(b), wordSize)
	}
	out := make([]uint64, 0, len(b)/wordSize)
	for off := 0; off < len(b); off += wordSize {
		word := b[off : off+wordSize]
		for _, c := range word[:wordSize-8] {
			if c != 0 {
				return nil, fmt.Errorf("cleared values: word %d overflows uint64", off/wordSize)
			}
		}
		out = append(out, binary.BigEndian.Uint64(word[wordSize-8:]))
	}
	return out, nil
}
