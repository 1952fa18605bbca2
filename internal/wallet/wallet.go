package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

var ErrUserRejected = errors.New("user rejected transaction")
var ErrNotConnected = errors.New("wallet not connected")
var ErrBadSignature = errors.New("invalid signature")

const txDomain = "hidden-role/tx/v1"

type Account struct {
	Name      string
	Address   string
	PublicKey ed25519.PublicKey
}

// AddressOf derives the account address from its public key.
func AddressOf(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return "0x" + hex.EncodeToString(sum[:20])
}

// Keyring derives one signing key per account name from a master seed.
type Keyring struct {
	seed []byte
}

func NewKeyring(seed []byte) *Keyring {
	return &Keyring{seed: append([]byte{}, seed...)}
}

func (k *Keyring) key(name string) (ed25519.PrivateKey, error) {
	if len(k.seed) == 0 {
		return nil, errors.New("wallet: empty seed")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("wallet: empty account name")
	}
	kdf := hkdf.New(sha512.New, k.seed, []byte("hidden-role/wallet/v1"), []byte(name))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(kdf, seed); err != nil {
		return nil, fmt.Errorf("wallet: derive key: %w", err)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

func (k *Keyring) Account(name string) (Account, error) {
	priv, err := k.key(name)
	if err != nil {
		return Account{}, err
	}
	pub := priv.Public().(ed25519.PublicKey)
	return Account{Name: name, Address: AddressOf(pub), PublicKey: pub}, nil
}

// Envelope is a ledger transaction. Value is the method's JSON payload.
type Envelope struct {
	Type      string `json:"type"`
	Value     []byte `json:"value"`
	Nonce     string `json:"nonce,omitempty"`
	Signer    string `json:"signer,omitempty"`
	PublicKey []byte `json:"pubKey,omitempty"`
	Sig       []byte `json:"sig,omitempty"`
}

// SignBytes = domain || 0 || type || 0 || nonce || 0 || signer || 0 || sha256(value)
func (e Envelope) SignBytes() []byte {
	sum := sha256.Sum256(e.Value)
	out := make([]byte, 0, len(txDomain)+len(e.Type)+len(e.Nonce)+len(e.Signer)+4+sha256.Size)
	out = append(out, txDomain...)
	out = append(out, 0)
	out = append(out, e.Type...)
	out = append(out, 0)
	out = append(out, e.Nonce...)
	out = append(out, 0)
	out = append(out, e.Signer...)
	out = append(out, 0)
	return append(out, sum[:]...)
}

// Verify checks the signature and that Signer is the address of PublicKey.
func (e Envelope) Verify() error {
	if e.Nonce == "" || e.Signer == "" {
		return fmt.Errorf("%w: missing nonce or signer", ErrBadSignature)
	}
	if len(e.PublicKey) != ed25519.PublicKeySize || len(e.Sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: malformed key or signature", ErrBadSignature)
	}
	pub := ed25519.PublicKey(e.PublicKey)
	if AddressOf(pub) != e.Signer {
		return fmt.Errorf("%w: signer %s does not match key", ErrBadSignature, e.Signer)
	}
	if !ed25519.Verify(pub, e.SignBytes(), e.Sig) {
		return ErrBadSignature
	}
	return nil
}

// Signer approves and signs transactions on behalf of one account.
type Signer interface {
	Address() string
	Sign(ctx context.Context, env Envelope) (Envelope, error)
}

// Policy decides whether a transaction is approved; returning false rejects it.
type Policy func(ctx context.Context, env Envelope) bool

func Approve(context.Context, Envelope) bool { return true }
func Reject(context.Context, Envelope) bool  { return false }

type localSigner struct {
	account Account
	priv    ed25519.PrivateKey
	policy  Policy
}

// Signer returns a signer for name gated by policy.
func (k *Keyring) Signer(name string, policy Policy) (Signer, error) {
	priv, err := k.key(name)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		policy = Approve
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &localSigner{
		account: Account{Name: name, Address: AddressOf(pub), PublicKey: pub},
		priv:    priv,
		policy:  policy,
	}, nil
}

func (s *localSigner) Address() string { return s.account.Address }

func (s *localSigner) Sign(ctx context.Context, env Envelope) (Envelope, error) {
	if err := ctx.Err(); err != nil {
		return Envelope{}, err
	}
	if !s.policy(ctx, env) {
		return Envelope{}, ErrUserRejected
	}
	if env.Nonce == "" {
		env.Nonce = uuid.NewString()
	}
	env.Signer = s.account.Address
	env.PublicKey = append([]byte{}, s.account.PublicKey...)
	env.Sig = ed25519.Sign(s.priv, env.SignBytes())
	return env, nil
}
