// Package ledger emulates the session contract the client talks to: an
// append-only table of sealed session records whose secret can be revealed
// exactly once by a proven decryption.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("record not found")
var ErrUnavailable = errors.New("ledger unavailable")
var ErrDuplicate = errors.New("record already exists")
var ErrAlreadyVerified = errors.New("record already verified")

// Revert reasons, as the contract reports them.
const (
	ReasonAlreadyVerified = "Data already verified"
	ReasonDuplicate       = "Record already exists"
	ReasonNotFound        = "Record does not exist"
	ReasonBadInput        = "Invalid input proof"
	ReasonBadProof        = "Invalid decryption proof"
	ReasonUnauthorized    = "Invalid signature"
	ReasonBadArgs         = "Invalid arguments"
	ReasonUnknownMethod   = "Unknown method"
)

type RevertError struct {
	Reason string
	Detail string
}

func (e *RevertError) Error() string {
	if e.Detail == "" {
		return "execution reverted: " + e.Reason
	}
	return "execution reverted: " + e.Reason + ": " + e.Detail
}

func revert(reason string, detail error) error {
	e := &RevertError{Reason: reason}
	if detail != nil {
		e.Detail = detail.Error()
	}
	return e
}

// IsRevert reports whether err is a revert with the given reason.
func IsRevert(err error, reason string) bool {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason == reason
	}
	return err != nil && strings.Contains(err.Error(), reason)
}

const (
	MethodCreateRecord     = "createRecord"
	MethodVerifyDecryption = "verifyDecryption"
)

type CreateArgs struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Handle      []byte `json:"handle"`
	InputProof  []byte `json:"inputProof"`
	Capacity    uint32 `json:"publicValue1"`
}

type VerifyArgs struct {
	ID      string `json:"id"`
	Cleared []byte `json:"clearValues"`
	Proof   []byte `json:"decryptionProof"`
}

// Entry is a record as stored.
type Entry struct {
	ID          string
	Name        string
	Description string
	Capacity    uint32
	Creator     string
	CreatedAt   time.Time
	Handle      []byte
	Verified    bool
	Revealed    uint64
}

// State persists entries. Implementations must make MarkVerified atomic: of
// any number of concurrent calls for one id, exactly one succeeds.
type State interface {
	IDs(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (Entry, error)
	Insert(ctx context.Context, e Entry) error
	MarkVerified(ctx context.Context, id string, value uint64) error
	Ping(ctx context.Context) error
}
