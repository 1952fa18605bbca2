package lobby

import (
	"errors"
	"strings"

	"github.com/DoyleJ11/hidden-role-client/internal/crypto"
	"github.com/DoyleJ11/hidden-role-client/internal/ledger"
	"github.com/DoyleJ11/hidden-role-client/internal/store"
	"github.com/DoyleJ11/hidden-role-client/internal/wallet"
)

type Class string

const (
	ClassNone             Class = ""
	ClassNotConnected     Class = "NotConnected"
	ClassInitFailure      Class = "InitializationFailure"
	ClassUserRejected     Class = "UserRejected"
	ClassAlreadyVerified  Class = "AlreadyVerified"
	ClassStoreUnavailable Class = "StoreUnavailable"
	ClassRecordNotFound   Class = "RecordNotFound"
	ClassOperationFailed  Class = "OperationFailed"
)

// Classify maps err onto the classes a flow reports. Wrapped sentinels are
// checked first; revert text is the fallback for errors that lost their type
// on the way through the wallet or the crypto engine.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, wallet.ErrNotConnected):
		return ClassNotConnected
	case errors.Is(err, crypto.ErrNotInitialized), errors.Is(err, crypto.ErrInitialization):
		return ClassInitFailure
	case errors.Is(err, wallet.ErrUserRejected):
		return ClassUserRejected
	case errors.Is(err, store.ErrAlreadyVerified):
		return ClassAlreadyVerified
	case errors.Is(err, store.ErrStoreUnavailable):
		return ClassStoreUnavailable
	case errors.Is(err, store.ErrRecordNotFound):
		return ClassRecordNotFound
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "user rejected"):
		return ClassUserRejected
	case strings.Contains(msg, ledger.ReasonAlreadyVerified):
		return ClassAlreadyVerified
	default:
		return ClassOperationFailed
	}
}
