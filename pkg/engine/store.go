// Package engine defines the errors, error kinds and states shared by every
// keystore implementation.
package engine

import (
	"errors"
	"io/fs"

	"github.com/celerix-dev/celerix-keystore/internal/vault"
	"github.com/celerix-dev/celerix-keystore/internal/wire"
)

var (
	// ErrKeyNotFound is returned when a requested credential does not exist.
	ErrKeyNotFound = errors.New("key not found")
	// ErrMissingPassword is returned when the keystore file is encrypted
	// but no password was configured.
	ErrMissingPassword = errors.New("keystore is encrypted but no password provided (KEYSTORE_PASSWORD or --password)")
	// ErrAlreadyExists is returned when creating a keystore over an existing file.
	ErrAlreadyExists = errors.New("keystore file already exists")
	// ErrIO wraps filesystem failures while reading or writing the keystore.
	ErrIO = errors.New("keystore I/O error")

	// ErrDecode matches malformed binary keystore content.
	ErrDecode = wire.ErrMalformed
	// ErrAuthentication matches a wrong password or tampered ciphertext.
	ErrAuthentication = vault.ErrAuthentication
	// ErrValidation matches an encrypted payload rejected before decryption.
	ErrValidation = vault.ErrInvalidPayload
)

// Kind is a stable category for programmatic error handling.
type Kind string

const (
	KindNone            Kind = ""
	KindNotFound        Kind = "NotFound"
	KindDecode          Kind = "DecodeError"
	KindMissingPassword Kind = "MissingPassword"
	KindAuthentication  Kind = "AuthenticationFailure"
	KindValidation      Kind = "ValidationError"
	KindIO              Kind = "IOError"
	KindConflict        Kind = "AlreadyExists"
	KindUnknown         Kind = "Unknown"
)

// KindOf classifies an error returned by a keystore.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrKeyNotFound):
		return KindNotFound
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrMissingPassword):
		return KindMissingPassword
	case errors.Is(err, ErrAuthentication):
		return KindAuthentication
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrIO):
		return KindIO
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	default:
		return KindUnknown
	}
}

// ErrorOf returns the sentinel for a kind, so an error that crossed a
// process boundary can be matched with errors.Is again.
func ErrorOf(kind Kind) error {
	switch kind {
	case KindNotFound:
		return ErrKeyNotFound
	case KindDecode:
		return ErrDecode
	case KindMissingPassword:
		return ErrMissingPassword
	case KindAuthentication:
		return ErrAuthentication
	case KindValidation:
		return ErrValidation
	case KindConflict:
		return ErrAlreadyExists
	case KindIO:
		return ErrIO
	default:
		return nil
	}
}

// State tracks whether a keystore handle holds the on-disk contents.
type State int

const (
	// Unloaded handles have not read their backing store yet. Any
	// operation other than Read loads first so that a later write cannot
	// drop keys that only exist on disk.
	Unloaded State = iota
	Loaded
)

func (s State) String() string {
	if s == Loaded {
		return "loaded"
	}
	return "unloaded"
}

// Format identifies the on-disk representation a keystore was read from.
type Format string

const (
	FormatNone            Format = "none"
	FormatLegacyJSON      Format = "legacy-json"
	FormatEncryptedJSON   Format = "encrypted-json"
	FormatEncryptedBinary Format = "encrypted-binary"
	FormatBinary          Format = "binary"
)

// MemoryPath is reported by keystores that are not backed by a file.
const MemoryPath = "memory"
