package sdk

import (
	"github.com/celerix-dev/celerix-keystore/internal/engine"
	pkgengine "github.com/celerix-dev/celerix-keystore/pkg/engine"
)

// ErrKeyNotFound is returned when a requested credential does not exist.
var ErrKeyNotFound = pkgengine.ErrKeyNotFound

// --- Functional Interfaces (Interface Segregation) ---

// CredentialReader is the read side of a keystore. Provider code that only
// looks credentials up should depend on this.
type CredentialReader interface {
	Get(key string) (string, error)
	Keys() ([]string, error)
	GetAll() (map[string]string, error)
}

// CredentialWriter changes credentials in memory. Changes reach the backing
// store on Write.
type CredentialWriter interface {
	Set(key, value string) error
	Delete(key string) error
}

// --- Composite Interfaces ---

// Keystore is a credential map backed by a file, memory or a remote daemon.
// Operations other than Read load the backing store first, so a Set followed
// by Write never drops keys that were only persisted.
type Keystore interface {
	CredentialReader
	CredentialWriter

	// Path identifies the backing store.
	Path() string
	// Read reloads from the backing store, discarding unwritten changes.
	Read() (map[string]string, error)
	// Write persists the in-memory contents.
	Write() error
}

var (
	_ Keystore = (*engine.FileStore)(nil)
	_ Keystore = (*MemoryStore)(nil)
	_ Keystore = (*Client)(nil)
)
