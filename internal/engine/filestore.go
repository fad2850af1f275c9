package engine

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/celerix-dev/celerix-keystore/internal/vault"
	"github.com/celerix-dev/celerix-keystore/internal/wire"
	pkgengine "github.com/celerix-dev/celerix-keystore/pkg/engine"
)

// FileStore is a keystore persisted to a single file. It reads every
// historical format (legacy JSON, encrypted JSON, binary, encrypted binary)
// and always writes binary, wrapped in an encrypted payload when a password
// is set.
//
// A FileStore is not safe for concurrent use.
type FileStore struct {
	path     string
	password string
	mode     os.FileMode
	logger   *slog.Logger

	data   map[string]string
	state  pkgengine.State
	format pkgengine.Format
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithLogger sets the logger used for debug output. Credential values are
// never logged.
func WithLogger(logger *slog.Logger) Option {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFileMode sets the permissions of files created by Write.
func WithFileMode(mode os.FileMode) Option {
	return func(s *FileStore) { s.mode = mode }
}

// NewFileStore returns a handle for the keystore at path. An empty password
// means the file is written unencrypted. No I/O happens until the first
// operation.
func NewFileStore(path, password string, opts ...Option) *FileStore {
	s := &FileStore{
		path:     path,
		password: password,
		mode:     fileMode,
		logger:   slog.Default(),
		data:     make(map[string]string),
		state:    pkgengine.Unloaded,
		format:   pkgengine.FormatNone,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FileStore) Path() string { return s.path }

// State reports whether the handle has loaded the file.
func (s *FileStore) State() pkgengine.State { return s.state }

// Format reports the representation found by the last load, or the one
// produced by the last Write.
func (s *FileStore) Format() pkgengine.Format { return s.format }

// Encrypted reports whether Write encrypts the file.
func (s *FileStore) Encrypted() bool { return s.password != "" }

// Read loads the file, replacing anything held in memory. A missing file is
// an empty keystore. On error the handle is left unloaded and empty.
func (s *FileStore) Read() (map[string]string, error) {
	s.data = make(map[string]string)
	s.state = pkgengine.Unloaded

	raw, ok, err := readFile(s.path)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.install(make(map[string]string), pkgengine.FormatNone)
		s.logger.Debug("keystore file absent", "path", s.path)
		return s.GetAll()
	}

	data, format, err := s.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("reading keystore %s: %w", s.path, err)
	}
	s.install(data, format)
	s.logger.Debug("keystore loaded", "path", s.path, "format", format, "entries", len(data))
	return s.GetAll()
}

type readStep int

const (
	stepSniff readStep = iota
	stepJSONParsed
	stepDecrypt
	stepBinary
)

// decode walks the format detection steps. Only the encrypted payload and
// legacy JSON shapes parse as JSON; everything else is binary.
func (s *FileStore) decode(raw []byte) (map[string]string, pkgengine.Format, error) {
	var (
		step    = stepSniff
		parsed  any
		payload *vault.Payload
	)
	for {
		switch step {
		case stepSniff:
			v, ok := parseJSON(raw)
			if !ok {
				step = stepBinary
				continue
			}
			parsed, step = v, stepJSONParsed

		case stepJSONParsed:
			if p, ok := vault.ParsePayload(parsed); ok {
				payload, step = p, stepDecrypt
				continue
			}
			if obj, ok := parsed.(map[string]any); ok {
				data, err := stringEntries(obj)
				return data, pkgengine.FormatLegacyJSON, err
			}
			step = stepBinary

		case stepDecrypt:
			if s.password == "" {
				return nil, "", pkgengine.ErrMissingPassword
			}
			plaintext, err := vault.Decrypt(payload, s.password)
			if err != nil {
				return nil, "", err
			}
			return decodePlaintext(plaintext)

		case stepBinary:
			data, err := wire.Decode(raw)
			return data, pkgengine.FormatBinary, err
		}
	}
}

// decodePlaintext interprets decrypted content: a JSON object from the
// first encrypted format, or base64 of the binary encoding.
func decodePlaintext(plaintext string) (map[string]string, pkgengine.Format, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(plaintext), &obj); err == nil && obj != nil {
		data, err := stringEntries(obj)
		return data, pkgengine.FormatEncryptedJSON, err
	}

	raw, err := base64.StdEncoding.DecodeString(plaintext)
	if err != nil {
		return nil, "", fmt.Errorf("%w: decrypted content is neither a JSON object nor base64", pkgengine.ErrDecode)
	}
	data, err := wire.Decode(raw)
	return data, pkgengine.FormatEncryptedBinary, err
}

// parseJSON reports whether raw is UTF-8 text holding exactly one JSON value.
func parseJSON(raw []byte) (any, bool) {
	if !utf8.Valid(raw) {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return v, true
}

func stringEntries(obj map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: value of %q is %T, not a string", pkgengine.ErrDecode, k, v)
		}
		out[k] = str
	}
	return out, nil
}

func (s *FileStore) install(data map[string]string, format pkgengine.Format) {
	s.data = data
	s.format = format
	s.state = pkgengine.Loaded
}

func (s *FileStore) ensureLoaded() error {
	if s.state == pkgengine.Loaded {
		return nil
	}
	_, err := s.Read()
	return err
}

// Get returns the value stored under key, or pkgengine.ErrKeyNotFound.
func (s *FileStore) Get(key string) (string, error) {
	if err := s.ensureLoaded(); err != nil {
		return "", err
	}
	val, ok := s.data[key]
	if !ok {
		return "", pkgengine.ErrKeyNotFound
	}
	return val, nil
}

// Set stores a value in memory. The file changes on the next Write.
func (s *FileStore) Set(key, value string) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.data[key] = value
	return nil
}

// Delete removes a key in memory. The file changes on the next Write.
func (s *FileStore) Delete(key string) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	if _, ok := s.data[key]; !ok {
		return pkgengine.ErrKeyNotFound
	}
	delete(s.data, key)
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *FileStore) Keys() ([]string, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// GetAll returns a copy of every credential.
func (s *FileStore) GetAll() (map[string]string, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	return copyMap(s.data), nil
}

// Replace discards the current contents, on disk or in memory, in favour of
// data. The handle counts as loaded afterwards, so the next Write overwrites
// the file without reading it.
func (s *FileStore) Replace(data map[string]string) {
	s.data = copyMap(data)
	s.state = pkgengine.Loaded
}

// Write persists the in-memory contents atomically.
func (s *FileStore) Write() error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}

	out := wire.Encode(s.data)
	format := pkgengine.FormatBinary
	if s.password != "" {
		payload, err := vault.Encrypt(base64.StdEncoding.EncodeToString(out), s.password)
		if err != nil {
			return fmt.Errorf("encrypting keystore: %w", err)
		}
		if out, err = payload.Marshal(); err != nil {
			return err
		}
		format = pkgengine.FormatEncryptedBinary
	}

	if err := writeAtomic(s.path, out, s.mode); err != nil {
		return fmt.Errorf("writing keystore %s: %w", s.path, err)
	}
	s.format = format
	s.logger.Debug("keystore written", "path", s.path, "format", format, "entries", len(s.data))
	return nil
}
