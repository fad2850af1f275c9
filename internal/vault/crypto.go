// Package vault provides password-based encryption for keystore files:
// scrypt key derivation and AES-256-GCM, producing a JSON payload that other
// keystore implementations can open.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/crypto/scrypt"
)

const (
	PayloadVersion = 1

	SaltSize = 16
	IVSize   = 12
	TagSize  = 16
	KeySize  = 32

	ScryptN = 16384
	ScryptR = 8
	ScryptP = 1
)

var (
	// ErrAuthentication is returned when the GCM tag does not verify: wrong
	// password, or tampered ciphertext, tag, salt or IV.
	ErrAuthentication = errors.New("decryption failed (wrong password or tampered data)")
	// ErrInvalidPayload is returned when a payload is structurally wrong and
	// was rejected before any cryptography ran.
	ErrInvalidPayload = errors.New("invalid encrypted payload")
)

// Payload is the encrypted form of a keystore. Field order matches the JSON
// written by the other keystore implementations.
type Payload struct {
	Version int    `json:"version"`
	Salt    string `json:"salt"`
	IV      string `json:"iv"`
	Tag     string `json:"tag"`
	Data    string `json:"data"`
}

// Encrypt seals plaintext with a key derived from password. Each call draws
// a fresh salt and IV.
func Encrypt(plaintext, password string) (*Payload, error) {
	salt, err := randomBytes(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	iv, err := randomBytes(IVSize)
	if err != nil {
		return nil, fmt.Errorf("generating iv: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	return &Payload{
		Version: PayloadVersion,
		Salt:    hex.EncodeToString(salt),
		IV:      hex.EncodeToString(iv),
		Tag:     hex.EncodeToString(tag),
		Data:    base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Decrypt opens p with password. Field lengths are validated before the key
// is derived; no plaintext is returned unless the tag verifies.
func Decrypt(p *Payload, password string) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	if p.Version != PayloadVersion {
		return "", fmt.Errorf("%w: unsupported version %d", ErrInvalidPayload, p.Version)
	}
	salt, err := decodeHexField("salt", p.Salt, SaltSize)
	if err != nil {
		return "", err
	}
	iv, err := decodeHexField("iv", p.IV, IVSize)
	if err != nil {
		return "", err
	}
	tag, err := decodeHexField("tag", p.Tag, TagSize)
	if err != nil {
		return "", err
	}
	ciphertext, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return "", fmt.Errorf("%w: data is not base64: %v", ErrInvalidPayload, err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrAuthentication
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrInvalidPayload)
	}
	return string(plaintext), nil
}

// DeriveKey runs scrypt with the fixed keystore parameters.
func DeriveKey(password string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), salt, ScryptN, ScryptR, ScryptP, KeySize)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	return key, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key, err := DeriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", err)
	}
	return gcm, nil
}

func decodeHexField(name, value string, size int) ([]byte, error) {
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not hex: %v", ErrInvalidPayload, name, err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("%w: invalid %s length: expected %d, got %d", ErrInvalidPayload, name, size, len(b))
	}
	return b, nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
