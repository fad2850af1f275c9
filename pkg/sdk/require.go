package sdk

import (
	"errors"
	"fmt"
	"strings"
)

// MissingKeysError lists credentials a caller required but the keystore
// does not hold.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("missing required credentials: %s", strings.Join(e.Keys, ", "))
}

func (e *MissingKeysError) Unwrap() error { return ErrKeyNotFound }

// Require looks up every key and returns the values in the same order. All
// missing keys are reported together.
func Require(r CredentialReader, keys ...string) ([]string, error) {
	values := make([]string, len(keys))
	var missing []string
	for i, key := range keys {
		val, err := r.Get(key)
		if errors.Is(err, ErrKeyNotFound) {
			missing = append(missing, key)
			continue
		}
		if err != nil {
			return nil, err
		}
		values[i] = val
	}
	if len(missing) > 0 {
		return nil, &MissingKeysError{Keys: missing}
	}
	return values, nil
}
