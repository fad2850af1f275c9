package vault

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// IsEncryptedPayload reports whether v has the shape of a Payload: a JSON
// object with version 1 and string salt, iv, tag and data. It only looks at
// the structure.
func IsEncryptedPayload(v any) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		return false
	}
	if !isVersionOne(obj["version"]) {
		return false
	}
	for _, field := range []string{"salt", "iv", "tag", "data"} {
		if _, ok := obj[field].(string); !ok {
			return false
		}
	}
	return true
}

func isVersionOne(v any) bool {
	switch n := v.(type) {
	case json.Number:
		// 1, 1.0 and 1e0 all name the same version.
		f, err := n.Float64()
		return err == nil && f == PayloadVersion
	case float64:
		return n == PayloadVersion
	case int:
		return n == PayloadVersion
	case int64:
		return n == PayloadVersion
	default:
		return false
	}
}

// ParsePayload converts an already parsed JSON value into a Payload when it
// passes IsEncryptedPayload.
func ParsePayload(v any) (*Payload, bool) {
	if !IsEncryptedPayload(v) {
		return nil, false
	}
	obj := v.(map[string]any)
	return &Payload{
		Version: PayloadVersion,
		Salt:    obj["salt"].(string),
		IV:      obj["iv"].(string),
		Tag:     obj["tag"].(string),
		Data:    obj["data"].(string),
	}, true
}

// Marshal renders p the way keystore files store it.
func (p *Payload) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
