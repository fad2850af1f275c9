// Package wire implements the binary encoding of a credential map.
//
// The layout is the protobuf encoding of
//
//	message KeystoreData { map<string, string> entries = 1; }
//
// written and read directly with protowire so no generated code is needed.
// Every entry is a length-delimited field 1 whose body holds the key as
// field 1 and the value as field 2. An empty map encodes to zero bytes.
package wire

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	entriesField protowire.Number = 1
	keyField     protowire.Number = 1
	valueField   protowire.Number = 2

	// maxVarintLen32 is the longest varint that can hold a uint32.
	maxVarintLen32 = 5
)

// ErrMalformed is matched by every error returned from Decode.
var ErrMalformed = errors.New("wire: malformed buffer")

// DecodeError reports where and why a buffer could not be decoded.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wire: %s at offset %d", e.Reason, e.Offset)
}

// Is makes errors.Is(err, ErrMalformed) true for any *DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformed
}

// Encode serializes m. Entries are written in ascending key order so the
// same map always produces the same bytes.
func Encode(m map[string]string) []byte {
	if len(m) == 0 {
		return []byte{}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out, entry []byte
	for _, k := range keys {
		entry = entry[:0]
		entry = protowire.AppendTag(entry, keyField, protowire.BytesType)
		entry = protowire.AppendString(entry, k)
		entry = protowire.AppendTag(entry, valueField, protowire.BytesType)
		entry = protowire.AppendString(entry, m[k])

		out = protowire.AppendTag(out, entriesField, protowire.BytesType)
		out = protowire.AppendBytes(out, entry)
	}
	return out
}

// Decode parses a buffer produced by Encode (or by any protobuf runtime
// serializing the same message). Unknown fields are skipped. An entry is
// only added once both its key and value were present.
func Decode(buf []byte) (map[string]string, error) {
	out := make(map[string]string)
	d := &decoder{buf: buf}

	for !d.done() {
		num, typ, err := d.tag()
		if err != nil {
			return nil, err
		}
		if num != entriesField || typ != protowire.BytesType {
			if err := d.skip(typ); err != nil {
				return nil, err
			}
			continue
		}

		body, base, err := d.span()
		if err != nil {
			return nil, err
		}
		key, value, ok, err := decodeEntry(body, base)
		if err != nil {
			return nil, err
		}
		if ok {
			out[key] = value
		}
	}
	return out, nil
}

func decodeEntry(body []byte, base int) (key, value string, ok bool, err error) {
	d := &decoder{buf: body, base: base}
	var haveKey, haveValue bool

	for !d.done() {
		num, typ, err := d.tag()
		if err != nil {
			return "", "", false, err
		}
		if typ != protowire.BytesType || (num != keyField && num != valueField) {
			if err := d.skip(typ); err != nil {
				return "", "", false, err
			}
			continue
		}

		s, err := d.str()
		if err != nil {
			return "", "", false, err
		}
		if num == keyField {
			key, haveKey = s, true
		} else {
			value, haveValue = s, true
		}
	}
	return key, value, haveKey && haveValue, nil
}

type decoder struct {
	buf  []byte
	off  int
	base int // offset of buf within the top-level buffer
}

func (d *decoder) done() bool { return d.off >= len(d.buf) }

func (d *decoder) fail(format string, args ...any) error {
	return &DecodeError{Offset: d.base + d.off, Reason: fmt.Sprintf(format, args...)}
}

func (d *decoder) varint32() (uint32, error) {
	v, n := protowire.ConsumeVarint(d.buf[d.off:])
	if n < 0 {
		return 0, d.fail("bad varint: %v", protowire.ParseError(n))
	}
	if n > maxVarintLen32 || v > math.MaxUint32 {
		return 0, d.fail("varint does not fit in 32 bits")
	}
	d.off += n
	return uint32(v), nil
}

func (d *decoder) tag() (protowire.Number, protowire.Type, error) {
	start := d.off
	t, err := d.varint32()
	if err != nil {
		return 0, 0, err
	}
	num := protowire.Number(t >> 3)
	if num == 0 {
		d.off = start
		return 0, 0, d.fail("invalid field number 0")
	}
	return num, protowire.Type(t & 7), nil
}

// span consumes a length prefix and the bytes it covers. It also returns the
// absolute offset of the first byte of the span.
func (d *decoder) span() ([]byte, int, error) {
	n, err := d.varint32()
	if err != nil {
		return nil, 0, err
	}
	if uint64(n) > uint64(len(d.buf)-d.off) {
		return nil, 0, d.fail("length %d exceeds remaining %d bytes", n, len(d.buf)-d.off)
	}
	start := d.off
	d.off += int(n)
	return d.buf[start:d.off], d.base + start, nil
}

func (d *decoder) str() (string, error) {
	b, at, err := d.span()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", &DecodeError{Offset: at, Reason: "string is not valid UTF-8"}
	}
	return string(b), nil
}

func (d *decoder) skip(typ protowire.Type) error {
	switch typ {
	case protowire.VarintType:
		_, n := protowire.ConsumeVarint(d.buf[d.off:])
		if n < 0 {
			return d.fail("bad varint: %v", protowire.ParseError(n))
		}
		d.off += n
	case protowire.Fixed32Type:
		return d.fixed(4)
	case protowire.Fixed64Type:
		return d.fixed(8)
	case protowire.BytesType:
		_, _, err := d.span()
		return err
	default:
		return d.fail("unsupported wire type %d", typ)
	}
	return nil
}

func (d *decoder) fixed(size int) error {
	if len(d.buf)-d.off < size {
		return d.fail("truncated %d-byte field", size)
	}
	d.off += size
	return nil
}
