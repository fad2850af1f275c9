package engine

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/celerix-dev/celerix-keystore/internal/vault"
	"github.com/celerix-dev/celerix-keystore/internal/wire"
	pkgengine "github.com/celerix-dev/celerix-keystore/pkg/engine"
)

func writeFixture(t *testing.T, path string, data map[string]string, password string) {
	t.Helper()
	s := NewFileStore(path, password)
	s.Replace(data)
	if err := s.Write(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func readFixture(t *testing.T, path string, password string) map[string]string {
	t.Helper()
	data, err := NewFileStore(path, password).Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return data
}

func assertNotJSON(t *testing.T, path string) {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		t.Fatalf("expected binary keystore, file parsed as JSON: %q", raw)
	}
}

func readPayload(t *testing.T, path string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("encrypted keystore is not JSON: %v", err)
	}
	if !vault.IsEncryptedPayload(v) {
		t.Fatalf("file is not an encrypted payload: %s", raw)
	}
	return v
}

func TestFileStore_ReadNonexistent(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nonexistent"), "")
	if s.State() != pkgengine.Unloaded {
		t.Fatalf("expected a new handle to be unloaded")
	}

	data, err := s.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty map, got %v", data)
	}
	if s.State() != pkgengine.Loaded {
		t.Errorf("expected loaded state after Read")
	}
	if s.Format() != pkgengine.FormatNone {
		t.Errorf("expected format none, got %s", s.Format())
	}
}

func TestFileStore_NoIOBeforeFirstOperation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "not", "created")
	NewFileStore(filepath.Join(dir, "ks"), "pw")
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("constructor touched the filesystem: %v", err)
	}
}

func TestFileStore_WriteAndReadBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks1")

	s := NewFileStore(path, "")
	if _, err := s.Read(); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	s.Set("privateKey", "abc")
	s.Set("apiKey", "xyz")
	if err := s.Write(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if s.Format() != pkgengine.FormatBinary {
		t.Errorf("expected binary format after write, got %s", s.Format())
	}

	assertNotJSON(t, path)

	got := readFixture(t, path, "")
	want := map[string]string{"privateKey": "abc", "apiKey": "xyz"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFileStore_SingleEntryIsBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks")
	writeFixture(t, path, map[string]string{"a": "1"}, "")

	assertNotJSON(t, path)
	raw, _ := os.ReadFile(path)
	if !reflect.DeepEqual(raw, wire.Encode(map[string]string{"a": "1"})) {
		t.Errorf("unexpected file bytes %x", raw)
	}

	got := readFixture(t, path, "")
	if !reflect.DeepEqual(got, map[string]string{"a": "1"}) {
		t.Errorf("expected {a:1}, got %v", got)
	}
}

func TestFileStore_EmptyStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	writeFixture(t, path, map[string]string{}, "")

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("expected zero-length file, got %d bytes", info.Size())
	}

	s := NewFileStore(path, "")
	data, err := s.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty map, got %v", data)
	}
	if s.Format() != pkgengine.FormatBinary {
		t.Errorf("expected binary format, got %s", s.Format())
	}
}

func TestFileStore_SetWithoutReadPreservesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks-preserve")
	writeFixture(t, path, map[string]string{"existingKey": "existingVal"}, "")

	s := NewFileStore(path, "")
	if err := s.Set("newKey", "newVal"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Write(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got := readFixture(t, path, "")
	want := map[string]string{"existingKey": "existingVal", "newKey": "newVal"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFileStore_WriteWithoutLoadPreservesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks")
	writeFixture(t, path, map[string]string{"k": "v"}, "")

	if err := NewFileStore(path, "").Write(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := readFixture(t, path, ""); got["k"] != "v" {
		t.Errorf("Write on a fresh handle dropped keys: %v", got)
	}
}

func TestFileStore_GetMissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks-get")
	writeFixture(t, path, map[string]string{"a": "1"}, "")

	s := NewFileStore(path, "")
	val, err := s.Get("a")
	if err != nil || val != "1" {
		t.Errorf("expected 1, got %q (%v)", val, err)
	}
	if _, err := s.Get("b"); err != pkgengine.ErrKeyNotFound {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestFileStore_Keys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks-keys")
	writeFixture(t, path, map[string]string{"z": "3", "x": "1", "y": "2"}, "")

	keys, err := NewFileStore(path, "").Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"x", "y", "z"}) {
		t.Errorf("expected [x y z], got %v", keys)
	}
}

func TestFileStore_GetAllReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks-copy")
	writeFixture(t, path, map[string]string{"k": "v"}, "")

	s := NewFileStore(path, "")
	snapshot, err := s.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	snapshot["k"] = "modified"
	snapshot["extra"] = "x"

	if val, _ := s.Get("k"); val != "v" {
		t.Errorf("external mutation leaked into the store: %q", val)
	}
	if _, err := s.Get("extra"); err != pkgengine.ErrKeyNotFound {
		t.Errorf("external insert leaked into the store")
	}

	read, _ := s.Read()
	read["k"] = "again"
	if val, _ := s.Get("k"); val != "v" {
		t.Errorf("Read result aliases the store: %q", val)
	}
}

func TestFileStore_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks")
	writeFixture(t, path, map[string]string{"a": "1", "b": "2"}, "")

	s := NewFileStore(path, "")
	if err := s.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete("missing"); err != pkgengine.ErrKeyNotFound {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
	if err := s.Write(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := readFixture(t, path, ""); !reflect.DeepEqual(got, map[string]string{"b": "2"}) {
		t.Errorf("expected {b:2}, got %v", got)
	}
}

func TestFileStore_AtomicWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks-atomic")
	writeFixture(t, path, map[string]string{"a": "b"}, "")

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("target file missing: %v", err)
	}

	writeFixture(t, path, map[string]string{"a": "c"}, "pw")
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind after encrypted write: %v", err)
	}
}

func TestFileStore_StaleTempFileIsReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks")
	if err := os.WriteFile(path+".tmp", []byte("half written garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	writeFixture(t, path, map[string]string{"k": "v"}, "")

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("stale temporary file survived: %v", err)
	}
	if got := readFixture(t, path, ""); got["k"] != "v" {
		t.Errorf("expected k=v, got %v", got)
	}
}

func TestFileStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks")
	writeFixture(t, path, map[string]string{"k": "v"}, "")

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600, got %o", perm)
	}
}

func TestFileStore_WithFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks")
	s := NewFileStore(path, "", WithFileMode(0o640))
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Write(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o640 {
		t.Errorf("expected 0640, got %o", perm)
	}
}

func TestFileStore_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "keystore")

	s := NewFileStore(path, "")
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Write(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got := readFixture(t, path, "")
	if !reflect.DeepEqual(got, map[string]string{"k": "v"}) {
		t.Errorf("expected {k:v}, got %v", got)
	}
}

func TestFileStore_WriteAndReadEncrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks-enc")
	writeFixture(t, path, map[string]string{"secret": "treasure"}, "my-password")

	readPayload(t, path)

	s := NewFileStore(path, "my-password")
	got, err := s.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]string{"secret": "treasure"}) {
		t.Errorf("expected {secret:treasure}, got %v", got)
	}
	if s.Format() != pkgengine.FormatEncryptedBinary {
		t.Errorf("expected encrypted-binary format, got %s", s.Format())
	}
}

func TestFileStore_ReadEncryptedFloatVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks-enc-float")
	writeFixture(t, path, map[string]string{"secret": "treasure"}, "pw")

	for _, version := range []string{`"version": 1.0,`, `"version": 1e0,`} {
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		edited := strings.Replace(string(raw), `"version": 1,`, version, 1)
		if edited == string(raw) {
			t.Fatalf("payload has no integer version field: %s", raw)
		}
		if err := os.WriteFile(path, []byte(edited), 0o600); err != nil {
			t.Fatal(err)
		}

		s := NewFileStore(path, "pw")
		got, err := s.Read()
		if err != nil {
			t.Fatalf("%s: Read failed: %v", version, err)
		}
		if !reflect.DeepEqual(got, map[string]string{"secret": "treasure"}) {
			t.Errorf("%s: expected {secret:treasure}, got %v", version, got)
		}
		if s.Format() != pkgengine.FormatEncryptedBinary {
			t.Errorf("%s: expected encrypted-binary format, got %s", version, s.Format())
		}

		// Restore the integer form for the next edit.
		writeFixture(t, path, map[string]string{"secret": "treasure"}, "pw")
	}
}

func TestFileStore_ReadEncryptedWithoutPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks-enc-nopw")
	writeFixture(t, path, map[string]string{"a": "b"}, "pw")

	s := NewFileStore(path, "")
	_, err := s.Read()
	if !errors.Is(err, pkgengine.ErrMissingPassword) {
		t.Fatalf("expected ErrMissingPassword, got %v", err)
	}
	if pkgengine.KindOf(err) != pkgengine.KindMissingPassword {
		t.Errorf("unexpected kind %s", pkgengine.KindOf(err))
	}
	if s.State() != pkgengine.Unloaded {
		t.Errorf("failed read must leave the handle unloaded")
	}

	// Every read-through operation reports the same failure.
	if _, err := s.Get("a"); !errors.Is(err, pkgengine.ErrMissingPassword) {
		t.Errorf("Get: expected ErrMissingPassword, got %v", err)
	}
	if err := s.Set("a", "c"); !errors.Is(err, pkgengine.ErrMissingPassword) {
		t.Errorf("Set: expected ErrMissingPassword, got %v", err)
	}
}

func TestFileStore_ReadEncryptedWrongPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks-enc-wrong")
	writeFixture(t, path, map[string]string{"a": "b"}, "correct")

	s := NewFileStore(path, "wrong")
	data, err := s.Read()
	if !errors.Is(err, pkgengine.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if data != nil {
		t.Errorf("expected no data on failure, got %v", data)
	}
	if err := s.Write(); !errors.Is(err, pkgengine.ErrAuthentication) {
		t.Errorf("Write over an unreadable keystore must fail, got %v", err)
	}
	if got := readFixture(t, path, "correct"); got["a"] != "b" {
		t.Errorf("original keystore was modified: %v", got)
	}
}

func TestFileStore_RoundTripMultipleEncrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks-enc-multi")
	original := map[string]string{
		"privateKey": "deadbeefdeadbeef",
		"apiKey":     "ak-123456",
		"secretKey":  "sk-abcdef",
		"address":    "T9yD14Nj9j7xAB4dbGeiX9h8unkKHxuWwb",
	}
	writeFixture(t, path, original, "complex-pw-123!")

	if got := readFixture(t, path, "complex-pw-123!"); !reflect.DeepEqual(got, original) {
		t.Errorf("expected %v, got %v", original, got)
	}
}

func TestFileStore_SetWritePreservesEncryption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks-enc-set")
	writeFixture(t, path, map[string]string{"a": "1"}, "pw")
	before := readPayload(t, path)

	s := NewFileStore(path, "pw")
	s.Set("b", "2")
	if err := s.Write(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	after := readPayload(t, path)
	if before["salt"] == after["salt"] || before["iv"] == after["iv"] {
		t.Errorf("rewrite reused salt or iv")
	}
	got := readFixture(t, path, "pw")
	if !reflect.DeepEqual(got, map[string]string{"a": "1", "b": "2"}) {
		t.Errorf("expected {a:1 b:2}, got %v", got)
	}
}

func TestFileStore_ReadLegacyJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks-legacy")
	if err := os.WriteFile(path, []byte(`{"oldKey":"oldVal"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(path, "")
	data, err := s.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(data, map[string]string{"oldKey": "oldVal"}) {
		t.Errorf("expected {oldKey:oldVal}, got %v", data)
	}
	if s.Format() != pkgengine.FormatLegacyJSON {
		t.Errorf("expected legacy-json format, got %s", s.Format())
	}
}

func TestFileStore_LegacyJSONMigratesToBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks-legacy-overwrite")
	legacy := "{\n  \"oldKey\": \"oldVal\"\n}\n"
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(path, "")
	s.Set("newKey", "newVal")
	if err := s.Write(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	assertNotJSON(t, path)
	got := readFixture(t, path, "")
	want := map[string]string{"oldKey": "oldVal", "newKey": "newVal"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFileStore_LegacyJSONWithPasswordConfigured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks")
	if err := os.WriteFile(path, []byte(`{"k":"v"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(path, "pw")
	if v, err := s.Get("k"); err != nil || v != "v" {
		t.Fatalf("expected v, got %q (%v)", v, err)
	}
	if err := s.Write(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	readPayload(t, path)
	if got := readFixture(t, path, "pw"); got["k"] != "v" {
		t.Errorf("expected k=v after encrypting a legacy file, got %v", got)
	}
}

func TestFileStore_LegacyJSONNonStringValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks")
	if err := os.WriteFile(path, []byte(`{"k": 42}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileStore(path, "").Read()
	if !errors.Is(err, pkgengine.ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestFileStore_ReadEncryptedLegacyJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks-enc-json")
	payload, err := vault.Encrypt(`{"privateKey": "abc", "apiKey": "xyz"}`, "pw")
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := payload.Marshal()
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(path, "pw")
	got, err := s.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]string{"privateKey": "abc", "apiKey": "xyz"}) {
		t.Errorf("unexpected data %v", got)
	}
	if s.Format() != pkgengine.FormatEncryptedJSON {
		t.Errorf("expected encrypted-json format, got %s", s.Format())
	}

	// The next write upgrades to encrypted binary.
	if err := s.Write(); err != nil {
		t.Fatal(err)
	}
	p, _ := vault.ParsePayload(readPayload(t, path))
	plaintext, err := vault.Decrypt(p, "pw")
	if err != nil {
		t.Fatal(err)
	}
	bin, err := base64.StdEncoding.DecodeString(plaintext)
	if err != nil {
		t.Fatalf("encrypted content is not base64: %v", err)
	}
	if decoded, err := wire.Decode(bin); err != nil || decoded["apiKey"] != "xyz" {
		t.Errorf("unexpected decoded content %v (%v)", decoded, err)
	}
}

func TestFileStore_EncryptedGarbagePlaintext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks")
	payload, _ := vault.Encrypt("not base64 and not json!", "pw")
	raw, _ := payload.Marshal()
	os.WriteFile(path, raw, 0o600)

	_, err := NewFileStore(path, "pw").Read()
	if !errors.Is(err, pkgengine.ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestFileStore_InvalidPayloadLengths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks")
	writeFixture(t, path, map[string]string{"a": "b"}, "pw")
	payload := readPayload(t, path)
	payload["iv"] = "00"
	raw, _ := json.Marshal(payload)
	os.WriteFile(path, raw, 0o600)

	_, err := NewFileStore(path, "pw").Read()
	if !errors.Is(err, pkgengine.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if pkgengine.KindOf(err) != pkgengine.KindValidation {
		t.Errorf("unexpected kind %s", pkgengine.KindOf(err))
	}
}

func TestFileStore_CorruptBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks")
	full := wire.Encode(map[string]string{"privateKey": "deadbeef"})
	if err := os.WriteFile(path, full[:len(full)-2], 0o600); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(path, "")
	data, err := s.Read()
	if !errors.Is(err, pkgengine.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if data != nil {
		t.Errorf("partial data returned: %v", data)
	}
	var decodeErr *wire.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Errorf("expected a *wire.DecodeError in the chain")
	}
}

func TestFileStore_NonObjectJSONFallsBackToBinary(t *testing.T) {
	for _, content := range []string{`[1,2,3]`, `"text"`, `null`, `42`} {
		path := filepath.Join(t.TempDir(), "ks")
		os.WriteFile(path, []byte(content), 0o600)

		s := NewFileStore(path, "")
		_, err := s.Read()
		if !errors.Is(err, pkgengine.ErrDecode) {
			t.Errorf("%s: expected ErrDecode from binary fallback, got %v", content, err)
		}
	}
}

func TestFileStore_ReadDirectoryIsIOError(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFileStore(dir, "").Read()
	if !errors.Is(err, pkgengine.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if pkgengine.KindOf(err) != pkgengine.KindIO {
		t.Errorf("unexpected kind %s", pkgengine.KindOf(err))
	}
}

func TestFileStore_Replace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks")
	writeFixture(t, path, map[string]string{"old": "1"}, "")

	s := NewFileStore(path, "")
	input := map[string]string{"new": "2"}
	s.Replace(input)
	input["new"] = "mutated"
	if err := s.Write(); err != nil {
		t.Fatal(err)
	}

	got := readFixture(t, path, "")
	if !reflect.DeepEqual(got, map[string]string{"new": "2"}) {
		t.Errorf("expected {new:2}, got %v", got)
	}
}

func TestFileStore_ManyEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ks")
	want := make(map[string]string)
	for i := 0; i < 500; i++ {
		want[string(rune('a'+i%26))+string(rune(0x4e00+i))] = string(make([]byte, i%300))
	}
	writeFixture(t, path, want, "")

	got := readFixture(t, path, "")
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	keys := make([]string, 0, len(got))
	for k := range got {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if got[k] != want[k] {
			t.Fatalf("value mismatch for %q", k)
		}
	}
}
