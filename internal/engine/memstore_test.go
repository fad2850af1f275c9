package engine

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	pkgengine "github.com/celerix-dev/celerix-keystore/pkg/engine"
)

func TestMemStore_Basic(t *testing.T) {
	s := NewMemStore(nil)

	if err := s.Set("k1", "v1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, err := s.Get("k1")
	if err != nil || val != "v1" {
		t.Errorf("expected v1, got %q (%v)", val, err)
	}
	if _, err := s.Get("nope"); err != pkgengine.ErrKeyNotFound {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
	if s.Path() != pkgengine.MemoryPath {
		t.Errorf("unexpected path %q", s.Path())
	}
}

func TestMemStore_InitialDataIsCopied(t *testing.T) {
	initial := map[string]string{"a": "1"}
	s := NewMemStore(initial)
	initial["a"] = "changed"

	if val, _ := s.Get("a"); val != "1" {
		t.Errorf("constructor aliased the input map: %q", val)
	}
}

func TestMemStore_ReadDiscardsUncommitted(t *testing.T) {
	s := NewMemStore(map[string]string{"a": "1"})
	s.Set("b", "2")
	s.Delete("a")

	data, err := s.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(data, map[string]string{"a": "1"}) {
		t.Errorf("expected committed contents, got %v", data)
	}

	s.Set("b", "2")
	if err := s.Write(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, _ = s.Read()
	if !reflect.DeepEqual(data, map[string]string{"a": "1", "b": "2"}) {
		t.Errorf("expected committed write, got %v", data)
	}
	if s.Writes() != 1 {
		t.Errorf("expected 1 write, got %d", s.Writes())
	}
}

func TestMemStore_KeysAndDelete(t *testing.T) {
	s := NewMemStore(map[string]string{"b": "2", "a": "1", "c": "3"})

	keys, _ := s.Keys()
	if !reflect.DeepEqual(keys, []string{"a", "b", "c"}) {
		t.Errorf("expected sorted keys, got %v", keys)
	}

	if err := s.Delete("b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete("b"); err != pkgengine.ErrKeyNotFound {
		t.Errorf("expected ErrKeyNotFound on second delete, got %v", err)
	}
	keys, _ = s.Keys()
	if !reflect.DeepEqual(keys, []string{"a", "c"}) {
		t.Errorf("expected [a c], got %v", keys)
	}
}

func TestMemStore_GetAllReturnsCopy(t *testing.T) {
	s := NewMemStore(map[string]string{"k": "v"})
	all, _ := s.GetAll()
	all["k"] = "mutated"

	if val, _ := s.Get("k"); val != "v" {
		t.Errorf("GetAll leaked internal map: %q", val)
	}
}

func TestMemStore_Concurrency(t *testing.T) {
	s := NewMemStore(nil)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			s.Set(key, "val")
			s.Get(key)
			s.Keys()
			s.GetAll()
			if i%10 == 0 {
				s.Write()
			}
		}(i)
	}
	wg.Wait()

	keys, _ := s.Keys()
	if len(keys) != 50 {
		t.Errorf("expected 50 keys, got %d", len(keys))
	}
}
