package storage

import (
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/amirk1998/notedeck/pkg/errors"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()

	if _, ok, err := s.Get("missing"); ok || err != nil {
		t.Errorf("missing key: ok=%v err=%v", ok, err)
	}

	if err := s.Set("k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get("k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("Get = %q, %v, %v", got, ok, err)
	}

	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get("k"); ok {
		t.Error("key survived delete")
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()

	value := []byte("original")
	s.Set("k", value)
	value[0] = 'X'

	got, _, _ := s.Get("k")
	if string(got) != "original" {
		t.Errorf("stored value aliased caller's slice: %q", got)
	}

	got[0] = 'Y'
	again, _, _ := s.Get("k")
	if string(again) != "original" {
		t.Errorf("returned value aliased stored slice: %q", again)
	}
}

func TestMemoryStoreSetManyAndKeys(t *testing.T) {
	s := NewMemoryStore()

	err := s.SetMany(map[string][]byte{
		"b": []byte("2"),
		"a": []byte("1"),
	})
	if err != nil {
		t.Fatalf("SetMany: %v", err)
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"a", "b"}) {
		t.Errorf("keys = %v, want sorted [a b]", keys)
	}
}

func TestGetJSONReportsCorruption(t *testing.T) {
	s := NewMemoryStore()
	s.Set("k", []byte("{broken"))

	var out map[string]string
	_, err := GetJSON(s, "k", &out)
	if !stderrors.Is(err, errors.ErrStorageCorrupted) {
		t.Errorf("corrupted value error = %v, want ErrStorageCorrupted", err)
	}
}

func TestSetJSONGetJSONRoundTrip(t *testing.T) {
	s := NewMemoryStore()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := SetJSON(s, "k", payload{Name: "x", Count: 3}); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}

	var got payload
	ok, err := GetJSON(s, "k", &got)
	if err != nil || !ok {
		t.Fatalf("GetJSON: %v, %v", ok, err)
	}
	if got.Name != "x" || got.Count != 3 {
		t.Errorf("round trip = %+v", got)
	}

	ok, err = GetJSON(s, "absent", &got)
	if err != nil || ok {
		t.Errorf("absent key: ok=%v err=%v", ok, err)
	}
}
