package kv

import (
	"errors"
	"testing"

	"github.com/agroloop/agroloop/internal/domain"
)

// ─── Memory Store ───────────────────────────────────────────────────────────

func TestMemory_Apply_AllOrNothing(t *testing.T) {
	m := NewMemory()
	m.Set("a", []byte("1"))

	err := m.Apply([]domain.KVWrite{
		{Key: "a", Value: []byte("2")},
		{Key: "", Value: []byte("x")},
	})
	if err == nil {
		t.Fatal("Apply() with empty key should fail")
	}
	if v, _ := m.Get("a"); string(v) != "1" {
		t.Errorf("a = %s, want 1", v)
	}
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	m := NewMemory()
	m.Set("k", []byte("abc"))
	v, _ := m.Get("k")
	v[0] = 'z'
	again, _ := m.Get("k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated through Get(): %s", again)
	}
}

func TestMemory_FailWrites(t *testing.T) {
	m := NewMemory()
	boom := errors.New("disk full")
	m.FailWrites = boom
	if err := m.Set("k", []byte("v")); !errors.Is(err, boom) {
		t.Errorf("Set() error = %v, want %v", err, boom)
	}
}

// ─── JSON Helpers ───────────────────────────────────────────────────────────

func TestReadWriteJSON(t *testing.T) {
	m := NewMemory()

	var missing []string
	found, err := ReadJSON(m, "deletedAccounts", &missing)
	if err != nil || found {
		t.Fatalf("ReadJSON(missing) = %v, %v; want false, nil", found, err)
	}

	if err := WriteJSON(m, "deletedAccounts", []string{"a@b.c"}); err != nil {
		t.Fatal(err)
	}
	var got []string
	found, err = ReadJSON(m, "deletedAccounts", &got)
	if err != nil || !found {
		t.Fatalf("ReadJSON() = %v, %v", found, err)
	}
	if len(got) != 1 || got[0] != "a@b.c" {
		t.Errorf("got %v", got)
	}
}

func TestReadJSON_Corrupt(t *testing.T) {
	m := NewMemory()
	m.Set("aiConfig", []byte("{not json"))
	var cfg domain.AIConfig
	if _, err := ReadJSON(m, "aiConfig", &cfg); err == nil {
		t.Error("ReadJSON() on corrupt value should fail")
	}
}

// ─── Scope ──────────────────────────────────────────────────────────────────

func TestForUser_EmptyUID(t *testing.T) {
	if _, err := ForUser(NewMemory(), " "); !errors.Is(err, domain.ErrEmptyUserID) {
		t.Errorf("ForUser(empty) error = %v, want ErrEmptyUserID", err)
	}
}

func TestScope_KeysAndPurge(t *testing.T) {
	m := NewMemory()
	s, err := ForUser(m, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Key("activities"); got != "activities_u1" {
		t.Errorf("Key() = %q, want activities_u1", got)
	}

	w1, _ := s.Put("activities", []string{})
	w2, _ := s.Put("ecoCredits", 10)
	if err := s.Apply(w1, w2); err != nil {
		t.Fatal(err)
	}
	m.Set("ecoCredits_u2", []byte("5"))
	m.Set("verification_codes", []byte("[]"))

	var credits int64
	if found, _ := s.ReadJSON("ecoCredits", &credits); !found || credits != 10 {
		t.Errorf("ReadJSON(ecoCredits) = %v, %d", found, credits)
	}

	if err := s.Purge(); err != nil {
		t.Fatal(err)
	}
	keys, _ := m.Keys()
	if len(keys) != 2 || keys[0] != "ecoCredits_u2" || keys[1] != "verification_codes" {
		t.Errorf("keys after purge = %v", keys)
	}
}
