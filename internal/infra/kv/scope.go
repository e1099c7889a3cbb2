package kv

import (
	"strings"

	"github.com/agroloop/agroloop/internal/domain"
)

// Scope is a per-user view of a store. It is the only place user-suffixed
// keys ("activities_<uid>") are built.
type Scope struct {
	store domain.KVStore
	uid   string
}

// ForUser returns the scope for uid. An empty uid is rejected.
func ForUser(store domain.KVStore, uid string) (Scope, error) {
	if strings.TrimSpace(uid) == "" {
		return Scope{}, domain.ErrEmptyUserID
	}
	return Scope{store: store, uid: uid}, nil
}

// UID returns the owning user id.
func (s Scope) UID() string { return s.uid }

// Key returns the physical key for a logical name.
func (s Scope) Key(name string) string { return name + "_" + s.uid }

// Owns reports whether a physical key belongs to this scope.
func (s Scope) Owns(key string) bool { return strings.HasSuffix(key, "_"+s.uid) }

// ReadJSON decodes the user's document called name.
func (s Scope) ReadJSON(name string, v any) (bool, error) {
	return ReadJSON(s.store, s.Key(name), v)
}

// Put builds a batch write for the user's document called name.
func (s Scope) Put(name string, v any) (domain.KVWrite, error) {
	return Put(s.Key(name), v)
}

// Remove builds a batch delete for the user's document called name.
func (s Scope) Remove(name string) domain.KVWrite {
	return domain.KVWrite{Key: s.Key(name), Delete: true}
}

// Apply forwards an atomic batch to the underlying store.
func (s Scope) Apply(writes ...domain.KVWrite) error {
	return s.store.Apply(writes)
}

// PurgeWrites builds the batch that deletes every key owned by this scope,
// so callers can combine it with other writes.
func (s Scope) PurgeWrites() ([]domain.KVWrite, error) {
	keys, err := s.store.Keys()
	if err != nil {
		return nil, err
	}
	var writes []domain.KVWrite
	for _, k := range keys {
		if s.Owns(k) {
			writes = append(writes, domain.KVWrite{Key: k, Delete: true})
		}
	}
	return writes, nil
}

// Purge deletes every key owned by this scope.
func (s Scope) Purge() error {
	writes, err := s.PurgeWrites()
	if err != nil {
		return err
	}
	return s.store.Apply(writes)
}
