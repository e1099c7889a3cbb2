package domain

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// KVWrite is one mutation inside an atomic batch.
type KVWrite struct {
	Key    string
	Value  []byte
	Delete bool
}

// KVStore abstracts the on-device key-value store (SQLite in production,
// memory in tests). Values are opaque JSON documents.
type KVStore interface {
	// Get returns ErrKeyNotFound when the key is absent.
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(keys ...string) error
	Keys() ([]string, error)

	// Apply performs every write or none of them.
	Apply(writes []KVWrite) error
}
