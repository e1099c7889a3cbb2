package kv

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agroloop/agroloop/internal/domain"
)

// ReadJSON decodes the document under key into v.
// found is false (with a nil error) when the key does not exist.
func ReadJSON(s domain.KVStore, key string, v any) (found bool, err error) {
	raw, err := s.Get(key)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Put encodes v as a batch write for key.
func Put(key string, v any) (domain.KVWrite, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return domain.KVWrite{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return domain.KVWrite{Key: key, Value: raw}, nil
}

// WriteJSON encodes and stores v under key.
func WriteJSON(s domain.KVStore, key string, v any) error {
	w, err := Put(key, v)
	if err != nil {
		return err
	}
	return s.Apply([]domain.KVWrite{w})
}
