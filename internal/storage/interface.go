package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Retrieve when no object exists under a key
var ErrNotFound = errors.New("object not found")

// StorageInterface defines the contract for storage operations
type StorageInterface interface {
	Store(ctx context.Context, key string, data []byte) error
	Retrieve(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// StoreJSON marshals v with indentation and stores it under key
func StoreJSON(ctx context.Context, s StorageInterface, key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.Store(ctx, key, data)
}

// RetrieveJSON loads key and unmarshals it into v
func RetrieveJSON(ctx context.Context, s StorageInterface, key string, v interface{}) error {
	data, err := s.Retrieve(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}
