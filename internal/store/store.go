// Package store persists SmolMind conversations.
//
// Keys follow the convention "/{kind}/{name}", e.g. "/Conversation/3f2a...".
package store

import (
	"errors"
	"fmt"
)

// Store is the persistence interface for SmolMind resources. Values are
// stored as JSON.
type Store interface {
	// Create stores a new object at the given key.
	// Returns ErrAlreadyExists if the key already exists.
	Create(key string, value interface{}) error

	// Get retrieves the object stored at key and deserialises it into target.
	// Returns ErrNotFound if the key does not exist.
	Get(key string, target interface{}) error

	// Update replaces the object at the given key.
	// Returns ErrNotFound if the key does not exist.
	Update(key string, value interface{}) error

	// Delete removes the object at the given key.
	// Returns ErrNotFound if the key does not exist.
	Delete(key string) error

	// List returns every object whose key starts with prefix, in key order.
	// factory is called once per result to create a zero-value pointer that
	// the stored JSON is unmarshalled into.
	List(prefix string, factory func() interface{}) ([]interface{}, error)

	// Close releases any resources held by the store (e.g. BoltDB file handle).
	Close() error
}

// Common sentinel errors.
var (
	ErrAlreadyExists = errors.New("key already exists")
	ErrNotFound      = errors.New("key not found")
)

// ResourceKey builds a canonical store key for a resource.
//
//	ResourceKey("Conversation", "3f2a")
//	=> "/Conversation/3f2a"
func ResourceKey(kind, name string) string {
	return fmt.Sprintf("/%s/%s", kind, name)
}

// KindPrefix returns the List prefix matching every resource of kind.
func KindPrefix(kind string) string {
	return fmt.Sprintf("/%s/", kind)
}
