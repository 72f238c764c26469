package storage

import "errors"

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage is closed")

// Repository defines the complete storage interface.
// The cart snapshot cache and checkout drafts only need LocalStore; Close
// is for the owner of the connection.
type Repository interface {
	LocalStore
	Close() error
}

// LocalStore is a string key/value store with the semantics of browser
// local storage: last write wins, missing keys are not an error.
type LocalStore interface {
	// GetItem returns the value for key and whether it exists
	GetItem(key string) (string, bool, error)

	// SetItem creates or replaces the value for key
	SetItem(key, value string) error

	// RemoveItem deletes key; removing a missing key is a no-op
	RemoveItem(key string) error

	// Keys lists keys starting with prefix, sorted
	Keys(prefix string) ([]string, error)

	// RemovePrefix deletes every key starting with prefix and returns the count
	RemovePrefix(prefix string) (int64, error)
}
