package storage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// DefaultDir is the root directory for file based storage.
	DefaultDir = "file-storage"
)

// Shard creates a new storage implementation for the given shard.
type Shard func(shard string) (Persistence, error)

var (
	NotFoundErr     = errors.New("not found")
	CouldNotLoadErr = errors.New("could not load")
	InvalidKeyErr   = errors.New("invalid key")
)

// Key is the storage key for a general implementation
type Key struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Path returns the file name for the key.
func (k Key) Path() string {
	return fmt.Sprintf("%s_%s", k.Label, k.ID)
}

// ParseKey reverses Key.Path.
func ParseKey(path string) (Key, error) {
	i := strings.Index(path, "_")
	if i <= 0 || i == len(path)-1 {
		return Key{}, fmt.Errorf("could not parse '%s': %w", path, InvalidKeyErr)
	}
	return Key{
		Label: path[:i],
		ID:    path[i+1:],
	}, nil
}

// Persistence stores and loads values by key.
type Persistence interface {
	Store(k Key, value interface{}) error
	Load(k Key, value interface{}) error
}

// Index lists the keys of a storage with the given label.
type Index interface {
	Keys(label string) ([]Key, error)
}

// Remover deletes stored values. Removing a missing key is not an error.
type Remover interface {
	Remove(k Key) error
}
