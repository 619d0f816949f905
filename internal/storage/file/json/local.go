package json

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/drakos74/free-bayes/internal/storage"
)

// LocalShard creates in-memory storages, one per shard.
func LocalShard() storage.Shard {
	return func(shard string) (storage.Persistence, error) {
		return NewLocalStorage(), nil
	}
}

// LocalStorage keeps json encoded values in memory.
type LocalStorage struct {
	files map[storage.Key]string
	mutex *sync.RWMutex
}

func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		files: make(map[storage.Key]string),
		mutex: new(sync.RWMutex),
	}
}

func (l LocalStorage) Store(k storage.Key, value interface{}) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	bb, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("could not marshal value: %w", err)
	}

	l.files[k] = string(bb)
	return nil
}

func (l LocalStorage) Load(k storage.Key, value interface{}) error {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if v, ok := l.files[k]; ok {
		err := json.Unmarshal([]byte(v), value)
		if err != nil {
			return fmt.Errorf("could not unmarshal value: %v: %w", err, storage.CouldNotLoadErr)
		}
		return nil
	}
	return fmt.Errorf("file not found: %+v: %w", k, storage.NotFoundErr)
}

func (l LocalStorage) Remove(k storage.Key) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	delete(l.files, k)
	return nil
}

func (l LocalStorage) Keys(label string) ([]storage.Key, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	keys := make([]storage.Key, 0)
	for k := range l.files {
		if k.Label == label {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
