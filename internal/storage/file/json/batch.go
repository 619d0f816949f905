package json

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/drakos74/free-bayes/internal/storage"
	"github.com/rs/zerolog/log"
)

const ext = ".json"

// BlobStorage stores each key as a json file under path/table/shard.
type BlobStorage struct {
	path  string
	table string
	shard string
	debug bool
}

// BlobShard creates json blob storages under the given root path and table.
func BlobShard(path, table string, debug bool) storage.Shard {
	return func(shard string) (storage.Persistence, error) {
		return NewJsonBlob(path, table, shard, debug), nil
	}
}

// NewJsonBlob creates a new blob storage.
// table has the same schema
// shard is a logical split
func NewJsonBlob(path, table, shard string, debug bool) *BlobStorage {
	if path == "" {
		path = storage.DefaultDir
	}
	return &BlobStorage{
		table: table,
		shard: shard,
		path:  path,
		debug: debug,
	}
}

func (s BlobStorage) dir() string {
	return filepath.Join(s.path, s.table, s.shard)
}

func (s BlobStorage) Store(k storage.Key, value interface{}) error {
	p := s.dir()
	err := Save(p, k.Path(), value)
	if err == nil && s.debug {
		log.Info().Str("path", p).Str("file", k.Path()).Msg("stored json file")
	}
	return err
}

func (s BlobStorage) Load(k storage.Key, value interface{}) error {
	return Load(s.dir(), k.Path(), value)
}

// Remove deletes the file of the key.
func (s BlobStorage) Remove(k storage.Key) error {
	p := filepath.Join(s.dir(), k.Path()+ext)
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not remove file '%s': %w", p, err)
	}
	if s.debug {
		log.Info().Str("path", s.dir()).Str("file", k.Path()).Msg("removed json file")
	}
	return nil
}

// Keys lists the keys stored with the given label.
func (s BlobStorage) Keys(label string) ([]storage.Key, error) {
	keys := make([]storage.Key, 0)
	files, err := ioutil.ReadDir(s.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return keys, nil
		}
		return nil, fmt.Errorf("could not read dir '%s': %w", s.dir(), err)
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ext) {
			continue
		}
		k, err := storage.ParseKey(strings.TrimSuffix(f.Name(), ext))
		if err != nil {
			log.Warn().Err(err).Str("file", f.Name()).Msg("skipping unknown file")
			continue
		}
		if k.Label == label {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Save saves the given json struct into the given path with the provided filename.
func Save(filePath string, fileName string, value interface{}) error {
	// check if filepath exists
	info, err := os.Stat(filePath)
	if err != nil {
		err := os.MkdirAll(filePath, os.ModePerm)
		if err != nil {
			return fmt.Errorf("could not make dir: %s: %w", filePath, err)
		}
	} else if !info.IsDir() {
		return fmt.Errorf("path given is not a directory: %s", filePath)
	}

	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("could not marshal value for '%s': %w", fileName, err)
	}

	// write to a temporary file first and move it in place
	p := filepath.Join(filePath, fileName+ext)
	tmp := p + ".tmp"
	if err := ioutil.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("could not write file '%s': %w", tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("could not move file '%s' to '%s': %w", tmp, p, err)
	}

	return nil
}

// Load loads the payload from the given filePath and fileName.
func Load(filePath string, fileName string, value interface{}) error {

	p := filepath.Join(filePath, fileName+ext)

	data, err := ioutil.ReadFile(p)
	if err != nil {
		return fmt.Errorf("could not read file '%s' %s: %w", p, err.Error(), storage.NotFoundErr)
	}

	err = json.Unmarshal(data, value)
	if err != nil {
		return fmt.Errorf("could not unmarshal key '%s': %v: %w", p, err, storage.CouldNotLoadErr)
	}

	return nil
}
