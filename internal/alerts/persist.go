package alerts

import (
	"encoding/json"
	"os"
	"sync"
)

// ConfigStore persists the region→Config mapping. Both operations are
// best-effort from the monitor's point of view: a load failure falls
// back to an empty mapping, a save failure leaves in-memory state
// authoritative.
type ConfigStore interface {
	Load() (map[string]*Config, error)
	Save(map[string]*Config) error
}

// FileStore keeps the threshold configuration in a JSON file, the
// same format the service has always used.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() (map[string]*Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}

	configs := make(map[string]*Config)
	if err := json.Unmarshal(raw, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func (f *FileStore) Save(configs map[string]*Config) error {
	raw, err := json.MarshalIndent(configs, "", "  ")
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return os.WriteFile(f.path, raw, 0o644)
}
