package sharesync

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// ClientIdentity is the persisted identifier of one client installation. It is
// the only basis for owner and ban decisions.
type ClientIdentity struct {
	ID string
}

// Keystore persists the small per-client values the share core reads: the
// client id and, per share, the cached password hash, display name and owner
// marker. Get returns "" for a missing key.
type Keystore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

const clientIDKey = "client-id"

func passwordKey(shareID string) string { return "share:" + shareID + ":password" }
func nameKey(shareID string) string     { return "share:" + shareID + ":name" }
func ownerKey(shareID string) string    { return "share:" + shareID + ":owner" }

// LoadIdentity returns the persisted client identity, generating and storing a
// new random one on first use.
func LoadIdentity(ks Keystore) (ClientIdentity, error) {
	id, err := ks.Get(clientIDKey)
	if err != nil {
		return ClientIdentity{}, fmt.Errorf("sharesync.LoadIdentity: %w", err)
	}
	if id != "" {
		return ClientIdentity{ID: id}, nil
	}
	id = uuid.NewString()
	if err := ks.Set(clientIDKey, id); err != nil {
		return ClientIdentity{}, fmt.Errorf("sharesync.LoadIdentity: %w", err)
	}
	return ClientIdentity{ID: id}, nil
}

// MemoryKeystore keeps keys in memory. Useful for tests and throwaway clients.
type MemoryKeystore struct {
	mu   sync.Mutex
	vals map[string]string
}

// NewMemoryKeystore returns an empty MemoryKeystore.
func NewMemoryKeystore() *MemoryKeystore {
	return &MemoryKeystore{vals: make(map[string]string)}
}

func (m *MemoryKeystore) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vals[key], nil
}

func (m *MemoryKeystore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = value
	return nil
}

func (m *MemoryKeystore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
	return nil
}

// FileKeystore keeps keys in a JSON object on disk. Every write rewrites the
// file atomically, so a crash never leaves it half written.
type FileKeystore struct {
	mu   sync.Mutex
	path string
	vals map[string]string
}

// OpenFileKeystore loads path, treating a missing file as empty.
func OpenFileKeystore(path string) (*FileKeystore, error) {
	ks := &FileKeystore{path: path, vals: make(map[string]string)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ks, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sharesync.OpenFileKeystore: %w", err)
	}
	if err := json.Unmarshal(data, &ks.vals); err != nil {
		return nil, fmt.Errorf("sharesync.OpenFileKeystore: decode %s: %w", path, err)
	}
	if ks.vals == nil {
		ks.vals = make(map[string]string)
	}
	return ks, nil
}

func (f *FileKeystore) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vals[key], nil
}

func (f *FileKeystore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.vals[key]
	f.vals[key] = value
	if err := f.flush(); err != nil {
		if had {
			f.vals[key] = prev
		} else {
			delete(f.vals, key)
		}
		return err
	}
	return nil
}

func (f *FileKeystore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.vals[key]
	if !had {
		return nil
	}
	delete(f.vals, key)
	if err := f.flush(); err != nil {
		f.vals[key] = prev
		return err
	}
	return nil
}

// flush writes the map to a temp file and renames it over path. Callers hold f.mu.
func (f *FileKeystore) flush() error {
	data, err := json.MarshalIndent(f.vals, "", "  ")
	if err != nil {
		return fmt.Errorf("sharesync.FileKeystore: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("sharesync.FileKeystore: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".keys-*")
	if err != nil {
		return fmt.Errorf("sharesync.FileKeystore: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("sharesync.FileKeystore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("sharesync.FileKeystore: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("sharesync.FileKeystore: rename: %w", err)
	}
	return nil
}
