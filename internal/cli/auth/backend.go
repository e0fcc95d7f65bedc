package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	service = "ts-platform-cli"
)

// ErrNotFound is returned by a Backend when a key holds no value
var ErrNotFound = errors.New("credential not found")

// Backend is raw string storage for the store's keys.
// This allows us to swap the keyring for a file or memory in tests.
type Backend interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// KeyringBackend persists values in the OS keychain/credential manager
type KeyringBackend struct {
	namespace string
}

// NewKeyringBackend returns a keychain backend whose entries are scoped to namespace
func NewKeyringBackend(namespace string) *KeyringBackend {
	return &KeyringBackend{namespace: namespace}
}

// getKeyringKey returns a unique key per server namespace
func (k *KeyringBackend) getKeyringKey(key string) string {
	return fmt.Sprintf("%s@%s", key, k.namespace)
}

func (k *KeyringBackend) Get(key string) (string, error) {
	value, err := keyring.Get(service, k.getKeyringKey(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read keyring: %w", err)
	}
	return value, nil
}

func (k *KeyringBackend) Set(key, value string) error {
	if err := keyring.Set(service, k.getKeyringKey(key), value); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}

func (k *KeyringBackend) Delete(key string) error {
	if err := keyring.Delete(service, k.getKeyringKey(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete keyring entry: %w", err)
	}
	return nil
}

// FileBackend persists values as a JSON object in a file readable only by the user
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFileBackend returns a backend storing its values in path
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (f *FileBackend) load() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return values, nil
}

func (f *FileBackend) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

func (f *FileBackend) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (f *FileBackend) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		// corrupt state is overwritten
		values = map[string]string{}
	}
	values[key] = value
	return f.save(values)
}

func (f *FileBackend) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	if len(values) == 0 {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove state file: %w", err)
		}
		return nil
	}
	return f.save(values)
}

// MemoryBackend keeps values in memory
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

func (m *MemoryBackend) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
