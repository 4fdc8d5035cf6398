package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"icon-sync/internal/naming"
)

// FileName is the settings database inside the state directory.
const FileName = "settings.db"

var bucketSettings = []byte("settings")

// ErrLocked means another process, usually the running agent, holds the
// settings file.
var ErrLocked = errors.New("settings file is in use by another process")

const (
	keyLibraryRoot  = "library_root"
	keyWatchFolders = "watch_folders"
	keyPaused       = "paused"
)

// Store reads and writes settings.
type Store struct {
	db   *bolt.DB
	path string

	mu  sync.RWMutex
	mem map[string][]byte
}

// Open opens (or creates) the settings file in dir. An empty dir gives a
// memory-only store.
func Open(dir string) (*Store, error) {
	s := &Store{mem: make(map[string][]byte)}
	if dir == "" {
		return s, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state folder %s: %w", dir, err)
	}

	s.path = filepath.Join(dir, FileName)
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: time.Second})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("open settings %s: %w", s.path, ErrLocked)
	}
	if err != nil {
		return nil, fmt.Errorf("open settings %s: %w", s.path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSettings)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize settings: %w", err)
	}
	s.db = db
	return s, nil
}

// Path returns the settings file, or "" for a memory-only store.
func (s *Store) Path() string {
	return s.path
}

// Close releases the settings file.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) get(key string, dest interface{}) (bool, error) {
	s.mu.RLock()
	data, ok := s.mem[key]
	s.mu.RUnlock()

	if !ok && s.db != nil {
		err := s.db.View(func(tx *bolt.Tx) error {
			if v := tx.Bucket(bucketSettings).Get([]byte(key)); v != nil {
				data = make([]byte, len(v))
				copy(data, v)
			}
			return nil
		})
		if err != nil {
			return false, fmt.Errorf("read %s: %w", key, err)
		}
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.db != nil {
		err = s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketSettings).Put([]byte(key), data)
		})
		if err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
		return nil
	}

	s.mu.Lock()
	s.mem[key] = data
	s.mu.Unlock()
	return nil
}

// LibraryRoot returns the stored library root, or "" when none was chosen.
func (s *Store) LibraryRoot() (string, error) {
	var root string
	_, err := s.get(keyLibraryRoot, &root)
	return root, err
}

// SetLibraryRoot stores the library root.
func (s *Store) SetLibraryRoot(root string) error {
	if root != "" {
		root = filepath.Clean(root)
	}
	return s.set(keyLibraryRoot, root)
}

// WatchFolders returns the extra folders imported into the library.
func (s *Store) WatchFolders() ([]string, error) {
	var folders []string
	_, err := s.get(keyWatchFolders, &folders)
	return folders, err
}

// SetWatchFolders replaces the watched folder list, dropping blanks and
// entries that name the same folder.
func (s *Store) SetWatchFolders(folders []string) error {
	seen := make(map[string]struct{}, len(folders))
	cleaned := make([]string, 0, len(folders))
	for _, f := range folders {
		if f == "" {
			continue
		}
		f = filepath.Clean(f)
		key := naming.NFC(f)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, f)
	}
	return s.set(keyWatchFolders, cleaned)
}

// AddWatchFolder appends dir to the watched folders.
func (s *Store) AddWatchFolder(dir string) error {
	folders, err := s.WatchFolders()
	if err != nil {
		return err
	}
	return s.SetWatchFolders(append(folders, dir))
}

// RemoveWatchFolder drops dir from the watched folders.
func (s *Store) RemoveWatchFolder(dir string) error {
	folders, err := s.WatchFolders()
	if err != nil {
		return err
	}
	target := naming.NFC(filepath.Clean(dir))
	kept := folders[:0]
	for _, f := range folders {
		if naming.NFC(f) != target {
			kept = append(kept, f)
		}
	}
	return s.SetWatchFolders(kept)
}

// Paused reports whether automatic maintenance is paused.
func (s *Store) Paused() (bool, error) {
	var paused bool
	_, err := s.get(keyPaused, &paused)
	return paused, err
}

// SetPaused stores the paused flag.
func (s *Store) SetPaused(paused bool) error {
	return s.set(keyPaused, paused)
}
