// Package credentials stores the opaque bearer credential for the
// collection service.
package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidCredential reports a credential that is not a 64-character hex
// string, the only form the collection service issues.
var ErrInvalidCredential = errors.New("invalid API credential")

const credentialFileName = "api-key"

// FileStore keeps the credential in a 0600 file inside the durable data
// directory. Loading never performs network I/O.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// NewDefaultFileStore places the credential next to the queue document in
// the durable directory.
func NewDefaultFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, credentialFileName)}
}

// Credential returns the stored credential, or false when absent or
// malformed. Malformed contents are treated the same as absent so a
// damaged file degrades to the unconfigured state instead of producing
// requests the server will reject.
func (s *FileStore) Credential() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	key := strings.ToLower(strings.TrimSpace(string(data)))
	if !Valid(key) {
		return "", false
	}
	return key, true
}

// Store validates and persists the credential.
func (s *FileStore) Store(key string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if !Valid(key) {
		return ErrInvalidCredential
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(key), 0o600); err != nil {
		return fmt.Errorf("write credential: %w", err)
	}
	return nil
}

// Delete removes the stored credential. Missing files are not an error.
func (s *FileStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// Valid reports whether key is a 64-character hex string.
func Valid(key string) bool {
	if len(key) != 64 {
		return false
	}
	for _, r := range key {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
