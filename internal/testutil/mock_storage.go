// mock_storage.go - Mock storage implementation for testing
package testutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fin-processor/backend/internal/models"
	"github.com/fin-processor/backend/internal/storage"
)

// MockStorage implements storage.Store for testing. Files are written to a
// temporary directory so code that opens them by path works.
type MockStorage struct {
	mu       sync.RWMutex
	tempDir  string
	files    map[string]*models.FileInfo
	deleted  []string
	saveErr  error
	idPrefix string
	counter  int
}

// NewMockStorage creates a mock that writes into tempDir.
func NewMockStorage(tempDir string) *MockStorage {
	return &MockStorage{
		tempDir:  tempDir,
		files:    make(map[string]*models.FileInfo),
		idPrefix: "test-id",
	}
}

// FailSaves makes every subsequent Save return err.
func (m *MockStorage) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

func (m *MockStorage) Save(name string, r io.Reader) (*models.FileInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return nil, m.saveErr
	}

	m.counter++
	id := fmt.Sprintf("%s-%d", m.idPrefix, m.counter)
	if err := os.WriteFile(m.path(id, name), data, 0644); err != nil {
		return nil, err
	}

	file := &models.FileInfo{
		ID:         id,
		Name:       name,
		Size:       int64(len(data)),
		UploadedAt: time.Now(),
	}
	m.files[id] = file
	return file, nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, exists := m.files[id]
	if !exists {
		return errors.New("file not found")
	}

	os.Remove(m.path(id, file.Name))
	delete(m.files, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// GetFilePath returns the actual file path on disk
func (m *MockStorage) GetFilePath(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[id]
	if !ok {
		return "", storage.ErrNotFound
	}
	return m.path(id, file.Name), nil
}

func (m *MockStorage) path(id, name string) string {
	return filepath.Join(m.tempDir, id+"_"+filepath.Base(name))
}

// Ensure MockStorage implements storage.Store
var _ storage.Store = (*MockStorage)(nil)

// Test Helper Methods

// GetFileCount returns the number of stored files
func (m *MockStorage) GetFileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// Deleted returns the ids removed through Delete, in order.
func (m *MockStorage) Deleted() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.deleted))
	copy(out, m.deleted)
	return out
}
