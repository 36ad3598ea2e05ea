// Package testutil holds shared test doubles.
package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/license-insight/backend/internal/models"
	"github.com/license-insight/backend/internal/storage"
)

// MockStorage is an in-memory storage.Store. It mirrors the observable
// behavior of the local store (newest-first semantics aside) so handler
// tests can exercise upload flows without touching disk.
type MockStorage struct {
	mu       sync.RWMutex
	files    map[string]*models.FileInfo
	fileData map[string][]byte
	chunks   map[string]map[int][]byte // uploadID -> chunk index -> data
	nextID   int
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		files:    make(map[string]*models.FileInfo),
		fileData: make(map[string][]byte),
		chunks:   make(map[string]map[int][]byte),
	}
}

var _ storage.Store = (*MockStorage)(nil)

// AddFile seeds a stored log under a fixed ID, bypassing the save path.
func (m *MockStorage) AddFile(id string, name string, data []byte) *models.FileInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.register(id, name, data)
}

// register stores content and metadata; callers hold the lock.
func (m *MockStorage) register(id, name string, data []byte) *models.FileInfo {
	info := &models.FileInfo{
		ID:         id,
		Name:       name,
		Size:       int64(len(data)),
		UploadedAt: time.Now(),
		Status:     "uploaded",
	}
	m.files[id] = info
	m.fileData[id] = data
	return info
}

func (m *MockStorage) newID() string {
	m.nextID++
	return fmt.Sprintf("mock-%d", m.nextID)
}

func (m *MockStorage) Save(name string, r io.Reader) (*models.FileInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return m.SaveBytes(name, data)
}

func (m *MockStorage) SaveBytes(name string, data []byte) (*models.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.register(m.newID(), name, data), nil
}

func (m *MockStorage) Get(id string) (*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.files[id]
	if !ok {
		return nil, errors.New("file not found")
	}
	return info, nil
}

func (m *MockStorage) List(limit int) ([]*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []*models.FileInfo
	for _, info := range m.files {
		list = append(list, info)
		if limit > 0 && len(list) >= limit {
			break
		}
	}
	return list, nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[id]; !ok {
		return errors.New("file not found")
	}
	delete(m.files, id)
	delete(m.fileData, id)
	return nil
}

func (m *MockStorage) Rename(id string, newName string) (*models.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.files[id]
	if !ok {
		return nil, errors.New("file not found")
	}
	info.Name = newName
	return info, nil
}

// GetFilePath returns a synthetic path; nothing is on disk.
func (m *MockStorage) GetFilePath(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.files[id]; !ok {
		return "", errors.New("file not found")
	}
	return "/mock/uploads/" + id, nil
}

func (m *MockStorage) RegisterFile(info *models.FileInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[info.ID] = info
}

func (m *MockStorage) SaveChunk(uploadID string, chunkIndex int, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return m.SaveChunkBytes(uploadID, chunkIndex, data)
}

func (m *MockStorage) SaveChunkBytes(uploadID string, chunkIndex int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.chunks[uploadID] == nil {
		m.chunks[uploadID] = make(map[int][]byte)
	}
	m.chunks[uploadID][chunkIndex] = data
	return nil
}

func (m *MockStorage) CompleteChunkedUpload(uploadID string, name string, totalChunks int) (*models.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	uploadChunks, ok := m.chunks[uploadID]
	if !ok {
		return nil, errors.New("upload not found")
	}

	var buf bytes.Buffer
	for i := 0; i < totalChunks; i++ {
		chunk, ok := uploadChunks[i]
		if !ok {
			return nil, fmt.Errorf("missing chunk %d", i)
		}
		buf.Write(chunk)
	}
	delete(m.chunks, uploadID)

	return m.register(m.newID(), name, buf.Bytes()), nil
}
